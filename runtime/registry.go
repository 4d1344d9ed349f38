package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	relayerrors "chat-relay/errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type joinRequest struct {
	Name string `validate:"required,max=30"`
	Lang string `validate:"required"`
}

type liveEntry struct {
	session *domain.Session
	sink    contract.EventSink
}

// Registry tracks every live connection: assigned display name, preferred
// language and lifecycle state. It is owned by the relay and passed by
// handle, never ambient global state.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*liveEntry
	reserved []string
}

// NewRegistry builds a registry. systemLabel is the author name used for
// system notices; it joins "system" and "admin" on the reserved list.
func NewRegistry(systemLabel string) *Registry {
	return &Registry{
		sessions: make(map[string]*liveEntry),
		reserved: []string{"system", "admin", systemLabel},
	}
}

// Register creates an AwaitingJoin session for a fresh connection.
func (r *Registry) Register(connID string, sink contract.EventSink) *domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	session := &domain.Session{
		ConnID: connID,
		Lang:   domain.DefaultLang,
		State:  domain.AwaitingJoin,
	}
	r.sessions[connID] = &liveEntry{session: session, sink: sink}
	return session
}

// Bind completes the join handshake: it validates the display name, binds
// name and language once, and promotes the session to Active. Name and
// language are never re-negotiated mid-session.
func (r *Registry) Bind(connID, displayName, lang string) (*domain.Session, error) {
	if err := r.validateName(displayName, lang); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[connID]
	if !ok {
		return nil, relayerrors.ErrUnknownSession
	}
	if entry.session.State != domain.AwaitingJoin {
		return nil, relayerrors.ErrAlreadyJoined
	}

	entry.session.DisplayName = displayName
	entry.session.Lang = lang
	entry.session.State = domain.Active
	return entry.session, nil
}

func (r *Registry) validateName(displayName, lang string) error {
	if strings.TrimSpace(displayName) == "" {
		return relayerrors.ErrEmptyName
	}
	if err := validate.Struct(joinRequest{Name: displayName, Lang: lang}); err != nil {
		if utf8.RuneCountInString(displayName) > 30 {
			return relayerrors.ErrNameTooLong
		}
		return err
	}
	for _, reserved := range r.reserved {
		if strings.EqualFold(displayName, reserved) {
			return relayerrors.ErrReservedName
		}
	}
	return nil
}

// Unregister removes a connection and returns the session it held, so the
// caller can decide whether a "left" notice is owed. Returns nil when the
// connection was never registered.
func (r *Registry) Unregister(connID string) *domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[connID]
	if !ok {
		return nil
	}
	delete(r.sessions, connID)
	session := entry.session
	session.State = domain.Closed
	// A bound DisplayName is the trace of a completed join; callers use it
	// to decide whether a "left" notice is owed.
	return session
}

// LiveSessions snapshots every Active session with its sink. Fan-out
// iterates the snapshot, so connections appearing or vanishing mid-fan-out
// are simply missed or fail to receive.
func (r *Registry) LiveSessions() []contract.LiveSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var live []contract.LiveSession
	for _, entry := range r.sessions {
		if entry.session.State == domain.Active {
			live = append(live, contract.LiveSession{Session: entry.session, Sink: entry.sink})
		}
	}
	return live
}

// Live returns the live pair for one connection.
func (r *Registry) Live(connID string) (contract.LiveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.sessions[connID]
	if !ok || entry.session.State != domain.Active {
		return contract.LiveSession{}, false
	}
	return contract.LiveSession{Session: entry.session, Sink: entry.sink}, true
}
