package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime/workers"
	"context"
	"embed"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
)

//go:embed censored/*
var censoredFolder embed.FS

// Relay orchestrates the chat pipeline: it owns the session registry, the
// sharded command intake, and the supervised workers that moderate, persist
// and fan messages out to live sessions. Every connection is pinned to one
// intake shard, so its commands are handled serially in the order they were
// sent while distinct connections spread across the pool.
type Relay struct {
	log             *slog.Logger
	supervisor      contract.ISupervisor
	registry        contract.IRegistry
	store           repositories.IMessageRepository
	resolver        contract.IResolver
	searcher        contract.ISearcher
	monitor         *observability.Monitor
	commands        []chan domain.Command
	events          chan event.DomainEvent
	telemetry       chan event.DomainEvent
	numWorkers      int
	sinkTimeout     time.Duration
	charReplacement rune
	sourceLang      string
	systemLabel     string
}

func NewRelay(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, store repositories.IMessageRepository,
	resolver contract.IResolver, searcher contract.ISearcher,
	monitor *observability.Monitor,
	numWorkers, bufferSize int, sinkTimeout time.Duration,
	charReplacement rune, sourceLang, systemLabel string) *Relay {
	if numWorkers < 1 {
		numWorkers = 1
	}
	commands := make([]chan domain.Command, numWorkers)
	for i := range commands {
		commands[i] = make(chan domain.Command, bufferSize)
	}
	return &Relay{
		log:             log,
		supervisor:      supervisor,
		registry:        registry,
		store:           store,
		resolver:        resolver,
		searcher:        searcher,
		monitor:         monitor,
		commands:        commands,
		events:          make(chan event.DomainEvent, bufferSize),
		telemetry:       make(chan event.DomainEvent, bufferSize),
		numWorkers:      numWorkers,
		sinkTimeout:     sinkTimeout,
		charReplacement: charReplacement,
		sourceLang:      sourceLang,
		systemLabel:     systemLabel,
	}
}

// Start prepares the moderation automaton and the worker pool, registers
// everything with the supervisor, and launches supervision in the
// background. Heavy preparation (loading word lists, building the
// Aho-Corasick automaton) happens before any worker runs.
func (r *Relay) Start(ctx context.Context) error {
	moderator, err := r.prepareModeration("censored", r.charReplacement)
	if err != nil {
		return err
	}

	for i := 0; i < r.numWorkers; i++ {
		r.supervisor.Add(workers.NewRelayUnitWorker(
			r.log, moderator, r.store, r.searcher, r.registry, r.monitor,
			r.commands[i], r.events, r.sourceLang, r.sinkTimeout))
	}
	r.supervisor.Add(workers.NewDeliveryFanout(
		r.log, r.registry, r.resolver, r.monitor,
		r.events, r.telemetry, r.sinkTimeout))

	r.log.Info("Starting relay and all supervised workers")
	go r.supervisor.Run(ctx)
	return nil
}

// prepareModeration loads censored words and builds the Aho-Corasick automaton.
func (r *Relay) prepareModeration(path string, charReplacement rune) (*moderation.Moderator, error) {
	loader := NewCensoredLoader(censoredFolder)
	data, err := loader.LoadAll(path)
	if err != nil {
		return nil, err
	}

	r.log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	r.log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	moderator, err := moderation.NewModerator(data.Words, charReplacement, r.log)
	if err != nil {
		return nil, err
	}
	return &moderator, nil
}

// Connect registers a fresh connection in AwaitingJoin state.
func (r *Relay) Connect(connID string, sink contract.EventSink) *domain.Session {
	return r.registry.Register(connID, sink)
}

// Join completes the handshake for a connection: it binds name and language,
// announces the arrival to every live session, and replays recent history to
// the joining session only. History replay runs in the background on the
// connection's context, so a disconnect simply discards the in-flight work.
func (r *Relay) Join(ctx context.Context, connID, displayName, lang string) error {
	session, err := r.registry.Bind(connID, displayName, lang)
	if err != nil {
		return err
	}
	r.log.Info("Session joined",
		"conn_id", connID,
		"name", session.DisplayName,
		"lang", session.Lang)

	r.systemNotice(fmt.Sprintf("%s님이 입장하셨습니다.", session.DisplayName))
	go r.replayHistory(ctx, connID)
	return nil
}

// Disconnect tears a connection down. A "left" notice is only owed when the
// session had completed its join.
func (r *Relay) Disconnect(connID string) {
	session := r.registry.Unregister(connID)
	if session == nil {
		return
	}
	r.log.Debug("Session closed", "conn_id", connID, "name", session.DisplayName)
	if session.DisplayName != "" {
		r.systemNotice(fmt.Sprintf("%s님이 퇴장하셨습니다.", session.DisplayName))
	}
}

// LiveSession exposes the live pair for one connection, used by the
// transport to attribute inbound messages to the bound display name.
func (r *Relay) LiveSession(connID string) (contract.LiveSession, bool) {
	return r.registry.Live(connID)
}

// Dispatch hands one inbound command to its connection's intake shard without
// blocking the connection handler. Same-connection commands always land on
// the same shard, which keeps them in send order through the pool.
func (r *Relay) Dispatch(cmd domain.Command) {
	shard := r.commands[shardIndex(cmd.Conn(), len(r.commands))]
	select {
	case shard <- cmd:
	default:
		r.log.Warn(fmt.Sprintf("Command channel full, dropping command from %s", cmd.Conn()))
	}
}

func shardIndex(connID string, shards int) int {
	h := fnv.New32a()
	h.Write([]byte(connID))
	return int(h.Sum32() % uint32(shards))
}

// Telemetry exposes the telemetry stream for reporting workers.
func (r *Relay) Telemetry() chan event.DomainEvent {
	return r.telemetry
}

// systemNotice pushes a join/leave announcement through the same fan-out
// pipeline as chat messages. Notices are delivered as-is to every recipient,
// never translated.
func (r *Relay) systemNotice(msg string) {
	notice := event.SystemNotice{User: r.systemLabel, Msg: msg}
	select {
	case r.events <- notice:
	default:
		r.log.Warn("Event channel full, dropping system notice")
	}
}

// replayHistory renders the last stored messages for the joining session's
// language, preserving chronological order, and delivers them as one batch
// to that session only.
func (r *Relay) replayHistory(ctx context.Context, connID string) {
	live, ok := r.registry.Live(connID)
	if !ok {
		return
	}
	diskMessages, err := r.store.Recent()
	if err != nil {
		r.log.Error("History replay failed", "conn_id", connID, "error", err)
		return
	}

	items := lo.Map(diskMessages, func(dm repositories.DiskMessage, _ int) event.ChatDelivery {
		msg := ToDomainMessage(dm)
		rendered := r.resolver.Resolve(ctx, msg, live.Session.Lang, live.Session.DisplayName)
		return event.ChatDelivery{
			User:        msg.Author,
			Msg:         rendered,
			OriginalMsg: msg.Body,
		}
	})

	deliveryCtx, cancel := context.WithTimeout(ctx, r.sinkTimeout)
	defer cancel()
	if err = live.Sink.Consume(deliveryCtx, event.HistoryBatch{Items: items}); err != nil {
		r.log.Warn("History delivery failed", "conn_id", connID, "error", err)
		return
	}
	r.monitor.HistoryReplay()
}

// ToDomainMessage lifts a stored record into the domain shape.
func ToDomainMessage(dm repositories.DiskMessage) domain.Message {
	return domain.Message{
		ID:           dm.ID,
		Author:       dm.Author,
		Body:         dm.Body,
		SourceLang:   dm.SourceLang,
		Translations: dm.Translations,
		CreatedAt:    dm.At,
	}
}
