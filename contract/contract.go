//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/domain/search"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// LiveSession pairs an Active session with its delivery sink for fan-out.
type LiveSession struct {
	Session *domain.Session
	Sink    EventSink
}

type IRegistry interface {
	Register(connID string, sink EventSink) *domain.Session
	Bind(connID, displayName, lang string) (*domain.Session, error)
	Unregister(connID string) *domain.Session
	LiveSessions() []LiveSession
	Live(connID string) (LiveSession, bool)
}

type ITranslator interface {
	Translate(ctx context.Context, text, targetLang string) string
}

// IResolver renders a message for one recipient, consulting the
// translation cache before the provider.
type IResolver interface {
	Resolve(ctx context.Context, msg domain.Message, targetLang, requester string) string
}

// ISearcher maintains the full-text index over stored messages and answers
// /find commands. Indexing is best-effort: a failed index write never blocks
// the broadcast of the message itself.
type ISearcher interface {
	IndexMessage(msg domain.Message) error
	Search(ctx context.Context, query search.Query) ([]domain.Message, error)
}
