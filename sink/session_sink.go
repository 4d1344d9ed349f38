package sink

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"fmt"
)

var _ contract.EventSink = (*SessionSink)(nil)

var ErrSinkFull = fmt.Errorf("session sink full")

// SessionSink bridges the fan-out pipeline and one connection's writer
// loop. Consume never blocks on a slow consumer: a full buffer drops the
// event and reports it, backpressure is the transport's problem.
type SessionSink struct {
	Events chan event.DomainEvent
}

func NewSessionSink(bufferSize int) *SessionSink {
	return &SessionSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the fan-out stage.
// It redirects the event to the owner of the channel; the transport
// writer loop takes it from there.
func (s *SessionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrSinkFull
	}
}
