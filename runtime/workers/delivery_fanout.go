package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"
)

var _ contract.Worker = (*DeliveryFanout)(nil)

// DeliveryFanout broadcasts one pipeline event to every live session.
//
// Each (message, language) resolution is an independent unit of work: it runs
// in its own goroutine under its own timeout and neither waits for nor fails
// because of any sibling language. Recipients sharing a language share one
// resolution, and every sink write runs in its own goroutine under its own
// timeout. The live-session set is snapshotted at the start of a fan-out;
// sessions that disconnect mid-fan-out simply fail to receive.
//
// DeliveryFanout is not a message broker: no delivery guarantees, no
// ordering across recipients, no retries.
type DeliveryFanout struct {
	log         *slog.Logger
	registry    contract.IRegistry
	resolver    contract.IResolver
	monitor     *observability.Monitor
	events      chan event.DomainEvent
	telemetry   chan event.DomainEvent
	sinkTimeout time.Duration
}

func NewDeliveryFanout(log *slog.Logger, registry contract.IRegistry,
	resolver contract.IResolver, monitor *observability.Monitor,
	events, telemetry chan event.DomainEvent, sinkTimeout time.Duration) *DeliveryFanout {
	return &DeliveryFanout{
		log:         log,
		registry:    registry,
		resolver:    resolver,
		monitor:     monitor,
		events:      events,
		telemetry:   telemetry,
		sinkTimeout: sinkTimeout,
	}
}

func (w *DeliveryFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fan-out")
			return ctx.Err()
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.Fanout(ctx, evt)
			select {
			case w.telemetry <- evt:
			default:
				w.log.Debug("Telemetry event lost")
			}
		}
	}
}

// Fanout dispatches one event to the snapshotted live-session set.
func (w *DeliveryFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	live := w.registry.LiveSessions()

	switch e := evt.(type) {
	case event.MessagePosted:
		w.deliverMessage(ctx, live, e)
	case event.SystemNotice:
		// Notices ship as-is, no translation.
		for _, recipient := range live {
			go w.ship(ctx, recipient, e)
		}
	default:
		w.log.Debug("Not implemented event", "event", evt.Name())
	}
}

// deliverMessage groups recipients by target language and resolves each
// language exactly once per fan-out. The author always receives the
// canonical body and never costs a resolution.
func (w *DeliveryFanout) deliverMessage(ctx context.Context, live []contract.LiveSession, e event.MessagePosted) {
	byLang := map[string][]contract.LiveSession{}
	for _, recipient := range live {
		if recipient.Session.DisplayName == e.Author {
			go w.ship(ctx, recipient, event.ChatDelivery{
				User:        e.Author,
				Msg:         e.Body,
				OriginalMsg: e.Body,
			})
			continue
		}
		byLang[recipient.Session.Lang] = append(byLang[recipient.Session.Lang], recipient)
	}
	for lang, recipients := range byLang {
		go w.deliverLang(ctx, lang, recipients, e)
	}
}

// deliverLang resolves one (message, language) pair under its own timeout so
// a slow translation only delays the sessions that asked for that language.
func (w *DeliveryFanout) deliverLang(ctx context.Context, lang string, recipients []contract.LiveSession, e event.MessagePosted) {
	resolveCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()

	msg := domain.Message{
		ID:           e.ID,
		Author:       e.Author,
		Body:         e.Body,
		SourceLang:   e.SourceLang,
		Translations: map[string]string{},
		CreatedAt:    e.At,
	}
	rendered := w.resolver.Resolve(resolveCtx, msg, lang, "")

	delivery := event.ChatDelivery{
		User:        e.Author,
		Msg:         rendered,
		OriginalMsg: e.Body,
	}
	for _, recipient := range recipients {
		go w.ship(ctx, recipient, delivery)
	}
}

// ship writes one event to one sink under its own timeout.
func (w *DeliveryFanout) ship(ctx context.Context, recipient contract.LiveSession, evt event.DomainEvent) {
	deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()

	if err := recipient.Sink.Consume(deliveryCtx, evt); err != nil {
		w.monitor.DeliveryDropped()
		w.log.Debug("Delivery failed",
			"conn_id", recipient.Session.ConnID,
			"error", err)
		return
	}
	w.monitor.Delivered()
}
