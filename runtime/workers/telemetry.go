package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"context"
	"log/slog"
)

var _ contract.Worker = (*TelemetryWorker)(nil)

// TelemetryWorker drains the telemetry stream fed by the fan-out stage.
// It exists for observability only; losing telemetry events is acceptable.
type TelemetryWorker struct {
	log       *slog.Logger
	telemetry chan event.DomainEvent
}

func NewTelemetryWorker(log *slog.Logger, telemetry chan event.DomainEvent) *TelemetryWorker {
	return &TelemetryWorker{log: log, telemetry: telemetry}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-w.telemetry:
			if !ok {
				return nil
			}
			switch e := evt.(type) {
			case event.MessagePosted:
				w.log.Debug("Relayed",
					"author", e.Author,
					"lang", e.SourceLang,
					"at", e.At)
			case event.SystemNotice:
				w.log.Debug("Announced", "msg", e.Msg)
			}
		}
	}
}
