//go:generate go run go.uber.org/mock/mockgen -source=resolver.go -destination=../mocks/mock_resolver.go -package=mocks
package translate

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// TranslationWriter is the slice of the message store the resolver needs
// for best-effort cache fills.
type TranslationWriter interface {
	SetTranslation(id uuid.UUID, at time.Time, lang, text string) error
}

// Resolver produces the text a given recipient should see for a message.
//
// Caching is per (message, language), not per (message, session): two
// sessions sharing a language reuse one provider call, bounding provider
// traffic to messages x distinct languages ever requested.
type Resolver struct {
	provider contract.ITranslator
	writer   TranslationWriter
	monitor  *observability.Monitor
	group    singleflight.Group
	log      *slog.Logger
}

func NewResolver(log *slog.Logger, provider contract.ITranslator, writer TranslationWriter, monitor *observability.Monitor) *Resolver {
	return &Resolver{provider: provider, writer: writer, monitor: monitor, log: log}
}

// Resolve applies, in order:
//  1. authors always see their own canonical body, never a round-tripped
//     translation;
//  2. a cached entry for targetLang is served with zero provider calls;
//  3. targetLang equal to the message's detected source language is served
//     verbatim and never stored as a translation of itself;
//  4. otherwise one provider call, deduplicated across concurrent
//     resolutions of the same (message, language) pair, with a best-effort
//     cache fill written back to the store.
func (r *Resolver) Resolve(ctx context.Context, msg domain.Message, targetLang, requester string) string {
	if requester != "" && msg.Author == requester {
		return msg.Body
	}
	if cached, ok := msg.Translation(targetLang); ok {
		return cached
	}
	if targetLang == "" || targetLang == msg.SourceLang {
		return msg.Body
	}

	key := msg.ID.String() + ":" + targetLang
	translated, _, _ := r.group.Do(key, func() (interface{}, error) {
		r.monitor.ProviderCall()
		text := r.provider.Translate(ctx, msg.Body, targetLang)
		if text != msg.Body {
			// An unchanged body means the provider skipped or failed;
			// storing it would poison the cache with a non-translation.
			if err := r.writer.SetTranslation(msg.ID, msg.CreatedAt, targetLang, text); err != nil {
				r.log.Warn("Translation cache fill failed",
					"message_id", msg.ID,
					"lang", targetLang,
					"error", err)
			}
		}
		return text, nil
	})
	return translated.(string)
}
