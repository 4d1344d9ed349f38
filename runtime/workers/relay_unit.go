package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/domain/search"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"context"
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/samber/lo"
)

// Ensure *RelayUnitWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*RelayUnitWorker)(nil)

// RelayUnitWorker is one unit of the intake pool. It moderates an inbound
// body, detects its source language, persists the canonical message, feeds
// the search index, and hands the result to the fan-out stage. A store
// failure drops that single message; nothing is broadcast for it.
type RelayUnitWorker struct {
	moderator   *moderation.Moderator
	store       repositories.IMessageRepository
	searcher    contract.ISearcher
	registry    contract.IRegistry
	monitor     *observability.Monitor
	commands    chan domain.Command
	events      chan event.DomainEvent
	sourceLang  string
	sinkTimeout time.Duration
	log         *slog.Logger
}

func NewRelayUnitWorker(log *slog.Logger, moderator *moderation.Moderator,
	store repositories.IMessageRepository, searcher contract.ISearcher,
	registry contract.IRegistry, monitor *observability.Monitor,
	commands chan domain.Command, events chan event.DomainEvent,
	sourceLang string, sinkTimeout time.Duration) *RelayUnitWorker {
	return &RelayUnitWorker{
		moderator:   moderator,
		store:       store,
		searcher:    searcher,
		registry:    registry,
		monitor:     monitor,
		commands:    commands,
		events:      events,
		sourceLang:  sourceLang,
		sinkTimeout: sinkTimeout,
		log:         log,
	}
}

func (w *RelayUnitWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case cmd, ok := <-w.commands:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			if postCmd, ok := cmd.(domain.PostMessageCommand); ok {
				w.handle(ctx, postCmd)
			}
		}
	}
}

func (w *RelayUnitWorker) handle(ctx context.Context, cmd domain.PostMessageCommand) {
	if cmd.Body == "" || cmd.Author == "" {
		w.log.Debug("Dropping invalid message", "conn_id", cmd.ConnID)
		return
	}

	if search.IsSearch(cmd.Body) {
		w.answerSearch(ctx, cmd)
		return
	}

	sanitized, censoredWords := w.moderator.Censor(cmd.Body)
	if len(censoredWords) > 0 {
		w.log.Info("Message censored",
			"author", cmd.Author,
			"words", len(censoredWords))
	}

	stored, err := w.store.StoreMessage(cmd.Author, sanitized, w.detectLang(sanitized))
	if err != nil {
		// Fatal for this message only: no partial broadcast happens.
		w.log.Error("Message persistence failed, dropping",
			"author", cmd.Author,
			"error", err)
		return
	}
	w.monitor.MessagePosted()

	if err = w.searcher.IndexMessage(toDomainMessage(stored)); err != nil {
		w.log.Warn("Search indexing failed", "message_id", stored.ID, "error", err)
	}

	posted := event.MessagePosted{
		ID:         stored.ID,
		Author:     stored.Author,
		Body:       stored.Body,
		SourceLang: stored.SourceLang,
		At:         stored.At,
	}
	select {
	case <-ctx.Done():
	case w.events <- posted:
	}
}

// answerSearch resolves a /find command against the index and replies to the
// requesting session only, as a history-shaped batch.
func (w *RelayUnitWorker) answerSearch(ctx context.Context, cmd domain.PostMessageCommand) {
	live, ok := w.registry.Live(cmd.ConnID)
	if !ok {
		return
	}
	query := search.NewSearchQuery(cmd.Body)
	hits, err := w.searcher.Search(ctx, *query)
	if err != nil {
		w.log.Warn("Search failed", "terms", query.Terms, "error", err)
		return
	}

	items := lo.Map(hits, func(hit domain.Message, _ int) event.ChatDelivery {
		return event.ChatDelivery{User: hit.Author, Msg: hit.Body, OriginalMsg: hit.Body}
	})

	deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	if err = live.Sink.Consume(deliveryCtx, event.HistoryBatch{Items: items}); err != nil {
		w.log.Warn("Search delivery failed", "conn_id", cmd.ConnID, "error", err)
	}
}

// detectLang guesses the canonical language of a body so the cache never
// stores a retranslation of a message into its own source language.
// Detection is best-effort; unknown scripts fall back to the configured
// canonical language.
func (w *RelayUnitWorker) detectLang(body string) string {
	info := whatlanggo.Detect(body)
	if code := info.Lang.Iso6391(); code != "" {
		return code
	}
	return w.sourceLang
}

func toDomainMessage(dm repositories.DiskMessage) domain.Message {
	return domain.Message{
		ID:           dm.ID,
		Author:       dm.Author,
		Body:         dm.Body,
		SourceLang:   dm.SourceLang,
		Translations: dm.Translations,
		CreatedAt:    dm.At,
	}
}
