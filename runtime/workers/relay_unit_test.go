package workers

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"chat-relay/mocks"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testModerator(t *testing.T) *moderation.Moderator {
	t.Helper()
	mod, err := moderation.NewModerator([]string{"badger"}, '*', slog.Default())
	require.NoError(t, err)
	return &mod
}

func TestRelayUnit_StoresCensorsAndEmits(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockIMessageRepository(ctrl)
	searcher := mocks.NewMockISearcher(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)
	monitor := observability.NewMonitor()

	commands := make(chan domain.Command, 1)
	events := make(chan event.DomainEvent, 1)

	stored := repositories.DiskMessage{
		ID:           uuid.New(),
		Author:       "Alice",
		Body:         "the ****** bites",
		SourceLang:   "en",
		Translations: map[string]string{},
		At:           time.Now().UTC(),
	}
	// The body is censored before persistence; the detected language is
	// stored alongside it. Detection on short bodies is fuzzy, so only the
	// censored body is pinned here.
	store.EXPECT().
		StoreMessage("Alice", "the ****** bites", gomock.Any()).
		Return(stored, nil).
		Times(1)
	searcher.EXPECT().
		IndexMessage(gomock.Any()).
		Return(nil).
		Times(1)

	worker := NewRelayUnitWorker(log, testModerator(t), store, searcher,
		registry, monitor, commands, events, "ko", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	commands <- domain.PostMessageCommand{
		ConnID:    "conn-1",
		Author:    "Alice",
		Body:      "the badger bites",
		CreatedAt: time.Now().UTC(),
	}

	select {
	case evt := <-events:
		posted, ok := evt.(event.MessagePosted)
		req.True(ok)
		req.Equal(stored.ID, posted.ID)
		req.Equal("Alice", posted.Author)
		req.Equal("the ****** bites", posted.Body)
		req.Equal("en", posted.SourceLang)
	case <-time.After(time.Second):
		req.Fail("No event emitted")
	}
	req.Equal(uint64(1), monitor.Snapshot().MessagesPosted)
}

func TestRelayUnit_StoreFailureDropsMessage(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockIMessageRepository(ctrl)
	searcher := mocks.NewMockISearcher(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)
	monitor := observability.NewMonitor()

	commands := make(chan domain.Command, 1)
	events := make(chan event.DomainEvent, 1)

	store.EXPECT().
		StoreMessage(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(repositories.DiskMessage{}, context.DeadlineExceeded).
		Times(1)

	worker := NewRelayUnitWorker(log, testModerator(t), store, searcher,
		registry, monitor, commands, events, "ko", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	commands <- domain.PostMessageCommand{
		ConnID: "conn-1",
		Author: "Alice",
		Body:   "hello",
	}

	// No partial broadcast: nothing reaches the fan-out stage
	select {
	case <-events:
		req.Fail("A failed store must not broadcast")
	case <-time.After(200 * time.Millisecond):
	}
	req.Zero(monitor.Snapshot().MessagesPosted)
}

func TestRelayUnit_DropsEmptyMessages(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockIMessageRepository(ctrl)
	searcher := mocks.NewMockISearcher(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)

	commands := make(chan domain.Command, 2)
	events := make(chan event.DomainEvent, 2)

	worker := NewRelayUnitWorker(log, testModerator(t), store, searcher,
		registry, observability.NewMonitor(), commands, events, "ko", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	commands <- domain.PostMessageCommand{ConnID: "conn-1", Author: "Alice", Body: ""}
	commands <- domain.PostMessageCommand{ConnID: "conn-1", Author: "", Body: "hello"}

	select {
	case <-events:
		req.Fail("Invalid messages must be dropped silently")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRelayUnit_AnswersSearchToRequesterOnly(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockIMessageRepository(ctrl)
	searcher := mocks.NewMockISearcher(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)

	commands := make(chan domain.Command, 1)
	events := make(chan event.DomainEvent, 1)

	sink := mocks.NewMockEventSink(ctrl)
	registry.EXPECT().
		Live("conn-1").
		Return(contract.LiveSession{
			Session: &domain.Session{ConnID: "conn-1", DisplayName: "Alice", Lang: "en", State: domain.Active},
			Sink:    sink,
		}, true).
		Times(1)

	hits := []domain.Message{
		{ID: uuid.New(), Author: "Bob", Body: "the invoice is paid"},
	}
	searcher.EXPECT().
		Search(gomock.Any(), gomock.Any()).
		Return(hits, nil).
		Times(1)

	answered := make(chan event.DomainEvent, 1)
	sink.EXPECT().
		Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, e event.DomainEvent) error {
			answered <- e
			return nil
		}).Times(1)

	worker := NewRelayUnitWorker(log, testModerator(t), store, searcher,
		registry, observability.NewMonitor(), commands, events, "ko", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	commands <- domain.PostMessageCommand{ConnID: "conn-1", Author: "Alice", Body: "/find invoice"}

	select {
	case e := <-answered:
		batch, ok := e.(event.HistoryBatch)
		req.True(ok)
		req.Len(batch.Items, 1)
		req.Equal("Bob", batch.Items[0].User)
		req.Equal("the invoice is paid", batch.Items[0].Msg)
	case <-time.After(time.Second):
		req.Fail("Search was not answered")
	}

	// The command never becomes a stored, broadcast message
	select {
	case <-events:
		req.Fail("A search command must not be broadcast")
	case <-time.After(100 * time.Millisecond):
	}
}
