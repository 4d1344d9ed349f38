package server_test

import (
	"chat-relay/mocks"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/server"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type wireFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type wireMessage struct {
	User        string `json:"user"`
	Msg         string `json:"msg"`
	OriginalMsg string `json:"originalMsg,omitempty"`
}

type gateway struct {
	url      string
	store    *mocks.MockIMessageRepository
	resolver *mocks.MockIResolver
	searcher *mocks.MockISearcher
}

func startGateway(t *testing.T, ctx context.Context) gateway {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	store := mocks.NewMockIMessageRepository(ctrl)
	resolver := mocks.NewMockIResolver(ctrl)
	searcher := mocks.NewMockISearcher(ctrl)

	sup := workers.NewSupervisor(log, 50*time.Millisecond)
	registry := runtime.NewRegistry("시스템")
	relay := runtime.NewRelay(log, sup, registry, store, resolver, searcher,
		observability.NewMonitor(), 2, 32, time.Second, '*', "ko", "시스템")
	req.NoError(relay.Start(ctx))

	srv := httptest.NewServer(server.NewServer(log, relay, 32).Router())
	t.Cleanup(srv.Close)

	return gateway{
		url:      "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		store:    store,
		resolver: resolver,
		searcher: searcher,
	}
}

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close(websocket.StatusNormalClosure, "test done") })
	return ws
}

func send(t *testing.T, ctx context.Context, ws *websocket.Conn, eventName string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	f, err := json.Marshal(wireFrame{Event: eventName, Data: data})
	require.NoError(t, err)
	require.NoError(t, ws.Write(ctx, websocket.MessageText, f))
}

// awaitFrame reads frames until one with the wanted event name arrives.
func awaitFrame(t *testing.T, ctx context.Context, ws *websocket.Conn, eventName string) wireFrame {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	for {
		_, data, err := ws.Read(readCtx)
		require.NoError(t, err)
		var f wireFrame
		require.NoError(t, json.Unmarshal(data, &f))
		if f.Event == eventName {
			return f
		}
	}
}

func TestServer_JoinHandshake(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw := startGateway(t, ctx)

	gw.store.EXPECT().Recent().Return(nil, nil).Times(1)

	ws := dial(t, ctx, gw.url)
	send(t, ctx, ws, "join", map[string]string{"name": "Alice", "lang": "en"})

	// The join notice arrives under the system label
	f := awaitFrame(t, ctx, ws, "message")
	var notice wireMessage
	req.NoError(json.Unmarshal(f.Data, &notice))
	req.Equal("시스템", notice.User)
	req.Equal("Alice님이 입장하셨습니다.", notice.Msg)

	// History rides as a bare array, empty here
	f = awaitFrame(t, ctx, ws, "history")
	var items []wireMessage
	req.NoError(json.Unmarshal(f.Data, &items))
	req.Empty(items)
}

func TestServer_JoinRejectedNames(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw := startGateway(t, ctx)

	tests := []struct {
		name        string
		displayName string
	}{
		{"Reserved name", "System"},
		{"Korean system label", "시스템"},
		{"Too long", strings.Repeat("a", 31)},
		{"Empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := dial(t, ctx, gw.url)
			send(t, ctx, ws, "join", map[string]string{"name": tt.displayName, "lang": "en"})

			f := awaitFrame(t, ctx, ws, "error")
			var errPayload struct {
				Msg string `json:"msg"`
			}
			req.NoError(json.Unmarshal(f.Data, &errPayload))
			req.NotEmpty(errPayload.Msg)
		})
	}
}

func TestServer_SendAttributesBoundName(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw := startGateway(t, ctx)

	gw.store.EXPECT().Recent().Return(nil, nil).Times(1)

	stored := repositories.DiskMessage{
		ID:           uuid.New(),
		Author:       "Alice",
		Body:         "hello",
		SourceLang:   "en",
		Translations: map[string]string{},
		At:           time.Now().UTC(),
	}
	// The author comes from the bound session, not from the wire payload
	gw.store.EXPECT().
		StoreMessage("Alice", "hello", gomock.Any()).
		Return(stored, nil).Times(1)
	gw.searcher.EXPECT().IndexMessage(gomock.Any()).Return(nil).Times(1)

	ws := dial(t, ctx, gw.url)
	send(t, ctx, ws, "join", map[string]string{"name": "Alice", "lang": "en"})
	awaitFrame(t, ctx, ws, "history")

	send(t, ctx, ws, "send", map[string]string{"user": "Forged", "msg": "hello"})

	for {
		f := awaitFrame(t, ctx, ws, "message")
		var msg wireMessage
		req.NoError(json.Unmarshal(f.Data, &msg))
		if msg.User == "시스템" {
			continue
		}
		req.Equal("Alice", msg.User)
		req.Equal("hello", msg.Msg)
		return
	}
}

func TestServer_SendBeforeJoinIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw := startGateway(t, ctx)

	ws := dial(t, ctx, gw.url)
	send(t, ctx, ws, "send", map[string]string{"msg": "hello"})

	// Nothing is stored and nothing comes back
	readCtx, readCancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer readCancel()
	_, _, err := ws.Read(readCtx)
	require.Error(t, err)
}

func TestServer_Healthz(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gw := startGateway(t, ctx)

	httpURL := "http" + strings.TrimPrefix(strings.TrimSuffix(gw.url, "/ws"), "ws")
	resp, err := http.Get(httpURL + "/healthz")
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
}
