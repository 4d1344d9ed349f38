// Package server exposes the relay over HTTP: a WebSocket endpoint speaking
// the JSON event protocol, a health probe, and the embedded web client.
package server

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	relayerrors "chat-relay/errors"
	"chat-relay/runtime"
	"chat-relay/sink"
	"chat-relay/web"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type Server struct {
	log                  *slog.Logger
	relay                *runtime.Relay
	connectionBufferSize int
}

func NewServer(log *slog.Logger, relay *runtime.Relay, connectionBufferSize int) *Server {
	return &Server{log: log, relay: relay, connectionBufferSize: connectionBufferSize}
}

// frame is one JSON event on the wire, both directions:
// {"event": "...", "data": ...}.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type joinPayload struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

type sendPayload struct {
	User string `json:"user"`
	Msg  string `json:"msg"`
}

type errorPayload struct {
	Msg string `json:"msg"`
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWS)
	r.Handle("/*", web.Handler())
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleWS owns one connection for its whole lifetime: register, read
// frames, mirror pipeline events back, unregister on any exit path.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		_ = ws.Close(websocket.StatusNormalClosure, "session ended")
	}()

	connID := uuid.NewString()
	sessionSink := sink.NewSessionSink(s.connectionBufferSize)
	s.relay.Connect(connID, sessionSink)
	defer s.relay.Disconnect(connID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.writeLoop(ctx, ws, sessionSink)
	s.readLoop(ctx, ws, connID)
}

// writeLoop ships pipeline events to the client until the connection dies.
func (s *Server) writeLoop(ctx context.Context, ws *websocket.Conn, sessionSink *sink.SessionSink) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sessionSink.Events:
			payload, err := json.Marshal(toFrame(evt))
			if err != nil {
				s.log.Error("Frame encoding failed", "event", evt.Name(), "error", err)
				continue
			}
			if err = ws.Write(ctx, websocket.MessageText, payload); err != nil {
				s.log.Debug("WebSocket write failed", "error", err)
				return
			}
		}
	}
}

func toFrame(evt event.DomainEvent) frame {
	switch e := evt.(type) {
	case event.HistoryBatch:
		// History rides as a bare array, one entry per message
		data, _ := json.Marshal(e.Items)
		return frame{Event: e.Name(), Data: data}
	default:
		data, _ := json.Marshal(evt)
		return frame{Event: evt.Name(), Data: data}
	}
}

// readLoop processes inbound frames in arrival order for this connection.
func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, connID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.log.Debug("WebSocket read failed", "conn_id", connID, "error", err)
			}
			return
		}

		var f frame
		if err = json.Unmarshal(data, &f); err != nil {
			s.log.Debug("Unreadable frame, ignoring", "conn_id", connID, "error", err)
			continue
		}

		switch f.Event {
		case "join":
			s.handleJoin(ctx, ws, connID, f.Data)
		case "send":
			s.handleSend(connID, f.Data)
		default:
			s.log.Debug("Unknown event, ignoring", "event", f.Event)
		}
	}
}

func (s *Server) handleJoin(ctx context.Context, ws *websocket.Conn, connID string, data json.RawMessage) {
	var payload joinPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.log.Debug("Bad join payload", "conn_id", connID, "error", err)
		return
	}
	if payload.Lang == "" {
		payload.Lang = domain.DefaultLang
	}
	if err := s.relay.Join(ctx, connID, payload.Name, payload.Lang); err != nil {
		s.log.Info("Join rejected", "conn_id", connID, "error", err)
		s.writeError(ctx, ws, err.Error())
	}
}

// handleSend attributes the message to the bound session name, never to the
// client-supplied user field, and silently drops frames from connections
// that have not joined.
func (s *Server) handleSend(connID string, data json.RawMessage) {
	var payload sendPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.log.Debug("Bad send payload", "conn_id", connID, "error", err)
		return
	}
	live, ok := s.relay.LiveSession(connID)
	if !ok {
		s.log.Debug("Dropping message", "conn_id", connID, "error", relayerrors.ErrNotJoined)
		return
	}
	s.relay.Dispatch(domain.PostMessageCommand{
		ConnID:    connID,
		Author:    live.Session.DisplayName,
		Body:      payload.Msg,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Server) writeError(ctx context.Context, ws *websocket.Conn, msg string) {
	data, _ := json.Marshal(errorPayload{Msg: msg})
	payload, _ := json.Marshal(frame{Event: "error", Data: data})
	if err := ws.Write(ctx, websocket.MessageText, payload); err != nil {
		s.log.Debug("Error frame write failed", "error", err)
	}
}
