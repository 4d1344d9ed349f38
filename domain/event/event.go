package event

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is anything the relay pushes through the pipeline.
// Name is the wire event under which a sink delivers it.
type DomainEvent interface {
	Name() string
}

// MessagePosted is a persisted canonical message entering fan-out.
type MessagePosted struct {
	ID         uuid.UUID
	Author     string
	Body       string
	SourceLang string
	At         time.Time
}

func (m MessagePosted) Name() string {
	return "message"
}

// ChatDelivery is one recipient's rendering of a message:
// Msg in the recipient's language, OriginalMsg always canonical.
type ChatDelivery struct {
	User        string `json:"user"`
	Msg         string `json:"msg"`
	OriginalMsg string `json:"originalMsg,omitempty"`
}

func (d ChatDelivery) Name() string {
	return "message"
}

// HistoryBatch is the chronological replay sent once to a joining session.
type HistoryBatch struct {
	Items []ChatDelivery `json:"items"`
}

func (h HistoryBatch) Name() string {
	return "history"
}

// SystemNotice announces joins and leaves under the reserved system label.
type SystemNotice struct {
	User string `json:"user"`
	Msg  string `json:"msg"`
}

func (n SystemNotice) Name() string {
	return "message"
}
