package domain

import (
	"time"
)

type Command interface {
	Conn() string
}

// PostMessageCommand carries one inbound chat message from a joined session.
type PostMessageCommand struct {
	ConnID    string
	Author    string
	Body      string
	CreatedAt time.Time
}

func (p PostMessageCommand) Conn() string {
	return p.ConnID
}
