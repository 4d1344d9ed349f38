package domain

// SessionState follows the connection lifecycle:
// AwaitingJoin -> Active -> Closed (terminal).
type SessionState int

const (
	AwaitingJoin SessionState = iota
	Active
	Closed
)

// DefaultLang is assigned to a session until the join handshake binds one.
const DefaultLang = "ko"

// Session tracks one live connection. DisplayName and Lang are bound
// once at join and must not be rewritten afterwards: fan-out goroutines
// read them without synchronization.
type Session struct {
	ConnID      string
	DisplayName string
	Lang        string
	State       SessionState
}

// Joined reports whether the session completed the join handshake.
func (s *Session) Joined() bool {
	return s.State == Active
}
