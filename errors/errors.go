package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	// Join validation
	ErrEmptyName     = fmt.Errorf("display name is empty")
	ErrNameTooLong   = fmt.Errorf("display name exceeds 30 characters")
	ErrReservedName  = fmt.Errorf("display name is reserved")
	ErrAlreadyJoined = fmt.Errorf("session already joined")

	// Relay
	ErrNotJoined      = fmt.Errorf("session has not joined")
	ErrUnknownSession = fmt.Errorf("unknown session")
)
