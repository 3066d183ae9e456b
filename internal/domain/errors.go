package domain

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when a send is attempted and the connection is
// not Open. Intents are never queued for later delivery.
var ErrNotConnected = errors.New("connection is not open")

// ErrHandshakePending is returned when a login is attempted while a prior
// handshake is still awaiting its reply.
var ErrHandshakePending = errors.New("login handshake already in flight")

// ErrAlreadyAuthenticated is returned when a login is attempted while a
// session is already established.
var ErrAlreadyAuthenticated = errors.New("session already established")

// ValidationError is a local intent pre-check failure. No frame is sent.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}
