package domain

import (
	"context"
)

// Transport is one established duplex connection carrying text frames.
type Transport interface {
	ReadFrame() (string, error)
	WriteFrame(frame string) error
	Close() error
}

// Dialer opens a Transport to the server.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// Connection is the lifecycle surface of the connection manager as seen by
// the services.
type Connection interface {
	Connect(ctx context.Context) error
	Send(frame string) error
	Close() error
	State() ConnState
	SetFrameSink(sink func(frame string))
	SetStateSink(sink func(state ConnState))
}

// CommandSender encodes and sends a typed command. Implemented by the intent
// dispatcher; consumed by the authenticator and refresher for bootstrap and
// follow-up fetches.
type CommandSender interface {
	SendCommand(cmd ClientCommand) error
}

// Notifier publishes a user-visible notification into the single-slot
// notification channel.
type Notifier interface {
	Publish(message string, severity Severity)
}

// SessionSource exposes the current session, if any.
type SessionSource interface {
	Session() (Session, bool)
}
