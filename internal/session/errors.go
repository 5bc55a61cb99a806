package session

import (
	"errors"
	"fmt"
)

// ErrorKind classifies session failures for the UI layer. Every kind
// follows the same propagation path: the session enters Error, the
// failure is surfaced, and the session returns to Idle ready for the
// next command. Nothing is retried automatically.
type ErrorKind string

const (
	KindCapture         ErrorKind = "capture"
	KindPayloadTooLarge ErrorKind = "payload_too_large"
	KindRemoteCall      ErrorKind = "remote_call"
	KindPlayback        ErrorKind = "playback"
	KindUnsupported     ErrorKind = "unsupported_environment"
)

// Error is a session failure with its taxonomy kind.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Message: err.Error()}
}

// ErrRejected is returned for commands issued outside their accepting
// state. Rejection is a no-op: session state is left untouched.
var ErrRejected = errors.New("command rejected in current state")

// ErrClosed is returned once the orchestrator has shut down.
var ErrClosed = errors.New("orchestrator closed")
