package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/parlolabs/parlo-core/internal/config"
)

// ErrUnsupported indicates no capture backend is available in this
// environment. Detected once at startup; capture commands stay
// disabled for the process lifetime while uploads keep working.
var ErrUnsupported = errors.New("audio capture unavailable")

// Result is the terminal product of one capture session: either a
// final transcript or a recorded audio blob, never both.
type Result struct {
	Transcript string
	Audio      []byte
	MIMEType   string
}

// Outcome is the single terminal signal per Start invocation.
type Outcome struct {
	Result Result
	Err    error
}

// Recorder is the microphone boundary. Start begins a capture session
// and returns a channel that yields exactly one Outcome, whether the
// session ends by Stop, by natural end (silence, process exit), or by
// failure. Stop is idempotent and safe to call after the outcome.
type Recorder interface {
	Start(ctx context.Context, languageHint string) (<-chan Outcome, error)
	Stop()
}

// NewRecorder builds the configured capture backend. Returns
// ErrUnsupported when capture is disabled.
func NewRecorder(cfg config.CaptureConfig) (Recorder, error) {
	if !cfg.Enabled {
		return nil, ErrUnsupported
	}
	switch cfg.Mode {
	case "mock":
		return NewMockRecorder(Result{Transcript: "hello"}, nil), nil
	case "exec":
		return NewExecRecorder(cfg)
	default:
		return nil, fmt.Errorf("unknown capture mode %q", cfg.Mode)
	}
}
