package playback

import (
	"context"
	"fmt"

	"github.com/parlolabs/parlo-core/internal/config"
)

// Request describes one utterance to synthesize and play.
type Request struct {
	Text     string
	Language string
	VoiceID  string
}

// Speaker is the synthesis/playback boundary. Speak returns a channel
// that yields exactly one value: nil on completed playback, an error
// otherwise. Cancel interrupts the utterance currently playing, if
// any; unlike the remote translator, playback is truly cancellable.
type Speaker interface {
	Speak(ctx context.Context, req Request) <-chan error
	Cancel()
}

// NewSpeaker builds the configured playback backend.
func NewSpeaker(cfg config.PlaybackConfig) (Speaker, error) {
	if !cfg.Enabled {
		return NewNopSpeaker(), nil
	}
	switch cfg.Mode {
	case "mock":
		return NewMockSpeaker(), nil
	case "exec":
		return NewExecSpeaker(cfg.Command)
	default:
		return nil, fmt.Errorf("unknown playback mode %q", cfg.Mode)
	}
}

type nopSpeaker struct{}

// NewNopSpeaker completes every utterance immediately. Used when
// playback is disabled.
func NewNopSpeaker() Speaker {
	return nopSpeaker{}
}

func (nopSpeaker) Speak(context.Context, Request) <-chan error {
	done := make(chan error, 1)
	done <- nil
	return done
}

func (nopSpeaker) Cancel() {}
