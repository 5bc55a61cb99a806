package playback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
)

type execSpeaker struct {
	cmd []string

	mu     sync.Mutex
	cancel context.CancelFunc
}

type execUtterance struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Voice    string `json:"voice,omitempty"`
}

// NewExecSpeaker builds a Speaker that pipes one JSON utterance to an
// external synthesis command and treats process exit as playback done.
func NewExecSpeaker(command string) (Speaker, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse playback command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("playback command is empty")
	}
	return &execSpeaker{cmd: args}, nil
}

func (e *execSpeaker) Speak(ctx context.Context, req Request) <-chan error {
	done := make(chan error, 1)

	payload, err := json.Marshal(execUtterance{Text: req.Text, Language: req.Language, Voice: req.VoiceID})
	if err != nil {
		done <- fmt.Errorf("marshal utterance: %w", err)
		return done
	}

	// New utterance supersedes whatever is still playing.
	e.Cancel()

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	base := e.cmd[0]
	args := append([]string{}, e.cmd[1:]...)
	cmd := exec.CommandContext(runCtx, base, args...)
	cmd.Stdin = bytes.NewReader(append(payload, '\n'))

	go func() {
		defer func() {
			e.mu.Lock()
			if e.cancel != nil {
				e.cancel()
				e.cancel = nil
			}
			e.mu.Unlock()
		}()
		if err := cmd.Run(); err != nil {
			if runCtx.Err() != nil {
				done <- runCtx.Err()
				return
			}
			done <- fmt.Errorf("playback command failed: %w", err)
			return
		}
		done <- nil
	}()
	return done
}

func (e *execSpeaker) Cancel() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
