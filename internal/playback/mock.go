package playback

import (
	"context"
	"sync"
)

// MockSpeaker records utterances and lets tests resolve them manually.
type MockSpeaker struct {
	mu       sync.Mutex
	current  chan error
	Spoken   []Request
	Cancels  int
	AutoDone bool
	Fail     error
}

func NewMockSpeaker() *MockSpeaker {
	return &MockSpeaker{AutoDone: true}
}

func (m *MockSpeaker) Speak(_ context.Context, req Request) <-chan error {
	m.mu.Lock()
	defer m.mu.Unlock()
	done := make(chan error, 1)
	m.Spoken = append(m.Spoken, req)
	if m.AutoDone {
		done <- m.Fail
	} else {
		m.current = done
	}
	return done
}

// Finish resolves the pending utterance with the given error.
func (m *MockSpeaker) Finish(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current <- err
		m.current = nil
	}
}

func (m *MockSpeaker) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cancels++
}
