package capture

import (
	"context"
	"sync"
)

// MockRecorder delivers a scripted outcome when stopped. Used in mock
// mode and throughout the orchestrator tests.
type MockRecorder struct {
	result Result
	err    error

	mu      sync.Mutex
	outcome chan Outcome
	stopped bool
}

func NewMockRecorder(result Result, err error) *MockRecorder {
	return &MockRecorder{result: result, err: err}
}

func (m *MockRecorder) Start(ctx context.Context, _ string) (<-chan Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcome = make(chan Outcome, 1)
	m.stopped = false
	return m.outcome, nil
}

// Stop delivers the scripted outcome, mimicking a recognizer that
// finalizes its transcript on stop.
func (m *MockRecorder) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcome == nil || m.stopped {
		return
	}
	m.stopped = true
	m.outcome <- Outcome{Result: m.result, Err: m.err}
}

// Fail delivers a capture failure without waiting for Stop, mimicking
// a device error mid-recording.
func (m *MockRecorder) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcome == nil || m.stopped {
		return
	}
	m.stopped = true
	m.outcome <- Outcome{Err: err}
}

// SetResult changes the scripted outcome for the next session.
func (m *MockRecorder) SetResult(result Result, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = result
	m.err = err
}
