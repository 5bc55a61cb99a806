package session

import "github.com/parlolabs/parlo-core/internal/voice"

// State is the session's position in the capture→translate→speak
// pipeline. Error is transitive: it is entered, surfaced to observers,
// and immediately left for Idle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
	StateSpeaking
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable copy of the session record, handed to
// observers after every accepted transition.
type Snapshot struct {
	RequestID        string
	State            State
	SourceLanguage   string
	TargetLanguage   string
	Preference       voice.Preference
	OriginalText     string
	TranslatedText   string
	DetectedLanguage string
	LastError        *Error
}
