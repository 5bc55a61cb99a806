package protocol

import "time"

// Command is a session command received from a UI over the bus.
type Command struct {
	Name           string `json:"name"`
	SourceLanguage string `json:"source_language,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
	Preference     string `json:"preference,omitempty"`
	AudioBase64    string `json:"audio_base64,omitempty"`
	MIMEType       string `json:"mime_type,omitempty"`
}

// Command names accepted on SubjectSessionCommand.
const (
	CmdStartCapture  = "start_capture"
	CmdStopCapture   = "stop_capture"
	CmdSubmitFile    = "submit_file"
	CmdReplay        = "replay"
	CmdSwapLanguages = "swap_languages"
	CmdSetLanguages  = "set_languages"
	CmdSetPreference = "set_preference"
)

// StateUpdate is broadcast after every accepted session transition.
type StateUpdate struct {
	RequestID        string    `json:"request_id,omitempty"`
	State            string    `json:"state"`
	SourceLanguage   string    `json:"source_language"`
	TargetLanguage   string    `json:"target_language"`
	Preference       string    `json:"preference"`
	OriginalText     string    `json:"original_text,omitempty"`
	TranslatedText   string    `json:"translated_text,omitempty"`
	DetectedLanguage string    `json:"detected_language,omitempty"`
	Error            string    `json:"error,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// ErrorNotice carries a localized, user-facing failure message.
type ErrorNotice struct {
	RequestID string    `json:"request_id,omitempty"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Voice describes one synthesis voice offered by a playback engine.
type Voice struct {
	ID   string `json:"id"`
	Lang string `json:"lang"`
	Name string `json:"name"`
}

// VoiceSnapshot replaces the known synthesis voice set. The playback
// engine publishes a fresh snapshot whenever its voice list changes.
type VoiceSnapshot struct {
	Voices    []Voice   `json:"voices"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectSessionCommand = "session.command"
	SubjectSessionState   = "session.state"
	SubjectSessionError   = "session.error"
	SubjectVoiceSnapshot  = "voice.snapshot"
)
