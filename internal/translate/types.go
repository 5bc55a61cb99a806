package translate

import (
	"context"
	"errors"
)

// ErrTranslationFailed is the single error surfaced for any transport
// fault or malformed response from the remote translator. The
// orchestrator does not attempt partial recovery from a bad payload.
var ErrTranslationFailed = errors.New("translation failed")

// Result is the remote translator's answer. TranscribedText is only
// populated for audio input.
type Result struct {
	DetectedLanguage string
	TranslatedText   string
	TranscribedText  string
}

// Client is the transcription/translation service boundary.
type Client interface {
	// Translate translates text, detecting the source language when
	// sourceHint is "auto". When the hint names an explicit language
	// the response's detected-language field echoes its display name.
	Translate(ctx context.Context, text, sourceHint, targetCode string) (Result, error)

	// TranscribeAndTranslate transcribes the audio payload and
	// translates the transcript in one round trip.
	TranscribeAndTranslate(ctx context.Context, audio []byte, mimeType, sourceHint, targetCode string) (Result, error)
}
