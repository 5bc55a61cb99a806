package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/parlolabs/parlo-core/internal/capture"
	"github.com/parlolabs/parlo-core/internal/config"
	"github.com/parlolabs/parlo-core/internal/language"
	"github.com/parlolabs/parlo-core/internal/playback"
	"github.com/parlolabs/parlo-core/internal/translate"
	"github.com/parlolabs/parlo-core/internal/voice"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stubClient hands out one reply channel per call so tests control
// exactly when each remote round trip resolves.
type stubClient struct {
	mu         sync.Mutex
	textCalls  int
	audioCalls int
	calls      chan chan translate.Result
	res        translate.Result
	err        error
}

func newStubClient(res translate.Result, err error) *stubClient {
	return &stubClient{res: res, err: err}
}

func (s *stubClient) blocking() *stubClient {
	s.calls = make(chan chan translate.Result, 8)
	return s
}

func (s *stubClient) Translate(ctx context.Context, text, sourceHint, targetCode string) (translate.Result, error) {
	s.mu.Lock()
	s.textCalls++
	calls := s.calls
	s.mu.Unlock()
	if calls != nil {
		reply := make(chan translate.Result, 1)
		calls <- reply
		select {
		case res := <-reply:
			return res, nil
		case <-ctx.Done():
			return translate.Result{}, ctx.Err()
		}
	}
	return s.res, s.err
}

func (s *stubClient) TranscribeAndTranslate(ctx context.Context, audio []byte, mimeType, sourceHint, targetCode string) (translate.Result, error) {
	s.mu.Lock()
	s.audioCalls++
	s.mu.Unlock()
	return s.res, s.err
}

func (s *stubClient) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textCalls, s.audioCalls
}

type fixture struct {
	orch     *Orchestrator
	recorder *capture.MockRecorder
	speaker  *playback.MockSpeaker
	client   *stubClient
	updates  chan Snapshot
}

func newFixture(t *testing.T, cfg config.SessionConfig, client *stubClient, recorder capture.Recorder) *fixture {
	t.Helper()
	f := &fixture{
		speaker: playback.NewMockSpeaker(),
		client:  client,
		updates: make(chan Snapshot, 256),
	}
	if recorder == nil {
		f.recorder = capture.NewMockRecorder(capture.Result{Transcript: "hola"}, nil)
		recorder = f.recorder
	} else if mock, ok := recorder.(*capture.MockRecorder); ok {
		f.recorder = mock
	}
	f.orch = New(context.Background(), Options{
		Config:   cfg,
		Catalog:  language.Default(),
		Recorder: recorder,
		Client:   client,
		Speaker:  f.speaker,
		Voices: func() []voice.Voice {
			return []voice.Voice{{ID: "es-1", Lang: "es-ES", Name: "Monica"}}
		},
		Notify: func(s Snapshot) { f.updates <- s },
		Logger: newLogger(),
	})
	t.Cleanup(f.orch.Close)
	return f
}

func testConfig() config.SessionConfig {
	return config.SessionConfig{
		SourceLanguage:  "auto",
		TargetLanguage:  "en-US",
		DefaultLanguage: "en-US",
		VoicePreference: "auto",
		MaxUploadBytes:  1024,
	}
}

func (f *fixture) waitState(t *testing.T, want State) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-f.updates:
			if snap.State == want {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %v", want)
		}
	}
}

func TestTextHappyPath(t *testing.T) {
	client := newStubClient(translate.Result{DetectedLanguage: "Spanish", TranslatedText: "hello"}, nil)
	f := newFixture(t, testConfig(), client, nil)

	if err := f.orch.StartCapture(); err != nil {
		t.Fatalf("start capture: %v", err)
	}
	f.waitState(t, StateRecording)
	if err := f.orch.StopCapture(); err != nil {
		t.Fatalf("stop capture: %v", err)
	}

	f.waitState(t, StateSpeaking)
	snap := f.waitState(t, StateIdle)

	if snap.OriginalText != "hola" {
		t.Fatalf("expected original %q, got %q", "hola", snap.OriginalText)
	}
	if snap.TranslatedText != "hello" {
		t.Fatalf("expected translation %q, got %q", "hello", snap.TranslatedText)
	}
	if snap.DetectedLanguage != "Spanish" {
		t.Fatalf("expected detected language Spanish, got %q", snap.DetectedLanguage)
	}
	if len(f.speaker.Spoken) != 1 || f.speaker.Spoken[0].Text != "hello" {
		t.Fatalf("expected one spoken utterance, got %+v", f.speaker.Spoken)
	}
}

func TestReplaySpeaksWithoutRemoteCall(t *testing.T) {
	client := newStubClient(translate.Result{DetectedLanguage: "Spanish", TranslatedText: "hello"}, nil)
	f := newFixture(t, testConfig(), client, nil)

	if err := f.orch.StartCapture(); err != nil {
		t.Fatalf("start capture: %v", err)
	}
	f.waitState(t, StateRecording)
	if err := f.orch.StopCapture(); err != nil {
		t.Fatalf("stop capture: %v", err)
	}
	f.waitState(t, StateIdle)
	textCalls, _ := client.counts()

	if err := f.orch.Replay(); err != nil {
		t.Fatalf("replay: %v", err)
	}
	f.waitState(t, StateSpeaking)
	f.waitState(t, StateIdle)

	if after, _ := client.counts(); after != textCalls {
		t.Fatalf("replay must not call the remote client: %d -> %d", textCalls, after)
	}
	if len(f.speaker.Spoken) != 2 {
		t.Fatalf("expected two utterances, got %d", len(f.speaker.Spoken))
	}
}

func TestReplayRejectedWithoutTranslation(t *testing.T) {
	client := newStubClient(translate.Result{}, nil)
	f := newFixture(t, testConfig(), client, nil)

	if err := f.orch.Replay(); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if len(f.speaker.Spoken) != 0 {
		t.Fatal("nothing should have been spoken")
	}
}

func TestCaptureErrorSurfacesAndReturnsToIdle(t *testing.T) {
	client := newStubClient(translate.Result{}, nil)
	f := newFixture(t, testConfig(), client, nil)

	if err := f.orch.StartCapture(); err != nil {
		t.Fatalf("start capture: %v", err)
	}
	f.waitState(t, StateRecording)
	f.recorder.Fail(errors.New("permission denied"))

	f.waitState(t, StateError)
	snap := f.waitState(t, StateIdle)

	if snap.LastError == nil || snap.LastError.Kind != KindCapture {
		t.Fatalf("expected capture error, got %+v", snap.LastError)
	}
	if snap.OriginalText != "" {
		t.Fatalf("original text must stay empty, got %q", snap.OriginalText)
	}
}

func TestCommandsRejectedOutsideAcceptingState(t *testing.T) {
	client := newStubClient(translate.Result{DetectedLanguage: "Spanish", TranslatedText: "hello"}, nil)
	f := newFixture(t, testConfig(), client, nil)

	if err := f.orch.StopCapture(); !errors.Is(err, ErrRejected) {
		t.Fatalf("stop while idle should be rejected, got %v", err)
	}

	if err := f.orch.StartCapture(); err != nil {
		t.Fatalf("start capture: %v", err)
	}
	f.waitState(t, StateRecording)

	if err := f.orch.StartCapture(); !errors.Is(err, ErrRejected) {
		t.Fatalf("second start must be a no-op, got %v", err)
	}
	if err := f.orch.SubmitFile([]byte("x"), "audio/wav"); !errors.Is(err, ErrRejected) {
		t.Fatalf("upload while recording must be a no-op, got %v", err)
	}
	if err := f.orch.Replay(); !errors.Is(err, ErrRejected) {
		t.Fatalf("replay while recording must be a no-op, got %v", err)
	}
	if snap := f.orch.Snapshot(); snap.State != StateRecording {
		t.Fatalf("state changed by rejected commands: %v", snap.State)
	}
}

func TestStaleResultFenced(t *testing.T) {
	client := newStubClient(translate.Result{}, nil).blocking()
	cfg := testConfig()
	cfg.ProcessingTimeoutMS = 500
	f := newFixture(t, cfg, client, nil)

	// Generation N: capture resolves to a transcript, remote call
	// blocks until we release it.
	if err := f.orch.StartCapture(); err != nil {
		t.Fatalf("start capture: %v", err)
	}
	f.waitState(t, StateRecording)
	if err := f.orch.StopCapture(); err != nil {
		t.Fatalf("stop capture: %v", err)
	}
	genN := <-client.calls

	// The processing timeout forces Error then Idle while N's call is
	// still outstanding.
	f.waitState(t, StateError)
	f.waitState(t, StateIdle)

	// Generation N+1 starts a fresh capture.
	f.recorder.SetResult(capture.Result{Transcript: "bonjour"}, nil)
	if err := f.orch.StartCapture(); err != nil {
		t.Fatalf("start second capture: %v", err)
	}
	f.waitState(t, StateRecording)
	if err := f.orch.StopCapture(); err != nil {
		t.Fatalf("stop second capture: %v", err)
	}
	genN1 := <-client.calls

	// N's late result must be inert.
	genN <- translate.Result{DetectedLanguage: "Spanish", TranslatedText: "STALE"}
	time.Sleep(50 * time.Millisecond)

	snap := f.orch.Snapshot()
	if snap.State != StateProcessing {
		t.Fatalf("stale result changed state to %v", snap.State)
	}
	if snap.OriginalText != "bonjour" || snap.TranslatedText != "" {
		t.Fatalf("stale result leaked into session: %+v", snap)
	}
	if len(f.speaker.Spoken) != 0 {
		t.Fatal("stale result must not trigger playback")
	}

	// N+1 completes normally.
	genN1 <- translate.Result{DetectedLanguage: "French", TranslatedText: "hello"}
	f.waitState(t, StateSpeaking)
	snap = f.waitState(t, StateIdle)
	if snap.TranslatedText != "hello" || snap.DetectedLanguage != "French" {
		t.Fatalf("unexpected final session: %+v", snap)
	}
}

func TestSwapGuard(t *testing.T) {
	client := newStubClient(translate.Result{}, nil)
	f := newFixture(t, testConfig(), client, nil)

	if err := f.orch.SwapLanguages(); !errors.Is(err, ErrRejected) {
		t.Fatalf("swap with auto source must be rejected, got %v", err)
	}
	snap := f.orch.Snapshot()
	if snap.SourceLanguage != "auto" || snap.TargetLanguage != "en-US" {
		t.Fatalf("languages changed by guarded swap: %+v", snap)
	}

	if err := f.orch.SetLanguages("es-ES", "en-US"); err != nil {
		t.Fatalf("set languages: %v", err)
	}
	if err := f.orch.SwapLanguages(); err != nil {
		t.Fatalf("swap: %v", err)
	}
	snap = f.orch.Snapshot()
	if snap.SourceLanguage != "en-US" || snap.TargetLanguage != "es-ES" {
		t.Fatalf("expected swapped pair, got %+v", snap)
	}
}

func TestSubmitFileSizePolicy(t *testing.T) {
	client := newStubClient(translate.Result{TranscribedText: "hola", DetectedLanguage: "Spanish", TranslatedText: "hello"}, nil)
	cfg := testConfig()
	cfg.MaxUploadBytes = 16
	f := newFixture(t, cfg, client, nil)

	// One byte over the limit: rejected before any remote call.
	err := f.orch.SubmitFile(make([]byte, 17), "audio/wav")
	var serr *Error
	if !errors.As(err, &serr) || serr.Kind != KindPayloadTooLarge {
		t.Fatalf("expected payload-too-large, got %v", err)
	}
	if _, audioCalls := client.counts(); audioCalls != 0 {
		t.Fatal("oversize upload must not reach the remote client")
	}
	f.waitState(t, StateIdle)

	// Exactly the limit: accepted.
	if err := f.orch.SubmitFile(make([]byte, 16), "audio/wav"); err != nil {
		t.Fatalf("upload at limit: %v", err)
	}
	snap := f.waitState(t, StateIdle)
	if snap.OriginalText != "hola" || snap.TranslatedText != "hello" {
		t.Fatalf("unexpected session after upload: %+v", snap)
	}
	if _, audioCalls := client.counts(); audioCalls != 1 {
		t.Fatal("expected exactly one remote call")
	}
}

func TestUnsupportedEnvironmentDisablesCaptureOnly(t *testing.T) {
	client := newStubClient(translate.Result{TranscribedText: "hola", DetectedLanguage: "Spanish", TranslatedText: "hello"}, nil)
	f := &fixture{
		speaker: playback.NewMockSpeaker(),
		client:  client,
		updates: make(chan Snapshot, 256),
	}
	f.orch = New(context.Background(), Options{
		Config:  testConfig(),
		Catalog: language.Default(),
		Client:  client,
		Speaker: f.speaker,
		Notify:  func(s Snapshot) { f.updates <- s },
		Logger:  newLogger(),
	})
	t.Cleanup(f.orch.Close)

	err := f.orch.StartCapture()
	var serr *Error
	if !errors.As(err, &serr) || serr.Kind != KindUnsupported {
		t.Fatalf("expected unsupported-environment error, got %v", err)
	}
	f.waitState(t, StateIdle)

	if err := f.orch.SubmitFile([]byte("clip"), "audio/wav"); err != nil {
		t.Fatalf("upload should still work: %v", err)
	}
	snap := f.waitState(t, StateIdle)
	if snap.TranslatedText != "hello" {
		t.Fatalf("unexpected session after upload: %+v", snap)
	}
}

func TestNilSpeakerDegradesToNoopPlayback(t *testing.T) {
	client := newStubClient(translate.Result{TranscribedText: "hola", DetectedLanguage: "Spanish", TranslatedText: "hello"}, nil)
	updates := make(chan Snapshot, 256)
	orch := New(context.Background(), Options{
		Config:  testConfig(),
		Catalog: language.Default(),
		Client:  client,
		Notify:  func(s Snapshot) { updates <- s },
		Logger:  newLogger(),
	})
	t.Cleanup(orch.Close)

	if err := orch.SubmitFile([]byte("clip"), "audio/wav"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-updates:
			if snap.State == StateIdle && snap.TranslatedText == "hello" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for completed translation")
		}
	}
}

func TestPlaybackErrorSurfaced(t *testing.T) {
	client := newStubClient(translate.Result{DetectedLanguage: "Spanish", TranslatedText: "hello"}, nil)
	f := newFixture(t, testConfig(), client, nil)
	f.speaker.Fail = errors.New("synthesis engine unavailable")

	if err := f.orch.StartCapture(); err != nil {
		t.Fatalf("start capture: %v", err)
	}
	f.waitState(t, StateRecording)
	if err := f.orch.StopCapture(); err != nil {
		t.Fatalf("stop capture: %v", err)
	}
	f.waitState(t, StateError)
	snap := f.waitState(t, StateIdle)
	if snap.LastError == nil || snap.LastError.Kind != KindPlayback {
		t.Fatalf("expected playback error, got %+v", snap.LastError)
	}
}

func TestVoicePreferenceAppliedPerPlayback(t *testing.T) {
	client := newStubClient(translate.Result{DetectedLanguage: "English", TranslatedText: "hola"}, nil)
	cfg := testConfig()
	cfg.TargetLanguage = "es-ES"
	f := newFixture(t, cfg, client, nil)

	if err := f.orch.SetVoicePreference(voice.PreferFemale); err != nil {
		t.Fatalf("set preference: %v", err)
	}
	if err := f.orch.StartCapture(); err != nil {
		t.Fatalf("start capture: %v", err)
	}
	f.waitState(t, StateRecording)
	if err := f.orch.StopCapture(); err != nil {
		t.Fatalf("stop capture: %v", err)
	}
	f.waitState(t, StateIdle)

	if len(f.speaker.Spoken) != 1 || f.speaker.Spoken[0].VoiceID != "es-1" {
		t.Fatalf("unexpected voice selection: %+v", f.speaker.Spoken)
	}
}
