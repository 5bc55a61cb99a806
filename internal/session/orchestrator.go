package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/parlolabs/parlo-core/internal/capture"
	"github.com/parlolabs/parlo-core/internal/config"
	"github.com/parlolabs/parlo-core/internal/language"
	"github.com/parlolabs/parlo-core/internal/playback"
	"github.com/parlolabs/parlo-core/internal/translate"
	"github.com/parlolabs/parlo-core/internal/voice"
)

// Orchestrator owns the single live translation session. All session
// state lives on one event loop goroutine: command methods and
// collaborator completions are serialized onto it, so completions are
// applied in arrival order and no locking is needed around the record.
//
// Asynchronous results are fenced by a generation token. StartCapture,
// SubmitFile, and Replay each bump the generation; a completion whose
// token no longer matches is inert: it may not touch state, texts, or
// trigger playback. The fence stands in for true cancellation, which
// neither the capture primitive nor the remote client offers. Playback
// is the exception: it is cancelled outright before a new utterance
// starts or the session leaves Speaking.
type Orchestrator struct {
	cfg      config.SessionConfig
	log      *slog.Logger
	catalog  *language.Catalog
	recorder capture.Recorder
	client   translate.Client
	speaker  playback.Speaker
	voices   func() []voice.Voice
	notify   func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc
	events chan func()
	closed chan struct{}

	// Owned by the event loop.
	sess        Snapshot
	generation  uint64
	unsupported bool

	meter        metric.Meter
	started      metric.Int64Counter
	errorsTotal  metric.Int64Counter
	staleDropped metric.Int64Counter
}

// Options carries the orchestrator's collaborators. Recorder may be
// nil when the environment offers no capture primitive; capture
// commands are then rejected with KindUnsupported while uploads keep
// working. A nil Speaker degrades to no-op playback.
type Options struct {
	Config   config.SessionConfig
	Catalog  *language.Catalog
	Recorder capture.Recorder
	Client   translate.Client
	Speaker  playback.Speaker
	Voices   func() []voice.Voice
	Notify   func(Snapshot)
	Logger   *slog.Logger
}

func New(parent context.Context, opts Options) *Orchestrator {
	ctx, cancel := context.WithCancel(parent)
	o := &Orchestrator{
		cfg:      opts.Config,
		log:      opts.Logger.With(slog.String("component", "session")),
		catalog:  opts.Catalog,
		recorder: opts.Recorder,
		client:   opts.Client,
		speaker:  opts.Speaker,
		voices:   opts.Voices,
		notify:   opts.Notify,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan func(), 64),
		closed:   make(chan struct{}),
		meter:    otel.Meter("github.com/parlolabs/parlo-core/session"),
		sess: Snapshot{
			State:          StateIdle,
			SourceLanguage: opts.Config.SourceLanguage,
			TargetLanguage: opts.Config.TargetLanguage,
			Preference:     voice.ParsePreference(opts.Config.VoicePreference),
		},
	}
	if o.voices == nil {
		o.voices = func() []voice.Voice { return nil }
	}
	if o.speaker == nil {
		o.speaker = playback.NewNopSpeaker()
	}
	if o.recorder == nil {
		o.unsupported = true
	}
	o.initMetrics()
	go o.loop()
	return o
}

func (o *Orchestrator) initMetrics() {
	var err error
	if o.started, err = o.meter.Int64Counter("parlo.session.requests",
		metric.WithDescription("Translation requests started")); err != nil {
		o.log.Warn("failed to create counter", slogError(err))
	}
	if o.errorsTotal, err = o.meter.Int64Counter("parlo.session.errors",
		metric.WithDescription("Session failures by kind")); err != nil {
		o.log.Warn("failed to create counter", slogError(err))
	}
	if o.staleDropped, err = o.meter.Int64Counter("parlo.session.stale_results",
		metric.WithDescription("Async results fenced by the generation token")); err != nil {
		o.log.Warn("failed to create counter", slogError(err))
	}
}

func (o *Orchestrator) loop() {
	defer close(o.closed)
	for {
		select {
		case fn := <-o.events:
			fn()
		case <-o.ctx.Done():
			return
		}
	}
}

// Close stops the event loop and cancels outstanding collaborator
// work.
func (o *Orchestrator) Close() {
	o.speaker.Cancel()
	o.cancel()
	<-o.closed
}

// do runs fn on the event loop and returns its verdict.
func (o *Orchestrator) do(fn func() error) error {
	res := make(chan error, 1)
	select {
	case o.events <- func() { res <- fn() }:
	case <-o.ctx.Done():
		return ErrClosed
	}
	select {
	case err := <-res:
		return err
	case <-o.ctx.Done():
		return ErrClosed
	}
}

// post schedules a completion on the event loop without waiting.
func (o *Orchestrator) post(fn func()) {
	select {
	case o.events <- fn:
	case <-o.ctx.Done():
	}
}

// Snapshot returns a copy of the current session record.
func (o *Orchestrator) Snapshot() Snapshot {
	res := make(chan Snapshot, 1)
	select {
	case o.events <- func() { res <- o.sess }:
	case <-o.ctx.Done():
		return Snapshot{}
	}
	select {
	case snap := <-res:
		return snap
	case <-o.ctx.Done():
		return Snapshot{}
	}
}

// SetNotify installs the observer hook after construction, for wiring
// components that themselves need the orchestrator.
func (o *Orchestrator) SetNotify(fn func(Snapshot)) {
	_ = o.do(func() error {
		o.notify = fn
		return nil
	})
}

// CaptureSupported reports whether a capture backend is present.
func (o *Orchestrator) CaptureSupported() bool {
	return !o.unsupported
}

func (o *Orchestrator) emit() {
	if o.notify != nil {
		o.notify(o.sess)
	}
}

// newGeneration invalidates all outstanding async work and stamps a
// fresh request id.
func (o *Orchestrator) newGeneration() uint64 {
	o.generation++
	o.sess.RequestID = uuid.NewString()
	return o.generation
}

func (o *Orchestrator) stale(gen uint64, what string) bool {
	if gen == o.generation {
		return false
	}
	if o.staleDropped != nil {
		o.staleDropped.Add(o.ctx, 1)
	}
	o.log.Debug("dropping stale result",
		slog.String("kind", what),
		slog.Uint64("generation", gen),
		slog.Uint64("current", o.generation))
	return true
}

// StartCapture begins a recording session. Accepted only in Idle.
func (o *Orchestrator) StartCapture() error {
	return o.do(o.startCapture)
}

func (o *Orchestrator) startCapture() error {
	if o.sess.State != StateIdle {
		return ErrRejected
	}
	if o.unsupported {
		return o.fail(KindUnsupported, capture.ErrUnsupported)
	}

	o.clearResults()
	gen := o.newGeneration()
	if o.started != nil {
		o.started.Add(o.ctx, 1, metric.WithAttributes(attribute.String("input", "capture")))
	}

	hint := o.sess.SourceLanguage
	if hint == language.Auto {
		hint = language.BestMatch(o.catalog, o.cfg.DefaultLanguage, "en-US")
	}

	outcome, err := o.recorder.Start(o.ctx, hint)
	if err != nil {
		return o.fail(KindCapture, err)
	}

	o.sess.State = StateRecording
	o.emit()

	go func() {
		out, ok := <-outcome
		if !ok {
			return
		}
		o.post(func() { o.onCaptureOutcome(gen, out) })
	}()
	return nil
}

// StopCapture ends the recording and moves to Processing. Accepted
// only while Recording.
func (o *Orchestrator) StopCapture() error {
	return o.do(func() error {
		if o.sess.State != StateRecording {
			return ErrRejected
		}
		o.sess.State = StateProcessing
		o.emit()
		o.armTimeout(o.generation, StateProcessing, o.cfg.ProcessingTimeoutMS)
		o.recorder.Stop()
		return nil
	})
}

func (o *Orchestrator) onCaptureOutcome(gen uint64, out capture.Outcome) {
	if o.stale(gen, "capture") {
		return
	}
	if out.Err != nil {
		_ = o.fail(KindCapture, out.Err)
		return
	}

	// Natural end of capture (silence timeout, device stop) is
	// treated exactly like an explicit stop.
	if o.sess.State == StateRecording {
		o.sess.State = StateProcessing
		o.emit()
		o.armTimeout(gen, StateProcessing, o.cfg.ProcessingTimeoutMS)
	}

	switch {
	case out.Result.Transcript != "":
		o.sess.OriginalText = out.Result.Transcript
		o.emit()
		o.translateText(gen, out.Result.Transcript)
	case len(out.Result.Audio) > 0:
		o.transcribeAudio(gen, out.Result.Audio, out.Result.MIMEType)
	default:
		// Nothing was said; quietly return to Idle.
		o.sess.State = StateIdle
		o.emit()
	}
}

// SubmitFile translates an uploaded audio clip. Accepted only in Idle;
// the size policy is enforced before any network call.
func (o *Orchestrator) SubmitFile(data []byte, mimeType string) error {
	return o.do(func() error { return o.submitFile(data, mimeType) })
}

func (o *Orchestrator) submitFile(data []byte, mimeType string) error {
	if o.sess.State != StateIdle {
		return ErrRejected
	}
	if int64(len(data)) > o.cfg.MaxUploadBytes {
		err := fmt.Errorf("upload of %d bytes exceeds limit of %d", len(data), o.cfg.MaxUploadBytes)
		return o.fail(KindPayloadTooLarge, err)
	}

	o.clearResults()
	gen := o.newGeneration()
	if o.started != nil {
		o.started.Add(o.ctx, 1, metric.WithAttributes(attribute.String("input", "upload")))
	}

	o.sess.State = StateProcessing
	o.emit()
	o.armTimeout(gen, StateProcessing, o.cfg.ProcessingTimeoutMS)
	o.transcribeAudio(gen, data, mimeType)
	return nil
}

func (o *Orchestrator) translateText(gen uint64, text string) {
	source := o.sess.SourceLanguage
	target := o.sess.TargetLanguage
	go func() {
		res, err := o.client.Translate(o.ctx, text, source, target)
		o.post(func() { o.onTranslation(gen, res, err, true) })
	}()
}

func (o *Orchestrator) transcribeAudio(gen uint64, audio []byte, mimeType string) {
	source := o.sess.SourceLanguage
	target := o.sess.TargetLanguage
	go func() {
		res, err := o.client.TranscribeAndTranslate(o.ctx, audio, mimeType, source, target)
		o.post(func() { o.onTranslation(gen, res, err, false) })
	}()
}

func (o *Orchestrator) onTranslation(gen uint64, res translate.Result, err error, localTranscript bool) {
	if o.stale(gen, "translation") {
		return
	}
	if o.sess.State != StateProcessing {
		return
	}
	if err != nil {
		_ = o.fail(KindRemoteCall, err)
		return
	}

	if !localTranscript {
		o.sess.OriginalText = res.TranscribedText
	}
	o.sess.DetectedLanguage = o.catalog.Reconcile(res.DetectedLanguage)
	o.sess.TranslatedText = res.TranslatedText

	if res.TranslatedText == "" {
		o.sess.State = StateIdle
		o.emit()
		return
	}
	o.speak(gen)
}

// speak starts playback of the session's translated text. The voice is
// chosen fresh on every call because the snapshot can change at any
// time.
func (o *Orchestrator) speak(gen uint64) {
	o.speaker.Cancel()

	var voiceID string
	if v, ok := voice.Select(o.sess.TargetLanguage, o.sess.Preference, o.voices()); ok {
		voiceID = v.ID
	}

	done := o.speaker.Speak(o.ctx, playback.Request{
		Text:     o.sess.TranslatedText,
		Language: o.sess.TargetLanguage,
		VoiceID:  voiceID,
	})

	o.sess.State = StateSpeaking
	o.emit()
	o.armTimeout(gen, StateSpeaking, o.cfg.SpeakingTimeoutMS)

	go func() {
		err := <-done
		o.post(func() { o.onPlayback(gen, err) })
	}()
}

func (o *Orchestrator) onPlayback(gen uint64, err error) {
	if o.stale(gen, "playback") {
		return
	}
	if o.sess.State != StateSpeaking {
		return
	}
	if err != nil {
		_ = o.fail(KindPlayback, err)
		return
	}
	o.sess.State = StateIdle
	o.emit()
}

// Replay speaks the existing translation again without a remote call.
// Accepted only in Idle with a non-empty translation.
func (o *Orchestrator) Replay() error {
	return o.do(func() error {
		if o.sess.State != StateIdle || o.sess.TranslatedText == "" {
			return ErrRejected
		}
		gen := o.newGeneration()
		o.speak(gen)
		return nil
	})
}

// SwapLanguages exchanges source and target atomically. Rejected while the
// source is "auto", since auto has no spoken counterpart to swap into.
func (o *Orchestrator) SwapLanguages() error {
	return o.do(func() error {
		if o.sess.State != StateIdle {
			return ErrRejected
		}
		if o.sess.SourceLanguage == language.Auto {
			return ErrRejected
		}
		o.sess.SourceLanguage, o.sess.TargetLanguage = o.sess.TargetLanguage, o.sess.SourceLanguage
		o.emit()
		return nil
	})
}

// SetLanguages replaces the language pair. Accepted only in Idle.
func (o *Orchestrator) SetLanguages(source, target string) error {
	return o.do(func() error {
		if o.sess.State != StateIdle {
			return ErrRejected
		}
		if source != language.Auto && !o.catalog.Contains(source) {
			return fmt.Errorf("unknown source language %q", source)
		}
		if !o.catalog.Contains(target) {
			return fmt.Errorf("unknown target language %q", target)
		}
		o.sess.SourceLanguage = source
		o.sess.TargetLanguage = target
		o.emit()
		return nil
	})
}

// SetVoicePreference changes the gender preference used by the next
// playback. Allowed in any state; in-flight playback is unaffected.
func (o *Orchestrator) SetVoicePreference(pref voice.Preference) error {
	return o.do(func() error {
		o.sess.Preference = pref
		o.emit()
		return nil
	})
}

// fail records the failure, surfaces the Error state, and returns the
// session to Idle so the user can retry. Runs on the event loop.
func (o *Orchestrator) fail(kind ErrorKind, err error) error {
	serr := newError(kind, err)
	o.sess.LastError = serr
	if o.errorsTotal != nil {
		o.errorsTotal.Add(o.ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
	}
	o.log.Warn("session error", slog.String("kind", string(kind)), slogError(err))

	if o.sess.State == StateSpeaking {
		o.speaker.Cancel()
	}
	o.sess.State = StateError
	o.emit()
	o.sess.State = StateIdle
	o.emit()
	return serr
}

// armTimeout forces an Error transition if the session is still in the
// given state for the same generation once the deadline passes.
func (o *Orchestrator) armTimeout(gen uint64, state State, timeoutMS int) {
	if timeoutMS <= 0 {
		return
	}
	time.AfterFunc(time.Duration(timeoutMS)*time.Millisecond, func() {
		o.post(func() {
			if o.stale(gen, "timeout") {
				return
			}
			if o.sess.State != state {
				return
			}
			kind := KindRemoteCall
			if state == StateSpeaking {
				kind = KindPlayback
			}
			_ = o.fail(kind, errors.New(state.String()+" timed out"))
		})
	})
}

func (o *Orchestrator) clearResults() {
	o.sess.OriginalText = ""
	o.sess.TranslatedText = ""
	o.sess.DetectedLanguage = ""
	o.sess.LastError = nil
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
