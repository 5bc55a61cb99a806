// Package control bridges the bus to the session orchestrator: UI
// commands arrive on session.command, state snapshots and localized
// errors go back out on session.state and session.error.
package control

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/parlolabs/parlo-core/internal/bus"
	"github.com/parlolabs/parlo-core/internal/i18n"
	"github.com/parlolabs/parlo-core/internal/protocol"
	"github.com/parlolabs/parlo-core/internal/session"
	"github.com/parlolabs/parlo-core/internal/voice"
)

type Service struct {
	bus    *bus.Client
	orch   *session.Orchestrator
	lang   i18n.Language
	logger *slog.Logger
	sub    *nats.Subscription
}

func NewService(busClient *bus.Client, orch *session.Orchestrator, uiLang i18n.Language, logger *slog.Logger) *Service {
	return &Service{
		bus:    busClient,
		orch:   orch,
		lang:   uiLang,
		logger: logger.With(slog.String("component", "control")),
	}
}

func (s *Service) Start() error {
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectSessionCommand, s.handleCommand)
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}

func (s *Service) Close() {
	if s.sub != nil {
		_ = s.sub.Drain()
	}
}

func (s *Service) Healthy() bool { return s.sub != nil }

func (s *Service) handleCommand(msg *nats.Msg) {
	var cmd protocol.Command
	if err := json.Unmarshal(msg.Data, &cmd); err != nil {
		s.logger.Warn("failed to decode command", slogError(err))
		return
	}

	var err error
	switch cmd.Name {
	case protocol.CmdStartCapture:
		err = s.orch.StartCapture()
	case protocol.CmdStopCapture:
		err = s.orch.StopCapture()
	case protocol.CmdSubmitFile:
		var data []byte
		data, err = base64.StdEncoding.DecodeString(cmd.AudioBase64)
		if err == nil {
			err = s.orch.SubmitFile(data, cmd.MIMEType)
		}
	case protocol.CmdReplay:
		err = s.orch.Replay()
	case protocol.CmdSwapLanguages:
		err = s.orch.SwapLanguages()
	case protocol.CmdSetLanguages:
		err = s.orch.SetLanguages(cmd.SourceLanguage, cmd.TargetLanguage)
	case protocol.CmdSetPreference:
		err = s.orch.SetVoicePreference(voice.ParsePreference(cmd.Preference))
	default:
		s.logger.Warn("unknown command", slog.String("name", cmd.Name))
		return
	}

	// Rejected commands are deliberate no-ops; only log them.
	if errors.Is(err, session.ErrRejected) {
		s.logger.Debug("command rejected", slog.String("name", cmd.Name))
		return
	}
	if err != nil {
		s.logger.Warn("command failed", slog.String("name", cmd.Name), slogError(err))
	}
}

// PublishState is wired as the orchestrator's notify hook.
func (s *Service) PublishState(snap session.Snapshot) {
	update := protocol.StateUpdate{
		RequestID:        snap.RequestID,
		State:            snap.State.String(),
		SourceLanguage:   snap.SourceLanguage,
		TargetLanguage:   snap.TargetLanguage,
		Preference:       string(snap.Preference),
		OriginalText:     snap.OriginalText,
		TranslatedText:   snap.TranslatedText,
		DetectedLanguage: snap.DetectedLanguage,
		Timestamp:        time.Now().UTC(),
	}
	if snap.LastError != nil {
		update.Error = s.localize(snap.LastError)
	}
	if data, err := json.Marshal(update); err == nil {
		if err := s.bus.Conn().Publish(protocol.SubjectSessionState, data); err != nil {
			s.logger.Warn("failed to publish state", slogError(err))
		}
	}

	if snap.State == session.StateError && snap.LastError != nil {
		notice := protocol.ErrorNotice{
			RequestID: snap.RequestID,
			Kind:      string(snap.LastError.Kind),
			Message:   s.localize(snap.LastError),
			Timestamp: time.Now().UTC(),
		}
		if data, err := json.Marshal(notice); err == nil {
			if err := s.bus.Conn().Publish(protocol.SubjectSessionError, data); err != nil {
				s.logger.Warn("failed to publish error notice", slogError(err))
			}
		}
	}
}

func (s *Service) localize(serr *session.Error) string {
	key := "err_remote"
	switch serr.Kind {
	case session.KindCapture:
		key = "err_capture"
	case session.KindPayloadTooLarge:
		key = "err_too_large"
	case session.KindPlayback:
		key = "err_playback"
	case session.KindUnsupported:
		key = "err_unsupported"
	}
	return i18n.T(s.lang, key)
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
