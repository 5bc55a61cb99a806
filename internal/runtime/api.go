package runtime

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/parlolabs/parlo-core/internal/i18n"
	"github.com/parlolabs/parlo-core/internal/session"
	"github.com/parlolabs/parlo-core/internal/voice"
)

func (r *Runtime) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/session", r.handleSession)
	mux.HandleFunc("GET /v1/languages", r.handleLanguages)
	mux.HandleFunc("POST /v1/uploads", r.handleUpload)
	mux.HandleFunc("POST /v1/replay", r.handleReplay)
	mux.HandleFunc("POST /v1/swap", r.handleSwap)
	mux.HandleFunc("POST /v1/languages", r.handleSetLanguages)
	mux.HandleFunc("POST /v1/preference", r.handleSetPreference)
}

type sessionView struct {
	RequestID        string `json:"request_id,omitempty"`
	State            string `json:"state"`
	SourceLanguage   string `json:"source_language"`
	TargetLanguage   string `json:"target_language"`
	Preference       string `json:"preference"`
	OriginalText     string `json:"original_text,omitempty"`
	TranslatedText   string `json:"translated_text,omitempty"`
	DetectedLanguage string `json:"detected_language,omitempty"`
	Error            string `json:"error,omitempty"`
}

func (r *Runtime) sessionView(snap session.Snapshot) sessionView {
	view := sessionView{
		RequestID:        snap.RequestID,
		State:            snap.State.String(),
		SourceLanguage:   snap.SourceLanguage,
		TargetLanguage:   snap.TargetLanguage,
		Preference:       string(snap.Preference),
		OriginalText:     snap.OriginalText,
		TranslatedText:   snap.TranslatedText,
		DetectedLanguage: snap.DetectedLanguage,
	}
	if snap.LastError != nil {
		view.Error = r.localize(snap.LastError)
	}
	return view
}

func (r *Runtime) localize(serr *session.Error) string {
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
	return i18n.T(r.uiLang, key)
}

func (r *Runtime) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeCommandError maps orchestrator verdicts onto HTTP statuses.
func (r *Runtime) writeCommandError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrRejected) {
		r.writeJSON(w, http.StatusConflict, map[string]string{"error": "session busy or command not applicable"})
		return
	}
	var serr *session.Error
	if errors.As(err, &serr) {
		status := http.StatusBadGateway
		switch serr.Kind {
		case session.KindPayloadTooLarge:
			status = http.StatusRequestEntityTooLarge
		case session.KindUnsupported:
			status = http.StatusNotImplemented
		}
		r.writeJSON(w, status, map[string]string{"error": r.localize(serr), "kind": string(serr.Kind)})
		return
	}
	r.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func (r *Runtime) handleSession(w http.ResponseWriter, _ *http.Request) {
	r.writeJSON(w, http.StatusOK, r.sessionView(r.orch.Snapshot()))
}

func (r *Runtime) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		Code        string `json:"code"`
		DisplayName string `json:"display_name"`
	}
	var out []entry
	for _, e := range r.catalog.All() {
		out = append(out, entry{Code: e.Code, DisplayName: e.DisplayName})
	}
	r.writeJSON(w, http.StatusOK, out)
}

func (r *Runtime) handleUpload(w http.ResponseWriter, req *http.Request) {
	// One byte of headroom so the orchestrator can apply the size
	// policy itself instead of the transport masking it.
	limit := r.cfg.Session.MaxUploadBytes + 1
	body, err := io.ReadAll(io.LimitReader(req.Body, limit))
	if err != nil {
		r.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read upload"})
		return
	}
	mime := req.Header.Get("Content-Type")
	if mime == "" {
		mime = "audio/wav"
	}
	if err := r.orch.SubmitFile(body, mime); err != nil {
		r.writeCommandError(w, err)
		return
	}
	r.writeJSON(w, http.StatusAccepted, r.sessionView(r.orch.Snapshot()))
}

func (r *Runtime) handleReplay(w http.ResponseWriter, _ *http.Request) {
	if err := r.orch.Replay(); err != nil {
		r.writeCommandError(w, err)
		return
	}
	r.writeJSON(w, http.StatusAccepted, r.sessionView(r.orch.Snapshot()))
}

func (r *Runtime) handleSwap(w http.ResponseWriter, _ *http.Request) {
	if err := r.orch.SwapLanguages(); err != nil {
		r.writeCommandError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, r.sessionView(r.orch.Snapshot()))
}

func (r *Runtime) handleSetLanguages(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Source string `json:"source"`
		Target string `json:"target"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		r.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := r.orch.SetLanguages(body.Source, body.Target); err != nil {
		r.writeCommandError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, r.sessionView(r.orch.Snapshot()))
}

func (r *Runtime) handleSetPreference(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Preference string `json:"preference"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		r.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := r.orch.SetVoicePreference(voice.ParsePreference(body.Preference)); err != nil {
		r.writeCommandError(w, err)
		return
	}
	r.writeJSON(w, http.StatusOK, r.sessionView(r.orch.Snapshot()))
}
