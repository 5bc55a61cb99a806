package translate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
)

type execClient struct {
	cmd []string
	mu  sync.Mutex
}

type execRequest struct {
	Op          string `json:"op"` // translate, transcribe_translate
	Text        string `json:"text,omitempty"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	MIMEType    string `json:"mime_type,omitempty"`
	SourceHint  string `json:"source_hint"`
	TargetCode  string `json:"target_code"`
}

type execResponse struct {
	TranscribedText  string `json:"transcribed_text,omitempty"`
	DetectedLanguage string `json:"detected_language"`
	TranslatedText   string `json:"translated_text"`
	Error            string `json:"error,omitempty"`
}

// NewExecClient builds a Client that shells out to an external
// translator command speaking line-delimited JSON on stdin/stdout.
func NewExecClient(command string) (Client, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse translator command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("translator command is empty")
	}
	return &execClient{cmd: args}, nil
}

func (e *execClient) Translate(ctx context.Context, text, sourceHint, targetCode string) (Result, error) {
	return e.run(ctx, execRequest{Op: "translate", Text: text, SourceHint: sourceHint, TargetCode: targetCode}, false)
}

func (e *execClient) TranscribeAndTranslate(ctx context.Context, audio []byte, mimeType, sourceHint, targetCode string) (Result, error) {
	req := execRequest{
		Op:          "transcribe_translate",
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
		MIMEType:    mimeType,
		SourceHint:  sourceHint,
		TargetCode:  targetCode,
	}
	return e.run(ctx, req, true)
}

func (e *execClient) run(ctx context.Context, req execRequest, wantTranscript bool) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	payload, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}

	base := e.cmd[0]
	args := append([]string{}, e.cmd[1:]...)
	cmd := exec.CommandContext(ctx, base, args...)
	cmd.Stdin = bytes.NewReader(append(payload, '\n'))

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var resp execResponse
	var decoded bool
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := json.Unmarshal(line, &resp); err != nil {
			_ = cmd.Wait()
			return Result{}, fmt.Errorf("%w: %v", ErrTranslationFailed, err)
		}
		decoded = true
		break
	}
	if err := cmd.Wait(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}
	if !decoded {
		return Result{}, fmt.Errorf("%w: no response from translator command", ErrTranslationFailed)
	}
	if resp.Error != "" {
		return Result{}, fmt.Errorf("%w: %s", ErrTranslationFailed, resp.Error)
	}
	if resp.DetectedLanguage == "" || resp.TranslatedText == "" || (wantTranscript && resp.TranscribedText == "") {
		return Result{}, fmt.Errorf("%w: missing fields in response", ErrTranslationFailed)
	}
	return Result{
		TranscribedText:  resp.TranscribedText,
		DetectedLanguage: resp.DetectedLanguage,
		TranslatedText:   resp.TranslatedText,
	}, nil
}
