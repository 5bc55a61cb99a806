package capture

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/parlolabs/parlo-core/internal/config"
)

type execRecorder struct {
	cmd        []string
	sampleRate int
	channels   int

	mu    sync.Mutex
	stdin io.WriteCloser
}

// execResult is the single JSON line the capture command prints on
// exit: a final transcript, raw PCM to be transcribed remotely, or an
// error.
type execResult struct {
	Transcript string `json:"transcript,omitempty"`
	PCMBase64  string `json:"pcm_base64,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewExecRecorder builds a Recorder that shells out to an external
// capture command. The command records until its stdin closes, then
// prints one JSON result line on stdout.
func NewExecRecorder(cfg config.CaptureConfig) (Recorder, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse capture command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("capture command is empty")
	}
	return &execRecorder{cmd: args, sampleRate: cfg.SampleRate, channels: cfg.Channels}, nil
}

func (e *execRecorder) Start(ctx context.Context, languageHint string) (<-chan Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	base := e.cmd[0]
	args := append([]string{}, e.cmd[1:]...)
	if languageHint != "" {
		args = append(args, "--language", languageHint)
	}
	cmd := exec.CommandContext(ctx, base, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("capture stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("capture stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start capture command: %w", err)
	}

	e.stdin = stdin

	outcome := make(chan Outcome, 1)
	go func() {
		defer func() {
			e.mu.Lock()
			e.stdin = nil
			e.mu.Unlock()
		}()
		outcome <- e.collect(cmd, stdout)
	}()
	return outcome, nil
}

// collect waits for the command's terminal JSON line. A process that
// exits on its own (silence timeout) takes the same path as one
// stopped explicitly.
func (e *execRecorder) collect(cmd *exec.Cmd, stdout io.Reader) Outcome {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var res execResult
	var decoded bool
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := json.Unmarshal(line, &res); err != nil {
			_ = cmd.Wait()
			return Outcome{Err: fmt.Errorf("decode capture result: %w", err)}
		}
		decoded = true
		break
	}
	if err := cmd.Wait(); err != nil {
		return Outcome{Err: fmt.Errorf("capture command failed: %w", err)}
	}
	if !decoded {
		return Outcome{Err: fmt.Errorf("capture command produced no result")}
	}
	if res.Error != "" {
		return Outcome{Err: fmt.Errorf("capture failed: %s", res.Error)}
	}
	if res.Transcript != "" {
		return Outcome{Result: Result{Transcript: res.Transcript}}
	}

	pcm, err := base64.StdEncoding.DecodeString(res.PCMBase64)
	if err != nil {
		return Outcome{Err: fmt.Errorf("decode capture pcm: %w", err)}
	}
	if len(pcm) == 0 {
		return Outcome{Err: fmt.Errorf("capture produced empty audio")}
	}
	wavBytes, err := encodePCMToWav(pcm, e.sampleRate, e.channels)
	if err != nil {
		return Outcome{Err: err}
	}
	return Outcome{Result: Result{Audio: wavBytes, MIMEType: "audio/wav"}}
}

// Stop closes the command's stdin, which tells it to finalize and
// print its result.
func (e *execRecorder) Stop() {
	e.mu.Lock()
	stdin := e.stdin
	e.stdin = nil
	e.mu.Unlock()
	if stdin != nil {
		_ = stdin.Close()
	}
}
