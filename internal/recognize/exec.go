package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jwulff/dictate/internal/audio"
	"github.com/mattn/go-shellwords"
)

// ExecConfig configures the offline command engine.
type ExecConfig struct {
	Command   string
	ModelPath string
}

// Exec runs an external recognizer per phrase. The command receives
// --audio <wav> --language <lang> [--model <path>] and prints either
// {"text": "..."} or plain text on stdout.
type Exec struct {
	cmd []string
	cfg ExecConfig
	log *log.Logger
	mu  sync.Mutex
}

type execResult struct {
	Text string `json:"text"`
}

// NewExec parses the configured command line.
func NewExec(cfg ExecConfig, logger *log.Logger) (*Exec, error) {
	parser := shellwords.NewParser()
	parser.ParseEnv = true
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse offline command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("offline command is empty")
	}
	return &Exec{cmd: args, cfg: cfg, log: logger}, nil
}

func (e *Exec) Name() string { return "exec:" + e.cmd[0] }

func (e *Exec) Close() error { return nil }

func (e *Exec) Recognize(ctx context.Context, c audio.Capture, language string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	file, err := os.CreateTemp("", "dictate_*.wav")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := c.WriteWAV(file); err != nil {
		return "", err
	}

	args := append([]string{}, e.cmd[1:]...)
	args = append(args, "--audio", file.Name())
	if language != "" {
		args = append(args, "--language", BaseLanguage(language))
	}
	if e.cfg.ModelPath != "" {
		args = append(args, "--model", e.cfg.ModelPath)
	}

	command := exec.CommandContext(ctx, e.cmd[0], args...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	e.log.Debug("recognize: running offline command", "cmd", e.cmd[0], "duration", c.Duration())
	if err := command.Run(); err != nil {
		return "", fmt.Errorf("offline command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	out := bytes.TrimSpace(stdout.Bytes())
	var text string
	if len(out) > 0 && out[0] == '{' {
		var resp execResult
		if err := json.Unmarshal(out, &resp); err != nil {
			return "", fmt.Errorf("decode offline response: %w", err)
		}
		text = resp.Text
	} else {
		text = string(out)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrUnintelligible
	}
	return text, nil
}
