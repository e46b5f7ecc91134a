//go:build whispercpp

package recognize

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/jwulff/dictate/internal/audio"
)

// WhisperCppAvailable reports whether the in-process engine was compiled in.
const WhisperCppAvailable = true

// WhisperCpp runs whisper.cpp in process.
type WhisperCpp struct {
	mu      sync.Mutex
	model   whisper.Model
	threads uint
	log     *log.Logger
}

// NewWhisperCpp loads a ggml model file.
func NewWhisperCpp(modelPath string, threads uint, logger *log.Logger) (Recognizer, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("whisper.cpp model path not configured")
	}
	logger.Info("recognize: loading whisper.cpp model", "path", modelPath)
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}
	return &WhisperCpp{model: model, threads: threads, log: logger}, nil
}

func (w *WhisperCpp) Name() string { return "whispercpp" }

func (w *WhisperCpp) Recognize(_ context.Context, c audio.Capture, language string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if c.SampleRate != whisper.SampleRate {
		return "", fmt.Errorf("whisper.cpp needs %d Hz audio, got %d", whisper.SampleRate, c.SampleRate)
	}

	ctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create whisper context: %w", err)
	}
	ctx.SetTranslate(false)
	if lang := BaseLanguage(language); lang != "" {
		if err := ctx.SetLanguage(lang); err != nil {
			w.log.Warn("recognize: failed to set language", "language", lang, "error", err)
		}
	}
	if w.threads > 0 {
		ctx.SetThreads(w.threads)
	}

	if err := ctx.Process(c.Float32(), nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}

	var text strings.Builder
	for {
		segment, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("get segment: %w", err)
		}
		text.WriteString(segment.Text)
	}

	result := strings.TrimSpace(text.String())
	if result == "" || result == "[BLANK_AUDIO]" {
		return "", ErrUnintelligible
	}
	return result, nil
}

func (w *WhisperCpp) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return nil
	}
	err := w.model.Close()
	w.model = nil
	return err
}
