package session

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jwulff/dictate/internal/audio"
	"github.com/jwulff/dictate/internal/recognize"
)

// Timing bounds a single tick.
type Timing struct {
	ListenTimeout   time.Duration
	PhraseTimeLimit time.Duration
	Calibration     time.Duration
}

// DefaultTiming matches the config defaults.
func DefaultTiming() Timing {
	return Timing{
		ListenTimeout:   5 * time.Second,
		PhraseTimeLimit: 10 * time.Second,
		Calibration:     2 * time.Second,
	}
}

// Phase is reported as a tick progresses.
type Phase int

const (
	PhaseCalibrating Phase = iota
	PhaseListening
	PhaseRecognizing
)

func (p Phase) String() string {
	switch p {
	case PhaseCalibrating:
		return "Adjusting for ambient noise..."
	case PhaseListening:
		return "Listening..."
	case PhaseRecognizing:
		return "Recognizing..."
	}
	return ""
}

// Ticker performs one bounded listen-and-recognize call at a time.
type Ticker struct {
	Mic      audio.Microphone
	Listener *audio.Listener
	Timing   Timing
	Log      *log.Logger
	// Progress, if set, is called as the tick moves between phases.
	Progress func(Phase)
}

// Tick acquires the microphone, optionally calibrates, listens for one
// phrase, releases the microphone and sends the phrase to rec. It never
// panics; failures come back as a TransportError result.
func (t *Ticker) Tick(ctx context.Context, rec recognize.Recognizer, language string, calibrate bool) (res recognize.Result) {
	defer func() {
		if r := recover(); r != nil {
			t.Log.Error("session: tick panicked", "panic", r)
			res = recognize.TransportError(fmt.Errorf("unexpected failure: %v", r))
		}
	}()

	c, err := t.listen(ctx, calibrate)
	if err != nil {
		res = recognize.Classify("", err)
		if res.Kind == recognize.KindTransportError {
			res.Err = fmt.Errorf("microphone: %w", err)
		}
		return res
	}

	t.progress(PhaseRecognizing)
	text, err := rec.Recognize(ctx, c, language)
	res = recognize.Classify(text, err)
	t.Log.Debug("session: tick done", "kind", res.Kind, "engine", rec.Name(), "audio", c.Duration())
	return res
}

// listen holds the microphone only for the duration of one phrase.
func (t *Ticker) listen(ctx context.Context, calibrate bool) (audio.Capture, error) {
	stream, err := t.Mic.Open()
	if err != nil {
		return audio.Capture{}, err
	}
	defer stream.Close()

	if calibrate && t.Timing.Calibration > 0 {
		t.progress(PhaseCalibrating)
		if err := t.Listener.AdjustForAmbientNoise(ctx, stream, t.Timing.Calibration); err != nil {
			return audio.Capture{}, err
		}
		t.Log.Debug("session: calibrated", "threshold", t.Listener.EnergyThreshold)
	}

	t.progress(PhaseListening)
	return t.Listener.Listen(ctx, stream, t.Timing.ListenTimeout, t.Timing.PhraseTimeLimit)
}

func (t *Ticker) progress(p Phase) {
	if t.Progress != nil {
		t.Progress(p)
	}
}

// RetryDelay is the backoff after the attempt-th consecutive transport
// error: 1s, 2s, 4s, 8s, 16s, then 30s.
func RetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := time.Duration(1<<min(attempt, 5)) * time.Second
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}
