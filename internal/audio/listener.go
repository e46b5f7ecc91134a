package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// ErrWaitTimeout is returned when no speech starts within the listen timeout.
var ErrWaitTimeout = errors.New("listening timed out while waiting for phrase to start")

// Listener cuts phrases out of a stream using an energy threshold.
// Elapsed time is counted in audio, not wall clock.
type Listener struct {
	// EnergyThreshold is the RMS level above which a chunk counts as speech.
	EnergyThreshold float64
	// PauseThreshold is the trailing silence that ends a phrase.
	PauseThreshold time.Duration
	// PreRoll is the audio kept from before speech started.
	PreRoll time.Duration
	// ChunkFrames is the number of samples per read.
	ChunkFrames int
}

// NewListener returns a listener with the usual dictation defaults.
func NewListener(threshold float64, pause time.Duration) *Listener {
	if pause <= 0 {
		pause = 800 * time.Millisecond
	}
	return &Listener{
		EnergyThreshold: threshold,
		PauseThreshold:  pause,
		PreRoll:         500 * time.Millisecond,
		ChunkFrames:     FramesPerBuffer,
	}
}

func (l *Listener) chunkFrames() int {
	if l.ChunkFrames <= 0 {
		return FramesPerBuffer
	}
	return l.ChunkFrames
}

func chunkDuration(frames, rate int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(rate)
}

// AdjustForAmbientNoise samples the stream for d and moves the energy
// threshold toward 1.5x the observed noise level.
func (l *Listener) AdjustForAmbientNoise(ctx context.Context, s Stream, d time.Duration) error {
	rate := s.SampleRate()
	frames := l.chunkFrames()
	step := chunkDuration(frames, rate)
	damping := math.Pow(0.15, step.Seconds())

	buf := make([]int16, frames)
	for elapsed := time.Duration(0); elapsed < d; elapsed += step {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Read(buf); err != nil {
			return fmt.Errorf("read ambient audio: %w", err)
		}
		target := rms(buf) * 1.5
		l.EnergyThreshold = l.EnergyThreshold*damping + target*(1-damping)
	}
	return nil
}

// Listen waits up to timeout for speech to start, then records until a
// pause or until phraseLimit of speech has been captured.
func (l *Listener) Listen(ctx context.Context, s Stream, timeout, phraseLimit time.Duration) (Capture, error) {
	rate := s.SampleRate()
	frames := l.chunkFrames()
	step := chunkDuration(frames, rate)

	preRollChunks := int(l.PreRoll / step)
	var pre [][]int16

	// wait for speech
	var waited time.Duration
	var phrase []int16
	for {
		if err := ctx.Err(); err != nil {
			return Capture{}, err
		}
		if timeout > 0 && waited > timeout {
			return Capture{}, ErrWaitTimeout
		}
		buf := make([]int16, frames)
		if err := s.Read(buf); err != nil {
			return Capture{}, fmt.Errorf("read audio: %w", err)
		}
		waited += step

		if rms(buf) > l.EnergyThreshold {
			for _, c := range pre {
				phrase = append(phrase, c...)
			}
			phrase = append(phrase, buf...)
			break
		}
		pre = append(pre, buf)
		if len(pre) > preRollChunks {
			pre = pre[1:]
		}
	}

	// record phrase
	spoken := step
	var silence time.Duration
	buf := make([]int16, frames)
	for {
		if err := ctx.Err(); err != nil {
			return Capture{}, err
		}
		if phraseLimit > 0 && spoken >= phraseLimit {
			break
		}
		if err := s.Read(buf); err != nil {
			// a stream that ends mid-phrase still yields the phrase
			if errors.Is(err, io.EOF) {
				break
			}
			return Capture{}, fmt.Errorf("read audio: %w", err)
		}
		phrase = append(phrase, buf...)
		spoken += step

		if rms(buf) > l.EnergyThreshold {
			silence = 0
		} else {
			silence += step
			if silence > l.PauseThreshold {
				break
			}
		}
	}

	return Capture{Samples: phrase, SampleRate: rate}, nil
}
