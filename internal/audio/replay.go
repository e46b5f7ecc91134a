package audio

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Replay is a Microphone that plays back recorded audio. Each Open resumes
// where the previous stream stopped; reads past the end return io.EOF.
type Replay struct {
	mu      sync.Mutex
	capture Capture
	pos     int
	open    bool
}

// NewReplay wraps a capture.
func NewReplay(c Capture) *Replay {
	if c.SampleRate <= 0 {
		c.SampleRate = SampleRate
	}
	return &Replay{capture: c}
}

// OpenWAVFile loads a WAV file as a replay microphone.
func OpenWAVFile(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()
	c, err := ReadWAV(f)
	if err != nil {
		return nil, err
	}
	return NewReplay(c), nil
}

func (r *Replay) Open() (Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open {
		return nil, fmt.Errorf("microphone already in use")
	}
	r.open = true
	return &replayStream{r: r}, nil
}

// Remaining reports how many samples have not been read yet.
func (r *Replay) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.capture.Samples) - r.pos
}

type replayStream struct {
	r      *Replay
	closed bool
}

func (s *replayStream) SampleRate() int { return s.r.capture.SampleRate }

func (s *replayStream) Read(dst []int16) error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if s.closed {
		return io.ErrClosedPipe
	}
	if s.r.pos >= len(s.r.capture.Samples) {
		return io.EOF
	}
	n := copy(dst, s.r.capture.Samples[s.r.pos:])
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	s.r.pos += n
	return nil
}

func (s *replayStream) Close() error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.r.open = false
	}
	return nil
}
