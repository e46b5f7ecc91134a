package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio opens the default input device through PortAudio.
type PortAudio struct {
	mu         sync.Mutex
	sampleRate int
	open       bool
}

// NewPortAudio initializes the PortAudio library.
func NewPortAudio(sampleRate int) (*PortAudio, error) {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	return &PortAudio{sampleRate: sampleRate}, nil
}

// Open starts a capture stream on the default input device.
func (p *PortAudio) Open() (Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.open {
		return nil, fmt.Errorf("microphone already in use")
	}

	s := &paStream{owner: p, buf: make([]int16, FramesPerBuffer), rate: p.sampleRate}
	stream, err := portaudio.OpenDefaultStream(Channels, 0, float64(p.sampleRate), FramesPerBuffer, s.buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	s.stream = stream
	p.open = true
	return s, nil
}

// Close terminates PortAudio.
func (p *PortAudio) Close() error {
	return portaudio.Terminate()
}

type paStream struct {
	owner  *PortAudio
	stream *portaudio.Stream
	buf    []int16
	rate   int
	once   sync.Once
}

func (s *paStream) SampleRate() int { return s.rate }

// Read fills dst in FramesPerBuffer chunks.
func (s *paStream) Read(dst []int16) error {
	for off := 0; off < len(dst); {
		if err := s.stream.Read(); err != nil && err != portaudio.InputOverflowed {
			return err
		}
		off += copy(dst[off:], s.buf)
	}
	return nil
}

func (s *paStream) Close() error {
	var err error
	s.once.Do(func() {
		if stopErr := s.stream.Stop(); stopErr != nil {
			err = stopErr
		}
		if closeErr := s.stream.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		s.owner.mu.Lock()
		s.owner.open = false
		s.owner.mu.Unlock()
	})
	return err
}
