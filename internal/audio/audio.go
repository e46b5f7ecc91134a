// Package audio captures microphone input and cuts it into phrases.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// SampleRate is what the recognizers expect.
	SampleRate = 16000
	// Channels is mono.
	Channels = 1
	// FramesPerBuffer is the chunk size read from the device.
	FramesPerBuffer = 1024
)

// Microphone hands out exclusive streams. A stream must be closed before
// the next Open.
type Microphone interface {
	Open() (Stream, error)
}

// Stream is an open capture device.
type Stream interface {
	// Read blocks until buf is filled with 16-bit mono samples.
	Read(buf []int16) error
	SampleRate() int
	Close() error
}

// Capture is one listened phrase.
type Capture struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the audio length.
func (c Capture) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// PCM16LE returns the samples as little-endian LINEAR16 bytes.
func (c Capture) PCM16LE() []byte {
	out := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Float32 returns the samples scaled to [-1, 1].
func (c Capture) Float32() []float32 {
	out := make([]float32, len(c.Samples))
	for i, s := range c.Samples {
		out[i] = float32(s) / math.MaxInt16
	}
	return out
}

// WriteWAV encodes the capture as a 16-bit PCM WAV file.
func (c Capture) WriteWAV(f *os.File) error {
	data := make([]int, len(c.Samples))
	for i, s := range c.Samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: Channels, SampleRate: c.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}

	enc := wav.NewEncoder(f, c.SampleRate, 16, Channels, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// ReadWAV decodes a 16-bit mono WAV file into a Capture.
func ReadWAV(f *os.File) (Capture, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Capture{}, fmt.Errorf("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Capture{}, fmt.Errorf("decode wav: %w", err)
	}
	samples := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = int16(s)
	}
	return Capture{Samples: samples, SampleRate: int(dec.SampleRate)}, nil
}

// rms returns the root-mean-square energy of a chunk.
func rms(chunk []int16) float64 {
	if len(chunk) == 0 {
		return 0
	}
	var sum float64
	for _, s := range chunk {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(chunk)))
}
