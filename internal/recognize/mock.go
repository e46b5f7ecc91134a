package recognize

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwulff/dictate/internal/audio"
)

// Mock returns scripted replies in order, then describes the audio it got.
type Mock struct {
	mu      sync.Mutex
	replies []MockReply
	calls   []MockCall
}

// MockReply is one scripted answer.
type MockReply struct {
	Text string
	Err  error
}

// MockCall records what Recognize was asked.
type MockCall struct {
	Language string
	Samples  int
}

// NewMock creates a mock engine.
func NewMock(replies ...MockReply) *Mock {
	return &Mock{replies: replies}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Close() error { return nil }

func (m *Mock) Recognize(_ context.Context, c audio.Capture, language string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Language: language, Samples: len(c.Samples)})
	if len(m.replies) > 0 {
		r := m.replies[0]
		m.replies = m.replies[1:]
		return r.Text, r.Err
	}
	return fmt.Sprintf("[%s transcript %s]", language, c.Duration()), nil
}

// Calls returns a copy of the recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}
