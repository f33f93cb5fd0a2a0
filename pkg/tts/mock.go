package tts

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MockCall is one recorded call.
type MockCall struct {
	Method string
	Text   string
	Time   time.Time
}

// Mock is a Provider for tests. With Err set every call fails with it;
// otherwise each character of the text becomes one fake MP3 frame header.
type Mock struct {
	Err    error
	Format AudioFormat

	// Frame is repeated once per character. Defaults to an MPEG-1 Layer III header.
	Frame []byte

	mu    sync.Mutex
	calls []MockCall
}

// NewMock returns a mock that produces MP3-looking audio.
func NewMock() *Mock {
	return &Mock{Format: FormatOf(EncodingMP3)}
}

// WithError returns a mock that fails every call with err.
func WithError(err error) *Mock {
	return &Mock{Err: err, Format: FormatOf(EncodingMP3)}
}

func (m *Mock) audio(text string) []byte {
	frame := m.Frame
	if frame == nil {
		frame = []byte{0xFF, 0xFB, 0x90, 0x00}
	}
	out := make([]byte, 0, len(text)*len(frame))
	for range text {
		out = append(out, frame...)
	}
	return out
}

func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.record("Synthesize", text)
	if m.Err != nil {
		return nil, m.Err
	}
	return &AudioResult{Audio: m.audio(text), Format: m.Format, CharCount: len(text)}, nil
}

func (m *Mock) Stream(ctx context.Context, text string) (AudioStream, error) {
	m.record("Stream", text)
	if m.Err != nil {
		return nil, m.Err
	}
	return NewBufferStream(m.audio(text), m.Format), nil
}

func (m *Mock) Health(ctx context.Context) error {
	m.record("Health", "")
	return m.Err
}

func (m *Mock) Close() error {
	m.record("Close", "")
	return nil
}

func (m *Mock) record(method, text string) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: method, Text: text, Time: time.Now()})
	m.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// CallCount counts recorded calls to method.
func (m *Mock) CallCount(method string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// LastCall returns the most recent call, or nil.
func (m *Mock) LastCall() *MockCall {
	calls := m.Calls()
	if len(calls) == 0 {
		return nil
	}
	return &calls[len(calls)-1]
}

// Reset forgets recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

var _ Provider = (*Mock)(nil)
