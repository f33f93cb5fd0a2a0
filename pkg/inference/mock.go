package inference

import (
	"context"
	"image"
	"slices"
	"sync"
	"time"
)

// MockCall is one recorded request.
type MockCall struct {
	Method    string
	Prompt    string
	ImageSize image.Point // Zero when no image was sent
	Time      time.Time
}

// Mock is a scripted Provider for tests. Unset funcs succeed; a nil
// VisionFunc answers from Answers in order, repeating the last one.
type Mock struct {
	VisionFunc func(ctx context.Context, req *VisionRequest) (*VisionResponse, error)
	HealthFunc func(ctx context.Context) error
	CloseFunc  func() error

	Answers []string

	mu    sync.Mutex
	calls []MockCall
	next  int
}

// NewMock answers every vision request with a fixed description.
func NewMock() *Mock {
	return &Mock{Answers: []string{"I see a mock image"}}
}

// WithResponse answers every vision request with content.
func WithResponse(content string) *Mock {
	return &Mock{Answers: []string{content}}
}

// WithError fails every call with err.
func WithError(err error) *Mock {
	return &Mock{
		VisionFunc: func(context.Context, *VisionRequest) (*VisionResponse, error) { return nil, err },
		HealthFunc: func(context.Context) error { return err },
	}
}

func (m *Mock) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	call := MockCall{Method: "Vision", Prompt: req.Prompt}
	if req.Image != nil {
		call.ImageSize = req.Image.Bounds().Size()
	}
	m.record(call)

	if m.VisionFunc != nil {
		return m.VisionFunc(ctx, req)
	}
	return m.answer()
}

func (m *Mock) answer() (*VisionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Answers) == 0 {
		return nil, WrapError("mock", ErrNoChoices)
	}
	text := m.Answers[min(m.next, len(m.Answers)-1)]
	m.next++
	return &VisionResponse{Content: text, FinishReason: "stop", Model: "mock"}, nil
}

func (m *Mock) Health(ctx context.Context) error {
	m.record(MockCall{Method: "Health"})
	if m.HealthFunc == nil {
		return nil
	}
	return m.HealthFunc(ctx)
}

func (m *Mock) Close() error {
	m.record(MockCall{Method: "Close"})
	if m.CloseFunc == nil {
		return nil
	}
	return m.CloseFunc()
}

func (m *Mock) record(c MockCall) {
	c.Time = time.Now()
	m.mu.Lock()
	m.calls = append(m.calls, c)
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
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls and rewinds Answers.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.next = 0
}

var _ Provider = (*Mock)(nil)
