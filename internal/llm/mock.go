package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is one scripted reply.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider replays scripted replies in order and records requests.
// With the script exhausted it returns UnavailableError, or calls Fallback
// when set.
type MockProvider struct {
	Fallback func(ctx context.Context, req Request) (*Response, error)

	mu     sync.Mutex
	script []MockResponse
	calls  []Request
}

func NewMockProvider(script ...MockResponse) *MockProvider {
	return &MockProvider{script: script}
}

func (m *MockProvider) ModelID() string { return "mock" }

func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	if len(m.script) == 0 {
		fb := m.Fallback
		m.mu.Unlock()
		if fb != nil {
			return fb(ctx, req)
		}
		return nil, &UnavailableError{}
	}
	next := m.script[0]
	m.script = m.script[1:]
	m.mu.Unlock()

	if next.Err != nil {
		return nil, next.Err
	}
	return &Response{Content: next.Content, Usage: next.Usage, Model: "mock", StopReason: "end"}, nil
}

// Push appends replies to the script.
func (m *MockProvider) Push(rs ...MockResponse) {
	m.mu.Lock()
	m.script = append(m.script, rs...)
	m.mu.Unlock()
}

// Calls returns a copy of the recorded requests.
func (m *MockProvider) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
