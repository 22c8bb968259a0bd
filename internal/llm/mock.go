package llm

import (
	"context"
	"sync"
)

// Mock is a scripted Generator for tests and offline runs.
// With no Respond func it echoes the prompt back.
type Mock struct {
	mu      sync.Mutex
	model   string
	Respond func(req Request) (string, error)
	calls   []Request
}

// NewMock creates a Mock reporting model as its name.
func NewMock(model string) *Mock {
	if model == "" {
		model = "mock"
	}
	return &Mock{model: model}
}

// Model returns the configured model name.
func (m *Mock) Model() string { return m.model }

// Generate records req and returns the scripted reply.
func (m *Mock) Generate(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	respond := m.Respond
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if respond == nil {
		return req.Prompt, nil
	}
	return respond(req)
}

// Calls returns a copy of every request seen so far.
func (m *Mock) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}
