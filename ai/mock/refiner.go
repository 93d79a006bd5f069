package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/poiesic/scour/ai"
)

// MockRefiner is a test double for ai.Refiner.
type MockRefiner struct {
	// RefineFunc is called by Refine if set.
	// If nil, collapses runs of spaces.
	RefineFunc func(ctx context.Context, text string) (string, error)

	callCount atomic.Int64
}

var _ ai.Refiner = (*MockRefiner)(nil)

// NewMockRefiner creates a mock refiner with default behavior.
func NewMockRefiner() *MockRefiner {
	return &MockRefiner{}
}

// WithRefineFunc overrides the refine behavior.
func (m *MockRefiner) WithRefineFunc(fn func(ctx context.Context, text string) (string, error)) *MockRefiner {
	m.RefineFunc = fn
	return m
}

// Refine returns text with repeated spaces collapsed.
func (m *MockRefiner) Refine(ctx context.Context, text string) (string, error) {
	m.callCount.Add(1)
	if m.RefineFunc != nil {
		return m.RefineFunc(ctx, text)
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n"), nil
}

// CallCount returns the number of times Refine was called.
func (m *MockRefiner) CallCount() int {
	return int(m.callCount.Load())
}
