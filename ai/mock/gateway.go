package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/poiesic/scour/ai"
	"github.com/poiesic/scour/core"
)

// DefaultDimension is the vector length of models registered without one.
const DefaultDimension = 384

// MockGateway is a test double for ai.Gateway.
// It knows a fixed set of models, each with its own dimension, and embeds
// text into deterministic unit vectors.
type MockGateway struct {
	mu          sync.Mutex
	models      map[string]int
	unavailable bool

	// EmbedFunc is called by Embed if set, after availability and model checks.
	// If nil, uses default deterministic behavior.
	EmbedFunc func(ctx context.Context, text, model string) ([]float32, error)

	defaultModel string
	dims         *ai.DimensionGuard
	callCount    atomic.Int64
}

var _ ai.Gateway = (*MockGateway)(nil)

// NewMockGateway creates a mock gateway that knows model with DefaultDimension.
// Note: Returns concrete type to allow test assertions and behavior injection.
func NewMockGateway(model string) *MockGateway {
	return &MockGateway{
		models:       map[string]int{model: DefaultDimension},
		defaultModel: model,
		dims:         ai.NewDimensionGuard(),
	}
}

// WithModel registers model with the given dimension.
func (m *MockGateway) WithModel(model string, dim int) *MockGateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models[model] = dim
	return m
}

// WithEmbedFunc overrides the embedding behavior.
func (m *MockGateway) WithEmbedFunc(fn func(ctx context.Context, text, model string) ([]float32, error)) *MockGateway {
	m.EmbedFunc = fn
	return m
}

// SetUnavailable makes every call behave as if the service were down.
func (m *MockGateway) SetUnavailable(unavailable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = unavailable
}

// Embed generates a deterministic embedding based on text hash.
func (m *MockGateway) Embed(ctx context.Context, text string, model string) ([]float32, error) {
	m.callCount.Add(1)

	if model == "" {
		model = m.defaultModel
	}

	m.mu.Lock()
	unavailable := m.unavailable
	dim, known := m.models[model]
	m.mu.Unlock()

	if unavailable {
		return nil, fmt.Errorf("%w: mock is offline", ai.ErrProviderUnavailable)
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ai.ErrModelNotFound, model)
	}

	var vector []float32
	if m.EmbedFunc != nil {
		var err error
		vector, err = m.EmbedFunc(ctx, text, model)
		if err != nil {
			return nil, err
		}
	} else {
		vector = DeterministicVector(text, dim)
	}

	if err := m.dims.Check(model, vector); err != nil {
		return nil, err
	}
	return vector, nil
}

// CheckConnection reports false while the mock is unavailable.
func (m *MockGateway) CheckConnection(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.unavailable
}

// ListModels returns the registered model names.
func (m *MockGateway) ListModels(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.unavailable {
		return nil, fmt.Errorf("%w: mock is offline", ai.ErrProviderUnavailable)
	}
	models := make([]string, 0, len(m.models))
	for name := range m.models {
		models = append(models, name)
	}
	slices.Sort(models)
	return models, nil
}

// Close is a no-op for the mock gateway.
func (m *MockGateway) Close() error {
	return nil
}

// CallCount returns the number of times Embed was called.
func (m *MockGateway) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom behavior.
func (m *MockGateway) Reset() {
	m.callCount.Store(0)
	m.EmbedFunc = nil
	m.SetUnavailable(false)
}

// DeterministicVector creates a unit vector of length dim from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func DeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := range vector {
		// Simple pseudo-random generation based on seed and index
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/1000.0 - 0.5
	}
	return core.NormalizeVector(vector)
}
