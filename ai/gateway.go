package ai

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/scour/core"
)

// DimensionGuard remembers the first vector length each model produced and
// rejects later vectors that disagree with it.
type DimensionGuard struct {
	mu   sync.Mutex
	dims map[string]int
}

// NewDimensionGuard returns an empty guard.
func NewDimensionGuard() *DimensionGuard {
	return &DimensionGuard{dims: make(map[string]int)}
}

// Check records the length of vector for model on first use and returns
// core.ErrDimensionMismatch on any later disagreement.
func (g *DimensionGuard) Check(model string, vector []float32) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	want, ok := g.dims[model]
	if !ok {
		g.dims[model] = len(vector)
		return nil
	}
	if want != len(vector) {
		return fmt.Errorf("%w: model %s returned %d values, expected %d",
			core.ErrDimensionMismatch, model, len(vector), want)
	}
	return nil
}

// Dimension returns the length recorded for model, if any.
func (g *DimensionGuard) Dimension(model string) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.dims[model]
	return d, ok
}

// HasModel reports whether model is among models. A name without a tag
// matches the same name tagged ":latest".
func HasModel(models []string, model string) bool {
	for _, m := range models {
		if m == model || m == model+":latest" || strings.TrimSuffix(m, ":latest") == model {
			return true
		}
	}
	return false
}

// SortModels sorts and de-duplicates model names in place.
func SortModels(models []string) []string {
	slices.Sort(models)
	return slices.Compact(models)
}

// ClassifyEmbedError maps a failed embedding call onto the package errors.
// Context errors pass through so callers can tell a timeout apart. Otherwise
// the model list is consulted: if it cannot be fetched the provider is
// unavailable, and if model is missing from it the model is not found.
func ClassifyEmbedError(ctx context.Context, err error, model string, list func(context.Context) ([]string, error)) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("embed with %s: %w", model, ctxErr)
	}

	models, listErr := list(ctx)
	if listErr != nil {
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}
	if !HasModel(models, model) {
		return fmt.Errorf("%w: %s", ErrModelNotFound, model)
	}
	return fmt.Errorf("embed with %s: %w", model, err)
}
