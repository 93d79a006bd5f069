package search

import (
	"github.com/poiesic/scour/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, model string)
	AfterEmbedding(vector []float32)
	AfterSimilaritySearch(matches []*core.SimilarityMatch)
	Finish(results []*core.SimilarityResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ string)                        {}
func (n *noopMonitor) AfterEmbedding(_ []float32)                      {}
func (n *noopMonitor) AfterSimilaritySearch(_ []*core.SimilarityMatch) {}
func (n *noopMonitor) Finish(_ []*core.SimilarityResult)               {}
