package search

import "github.com/poiesic/qaindex/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, limit int)
	AfterEncoding(vector []float32)
	AfterScoring(scored int, aboveThreshold int)
	KeywordHit(result *core.SearchResult)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int)           {}
func (n *noopMonitor) AfterEncoding(_ []float32)       {}
func (n *noopMonitor) AfterScoring(_ int, _ int)       {}
func (n *noopMonitor) KeywordHit(_ *core.SearchResult) {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)   {}
