package cache

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/clindx-engine/internal/domain"
)

// DefaultLRUSize bounds the number of cached summaries.
const DefaultLRUSize = 1000

// LRUSummaryCache keeps dashboard summaries in process memory. It is used
// by the standalone binary, which runs without Redis.
type LRUSummaryCache struct {
	entries *expirable.LRU[int64, domain.DashboardSummary]
}

// NewLRUSummaryCache creates a cache holding at most size summaries.
func NewLRUSummaryCache(size int, ttl time.Duration) *LRUSummaryCache {
	if size <= 0 {
		size = DefaultLRUSize
	}
	if ttl <= 0 {
		ttl = defaultSummaryTTL
	}
	return &LRUSummaryCache{
		entries: expirable.NewLRU[int64, domain.DashboardSummary](size, nil, ttl),
	}
}

// Get returns a deep copy of the cached summary.
func (c *LRUSummaryCache) Get(_ context.Context, doctorID int64) (*domain.DashboardSummary, bool, error) {
	summary, ok := c.entries.Get(doctorID)
	if !ok {
		return nil, false, nil
	}
	return cloneSummary(summary), true, nil
}

// Set stores a deep copy of summary.
func (c *LRUSummaryCache) Set(_ context.Context, doctorID int64, summary *domain.DashboardSummary) error {
	c.entries.Add(doctorID, *cloneSummary(*summary))
	return nil
}

// Invalidate drops the cached summary for doctorID.
func (c *LRUSummaryCache) Invalidate(_ context.Context, doctorID int64) error {
	c.entries.Remove(doctorID)
	return nil
}

func cloneSummary(summary domain.DashboardSummary) *domain.DashboardSummary {
	summary.RiskTrend = slices.Clone(summary.RiskTrend)
	summary.DiagnosisDistribution = slices.Clone(summary.DiagnosisDistribution)
	summary.RecentEvaluations = slices.Clone(summary.RecentEvaluations)
	return &summary
}

// Len reports the number of cached summaries.
func (c *LRUSummaryCache) Len() int {
	return c.entries.Len()
}
