// Package monitoring aggregates run metrics and raises threshold alerts.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/deadonfilm/enrich/internal/model"
	"github.com/deadonfilm/enrich/internal/store"
)

// MetricsSnapshot holds a point-in-time view of enrichment health.
type MetricsSnapshot struct {
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsQueued   int     `json:"runs_queued"`
	FailRate     float64 `json:"fail_rate"`

	EnrichedCount int     `json:"enriched_count"`
	EnrichRate    float64 `json:"enrich_rate"`
	BlockedTotal  int     `json:"blocked_total"`
	BlockRate     float64 `json:"block_rate"`
	AvgSourcesOK  float64 `json:"avg_sources_ok"`
	TotalCostUSD  float64 `json:"total_cost_usd"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the run store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of run metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var sourcesTried, sourcesOK int

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		case model.RunStatusQueued:
			snap.RunsQueued++
		}
		if r.Result == nil {
			continue
		}
		if r.Result.Enriched {
			snap.EnrichedCount++
		}
		snap.BlockedTotal += r.Result.BlockedCount
		snap.TotalCostUSD += r.Result.TotalCostUSD
		sourcesTried += r.Result.SourcesTried
		sourcesOK += r.Result.SourcesOK
	}

	finished := snap.RunsComplete + snap.RunsFailed
	if finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if snap.RunsTotal > 0 {
		snap.EnrichRate = float64(snap.EnrichedCount) / float64(snap.RunsTotal)
		snap.AvgSourcesOK = float64(sourcesOK) / float64(snap.RunsTotal)
	}
	if sourcesTried > 0 {
		snap.BlockRate = float64(snap.BlockedTotal) / float64(sourcesTried)
	}

	return snap, nil
}
