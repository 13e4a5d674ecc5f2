// Package orch coordinates the source cascade for enrichment runs.
package orch

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/deadonfilm/enrich/internal/cost"
	"github.com/deadonfilm/enrich/internal/model"
	"github.com/deadonfilm/enrich/internal/resilience"
	"github.com/deadonfilm/enrich/internal/source"
)

const (
	// DefaultCorroborationTarget is how many independent successful sources
	// end the cascade early.
	DefaultCorroborationTarget = 2

	// DefaultBatchConcurrency bounds EnrichBatch fan-out.
	DefaultBatchConcurrency = 4
)

// Coordinator walks the source cascade for each subject in reliability
// order, free sources before paid, stopping at the corroboration target
// or when the budget runs out.
type Coordinator struct {
	sources             []source.DataSource
	ledger              *cost.Ledger
	corroborationTarget int
	concurrency         int

	queried   atomic.Int64
	processed atomic.Int64
	enriched  atomic.Int64
	costMicro atomic.Int64 // cumulative cost in millionths of a dollar
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCorroborationTarget overrides how many source successes stop the
// cascade. Zero or negative means run every source.
func WithCorroborationTarget(n int) Option {
	return func(c *Coordinator) {
		c.corroborationTarget = n
	}
}

// WithBatchConcurrency bounds the number of subjects enriched at once.
func WithBatchConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithBudget attaches a spending budget. Without one all lookups are
// treated as affordable.
func WithBudget(budget cost.Budget) Option {
	return func(c *Coordinator) {
		c.ledger = cost.NewLedger(budget)
	}
}

// New creates a Coordinator over the given sources. The slice is copied
// and reordered by reliability tier, free sources before paid within a
// tier, cheaper paid sources first.
func New(sources []source.DataSource, opts ...Option) *Coordinator {
	ordered := make([]source.DataSource, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.ReliabilityTier() != b.ReliabilityTier() {
			return a.ReliabilityTier() < b.ReliabilityTier()
		}
		if a.IsFree() != b.IsFree() {
			return a.IsFree()
		}
		return a.EstimatedCostPerQuery() < b.EstimatedCostPerQuery()
	})

	c := &Coordinator{
		sources:             ordered,
		ledger:              cost.NewLedger(cost.Budget{}),
		corroborationTarget: DefaultCorroborationTarget,
		concurrency:         DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Progress is an instantaneous snapshot of batch state.
type Progress struct {
	Queried      int64   `json:"queried"`
	Processed    int64   `json:"processed"`
	Enriched     int64   `json:"enriched"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// Progress returns the current counters. Safe to call while a batch is
// running.
func (c *Coordinator) Progress() Progress {
	return Progress{
		Queried:      c.queried.Load(),
		Processed:    c.processed.Load(),
		Enriched:     c.enriched.Load(),
		TotalCostUSD: float64(c.costMicro.Load()) / 1e6,
	}
}

// Enrich runs the cascade for one subject and returns a completed Run.
// The returned error is reserved for context cancellation; source
// failures of every kind are folded into the run result.
func (c *Coordinator) Enrich(ctx context.Context, subj model.Subject) (*model.Run, error) {
	started := time.Now()
	c.queried.Add(1)

	run := &model.Run{
		ID:        uuid.NewString(),
		Subject:   subj,
		Status:    model.RunStatusLooking,
		CreatedAt: started.UTC(),
	}
	result := &model.RunResult{}

	for _, src := range c.sources {
		if ctx.Err() != nil {
			run.Status = model.RunStatusCancelled
			run.UpdatedAt = time.Now().UTC()
			return run, ctx.Err()
		}
		if c.corroborationTarget > 0 && result.SourcesOK >= c.corroborationTarget {
			break
		}
		if !src.IsAvailable() {
			continue
		}

		estimate := src.EstimatedCostPerQuery()
		if !c.ledger.CanSpend(subj.ID, estimate) {
			zap.L().Info("budget exhausted, skipping source",
				zap.String("source", src.Name()),
				zap.Int64("subject_id", subj.ID),
				zap.Float64("estimate_usd", estimate),
			)
			continue
		}

		result.SourcesTried++
		lookup, err := src.Lookup(ctx, subj)
		if err != nil {
			if ctx.Err() != nil {
				run.Status = model.RunStatusCancelled
				run.UpdatedAt = time.Now().UTC()
				return run, ctx.Err()
			}
			// Only blocked errors cross Lookup. Record and move on.
			entry := model.SourceEntry{
				SourceType: src.Type(),
				Timestamp:  time.Now().UTC(),
			}
			var blocked *resilience.BlockedError
			if errors.As(err, &blocked) {
				entry.URL = blocked.URL
			}
			result.Sources = append(result.Sources, entry)
			result.BlockedCount++
			zap.L().Warn("source blocked",
				zap.String("source", src.Name()),
				zap.String("subject", subj.Name),
				zap.Error(err),
			)
			continue
		}

		result.Sources = append(result.Sources, lookup.Source)

		// A paid query spends money whether or not it produced usable
		// data. Only cache hits are free.
		spent := estimate
		if lookup.Success && lookup.Data.CostUSD > 0 {
			spent = lookup.Data.CostUSD
		}
		if !lookup.FromCache && spent > 0 {
			c.ledger.Charge(subj.ID, spent)
			result.TotalCostUSD += spent
			c.costMicro.Add(int64(spent * 1e6))
		}

		if !lookup.Success {
			continue
		}

		result.SourcesOK++
		result.Data = append(result.Data, *lookup.Data)
	}

	result.Enriched = result.SourcesOK > 0
	result.DurationMs = time.Since(started).Milliseconds()

	run.Result = result
	run.Status = model.RunStatusComplete
	if !result.Enriched {
		result.FailureReason = "no source produced usable data"
		run.Status = model.RunStatusFailed
	}
	run.UpdatedAt = time.Now().UTC()

	c.processed.Add(1)
	if result.Enriched {
		c.enriched.Add(1)
	}

	zap.L().Info("run complete",
		zap.String("run_id", run.ID),
		zap.String("subject", subj.Name),
		zap.Bool("enriched", result.Enriched),
		zap.Int("sources_tried", result.SourcesTried),
		zap.Int("sources_ok", result.SourcesOK),
		zap.Float64("cost_usd", result.TotalCostUSD),
	)
	return run, nil
}

// EnrichBatch enriches subjects with bounded concurrency. The first
// context cancellation aborts the batch; per-subject enrichment failures
// do not. Runs come back in input order.
func (c *Coordinator) EnrichBatch(ctx context.Context, subjects []model.Subject) ([]*model.Run, error) {
	runs := make([]*model.Run, len(subjects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for idx, subj := range subjects {
		g.Go(func() error {
			run, err := c.Enrich(gctx, subj)
			runs[idx] = run
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return runs, err
	}
	return runs, nil
}
