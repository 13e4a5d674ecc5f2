// Package source defines the DataSource contract and the concrete sources
// that look up death and biography data for a subject.
package source

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/deadonfilm/enrich/internal/cache"
	"github.com/deadonfilm/enrich/internal/model"
	"github.com/deadonfilm/enrich/internal/resilience"
)

// DataSource is one external provider of biographical/death data.
// Lookup returns a non-nil error only for blocked access
// (*resilience.BlockedError); every ordinary failure comes back as
// LookupResult{Success: false, Error: reason} with a nil error.
type DataSource interface {
	Name() string
	Type() model.SourceType
	IsFree() bool
	EstimatedCostPerQuery() float64
	ReliabilityTier() int
	IsAvailable() bool
	Lookup(ctx context.Context, subj model.Subject) (*model.LookupResult, error)
}

// DefaultCacheTTL is how long raw per-query results stay fresh.
// Biographical facts about the deceased rarely change.
const DefaultCacheTTL = 7 * 24 * time.Hour

// newEntry starts a provenance record for one query attempt.
func newEntry(sourceType model.SourceType, query string) model.SourceEntry {
	return model.SourceEntry{
		SourceType: sourceType,
		Query:      query,
		Timestamp:  time.Now().UTC(),
	}
}

// cachedLookup memoizes a lookup body in the query cache. Success and
// genuine negative outcomes (not found, no death section) are cached since
// both are deterministic for the same query within the TTL window. Blocked
// errors and failures minted from transient errors are never cached, so a
// network blip does not freeze a source as "failed" for the whole TTL.
func cachedLookup(
	ctx context.Context,
	store cache.Store,
	key string,
	ttl time.Duration,
	fn func() (*model.LookupResult, error),
) (*model.LookupResult, error) {
	if store != nil {
		entry, err := store.Get(ctx, key)
		if err != nil {
			zap.L().Warn("cache get failed", zap.String("key", key), zap.Error(err))
		} else if entry != nil {
			var cached model.LookupResult
			if err := json.Unmarshal(entry.Value, &cached); err == nil {
				cached.FromCache = true
				return &cached, nil
			}
			zap.L().Warn("cache entry corrupt", zap.String("key", key))
		}
	}

	result, err := fn()
	if err != nil {
		return nil, err
	}

	if store != nil && !result.Transient {
		if data, mErr := json.Marshal(result); mErr == nil {
			if sErr := store.Set(ctx, key, data, ttl); sErr != nil {
				zap.L().Warn("cache set failed", zap.String("key", key), zap.Error(sErr))
			}
		}
	}
	return result, nil
}

// softenTransient converts a non-blocked fetch error into a soft failure.
// Blocked errors pass through untouched. The result is marked transient
// so cachedLookup leaves the next attempt free to hit the network.
func softenTransient(entry model.SourceEntry, err error) (*model.LookupResult, error) {
	if resilience.IsBlocked(err) {
		return nil, err
	}
	result := model.Failed(entry, err.Error())
	result.Transient = true
	return result, nil
}
