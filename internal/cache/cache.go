// Package cache provides the query cache used to memoize raw per-query
// fetch results across enrichment runs. Entries are keyed by source
// identity plus normalized query text, never by synthesis output.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/deadonfilm/enrich/internal/model"
)

// Entry is a cached raw fetch result.
type Entry struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store is the get/set contract for the query cache. Get returns (nil, nil)
// on a miss or an expired entry. Staleness within TTL is acceptable by
// design; biographical facts rarely change.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	PurgeExpired(ctx context.Context) (int, error)
	Close() error
}

// Key derives a cache key from the source type, the query, and an optional
// target domain. The query is normalized (lowercased, whitespace collapsed)
// so trivially different spellings hit the same entry.
func Key(sourceType model.SourceType, query, domain string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	h := sha256.Sum256([]byte(normalized + "|" + strings.ToLower(domain)))
	return string(sourceType) + ":" + hex.EncodeToString(h[:])
}
