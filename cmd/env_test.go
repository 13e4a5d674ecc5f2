//go:build !integration

package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadonfilm/enrich/internal/cache"
	"github.com/deadonfilm/enrich/internal/config"
	"github.com/deadonfilm/enrich/internal/cost"
	"github.com/deadonfilm/enrich/internal/fetch"
	"github.com/deadonfilm/enrich/internal/source"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", Path: filepath.Join(dir, "enrich.db")},
		Cache: config.CacheConfig{Backend: "memory", TTLHours: 1},
		Fetch: config.FetchConfig{MinDelayMs: 1, TimeoutSecs: 1},
		Batch: config.BatchConfig{MaxConcurrentSubjects: 2, CorroborationTarget: 2},
		Budget: cost.Budget{
			RunCapUSD:     1,
			SubjectCapUSD: 0.5,
		},
	}
}

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestInitStoreSQLite(t *testing.T) {
	withConfig(t, testConfig(t))

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Migrate(context.Background()))
}

func TestInitStoreUnknownDriver(t *testing.T) {
	c := testConfig(t)
	c.Store.Driver = "oracle"
	withConfig(t, c)

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestInitStorePostgresRequiresURL(t *testing.T) {
	c := testConfig(t)
	c.Store.Driver = "postgres"
	withConfig(t, c)

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url required")
}

func TestInitCacheBackends(t *testing.T) {
	c := testConfig(t)
	c.Cache.Backend = "memory"
	withConfig(t, c)

	qc, err := initCache(context.Background())
	require.NoError(t, err)
	defer qc.Close()
	assert.IsType(t, &cache.Memory{}, qc)

	c.Cache.Backend = "sqlite"
	c.Cache.Path = filepath.Join(t.TempDir(), "cache.db")
	qc2, err := initCache(context.Background())
	require.NoError(t, err)
	defer qc2.Close()
	assert.IsType(t, &cache.SQLite{}, qc2)

	c.Cache.Backend = "redis"
	_, err = initCache(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown cache backend")
}

func TestBuildSourcesFetcherPerSource(t *testing.T) {
	seen := make(map[*fetch.Fetcher]bool)
	newFetcher := func() *fetch.Fetcher {
		f := fetch.New(fetch.WithMinDelay(time.Millisecond))
		seen[f] = true
		return f
	}

	sources := buildSources(nil, cache.NewMemory(), nil, source.DefaultWebSearchConfig(), time.Hour, "", newFetcher)

	require.Len(t, sources, 5)
	assert.Len(t, seen, len(sources))
}

func TestInitEnv(t *testing.T) {
	withConfig(t, testConfig(t))

	env, err := initEnv(context.Background())
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Store)
	assert.NotNil(t, env.Cache)
	assert.NotNil(t, env.Coordinator)
	assert.Equal(t, int64(0), env.Coordinator.Progress().Queried)
}
