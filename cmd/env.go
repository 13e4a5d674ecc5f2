package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/deadonfilm/enrich/internal/cache"
	"github.com/deadonfilm/enrich/internal/content"
	"github.com/deadonfilm/enrich/internal/cost"
	"github.com/deadonfilm/enrich/internal/fetch"
	"github.com/deadonfilm/enrich/internal/orch"
	"github.com/deadonfilm/enrich/internal/ranking"
	"github.com/deadonfilm/enrich/internal/source"
	"github.com/deadonfilm/enrich/internal/store"
	anthropicpkg "github.com/deadonfilm/enrich/pkg/anthropic"
	"github.com/deadonfilm/enrich/pkg/jina"
	"github.com/deadonfilm/enrich/pkg/perplexity"
	"github.com/deadonfilm/enrich/pkg/wayback"
)

// enrichEnv holds the initialized store, cache, and coordinator shared by
// the enrich/batch/serve commands.
type enrichEnv struct {
	Store       store.Store
	Cache       cache.Store
	Coordinator *orch.Coordinator
}

// Close releases resources held by the environment.
func (e *enrichEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv sets up the store, query cache, API clients, all data sources,
// and the coordinator. Callers should defer env.Close().
func initEnv(ctx context.Context) (*enrichEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	qc, err := initCache(ctx)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	jinaOpts := []jina.Option{}
	if cfg.Jina.BaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithBaseURL(cfg.Jina.BaseURL))
	}
	if cfg.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	jinaClient := jina.NewClient(cfg.Jina.Key, jinaOpts...)

	fetchOpts := []fetch.Option{
		fetch.WithMinDelay(time.Duration(cfg.Fetch.MinDelayMs) * time.Millisecond),
		fetch.WithTimeout(time.Duration(cfg.Fetch.TimeoutSecs) * time.Second),
	}
	if cfg.Fetch.UserAgent != "" {
		fetchOpts = append(fetchOpts, fetch.WithUserAgent(cfg.Fetch.UserAgent))
	}
	if cfg.Fetch.ArchiveEnabled {
		fetchOpts = append(fetchOpts, fetch.WithArchive(wayback.NewClient()))
	}
	// Each source gets its own Fetcher so the politeness delay serializes
	// per target site, never across sources or batch subjects.
	newFetcher := func() *fetch.Fetcher { return fetch.New(fetchOpts...) }

	// Without an API key the web-search sources fall back to heuristic
	// cleaning only.
	var extractor content.Extractor
	if cfg.Search.AIExtraction && cfg.Anthropic.Key != "" {
		anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
		extractor = content.NewAIExtractor(anthropicClient, content.WithModel(cfg.Anthropic.HaikuModel))
		zap.L().Info("ai extraction enabled", zap.String("model", cfg.Anthropic.HaikuModel))
	}

	searchCfg := source.DefaultWebSearchConfig()
	if cfg.Search.MaxLinks > 0 {
		searchCfg.MaxLinks = cfg.Search.MaxLinks
	}
	searchCfg.AIExtraction = cfg.Search.AIExtraction
	if cfg.Search.RankingPath != "" {
		rc, err := ranking.LoadConfig(cfg.Search.RankingPath)
		if err != nil {
			zap.L().Warn("ranking config not loaded, using defaults", zap.Error(err))
		} else {
			searchCfg.Ranking = rc
		}
	}

	ttl := source.DefaultCacheTTL
	if cfg.Cache.TTLHours > 0 {
		ttl = time.Duration(cfg.Cache.TTLHours) * time.Hour
	}

	sources := buildSources(jinaClient, qc, extractor, searchCfg, ttl, cfg.Search.TradeDomainSite, newFetcher)

	if cfg.Perplexity.Key != "" {
		pplxOpts := []perplexity.Option{perplexity.WithModel(cfg.Perplexity.Model)}
		if cfg.Perplexity.BaseURL != "" {
			pplxOpts = append(pplxOpts, perplexity.WithBaseURL(cfg.Perplexity.BaseURL))
		}
		pplxClient := perplexity.NewClient(cfg.Perplexity.Key, pplxOpts...)
		costPerQuery := cfg.Perplexity.CostPerQuery
		if costPerQuery <= 0 {
			costPerQuery = cost.NewCalculator(cost.DefaultRates()).PerplexityQuery()
		}
		pplx := source.NewPerplexity(pplxClient, qc, costPerQuery)
		pplx.SetCacheTTL(ttl)
		sources = append(sources, pplx)
	} else {
		zap.L().Debug("DEADONFILM_PERPLEXITY_KEY not set, perplexity source disabled")
	}

	coord := orch.New(sources,
		orch.WithCorroborationTarget(cfg.Batch.CorroborationTarget),
		orch.WithBatchConcurrency(cfg.Batch.MaxConcurrentSubjects),
		orch.WithBudget(cfg.Budget),
	)

	return &enrichEnv{Store: st, Cache: qc, Coordinator: coord}, nil
}

// buildSources assembles the free fetching sources in cascade order.
// newFetcher is called once per source: every source owns its rate
// limiter, so a slow wikipedia page never delays an IBDB lookup.
func buildSources(jinaClient jina.Client, qc cache.Store, extractor content.Extractor, searchCfg source.WebSearchConfig, ttl time.Duration, tradeSite string, newFetcher func() *fetch.Fetcher) []source.DataSource {
	webSearch := source.NewWebSearch(jinaClient, newFetcher(), extractor, qc)
	webSearch.SetConfig(searchCfg)
	webSearch.SetCacheTTL(ttl)
	tradePress := source.NewTradePress(jinaClient, newFetcher(), extractor, qc)
	tradePress.SetConfig(searchCfg)
	tradePress.SetCacheTTL(ttl)
	if tradeSite != "" {
		tradePress.SetSiteFilter(tradeSite)
	}

	ibdb := source.NewIBDB(jinaClient, newFetcher(), qc)
	ibdb.SetCacheTTL(ttl)

	wikiOpts := []source.WikipediaOption{source.WithWikipediaCacheTTL(ttl)}
	if extractor != nil {
		wikiOpts = append(wikiOpts, source.WithWikipediaAIAssist(extractor))
	}

	return []source.DataSource{
		source.NewObituary(jinaClient, newFetcher(), qc, source.WithObituaryCacheTTL(ttl)),
		source.NewWikipedia(newFetcher(), qc, wikiOpts...),
		ibdb,
		webSearch,
		tradePress,
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store.database_url required for postgres driver")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	case "", "sqlite":
		return store.NewSQLite(cfg.Store.Path)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func initCache(ctx context.Context) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return cache.NewMemory(), nil
	case "postgres":
		if cfg.Cache.DatabaseURL == "" {
			return nil, eris.New("cache.database_url required for postgres backend")
		}
		return cache.NewPostgres(ctx, cfg.Cache.DatabaseURL)
	case "", "sqlite":
		return cache.NewSQLite(cfg.Cache.Path)
	default:
		return nil, eris.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
