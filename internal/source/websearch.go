package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deadonfilm/enrich/internal/cache"
	"github.com/deadonfilm/enrich/internal/content"
	"github.com/deadonfilm/enrich/internal/fetch"
	"github.com/deadonfilm/enrich/internal/model"
	"github.com/deadonfilm/enrich/internal/ranking"
	"github.com/deadonfilm/enrich/internal/resilience"
	"github.com/deadonfilm/enrich/pkg/jina"
)

// WebSearchConfig holds the per-source tunables.
type WebSearchConfig struct {
	MaxLinks     int
	AIExtraction bool
	Ranking      ranking.Config
}

// DefaultWebSearchConfig returns the documented defaults: follow up to 3
// links, AI extraction off, built-in ranking tables.
func DefaultWebSearchConfig() WebSearchConfig {
	return WebSearchConfig{
		MaxLinks:     3,
		AIExtraction: false,
		Ranking:      ranking.DefaultConfig(),
	}
}

// WebSearch queries a search API, ranks the hits for biographical signal,
// and extracts content from the best pages. With a site filter it doubles
// as the trade-press source.
type WebSearch struct {
	name       string
	sourceType model.SourceType
	tier       int
	relScore   float64
	siteFilter string

	search    jina.Client
	fetcher   *fetch.Fetcher
	extractor content.Extractor
	store     cache.Store
	ttl       time.Duration

	mu  sync.RWMutex
	cfg WebSearchConfig
}

// NewWebSearch creates the general web-search source.
func NewWebSearch(search jina.Client, fetcher *fetch.Fetcher, extractor content.Extractor, store cache.Store) *WebSearch {
	return &WebSearch{
		name:       "web_search",
		sourceType: model.SourceTypeWebSearch,
		tier:       model.TierAggregator,
		relScore:   0.55,
		search:     search,
		fetcher:    fetcher,
		extractor:  extractor,
		store:      store,
		ttl:        DefaultCacheTTL,
		cfg:        DefaultWebSearchConfig(),
	}
}

// NewTradePress creates a web-search source locked to an entertainment
// trade domain. Trade press ranks below biography-focused sites but above
// social media.
func NewTradePress(search jina.Client, fetcher *fetch.Fetcher, extractor content.Extractor, store cache.Store) *WebSearch {
	s := NewWebSearch(search, fetcher, extractor, store)
	s.name = "trade_press"
	s.sourceType = model.SourceTypeTradePress
	s.relScore = 0.6
	s.siteFilter = "variety.com"
	return s
}

func (s *WebSearch) Name() string                   { return s.name }
func (s *WebSearch) Type() model.SourceType         { return s.sourceType }
func (s *WebSearch) IsFree() bool                   { return true }
func (s *WebSearch) EstimatedCostPerQuery() float64 { return 0 }
func (s *WebSearch) ReliabilityTier() int           { return s.tier }
func (s *WebSearch) IsAvailable() bool              { return s.search != nil && s.fetcher != nil }

// SetSiteFilter restricts searches to a single domain. Call before the
// first Lookup.
func (s *WebSearch) SetSiteFilter(domain string) {
	s.siteFilter = domain
}

// SetCacheTTL overrides the cache TTL. Call before the first Lookup.
func (s *WebSearch) SetCacheTTL(ttl time.Duration) {
	s.ttl = ttl
}

// SetConfig replaces the per-source tunables.
func (s *WebSearch) SetConfig(cfg WebSearchConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Config returns the current tunables.
func (s *WebSearch) Config() WebSearchConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *WebSearch) Lookup(ctx context.Context, subj model.Subject) (*model.LookupResult, error) {
	cfg := s.Config()

	query := fmt.Sprintf("%s cause of death", subj.Name)
	if subj.DeathYear != nil {
		query = fmt.Sprintf("%s death %d", subj.Name, *subj.DeathYear)
	}
	entry := newEntry(s.sourceType, query)
	key := cache.Key(s.sourceType, query, s.siteFilter)

	return cachedLookup(ctx, s.store, key, s.ttl, func() (*model.LookupResult, error) {
		var searchOpts []jina.SearchOption
		if s.siteFilter != "" {
			searchOpts = append(searchOpts, jina.WithSiteFilter(s.siteFilter))
		}
		resp, err := s.search.Search(ctx, query, searchOpts...)
		if err != nil {
			return softenTransient(entry, err)
		}
		if len(resp.Data) == 0 {
			return model.Failed(entry, "No search results found"), nil
		}

		results := toSearchResults(resp.Data)
		links := cfg.Ranking.SelectBiographyLinks(results, cfg.MaxLinks)
		if len(links) == 0 {
			return model.Failed(entry, "No search results found"), nil
		}

		pages, blockedErr := s.fetchAll(ctx, links)
		if len(pages) == 0 {
			if blockedErr != nil {
				return nil, blockedErr
			}
			return model.Failed(entry, "Failed to fetch any pages"), nil
		}

		best, costUSD, err := s.selectBest(ctx, subj, pages, cfg)
		if err != nil {
			return softenTransient(entry, err)
		}
		if best == nil {
			return model.Failed(entry, "No biographical content"), nil
		}

		entry.URL = best.url
		data := &model.RawSourceData{
			SourceName:       s.name,
			SourceType:       s.sourceType,
			ExtractedText:    best.text,
			Confidence:       best.confidence,
			ReliabilityTier:  s.tier,
			ReliabilityScore: s.relScore,
			URL:              best.url,
			Publication:      best.publication,
			Domain:           hostOf(best.url),
			ContentType:      best.contentType,
			CostUSD:          costUSD,
		}
		return model.Succeeded(entry, data), nil
	})
}

type candidatePage struct {
	url         string
	text        string
	publication string
	contentType string
	rawBytes    int
	confidence  float64
	relevance   model.Relevance
}

// fetchAll retrieves each link in isolation. One blocked page does not
// poison the rest; the first block is remembered and surfaced only when
// nothing else was fetchable.
func (s *WebSearch) fetchAll(ctx context.Context, links []string) ([]candidatePage, error) {
	var pages []candidatePage
	var blockedErr error

	for _, link := range links {
		page, err := s.fetcher.Fetch(ctx, link)
		if err != nil {
			if resilience.IsBlocked(err) && blockedErr == nil {
				blockedErr = err
			}
			zap.L().Debug("web search page failed",
				zap.String("url", link), zap.Error(err))
			continue
		}
		if !page.OK() {
			continue
		}

		cleaned := content.Clean([]byte(page.Content))
		if cleaned.Text == "" {
			continue
		}
		pages = append(pages, candidatePage{
			url:         link,
			text:        cleaned.Text,
			publication: cleaned.Publication,
			rawBytes:    cleaned.OriginalBytes,
			confidence:  0.5,
		})
	}
	return pages, blockedErr
}

// selectBest filters career-heavy pages, optionally runs AI extraction as
// a relevance gate, and picks the strongest remaining page.
func (s *WebSearch) selectBest(ctx context.Context, subj model.Subject, pages []candidatePage, cfg WebSearchConfig) (*candidatePage, float64, error) {
	var best *candidatePage
	var totalCost float64

	for idx := range pages {
		page := &pages[idx]
		if content.IsCareerHeavy(page.text) {
			continue
		}

		if cfg.AIExtraction && s.extractor != nil {
			extracted, err := s.extractor.Extract(ctx, subj.Name, page.url, model.CleanedContent{
				Text:          page.text,
				Publication:   page.publication,
				OriginalBytes: page.rawBytes,
			})
			if err != nil {
				return nil, totalCost, err
			}
			totalCost += extracted.CostUSD
			if !content.ShouldPassToSynthesis(extracted.Relevance) {
				continue
			}
			page.text = extracted.ExtractedText
			page.publication = firstNonEmptyStr(extracted.Publication, page.publication)
			page.contentType = extracted.ContentType
			page.relevance = extracted.Relevance
			page.confidence = 0.7
			if extracted.Relevance == model.RelevanceHigh {
				page.confidence = 0.8
			}
		}

		if best == nil || betterCandidate(page, best) {
			best = page
		}
	}
	return best, totalCost, nil
}

// betterCandidate prefers higher relevance, then longer text.
func betterCandidate(a, b *candidatePage) bool {
	if a.relevance != b.relevance {
		return relevanceRank(a.relevance) > relevanceRank(b.relevance)
	}
	return len(a.text) > len(b.text)
}

func relevanceRank(r model.Relevance) int {
	switch r {
	case model.RelevanceHigh:
		return 3
	case model.RelevanceMedium:
		return 2
	case model.RelevanceLow:
		return 1
	default:
		return 0
	}
}

func toSearchResults(hits []jina.SearchResult) []model.SearchResult {
	out := make([]model.SearchResult, len(hits))
	for i, h := range hits {
		out[i] = model.SearchResult{
			Title:   h.Title,
			URL:     h.URL,
			Snippet: firstNonEmptyStr(h.Description, h.Content),
			Engine:  "jina",
			Domain:  hostOf(h.URL),
		}
	}
	return out
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
