package source

import (
	"context"
	"strings"
	"time"

	"github.com/deadonfilm/enrich/internal/cache"
	"github.com/deadonfilm/enrich/internal/content"
	"github.com/deadonfilm/enrich/internal/fetch"
	"github.com/deadonfilm/enrich/internal/model"
	"github.com/deadonfilm/enrich/pkg/jina"
)

const ibdbDomain = "ibdb.com"

// IBDB resolves the subject's Internet Broadway Database listing. Stage
// careers often carry death dates that film databases miss.
type IBDB struct {
	search  jina.Client
	fetcher *fetch.Fetcher
	store   cache.Store
	ttl     time.Duration
}

// NewIBDB creates the source.
func NewIBDB(search jina.Client, fetcher *fetch.Fetcher, store cache.Store) *IBDB {
	return &IBDB{
		search:  search,
		fetcher: fetcher,
		store:   store,
		ttl:     DefaultCacheTTL,
	}
}

// SetCacheTTL overrides the cache TTL. Call before the first Lookup.
func (i *IBDB) SetCacheTTL(ttl time.Duration) {
	i.ttl = ttl
}

func (i *IBDB) Name() string                   { return "ibdb" }
func (i *IBDB) Type() model.SourceType         { return model.SourceTypeIBDB }
func (i *IBDB) IsFree() bool                   { return true }
func (i *IBDB) EstimatedCostPerQuery() float64 { return 0 }
func (i *IBDB) ReliabilityTier() int           { return model.TierAggregator }
func (i *IBDB) IsAvailable() bool              { return i.search != nil && i.fetcher != nil }

func (i *IBDB) Lookup(ctx context.Context, subj model.Subject) (*model.LookupResult, error) {
	query := subj.Name + " Broadway"
	entry := newEntry(model.SourceTypeIBDB, query)
	key := cache.Key(model.SourceTypeIBDB, query, ibdbDomain)

	return cachedLookup(ctx, i.store, key, i.ttl, func() (*model.LookupResult, error) {
		resp, err := i.search.Search(ctx, query, jina.WithSiteFilter(ibdbDomain))
		if err != nil {
			return softenTransient(entry, err)
		}
		if len(resp.Data) == 0 {
			return model.Failed(entry, "No search results found"), nil
		}

		match := matchListing(resp.Data, subj.Name)
		if match == nil {
			return model.Failed(entry, "Person not found"), nil
		}
		entry.URL = match.URL

		page, err := i.fetcher.Fetch(ctx, match.URL)
		if err != nil {
			return nil, err
		}
		if !page.OK() {
			return model.Failed(entry, page.Error), nil
		}

		cleaned := content.Clean([]byte(page.Content))
		if cleaned.Text == "" {
			return model.Failed(entry, "No usable content"), nil
		}

		data := &model.RawSourceData{
			SourceName:       i.Name(),
			SourceType:       model.SourceTypeIBDB,
			ExtractedText:    cleaned.Text,
			Confidence:       0.6,
			ReliabilityTier:  model.TierAggregator,
			ReliabilityScore: 0.5,
			URL:              match.URL,
			Publication:      "Internet Broadway Database",
			Domain:           ibdbDomain,
			ContentType:      "cast_database",
		}
		return model.Succeeded(entry, data), nil
	})
}

// matchListing prefers an exact full-name match among candidate listings
// and falls back to surname matching when no exact listing exists.
func matchListing(results []jina.SearchResult, subjectName string) *jina.SearchResult {
	for idx, r := range results {
		if exactNameMatch(listingName(r.Title), subjectName) {
			return &results[idx]
		}
	}
	for idx, r := range results {
		if surnameMatch(listingName(r.Title), subjectName) {
			return &results[idx]
		}
	}
	return nil
}

// listingName strips the site suffix from a result title, e.g.
// "Gwen Verdon – Broadway Cast & Staff | IBDB" → "Gwen Verdon".
func listingName(title string) string {
	for _, sep := range []string{"–", "|", "-"} {
		if idx := strings.Index(title, sep); idx > 0 {
			return strings.TrimSpace(title[:idx])
		}
	}
	return strings.TrimSpace(title)
}
