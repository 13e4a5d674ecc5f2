package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deadonfilm/enrich/internal/cache"
	"github.com/deadonfilm/enrich/internal/content"
	"github.com/deadonfilm/enrich/internal/fetch"
	"github.com/deadonfilm/enrich/internal/model"
	"github.com/deadonfilm/enrich/pkg/jina"
)

const apNewsDomain = "apnews.com"

// Obituary looks for a wire-service obituary on AP News. It is the most
// reliable source in the registry but only applies to subjects already
// known to be deceased.
type Obituary struct {
	search  jina.Client
	fetcher *fetch.Fetcher
	store   cache.Store
	ttl     time.Duration
}

// ObituaryOption configures the source.
type ObituaryOption func(*Obituary)

// WithObituaryCacheTTL overrides the query cache TTL.
func WithObituaryCacheTTL(ttl time.Duration) ObituaryOption {
	return func(o *Obituary) {
		o.ttl = ttl
	}
}

// NewObituary creates the source.
func NewObituary(search jina.Client, fetcher *fetch.Fetcher, store cache.Store, opts ...ObituaryOption) *Obituary {
	o := &Obituary{
		search:  search,
		fetcher: fetcher,
		store:   store,
		ttl:     DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Obituary) Name() string                   { return "ap_news" }
func (o *Obituary) Type() model.SourceType         { return model.SourceTypeObituary }
func (o *Obituary) IsFree() bool                   { return true }
func (o *Obituary) EstimatedCostPerQuery() float64 { return 0 }
func (o *Obituary) ReliabilityTier() int           { return model.TierWireNews }
func (o *Obituary) IsAvailable() bool              { return o.search != nil && o.fetcher != nil }

func (o *Obituary) Lookup(ctx context.Context, subj model.Subject) (*model.LookupResult, error) {
	// A living subject can have no obituary. Fail before any network I/O.
	if !subj.IsDeceased() {
		return model.Failed(newEntry(model.SourceTypeObituary, ""), "Actor is not deceased"), nil
	}

	query := fmt.Sprintf("%s obituary died %d", subj.Name, *subj.DeathYear)
	entry := newEntry(model.SourceTypeObituary, query)
	key := cache.Key(model.SourceTypeObituary, query, apNewsDomain)

	return cachedLookup(ctx, o.store, key, o.ttl, func() (*model.LookupResult, error) {
		resp, err := o.search.Search(ctx, query, jina.WithSiteFilter(apNewsDomain))
		if err != nil {
			return softenTransient(entry, err)
		}
		if len(resp.Data) == 0 {
			return model.Failed(entry, "No search results found"), nil
		}

		best := mostSpecificObituaryURL(resp.Data)
		if best == "" {
			return model.Failed(entry, "No article link in results"), nil
		}
		entry.URL = best

		page, err := o.fetcher.Fetch(ctx, best)
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
		if !strings.Contains(normalizeName(cleaned.Title+" "+cleaned.Text), lastToken(subj.Name)) {
			return model.Failed(entry, "Article does not mention subject"), nil
		}

		data := &model.RawSourceData{
			SourceName:       o.Name(),
			SourceType:       model.SourceTypeObituary,
			ExtractedText:    cleaned.Text,
			Confidence:       0.85,
			ReliabilityTier:  model.TierWireNews,
			ReliabilityScore: 0.9,
			URL:              best,
			Publication:      firstNonEmptyStr(cleaned.Publication, "AP News"),
			Domain:           apNewsDomain,
			ContentType:      "obituary",
		}
		return model.Succeeded(entry, data), nil
	})
}

// mostSpecificObituaryURL prefers canonical article paths over hub, tag,
// and index pages.
func mostSpecificObituaryURL(results []jina.SearchResult) string {
	var fallback string
	for _, r := range results {
		lower := strings.ToLower(r.URL)
		if strings.Contains(lower, "/article/") {
			return r.URL
		}
		if fallback == "" && !strings.Contains(lower, "/hub/") && !strings.Contains(lower, "/tag/") {
			fallback = r.URL
		}
	}
	return fallback
}

func firstNonEmptyStr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
