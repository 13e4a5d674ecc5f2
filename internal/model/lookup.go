package model

import "time"

// SourceType identifies a data source implementation.
type SourceType string

const (
	SourceTypeWikipedia  SourceType = "wikipedia"
	SourceTypeObituary   SourceType = "ap_news"
	SourceTypeIBDB       SourceType = "ibdb"
	SourceTypeTradePress SourceType = "trade_press"
	SourceTypeWebSearch  SourceType = "web_search"
	SourceTypePerplexity SourceType = "perplexity"
)

// Reliability tiers, ordered: lower is more reliable. Wire-service news
// outranks reference encyclopedias, which outrank search aggregators, which
// outrank social/forum content.
const (
	TierWireNews     = 1
	TierEncyclopedia = 2
	TierAggregator   = 3
	TierSocial       = 4
)

// RawSourceData is the per-source enrichment payload returned on success.
type RawSourceData struct {
	SourceName       string     `json:"source_name"`
	SourceType       SourceType `json:"source_type"`
	ExtractedText    string     `json:"extracted_text"`
	Circumstances    *string    `json:"circumstances,omitempty"` // some sources structurally cannot provide this
	NotableFactors   []string   `json:"notable_factors,omitempty"`
	Confidence       float64    `json:"confidence"`
	ReliabilityTier  int        `json:"reliability_tier"`
	ReliabilityScore float64    `json:"reliability_score"`
	URL              string     `json:"url,omitempty"`
	Publication      string     `json:"publication,omitempty"`
	Domain           string     `json:"domain,omitempty"`
	ContentType      string     `json:"content_type,omitempty"`
	CostUSD          float64    `json:"cost_usd,omitempty"`
}

// SourceEntry is the provenance record attached to every lookup attempt,
// success or failure, so callers can audit what was tried.
type SourceEntry struct {
	SourceType SourceType     `json:"source_type"`
	Confidence float64        `json:"confidence"`
	Timestamp  time.Time      `json:"timestamp"`
	Query      string         `json:"query,omitempty"`
	URL        string         `json:"url,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// LookupResult is the discriminated outcome of a single source lookup.
// Success=false implies Data==nil; Source is always populated.
type LookupResult struct {
	Success   bool           `json:"success"`
	Data      *RawSourceData `json:"data,omitempty"`
	Source    SourceEntry    `json:"source"`
	Error     string         `json:"error,omitempty"`
	FromCache bool           `json:"from_cache,omitempty"`

	// Transient marks a failure minted from a network or timeout error
	// rather than a genuine negative outcome. Transient failures are
	// never written to the query cache.
	Transient bool `json:"-"`
}

// Failed builds a well-formed negative outcome for a lookup.
func Failed(entry SourceEntry, reason string) *LookupResult {
	return &LookupResult{Success: false, Source: entry, Error: reason}
}

// Succeeded builds a successful outcome carrying the enrichment payload.
func Succeeded(entry SourceEntry, data *RawSourceData) *LookupResult {
	entry.Confidence = data.Confidence
	return &LookupResult{Success: true, Data: data, Source: entry}
}
