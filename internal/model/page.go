package model

import "time"

// SearchResult is a single hit from a search engine or search API.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
	Engine  string `json:"engine,omitempty"`
	Domain  string `json:"domain,omitempty"`
}

// FetchedPage is the raw retrieval outcome for one URL. It lives only for
// the duration of a single lookup.
type FetchedPage struct {
	URL           string        `json:"url"`
	Title         string        `json:"title,omitempty"`
	Content       string        `json:"content,omitempty"`
	ContentLength int           `json:"content_length"`
	FetchDuration time.Duration `json:"fetch_duration_ms"`
	FromArchive   bool          `json:"from_archive,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// OK reports whether the fetch produced usable content.
func (p FetchedPage) OK() bool {
	return p.Error == "" && p.Content != ""
}

// CleanedContent is the output of the mechanical extraction stage: plain
// text plus whatever metadata the structural heuristics could locate.
type CleanedContent struct {
	Text        string     `json:"text"`
	Title       string     `json:"title,omitempty"`
	Publication string     `json:"publication,omitempty"`
	Author      string     `json:"author,omitempty"`
	PublishDate *time.Time `json:"publish_date,omitempty"`
	// OriginalBytes is the raw page size before cleaning, kept so the
	// extraction stage can report how much markup was shed.
	OriginalBytes int `json:"original_bytes"`
}

// Relevance classifies how much biographical substance extracted content
// carries. Only medium and high may proceed to synthesis.
type Relevance string

const (
	RelevanceNone   Relevance = "none"
	RelevanceLow    Relevance = "low"
	RelevanceMedium Relevance = "medium"
	RelevanceHigh   Relevance = "high"
)

// ParseRelevance maps a free-form classifier answer onto a Relevance,
// defaulting to none for anything unrecognized.
func ParseRelevance(s string) Relevance {
	switch Relevance(s) {
	case RelevanceLow, RelevanceMedium, RelevanceHigh:
		return Relevance(s)
	default:
		return RelevanceNone
	}
}

// ExtractedContent is the AI-assisted extraction stage output.
type ExtractedContent struct {
	ExtractedText string     `json:"extracted_text,omitempty"`
	ArticleTitle  string     `json:"article_title,omitempty"`
	Publication   string     `json:"publication,omitempty"`
	Author        string     `json:"author,omitempty"`
	PublishDate   *time.Time `json:"publish_date,omitempty"`
	Relevance     Relevance  `json:"relevance"`
	ContentType   string     `json:"content_type,omitempty"`
	URL           string     `json:"url"`
	Domain        string     `json:"domain,omitempty"`
	OriginalBytes int        `json:"original_bytes"`
	CleanedBytes  int        `json:"cleaned_bytes"`
	CostUSD       float64    `json:"cost_usd"`
}
