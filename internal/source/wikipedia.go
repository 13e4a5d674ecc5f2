package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/deadonfilm/enrich/internal/cache"
	"github.com/deadonfilm/enrich/internal/content"
	"github.com/deadonfilm/enrich/internal/fetch"
	"github.com/deadonfilm/enrich/internal/model"
)

const (
	wikipediaDefaultBaseURL = "https://en.wikipedia.org"
	wikipediaMinSectionLen  = 80
	wikipediaYearTolerance  = 1
	wikipediaMaxLinked      = 2
)

// roleQualifiers are the alternate-title candidates tried when the primary
// article turns out to be a disambiguation page.
var roleQualifiers = []string{"actor", "actress", "comedian", "director"}

// Wikipedia looks up the subject's encyclopedia article and extracts its
// death-related sections.
type Wikipedia struct {
	fetcher   *fetch.Fetcher
	store     cache.Store
	ttl       time.Duration
	baseURL   string
	extractor content.Extractor
	maxLinked int
}

// WikipediaOption configures the source.
type WikipediaOption func(*Wikipedia)

// WithWikipediaBaseURL overrides the site root (for testing).
func WithWikipediaBaseURL(base string) WikipediaOption {
	return func(w *Wikipedia) {
		w.baseURL = strings.TrimRight(base, "/")
	}
}

// WithWikipediaCacheTTL overrides the query cache TTL.
func WithWikipediaCacheTTL(ttl time.Duration) WikipediaOption {
	return func(w *Wikipedia) {
		w.ttl = ttl
	}
}

// WithWikipediaAIAssist enables the linked-article supplement: the
// extractor gates which section-linked articles contribute extra context.
func WithWikipediaAIAssist(extractor content.Extractor) WikipediaOption {
	return func(w *Wikipedia) {
		w.extractor = extractor
	}
}

// NewWikipedia creates the source. store may be nil to disable caching.
func NewWikipedia(fetcher *fetch.Fetcher, store cache.Store, opts ...WikipediaOption) *Wikipedia {
	w := &Wikipedia{
		fetcher:   fetcher,
		store:     store,
		ttl:       DefaultCacheTTL,
		baseURL:   wikipediaDefaultBaseURL,
		maxLinked: wikipediaMaxLinked,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Wikipedia) Name() string                   { return "wikipedia" }
func (w *Wikipedia) Type() model.SourceType         { return model.SourceTypeWikipedia }
func (w *Wikipedia) IsFree() bool                   { return true }
func (w *Wikipedia) EstimatedCostPerQuery() float64 { return 0 }
func (w *Wikipedia) ReliabilityTier() int           { return model.TierEncyclopedia }
func (w *Wikipedia) IsAvailable() bool              { return w.fetcher != nil }

// pageSummary is the subset of the REST summary endpoint we consume.
type pageSummary struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	Description string `json:"description"`
}

func (w *Wikipedia) Lookup(ctx context.Context, subj model.Subject) (*model.LookupResult, error) {
	entry := newEntry(model.SourceTypeWikipedia, subj.Name)
	key := cache.Key(model.SourceTypeWikipedia, subj.Name, "en.wikipedia.org")

	return cachedLookup(ctx, w.store, key, w.ttl, func() (*model.LookupResult, error) {
		title, err := w.resolveArticle(ctx, subj)
		if err != nil {
			return softenTransient(entry, err)
		}
		if title == "" {
			return model.Failed(entry, "Article not found"), nil
		}

		articleURL := w.baseURL + "/wiki/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
		entry.URL = articleURL

		page, err := w.fetcher.Fetch(ctx, articleURL)
		if err != nil {
			return nil, err
		}
		if !page.OK() {
			return model.Failed(entry, page.Error), nil
		}

		sections, linked, err := selectDeathSectionsWithLinks(page.Content)
		if err != nil {
			return model.Failed(entry, err.Error()), nil
		}
		if sections == "" {
			return model.Failed(entry, "No death section found"), nil
		}
		if len(sections) < wikipediaMinSectionLen {
			return model.Failed(entry, "No usable content"), nil
		}

		if extra := w.linkedContext(ctx, subj, linked); extra != "" {
			sections += "\n\n" + extra
		}

		data := &model.RawSourceData{
			SourceName:       w.Name(),
			SourceType:       model.SourceTypeWikipedia,
			ExtractedText:    sections,
			Confidence:       0.9,
			ReliabilityTier:  model.TierEncyclopedia,
			ReliabilityScore: 0.8,
			URL:              articleURL,
			Publication:      "Wikipedia",
			Domain:           "en.wikipedia.org",
			ContentType:      "encyclopedia",
		}
		return model.Succeeded(entry, data), nil
	})
}

// resolveArticle returns the canonical article title for the subject, or
// "" when no candidate validates. A disambiguation page triggers the
// alternate-candidate walk with birth/death year validation.
func (w *Wikipedia) resolveArticle(ctx context.Context, subj model.Subject) (string, error) {
	summary, err := w.fetchSummary(ctx, subj.Name)
	if err != nil {
		return "", err
	}
	if summary == nil {
		return "", nil
	}
	if summary.Type != "disambiguation" {
		return summary.Title, nil
	}

	zap.L().Debug("wikipedia disambiguation page",
		zap.String("subject", subj.Name),
	)
	for _, qualifier := range roleQualifiers {
		candidate := fmt.Sprintf("%s (%s)", subj.Name, qualifier)
		cs, err := w.fetchSummary(ctx, candidate)
		if err != nil {
			return "", err
		}
		if cs == nil || cs.Type == "disambiguation" {
			continue
		}
		birth, death := extractLifeYears(cs.Extract)
		if subj.YearsMatch(birth, death, wikipediaYearTolerance) {
			return cs.Title, nil
		}
	}
	return "", nil
}

// fetchSummary hits the REST summary endpoint. A 404 (unknown article)
// returns (nil, nil); blocked access propagates as an error.
func (w *Wikipedia) fetchSummary(ctx context.Context, title string) (*pageSummary, error) {
	summaryURL := w.baseURL + "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))

	page, err := w.fetcher.Fetch(ctx, summaryURL)
	if err != nil {
		return nil, err
	}
	if !page.OK() {
		if strings.Contains(page.Error, "404") {
			return nil, nil
		}
		return nil, fmt.Errorf("wikipedia summary: %s", page.Error)
	}

	var summary pageSummary
	if err := json.Unmarshal([]byte(page.Content), &summary); err != nil {
		return nil, fmt.Errorf("wikipedia summary: parse: %v", err)
	}
	return &summary, nil
}

// linkedContext fetches a bounded number of articles linked from the death
// sections and keeps the ones the extractor rates relevant. Any failure
// degrades to the main-article-only result.
func (w *Wikipedia) linkedContext(ctx context.Context, subj model.Subject, linked []string) string {
	if w.extractor == nil || len(linked) == 0 {
		return ""
	}
	if len(linked) > w.maxLinked {
		linked = linked[:w.maxLinked]
	}

	var parts []string
	for _, title := range linked {
		summary, err := w.fetchSummary(ctx, title)
		if err != nil || summary == nil || summary.Extract == "" {
			zap.L().Debug("linked article skipped",
				zap.String("title", title), zap.Error(err))
			continue
		}
		articleURL := w.baseURL + "/wiki/" + url.PathEscape(strings.ReplaceAll(summary.Title, " ", "_"))
		extracted, err := w.extractor.Extract(ctx, subj.Name, articleURL, model.CleanedContent{
			Text:          summary.Extract,
			Publication:   "Wikipedia",
			OriginalBytes: len(summary.Extract),
		})
		if err != nil || extracted == nil || !content.ShouldPassToSynthesis(extracted.Relevance) {
			continue
		}
		if extracted.ExtractedText != "" {
			parts = append(parts, extracted.ExtractedText)
		}
	}
	return strings.Join(parts, "\n\n")
}

// lifeYearsRe matches the "(1899–1957)" style parenthetical that leads
// most biographical intros.
var lifeYearsRe = regexp.MustCompile(`\((?:[^()]*?)?(\d{4})\s*[–—-]\s*(?:[^()]*?)?(\d{4})\)`)

// extractLifeYears pulls birth and death years from introductory text.
// Returns zeros when no year span is present.
func extractLifeYears(text string) (birth, death int) {
	m := lifeYearsRe.FindStringSubmatch(text)
	if len(m) != 3 {
		return 0, 0
	}
	birth, _ = strconv.Atoi(m[1])
	death, _ = strconv.Atoi(m[2])
	return birth, death
}

// deathHeadings are matched exactly against section headings, in priority
// order. deathPrefixes catch cause-specific and "Death of ..." headings.
var (
	deathHeadings = []string{
		"death",
		"assassination",
		"murder",
		"death and legacy",
		"illness and death",
		"final years and death",
		"plane crash",
		"car accident",
		"suicide",
		"disappearance and death",
	}
	deathPrefixes    = []string{"death ", "death,", "death:"}
	fallbackHeadings = []string{"personal life", "later years", "later life"}
)

func headingMatchesDeath(heading string) bool {
	h := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(heading, "[edit]")))
	for _, exact := range deathHeadings {
		if h == exact {
			return true
		}
	}
	for _, prefix := range deathPrefixes {
		if strings.HasPrefix(h, prefix) {
			return true
		}
	}
	return false
}

func headingMatchesFallback(heading string) bool {
	h := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(heading, "[edit]")))
	for _, f := range fallbackHeadings {
		if h == f {
			return true
		}
	}
	return false
}

// selectDeathSections concatenates the text of every death-relevant
// section in the article HTML, falling back to personal-life headings
// when nothing death-specific exists.
func selectDeathSections(html string) (string, error) {
	text, _, err := selectDeathSectionsWithLinks(html)
	return text, err
}

// selectDeathSectionsWithLinks additionally returns the titles of articles
// linked from within the matched sections, in document order.
func selectDeathSectionsWithLinks(html string) (string, []string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", nil, fmt.Errorf("wikipedia: parse article: %v", err)
	}

	collect := func(match func(string) bool) (string, []string) {
		var parts []string
		var linked []string
		seen := map[string]bool{}
		doc.Find("h2, h3").Each(func(_ int, h *goquery.Selection) {
			heading := h.Text()
			if headline := h.Find(".mw-headline"); headline.Length() > 0 {
				heading = headline.Text()
			}
			if !match(heading) {
				return
			}
			body := h.NextUntil("h2, h3")
			text := strings.TrimSpace(body.Text())
			if text != "" {
				parts = append(parts, text)
			}
			body.Find(`a[href^="/wiki/"]`).Each(func(_ int, a *goquery.Selection) {
				href, _ := a.Attr("href")
				title := strings.TrimPrefix(href, "/wiki/")
				if title == "" || strings.Contains(title, ":") || seen[title] {
					return
				}
				seen[title] = true
				if decoded, err := url.PathUnescape(title); err == nil {
					title = decoded
				}
				linked = append(linked, strings.ReplaceAll(title, "_", " "))
			})
		})
		return strings.TrimSpace(strings.Join(parts, "\n\n")), linked
	}

	if text, linked := collect(headingMatchesDeath); text != "" {
		return text, linked, nil
	}
	text, linked := collect(headingMatchesFallback)
	return text, linked, nil
}
