// Package ranking orders web-search results by how likely they are to
// carry biographical substance. The mechanism is fixed (blocklist, domain
// score, keyword boost, sort, truncate); the tables are configuration.
package ranking

import (
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/deadonfilm/enrich/internal/model"
)

// Config holds the ranking tables. All fields have working defaults; a
// YAML file can override any of them.
type Config struct {
	Blocklist         []string           `yaml:"blocklist"`
	DomainScores      map[string]float64 `yaml:"domain_scores"`
	DefaultScore      float64            `yaml:"default_score"`
	BiographyKeywords []string           `yaml:"biography_keywords"`
	KeywordBoost      float64            `yaml:"keyword_boost"`
}

// DefaultConfig returns the built-in tables. Biography-focused domains
// outrank quality news, which outranks entertainment trade press, which
// outranks cast databases. Social media and commerce are blocklisted.
func DefaultConfig() Config {
	return Config{
		Blocklist: []string{
			"facebook.com", "twitter.com", "x.com", "instagram.com",
			"tiktok.com", "pinterest.com", "reddit.com", "youtube.com",
			"amazon.com", "ebay.com", "etsy.com", "fandom.com",
		},
		DomainScores: map[string]float64{
			"en.wikipedia.org":       10,
			"wikipedia.org":          10,
			"britannica.com":         9,
			"biography.com":          9,
			"nytimes.com":            7,
			"apnews.com":             7,
			"washingtonpost.com":     7,
			"latimes.com":            7,
			"theguardian.com":        7,
			"bbc.com":                7,
			"variety.com":            5,
			"hollywoodreporter.com":  5,
			"deadline.com":           5,
			"ew.com":                 4,
			"imdb.com":               2,
			"ibdb.com":               2,
			"tcm.com":                3,
			"findagrave.com":         3,
		},
		DefaultScore: 1,
		BiographyKeywords: []string{
			"childhood", "family", "personal life", "before fame",
			"lesser-known", "early life", "biography",
		},
		KeywordBoost: 3,
	}
}

// LoadConfig reads a YAML override file, applying defaults for any table
// the file leaves empty.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, eris.Wrapf(err, "ranking: read config %s", path)
	}

	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, eris.Wrapf(err, "ranking: parse config %s", path)
	}

	def := DefaultConfig()
	if len(cfg.Blocklist) == 0 {
		cfg.Blocklist = def.Blocklist
	}
	if len(cfg.DomainScores) == 0 {
		cfg.DomainScores = def.DomainScores
	}
	if cfg.DefaultScore == 0 {
		cfg.DefaultScore = def.DefaultScore
	}
	if len(cfg.BiographyKeywords) == 0 {
		cfg.BiographyKeywords = def.BiographyKeywords
	}
	if cfg.KeywordBoost == 0 {
		cfg.KeywordBoost = def.KeywordBoost
	}
	return cfg, nil
}

// SelectBiographyLinks drops blocklisted domains, scores the rest, and
// returns the top max URLs sorted by score descending. Ties keep the
// original engine order. An empty slice is a valid outcome when every
// candidate is blocklisted.
func (c Config) SelectBiographyLinks(results []model.SearchResult, max int) []string {
	type scored struct {
		url   string
		score float64
	}

	candidates := make([]scored, 0, len(results))
	for _, r := range results {
		domain := r.Domain
		if domain == "" {
			domain = domainOf(r.URL)
		}
		if domain == "" || c.isBlocklisted(domain) {
			continue
		}

		score := c.domainScore(domain)
		if c.hasBiographyKeyword(r.Title) || c.hasBiographyKeyword(r.Snippet) {
			score += c.KeywordBoost
		}
		candidates = append(candidates, scored{url: r.URL, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}
	out := make([]string, len(candidates))
	for i, s := range candidates {
		out[i] = s.url
	}
	return out
}

func (c Config) isBlocklisted(domain string) bool {
	domain = strings.ToLower(domain)
	for _, b := range c.Blocklist {
		if domain == b || strings.HasSuffix(domain, "."+b) {
			return true
		}
	}
	return false
}

// domainScore checks the exact domain first, then the registrable parent
// so en.wikipedia.org inherits a wikipedia.org row.
func (c Config) domainScore(domain string) float64 {
	domain = strings.ToLower(domain)
	if score, ok := c.DomainScores[domain]; ok {
		return score
	}
	for cfgDomain, score := range c.DomainScores {
		if strings.HasSuffix(domain, "."+cfgDomain) {
			return score
		}
	}
	return c.DefaultScore
}

func (c Config) hasBiographyKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range c.BiographyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
