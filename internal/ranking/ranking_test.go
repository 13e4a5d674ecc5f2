package ranking

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadonfilm/enrich/internal/model"
)

func TestSelectBiographyLinks_DropsBlocklistedDomains(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	results := []model.SearchResult{
		{Title: "Clips", URL: "https://www.youtube.com/watch?v=abc"},
		{Title: "Fan page", URL: "https://facebook.com/fans"},
		{Title: "Biography", URL: "https://en.wikipedia.org/wiki/Alan_Ladd"},
	}

	got := cfg.SelectBiographyLinks(results, 10)
	require.Len(t, got, 1)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Alan_Ladd", got[0])
}

func TestSelectBiographyLinks_AllBlocklistedIsEmpty(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	results := []model.SearchResult{
		{URL: "https://twitter.com/someone"},
		{URL: "https://shop.amazon.com/memorabilia"},
	}

	got := cfg.SelectBiographyLinks(results, 5)
	assert.Empty(t, got)
}

func TestSelectBiographyLinks_DomainOrdering(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	results := []model.SearchResult{
		{Title: "Cast listing", URL: "https://www.imdb.com/name/nm0000012"},
		{Title: "Trade story", URL: "https://variety.com/2020/film/news/story"},
		{Title: "News obituary", URL: "https://www.nytimes.com/obituaries/story"},
		{Title: "Reference article", URL: "https://www.biography.com/actors/someone"},
	}

	got := cfg.SelectBiographyLinks(results, 10)
	require.Len(t, got, 4)
	// biography > news > trade press > cast database
	assert.Contains(t, got[0], "biography.com")
	assert.Contains(t, got[1], "nytimes.com")
	assert.Contains(t, got[2], "variety.com")
	assert.Contains(t, got[3], "imdb.com")
}

func TestSelectBiographyLinks_KeywordBoostBreaksEquality(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	results := []model.SearchResult{
		{Title: "Filmography of a star", URL: "https://example.org/a"},
		{Title: "His childhood and family", URL: "https://example.net/b"},
	}

	got := cfg.SelectBiographyLinks(results, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.net/b", got[0], "biography keywords outrank an otherwise-equal result")
}

func TestSelectBiographyLinks_TiesKeepEngineOrder(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	results := []model.SearchResult{
		{Title: "First", URL: "https://example.org/first"},
		{Title: "Second", URL: "https://example.com/second"},
	}

	got := cfg.SelectBiographyLinks(results, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.org/first", got[0])
}

func TestSelectBiographyLinks_Truncates(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	results := []model.SearchResult{
		{URL: "https://one.example.org/"},
		{URL: "https://two.example.org/"},
		{URL: "https://three.example.org/"},
	}

	assert.Len(t, cfg.SelectBiographyLinks(results, 2), 2)
}

func TestSelectBiographyLinks_SubdomainInheritsParentScore(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, cfg.DomainScores["wikipedia.org"], cfg.domainScore("de.wikipedia.org"))
	assert.True(t, cfg.isBlocklisted("m.facebook.com"))
}

func TestLoadConfig_OverridesAndDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ranking.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
blocklist:
  - badsite.example
keyword_boost: 5
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"badsite.example"}, cfg.Blocklist)
	assert.InDelta(t, 5.0, cfg.KeywordBoost, 1e-9)
	assert.NotEmpty(t, cfg.DomainScores, "unset tables keep defaults")
	assert.NotEmpty(t, cfg.BiographyKeywords)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig("/nonexistent/ranking.yaml")
	require.Error(t, err)
}
