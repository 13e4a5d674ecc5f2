package source

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadonfilm/enrich/internal/cache"
	"github.com/deadonfilm/enrich/internal/model"
	"github.com/deadonfilm/enrich/pkg/jina"
)

const cazaleObituary = `<!DOCTYPE html>
<html><head><title>John Cazale, Stage and Film Actor, Dies</title></head>
<body><article>
<p>John Cazale, the stage and film actor who appeared in five features,
every one of them nominated for best picture, died of lung cancer on
March 12, 1978 at Memorial Sloan Kettering hospital in New York.
He was 42. Cazale was engaged to Meryl Streep at the time of his death
and had completed his scenes for The Deer Hunter while gravely ill.</p>
</article></body></html>`

func TestObituaryNotDeceasedNoNetwork(t *testing.T) {
	t.Parallel()

	search := &stubSearch{
		searchFn: func(context.Context, string, ...jina.SearchOption) (*jina.SearchResponse, error) {
			t.Fatal("search must not be called for a living subject")
			return nil, nil
		},
	}
	src := NewObituary(search, quickFetcher(), nil)

	result, err := src.Lookup(context.Background(), model.Subject{Name: "Some Actor"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Actor is not deceased", result.Error)
	assert.Equal(t, int32(0), search.searchCalls.Load())
}

func TestObituaryLookup(t *testing.T) {
	t.Parallel()

	srv := newTestServer(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(cazaleObituary))
	})
	defer srv.Close()

	search := &stubSearch{
		searchFn: func(_ context.Context, query string, _ ...jina.SearchOption) (*jina.SearchResponse, error) {
			assert.Contains(t, query, "John Cazale")
			assert.Contains(t, query, "1978")
			return hitsOf(
				srv.URL+"/hub/obituaries",
				srv.URL+"/article/john-cazale-obituary",
			), nil
		},
	}
	src := NewObituary(search, quickFetcher(), cache.NewMemory())

	result, err := src.Lookup(context.Background(), model.Subject{
		Name:      "John Cazale",
		DeathYear: intPtr(1978),
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotNil(t, result.Data)
	assert.Equal(t, model.SourceTypeObituary, result.Data.SourceType)
	assert.Equal(t, model.TierWireNews, result.Data.ReliabilityTier)
	assert.Contains(t, result.Data.ExtractedText, "lung cancer")
	assert.Contains(t, result.Data.URL, "/article/")
	assert.Equal(t, "obituary", result.Data.ContentType)
}

func TestObituaryNoResults(t *testing.T) {
	t.Parallel()

	search := &stubSearch{
		searchFn: func(context.Context, string, ...jina.SearchOption) (*jina.SearchResponse, error) {
			return &jina.SearchResponse{Code: 200}, nil
		},
	}
	src := NewObituary(search, quickFetcher(), nil)

	result, err := src.Lookup(context.Background(), model.Subject{
		Name:      "Obscure Name",
		DeathYear: intPtr(1950),
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "No search results found", result.Error)
}

func TestObituaryArticleMissingSubject(t *testing.T) {
	t.Parallel()

	srv := newTestServer(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body><article><p>A story about someone else entirely,
		long enough to survive cleaning but never naming the person we want.</p></article></body></html>`))
	})
	defer srv.Close()

	search := &stubSearch{
		searchFn: func(context.Context, string, ...jina.SearchOption) (*jina.SearchResponse, error) {
			return hitsOf(srv.URL + "/article/wrong-story"), nil
		},
	}
	src := NewObituary(search, quickFetcher(), nil)

	result, err := src.Lookup(context.Background(), model.Subject{
		Name:      "Gwen Verdon",
		DeathYear: intPtr(2000),
	})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "Article does not mention subject", result.Error)
}

func TestObituaryCacheIdempotence(t *testing.T) {
	t.Parallel()

	srv := newTestServer(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(cazaleObituary))
	})
	defer srv.Close()

	search := &stubSearch{
		searchFn: func(context.Context, string, ...jina.SearchOption) (*jina.SearchResponse, error) {
			return hitsOf(srv.URL + "/article/john-cazale-obituary"), nil
		},
	}
	src := NewObituary(search, quickFetcher(), cache.NewMemory())
	subj := model.Subject{Name: "John Cazale", DeathYear: intPtr(1978)}

	first, err := src.Lookup(context.Background(), subj)
	require.NoError(t, err)
	require.True(t, first.Success)
	assert.False(t, first.FromCache)

	second, err := src.Lookup(context.Background(), subj)
	require.NoError(t, err)
	require.True(t, second.Success)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Data.ExtractedText, second.Data.ExtractedText)
	assert.Equal(t, int32(1), search.searchCalls.Load())
}

func TestMostSpecificObituaryURL(t *testing.T) {
	t.Parallel()

	article := jina.SearchResult{URL: "https://apnews.com/article/gwen-verdon-dies"}
	hub := jina.SearchResult{URL: "https://apnews.com/hub/obituaries"}
	tag := jina.SearchResult{URL: "https://apnews.com/tag/broadway"}
	other := jina.SearchResult{URL: "https://apnews.com/entertainment/verdon"}

	assert.Equal(t, article.URL, mostSpecificObituaryURL([]jina.SearchResult{hub, article}))
	assert.Equal(t, other.URL, mostSpecificObituaryURL([]jina.SearchResult{hub, tag, other}))
	assert.Empty(t, mostSpecificObituaryURL([]jina.SearchResult{hub, tag}))
}
