package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/deadonfilm/enrich/internal/fetch"
	"github.com/deadonfilm/enrich/internal/resilience"
	"github.com/deadonfilm/enrich/pkg/jina"
)

// stubSearch is a jina.Client double driven by function fields. Call
// counters let tests assert on network behavior.
type stubSearch struct {
	searchFn    func(ctx context.Context, query string, opts ...jina.SearchOption) (*jina.SearchResponse, error)
	readFn      func(ctx context.Context, targetURL string) (*jina.ReadResponse, error)
	searchCalls atomic.Int32
}

func (s *stubSearch) Search(ctx context.Context, query string, opts ...jina.SearchOption) (*jina.SearchResponse, error) {
	s.searchCalls.Add(1)
	if s.searchFn == nil {
		return &jina.SearchResponse{}, nil
	}
	return s.searchFn(ctx, query, opts...)
}

func (s *stubSearch) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	if s.readFn == nil {
		return &jina.ReadResponse{}, nil
	}
	return s.readFn(ctx, targetURL)
}

func hitsOf(urls ...string) *jina.SearchResponse {
	resp := &jina.SearchResponse{Code: 200}
	for _, u := range urls {
		resp.Data = append(resp.Data, jina.SearchResult{URL: u, Title: u})
	}
	return resp
}

// quickFetcher builds a Fetcher with a negligible politeness delay and
// millisecond retry backoff.
func quickFetcher(opts ...fetch.Option) *fetch.Fetcher {
	return fetch.New(append([]fetch.Option{
		fetch.WithMinDelay(time.Millisecond),
		fetch.WithTimeout(2 * time.Second),
		fetch.WithRetry(resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		}),
	}, opts...)...)
}

func newTestServer(handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(handler)
}

func intPtr(n int) *int { return &n }
