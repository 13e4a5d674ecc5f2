// Package fetch retrieves single pages with per-instance politeness,
// block detection, and archive fallback.
package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/deadonfilm/enrich/internal/model"
	"github.com/deadonfilm/enrich/internal/resilience"
	"github.com/deadonfilm/enrich/pkg/wayback"
)

const (
	defaultMinDelay  = 2 * time.Second
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "Mozilla/5.0 (compatible; DeadOnFilmBot/1.0)"
	maxBodyBytes     = 1 << 20
)

// Fetcher performs one outbound GET at a time per instance. Consecutive
// requests are spaced by a minimum delay so each source stays polite with
// the site it scrapes.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	archive   wayback.Client
	userAgent string
	retry     resilience.RetryConfig
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMinDelay sets the minimum delay between consecutive requests.
func WithMinDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) {
		f.client = hc
	}
}

// WithArchive enables wayback snapshot fallback for blocked pages.
func WithArchive(c wayback.Client) Option {
	return func(f *Fetcher) {
		f.archive = c
	}
}

// WithUserAgent overrides the request User-Agent.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(f *Fetcher) {
		f.retry = cfg
	}
}

// New creates a Fetcher with sensible defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
		},
		limiter:   rate.NewLimiter(rate.Every(defaultMinDelay), 1),
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		retry:     resilience.DefaultRetryConfig(),
	}
	f.retry.OnRetry = resilience.RetryLogger("fetch", "get")
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves a URL. Network failures, timeouts, and HTTP error
// statuses come back as a FetchedPage with Error set and a nil error.
// The returned error is non-nil only when the page blocked us and no
// archive snapshot could stand in.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*model.FetchedPage, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetch: rate wait")
	}

	start := time.Now()
	body, resp, err := f.get(ctx, targetURL)
	elapsed := time.Since(start)

	if err != nil {
		return &model.FetchedPage{
			URL:           targetURL,
			FetchDuration: elapsed,
			Error:         err.Error(),
		}, nil
	}

	if blocked, blockType := resilience.DetectBlock(resp, body); blocked {
		zap.L().Warn("fetch blocked",
			zap.String("url", targetURL),
			zap.String("block_type", string(blockType)),
			zap.Int("status", resp.StatusCode),
		)
		if page := f.fetchArchived(ctx, targetURL); page != nil {
			page.FetchDuration = time.Since(start)
			return page, nil
		}
		return nil, &resilience.BlockedError{
			URL:        targetURL,
			BlockType:  blockType,
			StatusCode: resp.StatusCode,
		}
	}

	if resp.StatusCode >= 400 {
		return &model.FetchedPage{
			URL:           targetURL,
			FetchDuration: elapsed,
			Error:         "status " + resp.Status,
		}, nil
	}

	return &model.FetchedPage{
		URL:           targetURL,
		Title:         extractTitle(body),
		Content:       string(body),
		ContentLength: len(body),
		FetchDuration: elapsed,
	}, nil
}

type getResult struct {
	body []byte
	resp *http.Response
}

// get performs the GET, retrying transient network errors and retryable
// statuses per the configured policy. When retries exhaust on a retryable
// status the last response is returned so the caller surfaces the status
// as a soft failure rather than an opaque retry error.
func (f *Fetcher) get(ctx context.Context, targetURL string) ([]byte, *http.Response, error) {
	var last getResult
	res, err := resilience.DoVal(ctx, f.retry, func(ctx context.Context) (getResult, error) {
		body, resp, err := f.getOnce(ctx, targetURL)
		if err != nil {
			return getResult{}, err
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			last = getResult{body: body, resp: resp}
			return getResult{}, resilience.NewTransientError(eris.New("fetch: status "+resp.Status), resp.StatusCode)
		}
		return getResult{body: body, resp: resp}, nil
	})
	if err != nil {
		if last.resp != nil {
			return last.body, last.resp, nil
		}
		return nil, nil, err
	}
	return res.body, res.resp, nil
}

// getOnce performs a single GET with the per-request timeout applied.
func (f *Fetcher) getOnce(ctx context.Context, targetURL string) ([]byte, *http.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, eris.Wrap(err, "fetch: do request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, eris.Wrap(err, "fetch: read body")
	}
	return body, resp, nil
}

// fetchArchived tries the closest wayback snapshot for a blocked URL.
// Returns nil when no snapshot exists or the snapshot fetch fails; the
// caller then surfaces the original block.
func (f *Fetcher) fetchArchived(ctx context.Context, targetURL string) *model.FetchedPage {
	if f.archive == nil {
		return nil
	}

	snap, err := f.archive.Closest(ctx, targetURL)
	if err != nil || snap == nil {
		return nil
	}

	body, resp, err := f.get(ctx, snap.URL)
	if err != nil || resp.StatusCode >= 400 {
		return nil
	}

	zap.L().Info("fetch served from archive",
		zap.String("url", targetURL),
		zap.String("snapshot", snap.URL),
	)
	return &model.FetchedPage{
		URL:           targetURL,
		Title:         extractTitle(body),
		Content:       string(body),
		ContentLength: len(body),
		FromArchive:   true,
	}
}

var titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

func extractTitle(body []byte) string {
	m := titleRe.FindSubmatch(body)
	if len(m) > 1 {
		return strings.TrimSpace(string(m[1]))
	}
	return ""
}
