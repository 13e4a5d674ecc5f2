// Package wayback provides a client for the web.archive.org availability
// API, used to locate archived snapshots of pages that block direct access.
package wayback

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://archive.org"

// Client looks up archived snapshots.
type Client interface {
	// Closest returns the closest available snapshot for the URL, or
	// nil when the archive has none.
	Closest(ctx context.Context, targetURL string) (*Snapshot, error)
}

// Snapshot describes one archived capture.
type Snapshot struct {
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	Available bool   `json:"available"`
}

type availabilityResponse struct {
	ArchivedSnapshots struct {
		Closest *Snapshot `json:"closest"`
	} `json:"archived_snapshots"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a wayback availability client. No API key is needed.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Closest(ctx context.Context, targetURL string) (*Snapshot, error) {
	reqURL := c.baseURL + "/wayback/available?url=" + url.QueryEscape(targetURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "wayback: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "wayback: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "wayback: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("wayback: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result availabilityResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "wayback: unmarshal response")
	}

	closest := result.ArchivedSnapshots.Closest
	if closest == nil || !closest.Available || closest.URL == "" {
		return nil, nil
	}
	return closest, nil
}
