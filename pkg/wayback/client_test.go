package wayback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosest_Found(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wayback/available", r.URL.Path)
		assert.Equal(t, "https://variety.com/obit", r.URL.Query().Get("url"))

		w.Write([]byte(`{
			"archived_snapshots": {
				"closest": {
					"url": "http://web.archive.org/web/20230101000000/https://variety.com/obit",
					"timestamp": "20230101000000",
					"status": "200",
					"available": true
				}
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	snap, err := client.Closest(context.Background(), "https://variety.com/obit")

	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Contains(t, snap.URL, "web.archive.org")
	assert.Equal(t, "20230101000000", snap.Timestamp)
}

func TestClosest_NoSnapshot(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"archived_snapshots": {}}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	snap, err := client.Closest(context.Background(), "https://example.com/never-archived")

	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestClosest_UnavailableSnapshot(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"archived_snapshots": {"closest": {"available": false}}}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	snap, err := client.Closest(context.Background(), "https://example.com")

	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestClosest_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Closest(context.Background(), "https://example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
