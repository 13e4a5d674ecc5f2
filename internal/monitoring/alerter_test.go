package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadonfilm/enrich/internal/config"
)

func snapshot() *MetricsSnapshot {
	return &MetricsSnapshot{
		RunsTotal:     10,
		RunsComplete:  5,
		RunsFailed:    5,
		FailRate:      0.5,
		BlockedTotal:  4,
		BlockRate:     0.4,
		TotalCostUSD:  12.50,
		LookbackHours: 24,
		CollectedAt:   time.Now().UTC(),
	}
}

func TestAlerterEvaluateTriggersAll(t *testing.T) {
	t.Parallel()

	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.3,
		BlockRateThreshold:   0.3,
		CostThresholdUSD:     10,
	})

	alerts := a.Evaluate(snapshot())
	require.Len(t, alerts, 3)

	types := map[AlertType]bool{}
	for _, al := range alerts {
		types[al.Type] = true
		assert.NotEmpty(t, al.Message)
		assert.False(t, al.Timestamp.IsZero())
	}
	assert.True(t, types[AlertFailureRate])
	assert.True(t, types[AlertBlockRate])
	assert.True(t, types[AlertCostOverrun])
}

func TestAlerterEvaluateQuietUnderThresholds(t *testing.T) {
	t.Parallel()

	a := NewAlerter(config.MonitoringConfig{
		FailureRateThreshold: 0.9,
		BlockRateThreshold:   0.9,
		CostThresholdUSD:     100,
	})
	assert.Empty(t, a.Evaluate(snapshot()))
}

func TestAlerterEvaluateSkipsSmallSample(t *testing.T) {
	t.Parallel()

	snap := snapshot()
	snap.RunsComplete = 1
	snap.RunsFailed = 1
	snap.FailRate = 0.5

	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.3})
	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerterSendAlerts(t *testing.T) {
	t.Parallel()

	var received []Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var al Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&al))
		received = append(received, al)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{
		WebhookURL:           srv.URL,
		FailureRateThreshold: 0.3,
	})

	alerts := a.Evaluate(snapshot())
	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, len(alerts), sent)
	assert.Len(t, received, len(alerts))
}

func TestAlerterSendAlertsNoWebhook(t *testing.T) {
	t.Parallel()

	a := NewAlerter(config.MonitoringConfig{FailureRateThreshold: 0.3})
	assert.Zero(t, a.SendAlerts(context.Background(), a.Evaluate(snapshot())))
}

func TestAlerterSendAlertsWebhookError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewAlerter(config.MonitoringConfig{
		WebhookURL:           srv.URL,
		FailureRateThreshold: 0.3,
	})
	assert.Zero(t, a.SendAlerts(context.Background(), a.Evaluate(snapshot())))
}
