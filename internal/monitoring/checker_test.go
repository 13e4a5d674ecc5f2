package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/deadonfilm/enrich/internal/config"
)

func TestCheckerStopsOnCancel(t *testing.T) {
	t.Parallel()

	st := newStore(t)
	cfg := config.MonitoringConfig{CheckIntervalSecs: 1, LookbackWindowHours: 1}
	checker := NewChecker(NewCollector(st), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("checker did not stop after cancellation")
	}
}
