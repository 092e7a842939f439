package app

import (
	"context"
	"time"

	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/five82/appdeck/internal/state"
)

const (
	defaultRefreshInterval = 10 * time.Second
	maxBackoff             = 30 * time.Second
)

// StartRefresher launches a goroutine that keeps catalog current: it refreshes
// immediately and then every interval, backing off while the API is
// unreachable. The returned channel closes once the goroutine has exited after
// ctx is cancelled.
func StartRefresher(ctx context.Context, catalog *state.Catalog, clk clock.Clock, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	if clk == nil {
		clk = clock.WallClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			wait := interval
			if err := catalog.RefreshCatalog(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures := catalog.Snapshot().ConsecutiveFailures
				wait = calculateBackoff(failures, interval)
				logger.Warn("catalog refresh failed",
					zap.Int("failures", failures),
					zap.Duration("retry_in", wait),
					zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-clk.After(wait):
			}
		}
	}()
	return done
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
