package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/five82/appdeck/internal/state"
)

type pollLoop struct {
	key    PollKey
	ctx    context.Context
	cancel context.CancelFunc
	count  atomic.Int64
}

func (p *pollLoop) attempts() int {
	return int(p.count.Load())
}

func (c *Coordinator) newPollLoop(key PollKey) *pollLoop {
	ctx, cancel := context.WithCancel(c.ctx)
	return &pollLoop{key: key, ctx: ctx, cancel: cancel}
}

// run ticks until the completion predicate holds, the loop is cancelled, or
// the attempt or time budget runs out. Refresh failures are logged and
// retried on the next tick.
func (c *Coordinator) run(p *pollLoop) {
	defer c.wg.Done()
	defer p.cancel()

	log := c.logger.With(zap.String("app", p.key.ID), zap.Stringer("kind", p.key.Kind))
	started := c.clock.Now()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-c.clock.After(c.interval):
		}

		attempt := int(p.count.Add(1))
		done, err := c.check(p.ctx, p.key)
		if p.ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Warn("refresh failed; retrying next tick", zap.Int("attempt", attempt), zap.Error(err))
		}

		if done {
			c.finish(p, Result{Kind: p.key.Kind, Outcome: OutcomeCompleted, Attempts: attempt})
			log.Info("transition complete", zap.Int("attempts", attempt))
			return
		}

		if c.exhausted(attempt, started) {
			c.finish(p, Result{Kind: p.key.Kind, Outcome: OutcomeTimedOut, Attempts: attempt, Err: err})
			log.Warn("transition not observed; giving up",
				zap.Int("attempts", attempt),
				zap.Duration("elapsed", c.clock.Now().Sub(started)))
			return
		}
	}
}

func (c *Coordinator) exhausted(attempt int, started time.Time) bool {
	if c.maxAttempts > 0 && attempt >= c.maxAttempts {
		return true
	}
	return c.timeout > 0 && c.clock.Now().Sub(started) >= c.timeout
}

func (c *Coordinator) finish(p *pollLoop, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result.At = c.clock.Now()
	c.retire(p, result)
}

// check refreshes the view the kind depends on and evaluates its predicate.
func (c *Coordinator) check(ctx context.Context, key PollKey) (bool, error) {
	var err error
	switch key.Kind {
	case state.KindUpdate:
		err = c.catalog.RefreshCatalog(ctx)
	case state.KindInstall, state.KindUninstall:
		err = c.catalog.RefreshInstalled(ctx)
	default:
		return false, errors.New("unknown transition kind")
	}
	if err != nil {
		// The update predicate reads only the catalog, which is fresh even
		// when the installed list could not be fetched.
		var partial *state.PartialRefreshError
		if key.Kind != state.KindUpdate || !errors.As(err, &partial) {
			return false, err
		}
	}
	return Complete(key.Kind, c.catalog.Snapshot(), key.ID), err
}

// Complete reports whether the transition of kind for id has finished
// according to snap.
//
//   - install: id is in the installed list
//   - uninstall: id is not in the installed list
//   - update: id is not in the catalog, or its entry has no update available
func Complete(kind state.Kind, snap state.CatalogSnapshot, id string) bool {
	switch kind {
	case state.KindInstall:
		return snap.IsInstalled(id)
	case state.KindUninstall:
		return !snap.IsInstalled(id)
	case state.KindUpdate:
		entry, ok := snap.CatalogEntry(id)
		return !ok || !entry.UpdateAvailable
	default:
		return false
	}
}
