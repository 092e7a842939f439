package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/five82/appdeck/internal/manager"
	"github.com/five82/appdeck/internal/state"
)

const waitShort = time.Second

// fakeAPI serves whatever the test last put in it. Tests only change it while
// every poll loop is parked on the clock, so each tick sees a known state.
type fakeAPI struct {
	mu           sync.Mutex
	installed    []manager.App
	catalog      []manager.App
	listErr      error
	writeErr     error
	gate         chan struct{}
	writes       []string
	installCalls int
	catalogCalls int
}

func (f *fakeAPI) setInstalled(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installed = nil
	for _, id := range ids {
		f.installed = append(f.installed, manager.App{ID: id, Name: id})
	}
}

func (f *fakeAPI) setCatalog(apps ...manager.App) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalog = apps
}

func (f *fakeAPI) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeAPI) ListInstalled(context.Context) ([]manager.App, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]manager.App{}, f.installed...), nil
}

func (f *fakeAPI) ListCatalog(context.Context) ([]manager.App, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalogCalls++
	return append([]manager.App{}, f.catalog...), nil
}

func (f *fakeAPI) Install(ctx context.Context, id string) error {
	return f.write(ctx, "install "+id)
}

func (f *fakeAPI) Uninstall(ctx context.Context, id string) error {
	return f.write(ctx, "uninstall "+id)
}

func (f *fakeAPI) Update(ctx context.Context, id string) error {
	return f.write(ctx, "update "+id)
}

func (f *fakeAPI) write(ctx context.Context, call string) error {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, call)
	return f.writeErr
}

func (f *fakeAPI) counts() (writes []string, installed, catalog int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...), f.installCalls, f.catalogCalls
}

type harness struct {
	api     *fakeAPI
	clock   *testclock.Clock
	tracker *state.Tracker
	catalog *state.Catalog
	coord   *Coordinator
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		api:     &fakeAPI{},
		clock:   testclock.NewClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		tracker: &state.Tracker{},
	}
	h.catalog = state.NewCatalog(h.api)
	opts.Clock = h.clock
	if opts.Logger == nil {
		opts.Logger = zaptest.NewLogger(t)
	}
	h.coord = New(h.catalog, h.tracker, h.api, opts)
	t.Cleanup(func() { _ = h.coord.Close() })
	return h
}

// tick fires the next poll for n parked loops.
func (h *harness) tick(t *testing.T, n int) {
	t.Helper()
	require.NoError(t, h.clock.WaitAdvance(DefaultPollInterval, waitShort, n))
}

// settle waits until n loops are parked on the clock again.
func (h *harness) settle(t *testing.T, n int) {
	t.Helper()
	require.NoError(t, h.clock.WaitAdvance(0, waitShort, n))
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, waitShort, 5*time.Millisecond, msg)
}

func TestInstall_MarksBeforeWriteResolves(t *testing.T) {
	h := newHarness(t, Options{})
	h.api.gate = make(chan struct{})

	errCh := make(chan error, 1)
	go func() { errCh <- h.coord.Install(context.Background(), "lnd") }()

	eventually(t, func() bool { return h.coord.Installing("lnd") }, "install not marked while write in flight")
	assert.Empty(t, h.coord.Polls(), "poll started before write resolved")

	close(h.api.gate)
	require.NoError(t, <-errCh)
	assert.True(t, h.coord.Installing("lnd"))
	assert.Equal(t, []PollKey{{ID: "lnd", Kind: state.KindInstall}}, h.coord.Polls())
}

func TestInstall_WriteFailureRollsBack(t *testing.T) {
	h := newHarness(t, Options{})
	h.catalog.SetInstalled([]manager.App{{ID: "btc", Name: "Bitcoin"}})
	writeErr := &manager.TransportError{Method: "POST", Path: "/v1/apps/lnd/install", StatusCode: 500}
	h.api.writeErr = writeErr

	err := h.coord.Install(context.Background(), "lnd")

	require.Error(t, err)
	var te *manager.TransportError
	require.True(t, errors.As(err, &te), "error %v should wrap TransportError", err)
	assert.Same(t, writeErr, te)
	assert.False(t, h.coord.Installing("lnd"))
	assert.Empty(t, h.coord.Polls())
	assert.True(t, h.catalog.IsInstalled("btc"))
	assert.Len(t, h.catalog.Snapshot().Installed, 1, "installed list must not change")

	res, ok := h.coord.Outcome("lnd")
	require.True(t, ok)
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Same(t, writeErr, res.Err)
}

func TestInstall_ClearsOnTickWhereAppAppears(t *testing.T) {
	h := newHarness(t, Options{})

	require.NoError(t, h.coord.Install(context.Background(), "lnd"))
	require.True(t, h.coord.Installing("lnd"))

	h.tick(t, 1)
	h.settle(t, 1)
	assert.True(t, h.coord.Installing("lnd"), "cleared before app appeared")

	h.api.setInstalled("lnd")
	h.tick(t, 1)
	eventually(t, func() bool { return !h.coord.Installing("lnd") }, "install never cleared")
	assert.Empty(t, h.coord.Polls())

	_, calls, _ := h.api.counts()
	assert.Equal(t, 2, calls)

	// The loop has stopped: later ticks fetch nothing.
	h.clock.Advance(3 * DefaultPollInterval)
	_, calls, _ = h.api.counts()
	assert.Equal(t, 2, calls)

	res, ok := h.coord.Outcome("lnd")
	require.True(t, ok)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 2, res.Attempts)
}

func TestUninstall_ClearsWhenAppDisappears(t *testing.T) {
	h := newHarness(t, Options{})
	h.api.setInstalled("lnd", "btc")

	require.NoError(t, h.coord.Uninstall(context.Background(), "lnd"))
	h.tick(t, 1)
	h.settle(t, 1)
	assert.True(t, h.coord.Uninstalling("lnd"))

	h.api.setInstalled("btc")
	h.tick(t, 1)
	eventually(t, func() bool { return !h.coord.Uninstalling("lnd") }, "uninstall never cleared")
	assert.True(t, h.catalog.IsInstalled("btc"))
}

func TestUpdate_ClearsWhenUpdateNoLongerAvailable(t *testing.T) {
	h := newHarness(t, Options{})
	h.api.setInstalled("lnd")
	h.api.setCatalog(manager.App{ID: "lnd", Name: "Lightning", UpdateAvailable: true})

	require.NoError(t, h.coord.Update(context.Background(), "lnd"))
	h.tick(t, 1)
	h.settle(t, 1)
	assert.True(t, h.coord.Updating("lnd"))

	h.api.setCatalog(manager.App{ID: "lnd", Name: "Lightning"})
	h.tick(t, 1)
	eventually(t, func() bool { return !h.coord.Updating("lnd") }, "update never cleared")

	_, installedCalls, catalogCalls := h.api.counts()
	assert.Equal(t, 2, catalogCalls)
	assert.Equal(t, 2, installedCalls, "catalog refresh must refresh installed too")
}

func TestUpdate_ClearsWhenAppLeavesCatalog(t *testing.T) {
	h := newHarness(t, Options{})
	h.api.setCatalog(manager.App{ID: "lnd", Name: "Lightning", UpdateAvailable: true})

	require.NoError(t, h.coord.Update(context.Background(), "lnd"))
	h.api.setCatalog()
	h.tick(t, 1)
	eventually(t, func() bool { return !h.coord.Updating("lnd") }, "update never cleared")
}

func TestUpdate_CompletesWhileInstalledListIsFailing(t *testing.T) {
	h := newHarness(t, Options{})
	h.api.setInstalled("lnd")
	h.api.setCatalog(manager.App{ID: "lnd", Name: "Lightning", UpdateAvailable: true})

	require.NoError(t, h.coord.Update(context.Background(), "lnd"))
	h.api.setListErr(errors.New("installed endpoint down"))
	h.api.setCatalog(manager.App{ID: "lnd", Name: "Lightning"})
	h.tick(t, 1)
	eventually(t, func() bool { return !h.coord.Updating("lnd") }, "update stuck while installed list fails")

	res, ok := h.coord.Outcome("lnd")
	require.True(t, ok)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
}

func TestPoll_RefreshFailureKeepsPolling(t *testing.T) {
	h := newHarness(t, Options{})
	h.api.setListErr(errors.New("gateway timeout"))

	require.NoError(t, h.coord.Install(context.Background(), "lnd"))
	h.tick(t, 1)
	h.settle(t, 1)
	assert.True(t, h.coord.Installing("lnd"))
	assert.Len(t, h.coord.Polls(), 1)

	h.api.setListErr(nil)
	h.api.setInstalled("lnd")
	h.tick(t, 1)
	eventually(t, func() bool { return !h.coord.Installing("lnd") }, "install never cleared after recovery")
}

func TestConcurrentOperationsOnDifferentApps(t *testing.T) {
	h := newHarness(t, Options{})
	h.api.setInstalled("b")

	require.NoError(t, h.coord.Install(context.Background(), "a"))
	require.NoError(t, h.coord.Uninstall(context.Background(), "b"))

	h.tick(t, 2)
	h.settle(t, 2)
	assert.True(t, h.coord.Installing("a"))
	assert.True(t, h.coord.Uninstalling("b"))

	h.api.setInstalled("a", "b")
	h.tick(t, 2)
	eventually(t, func() bool { return !h.coord.Installing("a") }, "install of a never cleared")
	h.settle(t, 1)
	assert.True(t, h.coord.Uninstalling("b"), "b cleared by a's predicate")

	h.api.setInstalled("a")
	h.tick(t, 1)
	eventually(t, func() bool { return !h.coord.Uninstalling("b") }, "uninstall of b never cleared")
	assert.Empty(t, h.coord.Polls())
}

func TestOverlappingOperationIsRejected(t *testing.T) {
	h := newHarness(t, Options{})

	require.NoError(t, h.coord.Install(context.Background(), "lnd"))
	err := h.coord.Uninstall(context.Background(), "lnd")
	require.ErrorIs(t, err, ErrTransitionInProgress)
	err = h.coord.Install(context.Background(), "lnd")
	require.ErrorIs(t, err, ErrTransitionInProgress)

	writes, _, _ := h.api.counts()
	assert.Equal(t, []string{"install lnd"}, writes)
	assert.False(t, h.coord.Uninstalling("lnd"))
	assert.True(t, h.coord.Installing("lnd"))
}

func TestInvalidIDAndClosed(t *testing.T) {
	h := newHarness(t, Options{})

	require.ErrorIs(t, h.coord.Install(context.Background(), " "), ErrInvalidAppID)

	require.NoError(t, h.coord.Close())
	require.ErrorIs(t, h.coord.Update(context.Background(), "lnd"), ErrClosed)
	require.NoError(t, h.coord.Close(), "Close must be idempotent")
}

func TestMaxAttemptsGivesUp(t *testing.T) {
	h := newHarness(t, Options{MaxAttempts: 2})

	require.NoError(t, h.coord.Install(context.Background(), "lnd"))
	h.tick(t, 1)
	h.settle(t, 1)
	assert.True(t, h.coord.Installing("lnd"))

	h.tick(t, 1)
	eventually(t, func() bool { return !h.coord.Installing("lnd") }, "loop never gave up")

	res, ok := h.coord.Outcome("lnd")
	require.True(t, ok)
	assert.Equal(t, OutcomeTimedOut, res.Outcome)
	assert.Equal(t, 2, res.Attempts)
}

func TestPollTimeoutGivesUp(t *testing.T) {
	h := newHarness(t, Options{PollTimeout: 12 * time.Second})

	require.NoError(t, h.coord.Update(context.Background(), "lnd"))
	h.api.setCatalog(manager.App{ID: "lnd", UpdateAvailable: true})
	for i := 0; i < 2; i++ {
		h.tick(t, 1)
		h.settle(t, 1)
		require.True(t, h.coord.Updating("lnd"), "gave up early on tick %d", i+1)
	}
	h.tick(t, 1)
	eventually(t, func() bool { return !h.coord.Updating("lnd") }, "loop never timed out")

	res, _ := h.coord.Outcome("lnd")
	assert.Equal(t, OutcomeTimedOut, res.Outcome)
	assert.Equal(t, 3, res.Attempts)
}

func TestCancelStopsLoopAndAllowsRetry(t *testing.T) {
	h := newHarness(t, Options{})

	require.NoError(t, h.coord.Install(context.Background(), "lnd"))
	require.True(t, h.coord.Cancel("lnd"))
	assert.False(t, h.coord.Installing("lnd"))
	assert.Empty(t, h.coord.Polls())
	assert.False(t, h.coord.Cancel("lnd"))

	res, _ := h.coord.Outcome("lnd")
	assert.Equal(t, OutcomeCancelled, res.Outcome)

	// A new operation on the same app is allowed once the old loop is gone.
	require.NoError(t, h.coord.Uninstall(context.Background(), "lnd"))
	assert.True(t, h.coord.Uninstalling("lnd"))
	assert.Equal(t, []PollKey{{ID: "lnd", Kind: state.KindUninstall}}, h.coord.Polls())
}

func TestCloseClearsMarksAndStopsLoops(t *testing.T) {
	h := newHarness(t, Options{})

	require.NoError(t, h.coord.Install(context.Background(), "a"))
	require.NoError(t, h.coord.Update(context.Background(), "b"))
	h.settle(t, 2)

	require.NoError(t, h.coord.Close())
	assert.Empty(t, h.coord.Polls())
	assert.Equal(t, state.TransitionSnapshot{}, h.tracker.Snapshot())
}

func TestComplete(t *testing.T) {
	snap := state.CatalogSnapshot{
		Installed: []manager.App{{ID: "lnd"}},
		Catalog: []manager.App{
			{ID: "lnd", UpdateAvailable: true},
			{ID: "btc"},
		},
	}
	tests := []struct {
		name string
		kind state.Kind
		id   string
		want bool
	}{
		{"install present", state.KindInstall, "lnd", true},
		{"install absent", state.KindInstall, "btc", false},
		{"uninstall present", state.KindUninstall, "lnd", false},
		{"uninstall absent", state.KindUninstall, "btc", true},
		{"update still available", state.KindUpdate, "lnd", false},
		{"update applied", state.KindUpdate, "btc", true},
		{"update app gone", state.KindUpdate, "ghost", true},
		{"unknown kind", state.Kind(7), "lnd", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Complete(tt.kind, snap, tt.id))
		})
	}
}
