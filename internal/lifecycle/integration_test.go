package lifecycle

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/five82/appdeck/internal/apptest"
	"github.com/five82/appdeck/internal/manager"
	"github.com/five82/appdeck/internal/state"
)

func TestCoordinatorAgainstHTTPServer(t *testing.T) {
	srv := apptest.New(t)
	srv.SetCatalog(
		manager.App{ID: "lnd", Name: "Lightning", UpdateAvailable: true},
		manager.App{ID: "btc", Name: "Bitcoin"},
	)
	srv.SetInstalled("lnd")
	srv.AutoApply(true)

	client, err := manager.NewClient(srv.URL, manager.WithTimeout(2*time.Second))
	require.NoError(t, err)

	clk := testclock.NewClock(time.Now())
	catalog := state.NewCatalog(client)
	tracker := &state.Tracker{}
	coord := New(catalog, tracker, client, Options{Clock: clk, Logger: zaptest.NewLogger(t)})
	t.Cleanup(func() { _ = coord.Close() })

	ctx := context.Background()
	require.NoError(t, catalog.RefreshCatalog(ctx))

	require.NoError(t, coord.Install(ctx, "btc"))
	require.NoError(t, coord.Update(ctx, "lnd"))
	assert.Equal(t, state.TransitionSnapshot{Installing: []string{"btc"}, Updating: []string{"lnd"}}, tracker.Snapshot())

	require.NoError(t, clk.WaitAdvance(DefaultPollInterval, time.Second, 2))
	require.Eventually(t, func() bool { return len(coord.Polls()) == 0 }, time.Second, 5*time.Millisecond)

	snap := catalog.Snapshot()
	assert.True(t, snap.IsInstalled("btc"))
	entry, ok := snap.CatalogEntry("lnd")
	require.True(t, ok)
	assert.False(t, entry.UpdateAvailable)

	srv.Fail(apptest.Uninstall, http.StatusInternalServerError)
	err = coord.Uninstall(ctx, "btc")
	var te *manager.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.False(t, coord.Uninstalling("btc"))
	assert.Equal(t, 1, srv.Calls(apptest.Uninstall))
}
