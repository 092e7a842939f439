package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/juju/clock"
	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/five82/appdeck/internal/manager"
)

// CatalogSnapshot is a point-in-time copy of the authoritative lists.
type CatalogSnapshot struct {
	Installed       []manager.App // sorted by display name
	HasInstalled    bool          // false until the first successful fetch
	NoAppsInstalled bool          // set only by a fetch that returned nothing
	Catalog         []manager.App
	HasCatalog      bool

	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline returns true when the API has failed several refreshes in a row.
func (s CatalogSnapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// IsInstalled reports whether id is in the installed list.
func (s CatalogSnapshot) IsInstalled(id string) bool {
	return indexOf(s.Installed, id) >= 0
}

// CatalogEntry returns the catalog entry for id.
func (s CatalogSnapshot) CatalogEntry(id string) (manager.App, bool) {
	if i := indexOf(s.Catalog, id); i >= 0 {
		return s.Catalog[i], true
	}
	return manager.App{}, false
}

// Catalog holds the installed list and the full catalog, refreshed wholesale
// from the management API. Concurrent refreshes are last-writer-wins.
type Catalog struct {
	source manager.AppLister
	clock  clock.Clock
	logger *zap.Logger

	mu   sync.RWMutex
	snap CatalogSnapshot
}

// CatalogOption customises a Catalog.
type CatalogOption func(*Catalog)

// WithClock sets the clock used for LastUpdated stamps.
func WithClock(clk clock.Clock) CatalogOption {
	return func(c *Catalog) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithLogger sets the catalog logger.
func WithLogger(logger *zap.Logger) CatalogOption {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCatalog returns an empty Catalog backed by source.
func NewCatalog(source manager.AppLister, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		source: source,
		clock:  clock.WallClock,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PartialRefreshError is returned by RefreshCatalog when the catalog was
// replaced but the installed list could not be fetched.
type PartialRefreshError struct {
	Err error
}

func (e *PartialRefreshError) Error() string {
	return e.Err.Error()
}

func (e *PartialRefreshError) Unwrap() error {
	return e.Err
}

// RefreshInstalled fetches the installed list and replaces the local copy.
// On failure the previous list is kept and the error returned. A nil list
// (the API answered null) leaves the previous list untouched.
func (c *Catalog) RefreshInstalled(ctx context.Context) error {
	if err := c.fetchInstalled(ctx); err != nil {
		c.recordFailure(err)
		return err
	}
	c.recordSuccess()
	return nil
}

// RefreshCatalog refreshes the installed list and then the catalog. A failed
// installed refresh does not stop the catalog fetch; once the catalog has
// been replaced it is reported as a *PartialRefreshError. Each call counts
// at most one failure.
func (c *Catalog) RefreshCatalog(ctx context.Context) error {
	installedErr := c.fetchInstalled(ctx)
	if installedErr != nil {
		c.logger.Warn("installed refresh failed during catalog refresh", zap.Error(installedErr))
	}

	apps, err := c.source.ListCatalog(ctx)
	if err != nil {
		err = fmt.Errorf("refresh app catalog: %w", err)
		c.recordFailure(err)
		return err
	}
	if apps == nil {
		c.logger.Debug("catalog response was null; keeping previous catalog")
	} else {
		c.SetCatalog(apps)
	}

	if installedErr != nil {
		c.recordFailure(installedErr)
		return &PartialRefreshError{Err: installedErr}
	}
	c.recordSuccess()
	return nil
}

func (c *Catalog) fetchInstalled(ctx context.Context) error {
	apps, err := c.source.ListInstalled(ctx)
	if err != nil {
		return fmt.Errorf("refresh installed apps: %w", err)
	}
	if apps == nil {
		c.logger.Debug("installed response was null; keeping previous list")
		return nil
	}
	c.SetInstalled(apps)
	return nil
}

// SetInstalled replaces the installed list, sorted by display name.
func (c *Catalog) SetInstalled(apps []manager.App) {
	sorted := cloneApps(apps)
	sortByName(sorted)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Installed = sorted
	c.snap.HasInstalled = true
	c.snap.NoAppsInstalled = len(sorted) == 0
}

// SetCatalog replaces the catalog.
func (c *Catalog) SetCatalog(apps []manager.App) {
	dup := cloneApps(apps)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Catalog = dup
	c.snap.HasCatalog = true
}

// Snapshot returns a copy of the current lists.
func (c *Catalog) Snapshot() CatalogSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := c.snap
	snap.Installed = cloneApps(c.snap.Installed)
	snap.Catalog = cloneApps(c.snap.Catalog)
	return snap
}

// IsInstalled reports whether id is in the installed list.
func (c *Catalog) IsInstalled(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return indexOf(c.snap.Installed, id) >= 0
}

// CatalogEntry returns the catalog entry for id.
func (c *Catalog) CatalogEntry(id string) (manager.App, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := indexOf(c.snap.Catalog, id); i >= 0 {
		return c.snap.Catalog[i], true
	}
	return manager.App{}, false
}

// Reset drops both lists, returning the catalog to its unfetched state.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = CatalogSnapshot{}
}

func (c *Catalog) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.LastError = nil
	c.snap.LastUpdated = c.clock.Now()
	c.snap.ConsecutiveFailures = 0
}

func (c *Catalog) recordFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.LastError = err
	c.snap.LastUpdated = c.clock.Now()
	c.snap.ConsecutiveFailures++
}

// sortByName orders apps by display name using English collation, so case
// does not split the list ("alpha" sorts before "Bravo").
func sortByName(apps []manager.App) {
	// Collators keep internal buffers and are not safe to share.
	col := collate.New(language.English)
	sort.SliceStable(apps, func(i, j int) bool {
		return col.CompareString(apps[i].DisplayName(), apps[j].DisplayName()) < 0
	})
}

func indexOf(apps []manager.App, id string) int {
	for i := range apps {
		if apps[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneApps(apps []manager.App) []manager.App {
	if len(apps) == 0 {
		return nil
	}
	dup := make([]manager.App, len(apps))
	copy(dup, apps)
	return dup
}
