// Package state holds appdeck's local view of the managed host.
//
// # Overview
//
// Two independent containers live here:
//
//   - Catalog: the authoritative lists fetched from the management API, the
//     installed applications and the full catalog with update flags.
//   - Tracker: three sets of application ids that are currently installing,
//     uninstalling or updating.
//
// Both are explicit values constructed at session start and reset on teardown.
// Nothing in this package is global.
//
// # Catalog
//
// The Catalog never merges. Every successful fetch replaces a list in full and
// every failed fetch leaves it untouched:
//
//	// Success: replace the installed list, sorted by display name
//	catalog.RefreshInstalled(ctx)
//	→ snapshot.Installed       = sorted(fetched)
//	→ snapshot.NoAppsInstalled = len(fetched) == 0
//
//	// Failure: keep old data, record the error
//	→ snapshot.Installed       = <unchanged>
//	→ snapshot.LastError       = err
//
//	// null body: keep old data, no error
//	→ snapshot.Installed       = <unchanged>
//
// RefreshCatalog refreshes the installed list first, then the catalog, and
// counts at most one failure per call. When only the installed fetch failed
// the catalog is still replaced and the error is a *PartialRefreshError.
//
// NoAppsInstalled is stored rather than derived. An empty Installed slice on
// its own could mean "nothing installed" or "not fetched yet"; HasInstalled
// tells the two apart.
//
// Installed apps are ordered with golang.org/x/text/collate using English
// rules, so "alpha", "Bravo" and "Charlie" sort the way a person would read
// them rather than by byte value.
//
// # Tracker
//
// Membership is the only state: no payload, no timestamps. Add is idempotent
// and Remove of a missing id is a no-op. Claim is the check-and-add used by
// the lifecycle coordinator to keep an id in at most one set.
//
// # Concurrency Model
//
// Each container guards itself with a sync.RWMutex. Locks are held only while
// copying slices or touching maps, never across network I/O. Refreshes that
// race are last-writer-wins; poll loops for different applications may
// interleave in any order.
//
// # Copying
//
// Snapshot methods return copies so the UI can hold on to them while pollers
// keep writing. SetInstalled and SetCatalog copy their input for the same
// reason.
//
// # Testing Considerations
//
// Tracker's zero value is ready to use. NewCatalog accepts any
// manager.AppLister, so tests can substitute a small fake, and WithClock lets
// them pin LastUpdated with a testclock.
package state
