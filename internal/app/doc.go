// Package app is the composition root for appdeck.
//
// # Overview
//
// Run wires configuration, logging, the API client, the shared state and the
// lifecycle coordinator together, starts the background refresher and then
// hands control to the console until the user quits or the context is
// cancelled.
//
// # Startup
//
//  1. Load configuration (config.Load), then apply the -poll override
//  2. Open the JSON log file (logging.New); stdout belongs to the console
//  3. Load console preferences; a broken prefs file is logged, not fatal
//  4. Wire builds manager.Client, state.Catalog, state.Tracker and
//     lifecycle.Coordinator
//  5. StartRefresher keeps the catalog current in the background
//  6. ui.Run blocks until the user exits
//
// On the way out the refresher is stopped and waited for, and the coordinator
// is closed, which cancels every completion poll and clears its mark.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()        file + APPDECK_* env
//	       ├─────> logging.New()        zap, JSON to log_file
//	       ├─────> Wire()               client, catalog, tracker, coordinator
//	       ├─────> StartRefresher()     background catalog refresh
//	       └─────> ui.Run()             console (blocks)
//
//	Console action:
//	  ui ──Start(kind, id)──> lifecycle.Coordinator ──POST──> API
//	                               │
//	                               └─ poll loop ──GET──> state.Catalog
//	                                        └─ clears state.Tracker mark
//
// # Refresher
//
// The refresher calls Catalog.RefreshCatalog (installed list first, then the
// catalog) immediately and then every refresh_interval. While the API is
// failing, the wait doubles with each consecutive failure and is capped at 30
// seconds; the first success returns to the configured cadence. The console
// shows the API as offline after two consecutive failures.
//
// The refresher is separate from the per-operation poll loops in
// internal/lifecycle: those only run while a transition is pending and stop
// as soon as it is observed.
package app
