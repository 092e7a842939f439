// Package ui is appdeck's terminal console, built on Bubble Tea.
//
// # Layout
//
//	appdeck  http://127.0.0.1:3006  online  updated 12:00:05  1 pending
//	 Installed (2)  Catalog (14)
//	NAME                    VERSION     CATEGORY        STATUS
//	Bitcoin                 26.0        Finance          installed
//	Lightning               0.17.4      Finance          update available
//	<status line>
//	<key help>
//
// The Installed tab lists installed applications in the catalog's collated
// order; the Catalog tab lists everything the API offers. Each row carries a
// badge: a pending transition (installing, uninstalling, updating) wins over
// the catalog state (update available, installed, available).
//
// # Data flow
//
// The model never talks to the API directly. On every tick it copies a
// state.CatalogSnapshot and a state.TransitionSnapshot and rebuilds its rows.
// Actions go through an Operator (the lifecycle coordinator) inside a
// tea.Cmd, so the write never blocks rendering. The optimistic mark shows up
// on the next tick.
//
// Accepted operations are watched until the coordinator reports an outcome;
// timeouts are shown as errors in the status line.
//
// # Keys
//
//	tab      switch Installed / Catalog
//	j/k g/G  move
//	i x u    install, uninstall, update the selected app
//	c        stop tracking the selected app's transition
//	r        refresh now
//	l        toggle the log pane (tails log_file)
//	T        cycle theme (saved to prefs)
//	?        help
//	q        quit
package ui
