package ui

import (
	"github.com/five82/appdeck/internal/manager"
	"github.com/five82/appdeck/internal/state"
)

// Tab selects which list is shown.
type Tab int

const (
	TabInstalled Tab = iota
	TabCatalog
)

func (t Tab) String() string {
	if t == TabCatalog {
		return "catalog"
	}
	return "installed"
}

// ParseTab maps a saved preference to a Tab.
func ParseTab(s string) Tab {
	if s == "catalog" {
		return TabCatalog
	}
	return TabInstalled
}

// Badge is the status chip shown next to an application.
type Badge string

const (
	BadgeAvailable       Badge = "available"
	BadgeInstalled       Badge = "installed"
	BadgeUpdateAvailable Badge = "update available"
	BadgeInstalling      Badge = "installing"
	BadgeUninstalling    Badge = "uninstalling"
	BadgeUpdating        Badge = "updating"
)

// Busy reports whether the badge marks a pending transition.
func (b Badge) Busy() bool {
	switch b {
	case BadgeInstalling, BadgeUninstalling, BadgeUpdating:
		return true
	}
	return false
}

// row is one rendered list entry.
type row struct {
	App       manager.App
	Installed bool
	Badge     Badge
}

// buildRows derives the rows of tab from the current snapshots.
func buildRows(tab Tab, cat state.CatalogSnapshot, trans state.TransitionSnapshot) []row {
	source := cat.Installed
	if tab == TabCatalog {
		source = cat.Catalog
	}
	rows := make([]row, 0, len(source))
	for _, app := range source {
		installed := cat.IsInstalled(app.ID)
		update := app.UpdateAvailable
		if entry, ok := cat.CatalogEntry(app.ID); ok {
			update = entry.UpdateAvailable
		}
		rows = append(rows, row{
			App:       app,
			Installed: installed,
			Badge:     badgeFor(app.ID, installed, update, trans),
		})
	}
	return rows
}

// badgeFor picks the badge for id. Pending transitions take precedence over
// the catalog state.
func badgeFor(id string, installed, updateAvailable bool, trans state.TransitionSnapshot) Badge {
	switch {
	case trans.Has(state.KindInstall, id):
		return BadgeInstalling
	case trans.Has(state.KindUninstall, id):
		return BadgeUninstalling
	case trans.Has(state.KindUpdate, id):
		return BadgeUpdating
	case installed && updateAvailable:
		return BadgeUpdateAvailable
	case installed:
		return BadgeInstalled
	default:
		return BadgeAvailable
	}
}

// actionFor validates that kind makes sense for r and returns a message
// explaining why not when it doesn't.
func actionFor(kind state.Kind, r row) (ok bool, reason string) {
	name := r.App.DisplayName()
	if r.Badge.Busy() {
		return false, name + " is already " + string(r.Badge)
	}
	switch kind {
	case state.KindInstall:
		if r.Installed {
			return false, name + " is already installed"
		}
	case state.KindUninstall:
		if !r.Installed {
			return false, name + " is not installed"
		}
	case state.KindUpdate:
		if !r.Installed {
			return false, name + " is not installed"
		}
		if r.Badge != BadgeUpdateAvailable {
			return false, name + " is up to date"
		}
	}
	return true, ""
}
