package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	// header, tab bar, column titles, status line and help line
	chromeLines = 5
	minLogLines = 4
)

// renderMain renders the full console.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.renderList(m.listHeight()))
	if m.showLogs {
		b.WriteString("\n")
		b.WriteString(m.renderLogs())
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	snap := m.catalogSnap

	parts := []string{styles.Logo.Render("appdeck")}
	if m.apiURL != "" {
		parts = append(parts, styles.MutedText.Render(m.apiURL))
	}
	switch {
	case snap.IsOffline():
		parts = append(parts, styles.DangerText.Render("API OFFLINE"))
	case !snap.LastUpdated.IsZero():
		parts = append(parts, styles.SuccessText.Render("online"))
	default:
		parts = append(parts, styles.WarningText.Render("connecting"))
	}
	if !snap.LastUpdated.IsZero() {
		parts = append(parts, styles.FaintText.Render("updated "+snap.LastUpdated.Format("15:04:05")))
	}
	if n := len(m.transitions.Installing) + len(m.transitions.Uninstalling) + len(m.transitions.Updating); n > 0 {
		parts = append(parts, styles.InfoText.Render(fmt.Sprintf("%d pending", n)))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderTabs() string {
	styles := m.theme.Styles()
	installed := fmt.Sprintf("Installed (%d)", len(m.catalogSnap.Installed))
	catalog := fmt.Sprintf("Catalog (%d)", len(m.catalogSnap.Catalog))
	if m.tab == TabInstalled {
		return styles.ActiveTab.Render(installed) + " " + styles.InactiveTab.Render(catalog)
	}
	return styles.InactiveTab.Render(installed) + " " + styles.ActiveTab.Render(catalog)
}

// renderList renders the rows of the current tab, scrolled so the selection
// stays visible within height lines.
func (m Model) renderList(height int) string {
	styles := m.theme.Styles()

	if msg := m.emptyMessage(); msg != "" {
		return padLines(styles.MutedText.Render(msg), height)
	}

	nameW, versionW, categoryW := m.columnWidths()
	var lines []string
	lines = append(lines, styles.FaintText.Render(
		pad("NAME", nameW)+pad("VERSION", versionW)+pad("CATEGORY", categoryW)+"STATUS"))

	start, end := visibleRange(len(m.rows), m.selectedRow, height-1)
	for i := start; i < end; i++ {
		r := m.rows[i]
		text := pad(r.App.DisplayName(), nameW) + pad(r.App.Version, versionW) + pad(r.App.Category, categoryW)
		if i == m.selectedRow {
			text = styles.Selected.Render(text)
		} else {
			text = styles.Text.Render(text)
		}
		lines = append(lines, text+styles.BadgeStyle(r.Badge).Render(string(r.Badge)))
	}
	return padLines(strings.Join(lines, "\n"), height)
}

func (m Model) emptyMessage() string {
	snap := m.catalogSnap
	switch m.tab {
	case TabInstalled:
		if snap.NoAppsInstalled {
			return "No apps installed. Press tab to browse the catalog."
		}
		if !snap.HasInstalled {
			return m.loadingMessage()
		}
	case TabCatalog:
		if !snap.HasCatalog {
			return m.loadingMessage()
		}
		if len(snap.Catalog) == 0 {
			return "The catalog is empty."
		}
	}
	return ""
}

func (m Model) loadingMessage() string {
	if err := m.catalogSnap.LastError; err != nil {
		return "Waiting for the API: " + err.Error()
	}
	return "Loading..."
}

func (m Model) renderStatus() string {
	styles := m.theme.Styles()
	if m.status.text == "" {
		return ""
	}
	if m.status.isErr {
		return styles.DangerText.Render(m.status.text)
	}
	return styles.AccentText.Render(m.status.text)
}

func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	full := m.help
	full.ShowAll = true

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")
	b.WriteString(full.View(m.keys))
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("Theme: " + m.theme.Name + "   Press any key to close"))
	return styles.Panel.Padding(1, 2).Render(b.String())
}

func (m Model) columnWidths() (name, version, category int) {
	name, version, category = 24, 12, 16
	if m.width > 0 && m.width < 80 {
		name, version, category = 18, 10, 0
	}
	return name, version, category
}

func (m Model) listHeight() int {
	h := m.height - chromeLines
	if m.showLogs {
		h -= m.logHeight() + 1
	}
	if h < 1 {
		h = 1
	}
	return h
}

// visibleRange returns the slice of n rows to draw so that selected is
// inside a window of size rows.
func visibleRange(n, selected, size int) (int, int) {
	if size <= 0 || n <= size {
		return 0, n
	}
	start := selected - size/2
	if start < 0 {
		start = 0
	}
	if start+size > n {
		start = n - size
	}
	return start, start + size
}

func pad(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := lipgloss.Width(s)
	if w >= width {
		runes := []rune(s)
		if len(runes) > width-1 {
			runes = runes[:width-1]
		}
		return string(runes) + " "
	}
	return s + strings.Repeat(" ", width-w)
}

func padLines(s string, height int) string {
	n := strings.Count(s, "\n") + 1
	if n >= height {
		return s
	}
	return s + strings.Repeat("\n", height-n)
}
