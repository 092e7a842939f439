package ui

import "testing"

func TestThemeNamesCycle(t *testing.T) {
	names := ThemeNames()
	if len(names) != 3 {
		t.Fatalf("ThemeNames = %v, want 3 themes", names)
	}
	name := names[0]
	for range names {
		name = NextTheme(name)
	}
	if name != names[0] {
		t.Fatalf("cycling %d times ended on %q, want %q", len(names), name, names[0])
	}
	if NextTheme("unknown") != names[0] {
		t.Fatalf("NextTheme(unknown) should restart the cycle")
	}
}

func TestGetThemeFallsBack(t *testing.T) {
	if GetTheme("missing").Name != "Nightfox" {
		t.Fatalf("GetTheme fallback = %q, want Nightfox", GetTheme("missing").Name)
	}
}

func TestEveryThemeColorsEveryBadge(t *testing.T) {
	badges := []Badge{BadgeAvailable, BadgeInstalled, BadgeUpdateAvailable, BadgeInstalling, BadgeUninstalling, BadgeUpdating}
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, b := range badges {
			if th.BadgeColors[b] == "" {
				t.Errorf("theme %s has no color for %q", name, b)
			}
		}
	}
}
