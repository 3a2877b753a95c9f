package viz

import "github.com/charmbracelet/lipgloss"

// Theme colors the two simulators and the verdicts on their agreement.
type Theme struct {
	Name      string
	Reference lipgloss.Color
	Model     lipgloss.Color
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Clean     lipgloss.Color
	Warning   lipgloss.Color
	Flag      lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:      "cyberpunk",
		Reference: lipgloss.Color("#00ffff"),
		Model:     lipgloss.Color("#ff00ff"),
		Accent:    lipgloss.Color("#ffff00"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#666688"),
		Clean:     lipgloss.Color("#00ff88"),
		Warning:   lipgloss.Color("#ffaa00"),
		Flag:      lipgloss.Color("#ff4444"),
	}

	ThemeMinimal = Theme{
		Name:      "minimal",
		Reference: lipgloss.Color("#ffffff"),
		Model:     lipgloss.Color("#0088ff"),
		Accent:    lipgloss.Color("#cccccc"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#888888"),
		Clean:     lipgloss.Color("#00ff00"),
		Warning:   lipgloss.Color("#ffaa00"),
		Flag:      lipgloss.Color("#ff0000"),
	}

	ThemeRetroGreen = Theme{
		Name:      "retro",
		Reference: lipgloss.Color("#00ff00"),
		Model:     lipgloss.Color("#88ff88"),
		Accent:    lipgloss.Color("#00cc00"),
		Text:      lipgloss.Color("#00ff00"),
		Muted:     lipgloss.Color("#005500"),
		Clean:     lipgloss.Color("#88ff88"),
		Warning:   lipgloss.Color("#ffff00"),
		Flag:      lipgloss.Color("#ff0000"),
	}

	CurrentTheme = ThemeCyberpunk

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeMinimal,
		ThemeRetroGreen,
	}
)

// GetTheme returns a theme by name
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeCyberpunk
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// NextTheme switches to the theme after the current one.
func NextTheme() {
	names := ThemeNames()
	for i, name := range names {
		if name == CurrentTheme.Name {
			SetTheme(names[(i+1)%len(names)])
			return
		}
	}
}
