package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/lynx/internal/trace"
)

// Theme defines colors and styles for the UI.
type Theme struct {
	Name string

	// Base colors
	Background string // Outermost background
	Surface    string // Header and status bars
	FocusBg    string // Trace viewport

	// Border colors
	Border      string
	BorderFocus string

	// Text colors
	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// Level colors, indexed by trace.Level
	LevelColors [6]string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		// Base styles
		Background: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Background)),

		Surface: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)),

		// Text styles
		Text: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Text)),

		MutedText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Muted)),

		FaintText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Faint)),

		AccentText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)),

		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Success)).
			Bold(true),

		WarningText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)),

		DangerText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Danger)).
			Bold(true),

		// Component styles
		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),

		levelColors: t.LevelColors,
		text:        t.Text,
	}
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	// Base
	Background lipgloss.Style
	Surface    lipgloss.Style

	// Text
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style

	// Components
	Logo lipgloss.Style

	levelColors [6]string
	text        string
}

// LevelColor returns the color for a trace level, falling back to the text
// color for unknown levels.
func (s Styles) LevelColor(level trace.Level) string {
	if int(level) < len(s.levelColors) && s.levelColors[level] != "" {
		return s.levelColors[level]
	}
	return s.text
}

// LevelStyle returns the style used for the level badge of a trace.
func (s Styles) LevelStyle(level trace.Level) lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(s.LevelColor(level)))
	if level >= trace.Warning {
		style = style.Bold(true)
	}
	return style
}

// MessageStyle returns the style for a trace message. Only warnings and
// above are tinted; quieter levels use the text color.
func (s Styles) MessageStyle(level trace.Level) lipgloss.Style {
	if level >= trace.Warning {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(s.LevelColor(level)))
	}
	return s.Text
}

// Theme definitions

var themes = map[string]Theme{
	"Dracula":  draculaTheme(),
	"Slate":    slateTheme(),
	"Nightfox": nightfoxTheme(),
}

var themeOrder = []string{"Dracula", "Slate", "Nightfox"}

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return draculaTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns available theme names.
func ThemeNames() []string {
	return themeOrder
}

func draculaTheme() Theme {
	// Official Dracula palette: https://draculatheme.com/spec
	return Theme{
		Name: "Dracula",

		Background: "#191A21", // BGDarker
		Surface:    "#282A36", // Background
		FocusBg:    "#21222C", // BGDark

		Border:      "#44475A", // Selection
		BorderFocus: "#BD93F9", // Purple

		Text:    "#F8F8F2", // Foreground
		Muted:   "#6272A4", // Comment
		Faint:   "#44475A", // Selection
		Accent:  "#BD93F9", // Purple
		Success: "#50FA7B", // Green
		Warning: "#FFB86C", // Orange
		Danger:  "#FF5555", // Red
		Info:    "#8BE9FD", // Cyan

		LevelColors: [6]string{
			trace.Verbose: "#6272A4", // Comment
			trace.Debug:   "#8BE9FD", // Cyan
			trace.Info:    "#50FA7B", // Green
			trace.Warning: "#FFB86C", // Orange
			trace.Error:   "#FF5555", // Red
			trace.Assert:  "#FF79C6", // Pink
		},
	}
}

func slateTheme() Theme {
	// Tailwind CSS Slate/Sky palette: https://tailwindcss.com/docs/colors
	return Theme{
		Name: "Slate",

		Background: "#020617", // slate-950
		Surface:    "#0f172a", // slate-900
		FocusBg:    "#1e293b", // slate-800

		Border:      "#334155", // slate-700
		BorderFocus: "#38bdf8", // sky-400

		Text:    "#f1f5f9", // slate-100
		Muted:   "#94a3b8", // slate-400
		Faint:   "#64748b", // slate-500
		Accent:  "#38bdf8", // sky-400
		Success: "#22c55e", // green-500
		Warning: "#f59e0b", // amber-500
		Danger:  "#ef4444", // red-500
		Info:    "#06b6d4", // cyan-500

		LevelColors: [6]string{
			trace.Verbose: "#64748b", // slate-500
			trace.Debug:   "#06b6d4", // cyan-500
			trace.Info:    "#22c55e", // green-500
			trace.Warning: "#f59e0b", // amber-500
			trace.Error:   "#ef4444", // red-500
			trace.Assert:  "#ec4899", // pink-500
		},
	}
}

func nightfoxTheme() Theme {
	// Nightfox palette: https://github.com/EdenEast/nightfox.nvim
	return Theme{
		Name: "Nightfox",

		Background: "#131a24", // bg0
		Surface:    "#192330", // bg1
		FocusBg:    "#212e3f", // bg2

		Border:      "#39506d", // bg4
		BorderFocus: "#719cd6", // blue

		Text:    "#cdcecf", // fg1
		Muted:   "#738091", // comment
		Faint:   "#71839b", // fg3
		Accent:  "#719cd6", // blue
		Success: "#81b29a", // green
		Warning: "#dbc074", // yellow
		Danger:  "#c94f6d", // red
		Info:    "#63cdcf", // cyan

		LevelColors: [6]string{
			trace.Verbose: "#738091", // comment
			trace.Debug:   "#63cdcf", // cyan
			trace.Info:    "#81b29a", // green
			trace.Warning: "#dbc074", // yellow
			trace.Error:   "#c94f6d", // red
			trace.Assert:  "#9d79d6", // magenta
		},
	}
}
