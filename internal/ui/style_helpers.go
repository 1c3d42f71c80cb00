package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// BgStyle renders text segments on a shared background. lipgloss resets
// between styled segments would otherwise leave gaps in the background
// color. See: https://github.com/charmbracelet/lipgloss/discussions/78
type BgStyle struct {
	bg    lipgloss.Color
	space string // cached styled space
}

// NewBgStyle creates a new background style helper for the given color.
func NewBgStyle(bgColor string) BgStyle {
	bg := lipgloss.Color(bgColor)
	return BgStyle{
		bg:    bg,
		space: lipgloss.NewStyle().Background(bg).Render(" "),
	}
}

// Render renders text with a style, ensuring ALL characters including spaces
// have the background color applied.
func (b BgStyle) Render(text string, style lipgloss.Style) string {
	if text == "" {
		return ""
	}
	if !strings.Contains(text, " ") {
		return style.Background(b.bg).Render(text)
	}

	wordStyle := style.Background(b.bg)
	words := strings.Split(text, " ")
	result := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			result = append(result, wordStyle.Render(w))
		} else {
			// Preserve multiple consecutive spaces
			result = append(result, "")
		}
	}
	return strings.Join(result, b.space)
}

// Space returns a single styled space.
func (b BgStyle) Space() string {
	return b.space
}

// Sep returns a styled separator between status segments.
func (b BgStyle) Sep(style lipgloss.Style) string {
	return b.space + b.Render("•", style) + b.space
}

// FillLine cuts rendered content to width and pads it with the background
// color so every row spans the full viewport.
func (b BgStyle) FillLine(content string, width int) string {
	if width <= 0 {
		return content
	}
	if ansi.StringWidth(content) > width {
		content = ansi.Truncate(content, width, "")
	}
	return lipgloss.NewStyle().Background(b.bg).Width(width).Render(content)
}
