package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/lynx/internal/trace"
)

// newTraceViewport builds the viewport with navigation limited to the keys
// the model does not claim for itself.
func newTraceViewport(keys keyMap, width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.KeyMap = viewport.KeyMap{
		PageDown:     keys.PageDown,
		PageUp:       keys.PageUp,
		HalfPageUp:   keys.HalfPageUp,
		HalfPageDown: keys.HalfPageDown,
		Up:           keys.Up,
		Down:         keys.Down,
	}
	return vp
}

// updateViewport resizes the viewport and re-renders its content when the
// store changed since the last render.
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	// Header and status bar take one line each.
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-2, 1)
	m.viewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	if !m.rendered || m.snapshot.Version != m.lastRendered {
		m.viewport.SetContent(m.renderTraceContent())
		m.lastRendered = m.snapshot.Version
		m.rendered = true
	}

	if m.follow {
		m.viewport.GotoBottom()
	}
}

// renderTraceContent renders every stored trace, one per line.
func (m *Model) renderTraceContent() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	width := m.viewport.Width

	if len(m.snapshot.Traces) == 0 {
		msg := "Waiting for traces from " + m.sourceLabel()
		return bg.FillLine(bg.Render(msg, styles.MutedText), width)
	}

	var b strings.Builder
	for i, t := range m.snapshot.Traces {
		b.WriteString(bg.FillLine(formatTrace(t, styles, bg), width))
		if i < len(m.snapshot.Traces)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// formatTrace renders "timestamp L Tag(pid): message" with level colors.
func formatTrace(t trace.Trace, styles Styles, bg BgStyle) string {
	var b strings.Builder

	b.WriteString(bg.Render(t.Timestamp, styles.FaintText))
	b.WriteString(bg.Space())
	b.WriteString(bg.Render(string(t.Level.Code()), styles.LevelStyle(t.Level)))
	b.WriteString(bg.Space())

	if t.Tag != "" {
		b.WriteString(bg.Render(t.Tag, styles.AccentText))
		if t.PID > 0 {
			b.WriteString(bg.Render("("+strconv.Itoa(t.PID)+")", styles.FaintText))
		}
		b.WriteString(bg.Render(":", styles.FaintText))
		b.WriteString(bg.Space())
	}
	b.WriteString(bg.Render(t.Message, styles.MessageStyle(t.Level)))
	return b.String()
}

// renderHeader renders the top bar: logo, source and source state.
func (m Model) renderHeader() string {
	bg := NewBgStyle(m.theme.Surface)
	styles := m.theme.Styles()

	parts := []string{
		bg.Render("lynx", styles.Logo),
		bg.Render(m.sourceLabel(), styles.Text),
	}

	switch {
	case m.snapshot.IsOffline():
		parts = append(parts, bg.Render("offline", styles.DangerText))
	case m.running:
		parts = append(parts, bg.Render("running", styles.SuccessText))
	default:
		parts = append(parts, bg.Render("stopped", styles.WarningText))
	}

	counts := fmt.Sprintf("%d received %d batches", m.snapshot.Received, m.snapshot.Batches)
	parts = append(parts, bg.Render(counts, styles.MutedText))
	if m.snapshot.LastError != nil {
		parts = append(parts, bg.Render(m.snapshot.LastError.Error(), styles.DangerText))
	}

	content := bg.Space() + strings.Join(parts, bg.Sep(styles.FaintText))
	return bg.FillLine(content, m.width)
}

// renderStatus renders the bottom bar: the filter input while editing,
// otherwise the active config and view state.
func (m Model) renderStatus() string {
	bg := NewBgStyle(m.theme.Surface)
	styles := m.theme.Styles()

	if m.editingFilter {
		content := bg.Space() + m.filterInput.View() +
			bg.Sep(styles.FaintText) + bg.Render("enter apply, esc cancel", styles.FaintText)
		return bg.FillLine(content, m.width)
	}

	return bg.FillLine(bg.Space()+strings.Join(m.statusParts(styles, bg), bg.Sep(styles.FaintText)), m.width)
}

func (m Model) statusParts(styles Styles, bg BgStyle) []string {
	var parts []string

	if m.config.HasFilter() {
		parts = append(parts, bg.Render("filter: "+m.config.Filter(), styles.AccentText))
	} else {
		parts = append(parts, bg.Render("no filter", styles.FaintText))
	}

	level := m.config.FilterTraceLevel()
	parts = append(parts, bg.Render("level ≥ "+level.String(), styles.LevelStyle(level)))
	parts = append(parts, bg.Render("sampling "+m.config.SamplingRate().String(), styles.MutedText))

	shown := fmt.Sprintf("%d traces", len(m.snapshot.Traces))
	if m.snapshot.Dropped > 0 {
		shown += fmt.Sprintf(" (%d dropped)", m.snapshot.Dropped)
	}
	parts = append(parts, bg.Render(shown, styles.MutedText))

	follow := "follow off"
	if m.follow {
		follow = "follow on"
	}
	parts = append(parts, bg.Render(follow, styles.MutedText))

	if m.notice != "" {
		parts = append(parts, bg.Render(m.notice, styles.WarningText))
	}
	parts = append(parts, bg.Render("? help", styles.FaintText))
	return parts
}

func (m Model) sourceLabel() string {
	if m.sourceName == "" {
		return "source"
	}
	return m.sourceName
}
