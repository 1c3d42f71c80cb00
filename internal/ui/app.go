package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lynx/internal/logging"
	"github.com/five82/lynx/internal/lynx"
	"github.com/five82/lynx/internal/prefs"
	"github.com/five82/lynx/internal/state"
)

// DefaultUIInterval is how often the status line is refreshed when no
// traces arrive.
const DefaultUIInterval = time.Second

// Controller is the part of the engine the UI drives. *lynx.Lynx
// implements it.
type Controller interface {
	Config() lynx.Config
	SetConfig(cfg lynx.Config)
	Restart() error
	Running() bool
}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Store      *state.Store
	Controller Controller
	SourceName string
	ThemeName  string
	PrefsPath  string
	Logger     *logging.Logger
	Tick       time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx        context.Context
	store      *state.Store
	controller Controller
	sourceName string
	prefsPath  string
	logger     *logging.Logger
	tick       time.Duration

	// UI state
	keys     keyMap
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool
	notice   string

	// Data state
	snapshot state.Snapshot
	config   lynx.Config
	running  bool

	// Trace view
	viewport     viewport.Model
	follow       bool
	lastRendered uint64
	rendered     bool

	// Filter input
	filterInput   textinput.Model
	editingFilter bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "text to match, case-insensitive"
	ti.CharLimit = 200

	keys := DefaultKeyMap()

	m := Model{
		ctx:         ctx,
		store:       opts.Store,
		controller:  opts.Controller,
		sourceName:  opts.SourceName,
		prefsPath:   opts.PrefsPath,
		logger:      logger,
		tick:        tick,
		keys:        keys,
		theme:       GetTheme(themeName),
		follow:      true,
		filterInput: ti,
		viewport:    newTraceViewport(keys, 0, 0),
	}
	if m.controller != nil {
		m.config = m.controller.Config()
		m.running = m.controller.Running()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.tick)}
	if cmd := m.fetchSnapshot(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.rendered = false
		m.updateViewport()
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchSnapshot(), tickCmd(m.tick))

	case RefreshMsg:
		return m, m.fetchSnapshot()

	case snapshotMsg:
		m.snapshot = msg.snapshot
		m.running = msg.running
		m.syncConfig()
		m.updateViewport()
		return m, nil

	case restartedMsg:
		if msg.err != nil {
			m.notice = "restart failed: " + msg.err.Error()
			m.logger.Warn("restart from ui failed", "error", msg.err)
		} else {
			m.notice = "source restarted"
		}
		return m, m.fetchSnapshot()
	}

	if m.editingFilter {
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderHeader() + "\n" + m.viewport.View() + "\n" + m.renderStatus()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}
	if m.editingFilter {
		return m.handleFilterKey(msg)
	}
	m.syncConfig()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.rendered = false
		m.updateViewport()
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Filter):
		m.editingFilter = true
		m.filterInput.SetValue(m.config.Filter())
		m.filterInput.CursorEnd()
		return m, m.filterInput.Focus()

	case key.Matches(msg, m.keys.ClearInput):
		if m.config.HasFilter() {
			m.applyConfig(m.config.WithFilter(""))
		}
		return m, nil

	case key.Matches(msg, m.keys.LevelUp):
		m.applyConfig(m.config.WithFilterTraceLevel(m.config.FilterTraceLevel().Next()))
		return m, nil

	case key.Matches(msg, m.keys.LevelDown):
		m.applyConfig(m.config.WithFilterTraceLevel(m.config.FilterTraceLevel().Prev()))
		return m, nil

	case key.Matches(msg, m.keys.Restart):
		m.notice = "restarting source..."
		return m, restartCmd(m.controller)

	case key.Matches(msg, m.keys.Clear):
		if m.store != nil {
			m.store.Clear()
		}
		m.notice = ""
		return m, m.fetchSnapshot()

	case key.Matches(msg, m.keys.Follow):
		m.follow = !m.follow
		if m.follow {
			m.viewport.GotoBottom()
		}
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.follow = true
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.follow = false
		m.viewport.GotoTop()
		return m, nil
	}

	k := m.keys
	if key.Matches(msg, k.Up, k.Down, k.PageUp, k.PageDown, k.HalfPageUp, k.HalfPageDown) {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		return m, cmd
	}
	return m, nil
}

// handleFilterKey processes input while the filter is being edited.
func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.editingFilter = false
		m.filterInput.Blur()
		m.syncConfig()
		m.applyConfig(m.config.WithFilter(m.filterInput.Value()))
		return m, nil

	case key.Matches(msg, m.keys.Cancel), msg.Type == tea.KeyCtrlC:
		m.editingFilter = false
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

// syncConfig reads the engine config. Changes made elsewhere, such as a
// reloaded config file, show up here.
func (m *Model) syncConfig() {
	if m.controller != nil {
		m.config = m.controller.Config()
	}
}

// applyConfig hands cfg to the engine. Only traces read afterwards are
// affected; traces already on screen stay.
func (m *Model) applyConfig(cfg lynx.Config) {
	m.config = cfg
	if m.controller != nil {
		m.controller.SetConfig(cfg)
	}
	m.notice = ""
	m.savePrefs()
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{
		Theme:  m.theme.Name,
		Filter: m.config.Filter(),
		Level:  m.config.FilterTraceLevel().String(),
	}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.Warn("save prefs failed", "error", err)
	}
}

// Messages

// RefreshMsg tells the UI that the store changed.
type RefreshMsg struct{}

type tickMsg time.Time

type snapshotMsg struct {
	snapshot state.Snapshot
	running  bool
}

type restartedMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchSnapshot() tea.Cmd {
	store, controller := m.store, m.controller
	return func() tea.Msg {
		var msg snapshotMsg
		if store != nil {
			msg.snapshot = store.Snapshot()
		}
		if controller != nil {
			msg.running = controller.Running()
		}
		return msg
	}
}

func restartCmd(controller Controller) tea.Cmd {
	return func() tea.Msg {
		if controller == nil {
			return restartedMsg{err: errors.New("no source to restart")}
		}
		return restartedMsg{err: controller.Restart()}
	}
}

// NewProgram builds the Bubble Tea program. Callers keep the program to
// Send RefreshMsg from other goroutines.
func NewProgram(opts Options) *tea.Program {
	m := New(opts)
	return tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
}

// Run runs p until the user quits or ctx is cancelled. Cancellation is a
// clean exit.
func Run(ctx context.Context, p *tea.Program) error {
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
