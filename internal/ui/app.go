package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/dronewatch/internal/state"
)

// RefreshControl pauses and resumes the background refresh.
type RefreshControl interface {
	Pause()
	Resume() error
	Running() bool
}

// Options configures the UI.
type Options struct {
	Context  context.Context
	Store    *state.Store
	Refresh  RefreshControl
	PollTick time.Duration
	BaseURL  string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx      context.Context
	store    *state.Store
	refresh  RefreshControl
	pollTick time.Duration
	baseURL  string

	keys   keyMap
	help   help.Model
	styles Styles
	width  int
	height int

	snapshot state.Snapshot
	rows     []state.Row // filtered, ordered by drone id

	selected  int
	filters   filterState
	searching bool
	search    textinput.Model
	notice    string // transient status line message
}

type tickMsg time.Time

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = time.Second
	}

	search := textinput.New()
	search.Prompt = "serial: "
	search.Placeholder = "glob, e.g. DJI-*"
	search.CharLimit = 64

	m := Model{
		ctx:      ctx,
		store:    opts.Store,
		refresh:  opts.Refresh,
		pollTick: pollTick,
		baseURL:  opts.BaseURL,
		keys:     defaultKeyMap(),
		help:     help.New(),
		styles:   defaultTheme().Styles(),
		search:   search,
	}
	m.syncSnapshot()
	return m
}

// Init starts the snapshot ticker.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.pollTick, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if m.ctx.Err() != nil {
			return m, tea.Quit
		}
		m.syncSnapshot()
		return m, m.tick()

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.rows)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selected = max(len(m.rows)-1, 0)
	case key.Matches(msg, m.keys.ToggleRefresh):
		m.toggleRefresh()
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(m.filters.serialGlob)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.CycleCarriage):
		m.filters.carriage = nextInCycle(carriageCycle, m.filters.carriage)
		m.applyFilters()
	case key.Matches(msg, m.keys.CycleStatus):
		m.filters.status = nextInCycle(statusCycle, m.filters.status)
		m.applyFilters()
	case key.Matches(msg, m.keys.ClearFilters):
		m.filters = filterState{}
		m.applyFilters()
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		prev := m.filters
		m.filters.serialGlob = m.search.Value()
		if _, err := m.filters.build(); err != nil {
			m.filters = prev
			m.notice = err.Error()
			return m, nil
		}
		m.searching = false
		m.search.Blur()
		m.applyFilters()
		return m, nil
	case key.Matches(msg, m.keys.Escape):
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m *Model) toggleRefresh() {
	if m.refresh == nil {
		return
	}
	if m.refresh.Running() {
		m.refresh.Pause()
		m.notice = "refresh paused"
		return
	}
	if err := m.refresh.Resume(); err != nil {
		m.notice = fmt.Sprintf("resume failed: %v", err)
		return
	}
	m.notice = "refresh resumed"
}

func (m *Model) syncSnapshot() {
	if m.store == nil {
		return
	}
	m.snapshot = m.store.Snapshot()
	m.applyFilters()
}

// applyFilters recomputes the visible rows and keeps the selection in range.
func (m *Model) applyFilters() {
	f, err := m.filters.build()
	if err != nil {
		m.notice = err.Error()
		return
	}
	m.rows = f.Apply(m.snapshot.Rows())
	if m.selected >= len(m.rows) {
		m.selected = max(len(m.rows)-1, 0)
	}
}

// selectedRow returns the highlighted row, if any.
func (m Model) selectedRow() (state.Row, bool) {
	if m.selected < 0 || m.selected >= len(m.rows) {
		return state.Row{}, false
	}
	return m.rows[m.selected], true
}

// Run starts the Bubble Tea program and blocks until it exits. Cancelling
// the context ends the program without an error.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	if _, err := p.Run(); err != nil && m.ctx.Err() == nil {
		return err
	}
	return nil
}
