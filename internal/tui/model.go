// Package tui renders a live terminal dashboard over the dispatcher's
// stats: account health breakdown, queue depth, and active concurrency,
// refreshed on a timer.
package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"scrapegate/internal/dispatch"
)

const refreshInterval = 500 * time.Millisecond

// Model is the bubbletea model backing the dashboard.
type Model struct {
	disp    *dispatch.Dispatcher
	spinner spinner.Model

	mu    sync.RWMutex
	stats dispatch.Stats
	logs  []logLine

	width, height int
	quitting      bool
}

type logLine struct {
	at      time.Time
	level   string
	message string
}

// NewModel builds a Model polling disp for its stats.
func NewModel(disp *dispatch.Dispatcher) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentColor)

	return &Model{
		disp:    disp,
		spinner: s,
		stats:   disp.Stats(),
	}
}

// Init starts the spinner and the first refresh tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// Log appends a message to the dashboard's log pane, trimming to the most
// recent 50 entries.
func (m *Model) Log(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, logLine{at: time.Now(), level: level, message: message})
	if len(m.logs) > 50 {
		m.logs = m.logs[len(m.logs)-50:]
	}
}

func (m *Model) refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = m.disp.Stats()
}
