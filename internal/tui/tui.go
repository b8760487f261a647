package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"scrapegate/internal/dispatch"
)

// TUI owns the running bubbletea program bound to a dispatcher.
type TUI struct {
	program *tea.Program
	model   *Model
}

// New builds a TUI polling disp's stats for its dashboard.
func New(disp *dispatch.Dispatcher) *TUI {
	model := NewModel(disp)
	program := tea.NewProgram(model, tea.WithAltScreen())
	return &TUI{program: program, model: model}
}

// Run blocks until the user quits the dashboard.
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}

// Stop tears the dashboard down.
func (t *TUI) Stop() {
	t.program.Quit()
}

// Log appends a line to the dashboard's log pane from outside the bubbletea
// event loop.
func (t *TUI) Log(level, message string) {
	t.program.Send(SendLog(level, message))
}
