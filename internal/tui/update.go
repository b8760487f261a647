package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// tickMsg drives the periodic stats refresh.
type tickMsg time.Time

// logMsg is sent by the caller to append a message to the dashboard.
type logMsg struct {
	level   string
	message string
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// SendLog builds a tea.Msg carrying a log line, for use with (*tea.Program).Send.
func SendLog(level, message string) tea.Msg {
	return logMsg{level: level, message: message}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		m.refresh()
		return m, tickCmd()

	case logMsg:
		m.Log(msg.level, msg.message)
		return m, nil
	}

	return m, nil
}
