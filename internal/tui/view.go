package tui

import (
	"fmt"
	"strings"
)

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	m.mu.RLock()
	stats := m.stats
	logs := append([]logLine(nil), m.logs...)
	m.mu.RUnlock()

	header := titleStyle.Render(fmt.Sprintf("%s scrapegate dispatcher", m.spinner.View()))

	accounts := boxStyle.Render(fmt.Sprintf(
		"accounts %d\n%s %d  %s %d  %s %d  %s %d  %s %d",
		stats.Accounts.Total,
		healthyStyle.Render("healthy"), stats.Accounts.Healthy,
		probationStyle.Render("probation"), stats.Accounts.Probation,
		cooldownStyle.Render("cooldown"), stats.Accounts.Cooldown,
		disabledStyle.Render("disabled"), stats.Accounts.Disabled,
		lockedStyle.Render("locked"), stats.Accounts.Locked,
	))

	queue := boxStyle.Render(fmt.Sprintf(
		"queue %d/%d\nconcurrency %d/%d\nproxies %d",
		stats.Queue.Depth, stats.Queue.MaxSize,
		stats.Concurrency.Active, stats.Concurrency.Max,
		stats.Proxies.Total,
	))

	var logLines []string
	for _, l := range logs {
		logLines = append(logLines, logStyle.Render(fmt.Sprintf("[%s] %s: %s", l.at.Format("15:04:05"), l.level, l.message)))
	}
	logBox := boxStyle.Render(strings.Join(logLines, "\n"))

	return strings.Join([]string{header, accounts, queue, logBox, "press q to quit"}, "\n\n")
}
