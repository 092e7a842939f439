package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/appdeck/internal/logtail"
)

const logTailLines = 500

type logTailMsg struct {
	lines []string
	err   error
}

func tailLogCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return logTailMsg{}
		}
		lines, err := logtail.Tail(path, logTailLines)
		return logTailMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogTail(msg logTailMsg) {
	if msg.err != nil {
		m.logLines = []string{"log unavailable: " + msg.err.Error()}
	} else {
		m.logLines = msg.lines
	}
	follow := m.logViewport.AtBottom() || m.logViewport.TotalLineCount() == 0
	m.logViewport.SetContent(strings.Join(m.logLines, "\n"))
	if follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) logHeight() int {
	h := m.height / 3
	if h < minLogLines {
		h = minLogLines
	}
	return h
}

func (m *Model) resizeLogViewport() {
	m.logViewport.Width = m.width
	m.logViewport.Height = m.logHeight()
}

func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	title := styles.AccentText.Render("log") + " " + styles.FaintText.Render(m.logPath)
	if len(m.logLines) == 0 {
		return title + "\n" + padLines(styles.MutedText.Render("(empty)"), m.logHeight())
	}
	return title + "\n" + m.logViewport.View()
}
