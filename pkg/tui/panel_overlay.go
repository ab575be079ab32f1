package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// openPanel shows read-only content over the current screen.
func (m *Model) openPanel(title, content string) {
	m.panelTitle = title
	m.panelLines = strings.Split(strings.TrimRight(content, "\n"), "\n")
	m.panelScroll = 0

	m.panelMaxScroll = len(m.panelLines) - m.panelVisibleHeight()
	if m.panelMaxScroll < 0 {
		m.panelMaxScroll = 0
	}
	m.panelActive = true
}

// panelVisibleHeight returns how many content lines fit in the panel.
func (m Model) panelVisibleHeight() int {
	// border(2) + margin(2) + padding(2) + title(1) + blank(1) + scroll indicators(2) + footer(2)
	h := m.height - 12
	if h < 5 {
		h = 5
	}
	return h
}

// panelUpdate handles keyboard input while the panel is open.
func (m Model) panelUpdate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pageSize := m.panelVisibleHeight()

	switch msg.String() {
	case "esc", "q", "enter":
		m.panelActive = false
	case "up", "k":
		if m.panelScroll > 0 {
			m.panelScroll--
		}
	case "down", "j":
		if m.panelScroll < m.panelMaxScroll {
			m.panelScroll++
		}
	case "pgup", "b":
		m.panelScroll -= pageSize
		if m.panelScroll < 0 {
			m.panelScroll = 0
		}
	case "pgdown", "f", " ":
		m.panelScroll += pageSize
		if m.panelScroll > m.panelMaxScroll {
			m.panelScroll = m.panelMaxScroll
		}
	case "home", "g":
		m.panelScroll = 0
	case "end", "G":
		m.panelScroll = m.panelMaxScroll
	}
	return m, nil
}

// panelView renders the panel.
func (m Model) panelView() string {
	boxWidth := m.width - 4
	if boxWidth < 40 {
		boxWidth = 40
	}
	visibleHeight := m.panelVisibleHeight()

	var s strings.Builder
	s.WriteString(PanelTitleStyle.Render(m.panelTitle))
	s.WriteString("\n\n")

	if m.panelScroll > 0 {
		s.WriteString(PanelScrollStyle.Render(fmt.Sprintf("  ▲ %d de plus", m.panelScroll)))
		s.WriteString("\n")
	}

	end := m.panelScroll + visibleHeight
	if end > len(m.panelLines) {
		end = len(m.panelLines)
	}
	for i := m.panelScroll; i < end; i++ {
		s.WriteString(truncateText(m.panelLines[i], boxWidth-6))
		s.WriteString("\n")
	}

	if remaining := len(m.panelLines) - end; remaining > 0 {
		s.WriteString(PanelScrollStyle.Render(fmt.Sprintf("  ▼ %d de plus", remaining)))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(PanelFooterStyle.Render("↑/↓ Défiler │ PgUp/PgDn Page │ Échap Fermer"))

	return PanelBoxStyle.Width(boxWidth).Render(s.String())
}
