package tui

import "github.com/charmbracelet/bubbles/viewport"

// Layout constants for consistent spacing
const (
	HeaderHeight    = 1
	StatusBarHeight = 1
	DividerHeight   = 1
	TextareaHeight  = 5 // 3 inner lines + 2 for border
	HelpBarHeight   = 1
	MinBodyHeight   = 5
)

// chatFixedHeight is the height of every chat section but the viewport.
func chatFixedHeight() int {
	return HeaderHeight + StatusBarHeight + 2*DividerHeight + TextareaHeight + HelpBarHeight
}

// wizardHeight is the room left for the wizard form.
func (m Model) wizardHeight() int {
	h := m.height - (HeaderHeight + StatusBarHeight + 2*DividerHeight + HelpBarHeight)
	if h < MinBodyHeight {
		h = MinBodyHeight
	}
	return h
}

// recalculateLayout updates viewport, textarea and wizard dimensions.
// Must be called whenever the size or the screen changes.
func (m *Model) recalculateLayout() {
	vpHeight := m.height - chatFixedHeight()
	if vpHeight < MinBodyHeight {
		vpHeight = MinBodyHeight
	}
	vpWidth := m.width - 2
	if vpWidth < 20 {
		vpWidth = 20
	}
	yPos := HeaderHeight + StatusBarHeight + DividerHeight

	if !m.ready {
		m.viewport = viewport.New(vpWidth, vpHeight)
		m.viewport.YPosition = yPos
		m.ready = true
	} else {
		m.viewport.Width = vpWidth
		m.viewport.Height = vpHeight
		m.viewport.YPosition = yPos
	}

	m.textarea.SetWidth(m.width - 6)
	m.textarea.SetHeight(3)

	if m.wizard != nil {
		m.wizard.resize(m.width)
	}
}

// panelTextWidth is the wrap width of panel content.
func (m Model) panelTextWidth() int {
	w := m.width - 12
	if w < 30 {
		w = 30
	}
	return w
}
