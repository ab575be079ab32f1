package tui

// ViewState is the screen the TUI currently shows.
type ViewState int

const (
	StateChat ViewState = iota
	StateWizard
)

func (s ViewState) String() string {
	switch s {
	case StateWizard:
		return "wizard"
	default:
		return "chat"
	}
}

// SetState switches screens. Leaving the wizard drops it.
func (m *Model) SetState(s ViewState) {
	if s == StateChat && m.wizard != nil {
		m.wizard.close()
		m.wizard = nil
	}
	m.state = s
	m.recalculateLayout()
}

// State returns the current screen.
func (m Model) State() ViewState {
	return m.state
}
