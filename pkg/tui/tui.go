// Package tui is the interactive terminal front end: a chat view on the
// conversation orchestrator and a form view on the résumé wizard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"GrowthFlow/pkg/api"
	"GrowthFlow/pkg/conversation"
	"GrowthFlow/pkg/health"
	"GrowthFlow/pkg/recovery"
	"GrowthFlow/pkg/resume"
	"GrowthFlow/pkg/wizard"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// AppTitle is shown in the header.
const AppTitle = "Growth With Flow Chatbot"

// ResumeSource fetches generated résumés.
type ResumeSource interface {
	GetResume(ctx context.Context, resumeID string) (*resume.Resume, error)
}

// Exporter writes the PDF of a résumé into dir and returns its path.
type Exporter interface {
	ExportResume(ctx context.Context, r *resume.Resume, dir string) (string, error)
}

// HealthChecker runs the backend health check.
type HealthChecker interface {
	Check(ctx context.Context) *health.Status
	FormatReport(status *health.Status) string
}

// Deps is everything the TUI drives. Only Conversation is required.
type Deps struct {
	Conversation *conversation.Orchestrator
	// NewWizard builds a fresh wizard for each résumé run.
	NewWizard func() *wizard.Orchestrator
	Resumes   ResumeSource
	Exporter  Exporter
	ExportDir string
	Health    HealthChecker
	// Logs returns the last n lines of the log file.
	Logs           func(n int) string
	Streaming      bool
	ShowTimestamps bool
	Log            *zap.Logger
}

// programBridge lets background commands post messages to the running program.
type programBridge struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (b *programBridge) post(msg tea.Msg) {
	if b == nil {
		return
	}
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

func (b *programBridge) attach(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

// Model is the bubbletea model of the application.
type Model struct {
	ctx    context.Context
	deps   Deps
	log    *zap.Logger
	bridge *programBridge

	state    ViewState
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	width    int
	height   int
	ready    bool

	// busy is true while a chat turn is in flight; streamingID is the
	// bubble being extended.
	busy        bool
	streamingID string
	status      string

	wizard *wizardView

	panelActive    bool
	panelTitle     string
	panelLines     []string
	panelScroll    int
	panelMaxScroll int
}

// Message types
type (
	chatReplyMsg struct {
		route *conversation.Route
		err   error
	}
	streamUpdateMsg struct {
		message conversation.Message
	}
	streamDoneMsg struct {
		route *conversation.Route
		err   error
	}
	wizardDoneMsg struct {
		view *wizardView
		err  error
	}
	resumeLoadedMsg struct {
		id     string
		resume *resume.Resume
		err    error
	}
	exportDoneMsg struct {
		path string
		err  error
	}
	healthReportMsg struct {
		report string
	}
)

// NewModel builds the model. ctx bounds every backend call it starts.
func NewModel(ctx context.Context, deps Deps) Model {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	ta := textarea.New()
	ta.Placeholder = "Écrivez votre message..."
	ta.Focus()
	ta.CharLimit = 4000
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = InputBorderStyle
	ta.BlurredStyle.Base = InputBorderStyle.BorderForeground(MutedColor)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	return Model{
		ctx:      ctx,
		deps:     deps,
		log:      deps.Log,
		bridge:   &programBridge{},
		state:    StateChat,
		textarea: ta,
		spinner:  sp,
		width:    80,
		height:   24,
	}
}

// Update handles TUI events
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.panelActive {
			return m.panelUpdate(msg)
		}
		if m.state == StateWizard && m.wizard != nil {
			return m.updateWizard(msg)
		}
		return m.updateChat(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalculateLayout()
		m.updateViewport()
		return m, nil

	case chatReplyMsg:
		return m.finishTurn(msg.route, msg.err)

	case streamUpdateMsg:
		m.streamingID = msg.message.ID
		m.updateViewport()
		return m, nil

	case streamDoneMsg:
		return m.finishTurn(msg.route, msg.err)

	case wizardDoneMsg:
		return m.handleWizardResult(msg)

	case resumeLoadedMsg:
		if errors.Is(msg.err, api.ErrResumeNotFound) {
			m.openPanel("📄 CV "+msg.id, fmt.Sprintf("Aucun CV trouvé pour l'identifiant %s.\nVérifiez le lien ou générez un nouveau CV avec /cv.", msg.id))
			return m, nil
		}
		if msg.err != nil {
			m.status = fmt.Sprintf("CV %s : %v", msg.id, msg.err)
			return m, nil
		}
		m.openPanel("📄 "+resumeTitle(msg.resume), resume.RenderText(msg.resume, m.panelTextWidth()))
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.status = "Export PDF impossible : " + msg.err.Error()
		} else {
			m.status = "PDF enregistré : " + msg.path
		}
		return m, nil

	case healthReportMsg:
		m.openPanel("Health Check", msg.report)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		if m.busy {
			m.updateViewport()
		}
		return m, tea.Batch(cmds...)
	}

	if m.state == StateWizard && m.wizard != nil {
		return m, m.wizard.updateFocused(msg)
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		if m.busy {
			return m, nil
		}
		return m.sendCurrentMessage()
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	m.status = ""
	if m.busy {
		return m, nil
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// sendCurrentMessage sends the textarea content or runs it as a command.
func (m Model) sendCurrentMessage() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}
	m.textarea.Reset()

	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	m.busy = true
	m.status = ""
	m.textarea.Blur()
	return m, tea.Batch(m.sendMessage(input), m.spinner.Tick)
}

// sendMessage runs one chat turn off the UI goroutine.
func (m Model) sendMessage(input string) tea.Cmd {
	ctx := m.ctx
	conv := m.deps.Conversation
	if m.deps.Streaming {
		bridge := m.bridge
		return func() tea.Msg {
			route, err := conv.SendStream(ctx, input, func(msg conversation.Message) {
				bridge.post(streamUpdateMsg{message: msg})
			})
			return streamDoneMsg{route: route, err: err}
		}
	}
	return func() tea.Msg {
		route, err := conv.Send(ctx, input)
		return chatReplyMsg{route: route, err: err}
	}
}

// finishTurn ends a chat turn and follows a widget route if one came back.
func (m Model) finishTurn(route *conversation.Route, err error) (tea.Model, tea.Cmd) {
	m.busy = false
	m.streamingID = ""
	if err != nil {
		m.status = err.Error()
	}
	m.updateViewport()
	if route != nil {
		m.log.Info("widget route", zap.String("next_action", route.NextAction))
		return m.openWizard()
	}
	m.textarea.Focus()
	return m, nil
}

// handleCommand runs a slash command.
func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	name, args := splitArgs(input)
	cmd := FindCommand(name)
	if cmd == nil {
		m.status = fmt.Sprintf("Commande inconnue : /%s (tapez /help)", name)
		return m, nil
	}
	return m.runCommand(cmd, args)
}

// runCommand calls the command handler; a panic leaves the model as it was
// with a status line.
func (m Model) runCommand(cmd *Command, args []string) (tea.Model, tea.Cmd) {
	var (
		next    tea.Model
		nextCmd tea.Cmd
	)
	err := recovery.WrapWithRecovery("tui command /"+cmd.Name, func() error {
		next, nextCmd = cmd.Handler(&m, args)
		return nil
	})
	if err != nil {
		m.status = fmt.Sprintf("La commande /%s a échoué.", cmd.Name)
		return m, nil
	}
	return next, nextCmd
}

// openWizard switches to the wizard on a fresh run.
func (m Model) openWizard() (tea.Model, tea.Cmd) {
	if m.deps.NewWizard == nil {
		m.status = "Le CV dynamique n'est pas disponible."
		return m, nil
	}
	m.wizard = newWizardView(m.deps.NewWizard(), m.width)
	m.textarea.Blur()
	m.SetState(StateWizard)
	return m, m.wizard.focusCmd()
}

// closeWizard returns to the chat view.
func (m Model) closeWizard(note string) (tea.Model, tea.Cmd) {
	m.SetState(StateChat)
	m.status = note
	m.updateViewport()
	return m, m.textarea.Focus()
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return m.spinner.View() + " Initialisation..."
	}
	if m.panelActive {
		return m.panelView()
	}

	sections := []string{
		m.renderHeader(),
		m.renderStatusBar(),
		m.renderDivider(),
	}

	if m.state == StateWizard && m.wizard != nil {
		sections = append(sections,
			m.wizard.view(m.spinner.View(), m.wizardHeight()),
			m.renderDivider(),
			m.renderHelpBar(),
		)
		return strings.Join(sections, "\n")
	}

	sections = append(sections, m.viewport.View(), m.renderDivider())
	if m.busy {
		sections = append(sections, m.renderProcessingArea())
	} else {
		sections = append(sections, m.textarea.View())
	}
	sections = append(sections, m.renderHelpBar())
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	left := HeaderTitleStyle.Render("🌱 " + AppTitle)
	right := HeaderFlowStyle.Render(conversation.FlowName(m.deps.Conversation.Flow()))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		right = ""
		gap = m.width - lipgloss.Width(left)
		if gap < 0 {
			gap = 0
		}
	}
	return HeaderBarStyle.Width(m.width).Render(
		lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Repeat(" ", gap), right))
}

func (m Model) renderStatusBar() string {
	var badge string
	switch {
	case m.state == StateWizard:
		badge = WizardBadgeStyle.Render(" CV ")
	case m.busy:
		badge = BusyBadgeStyle.Render(" ... ")
	default:
		badge = IdleBadgeStyle.Render(" PRÊT ")
	}

	note := ""
	if m.status != "" {
		note = StatusNoteStyle.Render(truncateText(m.status, m.width-lipgloss.Width(badge)-4))
	}
	return StatusBarStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, badge, note))
}

// renderProcessingArea has the same height as the textarea it replaces.
func (m Model) renderProcessingArea() string {
	line := m.spinner.View() + " Le bot réfléchit..."
	return InputBorderStyle.
		BorderForeground(AccentColor).
		Width(m.width - 4).
		Render(line + "\n\n")
}

func (m Model) renderHelpBar() string {
	var help string
	switch {
	case m.state == StateWizard && m.wizard != nil:
		help = m.wizard.helpText()
	case m.busy:
		help = "⏳ Envoi en cours... │ ^C Quitter"
	default:
		help = "↵ Envoyer │ /help Commandes │ PgUp/PgDn Défiler │ ^C Quitter"
	}
	return HelpStyle.Render(truncateText(help, m.width))
}

func (m Model) renderDivider() string {
	w := m.width
	if w < 1 {
		w = 1
	}
	return DividerStyle.Render(strings.Repeat("─", w))
}

// updateViewport re-renders the conversation into the viewport.
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}
	wasAtBottom := m.viewport.AtBottom()

	msgs := m.deps.Conversation.Messages()
	rendered := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		streaming := m.busy && msg.ID == m.streamingID
		rendered = append(rendered, renderMessage(msg, m.viewport.Width, m.deps.ShowTimestamps, streaming))
	}
	m.viewport.SetContent(strings.Join(rendered, "\n\n"))

	if wasAtBottom || m.busy {
		m.viewport.GotoBottom()
	}
}

// Run starts the TUI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, deps Deps) error {
	if deps.Conversation == nil {
		return errors.New("tui: no conversation")
	}
	m := NewModel(ctx, deps)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	m.bridge.attach(p.Send)
	defer m.bridge.attach(nil)

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
