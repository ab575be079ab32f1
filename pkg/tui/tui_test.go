package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"GrowthFlow/pkg/api"
	"GrowthFlow/pkg/conversation"
	"GrowthFlow/pkg/health"
	"GrowthFlow/pkg/resume"
	"GrowthFlow/pkg/wizard"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu      sync.Mutex
	result  *api.ChatResult
	err     error
	chunks  []string
	cleared int
}

func (f *fakeTransport) SendMessage(ctx context.Context, message string, flow api.Flow, _ api.FormData) (*api.ChatResult, error) {
	return f.result, f.err
}

func (f *fakeTransport) StreamMessage(ctx context.Context, message string, flow api.Flow, _ api.FormData, onChunk func(string)) (*api.ChatResult, error) {
	var sb strings.Builder
	for _, c := range f.chunks {
		sb.WriteString(c)
		onChunk(c)
	}
	if f.result != nil {
		return f.result, f.err
	}
	return &api.ChatResult{Text: sb.String()}, f.err
}

func (f *fakeTransport) ClearSession() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}

type fakeResumes struct {
	resumes map[string]*resume.Resume
}

func (f *fakeResumes) GetResume(ctx context.Context, id string) (*resume.Resume, error) {
	if r, ok := f.resumes[id]; ok {
		return r, nil
	}
	return nil, api.ErrResumeNotFound
}

type fakeExporter struct {
	dirs []string
}

func (f *fakeExporter) ExportResume(ctx context.Context, r *resume.Resume, dir string) (string, error) {
	f.dirs = append(f.dirs, dir)
	return dir + "/" + resume.PDFFilename(r.ContactInfo.Name, r.ContactInfo.JobTitle), nil
}

type fakeChecker struct{}

func (fakeChecker) Check(ctx context.Context) *health.Status {
	return &health.Status{BackendStatus: "healthy"}
}

func (fakeChecker) FormatReport(s *health.Status) string {
	return "# Report\nBackend: " + s.BackendStatus
}

func newTestModel(t *testing.T, transport *fakeTransport, deps Deps) Model {
	t.Helper()
	deps.Conversation = conversation.New(transport, api.FlowPresentation)
	m := NewModel(context.Background(), deps)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	require.True(t, m.ready)
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok, "Update returned %T", next)
	return model, cmd
}

// runCmd executes cmd and returns the messages it produced, flattening
// batches and dropping spinner ticks.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	switch msg := msg.(type) {
	case nil, spinner.TickMsg:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, runCmd(c)...)
		}
		return out
	default:
		return []tea.Msg{msg}
	}
}

// typeAndSend submits text from the chat input and feeds back the results.
func typeAndSend(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.textarea.SetValue(text)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	for _, msg := range runCmd(cmd) {
		m, _ = update(t, m, msg)
	}
	return m
}

func TestInitialViewShowsGreetingAndHeader(t *testing.T) {
	m := newTestModel(t, &fakeTransport{}, Deps{})
	view := m.View()
	assert.Contains(t, view, AppTitle)
	assert.Contains(t, view, "General Info")
	assert.Contains(t, view, conversation.Greeting)
}

func TestChatTurnRendersReply(t *testing.T) {
	tr := &fakeTransport{result: &api.ChatResult{Text: "Je suis <b>GrowthFlow</b>."}}
	m := newTestModel(t, tr, Deps{})

	m.textarea.SetValue("Qui es-tu ?")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.busy)
	assert.Empty(t, m.textarea.Value())
	assert.Contains(t, m.View(), "réfléchit")

	for _, msg := range runCmd(cmd) {
		m, _ = update(t, m, msg)
	}
	assert.False(t, m.busy)
	view := m.viewport.View()
	assert.Contains(t, view, "Qui es-tu ?")
	assert.Contains(t, view, "Je suis GrowthFlow.")
}

func TestEnterIgnoredWhileBusy(t *testing.T) {
	m := newTestModel(t, &fakeTransport{}, Deps{})
	m.busy = true
	m.textarea.SetValue("encore")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "encore", m.textarea.Value())
}

func TestChatFailureShowsErrorBubble(t *testing.T) {
	m := newTestModel(t, &fakeTransport{err: errors.New("boom")}, Deps{})
	m = typeAndSend(t, m, "Bonjour")
	view := m.viewport.View()
	assert.Contains(t, view, "⚠")
	assert.Contains(t, view, "Please try again.")
}

func TestStreamingUpdatesOneBubble(t *testing.T) {
	tr := &fakeTransport{chunks: []string{"Hel", "lo ", "there"}}
	m := newTestModel(t, tr, Deps{Streaming: true})

	m.textarea.SetValue("Hi")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	msgs := runCmd(cmd)
	require.Len(t, msgs, 1)
	require.IsType(t, streamDoneMsg{}, msgs[0])

	msgsNow := m.deps.Conversation.Messages()
	last := msgsNow[len(msgsNow)-1]
	m, _ = update(t, m, streamUpdateMsg{message: last})
	assert.Equal(t, last.ID, m.streamingID)
	assert.Contains(t, m.viewport.View(), "▌")

	m, _ = update(t, m, msgs[0])
	assert.False(t, m.busy)
	view := m.viewport.View()
	assert.Equal(t, 1, strings.Count(view, "Hello there"))
	assert.NotContains(t, view, "▌")
}

func TestWidgetRouteOpensWizard(t *testing.T) {
	tr := &fakeTransport{result: &api.ChatResult{Widget: &api.Widget{NextAction: "RENDER_CV_FORM"}}}
	m := newTestModel(t, tr, Deps{NewWizard: func() *wizard.Orchestrator { return wizard.New(nil, nil) }})

	m = typeAndSend(t, m, "Je veux un CV")
	require.Equal(t, StateWizard, m.State())
	require.NotNil(t, m.wizard)
	assert.Equal(t, wizard.KindWelcome, m.wizard.cfg.Kind)
	assert.Contains(t, m.View(), wizard.WelcomeButton)
}

func TestStreamingWidgetRouteOpensWizard(t *testing.T) {
	tr := &fakeTransport{result: &api.ChatResult{Widget: &api.Widget{NextAction: "RENDER_CV_FORM"}}}
	m := newTestModel(t, tr, Deps{
		Streaming: true,
		NewWizard: func() *wizard.Orchestrator { return wizard.New(nil, nil) },
	})

	m = typeAndSend(t, m, "Je veux un CV")
	require.Equal(t, StateWizard, m.State())
	assert.False(t, m.busy)
	msgs := m.deps.Conversation.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, conversation.SenderUser, msgs[1].Sender)
}

func TestResumeLoadFailureKeepsStatus(t *testing.T) {
	m := newTestModel(t, &fakeTransport{}, Deps{})
	m, _ = update(t, m, resumeLoadedMsg{id: "r9", err: errors.New("timeout")})
	assert.False(t, m.panelActive)
	assert.Equal(t, "CV r9 : timeout", m.status)
}

func TestWidgetRouteWithoutWizard(t *testing.T) {
	tr := &fakeTransport{result: &api.ChatResult{Widget: &api.Widget{NextAction: "RENDER_CV_FORM"}}}
	m := newTestModel(t, tr, Deps{})
	m = typeAndSend(t, m, "Je veux un CV")
	assert.Equal(t, StateChat, m.State())
	assert.Contains(t, m.status, "pas disponible")
}

func TestFlowCommand(t *testing.T) {
	m := newTestModel(t, &fakeTransport{}, Deps{NewWizard: func() *wizard.Orchestrator { return wizard.New(nil, nil) }})

	m = typeAndSend(t, m, "/flow roadmap")
	assert.Equal(t, api.FlowRoadmap, m.deps.Conversation.Flow())
	assert.Contains(t, m.status, "Build a Roadmap")
	assert.Contains(t, m.renderHeader(), "Build a Roadmap")

	m = typeAndSend(t, m, "/flow nowhere")
	assert.Contains(t, m.status, `Parcours inconnu "nowhere"`)
	assert.Equal(t, api.FlowRoadmap, m.deps.Conversation.Flow())

	m = typeAndSend(t, m, "/flow")
	assert.Contains(t, m.status, "Parcours actuel : Build a Roadmap")

	m = typeAndSend(t, m, "/flow DYNAMIC_CV")
	assert.Equal(t, api.FlowDynamicCV, m.deps.Conversation.Flow())
	assert.Equal(t, StateWizard, m.State())
}

func TestUnknownCommand(t *testing.T) {
	m := newTestModel(t, &fakeTransport{}, Deps{})
	m = typeAndSend(t, m, "/dance")
	assert.Contains(t, m.status, "Commande inconnue : /dance")
}

func TestPanickingCommandKeepsModel(t *testing.T) {
	m := newTestModel(t, &fakeTransport{}, Deps{})
	boom := &Command{Name: "boom", Handler: func(*Model, []string) (tea.Model, tea.Cmd) {
		panic("nil resume")
	}}

	var next tea.Model
	var cmd tea.Cmd
	require.NotPanics(t, func() { next, cmd = m.runCommand(boom, nil) })
	assert.Nil(t, cmd)
	got, ok := next.(Model)
	require.True(t, ok)
	assert.Equal(t, "La commande /boom a échoué.", got.status)
	assert.Equal(t, StateChat, got.State())
}

func TestFindCommandAliases(t *testing.T) {
	require.NotNil(t, FindCommand("/exit"))
	assert.Equal(t, "quit", FindCommand("/exit").Name)
	assert.Equal(t, "export", FindCommand("PDF").Name)
	assert.Nil(t, FindCommand("nope"))
}

func TestHelpPanelOpensAndCloses(t *testing.T) {
	m := newTestModel(t, &fakeTransport{}, Deps{})
	m = typeAndSend(t, m, "/help")
	require.True(t, m.panelActive)
	view := m.View()
	assert.Contains(t, view, "/resume <id>")
	assert.Contains(t, view, "/health")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.panelActive)
}

func TestNewCommandResetsConversation(t *testing.T) {
	tr := &fakeTransport{result: &api.ChatResult{Text: "ok"}}
	m := newTestModel(t, tr, Deps{})
	m = typeAndSend(t, m, "Bonjour")
	require.Len(t, m.deps.Conversation.Messages(), 3)

	m = typeAndSend(t, m, "/new")
	msgs := m.deps.Conversation.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, conversation.Greeting, msgs[0].Text)
	assert.Equal(t, 1, tr.cleared)
}

func TestHealthCommand(t *testing.T) {
	m := newTestModel(t, &fakeTransport{}, Deps{Health: fakeChecker{}})
	m = typeAndSend(t, m, "/health")
	require.True(t, m.panelActive)
	assert.Contains(t, m.panelLines, "Backend: healthy")

	m = newTestModel(t, &fakeTransport{}, Deps{})
	m = typeAndSend(t, m, "/health")
	assert.False(t, m.panelActive)
	assert.Contains(t, m.status, "indisponible")
}

func TestResumeAndExportCommands(t *testing.T) {
	ada := &resume.Resume{ContactInfo: resume.ContactInfo{Name: "Ada Lovelace", JobTitle: "PM"}}
	exp := &fakeExporter{}
	m := newTestModel(t, &fakeTransport{}, Deps{
		Resumes:   &fakeResumes{resumes: map[string]*resume.Resume{"r1": ada}},
		Exporter:  exp,
		ExportDir: "/out",
	})

	m = typeAndSend(t, m, "/resume r1")
	require.True(t, m.panelActive)
	assert.Contains(t, m.panelTitle, "Ada Lovelace")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	m = typeAndSend(t, m, "/resume missing")
	require.True(t, m.panelActive)
	assert.Equal(t, "📄 CV missing", m.panelTitle)
	assert.Contains(t, strings.Join(m.panelLines, "\n"), "Aucun CV trouvé pour l'identifiant missing.")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.panelActive)

	m = typeAndSend(t, m, "/export r1")
	assert.Equal(t, []string{"/out"}, exp.dirs)
	assert.True(t, strings.HasPrefix(m.status, "PDF enregistré : /out/"), m.status)

	m = typeAndSend(t, m, "/export")
	assert.Equal(t, "Usage : /export <id>", m.status)
}

func TestLogsCommand(t *testing.T) {
	var asked int
	m := newTestModel(t, &fakeTransport{}, Deps{Logs: func(n int) string {
		asked = n
		return "line one\nline two\n"
	}})
	m = typeAndSend(t, m, "/logs")
	require.True(t, m.panelActive)
	assert.Equal(t, logLines, asked)
	assert.Equal(t, []string{"line one", "line two"}, m.panelLines)
}

func TestPanelScrolling(t *testing.T) {
	m := newTestModel(t, &fakeTransport{}, Deps{})
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = "ligne"
	}
	m.openPanel("Long", strings.Join(lines, "\n"))
	require.Positive(t, m.panelMaxScroll)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.panelScroll)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnd})
	assert.Equal(t, m.panelMaxScroll, m.panelScroll)
	assert.Contains(t, m.panelView(), "▲")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyHome})
	assert.Equal(t, 0, m.panelScroll)
	assert.Contains(t, m.panelView(), "▼")
}

func TestCtrlCQuits(t *testing.T) {
	m := newTestModel(t, &fakeTransport{}, Deps{})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
