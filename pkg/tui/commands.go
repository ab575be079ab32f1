package tui

import (
	"context"
	"fmt"
	"strings"

	"GrowthFlow/pkg/api"
	"GrowthFlow/pkg/conversation"
	"GrowthFlow/pkg/resume"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// logLines is how much of the log file /logs shows.
const logLines = 200

// Command represents a TUI command
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Handler     func(*Model, []string) (tea.Model, tea.Cmd)
}

// CommandCategory represents a command category
type CommandCategory struct {
	Name     string
	Icon     string
	Commands []Command
}

// GetAllCommands returns the slash commands grouped for /help.
func GetAllCommands() []CommandCategory {
	return []CommandCategory{
		{
			Name: "Conversation",
			Icon: "💬",
			Commands: []Command{
				{Name: "new", Aliases: []string{"clear"}, Description: "Nouvelle conversation", Usage: "/new", Handler: cmdNew},
				{Name: "flow", Description: "Changer de parcours", Usage: "/flow <PRESENTATION|ROADMAP|DYNAMIC_CV>", Handler: cmdFlow},
				{Name: "cv", Description: "Lancer le CV dynamique", Usage: "/cv", Handler: cmdCV},
			},
		},
		{
			Name: "CV",
			Icon: "📄",
			Commands: []Command{
				{Name: "resume", Description: "Afficher un CV généré", Usage: "/resume <id>", Handler: cmdResume},
				{Name: "export", Aliases: []string{"pdf"}, Description: "Exporter un CV en PDF", Usage: "/export <id>", Handler: cmdExport},
			},
		},
		{
			Name: "Système",
			Icon: "🖥️",
			Commands: []Command{
				{Name: "health", Description: "État du backend", Usage: "/health", Handler: cmdHealth},
				{Name: "logs", Description: "Dernières lignes du journal", Usage: "/logs", Handler: cmdLogs},
				{Name: "help", Aliases: []string{"h", "?"}, Description: "Liste des commandes", Usage: "/help", Handler: cmdHelp},
				{Name: "quit", Aliases: []string{"exit", "q"}, Description: "Quitter", Usage: "/quit", Handler: cmdQuit},
			},
		},
	}
}

// FindCommand looks a command up by name or alias, with or without the slash.
func FindCommand(name string) *Command {
	name = strings.ToLower(strings.TrimPrefix(name, "/"))
	for _, cat := range GetAllCommands() {
		for _, cmd := range cat.Commands {
			if cmd.Name == name {
				return &cmd
			}
			for _, alias := range cmd.Aliases {
				if alias == name {
					return &cmd
				}
			}
		}
	}
	return nil
}

func helpContent() string {
	var sb strings.Builder
	for i, cat := range GetAllCommands() {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s %s\n", cat.Icon, cat.Name)
		for _, cmd := range cat.Commands {
			fmt.Fprintf(&sb, "  %-44s %s\n", cmd.Usage, cmd.Description)
		}
	}
	return sb.String()
}

// Command Handlers

func cmdNew(m *Model, args []string) (tea.Model, tea.Cmd) {
	if err := m.deps.Conversation.NewChat(); err != nil {
		m.log.Warn("session reset failed", zap.Error(err))
	}
	m.busy = false
	m.streamingID = ""
	m.status = "✨ Nouvelle conversation"
	m.updateViewport()
	return *m, m.textarea.Focus()
}

func cmdFlow(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		ids := make([]string, 0, 3)
		for _, f := range conversation.Flows() {
			ids = append(ids, string(f))
		}
		m.status = fmt.Sprintf("Parcours actuel : %s (%s)",
			conversation.FlowName(m.deps.Conversation.Flow()), strings.Join(ids, ", "))
		return *m, nil
	}

	flow, ok := conversation.ParseFlow(strings.Join(args, " "))
	if !ok {
		m.status = fmt.Sprintf("Parcours inconnu %q", args[0])
		return *m, nil
	}
	m.deps.Conversation.SwitchFlow(flow)
	m.status = "Parcours : " + conversation.FlowName(flow)
	if flow == api.FlowDynamicCV {
		return m.openWizard()
	}
	return *m, nil
}

func cmdCV(m *Model, args []string) (tea.Model, tea.Cmd) {
	return m.openWizard()
}

func cmdResume(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		m.status = "Usage : /resume <id>"
		return *m, nil
	}
	if m.deps.Resumes == nil {
		m.status = "Consultation des CV indisponible"
		return *m, nil
	}
	return *m, loadResume(m.ctx, m.deps.Resumes, args[0])
}

func cmdExport(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		m.status = "Usage : /export <id>"
		return *m, nil
	}
	if m.deps.Resumes == nil || m.deps.Exporter == nil {
		m.status = "Export PDF indisponible"
		return *m, nil
	}
	m.status = "Export du CV " + args[0] + "..."
	return *m, exportResume(m.ctx, m.deps.Resumes, m.deps.Exporter, m.deps.ExportDir, args[0])
}

func cmdHealth(m *Model, args []string) (tea.Model, tea.Cmd) {
	if m.deps.Health == nil {
		m.status = "Health check indisponible"
		return *m, nil
	}
	m.status = "Vérification du backend..."
	ctx, checker := m.ctx, m.deps.Health
	return *m, func() tea.Msg {
		return healthReportMsg{report: checker.FormatReport(checker.Check(ctx))}
	}
}

func cmdLogs(m *Model, args []string) (tea.Model, tea.Cmd) {
	if m.deps.Logs == nil {
		m.status = "Pas de journal"
		return *m, nil
	}
	content := m.deps.Logs(logLines)
	if strings.TrimSpace(content) == "" {
		content = "(journal vide)"
	}
	m.openPanel("📋 Journal", content)
	return *m, nil
}

func cmdHelp(m *Model, args []string) (tea.Model, tea.Cmd) {
	m.openPanel("Commandes", helpContent())
	return *m, nil
}

func cmdQuit(m *Model, args []string) (tea.Model, tea.Cmd) {
	return *m, tea.Quit
}

func loadResume(ctx context.Context, src ResumeSource, id string) tea.Cmd {
	return func() tea.Msg {
		r, err := src.GetResume(ctx, id)
		return resumeLoadedMsg{id: id, resume: r, err: err}
	}
}

func exportResume(ctx context.Context, src ResumeSource, exp Exporter, dir, id string) tea.Cmd {
	return func() tea.Msg {
		r, err := src.GetResume(ctx, id)
		if err != nil {
			return exportDoneMsg{err: err}
		}
		path, err := exp.ExportResume(ctx, r, dir)
		return exportDoneMsg{path: path, err: err}
	}
}

func resumeTitle(r *resume.Resume) string {
	parts := make([]string, 0, 2)
	if r.ContactInfo.Name != "" {
		parts = append(parts, r.ContactInfo.Name)
	}
	if r.ContactInfo.JobTitle != "" {
		parts = append(parts, r.ContactInfo.JobTitle)
	}
	if len(parts) == 0 {
		return "CV"
	}
	return strings.Join(parts, " · ")
}
