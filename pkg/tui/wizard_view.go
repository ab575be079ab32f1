package tui

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"GrowthFlow/pkg/resume"
	"GrowthFlow/pkg/wizard"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// Wizard notes shown in the chat status bar.
const (
	wizardCancelledNote = "CV dynamique annulé."
	wizardFinishedNote  = "CV dynamique terminé."
	exportLabel         = "Exporter en PDF"
	closeLabel          = "Fermer"
	cancelLabel         = "Annuler"
)

type wizardButton int

const (
	buttonStart wizardButton = iota
	buttonNext
	buttonPrevious
	buttonCancel
	buttonViewResume
	buttonExport
	buttonClose
)

// formField is the input widget of one visible field.
type formField struct {
	spec   wizard.FieldSpec
	input  textinput.Model
	area   textarea.Model
	other  textinput.Model
	choice int
}

func newFormField(spec wizard.FieldSpec, hidden map[string]string, width int) *formField {
	f := &formField{spec: spec, choice: -1}

	switch spec.Type {
	case wizard.FieldTextarea:
		ta := textarea.New()
		ta.Placeholder = spec.Placeholder
		ta.ShowLineNumbers = false
		ta.CharLimit = 6000
		ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
		ta.FocusedStyle.Base = InputBorderStyle
		ta.BlurredStyle.Base = InputBorderStyle.BorderForeground(MutedColor)
		rows := spec.Rows
		if rows <= 0 || rows > 6 {
			rows = 6
		}
		ta.SetHeight(rows)
		ta.SetValue(spec.Value)
		f.area = ta

	case wizard.FieldRadio:
		for i, o := range spec.Options {
			if o.Value == spec.Value {
				f.choice = i
			}
		}
		if spec.AllowOtherText {
			f.other = newTextInput(spec.OtherPlaceholder, hidden[spec.OtherName()], 200)
		}

	case wizard.FieldURL:
		f.input = newTextInput(spec.Placeholder, spec.Value, 2048)

	default:
		f.input = newTextInput(spec.Placeholder, spec.Value, 200)
	}

	f.resize(width)
	return f
}

func newTextInput(placeholder, value string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = "› "
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.SetValue(value)
	return ti
}

func (f *formField) resize(width int) {
	w := width - 8
	if w < 20 {
		w = 20
	}
	f.input.Width = w
	f.other.Width = w
	if f.spec.Type == wizard.FieldTextarea {
		f.area.SetWidth(w)
	}
}

// otherActive reports whether the free-text "other" input is showing.
func (f *formField) otherActive() bool {
	return f.spec.Type == wizard.FieldRadio && f.spec.AllowOtherText &&
		f.choice >= 0 && f.spec.Options[f.choice].Value == wizard.RoleOther
}

func (f *formField) focus() tea.Cmd {
	switch f.spec.Type {
	case wizard.FieldTextarea:
		return f.area.Focus()
	case wizard.FieldRadio:
		if f.otherActive() {
			return f.other.Focus()
		}
		return nil
	default:
		return f.input.Focus()
	}
}

func (f *formField) blur() {
	f.input.Blur()
	f.area.Blur()
	f.other.Blur()
}

// update routes msg to the widget that has the cursor.
func (f *formField) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.spec.Type {
	case wizard.FieldTextarea:
		f.area, cmd = f.area.Update(msg)
	case wizard.FieldRadio:
		if f.otherActive() {
			f.other, cmd = f.other.Update(msg)
		}
	default:
		f.input, cmd = f.input.Update(msg)
	}
	return cmd
}

// selectOption moves the radio choice by delta, clamped to the options.
func (f *formField) selectOption(delta int) tea.Cmd {
	n := len(f.spec.Options)
	if n == 0 {
		return nil
	}
	next := f.choice + delta
	if f.choice < 0 {
		next = 0
	}
	if next < 0 {
		next = 0
	}
	if next >= n {
		next = n - 1
	}
	f.choice = next
	if f.otherActive() {
		return f.other.Focus()
	}
	f.other.Blur()
	return nil
}

// collect adds this field's submission to values.
func (f *formField) collect(values map[string]string) {
	switch f.spec.Type {
	case wizard.FieldTextarea:
		values[f.spec.Name] = strings.TrimSpace(f.area.Value())
	case wizard.FieldRadio:
		if f.choice < 0 {
			values[f.spec.Name] = ""
			return
		}
		values[f.spec.Name] = f.spec.Options[f.choice].Value
		if f.otherActive() {
			values[f.spec.OtherName()] = strings.TrimSpace(f.other.Value())
		}
	default:
		values[f.spec.Name] = strings.TrimSpace(f.input.Value())
	}
}

func (f *formField) view(focused bool, errs map[string]string) string {
	label := f.spec.Label
	if f.spec.Required {
		label += " *"
	}
	labelStyle := FieldLabelStyle
	if focused {
		labelStyle = FocusedLabelStyle
	}

	lines := []string{labelStyle.Render(label)}
	switch f.spec.Type {
	case wizard.FieldTextarea:
		lines = append(lines, f.area.View())
	case wizard.FieldRadio:
		for i, o := range f.spec.Options {
			if i == f.choice {
				lines = append(lines, SelectedOptionStyle.Render("  ◉ "+o.Label))
			} else {
				lines = append(lines, OptionStyle.Render("  ○ "+o.Label))
			}
		}
		if f.otherActive() {
			lines = append(lines, "    "+f.other.View())
		}
	default:
		lines = append(lines, f.input.View())
		if f.spec.AllowSkip && f.spec.SkipText != "" {
			lines = append(lines, StepDescriptionStyle.Render("  Laissez vide : "+f.spec.SkipText))
		}
	}

	for _, name := range []string{f.spec.Name, f.spec.OtherName()} {
		if msg, ok := errs[name]; ok {
			lines = append(lines, FieldErrorStyle.Render("✗ "+msg))
		}
	}
	return strings.Join(lines, "\n")
}

// wizardView renders one wizard run and turns keys into submissions.
type wizardView struct {
	orch    *wizard.Orchestrator
	cfg     wizard.StepConfig
	loadErr error
	fields  []*formField
	buttons []wizardButton
	focus   int
	button  int
	errors  map[string]string
	alert   string
	pending bool
	width   int
}

func newWizardView(orch *wizard.Orchestrator, width int) *wizardView {
	w := &wizardView{orch: orch, width: width}
	w.reload()
	return w
}

// reload rebuilds the widgets from the orchestrator's current step.
func (w *wizardView) reload() {
	cfg, err := w.orch.Config()
	w.cfg = cfg
	w.loadErr = err
	w.errors = nil
	w.fields = nil

	hidden := make(map[string]string)
	for _, f := range cfg.Fields {
		if f.Type == wizard.FieldHidden {
			hidden[f.Name] = f.Value
		}
	}
	for _, spec := range cfg.VisibleFields() {
		w.fields = append(w.fields, newFormField(spec, hidden, w.width))
	}

	switch cfg.Kind {
	case wizard.KindWelcome:
		w.buttons = []wizardButton{buttonStart, buttonCancel}
	case wizard.KindAnalysis:
		w.buttons = []wizardButton{buttonViewResume, buttonExport, buttonClose}
	case wizard.KindForm:
		w.buttons = []wizardButton{buttonNext}
		if cfg.CurrentStep > wizard.StepOffer {
			w.buttons = append(w.buttons, buttonPrevious)
		}
		w.buttons = append(w.buttons, buttonCancel)
	default:
		w.buttons = []wizardButton{buttonCancel}
	}

	w.focus = 0
	w.button = 0
}

func (w *wizardView) focusCmd() tea.Cmd {
	if w.onButtons() {
		return nil
	}
	return w.fields[w.focus].focus()
}

func (w *wizardView) onButtons() bool {
	return w.focus >= len(w.fields)
}

// moveFocus cycles through the fields and the button row.
func (w *wizardView) moveFocus(delta int) tea.Cmd {
	stops := len(w.fields) + 1
	if !w.onButtons() {
		w.fields[w.focus].blur()
	}
	w.focus = ((w.focus+delta)%stops + stops) % stops
	return w.focusCmd()
}

func (w *wizardView) values() map[string]string {
	values := make(map[string]string, len(w.fields))
	for _, f := range w.fields {
		f.collect(values)
	}
	return values
}

func (w *wizardView) updateFocused(msg tea.Msg) tea.Cmd {
	if w.onButtons() {
		return nil
	}
	return w.fields[w.focus].update(msg)
}

func (w *wizardView) resize(width int) {
	w.width = width
	for _, f := range w.fields {
		f.resize(width)
	}
}

// close aborts the run and any task in flight.
func (w *wizardView) close() {
	w.orch.Reset()
}

func (w *wizardView) buttonLabel(b wizardButton) string {
	switch b {
	case buttonStart:
		return w.cfg.ButtonText
	case buttonNext:
		return w.cfg.ButtonText
	case buttonPrevious:
		return wizard.PreviousLabel
	case buttonViewResume:
		return resume.ViewResumeLabel
	case buttonExport:
		return exportLabel
	case buttonClose:
		return closeLabel
	default:
		return cancelLabel
	}
}

func (w *wizardView) helpText() string {
	switch {
	case w.alert != "":
		return "↵ OK"
	case w.pending:
		return "⏳ Patientez... │ Échap Annuler la tâche"
	case w.cfg.Kind == wizard.KindForm:
		return "Tab Champ suivant │ ↑/↓ Choix │ ^S Valider │ Échap Quitter le CV"
	default:
		return "←/→ Choisir │ ↵ Valider │ Échap Retour au chat"
	}
}

func (w *wizardView) view(spin string, height int) string {
	var body string
	switch {
	case w.alert != "":
		body = lipgloss.Place(w.width, height, lipgloss.Center, lipgloss.Center,
			AlertBoxStyle.Render("⚠ "+w.alert+"\n\n[Entrée] OK"))
		return body
	case w.loadErr != nil:
		body = FieldErrorStyle.Render(wizard.InvalidStepNotice+" : "+w.loadErr.Error()) + "\n\n" + w.renderButtons()
	case w.pending:
		if live, err := w.orch.Config(); err == nil && live.Kind == wizard.KindLoading {
			body = w.loadingView(live, spin)
			break
		}
		body = w.formView() + "\n\n" + spin + " ..."
	case w.cfg.Kind == wizard.KindWelcome:
		body = w.welcomeView()
	case w.cfg.Kind == wizard.KindLoading:
		body = w.loadingView(w.cfg, spin)
	case w.cfg.Kind == wizard.KindAnalysis:
		body = w.analysisView()
	default:
		body = w.formView()
	}
	return lipgloss.NewStyle().Padding(0, 2).MaxHeight(height).Render(body)
}

func (w *wizardView) progressLine(cfg wizard.StepConfig) string {
	const barWidth = 22
	filled := int(cfg.Progress() * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	bar := SelectedOptionStyle.Render(strings.Repeat("█", filled)) +
		StepCounterStyle.Render(strings.Repeat("░", barWidth-filled))
	return StepCounterStyle.Render(fmt.Sprintf("Étape %d/%d ", int(cfg.CurrentStep), cfg.TotalSteps)) + bar
}

func (w *wizardView) textWidth() int {
	tw := w.width - 6
	if tw < 20 {
		tw = 20
	}
	return tw
}

func (w *wizardView) welcomeView() string {
	return strings.Join([]string{
		"",
		StepTitleStyle.Render(wrapText(w.cfg.Title, w.textWidth())),
		StepDescriptionStyle.Render(wrapText(w.cfg.Description, w.textWidth())),
		"",
		w.renderButtons(),
	}, "\n")
}

func (w *wizardView) loadingView(cfg wizard.StepConfig, spin string) string {
	return strings.Join([]string{
		w.progressLine(cfg),
		"",
		spin + " " + StepTitleStyle.Render(cfg.Title),
		StepDescriptionStyle.Render(cfg.Description),
	}, "\n")
}

func (w *wizardView) formView() string {
	cfg := w.cfg
	lines := []string{
		w.progressLine(cfg),
		"",
		StepTitleStyle.Render(wrapText(cfg.Title, w.textWidth())),
	}
	if cfg.Description != "" {
		style := StepDescriptionStyle
		if cfg.Notice != "" {
			style = NoticeStyle
		}
		lines = append(lines, style.Render(wrapText(cfg.Description, w.textWidth())))
	}
	lines = append(lines, "")

	for i, f := range w.fields {
		lines = append(lines, f.view(i == w.focus, w.errors), "")
	}
	if stray := w.strayErrors(); stray != "" {
		lines = append(lines, stray, "")
	}
	lines = append(lines, w.renderButtons())
	return strings.Join(lines, "\n")
}

// strayErrors renders validation messages for fields that are not shown.
func (w *wizardView) strayErrors() string {
	shown := make(map[string]bool)
	for _, f := range w.fields {
		shown[f.spec.Name] = true
		shown[f.spec.OtherName()] = true
	}
	var names []string
	for name := range w.errors {
		if !shown[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, FieldErrorStyle.Render("✗ "+w.errors[name]))
	}
	return strings.Join(out, "\n")
}

func (w *wizardView) analysisView() string {
	a := w.cfg.Analysis
	tw := w.textWidth()
	lines := []string{
		StepTitleStyle.Render(resume.AnalysisHeading),
		StepDescriptionStyle.Render(wrapText(resume.AnalysisSubtitle, tw)),
		"",
		ScoreStyle.Render(fmt.Sprintf("%d%%", a.MatchScore)) + "  " + FieldLabelStyle.Render(a.MatchTagOrDefault()),
	}
	if a.JobTitle != "" || a.CompanyName != "" {
		var parts []string
		for _, p := range []string{a.JobTitle, a.CompanyName} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		lines = append(lines, StepDescriptionStyle.Render(strings.Join(parts, " · ")))
	}
	if a.IntroMessage != "" {
		lines = append(lines, "", wrapText(a.IntroMessage, tw))
	}
	if len(a.KeyStrengths) > 0 {
		lines = append(lines, "", SectionTitleStyle.Render(resume.StrengthsTitle))
		for _, s := range a.KeyStrengths {
			lines = append(lines, SelectedOptionStyle.Render("✓ ")+wrapText(s, tw-2))
		}
	}
	if len(a.PointsOfAttention) > 0 {
		lines = append(lines, "", SectionTitleStyle.Render(resume.AttentionTitle))
		for _, p := range a.PointsOfAttention {
			lines = append(lines, NoticeStyle.Render("• ")+wrapText(p, tw-2))
		}
	}
	lines = append(lines, "", w.renderButtons())
	return strings.Join(lines, "\n")
}

func (w *wizardView) renderButtons() string {
	rendered := make([]string, 0, len(w.buttons))
	for i, b := range w.buttons {
		style := ButtonStyle
		if w.onButtons() && i == w.button {
			style = ActiveButtonStyle
		}
		rendered = append(rendered, style.Render(w.buttonLabel(b)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// updateWizard handles keys while the wizard is showing.
func (m Model) updateWizard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	w := m.wizard

	if w.alert != "" {
		switch msg.Type {
		case tea.KeyEnter, tea.KeyEsc, tea.KeySpace:
			w.alert = ""
			return m, w.focusCmd()
		}
		return m, nil
	}

	if w.pending {
		if msg.Type == tea.KeyEsc {
			w.orch.Cancel()
			m.status = "Annulation..."
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyEsc:
		if w.cfg.Kind == wizard.KindAnalysis {
			return m.closeWizard(wizardFinishedNote)
		}
		return m.closeWizard(wizardCancelledNote)
	case tea.KeyCtrlS:
		if w.cfg.Kind == wizard.KindForm {
			return m.submitWizard(wizard.Next)
		}
		return m, nil
	case tea.KeyTab:
		return m, w.moveFocus(1)
	case tea.KeyShiftTab:
		return m, w.moveFocus(-1)
	}

	if w.onButtons() {
		n := len(w.buttons)
		switch msg.String() {
		case "left":
			w.button = (w.button - 1 + n) % n
		case "right":
			w.button = (w.button + 1) % n
		case "up":
			if len(w.fields) > 0 {
				return m, w.moveFocus(-1)
			}
		case "enter", " ":
			return m.pressButton(w.buttons[w.button])
		}
		return m, nil
	}

	f := w.fields[w.focus]
	switch f.spec.Type {
	case wizard.FieldRadio:
		switch msg.String() {
		case "up":
			return m, f.selectOption(-1)
		case "down":
			return m, f.selectOption(1)
		case "enter":
			return m, w.moveFocus(1)
		}
		return m, f.update(msg)

	case wizard.FieldTextarea:
		return m, f.update(msg)

	default:
		if msg.Type == tea.KeyEnter {
			if w.focus == len(w.fields)-1 {
				return m.submitWizard(wizard.Next)
			}
			return m, w.moveFocus(1)
		}
		return m, f.update(msg)
	}
}

func (m Model) pressButton(b wizardButton) (tea.Model, tea.Cmd) {
	w := m.wizard
	switch b {
	case buttonStart:
		if err := w.orch.Start(); err != nil {
			m.status = err.Error()
			return m, nil
		}
		w.reload()
		return m, w.focusCmd()

	case buttonNext:
		return m.submitWizard(wizard.Next)

	case buttonPrevious:
		return m.submitWizard(wizard.Previous)

	case buttonViewResume, buttonExport:
		id := ""
		if w.cfg.Analysis != nil {
			id = w.cfg.Analysis.ResumeID
		}
		if id == "" {
			m.status = "Aucun identifiant de CV"
			return m, nil
		}
		if b == buttonViewResume {
			return cmdResume(&m, []string{id})
		}
		return cmdExport(&m, []string{id})

	case buttonClose:
		return m.closeWizard(wizardFinishedNote)

	default:
		return m.closeWizard(wizardCancelledNote)
	}
}

// submitWizard runs Submit off the UI goroutine; scrape and generation
// block inside it.
func (m Model) submitWizard(nav wizard.Navigation) (tea.Model, tea.Cmd) {
	w := m.wizard
	w.errors = nil
	w.pending = true
	m.status = ""

	ctx, values := m.ctx, w.values()
	return m, func() tea.Msg {
		return wizardDoneMsg{view: w, err: w.orch.Submit(ctx, values, nav)}
	}
}

// handleWizardResult applies the outcome of a submission.
func (m Model) handleWizardResult(msg wizardDoneMsg) (tea.Model, tea.Cmd) {
	w := m.wizard
	if w == nil || msg.view != w {
		return m, nil
	}
	w.pending = false

	var verr *wizard.ValidationError
	switch {
	case msg.err == nil:
		w.reload()
	case errors.As(msg.err, &verr):
		w.errors = verr.Fields
		return m, nil
	case errors.Is(msg.err, wizard.ErrGenerationFailed):
		w.reload()
		w.alert = wizard.GenerationAlert
	case errors.Is(msg.err, wizard.ErrCancelled):
		w.reload()
		m.status = "Tâche annulée"
	default:
		m.log.Error("wizard step failed", zap.Error(msg.err))
		m.status = msg.err.Error()
		w.reload()
	}

	if w.cfg.Kind == wizard.KindAnalysis && w.cfg.Analysis != nil {
		m.log.Info("resume generated",
			zap.String("resume_id", w.cfg.Analysis.ResumeID),
			zap.Int("match_score", w.cfg.Analysis.MatchScore))
	}
	return m, w.focusCmd()
}
