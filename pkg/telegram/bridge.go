package telegram

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"GrowthFlow/pkg/api"
	"GrowthFlow/pkg/conversation"
	"GrowthFlow/pkg/recovery"
	"GrowthFlow/pkg/resume"
	"GrowthFlow/pkg/wizard"

	"go.uber.org/zap"
)

// Callback data prefixes.
const (
	cbFlow        = "flow:"
	cbResume      = "cv:"
	cbWizStart    = "wiz:start"
	cbWizSkip     = "wiz:skip"
	cbWizKeep     = "wiz:keep"
	cbWizPrev     = "wiz:prev"
	cbWizCancel   = "wiz:cancel"
	cbWizOption   = "wiz:opt:"
	textWidth     = 60
	cancelLabel   = "Annuler"
	keepLabel     = "Garder"
	skipLabel     = "Passer"
	busyReply     = "Un instant, je travaille encore sur votre demande..."
	cancelledText = "CV dynamique annulé."
	unauthorized  = "Ce bot est privé."
)

const helpText = `Commandes :
/flow - changer de parcours
/cv - lancer le CV dynamique
/cancel - annuler le CV en cours
/new - nouvelle conversation`

// Sender is the part of the bot the bridge talks through.
type Sender interface {
	Send(chatID int64, text string, buttons [][]InlineButton) error
	SendDocument(chatID int64, path, caption string) error
	Typing(chatID int64)
	Ack(callbackID string)
}

// ResumeSource fetches generated résumés.
type ResumeSource interface {
	GetResume(ctx context.Context, resumeID string) (*resume.Resume, error)
}

// Exporter prints a résumé to a PDF file and returns its path.
type Exporter interface {
	ExportResume(ctx context.Context, r *resume.Resume, dir string) (string, error)
}

// Session is everything one chat owns.
type Session struct {
	Conversation *conversation.Orchestrator
	// NewWizard builds a wizard whose failures are reported through alert.
	NewWizard func(alert func(string)) *wizard.Orchestrator
	Resumes   ResumeSource
}

// SessionFactory creates the session of a chat on its first update.
type SessionFactory func(chatID int64) (*Session, error)

type chatState struct {
	mu      sync.Mutex
	session *Session
	busy    bool

	wiz   *wizard.Orchestrator
	step  wizard.Step
	field int
	// values collected for the current step
	values  map[string]string
	fields  []wizard.FieldSpec
	inOther bool
}

// Bridge routes Telegram updates to per chat conversations and wizards.
type Bridge struct {
	sender     Sender
	newSession SessionFactory
	allowed    func(int64) bool
	exporter   Exporter
	exportDir  string
	log        *zap.Logger

	mu    sync.Mutex
	chats map[int64]*chatState
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithAllowed restricts the bridge to chats for which fn returns true.
func WithAllowed(fn func(int64) bool) BridgeOption {
	return func(b *Bridge) { b.allowed = fn }
}

// WithExporter makes "view résumé" send a PDF written under dir.
func WithExporter(e Exporter, dir string) BridgeOption {
	return func(b *Bridge) {
		b.exporter = e
		b.exportDir = dir
	}
}

// WithLogger sets the logger; the default discards.
func WithLogger(l *zap.Logger) BridgeOption {
	return func(b *Bridge) { b.log = l }
}

// NewBridge returns a bridge replying through sender.
func NewBridge(sender Sender, factory SessionFactory, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		sender:     sender,
		newSession: factory,
		allowed:    func(int64) bool { return true },
		log:        zap.NewNop(),
		chats:      make(map[int64]*chatState),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) chat(chatID int64) (*chatState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.chats[chatID]; ok {
		return st, nil
	}
	sess, err := b.newSession(chatID)
	if err != nil {
		return nil, err
	}
	st := &chatState{session: sess}
	b.chats[chatID] = st
	return st, nil
}

// Handle processes one update. Updates of one chat are serialized; a long
// scrape or generation only blocks its own chat.
func (b *Bridge) Handle(ctx context.Context, u Update) {
	chatID := u.ChatID
	if chatID == 0 {
		return
	}
	if u.IsCallback() {
		b.sender.Ack(u.CallbackID)
	}
	if !b.allowed(chatID) {
		b.log.Warn("telegram chat not allowed", zap.Int64("chat_id", chatID))
		b.send(chatID, unauthorized)
		return
	}

	st, err := b.chat(chatID)
	if err != nil {
		b.log.Error("telegram session setup failed", zap.Int64("chat_id", chatID), zap.Error(err))
		b.send(chatID, conversation.ErrorReply)
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.busy {
		b.handleWhileBusy(chatID, st, u)
		return
	}

	err = recovery.WrapWithRecovery("telegram chat", func() error {
		b.dispatch(ctx, chatID, st, u)
		return nil
	})
	if err != nil {
		b.dropWizard(st)
		b.send(chatID, conversation.ErrorReply)
	}
}

func (b *Bridge) dispatch(ctx context.Context, chatID int64, st *chatState, u Update) {
	if u.IsCallback() {
		b.handleCallback(ctx, chatID, st, u.Data)
		return
	}
	if name, args, ok := u.Command(); ok {
		b.handleCommand(ctx, chatID, st, name, args)
		return
	}
	if st.wiz != nil {
		b.answer(ctx, chatID, st, u.Text)
		return
	}
	b.chatTurn(ctx, chatID, st, u.Text)
}

// handleWhileBusy runs while a scrape or generation holds the chat; only a
// cancel gets through.
func (b *Bridge) handleWhileBusy(chatID int64, st *chatState, u Update) {
	name, _, _ := u.Command()
	cancel := name == "cancel" || (u.IsCallback() && u.Data == cbWizCancel)
	if cancel && st.wiz != nil {
		st.wiz.Cancel()
		return
	}
	b.send(chatID, busyReply)
}

func (b *Bridge) handleCommand(ctx context.Context, chatID int64, st *chatState, cmd, args string) {
	conv := st.session.Conversation
	switch cmd {
	case "start", "help":
		b.sendWithButtons(chatID, conversation.Greeting+"\n\n"+helpText, flowButtons())
	case "new":
		b.dropWizard(st)
		if err := conv.NewChat(); err != nil {
			b.log.Warn("session reset failed", zap.Int64("chat_id", chatID), zap.Error(err))
		}
		b.send(chatID, conversation.Greeting)
	case "flow":
		if args == "" {
			b.sendWithButtons(chatID, "Parcours actuel : "+conversation.FlowName(conv.Flow()), flowButtons())
			return
		}
		flow, ok := conversation.ParseFlow(args)
		if !ok {
			b.sendWithButtons(chatID, fmt.Sprintf("Parcours inconnu %q", args), flowButtons())
			return
		}
		b.switchFlow(ctx, chatID, st, flow)
	case "cv":
		b.startWizard(ctx, chatID, st)
	case "cancel":
		if st.wiz == nil {
			return
		}
		b.dropWizard(st)
		b.send(chatID, cancelledText)
	default:
		b.send(chatID, helpText)
	}
}

func (b *Bridge) handleCallback(ctx context.Context, chatID int64, st *chatState, data string) {
	switch {
	case strings.HasPrefix(data, cbFlow):
		flow, ok := conversation.ParseFlow(strings.TrimPrefix(data, cbFlow))
		if ok {
			b.switchFlow(ctx, chatID, st, flow)
		}
	case strings.HasPrefix(data, cbResume):
		b.sendResume(ctx, chatID, st, strings.TrimPrefix(data, cbResume))
	case data == cbWizCancel:
		if st.wiz != nil {
			b.dropWizard(st)
			b.send(chatID, cancelledText)
		}
	case st.wiz == nil:
		// stale button of a finished wizard
	case data == cbWizStart:
		if err := st.wiz.Start(); err != nil {
			b.log.Debug("wizard start ignored", zap.Error(err))
		}
		b.promptStep(ctx, chatID, st)
	case data == cbWizPrev:
		b.submit(ctx, chatID, st, wizard.Previous)
	case data == cbWizSkip:
		b.answer(ctx, chatID, st, "")
	case data == cbWizKeep:
		if f, ok := st.currentField(); ok {
			b.answer(ctx, chatID, st, f.Value)
		}
	case strings.HasPrefix(data, cbWizOption):
		b.answer(ctx, chatID, st, strings.TrimPrefix(data, cbWizOption))
	}
}

func (b *Bridge) switchFlow(ctx context.Context, chatID int64, st *chatState, flow api.Flow) {
	st.session.Conversation.SwitchFlow(flow)
	b.send(chatID, "Parcours : "+conversation.FlowName(flow))
	if flow == api.FlowDynamicCV {
		b.startWizard(ctx, chatID, st)
	}
}

func (b *Bridge) chatTurn(ctx context.Context, chatID int64, st *chatState, text string) {
	conv := st.session.Conversation
	b.sender.Typing(chatID)
	route, err := conv.Send(ctx, text)
	if err != nil {
		b.send(chatID, busyReply)
		return
	}
	if route != nil {
		b.log.Info("widget route", zap.Int64("chat_id", chatID), zap.String("next_action", route.NextAction))
		b.startWizard(ctx, chatID, st)
		return
	}
	msgs := conv.Messages()
	if last := msgs[len(msgs)-1]; last.Sender == conversation.SenderBot {
		b.send(chatID, last.Text)
	}
}

func (b *Bridge) startWizard(ctx context.Context, chatID int64, st *chatState) {
	if st.session.NewWizard == nil {
		b.send(chatID, "Le CV dynamique n'est pas disponible.")
		return
	}
	b.dropWizard(st)
	st.wiz = st.session.NewWizard(func(msg string) { b.send(chatID, "⚠️ "+msg) })
	b.promptStep(ctx, chatID, st)
}

func (b *Bridge) dropWizard(st *chatState) {
	if st.wiz != nil {
		st.wiz.Reset()
	}
	st.wiz = nil
	st.resetStep(0, nil)
}

func (st *chatState) resetStep(step wizard.Step, fields []wizard.FieldSpec) {
	st.step = step
	st.fields = fields
	st.field = 0
	st.values = make(map[string]string)
	st.inOther = false
}

func (st *chatState) currentField() (wizard.FieldSpec, bool) {
	if st.field < 0 || st.field >= len(st.fields) {
		return wizard.FieldSpec{}, false
	}
	return st.fields[st.field], true
}

// promptStep shows the current wizard screen and, on form steps, asks the
// first field.
func (b *Bridge) promptStep(ctx context.Context, chatID int64, st *chatState) {
	cfg, err := st.wiz.Config()
	if err != nil {
		b.log.Error("wizard config failed", zap.Error(err))
		b.send(chatID, wizard.InvalidStepNotice)
		b.dropWizard(st)
		return
	}

	switch cfg.Kind {
	case wizard.KindWelcome:
		b.sendWithButtons(chatID, cfg.Title+"\n\n"+cfg.Description, [][]InlineButton{
			{{Text: cfg.ButtonText, Data: cbWizStart}},
			{{Text: cancelLabel, Data: cbWizCancel}},
		})
	case wizard.KindLoading:
		b.send(chatID, cfg.Title+"\n"+cfg.Description)
	case wizard.KindAnalysis:
		text := resume.RenderAnalysisText(cfg.Analysis, textWidth)
		b.sendWithButtons(chatID, text, [][]InlineButton{
			{{Text: cfg.ButtonText, Data: cbResume + cfg.Analysis.ResumeID}},
		})
		st.wiz = nil
		st.resetStep(0, nil)
	case wizard.KindForm:
		st.resetStep(cfg.CurrentStep, cfg.VisibleFields())
		header := fmt.Sprintf("[%d/%d] %s", int(cfg.CurrentStep), cfg.TotalSteps, cfg.Title)
		if cfg.Description != "" {
			header += "\n" + cfg.Description
		}
		b.send(chatID, header)
		b.askField(chatID, st)
	}
}

func (b *Bridge) askField(chatID int64, st *chatState) {
	f, ok := st.currentField()
	if !ok {
		return
	}

	text := f.Label
	if f.Required {
		text += " *"
	}
	if f.Placeholder != "" {
		text += "\n" + f.Placeholder
	}

	var rows [][]InlineButton
	switch f.Type {
	case wizard.FieldRadio:
		for _, o := range f.Options {
			label := o.Label
			if o.Value == f.Value {
				label = "✓ " + label
			}
			rows = append(rows, []InlineButton{{Text: label, Data: cbWizOption + o.Value}})
		}
	default:
		if f.Value != "" {
			text += "\n\nActuel : " + f.Value
			rows = append(rows, []InlineButton{{Text: keepLabel, Data: cbWizKeep}})
		}
		if f.AllowSkip {
			rows = append(rows, []InlineButton{{Text: f.SkipText, Data: cbWizSkip}})
		} else if !f.Required {
			rows = append(rows, []InlineButton{{Text: skipLabel, Data: cbWizSkip}})
		}
	}

	nav := []InlineButton{{Text: cancelLabel, Data: cbWizCancel}}
	if st.field == 0 && st.step > wizard.StepOffer {
		nav = append([]InlineButton{{Text: wizard.PreviousLabel, Data: cbWizPrev}}, nav...)
	}
	rows = append(rows, nav)
	b.sendWithButtons(chatID, text, rows)
}

// answer records value for the current field and moves to the next one,
// submitting the step after the last.
func (b *Bridge) answer(ctx context.Context, chatID int64, st *chatState, value string) {
	f, ok := st.currentField()
	if !ok {
		return
	}
	value = strings.TrimSpace(value)

	if st.inOther {
		st.values[f.OtherName()] = value
		st.inOther = false
		st.field++
	} else {
		if f.Type == wizard.FieldRadio {
			v, ok := matchOption(f.Options, value)
			if !ok {
				b.askField(chatID, st)
				return
			}
			value = v
		}
		st.values[f.Name] = value
		if f.Type == wizard.FieldRadio && f.AllowOtherText && value == wizard.RoleOther {
			st.inOther = true
			b.send(chatID, f.OtherPlaceholder)
			return
		}
		st.field++
	}

	if st.field < len(st.fields) {
		b.askField(chatID, st)
		return
	}
	b.submit(ctx, chatID, st, wizard.Next)
}

// matchOption accepts an option value or its label, case-insensitively.
func matchOption(options []wizard.Choice, s string) (string, bool) {
	for _, o := range options {
		if strings.EqualFold(o.Value, s) || strings.EqualFold(o.Label, s) {
			return o.Value, true
		}
	}
	return "", false
}

// submit sends the collected values. The chat lock is released while a
// scrape or generation runs so /cancel can reach the wizard.
func (b *Bridge) submit(ctx context.Context, chatID int64, st *chatState, nav wizard.Navigation) {
	wiz := st.wiz
	values := st.values

	if nav == wizard.Next {
		switch {
		case st.step == wizard.StepJobURL && strings.TrimSpace(values[wizard.FieldJobURL]) != "":
			b.send(chatID, wizard.ScrapingTitle+"\n"+wizard.ScrapingSubtitle)
		case st.step == wizard.StepAdditionalInfo:
			b.send(chatID, wizard.GeneratingTitle+"\n"+wizard.GeneratingSubtitle)
		}
		b.sender.Typing(chatID)
	}

	st.busy = true
	st.mu.Unlock()
	err := func() error {
		defer func() {
			st.mu.Lock()
			st.busy = false
		}()
		return wiz.Submit(ctx, values, nav)
	}()

	if st.wiz != wiz {
		return
	}

	var verr *wizard.ValidationError
	switch {
	case err == nil, errors.Is(err, wizard.ErrCancelled), errors.Is(err, wizard.ErrGenerationFailed):
	case errors.As(err, &verr):
		b.send(chatID, validationText(verr))
	default:
		b.log.Error("wizard submit failed", zap.Int64("chat_id", chatID), zap.Error(err))
		b.send(chatID, conversation.ErrorReply)
	}
	b.promptStep(ctx, chatID, st)
}

func (b *Bridge) sendResume(ctx context.Context, chatID int64, st *chatState, resumeID string) {
	if st.session.Resumes == nil || resumeID == "" {
		return
	}
	b.sender.Typing(chatID)
	r, err := st.session.Resumes.GetResume(ctx, resumeID)
	if err != nil {
		b.log.Error("resume fetch failed", zap.String("resume_id", resumeID), zap.Error(err))
		b.send(chatID, conversation.ErrorReply)
		return
	}

	if b.exporter != nil {
		path, err := b.exporter.ExportResume(ctx, r, b.exportDir)
		if err == nil {
			if err := b.sender.SendDocument(chatID, path, r.PDFFilename()); err == nil {
				return
			}
			b.log.Warn("pdf upload failed, sending text", zap.Error(err))
		} else {
			b.log.Warn("pdf export failed, sending text", zap.Error(err))
		}
	}
	b.send(chatID, resume.RenderText(r, textWidth))
}

func (b *Bridge) send(chatID int64, text string) {
	b.sendWithButtons(chatID, text, nil)
}

func (b *Bridge) sendWithButtons(chatID int64, text string, rows [][]InlineButton) {
	if err := b.sender.Send(chatID, text, rows); err != nil {
		b.log.Warn("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func flowButtons() [][]InlineButton {
	var rows [][]InlineButton
	for _, f := range conversation.Flows() {
		rows = append(rows, []InlineButton{{Text: conversation.FlowName(f), Data: cbFlow + string(f)}})
	}
	return rows
}

func validationText(verr *wizard.ValidationError) string {
	names := make([]string, 0, len(verr.Fields))
	for name := range verr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, "✗ "+verr.Fields[name])
	}
	return strings.Join(lines, "\n")
}
