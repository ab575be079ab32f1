// Package conversation keeps the chat log of one user and routes widget
// replies to the wizard.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"strings"
	"sync"
	"time"

	"GrowthFlow/pkg/api"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// ErrorReply is the bubble shown in place of a failed reply.
const ErrorReply = "Sorry, I encountered an error. Please try again."

// Greeting opens every new conversation.
const Greeting = "Hello! How can I help you today?"

// ErrBusy is returned when a turn is sent while another is in flight.
var ErrBusy = errors.New("a message is already being sent")

// Sender tells who wrote a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one chat bubble. IDs are stable across streamed updates.
type Message struct {
	ID        string
	Text      string
	Sender    Sender
	IsError   bool
	CreatedAt time.Time
}

// Route is returned instead of a bubble when the backend asks for a widget.
type Route struct {
	NextAction string
	WidgetData json.RawMessage
	Flow       api.Flow
}

// Transport is the part of the backend client a conversation needs.
type Transport interface {
	SendMessage(ctx context.Context, message string, flow api.Flow, formData api.FormData) (*api.ChatResult, error)
	StreamMessage(ctx context.Context, message string, flow api.Flow, formData api.FormData, onChunk func(string)) (*api.ChatResult, error)
	ClearSession() error
}

// Orchestrator holds the message log and the active flow.
type Orchestrator struct {
	mu       sync.Mutex
	messages []Message
	flow     api.Flow
	busy     bool
	cancel   context.CancelFunc
	gen      uint64

	transport Transport
	policy    *bluemonday.Policy
	log       *zap.Logger
	now       func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger; the default discards.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New starts a conversation on flow with the greeting bubble.
func New(transport Transport, flow api.Flow, opts ...Option) *Orchestrator {
	if !flow.Known() {
		flow = api.FlowPresentation
	}
	o := &Orchestrator{
		transport: transport,
		flow:      flow,
		policy:    bluemonday.StrictPolicy(),
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.messages = []Message{o.newMessage(SenderBot, Greeting)}
	return o
}

func (o *Orchestrator) newMessage(sender Sender, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    sender,
		CreatedAt: o.now(),
	}
}

// Messages returns a copy of the log.
func (o *Orchestrator) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Message, len(o.messages))
	copy(out, o.messages)
	return out
}

// Flow returns the active flow.
func (o *Orchestrator) Flow() api.Flow {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.flow
}

// Busy reports whether a turn is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// SwitchFlow changes the flow used by the next turns. Messages are kept.
func (o *Orchestrator) SwitchFlow(flow api.Flow) {
	if !flow.Known() {
		flow = api.FlowPresentation
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if flow != o.flow {
		o.log.Info("flow switched", zap.String("from", string(o.flow)), zap.String("to", string(flow)))
	}
	o.flow = flow
}

// NewChat drops the log, cancels a pending turn and starts a new backend
// session.
func (o *Orchestrator) NewChat() error {
	o.mu.Lock()
	o.gen++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.busy = false
	o.messages = []Message{o.newMessage(SenderBot, Greeting)}
	o.mu.Unlock()

	return o.transport.ClearSession()
}

// clean strips markup from bot text for terminal display.
func (o *Orchestrator) clean(text string) string {
	return html.UnescapeString(o.policy.Sanitize(text))
}

// begin appends the user message and marks the conversation busy.
func (o *Orchestrator) begin(ctx context.Context, text string) (context.Context, uint64, api.Flow, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy {
		return nil, 0, "", ErrBusy
	}
	o.busy = true
	turnCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.messages = append(o.messages, o.newMessage(SenderUser, text))
	return turnCtx, o.gen, o.flow, nil
}

// finishLocked ends the turn started at gen; false means NewChat superseded it.
func (o *Orchestrator) finishLocked(gen uint64) bool {
	if gen != o.gen {
		return false
	}
	o.busy = false
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	return true
}

// Send delivers one user turn. A text reply is appended as a bot bubble
// and a nil Route returned. A widget reply appends nothing and returns the
// Route to follow. Transport failures become an error bubble; only ErrBusy
// is returned as an error.
func (o *Orchestrator) Send(ctx context.Context, text string) (*Route, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	turnCtx, gen, flow, err := o.begin(ctx, text)
	if err != nil {
		return nil, err
	}

	res, err := o.transport.SendMessage(turnCtx, text, flow, nil)

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.finishLocked(gen) {
		return nil, nil
	}

	if err != nil {
		o.log.Error("chat request failed", zap.String("flow", string(flow)), zap.Error(err))
		msg := o.newMessage(SenderBot, ErrorReply)
		msg.IsError = true
		o.messages = append(o.messages, msg)
		return nil, nil
	}

	if res.IsWidget() {
		return &Route{NextAction: res.Widget.NextAction, WidgetData: res.Widget.Data, Flow: flow}, nil
	}
	o.messages = append(o.messages, o.newMessage(SenderBot, o.clean(res.Text)))
	return nil, nil
}

// SendStream delivers one user turn as a stream. An empty bot bubble is
// appended first and every fragment extends that same bubble; onUpdate is
// called with the bubble after each change, outside the lock. A widget reply
// removes the bubble and returns the Route, as Send does. A stream that ends
// without text leaves an error bubble.
func (o *Orchestrator) SendStream(ctx context.Context, text string, onUpdate func(Message)) (*Route, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	turnCtx, gen, flow, err := o.begin(ctx, text)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	bubble := o.newMessage(SenderBot, "")
	o.messages = append(o.messages, bubble)
	o.mu.Unlock()

	var raw strings.Builder
	update := func(mutate func(m *Message)) {
		o.mu.Lock()
		if gen != o.gen {
			o.mu.Unlock()
			return
		}
		var snapshot Message
		for i := range o.messages {
			if o.messages[i].ID == bubble.ID {
				mutate(&o.messages[i])
				snapshot = o.messages[i]
				break
			}
		}
		o.mu.Unlock()
		if onUpdate != nil && snapshot.ID != "" {
			onUpdate(snapshot)
		}
	}
	fail := func() {
		update(func(m *Message) {
			m.Text = ErrorReply
			m.IsError = true
		})
	}

	res, err := o.transport.StreamMessage(turnCtx, text, flow, nil, func(chunk string) {
		raw.WriteString(chunk)
		cleaned := o.clean(raw.String())
		update(func(m *Message) { m.Text = cleaned })
	})

	switch {
	case err != nil:
		o.log.Error("chat stream failed", zap.String("flow", string(flow)), zap.Error(err))
		fail()
	case res != nil && res.IsWidget():
		o.mu.Lock()
		defer o.mu.Unlock()
		if !o.finishLocked(gen) {
			return nil, nil
		}
		o.removeLocked(bubble.ID)
		return &Route{NextAction: res.Widget.NextAction, WidgetData: res.Widget.Data, Flow: flow}, nil
	case raw.Len() == 0 && res != nil && strings.TrimSpace(res.Text) != "":
		cleaned := o.clean(res.Text)
		update(func(m *Message) { m.Text = cleaned })
	case strings.TrimSpace(o.clean(raw.String())) == "":
		o.log.Warn("chat stream ended without text", zap.String("flow", string(flow)))
		fail()
	}

	o.mu.Lock()
	o.finishLocked(gen)
	o.mu.Unlock()
	return nil, nil
}

func (o *Orchestrator) removeLocked(id string) {
	for i := range o.messages {
		if o.messages[i].ID == id {
			o.messages = append(o.messages[:i], o.messages[i+1:]...)
			return
		}
	}
}
