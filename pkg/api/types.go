package api

import "encoding/json"

// Flow identifies a backend conversation flow.
type Flow string

const (
	FlowPresentation Flow = "PRESENTATION"
	FlowRoadmap      Flow = "ROADMAP"
	FlowDynamicCV    Flow = "DYNAMIC_CV"
)

// Known reports whether f is one of the three backend flows.
func (f Flow) Known() bool {
	switch f {
	case FlowPresentation, FlowRoadmap, FlowDynamicCV:
		return true
	}
	return false
}

// ActionRenderAnalysis is the next_action of a finished résumé generation.
const ActionRenderAnalysis = "RENDER_ANALYSIS"

// GenerateMessage is the fixed chat message that triggers résumé generation.
const GenerateMessage = "Generate resume"

// FormData is the flat form_data object sent to the backend.
type FormData map[string]string

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string   `json:"message"`
	FlowID    Flow     `json:"flow_id"`
	SessionID string   `json:"session_id"`
	FormData  FormData `json:"form_data,omitempty"`
}

// ChatReply is the body returned by POST /chat.
type ChatReply struct {
	Response   string          `json:"response"`
	SessionID  string          `json:"session_id"`
	FlowID     Flow            `json:"flow_id"`
	NextAction string          `json:"next_action,omitempty"`
	WidgetData json.RawMessage `json:"widget_data,omitempty"`
}

// IsWidget reports whether the reply asks the client to render a widget
// instead of a chat bubble.
func (r *ChatReply) IsWidget() bool {
	return r != nil && r.NextAction != ""
}

// Widget is the structured half of a widget reply.
type Widget struct {
	NextAction string
	Data       json.RawMessage
}

// ChatResult is either a text reply or a widget route; exactly one of Text
// and Widget is meaningful.
type ChatResult struct {
	Text      string
	Widget    *Widget
	SessionID string
	FlowID    Flow
}

// IsWidget reports whether the result routes to a widget.
func (r *ChatResult) IsWidget() bool { return r != nil && r.Widget != nil }

func resultFromReply(reply *ChatReply) *ChatResult {
	res := &ChatResult{SessionID: reply.SessionID, FlowID: reply.FlowID}
	if reply.IsWidget() {
		res.Widget = &Widget{NextAction: reply.NextAction, Data: reply.WidgetData}
		return res
	}
	res.Text = reply.Response
	return res
}

// ScrapeRequest is the body of POST /scrape-job-url.
type ScrapeRequest struct {
	JobURL string `json:"job_url"`
}

// ScrapedJob holds the fields extracted from a job posting.
type ScrapedJob struct {
	CompanyName    string `json:"company_name,omitempty"`
	JobTitle       string `json:"job_title,omitempty"`
	JobDescription string `json:"job_description"`
	MainMissions   string `json:"main_missions"`
	Qualifications string `json:"qualifications"`
	AdditionalInfo string `json:"additional_info"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status          string `json:"status"`
	RAGAvailable    bool   `json:"rag_available"`
	GeminiAvailable bool   `json:"gemini_available"`
}
