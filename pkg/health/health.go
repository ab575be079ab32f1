// Package health reports on the backend and the local tooling the client
// depends on.
package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"GrowthFlow/pkg/api"
)

// Backend is the part of the backend client the checker calls.
type Backend interface {
	Health(ctx context.Context) (*api.HealthStatus, error)
}

// Status represents the health of the backend and local tooling.
type Status struct {
	Timestamp       time.Time
	BaseURL         string
	BackendStatus   string // "healthy", "degraded", "unreachable"
	BackendError    string
	Latency         time.Duration
	RAGAvailable    bool
	GeminiAvailable bool
	PDFStatus       string // "ready", "missing", "skipped"
	Warnings        []string
	Recommendations []string
}

// Healthy reports whether the backend answered healthy.
func (s *Status) Healthy() bool {
	return s.BackendStatus == "healthy"
}

// Checker performs health checks.
type Checker struct {
	backend  Backend
	baseURL  string
	timeout  time.Duration
	pdfCheck func() bool
	now      func() time.Time
}

// Option configures a Checker.
type Option func(*Checker)

// WithTimeout bounds the backend health call.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) { c.timeout = d }
}

// WithPDFCheck adds a check for the PDF rendering driver.
func WithPDFCheck(check func() bool) Option {
	return func(c *Checker) { c.pdfCheck = check }
}

// NewChecker creates a new health checker
func NewChecker(backend Backend, baseURL string, opts ...Option) *Checker {
	c := &Checker{
		backend: backend,
		baseURL: baseURL,
		timeout: 10 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check performs every health check
func (c *Checker) Check(ctx context.Context) *Status {
	status := &Status{
		Timestamp:       c.now(),
		BaseURL:         c.baseURL,
		BackendStatus:   "unknown",
		PDFStatus:       "skipped",
		Warnings:        []string{},
		Recommendations: []string{},
	}

	c.checkBackend(ctx, status)
	c.checkPDF(status)
	c.generateRecommendations(status)

	return status
}

func (c *Checker) checkBackend(ctx context.Context, status *Status) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	hs, err := c.backend.Health(ctx)
	status.Latency = time.Since(start)
	if err != nil {
		status.BackendStatus = "unreachable"
		status.BackendError = err.Error()
		status.Warnings = append(status.Warnings, "Backend is unreachable")
		return
	}

	status.RAGAvailable = hs.RAGAvailable
	status.GeminiAvailable = hs.GeminiAvailable
	if strings.EqualFold(hs.Status, "healthy") {
		status.BackendStatus = "healthy"
	} else {
		status.BackendStatus = "degraded"
		status.Warnings = append(status.Warnings, fmt.Sprintf("Backend reports status %q", hs.Status))
	}
	if !hs.GeminiAvailable {
		status.Warnings = append(status.Warnings, "Generation model is unavailable")
	}
	if !hs.RAGAvailable {
		status.Warnings = append(status.Warnings, "Knowledge base is unavailable")
	}
}

func (c *Checker) checkPDF(status *Status) {
	if c.pdfCheck == nil {
		return
	}
	if c.pdfCheck() {
		status.PDFStatus = "ready"
		return
	}
	status.PDFStatus = "missing"
	status.Warnings = append(status.Warnings, "PDF export driver is not installed")
}

// generateRecommendations generates actionable recommendations
func (c *Checker) generateRecommendations(status *Status) {
	if status.BackendStatus == "unreachable" {
		status.Recommendations = append(status.Recommendations,
			fmt.Sprintf("🔌 Start the backend or set GROWTHFLOW_API_URL (currently %s)", status.BaseURL))
	}

	if status.BackendStatus != "unreachable" && !status.GeminiAvailable {
		status.Recommendations = append(status.Recommendations,
			"🔑 Check the backend model credentials; résumé generation will fail")
	}

	if status.PDFStatus == "missing" {
		status.Recommendations = append(status.Recommendations,
			"📄 Run an export once to install Chromium, or install Playwright manually")
	}

	if len(status.Recommendations) == 0 {
		status.Recommendations = append(status.Recommendations,
			"✅ Everything looks good!")
	}
}

// FormatReport generates a formatted health report
func (c *Checker) FormatReport(status *Status) string {
	var sb strings.Builder

	sb.WriteString("# 🏥 GrowthFlow Health Report\n\n")
	sb.WriteString(fmt.Sprintf("**Timestamp:** %s\n\n", status.Timestamp.Format("2006-01-02 15:04:05")))

	sb.WriteString(fmt.Sprintf("## 🌐 Backend: %s %s\n", statusEmoji(status.BackendStatus), status.BackendStatus))
	sb.WriteString(fmt.Sprintf("- **URL:** %s\n", status.BaseURL))
	sb.WriteString(fmt.Sprintf("- **Latency:** %s\n", status.Latency.Round(time.Millisecond)))
	if status.BackendError != "" {
		sb.WriteString(fmt.Sprintf("```\n%s\n```\n", truncate(status.BackendError, 500)))
	} else {
		sb.WriteString(fmt.Sprintf("- **RAG:** %s\n", availability(status.RAGAvailable)))
		sb.WriteString(fmt.Sprintf("- **Gemini:** %s\n", availability(status.GeminiAvailable)))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("## 📄 PDF export: %s %s\n\n", statusEmoji(status.PDFStatus), status.PDFStatus))

	if len(status.Warnings) > 0 {
		sb.WriteString("## ⚠️ Warnings\n")
		for _, warning := range status.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", warning))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## 💡 Recommendations\n")
	for _, rec := range status.Recommendations {
		sb.WriteString(fmt.Sprintf("- %s\n", rec))
	}

	return sb.String()
}

func availability(ok bool) string {
	if ok {
		return "available"
	}
	return "unavailable"
}

// statusEmoji returns an emoji for a given status
func statusEmoji(status string) string {
	switch status {
	case "healthy", "ready":
		return "✅"
	case "unreachable", "missing":
		return "❌"
	case "degraded":
		return "⚠️"
	case "skipped", "unknown":
		return "⚪"
	default:
		return "❔"
	}
}

// truncate truncates a string to a maximum length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "\n... (truncated)"
}
