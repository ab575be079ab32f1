// Package api is the HTTP transport to the GrowthFlow backend: chat (plain
// and streamed), job posting scrape, résumé generation and retrieval.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"GrowthFlow/pkg/resume"
	"GrowthFlow/pkg/session"
	"GrowthFlow/pkg/utils"

	"go.uber.org/zap"
)

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	sessions        *session.Store
	limiter         *utils.RateLimiter
	retry           utils.RetryConfig
	generateTimeout time.Duration
	log             *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimiter makes every request wait on rl first.
func WithRateLimiter(rl *utils.RateLimiter) Option {
	return func(c *Client) { c.limiter = rl }
}

// WithRetry sets the retry policy of GenerateResume.
func WithRetry(rc utils.RetryConfig) Option {
	return func(c *Client) { c.retry = rc }
}

// WithGenerateTimeout bounds each GenerateResume attempt.
func WithGenerateTimeout(d time.Duration) Option {
	return func(c *Client) { c.generateTimeout = d }
}

// WithLogger sets the logger; the default discards.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for baseURL. sessions supplies the session_id of
// chat requests; a nil store gets an in-memory one.
func New(baseURL string, sessions *session.Store, opts ...Option) *Client {
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No client-wide Timeout: generation is slow and streams are long
		// lived. Callers bound requests with their context.
		httpClient:      &http.Client{},
		sessions:        sessions,
		retry:           utils.DefaultRetryConfig(),
		generateTimeout: 2 * time.Minute,
		log:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClearSession invalidates the session id; the next chat call starts a new one.
func (c *Client) ClearSession() error {
	return c.sessions.Clear()
}

func (c *Client) sessionID() string {
	id, err := c.sessions.ID()
	if err != nil {
		// the id is still usable, only persistence failed
		c.log.Warn("session id not persisted", zap.Error(err))
	}
	return id
}

// SendMessage posts one chat turn. A reply carrying next_action comes back
// as a widget result, anything else as text.
func (c *Client) SendMessage(ctx context.Context, message string, flow Flow, formData FormData) (*ChatResult, error) {
	req := ChatRequest{
		Message:   message,
		FlowID:    flow,
		SessionID: c.sessionID(),
		FormData:  formData,
	}

	var reply ChatReply
	if err := c.doJSON(ctx, http.MethodPost, "/chat", req, &reply); err != nil {
		return nil, err
	}
	return resultFromReply(&reply), nil
}

// ScrapeJobURL asks the backend to extract the posting at jobURL.
func (c *Client) ScrapeJobURL(ctx context.Context, jobURL string) (*ScrapedJob, error) {
	var job ScrapedJob
	if err := c.doJSON(ctx, http.MethodPost, "/scrape-job-url", ScrapeRequest{JobURL: jobURL}, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// GenerateResume submits the complete form for résumé generation. The call
// is idempotent, so transport failures and retryable statuses are retried
// with exponential backoff, each attempt bounded by the generate timeout.
func (c *Client) GenerateResume(ctx context.Context, formData FormData) (*ChatReply, error) {
	req := ChatRequest{
		Message:   GenerateMessage,
		FlowID:    FlowDynamicCV,
		SessionID: c.sessionID(),
		FormData:  formData,
	}

	var reply *ChatReply
	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.generateTimeout)
		defer cancel()

		var out ChatReply
		err := c.doJSON(attemptCtx, http.MethodPost, "/chat", req, &out)
		if err == nil {
			reply = &out
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return utils.Permanent(err)
		}
		if ctx.Err() != nil {
			return utils.Permanent(err)
		}
		return err
	}

	notify := func(attempt int, err error, next time.Duration) {
		c.log.Warn("resume generation failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", next),
			zap.Error(err))
	}

	if err := utils.ExecuteWithRetryContext(ctx, op, c.retry, notify); err != nil {
		return nil, fmt.Errorf("generate resume: %w", err)
	}
	return reply, nil
}

// GetResume fetches a stored résumé.
func (c *Client) GetResume(ctx context.Context, resumeID string) (*resume.Resume, error) {
	var r resume.Resume
	err := c.doJSON(ctx, http.MethodGet, "/resume/"+url.PathEscape(resumeID), nil, &r)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrResumeNotFound, resumeID)
		}
		return nil, err
	}
	return &r, nil
}

// Health reports backend availability.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var hs HealthStatus
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &hs); err != nil {
		return nil, err
	}
	return &hs, nil
}

// newRequest builds a request after waiting on the rate limiter.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
