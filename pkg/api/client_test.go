package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"GrowthFlow/pkg/session"
	"GrowthFlow/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() utils.RetryConfig {
	return utils.RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithRetry(fastRetry())}, opts...)
	return New(srv.URL+"/", session.NewMemoryStore(), opts...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSendMessageText(t *testing.T) {
	var got ChatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, ChatReply{Response: "Hello there", SessionID: got.SessionID, FlowID: got.FlowID})
	})

	res, err := c.SendMessage(context.Background(), "hi", FlowRoadmap, nil)
	require.NoError(t, err)
	assert.False(t, res.IsWidget())
	assert.Equal(t, "Hello there", res.Text)
	assert.Equal(t, "hi", got.Message)
	assert.Equal(t, FlowRoadmap, got.FlowID)
	assert.Regexp(t, `^session_\d+_[0-9a-z]{9}$`, got.SessionID)
	assert.Nil(t, got.FormData)
}

func TestSendMessageReusesSession(t *testing.T) {
	var ids []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		ids = append(ids, req.SessionID)
		writeJSON(w, http.StatusOK, ChatReply{Response: "ok"})
	})

	for i := 0; i < 2; i++ {
		_, err := c.SendMessage(context.Background(), "hi", FlowPresentation, nil)
		require.NoError(t, err)
	}
	require.NoError(t, c.ClearSession())
	_, err := c.SendMessage(context.Background(), "hi", FlowPresentation, nil)
	require.NoError(t, err)

	require.Len(t, ids, 3)
	assert.Equal(t, ids[0], ids[1])
	assert.NotEqual(t, ids[1], ids[2])
}

func TestSendMessageWidget(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"response":    "",
			"next_action": ActionRenderAnalysis,
			"widget_data": map[string]any{"resume_id": "r1", "match_score": 87},
		})
	})

	res, err := c.SendMessage(context.Background(), "x", FlowDynamicCV, FormData{"first_name": "Ada"})
	require.NoError(t, err)
	require.True(t, res.IsWidget())
	assert.Equal(t, ActionRenderAnalysis, res.Widget.NextAction)
	assert.JSONEq(t, `{"resume_id":"r1","match_score":87}`, string(res.Widget.Data))
}

func TestAPIErrorDetail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"string detail", 400, `{"detail":"bad flow"}`, "bad flow"},
		{"list detail", 422, `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`, "field required; too short"},
		{"no body", 502, ``, "HTTP error! status: 502"},
		{"html body", 500, `<html>oops</html>`, "HTTP error! status: 500"},
		{"blank detail", 400, `{"detail":"  "}`, "HTTP error! status: 400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.SendMessage(context.Background(), "hi", FlowPresentation, nil)
			require.Error(t, err)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.Error())
		})
	}
}

func TestScrapeJobURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scrape-job-url", r.URL.Path)
		var req ScrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://jobs.example.com/1", req.JobURL)
		writeJSON(w, http.StatusOK, ScrapedJob{JobDescription: "Build things", MainMissions: "Ship"})
	})

	job, err := c.ScrapeJobURL(context.Background(), "https://jobs.example.com/1")
	require.NoError(t, err)
	assert.Equal(t, "Build things", job.JobDescription)
	assert.Equal(t, "Ship", job.MainMissions)
	assert.Empty(t, job.Qualifications)
}

func TestGenerateResumeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, GenerateMessage, req.Message)
		assert.Equal(t, FlowDynamicCV, req.FlowID)
		assert.Equal(t, "Ada", req.FormData["first_name"])

		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "model overloaded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"next_action": ActionRenderAnalysis,
			"widget_data": map[string]any{"resume_id": "r1"},
		})
	})

	reply, err := c.GenerateResume(context.Background(), FormData{"first_name": "Ada"})
	require.NoError(t, err)
	assert.True(t, reply.IsWidget())
	assert.EqualValues(t, 2, calls.Load())
}

func TestGenerateResumeClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "missing job"})
	})

	_, err := c.GenerateResume(context.Background(), FormData{})
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "missing job", apiErr.Detail)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGenerateResumeGivesUp(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.GenerateResume(context.Background(), FormData{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate resume")
	assert.EqualValues(t, 3, calls.Load())
}

func TestGenerateResumeAttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, WithGenerateTimeout(20*time.Millisecond))

	_, err := c.GenerateResume(context.Background(), FormData{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGetResume(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/resume/r1":
			writeJSON(w, http.StatusOK, map[string]any{
				"contact_info": map[string]string{"name": "Ada Lovelace", "job_title": "Engineer"},
				"projects":     []map[string]any{{"title": "Engine", "technologies": "Go, Rust"}},
			})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Resume not found"})
		}
	})

	r, err := c.GetResume(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", r.ContactInfo.Name)
	require.Len(t, r.Projects, 1)
	assert.Equal(t, []string{"Go", "Rust"}, []string(r.Projects[0].Technologies))

	_, err = c.GetResume(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrResumeNotFound)
	assert.Contains(t, err.Error(), "missing")
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/health", r.URL.Path)
		writeJSON(w, http.StatusOK, HealthStatus{Status: "healthy", RAGAvailable: true})
	})

	hs, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", hs.Status)
	assert.True(t, hs.RAGAvailable)
	assert.False(t, hs.GeminiAvailable)
}

func TestRateLimiterCancelledContext(t *testing.T) {
	rl := utils.NewRateLimiter(0.001, 1)
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, HealthStatus{Status: "healthy"})
	}, WithRateLimiter(rl))

	_, err := c.Health(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Health(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 1, calls.Load())
}
