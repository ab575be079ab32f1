package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrResumeNotFound is returned by GetResume for an unknown résumé id.
var ErrResumeNotFound = errors.New("resume not found")

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return e.Detail
}

// Retryable reports whether repeating the request may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// parseAPIError builds an APIError from a FastAPI style {"detail": ...} body.
// Detail may be a string or a list of validation entries; anything else
// falls back to the generic status message.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Detail:     fmt.Sprintf("HTTP error! status: %d", statusCode),
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &payload) != nil || len(payload.Detail) == 0 {
		return apiErr
	}

	var text string
	if json.Unmarshal(payload.Detail, &text) == nil {
		if text = strings.TrimSpace(text); text != "" {
			apiErr.Detail = text
		}
		return apiErr
	}

	var entries []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(payload.Detail, &entries) == nil && len(entries) > 0 {
		msgs := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Msg != "" {
				msgs = append(msgs, e.Msg)
			}
		}
		if len(msgs) > 0 {
			apiErr.Detail = strings.Join(msgs, "; ")
		}
	}
	return apiErr
}
