package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// DoneSentinel ends a chat event stream.
const DoneSentinel = "[DONE]"

// StreamMessage posts a chat turn asking for an event stream. Each data
// fragment is handed to onChunk in arrival order; the accumulated text is
// returned when the sentinel arrives or the body ends. A backend that answers
// with a plain JSON reply instead is decoded like SendMessage, widget routes
// included, and onChunk is not called.
func (c *Client) StreamMessage(ctx context.Context, message string, flow Flow, formData FormData, onChunk func(string)) (*ChatResult, error) {
	body := ChatRequest{
		Message:   message,
		FlowID:    flow,
		SessionID: c.sessionID(),
		FormData:  formData,
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/chat", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return nil, parseAPIError(resp.StatusCode, data)
	}

	stream := io.Reader(resp.Body)
	if !isEventStream(resp.Header.Get("Content-Type")) {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
			var reply ChatReply
			if err := json.Unmarshal(data, &reply); err != nil {
				return nil, fmt.Errorf("decode chat reply: %w", err)
			}
			c.log.Debug("chat answered without a stream", zap.Bool("widget", reply.IsWidget()))
			return resultFromReply(&reply), nil
		}
		stream = bytes.NewReader(data)
	}

	text, err := ParseEventStream(stream, onChunk)
	res := &ChatResult{Text: text, FlowID: flow}
	if err != nil {
		c.log.Warn("chat stream interrupted", zap.Error(err), zap.Int("received", len(text)))
		return res, err
	}
	return res, nil
}

func isEventStream(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/event-stream"
}

// ParseEventStream decodes "data: <text>" lines from r. Lines without the
// data prefix are ignored. Reading stops at the [DONE] sentinel; EOF without
// it returns what was accumulated.
func ParseEventStream(r io.Reader, onChunk func(string)) (string, error) {
	reader := bufio.NewReader(r)
	var full strings.Builder

	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if chunk, ok := dataField(line); ok {
				if chunk == DoneSentinel {
					return full.String(), nil
				}
				full.WriteString(chunk)
				if onChunk != nil && chunk != "" {
					onChunk(chunk)
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return full.String(), nil
			}
			return full.String(), fmt.Errorf("read stream: %w", err)
		}
	}
}

// dataField extracts the payload of a data line. One space after the colon
// belongs to the framing; anything further is content.
func dataField(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "data:") {
		return "", false
	}
	payload := strings.TrimPrefix(line, "data:")
	payload = strings.TrimPrefix(payload, " ")
	return payload, true
}
