package cortex

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Event types relayed from an agent run.
const (
	EventText       = "text"
	EventThinking   = "thinking"
	EventStatus     = "status"
	EventToolStatus = "tool_status"
	EventToolResult = "tool_result"
	EventChart      = "chart"
	EventDone       = "done"
	EventError      = "error"
)

// Event is one normalized event from a streamed agent run.
type Event struct {
	Type      string         `json:"type"`
	Content   string         `json:"content,omitempty"`
	Title     string         `json:"title,omitempty"`
	Status    string         `json:"status,omitempty"`
	SQL       string         `json:"sql,omitempty"`
	Data      any            `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	ChartSpec map[string]any `json:"chart_spec,omitempty"`
	Details   string         `json:"details,omitempty"`
}

type agentContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type agentMessage struct {
	Role    string         `json:"role"`
	Content []agentContent `json:"content"`
}

type agentRunRequest struct {
	Messages []agentMessage `json:"messages"`
	Stream   bool           `json:"stream"`
	ThreadID string         `json:"thread_id,omitempty"`
}

// agentPath is the named agent run endpoint.
func (c *Client) agentPath() string {
	return fmt.Sprintf("/api/v2/databases/%s/schemas/%s/agents/%s:run",
		url.PathEscape(c.cfg.Database), url.PathEscape(c.cfg.Schema), url.PathEscape(c.cfg.AgentName))
}

// Run starts a streamed agent run for message and returns its events. The
// channel always ends with a done or error event and is closed afterwards.
// Cancelling ctx aborts the stream.
func (c *Client) Run(ctx context.Context, message, threadID string) <-chan Event {
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		send := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		runCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		resp, err := c.post(runCtx, c.agentPath(), agentRunRequest{
			Messages: []agentMessage{{
				Role:    "user",
				Content: []agentContent{{Type: "text", Text: message}},
			}},
			Stream:   true,
			ThreadID: threadID,
		}, "text/event-stream")
		if err != nil {
			c.logger.Error("cortex: agent request failed", "error", err)
			send(Event{Type: EventError, Content: err.Error()})
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			serr := statusError(resp)
			c.logger.Error("cortex: agent api error", "status", resp.StatusCode, "error", serr)
			send(Event{
				Type:    EventError,
				Content: fmt.Sprintf("Agent API error: %d", resp.StatusCode),
				Details: serr.Body,
			})
			return
		}

		stopped := false
		err = readSSE(resp.Body, func(b sseBlock) bool {
			ev, ok := parseEvent(b)
			if !ok {
				return true
			}
			if !send(ev) {
				stopped = true
				return false
			}
			return true
		})
		if stopped {
			return
		}
		if err != nil {
			c.logger.Error("cortex: agent stream error", "error", err)
			send(Event{Type: EventError, Content: err.Error()})
			return
		}
		send(Event{Type: EventDone})
	}()
	return out
}
