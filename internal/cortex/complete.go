package cortex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type completeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completeRequest struct {
	Model    string            `json:"model"`
	Messages []completeMessage `json:"messages"`
	Stream   bool              `json:"stream"`
}

// completeChunk covers both the streamed delta and the whole message form.
type completeChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete runs a single-turn LLM completion and returns the generated text.
// An empty model uses DefaultModel.
func (c *Client) Complete(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = DefaultModel
	}
	resp, err := c.post(ctx, "/api/v2/cortex/inference:complete", completeRequest{
		Model:    model,
		Messages: []completeMessage{{Role: "user", Content: prompt}},
		Stream:   true,
	}, "text/event-stream, application/json")
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	var sb strings.Builder
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var chunk completeChunk
		if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
			return "", fmt.Errorf("cortex: decode completion: %w", err)
		}
		appendChunk(&sb, chunk)
		return sb.String(), nil
	}

	err = readSSE(resp.Body, func(b sseBlock) bool {
		if b.Data == "" || b.Data == "[DONE]" {
			return true
		}
		var chunk completeChunk
		if err := json.Unmarshal([]byte(b.Data), &chunk); err != nil {
			c.logger.Debug("cortex: skip malformed completion chunk", "error", err)
			return true
		}
		appendChunk(&sb, chunk)
		return true
	})
	if err != nil {
		return "", fmt.Errorf("cortex: read completion stream: %w", err)
	}
	return sb.String(), nil
}

func appendChunk(sb *strings.Builder, chunk completeChunk) {
	for _, ch := range chunk.Choices {
		sb.WriteString(ch.Delta.Content)
		sb.WriteString(ch.Message.Content)
	}
}
