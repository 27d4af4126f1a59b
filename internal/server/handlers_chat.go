package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vigil-grid/vigil/internal/copilot"
	"github.com/vigil-grid/vigil/internal/cortex"
	"github.com/vigil-grid/vigil/internal/model"
)

// Chat stream event names.
const (
	sseFireSeason = "fire_season"
	sseText       = "text"
	sseThinking   = "thinking"
	sseStatus     = "status"
	sseToolStatus = "tool_status"
	sseToolResult = "tool_result"
	sseChart      = "chart"
	sseComplete   = "complete"
	sseError      = "error"
)

// streamChunkRunes is the size of the text chunks a fallback reply is
// streamed in.
const streamChunkRunes = 100

// AgentName labels replies produced by the hosted agent.
const AgentName = "VIGIL Agent"

func (h *Handlers) decodeChat(w http.ResponseWriter, r *http.Request) (model.ChatRequest, bool) {
	var req model.ChatRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return req, false
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return req, false
	}
	return req, true
}

func copilotRequest(req model.ChatRequest) copilot.Request {
	return copilot.Request{
		Message:   req.Message,
		Persona:   req.Persona,
		SessionID: req.SessionID,
		AssetID:   req.ContextString("asset_id"),
		Region:    req.ContextString("region"),
	}
}

// HandleChat handles POST /chat.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeChat(w, r)
	if !ok {
		return
	}

	reply := h.chat.Process(r.Context(), copilotRequest(req))
	writeJSON(w, r, http.StatusOK, model.ChatResponse{
		Message:    reply.Narrative,
		Agent:      reply.Agent,
		Persona:    reply.Persona,
		Intent:     reply.Intent,
		SessionID:  reply.SessionID,
		Data:       reply.Data,
		Sources:    reply.Sources,
		FireSeason: h.fireSeason(),
		Timestamp:  h.now().UTC(),
	})
}

// sseWriter writes named JSON events to a flushed stream.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (s sseWriter) send(event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := s.w.Write(formatSSE(event, string(b))); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// HandleChatStream handles POST /chat/stream (SSE). The hosted agent is
// tried first; if it is not configured or fails before producing any text
// the orchestrator answers instead and its narrative is streamed in chunks.
func (h *Handlers) HandleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeChat(w, r)
	if !ok {
		return
	}
	flusher, ok := startSSE(w, r)
	if !ok {
		return
	}
	out := sseWriter{w: w, flusher: flusher}

	if err := out.send(sseFireSeason, h.fireSeason()); err != nil {
		return
	}

	if h.agent != nil && h.agent.Configured() {
		handled, err := h.relayAgent(r.Context(), out, req)
		if err != nil || handled {
			return
		}
	}

	if err := h.streamFallback(r.Context(), out, req); err != nil {
		h.logger.Warn("chat stream: write failed", "error", err)
	}
}

// relayAgent forwards agent events to the client. It reports false when
// the agent failed before producing any text, so the caller can fall back.
// A non-nil error means the client went away.
func (h *Handlers) relayAgent(ctx context.Context, out sseWriter, req model.ChatRequest) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var narrative []byte
	// Cortex issues its own thread ids; a VIGIL session id is not one.
	for ev := range h.agent.Run(ctx, req.Message, "") {
		var err error
		switch ev.Type {
		case cortex.EventText:
			narrative = append(narrative, ev.Content...)
			err = out.send(sseText, map[string]any{"chunk": ev.Content, "done": false})
		case cortex.EventThinking:
			title := ev.Title
			if title == "" {
				title = "Thinking"
			}
			err = out.send(sseThinking, map[string]any{"title": title, "content": ev.Content})
		case cortex.EventStatus:
			err = out.send(sseStatus, map[string]any{"title": ev.Title, "status": ev.Status})
		case cortex.EventToolStatus:
			err = out.send(sseToolStatus, map[string]any{"title": ev.Title, "status": ev.Status})
		case cortex.EventToolResult:
			err = out.send(sseToolResult, map[string]any{"sql": ev.SQL, "data": ev.Data, "error": ev.Error})
		case cortex.EventChart:
			err = out.send(sseChart, map[string]any{"chart_spec": ev.ChartSpec})
		case cortex.EventError:
			if len(narrative) == 0 {
				h.logger.Warn("agent unavailable, falling back to orchestrator", "error", ev.Content)
				return false, nil
			}
			msg := ev.Content
			if msg == "" {
				msg = "Unknown error"
			}
			err = out.send(sseError, map[string]any{"error": msg})
		case cortex.EventDone:
			cancel()
		}
		if err != nil {
			return true, err
		}
	}

	persona := copilot.PersonaFor(req.Persona)
	return true, out.send(sseComplete, map[string]any{
		"agent":     AgentName,
		"persona":   map[string]string{"name": persona.Name, "emoji": persona.Emoji},
		"narrative": string(narrative),
		"done":      true,
	})
}

func (h *Handlers) streamFallback(ctx context.Context, out sseWriter, req model.ChatRequest) error {
	reply := h.chat.Process(ctx, copilotRequest(req))
	for _, chunk := range chunkRunes(reply.Narrative, streamChunkRunes) {
		if err := out.send(sseText, map[string]any{"chunk": chunk, "done": false}); err != nil {
			return err
		}
	}
	return out.send(sseComplete, map[string]any{
		"agent":      reply.Agent,
		"persona":    reply.Persona,
		"intent":     reply.Intent,
		"session_id": reply.SessionID,
		"data":       reply.Data,
		"sources":    reply.Sources,
		"done":       true,
	})
}

// chunkRunes splits s into pieces of at most n runes.
func chunkRunes(s string, n int) []string {
	var chunks []string
	runes := []rune(s)
	for i := 0; i < len(runes); i += n {
		chunks = append(chunks, string(runes[i:min(i+n, len(runes))]))
	}
	return chunks
}
