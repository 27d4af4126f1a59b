package cortex

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// sseBlock is one server-sent event: the event name and its data lines
// joined by newlines.
type sseBlock struct {
	Event string
	Data  string
}

// readSSE splits r into blank-line separated blocks and calls fn for each
// block that carries an event or data line. A trailing block without a final
// blank line is still delivered. fn returning false stops reading.
func readSSE(r io.Reader, fn func(sseBlock) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		cur     sseBlock
		data    []string
		pending bool
	)
	flush := func() bool {
		if !pending {
			return true
		}
		cur.Data = strings.Join(data, "\n")
		ok := fn(cur)
		cur, data, pending = sseBlock{}, data[:0], false
		return ok
	}

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case line == "":
			if !flush() {
				return nil
			}
		case strings.HasPrefix(line, "event:"):
			cur.Event = strings.TrimSpace(line[len("event:"):])
			pending = true
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(line[len("data:"):]))
			pending = true
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	flush()
	return nil
}

// statusTitles maps agent status codes to the titles shown in the
// thinking panel.
var statusTitles = map[string]string{
	"planning":                  "Planning analysis approach",
	"reasoning_agent_start":     "Starting analysis",
	"reasoning_agent_stop":      "Analysis complete",
	"reevaluating_plan":         "Refining approach",
	"streaming_analyst_results": "Running SQL query",
	"analyzing_risk":            "Analyzing fire risk factors",
	"evaluating_compliance":     "Checking GO95 compliance",
}

// parseEvent maps one agent SSE block to an Event. ok is false for blocks
// that carry nothing to show.
func parseEvent(b sseBlock) (ev Event, ok bool) {
	if b.Data == "" {
		return Event{}, false
	}
	if b.Data == "[DONE]" {
		return Event{Type: EventDone}, true
	}

	var raw any
	if err := json.Unmarshal([]byte(b.Data), &raw); err != nil {
		raw = map[string]any{"raw": b.Data}
	}
	data, isObject := raw.(map[string]any)
	if !isObject {
		return Event{Type: EventText, Content: stringify(raw)}, true
	}

	switch b.Event {
	case "response.output_text.delta", "response.text.delta":
		if text := str(data, "text"); text != "" {
			return Event{Type: EventText, Content: text}, true
		}

	case "response.thinking.delta":
		if text := str(data, "text"); text != "" {
			return Event{Type: EventThinking, Title: "Reasoning", Content: text}, true
		}

	case "response.status":
		status := str(data, "status")
		title, known := statusTitles[status]
		if !known {
			title = str(data, "message")
			if title == "" {
				title = status
			}
		}
		if title != "" {
			return Event{Type: EventStatus, Title: title, Status: status}, true
		}

	case "response.tool_result.status":
		status := str(data, "status")
		title := str(data, "message")
		if title == "" {
			title = status
		}
		return Event{Type: EventToolStatus, Title: title, Status: status}, true

	case "response.tool_result":
		return parseToolResult(data)

	case "response.chart":
		spec := data["chart_spec"]
		if s, isString := spec.(string); isString {
			var parsed map[string]any
			if err := json.Unmarshal([]byte(s), &parsed); err != nil {
				return Event{}, false
			}
			spec = parsed
		}
		if m, isMap := spec.(map[string]any); isMap && len(m) > 0 {
			return Event{Type: EventChart, ChartSpec: m}, true
		}

	case "response.done":
		return Event{Type: EventDone}, true

	case "response.content.delta":
		if text := str(data, "text"); text != "" {
			return Event{Type: EventText, Content: text}, true
		}
		if items, isList := data["content"].([]any); isList {
			var sb strings.Builder
			var found bool
			for _, it := range items {
				if m, isMap := it.(map[string]any); isMap {
					found = true
					sb.WriteString(str(m, "text"))
				}
			}
			if found {
				return Event{Type: EventText, Content: sb.String()}, true
			}
		}
	}
	return Event{}, false
}

func parseToolResult(data map[string]any) (Event, bool) {
	ev := Event{Type: EventToolResult}
	var set bool
	items, _ := data["content"].([]any)
	for _, it := range items {
		item, isMap := it.(map[string]any)
		if !isMap {
			continue
		}
		if j, isMap := item["json"].(map[string]any); isMap {
			if sql, has := j["sql"]; has {
				ev.SQL, set = stringify(sql), true
			}
			if e, has := j["error"]; has {
				if em, isMap := e.(map[string]any); isMap && em["message"] != nil {
					ev.Error = stringify(em["message"])
				} else {
					ev.Error = stringify(e)
				}
				set = true
			}
			if d, has := j["data"]; has {
				ev.Data, set = d, true
			}
		}
		if text, has := item["text"]; has {
			ev.Content, set = stringify(text), true
		}
	}
	return ev, set
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringify(v any) string {
	if s, isString := v.(string); isString {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
