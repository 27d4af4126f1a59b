package cortex

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, string, error) {
	return string(s), TokenTypeOAuth, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{Database: "DB", Schema: "SCH", AgentName: "AGENT", Timeout: 5 * time.Second},
		staticToken("tok"), testLogger(), WithBaseURL(srv.URL))
}

func collectEvents(ch <-chan Event) []Event {
	var out []Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name  string
		block sseBlock
		want  Event
		ok    bool
	}{
		{"output text", sseBlock{"response.output_text.delta", `{"text":"Hello"}`}, Event{Type: EventText, Content: "Hello"}, true},
		{"text delta", sseBlock{"response.text.delta", `{"text":"Hi"}`}, Event{Type: EventText, Content: "Hi"}, true},
		{"empty text", sseBlock{"response.text.delta", `{"text":""}`}, Event{}, false},
		{"thinking", sseBlock{"response.thinking.delta", `{"text":"hmm"}`}, Event{Type: EventThinking, Title: "Reasoning", Content: "hmm"}, true},
		{"known status", sseBlock{"response.status", `{"status":"planning","message":"x"}`}, Event{Type: EventStatus, Title: "Planning analysis approach", Status: "planning"}, true},
		{"unknown status uses message", sseBlock{"response.status", `{"status":"other","message":"Doing things"}`}, Event{Type: EventStatus, Title: "Doing things", Status: "other"}, true},
		{"unknown status without message", sseBlock{"response.status", `{"status":"other"}`}, Event{Type: EventStatus, Title: "other", Status: "other"}, true},
		{"tool status", sseBlock{"response.tool_result.status", `{"status":"running"}`}, Event{Type: EventToolStatus, Title: "running", Status: "running"}, true},
		{"done marker", sseBlock{"", "[DONE]"}, Event{Type: EventDone}, true},
		{"response done", sseBlock{"response.done", `{}`}, Event{Type: EventDone}, true},
		{"content delta list", sseBlock{"response.content.delta", `{"content":[{"text":"a"},{"text":"b"}]}`}, Event{Type: EventText, Content: "ab"}, true},
		{"non-object data", sseBlock{"response.text.delta", `"plain"`}, Event{Type: EventText, Content: "plain"}, true},
		{"bad json", sseBlock{"response.text.delta", `{oops`}, Event{}, false},
		{"unknown event", sseBlock{"response.mystery", `{"text":"x"}`}, Event{}, false},
		{"no data", sseBlock{"response.text.delta", ""}, Event{}, false},
		{"chart string", sseBlock{"response.chart", `{"chart_spec":"{\"mark\":\"bar\"}"}`}, Event{Type: EventChart, ChartSpec: map[string]any{"mark": "bar"}}, true},
		{"chart bad string", sseBlock{"response.chart", `{"chart_spec":"{bad"}`}, Event{}, false},
		{"chart empty", sseBlock{"response.chart", `{"chart_spec":{}}`}, Event{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseEvent(tt.block)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEvent_ToolResult(t *testing.T) {
	ev, ok := parseEvent(sseBlock{"response.tool_result", `{"content":[
		{"json":{"sql":"SELECT 1","data":[[1]],"error":{"message":"warn"}}},
		{"text":"one row"}]}`})
	require.True(t, ok)
	assert.Equal(t, EventToolResult, ev.Type)
	assert.Equal(t, "SELECT 1", ev.SQL)
	assert.Equal(t, "warn", ev.Error)
	assert.Equal(t, "one row", ev.Content)
	assert.Equal(t, []any{[]any{float64(1)}}, ev.Data)

	_, ok = parseEvent(sseBlock{"response.tool_result", `{"content":[]}`})
	assert.False(t, ok, "empty tool results are dropped")
}

func TestReadSSE_TrailingBlockAndCRLF(t *testing.T) {
	in := "event: a\r\ndata: 1\r\n\r\n: comment\n\nevent: b\ndata: x\ndata: y"
	var got []sseBlock
	require.NoError(t, readSSE(strings.NewReader(in), func(b sseBlock) bool {
		got = append(got, b)
		return true
	}))
	assert.Equal(t, []sseBlock{{"a", "1"}, {"b", "x\ny"}}, got)
}

func TestRun_StreamsEvents(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/databases/DB/schemas/SCH/agents/AGENT:run", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, TokenTypeOAuth, r.Header.Get("X-Snowflake-Authorization-Token-Type"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		var body agentRunRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Stream)
		assert.Equal(t, "thread-1", body.ThreadID)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)
		assert.Equal(t, []agentContent{{Type: "text", Text: "which poles are worst?"}}, body.Messages[0].Content)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: response.status\ndata: {\"status\":\"planning\"}\n\n")
		fmt.Fprint(w, "event: response.text.delta\ndata: {\"text\":\"Pole \"}\n\n")
		fmt.Fprint(w, "event: response.text.delta\ndata: {\"text\":\"AST-001\"}\n\n")
	}))

	events := collectEvents(c.Run(context.Background(), "which poles are worst?", "thread-1"))
	require.Len(t, events, 4)
	assert.Equal(t, EventStatus, events[0].Type)
	assert.Equal(t, "Pole ", events[1].Content)
	assert.Equal(t, "AST-001", events[2].Content)
	assert.Equal(t, EventDone, events[3].Type)
}

func TestRun_NonOKStatus(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "agent missing", http.StatusNotFound)
	}))

	events := collectEvents(c.Run(context.Background(), "hi", ""))
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.Equal(t, "Agent API error: 404", events[0].Content)
	assert.Contains(t, events[0].Details, "agent missing")
}

func TestRun_NotConfigured(t *testing.T) {
	c := New(Config{}, nil, testLogger())
	assert.False(t, c.Configured())

	events := collectEvents(c.Run(context.Background(), "hi", ""))
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
}

func TestRun_CancelStopsStream(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: response.text.delta\ndata: {\"text\":\"first\"}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	ch := c.Run(ctx, "hi", "")
	first := <-ch
	assert.Equal(t, "first", first.Content)
	cancel()

	// The channel closes once the goroutine observes cancellation.
	for range ch {
	}
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/databases/DB/schemas/DOCS/cortex-search-services/GO95_SEARCH_SERVICE:query", r.URL.Path)
		var body searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tier 3 clearance", body.Query)
		assert.Equal(t, 3, body.Limit)
		fmt.Fprint(w, `{"results":[{"title":"Rule 35","content":"12 feet"}]}`)
	}))

	svc, ok := c.SearchService("go95")
	require.True(t, ok)
	assert.Equal(t, "DB.DOCS.GO95_SEARCH_SERVICE", svc)

	res, err := c.Search(context.Background(), svc, "tier 3 clearance", []string{"title", "content"}, 3)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Rule 35", res[0]["title"])

	_, err = c.Search(context.Background(), "BAD", "q", nil, 1)
	assert.Error(t, err)

	_, ok = c.SearchService("unknown")
	assert.False(t, ok)
}

func TestComplete(t *testing.T) {
	t.Run("stream", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v2/cortex/inference:complete", r.URL.Path)
			var body completeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, DefaultModel, body.Model)
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"SELECT \"}}]}\n\n")
			fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"1\"}}]}\n\n")
			fmt.Fprint(w, "data: [DONE]\n\n")
		}))
		out, err := c.Complete(context.Background(), "", "prompt")
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1", out)
	})

	t.Run("json", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"choices":[{"message":{"content":"SELECT 2"}}]}`)
		}))
		out, err := c.Complete(context.Background(), "llama3.1-70b", "prompt")
		require.NoError(t, err)
		assert.Equal(t, "SELECT 2", out)
	})

	t.Run("error status", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		_, err := c.Complete(context.Background(), "", "prompt")
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	})
}

func TestKeyPairSource(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	src, err := NewKeyPairSource("xy12345", "vigil_svc", pemKey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(src.Fingerprint(), "SHA256:"))

	now := time.Now()
	src.now = func() time.Time { return now }

	tok, typ, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TokenTypeKeyPair, typ)

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) { return &key.PublicKey, nil },
		jwt.WithValidMethods([]string{"RS256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	assert.Equal(t, "XY12345.VIGIL_SVC", claims.Subject)
	assert.Equal(t, "XY12345.VIGIL_SVC."+src.Fingerprint(), claims.Issuer)
	assert.WithinDuration(t, now.Add(time.Hour), claims.ExpiresAt.Time, time.Second)

	again, _, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tok, again, "token is cached")

	now = now.Add(56 * time.Minute)
	renewed, _, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, tok, renewed, "token is renewed near expiry")

	_, err = NewKeyPairSource("a", "b", []byte("not pem"))
	assert.Error(t, err)
}

func TestOAuthFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("  abc\n"), 0o600))

	tok, typ, err := OAuthFileSource{Path: path}.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
	assert.Equal(t, TokenTypeOAuth, typ)

	_, _, err = OAuthFileSource{Path: filepath.Join(t.TempDir(), "missing")}.Token(context.Background())
	assert.Error(t, err)
}
