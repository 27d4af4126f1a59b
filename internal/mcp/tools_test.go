package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-grid/vigil/internal/copilot"
	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/search"
)

var testServer *Server

// May 2 is 30 days before June 1.
var testNow = time.Date(2026, time.May, 2, 8, 0, 0, 0, time.UTC)

type fakeChat struct {
	requests []copilot.Request
}

func (c *fakeChat) Process(_ context.Context, req copilot.Request) copilot.Reply {
	c.requests = append(c.requests, req)
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "chat-1"
	}
	return copilot.Reply{
		Narrative: "3 circuits are PSPS candidates.",
		Agent:     copilot.AgentOrchestrator,
		Intent:    "fire_risk",
		Sources:   []string{"risk_assessment"},
		SessionID: sessionID,
	}
}

type fakeSearcher struct {
	docs []model.Document
	err  error

	corpus string
	limit  int
}

func (f *fakeSearcher) Name() string { return "fake" }

func (f *fakeSearcher) Search(_ context.Context, corpus, _ string, limit int) ([]model.Document, error) {
	f.corpus, f.limit = corpus, limit
	return f.docs, f.err
}

func (f *fakeSearcher) Healthy(context.Context) error { return nil }

func TestMain(m *testing.M) {
	testServer = newTestServer(&fakeChat{}, &fakeSearcher{})
	os.Exit(m.Run())
}

func newTestServer(chat ChatService, searcher search.Searcher) *Server {
	s := New(chat, searcher, slog.New(slog.NewTextHandler(io.Discard, nil)), "test")
	s.now = func() time.Time { return testNow }
	return s
}

func callTool(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	}
}

func resultText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok, "content should be TextContent")
	return tc.Text
}

func resultJSON(t *testing.T, result *mcplib.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, result.IsError, resultText(t, result))
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &m))
	return m
}

func TestFireSeasonTool(t *testing.T) {
	result, err := testServer.handleFireSeason(context.Background(), callTool("fire_season", nil))
	require.NoError(t, err)
	m := resultJSON(t, result)
	season := m["season"].(map[string]any)
	assert.Equal(t, model.SeasonPre, season["status"])
	assert.EqualValues(t, 30, season["days_until_fire_season"])
	countdown := m["countdown"].(map[string]any)
	assert.EqualValues(t, 30, countdown["days_remaining"])
	assert.Equal(t, "high", countdown["urgency"])
}

func TestClearanceRequirementTool(t *testing.T) {
	ctx := context.Background()

	result, err := testServer.handleClearanceRequirement(ctx, callTool("clearance_requirement", map[string]any{
		"voltage_class": "12kv", "fire_district": "Tier 3",
	}))
	require.NoError(t, err)
	m := resultJSON(t, result)
	assert.InDelta(t, 6.0, m["required_clearance_ft"], 1e-9)
	assert.Equal(t, "TIER_3", m["fire_threat_tier"])

	result, err = testServer.handleClearanceRequirement(ctx, callTool("clearance_requirement", map[string]any{
		"voltage_class": "500KV", "fire_district": "TIER_3",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Available tiers: TIER_3, TIER_2, TIER_1, NON_HFTD")

	result, err = testServer.handleClearanceRequirement(ctx, callTool("clearance_requirement", map[string]any{
		"voltage_class": "12KV",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestComplianceGapTool(t *testing.T) {
	ctx := context.Background()

	result, err := testServer.handleComplianceGap(ctx, callTool("compliance_gap", map[string]any{
		"current_clearance_ft": 2.0, "voltage_class": "12KV", "fire_district": "TIER_3",
	}))
	require.NoError(t, err)
	m := resultJSON(t, result)
	assert.InDelta(t, 4.0, m["deficit_ft"], 1e-9)
	assert.Equal(t, "VIOLATION", m["compliance_status"])

	result, err = testServer.handleComplianceGap(ctx, callTool("compliance_gap", map[string]any{
		"voltage_class": "12KV", "fire_district": "TIER_3",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "missing measurement is an error")
}

func TestSpeciesInfoTool(t *testing.T) {
	result, err := testServer.handleSpeciesInfo(context.Background(), callTool("species_info", map[string]any{
		"species": "eucalyptus",
	}))
	require.NoError(t, err)
	m := resultJSON(t, result)
	assert.Equal(t, "EUCALYPTUS", m["species"])
	assert.Equal(t, "EXTREME", m["fire_risk"])

	result, err = testServer.handleSpeciesInfo(context.Background(), callTool("species_info", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestAskVigilTool(t *testing.T) {
	chat := &fakeChat{}
	s := newTestServer(chat, nil)

	result, err := s.handleAskVigil(context.Background(), callTool("ask_vigil", map[string]any{
		"question": "Which circuits are PSPS candidates?",
		"region":   "norcal",
		"persona":  copilot.PersonaExecutiveAdvisor,
	}))
	require.NoError(t, err)
	m := resultJSON(t, result)
	assert.Equal(t, "3 circuits are PSPS candidates.", m["answer"])
	assert.Equal(t, copilot.AgentOrchestrator, m["agent"])

	require.Len(t, chat.requests, 1)
	assert.Equal(t, "NORCAL", chat.requests[0].Region)
	assert.Equal(t, copilot.PersonaExecutiveAdvisor, chat.requests[0].Persona)

	result, err = s.handleAskVigil(context.Background(), callTool("ask_vigil", map[string]any{"question": "  "}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestAskVigilWithoutChat(t *testing.T) {
	s := newTestServer(nil, nil)
	result, err := s.handleAskVigil(context.Background(), callTool("ask_vigil", map[string]any{"question": "hi"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSearchDocumentsTool(t *testing.T) {
	searcher := &fakeSearcher{docs: []model.Document{
		{Corpus: model.CorpusGO95, Title: "Rule 35", Content: "Clearances in HFTD", Score: 0.91234},
	}}
	s := newTestServer(&fakeChat{}, searcher)

	result, err := s.handleSearchDocuments(context.Background(), callTool("search_documents", map[string]any{
		"query": "clearance", "limit": 500,
	}))
	require.NoError(t, err)
	m := resultJSON(t, result)
	assert.EqualValues(t, 1, m["total"])
	assert.Equal(t, "fake", m["backend"])
	assert.Equal(t, model.CorpusGO95, searcher.corpus)
	assert.Equal(t, 50, searcher.limit, "limit is clamped")

	first := m["results"].([]any)[0].(map[string]any)
	assert.Equal(t, "Rule 35", first["title"])
	assert.InDelta(t, 0.912, first["score"], 1e-9)

	result, err = s.handleSearchDocuments(context.Background(), callTool("search_documents", map[string]any{
		"query": "clearance", "corpus": "tweets",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "unknown corpus")
}

func TestSearchDocumentsFailure(t *testing.T) {
	s := newTestServer(&fakeChat{}, &fakeSearcher{err: errors.New("index down")})
	result, err := s.handleSearchDocuments(context.Background(), callTool("search_documents", map[string]any{
		"query": "clearance",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "search failed", resultText(t, result))
}

func TestSearchDocumentsNotConfigured(t *testing.T) {
	s := newTestServer(&fakeChat{}, nil)
	result, err := s.handleSearchDocuments(context.Background(), callTool("search_documents", map[string]any{
		"query": "clearance",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
