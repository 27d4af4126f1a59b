package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/vigil-grid/vigil/internal/copilot"
	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/regulation"
	"github.com/vigil-grid/vigil/internal/search"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("fire_season",
			mcplib.WithDescription(`Fire season phase and the countdown to the next season start (June 1).

WHAT YOU GET BACK:
- season: status (PRE_SEASON, ACTIVE or POST_SEASON), days until the season
  or days remaining in it, and a one-line message
- countdown: days until the next June 1 with an urgency of low, medium or high`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
		),
		s.handleFireSeason,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("clearance_requirement",
			mcplib.WithDescription(`Minimum vegetation clearance required by CPUC GO95 Rule 35.

WHEN TO USE: Any question about how far vegetation must be kept from a line.
The answer is a lookup, not an estimate.

EXAMPLE: voltage_class="12KV", fire_district="TIER_3" returns 6 feet.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("voltage_class",
				mcplib.Description("Line voltage class, e.g. 4KV, 12KV, 21KV, 33KV, 69KV, TRANSMISSION"),
				mcplib.Required(),
			),
			mcplib.WithString("fire_district",
				mcplib.Description("Fire threat tier: TIER_3, TIER_2, TIER_1 or NON_HFTD"),
				mcplib.Required(),
			),
		),
		s.handleClearanceRequirement,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("compliance_gap",
			mcplib.WithDescription(`Grade a measured clearance against the GO95 minimum.

WHAT YOU GET BACK:
- deficit_ft: how far short of the minimum the span is (0 when compliant)
- compliance_status: COMPLIANT or VIOLATION
- urgency: CRITICAL, HIGH, MEDIUM, LOW or NONE (thresholds tighten with tier)
- recommendation: the field action to schedule`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithNumber("current_clearance_ft",
				mcplib.Description("Measured clearance in feet"),
				mcplib.Required(),
				mcplib.Min(0),
			),
			mcplib.WithString("voltage_class",
				mcplib.Description("Line voltage class, e.g. 12KV"),
				mcplib.Required(),
			),
			mcplib.WithString("fire_district",
				mcplib.Description("Fire threat tier: TIER_3, TIER_2, TIER_1 or NON_HFTD"),
				mcplib.Required(),
			),
		),
		s.handleComplianceGap,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("species_info",
			mcplib.WithDescription("Growth rate, mature height, fire risk and management notes for a tree species. Unknown species return conservative defaults flagged is_estimated."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("species",
				mcplib.Description("Species name, e.g. EUCALYPTUS, OAK, PINE"),
				mcplib.Required(),
			),
		),
		s.handleSpeciesInfo,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("ask_vigil",
			mcplib.WithDescription(`Ask the VIGIL copilot a planning question in plain language.

WHEN TO USE: Questions about assets, circuits, fire risk, PSPS candidates,
vegetation encroachments, work orders, water treeing or ML predictions.
The copilot routes the question to a specialist and answers from the
warehouse. Follow-up questions in the same MCP session keep context.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("question",
				mcplib.Description("The question to answer"),
				mcplib.Required(),
			),
			mcplib.WithString("persona",
				mcplib.Description("Voice of the answer"),
				mcplib.Enum(copilot.PersonaIDs()...),
			),
			mcplib.WithString("asset_id",
				mcplib.Description("Optional asset the question is about"),
			),
			mcplib.WithString("region",
				mcplib.Description("Optional region filter, e.g. NORCAL"),
			),
		),
		s.handleAskVigil,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("search_documents",
			mcplib.WithDescription("Search GO95 regulations, vegetation field notes, work order notes and AMI anomaly reports."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("query",
				mcplib.Description("Natural language search query"),
				mcplib.Required(),
			),
			mcplib.WithString("corpus",
				mcplib.Description("Corpus to search"),
				mcplib.Enum(model.Corpora...),
				mcplib.DefaultString(model.CorpusGO95),
			),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum results to return"),
				mcplib.Min(1),
				mcplib.Max(search.MaxLimit),
				mcplib.DefaultNumber(search.DefaultLimit),
			),
		),
		s.handleSearchDocuments,
	)
}

func (s *Server) handleFireSeason(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	now := s.now()
	return jsonResult(map[string]any{
		"season":    model.FireSeasonStatus(now),
		"countdown": model.FireSeasonCountdown(now),
	})
}

func (s *Server) handleClearanceRequirement(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	vc := request.GetString("voltage_class", "")
	tier := request.GetString("fire_district", "")
	if vc == "" || tier == "" {
		return errorResult("voltage_class and fire_district are required"), nil
	}
	req, err := regulation.ClearanceRequirement(vc, tier)
	if err != nil {
		return lookupErrorResult(err), nil
	}
	return jsonResult(req)
}

func (s *Server) handleComplianceGap(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	vc := request.GetString("voltage_class", "")
	tier := request.GetString("fire_district", "")
	current := request.GetFloat("current_clearance_ft", -1)
	if vc == "" || tier == "" || current < 0 {
		return errorResult("current_clearance_ft, voltage_class and fire_district are required"), nil
	}
	gap, err := regulation.ComplianceGap(current, vc, tier)
	if err != nil {
		return lookupErrorResult(err), nil
	}
	return jsonResult(gap)
}

func (s *Server) handleSpeciesInfo(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	name := request.GetString("species", "")
	if strings.TrimSpace(name) == "" {
		return errorResult("species is required"), nil
	}
	return jsonResult(regulation.SpeciesInfo(name))
}

func (s *Server) handleAskVigil(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.chat == nil {
		return errorResult("copilot is not available"), nil
	}
	question := strings.TrimSpace(request.GetString("question", ""))
	if question == "" {
		return errorResult("question is required"), nil
	}
	if len(question) > model.MaxChatMessageLen {
		return errorResult(fmt.Sprintf("question exceeds maximum length of %d bytes", model.MaxChatMessageLen)), nil
	}

	mcpSession := clientSessionID(ctx)
	chatID, _ := s.sessions.Lookup(mcpSession, s.now())

	reply := s.chat.Process(ctx, copilot.Request{
		Message:   question,
		Persona:   request.GetString("persona", ""),
		SessionID: chatID,
		AssetID:   strings.ToUpper(request.GetString("asset_id", "")),
		Region:    strings.ToUpper(request.GetString("region", "")),
	})
	s.sessions.Record(mcpSession, reply.SessionID, s.now())

	return jsonResult(map[string]any{
		"answer":  reply.Narrative,
		"agent":   reply.Agent,
		"intent":  reply.Intent,
		"sources": reply.Sources,
		"data":    reply.Data,
	})
}

func (s *Server) handleSearchDocuments(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if s.searcher == nil {
		return errorResult("search is not configured"), nil
	}
	query := strings.TrimSpace(request.GetString("query", ""))
	if query == "" {
		return errorResult("query is required"), nil
	}
	corpus := request.GetString("corpus", model.CorpusGO95)
	if !slices.Contains(model.Corpora, corpus) {
		return errorResult(fmt.Sprintf("unknown corpus %q; available: %s", corpus, strings.Join(model.Corpora, ", "))), nil
	}
	limit := min(max(request.GetInt("limit", search.DefaultLimit), 1), search.MaxLimit)

	docs, err := s.searcher.Search(ctx, corpus, query, limit)
	if err != nil {
		s.logger.Warn("search failed", "corpus", corpus, "error", err)
		return errorResult("search failed"), nil
	}
	results := make([]map[string]any, len(docs))
	for i, d := range docs {
		results[i] = compactDocument(d)
	}
	return jsonResult(map[string]any{
		"results": results,
		"total":   len(results),
		"corpus":  corpus,
		"backend": s.searcher.Name(),
	})
}

// clientSessionID returns the MCP session id of the calling client, or ""
// outside a session.
func clientSessionID(ctx context.Context) string {
	session := mcpserver.ClientSessionFromContext(ctx)
	if session == nil {
		return ""
	}
	return session.SessionID()
}

func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

// lookupErrorResult lists the valid tiers and voltage classes so the caller
// can retry.
func lookupErrorResult(err error) *mcplib.CallToolResult {
	var lookup *regulation.LookupError
	if errors.As(err, &lookup) {
		return errorResult(fmt.Sprintf("%s. Available tiers: %s. Voltage classes: %s.",
			err, strings.Join(lookup.AvailableTiers, ", "), strings.Join(regulation.VoltageClasses(), ", ")))
	}
	return errorResult(err.Error())
}
