package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/regulation"
)

const (
	uriFireSeason     = "vigil://fire-season"
	uriClearanceTable = "vigil://go95/clearances"
	speciesURIPrefix  = "vigil://species/"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			uriFireSeason,
			"Fire Season",
			mcplib.WithResourceDescription("Countdown to peak fire season with the current urgency level"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleFireSeasonResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			uriClearanceTable,
			"GO95 Clearance Table",
			mcplib.WithResourceDescription("Minimum vegetation clearance in feet for every fire threat tier and voltage class"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleClearanceTable,
	)

	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			speciesURIPrefix+"{name}",
			"Tree Species",
			mcplib.WithTemplateDescription("Growth and fire risk reference data for a tree species"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		s.handleSpeciesResource,
	)
}

func (s *Server) handleFireSeasonResource(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	return jsonResource(uriFireSeason, model.FireSeasonStatus(s.now()))
}

func (s *Server) handleClearanceTable(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	table := make(map[string]map[string]float64, len(regulation.Tiers()))
	for _, tier := range regulation.Tiers() {
		row := make(map[string]float64)
		for _, vc := range regulation.VoltageClasses() {
			if req, err := regulation.ClearanceRequirement(vc, tier); err == nil {
				row[vc] = req.RequiredClearanceFt
			}
		}
		table[tier] = row
	}
	return jsonResource(uriClearanceTable, map[string]any{
		"regulation":    regulation.Regulation,
		"clearances_ft": table,
	})
}

func (s *Server) handleSpeciesResource(_ context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uri := request.Params.URI
	name, err := parseSpeciesURI(uri)
	if err != nil {
		return nil, err
	}
	return jsonResource(uri, regulation.SpeciesInfo(name))
}

// parseSpeciesURI extracts the species name from vigil://species/{name}.
// The name may be URL-escaped.
func parseSpeciesURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, speciesURIPrefix)
	if !ok || strings.Contains(rest, "/") {
		return "", fmt.Errorf("mcp: invalid species URI: %s", uri)
	}
	name, err := url.PathUnescape(rest)
	if err != nil {
		return "", fmt.Errorf("mcp: invalid species URI: %s: %w", uri, err)
	}
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("mcp: invalid species URI: empty species name")
	}
	return name, nil
}

func jsonResource(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal %s: %w", uri, err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
