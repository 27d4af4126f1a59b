package mcp

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("span-inspection",
			mcplib.WithPromptDescription("Walk through a GO95 clearance check for a measured span"),
			mcplib.WithArgument("voltage_class",
				mcplib.ArgumentDescription("Line voltage class, e.g. 12KV"),
				mcplib.RequiredArgument(),
			),
			mcplib.WithArgument("fire_district",
				mcplib.ArgumentDescription("Fire threat tier, e.g. TIER_3"),
				mcplib.RequiredArgument(),
			),
			mcplib.WithArgument("species",
				mcplib.ArgumentDescription("Dominant tree species near the span, if known"),
			),
		),
		s.handleSpanInspectionPrompt,
	)

	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("fire-season-briefing",
			mcplib.WithPromptDescription("Prepare a pre-fire-season briefing for a region"),
			mcplib.WithArgument("region",
				mcplib.ArgumentDescription("Region, e.g. NORCAL"),
				mcplib.RequiredArgument(),
			),
		),
		s.handleBriefingPrompt,
	)
}

func (s *Server) handleSpanInspectionPrompt(_ context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	vc := request.Params.Arguments["voltage_class"]
	tier := request.Params.Arguments["fire_district"]
	if vc == "" || tier == "" {
		return nil, fmt.Errorf("voltage_class and fire_district arguments are required")
	}
	speciesStep := "3. If a species is visible, CALL species_info to estimate how fast the gap will close."
	if sp := request.Params.Arguments["species"]; sp != "" {
		speciesStep = fmt.Sprintf(`3. CALL species_info with species="%s" and estimate how many days of growth
   remain before the clearance falls below the minimum.`, sp)
	}

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("GO95 clearance check for a %s span in %s", vc, tier),
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Check a %[1]s span in %[2]s against GO95 Rule 35:

1. CALL clearance_requirement with voltage_class="%[1]s" and fire_district="%[2]s".

2. Ask for the measured clearance, then CALL compliance_gap with the measurement.

%[3]s

4. CALL fire_season. If urgency is CRITICAL or HIGH, say so up front.

Report the required clearance, the deficit, the urgency and the recommended
action. Cite the regulation.`, vc, tier, speciesStep),
				},
			},
		},
	}, nil
}

func (s *Server) handleBriefingPrompt(_ context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	region := request.Params.Arguments["region"]
	if region == "" {
		return nil, fmt.Errorf("region argument is required")
	}

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("Pre-fire-season briefing for %s", region),
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Prepare a fire season briefing for %[1]s:

1. CALL fire_season for the countdown.
2. CALL ask_vigil with region="%[1]s" and the question "What are the highest fire risk assets?".
3. CALL ask_vigil with region="%[1]s" and the question "Which vegetation encroachments are out of compliance?".
4. CALL ask_vigil with region="%[1]s" and the question "Which circuits are PSPS candidates?".

Summarize in five bullets or fewer: days remaining, top risks, compliance
gaps, PSPS exposure and the first three work orders to schedule.`, region),
				},
			},
		},
	}, nil
}
