package copilot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/storage"
)

const (
	vegetationEmoji       = "🌲"
	vegetationCatchphrase = "Every clearance deficit is a potential ignition source."
)

// vegetationGuardian covers GO95 clearance compliance, trim planning and
// vegetation work orders.
type vegetationGuardian struct {
	store Warehouse
	now   clock
}

func (g vegetationGuardian) overview(ctx context.Context, region string) (agentReply, error) {
	items, err := g.store.ListVegetation(ctx, region)
	if err != nil {
		return agentReply{}, fmt.Errorf("vegetation overview: %w", err)
	}

	var nonCompliant, critical, atRisk, tier3, tier3NonCompliant int
	for _, e := range items {
		switch e.ComplianceStatus {
		case model.ComplianceCritical:
			critical++
			nonCompliant++
		case model.ComplianceNonCompliant:
			nonCompliant++
		case model.ComplianceAtRisk:
			atRisk++
		}
		if e.FireThreatDistrict == model.TierThree {
			tier3++
			if e.NonCompliant() {
				tier3NonCompliant++
			}
		}
	}
	total := len(items)
	compliant := total - nonCompliant - atRisk
	days := model.FireSeasonCountdown(g.now()).DaysRemaining

	scope := "All Regions"
	if region != "" {
		scope = "Region: " + region
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Vegetation Management Overview - %s\n\n", vegetationEmoji, scope)
	fmt.Fprintf(&b, "### 🔥 Fire Season Alert\n**%d days** until fire season (June 1)\n", days)
	if days < 60 {
		b.WriteString("⚠️ **URGENT**: Prioritize Tier 3 work immediately!\n")
	}
	b.WriteString("\n### Compliance Status\n| Status | Count | % of Total |\n|--------|-------|------------|\n")
	fmt.Fprintf(&b, "| 🔴 Critical | %d | %.1f%% |\n", critical, pct(critical, total))
	fmt.Fprintf(&b, "| 🟠 Non-Compliant | %d | %.1f%% |\n", nonCompliant-critical, pct(nonCompliant-critical, total))
	fmt.Fprintf(&b, "| 🟡 At Risk | %d | %.1f%% |\n", atRisk, pct(atRisk, total))
	fmt.Fprintf(&b, "| 🟢 Compliant | %d | %.1f%% |\n", compliant, pct(compliant, total))
	b.WriteString("\n### Fire Threat District Analysis\n")
	fmt.Fprintf(&b, "- **Tier 3 (Extreme)**: %d encroachments requiring priority attention\n", tier3)
	fmt.Fprintf(&b, "- Non-compliant in Tier 3: %d\n", tier3NonCompliant)
	fmt.Fprintf(&b, "\n> _%s_\n", vegetationCatchphrase)

	var urgent []model.Encroachment
	for _, e := range items {
		if e.ComplianceStatus == model.ComplianceCritical {
			urgent = append(urgent, e)
		}
	}
	if len(urgent) > 0 {
		b.WriteString("\n### ⚠️ Immediate Action Required\n")
		for _, e := range urgent[:min(len(urgent), 5)] {
			fmt.Fprintf(&b, "- **%s**: %s - %.1fft clearance (requires %.1fft)\n",
				e.AssetID, e.Species, e.CurrentClearanceFt, e.RequiredClearanceFt)
		}
	}

	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"total_encroachments": total,
			"non_compliant":       nonCompliant,
			"critical":            critical,
			"tier_3_count":        tier3,
			"days_to_fire_season": days,
			"encroachments":       items[:min(len(items), 50)],
		},
		sources: []string{"vegetation_encroachment", "asset"},
	}, nil
}

func (g vegetationGuardian) complianceSummary(ctx context.Context) (agentReply, error) {
	rows, err := g.store.RegionCompliance(ctx)
	if err != nil {
		return agentReply{}, fmt.Errorf("compliance summary: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s CPUC GO95 Compliance Summary\n\n", vegetationEmoji)
	b.WriteString("### Regional Compliance Status\n")
	b.WriteString("| Region | Total | Compliant | Non-Compliant | Compliance % |\n")
	b.WriteString("|--------|-------|-----------|---------------|--------------|\n")

	var compliant, total int
	for _, r := range rows {
		p := pct(r.Compliant, r.Total)
		fmt.Fprintf(&b, "| %s %s | %d | %d | %d | %.1f%% |\n",
			complianceLight(p), r.Region, r.Total, r.Compliant, r.NonCompliant, p)
		compliant += r.Compliant
		total += r.Total
	}
	overall := pct(compliant, total)

	fmt.Fprintf(&b, "\n### Overall Portfolio: **%.1f%%** Compliant\n", overall)
	b.WriteString(`
### GO95 Requirements Reference
- **Tier 3 (Extreme Fire)**: 12ft radial clearance minimum
- **Tier 2 (Elevated Fire)**: 10ft radial clearance minimum
- **Tier 1 / Non-HFTD**: 4-6ft depending on voltage class

> Per CPUC General Order 95, Rule 35, utilities must maintain adequate clearances
> to prevent contact with vegetation that could cause ignition.
`)

	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"compliance_by_region":   rows,
			"overall_compliance_pct": overall,
		},
		sources: []string{"vegetation_encroachment", "CPUC GO95 Rule 35"},
	}, nil
}

func complianceLight(p float64) string {
	switch {
	case p >= 95:
		return "🟢"
	case p >= 85:
		return "🟡"
	default:
		return "🔴"
	}
}

var bandLabels = map[string]struct{ icon, label, sla string }{
	model.BandEmergency: {"🔴", "P1 Emergency", "Same Day"},
	model.BandUrgent:    {"🟠", "P2 Urgent", "7 Days"},
	model.BandStandard:  {"🟡", "P3 Standard", "30 Days"},
	model.BandRoutine:   {"🟢", "P4 Routine", "90 Days"},
}

func (g vegetationGuardian) trimPriorities(ctx context.Context) (agentReply, error) {
	items, err := g.store.TrimPriorities(ctx, 200)
	if err != nil {
		return agentReply{}, fmt.Errorf("trim priorities: %w", err)
	}

	byBand := make(map[string]int)
	var totalCost, p1Cost float64
	for _, e := range items {
		band := e.Band()
		byBand[band]++
		totalCost += e.EstimatedTrimCost
		if band == model.BandEmergency {
			p1Cost += e.EstimatedTrimCost
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Vegetation Trim Priorities\n\n", vegetationEmoji)
	b.WriteString("### Priority Breakdown\n| Priority | Count | Est. Cost | Target SLA |\n|----------|-------|-----------|------------|\n")
	for _, band := range model.Bands {
		l := bandLabels[band]
		cost := "-"
		if band == model.BandEmergency {
			cost = money(p1Cost)
		}
		fmt.Fprintf(&b, "| %s %s | %d | %s | %s |\n", l.icon, l.label, byBand[band], cost, l.sla)
	}
	fmt.Fprintf(&b, "\n**Total Estimated Cost**: %s\n\n### Top Priority Work Items\n", money(totalCost))
	for _, e := range items[:min(len(items), 10)] {
		contact := "unknown days to contact"
		icon := "🟡"
		if e.DaysToContact != nil {
			d := *e.DaysToContact
			contact = fmt.Sprintf("%d days to contact", d)
			switch {
			case d < 30:
				icon = "🔴"
			case d < 90:
				icon = "🟠"
			}
		}
		fmt.Fprintf(&b, "- %s **%s** (%s): %s, %s\n", icon, e.AssetID, e.Species, contact, e.FireThreatDistrict)
	}

	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"priorities": items[:min(len(items), 50)],
			"total_cost": totalCost,
			"p1_count":   byBand[model.BandEmergency],
		},
		sources: []string{"vegetation_encroachment", "ml.vegetation_growth_prediction"},
	}, nil
}

func (g vegetationGuardian) workOrderBacklog(ctx context.Context) (agentReply, error) {
	orders, err := g.store.OpenWorkOrders(ctx, 500)
	if err != nil {
		return agentReply{}, fmt.Errorf("work order backlog: %w", err)
	}

	type tally struct {
		n     int
		hours float64
		cost  float64
	}
	byBand := make(map[string]*tally, len(model.Bands))
	for _, band := range model.Bands {
		byBand[band] = &tally{}
	}
	var totalHours, totalCost float64
	for _, w := range orders {
		t := byBand[w.Band()]
		t.n++
		t.hours += w.EstimatedHours
		t.cost += w.EstimatedCost
		totalHours += w.EstimatedHours
		totalCost += w.EstimatedCost
	}

	var b strings.Builder
	b.WriteString("## 📋 Work Order Backlog\n\n### Summary by Priority\n")
	b.WriteString("| Priority | Count | Est. Hours | Est. Cost |\n|----------|-------|------------|-----------|\n")
	for _, band := range model.Bands {
		t := byBand[band]
		fmt.Fprintf(&b, "| %s %s | %d | %.0f | %s |\n",
			bandLabels[band].icon, strings.ReplaceAll(band, "_", " "), t.n, t.hours, money(t.cost))
	}
	fmt.Fprintf(&b, "\n**Total**: %d work orders | %.0f hours | %s\n\n### Vegetation Work Orders\n",
		len(orders), totalHours, money(totalCost))
	shown := 0
	for _, w := range orders {
		if w.WorkOrderType != model.DefaultWorkOrderType || shown == 10 {
			continue
		}
		fmt.Fprintf(&b, "- **%s**: %s - %s - %s\n", w.WorkOrderID, w.AssetID, w.Priority, money(w.EstimatedCost))
		shown++
	}
	if shown == 0 {
		b.WriteString("_No open vegetation work orders._\n")
	}

	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"work_orders": orders[:min(len(orders), 100)],
			"total_count": len(orders),
			"total_hours": totalHours,
			"total_cost":  totalCost,
		},
		sources: []string{"work_order"},
	}, nil
}

// Draft defaults when the asset has no recorded encroachment.
const (
	draftPriority = model.DefaultWorkOrderPrio
	draftCost     = 500.0
)

func (g vegetationGuardian) prepareWorkOrder(ctx context.Context, assetID string) (agentReply, error) {
	if assetID == "" {
		return agentReply{
			narrative: "Please specify an asset ID to create a work order. For example: 'Issue work order for AST-00123'",
			data:      map[string]any{},
			sources:   []string{},
		}, nil
	}

	asset, err := g.store.GetAsset(ctx, assetID)
	if errors.Is(err, storage.ErrNotFound) {
		return agentReply{
			narrative: fmt.Sprintf("Asset %s not found.", assetID),
			data:      map[string]any{},
			sources:   []string{},
		}, nil
	}
	if err != nil {
		return agentReply{}, fmt.Errorf("prepare work order: %w", err)
	}
	encroachments, err := g.store.EncroachmentsForAsset(ctx, assetID)
	if err != nil {
		return agentReply{}, fmt.Errorf("prepare work order: %w", err)
	}

	draft := model.CreateWorkOrderRequest{
		AssetID:       assetID,
		WorkOrderType: model.DefaultWorkOrderType,
		Priority:      draftPriority,
		EstimatedCost: draftCost,
		Description:   "Vegetation clearance trim",
	}
	species, current, required, contact := "N/A", "N/A", "N/A", "N/A"
	var worst *model.Encroachment
	if len(encroachments) > 0 {
		worst = &encroachments[0]
		species = worst.Species
		current = fmt.Sprintf("%.1f", worst.CurrentClearanceFt)
		required = fmt.Sprintf("%.1f", worst.RequiredClearanceFt)
		if worst.DaysToContact != nil {
			contact = fmt.Sprint(*worst.DaysToContact)
		}
		draft.Priority = trimToWorkOrderPriority(worst.TrimPriority)
		if worst.EstimatedTrimCost > 0 {
			draft.EstimatedCost = worst.EstimatedTrimCost
		}
		draft.Description = fmt.Sprintf("Trim %s to restore %.1fft clearance", strings.ToLower(worst.Species), worst.RequiredClearanceFt)
	}

	var b strings.Builder
	b.WriteString("## 📝 Work Order Prepared\n\n### Asset Details\n")
	fmt.Fprintf(&b, "- **Asset ID**: %s\n- **Type**: %s\n- **Region**: %s\n- **Fire District**: %s\n",
		assetID, asset.AssetType, asset.Region, asset.FireThreatDistrict)
	b.WriteString("\n### Encroachment Details\n")
	fmt.Fprintf(&b, "- **Species**: %s\n- **Current Clearance**: %s ft\n- **Required Clearance**: %s ft\n- **Days to Contact**: %s\n",
		species, current, required, contact)
	b.WriteString("\n### Recommended Work Order\n")
	fmt.Fprintf(&b, "- **Type**: %s\n- **Priority**: %s\n- **Estimated Cost**: %s\n",
		draft.WorkOrderType, draft.Priority, money(draft.EstimatedCost))
	b.WriteString("\nClick \"Confirm\" to issue this work order.\n")

	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"asset":            asset,
			"encroachment":     worst,
			"work_order_draft": draft,
		},
		sources:        []string{"asset", "vegetation_encroachment"},
		actionRequired: "confirm_work_order",
	}, nil
}

// trimToWorkOrderPriority maps an encroachment trim priority onto the work
// order priority vocabulary.
func trimToWorkOrderPriority(trim string) string {
	switch trim {
	case model.RiskCritical:
		return "EMERGENCY"
	case model.RiskHigh:
		return "URGENT"
	case model.RiskMedium:
		return "MEDIUM"
	case model.RiskLow:
		return "LOW"
	default:
		return draftPriority
	}
}
