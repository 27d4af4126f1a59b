package copilot

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/storage"
)

const (
	assetEmoji       = "🔧"
	assetCatchphrase = "A healthy grid starts with healthy assets."

	replacementHealth = 50.0
	replacementRisk   = 0.75
	inspectionWindow  = 30 * 24 * time.Hour
)

type assetInspector struct {
	store Warehouse
	now   clock
}

func healthStatus(h float64) string {
	switch {
	case h < 40:
		return "🔴 Critical"
	case h < 60:
		return "🟠 Poor"
	case h < 80:
		return "🟡 Fair"
	default:
		return "🟢 Good"
	}
}

func (a assetInspector) overview(ctx context.Context, region string) (agentReply, error) {
	assets, err := a.store.ListAssets(ctx, model.AssetFilter{Region: region})
	if err != nil {
		return agentReply{}, fmt.Errorf("asset overview: %w", err)
	}

	var critical, poor, fair, good, highRisk, old int
	var ageSum, totalValue, atRiskValue, criticalValue float64
	type typeStats struct {
		name             string
		n                int
		health, ageTotal float64
	}
	byType := make(map[string]*typeStats)
	for _, as := range assets {
		switch h := as.HealthScore; {
		case h < 40:
			critical++
			criticalValue += as.ReplacementCost
		case h < 60:
			poor++
		case h < 80:
			fair++
		default:
			good++
		}
		if as.RiskScore > highRiskScore {
			highRisk++
			atRiskValue += as.ReplacementCost
		}
		if as.AssetAgeYears > 30 {
			old++
		}
		ageSum += as.AssetAgeYears
		totalValue += as.ReplacementCost

		ts, ok := byType[as.AssetType]
		if !ok {
			ts = &typeStats{name: as.AssetType}
			byType[as.AssetType] = ts
		}
		ts.n++
		ts.health += as.HealthScore
		ts.ageTotal += as.AssetAgeYears
	}
	total := len(assets)
	avgAge := 0.0
	if total > 0 {
		avgAge = ageSum / float64(total)
	}

	scope := "All Regions"
	if region != "" {
		scope = "Region: " + region
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Asset Health Overview - %s\n\n### Portfolio Summary\n", assetEmoji, scope)
	fmt.Fprintf(&b, "- **Total Assets**: %s\n", count(total))
	fmt.Fprintf(&b, "- **Average Age**: %.1f years\n", avgAge)
	fmt.Fprintf(&b, "- **Total Replacement Value**: $%.1fM\n", totalValue/1e6)
	b.WriteString("\n### Health Distribution\n| Condition | Count | % | Value at Risk |\n|-----------|-------|---|---------------|\n")
	fmt.Fprintf(&b, "| 🔴 Critical (<40) | %d | %.1f%% | $%.1fM |\n", critical, pct(critical, total), criticalValue/1e6)
	fmt.Fprintf(&b, "| 🟠 Poor (40-60) | %d | %.1f%% | - |\n", poor, pct(poor, total))
	fmt.Fprintf(&b, "| 🟡 Fair (60-80) | %d | %.1f%% | - |\n", fair, pct(fair, total))
	fmt.Fprintf(&b, "| 🟢 Good (80+) | %d | %.1f%% | - |\n", good, pct(good, total))
	b.WriteString("\n### Risk Summary\n")
	fmt.Fprintf(&b, "- **High Risk Assets** (score >70): %d\n", highRisk)
	fmt.Fprintf(&b, "- **Value at Risk**: $%.1fM\n", atRiskValue/1e6)
	fmt.Fprintf(&b, "- **Assets >30 years old**: %d\n", old)

	b.WriteString("\n### Asset Type Breakdown\n| Type | Count | Avg Health | Avg Age |\n|------|-------|------------|---------|\n")
	types := make([]*typeStats, 0, len(byType))
	for _, ts := range byType {
		types = append(types, ts)
	}
	slices.SortFunc(types, func(x, y *typeStats) int { return cmp.Or(cmp.Compare(y.n, x.n), cmp.Compare(x.name, y.name)) })
	for _, ts := range types {
		fmt.Fprintf(&b, "| %s | %d | %.1f | %.1f |\n", ts.name, ts.n, ts.health/float64(ts.n), ts.ageTotal/float64(ts.n))
	}
	fmt.Fprintf(&b, "\n> _%s_", assetCatchphrase)

	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"total_assets": total,
			"health_distribution": map[string]int{
				"critical": critical, "poor": poor, "fair": fair, "good": good,
			},
			"high_risk_count": highRisk,
			"avg_age":         avgAge,
			"total_value":     totalValue,
			"assets":          assets[:min(len(assets), 100)],
		},
		sources: []string{"asset", "ml.asset_health_prediction"},
	}, nil
}

func (a assetInspector) replacementPriorities(ctx context.Context) (agentReply, error) {
	assets, err := a.store.ListAssets(ctx, model.AssetFilter{})
	if err != nil {
		return agentReply{}, fmt.Errorf("replacement priorities: %w", err)
	}

	var candidates []model.Asset
	var totalCost float64
	for _, as := range assets {
		if as.HealthScore < replacementHealth || as.RiskScore > replacementRisk {
			candidates = append(candidates, as)
			totalCost += as.ReplacementCost
		}
	}
	slices.SortStableFunc(candidates, func(x, y model.Asset) int { return cmp.Compare(y.RiskScore, x.RiskScore) })

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Asset Replacement Priorities\n\n### Summary\n", assetEmoji)
	fmt.Fprintf(&b, "- **Assets Requiring Attention**: %d\n", len(candidates))
	fmt.Fprintf(&b, "- **Total Replacement Cost**: $%.1fM\n", totalCost/1e6)
	b.WriteString("\n### Top 15 Priority Replacements\n")
	b.WriteString("| Asset ID | Type | Age | Health | Risk | Est. Cost |\n|----------|------|-----|--------|------|-----------|\n")
	for _, as := range candidates[:min(len(candidates), 15)] {
		fmt.Fprintf(&b, "| %s | %s | %.0fy | %.0f | %.0f | $%.0fK |\n",
			as.AssetID, as.AssetType, as.AssetAgeYears, as.HealthScore, as.RiskScore*100, as.ReplacementCost/1e3)
	}
	b.WriteString(`
### Recommendation
Prioritize assets with:
1. Risk score > 80 in Tier 3 fire districts
2. Health score < 40 with high criticality
3. Age > 40 years with declining performance
`)

	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"replacement_candidates": candidates[:min(len(candidates), 50)],
			"total_cost":             totalCost,
		},
		sources: []string{"asset", "ml.asset_health_prediction"},
	}, nil
}

func (a assetInspector) detail(ctx context.Context, assetID string) (agentReply, error) {
	as, err := a.store.GetAsset(ctx, assetID)
	if errors.Is(err, storage.ErrNotFound) {
		return agentReply{
			narrative: fmt.Sprintf("Asset %s not found.", assetID),
			data:      map[string]any{},
			sources:   []string{},
		}, nil
	}
	if err != nil {
		return agentReply{}, fmt.Errorf("asset detail: %w", err)
	}
	orders, err := a.store.WorkOrdersForAsset(ctx, assetID)
	if err != nil {
		return agentReply{}, fmt.Errorf("asset detail: %w", err)
	}

	riskStatus := "🟢 Normal"
	if as.RiskScore > highRiskScore {
		riskStatus = "🔴 High"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Asset Detail: %s\n\n### Basic Information\n| Property | Value |\n|----------|-------|\n", assetEmoji, as.AssetID)
	fmt.Fprintf(&b, "| Type | %s |\n", as.AssetType)
	fmt.Fprintf(&b, "| Material | %s |\n", orDash(as.Material))
	fmt.Fprintf(&b, "| Region | %s |\n", as.Region)
	fmt.Fprintf(&b, "| Circuit | %s |\n", as.CircuitID)
	fmt.Fprintf(&b, "| Install Date | %s |\n", dateOrDash(as.InstallationDate))
	fmt.Fprintf(&b, "| Age | %.0f years |\n", as.AssetAgeYears)
	b.WriteString("\n### Health & Risk\n| Metric | Value | Status |\n|--------|-------|--------|\n")
	fmt.Fprintf(&b, "| Health Score | %.0f/100 | %s |\n", as.HealthScore, healthStatus(as.HealthScore))
	fmt.Fprintf(&b, "| Risk Score | %.0f/100 | %s |\n", as.RiskScore*100, riskStatus)
	fmt.Fprintf(&b, "| Fire District | %s | - |\n", as.FireThreatDistrict)
	fmt.Fprintf(&b, "| Criticality | %.1fx | - |\n", as.CriticalityFactor)
	b.WriteString("\n### Replacement\n")
	fmt.Fprintf(&b, "- **Estimated Cost**: %s\n", money(as.ReplacementCost))
	fmt.Fprintf(&b, "- **Last Inspection**: %s\n", dateOrDash(as.LastInspectionDate))
	fmt.Fprintf(&b, "- **Next Due**: %s\n", dateOrDash(as.NextInspectionDue))
	b.WriteString("\n### Work Order History\n")
	if len(orders) == 0 {
		b.WriteString("No recent work orders.\n")
	}
	for _, wo := range orders[:min(len(orders), 5)] {
		fmt.Fprintf(&b, "- %s: %s - %s\n", wo.WorkOrderID, wo.WorkOrderType, wo.Status)
	}

	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"asset":       as,
			"work_orders": orders,
		},
		sources: []string{"asset", "work_order", "risk_assessment"},
	}, nil
}

func (a assetInspector) inspectionSchedule(ctx context.Context) (agentReply, error) {
	assets, err := a.store.ListAssets(ctx, model.AssetFilter{})
	if err != nil {
		return agentReply{}, fmt.Errorf("inspection schedule: %w", err)
	}

	now := a.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	horizon := today.Add(inspectionWindow)

	var overdue, upcoming []model.Asset
	for _, as := range assets {
		due := as.NextInspectionDue
		if due == nil {
			continue
		}
		if !due.After(horizon) {
			upcoming = append(upcoming, as)
		}
		if due.Before(today) {
			overdue = append(overdue, as)
		}
	}
	slices.SortStableFunc(overdue, func(x, y model.Asset) int { return x.NextInspectionDue.Compare(*y.NextInspectionDue) })

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Inspection Schedule\n\n### Summary\n", assetEmoji)
	fmt.Fprintf(&b, "- **Overdue Inspections**: %d ⚠️\n", len(overdue))
	fmt.Fprintf(&b, "- **Due in Next 30 Days**: %d\n", len(upcoming))
	b.WriteString("\n### Overdue - Immediate Attention Required\n")
	b.WriteString("| Asset ID | Type | Last Inspection | Days Overdue |\n|----------|------|-----------------|--------------|\n")
	for _, as := range overdue[:min(len(overdue), 10)] {
		daysOverdue := int(today.Sub(*as.NextInspectionDue).Hours() / 24)
		fmt.Fprintf(&b, "| %s | %s | %s | %d |\n", as.AssetID, as.AssetType, dateOrDash(as.LastInspectionDate), daysOverdue)
	}

	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"overdue":  overdue[:min(len(overdue), 50)],
			"upcoming": upcoming[:min(len(upcoming), 50)],
		},
		sources: []string{"asset"},
	}, nil
}
