package copilot

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/vigil-grid/vigil/internal/model"
)

const (
	fireEmoji       = "🔥"
	fireCatchphrase = "Fire season waits for no one."

	// highRiskScore is the composite risk score (0..1) above which an
	// asset counts as high risk.
	highRiskScore = 0.7
)

// fireRiskAnalyst covers fire district exposure, ignition predictions,
// PSPS circuits and fire weather.
type fireRiskAnalyst struct {
	store Warehouse
	now   clock
}

func (f fireRiskAnalyst) overview(ctx context.Context) (agentReply, error) {
	countdown := model.FireSeasonCountdown(f.now())
	days := countdown.DaysRemaining

	assets, err := f.store.ListAssets(ctx, model.AssetFilter{})
	if err != nil {
		return agentReply{}, fmt.Errorf("fire risk overview: %w", err)
	}
	encroachments, err := f.store.ListVegetation(ctx, "")
	if err != nil {
		return agentReply{}, fmt.Errorf("fire risk overview: %w", err)
	}

	byTier := make(map[string][]model.Asset)
	for _, a := range assets {
		byTier[a.FireThreatDistrict] = append(byTier[a.FireThreatDistrict], a)
	}
	highRisk := func(as []model.Asset) []model.Asset {
		var out []model.Asset
		for _, a := range as {
			if a.RiskScore > highRiskScore {
				out = append(out, a)
			}
		}
		return out
	}
	tier3, tier2, tier1 := byTier[model.TierThree], byTier[model.TierTwo], byTier[model.TierOne]
	tier3High := highRisk(tier3)

	var tier3Veg, tier3VegCompliant, tier3VegNonCompliant int
	for _, e := range encroachments {
		if e.FireThreatDistrict != model.TierThree {
			continue
		}
		tier3Veg++
		switch {
		case e.ComplianceStatus == model.ComplianceCompliant:
			tier3VegCompliant++
		case e.NonCompliant():
			tier3VegNonCompliant++
		}
	}
	readiness := 100.0
	if tier3Veg > 0 {
		readiness = pct(tier3VegCompliant, tier3Veg)
	}

	light := "🟡"
	switch {
	case days < 30:
		light = "🔴"
	case days < 60:
		light = "🟠"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Fire Risk Dashboard\n\n", fireEmoji)
	fmt.Fprintf(&b, "### %s Fire Season Countdown\n# **%d DAYS** until June 1\n", light, days)
	if days < 30 {
		b.WriteString("**⚠️ CRITICAL: Accelerate all Tier 3 work immediately!**\n")
	}
	b.WriteString("\n### Fire Threat District Summary\n")
	b.WriteString("| District | Assets | High Risk | Non-Compliant Veg |\n|----------|--------|-----------|-------------------|\n")
	fmt.Fprintf(&b, "| 🔴 Tier 3 (Extreme) | %d | %d | %d |\n", len(tier3), len(tier3High), tier3VegNonCompliant)
	fmt.Fprintf(&b, "| 🟠 Tier 2 (Elevated) | %d | %d | - |\n", len(tier2), len(highRisk(tier2)))
	fmt.Fprintf(&b, "| 🟡 Tier 1 (Moderate) | %d | - | - |\n", len(tier1))
	fmt.Fprintf(&b, "| ⚪ Non-HFTD | %d | - | - |\n", len(assets)-len(tier3)-len(tier2)-len(tier1))

	b.WriteString("\n### Tier 3 Immediate Action Required\n")
	slices.SortStableFunc(tier3High, func(a, b model.Asset) int { return cmp.Compare(b.RiskScore, a.RiskScore) })
	critical := tier3High[:min(len(tier3High), 10)]
	if len(critical) == 0 {
		b.WriteString("_No critical Tier 3 items requiring immediate action._\n")
	}
	for _, a := range critical {
		fmt.Fprintf(&b, "- **%s** (%s): Risk %.0f, Health %.0f\n", a.AssetID, a.AssetType, a.RiskScore*100, a.HealthScore)
	}

	b.WriteString("\n### Fire Season Readiness\n| Metric | Value | Target |\n|--------|-------|--------|\n")
	fmt.Fprintf(&b, "| Tier 3 Vegetation Compliance | %.1f%% | 100%% |\n", readiness)
	fmt.Fprintf(&b, "| Tier 3 High-Risk Assets Mitigated | %d/%d | 100%% |\n", len(tier3)-len(tier3High), len(tier3))
	fmt.Fprintf(&b, "| Days Remaining | %d | - |\n", days)
	fmt.Fprintf(&b, "\n> _%s_\n", fireCatchphrase)

	countdown.Urgency = model.FireRiskUrgency(days)
	countdown.Status = ""
	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"fire_season":          countdown,
			"tier_3_count":         len(tier3),
			"tier_3_high_risk":     len(tier3High),
			"tier_3_non_compliant": tier3VegNonCompliant,
			"readiness_score":      readiness,
			"critical_assets":      critical,
		},
		sources: []string{"asset", "vegetation_encroachment", "ml.ignition_risk_prediction"},
	}, nil
}

func (f fireRiskAnalyst) ignitionRisk(ctx context.Context) (agentReply, error) {
	preds, err := f.store.IgnitionRiskPredictions(ctx, 500)
	if err != nil {
		return agentReply{}, fmt.Errorf("ignition risk: %w", err)
	}

	byLevel := make(map[string][]model.IgnitionRiskPrediction)
	for _, p := range preds {
		byLevel[p.RiskLevel] = append(byLevel[p.RiskLevel], p)
	}
	high, medium := byLevel[model.RiskHigh], byLevel[model.RiskMedium]

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Ignition Risk Predictions\n\n", fireEmoji)
	b.WriteString("### Risk Distribution\n| Risk Level | Count | Immediate Action |\n|------------|-------|------------------|\n")
	fmt.Fprintf(&b, "| 🔴 High | %d | Yes - 7 Days |\n", len(high))
	fmt.Fprintf(&b, "| 🟡 Medium | %d | Monitor |\n", len(medium))
	fmt.Fprintf(&b, "| 🟢 Low | %d | Routine |\n", len(preds)-len(high)-len(medium))
	b.WriteString("\n### High Risk Assets (Immediate Action Required)\n")
	for _, p := range high[:min(len(high), 10)] {
		fmt.Fprintf(&b, "- **%s**: %s - Predicted risk %.0f%%\n",
			p.AssetID, orDash(p.FireThreatDistrict), p.PredictedIgnitionRisk*100)
	}
	if fi, ok := model.FeatureImportanceFor("ignition_risk"); ok {
		b.WriteString("\n### Key Risk Factors\n")
		for i, feat := range fi.Features {
			fmt.Fprintf(&b, "%d. **%s** (%.0f%%)\n", i+1, feat.Name, feat.Importance*100)
		}
	}

	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"predictions": preds[:min(len(preds), 100)],
			"high_count":  len(high),
		},
		sources: []string{"ml.ignition_risk_prediction", "asset"},
	}, nil
}

func (f fireRiskAnalyst) pspsCircuits(ctx context.Context) (agentReply, error) {
	circuits, err := f.store.PSPSCircuits(ctx, []string{model.TierThree, model.TierTwo}, 200)
	if err != nil {
		return agentReply{}, fmt.Errorf("psps circuits: %w", err)
	}

	var customers, tier3 int
	for _, c := range circuits {
		customers += c.TotalCustomers
		if c.FireThreatDistrict == model.TierThree {
			tier3++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s PSPS Circuit Analysis\n\n### Summary\n", fireEmoji)
	fmt.Fprintf(&b, "- **Total Circuits in Fire Districts**: %d\n", len(circuits))
	fmt.Fprintf(&b, "- **Tier 3 Circuits**: %d\n", tier3)
	fmt.Fprintf(&b, "- **Customers Potentially Affected**: %s\n", count(customers))
	b.WriteString("\n### High-Priority PSPS Circuits\n")
	b.WriteString("| Circuit | District | Customers | Critical Facilities |\n|---------|----------|-----------|---------------------|\n")
	for _, c := range circuits[:min(len(circuits), 15)] {
		fmt.Fprintf(&b, "| %s | %s | %s | %d |\n", c.CircuitName, c.FireThreatDistrict, count(c.TotalCustomers), c.CriticalFacilities)
	}

	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"psps_circuits":   circuits[:min(len(circuits), 50)],
			"total_customers": customers,
		},
		sources: []string{"circuit"},
	}, nil
}

func (f fireRiskAnalyst) weatherRisk(ctx context.Context) (agentReply, error) {
	forecasts, err := f.store.WeatherForecasts(ctx)
	if err != nil {
		return agentReply{}, fmt.Errorf("weather risk: %w", err)
	}

	type regionWeather struct {
		maxWind, minHumidity float64
		redFlag              bool
	}
	var regions []string
	byRegion := make(map[string]*regionWeather)
	var redFlag, highWind, lowHumidity int
	for _, w := range forecasts {
		if w.RedFlagWarning {
			redFlag++
		}
		if w.WindSpeedMPH > 25 {
			highWind++
		}
		if w.HumidityPct < 20 {
			lowHumidity++
		}
		r, ok := byRegion[w.Region]
		if !ok {
			r = &regionWeather{minHumidity: 100}
			byRegion[w.Region] = r
			regions = append(regions, w.Region)
		}
		r.maxWind = max(r.maxWind, w.WindSpeedMPH)
		r.minHumidity = min(r.minHumidity, w.HumidityPct)
		r.redFlag = r.redFlag || w.RedFlagWarning
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Weather Risk Conditions\n\n### Current Alerts\n", fireEmoji)
	fmt.Fprintf(&b, "- **Red Flag Warnings**: %d locations\n", redFlag)
	fmt.Fprintf(&b, "- **High Wind (>25 mph)**: %d locations\n", highWind)
	fmt.Fprintf(&b, "- **Low Humidity (<20%%)**: %d locations\n", lowHumidity)
	b.WriteString("\n### Regional Forecast Summary\n")
	b.WriteString("| Region | Wind (mph) | Humidity | Fire Weather | Alert |\n|--------|------------|----------|--------------|-------|\n")
	for _, name := range regions {
		r := byRegion[name]
		weather, alert := "🟢 Normal", "-"
		switch {
		case r.redFlag:
			weather, alert = "🔴 Extreme", "⚠️ RED FLAG"
		case r.maxWind > 25 || r.minHumidity < 20:
			weather = "🟠 High"
		}
		fmt.Fprintf(&b, "| %s | %.0f | %.0f%% | %s | %s |\n", name, r.maxWind, r.minHumidity, weather, alert)
	}

	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"forecasts":       forecasts[:min(len(forecasts), 50)],
			"red_flag_count":  redFlag,
			"high_wind_count": highWind,
		},
		sources: []string{"weather_forecast"},
	}, nil
}
