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
	discoveryEmoji       = "🔍"
	discoveryCatchphrase = "The data sees what inspectors can't."

	undergroundCable  = "CABLE_UNDERGROUND"
	rainCorrelationAt = 0.5
)

// waterTreeingDetective finds underground cables whose AMI voltage dips
// track rainfall, the signature of moisture in XLPE insulation.
type waterTreeingDetective struct {
	store Warehouse
}

func (d waterTreeingDetective) waterTreeingPattern(ctx context.Context) (agentReply, error) {
	cables, err := d.store.WaterTreeingCandidates(ctx)
	if err != nil {
		return agentReply{}, fmt.Errorf("water treeing pattern: %w", err)
	}
	anomalies, err := d.store.AMIAnomalies(ctx, 100)
	if err != nil {
		return agentReply{}, fmt.Errorf("water treeing pattern: %w", err)
	}

	var affected, customers int
	var cost float64
	type group struct {
		material, moisture string
		n                  int
		age, corr          float64
	}
	var groups []*group
	byKey := make(map[[2]string]*group)
	for _, c := range cables {
		if c.RainCorrelationScore > rainCorrelationAt {
			affected++
			customers += c.TotalCustomers
			cost += c.ReplacementCost
		}
		key := [2]string{cmp.Or(c.Material, "Unknown"), cmp.Or(c.MoistureExposure, "Unknown")}
		g, ok := byKey[key]
		if !ok {
			g = &group{material: key[0], moisture: key[1]}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.n++
		g.age += c.AssetAgeYears
		g.corr += c.RainCorrelationScore
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s HIDDEN DISCOVERY: Water Treeing Detection\n\n", discoveryEmoji)
	fmt.Fprintf(&b, "### ⚡ What We Found\n**%d underground cables** are showing voltage anomalies that correlate with rainfall.\n", affected)
	b.WriteString("This pattern indicates **Water Treeing** - moisture-induced insulation degradation that is\n**invisible to visual inspection**.\n\n")
	b.WriteString("### Why This Matters\n- These cables will **fail catastrophically** within 6-24 months\n")
	fmt.Fprintf(&b, "- **%s customers** are at risk of extended outages\n", count(customers))
	fmt.Fprintf(&b, "- Estimated replacement cost: **$%.1fM**\n", cost/1e6)
	b.WriteString("- Traditional inspections **cannot detect this** - only data correlation can\n")

	b.WriteString("\n### The Pattern\n| Material | Moisture | Avg Age | Cables | Rain Correlation |\n|----------|----------|---------|--------|------------------|\n")
	slices.SortStableFunc(groups, func(x, y *group) int { return cmp.Compare(y.n, x.n) })
	for _, g := range groups {
		indicator := "🟡"
		if g.material == "XLPE" && g.moisture == "HIGH" {
			indicator = "🔴"
		}
		fmt.Fprintf(&b, "| %s %s | %s | %.0fy | %d | %.2f |\n",
			indicator, g.material, g.moisture, g.age/float64(g.n), g.n, g.corr/float64(g.n))
	}

	b.WriteString(`
### How We Detected This
1. **AMI Data Analysis**: Analyzed voltage readings from smart meters
2. **Weather Correlation**: Correlated voltage dips with rainfall events
3. **ML Pattern Detection**: XGBoost model trained on known failure cases

### Key Risk Indicators
- Cable material: **XLPE** (Cross-linked Polyethylene)
- Age: **15-25 years** (peak failure window)
- Moisture exposure: **HIGH**
- Rain correlation score: **>0.5**

### Top 10 At-Risk Cables
| Asset ID | Age | Rain Corr | Failure Prob | Customers |
|----------|-----|-----------|--------------|-----------|
`)
	top := slices.Clone(cables)
	slices.SortStableFunc(top, func(x, y model.WaterTreeingCandidate) int {
		return cmp.Compare(y.FailureProbability, x.FailureProbability)
	})
	for _, c := range top[:min(len(top), 10)] {
		fmt.Fprintf(&b, "| %s | %.0fy | %.2f | %.0f%% | %s |\n",
			c.AssetID, c.AssetAgeYears, c.RainCorrelationScore, c.FailureProbability*100, count(c.TotalCustomers))
	}

	fmt.Fprintf(&b, `
### Recommendation
**Immediate Action Required:**
1. Schedule diagnostic testing for all %d flagged cables
2. Prioritize replacement of cables with failure probability >70%%
3. Install additional monitoring on high-risk segments
4. Budget $%.1fM for proactive replacement program

> _%s_
`, affected, cost/1e6, discoveryCatchphrase)

	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"affected_cables":         affected,
			"total_customers_at_risk": customers,
			"total_replacement_cost":  cost,
			"cables":                  cables[:min(len(cables), 50)],
			"ami_anomalies":           anomalies,
			"discovery_type":          "water_treeing",
		},
		sources: []string{"ami_reading", "ml.cable_failure_prediction", "asset"},
	}, nil
}

var xlpeAgeBuckets = []struct {
	label  string
	lo, hi float64
	risk   string
}{
	{"0-10 years", -1, 10, "🟢 Low"},
	{"10-15 years", 10, 15, "🟡 Emerging"},
	{"15-20 years", 15, 20, "🟠 Moderate"},
	{"20-25 years", 20, 25, "🔴 High"},
	{"25+ years", 25, 1e9, "🔴 Critical"},
}

func (d waterTreeingDetective) cableHealth(ctx context.Context) (agentReply, error) {
	cables, err := d.store.ListAssets(ctx, model.AssetFilter{AssetType: undergroundCable})
	if err != nil {
		return agentReply{}, fmt.Errorf("cable health: %w", err)
	}
	preds, err := d.store.CableFailurePredictions(ctx, 500)
	if err != nil {
		return agentReply{}, fmt.Errorf("cable health: %w", err)
	}

	var xlpe, highMoisture int
	ages := make([]int, len(xlpeAgeBuckets))
	for _, c := range cables {
		if c.MoistureExposure == "HIGH" {
			highMoisture++
		}
		if c.Material != "XLPE" {
			continue
		}
		xlpe++
		for i, bk := range xlpeAgeBuckets {
			if c.AssetAgeYears > bk.lo && c.AssetAgeYears <= bk.hi {
				ages[i]++
				break
			}
		}
	}
	tiers := make(map[string]int)
	for _, p := range preds {
		tiers[p.RiskLevel]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Underground Cable Health Analysis\n\n### Cable Inventory\n", discoveryEmoji)
	fmt.Fprintf(&b, "- **Total Underground Cables**: %d\n", len(cables))
	fmt.Fprintf(&b, "- **XLPE Insulation**: %d (%.0f%%)\n", xlpe, pct(xlpe, len(cables)))
	fmt.Fprintf(&b, "- **High Moisture Exposure**: %d (%.0f%%)\n", highMoisture, pct(highMoisture, len(cables)))
	b.WriteString("\n### Water Treeing Risk Tiers\n| Tier | Count | Action Required |\n|------|-------|-----------------|\n")
	fmt.Fprintf(&b, "| 🔴 Critical | %d | Immediate Replacement |\n", tiers[model.RiskCritical])
	fmt.Fprintf(&b, "| 🟠 High | %d | Schedule Replacement |\n", tiers[model.RiskHigh])
	fmt.Fprintf(&b, "| 🟡 Medium | %d | Enhanced Monitoring |\n", tiers[model.RiskMedium])
	fmt.Fprintf(&b, "| 🟢 Low | %d | Routine Monitoring |\n", tiers[model.RiskLow])
	b.WriteString("\n### Age Distribution (XLPE Cables)\n| Age Range | Count | Water Treeing Risk |\n|-----------|-------|-------------------|\n")
	distribution := make(map[string]int, len(xlpeAgeBuckets))
	for i, bk := range xlpeAgeBuckets {
		distribution[bk.label] = ages[i]
		fmt.Fprintf(&b, "| %s | %d | %s |\n", bk.label, ages[i], bk.risk)
	}
	b.WriteString(`
### Water Treeing Mechanism
Water Treeing occurs when moisture penetrates XLPE insulation through:
1. Manufacturing defects (voids, contaminants)
2. Mechanical damage (installation, dig-ins)
3. Environmental stress (temperature cycling, moisture)

The water creates dendritic (tree-like) structures that progressively
degrade the dielectric strength until catastrophic failure occurs.

### Detection Method
Traditional inspections cannot see Water Treeing. We detect it by:
- Analyzing voltage readings from downstream AMI meters
- Correlating voltage dips with rainfall events
- ML model trained on historical failure patterns
`)

	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"total_cables":     len(cables),
			"xlpe_count":       xlpe,
			"predictions":      preds[:min(len(preds), 50)],
			"age_distribution": distribution,
		},
		sources: []string{"asset", "ml.cable_failure_prediction"},
	}, nil
}

func (d waterTreeingDetective) amiCorrelation(ctx context.Context) (agentReply, error) {
	readings, err := d.store.AMIReadings(ctx, 5000)
	if err != nil {
		return agentReply{}, fmt.Errorf("ami correlation: %w", err)
	}

	var dips, rain int
	for _, r := range readings {
		if r.VoltageDipFlag {
			dips++
		}
		if r.RainCorrelatedDip {
			rain++
		}
	}
	stats, _ := model.CorrelateAMI(readings)

	var b strings.Builder
	fmt.Fprintf(&b, "## %s AMI Voltage Analysis\n\n### Reading Statistics\n", discoveryEmoji)
	fmt.Fprintf(&b, "- **Total AMI Readings Analyzed**: %s\n", count(len(readings)))
	fmt.Fprintf(&b, "- **Voltage Dip Events**: %s (%.2f%%)\n", count(dips), pct(dips, len(readings)))
	fmt.Fprintf(&b, "- **Rain-Correlated Dips**: %s (%.2f%%)\n", count(rain), pct(rain, len(readings)))
	b.WriteString(`
### Correlation Analysis
When we see voltage dips that consistently occur during or shortly after
rainfall events on the same cable segment, it's a strong indicator of
moisture ingress - the hallmark of Water Treeing.

### Assets with Highest Rain Correlation
| Asset ID | Dip Events | Rain Correlated | Correlation % |
|----------|------------|-----------------|---------------|
`)
	for _, s := range stats[:min(len(stats), 15)] {
		indicator := "🟢"
		switch {
		case s.CorrelationPct > model.HighCorrelationPct:
			indicator = "🔴"
		case s.CorrelationPct > 30:
			indicator = "🟠"
		}
		fmt.Fprintf(&b, "| %s %s | %d | %d | %.0f%% |\n", indicator, s.AssetID, s.VoltageDips, s.RainCorrelated, s.CorrelationPct)
	}
	b.WriteString(`
### Interpretation
- **>60% correlation**: Strong Water Treeing indicator - immediate attention
- **30-60% correlation**: Emerging pattern - schedule investigation
- **<30% correlation**: Normal variation - routine monitoring
`)

	return agentReply{
		narrative: b.String(),
		data: map[string]any{
			"total_readings":  len(readings),
			"dip_events":      dips,
			"rain_correlated": rain,
			"asset_stats":     stats[:min(len(stats), 50)],
		},
		sources: []string{"ami_reading"},
	}, nil
}
