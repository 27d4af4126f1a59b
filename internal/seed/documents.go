package seed

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/regulation"
)

// Caps on generated field notes per corpus.
const (
	maxVegetationNotes = 50
	maxWorkOrderNotes  = 150
	maxAnomalyNotes    = 100
)

const go95Source = "https://www.cpuc.ca.gov/go95"

var go95Rules = []model.Document{
	{
		Title: "Rule 35 - Vegetation Management",
		Content: `Rule 35 requires utilities to maintain radial clearance between bare
supply conductors and vegetation. Clearances are measured at the time of
inspection and must hold under design wind and sag conditions.

Minimum radial clearances grow with operating voltage and with the fire
threat tier of the district the span crosses. Tier 3 (extreme) districts
carry the largest clearances; spans outside any High Fire Threat District
use the base values.

Dead, rotten or diseased trees that could fall into the line must be
removed regardless of measured clearance.`,
		Metadata: map[string]any{"section": "Rule 35", "document_type": "REGULATION"},
	},
	{
		Title: "Rule 37 - Minimum Clearances of Wires",
		Content: `Rule 37 sets vertical clearances of supply conductors above ground,
roads and structures. For conductors along or within the limits of
highways, minimum vertical clearance is 18 feet below 750V, 25 feet from
750V to 22.5kV, 27 feet from 22.5kV to 72kV and 30 feet above 72kV.

These clearances apply to conductors crossing or within 10 feet of a
highway, road or street.`,
		Metadata: map[string]any{"section": "Rule 37", "document_type": "REGULATION"},
	},
	{
		Title: "High Fire Threat District Classification",
		Content: `Tier 3 marks extreme fire threat: ignition from utility equipment is
likely to spread rapidly. Enhanced clearances, patrols and inspections
apply, and circuits are eligible for Public Safety Power Shutoff.

Tier 2 marks elevated fire threat. HFTD clearance and inspection
requirements apply and circuits may be de-energized under red flag
conditions.

Tier 1 marks moderate fire threat with standard clearances and enhanced
patrol frequency. Areas outside any district use the base Rule 35
clearances, typically 4 feet for distribution voltages.`,
		Metadata: map[string]any{"section": "Fire Safety", "document_type": "REGULATION"},
	},
}

// Documents returns the retrieval corpora derived from the dataset, keyed
// by corpus.
func (ds *Dataset) Documents(p Profile) map[string][]model.Document {
	return map[string][]model.Document{
		model.CorpusGO95:       go95Documents(),
		model.CorpusVegetation: ds.vegetationDocuments(p),
		model.CorpusWorkOrders: ds.workOrderDocuments(),
		model.CorpusAMIAnomaly: ds.anomalyDocuments(),
	}
}

func go95Documents() []model.Document {
	docs := make([]model.Document, 0, len(go95Rules)+len(regulation.Tiers()))
	for _, d := range go95Rules {
		d.Source = go95Source
		docs = append(docs, d)
	}

	// One clearance table per tier, generated from the same lookup the API uses.
	for _, tier := range regulation.Tiers() {
		var b strings.Builder
		fmt.Fprintf(&b, "Minimum vegetation clearances in %s areas:\n", tier)
		for _, vc := range regulation.VoltageClasses() {
			req, err := regulation.ClearanceRequirement(vc, tier)
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "- %s: %.1f feet\n", vc, req.RequiredClearanceFt)
		}
		docs = append(docs, model.Document{
			Title:    fmt.Sprintf("Rule 35 Clearance Table - %s", tier),
			Content:  b.String(),
			Source:   go95Source,
			Metadata: map[string]any{"section": "Rule 35", "fire_threat_tier": tier, "document_type": "TABLE"},
		})
	}
	return docs
}

func (ds *Dataset) vegetationDocuments(p Profile) []model.Document {
	counts := map[string]int{}
	for _, v := range ds.Vegetation {
		counts[v.Species]++
	}

	var docs []model.Document
	for _, sp := range p.Species {
		info := regulation.SpeciesInfo(sp.Name)
		docs = append(docs, model.Document{
			Title: "Species Profile - " + info.Species,
			Content: fmt.Sprintf("%s grows about %.1f feet per year in the %s service territories and reaches %.0f feet. "+
				"Fire risk: %s. %s %d spans currently report this species.",
				info.Species, sp.GrowthRateFt, strings.Join(sp.Regions, ", "), info.MaxHeightFt,
				info.FireRisk, info.ManagementNotes, counts[sp.Name]),
			Source:   "vegetation_standards",
			Metadata: map[string]any{"species": info.Species, "fire_risk": info.FireRisk},
		})
	}

	worst := slices.Clone(ds.Vegetation)
	slices.SortStableFunc(worst, func(a, b EncroachmentRow) int {
		return cmp.Compare(b.ClearanceDeficitFt, a.ClearanceDeficitFt)
	})
	assets := ds.assetIndex()
	for _, v := range worst[:min(len(worst), maxVegetationNotes)] {
		if v.ClearanceDeficitFt <= 0 {
			break
		}
		a := assets[v.AssetID]
		note := fmt.Sprintf("%s at %.1fft from the conductor on %s (%s, %s). Required clearance %.1fft.",
			v.Species, v.CurrentClearanceFt, v.AssetID, a.VoltageClass, a.Tier, v.RequiredClearanceFt)
		if gap, err := regulation.ComplianceGap(v.CurrentClearanceFt, a.VoltageClass, a.Tier); err == nil {
			note += " " + gap.Recommendation
		}
		docs = append(docs, model.Document{
			Title:   fmt.Sprintf("Inspection Note %s", v.EncroachmentID),
			Content: note,
			Source:  "field_inspection",
			Metadata: map[string]any{
				"asset_id":          v.AssetID,
				"species":           v.Species,
				"compliance_status": v.ComplianceStatus,
				"region":            a.Region,
			},
		})
	}
	return docs
}

func (ds *Dataset) workOrderDocuments() []model.Document {
	var docs []model.Document
	for _, w := range ds.WorkOrders[max(0, len(ds.WorkOrders)-maxWorkOrderNotes):] {
		content := fmt.Sprintf("%s %s work order for %s, status %s. %s",
			w.Priority, strings.ToLower(kindLabel(w.WorkOrderType)), w.AssetID, w.Status, w.Description)
		if w.AssignedCrew != "" {
			content += " Assigned to " + w.AssignedCrew + "."
		}
		docs = append(docs, model.Document{
			Title:   "Work Order " + w.WorkOrderID,
			Content: content,
			Source:  strings.ToLower(w.CreatedSource),
			Metadata: map[string]any{
				"asset_id": w.AssetID,
				"status":   w.Status,
				"priority": w.Priority,
			},
		})
	}
	return docs
}

func (ds *Dataset) anomalyDocuments() []model.Document {
	var docs []model.Document
	for _, c := range ds.Cable {
		if c.RiskLevel == model.RiskLow {
			continue
		}
		if len(docs) == maxAnomalyNotes {
			break
		}
		docs = append(docs, model.Document{
			Title: "AMI Anomaly " + c.AssetID,
			Content: fmt.Sprintf("Voltage dips on %s track rainfall: %d rain-correlated dips, correlation %.2f. "+
				"%s insulation, %.0f years old, %s moisture exposure. Pattern consistent with water treeing; "+
				"failure risk %.2f.",
				c.AssetID, c.RainCorrelatedDips, c.RainVoltageCorrelation,
				c.Material, c.AssetAgeYears, strings.ToLower(c.MoistureExposure), c.ActualRisk),
			Source: "ami_analytics",
			Metadata: map[string]any{
				"asset_id":   c.AssetID,
				"risk_level": c.RiskLevel,
			},
		})
	}
	return docs
}

func (ds *Dataset) assetIndex() map[string]AssetRow {
	m := make(map[string]AssetRow, len(ds.Assets))
	for _, a := range ds.Assets {
		m[a.AssetID] = a
	}
	return m
}
