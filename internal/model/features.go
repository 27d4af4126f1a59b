package model

import (
	"slices"
	"strings"
)

// Feature is one input's contribution to a model.
type Feature struct {
	Name        string  `json:"name"`
	Importance  float64 `json:"importance"`
	Direction   string  `json:"direction"`
	Description string  `json:"description"`
}

// FeatureImportance explains one prediction model.
type FeatureImportance struct {
	Model              string    `json:"model"`
	ModelName          string    `json:"model_name"`
	Algorithm          string    `json:"algorithm"`
	Features           []Feature `json:"features"`
	BaselinePrediction any       `json:"baseline_prediction"`
	ModelAccuracy      float64   `json:"model_accuracy"`
	DiscoveryNote      string    `json:"discovery_note,omitempty"`
}

var featureImportance = map[string]FeatureImportance{
	"asset_health": {
		ModelName: "Asset Health Predictor",
		Algorithm: "GradientBoostingRegressor",
		Features: []Feature{
			{"Asset Age (Years)", 0.32, "negative", "Older assets have lower health scores"},
			{"Maintenance Frequency", 0.24, "positive", "Regular maintenance improves health"},
			{"Condition Score", 0.18, "positive", "Historical condition impacts predictions"},
			{"Fire District Tier", 0.12, "negative", "Higher tier = more environmental stress"},
			{"Voltage Class", 0.08, "mixed", "Higher voltage equipment degrades differently"},
			{"Total Customers", 0.06, "negative", "High-load assets degrade faster"},
		},
		BaselinePrediction: 0.72,
		ModelAccuracy:      0.87,
	},
	"vegetation_growth": {
		ModelName: "Vegetation Growth Predictor",
		Algorithm: "RandomForestRegressor",
		Features: []Feature{
			{"Species Growth Rate", 0.35, "positive", "Fast-growing species need more frequent trimming"},
			{"Current Clearance", 0.28, "negative", "Less clearance = faster contact"},
			{"Rainfall (30d)", 0.15, "positive", "More rain accelerates growth"},
			{"Season", 0.12, "mixed", "Spring/summer = faster growth"},
			{"Soil Type", 0.06, "positive", "Rich soil increases growth"},
			{"Proximity to Water", 0.04, "positive", "Water access boosts growth"},
		},
		BaselinePrediction: 45,
		ModelAccuracy:      0.82,
	},
	"ignition_risk": {
		ModelName: "Ignition Risk Classifier",
		Algorithm: "GradientBoostingClassifier",
		Features: []Feature{
			{"Fire District Tier", 0.30, "positive", "Tier 3 zones have highest base risk"},
			{"Clearance Deficit", 0.25, "positive", "Non-compliant clearance increases ignition risk"},
			{"Asset Condition", 0.18, "negative", "Poor condition = higher ignition probability"},
			{"Wind Exposure", 0.12, "positive", "High wind areas spread fire faster"},
			{"Fuel Load Index", 0.10, "positive", "Vegetation density near lines"},
			{"Historical Outages", 0.05, "positive", "Past events predict future risk"},
		},
		BaselinePrediction: "MEDIUM",
		ModelAccuracy:      0.91,
	},
	"cable_failure": {
		ModelName: "Water Treeing Detector",
		Algorithm: "Correlation Analysis + Decision Tree",
		Features: []Feature{
			{"Rain-Voltage Correlation", 0.40, "positive", "Key indicator: voltage dips during rain"},
			{"Cable Age", 0.22, "positive", "Older cables more susceptible"},
			{"Moisture Exposure", 0.18, "positive", "Wet environments accelerate treeing"},
			{"Material Type", 0.10, "mixed", "XLPE vs EPR degradation patterns"},
			{"Load Cycling", 0.06, "positive", "Thermal stress from load changes"},
			{"Historical Dip Count", 0.04, "positive", "Cumulative stress indicator"},
		},
		BaselinePrediction: 0,
		ModelAccuracy:      0.78,
		DiscoveryNote:      "Hidden pattern: Rain events correlate with voltage anomalies in degrading cables",
	},
}

// ModelNames lists the models with feature importance tables, sorted.
func ModelNames() []string {
	names := make([]string, 0, len(featureImportance))
	for k := range featureImportance {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// FeatureImportanceFor returns the table for a model name. Lookup is
// case-insensitive and accepts hyphens.
func FeatureImportanceFor(name string) (FeatureImportance, bool) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	fi, ok := featureImportance[key]
	if !ok {
		return FeatureImportance{}, false
	}
	fi.Model = key
	fi.Features = slices.Clone(fi.Features)
	return fi, true
}
