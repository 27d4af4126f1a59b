package model

import (
	"cmp"
	"slices"
	"time"
)

// WaterTreeingCandidate is an underground cable with water treeing indicators.
type WaterTreeingCandidate struct {
	AssetID              string  `json:"asset_id"`
	AssetType            string  `json:"asset_type"`
	Material             string  `json:"material"`
	MoistureExposure     string  `json:"moisture_exposure"`
	AssetAgeYears        float64 `json:"asset_age_years"`
	ConditionScore       float64 `json:"condition_score"`
	CircuitName          string  `json:"circuit_name"`
	FireThreatDistrict   string  `json:"fire_threat_district"`
	Region               string  `json:"region"`
	TotalCustomers       int     `json:"total_customers"`
	ReplacementCost      float64 `json:"replacement_cost"`
	RainCorrelationScore float64 `json:"rain_correlation_score"`
	FailureProbability   float64 `json:"failure_probability"`
}

// AMIReading is one smart meter interval reading downstream of an asset.
type AMIReading struct {
	ReadingID         string    `json:"reading_id"`
	AssetID           string    `json:"asset_id"`
	MeterID           string    `json:"meter_id"`
	ReadingTimestamp  time.Time `json:"reading_timestamp"`
	Voltage           float64   `json:"voltage"`
	VoltageDipFlag    bool      `json:"voltage_dip_flag"`
	RainfallMM        float64   `json:"rainfall_mm"`
	RainCorrelatedDip bool      `json:"rain_correlated_dip"`
}

// AMICorrelation is the rain-to-dip ratio for one asset.
type AMICorrelation struct {
	AssetID        string  `json:"asset_id"`
	TotalReadings  int     `json:"total_readings"`
	VoltageDips    int     `json:"voltage_dips"`
	RainCorrelated int     `json:"rain_correlated"`
	CorrelationPct float64 `json:"correlation_pct"`
}

// CorrelationSummary describes an AMI correlation pass.
type CorrelationSummary struct {
	TotalAssetsAnalyzed       int `json:"total_assets_analyzed"`
	AssetsWithHighCorrelation int `json:"assets_with_high_correlation"`
	TotalReadings             int `json:"total_readings"`
}

// HighCorrelationPct is the rain correlation share that flags water treeing.
const HighCorrelationPct = 60.0

// CorrelateAMI groups readings by asset and computes the share of voltage
// dips that coincide with rain. Assets without dips are omitted. Results
// are sorted by correlation descending.
func CorrelateAMI(readings []AMIReading) ([]AMICorrelation, CorrelationSummary) {
	byAsset := make(map[string]*AMICorrelation)
	for _, r := range readings {
		c, ok := byAsset[r.AssetID]
		if !ok {
			c = &AMICorrelation{AssetID: r.AssetID}
			byAsset[r.AssetID] = c
		}
		c.TotalReadings++
		if r.VoltageDipFlag {
			c.VoltageDips++
		}
		if r.RainCorrelatedDip {
			c.RainCorrelated++
		}
	}

	out := make([]AMICorrelation, 0, len(byAsset))
	for _, c := range byAsset {
		if c.VoltageDips == 0 {
			continue
		}
		c.CorrelationPct = float64(c.RainCorrelated) / float64(c.VoltageDips) * 100
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b AMICorrelation) int {
		if n := cmp.Compare(b.CorrelationPct, a.CorrelationPct); n != 0 {
			return n
		}
		return cmp.Compare(a.AssetID, b.AssetID)
	})

	summary := CorrelationSummary{
		TotalAssetsAnalyzed: len(byAsset),
		TotalReadings:       len(readings),
	}
	for _, c := range out {
		if c.CorrelationPct > HighCorrelationPct {
			summary.AssetsWithHighCorrelation++
		}
	}
	return out, summary
}

// DiscoveryInfo annotates water treeing responses.
type DiscoveryInfo struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	KeyIndicators []string `json:"key_indicators,omitempty"`
	BusinessValue string   `json:"business_value,omitempty"`
}

// WaterTreeingInfo is the static description attached to /discovery/water-treeing.
var WaterTreeingInfo = DiscoveryInfo{
	Name:        "Water Treeing Detection",
	Description: "Detecting invisible underground cable degradation via AMI data correlation",
	KeyIndicators: []string{
		"XLPE insulation material",
		"15-25 years age",
		"HIGH moisture exposure",
		"Rain correlation score > 0.5",
	},
}

// CableFailureInfo is the static description attached to /ml/cable-failure.
var CableFailureInfo = DiscoveryInfo{
	Name:          "Water Treeing Detection",
	Description:   "Hidden pattern: Rain-correlated voltage dips indicate moisture intrusion",
	BusinessValue: "Predict failures 6-12 months early, prevent outages",
}
