package model

import "time"

// Fire threat district tiers.
const (
	TierThree = "TIER_3"
	TierTwo   = "TIER_2"
	TierOne   = "TIER_1"
	NonHFTD   = "NON_HFTD"
)

// Risk tiers.
const (
	RiskCritical = "CRITICAL"
	RiskHigh     = "HIGH"
	RiskMedium   = "MEDIUM"
	RiskLow      = "LOW"
)

// Asset is an asset joined with its circuit, location and latest risk assessment.
type Asset struct {
	AssetID            string     `json:"asset_id"`
	CircuitID          string     `json:"circuit_id"`
	AssetType          string     `json:"asset_type"`
	AssetSubtype       string     `json:"asset_subtype,omitempty"`
	Material           string     `json:"material,omitempty"`
	VoltageClass       string     `json:"voltage_class"`
	InstallationDate   *time.Time `json:"installation_date,omitempty"`
	AssetAgeYears      float64    `json:"asset_age_years"`
	ConditionScore     float64    `json:"condition_score"`
	HealthScore        float64    `json:"health_score"`
	MoistureExposure   string     `json:"moisture_exposure,omitempty"`
	ReplacementCost    float64    `json:"replacement_cost"`
	CriticalityFactor  float64    `json:"criticality_factor"`
	LastInspectionDate *time.Time `json:"last_inspection_date,omitempty"`
	NextInspectionDue  *time.Time `json:"next_inspection_due,omitempty"`
	CircuitName        string     `json:"circuit_name"`
	FireThreatDistrict string     `json:"fire_threat_district"`
	TotalCustomers     int        `json:"total_customers"`
	Region             string     `json:"region"`
	Latitude           float64    `json:"latitude"`
	Longitude          float64    `json:"longitude"`
	RiskScore          float64    `json:"risk_score"`
	RiskTier           string     `json:"risk_tier,omitempty"`
}

// AssetFilter narrows ListAssets.
type AssetFilter struct {
	Region    string
	AssetType string
}

// AssetSummaryRow aggregates assets by region and type.
type AssetSummaryRow struct {
	Region             string  `json:"region"`
	AssetType          string  `json:"asset_type"`
	AssetCount         int     `json:"asset_count"`
	AvgCondition       float64 `json:"avg_condition"`
	AvgAge             float64 `json:"avg_age"`
	PoorConditionCount int     `json:"poor_condition_count"`
}

// ReplacementPriority ranks a poor-condition asset by tier-weighted ignition probability.
type ReplacementPriority struct {
	AssetID             string   `json:"asset_id"`
	AssetType           string   `json:"asset_type"`
	ConditionScore      float64  `json:"condition_score"`
	AssetAgeYears       float64  `json:"asset_age_years"`
	ReplacementCost     float64  `json:"replacement_cost"`
	CircuitName         string   `json:"circuit_name"`
	FireThreatDistrict  string   `json:"fire_threat_district"`
	Region              string   `json:"region"`
	IgnitionProbability *float64 `json:"ignition_probability"`
	CompositeRiskScore  *float64 `json:"composite_risk_score"`
	PriorityScore       float64  `json:"priority_score"`
}

// Circuit is a distribution circuit.
type Circuit struct {
	CircuitID                string  `json:"circuit_id"`
	CircuitName              string  `json:"circuit_name"`
	SubstationName           string  `json:"substation_name"`
	VoltageClass             string  `json:"voltage_class"`
	CircuitMiles             float64 `json:"circuit_miles"`
	TotalCustomers           int     `json:"total_customers"`
	FireThreatDistrict       string  `json:"fire_threat_district"`
	PSPSEligible             bool    `json:"psps_eligible"`
	CriticalFacilities       int     `json:"critical_facilities"`
	MedicalBaselineCustomers int     `json:"medical_baseline_customers"`
	Region                   string  `json:"region,omitempty"`
}

// RiskAssessment is a composite risk score for one asset.
type RiskAssessment struct {
	AssessmentID        string  `json:"assessment_id"`
	AssetID             string  `json:"asset_id"`
	CompositeRiskScore  float64 `json:"composite_risk_score"`
	RiskTier            string  `json:"risk_tier"`
	IgnitionProbability float64 `json:"ignition_probability"`
	FireRiskScore       float64 `json:"fire_risk_score"`
	ConsequenceScore    float64 `json:"consequence_score"`
	AssetType           string  `json:"asset_type"`
	CircuitName         string  `json:"circuit_name"`
	FireThreatDistrict  string  `json:"fire_threat_district"`
	Region              string  `json:"region"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
}

// RiskSummaryRow aggregates risk by region and tier.
type RiskSummaryRow struct {
	Region           string  `json:"region"`
	RiskTier         string  `json:"risk_tier"`
	AssetCount       int     `json:"asset_count"`
	AvgIgnitionProb  float64 `json:"avg_ignition_prob"`
	AvgFireRisk      float64 `json:"avg_fire_risk"`
	AvgCompositeRisk float64 `json:"avg_composite_risk"`
}

// WeatherForecast is a daily fire weather forecast for a region.
type WeatherForecast struct {
	Region         string    `json:"region"`
	ForecastDate   time.Time `json:"forecast_date"`
	WindSpeedMPH   float64   `json:"wind_speed_mph"`
	HumidityPct    float64   `json:"humidity_pct"`
	TemperatureF   float64   `json:"temperature_f"`
	RedFlagWarning bool      `json:"red_flag_warning"`
}

// TierMultiplier weights a fire threat district for prioritization.
func TierMultiplier(tier string) float64 {
	switch tier {
	case TierThree:
		return 3.0
	case TierTwo:
		return 2.0
	case TierOne:
		return 1.5
	default:
		return 1.0
	}
}
