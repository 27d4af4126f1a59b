package model

import "time"

// Maintenance priorities written to the combined risk summary.
const (
	MaintenanceEmergency = "EMERGENCY"
	MaintenanceHigh      = "HIGH"
)

// AssetHealthPrediction is a row from ml.asset_health_prediction.
type AssetHealthPrediction struct {
	PredictionID         string    `json:"prediction_id"`
	AssetID              string    `json:"asset_id"`
	AssetType            string    `json:"asset_type"`
	ActualHealthScore    float64   `json:"actual_health_score"`
	PredictedHealthScore float64   `json:"predicted_health_score"`
	HealthDelta          float64   `json:"health_delta"`
	ModelConfidence      float64   `json:"model_confidence"`
	PredictedCondition   string    `json:"predicted_condition"`
	PredictionDate       time.Time `json:"prediction_date"`
	ModelVersion         string    `json:"model_version"`
}

// VegetationGrowthPrediction is a row from ml.vegetation_growth_prediction.
type VegetationGrowthPrediction struct {
	PredictionID           string    `json:"prediction_id"`
	EncroachmentID         string    `json:"encroachment_id"`
	AssetID                string    `json:"asset_id"`
	Species                string    `json:"species"`
	ActualGrowthRate       float64   `json:"actual_growth_rate"`
	PredictedGrowthRate    float64   `json:"predicted_growth_rate"`
	CurrentClearanceFt     float64   `json:"current_clearance_ft"`
	PredictedDaysToContact *float64  `json:"predicted_days_to_contact"`
	GrowthRisk             string    `json:"growth_risk"`
	PredictionDate         time.Time `json:"prediction_date"`
	ModelVersion           string    `json:"model_version"`
}

// IgnitionRiskPrediction is a row from ml.ignition_risk_prediction.
type IgnitionRiskPrediction struct {
	PredictionID          string    `json:"prediction_id"`
	AssetID               string    `json:"asset_id"`
	AssetType             string    `json:"asset_type"`
	ActualRisk            float64   `json:"actual_risk"`
	PredictedIgnitionRisk float64   `json:"predicted_ignition_risk"`
	ConditionScore        float64   `json:"condition_score"`
	AvgClearanceDeficit   float64   `json:"avg_clearance_deficit"`
	RiskLevel             string    `json:"risk_level"`
	FireThreatDistrict    string    `json:"fire_threat_district,omitempty"`
	PredictionDate        time.Time `json:"prediction_date"`
	ModelVersion          string    `json:"model_version"`
}

// CableFailurePrediction is a row from ml.cable_failure_prediction.
type CableFailurePrediction struct {
	PredictionID           string    `json:"prediction_id"`
	AssetID                string    `json:"asset_id"`
	Material               string    `json:"material"`
	AssetAgeYears          float64   `json:"asset_age_years"`
	MoistureExposure       string    `json:"moisture_exposure"`
	RainCorrelatedDips     int       `json:"rain_correlated_dips"`
	RainVoltageCorrelation float64   `json:"rain_voltage_correlation"`
	ActualRisk             float64   `json:"actual_risk"`
	PredictedWaterTreeing  int       `json:"predicted_water_treeing"`
	RiskLevel              string    `json:"risk_level"`
	PredictionDate         time.Time `json:"prediction_date"`
	ModelVersion           string    `json:"model_version"`
}

// CombinedRisk is a row from ml.combined_risk_summary.
type CombinedRisk struct {
	AssetID                string  `json:"asset_id"`
	AssetType              string  `json:"asset_type"`
	ActualCondition        float64 `json:"actual_condition"`
	AssetAgeYears          float64 `json:"asset_age_years"`
	Region                 string  `json:"region"`
	FireThreatDistrict     string  `json:"fire_threat_district"`
	TotalCustomers         int     `json:"total_customers"`
	PredictedHealthScore   float64 `json:"predicted_health_score"`
	HealthStatus           string  `json:"health_status"`
	HealthDelta            float64 `json:"health_delta"`
	IgnitionRiskLevel      string  `json:"ignition_risk_level"`
	AvgClearanceDeficit    float64 `json:"avg_clearance_deficit"`
	WaterTreeingRisk       string  `json:"water_treeing_risk"`
	RainVoltageCorrelation float64 `json:"rain_voltage_correlation"`
	CompositeMLRiskScore   float64 `json:"composite_ml_risk_score"`
	MaintenancePriority    string  `json:"maintenance_priority"`
}

// RegionRisk aggregates the combined risk summary by region.
type RegionRisk struct {
	Region              string  `json:"region"`
	AssetCount          int     `json:"asset_count"`
	AvgRiskScore        float64 `json:"avg_risk_score"`
	EmergencyCount      int     `json:"emergency_count"`
	HighPriorityCount   int     `json:"high_priority_count"`
	CriticalHealthCount int     `json:"critical_health_count"`
	HighIgnitionCount   int     `json:"high_ignition_count"`
	WaterTreeingCount   int     `json:"water_treeing_count"`
}

// AssetPredictions collects every model output for one asset.
type AssetPredictions struct {
	Health     *AssetHealthPrediction      `json:"health"`
	Vegetation *VegetationGrowthPrediction `json:"vegetation"`
	Ignition   *IgnitionRiskPrediction     `json:"ignition"`
	Cable      *CableFailurePrediction     `json:"cable"`
	Combined   *CombinedRisk               `json:"combined"`
}

// PredictionCoverage counts how many requested assets each model covers.
type PredictionCoverage struct {
	Health     int `json:"health"`
	Vegetation int `json:"vegetation"`
	Ignition   int `json:"ignition"`
	Cable      int `json:"cable"`
	Combined   int `json:"combined"`
}

// ModelCounts are the per-model aggregate counts behind /ml/summary.
type ModelCounts struct {
	HealthTotal      int
	HealthCritical   int
	GrowthTotal      int
	GrowthHighRisk   int
	GrowthUrgent     int
	IgnitionTotal    int
	IgnitionHighRisk int
	CableTotal       int
	CableAtRisk      int
}

// ModelStatus is one entry in the /ml/summary model catalog.
type ModelStatus struct {
	Name             string `json:"name"`
	Icon             string `json:"icon"`
	TotalPredictions int    `json:"total_predictions"`
	CriticalCount    *int   `json:"critical_count,omitempty"`
	HighRiskCount    *int   `json:"high_risk_count,omitempty"`
	UrgentCount      *int   `json:"urgent_count,omitempty"`
	AtRiskCount      *int   `json:"at_risk_count,omitempty"`
	Algorithm        string `json:"algorithm"`
	HiddenDiscovery  bool   `json:"hidden_discovery,omitempty"`
	Status           string `json:"status"`
}

// ModelCatalog renders the per-model counts as the /ml/summary catalog.
func ModelCatalog(c ModelCounts) map[string]ModelStatus {
	return map[string]ModelStatus{
		"asset_health": {
			Name: "Asset Health Predictor", Icon: "activity",
			TotalPredictions: c.HealthTotal, CriticalCount: &c.HealthCritical,
			Algorithm: "GradientBoostingRegressor", Status: "active",
		},
		"vegetation_growth": {
			Name: "Vegetation Growth", Icon: "tree-pine",
			TotalPredictions: c.GrowthTotal, HighRiskCount: &c.GrowthHighRisk, UrgentCount: &c.GrowthUrgent,
			Algorithm: "RandomForestRegressor", Status: "active",
		},
		"ignition_risk": {
			Name: "Ignition Risk", Icon: "flame",
			TotalPredictions: c.IgnitionTotal, HighRiskCount: &c.IgnitionHighRisk,
			Algorithm: "GradientBoostingClassifier", Status: "active",
		},
		"cable_failure": {
			Name: "Water Treeing", Icon: "zap",
			TotalPredictions: c.CableTotal, AtRiskCount: &c.CableAtRisk,
			Algorithm: "Correlation Analysis", HiddenDiscovery: true, Status: "active",
		},
	}
}
