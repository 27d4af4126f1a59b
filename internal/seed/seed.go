package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/search"
	"github.com/vigil-grid/vigil/internal/storage"
)

// Loader replaces warehouse tables wholesale.
type Loader interface {
	ReplaceTables(ctx context.Context, tables []storage.Table) (map[string]int64, error)
}

// Corpus indexes retrieval documents.
type Corpus interface {
	Index(ctx context.Context, corpus string, docs []model.Document) (search.IndexStats, error)
}

// Summary reports what a seed run wrote.
type Summary struct {
	Rows      map[string]int64
	Documents map[string]search.IndexStats
	Elapsed   time.Duration
}

// Seeder generates a grid and writes it to the warehouse.
type Seeder struct {
	loader Loader
	corpus Corpus
	logger *slog.Logger
}

// New creates a Seeder. corpus may be nil to skip document indexing.
func New(loader Loader, corpus Corpus, logger *slog.Logger) *Seeder {
	return &Seeder{loader: loader, corpus: corpus, logger: logger.With("component", "seed")}
}

// Run generates a dataset from p and replaces the warehouse contents with it.
func (s *Seeder) Run(ctx context.Context, p Profile, now time.Time) (Summary, error) {
	start := time.Now()
	ds := Generate(p, now)
	s.logger.Info("dataset generated",
		"seed", p.Seed,
		"assets", len(ds.Assets),
		"ami_readings", len(ds.AMI),
		"encroachments", len(ds.Vegetation))

	rows, err := s.loader.ReplaceTables(ctx, ds.Tables())
	if err != nil {
		return Summary{}, fmt.Errorf("seed: load tables: %w", err)
	}
	sum := Summary{Rows: rows, Documents: map[string]search.IndexStats{}}

	if s.corpus != nil {
		docs := ds.Documents(p)
		for _, corpus := range model.Corpora {
			stats, err := s.corpus.Index(ctx, corpus, docs[corpus])
			if err != nil {
				return sum, fmt.Errorf("seed: index %s: %w", corpus, err)
			}
			sum.Documents[corpus] = stats
			s.logger.Info("corpus indexed", "corpus", corpus, "documents", stats.Upserted, "embedded", stats.Embedded)
		}
	}

	sum.Elapsed = time.Since(start)
	return sum, nil
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Tables converts the dataset into bulk-load batches, parents first.
func (ds *Dataset) Tables() []storage.Table {
	locations := storage.Table{
		Name: "location",
		Columns: []string{"location_id", "region", "county", "city", "zip_code",
			"latitude", "longitude", "elevation_ft", "terrain_type", "land_use"},
	}
	for _, l := range ds.Locations {
		locations.Rows = append(locations.Rows, []any{
			l.LocationID, l.Region, l.County, l.City, l.ZipCode,
			l.Latitude, l.Longitude, l.ElevationFt, l.TerrainType, l.LandUse,
		})
	}

	circuits := storage.Table{
		Name: "circuit",
		Columns: []string{"circuit_id", "circuit_name", "substation_name", "voltage_class",
			"fire_threat_district", "primary_location_id", "total_customers", "critical_facilities",
			"medical_baseline_customers", "circuit_miles", "psps_eligible"},
	}
	for _, c := range ds.Circuits {
		circuits.Rows = append(circuits.Rows, []any{
			c.CircuitID, c.CircuitName, c.SubstationName, c.VoltageClass,
			c.FireThreatDistrict, c.LocationID, c.TotalCustomers, c.CriticalFacilities,
			c.MedicalBaselineCustomers, c.CircuitMiles, c.PSPSEligible,
		})
	}

	assets := storage.Table{
		Name: "asset",
		Columns: []string{"asset_id", "circuit_id", "location_id", "asset_type", "asset_subtype",
			"material", "manufacturer", "model_number", "voltage_class", "installation_date",
			"asset_age_years", "condition_score", "last_inspection_date", "next_inspection_due",
			"inspection_cycle_months", "replacement_cost", "criticality_factor",
			"moisture_exposure", "wind_exposure"},
	}
	for _, a := range ds.Assets {
		assets.Rows = append(assets.Rows, []any{
			a.AssetID, a.CircuitID, a.LocationID, a.AssetType, a.AssetSubtype,
			nullable(a.Material), a.Manufacturer, a.ModelNumber, a.VoltageClass, a.InstallationDate,
			a.AgeYears, a.ConditionScore, a.LastInspectionDate, a.NextInspectionDue,
			a.InspectionCycleMonths, a.ReplacementCost, a.CriticalityFactor,
			nullable(a.MoistureExposure), nullable(a.WindExposure),
		})
	}

	risk := storage.Table{
		Name: "risk_assessment",
		Columns: []string{"assessment_id", "asset_id", "assessment_date", "fire_risk_score",
			"ignition_probability", "consequence_score", "wind_exposure_factor", "fuel_load_factor",
			"terrain_factor", "access_difficulty_factor", "composite_risk_score", "risk_tier",
			"assessed_by", "assessment_method"},
	}
	for _, r := range ds.Risk {
		risk.Rows = append(risk.Rows, []any{
			r.AssessmentID, r.AssetID, r.AssessmentDate, r.FireRiskScore,
			r.IgnitionProbability, r.ConsequenceScore, r.WindExposureFactor, r.FuelLoadFactor,
			r.TerrainFactor, r.AccessDifficultyFactor, r.CompositeRiskScore, r.RiskTier,
			r.AssessedBy, r.AssessmentMethod,
		})
	}

	vegetation := storage.Table{
		Name: "vegetation_encroachment",
		Columns: []string{"encroachment_id", "asset_id", "species", "tree_height_ft",
			"current_clearance_ft", "required_clearance_ft", "clearance_deficit_ft", "days_to_contact",
			"days_until_violation", "trim_priority", "compliance_status", "strike_potential",
			"growth_rate_ft_year", "estimated_trim_cost", "inspection_date", "last_trim_date"},
	}
	for _, v := range ds.Vegetation {
		vegetation.Rows = append(vegetation.Rows, []any{
			v.EncroachmentID, v.AssetID, v.Species, v.TreeHeightFt,
			v.CurrentClearanceFt, v.RequiredClearanceFt, v.ClearanceDeficitFt, v.DaysToContact,
			v.DaysUntilViolation, v.TrimPriority, v.ComplianceStatus, v.StrikePotential,
			v.GrowthRateFtYear, v.EstimatedTrimCost, v.InspectionDate, v.LastTrimDate,
		})
	}

	workOrders := storage.Table{
		Name: "work_order",
		Columns: []string{"work_order_id", "asset_id", "work_order_type", "priority", "status",
			"description", "estimated_cost", "estimated_hours", "scheduled_date", "completed_date",
			"assigned_crew", "species_target", "created_by", "created_source", "created_date"},
	}
	for _, w := range ds.WorkOrders {
		workOrders.Rows = append(workOrders.Rows, []any{
			w.WorkOrderID, w.AssetID, w.WorkOrderType, w.Priority, w.Status,
			w.Description, w.EstimatedCost, w.EstimatedHours, w.ScheduledDate, w.CompletedDate,
			nullable(w.AssignedCrew), nullable(w.SpeciesTarget), w.CreatedBy, w.CreatedSource, w.CreatedDate,
		})
	}

	ami := storage.Table{
		Name: "ami_reading",
		Columns: []string{"reading_id", "asset_id", "meter_id", "reading_timestamp", "voltage",
			"voltage_dip_flag", "rainfall_mm", "rain_correlated_dip"},
	}
	for _, r := range ds.AMI {
		ami.Rows = append(ami.Rows, []any{
			r.ReadingID, r.AssetID, r.MeterID, r.ReadingTimestamp, r.Voltage,
			r.VoltageDipFlag, r.RainfallMM, r.RainCorrelatedDip,
		})
	}

	weather := storage.Table{
		Name: "weather_forecast",
		Columns: []string{"forecast_id", "region", "forecast_date", "wind_speed_mph",
			"humidity_pct", "temperature_f", "red_flag_warning"},
	}
	for _, w := range ds.Weather {
		weather.Rows = append(weather.Rows, []any{
			w.ForecastID, w.Region, w.ForecastDate, w.WindSpeedMPH,
			w.HumidityPct, w.TemperatureF, w.RedFlagWarning,
		})
	}

	return append([]storage.Table{
		locations, circuits, assets, risk, vegetation, workOrders, ami, weather,
	}, ds.mlTables()...)
}

func (ds *Dataset) mlTables() []storage.Table {
	health := storage.Table{
		Schema: "ml",
		Name:   "asset_health_prediction",
		Columns: []string{"prediction_id", "asset_id", "asset_type", "actual_health_score",
			"predicted_health_score", "health_delta", "model_confidence", "predicted_condition",
			"prediction_date", "model_version"},
	}
	for _, p := range ds.Health {
		health.Rows = append(health.Rows, []any{
			p.PredictionID, p.AssetID, p.AssetType, p.ActualHealthScore,
			p.PredictedHealthScore, p.HealthDelta, p.ModelConfidence, p.PredictedCondition,
			p.PredictionDate, p.ModelVersion,
		})
	}

	growth := storage.Table{
		Schema: "ml",
		Name:   "vegetation_growth_prediction",
		Columns: []string{"prediction_id", "encroachment_id", "asset_id", "species",
			"actual_growth_rate", "predicted_growth_rate", "current_clearance_ft",
			"predicted_days_to_contact", "growth_risk", "prediction_date", "model_version"},
	}
	for _, p := range ds.Growth {
		growth.Rows = append(growth.Rows, []any{
			p.PredictionID, p.EncroachmentID, p.AssetID, p.Species,
			p.ActualGrowthRate, p.PredictedGrowthRate, p.CurrentClearanceFt,
			p.PredictedDaysToContact, p.GrowthRisk, p.PredictionDate, p.ModelVersion,
		})
	}

	ignition := storage.Table{
		Schema: "ml",
		Name:   "ignition_risk_prediction",
		Columns: []string{"prediction_id", "asset_id", "asset_type", "actual_risk",
			"predicted_ignition_risk", "condition_score", "avg_clearance_deficit", "risk_level",
			"fire_threat_district", "prediction_date", "model_version"},
	}
	for _, p := range ds.Ignition {
		ignition.Rows = append(ignition.Rows, []any{
			p.PredictionID, p.AssetID, p.AssetType, p.ActualRisk,
			p.PredictedIgnitionRisk, p.ConditionScore, p.AvgClearanceDeficit, p.RiskLevel,
			nullable(p.FireThreatDistrict), p.PredictionDate, p.ModelVersion,
		})
	}

	cable := storage.Table{
		Schema: "ml",
		Name:   "cable_failure_prediction",
		Columns: []string{"prediction_id", "asset_id", "material", "asset_age_years",
			"moisture_exposure", "rain_correlated_dips", "rain_voltage_correlation", "actual_risk",
			"predicted_water_treeing", "risk_level", "prediction_date", "model_version"},
	}
	for _, p := range ds.Cable {
		cable.Rows = append(cable.Rows, []any{
			p.PredictionID, p.AssetID, nullable(p.Material), p.AssetAgeYears,
			nullable(p.MoistureExposure), p.RainCorrelatedDips, p.RainVoltageCorrelation, p.ActualRisk,
			p.PredictedWaterTreeing, p.RiskLevel, p.PredictionDate, p.ModelVersion,
		})
	}

	combined := storage.Table{
		Schema: "ml",
		Name:   "combined_risk_summary",
		Columns: []string{"asset_id", "asset_type", "actual_condition", "asset_age_years", "region",
			"fire_threat_district", "total_customers", "predicted_health_score", "health_status",
			"health_delta", "ignition_risk_level", "avg_clearance_deficit", "water_treeing_risk",
			"rain_voltage_correlation", "composite_ml_risk_score", "maintenance_priority"},
	}
	for _, r := range ds.Combined {
		combined.Rows = append(combined.Rows, []any{
			r.AssetID, r.AssetType, r.ActualCondition, r.AssetAgeYears, r.Region,
			nullable(r.FireThreatDistrict), r.TotalCustomers, r.PredictedHealthScore, nullable(r.HealthStatus),
			r.HealthDelta, nullable(r.IgnitionRiskLevel), r.AvgClearanceDeficit, nullable(r.WaterTreeingRisk),
			r.RainVoltageCorrelation, r.CompositeMLRiskScore, r.MaintenancePriority,
		})
	}

	return []storage.Table{health, growth, ignition, cable, combined}
}
