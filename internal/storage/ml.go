package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vigil-grid/vigil/internal/model"
)

const (
	healthColumns = `prediction_id, asset_id, asset_type, COALESCE(actual_health_score, 0),
		predicted_health_score, COALESCE(health_delta, 0), COALESCE(model_confidence, 0),
		predicted_condition, prediction_date, model_version`
	growthColumns = `prediction_id, COALESCE(encroachment_id, ''), asset_id, species,
		COALESCE(actual_growth_rate, 0), predicted_growth_rate, COALESCE(current_clearance_ft, 0),
		predicted_days_to_contact, growth_risk, prediction_date, model_version`
	ignitionColumns = `prediction_id, asset_id, asset_type, COALESCE(actual_risk, 0),
		COALESCE(predicted_ignition_risk, 0), COALESCE(condition_score, 0),
		COALESCE(avg_clearance_deficit, 0), risk_level, COALESCE(fire_threat_district, ''),
		prediction_date, model_version`
	cableColumns = `prediction_id, asset_id, COALESCE(material, ''), COALESCE(asset_age_years, 0),
		COALESCE(moisture_exposure, ''), rain_correlated_dips, rain_voltage_correlation,
		COALESCE(actual_risk, 0), predicted_water_treeing, risk_level, prediction_date, model_version`
	combinedColumns = `asset_id, asset_type, COALESCE(actual_condition, 0), COALESCE(asset_age_years, 0),
		region, COALESCE(fire_threat_district, ''), total_customers,
		COALESCE(predicted_health_score, 0), COALESCE(health_status, ''), COALESCE(health_delta, 0),
		COALESCE(ignition_risk_level, ''), COALESCE(avg_clearance_deficit, 0),
		COALESCE(water_treeing_risk, ''), COALESCE(rain_voltage_correlation, 0),
		composite_ml_risk_score, maintenance_priority`
)

func scanHealth(row pgx.Row) (model.AssetHealthPrediction, error) {
	var p model.AssetHealthPrediction
	err := row.Scan(&p.PredictionID, &p.AssetID, &p.AssetType, &p.ActualHealthScore,
		&p.PredictedHealthScore, &p.HealthDelta, &p.ModelConfidence,
		&p.PredictedCondition, &p.PredictionDate, &p.ModelVersion)
	return p, err
}

func scanGrowth(row pgx.Row) (model.VegetationGrowthPrediction, error) {
	var p model.VegetationGrowthPrediction
	err := row.Scan(&p.PredictionID, &p.EncroachmentID, &p.AssetID, &p.Species,
		&p.ActualGrowthRate, &p.PredictedGrowthRate, &p.CurrentClearanceFt,
		&p.PredictedDaysToContact, &p.GrowthRisk, &p.PredictionDate, &p.ModelVersion)
	return p, err
}

func scanIgnition(row pgx.Row) (model.IgnitionRiskPrediction, error) {
	var p model.IgnitionRiskPrediction
	err := row.Scan(&p.PredictionID, &p.AssetID, &p.AssetType, &p.ActualRisk,
		&p.PredictedIgnitionRisk, &p.ConditionScore,
		&p.AvgClearanceDeficit, &p.RiskLevel, &p.FireThreatDistrict,
		&p.PredictionDate, &p.ModelVersion)
	return p, err
}

func scanCable(row pgx.Row) (model.CableFailurePrediction, error) {
	var p model.CableFailurePrediction
	err := row.Scan(&p.PredictionID, &p.AssetID, &p.Material, &p.AssetAgeYears,
		&p.MoistureExposure, &p.RainCorrelatedDips, &p.RainVoltageCorrelation,
		&p.ActualRisk, &p.PredictedWaterTreeing, &p.RiskLevel, &p.PredictionDate, &p.ModelVersion)
	return p, err
}

func scanCombined(row pgx.Row) (model.CombinedRisk, error) {
	var r model.CombinedRisk
	err := row.Scan(&r.AssetID, &r.AssetType, &r.ActualCondition, &r.AssetAgeYears,
		&r.Region, &r.FireThreatDistrict, &r.TotalCustomers,
		&r.PredictedHealthScore, &r.HealthStatus, &r.HealthDelta,
		&r.IgnitionRiskLevel, &r.AvgClearanceDeficit,
		&r.WaterTreeingRisk, &r.RainVoltageCorrelation,
		&r.CompositeMLRiskScore, &r.MaintenancePriority)
	return r, err
}

// collect runs query and scans every row with scan.
func collect[T any](ctx context.Context, db *DB, op string, scan func(pgx.Row) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", op, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan %s: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", op, err)
	}
	return out, nil
}

// AssetHealthPredictions returns predictions with the lowest predicted health first.
func (db *DB) AssetHealthPredictions(ctx context.Context, limit int) ([]model.AssetHealthPrediction, error) {
	return collect(ctx, db, "asset health predictions", scanHealth, `
		SELECT `+healthColumns+`
		FROM ml.asset_health_prediction
		ORDER BY predicted_health_score ASC, prediction_id
		LIMIT $1`, limit)
}

// VegetationGrowthPredictions returns predictions with the soonest contact first.
func (db *DB) VegetationGrowthPredictions(ctx context.Context, limit int) ([]model.VegetationGrowthPrediction, error) {
	return collect(ctx, db, "vegetation growth predictions", scanGrowth, `
		SELECT `+growthColumns+`
		FROM ml.vegetation_growth_prediction
		ORDER BY predicted_days_to_contact ASC NULLS LAST, prediction_id
		LIMIT $1`, limit)
}

// IgnitionRiskPredictions returns HIGH risk predictions first, then by
// worst condition.
func (db *DB) IgnitionRiskPredictions(ctx context.Context, limit int) ([]model.IgnitionRiskPrediction, error) {
	return collect(ctx, db, "ignition risk predictions", scanIgnition, `
		SELECT `+ignitionColumns+`
		FROM ml.ignition_risk_prediction
		ORDER BY CASE risk_level WHEN 'HIGH' THEN 1 WHEN 'MEDIUM' THEN 2 ELSE 3 END,
		         condition_score ASC, prediction_id
		LIMIT $1`, limit)
}

// CableFailurePredictions returns predicted water treeing first, then by
// rain-correlated dip count.
func (db *DB) CableFailurePredictions(ctx context.Context, limit int) ([]model.CableFailurePrediction, error) {
	return collect(ctx, db, "cable failure predictions", scanCable, `
		SELECT `+cableColumns+`
		FROM ml.cable_failure_prediction
		ORDER BY predicted_water_treeing DESC, rain_correlated_dips DESC, prediction_id
		LIMIT $1`, limit)
}

// CombinedRisk returns the merged prediction view, highest composite score first.
func (db *DB) CombinedRisk(ctx context.Context, limit int) ([]model.CombinedRisk, error) {
	return collect(ctx, db, "combined risk", scanCombined, `
		SELECT `+combinedColumns+`
		FROM ml.combined_risk_summary
		ORDER BY composite_ml_risk_score DESC, asset_id
		LIMIT $1`, limit)
}

// UrgentActions returns EMERGENCY then HIGH maintenance priorities.
func (db *DB) UrgentActions(ctx context.Context, limit int) ([]model.CombinedRisk, error) {
	return collect(ctx, db, "urgent actions", scanCombined, `
		SELECT `+combinedColumns+`
		FROM ml.combined_risk_summary
		WHERE maintenance_priority IN ('EMERGENCY', 'HIGH')
		ORDER BY CASE maintenance_priority WHEN 'EMERGENCY' THEN 1 ELSE 2 END,
		         composite_ml_risk_score DESC, asset_id
		LIMIT $1`, limit)
}

// CombinedRiskByRegion aggregates the merged prediction view by region.
func (db *DB) CombinedRiskByRegion(ctx context.Context) ([]model.RegionRisk, error) {
	return collect(ctx, db, "combined risk by region", func(row pgx.Row) (model.RegionRisk, error) {
		var r model.RegionRisk
		err := row.Scan(&r.Region, &r.AssetCount, &r.AvgRiskScore, &r.EmergencyCount,
			&r.HighPriorityCount, &r.CriticalHealthCount, &r.HighIgnitionCount, &r.WaterTreeingCount)
		return r, err
	}, `
		SELECT region,
		       COUNT(*)::int,
		       COALESCE(AVG(composite_ml_risk_score), 0) AS avg_risk_score,
		       COUNT(*) FILTER (WHERE maintenance_priority = 'EMERGENCY')::int,
		       COUNT(*) FILTER (WHERE maintenance_priority = 'HIGH')::int,
		       COUNT(*) FILTER (WHERE health_status = 'CRITICAL')::int,
		       COUNT(*) FILTER (WHERE ignition_risk_level = 'HIGH')::int,
		       COUNT(*) FILTER (WHERE water_treeing_risk = 'HIGH')::int
		FROM ml.combined_risk_summary
		GROUP BY region
		ORDER BY avg_risk_score DESC, region`)
}

// ModelCounts returns the per-model totals behind the model catalog.
func (db *DB) ModelCounts(ctx context.Context) (model.ModelCounts, error) {
	var c model.ModelCounts
	err := db.pool.QueryRow(ctx, `
		SELECT
		    (SELECT COUNT(*) FROM ml.asset_health_prediction)::int,
		    (SELECT COUNT(*) FROM ml.asset_health_prediction WHERE predicted_condition = 'CRITICAL')::int,
		    (SELECT COUNT(*) FROM ml.vegetation_growth_prediction)::int,
		    (SELECT COUNT(*) FROM ml.vegetation_growth_prediction WHERE growth_risk = 'HIGH')::int,
		    (SELECT COUNT(*) FROM ml.vegetation_growth_prediction WHERE predicted_days_to_contact < 30)::int,
		    (SELECT COUNT(*) FROM ml.ignition_risk_prediction)::int,
		    (SELECT COUNT(*) FROM ml.ignition_risk_prediction WHERE risk_level = 'HIGH')::int,
		    (SELECT COUNT(*) FROM ml.cable_failure_prediction)::int,
		    (SELECT COUNT(*) FROM ml.cable_failure_prediction WHERE risk_level = 'HIGH')::int`).Scan(
		&c.HealthTotal, &c.HealthCritical,
		&c.GrowthTotal, &c.GrowthHighRisk, &c.GrowthUrgent,
		&c.IgnitionTotal, &c.IgnitionHighRisk,
		&c.CableTotal, &c.CableAtRisk,
	)
	if err != nil {
		return c, fmt.Errorf("storage: model counts: %w", err)
	}
	return c, nil
}

// AssetPredictions gathers every model output for the given assets. Assets
// without a prediction from a model get a nil entry for it. Coverage counts
// the assets each model covered.
func (db *DB) AssetPredictions(ctx context.Context, ids []string) (map[string]model.AssetPredictions, model.PredictionCoverage, error) {
	out := make(map[string]model.AssetPredictions, len(ids))
	var cov model.PredictionCoverage
	if len(ids) == 0 {
		return out, cov, nil
	}
	for _, id := range ids {
		out[id] = model.AssetPredictions{}
	}

	// DISTINCT ON keeps the latest prediction per asset.
	health, err := collect(ctx, db, "asset health by id", scanHealth, `
		SELECT DISTINCT ON (asset_id) `+healthColumns+`
		FROM ml.asset_health_prediction WHERE asset_id = ANY($1)
		ORDER BY asset_id, prediction_date DESC`, ids)
	if err != nil {
		return nil, cov, err
	}
	for _, p := range health {
		e := out[p.AssetID]
		e.Health = &p
		out[p.AssetID] = e
	}

	growth, err := collect(ctx, db, "vegetation growth by id", scanGrowth, `
		SELECT DISTINCT ON (asset_id) `+growthColumns+`
		FROM ml.vegetation_growth_prediction WHERE asset_id = ANY($1)
		ORDER BY asset_id, prediction_date DESC`, ids)
	if err != nil {
		return nil, cov, err
	}
	for _, p := range growth {
		e := out[p.AssetID]
		e.Vegetation = &p
		out[p.AssetID] = e
	}

	ignition, err := collect(ctx, db, "ignition risk by id", scanIgnition, `
		SELECT DISTINCT ON (asset_id) `+ignitionColumns+`
		FROM ml.ignition_risk_prediction WHERE asset_id = ANY($1)
		ORDER BY asset_id, prediction_date DESC`, ids)
	if err != nil {
		return nil, cov, err
	}
	for _, p := range ignition {
		e := out[p.AssetID]
		e.Ignition = &p
		out[p.AssetID] = e
	}

	cable, err := collect(ctx, db, "cable failure by id", scanCable, `
		SELECT DISTINCT ON (asset_id) `+cableColumns+`
		FROM ml.cable_failure_prediction WHERE asset_id = ANY($1)
		ORDER BY asset_id, prediction_date DESC`, ids)
	if err != nil {
		return nil, cov, err
	}
	for _, p := range cable {
		e := out[p.AssetID]
		e.Cable = &p
		out[p.AssetID] = e
	}

	combined, err := collect(ctx, db, "combined risk by id", scanCombined, `
		SELECT `+combinedColumns+`
		FROM ml.combined_risk_summary WHERE asset_id = ANY($1)`, ids)
	if err != nil {
		return nil, cov, err
	}
	for _, r := range combined {
		e := out[r.AssetID]
		e.Combined = &r
		out[r.AssetID] = e
	}

	cov = model.PredictionCoverage{
		Health:     len(health),
		Vegetation: len(growth),
		Ignition:   len(ignition),
		Cable:      len(cable),
		Combined:   len(combined),
	}
	return out, cov, nil
}
