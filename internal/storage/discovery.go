package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vigil-grid/vigil/internal/model"
)

// WaterTreeingCandidates returns up to 200 underground cables with high
// moisture exposure, worst condition and oldest first. Rain correlation and
// failure probability come from the latest cable failure prediction.
func (db *DB) WaterTreeingCandidates(ctx context.Context) ([]model.WaterTreeingCandidate, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT a.asset_id, a.asset_type, COALESCE(a.material, ''), COALESCE(a.moisture_exposure, ''),
		       COALESCE(a.asset_age_years, 0), COALESCE(a.condition_score, 0),
		       c.circuit_name, c.fire_threat_district, l.region,
		       c.total_customers, a.replacement_cost,
		       COALESCE(p.rain_voltage_correlation, 0), COALESCE(p.actual_risk, 0)
		FROM asset a
		JOIN circuit c ON a.circuit_id = c.circuit_id
		JOIN location l ON a.location_id = l.location_id
		LEFT JOIN LATERAL (
			SELECT rain_voltage_correlation, actual_risk
			FROM ml.cable_failure_prediction cfp
			WHERE cfp.asset_id = a.asset_id
			ORDER BY cfp.prediction_date DESC
			LIMIT 1
		) p ON TRUE
		WHERE a.asset_type = 'CABLE_UNDERGROUND'
		  AND a.moisture_exposure = 'HIGH'
		ORDER BY a.condition_score ASC, a.asset_age_years DESC, a.asset_id
		LIMIT 200`)
	if err != nil {
		return nil, fmt.Errorf("storage: water treeing candidates: %w", err)
	}
	defer rows.Close()

	var out []model.WaterTreeingCandidate
	for rows.Next() {
		var c model.WaterTreeingCandidate
		if err := rows.Scan(
			&c.AssetID, &c.AssetType, &c.Material, &c.MoistureExposure,
			&c.AssetAgeYears, &c.ConditionScore,
			&c.CircuitName, &c.FireThreatDistrict, &c.Region,
			&c.TotalCustomers, &c.ReplacementCost,
			&c.RainCorrelationScore, &c.FailureProbability,
		); err != nil {
			return nil, fmt.Errorf("storage: scan water treeing candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const amiColumns = `reading_id, asset_id, meter_id, reading_timestamp, voltage,
	voltage_dip_flag, rainfall_mm, rain_correlated_dip`

func scanAMI(rows pgx.Rows) ([]model.AMIReading, error) {
	var out []model.AMIReading
	for rows.Next() {
		var r model.AMIReading
		if err := rows.Scan(
			&r.ReadingID, &r.AssetID, &r.MeterID, &r.ReadingTimestamp, &r.Voltage,
			&r.VoltageDipFlag, &r.RainfallMM, &r.RainCorrelatedDip,
		); err != nil {
			return nil, fmt.Errorf("storage: scan ami reading: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AMIReadings returns the most recent smart meter readings.
func (db *DB) AMIReadings(ctx context.Context, limit int) ([]model.AMIReading, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+amiColumns+`
		FROM ami_reading
		ORDER BY reading_timestamp DESC, reading_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: ami readings: %w", err)
	}
	defer rows.Close()
	return scanAMI(rows)
}

// AMIAnomalies returns the most recent voltage dips that coincided with rain.
func (db *DB) AMIAnomalies(ctx context.Context, limit int) ([]model.AMIReading, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+amiColumns+`
		FROM ami_reading
		WHERE rain_correlated_dip
		ORDER BY reading_timestamp DESC, reading_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: ami anomalies: %w", err)
	}
	defer rows.Close()
	return scanAMI(rows)
}

// MapAssets returns up to 5000 located assets with their latest risk.
func (db *DB) MapAssets(ctx context.Context) ([]model.MapAsset, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT a.asset_id, a.asset_type, l.latitude, l.longitude,
		       COALESCE(a.condition_score, 1), COALESCE(r.composite_risk_score, 0),
		       COALESCE(r.risk_tier, ''), c.fire_threat_district, l.region
		FROM asset a
		JOIN circuit c ON a.circuit_id = c.circuit_id
		JOIN location l ON a.location_id = l.location_id`+latestRiskJoin+`
		WHERE l.latitude IS NOT NULL AND l.longitude IS NOT NULL
		ORDER BY a.asset_id
		LIMIT 5000`)
	if err != nil {
		return nil, fmt.Errorf("storage: map assets: %w", err)
	}
	defer rows.Close()

	var out []model.MapAsset
	for rows.Next() {
		var m model.MapAsset
		if err := rows.Scan(
			&m.AssetID, &m.AssetType, &m.Latitude, &m.Longitude,
			&m.ConditionScore, &m.RiskScore, &m.RiskTier, &m.FireThreatDistrict, &m.Region,
		); err != nil {
			return nil, fmt.Errorf("storage: scan map asset: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AMICorrelation aggregates voltage dips per asset and the share that
// coincided with rain, highest share first.
func (db *DB) AMICorrelation(ctx context.Context, limit int) ([]model.AMICorrelation, error) {
	return collect(ctx, db, "ami correlation", func(row pgx.Row) (model.AMICorrelation, error) {
		var c model.AMICorrelation
		err := row.Scan(&c.AssetID, &c.TotalReadings, &c.VoltageDips, &c.RainCorrelated, &c.CorrelationPct)
		return c, err
	}, `
		SELECT asset_id,
		       COUNT(*)::int,
		       COUNT(*) FILTER (WHERE voltage_dip_flag)::int AS dips,
		       COUNT(*) FILTER (WHERE rain_correlated_dip)::int,
		       (COUNT(*) FILTER (WHERE rain_correlated_dip))::float8 * 100
		           / NULLIF(COUNT(*) FILTER (WHERE voltage_dip_flag), 0) AS correlation_pct
		FROM ami_reading
		GROUP BY asset_id
		HAVING COUNT(*) FILTER (WHERE voltage_dip_flag) > 0
		ORDER BY correlation_pct DESC, asset_id
		LIMIT $1`, limit)
}
