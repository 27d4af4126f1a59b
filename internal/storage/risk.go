package storage

import (
	"context"
	"fmt"

	"github.com/vigil-grid/vigil/internal/model"
)

// ListRisk returns up to 1000 risk assessments, highest composite score first.
func (db *DB) ListRisk(ctx context.Context, region string) ([]model.RiskAssessment, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT r.assessment_id, r.asset_id, COALESCE(r.composite_risk_score, 0), COALESCE(r.risk_tier, ''),
		       COALESCE(r.ignition_probability, 0), COALESCE(r.fire_risk_score, 0), COALESCE(r.consequence_score, 0),
		       a.asset_type, c.circuit_name, c.fire_threat_district, l.region,
		       COALESCE(l.latitude, 0), COALESCE(l.longitude, 0)
		FROM risk_assessment r
		JOIN asset a ON r.asset_id = a.asset_id
		JOIN circuit c ON a.circuit_id = c.circuit_id
		JOIN location l ON a.location_id = l.location_id
		WHERE ($1 = '' OR l.region = $1)
		ORDER BY r.composite_risk_score DESC NULLS LAST, r.assessment_id
		LIMIT 1000`, region)
	if err != nil {
		return nil, fmt.Errorf("storage: list risk: %w", err)
	}
	defer rows.Close()

	var out []model.RiskAssessment
	for rows.Next() {
		var r model.RiskAssessment
		if err := rows.Scan(
			&r.AssessmentID, &r.AssetID, &r.CompositeRiskScore, &r.RiskTier,
			&r.IgnitionProbability, &r.FireRiskScore, &r.ConsequenceScore,
			&r.AssetType, &r.CircuitName, &r.FireThreatDistrict, &r.Region,
			&r.Latitude, &r.Longitude,
		); err != nil {
			return nil, fmt.Errorf("storage: scan risk assessment: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RiskSummary aggregates risk by region and tier, most severe tier first.
func (db *DB) RiskSummary(ctx context.Context) ([]model.RiskSummaryRow, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT l.region, COALESCE(r.risk_tier, ''),
		       COUNT(*)::int,
		       COALESCE(AVG(r.ignition_probability), 0),
		       COALESCE(AVG(r.fire_risk_score), 0),
		       COALESCE(AVG(r.composite_risk_score), 0)
		FROM risk_assessment r
		JOIN asset a ON r.asset_id = a.asset_id
		JOIN location l ON a.location_id = l.location_id
		GROUP BY l.region, r.risk_tier
		ORDER BY l.region,
		    CASE r.risk_tier
		        WHEN 'CRITICAL' THEN 1
		        WHEN 'HIGH' THEN 2
		        WHEN 'MEDIUM' THEN 3
		        ELSE 4
		    END`)
	if err != nil {
		return nil, fmt.Errorf("storage: risk summary: %w", err)
	}
	defer rows.Close()

	var out []model.RiskSummaryRow
	for rows.Next() {
		var r model.RiskSummaryRow
		if err := rows.Scan(&r.Region, &r.RiskTier, &r.AssetCount, &r.AvgIgnitionProb, &r.AvgFireRisk, &r.AvgCompositeRisk); err != nil {
			return nil, fmt.Errorf("storage: scan risk summary: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PSPSCandidates returns up to 100 PSPS-eligible circuits by customer count.
func (db *DB) PSPSCandidates(ctx context.Context) ([]model.Circuit, error) {
	return db.pspsCircuits(ctx, nil, 100)
}

// PSPSCircuits returns PSPS-eligible circuits in the given fire threat
// districts by customer count.
func (db *DB) PSPSCircuits(ctx context.Context, tiers []string, limit int) ([]model.Circuit, error) {
	return db.pspsCircuits(ctx, tiers, limit)
}

func (db *DB) pspsCircuits(ctx context.Context, tiers []string, limit int) ([]model.Circuit, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT c.circuit_id, c.circuit_name, COALESCE(c.substation_name, ''), c.voltage_class,
		       c.circuit_miles, c.total_customers, c.fire_threat_district, c.psps_eligible,
		       c.critical_facilities, c.medical_baseline_customers, COALESCE(l.region, '')
		FROM circuit c
		LEFT JOIN location l ON c.primary_location_id = l.location_id
		WHERE c.psps_eligible = TRUE
		  AND (COALESCE(cardinality($1::text[]), 0) = 0 OR c.fire_threat_district = ANY($1))
		ORDER BY c.total_customers DESC, c.circuit_id
		LIMIT $2`, tiers, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: psps circuits: %w", err)
	}
	defer rows.Close()
	return scanCircuits(rows)
}

// WeatherForecasts returns forecasts from today onward, by region and date.
func (db *DB) WeatherForecasts(ctx context.Context) ([]model.WeatherForecast, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT region, forecast_date, wind_speed_mph, humidity_pct, temperature_f, red_flag_warning
		FROM weather_forecast
		WHERE forecast_date >= CURRENT_DATE
		ORDER BY region, forecast_date`)
	if err != nil {
		return nil, fmt.Errorf("storage: weather forecasts: %w", err)
	}
	defer rows.Close()

	var out []model.WeatherForecast
	for rows.Next() {
		var w model.WeatherForecast
		if err := rows.Scan(&w.Region, &w.ForecastDate, &w.WindSpeedMPH, &w.HumidityPct, &w.TemperatureF, &w.RedFlagWarning); err != nil {
			return nil, fmt.Errorf("storage: scan weather forecast: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
