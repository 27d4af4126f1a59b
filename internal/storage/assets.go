package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vigil-grid/vigil/internal/model"
)

// tierMultiplierSQL weights a circuit's fire threat district for ranking.
const tierMultiplierSQL = `CASE c.fire_threat_district
		WHEN 'TIER_3' THEN 3.0
		WHEN 'TIER_2' THEN 2.0
		WHEN 'TIER_1' THEN 1.5
		ELSE 1.0
	END`

const assetColumns = `
	a.asset_id, a.circuit_id, a.asset_type, COALESCE(a.asset_subtype, ''), COALESCE(a.material, ''),
	COALESCE(a.voltage_class, ''), a.installation_date, COALESCE(a.asset_age_years, 0),
	COALESCE(a.condition_score, 1), COALESCE(a.moisture_exposure, ''), a.replacement_cost,
	a.criticality_factor, a.last_inspection_date, a.next_inspection_due,
	c.circuit_name, c.fire_threat_district, c.total_customers,
	l.region, COALESCE(l.latitude, 0), COALESCE(l.longitude, 0),
	COALESCE(r.composite_risk_score, 0), COALESCE(r.risk_tier, '')`

// latestRiskJoin joins each asset to its most recent risk assessment.
const latestRiskJoin = `
	LEFT JOIN LATERAL (
		SELECT composite_risk_score, risk_tier, ignition_probability
		FROM risk_assessment ra
		WHERE ra.asset_id = a.asset_id
		ORDER BY ra.assessment_date DESC
		LIMIT 1
	) r ON TRUE`

func scanAsset(row pgx.Row) (model.Asset, error) {
	var a model.Asset
	err := row.Scan(
		&a.AssetID, &a.CircuitID, &a.AssetType, &a.AssetSubtype, &a.Material,
		&a.VoltageClass, &a.InstallationDate, &a.AssetAgeYears,
		&a.ConditionScore, &a.MoistureExposure, &a.ReplacementCost,
		&a.CriticalityFactor, &a.LastInspectionDate, &a.NextInspectionDue,
		&a.CircuitName, &a.FireThreatDistrict, &a.TotalCustomers,
		&a.Region, &a.Latitude, &a.Longitude,
		&a.RiskScore, &a.RiskTier,
	)
	// An unscored asset reads as fully healthy, not critical.
	a.HealthScore = a.ConditionScore * 100
	return a, err
}

// ListAssets returns up to 1000 assets, worst condition first.
// Empty filter fields match everything.
func (db *DB) ListAssets(ctx context.Context, f model.AssetFilter) ([]model.Asset, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+assetColumns+`
		FROM asset a
		JOIN circuit c ON a.circuit_id = c.circuit_id
		JOIN location l ON a.location_id = l.location_id`+latestRiskJoin+`
		WHERE ($1 = '' OR l.region = $1)
		  AND ($2 = '' OR a.asset_type = $2)
		ORDER BY a.condition_score ASC NULLS LAST
		LIMIT 1000`, f.Region, f.AssetType)
	if err != nil {
		return nil, fmt.Errorf("storage: list assets: %w", err)
	}
	defer rows.Close()

	var out []model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan asset: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAsset returns one asset with its circuit, location and latest risk.
func (db *DB) GetAsset(ctx context.Context, assetID string) (model.Asset, error) {
	a, err := scanAsset(db.pool.QueryRow(ctx, `
		SELECT `+assetColumns+`
		FROM asset a
		JOIN circuit c ON a.circuit_id = c.circuit_id
		JOIN location l ON a.location_id = l.location_id`+latestRiskJoin+`
		WHERE a.asset_id = $1`, assetID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Asset{}, fmt.Errorf("storage: asset %s: %w", assetID, ErrNotFound)
		}
		return model.Asset{}, fmt.Errorf("storage: get asset: %w", err)
	}
	return a, nil
}

// AssetSummary aggregates assets by region and type.
func (db *DB) AssetSummary(ctx context.Context) ([]model.AssetSummaryRow, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT l.region, a.asset_type,
		       COUNT(*)::int,
		       COALESCE(AVG(a.condition_score), 0),
		       COALESCE(AVG(a.asset_age_years), 0),
		       COUNT(*) FILTER (WHERE a.condition_score < 0.5)::int
		FROM asset a
		JOIN location l ON a.location_id = l.location_id
		GROUP BY l.region, a.asset_type
		ORDER BY l.region, a.asset_type`)
	if err != nil {
		return nil, fmt.Errorf("storage: asset summary: %w", err)
	}
	defer rows.Close()

	var out []model.AssetSummaryRow
	for rows.Next() {
		var r model.AssetSummaryRow
		if err := rows.Scan(&r.Region, &r.AssetType, &r.AssetCount, &r.AvgCondition, &r.AvgAge, &r.PoorConditionCount); err != nil {
			return nil, fmt.Errorf("storage: scan asset summary: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplacementPriorities ranks poor-condition assets (condition < 0.5) by
// tier multiplier times ignition probability, defaulting the probability to
// 0.5 when no assessment exists.
func (db *DB) ReplacementPriorities(ctx context.Context, limit int) ([]model.ReplacementPriority, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT a.asset_id, a.asset_type, COALESCE(a.condition_score, 0), COALESCE(a.asset_age_years, 0),
		       a.replacement_cost, c.circuit_name, c.fire_threat_district, l.region,
		       r.ignition_probability, r.composite_risk_score,
		       `+tierMultiplierSQL+` * COALESCE(r.ignition_probability, 0.5) AS priority_score
		FROM asset a
		JOIN circuit c ON a.circuit_id = c.circuit_id
		JOIN location l ON a.location_id = l.location_id`+latestRiskJoin+`
		WHERE a.condition_score < 0.5
		ORDER BY priority_score DESC, a.asset_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: replacement priorities: %w", err)
	}
	defer rows.Close()

	var out []model.ReplacementPriority
	for rows.Next() {
		var p model.ReplacementPriority
		if err := rows.Scan(
			&p.AssetID, &p.AssetType, &p.ConditionScore, &p.AssetAgeYears,
			&p.ReplacementCost, &p.CircuitName, &p.FireThreatDistrict, &p.Region,
			&p.IgnitionProbability, &p.CompositeRiskScore, &p.PriorityScore,
		); err != nil {
			return nil, fmt.Errorf("storage: scan replacement priority: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListCircuits returns circuits by customer count, largest first.
func (db *DB) ListCircuits(ctx context.Context, limit int) ([]model.Circuit, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT c.circuit_id, c.circuit_name, COALESCE(c.substation_name, ''), c.voltage_class,
		       c.circuit_miles, c.total_customers, c.fire_threat_district, c.psps_eligible,
		       c.critical_facilities, c.medical_baseline_customers, COALESCE(l.region, '')
		FROM circuit c
		LEFT JOIN location l ON c.primary_location_id = l.location_id
		ORDER BY c.total_customers DESC, c.circuit_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list circuits: %w", err)
	}
	defer rows.Close()
	return scanCircuits(rows)
}

func scanCircuits(rows pgx.Rows) ([]model.Circuit, error) {
	var out []model.Circuit
	for rows.Next() {
		var c model.Circuit
		if err := rows.Scan(
			&c.CircuitID, &c.CircuitName, &c.SubstationName, &c.VoltageClass,
			&c.CircuitMiles, &c.TotalCustomers, &c.FireThreatDistrict, &c.PSPSEligible,
			&c.CriticalFacilities, &c.MedicalBaselineCustomers, &c.Region,
		); err != nil {
			return nil, fmt.Errorf("storage: scan circuit: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
