package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vigil-grid/vigil/internal/model"
)

const encroachmentColumns = `
	v.encroachment_id, v.asset_id, v.species, COALESCE(v.tree_height_ft, 0),
	COALESCE(v.current_clearance_ft, 0), COALESCE(v.required_clearance_ft, 0),
	COALESCE(v.clearance_deficit_ft, 0), v.days_to_contact, v.days_until_violation,
	COALESCE(v.trim_priority, ''), COALESCE(v.compliance_status, ''), COALESCE(v.strike_potential, ''),
	COALESCE(v.growth_rate_ft_year, 0), v.estimated_trim_cost,
	c.circuit_name, c.fire_threat_district, l.region,
	COALESCE(l.latitude, 0), COALESCE(l.longitude, 0)`

const encroachmentJoins = `
	FROM vegetation_encroachment v
	JOIN asset a ON v.asset_id = a.asset_id
	JOIN circuit c ON a.circuit_id = c.circuit_id
	JOIN location l ON a.location_id = l.location_id`

func scanEncroachments(rows pgx.Rows, withScore bool) ([]model.Encroachment, error) {
	var out []model.Encroachment
	for rows.Next() {
		var e model.Encroachment
		dest := []any{
			&e.EncroachmentID, &e.AssetID, &e.Species, &e.TreeHeightFt,
			&e.CurrentClearanceFt, &e.RequiredClearanceFt,
			&e.ClearanceDeficitFt, &e.DaysToContact, &e.DaysUntilViolation,
			&e.TrimPriority, &e.ComplianceStatus, &e.StrikePotential,
			&e.GrowthRateFtYear, &e.EstimatedTrimCost,
			&e.CircuitName, &e.FireThreatDistrict, &e.Region,
			&e.Latitude, &e.Longitude,
		}
		if withScore {
			dest = append(dest, &e.PriorityScore)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("storage: scan encroachment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListVegetation returns up to 1000 encroachments, soonest contact first.
func (db *DB) ListVegetation(ctx context.Context, region string) ([]model.Encroachment, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+encroachmentColumns+encroachmentJoins+`
		WHERE ($1 = '' OR l.region = $1)
		ORDER BY v.days_to_contact ASC NULLS LAST, v.encroachment_id
		LIMIT 1000`, region)
	if err != nil {
		return nil, fmt.Errorf("storage: list vegetation: %w", err)
	}
	defer rows.Close()
	return scanEncroachments(rows, false)
}

// EncroachmentsForAsset returns the encroachments recorded on one asset.
func (db *DB) EncroachmentsForAsset(ctx context.Context, assetID string) ([]model.Encroachment, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+encroachmentColumns+encroachmentJoins+`
		WHERE v.asset_id = $1
		ORDER BY v.days_to_contact ASC NULLS LAST, v.encroachment_id`, assetID)
	if err != nil {
		return nil, fmt.Errorf("storage: encroachments for asset: %w", err)
	}
	defer rows.Close()
	return scanEncroachments(rows, false)
}

// VegetationCompliance aggregates encroachments by region and fire district.
func (db *DB) VegetationCompliance(ctx context.Context) ([]model.ComplianceRow, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT l.region, c.fire_threat_district,
		       COUNT(*)::int,
		       COUNT(*) FILTER (WHERE v.trim_priority = 'CRITICAL')::int,
		       COUNT(*) FILTER (WHERE v.trim_priority = 'HIGH')::int,
		       COUNT(*) FILTER (WHERE v.trim_priority IN ('CRITICAL', 'HIGH'))::int,
		       COALESCE(AVG(v.current_clearance_ft), 0),
		       MIN(v.days_to_contact),
		       COALESCE(SUM(v.estimated_trim_cost), 0)
		`+encroachmentJoins+`
		GROUP BY l.region, c.fire_threat_district
		ORDER BY l.region, c.fire_threat_district`)
	if err != nil {
		return nil, fmt.Errorf("storage: vegetation compliance: %w", err)
	}
	defer rows.Close()

	var out []model.ComplianceRow
	for rows.Next() {
		var r model.ComplianceRow
		if err := rows.Scan(
			&r.Region, &r.FireThreatDistrict, &r.TotalEncroachments,
			&r.Critical, &r.HighPriority, &r.OutOfCompliance,
			&r.AvgClearanceFt, &r.MinDaysToContact, &r.TotalTrimCost,
		); err != nil {
			return nil, fmt.Errorf("storage: scan compliance row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RegionCompliance counts compliant and non-compliant encroachments per region.
func (db *DB) RegionCompliance(ctx context.Context) ([]model.RegionCompliance, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT l.region,
		       COUNT(*)::int,
		       COUNT(*) FILTER (WHERE v.compliance_status = 'COMPLIANT')::int,
		       COUNT(*) FILTER (WHERE v.compliance_status IN ('NON_COMPLIANT', 'CRITICAL'))::int
		`+encroachmentJoins+`
		GROUP BY l.region
		ORDER BY l.region`)
	if err != nil {
		return nil, fmt.Errorf("storage: region compliance: %w", err)
	}
	defer rows.Close()

	var out []model.RegionCompliance
	for rows.Next() {
		var r model.RegionCompliance
		if err := rows.Scan(&r.Region, &r.Total, &r.Compliant, &r.NonCompliant); err != nil {
			return nil, fmt.Errorf("storage: scan region compliance: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TrimPriorities ranks CRITICAL and HIGH encroachments by tier multiplier
// divided by days to contact. Rows with zero or unknown days sort last.
func (db *DB) TrimPriorities(ctx context.Context, limit int) ([]model.Encroachment, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+encroachmentColumns+`,
		       `+tierMultiplierSQL+` * (1.0 / NULLIF(v.days_to_contact, 0)) AS priority_score
		`+encroachmentJoins+`
		WHERE v.trim_priority IN ('CRITICAL', 'HIGH')
		ORDER BY priority_score DESC NULLS LAST, v.encroachment_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: trim priorities: %w", err)
	}
	defer rows.Close()
	return scanEncroachments(rows, true)
}
