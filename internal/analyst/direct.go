// Package analyst answers data questions with SQL: a fixed set of keyword
// rules first, then a pluggable LLM text-to-SQL generator whose output runs
// read-only against the warehouse.
package analyst

import (
	"errors"
	"strings"
)

// ErrNoMatch means no rule or generator produced rows for the question.
var ErrNoMatch = errors.New("Could not understand the question")

// Query is a canned query chosen for a question.
type Query struct {
	SQL         string `json:"sql"`
	Explanation string `json:"explanation"`
}

type rule struct {
	match func(q string) bool
	query Query
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{
		match: func(q string) bool {
			return containsAny(q, "list", "name", "what are", "show me", "give me") && strings.Contains(q, "asset")
		},
		query: Query{
			SQL: `SELECT asset_id, asset_type, asset_subtype, voltage_class, asset_age_years, condition_score, material
FROM asset
ORDER BY condition_score ASC NULLS LAST
LIMIT 50`,
			Explanation: "Listing assets with key metrics",
		},
	},
	{
		match: func(q string) bool {
			return strings.Contains(q, "how many") && strings.Contains(q, "asset")
		},
		query: Query{
			SQL:         `SELECT COUNT(*) AS asset_count FROM asset`,
			Explanation: "Counting total assets",
		},
	},
	{
		match: func(q string) bool {
			return containsAny(q, "list", "show", "what are") && strings.Contains(q, "circuit")
		},
		query: Query{
			SQL: `SELECT circuit_id, circuit_name, substation_name, voltage_class, circuit_miles, total_customers, fire_threat_district
FROM circuit
ORDER BY total_customers DESC
LIMIT 50`,
			Explanation: "Listing circuits with details",
		},
	},
	{
		match: func(q string) bool {
			return containsAny(q, "high risk", "critical", "risk") && strings.Contains(q, "asset")
		},
		query: Query{
			SQL: `SELECT a.asset_id, a.asset_type, a.asset_age_years, r.composite_risk_score, r.risk_tier,
       r.ignition_probability, c.circuit_name, c.fire_threat_district
FROM asset a
JOIN LATERAL (
    SELECT composite_risk_score, risk_tier, ignition_probability
    FROM risk_assessment ra
    WHERE ra.asset_id = a.asset_id
    ORDER BY ra.assessment_date DESC
    LIMIT 1
) r ON TRUE
JOIN circuit c ON a.circuit_id = c.circuit_id
WHERE r.risk_tier IN ('CRITICAL', 'HIGH')
ORDER BY r.composite_risk_score DESC
LIMIT 50`,
			Explanation: "High-risk assets requiring attention",
		},
	},
	{
		match: func(q string) bool {
			return containsAny(q, "vegetation", "encroachment", "clearance")
		},
		query: Query{
			SQL: `SELECT v.encroachment_id, a.asset_id, v.species, v.current_clearance_ft, v.required_clearance_ft,
       v.compliance_status, v.days_until_violation, v.strike_potential, c.circuit_name, c.fire_threat_district
FROM vegetation_encroachment v
JOIN asset a ON v.asset_id = a.asset_id
JOIN circuit c ON a.circuit_id = c.circuit_id
WHERE v.compliance_status IN ('NON_COMPLIANT', 'CRITICAL', 'AT_RISK')
ORDER BY v.days_until_violation ASC NULLS LAST
LIMIT 50`,
			Explanation: "Vegetation encroachments requiring trim",
		},
	},
	{
		match: func(q string) bool {
			return containsAny(q, "work order", "backlog")
		},
		query: Query{
			SQL: `SELECT work_order_id, work_order_type, priority, status, estimated_cost, scheduled_date, description
FROM work_order
WHERE status IN ('PENDING', 'SCHEDULED', 'IN_PROGRESS')
ORDER BY
    CASE priority
        WHEN 'EMERGENCY' THEN 1
        WHEN 'URGENT' THEN 2
        WHEN 'HIGH' THEN 3
        WHEN 'MEDIUM' THEN 4
        ELSE 5
    END,
    scheduled_date ASC
LIMIT 50`,
			Explanation: "Open work orders by priority",
		},
	},
	{
		match: func(q string) bool {
			return strings.Contains(q, "fire") && containsAny(q, "tier", "threat", "district")
		},
		query: Query{
			SQL: `SELECT c.fire_threat_district, l.region, l.county,
       COUNT(DISTINCT c.circuit_id) AS circuit_count,
       COUNT(DISTINCT a.asset_id) AS asset_count
FROM circuit c
JOIN asset a ON c.circuit_id = a.circuit_id
JOIN location l ON a.location_id = l.location_id
GROUP BY c.fire_threat_district, l.region, l.county
ORDER BY c.fire_threat_district DESC
LIMIT 50`,
			Explanation: "Fire threat district summary",
		},
	},
	{
		match: func(q string) bool {
			return containsAny(q, "summary", "overview", "dashboard", "kpi")
		},
		query: Query{
			SQL: `SELECT
    (SELECT COUNT(*) FROM asset) AS total_assets,
    (SELECT COUNT(*) FROM circuit) AS total_circuits,
    (SELECT COUNT(*) FROM risk_assessment WHERE risk_tier = 'CRITICAL') AS critical_risks,
    (SELECT COUNT(*) FROM vegetation_encroachment WHERE compliance_status IN ('NON_COMPLIANT', 'CRITICAL')) AS veg_violations,
    (SELECT COUNT(*) FROM work_order WHERE status IN ('SCHEDULED', 'IN_PROGRESS')) AS active_work_orders`,
			Explanation: "Portfolio summary metrics",
		},
	},
}

// DirectSQL picks a canned query by keyword. The question is matched
// case-insensitively. It returns ErrNoMatch when no rule applies.
func DirectSQL(question string) (Query, error) {
	q := strings.ToLower(question)
	for _, r := range rules {
		if r.match(q) {
			return r.query, nil
		}
	}
	return Query{}, ErrNoMatch
}
