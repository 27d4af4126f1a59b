package analyst

import (
	"errors"
	"strings"

	"github.com/vigil-grid/vigil/internal/storage"
)

// ErrUnsafeSQL is returned when generated text is not a single read-only statement.
var ErrUnsafeSQL = errors.New("analyst: generated SQL is not a single SELECT statement")

// schemaContext describes the warehouse to the SQL generator.
const schemaContext = `You are a SQL expert. Generate PostgreSQL SQL to answer the user's question.

TABLES:
- location (location_id, region, county, city, zip_code, latitude, longitude, elevation_ft, terrain_type, land_use)
- circuit (circuit_id, circuit_name, substation_name, voltage_class, fire_threat_district, primary_location_id, total_customers, critical_facilities, medical_baseline_customers, circuit_miles, psps_eligible)
- asset (asset_id, circuit_id, location_id, asset_type, asset_subtype, material, manufacturer, voltage_class, installation_date, asset_age_years, condition_score, last_inspection_date, next_inspection_due, replacement_cost, criticality_factor, moisture_exposure, wind_exposure)
- risk_assessment (assessment_id, asset_id, assessment_date, fire_risk_score, ignition_probability, consequence_score, composite_risk_score, risk_tier)
- vegetation_encroachment (encroachment_id, asset_id, species, tree_height_ft, current_clearance_ft, required_clearance_ft, clearance_deficit_ft, days_to_contact, days_until_violation, trim_priority, compliance_status, strike_potential, growth_rate_ft_year, estimated_trim_cost)
- work_order (work_order_id, asset_id, work_order_type, priority, status, description, estimated_cost, estimated_hours, scheduled_date, completed_date, assigned_crew)
- ami_reading (reading_id, asset_id, meter_id, reading_timestamp, voltage, voltage_dip_flag, rainfall_mm, rain_correlated_dip)
- weather_forecast (forecast_id, region, forecast_date, wind_speed_mph, humidity_pct, temperature_f, red_flag_warning)
- ml.combined_risk_summary (asset_id, asset_type, region, fire_threat_district, predicted_health_score, health_status, ignition_risk_level, water_treeing_risk, composite_ml_risk_score, maintenance_priority)

VALUES:
- fire_threat_district: TIER_3, TIER_2, TIER_1, NON_HFTD
- risk_tier, trim_priority: CRITICAL, HIGH, MEDIUM, LOW
- compliance_status: COMPLIANT, AT_RISK, NON_COMPLIANT, CRITICAL
- work_order.status: PENDING, SCHEDULED, IN_PROGRESS, COMPLETED
- work_order.priority: EMERGENCY, URGENT, HIGH, MEDIUM, LOW

RULES:
- Return ONLY valid SQL, no explanations
- Use a single SELECT statement (WITH is allowed)
- Always include ORDER BY and LIMIT 50`

// Prompt builds the text-to-SQL prompt for a question.
func Prompt(question string) string {
	return schemaContext + "\n\nUSER QUESTION: " + question + "\n\nSQL:"
}

// CleanSQL strips a surrounding markdown code fence and verifies that what
// remains is one SELECT or WITH statement.
func CleanSQL(text string) (string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		lines = lines[1:]
		if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
			lines = lines[:n-1]
		}
		text = strings.TrimSpace(strings.Join(lines, "\n"))
	}
	sql, err := storage.CheckReadOnlySQL(text)
	if err != nil {
		return "", ErrUnsafeSQL
	}
	return sql, nil
}
