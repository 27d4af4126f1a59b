package model

// GO95 compliance statuses recorded on encroachments.
const (
	ComplianceCompliant    = "COMPLIANT"
	ComplianceAtRisk       = "AT_RISK"
	ComplianceNonCompliant = "NON_COMPLIANT"
	ComplianceCritical     = "CRITICAL"
)

// Trim priority bands used by work planning.
const (
	BandEmergency = "P1_EMERGENCY"
	BandUrgent    = "P2_URGENT"
	BandStandard  = "P3_STANDARD"
	BandRoutine   = "P4_ROUTINE"
)

// Bands lists the trim bands from most to least urgent.
var Bands = []string{BandEmergency, BandUrgent, BandStandard, BandRoutine}

// Encroachment is vegetation measured near an overhead asset.
type Encroachment struct {
	EncroachmentID      string   `json:"encroachment_id"`
	AssetID             string   `json:"asset_id"`
	Species             string   `json:"species"`
	TreeHeightFt        float64  `json:"tree_height_ft"`
	CurrentClearanceFt  float64  `json:"current_clearance_ft"`
	RequiredClearanceFt float64  `json:"required_clearance_ft"`
	ClearanceDeficitFt  float64  `json:"clearance_deficit_ft"`
	DaysToContact       *int     `json:"days_to_contact"`
	DaysUntilViolation  *int     `json:"days_until_violation"`
	TrimPriority        string   `json:"trim_priority"`
	ComplianceStatus    string   `json:"compliance_status"`
	StrikePotential     string   `json:"strike_potential"`
	GrowthRateFtYear    float64  `json:"growth_rate_ft_year"`
	EstimatedTrimCost   float64  `json:"estimated_trim_cost"`
	CircuitName         string   `json:"circuit_name"`
	FireThreatDistrict  string   `json:"fire_threat_district"`
	Region              string   `json:"region"`
	Latitude            float64  `json:"latitude"`
	Longitude           float64  `json:"longitude"`
	PriorityScore       *float64 `json:"priority_score,omitempty"`
}

// NonCompliant reports whether the encroachment violates GO95 clearance.
func (e Encroachment) NonCompliant() bool {
	return e.ComplianceStatus == ComplianceNonCompliant || e.ComplianceStatus == ComplianceCritical
}

// Band maps the trim priority onto a work planning band.
func (e Encroachment) Band() string {
	return TrimBand(e.TrimPriority)
}

// TrimBand maps CRITICAL/HIGH/MEDIUM/LOW trim priorities to P1..P4 bands.
func TrimBand(priority string) string {
	switch priority {
	case RiskCritical:
		return BandEmergency
	case RiskHigh:
		return BandUrgent
	case RiskMedium:
		return BandStandard
	default:
		return BandRoutine
	}
}

// VegetationSummary totals a list of encroachments.
type VegetationSummary struct {
	TotalEncroachments int     `json:"total_encroachments"`
	Critical           int     `json:"critical"`
	HighPriority       int     `json:"high_priority"`
	OutOfCompliance    int     `json:"out_of_compliance"`
	TotalTrimCost      float64 `json:"total_trim_cost"`
	AvgClearanceFt     float64 `json:"avg_clearance_ft"`
}

// SummarizeVegetation computes the summary block for /vegetation.
func SummarizeVegetation(items []Encroachment) VegetationSummary {
	s := VegetationSummary{TotalEncroachments: len(items)}
	var clearance float64
	for _, e := range items {
		switch e.TrimPriority {
		case RiskCritical:
			s.Critical++
			s.OutOfCompliance++
		case RiskHigh:
			s.HighPriority++
			s.OutOfCompliance++
		}
		s.TotalTrimCost += e.EstimatedTrimCost
		clearance += e.CurrentClearanceFt
	}
	s.AvgClearanceFt = clearance / float64(max(len(items), 1))
	return s
}

// ComplianceRow aggregates encroachments by region and fire district.
type ComplianceRow struct {
	Region             string  `json:"region"`
	FireThreatDistrict string  `json:"fire_threat_district"`
	TotalEncroachments int     `json:"total_encroachments"`
	Critical           int     `json:"critical"`
	HighPriority       int     `json:"high_priority"`
	OutOfCompliance    int     `json:"out_of_compliance"`
	AvgClearanceFt     float64 `json:"avg_clearance_ft"`
	MinDaysToContact   *int    `json:"min_days_to_contact"`
	TotalTrimCost      float64 `json:"total_trim_cost"`
}

// RegionCompliance counts compliant and non-compliant encroachments in a region.
type RegionCompliance struct {
	Region       string `json:"region"`
	Total        int    `json:"total"`
	Compliant    int    `json:"compliant"`
	NonCompliant int    `json:"non_compliant"`
}
