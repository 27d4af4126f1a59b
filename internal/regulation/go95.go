// Package regulation encodes CPUC General Order 95 Rule 35 vegetation
// clearance requirements and tree species reference data. All functions are
// pure and deterministic.
package regulation

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Regulation is the citation attached to every clearance result.
const Regulation = "CPUC GO95 Rule 35"

// ErrNoRequirement is returned when no clearance is defined for a voltage
// class and fire threat tier.
var ErrNoRequirement = errors.New("regulation: no clearance requirement")

// Minimum clearance in feet, by fire threat tier then voltage class.
var clearances = map[string]map[string]float64{
	"TIER_3": {
		"4KV": 4.0, "12KV": 6.0, "21KV": 8.0, "33KV": 10.0, "69KV": 12.0,
		"LOW_VOLTAGE": 4.0, "MEDIUM_VOLTAGE": 6.0, "HIGH_VOLTAGE": 12.0, "TRANSMISSION": 15.0,
	},
	"TIER_2": {
		"4KV": 4.0, "12KV": 4.0, "21KV": 4.0, "33KV": 6.0, "69KV": 8.0,
		"LOW_VOLTAGE": 4.0, "MEDIUM_VOLTAGE": 4.0, "HIGH_VOLTAGE": 6.0, "TRANSMISSION": 10.0,
	},
	"TIER_1": {
		"4KV": 2.5, "12KV": 4.0, "21KV": 4.0, "33KV": 4.0, "69KV": 6.0,
		"LOW_VOLTAGE": 2.5, "MEDIUM_VOLTAGE": 4.0, "HIGH_VOLTAGE": 6.0, "TRANSMISSION": 10.0,
	},
	"NON_HFTD": {
		"4KV": 2.5, "12KV": 4.0, "21KV": 4.0, "33KV": 4.0, "69KV": 4.0,
		"LOW_VOLTAGE": 2.5, "MEDIUM_VOLTAGE": 4.0, "HIGH_VOLTAGE": 4.0, "TRANSMISSION": 10.0,
	},
}

// Tiers returns the fire threat tiers with defined clearances, most severe first.
func Tiers() []string {
	return []string{"TIER_3", "TIER_2", "TIER_1", "NON_HFTD"}
}

// VoltageClasses returns the voltage classes with defined clearances, sorted.
func VoltageClasses() []string {
	out := make([]string, 0, len(clearances["TIER_3"]))
	for vc := range clearances["TIER_3"] {
		out = append(out, vc)
	}
	slices.Sort(out)
	return out
}

// Requirement is the minimum clearance for one voltage class in one tier.
type Requirement struct {
	VoltageClass        string  `json:"voltage_class"`
	FireThreatTier      string  `json:"fire_threat_tier"`
	RequiredClearanceFt float64 `json:"required_clearance_ft"`
	Regulation          string  `json:"regulation"`
	Description         string  `json:"description"`
}

// LookupError reports an unknown voltage class or tier.
type LookupError struct {
	VoltageClass   string   `json:"voltage_class"`
	FireThreatTier string   `json:"fire_threat_tier"`
	AvailableTiers []string `json:"available_tiers"`
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("No clearance requirement found for %s in %s", e.VoltageClass, e.FireThreatTier)
}

func (e *LookupError) Unwrap() error { return ErrNoRequirement }

func normalize(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

// NormalizeTier upper-cases a tier and accepts forms such as "tier-3",
// "Tier 3" and "TIER3".
func NormalizeTier(tier string) string {
	t := normalize(tier)
	if strings.Contains(t, "TIER") && !strings.Contains(t, "_") {
		t = strings.Replace(t, "TIER", "TIER_", 1)
	}
	return t
}

// ClearanceRequirement returns the GO95 minimum clearance for a voltage
// class in a fire threat tier. Unknown inputs yield a *LookupError.
func ClearanceRequirement(voltageClass, tier string) (Requirement, error) {
	vc := normalize(voltageClass)
	ftd := NormalizeTier(tier)
	ft, ok := clearances[ftd][vc]
	if !ok {
		return Requirement{}, &LookupError{
			VoltageClass:   voltageClass,
			FireThreatTier: tier,
			AvailableTiers: Tiers(),
		}
	}
	return Requirement{
		VoltageClass:        vc,
		FireThreatTier:      ftd,
		RequiredClearanceFt: ft,
		Regulation:          Regulation,
		Description: fmt.Sprintf("Minimum vegetation clearance of %.1f feet required for %s lines in %s areas.",
			ft, vc, ftd),
	}, nil
}

// Compliance statuses and urgencies reported by ComplianceGap.
const (
	StatusCompliant = "COMPLIANT"
	StatusViolation = "VIOLATION"

	UrgencyCritical = "CRITICAL"
	UrgencyHigh     = "HIGH"
	UrgencyMedium   = "MEDIUM"
	UrgencyLow      = "LOW"
	UrgencyNone     = "NONE"
)

// Gap compares a measured clearance against the GO95 requirement.
type Gap struct {
	CurrentClearanceFt  float64 `json:"current_clearance_ft"`
	RequiredClearanceFt float64 `json:"required_clearance_ft"`
	DeficitFt           float64 `json:"deficit_ft"`
	ComplianceStatus    string  `json:"compliance_status"`
	Urgency             string  `json:"urgency"`
	FireThreatTier      string  `json:"fire_threat_tier"`
	VoltageClass        string  `json:"voltage_class"`
	Regulation          string  `json:"regulation"`
	Recommendation      string  `json:"recommendation"`
}

// ComplianceGap grades the clearance deficit for a span. Urgency thresholds
// tighten with the fire threat tier.
func ComplianceGap(current float64, voltageClass, tier string) (Gap, error) {
	req, err := ClearanceRequirement(voltageClass, tier)
	if err != nil {
		return Gap{}, err
	}
	deficit := req.RequiredClearanceFt - current

	g := Gap{
		CurrentClearanceFt:  current,
		RequiredClearanceFt: req.RequiredClearanceFt,
		DeficitFt:           math.Max(0, deficit),
		ComplianceStatus:    StatusCompliant,
		Urgency:             UrgencyNone,
		FireThreatTier:      tier,
		VoltageClass:        voltageClass,
		Regulation:          Regulation,
	}
	if deficit > 0 {
		g.ComplianceStatus = StatusViolation
		g.Urgency = gapUrgency(req.FireThreatTier, deficit)
	}
	g.Recommendation = recommendation(g.Urgency, deficit)
	return g, nil
}

func gapUrgency(tier string, deficit float64) string {
	switch tier {
	case "TIER_3":
		if deficit > 6 {
			return UrgencyCritical
		}
		return UrgencyHigh
	case "TIER_2":
		if deficit > 4 {
			return UrgencyHigh
		}
		return UrgencyMedium
	default:
		if deficit > 2 {
			return UrgencyMedium
		}
		return UrgencyLow
	}
}

func recommendation(urgency string, deficit float64) string {
	switch urgency {
	case UrgencyCritical:
		return fmt.Sprintf("IMMEDIATE ACTION REQUIRED: %.1fft deficit in Tier 3 fire area. Schedule emergency trim within 7 days.", deficit)
	case UrgencyHigh:
		return fmt.Sprintf("Priority trim required: %.1fft deficit. Schedule vegetation management within 30 days.", deficit)
	case UrgencyMedium:
		return fmt.Sprintf("Standard trim needed: %.1fft deficit. Include in next quarterly trim cycle.", deficit)
	case UrgencyLow:
		return fmt.Sprintf("Minor deficit of %.1fft. Address during routine maintenance.", deficit)
	default:
		return "Clearance meets GO95 requirements. Continue routine monitoring."
	}
}
