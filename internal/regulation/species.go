package regulation

import (
	"fmt"
	"strings"
)

// Species is growth and fire behavior data for a tree species.
type Species struct {
	Species         string  `json:"species"`
	GrowthRateFtYr  float64 `json:"growth_rate_ft_year"`
	MaxHeightFt     float64 `json:"max_height_ft"`
	FireRisk        string  `json:"fire_risk"`
	ManagementNotes string  `json:"management_notes"`
	IsEstimated     bool    `json:"is_estimated,omitempty"`
}

var species = map[string]Species{
	"EUCALYPTUS": {GrowthRateFtYr: 6.0, MaxHeightFt: 150, FireRisk: "EXTREME",
		ManagementNotes: "Highly flammable bark shreds. Requires aggressive management in HFTD areas."},
	"OAK": {GrowthRateFtYr: 2.0, MaxHeightFt: 80, FireRisk: "MODERATE",
		ManagementNotes: "Protected species in many areas. Coordinate with arborist for trimming."},
	"PINE": {GrowthRateFtYr: 3.0, MaxHeightFt: 100, FireRisk: "HIGH",
		ManagementNotes: "Resinous, burns readily. Monitor for beetle kill which increases fire risk."},
	"PALM": {GrowthRateFtYr: 1.5, MaxHeightFt: 60, FireRisk: "HIGH",
		ManagementNotes: "Dead fronds are extremely flammable. Remove dead material annually."},
	"WILLOW": {GrowthRateFtYr: 4.0, MaxHeightFt: 50, FireRisk: "LOW",
		ManagementNotes: "Fast growing near waterways. Typically lower fire risk due to moisture."},
	"MANZANITA": {GrowthRateFtYr: 1.0, MaxHeightFt: 20, FireRisk: "EXTREME",
		ManagementNotes: "Highly flammable native shrub. Critical to maintain clearance in HFTD."},
}

// SpeciesInfo returns reference data for a species. Unknown species get
// default growth assumptions with IsEstimated set.
func SpeciesInfo(name string) Species {
	key := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(name)), " ", "_")
	if s, ok := species[key]; ok {
		s.Species = key
		return s
	}
	return Species{
		Species:         key,
		GrowthRateFtYr:  2.5,
		MaxHeightFt:     60,
		FireRisk:        "MODERATE",
		ManagementNotes: fmt.Sprintf("Limited data for %s. Using default growth assumptions.", name),
		IsEstimated:     true,
	}
}
