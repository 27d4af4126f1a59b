package regulation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-grid/vigil/internal/regulation"
)

func TestClearanceRequirement(t *testing.T) {
	tests := []struct {
		voltage, tier string
		want          float64
		wantTier      string
	}{
		{"12KV", "TIER_3", 6.0, "TIER_3"},
		{"transmission", "tier-3", 15.0, "TIER_3"},
		{"69kv", "TIER2", 8.0, "TIER_2"},
		{"low voltage", "Tier 1", 2.5, "TIER_1"},
		{"HIGH_VOLTAGE", "non-hftd", 4.0, "NON_HFTD"},
	}
	for _, tt := range tests {
		t.Run(tt.voltage+"/"+tt.tier, func(t *testing.T) {
			req, err := regulation.ClearanceRequirement(tt.voltage, tt.tier)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.RequiredClearanceFt)
			assert.Equal(t, tt.wantTier, req.FireThreatTier)
			assert.Equal(t, regulation.Regulation, req.Regulation)
		})
	}
}

func TestClearanceRequirement_Description(t *testing.T) {
	req, err := regulation.ClearanceRequirement("69KV", "TIER_3")
	require.NoError(t, err)
	assert.Equal(t, "Minimum vegetation clearance of 12.0 feet required for 69KV lines in TIER_3 areas.", req.Description)
}

func TestClearanceRequirement_Unknown(t *testing.T) {
	_, err := regulation.ClearanceRequirement("500KV", "TIER_3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, regulation.ErrNoRequirement))

	var le *regulation.LookupError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, regulation.Tiers(), le.AvailableTiers)
	assert.Equal(t, "No clearance requirement found for 500KV in TIER_3", le.Error())

	_, err = regulation.ClearanceRequirement("12KV", "TIER_9")
	assert.ErrorIs(t, err, regulation.ErrNoRequirement)
}

func TestComplianceGap(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		voltage string
		tier    string
		status  string
		urgency string
		deficit float64
	}{
		{"compliant", 20, "TRANSMISSION", "TIER_3", regulation.StatusCompliant, regulation.UrgencyNone, 0},
		{"exactly at requirement", 6, "12KV", "TIER_3", regulation.StatusCompliant, regulation.UrgencyNone, 0},
		{"tier 3 critical", 5, "TRANSMISSION", "TIER_3", regulation.StatusViolation, regulation.UrgencyCritical, 10},
		{"tier 3 high", 4, "12KV", "TIER_3", regulation.StatusViolation, regulation.UrgencyHigh, 2},
		{"tier 2 high", 4, "TRANSMISSION", "TIER_2", regulation.StatusViolation, regulation.UrgencyHigh, 6},
		{"tier 2 medium", 3, "12KV", "TIER_2", regulation.StatusViolation, regulation.UrgencyMedium, 1},
		{"tier 1 medium", 7, "TRANSMISSION", "TIER_1", regulation.StatusViolation, regulation.UrgencyMedium, 3},
		{"non hftd low", 3, "12KV", "NON_HFTD", regulation.StatusViolation, regulation.UrgencyLow, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := regulation.ComplianceGap(tt.current, tt.voltage, tt.tier)
			require.NoError(t, err)
			assert.Equal(t, tt.status, g.ComplianceStatus)
			assert.Equal(t, tt.urgency, g.Urgency)
			assert.InDelta(t, tt.deficit, g.DeficitFt, 1e-9)
			assert.NotEmpty(t, g.Recommendation)
		})
	}
}

func TestComplianceGap_Recommendation(t *testing.T) {
	g, err := regulation.ComplianceGap(5, "TRANSMISSION", "TIER_3")
	require.NoError(t, err)
	assert.Equal(t, "IMMEDIATE ACTION REQUIRED: 10.0ft deficit in Tier 3 fire area. Schedule emergency trim within 7 days.", g.Recommendation)

	g, err = regulation.ComplianceGap(30, "TRANSMISSION", "TIER_3")
	require.NoError(t, err)
	assert.Equal(t, "Clearance meets GO95 requirements. Continue routine monitoring.", g.Recommendation)
}

func TestComplianceGap_UnknownVoltage(t *testing.T) {
	_, err := regulation.ComplianceGap(3, "1MV", "TIER_3")
	assert.ErrorIs(t, err, regulation.ErrNoRequirement)
}

func TestSpeciesInfo(t *testing.T) {
	s := regulation.SpeciesInfo("eucalyptus")
	assert.Equal(t, "EUCALYPTUS", s.Species)
	assert.Equal(t, 6.0, s.GrowthRateFtYr)
	assert.Equal(t, "EXTREME", s.FireRisk)
	assert.False(t, s.IsEstimated)

	u := regulation.SpeciesInfo("douglas fir")
	assert.Equal(t, "DOUGLAS_FIR", u.Species)
	assert.True(t, u.IsEstimated)
	assert.Equal(t, 2.5, u.GrowthRateFtYr)
	assert.Equal(t, "Limited data for douglas fir. Using default growth assumptions.", u.ManagementNotes)
}

func TestVoltageClasses(t *testing.T) {
	vcs := regulation.VoltageClasses()
	assert.Len(t, vcs, 9)
	assert.Contains(t, vcs, "TRANSMISSION")
}
