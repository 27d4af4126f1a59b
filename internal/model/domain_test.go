package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-grid/vigil/internal/model"
)

func TestTrimBand(t *testing.T) {
	assert.Equal(t, model.BandEmergency, model.TrimBand("CRITICAL"))
	assert.Equal(t, model.BandUrgent, model.TrimBand("HIGH"))
	assert.Equal(t, model.BandStandard, model.TrimBand("MEDIUM"))
	assert.Equal(t, model.BandRoutine, model.TrimBand("LOW"))
	assert.Equal(t, model.BandRoutine, model.TrimBand(""))
}

func TestWorkOrderBand(t *testing.T) {
	for prio, band := range map[string]string{
		"EMERGENCY": model.BandEmergency,
		"URGENT":    model.BandUrgent,
		"HIGH":      model.BandUrgent,
		"MEDIUM":    model.BandStandard,
		"LOW":       model.BandRoutine,
	} {
		assert.Equal(t, band, model.WorkOrder{Priority: prio}.Band(), prio)
	}
}

func TestSummarizeVegetation(t *testing.T) {
	s := model.SummarizeVegetation([]model.Encroachment{
		{TrimPriority: "CRITICAL", EstimatedTrimCost: 1000, CurrentClearanceFt: 2},
		{TrimPriority: "HIGH", EstimatedTrimCost: 500, CurrentClearanceFt: 4},
		{TrimPriority: "LOW", EstimatedTrimCost: 100, CurrentClearanceFt: 12},
	})
	assert.Equal(t, 3, s.TotalEncroachments)
	assert.Equal(t, 1, s.Critical)
	assert.Equal(t, 1, s.HighPriority)
	assert.Equal(t, 2, s.OutOfCompliance)
	assert.InDelta(t, 1600, s.TotalTrimCost, 1e-9)
	assert.InDelta(t, 6, s.AvgClearanceFt, 1e-9)

	empty := model.SummarizeVegetation(nil)
	assert.Zero(t, empty.AvgClearanceFt)
}

func TestSummarizeWorkOrders(t *testing.T) {
	now := day(2026, time.October, 16)
	past := day(2026, time.October, 1)
	future := day(2026, time.November, 1)
	s := model.SummarizeWorkOrders([]model.WorkOrder{
		{Status: model.StatusPending, ScheduledDate: &past},
		{Status: model.StatusScheduled, ScheduledDate: &future},
		{Status: model.StatusInProgress, ScheduledDate: &past},
		{Status: model.StatusCompleted, ScheduledDate: &past},
	}, now)
	assert.Equal(t, model.WorkOrderSummary{Total: 4, Open: 2, InProgress: 1, Completed: 1, Overdue: 2}, s)
}

func TestWorkOrderOverdue_SameDayIsNotOverdue(t *testing.T) {
	today := time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)
	w := model.WorkOrder{Status: model.StatusPending, ScheduledDate: &today}
	assert.False(t, w.Overdue(day(2026, time.October, 16)))
	assert.False(t, model.WorkOrder{Status: model.StatusPending}.Overdue(today))
}

func TestCreateWorkOrderRequest_WithDefaults(t *testing.T) {
	now := day(2026, time.October, 16)
	r, err := model.CreateWorkOrderRequest{AssetID: " AST-00001 ", Priority: "high"}.WithDefaults(now)
	require.NoError(t, err)
	assert.Equal(t, "AST-00001", r.AssetID)
	assert.Equal(t, model.DefaultWorkOrderType, r.WorkOrderType)
	assert.Equal(t, "HIGH", r.Priority)
	assert.Equal(t, "2026-10-16", r.ScheduledDate)

	r, err = model.CreateWorkOrderRequest{AssetID: "AST-1"}.WithDefaults(now)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultWorkOrderPrio, r.Priority)
}

func TestCreateWorkOrderRequest_Invalid(t *testing.T) {
	now := day(2026, time.October, 16)
	cases := map[string]model.CreateWorkOrderRequest{
		"missing asset":  {},
		"negative cost":  {AssetID: "A", EstimatedCost: -1},
		"bad date":       {AssetID: "A", ScheduledDate: "10/16/2026"},
		"long narrative": {AssetID: "A", Description: strings.Repeat("x", model.MaxWorkOrderDescLen+1)},
	}
	for name, req := range cases {
		_, err := req.WithDefaults(now)
		assert.Error(t, err, name)
	}
}

func TestWorkOrderID(t *testing.T) {
	assert.Equal(t, "WO-20261016153000", model.WorkOrderID(day(2026, time.October, 16)))
}

func TestCorrelateAMI(t *testing.T) {
	readings := []model.AMIReading{
		{AssetID: "A", VoltageDipFlag: true, RainCorrelatedDip: true},
		{AssetID: "A", VoltageDipFlag: true, RainCorrelatedDip: true},
		{AssetID: "A", VoltageDipFlag: true},
		{AssetID: "B", VoltageDipFlag: true},
		{AssetID: "B", VoltageDipFlag: true, RainCorrelatedDip: true},
		{AssetID: "C"},
	}
	out, summary := model.CorrelateAMI(readings)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].AssetID)
	assert.InDelta(t, 66.666, out[0].CorrelationPct, 0.01)
	assert.Equal(t, 3, out[0].TotalReadings)
	assert.Equal(t, "B", out[1].AssetID)
	assert.InDelta(t, 50, out[1].CorrelationPct, 1e-9)

	assert.Equal(t, 3, summary.TotalAssetsAnalyzed)
	assert.Equal(t, 1, summary.AssetsWithHighCorrelation)
	assert.Equal(t, 6, summary.TotalReadings)
}

func TestAssetPredictionsRequest_Normalize(t *testing.T) {
	ids := make([]string, 0, 600)
	ids = append(ids, "  ", "AST-1 ")
	for range 598 {
		ids = append(ids, "AST-X")
	}
	out := model.AssetPredictionsRequest{AssetIDs: ids}.Normalize()
	assert.Len(t, out, model.MaxAssetPredictionIDs)
	assert.Equal(t, "AST-1", out[0])
}

func TestChatRequest_Validate(t *testing.T) {
	assert.Error(t, model.ChatRequest{Message: "   "}.Validate())
	assert.Error(t, model.ChatRequest{Message: strings.Repeat("a", model.MaxChatMessageLen+1)}.Validate())
	assert.NoError(t, model.ChatRequest{Message: "fire season?"}.Validate())

	r := model.ChatRequest{Context: map[string]any{"region": "NORCAL", "n": 3}}
	assert.Equal(t, "NORCAL", r.ContextString("region"))
	assert.Empty(t, r.ContextString("n"))
}

func TestFeatureImportanceFor(t *testing.T) {
	fi, ok := model.FeatureImportanceFor("Cable-Failure")
	require.True(t, ok)
	assert.Equal(t, "cable_failure", fi.Model)
	assert.Equal(t, "Water Treeing Detector", fi.ModelName)
	require.Len(t, fi.Features, 6)
	assert.Equal(t, "Rain-Voltage Correlation", fi.Features[0].Name)
	assert.NotEmpty(t, fi.DiscoveryNote)

	var total float64
	for _, f := range fi.Features {
		total += f.Importance
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	_, ok = model.FeatureImportanceFor("weather")
	assert.False(t, ok)
	assert.Equal(t, []string{"asset_health", "cable_failure", "ignition_risk", "vegetation_growth"}, model.ModelNames())
}

func TestNewFeatureCollection(t *testing.T) {
	fc := model.NewFeatureCollection([]model.MapAsset{
		{AssetID: "AST-1", Latitude: 38.5, Longitude: -121.5, RiskScore: 72, FireThreatDistrict: "TIER_3"},
	})
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	assert.Equal(t, [2]float64{-121.5, 38.5}, f.Geometry.Coordinates)
	assert.Equal(t, "TIER_3", f.Properties["fire_district"])
	assert.Equal(t, "AST-1", f.Properties["asset_id"])
}

func TestModelCatalog(t *testing.T) {
	cat := model.ModelCatalog(model.ModelCounts{HealthTotal: 10, HealthCritical: 2, CableAtRisk: 4})
	require.Len(t, cat, 4)
	assert.Equal(t, 10, cat["asset_health"].TotalPredictions)
	require.NotNil(t, cat["asset_health"].CriticalCount)
	assert.Equal(t, 2, *cat["asset_health"].CriticalCount)
	assert.True(t, cat["cable_failure"].HiddenDiscovery)
	assert.Nil(t, cat["cable_failure"].HighRiskCount)
}
