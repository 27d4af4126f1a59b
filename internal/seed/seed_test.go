package seed_test

import (
	"context"
	"fmt"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/search"
	"github.com/vigil-grid/vigil/internal/seed"
	"github.com/vigil-grid/vigil/internal/service/embedding"
	"github.com/vigil-grid/vigil/internal/storage"
	"github.com/vigil-grid/vigil/internal/testutil"
)

var (
	testDB  *storage.DB
	seedNow = time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC)
)

func TestMain(m *testing.M) {
	tc, err := testutil.StartPostgres()
	if err != nil {
		fmt.Fprintln(os.Stderr, "seed: skipping integration tests:", err)
		os.Exit(m.Run())
	}

	ctx := context.Background()
	testDB, err = tc.NewTestDB(ctx, testutil.TestLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create DB: %v\n", err)
		tc.Terminate()
		os.Exit(1)
	}

	code := m.Run()

	testDB.Close(ctx)
	tc.Terminate()
	os.Exit(code)
}

// smallProfile shrinks the default grid so tests stay fast.
func smallProfile(t *testing.T) seed.Profile {
	t.Helper()
	p, err := seed.DefaultProfile()
	require.NoError(t, err)
	for i := range p.Regions {
		p.Regions[i].Assets = 60
	}
	p.AMIDays = 20
	p.HistoricalWorkOrders = 25
	p.OpenWorkOrderLimit = 10
	return p
}

func TestDefaultProfile(t *testing.T) {
	p, err := seed.DefaultProfile()
	require.NoError(t, err)

	assert.Equal(t, uint64(42), p.Seed)
	assert.Equal(t, 5000, p.TotalAssets())
	require.Len(t, p.Regions, 5)
	codes := make([]string, len(p.Regions))
	for i, r := range p.Regions {
		codes[i] = r.Code
	}
	assert.Equal(t, []string{"NORCAL", "SOCAL", "PNW", "SOUTHWEST", "MOUNTAIN"}, codes)
	assert.Len(t, p.Regions[0].Locations, 5)
	assert.Equal(t, "Paradise Zone", p.Regions[0].Locations[2].Name)
	assert.Equal(t, 90, p.AMIDays)
}

func TestParseProfile_Invalid(t *testing.T) {
	_, err := seed.ParseProfile([]byte(`
seed: 1
regions:
  - code: NORCAL
    assets: 0
    tiers: {TIER_9: 1.0}
    locations: []
`))
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "no voltage classes")
	assert.Contains(t, msg, "no asset types")
	assert.Contains(t, msg, "region NORCAL: assets must be positive")
	assert.Contains(t, msg, "region NORCAL: no locations")
	assert.Contains(t, msg, `unknown tier "TIER_9"`)
}

func TestParseProfile_Malformed(t *testing.T) {
	_, err := seed.ParseProfile([]byte("regions: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed: parse profile")
}

func TestLoadProfile_MissingFile(t *testing.T) {
	_, err := seed.LoadProfile("/nonexistent/profile.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGenerateIsDeterministic(t *testing.T) {
	p := smallProfile(t)

	a := seed.Generate(p, seedNow)
	b := seed.Generate(p, seedNow)
	assert.Equal(t, a, b)

	p.Seed = 7
	c := seed.Generate(p, seedNow)
	assert.NotEqual(t, a.Assets, c.Assets)
}

func TestGenerateInvariants(t *testing.T) {
	p := smallProfile(t)
	ds := seed.Generate(p, seedNow)

	assert.Len(t, ds.Locations, 22)
	assert.InDelta(t, p.TotalAssets(), len(ds.Assets), float64(p.TotalAssets())/4)

	circuits := map[string]seed.CircuitRow{}
	for _, c := range ds.Circuits {
		circuits[c.CircuitID] = c
	}
	assets := map[string]seed.AssetRow{}
	cables := 0
	for _, a := range ds.Assets {
		require.NotContains(t, assets, a.AssetID, "asset ids are unique")
		assets[a.AssetID] = a

		c, ok := circuits[a.CircuitID]
		require.True(t, ok, "asset %s references a known circuit", a.AssetID)
		assert.Equal(t, c.VoltageClass, a.VoltageClass)
		assert.Equal(t, c.FireThreatDistrict, a.Tier)
		assert.GreaterOrEqual(t, a.ConditionScore, 0.05)
		assert.LessOrEqual(t, a.ConditionScore, 1.0)
		assert.GreaterOrEqual(t, a.RiskScore, 0.0)
		assert.LessOrEqual(t, a.RiskScore, 1.0)
		if a.AssetType == "CABLE_UNDERGROUND" {
			cables++
			assert.NotEmpty(t, a.MoistureExposure)
			assert.Empty(t, a.WindExposure)
		}
	}
	require.Positive(t, cables)
	assert.Len(t, ds.Risk, len(ds.Assets))

	for _, v := range ds.Vegetation {
		a := assets[v.AssetID]
		assert.Contains(t, []string{"POLE", "CONDUCTOR"}, a.AssetType)
		if v.CurrentClearanceFt < v.RequiredClearanceFt*0.5 {
			assert.Equal(t, model.ComplianceCritical, v.ComplianceStatus)
			assert.Equal(t, model.RiskCritical, v.TrimPriority)
		}
		if v.CurrentClearanceFt >= v.RequiredClearanceFt {
			assert.Zero(t, v.ClearanceDeficitFt)
		}
	}

	assert.Len(t, ds.AMI, cables*p.AMIDays)
	for _, r := range ds.AMI {
		if !r.RainCorrelatedDip {
			continue
		}
		a := assets[r.AssetID]
		assert.Equal(t, "XLPE", a.Material)
		assert.GreaterOrEqual(t, a.AgeYears, 15.0)
		assert.LessOrEqual(t, a.AgeYears, 25.0)
		assert.Contains(t, []string{"MEDIUM", "HIGH"}, a.MoistureExposure)
		assert.Greater(t, r.RainfallMM, 10.0)
		assert.True(t, r.VoltageDipFlag)
	}

	assert.Len(t, ds.Cable, cables)
	for _, c := range ds.Cable {
		if c.PredictedWaterTreeing == 1 {
			assert.Equal(t, "XLPE", c.Material)
			assert.Equal(t, model.RiskHigh, c.RiskLevel)
		}
	}
	assert.Len(t, ds.Ignition, len(ds.Assets)-cables)
	assert.Len(t, ds.Health, len(ds.Assets))
	assert.Len(t, ds.Growth, len(ds.Vegetation))
	assert.Len(t, ds.Combined, len(ds.Assets))

	open := 0
	for _, w := range ds.WorkOrders {
		if w.Status == model.StatusCompleted {
			assert.NotNil(t, w.CompletedDate)
			continue
		}
		open++
		assert.Contains(t, []string{"EMERGENCY", "URGENT"}, w.Priority)
		assert.Contains(t, model.OpenStatuses, w.Status)
		assert.NotEmpty(t, w.SpeciesTarget)
		assert.Equal(t, w.Status == model.StatusPending, w.ScheduledDate == nil)
	}
	assert.LessOrEqual(t, open, p.OpenWorkOrderLimit)
	assert.Len(t, ds.WorkOrders, p.HistoricalWorkOrders+open)

	assert.Len(t, ds.Weather, len(p.Regions)*p.ForecastDays)
	for _, w := range ds.Weather {
		if w.RedFlagWarning {
			assert.Greater(t, w.WindSpeedMPH, 40.0)
		}
	}
}

func TestTablesHaveOneValuePerColumn(t *testing.T) {
	ds := seed.Generate(smallProfile(t), seedNow)
	tables := ds.Tables()
	require.Len(t, tables, 13)
	assert.Equal(t, "location", tables[0].Name, "parents load first")
	for _, tbl := range tables {
		require.NotEmpty(t, tbl.Rows, tbl.Name)
		for _, row := range tbl.Rows {
			require.Len(t, row, len(tbl.Columns), tbl.Name)
		}
	}
}

func TestDocuments(t *testing.T) {
	p := smallProfile(t)
	ds := seed.Generate(p, seedNow)
	docs := ds.Documents(p)

	for _, corpus := range model.Corpora {
		assert.Contains(t, docs, corpus)
	}
	go95 := docs[model.CorpusGO95]
	assert.Len(t, go95, 7)
	assert.Contains(t, go95[len(go95)-4].Content, "4KV: 4.0 feet", "tier 3 table lists voltage classes")

	assert.Len(t, docs[model.CorpusWorkOrders], len(ds.WorkOrders))
	for corpus, list := range docs {
		titles := make([]string, 0, len(list))
		for _, d := range list {
			assert.NotEmpty(t, d.Content, corpus)
			titles = append(titles, d.Title)
		}
		slices.Sort(titles)
		assert.Len(t, slices.Compact(titles), len(list), "titles are unique in %s", corpus)
	}
}

func TestSeederRun(t *testing.T) {
	if testDB == nil {
		t.Skip("integration database unavailable")
	}
	ctx := context.Background()
	p := smallProfile(t)
	ds := seed.Generate(p, seedNow)

	indexer := search.NewIndexer(testDB, embedding.NewNoopProvider(1024), testutil.TestLogger())
	seeder := seed.New(testDB, indexer, testutil.TestLogger())
	sum, err := seeder.Run(ctx, p, seedNow)
	require.NoError(t, err)

	assert.Equal(t, int64(len(ds.Assets)), sum.Rows["asset"])
	assert.Equal(t, int64(len(ds.AMI)), sum.Rows["ami_reading"])
	assert.Equal(t, int64(len(ds.Combined)), sum.Rows["ml.combined_risk_summary"])
	assert.Equal(t, 7, sum.Documents[model.CorpusGO95].Upserted)

	var n int
	require.NoError(t, testDB.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM asset`).Scan(&n))
	assert.Equal(t, len(ds.Assets), n, "fixture rows are replaced")

	a, err := testDB.GetAsset(ctx, ds.Assets[0].AssetID)
	require.NoError(t, err)
	assert.Equal(t, ds.Assets[0].CircuitID, a.CircuitID)
	assert.Equal(t, ds.Risk[0].RiskTier, a.RiskTier)

	found, err := testDB.SearchDocumentsText(ctx, model.CorpusGO95, "Tier 3", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, found)

	// A second run replaces rather than duplicates.
	_, err = seeder.Run(ctx, p, seedNow)
	require.NoError(t, err)
	require.NoError(t, testDB.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM asset`).Scan(&n))
	assert.Equal(t, len(ds.Assets), n)
}
