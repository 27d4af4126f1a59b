// Package seed generates a deterministic synthetic utility grid and loads it
// into the warehouse: locations, circuits, assets, risk assessments,
// vegetation encroachments, work orders, smart meter readings, weather
// forecasts, ML prediction tables and the retrieval corpora.
package seed

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/regulation"
)

const (
	cableType       = "CABLE_UNDERGROUND"
	nominalVoltage  = 120.0
	rainEventMM     = 10.0
	rainProbability = 0.25
	fallbackClearFt = 4.0
)

var (
	overheadTypes  = []string{"POLE", "CONDUCTOR"}
	moistureLevels = []string{"LOW", "MEDIUM", "HIGH"}
	inspectCycles  = []int{12, 24, 36, 60}
	openStatuses   = []string{model.StatusPending, model.StatusScheduled, model.StatusInProgress}
	historicalKind = []string{
		model.DefaultWorkOrderType, model.DefaultWorkOrderType, model.DefaultWorkOrderType,
		"INSPECTION", "REPAIR", "REPLACEMENT",
	}
)

// Added to the composite risk score by fire threat tier.
var tierRisk = map[string]float64{
	model.TierThree: 0.25,
	model.TierTwo:   0.15,
	model.TierOne:   0.05,
	model.NonHFTD:   0,
}

// Scales composite risk into ignition probability by fire threat tier.
var tierIgnition = map[string]float64{
	model.TierThree: 1.0,
	model.TierTwo:   0.85,
	model.TierOne:   0.6,
	model.NonHFTD:   0.4,
}

var fuelLoad = map[string]float64{"LOW": 0.2, "MEDIUM": 0.4, "HIGH": 0.7, "VERY_HIGH": 0.9}

var terrainFactor = map[string]float64{"FLAT": 0.2, "HILLY": 0.5, "CANYON": 0.7, "MOUNTAINOUS": 0.9}

var windFactor = map[string]float64{"LOW": 0.2, "MEDIUM": 0.5, "HIGH": 0.8}

// LocationRow is a row of the location table. FireThreatTier and
// VegDensity drive generation and are not stored.
type LocationRow struct {
	LocationID     string
	Region         string
	County         string
	City           string
	ZipCode        string
	Latitude       float64
	Longitude      float64
	ElevationFt    float64
	TerrainType    string
	LandUse        string
	FireThreatTier string
	VegDensity     string
}

// CircuitRow is a row of the circuit table.
type CircuitRow struct {
	model.Circuit
	LocationID string
	LastTrim   time.Time
}

// AssetRow is a row of the asset table. Region, Tier and RiskScore are
// carried for the dependent tables.
type AssetRow struct {
	AssetID               string
	CircuitID             string
	LocationID            string
	AssetType             string
	AssetSubtype          string
	Material              string
	Manufacturer          string
	ModelNumber           string
	VoltageClass          string
	InstallationDate      time.Time
	AgeYears              float64
	ConditionScore        float64
	LastInspectionDate    time.Time
	NextInspectionDue     time.Time
	InspectionCycleMonths int
	ReplacementCost       float64
	CriticalityFactor     float64
	MoistureExposure      string
	WindExposure          string

	Region    string
	Tier      string
	RiskScore float64

	circuit  int
	location int
}

// RiskRow is a row of the risk_assessment table.
type RiskRow struct {
	AssessmentID           string
	AssetID                string
	AssessmentDate         time.Time
	FireRiskScore          float64
	IgnitionProbability    float64
	ConsequenceScore       float64
	WindExposureFactor     float64
	FuelLoadFactor         float64
	TerrainFactor          float64
	AccessDifficultyFactor float64
	CompositeRiskScore     float64
	RiskTier               string
	AssessedBy             string
	AssessmentMethod       string
}

// EncroachmentRow is a row of the vegetation_encroachment table.
type EncroachmentRow struct {
	model.Encroachment
	InspectionDate time.Time
	LastTrimDate   time.Time
}

// WorkOrderRow is a row of the work_order table.
type WorkOrderRow struct {
	model.WorkOrder
	SpeciesTarget string
	CreatedBy     string
	CreatedSource string
	CreatedDate   time.Time
}

// ForecastRow is a row of the weather_forecast table.
type ForecastRow struct {
	ForecastID string
	model.WeatherForecast
}

// Dataset is one generated grid.
type Dataset struct {
	GeneratedAt time.Time
	Locations   []LocationRow
	Circuits    []CircuitRow
	Assets      []AssetRow
	Risk        []RiskRow
	Vegetation  []EncroachmentRow
	WorkOrders  []WorkOrderRow
	AMI         []model.AMIReading
	Weather     []ForecastRow
	Health      []model.AssetHealthPrediction
	Growth      []model.VegetationGrowthPrediction
	Ignition    []model.IgnitionRiskPrediction
	Cable       []model.CableFailurePrediction
	Combined    []model.CombinedRisk
}

// amiStats summarizes one cable's meter readings.
type amiStats struct {
	dips       int
	rainEvents int
	rainDips   int
}

type generator struct {
	p     Profile
	rng   *rand.Rand
	now   time.Time
	today time.Time
	ds    *Dataset

	deficit map[string]float64
	cables  map[string]*amiStats
}

// Generate builds a dataset from p. The same profile and now always yield
// the same dataset.
func Generate(p Profile, now time.Time) *Dataset {
	now = now.UTC()
	g := &generator{
		p:       p,
		rng:     rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15)),
		now:     now,
		today:   time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		ds:      &Dataset{GeneratedAt: now},
		deficit: map[string]float64{},
		cables:  map[string]*amiStats{},
	}
	g.locations()
	g.circuits()
	g.assets()
	g.assessments()
	g.vegetation()
	g.amiReadings()
	g.workOrders()
	g.weather()
	g.predictions()
	return g.ds
}

// --- random helpers ---

func (g *generator) uniform(lo, hi float64) float64 { return lo + g.rng.Float64()*(hi-lo) }

// intn returns an int in [lo, hi].
func (g *generator) intn(lo, hi int) int { return lo + g.rng.IntN(hi-lo+1) }

func (g *generator) chance(p float64) bool { return g.rng.Float64() < p }

func (g *generator) pick(s []string) string { return s[g.rng.IntN(len(s))] }

func (g *generator) weighted(names []string, weights []float64) string {
	var total float64
	for _, w := range weights {
		total += w
	}
	x := g.rng.Float64() * total
	for i, w := range weights {
		if x < w {
			return names[i]
		}
		x -= w
	}
	return names[len(names)-1]
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

func clamp(x, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, x)) }

// tierWeights orders a region's tier distribution most severe first so
// draws do not depend on map iteration.
func tierWeights(tiers map[string]float64) ([]string, []float64) {
	norm := make(map[string]float64, len(tiers))
	for k, v := range tiers {
		norm[regulation.NormalizeTier(k)] += v
	}
	var names []string
	var weights []float64
	for _, t := range regulation.Tiers() {
		if w, ok := norm[t]; ok {
			names = append(names, t)
			weights = append(weights, w)
		}
	}
	return names, weights
}

// --- warehouse tables ---

func (g *generator) locations() {
	n := 1
	for _, r := range g.p.Regions {
		names, weights := tierWeights(r.Tiers)
		for _, loc := range r.Locations {
			g.ds.Locations = append(g.ds.Locations, LocationRow{
				LocationID:     fmt.Sprintf("LOC-%04d", n),
				Region:         r.Code,
				County:         strings.Fields(loc.Name)[0],
				City:           loc.Name,
				ZipCode:        fmt.Sprintf("%05d", g.intn(10000, 99999)),
				Latitude:       loc.Lat,
				Longitude:      loc.Lon,
				ElevationFt:    round(g.elevation(loc.Terrain), 0),
				TerrainType:    loc.Terrain,
				LandUse:        landUse(loc.VegDensity),
				FireThreatTier: g.weighted(names, weights),
				VegDensity:     loc.VegDensity,
			})
			n++
		}
	}
}

func (g *generator) elevation(terrain string) float64 {
	switch terrain {
	case "MOUNTAINOUS":
		return g.uniform(2000, 8000)
	case "HILLY":
		return g.uniform(500, 3000)
	case "CANYON":
		return g.uniform(300, 2500)
	default:
		return g.uniform(100, 1500)
	}
}

func landUse(vegDensity string) string {
	switch vegDensity {
	case "VERY_HIGH", "HIGH":
		return "WILDLAND_URBAN_INTERFACE"
	case "MEDIUM":
		return "SUBURBAN"
	default:
		return "URBAN"
	}
}

func (g *generator) circuits() {
	names := make([]string, len(g.p.VoltageClasses))
	weights := make([]float64, len(g.p.VoltageClasses))
	for i, vc := range g.p.VoltageClasses {
		names[i], weights[i] = vc.Name, vc.Weight
	}

	n := 1
	for li, loc := range g.ds.Locations {
		count := g.intn(3, 6)
		for i := range count {
			miles := round(g.uniform(5, 30), 2)
			customers := int(miles * g.uniform(50, 200))
			g.ds.Circuits = append(g.ds.Circuits, CircuitRow{
				Circuit: model.Circuit{
					CircuitID:                fmt.Sprintf("CKT-%05d", n),
					CircuitName:              fmt.Sprintf("%s Feeder %d", loc.City, i+1),
					SubstationName:           loc.City + " Substation",
					VoltageClass:             g.weighted(names, weights),
					CircuitMiles:             miles,
					TotalCustomers:           customers,
					FireThreatDistrict:       loc.FireThreatTier,
					PSPSEligible:             loc.FireThreatTier == model.TierThree || loc.FireThreatTier == model.TierTwo,
					CriticalFacilities:       g.intn(0, 4),
					MedicalBaselineCustomers: int(float64(customers) * g.uniform(0.02, 0.06)),
					Region:                   loc.Region,
				},
				LocationID: g.ds.Locations[li].LocationID,
				LastTrim:   g.today.AddDate(0, 0, -g.intn(0, 1460)),
			})
			n++
		}
	}
}

func (g *generator) assets() {
	perRegion := map[string]int{}
	for _, c := range g.ds.Circuits {
		perRegion[c.Region]++
	}
	target := map[string]int{}
	for _, r := range g.p.Regions {
		target[r.Code] = r.Assets
	}

	typeNames := make([]string, len(g.p.AssetTypes))
	typeWeights := make([]float64, len(g.p.AssetTypes))
	for i, at := range g.p.AssetTypes {
		typeNames[i], typeWeights[i] = at.Type, at.Weight
	}

	// Each circuit takes an even share of its region's target, remainder spread.
	seen := map[string]int{}
	n := 1
	for ci, c := range g.ds.Circuits {
		li := slices.IndexFunc(g.ds.Locations, func(l LocationRow) bool { return l.LocationID == c.LocationID })
		loc := g.ds.Locations[li]

		k, total := seen[c.Region], perRegion[c.Region]
		seen[c.Region]++
		share := target[c.Region]*(k+1)/total - target[c.Region]*k/total
		jitter := share / 5
		count := max(1, share+g.intn(-jitter, jitter))

		for range count {
			name := g.weighted(typeNames, typeWeights)
			at := g.p.AssetTypes[slices.IndexFunc(g.p.AssetTypes, func(t AssetType) bool { return t.Type == name })]

			a := AssetRow{
				AssetID:      fmt.Sprintf("AST-%06d", n),
				CircuitID:    c.CircuitID,
				LocationID:   c.LocationID,
				AssetType:    at.Type,
				AssetSubtype: g.pick(at.Subtypes),
				Manufacturer: g.pick(g.p.Manufacturers),
				ModelNumber:  fmt.Sprintf("Model-%d", g.intn(100, 999)),
				VoltageClass: c.VoltageClass,
				Region:       c.Region,
				Tier:         c.FireThreatDistrict,
				circuit:      ci,
				location:     li,
			}

			var age int
			if at.Type == cableType {
				age = g.intn(5, 35)
				a.Material = g.p.Insulation[g.rng.IntN(len(g.p.Insulation))].Type
				a.MoistureExposure = g.pick(moistureLevels)
			} else {
				age = g.intn(3, 50)
				if len(at.Materials) > 0 {
					a.Material = g.pick(at.Materials)
				}
				a.WindExposure = windExposure(loc.TerrainType)
			}
			a.AgeYears = float64(age)
			a.InstallationDate = g.today.AddDate(-age, 0, -g.rng.IntN(365))
			a.ConditionScore = round(clamp(1-a.AgeYears/60+g.uniform(-0.15, 0.15), 0.05, 1), 2)
			a.LastInspectionDate = g.today.AddDate(0, 0, -g.intn(30, 365))
			a.InspectionCycleMonths = inspectCycles[g.rng.IntN(len(inspectCycles))]
			a.NextInspectionDue = a.LastInspectionDate.AddDate(0, a.InspectionCycleMonths, 0)
			a.ReplacementCost = round(g.uniform(at.Cost[0], at.Cost[1]), 0)

			criticality := g.uniform(0.8, 1.5)
			if c.CriticalFacilities > 0 {
				criticality += 0.2
			}
			a.CriticalityFactor = round(criticality, 2)

			risk := a.AgeYears/50*0.35 + (1-a.ConditionScore)*0.35 + tierRisk[a.Tier] + g.uniform(-0.1, 0.1)
			a.RiskScore = round(clamp(risk, 0, 1), 3)

			g.ds.Assets = append(g.ds.Assets, a)
			n++
		}
	}
}

func windExposure(terrain string) string {
	switch terrain {
	case "MOUNTAINOUS", "CANYON":
		return "HIGH"
	case "HILLY":
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func riskTier(score float64) string {
	switch {
	case score >= 0.8:
		return model.RiskCritical
	case score >= 0.6:
		return model.RiskHigh
	case score >= 0.4:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

func (g *generator) assessments() {
	for i, a := range g.ds.Assets {
		c := g.ds.Circuits[a.circuit]
		loc := g.ds.Locations[a.location]

		wind := 0.1
		if a.WindExposure != "" {
			wind = windFactor[a.WindExposure]
		}
		fuel := fuelLoad[loc.VegDensity]
		ignition := round(clamp(a.RiskScore*tierIgnition[a.Tier]*g.uniform(0.85, 1.15), 0, 1), 3)
		consequence := clamp(float64(c.TotalCustomers)/6000+0.1*float64(c.CriticalFacilities), 0, 1)

		g.ds.Risk = append(g.ds.Risk, RiskRow{
			AssessmentID:           fmt.Sprintf("RA-%06d", i+1),
			AssetID:                a.AssetID,
			AssessmentDate:         g.today,
			FireRiskScore:          round(clamp(0.5*ignition+0.3*fuel+0.2*wind, 0, 1), 3),
			IgnitionProbability:    ignition,
			ConsequenceScore:       round(consequence, 3),
			WindExposureFactor:     wind,
			FuelLoadFactor:         fuel,
			TerrainFactor:          terrainFactor[loc.TerrainType],
			AccessDifficultyFactor: round(terrainFactor[loc.TerrainType]*g.uniform(0.7, 1.0), 3),
			CompositeRiskScore:     a.RiskScore,
			RiskTier:               riskTier(a.RiskScore),
			AssessedBy:             "VIGIL_RISK_MODEL",
			AssessmentMethod:       "ML_ENSEMBLE",
		})
	}
}

func (g *generator) vegetation() {
	n := 1
	for _, a := range g.ds.Assets {
		if !slices.Contains(overheadTypes, a.AssetType) || !g.chance(g.p.VegetationCoverage) {
			continue
		}
		c := g.ds.Circuits[a.circuit]

		candidates := g.p.speciesFor(a.Region)
		sp := SpeciesGrowth{Name: "BRUSH", GrowthRateFt: 4.0}
		if len(candidates) > 0 {
			sp = candidates[g.rng.IntN(len(candidates))]
		}

		required := fallbackClearFt
		if req, err := regulation.ClearanceRequirement(a.VoltageClass, a.Tier); err == nil {
			required = req.RequiredClearanceFt
		}

		daily := sp.GrowthRateFt / 365
		sinceTrim := g.today.Sub(c.LastTrim).Hours() / 24
		postTrim := required + g.uniform(2, 8)
		current := round(math.Max(0.5, postTrim-daily*sinceTrim+g.uniform(-2, 2)), 2)

		e := model.Encroachment{
			EncroachmentID:      fmt.Sprintf("VEG-%06d", n),
			AssetID:             a.AssetID,
			Species:             sp.Name,
			TreeHeightFt:        round(g.uniform(20, 80), 1),
			CurrentClearanceFt:  current,
			RequiredClearanceFt: required,
			ClearanceDeficitFt:  round(math.Max(0, required-current), 2),
			GrowthRateFtYear:    sp.GrowthRateFt,
			StrikePotential:     strikePotential(current),
		}
		if daily > 0 {
			contact := int(current / daily)
			untilViolation := 0
			if current > required {
				untilViolation = int((current - required) / daily)
			}
			e.DaysToContact = &contact
			e.DaysUntilViolation = &untilViolation
		}
		e.ComplianceStatus = complianceStatus(current, required, e.DaysUntilViolation)
		e.TrimPriority = trimPriority(e.ComplianceStatus, a.Tier, e.DaysUntilViolation)
		e.EstimatedTrimCost = round(g.uniform(300, 2500)*(1+e.ClearanceDeficitFt/10), 0)

		g.ds.Vegetation = append(g.ds.Vegetation, EncroachmentRow{
			Encroachment:   e,
			InspectionDate: g.today.AddDate(0, 0, -g.intn(0, 180)),
			LastTrimDate:   c.LastTrim,
		})
		g.deficit[a.AssetID] = e.ClearanceDeficitFt
		n++
	}
}

func strikePotential(clearance float64) string {
	switch {
	case clearance < 4:
		return model.RiskHigh
	case clearance < 8:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

func complianceStatus(current, required float64, daysUntilViolation *int) string {
	switch {
	case current < required*0.5:
		return model.ComplianceCritical
	case current < required:
		return model.ComplianceNonCompliant
	case daysUntilViolation != nil && *daysUntilViolation <= 90:
		return model.ComplianceAtRisk
	default:
		return model.ComplianceCompliant
	}
}

func trimPriority(status, tier string, daysUntilViolation *int) string {
	hftd := tier == model.TierThree || tier == model.TierTwo
	switch {
	case status == model.ComplianceCritical, status == model.ComplianceNonCompliant && hftd:
		return model.RiskCritical
	case status == model.ComplianceNonCompliant:
		return model.RiskHigh
	case status == model.ComplianceAtRisk && daysUntilViolation != nil && *daysUntilViolation <= 30:
		return model.RiskHigh
	case status == model.ComplianceAtRisk:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// waterTreeingProne reports whether a cable matches the rain-correlated dip
// pattern: susceptible insulation aged 15 to 25 years in wet ground.
func (g *generator) waterTreeingProne(a AssetRow) bool {
	return g.susceptible(a.Material) && a.AgeYears >= 15 && a.AgeYears <= 25 &&
		(a.MoistureExposure == "MEDIUM" || a.MoistureExposure == "HIGH")
}

func (g *generator) susceptible(insulation string) bool {
	for _, ins := range g.p.Insulation {
		if ins.Type == insulation {
			return ins.WaterTreeingSusceptible
		}
	}
	return false
}

func (g *generator) amiReadings() {
	n := 1
	for _, a := range g.ds.Assets {
		if a.AssetType != cableType {
			continue
		}
		prone := g.waterTreeingProne(a)
		st := &amiStats{}
		g.cables[a.AssetID] = st
		meter := "MTR-" + strings.TrimPrefix(a.AssetID, "AST-")

		for d := range g.p.AMIDays {
			var rainfall float64
			if g.chance(rainProbability) {
				rainfall = round(g.uniform(rainEventMM, 50), 1)
			}
			base := nominalVoltage * g.uniform(0.98, 1.02)

			r := model.AMIReading{
				ReadingID:        fmt.Sprintf("AMI-%08d", n),
				AssetID:          a.AssetID,
				MeterID:          meter,
				ReadingTimestamp: g.today.Add(12*time.Hour).AddDate(0, 0, -d),
				Voltage:          round(base, 2),
				RainfallMM:       rainfall,
			}
			switch {
			case prone && rainfall > rainEventMM:
				r.Voltage = round(base*(1-g.uniform(2, 5)/100), 2)
				r.VoltageDipFlag = true
				r.RainCorrelatedDip = true
			case prone && g.chance(0.1):
				r.Voltage = round(base*(1-g.uniform(1, 2.5)/100), 2)
				r.VoltageDipFlag = true
			}

			if r.VoltageDipFlag {
				st.dips++
			}
			if r.RainfallMM > rainEventMM {
				st.rainEvents++
			}
			if r.RainCorrelatedDip {
				st.rainDips++
			}
			g.ds.AMI = append(g.ds.AMI, r)
			n++
		}
	}
}

func (g *generator) workOrders() {
	n := 1
	nextID := func() string {
		id := fmt.Sprintf("WO-%06d", n)
		n++
		return id
	}

	for range g.p.HistoricalWorkOrders {
		if len(g.ds.Assets) == 0 {
			break
		}
		a := g.ds.Assets[g.rng.IntN(len(g.ds.Assets))]
		kind := g.pick(historicalKind)
		completed := g.today.AddDate(0, 0, -g.intn(30, 730))
		scheduled := completed.AddDate(0, 0, -g.intn(1, 7))
		g.ds.WorkOrders = append(g.ds.WorkOrders, WorkOrderRow{
			WorkOrder: model.WorkOrder{
				WorkOrderID:    nextID(),
				AssetID:        a.AssetID,
				WorkOrderType:  kind,
				Priority:       g.pick([]string{model.RiskHigh, model.RiskMedium, model.RiskLow}),
				Status:         model.StatusCompleted,
				Description:    fmt.Sprintf("%s on %s", kindLabel(kind), a.AssetType),
				EstimatedCost:  round(g.uniform(500, 5000), 2),
				EstimatedHours: round(g.uniform(2, 16), 1),
				ScheduledDate:  &scheduled,
				CompletedDate:  &completed,
				AssignedCrew:   fmt.Sprintf("Crew-%d", g.intn(1, 20)),
			},
			CreatedBy:     "system",
			CreatedSource: "PATROL",
			CreatedDate:   scheduled.AddDate(0, 0, -g.intn(7, 30)),
		})
	}

	open := 0
	for _, v := range g.ds.Vegetation {
		if open >= g.p.OpenWorkOrderLimit {
			break
		}
		if v.ComplianceStatus != model.ComplianceCritical && v.ComplianceStatus != model.ComplianceNonCompliant {
			continue
		}
		priority := "URGENT"
		if v.ComplianceStatus == model.ComplianceCritical {
			priority = "EMERGENCY"
		}
		wo := WorkOrderRow{
			WorkOrder: model.WorkOrder{
				WorkOrderID:   nextID(),
				AssetID:       v.AssetID,
				WorkOrderType: model.DefaultWorkOrderType,
				Priority:      priority,
				Status:        g.pick(openStatuses),
				Description: fmt.Sprintf("Vegetation clearance - %s at %.1fft (required %.1fft)",
					v.Species, v.CurrentClearanceFt, v.RequiredClearanceFt),
				EstimatedCost:  round(g.uniform(500, 2000), 2),
				EstimatedHours: round(g.uniform(2, 8), 1),
			},
			SpeciesTarget: v.Species,
			CreatedBy:     "VIGIL_AI",
			CreatedSource: "VIGIL_AI",
			CreatedDate:   g.now,
		}
		if wo.Status != model.StatusPending {
			scheduled := g.today.AddDate(0, 0, g.intn(1, 14))
			wo.ScheduledDate = &scheduled
			wo.AssignedCrew = fmt.Sprintf("Crew-%d", g.intn(1, 20))
		}
		g.ds.WorkOrders = append(g.ds.WorkOrders, wo)
		open++
	}
}

func kindLabel(kind string) string {
	s := strings.ToLower(strings.ReplaceAll(kind, "_", " "))
	return strings.ToUpper(s[:1]) + s[1:]
}

func (g *generator) weather() {
	n := 1
	for _, r := range g.p.Regions {
		for d := range g.p.ForecastDays {
			fireWeather := g.chance(r.FireWeatherProb)
			wind, humidity := g.uniform(5, 20), g.uniform(30, 70)
			if fireWeather {
				wind, humidity = g.uniform(25, 60), g.uniform(5, 20)
			}
			wind = round(wind, 1)
			g.ds.Weather = append(g.ds.Weather, ForecastRow{
				ForecastID: fmt.Sprintf("WX-%06d", n),
				WeatherForecast: model.WeatherForecast{
					Region:         r.Code,
					ForecastDate:   g.today.AddDate(0, 0, d),
					WindSpeedMPH:   wind,
					HumidityPct:    round(humidity, 1),
					TemperatureF:   round(r.BaseTempF+g.uniform(-10, 10), 1),
					RedFlagWarning: fireWeather && wind > 40,
				},
			})
			n++
		}
	}
}

// --- ML prediction tables ---

func healthCondition(score float64) string {
	switch {
	case score < 30:
		return "CRITICAL"
	case score < 50:
		return "POOR"
	case score < 70:
		return "FAIR"
	default:
		return "GOOD"
	}
}

func levelFor(score, high, medium float64) string {
	switch {
	case score >= high:
		return model.RiskHigh
	case score >= medium:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

func maintenancePriority(score float64) string {
	switch {
	case score >= 0.7:
		return model.MaintenanceEmergency
	case score >= 0.5:
		return model.MaintenanceHigh
	case score >= 0.3:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

func (g *generator) predictions() {
	version := g.p.ModelVersion
	health := make(map[string]model.AssetHealthPrediction, len(g.ds.Assets))
	ignition := map[string]model.IgnitionRiskPrediction{}
	cable := map[string]model.CableFailurePrediction{}
	waterTreeingProb := map[string]float64{}

	for i, a := range g.ds.Assets {
		actual := round(a.ConditionScore*100, 1)
		predicted := round(clamp(actual+g.uniform(-8, 8)-a.AgeYears*0.1, 0, 100), 1)
		p := model.AssetHealthPrediction{
			PredictionID:         fmt.Sprintf("AHP-%06d", i+1),
			AssetID:              a.AssetID,
			AssetType:            a.AssetType,
			ActualHealthScore:    actual,
			PredictedHealthScore: predicted,
			HealthDelta:          round(predicted-actual, 1),
			ModelConfidence:      round(g.uniform(0.75, 0.95), 3),
			PredictedCondition:   healthCondition(predicted),
			PredictionDate:       g.now,
			ModelVersion:         version,
		}
		health[a.AssetID] = p
		g.ds.Health = append(g.ds.Health, p)
	}

	for i, v := range g.ds.Vegetation {
		rate := round(v.GrowthRateFtYear*g.uniform(0.85, 1.15), 2)
		p := model.VegetationGrowthPrediction{
			PredictionID:        fmt.Sprintf("VGP-%06d", i+1),
			EncroachmentID:      v.EncroachmentID,
			AssetID:             v.AssetID,
			Species:             v.Species,
			ActualGrowthRate:    v.GrowthRateFtYear,
			PredictedGrowthRate: rate,
			CurrentClearanceFt:  v.CurrentClearanceFt,
			GrowthRisk:          model.RiskLow,
			PredictionDate:      g.now,
			ModelVersion:        version,
		}
		if rate > 0 {
			days := round(v.CurrentClearanceFt/(rate/365), 1)
			p.PredictedDaysToContact = &days
			switch {
			case days < 90:
				p.GrowthRisk = model.RiskHigh
			case days < 365:
				p.GrowthRisk = model.RiskMedium
			}
		}
		g.ds.Growth = append(g.ds.Growth, p)
	}

	n := 1
	for i, a := range g.ds.Assets {
		if a.AssetType == cableType {
			continue
		}
		actual := g.ds.Risk[i].IgnitionProbability
		deficit := g.deficit[a.AssetID]
		predicted := round(clamp(actual*g.uniform(0.9, 1.1)+deficit*0.02, 0, 1), 3)
		p := model.IgnitionRiskPrediction{
			PredictionID:          fmt.Sprintf("IRP-%06d", n),
			AssetID:               a.AssetID,
			AssetType:             a.AssetType,
			ActualRisk:            actual,
			PredictedIgnitionRisk: predicted,
			ConditionScore:        a.ConditionScore,
			AvgClearanceDeficit:   deficit,
			RiskLevel:             levelFor(predicted, 0.6, 0.35),
			FireThreatDistrict:    a.Tier,
			PredictionDate:        g.now,
			ModelVersion:          version,
		}
		ignition[a.AssetID] = p
		g.ds.Ignition = append(g.ds.Ignition, p)
		n++
	}

	n = 1
	for _, a := range g.ds.Assets {
		st, ok := g.cables[a.AssetID]
		if !ok {
			continue
		}
		var correlation float64
		if st.rainEvents > 0 {
			correlation = float64(st.rainDips) / float64(st.rainEvents)
		}
		wet := a.MoistureExposure == "MEDIUM" || a.MoistureExposure == "HIGH"
		susceptible := g.susceptible(a.Material) && a.AgeYears >= 15 && wet

		var prob float64
		var treeing int
		level := model.RiskLow
		switch {
		case susceptible && correlation > 0.6:
			prob = correlation * 0.95
			treeing = 1
			level = model.RiskHigh
		case susceptible && correlation > 0.3:
			prob = correlation * 0.7
			level = model.RiskMedium
		default:
			prob = correlation * 0.2
		}
		p := model.CableFailurePrediction{
			PredictionID:           fmt.Sprintf("CFP-%06d", n),
			AssetID:                a.AssetID,
			Material:               a.Material,
			AssetAgeYears:          a.AgeYears,
			MoistureExposure:       a.MoistureExposure,
			RainCorrelatedDips:     st.rainDips,
			RainVoltageCorrelation: round(correlation, 3),
			ActualRisk:             round(prob, 3),
			PredictedWaterTreeing:  treeing,
			RiskLevel:              level,
			PredictionDate:         g.now,
			ModelVersion:           version,
		}
		cable[a.AssetID] = p
		waterTreeingProb[a.AssetID] = prob
		g.ds.Cable = append(g.ds.Cable, p)
		n++
	}

	for _, a := range g.ds.Assets {
		h := health[a.AssetID]
		c := g.ds.Circuits[a.circuit]
		r := model.CombinedRisk{
			AssetID:              a.AssetID,
			AssetType:            a.AssetType,
			ActualCondition:      a.ConditionScore,
			AssetAgeYears:        a.AgeYears,
			Region:               a.Region,
			FireThreatDistrict:   a.Tier,
			TotalCustomers:       c.TotalCustomers,
			PredictedHealthScore: h.PredictedHealthScore,
			HealthStatus:         h.PredictedCondition,
			HealthDelta:          h.HealthDelta,
			AvgClearanceDeficit:  g.deficit[a.AssetID],
		}
		decline := 1 - h.PredictedHealthScore/100
		var score float64
		if cp, ok := cable[a.AssetID]; ok {
			r.WaterTreeingRisk = cp.RiskLevel
			r.RainVoltageCorrelation = cp.RainVoltageCorrelation
			score = 0.5*decline + 0.5*waterTreeingProb[a.AssetID]
		} else {
			ip := ignition[a.AssetID]
			r.IgnitionRiskLevel = ip.RiskLevel
			score = 0.4*decline + 0.45*ip.PredictedIgnitionRisk + 0.15*math.Min(r.AvgClearanceDeficit/5, 1)
		}
		r.CompositeMLRiskScore = round(clamp(score, 0, 1), 3)
		r.MaintenancePriority = maintenancePriority(r.CompositeMLRiskScore)
		g.ds.Combined = append(g.ds.Combined, r)
	}
}
