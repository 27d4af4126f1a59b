package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/vigil-grid/vigil/internal/regulation"
)

//go:embed profile.yaml
var defaultProfile []byte

// Profile describes the synthetic grid to generate.
type Profile struct {
	Seed                 uint64          `yaml:"seed"`
	ModelVersion         string          `yaml:"model_version"`
	AMIDays              int             `yaml:"ami_days"`
	ForecastDays         int             `yaml:"forecast_days"`
	HistoricalWorkOrders int             `yaml:"historical_work_orders"`
	OpenWorkOrderLimit   int             `yaml:"open_work_order_limit"`
	VegetationCoverage   float64         `yaml:"vegetation_coverage"`
	VoltageClasses       []Weighted      `yaml:"voltage_classes"`
	AssetTypes           []AssetType     `yaml:"asset_types"`
	Insulation           []Insulation    `yaml:"insulation"`
	Manufacturers        []string        `yaml:"manufacturers"`
	Species              []SpeciesGrowth `yaml:"species"`
	Regions              []Region        `yaml:"regions"`
}

// Weighted is a named choice with a relative weight.
type Weighted struct {
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

// AssetType is one kind of grid asset and its share of the fleet.
type AssetType struct {
	Type      string     `yaml:"type"`
	Weight    float64    `yaml:"weight"`
	Subtypes  []string   `yaml:"subtypes"`
	Materials []string   `yaml:"materials"`
	Cost      [2]float64 `yaml:"cost"`
}

// Insulation is an underground cable insulation type.
type Insulation struct {
	Type                    string `yaml:"type"`
	WaterTreeingSusceptible bool   `yaml:"water_treeing_susceptible"`
}

// SpeciesGrowth is a tree species, its annual growth and where it grows.
type SpeciesGrowth struct {
	Name         string   `yaml:"name"`
	GrowthRateFt float64  `yaml:"growth_rate_ft"`
	Regions      []string `yaml:"regions"`
}

// Region is a service territory.
type Region struct {
	Code            string             `yaml:"code"`
	Name            string             `yaml:"name"`
	Assets          int                `yaml:"assets"`
	AvgRainfallIn   float64            `yaml:"avg_rainfall_in"`
	BaseTempF       float64            `yaml:"base_temp_f"`
	FireWeatherProb float64            `yaml:"fire_weather_prob"`
	Tiers           map[string]float64 `yaml:"tiers"`
	Locations       []Location         `yaml:"locations"`
}

// Location is a district within a region.
type Location struct {
	Name       string  `yaml:"name"`
	Lat        float64 `yaml:"lat"`
	Lon        float64 `yaml:"lon"`
	Terrain    string  `yaml:"terrain"`
	VegDensity string  `yaml:"veg_density"`
}

// DefaultProfile returns the embedded five-region profile.
func DefaultProfile() (Profile, error) {
	return ParseProfile(defaultProfile)
}

// LoadProfile reads a profile from a YAML file.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes and validates a YAML profile.
func ParseProfile(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("seed: parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate reports every problem with the profile at once.
func (p Profile) Validate() error {
	var errs []error
	if len(p.Regions) == 0 {
		errs = append(errs, errors.New("no regions"))
	}
	if len(p.VoltageClasses) == 0 {
		errs = append(errs, errors.New("no voltage classes"))
	}
	if len(p.AssetTypes) == 0 {
		errs = append(errs, errors.New("no asset types"))
	}
	if len(p.Manufacturers) == 0 {
		errs = append(errs, errors.New("no manufacturers"))
	}
	if p.AMIDays < 0 || p.ForecastDays < 0 || p.HistoricalWorkOrders < 0 || p.OpenWorkOrderLimit < 0 {
		errs = append(errs, errors.New("day and work order counts must not be negative"))
	}
	if p.VegetationCoverage < 0 || p.VegetationCoverage > 1 {
		errs = append(errs, fmt.Errorf("vegetation_coverage %.2f outside [0, 1]", p.VegetationCoverage))
	}
	for _, at := range p.AssetTypes {
		if len(at.Subtypes) == 0 {
			errs = append(errs, fmt.Errorf("asset type %s: no subtypes", at.Type))
		}
		if at.Type == cableType && len(p.Insulation) == 0 {
			errs = append(errs, fmt.Errorf("asset type %s: no insulation types", at.Type))
		}
		if at.Cost[0] > at.Cost[1] {
			errs = append(errs, fmt.Errorf("asset type %s: cost range reversed", at.Type))
		}
	}
	for _, r := range p.Regions {
		if r.Assets <= 0 {
			errs = append(errs, fmt.Errorf("region %s: assets must be positive", r.Code))
		}
		if len(r.Locations) == 0 {
			errs = append(errs, fmt.Errorf("region %s: no locations", r.Code))
		}
		if len(r.Tiers) == 0 {
			errs = append(errs, fmt.Errorf("region %s: no fire threat tiers", r.Code))
		}
		for tier := range r.Tiers {
			if !slices.Contains(regulation.Tiers(), regulation.NormalizeTier(tier)) {
				errs = append(errs, fmt.Errorf("region %s: unknown tier %q", r.Code, tier))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("seed: invalid profile: %w", errors.Join(errs...))
	}
	return nil
}

// TotalAssets is the asset target summed over regions.
func (p Profile) TotalAssets() int {
	n := 0
	for _, r := range p.Regions {
		n += r.Assets
	}
	return n
}

// speciesFor returns the species growing in region.
func (p Profile) speciesFor(region string) []SpeciesGrowth {
	var out []SpeciesGrowth
	for _, s := range p.Species {
		if slices.Contains(s.Regions, region) {
			out = append(out, s)
		}
	}
	return out
}
