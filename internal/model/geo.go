package model

// MapAsset is one asset plotted on the dashboard map.
type MapAsset struct {
	AssetID            string  `json:"asset_id"`
	AssetType          string  `json:"asset_type"`
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	ConditionScore     float64 `json:"condition_score"`
	RiskScore          float64 `json:"risk_score"`
	RiskTier           string  `json:"risk_tier"`
	FireThreatDistrict string  `json:"fire_threat_district"`
	Region             string  `json:"region"`
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type       string       `json:"type"`
	Features   []GeoFeature `json:"features"`
	FireSeason *FireSeason  `json:"fire_season,omitempty"`
}

// GeoFeature is a GeoJSON point feature.
type GeoFeature struct {
	Type       string         `json:"type"`
	Geometry   PointGeometry  `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// PointGeometry holds [longitude, latitude].
type PointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewFeatureCollection converts map assets into GeoJSON points.
func NewFeatureCollection(assets []MapAsset) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]GeoFeature, 0, len(assets))}
	for _, a := range assets {
		fc.Features = append(fc.Features, GeoFeature{
			Type: "Feature",
			Geometry: PointGeometry{
				Type:        "Point",
				Coordinates: [2]float64{a.Longitude, a.Latitude},
			},
			Properties: map[string]any{
				"asset_id":        a.AssetID,
				"asset_type":      a.AssetType,
				"condition_score": a.ConditionScore,
				"risk_score":      a.RiskScore,
				"risk_tier":       a.RiskTier,
				"fire_district":   a.FireThreatDistrict,
				"region":          a.Region,
			},
		})
	}
	return fc
}
