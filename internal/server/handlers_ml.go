package server

import (
	"fmt"
	"net/http"

	"github.com/vigil-grid/vigil/internal/model"
)

const (
	defaultPredictionLimit = 100
	maxPredictionLimit     = 500
	defaultUrgentLimit     = 50
	maxUrgentLimit         = 200

	amiCorrelationReadings = 5000
	amiCorrelationTop      = 50
	amiAnomalyLimit        = 100

	// urgentTrimDays is the predicted days-to-contact below which a trim is
	// urgent. Rows without a prediction never count.
	urgentTrimDays = 30
)

// HandleWaterTreeing handles GET /discovery/water-treeing.
func (h *Handlers) HandleWaterTreeing(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.store.WaterTreeingCandidates(r.Context())
	if err != nil {
		h.internalError(w, r, "water treeing candidates", err)
		return
	}
	anomalies, err := h.store.AMIAnomalies(r.Context(), amiAnomalyLimit)
	if err != nil {
		h.internalError(w, r, "ami anomalies", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"candidates":     candidates,
		"ami_anomalies":  anomalies,
		"discovery_info": model.WaterTreeingInfo,
		"fire_season":    h.fireSeason(),
	})
}

// HandleAMICorrelation handles GET /discovery/ami-correlation.
func (h *Handlers) HandleAMICorrelation(w http.ResponseWriter, r *http.Request) {
	readings, err := h.store.AMIReadings(r.Context(), amiCorrelationReadings)
	if err != nil {
		h.internalError(w, r, "ami readings", err)
		return
	}
	corrs, summary := model.CorrelateAMI(readings)
	if len(corrs) > amiCorrelationTop {
		corrs = corrs[:amiCorrelationTop]
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"correlations": corrs,
		"summary":      summary,
		"fire_season":  h.fireSeason(),
	})
}

// HandleAssetHealth handles GET /ml/asset-health.
func (h *Handlers) HandleAssetHealth(w http.ResponseWriter, r *http.Request) {
	preds, err := h.store.AssetHealthPredictions(r.Context(), queryLimit(r, defaultPredictionLimit, maxPredictionLimit))
	if err != nil {
		h.internalError(w, r, "asset health predictions", err)
		return
	}
	critical := 0
	var total float64
	for _, p := range preds {
		if p.PredictedCondition == "CRITICAL" {
			critical++
		}
		total += p.PredictedHealthScore
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"predictions": preds,
		"summary": map[string]any{
			"total_predictions":  len(preds),
			"critical_condition": critical,
			"avg_health_score":   average(total, len(preds)),
		},
		"fire_season": h.fireSeason(),
	})
}

// HandleVegetationGrowth handles GET /ml/vegetation-growth.
func (h *Handlers) HandleVegetationGrowth(w http.ResponseWriter, r *http.Request) {
	preds, err := h.store.VegetationGrowthPredictions(r.Context(), queryLimit(r, defaultPredictionLimit, maxPredictionLimit))
	if err != nil {
		h.internalError(w, r, "vegetation growth predictions", err)
		return
	}
	highRisk, urgent := 0, 0
	var totalDays float64
	for _, p := range preds {
		if p.GrowthRisk == "HIGH" {
			highRisk++
		}
		if d := p.PredictedDaysToContact; d != nil {
			totalDays += *d
			if *d < urgentTrimDays {
				urgent++
			}
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"predictions": preds,
		"summary": map[string]any{
			"total_predictions":   len(preds),
			"high_growth_risk":    highRisk,
			"urgent_trim_needed":  urgent,
			"avg_days_to_contact": average(totalDays, len(preds)),
		},
		"fire_season": h.fireSeason(),
	})
}

// HandleIgnitionRisk handles GET /ml/ignition-risk.
func (h *Handlers) HandleIgnitionRisk(w http.ResponseWriter, r *http.Request) {
	preds, err := h.store.IgnitionRiskPredictions(r.Context(), queryLimit(r, defaultPredictionLimit, maxPredictionLimit))
	if err != nil {
		h.internalError(w, r, "ignition risk predictions", err)
		return
	}
	highRisk := 0
	byType := map[string]int{}
	for _, p := range preds {
		if p.RiskLevel == "HIGH" {
			highRisk++
			byType[p.AssetType]++
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"predictions": preds,
		"summary": map[string]any{
			"total_predictions": len(preds),
			"high_risk_assets":  highRisk,
			"by_asset_type":     byType,
		},
		"fire_season": h.fireSeason(),
	})
}

// HandleCableFailure handles GET /ml/cable-failure.
func (h *Handlers) HandleCableFailure(w http.ResponseWriter, r *http.Request) {
	preds, err := h.store.CableFailurePredictions(r.Context(), queryLimit(r, defaultPredictionLimit, maxPredictionLimit))
	if err != nil {
		h.internalError(w, r, "cable failure predictions", err)
		return
	}
	atRisk := 0
	var ageAtRisk float64
	for _, p := range preds {
		if p.PredictedWaterTreeing == 1 {
			atRisk++
			ageAtRisk += p.AssetAgeYears
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"predictions": preds,
		"summary": map[string]any{
			"total_cables_analyzed": len(preds),
			"at_risk_cables":        atRisk,
			"avg_age_at_risk":       average(ageAtRisk, atRisk),
		},
		"discovery_info": model.CableFailureInfo,
		"fire_season":    h.fireSeason(),
	})
}

// HandleMLSummary handles GET /ml/summary.
func (h *Handlers) HandleMLSummary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.ModelCounts(r.Context())
	if err != nil {
		h.internalError(w, r, "model counts", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"models":      model.ModelCatalog(counts),
		"fire_season": h.fireSeason(),
	})
}

// HandleCombinedRisk handles GET /ml/combined-risk.
func (h *Handlers) HandleCombinedRisk(w http.ResponseWriter, r *http.Request) {
	assets, err := h.store.CombinedRisk(r.Context(), queryLimit(r, defaultPredictionLimit, maxPredictionLimit))
	if err != nil {
		h.internalError(w, r, "combined risk", err)
		return
	}
	byPriority := map[string]int{}
	byRegion := map[string]int{}
	var total float64
	for _, a := range assets {
		byPriority[a.MaintenancePriority]++
		byRegion[a.Region]++
		total += a.CompositeMLRiskScore
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"assets": assets,
		"summary": map[string]any{
			"total_assets":   len(assets),
			"by_priority":    byPriority,
			"by_region":      byRegion,
			"avg_risk_score": average(total, len(assets)),
		},
		"fire_season": h.fireSeason(),
	})
}

// HandleCombinedRiskByRegion handles GET /ml/combined-risk/by-region.
func (h *Handlers) HandleCombinedRiskByRegion(w http.ResponseWriter, r *http.Request) {
	regions, err := h.store.CombinedRiskByRegion(r.Context())
	if err != nil {
		h.internalError(w, r, "combined risk by region", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"regions": regions, "fire_season": h.fireSeason()})
}

// HandleUrgentActions handles GET /ml/urgent-actions.
func (h *Handlers) HandleUrgentActions(w http.ResponseWriter, r *http.Request) {
	assets, err := h.store.UrgentActions(r.Context(), queryLimit(r, defaultUrgentLimit, maxUrgentLimit))
	if err != nil {
		h.internalError(w, r, "urgent actions", err)
		return
	}
	emergency, high, customers := 0, 0, 0
	for _, a := range assets {
		switch a.MaintenancePriority {
		case model.MaintenanceEmergency:
			emergency++
		case model.MaintenanceHigh:
			high++
		}
		customers += a.TotalCustomers
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"urgent_assets": assets,
		"summary": map[string]any{
			"emergency_count":          emergency,
			"high_priority_count":      high,
			"total_customers_affected": customers,
		},
		"fire_season": h.fireSeason(),
	})
}

// HandleAssetPredictions handles POST /ml/asset-predictions.
func (h *Handlers) HandleAssetPredictions(w http.ResponseWriter, r *http.Request) {
	var req model.AssetPredictionsRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	// Lists past the cap are truncated, not rejected.
	ids := req.Normalize()
	if len(ids) == 0 {
		writeJSON(w, r, http.StatusOK, map[string]any{"predictions": map[string]model.AssetPredictions{}})
		return
	}

	preds, coverage, err := h.store.AssetPredictions(r.Context(), ids)
	if err != nil {
		h.internalError(w, r, "asset predictions", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"predictions":  preds,
		"total_assets": len(ids),
		"coverage":     coverage,
	})
}

// HandleFeatureImportance handles GET /ml/feature-importance/{model}.
func (h *Handlers) HandleFeatureImportance(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("model")
	fi, ok := model.FeatureImportanceFor(name)
	if !ok {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound,
			fmt.Sprintf("Model '%s' not found. Available: %v", name, model.ModelNames()))
		return
	}
	writeJSON(w, r, http.StatusOK, fi)
}

func average(total float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return total / float64(n)
}
