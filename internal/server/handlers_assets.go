package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/regulation"
	"github.com/vigil-grid/vigil/internal/storage"
)

const (
	defaultPriorityLimit = 50
	maxPriorityLimit     = 200
)

// HandleListAssets handles GET /assets?region=&asset_type=.
func (h *Handlers) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.store.ListAssets(r.Context(), model.AssetFilter{
		Region:    q.Get("region"),
		AssetType: q.Get("asset_type"),
	})
	if err != nil {
		h.internalError(w, r, "list assets", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"items":       items,
		"total":       len(items),
		"fire_season": h.fireSeason(),
	})
}

// HandleAssetSummary handles GET /assets/summary.
func (h *Handlers) HandleAssetSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.AssetSummary(r.Context())
	if err != nil {
		h.internalError(w, r, "asset summary", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"summary": rows, "fire_season": h.fireSeason()})
}

// HandleReplacementPriorities handles GET /assets/replacement-priorities.
func (h *Handlers) HandleReplacementPriorities(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ReplacementPriorities(r.Context(), queryLimit(r, defaultPriorityLimit, maxPriorityLimit))
	if err != nil {
		h.internalError(w, r, "replacement priorities", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"priorities": rows, "fire_season": h.fireSeason()})
}

// HandleGetAsset handles GET /assets/{asset_id}. The response carries the
// asset with its encroachments and work orders.
func (h *Handlers) HandleGetAsset(w http.ResponseWriter, r *http.Request) {
	id := strings.ToUpper(strings.TrimSpace(r.PathValue("asset_id")))
	asset, err := h.store.GetAsset(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "asset "+id+" not found")
		return
	}
	if err != nil {
		h.internalError(w, r, "get asset", err)
		return
	}
	encroachments, err := h.store.EncroachmentsForAsset(r.Context(), id)
	if err != nil {
		h.internalError(w, r, "get asset", err)
		return
	}
	orders, err := h.store.WorkOrdersForAsset(r.Context(), id)
	if err != nil {
		h.internalError(w, r, "get asset", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"asset":         asset,
		"encroachments": encroachments,
		"work_orders":   orders,
		"fire_season":   h.fireSeason(),
	})
}

// HandleListVegetation handles GET /vegetation?region=.
func (h *Handlers) HandleListVegetation(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListVegetation(r.Context(), r.URL.Query().Get("region"))
	if err != nil {
		h.internalError(w, r, "list vegetation", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"summary":     model.SummarizeVegetation(items),
		"items":       items,
		"fire_season": h.fireSeason(),
	})
}

// HandleVegetationCompliance handles GET /vegetation/compliance.
func (h *Handlers) HandleVegetationCompliance(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.VegetationCompliance(r.Context())
	if err != nil {
		h.internalError(w, r, "vegetation compliance", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"compliance": rows, "fire_season": h.fireSeason()})
}

// HandleTrimPriorities handles GET /vegetation/trim-priorities.
func (h *Handlers) HandleTrimPriorities(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.TrimPriorities(r.Context(), queryLimit(r, defaultPriorityLimit, maxPriorityLimit))
	if err != nil {
		h.internalError(w, r, "trim priorities", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"priorities": rows, "fire_season": h.fireSeason()})
}

// writeLookupError reports an unknown voltage class or tier as a 404 with
// the available tiers in the error details.
func writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	var lookup *regulation.LookupError
	if errors.As(err, &lookup) {
		writeErrorDetails(w, r, http.StatusNotFound, model.ErrCodeNotFound, err.Error(), map[string]any{
			"voltage_class":   lookup.VoltageClass,
			"fire_district":   lookup.FireThreatTier,
			"available_tiers": lookup.AvailableTiers,
			"voltage_classes": regulation.VoltageClasses(),
		})
		return
	}
	writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
}

// HandleClearanceRequirement handles
// GET /vegetation/clearance-requirement?voltage_class=&fire_district=.
func (h *Handlers) HandleClearanceRequirement(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vc, tier := q.Get("voltage_class"), q.Get("fire_district")
	if vc == "" || tier == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "voltage_class and fire_district are required")
		return
	}
	req, err := regulation.ClearanceRequirement(vc, tier)
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, req)
}

// HandleComplianceGap handles
// GET /vegetation/compliance-gap?current_clearance_ft=&voltage_class=&fire_district=.
func (h *Handlers) HandleComplianceGap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	vc, tier := q.Get("voltage_class"), q.Get("fire_district")
	current, ok := queryFloat(r, "current_clearance_ft")
	if !ok || vc == "" || tier == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
			"current_clearance_ft (number), voltage_class and fire_district are required")
		return
	}
	gap, err := regulation.ComplianceGap(current, vc, tier)
	if err != nil {
		writeLookupError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, gap)
}

// HandleSpecies handles GET /vegetation/species/{species}.
func (h *Handlers) HandleSpecies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, regulation.SpeciesInfo(r.PathValue("species")))
}

// HandleListRisk handles GET /risk?region=.
func (h *Handlers) HandleListRisk(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListRisk(r.Context(), r.URL.Query().Get("region"))
	if err != nil {
		h.internalError(w, r, "list risk", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"assessments": rows, "fire_season": h.fireSeason()})
}

// HandleRiskSummary handles GET /risk/summary.
func (h *Handlers) HandleRiskSummary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.RiskSummary(r.Context())
	if err != nil {
		h.internalError(w, r, "risk summary", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"summary": rows, "fire_season": h.fireSeason()})
}

// HandlePSPSCandidates handles GET /risk/psps-candidates.
func (h *Handlers) HandlePSPSCandidates(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.PSPSCandidates(r.Context())
	if err != nil {
		h.internalError(w, r, "psps candidates", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"candidates": rows, "fire_season": h.fireSeason()})
}
