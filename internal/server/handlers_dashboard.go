package server

import (
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/vigil-grid/vigil/internal/model"
)

// DashboardMetrics is the response for GET /dashboard/metrics.
type DashboardMetrics struct {
	FireSeason        model.FireSeason        `json:"fire_season"`
	AssetSummary      []model.AssetSummaryRow `json:"asset_summary"`
	RiskSummary       []model.RiskSummaryRow  `json:"risk_summary"`
	ComplianceSummary []model.ComplianceRow   `json:"compliance_summary"`
	WorkOrderBacklog  []model.BacklogRow      `json:"work_order_backlog"`
}

// HandleDashboardMetrics handles GET /dashboard/metrics. The four
// aggregates run concurrently; any failure fails the whole response.
func (h *Handlers) HandleDashboardMetrics(w http.ResponseWriter, r *http.Request) {
	resp := DashboardMetrics{FireSeason: h.fireSeason()}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		resp.AssetSummary, err = h.store.AssetSummary(ctx)
		return err
	})
	g.Go(func() (err error) {
		resp.RiskSummary, err = h.store.RiskSummary(ctx)
		return err
	})
	g.Go(func() (err error) {
		resp.ComplianceSummary, err = h.store.VegetationCompliance(ctx)
		return err
	})
	g.Go(func() (err error) {
		resp.WorkOrderBacklog, err = h.store.WorkOrderBacklog(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.internalError(w, r, "dashboard metrics", err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// HandleDashboardMap handles GET /dashboard/map (GeoJSON).
func (h *Handlers) HandleDashboardMap(w http.ResponseWriter, r *http.Request) {
	assets, err := h.store.MapAssets(r.Context())
	if err != nil {
		h.internalError(w, r, "dashboard map", err)
		return
	}
	fc := model.NewFeatureCollection(assets)
	fs := h.fireSeason()
	fc.FireSeason = &fs
	writeJSON(w, r, http.StatusOK, fc)
}
