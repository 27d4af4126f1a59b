package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/vigil-grid/vigil/internal/ctxutil"
	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/ratelimit"
)

// HandleListWorkOrders handles GET /work-orders?status= and its
// /workorders alias.
func (h *Handlers) HandleListWorkOrders(w http.ResponseWriter, r *http.Request) {
	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	items, err := h.store.ListWorkOrders(r.Context(), status)
	if err != nil {
		h.internalError(w, r, "list work orders", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"summary":     model.SummarizeWorkOrders(items, h.now()),
		"items":       items,
		"fire_season": h.fireSeason(),
	})
}

// HandleWorkOrderBacklog handles GET /work-orders/backlog.
func (h *Handlers) HandleWorkOrderBacklog(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.WorkOrderBacklog(r.Context())
	if err != nil {
		h.internalError(w, r, "work order backlog", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"backlog": rows, "fire_season": h.fireSeason()})
}

// HandleCreateWorkOrder handles POST /work-orders. Subscribers on /events
// learn about the new order through the database notification. A retried
// request carrying the same Idempotency-Key replays the first response.
func (h *Handlers) HandleCreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	var body model.CreateWorkOrderRequest
	if err := decodeJSON(w, r, &body, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	now := h.now()
	req, err := body.WithDefaults(now)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	idem, proceed := h.beginIdempotentWrite(w, r, "POST:/work-orders", body)
	if !proceed {
		return
	}

	ctx := ctxutil.WithAuditMeta(r.Context(), ctxutil.AuditMeta{
		RequestID:  RequestIDFromContext(r.Context()),
		ClientIP:   ratelimit.IPKeyFunc(r),
		HTTPMethod: r.Method,
		Endpoint:   r.URL.Path,
	})
	id, err := h.store.CreateWorkOrder(ctx, req, now)
	if err != nil {
		h.clearIdempotentWrite(r, idem)
		h.internalError(w, r, "create work order", err)
		return
	}
	h.logger.Info("work order created", "work_order_id", id, "asset_id", req.AssetID, "priority", req.Priority)
	h.runHooks(r, id, req)

	resp := model.CreateWorkOrderResponse{
		WorkOrderID: id,
		Status:      "created",
		Message:     fmt.Sprintf("Work order %s created successfully", id),
	}
	h.completeIdempotentWrite(r, idem, http.StatusCreated, resp)
	writeJSON(w, r, http.StatusCreated, resp)
}
