package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/search"
)

// ServiceName is reported by GET /.
const ServiceName = "VIGIL Risk Planning API"

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	store               Warehouse
	chat                ChatService
	agent               Agent
	searcher            search.Searcher
	broker              *Broker
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	maxRequestBodyBytes int64
	openapiSpec         []byte
	workOrderHooks      []WorkOrderHook
	idempotency         IdempotencyStore
	now                 func() time.Time
}

// HandlersDeps holds all dependencies for constructing Handlers.
// Optional (nil-safe): Agent, Searcher, Broker, OpenAPISpec, WorkOrderHooks,
// Idempotency, Now.
type HandlersDeps struct {
	Store               Warehouse
	Chat                ChatService
	Agent               Agent
	Searcher            search.Searcher
	Broker              *Broker
	Logger              *slog.Logger
	Version             string
	MaxRequestBodyBytes int64
	OpenAPISpec         []byte
	WorkOrderHooks      []WorkOrderHook
	Idempotency         IdempotencyStore
	Now                 func() time.Time
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Handlers{
		store:               d.Store,
		chat:                d.Chat,
		agent:               d.Agent,
		searcher:            d.Searcher,
		broker:              d.Broker,
		logger:              d.Logger,
		startedAt:           now(),
		version:             d.Version,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		openapiSpec:         d.OpenAPISpec,
		workOrderHooks:      d.WorkOrderHooks,
		idempotency:         d.Idempotency,
		now:                 now,
	}
}

func (h *Handlers) fireSeason() model.FireSeason {
	return model.FireSeasonStatus(h.now())
}

// HandleRoot handles GET /.
func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, model.ServiceInfo{
		Name:       ServiceName,
		Version:    h.version,
		Status:     "operational",
		FireSeason: h.fireSeason(),
		Timestamp:  h.now().UTC(),
	})
}

// HandleFireSeason handles GET /fire-season.
func (h *Handlers) HandleFireSeason(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.fireSeason())
}

// HandleHealth handles GET /health. Postgres being unreachable makes the
// service unhealthy; an unreachable search backend only degrades it.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	pgStatus := "connected"
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		pgStatus = "disconnected"
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	resp := model.HealthResponse{
		Status:   status,
		Version:  h.version,
		Postgres: pgStatus,
		Agent:    "not_configured",
		Uptime:   int64(h.now().Sub(h.startedAt).Seconds()),
	}

	if h.searcher != nil {
		if err := h.searcher.Healthy(r.Context()); err == nil {
			resp.Search = h.searcher.Name()
		} else {
			resp.Search = "disconnected"
			if status == "healthy" {
				resp.Status = "degraded"
			}
		}
	}
	if h.agent != nil && h.agent.Configured() {
		resp.Agent = "configured"
	}
	if h.broker.Running() {
		resp.SSEBroker = "running"
	} else if h.broker != nil {
		resp.SSEBroker = "stopped"
	}

	writeJSON(w, r, httpStatus, resp)
}

// HandleOpenAPISpec serves the embedded OpenAPI specification.
func (h *Handlers) HandleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if len(h.openapiSpec) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openapiSpec)
}

// HandleSubscribe handles GET /events (SSE).
func (h *Handlers) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	if h.broker == nil {
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeUnavailable,
			"SSE not available (LISTEN/NOTIFY not configured)")
		return
	}

	flusher, ok := startSSE(w, r)
	if !ok {
		return
	}

	ch := h.broker.Subscribe()
	defer h.broker.Unsubscribe(ch)

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := w.Write([]byte(":keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// startSSE writes the event stream headers and lifts the server write
// deadline for this long-lived connection.
func startSSE(w http.ResponseWriter, r *http.Request) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "streaming not supported")
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	return flusher, true
}

// internalError logs err and writes a generic 500. The error text is
// never sent to the client.
func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op, "error", err, "request_id", RequestIDFromContext(r.Context()))
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, op+" failed")
}

// runHooks fires work order hooks in the background on a context that
// outlives the request.
func (h *Handlers) runHooks(r *http.Request, id string, req model.CreateWorkOrderRequest) {
	if len(h.workOrderHooks) == 0 {
		return
	}
	ctx := context.WithoutCancel(r.Context())
	for _, hook := range h.workOrderHooks {
		go func() {
			if err := hook.OnWorkOrderCreated(ctx, id, req); err != nil {
				h.logger.Warn("work order hook failed", "work_order_id", id, "error", err)
			}
		}()
	}
}

// --- Shared helpers ---

func queryInt(r *http.Request, key string, defaultVal int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

// queryLimit returns the limit query parameter clamped to [1, maxVal].
func queryLimit(r *http.Request, defaultVal, maxVal int) int {
	limit := queryInt(r, "limit", defaultVal)
	if limit < 1 {
		return 1
	}
	if limit > maxVal {
		return maxVal
	}
	return limit
}

func queryFloat(r *http.Request, key string) (float64, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
