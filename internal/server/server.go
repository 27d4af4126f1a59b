package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/vigil-grid/vigil/internal/auth"
	"github.com/vigil-grid/vigil/internal/copilot"
	"github.com/vigil-grid/vigil/internal/cortex"
	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/ratelimit"
	"github.com/vigil-grid/vigil/internal/search"
)

// Warehouse is the storage surface the HTTP handlers read and write.
// *storage.DB satisfies it.
type Warehouse interface {
	Ping(ctx context.Context) error

	ListAssets(ctx context.Context, f model.AssetFilter) ([]model.Asset, error)
	GetAsset(ctx context.Context, assetID string) (model.Asset, error)
	AssetSummary(ctx context.Context) ([]model.AssetSummaryRow, error)
	ReplacementPriorities(ctx context.Context, limit int) ([]model.ReplacementPriority, error)

	ListVegetation(ctx context.Context, region string) ([]model.Encroachment, error)
	EncroachmentsForAsset(ctx context.Context, assetID string) ([]model.Encroachment, error)
	VegetationCompliance(ctx context.Context) ([]model.ComplianceRow, error)
	TrimPriorities(ctx context.Context, limit int) ([]model.Encroachment, error)

	ListRisk(ctx context.Context, region string) ([]model.RiskAssessment, error)
	RiskSummary(ctx context.Context) ([]model.RiskSummaryRow, error)
	PSPSCandidates(ctx context.Context) ([]model.Circuit, error)

	ListWorkOrders(ctx context.Context, status string) ([]model.WorkOrder, error)
	WorkOrdersForAsset(ctx context.Context, assetID string) ([]model.WorkOrder, error)
	WorkOrderBacklog(ctx context.Context) ([]model.BacklogRow, error)
	CreateWorkOrder(ctx context.Context, req model.CreateWorkOrderRequest, now time.Time) (string, error)

	WaterTreeingCandidates(ctx context.Context) ([]model.WaterTreeingCandidate, error)
	AMIAnomalies(ctx context.Context, limit int) ([]model.AMIReading, error)
	AMIReadings(ctx context.Context, limit int) ([]model.AMIReading, error)
	MapAssets(ctx context.Context) ([]model.MapAsset, error)

	AssetHealthPredictions(ctx context.Context, limit int) ([]model.AssetHealthPrediction, error)
	VegetationGrowthPredictions(ctx context.Context, limit int) ([]model.VegetationGrowthPrediction, error)
	IgnitionRiskPredictions(ctx context.Context, limit int) ([]model.IgnitionRiskPrediction, error)
	CableFailurePredictions(ctx context.Context, limit int) ([]model.CableFailurePrediction, error)
	CombinedRisk(ctx context.Context, limit int) ([]model.CombinedRisk, error)
	UrgentActions(ctx context.Context, limit int) ([]model.CombinedRisk, error)
	CombinedRiskByRegion(ctx context.Context) ([]model.RegionRisk, error)
	ModelCounts(ctx context.Context) (model.ModelCounts, error)
	AssetPredictions(ctx context.Context, ids []string) (map[string]model.AssetPredictions, model.PredictionCoverage, error)
}

// ChatService answers chat messages without the hosted agent.
// *copilot.Orchestrator satisfies it.
type ChatService interface {
	Process(ctx context.Context, req copilot.Request) copilot.Reply
}

// Agent streams a hosted agent run. *cortex.Client satisfies it.
type Agent interface {
	Configured() bool
	Run(ctx context.Context, message, threadID string) <-chan cortex.Event
}

// WorkOrderHook is notified after a work order is created. Hooks run in
// their own goroutine; failures are logged and never fail the request.
type WorkOrderHook interface {
	OnWorkOrderCreated(ctx context.Context, workOrderID string, req model.CreateWorkOrderRequest) error
}

// RouteRegistrar adds routes to the shared mux. requireKey wraps a handler
// with the operator API key check.
type RouteRegistrar func(mux *http.ServeMux, requireKey func(http.Handler) http.Handler)

// Server is the VIGIL HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): Agent, Searcher, Broker, Limiter, Guard,
// MCPServer, Idempotency, UIFS, OpenAPISpec, WorkOrderHooks, ExtraRoutes,
// Middlewares.
type ServerConfig struct {
	// Required dependencies.
	Store  Warehouse
	Chat   ChatService
	Logger *slog.Logger

	// Optional dependencies (nil = disabled).
	Agent     Agent
	Searcher  search.Searcher
	Broker    *Broker
	Limiter   ratelimit.Limiter
	Guard     *auth.Guard
	MCPServer *mcpserver.MCPServer

	// Idempotency backs the Idempotency-Key header on POST /work-orders.
	Idempotency IdempotencyStore

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64

	// Optional embedded assets.
	UIFS        fs.FS // Embedded UI filesystem (SPA), served under /ui/.
	OpenAPISpec []byte // Embedded OpenAPI YAML.

	// Extension points.
	WorkOrderHooks []WorkOrderHook
	ExtraRoutes    []RouteRegistrar
	Middlewares    []func(http.Handler) http.Handler

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Store:               cfg.Store,
		Chat:                cfg.Chat,
		Agent:               cfg.Agent,
		Searcher:            cfg.Searcher,
		Broker:              cfg.Broker,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		OpenAPISpec:         cfg.OpenAPISpec,
		WorkOrderHooks:      cfg.WorkOrderHooks,
		Idempotency:         cfg.Idempotency,
		Now:                 cfg.Now,
	})

	chatRL := ratelimit.Middleware(cfg.Limiter, "/chat", ratelimit.IPKeyFunc, requestIDFromRequest, cfg.Logger)
	requireKey := func(next http.Handler) http.Handler { return requireAPIKey(cfg.Guard, next) }

	mux := http.NewServeMux()

	// Service info.
	mux.HandleFunc("GET /{$}", h.HandleRoot)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /fire-season", h.HandleFireSeason)
	mux.HandleFunc("GET /openapi.yaml", h.HandleOpenAPISpec)

	// Copilot (rate limited by client IP).
	mux.Handle("POST /chat", chatRL(http.HandlerFunc(h.HandleChat)))
	mux.Handle("POST /chat/stream", chatRL(http.HandlerFunc(h.HandleChatStream)))

	// Dashboard.
	mux.HandleFunc("GET /dashboard/metrics", h.HandleDashboardMetrics)
	mux.HandleFunc("GET /dashboard/map", h.HandleDashboardMap)

	// Assets.
	mux.HandleFunc("GET /assets", h.HandleListAssets)
	mux.HandleFunc("GET /assets/summary", h.HandleAssetSummary)
	mux.HandleFunc("GET /assets/replacement-priorities", h.HandleReplacementPriorities)
	mux.HandleFunc("GET /assets/{asset_id}", h.HandleGetAsset)

	// Vegetation and GO95.
	mux.HandleFunc("GET /vegetation", h.HandleListVegetation)
	mux.HandleFunc("GET /vegetation/compliance", h.HandleVegetationCompliance)
	mux.HandleFunc("GET /vegetation/trim-priorities", h.HandleTrimPriorities)
	mux.HandleFunc("GET /vegetation/clearance-requirement", h.HandleClearanceRequirement)
	mux.HandleFunc("GET /vegetation/compliance-gap", h.HandleComplianceGap)
	mux.HandleFunc("GET /vegetation/species/{species}", h.HandleSpecies)

	// Risk.
	mux.HandleFunc("GET /risk", h.HandleListRisk)
	mux.HandleFunc("GET /risk/summary", h.HandleRiskSummary)
	mux.HandleFunc("GET /risk/psps-candidates", h.HandlePSPSCandidates)

	// Work orders. Creation requires the operator key when one is configured.
	mux.HandleFunc("GET /work-orders", h.HandleListWorkOrders)
	mux.HandleFunc("GET /workorders", h.HandleListWorkOrders)
	mux.HandleFunc("GET /work-orders/backlog", h.HandleWorkOrderBacklog)
	mux.Handle("POST /work-orders", requireKey(http.HandlerFunc(h.HandleCreateWorkOrder)))

	// Hidden discovery.
	mux.HandleFunc("GET /discovery/water-treeing", h.HandleWaterTreeing)
	mux.HandleFunc("GET /discovery/ami-correlation", h.HandleAMICorrelation)

	// ML predictions.
	mux.HandleFunc("GET /ml/asset-health", h.HandleAssetHealth)
	mux.HandleFunc("GET /ml/vegetation-growth", h.HandleVegetationGrowth)
	mux.HandleFunc("GET /ml/ignition-risk", h.HandleIgnitionRisk)
	mux.HandleFunc("GET /ml/cable-failure", h.HandleCableFailure)
	mux.HandleFunc("GET /ml/summary", h.HandleMLSummary)
	mux.HandleFunc("GET /ml/combined-risk", h.HandleCombinedRisk)
	mux.HandleFunc("GET /ml/combined-risk/by-region", h.HandleCombinedRiskByRegion)
	mux.HandleFunc("GET /ml/urgent-actions", h.HandleUrgentActions)
	mux.HandleFunc("POST /ml/asset-predictions", h.HandleAssetPredictions)
	mux.HandleFunc("GET /ml/feature-importance/{model}", h.HandleFeatureImportance)

	// Document search.
	mux.HandleFunc("GET /search/go95", h.HandleSearch(model.CorpusGO95))
	mux.HandleFunc("GET /search/vegetation", h.HandleSearch(model.CorpusVegetation))

	// Work order event stream (no rate limit, long-lived connection).
	mux.HandleFunc("GET /events", h.HandleSubscribe)

	// MCP StreamableHTTP transport.
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	for _, register := range cfg.ExtraRoutes {
		register(mux, requireKey)
	}

	if cfg.UIFS != nil {
		mux.Handle("/ui/", http.StripPrefix("/ui", newSPAHandler(cfg.UIFS)))
		cfg.Logger.Info("ui enabled, serving SPA at /ui/")
	}

	// Middleware chain (outermost executes first):
	// extra → request ID → CORS → security headers → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = corsMiddleware(handler)
	handler = requestIDMiddleware(handler)
	for i := len(cfg.Middlewares) - 1; i >= 0; i-- {
		handler = cfg.Middlewares[i](handler)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
