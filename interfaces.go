package vigil

import (
	"context"
	"net/http"
)

// EmbeddingProvider generates vector embeddings from text.
// When provided via WithEmbeddingProvider, replaces the auto-detected
// Gemini/OpenAI/Ollama/noop provider. Uses []float32 so callers need not
// depend on pgvector; New wraps it in an adapter for internal use.
// Dimensions must match the document table (1024).
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Searcher retrieves documents from a corpus (go95, vegetation, work_orders,
// ami_anomalies). When provided via WithSearcher it becomes the primary
// backend; the built-in text search still serves as fallback.
type Searcher interface {
	Name() string
	Search(ctx context.Context, corpus, query string, limit int) ([]Document, error)
	Healthy(ctx context.Context) error
}

// WorkOrderHook receives async notifications when a work order is created
// through the API. Multiple hooks may be registered.
// Hook methods run in goroutines and must not block indefinitely.
// Failures are logged but do not fail the originating request.
type WorkOrderHook interface {
	OnWorkOrderCreated(ctx context.Context, wo WorkOrder) error
}

// RouteRegistrar registers additional routes on the shared HTTP mux.
// requireKey wraps a handler with the operator API key check, the same one
// guarding POST /work-orders. Called once during New after built-in routes.
type RouteRegistrar func(mux *http.ServeMux, requireKey Middleware)

// Middleware wraps the root HTTP handler.
// Applied outermost (before routing), so it sees all requests including /health.
// Multiple middlewares are applied in registration order (first-registered = outermost).
type Middleware func(http.Handler) http.Handler
