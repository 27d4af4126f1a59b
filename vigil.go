// Package vigil is the public API for embedding the VIGIL wildfire risk
// planning server.
//
// Consumers import this package to construct and extend the server without
// forking it:
//
//	app, err := vigil.New(
//	    vigil.WithVersion(version),
//	    vigil.WithLogger(logger),
//	    vigil.WithWorkOrderHook(dispatchHook{}),
//	    vigil.WithExtraRoutes(myRoutes),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The root package imports internal/*, but internal/* never imports the
// root. Public types (WorkOrder, Document, Answer) are standalone structs;
// the adapters converting to and from internal types live in this file.
package vigil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/vigil-grid/vigil/api"
	"github.com/vigil-grid/vigil/internal/analyst"
	"github.com/vigil-grid/vigil/internal/auth"
	"github.com/vigil-grid/vigil/internal/config"
	"github.com/vigil-grid/vigil/internal/copilot"
	"github.com/vigil-grid/vigil/internal/cortex"
	"github.com/vigil-grid/vigil/internal/mcp"
	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/ratelimit"
	"github.com/vigil-grid/vigil/internal/search"
	"github.com/vigil-grid/vigil/internal/seed"
	"github.com/vigil-grid/vigil/internal/server"
	"github.com/vigil-grid/vigil/internal/service/embedding"
	"github.com/vigil-grid/vigil/internal/session"
	"github.com/vigil-grid/vigil/internal/storage"
	"github.com/vigil-grid/vigil/internal/telemetry"
	"github.com/vigil-grid/vigil/migrations"
	"github.com/vigil-grid/vigil/ui"
)

// Shutdown phase budgets.
const (
	shutdownHTTPTimeout   = 10 * time.Second
	shutdownOutboxTimeout = 10 * time.Second
	seedOutboxTimeout     = 2 * time.Minute
	sessionSweepInterval  = 5 * time.Minute
)

// App is the VIGIL server lifecycle. Construct with New(), run with Run().
// App has no public fields; use New() options to configure it.
type App struct {
	cfg          config.Config
	db           *storage.DB
	srv          *server.Server
	chat         *copilot.Orchestrator
	embedder     embedding.Provider
	outbox       *search.OutboxWorker // nil without a vector index
	index        search.VectorIndex   // nil without a vector index
	closeIndex   func() error
	broker       *server.Broker // nil when no notify connection
	limiter      ratelimit.Limiter
	sessions     session.Store
	otelShutdown telemetry.Shutdown
	migrationFS  []fs.FS
	logger       *slog.Logger
	version      string
	running      atomic.Bool
}

// New initialises the VIGIL server. It connects to the warehouse, runs
// migrations, wires all subsystems, and returns a ready-to-run App.
// It does NOT start any goroutines or accept HTTP connections; call Run().
func New(opts ...Option) (*App, error) {
	ctx := context.Background()

	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load configuration (.env then env vars), then apply option overrides.
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
		if o.notifyURL == "" {
			cfg.NotifyURL = o.databaseURL
		}
	}
	if o.notifyURL != "" {
		cfg.NotifyURL = o.notifyURL
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("vigil starting", "version", version, "port", cfg.Port)

	a := &App{
		cfg:         cfg,
		logger:      logger,
		version:     version,
		migrationFS: append([]fs.FS{migrations.FS}, o.extraMigrations...),
		closeIndex:  func() error { return nil },
	}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	// OpenTelemetry.
	a.otelShutdown, err = telemetry.Init(ctx, telemetry.Settings{
		Endpoint:    cfg.OTELEndpoint,
		Insecure:    cfg.OTELInsecure,
		ServiceName: cfg.ServiceName,
		Version:     version,
	})
	if err != nil {
		return nil, err
	}

	// Warehouse.
	a.db, err = storage.New(ctx, cfg.DatabaseURL, cfg.NotifyURL, logger, storage.WithQueryTimeout(cfg.QueryTimeout))
	if err != nil {
		return nil, err
	}
	if err := telemetry.RegisterPoolMetrics(a.db.Pool()); err != nil {
		logger.Warn("pool metrics unavailable", "error", err)
	}

	if o.skipMigrations {
		logger.Info("migrations skipped by option")
	} else {
		if _, err := a.Migrate(ctx); err != nil {
			return nil, err
		}
		if err := a.verifySchema(ctx); err != nil {
			return nil, err
		}
	}

	// Snowflake Cortex (agent, search services, completion).
	cortexClient, err := newCortexClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Embedding provider: external override takes priority over auto-detect.
	if o.embeddingProvider != nil {
		a.embedder = &providerAdapter{p: o.embeddingProvider}
	} else {
		a.embedder = newEmbeddingProvider(ctx, cfg, logger)
	}

	// Vector index and outbox worker.
	if err := a.openVectorIndex(ctx); err != nil {
		return nil, err
	}

	// Document search: primary backend with text fallback.
	var primary search.Searcher
	switch {
	case o.searcher != nil:
		primary = &searcherAdapter{s: o.searcher}
	default:
		primary = a.newPrimarySearcher(cortexClient)
	}
	searcher := search.WithFallback(primary, search.NewTextSearcher(a.db), logger)
	logger.Info("document search ready", "backend", searcher.Name())

	// Sessions.
	if cfg.SessionDB != "" {
		store, err := session.OpenSQLite(ctx, cfg.SessionDB, cfg.SessionTTL)
		if err != nil {
			return nil, err
		}
		a.sessions = store
		logger.Info("sessions: sqlite", "path", cfg.SessionDB, "ttl", cfg.SessionTTL)
	} else {
		a.sessions = session.NewMemoryStore(cfg.SessionTTL)
		logger.Info("sessions: memory", "ttl", cfg.SessionTTL)
	}

	// Copilot.
	generator, err := newSQLGenerator(ctx, cfg, cortexClient, logger)
	if err != nil {
		return nil, err
	}
	dataAnalyst := analyst.New(a.db, generator, logger)
	a.chat = copilot.New(a.db, dataAnalyst, a.sessions, logger)

	// MCP server.
	mcpSrv := mcp.New(a.chat, searcher, logger, version)

	// SSE broker.
	if a.db.HasNotify() {
		a.broker = server.NewBroker(a.db, logger)
	} else {
		logger.Info("SSE broker: disabled (no notify connection)")
	}

	// UI filesystem: a directory on disk wins over the embedded build.
	var uiFS fs.FS
	if cfg.UIDir != "" {
		uiFS = os.DirFS(cfg.UIDir)
		logger.Info("ui: serving from disk", "dir", cfg.UIDir)
	} else {
		uiFS, err = ui.DistFS()
		if err != nil {
			return nil, fmt.Errorf("ui: %w", err)
		}
		if uiFS != nil {
			logger.Info("ui: embedded SPA loaded")
		}
	}

	// Rate limiter.
	if cfg.RateLimitEnabled {
		a.limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		a.limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}

	guard := auth.NewGuard(cfg.APIKeyHash)
	if cfg.APIKeyHash == "" {
		logger.Warn("VIGIL_API_KEY_HASH unset, work order creation is open")
	}

	// Adapt public extension points to their internal shapes.
	var hooks []server.WorkOrderHook
	for _, h := range o.workOrderHooks {
		hooks = append(hooks, &workOrderHookAdapter{hook: h})
	}
	var extraRoutes []server.RouteRegistrar
	for _, fn := range o.routeRegistrars {
		extraRoutes = append(extraRoutes, func(mux *http.ServeMux, requireKey func(http.Handler) http.Handler) {
			fn(mux, requireKey)
		})
	}
	var middlewares []func(http.Handler) http.Handler
	for _, mw := range o.middlewares {
		middlewares = append(middlewares, mw)
	}

	a.srv = server.New(server.ServerConfig{
		Store:               a.db,
		Chat:                a.chat,
		Logger:              logger,
		Agent:               cortexClient,
		Searcher:            searcher,
		Broker:              a.broker,
		Limiter:             a.limiter,
		Guard:               guard,
		MCPServer:           mcpSrv.MCPServer(),
		Idempotency:         a.db,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		UIFS:                uiFS,
		OpenAPISpec:         api.OpenAPISpec,
		WorkOrderHooks:      hooks,
		ExtraRoutes:         extraRoutes,
		Middlewares:         middlewares,
	})

	ok = true
	return a, nil
}

// Handler returns the root HTTP handler, for tests and custom listeners.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

// Run starts all background goroutines and the HTTP server, then blocks until
// ctx is cancelled or a fatal server error occurs. On return, Shutdown is
// called automatically; callers should not call Shutdown separately.
func (a *App) Run(ctx context.Context) error {
	a.running.Store(true)

	if a.outbox != nil {
		a.outbox.Start(ctx)
	}
	if a.broker != nil {
		go a.broker.Start(ctx)
	}
	go session.RunSweeper(ctx, a.sessions, sessionSweepInterval, a.cfg.SessionTTL, a.logger)
	go a.idempotencyCleanupLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	if err := a.Shutdown(context.Background()); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func (a *App) idempotencyCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.IdempotencyCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			deleted, err := a.db.CleanupIdempotencyKeys(opCtx, a.cfg.IdempotencyCompletedTTL, a.cfg.IdempotencyAbandonedTTL)
			cancel()
			if err != nil {
				a.logger.Warn("idempotency cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				a.logger.Info("idempotency cleanup deleted rows", "deleted", deleted)
			}
		}
	}
}

// Shutdown performs a two-phase graceful shutdown:
// (1) stop accepting HTTP requests and drain in-flight,
// (2) push remaining outbox entries to the vector index.
// It then releases every resource via Close.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("vigil shutting down")

	httpCtx, httpCancel := context.WithTimeout(ctx, shutdownHTTPTimeout)
	err := a.srv.Shutdown(httpCtx)
	httpCancel()
	if err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}

	if a.outbox != nil && a.running.Load() {
		outboxCtx, outboxCancel := context.WithTimeout(ctx, shutdownOutboxTimeout)
		a.outbox.Drain(outboxCtx)
		outboxCancel()
	}

	a.Close()
	a.logger.Info("vigil stopped")
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close releases the warehouse pool, vector index, session store, rate
// limiter and telemetry exporters. Use it instead of Shutdown when Run was
// never called (one-shot CLI commands).
func (a *App) Close() {
	if a.limiter != nil {
		_ = a.limiter.Close()
	}
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			a.logger.Warn("session store close failed", "error", err)
		}
	}
	if a.closeIndex != nil {
		_ = a.closeIndex()
	}
	if a.db != nil {
		a.db.Close(context.Background())
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
}

// Migrate applies pending migrations and reports how many ran.
func (a *App) Migrate(ctx context.Context) (int, error) {
	total := 0
	for i, mfs := range a.migrationFS {
		n, err := a.db.RunMigrations(ctx, mfs)
		total += n
		if err != nil {
			return total, fmt.Errorf("migrations[%d]: %w", i, err)
		}
	}
	if total > 0 {
		a.logger.Info("migrations applied", "count", total)
	}
	return total, nil
}

// MigrationStatus lists every known migration file and when it was applied.
func (a *App) MigrationStatus(ctx context.Context) ([]MigrationStatus, error) {
	var out []MigrationStatus
	for _, mfs := range a.migrationFS {
		status, err := a.db.MigrationStatus(ctx, mfs)
		if err != nil {
			return nil, err
		}
		for _, m := range status {
			out = append(out, MigrationStatus{Version: m.Version, AppliedAt: m.AppliedAt})
		}
	}
	return out, nil
}

// verifySchema catches a warehouse whose migrations did not create the core
// tables, e.g. when the pgvector extension is missing.
func (a *App) verifySchema(ctx context.Context) error {
	var exists bool
	if err := a.db.Pool().QueryRow(ctx,
		`SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_schema = 'public' AND table_name = 'asset')`,
	).Scan(&exists); err != nil {
		return fmt.Errorf("schema verification: %w", err)
	}
	if !exists {
		return errors.New("schema verification: table 'asset' missing after migration, check that the pgvector extension is available")
	}
	return nil
}

// Ask sends one question through the copilot orchestrator.
func (a *App) Ask(ctx context.Context, question, persona, sessionID string) Answer {
	reply := a.chat.Process(ctx, copilot.Request{
		Message:   question,
		Persona:   persona,
		SessionID: sessionID,
	})
	return Answer{
		Agent:      reply.Agent,
		Persona:    reply.Persona.Name,
		Intent:     reply.Intent,
		Narrative:  reply.Narrative,
		Sources:    reply.Sources,
		AlertLevel: reply.AlertLevel,
		SessionID:  reply.SessionID,
	}
}

// SeedOptions selects the synthetic grid to generate.
type SeedOptions struct {
	ProfilePath string // YAML profile; empty uses the embedded five-region profile
	Seed        uint64 // overrides the profile seed when non-zero
	SkipIndex   bool   // skip rebuilding the search corpora
	Now         time.Time
}

// Seed replaces the warehouse contents with a generated grid and rebuilds
// the search corpora. It is meant for one-shot use before Run; when a
// vector index is configured the outbox is flushed before returning.
func (a *App) Seed(ctx context.Context, opts SeedOptions) (SeedSummary, error) {
	if a.running.Load() {
		return SeedSummary{}, errors.New("seed: server is running")
	}

	var p seed.Profile
	var err error
	if opts.ProfilePath != "" {
		p, err = seed.LoadProfile(opts.ProfilePath)
	} else {
		p, err = seed.DefaultProfile()
	}
	if err != nil {
		return SeedSummary{}, err
	}
	if opts.Seed != 0 {
		p.Seed = opts.Seed
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	var corpus seed.Corpus
	if !opts.SkipIndex {
		corpus = search.NewIndexer(a.db, a.embedder, a.logger)
	}
	sum, err := seed.New(a.db, corpus, a.logger).Run(ctx, p, now)
	if err != nil {
		return SeedSummary{}, err
	}

	if a.outbox != nil && corpus != nil {
		a.outbox.Start(ctx)
		drainCtx, cancel := context.WithTimeout(ctx, seedOutboxTimeout)
		a.outbox.Drain(drainCtx)
		cancel()
	}

	out := SeedSummary{
		Rows:      sum.Rows,
		Documents: map[string]int{},
		Digests:   map[string]string{},
		Elapsed:   sum.Elapsed,
	}
	for name, st := range sum.Documents {
		out.Documents[name] = st.Upserted
		out.Digests[name] = st.Digest
	}
	return out, nil
}

// ── Subsystem construction ────────────────────────────────────────────────────

// newCortexClient builds the Cortex client. Without Snowflake settings the
// client is returned unconfigured and every caller falls back.
func newCortexClient(cfg config.Config, logger *slog.Logger) (*cortex.Client, error) {
	ccfg := cortex.Config{
		Account:   cfg.SnowflakeAccount,
		User:      cfg.SnowflakeUser,
		Database:  cfg.SnowflakeDatabase,
		Schema:    cfg.SnowflakeSchema,
		AgentName: cfg.CortexAgentName,
		Timeout:   cfg.CortexTimeout,
	}
	if !cfg.CortexConfigured() {
		logger.Info("cortex: disabled (no Snowflake credentials)")
		return cortex.New(ccfg, nil, logger), nil
	}
	ccfg.Host = cfg.CortexHost()

	var tokens cortex.TokenSource
	if cfg.SnowflakeOAuthFile != "" {
		tokens = cortex.OAuthFileSource{Path: cfg.SnowflakeOAuthFile}
		logger.Info("cortex: enabled (oauth token file)", "host", ccfg.Host, "agent", ccfg.AgentName)
	} else {
		kp, err := cortex.LoadKeyPairSource(cfg.SnowflakeAccount, cfg.SnowflakeUser, cfg.SnowflakePrivateKey)
		if err != nil {
			return nil, err
		}
		tokens = kp
		logger.Info("cortex: enabled (key pair)", "host", ccfg.Host, "agent", ccfg.AgentName, "fingerprint", kp.Fingerprint())
	}
	return cortex.New(ccfg, tokens, logger), nil
}

// newEmbeddingProvider creates an embedding provider based on configuration.
// Provider selection: "gemini", "openai", "ollama", "noop", or "auto" (default).
// Auto mode tries Gemini, then OpenAI when a key is present, then Ollama when
// OLLAMA_URL is reachable, else noop.
func newEmbeddingProvider(ctx context.Context, cfg config.Config, logger *slog.Logger) embedding.Provider {
	dims := cfg.EmbeddingDimensions

	gemini := func() embedding.Provider {
		p, err := embedding.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, "", dims)
		if err != nil {
			logger.Error("gemini embedding provider init failed", "error", err)
			return embedding.NewNoopProvider(dims)
		}
		logger.Info("embedding provider: gemini", "dimensions", dims)
		return p
	}
	openai := func() embedding.Provider {
		logger.Info("embedding provider: openai", "dimensions", dims)
		return embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel, "", dims)
	}
	ollama := func() embedding.Provider {
		logger.Info("embedding provider: ollama", "url", cfg.OllamaURL, "dimensions", dims)
		return embedding.NewOllamaProvider(cfg.OllamaURL, cfg.EmbeddingModel, dims)
	}

	switch cfg.EmbeddingProvider {
	case "gemini":
		return gemini()
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Error("OPENAI_API_KEY required when VIGIL_EMBEDDING_PROVIDER=openai")
			return embedding.NewNoopProvider(dims)
		}
		return openai()
	case "ollama":
		return ollama()
	case "noop":
		logger.Info("embedding provider: noop (semantic search disabled)")
		return embedding.NewNoopProvider(dims)
	default:
		switch {
		case cfg.GeminiAPIKey != "":
			return gemini()
		case cfg.OpenAIAPIKey != "":
			return openai()
		case cfg.OllamaURL != "" && ollamaReachable(ctx, cfg.OllamaURL):
			return ollama()
		}
		logger.Warn("no embedding provider available, using noop (semantic search disabled)")
		return embedding.NewNoopProvider(dims)
	}
}

// newSQLGenerator picks the text-to-SQL backend for free-form data
// questions. A nil generator leaves the analyst on direct SQL only.
func newSQLGenerator(ctx context.Context, cfg config.Config, client *cortex.Client, logger *slog.Logger) (analyst.Generator, error) {
	kind := cfg.SQLGenerator
	if kind == "auto" {
		switch {
		case client.Configured():
			kind = "cortex"
		case cfg.GeminiAPIKey != "":
			kind = "gemini"
		case cfg.OpenAIAPIKey != "":
			kind = "openai"
		case cfg.OllamaURL != "":
			kind = "ollama"
		default:
			kind = "none"
		}
	}

	logger.Info("sql generator", "backend", kind)
	switch kind {
	case "cortex":
		if !client.Configured() {
			return nil, errors.New("VIGIL_SQL_GENERATOR=cortex requires Snowflake credentials")
		}
		mdl := cfg.SQLModel
		if mdl == "" {
			mdl = cfg.CortexModel
		}
		return analyst.NewCortexGenerator(client, mdl), nil
	case "gemini":
		g, err := analyst.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.SQLModel, "")
		if err != nil {
			return nil, err
		}
		return g, nil
	case "openai":
		return analyst.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.SQLModel, ""), nil
	case "ollama":
		return analyst.NewOllamaGenerator(cfg.OllamaURL, cfg.SQLModel), nil
	default:
		return nil, nil
	}
}

// openVectorIndex connects Qdrant or Pinecone (Qdrant wins) and creates the
// outbox worker that keeps it in sync with the document table.
func (a *App) openVectorIndex(ctx context.Context) error {
	cfg := a.cfg
	switch {
	case cfg.QdrantURL != "":
		idx, err := search.NewQdrantIndex(search.QdrantConfig{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			Dims:       uint64(cfg.EmbeddingDimensions), //nolint:gosec // validated positive in config.Validate
		}, a.logger)
		if err != nil {
			return err
		}
		a.closeIndex = idx.Close
		if err := idx.EnsureCollection(ctx); err != nil {
			return err
		}
		a.index = idx
		a.logger.Info("qdrant: enabled", "collection", cfg.QdrantCollection)
	case cfg.PineconeAPIKey != "":
		idx, err := search.NewPineconeIndex(ctx, search.PineconeConfig{
			APIKey:    cfg.PineconeAPIKey,
			IndexName: cfg.PineconeIndex,
			Host:      cfg.PineconeHost,
			Namespace: cfg.PineconeNamespace,
		}, a.logger)
		if err != nil {
			return err
		}
		a.closeIndex = idx.Close
		a.index = idx
		a.logger.Info("pinecone: enabled", "index", cfg.PineconeIndex)
	default:
		a.logger.Info("vector index: disabled (no QDRANT_URL or PINECONE_API_KEY)")
		return nil
	}
	a.outbox = search.NewOutboxWorker(a.db.Pool(), a.index, a.logger, cfg.OutboxInterval, cfg.OutboxBatchSize)
	return nil
}

// newPrimarySearcher prefers Cortex Search, then the vector index, then
// pgvector, and settles for text search when nothing produces embeddings.
func (a *App) newPrimarySearcher(client *cortex.Client) search.Searcher {
	noop := embedding.IsNoop(a.embedder)
	switch {
	case client.Configured():
		return search.NewCortexSearcher(client)
	case a.index != nil && !noop:
		return search.NewIndexSearcher(a.index, a.db, a.embedder)
	case !noop:
		return search.NewPGVectorSearcher(a.db, a.embedder)
	default:
		return search.NewTextSearcher(a.db)
	}
}

// ollamaReachable checks if an Ollama server is responding.
func ollamaReachable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ── Adapters (defined here because this file imports both sides) ───────────────

// providerAdapter wraps a public EmbeddingProvider to satisfy embedding.Provider.
type providerAdapter struct {
	p EmbeddingProvider
}

func (a *providerAdapter) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	v, err := a.p.Embed(ctx, text)
	if err != nil {
		return pgvector.Vector{}, err
	}
	return pgvector.NewVector(v), nil
}

func (a *providerAdapter) EmbedBatch(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	vs, err := a.p.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vs) != len(texts) {
		return nil, fmt.Errorf("embedding: provider returned %d vectors for %d texts", len(vs), len(texts))
	}
	out := make([]pgvector.Vector, len(vs))
	for i, v := range vs {
		out[i] = pgvector.NewVector(v)
	}
	return out, nil
}

func (a *providerAdapter) Dimensions() int { return a.p.Dimensions() }

// searcherAdapter wraps a public Searcher to satisfy search.Searcher.
type searcherAdapter struct {
	s Searcher
}

func (a *searcherAdapter) Name() string { return a.s.Name() }

func (a *searcherAdapter) Search(ctx context.Context, corpus, query string, limit int) ([]model.Document, error) {
	docs, err := a.s.Search(ctx, corpus, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Document, len(docs))
	for i, d := range docs {
		c := d.Corpus
		if c == "" {
			c = corpus
		}
		out[i] = model.Document{
			ID:       model.DocumentID(c, d.Title),
			Corpus:   c,
			Title:    d.Title,
			Content:  d.Content,
			Source:   d.Source,
			Metadata: d.Metadata,
			Score:    d.Score,
		}
	}
	return out, nil
}

func (a *searcherAdapter) Healthy(ctx context.Context) error { return a.s.Healthy(ctx) }

// workOrderHookAdapter wraps a public WorkOrderHook to satisfy server.WorkOrderHook.
type workOrderHookAdapter struct {
	hook WorkOrderHook
}

func (a *workOrderHookAdapter) OnWorkOrderCreated(ctx context.Context, id string, req model.CreateWorkOrderRequest) error {
	return a.hook.OnWorkOrderCreated(ctx, toPublicWorkOrder(id, req))
}

func toPublicWorkOrder(id string, req model.CreateWorkOrderRequest) WorkOrder {
	return WorkOrder{
		ID:            id,
		AssetID:       req.AssetID,
		WorkOrderType: req.WorkOrderType,
		Priority:      req.Priority,
		Description:   req.Description,
		EstimatedCost: req.EstimatedCost,
		ScheduledDate: req.ScheduledDate,
	}
}
