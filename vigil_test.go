package vigil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-grid/vigil/internal/analyst"
	"github.com/vigil-grid/vigil/internal/config"
	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/service/embedding"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProvider struct {
	short bool
	err   error
}

func (f *fakeProvider) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, f.err
}

func (f *fakeProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	n := len(texts)
	if f.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (f *fakeProvider) Dimensions() int { return 2 }

type fakeSearcher struct{ docs []Document }

func (f *fakeSearcher) Name() string { return "custom" }

func (f *fakeSearcher) Search(context.Context, string, string, int) ([]Document, error) {
	return f.docs, nil
}

func (f *fakeSearcher) Healthy(context.Context) error { return nil }

type hookFunc func(ctx context.Context, wo WorkOrder) error

func (f hookFunc) OnWorkOrderCreated(ctx context.Context, wo WorkOrder) error { return f(ctx, wo) }

func TestOptions(t *testing.T) {
	logger := discardLogger()
	p := &fakeProvider{}
	s := &fakeSearcher{}

	var o resolvedOptions
	for _, opt := range []Option{
		WithPort(9100),
		WithDatabaseURL("postgres://pool"),
		WithNotifyURL("postgres://direct"),
		WithLogger(logger),
		WithVersion("1.2.3"),
		WithEmbeddingProvider(p),
		WithSearcher(s),
		WithWorkOrderHook(hookFunc(func(context.Context, WorkOrder) error { return nil })),
		WithWorkOrderHook(hookFunc(func(context.Context, WorkOrder) error { return nil })),
		WithExtraRoutes(func(*http.ServeMux, Middleware) {}),
		WithMiddleware(func(h http.Handler) http.Handler { return h }),
		WithoutMigrations(),
	} {
		opt(&o)
	}

	assert.Equal(t, 9100, o.port)
	assert.Equal(t, "postgres://pool", o.databaseURL)
	assert.Equal(t, "postgres://direct", o.notifyURL)
	assert.Same(t, logger, o.logger)
	assert.Equal(t, "1.2.3", o.version)
	assert.Same(t, p, o.embeddingProvider)
	assert.Same(t, s, o.searcher)
	assert.Len(t, o.workOrderHooks, 2)
	assert.Len(t, o.routeRegistrars, 1)
	assert.Len(t, o.middlewares, 1)
	assert.True(t, o.skipMigrations)
}

func TestProviderAdapter(t *testing.T) {
	ctx := context.Background()
	a := &providerAdapter{p: &fakeProvider{}}

	v, err := a.Embed(ctx, "oak near conductor")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, v.Slice())
	assert.Equal(t, 2, a.Dimensions())

	vs, err := a.EmbedBatch(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vs, 3)
	assert.Equal(t, []float32{2, 1}, vs[2].Slice())

	_, err = (&providerAdapter{p: &fakeProvider{short: true}}).EmbedBatch(ctx, []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 1 vectors for 2 texts")

	boom := errors.New("quota exceeded")
	_, err = (&providerAdapter{p: &fakeProvider{err: boom}}).Embed(ctx, "x")
	assert.ErrorIs(t, err, boom)
}

func TestSearcherAdapter(t *testing.T) {
	a := &searcherAdapter{s: &fakeSearcher{docs: []Document{
		{Title: "Rule 35", Content: "Minimum clearances", Score: 0.9},
		{Corpus: model.CorpusVegetation, Title: "Eucalyptus", Content: "Fast growth"},
	}}}

	assert.Equal(t, "custom", a.Name())
	require.NoError(t, a.Healthy(context.Background()))

	docs, err := a.Search(context.Background(), model.CorpusGO95, "clearance", 5)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, model.CorpusGO95, docs[0].Corpus, "empty corpus defaults to the searched one")
	assert.Equal(t, model.DocumentID(model.CorpusGO95, "Rule 35"), docs[0].ID)
	assert.InDelta(t, 0.9, docs[0].Score, 1e-9)
	assert.Equal(t, model.CorpusVegetation, docs[1].Corpus)
}

func TestWorkOrderHookAdapter(t *testing.T) {
	var got WorkOrder
	a := &workOrderHookAdapter{hook: hookFunc(func(_ context.Context, wo WorkOrder) error {
		got = wo
		return nil
	})}

	err := a.OnWorkOrderCreated(context.Background(), "WO-20260302093000", model.CreateWorkOrderRequest{
		AssetID:       "POLE-000123",
		WorkOrderType: "VEGETATION_MANAGEMENT",
		Priority:      "URGENT",
		Description:   "Trim eucalyptus",
		EstimatedCost: 1800,
		ScheduledDate: "2026-03-09",
	})
	require.NoError(t, err)
	assert.Equal(t, WorkOrder{
		ID:            "WO-20260302093000",
		AssetID:       "POLE-000123",
		WorkOrderType: "VEGETATION_MANAGEMENT",
		Priority:      "URGENT",
		Description:   "Trim eucalyptus",
		EstimatedCost: 1800,
		ScheduledDate: "2026-03-09",
	}, got)
}

func TestNewEmbeddingProvider(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()
	base := config.Config{EmbeddingDimensions: 1024}

	cfg := base
	cfg.EmbeddingProvider = "noop"
	assert.True(t, embedding.IsNoop(newEmbeddingProvider(ctx, cfg, logger)))

	cfg = base
	cfg.EmbeddingProvider = "auto"
	assert.True(t, embedding.IsNoop(newEmbeddingProvider(ctx, cfg, logger)), "nothing configured")

	cfg.OpenAIAPIKey = "sk-test"
	p := newEmbeddingProvider(ctx, cfg, logger)
	assert.False(t, embedding.IsNoop(p))
	assert.Equal(t, 1024, p.Dimensions())

	cfg = base
	cfg.EmbeddingProvider = "openai"
	assert.True(t, embedding.IsNoop(newEmbeddingProvider(ctx, cfg, logger)), "openai without a key")
}

func TestNewSQLGenerator(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()

	g, err := newSQLGenerator(ctx, config.Config{SQLGenerator: "auto"}, nil, logger)
	require.NoError(t, err)
	assert.Nil(t, g)

	g, err = newSQLGenerator(ctx, config.Config{SQLGenerator: "auto", OpenAIAPIKey: "sk-test"}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &analyst.OpenAIGenerator{}, g)

	g, err = newSQLGenerator(ctx, config.Config{SQLGenerator: "auto", OllamaURL: "http://localhost:11434"}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &analyst.OllamaGenerator{}, g)

	_, err = newSQLGenerator(ctx, config.Config{SQLGenerator: "cortex"}, nil, logger)
	require.Error(t, err)
}

func TestOllamaReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	assert.True(t, ollamaReachable(context.Background(), srv.URL))

	srv.Close()
	assert.False(t, ollamaReachable(context.Background(), srv.URL))
}
