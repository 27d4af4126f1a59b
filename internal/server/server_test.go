package server_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-grid/vigil/internal/auth"
	"github.com/vigil-grid/vigil/internal/copilot"
	"github.com/vigil-grid/vigil/internal/ctxutil"
	"github.com/vigil-grid/vigil/internal/cortex"
	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/ratelimit"
	"github.com/vigil-grid/vigil/internal/server"
	"github.com/vigil-grid/vigil/internal/storage"
)

var testNow = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

// fakeStore serves canned warehouse rows.
type fakeStore struct {
	pingErr error
	assets  map[string]model.Asset

	mu      sync.Mutex
	created []model.CreateWorkOrderRequest
	audits  []ctxutil.AuditMeta

	predictionIDs []string
}

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStore) ListAssets(context.Context, model.AssetFilter) ([]model.Asset, error) {
	out := make([]model.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeStore) GetAsset(_ context.Context, id string) (model.Asset, error) {
	a, ok := s.assets[id]
	if !ok {
		return model.Asset{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *fakeStore) AssetSummary(context.Context) ([]model.AssetSummaryRow, error) { return nil, nil }
func (s *fakeStore) ReplacementPriorities(context.Context, int) ([]model.ReplacementPriority, error) {
	return nil, nil
}
func (s *fakeStore) ListVegetation(context.Context, string) ([]model.Encroachment, error) {
	return nil, nil
}
func (s *fakeStore) EncroachmentsForAsset(context.Context, string) ([]model.Encroachment, error) {
	return []model.Encroachment{}, nil
}
func (s *fakeStore) VegetationCompliance(context.Context) ([]model.ComplianceRow, error) {
	return nil, nil
}
func (s *fakeStore) TrimPriorities(context.Context, int) ([]model.Encroachment, error) {
	return nil, nil
}
func (s *fakeStore) ListRisk(context.Context, string) ([]model.RiskAssessment, error) {
	return nil, nil
}
func (s *fakeStore) RiskSummary(context.Context) ([]model.RiskSummaryRow, error) { return nil, nil }
func (s *fakeStore) PSPSCandidates(context.Context) ([]model.Circuit, error)      { return nil, nil }
func (s *fakeStore) ListWorkOrders(context.Context, string) ([]model.WorkOrder, error) {
	return nil, nil
}
func (s *fakeStore) WorkOrdersForAsset(context.Context, string) ([]model.WorkOrder, error) {
	return []model.WorkOrder{}, nil
}
func (s *fakeStore) WorkOrderBacklog(context.Context) ([]model.BacklogRow, error) { return nil, nil }

func (s *fakeStore) CreateWorkOrder(ctx context.Context, req model.CreateWorkOrderRequest, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, req)
	if meta, ok := ctxutil.AuditMetaFromContext(ctx); ok {
		s.audits = append(s.audits, meta)
	}
	return model.WorkOrderID(now), nil
}

func (s *fakeStore) WaterTreeingCandidates(context.Context) ([]model.WaterTreeingCandidate, error) {
	return nil, nil
}
func (s *fakeStore) AMIAnomalies(context.Context, int) ([]model.AMIReading, error) { return nil, nil }

func (s *fakeStore) AMIReadings(context.Context, int) ([]model.AMIReading, error) {
	return []model.AMIReading{
		{AssetID: "CBL-1", VoltageDipFlag: true, RainCorrelatedDip: true},
		{AssetID: "CBL-1", VoltageDipFlag: true, RainCorrelatedDip: true},
		{AssetID: "CBL-1", VoltageDipFlag: true},
		{AssetID: "CBL-2"},
	}, nil
}

func (s *fakeStore) MapAssets(context.Context) ([]model.MapAsset, error) { return nil, nil }

func (s *fakeStore) AssetHealthPredictions(context.Context, int) ([]model.AssetHealthPrediction, error) {
	return []model.AssetHealthPrediction{
		{AssetID: "POLE-1", PredictedCondition: "CRITICAL", PredictedHealthScore: 20},
		{AssetID: "POLE-2", PredictedCondition: "GOOD", PredictedHealthScore: 80},
	}, nil
}

func (s *fakeStore) VegetationGrowthPredictions(context.Context, int) ([]model.VegetationGrowthPrediction, error) {
	ten, forty := 10.0, 40.0
	return []model.VegetationGrowthPrediction{
		{AssetID: "POLE-1", GrowthRisk: "HIGH", PredictedDaysToContact: &ten},
		{AssetID: "POLE-2", GrowthRisk: "LOW", PredictedDaysToContact: &forty},
		{AssetID: "POLE-3", GrowthRisk: "LOW"},
	}, nil
}

func (s *fakeStore) IgnitionRiskPredictions(context.Context, int) ([]model.IgnitionRiskPrediction, error) {
	return nil, nil
}

func (s *fakeStore) CableFailurePredictions(context.Context, int) ([]model.CableFailurePrediction, error) {
	return []model.CableFailurePrediction{
		{AssetID: "CBL-1", PredictedWaterTreeing: 1, AssetAgeYears: 20},
		{AssetID: "CBL-2", PredictedWaterTreeing: 1, AssetAgeYears: 16},
		{AssetID: "CBL-3", PredictedWaterTreeing: 0, AssetAgeYears: 3},
	}, nil
}

func (s *fakeStore) CombinedRisk(context.Context, int) ([]model.CombinedRisk, error) { return nil, nil }

func (s *fakeStore) UrgentActions(context.Context, int) ([]model.CombinedRisk, error) {
	return []model.CombinedRisk{
		{AssetID: "POLE-1", MaintenancePriority: model.MaintenanceEmergency, TotalCustomers: 1200},
		{AssetID: "POLE-2", MaintenancePriority: model.MaintenanceHigh, TotalCustomers: 300},
	}, nil
}

func (s *fakeStore) CombinedRiskByRegion(context.Context) ([]model.RegionRisk, error) {
	return nil, nil
}
func (s *fakeStore) ModelCounts(context.Context) (model.ModelCounts, error) {
	return model.ModelCounts{}, nil
}

func (s *fakeStore) AssetPredictions(_ context.Context, ids []string) (map[string]model.AssetPredictions, model.PredictionCoverage, error) {
	s.predictionIDs = ids
	out := make(map[string]model.AssetPredictions, len(ids))
	for _, id := range ids {
		out[id] = model.AssetPredictions{}
	}
	return out, model.PredictionCoverage{}, nil
}

// fakeChat answers every message with a fixed narrative.
type fakeChat struct {
	narrative string
}

func (c fakeChat) Process(_ context.Context, req copilot.Request) copilot.Reply {
	return copilot.Reply{
		Narrative: c.narrative,
		Agent:     copilot.AgentOrchestrator,
		Persona:   copilot.PersonaFor(req.Persona),
		Intent:    "general",
		Sources:   []string{},
		SessionID: "sess-1",
	}
}

// threadRecorder captures the thread ids an agent was asked to continue.
type threadRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *threadRecorder) record(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *threadRecorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

// fakeAgent replays a fixed event sequence.
type fakeAgent struct {
	events  []cortex.Event
	threads *threadRecorder
}

func (a fakeAgent) Configured() bool { return true }

func (a fakeAgent) Run(ctx context.Context, _, threadID string) <-chan cortex.Event {
	if a.threads != nil {
		a.threads.record(threadID)
	}
	ch := make(chan cortex.Event)
	go func() {
		defer close(ch)
		for _, ev := range a.events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

type hookFunc func(ctx context.Context, id string, req model.CreateWorkOrderRequest) error

func (f hookFunc) OnWorkOrderCreated(ctx context.Context, id string, req model.CreateWorkOrderRequest) error {
	return f(ctx, id, req)
}

func newTestServer(t *testing.T, mutate func(*server.ServerConfig)) *httptest.Server {
	t.Helper()
	cfg := server.ServerConfig{
		Store: &fakeStore{assets: map[string]model.Asset{
			"POLE-1": {AssetID: "POLE-1", AssetType: "POLE", Region: "NORCAL"},
		}},
		Chat:                fakeChat{narrative: "All clear on circuit 7."},
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		Version:             "test",
		MaxRequestBodyBytes: 1 << 20,
		Now:                 func() time.Time { return testNow },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv := httptest.NewServer(server.New(cfg).Handler())
	t.Cleanup(srv.Close)
	return srv
}

type envelope struct {
	Data  json.RawMessage    `json:"data"`
	Error model.ErrorDetail  `json:"error"`
	Meta  model.ResponseMeta `json:"meta"`
}

func do(t *testing.T, method, url, body string, headers ...string) (*http.Response, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rdr)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func decodeData(t *testing.T, env envelope) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &m))
	return m
}

func TestRootAndHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, env := do(t, http.MethodGet, srv.URL+"/", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, env)
	assert.Equal(t, server.ServiceName, data["name"])
	assert.Equal(t, "operational", data["status"])
	assert.Contains(t, data, "fire_season")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, env = do(t, http.MethodGet, srv.URL+"/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = decodeData(t, env)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "connected", data["postgres"])
	assert.Equal(t, "not_configured", data["agent"])
}

func TestHealthUnhealthyWhenPostgresDown(t *testing.T) {
	srv := newTestServer(t, func(cfg *server.ServerConfig) {
		cfg.Store = &fakeStore{pingErr: errors.New("connection refused")}
	})
	resp, env := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	data := decodeData(t, env)
	assert.Equal(t, "unhealthy", data["status"])
	assert.Equal(t, "disconnected", data["postgres"])
}

func TestRequestIDPropagated(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, env := do(t, http.MethodGet, srv.URL+"/fire-season", "", "X-Request-ID", "req-abc")
	assert.Equal(t, "req-abc", resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "req-abc", env.Meta.RequestID)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, _ := do(t, http.MethodOptions, srv.URL+"/chat", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), auth.HeaderAPIKey)
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := newTestServer(t, func(cfg *server.ServerConfig) {
		cfg.ExtraRoutes = []server.RouteRegistrar{
			func(mux *http.ServeMux, _ func(http.Handler) http.Handler) {
				mux.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
			},
		}
	})
	resp, env := do(t, http.MethodGet, srv.URL+"/boom", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, model.ErrCodeInternalError, env.Error.Code)
}

func TestGetAsset(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, env := do(t, http.MethodGet, srv.URL+"/assets/pole-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, env)
	asset := data["asset"].(map[string]any)
	assert.Equal(t, "POLE-1", asset["asset_id"])

	resp, env = do(t, http.MethodGet, srv.URL+"/assets/POLE-404", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, model.ErrCodeNotFound, env.Error.Code)
}

func TestClearanceRequirement(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, env := do(t, http.MethodGet, srv.URL+"/vegetation/clearance-requirement?voltage_class=12kv&fire_district=tier-3", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, env)
	assert.InDelta(t, 6.0, data["required_clearance_ft"], 1e-9)

	resp, env = do(t, http.MethodGet, srv.URL+"/vegetation/clearance-requirement?voltage_class=999KV&fire_district=TIER_3", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, model.ErrCodeNotFound, env.Error.Code)

	resp, _ = do(t, http.MethodGet, srv.URL+"/vegetation/clearance-requirement?voltage_class=12KV", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFeatureImportanceUnknownModel(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, env := do(t, http.MethodGet, srv.URL+"/ml/feature-importance/crystal_ball", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, env.Error.Message, "Model 'crystal_ball' not found")
}

func TestMLSummaries(t *testing.T) {
	srv := newTestServer(t, nil)

	_, env := do(t, http.MethodGet, srv.URL+"/ml/asset-health", "")
	summary := decodeData(t, env)["summary"].(map[string]any)
	assert.EqualValues(t, 2, summary["total_predictions"])
	assert.EqualValues(t, 1, summary["critical_condition"])
	assert.InDelta(t, 50.0, summary["avg_health_score"], 1e-9)

	_, env = do(t, http.MethodGet, srv.URL+"/ml/vegetation-growth", "")
	summary = decodeData(t, env)["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["high_growth_risk"])
	assert.EqualValues(t, 1, summary["urgent_trim_needed"])
	assert.InDelta(t, 50.0/3, summary["avg_days_to_contact"], 1e-9)

	_, env = do(t, http.MethodGet, srv.URL+"/ml/cable-failure", "")
	data := decodeData(t, env)
	summary = data["summary"].(map[string]any)
	assert.EqualValues(t, 2, summary["at_risk_cables"])
	assert.InDelta(t, 18.0, summary["avg_age_at_risk"], 1e-9)
	assert.Equal(t, "Water Treeing Detection", data["discovery_info"].(map[string]any)["name"])

	_, env = do(t, http.MethodGet, srv.URL+"/ml/urgent-actions", "")
	summary = decodeData(t, env)["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["emergency_count"])
	assert.EqualValues(t, 1, summary["high_priority_count"])
	assert.EqualValues(t, 1500, summary["total_customers_affected"])
}

func TestAMICorrelation(t *testing.T) {
	srv := newTestServer(t, nil)
	_, env := do(t, http.MethodGet, srv.URL+"/discovery/ami-correlation", "")
	data := decodeData(t, env)
	corrs := data["correlations"].([]any)
	require.Len(t, corrs, 1)
	first := corrs[0].(map[string]any)
	assert.Equal(t, "CBL-1", first["asset_id"])
	assert.EqualValues(t, 2, first["rain_correlated"])
}

func TestAssetPredictions(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, func(cfg *server.ServerConfig) { cfg.Store = store })

	resp, env := do(t, http.MethodPost, srv.URL+"/ml/asset-predictions", `{"asset_ids":[]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeData(t, env)["predictions"])
	assert.Nil(t, store.predictionIDs)

	resp, env = do(t, http.MethodPost, srv.URL+"/ml/asset-predictions", `{"asset_ids":["POLE-1"," ","POLE-2"]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, decodeData(t, env)["total_assets"])
	assert.Equal(t, []string{"POLE-1", "POLE-2"}, store.predictionIDs)

	ids := make([]string, model.MaxAssetPredictionIDs+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("POLE-%04d", i)
	}
	body, _ := json.Marshal(model.AssetPredictionsRequest{AssetIDs: ids})
	resp, env = do(t, http.MethodPost, srv.URL+"/ml/asset-predictions", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, env)
	assert.EqualValues(t, model.MaxAssetPredictionIDs, data["total_assets"])
	assert.Len(t, data["predictions"], model.MaxAssetPredictionIDs)
	assert.Equal(t, ids[:model.MaxAssetPredictionIDs], store.predictionIDs)
}

func TestSearchRequiresQuery(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, _ := do(t, http.MethodGet, srv.URL+"/search/go95", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env := do(t, http.MethodGet, srv.URL+"/search/go95?query=clearance", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, model.ErrCodeUnavailable, env.Error.Code)
}

func TestCreateWorkOrder(t *testing.T) {
	hash, err := auth.HashAPIKey("operator-key")
	require.NoError(t, err)

	store := &fakeStore{}
	hooked := make(chan string, 1)
	srv := newTestServer(t, func(cfg *server.ServerConfig) {
		cfg.Store = store
		cfg.Guard = auth.NewGuard(hash)
		cfg.WorkOrderHooks = []server.WorkOrderHook{hookFunc(func(_ context.Context, id string, _ model.CreateWorkOrderRequest) error {
			hooked <- id
			return nil
		})}
	})
	body := `{"asset_id":"POLE-1","description":"trim oak"}`

	resp, env := do(t, http.MethodPost, srv.URL+"/work-orders", body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "missing API key", env.Error.Message)

	resp, _ = do(t, http.MethodPost, srv.URL+"/work-orders", body, auth.HeaderAPIKey, "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, env = do(t, http.MethodPost, srv.URL+"/work-orders", body, auth.HeaderAPIKey, "operator-key")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, env)
	wantID := model.WorkOrderID(testNow)
	assert.Equal(t, wantID, data["work_order_id"])
	assert.Equal(t, "created", data["status"])
	assert.Equal(t, "Work order "+wantID+" created successfully", data["message"])

	require.Len(t, store.created, 1)
	assert.Equal(t, model.DefaultWorkOrderType, store.created[0].WorkOrderType)
	assert.Equal(t, testNow.Format(time.DateOnly), store.created[0].ScheduledDate)

	select {
	case id := <-hooked:
		assert.Equal(t, wantID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("work order hook not called")
	}

	resp, _ = do(t, http.MethodPost, srv.URL+"/work-orders", `{"description":"no asset"}`, auth.HeaderAPIKey, "operator-key")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// fakeIdempotency keeps idempotency records in memory.
type fakeIdempotency struct {
	mu      sync.Mutex
	records map[string]*fakeIdemRecord
}

type fakeIdemRecord struct {
	hash     string
	done     bool
	status   int
	response []byte
}

func (f *fakeIdempotency) BeginIdempotency(_ context.Context, endpoint, key, hash string) (storage.IdempotencyLookup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records == nil {
		f.records = map[string]*fakeIdemRecord{}
	}
	rec, ok := f.records[endpoint+"|"+key]
	if !ok {
		f.records[endpoint+"|"+key] = &fakeIdemRecord{hash: hash}
		return storage.IdempotencyLookup{}, nil
	}
	if rec.hash != hash {
		return storage.IdempotencyLookup{}, storage.ErrIdempotencyPayloadMismatch
	}
	if !rec.done {
		return storage.IdempotencyLookup{}, storage.ErrIdempotencyInProgress
	}
	return storage.IdempotencyLookup{Completed: true, StatusCode: rec.status, ResponseData: rec.response}, nil
}

func (f *fakeIdempotency) CompleteIdempotency(_ context.Context, endpoint, key string, status int, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.records[endpoint+"|"+key]
	rec.done, rec.status, rec.response = true, status, b
	return nil
}

func (f *fakeIdempotency) ClearInProgressIdempotency(_ context.Context, endpoint, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, endpoint+"|"+key)
	return nil
}

func TestCreateWorkOrderIdempotent(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, func(cfg *server.ServerConfig) {
		cfg.Store = store
		cfg.Idempotency = &fakeIdempotency{}
	})
	body := `{"asset_id":"POLE-1","description":"trim oak"}`

	resp, env := do(t, http.MethodPost, srv.URL+"/work-orders", body, "Idempotency-Key", "crew-7-retry")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decodeData(t, env)

	resp, env = do(t, http.MethodPost, srv.URL+"/work-orders", body, "Idempotency-Key", "crew-7-retry")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("Idempotent-Replayed"))
	assert.Equal(t, first, decodeData(t, env))
	assert.Len(t, store.created, 1, "replay does not create a second order")

	resp, env = do(t, http.MethodPost, srv.URL+"/work-orders", `{"asset_id":"POLE-1","description":"other"}`,
		"Idempotency-Key", "crew-7-retry")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, model.ErrCodeConflict, env.Error.Code)

	resp, _ = do(t, http.MethodPost, srv.URL+"/work-orders", body, "Idempotency-Key", strings.Repeat("k", 256))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.MethodPost, srv.URL+"/work-orders", body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, store.created, 2, "requests without a key are not deduplicated")

	require.Len(t, store.audits, 2)
	assert.Equal(t, http.MethodPost, store.audits[0].HTTPMethod)
	assert.Equal(t, "/work-orders", store.audits[0].Endpoint)
	assert.Equal(t, "127.0.0.1", store.audits[0].ClientIP)
	assert.NotEmpty(t, store.audits[0].RequestID)
}

func TestRequestBodyTooLarge(t *testing.T) {
	srv := newTestServer(t, func(cfg *server.ServerConfig) { cfg.MaxRequestBodyBytes = 64 })
	resp, _ := do(t, http.MethodPost, srv.URL+"/chat", `{"message":"`+strings.Repeat("x", 200)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestChat(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, env := do(t, http.MethodPost, srv.URL+"/chat", `{"message":"how is circuit 7?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, env)
	assert.Equal(t, "All clear on circuit 7.", data["message"])
	assert.Equal(t, copilot.AgentOrchestrator, data["agent"])

	resp, env = do(t, http.MethodPost, srv.URL+"/chat", `{"message":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, model.ErrCodeInvalidInput, env.Error.Code)
}

func TestChatRateLimited(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(0.001, 1)
	t.Cleanup(func() { _ = limiter.Close() })
	srv := newTestServer(t, func(cfg *server.ServerConfig) { cfg.Limiter = limiter })

	resp, _ := do(t, http.MethodPost, srv.URL+"/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, env := do(t, http.MethodPost, srv.URL+"/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, model.ErrCodeRateLimited, env.Error.Code)

	// Other routes are not limited.
	resp, _ = do(t, http.MethodGet, srv.URL+"/fire-season", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type sseEvent struct {
	name string
	data map[string]any
}

func readSSE(t *testing.T, body io.Reader) []sseEvent {
	t.Helper()
	var events []sseEvent
	var cur sseEvent
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &cur.data))
		case line == "" && cur.name != "":
			events = append(events, cur)
			cur = sseEvent{}
		}
	}
	return events
}

func streamChat(t *testing.T, srv *httptest.Server) []sseEvent {
	t.Helper()
	resp, err := http.Post(srv.URL+"/chat/stream", "application/json", strings.NewReader(`{"message":"status?"}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	return readSSE(t, resp.Body)
}

func names(events []sseEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.name
	}
	return out
}

func TestChatStreamFallback(t *testing.T) {
	narrative := strings.Repeat("a", 150)
	srv := newTestServer(t, func(cfg *server.ServerConfig) { cfg.Chat = fakeChat{narrative: narrative} })

	events := streamChat(t, srv)
	require.Equal(t, []string{"fire_season", "text", "text", "complete"}, names(events))
	assert.Len(t, events[1].data["chunk"], 100)
	assert.Len(t, events[2].data["chunk"], 50)
	assert.Equal(t, copilot.AgentOrchestrator, events[3].data["agent"])
	assert.Equal(t, true, events[3].data["done"])
}

func TestChatStreamAgentRelay(t *testing.T) {
	srv := newTestServer(t, func(cfg *server.ServerConfig) {
		cfg.Agent = fakeAgent{events: []cortex.Event{
			{Type: cortex.EventThinking, Content: "checking circuits"},
			{Type: cortex.EventToolStatus, Title: "Running SQL", Status: "executing"},
			{Type: cortex.EventToolResult, SQL: "SELECT 1", Data: []any{1}},
			{Type: cortex.EventText, Content: "Circuit 7 "},
			{Type: cortex.EventText, Content: "is fine."},
			{Type: cortex.EventDone},
		}}
	})

	events := streamChat(t, srv)
	require.Equal(t, []string{"fire_season", "thinking", "tool_status", "tool_result", "text", "text", "complete"}, names(events))
	assert.Equal(t, "Thinking", events[1].data["title"])
	assert.Equal(t, "Running SQL", events[2].data["title"])
	assert.Equal(t, "executing", events[2].data["status"])
	assert.Equal(t, "SELECT 1", events[3].data["sql"])
	last := events[len(events)-1].data
	assert.Equal(t, server.AgentName, last["agent"])
	assert.Equal(t, "Circuit 7 is fine.", last["narrative"])
}

func TestChatStreamStartsFreshAgentThread(t *testing.T) {
	threads := &threadRecorder{}
	srv := newTestServer(t, func(cfg *server.ServerConfig) {
		cfg.Agent = fakeAgent{threads: threads, events: []cortex.Event{
			{Type: cortex.EventText, Content: "Circuit 7 is fine."},
			{Type: cortex.EventDone},
		}}
	})

	body := `{"message":"status?","session_id":"3f0e2b8c-5d4a-4c1e-9b7f-2a6d8e1c0f93"}`
	resp, err := http.Post(srv.URL+"/chat/stream", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := readSSE(t, resp.Body)
	require.Equal(t, []string{"fire_season", "text", "complete"}, names(events))
	assert.Equal(t, []string{""}, threads.get(), "session id must not be sent as a Cortex thread id")
}

func TestChatStreamAgentErrorFallsBack(t *testing.T) {
	srv := newTestServer(t, func(cfg *server.ServerConfig) {
		cfg.Agent = fakeAgent{events: []cortex.Event{
			{Type: cortex.EventStatus, Title: "Planning"},
			{Type: cortex.EventError, Content: "agent unavailable"},
		}}
	})

	events := streamChat(t, srv)
	require.Equal(t, []string{"fire_season", "status", "text", "complete"}, names(events))
	assert.Equal(t, "All clear on circuit 7.", events[2].data["chunk"])
	assert.Equal(t, copilot.AgentOrchestrator, events[3].data["agent"])
}

func TestEventsUnavailableWithoutBroker(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, env := do(t, http.MethodGet, srv.URL+"/events", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, model.ErrCodeUnavailable, env.Error.Code)
}
