package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ollamaStub answers /api/embeddings with a dims-long vector whose first
// element is the prompt length, so callers can tell results apart.
type ollamaStub struct {
	dims int

	mu      sync.Mutex
	prompts []string
	models  []string
}

func (s *ollamaStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/api/embeddings" {
		http.NotFound(w, r)
		return
	}
	var req ollamaEmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.prompts = append(s.prompts, req.Prompt)
	s.models = append(s.models, req.Model)
	s.mu.Unlock()

	if strings.Contains(req.Prompt, "MALFORMED") {
		http.Error(w, "model crashed", http.StatusInternalServerError)
		return
	}
	vec := make([]float32, s.dims)
	vec[0] = float32(len(req.Prompt))
	_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: vec})
}

func TestOllamaProviderDefaults(t *testing.T) {
	p := NewOllamaProvider("http://ollama:11434/", "", 0)
	assert.Equal(t, "http://ollama:11434", p.baseURL)
	assert.Equal(t, "mxbai-embed-large", p.model)
	assert.Equal(t, DefaultDimensions, p.Dimensions())
}

func TestOllamaProviderEmbedsCorpusDocuments(t *testing.T) {
	stub := &ollamaStub{dims: 1024}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "mxbai-embed-large", 1024)

	// Documents are embedded as "title\n\ncontent", the indexer's format.
	texts := []string{
		"Rule 35 - Vegetation Management\n\nMinimum radial clearance of 4 feet in TIER_3.",
		"EUCALYPTUS\n\nGrows up to 6 ft per year.",
		"WO-000042\n\nEmergency trim near conductor on Paradise 1101.",
	}
	vecs, err := p.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, v := range vecs {
		s := v.Slice()
		require.Len(t, s, 1024)
		assert.InDelta(t, float64(len(texts[i])), float64(s[0]), 0, "vector %d out of order", i)
	}

	assert.ElementsMatch(t, texts, stub.prompts)
	for _, m := range stub.models {
		assert.Equal(t, "mxbai-embed-large", m)
	}

	single, err := p.Embed(context.Background(), texts[1])
	require.NoError(t, err)
	assert.InDelta(t, float64(len(texts[1])), float64(single.Slice()[0]), 0)
}

func TestOllamaProviderEmptyBatch(t *testing.T) {
	p := NewOllamaProvider("http://127.0.0.1:1", "", 1024)
	vecs, err := p.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestOllamaProviderDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(&ollamaStub{dims: 768})
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", 1024)
	_, err := p.Embed(context.Background(), "Rule 35")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 768 dimensions, want 1024")
}

func TestOllamaProviderBatchNamesFailingItem(t *testing.T) {
	srv := httptest.NewServer(&ollamaStub{dims: 1024})
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "", 1024)
	_, err := p.EmbedBatch(context.Background(), []string{"OAK\n\nslow", "MALFORMED\n\n", "PINE\n\nmoderate"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch item 1")
	assert.Contains(t, err.Error(), "status 500")
}

func TestOllamaProviderBadResponses(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"empty embedding": func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{})
		},
		"invalid json": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			_, err := NewOllamaProvider(srv.URL, "", 1024).Embed(context.Background(), "Rule 35")
			assert.Error(t, err)
		})
	}
}
