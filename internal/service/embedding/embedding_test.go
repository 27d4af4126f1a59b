package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 4, req.Dimensions)
		assert.Equal(t, "text-embedding-3-small", req.Model)

		// Answer out of order to check index handling.
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"index":     i,
				"embedding": []float32{float32(i), 0, 0, 1},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", "", srv.URL, 4)
	assert.Equal(t, 4, p.Dimensions())

	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for i, v := range vecs {
		assert.Equal(t, float32(i), v.Slice()[0])
	}

	vec, err := p.Embed(context.Background(), "single")
	require.NoError(t, err)
	assert.Len(t, vec.Slice(), 4)
}

func TestOpenAIProvider_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad key"}}`))
		}))
		defer srv.Close()

		_, err := NewOpenAIProvider("bad", "", srv.URL, 4).Embed(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad key")
	})

	t.Run("wrong dimensions", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,2]}]}`))
		}))
		defer srv.Close()

		_, err := NewOpenAIProvider("k", "", srv.URL, 4).Embed(context.Background(), "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimensions")
	})

	t.Run("missing embeddings", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"data":[]}`))
		}))
		defer srv.Close()

		_, err := NewOpenAIProvider("k", "", srv.URL, 4).EmbedBatch(context.Background(), []string{"x", "y"})
		assert.Error(t, err)
	})
}

func TestNoopProvider(t *testing.T) {
	p := NewNoopProvider(8)
	vec, err := p.Embed(context.Background(), "anything")
	require.NoError(t, err)
	assert.Len(t, vec.Slice(), 8)
	assert.True(t, IsNoop(p))
	assert.True(t, IsNoop(nil))
	assert.False(t, IsNoop(NewOllamaProvider("", "", 0)))
}

func TestGeminiProvider(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body struct {
			Requests []json.RawMessage `json:"requests"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		n := max(len(body.Requests), 1)
		embeddings := make([]map[string]any, n)
		for i := range embeddings {
			embeddings[i] = map[string]any{"values": []float32{0.1, 0.2, 0.3}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
	}))
	defer srv.Close()

	p, err := NewGeminiProvider(context.Background(), "test-key", "", srv.URL, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Dimensions())

	vecs, err := p.EmbedBatch(context.Background(), []string{"GO95 Rule 35", "Eucalyptus growth"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vecs[1].Slice())

	require.NotEmpty(t, paths)
	assert.True(t, strings.Contains(paths[0], "gemini-embedding-001"), paths[0])
}

func TestGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", "", "", 0)
	assert.Error(t, err)
}
