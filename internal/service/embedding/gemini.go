package embedding

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"
)

// Gemini embedding task types.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// geminiMaxBatch is the Gemini API limit on contents per embed request.
const geminiMaxBatch = 100

// GeminiProvider generates embeddings with the Gemini API. Single texts are
// embedded as queries and batches as documents, which is how the search
// index uses them.
type GeminiProvider struct {
	client     *genai.Client
	model      string
	dimensions int
}

// NewGeminiProvider creates a Gemini embedding provider. baseURL is empty
// outside tests.
func NewGeminiProvider(ctx context.Context, apiKey, model, baseURL string, dims int) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if dims <= 0 {
		dims = DefaultDimensions
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiProvider{client: client, model: model, dimensions: dims}, nil
}

// Dimensions returns the requested output dimensionality.
func (p *GeminiProvider) Dimensions() int {
	return p.dimensions
}

// Embed embeds a search query.
func (p *GeminiProvider) Embed(ctx context.Context, text string) (pgvector.Vector, error) {
	vecs, err := p.embed(ctx, []string{text}, TaskRetrievalQuery)
	if err != nil {
		return pgvector.Vector{}, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds documents for indexing.
func (p *GeminiProvider) EmbedBatch(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([]pgvector.Vector, 0, len(texts))
	for start := 0; start < len(texts); start += geminiMaxBatch {
		end := min(start+geminiMaxBatch, len(texts))
		vecs, err := p.embed(ctx, texts[start:end], TaskRetrievalDocument)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (p *GeminiProvider) embed(ctx context.Context, texts []string, task string) ([]pgvector.Vector, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	dims := int32(p.dimensions) //nolint:gosec // bounded by config validation
	resp, err := p.client.Models.EmbedContent(ctx, p.model, contents, &genai.EmbedContentConfig{
		TaskType:             task,
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: embed content: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	vecs := make([]pgvector.Vector, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) != p.dimensions {
			return nil, fmt.Errorf("gemini: embedding %d has wrong dimensions", i)
		}
		vecs[i] = pgvector.NewVector(e.Values)
	}
	return vecs, nil
}
