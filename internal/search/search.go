// Package search retrieves regulatory and field documents (GO95 text,
// vegetation standards, work order notes, AMI anomaly write-ups) for the
// search endpoints and the assistant. Backends are Cortex Search, an
// external vector index (Qdrant or Pinecone) hydrated from Postgres,
// pgvector inside Postgres, and plain text matching, which is also the
// fallback when any other backend fails.
package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/service/embedding"
)

// DefaultLimit is used when a caller passes a non-positive limit.
const DefaultLimit = 5

// MaxLimit caps the documents returned by one search.
const MaxLimit = 50

// Searcher finds documents in a corpus. An empty corpus searches all of
// them. Implementations must be safe for concurrent use.
type Searcher interface {
	Name() string
	Search(ctx context.Context, corpus, query string, limit int) ([]model.Document, error)

	// Healthy returns nil if the backend is reachable.
	Healthy(ctx context.Context) error
}

// DocumentStore is the Postgres side of document search.
type DocumentStore interface {
	SearchDocumentsText(ctx context.Context, corpus, query string, limit int) ([]model.Document, error)
	SearchDocumentsVector(ctx context.Context, corpus string, vec pgvector.Vector, limit int) ([]model.Document, error)
	DocumentsByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Document, error)
	Ping(ctx context.Context) error
}

// Result is a document ID and its raw similarity score from a vector index.
// The caller hydrates full documents from Postgres (source of truth).
type Result struct {
	DocumentID uuid.UUID
	Score      float32
}

// Point is the data needed to upsert one document into a vector index.
type Point struct {
	ID        uuid.UUID
	Corpus    string
	Title     string
	Source    string
	Embedding []float32
}

// VectorIndex is an external ANN index holding document embeddings.
type VectorIndex interface {
	Name() string
	Query(ctx context.Context, corpus string, vec []float32, limit int) ([]Result, error)
	Upsert(ctx context.Context, points []Point) error
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
	Healthy(ctx context.Context) error
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// Hydrate joins index results with their Postgres documents, keeping the
// index score, and returns at most limit documents ordered by score.
// Results whose document no longer exists are dropped.
func Hydrate(results []Result, docs map[uuid.UUID]model.Document, limit int) []model.Document {
	out := make([]model.Document, 0, len(results))
	for _, r := range results {
		d, ok := docs[r.DocumentID]
		if !ok {
			continue
		}
		d.Score = float64(r.Score)
		out = append(out, d)
	}
	slices.SortStableFunc(out, func(a, b model.Document) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TextSearcher matches query text against document titles and bodies.
type TextSearcher struct {
	store DocumentStore
}

// NewTextSearcher creates a text searcher over the document table.
func NewTextSearcher(store DocumentStore) *TextSearcher {
	return &TextSearcher{store: store}
}

func (*TextSearcher) Name() string { return "text" }

func (s *TextSearcher) Search(ctx context.Context, corpus, query string, limit int) ([]model.Document, error) {
	return s.store.SearchDocumentsText(ctx, corpus, query, clampLimit(limit))
}

func (s *TextSearcher) Healthy(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// PGVectorSearcher embeds the query and ranks documents by cosine
// similarity inside Postgres.
type PGVectorSearcher struct {
	store    DocumentStore
	embedder embedding.Provider
}

// NewPGVectorSearcher creates a pgvector-backed searcher.
func NewPGVectorSearcher(store DocumentStore, embedder embedding.Provider) *PGVectorSearcher {
	return &PGVectorSearcher{store: store, embedder: embedder}
}

func (*PGVectorSearcher) Name() string { return "pgvector" }

func (s *PGVectorSearcher) Search(ctx context.Context, corpus, query string, limit int) ([]model.Document, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}
	return s.store.SearchDocumentsVector(ctx, corpus, vec, clampLimit(limit))
}

func (s *PGVectorSearcher) Healthy(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// IndexSearcher queries an external vector index and hydrates the hits
// from Postgres.
type IndexSearcher struct {
	index    VectorIndex
	store    DocumentStore
	embedder embedding.Provider
}

// NewIndexSearcher creates a searcher over an external vector index.
func NewIndexSearcher(index VectorIndex, store DocumentStore, embedder embedding.Provider) *IndexSearcher {
	return &IndexSearcher{index: index, store: store, embedder: embedder}
}

func (s *IndexSearcher) Name() string { return s.index.Name() }

func (s *IndexSearcher) Search(ctx context.Context, corpus, query string, limit int) ([]model.Document, error) {
	limit = clampLimit(limit)
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w", err)
	}
	// Over-fetch to absorb documents deleted since they were indexed.
	results, err := s.index.Query(ctx, corpus, vec.Slice(), limit*2)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []model.Document{}, nil
	}
	ids := make([]uuid.UUID, len(results))
	for i, r := range results {
		ids[i] = r.DocumentID
	}
	docs, err := s.store.DocumentsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("search: hydrate %s results: %w", s.index.Name(), err)
	}
	return Hydrate(results, docs, limit), nil
}

func (s *IndexSearcher) Healthy(ctx context.Context) error {
	return s.index.Healthy(ctx)
}

// Fallback uses primary and, when it fails, answers from fallback instead.
type Fallback struct {
	primary  Searcher
	fallback Searcher
	logger   *slog.Logger
}

// WithFallback wraps primary so that its errors degrade to fallback.
func WithFallback(primary, fallback Searcher, logger *slog.Logger) *Fallback {
	return &Fallback{primary: primary, fallback: fallback, logger: logger}
}

func (f *Fallback) Name() string { return f.primary.Name() }

func (f *Fallback) Search(ctx context.Context, corpus, query string, limit int) ([]model.Document, error) {
	docs, err := f.primary.Search(ctx, corpus, query, limit)
	if err == nil {
		return docs, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	f.logger.Warn("search: backend failed, using fallback",
		"backend", f.primary.Name(), "fallback", f.fallback.Name(), "corpus", corpus, "error", err)
	return f.fallback.Search(ctx, corpus, query, limit)
}

func (f *Fallback) Healthy(ctx context.Context) error {
	return f.primary.Healthy(ctx)
}
