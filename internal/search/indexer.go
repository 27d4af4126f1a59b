package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/vigil-grid/vigil/internal/integrity"
	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/service/embedding"
)

// DocumentWriter persists documents. Writes with an embedding queue an
// outbox entry so the external index catches up.
type DocumentWriter interface {
	UpsertDocument(ctx context.Context, doc model.Document, embedding *pgvector.Vector) (uuid.UUID, error)
	PruneDocuments(ctx context.Context, corpus string, keep []uuid.UUID) (int, error)
	EmbeddedHashes(ctx context.Context, corpus string) (map[uuid.UUID]string, error)
}

// IndexStats reports the result of one Index call.
type IndexStats struct {
	Upserted  int
	Embedded  int
	Unchanged int // embedded documents whose content hash matched
	Pruned    int
	Digest    string // Merkle root of the corpus content hashes
}

// Indexer writes a corpus to Postgres, embedding each new or changed document
// when a real provider is configured, and prunes documents no longer in the
// corpus.
type Indexer struct {
	store    DocumentWriter
	embedder embedding.Provider
	logger   *slog.Logger
}

// NewIndexer creates an indexer. A nil or noop embedder stores documents
// without vectors; text search still finds them.
func NewIndexer(store DocumentWriter, embedder embedding.Provider, logger *slog.Logger) *Indexer {
	return &Indexer{store: store, embedder: embedder, logger: logger.With("component", "indexer")}
}

// Index replaces the contents of corpus with docs.
func (ix *Indexer) Index(ctx context.Context, corpus string, docs []model.Document) (IndexStats, error) {
	var stats IndexStats

	docs = slices.Clone(docs)
	hashes := make([]string, len(docs))
	for i := range docs {
		docs[i].Corpus = corpus
		if docs[i].ID == uuid.Nil {
			docs[i].ID = model.DocumentID(corpus, docs[i].Title)
		}
		docs[i].ContentHash = integrity.ContentHash(docs[i].Title, docs[i].Content, docs[i].Source)
		hashes[i] = docs[i].ContentHash
	}
	stats.Digest = integrity.CorpusDigest(hashes)

	vecs, err := ix.embedStale(ctx, corpus, docs, &stats)
	if err != nil {
		return stats, err
	}

	keep := make([]uuid.UUID, 0, len(docs))
	for i, d := range docs {
		id, err := ix.store.UpsertDocument(ctx, d, vecs[i])
		if err != nil {
			return stats, fmt.Errorf("search: store %q: %w", d.Title, err)
		}
		keep = append(keep, id)
		stats.Upserted++
	}

	pruned, err := ix.store.PruneDocuments(ctx, corpus, keep)
	if err != nil {
		return stats, fmt.Errorf("search: prune %s corpus: %w", corpus, err)
	}
	stats.Pruned = pruned

	ix.logger.Info("corpus indexed", "corpus", corpus,
		"upserted", stats.Upserted, "embedded", stats.Embedded, "unchanged", stats.Unchanged,
		"pruned", stats.Pruned, "digest", stats.Digest)
	return stats, nil
}

// embedStale embeds the documents whose stored embedding was computed from
// different content. The result is parallel to docs; nil entries keep the
// stored embedding.
func (ix *Indexer) embedStale(ctx context.Context, corpus string, docs []model.Document, stats *IndexStats) ([]*pgvector.Vector, error) {
	out := make([]*pgvector.Vector, len(docs))
	if embedding.IsNoop(ix.embedder) || len(docs) == 0 {
		return out, nil
	}

	stored, err := ix.store.EmbeddedHashes(ctx, corpus)
	if err != nil {
		return nil, fmt.Errorf("search: %s corpus hashes: %w", corpus, err)
	}
	var stale []int
	var texts []string
	for i, d := range docs {
		if integrity.VerifyContentHash(stored[d.ID], d.Title, d.Content, d.Source) {
			stats.Unchanged++
			continue
		}
		stale = append(stale, i)
		texts = append(texts, d.Title+"\n\n"+d.Content)
	}
	if len(stale) == 0 {
		return out, nil
	}

	vecs, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("search: embed %s corpus: %w", corpus, err)
	}
	if len(vecs) != len(stale) {
		return nil, fmt.Errorf("search: embed %s corpus: got %d vectors for %d documents", corpus, len(vecs), len(stale))
	}
	for j, i := range stale {
		out[i] = &vecs[j]
		stats.Embedded++
	}
	return out, nil
}
