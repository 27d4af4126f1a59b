package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pinecone-io/go-pinecone/v4/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// PineconeConfig holds configuration for a Pinecone serverless index.
type PineconeConfig struct {
	APIKey    string
	IndexName string
	// Host skips the DescribeIndex lookup when set.
	Host      string
	Namespace string
}

// PineconeIndex implements VectorIndex backed by Pinecone. All corpora share
// one namespace and are told apart by a "corpus" metadata field.
type PineconeIndex struct {
	conn   *pinecone.IndexConnection
	host   string
	logger *slog.Logger
}

// NewPineconeIndex connects to the configured index, resolving its host
// through the control plane when no host is given.
func NewPineconeIndex(ctx context.Context, cfg PineconeConfig, logger *slog.Logger) (*PineconeIndex, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("search: pinecone API key is required")
	}
	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("search: pinecone client: %w", err)
	}

	host := cfg.Host
	if host == "" {
		if cfg.IndexName == "" {
			return nil, fmt.Errorf("search: pinecone index name or host is required")
		}
		idx, err := client.DescribeIndex(ctx, cfg.IndexName)
		if err != nil {
			return nil, fmt.Errorf("search: describe pinecone index %q: %w", cfg.IndexName, err)
		}
		host = idx.Host
		logger.Info("pinecone: resolved index host", "index", cfg.IndexName, "host", host)
	}

	conn, err := client.Index(pinecone.NewIndexConnParams{Host: host, Namespace: cfg.Namespace})
	if err != nil {
		return nil, fmt.Errorf("search: connect to pinecone at %s: %w", host, err)
	}
	return &PineconeIndex{conn: conn, host: host, logger: logger}, nil
}

// Name identifies the backend in logs and health output.
func (p *PineconeIndex) Name() string { return "pinecone" }

// corpusFilter builds the metadata filter for one corpus; nil means all.
func corpusFilter(corpus string) (*pinecone.MetadataFilter, error) {
	if corpus == "" {
		return nil, nil
	}
	return structpb.NewStruct(map[string]any{
		"corpus": map[string]any{"$eq": corpus},
	})
}

// Query returns document IDs nearest to vec.
func (p *PineconeIndex) Query(ctx context.Context, corpus string, vec []float32, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	filter, err := corpusFilter(corpus)
	if err != nil {
		return nil, fmt.Errorf("search: pinecone filter: %w", err)
	}
	resp, err := p.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:         vec,
		TopK:           uint32(limit), //nolint:gosec // limit is bounded by MaxLimit
		MetadataFilter: filter,
	})
	if err != nil {
		return nil, fmt.Errorf("search: pinecone query: %w", err)
	}

	results := make([]Result, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		id, err := uuid.Parse(m.Vector.Id)
		if err != nil {
			p.logger.Warn("pinecone: invalid UUID in vector ID", "id", m.Vector.Id)
			continue
		}
		results = append(results, Result{DocumentID: id, Score: m.Score})
	}
	return results, nil
}

// pineconeVector converts a Point into a Pinecone vector with metadata.
func pineconeVector(pt Point) (*pinecone.Vector, error) {
	meta, err := structpb.NewStruct(pointPayload(pt))
	if err != nil {
		return nil, err
	}
	values := pt.Embedding
	return &pinecone.Vector{
		Id:       pt.ID.String(),
		Values:   &values,
		Metadata: meta,
	}, nil
}

// Upsert writes points to the index.
func (p *PineconeIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	vectors := make([]*pinecone.Vector, len(points))
	for i, pt := range points {
		v, err := pineconeVector(pt)
		if err != nil {
			return fmt.Errorf("search: pinecone metadata for %s: %w", pt.ID, err)
		}
		vectors[i] = v
	}
	if _, err := p.conn.UpsertVectors(ctx, vectors); err != nil {
		return fmt.Errorf("search: pinecone upsert %d vectors: %w", len(points), err)
	}
	return nil
}

// DeleteByIDs removes vectors by document ID.
func (p *PineconeIndex) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	if err := p.conn.DeleteVectorsById(ctx, strs); err != nil {
		return fmt.Errorf("search: pinecone delete %d vectors: %w", len(ids), err)
	}
	return nil
}

// Healthy asks the index for its stats.
func (p *PineconeIndex) Healthy(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := p.conn.DescribeIndexStats(checkCtx); err != nil {
		return fmt.Errorf("search: pinecone unhealthy: %w", err)
	}
	return nil
}

// Close releases the index connection.
func (p *PineconeIndex) Close() error {
	return p.conn.Close()
}
