package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/vigil-grid/vigil/internal/cortex"
	"github.com/vigil-grid/vigil/internal/model"
)

// CortexClient is the part of the Cortex client used for search.
type CortexClient interface {
	Configured() bool
	SearchService(corpus string) (string, bool)
	Search(ctx context.Context, service, query string, columns []string, limit int) ([]map[string]any, error)
}

var cortexColumns = []string{"title", "content", "source"}

// CortexSearcher queries the Cortex Search service for each corpus.
type CortexSearcher struct {
	client CortexClient
}

// NewCortexSearcher creates a Cortex Search backed searcher.
func NewCortexSearcher(client CortexClient) *CortexSearcher {
	return &CortexSearcher{client: client}
}

func (*CortexSearcher) Name() string { return "cortex" }

// Search queries one corpus, or every corpus in turn when corpus is empty.
// Cortex returns hits in relevance order without scores, so scores are
// derived from rank.
func (s *CortexSearcher) Search(ctx context.Context, corpus, query string, limit int) ([]model.Document, error) {
	limit = clampLimit(limit)
	corpora := []string{corpus}
	if corpus == "" {
		corpora = model.Corpora
	}

	var out []model.Document
	for _, c := range corpora {
		service, ok := s.client.SearchService(c)
		if !ok {
			return nil, fmt.Errorf("search: no cortex search service for corpus %q", c)
		}
		rows, err := s.client.Search(ctx, service, query, cortexColumns, limit)
		if err != nil {
			return nil, fmt.Errorf("search: cortex %s: %w", c, err)
		}
		for i, row := range rows {
			out = append(out, cortexDocument(c, row, i))
		}
	}
	slices.SortStableFunc(out, func(a, b model.Document) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *CortexSearcher) Healthy(context.Context) error {
	if !s.client.Configured() {
		return cortex.ErrNotConfigured
	}
	return nil
}

func cortexDocument(corpus string, row map[string]any, rank int) model.Document {
	d := model.Document{
		Corpus:   corpus,
		Title:    firstString(row, "title", "name"),
		Content:  firstString(row, "content", "chunk", "text"),
		Source:   firstString(row, "source"),
		Metadata: row,
		Score:    1 / float64(rank+1),
	}
	d.ID = model.DocumentID(corpus, d.Title)
	return d
}

func firstString(row map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := row[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
