package cortex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Cortex Search services by corpus, relative to the configured database.
var searchServices = map[string]string{
	"go95":          "DOCS.GO95_SEARCH_SERVICE",
	"vegetation":    "DOCS.VEGETATION_SEARCH_SERVICE",
	"work_orders":   "DOCS.WORK_ORDER_SEARCH_SERVICE",
	"ami_anomalies": "DOCS.AMI_ANOMALY_SEARCH_SERVICE",
}

// SearchService returns the fully qualified search service for corpus.
func (c *Client) SearchService(corpus string) (string, bool) {
	rel, ok := searchServices[corpus]
	if !ok {
		return "", false
	}
	return c.cfg.Database + "." + rel, true
}

type searchRequest struct {
	Query   string   `json:"query"`
	Columns []string `json:"columns,omitempty"`
	Limit   int      `json:"limit"`
}

type searchResponse struct {
	Results []map[string]any `json:"results"`
}

// Search queries a Cortex Search service given as DATABASE.SCHEMA.SERVICE and
// returns the requested columns for each hit.
func (c *Client) Search(ctx context.Context, service, query string, columns []string, limit int) ([]map[string]any, error) {
	parts := strings.Split(service, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("cortex: search service %q is not DATABASE.SCHEMA.SERVICE", service)
	}
	if limit <= 0 {
		limit = 10
	}
	path := fmt.Sprintf("/api/v2/databases/%s/schemas/%s/cortex-search-services/%s:query",
		url.PathEscape(parts[0]), url.PathEscape(parts[1]), url.PathEscape(parts[2]))

	resp, err := c.post(ctx, path, searchRequest{Query: query, Columns: columns, Limit: limit}, "application/json")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("cortex: decode search response: %w", err)
	}
	return out.Results, nil
}
