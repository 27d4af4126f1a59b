package server

import (
	"net/http"
	"strings"

	"github.com/vigil-grid/vigil/internal/model"
	"github.com/vigil-grid/vigil/internal/search"
)

// HandleSearch returns a handler for GET /search/{corpus}?query=&limit=.
func (h *Handlers) HandleSearch(corpus string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("query"))
		if query == "" {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "query is required")
			return
		}
		if h.searcher == nil {
			writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeUnavailable, "search is not configured")
			return
		}

		docs, err := h.searcher.Search(r.Context(), corpus, query, queryLimit(r, search.DefaultLimit, search.MaxLimit))
		if err != nil {
			h.internalError(w, r, "search "+corpus, err)
			return
		}
		if docs == nil {
			docs = []model.Document{}
		}
		writeJSON(w, r, http.StatusOK, map[string]any{
			"results":     docs,
			"query":       query,
			"corpus":      corpus,
			"backend":     h.searcher.Name(),
			"fire_season": h.fireSeason(),
		})
	}
}
