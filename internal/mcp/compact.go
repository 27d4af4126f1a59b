package mcp

import (
	"math"

	"github.com/vigil-grid/vigil/internal/model"
)

const maxCompactContent = 400

// compactDocument returns a minimal representation of a search hit for MCP
// responses. Metadata and the document id are dropped; long content is
// truncated.
func compactDocument(d model.Document) map[string]any {
	m := map[string]any{
		"title":   d.Title,
		"corpus":  d.Corpus,
		"content": truncate(d.Content, maxCompactContent),
	}
	if d.Source != "" {
		m["source"] = d.Source
	}
	if d.Score > 0 {
		m["score"] = math.Round(d.Score*1000) / 1000
	}
	if id, ok := d.Metadata["asset_id"]; ok {
		m["asset_id"] = id
	}
	return m
}

// truncate shortens s to maxLen runes, appending "..." when cut.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
