package model

import "github.com/google/uuid"

// Document corpora searched by the retrieval layer.
const (
	CorpusGO95       = "go95"
	CorpusVegetation = "vegetation"
	CorpusWorkOrders = "work_orders"
	CorpusAMIAnomaly = "ami_anomalies"
)

// Corpora lists every known corpus.
var Corpora = []string{CorpusGO95, CorpusVegetation, CorpusWorkOrders, CorpusAMIAnomaly}

// Document is a regulatory or field document available for retrieval.
type Document struct {
	ID       uuid.UUID      `json:"id"`
	Corpus   string         `json:"corpus"`
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Source   string         `json:"source,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score,omitempty"`

	// ContentHash fingerprints Title, Content and Source. Set by the indexer.
	ContentHash string `json:"-"`
}

// DocumentID derives a stable id from corpus and title so reseeding updates
// rather than duplicates.
func DocumentID(corpus, title string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("vigil:"+corpus+"/"+title))
}
