package vigil

import "time"

// WorkOrder is the public view of a work order created through the API.
// No internal package imports, so it is safe to use from outside the module.
type WorkOrder struct {
	ID            string
	AssetID       string
	WorkOrderType string
	Priority      string
	Description   string
	EstimatedCost float64
	ScheduledDate string // YYYY-MM-DD, empty when unscheduled
}

// Document is a retrieved passage from one of the search corpora.
type Document struct {
	Corpus   string
	Title    string
	Content  string
	Source   string
	Metadata map[string]any
	Score    float64
}

// Answer is the copilot's reply to a question.
type Answer struct {
	Agent      string
	Persona    string
	Intent     string
	Narrative  string
	Sources    []string
	AlertLevel string
	SessionID  string
}

// SeedSummary reports what a seed run wrote.
type SeedSummary struct {
	Rows      map[string]int64  // rows copied, keyed by table
	Documents map[string]int    // documents indexed, keyed by corpus
	Digests   map[string]string // corpus content digests, keyed by corpus
	Elapsed   time.Duration
}

// MigrationStatus is one migration file and when it was applied.
type MigrationStatus struct {
	Version   string
	AppliedAt *time.Time // nil when pending
}
