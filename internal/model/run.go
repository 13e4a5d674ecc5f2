package model

import "time"

// RunStatus represents the current state of an enrichment run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusLooking   RunStatus = "looking_up"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents a single enrichment run for a subject.
type Run struct {
	ID        string     `json:"id"`
	Subject   Subject    `json:"subject"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Enriched      bool          `json:"enriched"`
	Sources       []SourceEntry `json:"sources"`
	Data          []RawSourceData `json:"data,omitempty"`
	SourcesTried  int           `json:"sources_tried"`
	SourcesOK     int           `json:"sources_ok"`
	BlockedCount  int           `json:"blocked_count"`
	TotalCostUSD  float64       `json:"total_cost_usd"`
	DurationMs    int64         `json:"duration_ms"`
	FailureReason string        `json:"failure_reason,omitempty"`
}
