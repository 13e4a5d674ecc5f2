// Package store persists enrichment runs and their per-source provenance.
package store

import (
	"context"
	"time"

	"github.com/deadonfilm/enrich/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	SubjectName  string          `json:"subject_name,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for enrichment runs.
type Store interface {
	// SaveRun upserts a run by ID, including its result when present.
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// InsertSourceEntries records the provenance rows for a run.
	InsertSourceEntries(ctx context.Context, runID string, entries []model.SourceEntry) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
