// Package store persists keyword research runs and their results.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sells-group/keyword-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status  model.RunStatus `json:"status,omitempty"`
	Product string          `json:"product,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

const defaultListLimit = 100

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for keyword research runs.
type Store interface {
	CreateRun(ctx context.Context, req model.RunRequest) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	// UpdateRunResult stores the result and marks the run complete.
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	// FailRun marks the run failed with a message.
	FailRun(ctx context.Context, runID string, msg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// NewRunID returns a short run identifier: the first 8 hex characters of a
// random UUID.
func NewRunID() string {
	return uuid.NewString()[:8]
}
