package store

import (
	"context"
	"errors"

	"github.com/seantiz/hades/internal/model"
)

var (
	// ErrNotFound is returned when a run is not found.
	ErrNotFound = errors.New("store: run not found")
	// ErrInvalidTransition is returned when a run status transition is not allowed.
	ErrInvalidTransition = errors.New("store: invalid status transition")
)

// RunStats holds aggregate run statistics.
type RunStats struct {
	Total           int            `json:"total"`
	CountByStatus   map[string]int `json:"count_by_status"`
	CountByWorkflow map[string]int `json:"count_by_workflow"`
	AvgDurationMS   float64        `json:"avg_duration_ms"`
	TotalIterations int            `json:"total_iterations"`
}

// Store defines the persistence operations for runs and their iteration history.
type Store interface {
	CreateRun(ctx context.Context, r *model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*model.Run, int, error)
	UpdateRunStatus(ctx context.Context, id, status string) error
	UpdateRun(ctx context.Context, r *model.Run) error
	GetRunStats(ctx context.Context) (*RunStats, error)
	InsertIteration(ctx context.Context, it *model.Iteration) error
	GetIterations(ctx context.Context, runID string) ([]model.Iteration, error)
	Close() error
}
