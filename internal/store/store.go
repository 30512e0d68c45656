// Package store persists the harvest run ledger. Every harvest creates a
// run row up front and resolves it to complete or failed, so interrupted
// harvests stay visible after the process is gone.
package store

import (
	"context"
	"time"
)

// RunStatus is the lifecycle state of a harvest run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSpec captures what a harvest run was asked to do.
type RunSpec struct {
	StartPeriod  string   `json:"start_period,omitempty"`
	EndPeriod    string   `json:"end_period,omitempty"`
	VehicleTypes []string `json:"vehicle_types"`
	Mode         string   `json:"mode"`
	OutputDir    string   `json:"output_dir"`
}

// RunCounts summarizes what a completed run extracted.
type RunCounts struct {
	Periods     int `json:"periods"`
	Brands      int `json:"brands"`
	Models      int `json:"models"`
	YearModels  int `json:"year_models"`
	Values      int `json:"values"`
	TasksTotal  int `json:"tasks_total"`
	TasksFailed int `json:"tasks_failed"`
}

// Run is one ledger row.
type Run struct {
	ID        string
	Spec      RunSpec
	Status    RunStatus
	Counts    *RunCounts
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus
	Limit  int
	Offset int
}

// Store defines the run ledger persistence interface.
type Store interface {
	CreateRun(ctx context.Context, spec RunSpec) (*Run, error)
	CompleteRun(ctx context.Context, runID string, counts RunCounts) error
	FailRun(ctx context.Context, runID string, runErr error) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
