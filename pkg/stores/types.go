package stores

import (
	"context"
	"time"
)

// RunStatus represents the status of a provisioning run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents one provisioning run.
type Run struct {
	ID          string     `json:"id"`
	Hostname    string     `json:"hostname"`
	Distro      string     `json:"distro"`
	Family      string     `json:"family"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Installed   int        `json:"installed"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	Error       *string    `json:"error,omitempty"`
	ReportPath  string     `json:"report_path"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PackageResult is the persisted terminal outcome for one package in
// one run.
type PackageResult struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Package    string    `json:"package"`
	Required   bool      `json:"required"`
	Outcome    string    `json:"outcome"` // installed, skipped, failed
	Reason     *string   `json:"reason,omitempty"`
	LastError  *string   `json:"last_error,omitempty"`
	Attempts   int       `json:"attempts"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Event is an append-only status event row.
type Event struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Type      string    `json:"type"`
	Level     string    `json:"level"`
	Package   *string   `json:"package,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Store defines the persistence layer for run history.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	CompleteRun(ctx context.Context, id string, status RunStatus, installed, skipped, failed int, errMsg *string) error
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)

	// Package results
	AddPackageResult(ctx context.Context, result *PackageResult) error
	ListPackageResults(ctx context.Context, runID string) ([]*PackageResult, error)

	// Events
	AppendEvent(ctx context.Context, event *Event) error
	ListEvents(ctx context.Context, runID string, limit int) ([]*Event, error)
}
