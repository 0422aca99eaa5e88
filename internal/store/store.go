package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusTimedOut  RunStatus = "timed_out"
)

// Terminal reports whether no further transitions are expected.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimedOut
}

type RunKind string

const (
	KindMonteCarlo  RunKind = "monte_carlo"
	KindSensitivity RunKind = "sensitivity"
	KindScenarios   RunKind = "scenarios"
	KindRisk        RunKind = "risk"
	KindSuite       RunKind = "suite"
)

// Valid reports whether k is a known run kind.
func (k RunKind) Valid() bool {
	switch k {
	case KindMonteCarlo, KindSensitivity, KindScenarios, KindRisk, KindSuite:
		return true
	}
	return false
}

// Run is one recorded analysis computation. Request and Result hold the JSON
// documents exchanged with the analysis engine.
type Run struct {
	ID         uuid.UUID `json:"run_id"`
	Kind       RunKind   `json:"kind"`
	ScenarioID string    `json:"scenario_id,omitempty"`
	ProjectID  string    `json:"project_id,omitempty"`
	Source     string    `json:"source,omitempty"`

	// State
	Status RunStatus `json:"status"`

	// Payloads
	Request json.RawMessage `json:"request,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`

	// Retry
	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// Timeout
	TimeoutSeconds int `json:"timeout_seconds"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type RunFilter struct {
	Status     *RunStatus
	Kind       RunKind
	ScenarioID string
	ProjectID  string
	Limit      int
	Offset     int
}

type RunEvent struct {
	ID        uuid.UUID              `json:"id"`
	RunID     uuid.UUID              `json:"run_id"`
	Event     string                 `json:"event"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type RunStats struct {
	TotalPending    int     `json:"total_pending"`
	TotalRunning    int     `json:"total_running"`
	TotalCompleted  int     `json:"total_completed"`
	TotalFailed     int     `json:"total_failed"`
	TotalTimedOut   int     `json:"total_timed_out"`
	AvgCompletionMs float64 `json:"avg_completion_ms"`
}

// Store persists runs. Lookups of unknown ids return nil, nil.
type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
	UpdateRun(ctx context.Context, run *Run) error

	// GetPendingRuns returns up to limit pending runs, oldest first.
	GetPendingRuns(ctx context.Context, limit int) ([]*Run, error)
	GetActiveRuns(ctx context.Context) ([]*Run, error)

	CreateRunEvent(ctx context.Context, event *RunEvent) error
	GetRunEvents(ctx context.Context, runID uuid.UUID) ([]*RunEvent, error)

	GetStats(ctx context.Context) (*RunStats, error)

	Close() error
}

const defaultListLimit = 100
