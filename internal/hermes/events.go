package hermes

import (
	"encoding/json"
	"time"
)

// AnalysisRequestEvent asks Arbiter to queue an analysis run. Request is the
// JSON body the matching HTTP endpoint would accept.
type AnalysisRequestEvent struct {
	Kind           string          `json:"kind"`
	ScenarioID     string          `json:"scenario_id,omitempty"`
	ProjectID      string          `json:"project_id,omitempty"`
	Request        json.RawMessage `json:"request"`
	TimeoutSeconds int             `json:"timeout_seconds,omitempty"`
	MaxRetries     int             `json:"max_retries,omitempty"`
	Source         string          `json:"source,omitempty"`
}

type RunQueuedEvent struct {
	RunID      string `json:"run_id"`
	Kind       string `json:"kind"`
	ScenarioID string `json:"scenario_id,omitempty"`
}

type RunStartedEvent struct {
	RunID   string `json:"run_id"`
	Kind    string `json:"kind"`
	Attempt int    `json:"attempt"`
}

type RunCompletedEvent struct {
	RunID      string  `json:"run_id"`
	Kind       string  `json:"kind"`
	ScenarioID string  `json:"scenario_id,omitempty"`
	DurationMs int64   `json:"duration_ms"`
	Top        string  `json:"top_alternative,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

type RunFailedEvent struct {
	RunID string `json:"run_id"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

type RunTimeoutEvent struct {
	RunID      string `json:"run_id"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
}

type ScenarioAnalyzedEvent struct {
	ScenarioID        string   `json:"scenario_id"`
	RunID             string   `json:"run_id,omitempty"`
	TopAlternative    string   `json:"top_alternative"`
	OverallConfidence float64  `json:"overall_confidence"`
	KeyFindings       []string `json:"key_findings,omitempty"`
}

type StatsEvent struct {
	Pending   int       `json:"pending"`
	Running   int       `json:"running"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	TimedOut  int       `json:"timed_out"`
	AvgMs     float64   `json:"avg_completion_ms"`
	Timestamp time.Time `json:"timestamp"`
}
