package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate applies the embedded schema files in lexical order. Every file is
// idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := fs.ReadFile(migrationsFS, "migrations/"+f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", f, err)
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const runColumns = `run_id, kind, scenario_id, project_id, source,
	status, request, result, error,
	retry_count, max_retries, timeout_seconds,
	created_at, started_at, completed_at, updated_at`

// jsonArg maps an empty document to SQL NULL.
func jsonArg(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	if run.Status == "" {
		run.Status = StatusPending
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO arbiter_runs (kind, scenario_id, project_id, source,
			status, request, max_retries, timeout_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING run_id, created_at, updated_at`,
		run.Kind, run.ScenarioID, run.ProjectID, run.Source,
		run.Status, jsonArg(run.Request), run.MaxRetries, run.TimeoutSeconds,
	).Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+runColumns+` FROM arbiter_runs WHERE run_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM arbiter_runs WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.Kind != "" {
		n++
		query += fmt.Sprintf(" AND kind = $%d", n)
		args = append(args, string(filter.Kind))
	}
	if filter.ScenarioID != "" {
		n++
		query += fmt.Sprintf(" AND scenario_id = $%d", n)
		args = append(args, filter.ScenarioID)
	}
	if filter.ProjectID != "" {
		n++
		query += fmt.Sprintf(" AND project_id = $%d", n)
		args = append(args, filter.ProjectID)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limit)

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

func (s *PostgresStore) GetPendingRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM arbiter_runs WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

func (s *PostgresStore) GetActiveRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM arbiter_runs WHERE status = 'running'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRuns(rows)
}

func (s *PostgresStore) UpdateRun(ctx context.Context, run *Run) error {
	return s.pool.QueryRow(ctx, `
		UPDATE arbiter_runs SET
			status = $2, result = $3, error = $4,
			retry_count = $5, max_retries = $6, timeout_seconds = $7,
			started_at = $8, completed_at = $9, updated_at = now()
		WHERE run_id = $1
		RETURNING updated_at`,
		run.ID, run.Status, jsonArg(run.Result), run.Error,
		run.RetryCount, run.MaxRetries, run.TimeoutSeconds,
		run.StartedAt, run.CompletedAt,
	).Scan(&run.UpdatedAt)
}

func (s *PostgresStore) CreateRunEvent(ctx context.Context, event *RunEvent) error {
	payloadJSON, _ := json.Marshal(event.Payload)
	return s.pool.QueryRow(ctx, `
		INSERT INTO arbiter_run_events (run_id, event, payload)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		event.RunID, event.Event, payloadJSON,
	).Scan(&event.ID, &event.CreatedAt)
}

func (s *PostgresStore) GetRunEvents(ctx context.Context, runID uuid.UUID) ([]*RunEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, run_id, event, payload, created_at
		FROM arbiter_run_events WHERE run_id = $1
		ORDER BY created_at ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*RunEvent
	for rows.Next() {
		e := &RunEvent{}
		var payloadJSON []byte
		if err := rows.Scan(&e.ID, &e.RunID, &e.Event, &payloadJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if payloadJSON != nil {
			_ = json.Unmarshal(payloadJSON, &e.Payload)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *PostgresStore) GetStats(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'running' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'timed_out' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - started_at)) * 1000) FILTER (WHERE status = 'completed' AND completed_at IS NOT NULL AND started_at IS NOT NULL), 0)
		FROM arbiter_runs`,
	).Scan(&stats.TotalPending, &stats.TotalRunning, &stats.TotalCompleted,
		&stats.TotalFailed, &stats.TotalTimedOut, &stats.AvgCompletionMs)
	return stats, err
}

func scanRuns(rows pgx.Rows) ([]*Run, error) {
	var runs []*Run
	for rows.Next() {
		r := &Run{}
		var requestJSON, resultJSON []byte
		var runError sql.NullString
		if err := rows.Scan(
			&r.ID, &r.Kind, &r.ScenarioID, &r.ProjectID, &r.Source,
			&r.Status, &requestJSON, &resultJSON, &runError,
			&r.RetryCount, &r.MaxRetries, &r.TimeoutSeconds,
			&r.CreatedAt, &r.StartedAt, &r.CompletedAt, &r.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if runError.Valid {
			r.Error = runError.String
		}
		if requestJSON != nil {
			r.Request = json.RawMessage(requestJSON)
		}
		if resultJSON != nil {
			r.Result = json.RawMessage(resultJSON)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
