package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when updating a run the store does not hold.
var ErrRunNotFound = errors.New("run not found")

// MemoryStore keeps runs in process. It backs the service when no database
// is configured and the unit tests of everything above the store.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[uuid.UUID]*Run
	order  []uuid.UUID // insertion order
	events map[uuid.UUID][]*RunEvent
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:   make(map[uuid.UUID]*Run),
		events: make(map[uuid.UUID][]*RunEvent),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateRun(_ context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.Status == "" {
		run.Status = StatusPending
	}
	now := s.now()
	run.CreatedAt = now
	run.UpdatedAt = now
	if _, exists := s.runs[run.ID]; !exists {
		s.order = append(s.order, run.ID)
	}
	s.runs[run.ID] = copyRun(run)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id uuid.UUID) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	return copyRun(r), nil
}

func (s *MemoryStore) ListRuns(_ context.Context, filter RunFilter) ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Run
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.runs[s.order[i]]
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		if filter.ScenarioID != "" && r.ScenarioID != filter.ScenarioID {
			continue
		}
		if filter.ProjectID != "" && r.ProjectID != filter.ProjectID {
			continue
		}
		out = append(out, copyRun(r))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateRun(_ context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return ErrRunNotFound
	}
	run.UpdatedAt = s.now()
	s.runs[run.ID] = copyRun(run)
	return nil
}

func (s *MemoryStore) GetPendingRuns(_ context.Context, limit int) ([]*Run, error) {
	runs := s.byStatus(StatusPending)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.Before(runs[j].CreatedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *MemoryStore) GetActiveRuns(_ context.Context) ([]*Run, error) {
	return s.byStatus(StatusRunning), nil
}

func (s *MemoryStore) byStatus(status RunStatus) []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Run
	for _, id := range s.order {
		if r := s.runs[id]; r.Status == status {
			out = append(out, copyRun(r))
		}
	}
	return out
}

func (s *MemoryStore) CreateRunEvent(_ context.Context, event *RunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.ID = uuid.New()
	event.CreatedAt = s.now()
	e := *event
	s.events[event.RunID] = append(s.events[event.RunID], &e)
	return nil
}

func (s *MemoryStore) GetRunEvents(_ context.Context, runID uuid.UUID) ([]*RunEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*RunEvent, 0, len(s.events[runID]))
	for _, e := range s.events[runID] {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) GetStats(_ context.Context) (*RunStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &RunStats{}
	var totalMs float64
	var timed int
	for _, r := range s.runs {
		switch r.Status {
		case StatusPending:
			stats.TotalPending++
		case StatusRunning:
			stats.TotalRunning++
		case StatusCompleted:
			stats.TotalCompleted++
			if r.StartedAt != nil && r.CompletedAt != nil {
				totalMs += float64(r.CompletedAt.Sub(*r.StartedAt).Milliseconds())
				timed++
			}
		case StatusFailed:
			stats.TotalFailed++
		case StatusTimedOut:
			stats.TotalTimedOut++
		}
	}
	if timed > 0 {
		stats.AvgCompletionMs = totalMs / float64(timed)
	}
	return stats, nil
}

func (s *MemoryStore) Close() error { return nil }

func copyRun(r *Run) *Run {
	cp := *r
	if r.Request != nil {
		cp.Request = append(json.RawMessage(nil), r.Request...)
	}
	if r.Result != nil {
		cp.Result = append(json.RawMessage(nil), r.Result...)
	}
	if r.StartedAt != nil {
		t := *r.StartedAt
		cp.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
