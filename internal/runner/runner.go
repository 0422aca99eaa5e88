package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/Arbiter/internal/analysis"
	"github.com/MikeSquared-Agency/Arbiter/internal/config"
	"github.com/MikeSquared-Agency/Arbiter/internal/hermes"
	"github.com/MikeSquared-Agency/Arbiter/internal/metrics"
	"github.com/MikeSquared-Agency/Arbiter/internal/store"
)

// Runner executes queued analysis runs in the background.
type Runner struct {
	store  store.Store
	hermes hermes.Client
	exec   *Executor
	cfg    *config.Config
	logger *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a Runner. h may be nil when no event bus is configured.
func New(s store.Store, h hermes.Client, exec *Executor, cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{
		store:  s,
		hermes: h,
		exec:   exec,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(2)
	go r.pendingLoop(ctx)
	go r.timeoutLoop(ctx)
}

func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

// Validate checks a run request against the executor's defaults and limits.
func (r *Runner) Validate(kind store.RunKind, raw json.RawMessage) error {
	return r.exec.Validate(kind, raw)
}

// Submit validates and queues a run. Missing timeout and retry limits take
// the configured defaults.
func (r *Runner) Submit(ctx context.Context, run *store.Run) error {
	if !run.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, run.Kind)
	}
	if err := r.exec.Validate(run.Kind, run.Request); err != nil {
		return err
	}
	if run.TimeoutSeconds <= 0 {
		run.TimeoutSeconds = r.cfg.Runner.DefaultTimeoutSecs
	}
	if run.MaxRetries <= 0 {
		run.MaxRetries = r.cfg.Runner.MaxRetries
	}
	if run.Source == "" {
		run.Source = "api"
	}
	run.Status = store.StatusPending

	if err := r.store.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	_ = r.store.CreateRunEvent(ctx, &store.RunEvent{RunID: run.ID, Event: "queued"})
	hermes.PublishLogged(r.hermes, r.logger, hermes.SubjectRunQueued(run.ID.String()), hermes.RunQueuedEvent{
		RunID:      run.ID.String(),
		Kind:       string(run.Kind),
		ScenarioID: run.ScenarioID,
	})
	r.logger.Info("run queued", "run_id", run.ID, "kind", run.Kind, "source", run.Source)
	return nil
}

func (r *Runner) pendingLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.processPendingRuns(ctx)
		}
	}
}

func (r *Runner) processPendingRuns(ctx context.Context) {
	batch := r.cfg.Runner.BatchSize
	if batch <= 0 {
		batch = 1
	}
	runs, err := r.store.GetPendingRuns(ctx, batch)
	if err != nil {
		r.logger.Error("failed to get pending runs", "error", err)
		return
	}
	metrics.SetPending(len(runs))
	if len(runs) == 0 {
		return
	}

	var g errgroup.Group
	for _, run := range runs {
		g.Go(func() error {
			r.execute(ctx, run)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Runner) execute(ctx context.Context, run *store.Run) {
	started := time.Now().UTC()
	run.Status = store.StatusRunning
	run.StartedAt = &started
	run.Error = ""
	if err := r.store.UpdateRun(ctx, run); err != nil {
		r.logger.Error("failed to mark run running", "run_id", run.ID, "error", err)
		return
	}
	attempt := run.RetryCount + 1
	_ = r.store.CreateRunEvent(ctx, &store.RunEvent{
		RunID:   run.ID,
		Event:   "started",
		Payload: map[string]interface{}{"attempt": attempt},
	})
	hermes.PublishLogged(r.hermes, r.logger, hermes.SubjectRunStarted(run.ID.String()), hermes.RunStartedEvent{
		RunID:   run.ID.String(),
		Kind:    string(run.Kind),
		Attempt: attempt,
	})

	timeout := time.Duration(run.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = r.cfg.DefaultRunTimeout()
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := r.exec.Execute(runCtx, run.Kind, run.Request)
	elapsed := time.Since(started)

	switch {
	case err == nil:
		r.complete(ctx, run, result, elapsed)
	case ctx.Err() != nil:
		// Shutting down; hand the run back to the queue without spending a retry.
		run.Status = store.StatusPending
		run.StartedAt = nil
		if uerr := r.store.UpdateRun(context.WithoutCancel(ctx), run); uerr != nil {
			r.logger.Error("failed to requeue interrupted run", "run_id", run.ID, "error", uerr)
		}
	case errors.Is(err, context.DeadlineExceeded):
		r.handleTimeout(ctx, run, time.Now().UTC())
	default:
		r.fail(ctx, run, err, elapsed)
	}
}

func (r *Runner) complete(ctx context.Context, run *store.Run, result interface{}, elapsed time.Duration) {
	payload, err := json.Marshal(result)
	if err != nil {
		r.fail(ctx, run, fmt.Errorf("encode result: %w", err), elapsed)
		return
	}
	now := time.Now().UTC()
	run.Status = store.StatusCompleted
	run.Result = payload
	run.CompletedAt = &now
	if err := r.store.UpdateRun(ctx, run); err != nil {
		r.logger.Error("failed to store run result", "run_id", run.ID, "error", err)
		return
	}
	_ = r.store.CreateRunEvent(ctx, &store.RunEvent{RunID: run.ID, Event: "completed"})
	metrics.RecordRun(string(run.Kind), string(store.StatusCompleted), elapsed)

	top, confidence := outcome(result)
	hermes.PublishLogged(r.hermes, r.logger, hermes.SubjectRunCompleted(run.ID.String()), hermes.RunCompletedEvent{
		RunID:      run.ID.String(),
		Kind:       string(run.Kind),
		ScenarioID: run.ScenarioID,
		DurationMs: elapsed.Milliseconds(),
		Top:        top,
		Confidence: confidence,
	})
	if suite, ok := result.(*analysis.SuiteResult); ok && suite.ScenarioID != "" {
		hermes.PublishLogged(r.hermes, r.logger, hermes.SubjectScenarioAnalyzed(suite.ScenarioID), hermes.ScenarioAnalyzedEvent{
			ScenarioID:        suite.ScenarioID,
			RunID:             run.ID.String(),
			TopAlternative:    suite.Summary.TopAlternative,
			OverallConfidence: suite.Summary.OverallConfidence,
			KeyFindings:       suite.Summary.KeyFindings,
		})
	}
	r.logger.Info("run completed", "run_id", run.ID, "kind", run.Kind, "duration_ms", elapsed.Milliseconds())
}

// fail marks a run failed. Engine errors are deterministic, so failures are
// not retried.
func (r *Runner) fail(ctx context.Context, run *store.Run, cause error, elapsed time.Duration) {
	now := time.Now().UTC()
	run.Status = store.StatusFailed
	run.Error = cause.Error()
	run.CompletedAt = &now
	if err := r.store.UpdateRun(ctx, run); err != nil {
		r.logger.Error("failed to mark run failed", "run_id", run.ID, "error", err)
		return
	}
	_ = r.store.CreateRunEvent(ctx, &store.RunEvent{
		RunID:   run.ID,
		Event:   "failed",
		Payload: map[string]interface{}{"error": run.Error},
	})
	metrics.RecordRun(string(run.Kind), string(store.StatusFailed), elapsed)
	hermes.PublishLogged(r.hermes, r.logger, hermes.SubjectRunFailed(run.ID.String()), hermes.RunFailedEvent{
		RunID: run.ID.String(),
		Kind:  string(run.Kind),
		Error: run.Error,
	})
	r.logger.Warn("run failed", "run_id", run.ID, "kind", run.Kind, "error", cause)
}

// outcome extracts the headline of a result for completion events.
func outcome(result interface{}) (string, float64) {
	switch res := result.(type) {
	case *analysis.SuiteResult:
		return res.Summary.TopAlternative, res.Summary.OverallConfidence
	case *analysis.MonteCarloResult:
		if res == nil {
			return "", 0
		}
		return res.BestAlternative, res.Confidence
	}
	return "", 0
}

// SetupSubscriptions queues runs requested by other services over the bus.
func (r *Runner) SetupSubscriptions() {
	if r.hermes == nil {
		return
	}
	err := r.hermes.Subscribe(hermes.SubjectAnalysisRequest, func(_ string, data []byte) {
		var req hermes.AnalysisRequestEvent
		if err := json.Unmarshal(data, &req); err != nil {
			r.logger.Warn("invalid analysis request event", "error", err)
			return
		}
		run := &store.Run{
			Kind:           store.RunKind(req.Kind),
			ScenarioID:     req.ScenarioID,
			ProjectID:      req.ProjectID,
			Source:         req.Source,
			Request:        req.Request,
			TimeoutSeconds: req.TimeoutSeconds,
			MaxRetries:     req.MaxRetries,
		}
		if run.Source == "" {
			run.Source = "hermes"
		}
		if err := r.Submit(context.Background(), run); err != nil {
			r.logger.Error("failed to queue run from NATS request", "kind", req.Kind, "error", err)
		}
	})
	if err != nil {
		r.logger.Warn("failed to subscribe to analysis requests", "error", err)
	}
}
