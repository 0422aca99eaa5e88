package runner

import (
	"context"
	"time"

	"github.com/MikeSquared-Agency/Arbiter/internal/hermes"
	"github.com/MikeSquared-Agency/Arbiter/internal/metrics"
	"github.com/MikeSquared-Agency/Arbiter/internal/store"
)

func (r *Runner) timeoutLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.TimeoutSweep())
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.checkTimeouts(ctx)
			r.publishStats(ctx)
		}
	}
}

// checkTimeouts catches runs left running past their deadline, e.g. by a
// process that died mid-run. One sweep of grace leaves runs this process is
// still executing to their own deadline.
func (r *Runner) checkTimeouts(ctx context.Context) {
	runs, err := r.store.GetActiveRuns(ctx)
	if err != nil {
		r.logger.Error("failed to get active runs for timeout check", "error", err)
		return
	}

	now := time.Now().UTC()
	for _, run := range runs {
		if run.StartedAt == nil {
			continue
		}
		timeout := time.Duration(run.TimeoutSeconds)*time.Second + r.cfg.TimeoutSweep()
		if now.Sub(*run.StartedAt) <= timeout {
			continue
		}
		r.handleTimeout(ctx, run, now)
	}
}

// handleTimeout requeues a timed-out run while retries remain, otherwise
// marks it timed_out.
func (r *Runner) handleTimeout(ctx context.Context, run *store.Run, now time.Time) {
	r.logger.Warn("run timed out", "run_id", run.ID, "kind", run.Kind, "retry_count", run.RetryCount)

	var elapsed time.Duration
	if run.StartedAt != nil {
		elapsed = now.Sub(*run.StartedAt)
	}

	if run.RetryCount < run.MaxRetries {
		run.RetryCount++
		run.Status = store.StatusPending
		run.StartedAt = nil
		if err := r.store.UpdateRun(ctx, run); err != nil {
			r.logger.Error("failed to reset timed out run", "run_id", run.ID, "error", err)
			return
		}
		_ = r.store.CreateRunEvent(ctx, &store.RunEvent{
			RunID: run.ID,
			Event: "timeout_retry",
		})
		metrics.RecordRun(string(run.Kind), "retried", elapsed)
		hermes.PublishLogged(r.hermes, r.logger, hermes.SubjectRunTimeout(run.ID.String()), hermes.RunTimeoutEvent{
			RunID:      run.ID.String(),
			RetryCount: run.RetryCount,
			MaxRetries: run.MaxRetries,
		})
		hermes.PublishLogged(r.hermes, r.logger, hermes.SubjectRunRetry(run.ID.String()), map[string]interface{}{
			"run_id":      run.ID.String(),
			"retry_count": run.RetryCount,
			"max_retries": run.MaxRetries,
		})
		return
	}

	completedAt := now
	run.Status = store.StatusTimedOut
	run.CompletedAt = &completedAt
	run.Error = "run timed out after all retries"
	if err := r.store.UpdateRun(ctx, run); err != nil {
		r.logger.Error("failed to mark run as timed out", "run_id", run.ID, "error", err)
		return
	}
	_ = r.store.CreateRunEvent(ctx, &store.RunEvent{
		RunID: run.ID,
		Event: "timeout_exhausted",
	})
	metrics.RecordRun(string(run.Kind), string(store.StatusTimedOut), elapsed)
	hermes.PublishLogged(r.hermes, r.logger, hermes.SubjectRunTimeout(run.ID.String()), hermes.RunTimeoutEvent{
		RunID:      run.ID.String(),
		RetryCount: run.RetryCount,
		MaxRetries: run.MaxRetries,
	})
}

func (r *Runner) publishStats(ctx context.Context) {
	if r.hermes == nil {
		return
	}
	stats, err := r.store.GetStats(ctx)
	if err != nil {
		r.logger.Warn("failed to read run stats", "error", err)
		return
	}
	hermes.PublishLogged(r.hermes, r.logger, hermes.SubjectRunnerStats, hermes.StatsEvent{
		Pending:   stats.TotalPending,
		Running:   stats.TotalRunning,
		Completed: stats.TotalCompleted,
		Failed:    stats.TotalFailed,
		TimedOut:  stats.TotalTimedOut,
		AvgMs:     stats.AvgCompletionMs,
		Timestamp: time.Now().UTC(),
	})
}
