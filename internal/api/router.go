package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Arbiter/internal/projects"
	"github.com/MikeSquared-Agency/Arbiter/internal/runner"
	"github.com/MikeSquared-Agency/Arbiter/internal/store"
)

// NewRouter wires the public API. p may be nil when no project platform is
// configured.
func NewRouter(s store.Store, run *runner.Runner, exec *runner.Executor, p projects.Client, rateLimit int, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(rateLimit))

	analyses := NewAnalysisHandler(exec)
	runs := NewRunsHandler(s, run)
	proj := NewProjectsHandler(p, exec, run, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ranking", analyses.Ranking)
		r.Post("/scenarios/what-if", analyses.WhatIf)
		r.Post("/scenarios/analysis", analyses.Scenarios)
		r.Post("/sensitivity", analyses.Sensitivity)
		r.Post("/monte-carlo", analyses.MonteCarlo)
		r.Post("/risk", analyses.Risk)
		r.Post("/ahp/priorities", analyses.Priorities)
		r.Post("/ahp/hierarchy", analyses.Hierarchy)
		r.Post("/ahp/aggregate", analyses.Aggregate)
		r.Post("/suite", analyses.Suite)

		r.Post("/runs", runs.Create)
		r.Get("/runs", runs.List)
		r.Get("/runs/{id}", runs.Get)
		r.Get("/runs/{id}/events", runs.Events)
		r.Get("/stats", runs.Stats)

		r.Post("/projects/{id}/analysis", proj.Analyze)
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
