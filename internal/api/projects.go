package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Arbiter/internal/analysis"
	"github.com/MikeSquared-Agency/Arbiter/internal/metrics"
	"github.com/MikeSquared-Agency/Arbiter/internal/projects"
	"github.com/MikeSquared-Agency/Arbiter/internal/runner"
	"github.com/MikeSquared-Agency/Arbiter/internal/store"
)

// ProjectsHandler analyzes projects held by the decision platform.
type ProjectsHandler struct {
	client projects.Client
	exec   *runner.Executor
	runner *runner.Runner
	logger *slog.Logger
}

func NewProjectsHandler(c projects.Client, exec *runner.Executor, r *runner.Runner, logger *slog.Logger) *ProjectsHandler {
	return &ProjectsHandler{client: c, exec: exec, runner: r, logger: logger}
}

// ProjectAnalysisRequest optionally refines the suite run over a project.
type ProjectAnalysisRequest struct {
	WhatIfs     []analysis.WhatIf             `json:"what_ifs,omitempty"`
	Sensitivity *analysis.SensitivityOptions  `json:"sensitivity,omitempty"`
	MonteCarlo  *analysis.MonteCarloOverrides `json:"monte_carlo,omitempty"`
	Risk        *analysis.RiskOptions         `json:"risk,omitempty"`

	// Async queues a suite run instead of answering inline.
	Async bool `json:"async,omitempty"`
}

func (h *ProjectsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		writeError(w, http.StatusServiceUnavailable, "project platform not configured")
		return
	}
	var req ProjectAnalysisRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	check := analysis.SuiteRequest{Sensitivity: req.Sensitivity, MonteCarlo: req.MonteCarlo}
	if err := h.exec.CheckSuite(&check); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	projectID := chi.URLParam(r, "id")
	in, err := projects.Load(r.Context(), h.client, projectID)
	switch {
	case errors.Is(err, projects.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, projects.ErrNoCriteria), errors.Is(err, projects.ErrNoAlternative):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		h.logger.Warn("failed to load project", "project_id", projectID, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	suite := in.SuiteRequest()
	suite.WhatIfs = req.WhatIfs
	suite.Sensitivity = req.Sensitivity
	suite.MonteCarlo = req.MonteCarlo
	suite.Risk = req.Risk

	if req.Async {
		payload, err := json.Marshal(suite)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		run := &store.Run{
			Kind:       store.KindSuite,
			ScenarioID: in.Base.ID,
			ProjectID:  projectID,
			Source:     r.Header.Get(ClientIDHeader),
			Request:    payload,
		}
		if err := h.runner.Submit(r.Context(), run); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, run)
		return
	}

	res, err := h.exec.Suite(r.Context(), &suite)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.RecordAnalysis("suite")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"project": in.Project,
		"base":    in.Base,
		"result":  res,
	})
}
