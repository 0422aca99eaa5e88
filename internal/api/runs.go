package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Arbiter/internal/runner"
	"github.com/MikeSquared-Agency/Arbiter/internal/store"
)

type RunsHandler struct {
	store  store.Store
	runner *runner.Runner
}

func NewRunsHandler(s store.Store, r *runner.Runner) *RunsHandler {
	return &RunsHandler{store: s, runner: r}
}

type CreateRunRequest struct {
	Kind           store.RunKind   `json:"kind"`
	ScenarioID     string          `json:"scenario_id,omitempty"`
	ProjectID      string          `json:"project_id,omitempty"`
	Request        json.RawMessage `json:"request"`
	TimeoutSeconds int             `json:"timeout_seconds,omitempty"`
	MaxRetries     int             `json:"max_retries,omitempty"`
}

func (h *RunsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown run kind: "+string(req.Kind))
		return
	}
	if err := h.runner.Validate(req.Kind, req.Request); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run := &store.Run{
		Kind:           req.Kind,
		ScenarioID:     req.ScenarioID,
		ProjectID:      req.ProjectID,
		Source:         r.Header.Get(ClientIDHeader),
		Request:        req.Request,
		TimeoutSeconds: req.TimeoutSeconds,
		MaxRetries:     req.MaxRetries,
	}
	if err := h.runner.Submit(r.Context(), run); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Kind:       store.RunKind(q.Get("kind")),
		ScenarioID: q.Get("scenario_id"),
		ProjectID:  q.Get("project_id"),
	}
	if s := q.Get("status"); s != "" {
		status := store.RunStatus(s)
		filter.Status = &status
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	runs, err := h.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *RunsHandler) Events(w http.ResponseWriter, r *http.Request) {
	run, ok := h.lookup(w, r)
	if !ok {
		return
	}
	events, err := h.store.GetRunEvents(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []*store.RunEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *RunsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *RunsHandler) lookup(w http.ResponseWriter, r *http.Request) (*store.Run, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return nil, false
	}
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return nil, false
	}
	return run, true
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
