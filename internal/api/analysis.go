package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MikeSquared-Agency/Arbiter/internal/analysis"
	"github.com/MikeSquared-Agency/Arbiter/internal/metrics"
	"github.com/MikeSquared-Agency/Arbiter/internal/runner"
)

// AnalysisHandler runs engine operations synchronously.
type AnalysisHandler struct {
	exec *runner.Executor
}

func NewAnalysisHandler(exec *runner.Executor) *AnalysisHandler {
	return &AnalysisHandler{exec: exec}
}

type RankingRequest struct {
	CriteriaWeights   analysis.CriteriaWeights   `json:"criteria_weights"`
	AlternativeScores analysis.AlternativeScores `json:"alternative_scores"`
	AlternativeOrder  []string                   `json:"alternative_order,omitempty"`
	AlternativeNames  map[string]string          `json:"alternative_names,omitempty"`
}

func (h *AnalysisHandler) Ranking(w http.ResponseWriter, r *http.Request) {
	var req RankingRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sc := &analysis.Scenario{
		ID:                "ranking",
		CriteriaWeights:   req.CriteriaWeights,
		AlternativeScores: req.AlternativeScores,
		AlternativeOrder:  req.AlternativeOrder,
	}
	if err := sc.CriteriaWeights.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sc.AlternativeScores.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.RecordAnalysis("ranking")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ranking": sc.Ranking().WithNames(req.AlternativeNames),
	})
}

type WhatIfRequest struct {
	Base             *analysis.Scenario `json:"base"`
	Change           analysis.WhatIf    `json:"change"`
	AlternativeNames map[string]string  `json:"alternative_names,omitempty"`
}

func (h *AnalysisHandler) WhatIf(w http.ResponseWriter, r *http.Request) {
	var req WhatIfRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !validBase(w, req.Base) {
		return
	}
	derived := analysis.GenerateWhatIfScenario(req.Base, req.Change)
	metrics.RecordAnalysis("what_if")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scenario": derived,
		"ranking":  derived.Ranking().WithNames(req.AlternativeNames),
	})
}

func (h *AnalysisHandler) Scenarios(w http.ResponseWriter, r *http.Request) {
	var req runner.ScenarioAnalysisRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	results, err := h.exec.Scenarios(&req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, analysis.ErrDuplicateScenario) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	metrics.RecordAnalysis("scenarios")
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (h *AnalysisHandler) Sensitivity(w http.ResponseWriter, r *http.Request) {
	var req runner.SensitivityRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	results, err := h.exec.Sensitivity(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.RecordAnalysis("sensitivity")
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (h *AnalysisHandler) MonteCarlo(w http.ResponseWriter, r *http.Request) {
	var req runner.MonteCarloRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.exec.MonteCarloOptions(req.Options); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.exec.MonteCarlo(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.RecordAnalysis("monte_carlo")
	writeJSON(w, http.StatusOK, res)
}

func (h *AnalysisHandler) Risk(w http.ResponseWriter, r *http.Request) {
	var req runner.RiskRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.RecordAnalysis("risk")
	writeJSON(w, http.StatusOK, map[string]interface{}{"assessments": h.exec.Risk(&req)})
}

type PrioritiesRequest struct {
	Items       []string              `json:"items"`
	Comparisons []analysis.Comparison `json:"comparisons"`
}

func (h *AnalysisHandler) Priorities(w http.ResponseWriter, r *http.Request) {
	var req PrioritiesRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.exec.Limits().CheckMatrixOrder(len(req.Items)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := analysis.NewComparisonMatrix(req.Items, req.Comparisons)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := analysis.DerivePriorities(m)
	if !p.Consistent {
		metrics.RecordInconsistent(1)
	}
	metrics.RecordAnalysis("ahp")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"matrix":     m,
		"priorities": p,
	})
}

func (h *AnalysisHandler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	var req analysis.Hierarchy
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.exec.Limits().CheckHierarchy(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := analysis.ScenarioFromHierarchy(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.RecordInconsistent(len(res.Inconsistent))
	metrics.RecordAnalysis("ahp")
	writeJSON(w, http.StatusOK, res)
}

type EvaluatorJudgments struct {
	Evaluator   string                `json:"evaluator,omitempty"`
	Weight      float64               `json:"weight,omitempty"`
	Comparisons []analysis.Comparison `json:"comparisons"`
}

type AggregateRequest struct {
	Items      []string             `json:"items"`
	Method     string               `json:"method"`
	Evaluators []EvaluatorJudgments `json:"evaluators"`
}

func (h *AnalysisHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	var req AggregateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Method == "" {
		req.Method = analysis.AggregateGeometric
	}
	limits := h.exec.Limits()
	if err := limits.CheckMatrixOrder(len(req.Items)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := limits.CheckEvaluators(len(req.Evaluators)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	matrices := make([]*analysis.ComparisonMatrix, 0, len(req.Evaluators))
	var weights []float64
	for i, ev := range req.Evaluators {
		m, err := analysis.NewComparisonMatrix(req.Items, ev.Comparisons)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("evaluator %d: %s", i, err))
			return
		}
		matrices = append(matrices, m)
		weights = append(weights, ev.Weight)
	}
	if req.Method != analysis.AggregateWeightedGeometric {
		weights = nil
	}

	group, err := analysis.AggregateMatrices(matrices, req.Method, weights)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	consensus, err := analysis.ConsensusIndex(matrices)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p := analysis.DerivePriorities(group)
	if !p.Consistent {
		metrics.RecordInconsistent(1)
	}
	metrics.RecordAnalysis("aggregate")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"matrix":          group,
		"priorities":      p,
		"consensus_index": consensus,
	})
}

func (h *AnalysisHandler) Suite(w http.ResponseWriter, r *http.Request) {
	var req analysis.SuiteRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !validBase(w, req.Base) {
		return
	}
	if err := h.exec.CheckSuite(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.exec.Suite(r.Context(), &req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, analysis.ErrDuplicateScenario) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	metrics.RecordAnalysis("suite")
	writeJSON(w, http.StatusOK, res)
}

func validBase(w http.ResponseWriter, base *analysis.Scenario) bool {
	if base == nil {
		writeError(w, http.StatusBadRequest, analysis.ErrNoBaseScenario.Error())
		return false
	}
	if err := base.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}
