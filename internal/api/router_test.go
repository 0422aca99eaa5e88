package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Arbiter/internal/analysis"
	"github.com/MikeSquared-Agency/Arbiter/internal/config"
	"github.com/MikeSquared-Agency/Arbiter/internal/projects"
	"github.com/MikeSquared-Agency/Arbiter/internal/runner"
	"github.com/MikeSquared-Agency/Arbiter/internal/store"
)

type fakeProjects struct{}

func (fakeProjects) GetProject(_ context.Context, id string) (*projects.Project, error) {
	if id != "7" {
		return nil, fmt.Errorf("get project %s: %w", id, projects.ErrNotFound)
	}
	return &projects.Project{ID: "7", Name: "Site selection"}, nil
}

func (fakeProjects) ListCriteria(context.Context, string) ([]projects.Criterion, error) {
	return []projects.Criterion{{ID: "cost", Name: "Cost", Weight: 2}, {ID: "access", Name: "Access", Weight: 2}}, nil
}

func (fakeProjects) ListAlternatives(context.Context, string) ([]projects.Alternative, error) {
	return []projects.Alternative{
		{ID: "north", Name: "North", Feasibility: 0.8, Cost: 100, RiskLevel: "low", ImplementationTime: 6, ExpectedBenefit: 0.7},
		{ID: "south", Name: "South", Feasibility: 0.5, Cost: 60, RiskLevel: "high", ImplementationTime: 12, ExpectedBenefit: 0.9},
	}, nil
}

func (fakeProjects) ListResults(context.Context, string) ([]projects.Result, error) {
	return []projects.Result{
		{Alternative: "north", Criteria: "cost", Score: 0.4},
		{Alternative: "north", Criteria: "access", Score: 0.9},
		{Alternative: "south", Criteria: "cost", Score: 0.8},
		{Alternative: "south", Criteria: "access", Score: 0.3},
	}, nil
}

type testEnv struct {
	srv   *httptest.Server
	store *store.MemoryStore
}

func newTestEnv(t *testing.T, p projects.Client) *testEnv {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Analysis.MonteCarlo.MaxIterations = 2000
	cfg.Analysis.AHP.MaxItems = 6

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.NewMemoryStore()
	exec := runner.NewExecutor(analysis.NewAnalyzer(cfg.AnalyzerOptions(), logger), cfg.Limits())
	run := runner.New(s, nil, exec, cfg, logger)

	srv := httptest.NewServer(NewRouter(s, run, exec, p, 0, logger))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: s}
}

func intp(v int) *int { return &v }

func (e *testEnv) post(t *testing.T, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(e.srv.URL+path, "application/json", &buf)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	out := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func exampleBase() *analysis.Scenario {
	return &analysis.Scenario{
		ID:              "base",
		Name:            "Base",
		CriteriaWeights: analysis.CriteriaWeights{"c1": 0.4, "c2": 0.3, "c3": 0.2, "c4": 0.1},
		AlternativeScores: analysis.AlternativeScores{
			"a1": {"c1": 0.8, "c2": 0.6, "c3": 0.4, "c4": 0.9},
			"a2": {"c1": 0.9, "c2": 0.9, "c3": 0.8, "c4": 0.7},
		},
		AlternativeOrder: []string{"a1", "a2"},
	}
}

func TestRanking(t *testing.T) {
	env := newTestEnv(t, nil)
	base := exampleBase()

	resp, body := env.post(t, "/api/v1/ranking", RankingRequest{
		CriteriaWeights:   base.CriteriaWeights,
		AlternativeScores: base.AlternativeScores,
		AlternativeNames:  map[string]string{"a2": "Second"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ranking := body["ranking"].([]interface{})
	require.Len(t, ranking, 2)
	first := ranking[0].(map[string]interface{})
	assert.Equal(t, "a2", first["alternative_id"])
	assert.Equal(t, "Second", first["name"])
	assert.InDelta(t, 0.83, first["score"], 1e-9)
}

func TestRankingRejectsBadWeights(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.post(t, "/api/v1/ranking", RankingRequest{
		CriteriaWeights:   analysis.CriteriaWeights{"c1": 0.7, "c2": 0.7},
		AlternativeScores: analysis.AlternativeScores{"a": {"c1": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestRankingRejectsMalformedBody(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := http.Post(env.srv.URL+"/api/v1/ranking", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "invalid request body")
}

func TestWhatIf(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.post(t, "/api/v1/scenarios/what-if", WhatIfRequest{
		Base: exampleBase(),
		Change: analysis.WhatIf{
			ID:                    "c1-heavy",
			CriteriaWeightChanges: analysis.CriteriaWeights{"c1": 0.7, "c2": 0.1, "c3": 0.1, "c4": 0.1},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sc := body["scenario"].(map[string]interface{})
	assert.Equal(t, "c1-heavy", sc["id"])
	assert.Equal(t, "Base (what-if)", sc["name"])
}

func TestScenarioAnalysisDuplicateIDs(t *testing.T) {
	env := newTestEnv(t, nil)
	base := exampleBase()
	resp, _ := env.post(t, "/api/v1/scenarios/analysis", runner.ScenarioAnalysisRequest{
		Base:      base,
		Scenarios: []analysis.Scenario{*base, *base},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScenarioAnalysis(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.post(t, "/api/v1/scenarios/analysis", runner.ScenarioAnalysisRequest{
		Base: exampleBase(),
		WhatIfs: []analysis.WhatIf{{
			ID:                      "a1-improved",
			AlternativeScoreChanges: analysis.AlternativeScores{"a1": {"c1": 1, "c2": 1, "c3": 1, "c4": 1}},
		}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := body["results"].([]interface{})
	require.Len(t, results, 1)
	changes := results[0].(map[string]interface{})["ranking_changes"].(map[string]interface{})
	assert.Equal(t, 1.0, changes["a1"])
	assert.Equal(t, -1.0, changes["a2"])
}

func TestSensitivity(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.post(t, "/api/v1/sensitivity", runner.SensitivityRequest{Base: exampleBase()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["results"], 4)
}

func TestMonteCarlo(t *testing.T) {
	env := newTestEnv(t, nil)
	seed := uint64(11)
	resp, body := env.post(t, "/api/v1/monte-carlo", runner.MonteCarloRequest{
		Base:    exampleBase(),
		Options: &analysis.MonteCarloOverrides{Iterations: intp(500), Seed: &seed},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 500.0, body["iterations"])
	assert.Equal(t, "a2", body["best_alternative"])
}

func TestMonteCarloSeedOnlyKeepsDefaults(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.post(t, "/api/v1/monte-carlo", map[string]interface{}{
		"base":    exampleBase(),
		"options": map[string]interface{}{"seed": 42},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1000.0, body["iterations"])
}

func TestSensitivityStepLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.post(t, "/api/v1/sensitivity", runner.SensitivityRequest{
		Base:    exampleBase(),
		Options: &analysis.SensitivityOptions{Range: 0.2, Steps: 1_000_000_000_000},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "exceeds limit")

	resp, _ = env.post(t, "/api/v1/suite", analysis.SuiteRequest{
		Base:        exampleBase(),
		Sensitivity: &analysis.SensitivityOptions{Steps: 5000},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMonteCarloIterationLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.post(t, "/api/v1/monte-carlo", runner.MonteCarloRequest{
		Base:    exampleBase(),
		Options: &analysis.MonteCarloOverrides{Iterations: intp(5000)},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "exceeds limit")
}

func TestRisk(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.post(t, "/api/v1/risk", runner.RiskRequest{
		Alternatives: map[string]analysis.Alternative{
			"a": {ID: "a", Feasibility: 0.9, Cost: 10, RiskLevel: "low", ImplementationTime: 2, ExpectedBenefit: 0.8},
			"b": {ID: "b", Feasibility: 0.3, Cost: 50, RiskLevel: "high", ImplementationTime: 12, ExpectedBenefit: 0.2},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assessments := body["assessments"].([]interface{})
	require.Len(t, assessments, 2)
	assert.Equal(t, "a", assessments[0].(map[string]interface{})["alternative_id"])
	assert.Equal(t, "high", assessments[1].(map[string]interface{})["level"])
}

func TestPriorities(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.post(t, "/api/v1/ahp/priorities", PrioritiesRequest{
		Items: []string{"a", "b", "c"},
		Comparisons: []analysis.Comparison{
			{A: "a", B: "b", Value: 2},
			{A: "b", B: "c", Value: 2},
			{A: "a", B: "c", Value: 4},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := body["priorities"].(map[string]interface{})
	assert.InDelta(t, 4.0/7, p["weights"].(map[string]interface{})["a"], 1e-6)
	assert.InDelta(t, 0, p["consistency_ratio"], 1e-6)
	assert.Equal(t, true, p["consistent"])
}

func TestPrioritiesRejectsOutOfScale(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, _ := env.post(t, "/api/v1/ahp/priorities", PrioritiesRequest{
		Items:       []string{"a", "b"},
		Comparisons: []analysis.Comparison{{A: "a", B: "b", Value: 12}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAHPItemLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	items := []string{"a", "b", "c", "d", "e", "f", "g"}

	resp, body := env.post(t, "/api/v1/ahp/priorities", PrioritiesRequest{Items: items})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "exceeds limit")

	resp, _ = env.post(t, "/api/v1/ahp/hierarchy", analysis.Hierarchy{
		Criteria:     []string{"cost", "quality"},
		Alternatives: items,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.post(t, "/api/v1/ahp/aggregate", AggregateRequest{
		Items:      items,
		Evaluators: []EvaluatorJudgments{{Evaluator: "ann"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHierarchy(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.post(t, "/api/v1/ahp/hierarchy", analysis.Hierarchy{
		Criteria:     []string{"cost", "quality"},
		Alternatives: []string{"x", "y"},
		CriteriaJudg: []analysis.Comparison{{A: "cost", B: "quality", Value: 3}},
		AltJudg: map[string][]analysis.Comparison{
			"cost":    {{A: "x", B: "y", Value: 5}},
			"quality": {{A: "y", B: "x", Value: 2}},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ranking := body["ranking"].([]interface{})
	assert.Equal(t, "x", ranking[0].(map[string]interface{})["alternative_id"])
}

func TestAggregate(t *testing.T) {
	env := newTestEnv(t, nil)
	judgments := []analysis.Comparison{{A: "a", B: "b", Value: 3}}
	resp, body := env.post(t, "/api/v1/ahp/aggregate", AggregateRequest{
		Items: []string{"a", "b"},
		Evaluators: []EvaluatorJudgments{
			{Evaluator: "ann", Comparisons: judgments},
			{Evaluator: "bo", Comparisons: judgments},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 1.0, body["consensus_index"], 1e-9)
	values := body["matrix"].(map[string]interface{})["values"].([]interface{})
	assert.InDelta(t, 3.0, values[0].([]interface{})[1], 1e-9)
}

func TestAggregateWithoutEvaluators(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, _ := env.post(t, "/api/v1/ahp/aggregate", AggregateRequest{Items: []string{"a", "b"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSuite(t *testing.T) {
	env := newTestEnv(t, nil)
	seed := uint64(5)
	resp, body := env.post(t, "/api/v1/suite", analysis.SuiteRequest{
		Base:       exampleBase(),
		MonteCarlo: &analysis.MonteCarloOverrides{Iterations: intp(200), Seed: &seed},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, "a2", summary["top_alternative"])
	assert.NotEmpty(t, summary["key_findings"])
}

func TestSuiteRequiresBase(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.post(t, "/api/v1/suite", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, analysis.ErrNoBaseScenario.Error(), body["error"])
}

func TestRunLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	seed := uint64(1)
	request, err := json.Marshal(runner.MonteCarloRequest{
		Base:    exampleBase(),
		Options: &analysis.MonteCarloOverrides{Iterations: intp(100), Seed: &seed},
	})
	require.NoError(t, err)

	resp, body := env.post(t, "/api/v1/runs", CreateRunRequest{
		Kind:       store.KindMonteCarlo,
		ScenarioID: "base",
		Request:    request,
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "pending", body["status"])
	id := body["run_id"].(string)

	resp, data := env.get(t, "/api/v1/runs/"+id)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run store.Run
	require.NoError(t, json.Unmarshal(data, &run))
	assert.Equal(t, store.KindMonteCarlo, run.Kind)
	assert.Equal(t, 300, run.TimeoutSeconds)

	resp, data = env.get(t, "/api/v1/runs?kind=monte_carlo&status=pending")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var runs []store.Run
	require.NoError(t, json.Unmarshal(data, &runs))
	assert.Len(t, runs, 1)

	resp, data = env.get(t, "/api/v1/runs/"+id+"/events")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []store.RunEvent
	require.NoError(t, json.Unmarshal(data, &events))
	require.Len(t, events, 1)
	assert.Equal(t, "queued", events[0].Event)

	resp, data = env.get(t, "/api/v1/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats store.RunStats
	require.NoError(t, json.Unmarshal(data, &stats))
	assert.Equal(t, 1, stats.TotalPending)
}

func TestCreateRunValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := env.post(t, "/api/v1/runs", CreateRunRequest{Kind: "report", Request: json.RawMessage(`{}`)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.post(t, "/api/v1/runs", CreateRunRequest{Kind: store.KindSuite, Request: json.RawMessage(`{}`)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRunErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := env.get(t, "/api/v1/runs/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.get(t, "/api/v1/runs/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.get(t, "/api/v1/runs?limit=-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProjectAnalysis(t *testing.T) {
	env := newTestEnv(t, fakeProjects{})
	seed := uint64(9)
	resp, body := env.post(t, "/api/v1/projects/7/analysis", ProjectAnalysisRequest{
		MonteCarlo: &analysis.MonteCarloOverrides{Iterations: intp(200), Seed: &seed},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	base := body["base"].(map[string]interface{})
	assert.Equal(t, "project-7", base["id"])
	result := body["result"].(map[string]interface{})
	assert.Equal(t, "north", result["summary"].(map[string]interface{})["top_alternative"])
	assert.NotEmpty(t, result["risk"])
}

func TestProjectAnalysisEmptyBody(t *testing.T) {
	env := newTestEnv(t, fakeProjects{})
	resp, err := http.Post(env.srv.URL+"/api/v1/projects/7/analysis", "application/json", nil)
	require.NoError(t, err)
	_ = decodeBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProjectAnalysisAsync(t *testing.T) {
	env := newTestEnv(t, fakeProjects{})
	resp, body := env.post(t, "/api/v1/projects/7/analysis", ProjectAnalysisRequest{Async: true})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "suite", body["kind"])
	assert.Equal(t, "7", body["project_id"])

	runs, err := env.store.ListRuns(context.Background(), store.RunFilter{ProjectID: "7"})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestProjectAnalysisErrors(t *testing.T) {
	env := newTestEnv(t, fakeProjects{})
	resp, _ := env.post(t, "/api/v1/projects/8/analysis", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	unconfigured := newTestEnv(t, nil)
	resp, _ = unconfigured.post(t, "/api/v1/projects/7/analysis", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsRouter(t *testing.T) {
	srv := httptest.NewServer(NewMetricsRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
