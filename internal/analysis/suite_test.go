package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func suiteRequest() SuiteRequest {
	seed := uint64(5)
	iterations := 200
	mc := MonteCarloOverrides{Iterations: &iterations, Seed: &seed}

	return SuiteRequest{
		Base: exampleScenario(),
		WhatIfs: []WhatIf{
			{ID: "c4-heavy", Name: "Cost heavy", CriteriaWeightChanges: CriteriaWeights{"c1": 0, "c2": 0, "c3": 0, "c4": 1}},
		},
		Alternatives: map[string]Alternative{
			"a1": {ID: "a1", Name: "Option One", Feasibility: 0.9, Cost: 50, RiskLevel: "low", ImplementationTime: 3, ExpectedBenefit: 0.7},
			"a2": {ID: "a2", Name: "Option Two", Feasibility: 0.4, Cost: 200, RiskLevel: "high", ImplementationTime: 12, ExpectedBenefit: 0.3},
		},
		CriteriaNames: map[string]string{"c1": "Cost"},
		MonteCarlo:    &mc,
	}
}

func TestRunSuite(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerOptions(), discardLogger())
	res, err := a.RunSuite(context.Background(), suiteRequest())
	require.NoError(t, err)

	assert.Equal(t, "base", res.ScenarioID)
	assert.Equal(t, "a2", res.BaseRanking.Top())
	assert.Equal(t, "Option Two", res.BaseRanking[0].Name)

	require.Len(t, res.Scenarios, 1)
	assert.Equal(t, "a1", res.Scenarios[0].Ranking.Top())
	assert.Len(t, res.Sensitivity, 4)
	require.NotNil(t, res.MonteCarlo)
	assert.Equal(t, 200, res.MonteCarlo.Iterations)
	assert.Len(t, res.Risk, 2)

	// a1 is cheaper, less risky and more beneficial; a2 scores higher.
	assert.Len(t, res.ParetoFrontier, 2)

	s := res.Summary
	assert.Equal(t, "a2", s.TopAlternative)
	assert.Equal(t, "Option Two", s.TopAlternativeName)
	assert.NotEmpty(t, s.KeyFindings)
	assert.NotEmpty(t, s.Recommendations)
	assert.GreaterOrEqual(t, s.OverallConfidence, 0.0)
	assert.LessOrEqual(t, s.OverallConfidence, 1.0)
}

func TestRunSuiteRequiresBase(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerOptions(), discardLogger())
	_, err := a.RunSuite(context.Background(), SuiteRequest{})
	if !errors.Is(err, ErrNoBaseScenario) {
		t.Errorf("expected ErrNoBaseScenario, got %v", err)
	}
}

func TestRunSuitePropagatesMonteCarloError(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerOptions(), discardLogger())
	req := suiteRequest()
	bad := -1
	req.MonteCarlo.Iterations = &bad
	_, err := a.RunSuite(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidIterations)
}

func TestRunSuiteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := NewAnalyzer(DefaultAnalyzerOptions(), discardLogger())
	_, err := a.RunSuite(ctx, suiteRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSuiteRequestNames(t *testing.T) {
	req := suiteRequest()
	req.AlternativeNames = map[string]string{"a1": "Override"}
	names := req.Names()
	assert.Equal(t, "Override", names["a1"])
	assert.Equal(t, "Option Two", names["a2"])
}

func TestRunSuiteOverridesKeepExplicitZero(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerOptions(), discardLogger())
	req := suiteRequest()
	zero := 0.0
	req.MonteCarlo.WeightNoise = &zero
	res, err := a.RunSuite(context.Background(), req)
	require.NoError(t, err)

	// Without noise every draw reproduces the base ranking.
	assert.Equal(t, 1.0, res.MonteCarlo.Confidence)
	assert.Equal(t, "a2", res.MonteCarlo.BestAlternative)
}
