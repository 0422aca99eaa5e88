package analysis

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWhatIfScenarioNilBase(t *testing.T) {
	if got := GenerateWhatIfScenario(nil, WhatIf{}); got != nil {
		t.Errorf("expected nil for nil base, got %+v", got)
	}
}

func TestGenerateWhatIfScenarioOverrides(t *testing.T) {
	base := exampleScenario()
	derived := GenerateWhatIfScenario(base, WhatIf{
		ID:                      "cost-heavy",
		CriteriaWeightChanges:   CriteriaWeights{"c4": 0.7},
		AlternativeScoreChanges: AlternativeScores{"a1": {"c1": 1.0}},
	})
	require.NotNil(t, derived)

	assert.Equal(t, "cost-heavy", derived.ID)
	assert.Equal(t, "Base (what-if)", derived.Name)
	assert.Equal(t, "derived from base", derived.Description)

	// Overrides apply as given, without renormalization.
	assert.Equal(t, 0.7, derived.CriteriaWeights["c4"])
	assert.Equal(t, 0.4, derived.CriteriaWeights["c1"])
	assert.Equal(t, 1.0, derived.AlternativeScores["a1"]["c1"])
	assert.Equal(t, 0.6, derived.AlternativeScores["a1"]["c2"])

	// Base untouched.
	assert.Equal(t, 0.1, base.CriteriaWeights["c4"])
	assert.Equal(t, 0.8, base.AlternativeScores["a1"]["c1"])
}

func TestGenerateWhatIfScenarioGeneratesID(t *testing.T) {
	derived := GenerateWhatIfScenario(exampleScenario(), WhatIf{Name: "Named"})
	require.NotNil(t, derived)
	_, err := uuid.Parse(derived.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Named", derived.Name)
}

func TestRunScenarioAnalysisSelfIsZero(t *testing.T) {
	base := exampleScenario()
	results, err := RunScenarioAnalysis(base, []Scenario{*base}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	for alt, delta := range results[0].RankingChanges {
		if delta != 0 {
			t.Errorf("expected zero change for %s, got %d", alt, delta)
		}
	}
}

func TestRunScenarioAnalysisDeltas(t *testing.T) {
	base := exampleScenario()
	flipped := GenerateWhatIfScenario(base, WhatIf{
		ID:                    "flip",
		CriteriaWeightChanges: CriteriaWeights{"c1": 0, "c2": 0, "c3": 0, "c4": 1},
	})
	extra := base.Clone()
	extra.ID = "extra"
	extra.AlternativeScores["a3"] = map[string]float64{"c1": 1, "c2": 1, "c3": 1, "c4": 1}

	results, err := RunScenarioAnalysis(base, []Scenario{*flipped, *extra}, map[string]string{"a1": "One"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "flip", results[0].ScenarioID)
	assert.Equal(t, "a1", results[0].Ranking.Top())
	assert.Equal(t, "One", results[0].Ranking[0].Name)
	assert.Equal(t, 1, results[0].RankingChanges["a1"])
	assert.Equal(t, -1, results[0].RankingChanges["a2"])

	assert.Equal(t, "extra", results[1].ScenarioID)
	assert.Equal(t, 0, results[1].RankingChanges["a3"])
	assert.Equal(t, -1, results[1].RankingChanges["a2"])
}

func TestRunScenarioAnalysisNilBase(t *testing.T) {
	results, err := RunScenarioAnalysis(nil, []Scenario{*exampleScenario()}, nil)
	assert.NoError(t, err)
	assert.Nil(t, results)
}

func TestRunScenarioAnalysisDuplicateIDs(t *testing.T) {
	base := exampleScenario()
	_, err := RunScenarioAnalysis(base, []Scenario{*base, *base}, nil)
	if !errors.Is(err, ErrDuplicateScenario) {
		t.Errorf("expected ErrDuplicateScenario, got %v", err)
	}
}

func TestScenarioValidate(t *testing.T) {
	sc := exampleScenario()
	assert.NoError(t, sc.Validate())

	sc.AlternativeScores["a1"]["c1"] = 1.4
	assert.Error(t, sc.Validate())

	sc = exampleScenario()
	sc.CriteriaWeights["c1"] = 0.9
	assert.Error(t, sc.Validate())
}
