package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tradeOffScenario() *Scenario {
	return &Scenario{
		ID:              "trade",
		CriteriaWeights: CriteriaWeights{"c1": 0.5, "c2": 0.5},
		AlternativeScores: AlternativeScores{
			"x": {"c1": 1.0, "c2": 0.0},
			"y": {"c1": 0.0, "c2": 0.9},
		},
	}
}

func TestSensitivityStableScenario(t *testing.T) {
	results := PerformSensitivityAnalysis(exampleScenario(), nil, map[string]string{"c1": "Cost"}, DefaultSensitivityOptions())
	require.Len(t, results, 4)

	assert.Equal(t, "c1", results[0].CriteriaID)
	assert.Equal(t, "Cost", results[0].CriteriaName)
	for _, r := range results {
		assert.Equal(t, 1.0, r.RankingStability, r.CriteriaID)
		assert.NotNil(t, r.RankReversalPoints)
		assert.Empty(t, r.RankReversalPoints)
		assert.Nil(t, r.CriticalWeight)
		assert.GreaterOrEqual(t, r.SensitivityScore, 0.0)
		assert.LessOrEqual(t, r.SensitivityScore, 1.0)
	}

	c4 := results[3]
	assert.InDelta(t, 0.1, c4.OriginalWeight, 1e-12)
	assert.Equal(t, 0.0, c4.MinWeight)
	assert.InDelta(t, 0.3, c4.MaxWeight, 1e-12)
}

func TestSensitivityFindsReversal(t *testing.T) {
	results := PerformSensitivityAnalysis(tradeOffScenario(), nil, nil, SensitivityOptions{Range: 0.2, Steps: 21})
	require.Len(t, results, 2)

	c1 := results[0]
	// x wins only once c1 exceeds 0.9/1.9; nine of the 21 points fall below.
	assert.InDelta(t, 12.0/21.0, c1.RankingStability, 1e-9)
	assert.Len(t, c1.RankReversalPoints, 9)
	require.NotNil(t, c1.CriticalWeight)
	assert.InDelta(t, 0.46, *c1.CriticalWeight, 1e-9)
	assert.InDelta(t, 1.0, c1.SensitivityScore, 1e-9)

	c2 := results[1]
	assert.InDelta(t, 12.0/21.0, c2.RankingStability, 1e-9)
	require.NotNil(t, c2.CriticalWeight)
	assert.InDelta(t, 0.54, *c2.CriticalWeight, 1e-9)
}

func TestSensitivityNilBase(t *testing.T) {
	if got := PerformSensitivityAnalysis(nil, nil, nil, SensitivityOptions{}); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestSensitivityDefaultsApplied(t *testing.T) {
	results := PerformSensitivityAnalysis(tradeOffScenario(), nil, nil, SensitivityOptions{})
	require.Len(t, results, 2)
	assert.InDelta(t, 0.3, results[0].MinWeight, 1e-12)
	assert.InDelta(t, 0.7, results[0].MaxWeight, 1e-12)
}

func TestSweepPoints(t *testing.T) {
	pts := SweepPoints(0.2, 0.6, 5)
	require.Len(t, pts, 5)
	assert.InDelta(t, 0.2, pts[0], 1e-12)
	assert.InDelta(t, 0.4, pts[2], 1e-12)
	assert.Equal(t, 0.6, pts[4])
}

func TestSensitivityLevel(t *testing.T) {
	assert.Equal(t, "low", SensitivityLevel(0.1))
	assert.Equal(t, "medium", SensitivityLevel(0.3))
	assert.Equal(t, "high", SensitivityLevel(0.6))
}

func TestSensitivityOptionsValidate(t *testing.T) {
	assert.NoError(t, SensitivityOptions{}.Validate())
	assert.NoError(t, SensitivityOptions{Range: 0.3, Steps: 11}.Validate())
	assert.Error(t, SensitivityOptions{Range: -0.1}.Validate())
	assert.Error(t, SensitivityOptions{Range: math.NaN()}.Validate())
	assert.Error(t, SensitivityOptions{Steps: -1}.Validate())
}
