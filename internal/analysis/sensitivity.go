package analysis

import (
	"fmt"
	"math"
)

// SensitivityOptions controls the weight sweep for each criterion.
type SensitivityOptions struct {
	// Range is the maximum deviation from the base weight, clipped to [0,1].
	Range float64 `json:"range" yaml:"range"`
	// Steps is the number of evenly spaced perturbation points.
	Steps int `json:"steps" yaml:"steps"`
}

// DefaultSensitivityOptions returns a ±0.2 sweep over 21 points.
func DefaultSensitivityOptions() SensitivityOptions {
	return SensitivityOptions{Range: 0.2, Steps: 21}
}

// Validate rejects a negative or non-numeric range and negative steps. Zero
// values select the defaults.
func (o SensitivityOptions) Validate() error {
	if !(o.Range >= 0) || math.IsInf(o.Range, 0) {
		return fmt.Errorf("sensitivity range must be a non-negative number, got %v", o.Range)
	}
	if o.Steps < 0 {
		return fmt.Errorf("sensitivity steps must be non-negative, got %d", o.Steps)
	}
	return nil
}

func (o SensitivityOptions) withDefaults() SensitivityOptions {
	d := DefaultSensitivityOptions()
	if o.Range <= 0 {
		o.Range = d.Range
	}
	if o.Steps < 2 {
		o.Steps = d.Steps
	}
	return o
}

// SensitivityResult describes how one criterion's weight affects the outcome.
type SensitivityResult struct {
	CriteriaID     string  `json:"criteria_id"`
	CriteriaName   string  `json:"criteria_name"`
	OriginalWeight float64 `json:"original_weight"`
	MinWeight      float64 `json:"min_weight"`
	MaxWeight      float64 `json:"max_weight"`

	// SensitivityScore is the swing of the base winner's score per unit of
	// weight change, in [0,1].
	SensitivityScore float64 `json:"sensitivity_score"`

	// RankingStability is the fraction of points where the winner is unchanged.
	RankingStability float64 `json:"ranking_stability"`

	// RankReversalPoints lists the swept weights at which the full ordering
	// differs from the base ordering.
	RankReversalPoints []float64 `json:"rank_reversal_points"`

	// CriticalWeight is the reversal point closest to the original weight.
	CriticalWeight *float64 `json:"critical_weight,omitempty"`
}

// PerformSensitivityAnalysis sweeps each criterion's weight in turn,
// redistributing the difference across the other criteria, and reports how
// the ranking responds. Results are ordered by criterion id. A nil base
// yields no results.
func PerformSensitivityAnalysis(base *Scenario, alternativeNames, criteriaNames map[string]string, opts SensitivityOptions) []SensitivityResult {
	if base == nil || len(base.CriteriaWeights) == 0 {
		return nil
	}
	opts = opts.withDefaults()

	baseRanking := base.Ranking()
	baseTop := baseRanking.Top()

	results := make([]SensitivityResult, 0, len(base.CriteriaWeights))
	for _, c := range base.CriteriaWeights.Keys() {
		original := base.CriteriaWeights[c]
		lo := math.Max(0, original-opts.Range)
		hi := math.Min(1, original+opts.Range)

		res := SensitivityResult{
			CriteriaID:         c,
			CriteriaName:       criteriaNames[c],
			OriginalWeight:     original,
			MinWeight:          lo,
			MaxWeight:          hi,
			RankReversalPoints: []float64{},
		}

		minScore, maxScore := math.Inf(1), math.Inf(-1)
		stable := 0
		for _, w := range SweepPoints(lo, hi, opts.Steps) {
			adjusted := AdjustWeight(base.CriteriaWeights, c, w)
			ranking := base.rankWith(adjusted)

			if ranking.Top() == baseTop {
				stable++
			}
			if !ranking.SameOrder(baseRanking) {
				res.RankReversalPoints = append(res.RankReversalPoints, w)
			}
			for _, ra := range ranking {
				if ra.AlternativeID == baseTop {
					minScore = math.Min(minScore, ra.Score)
					maxScore = math.Max(maxScore, ra.Score)
					break
				}
			}
		}

		res.RankingStability = float64(stable) / float64(opts.Steps)
		if span := hi - lo; span > 0 && baseTop != "" {
			res.SensitivityScore = clamp((maxScore-minScore)/span, 0, 1)
		}
		if len(res.RankReversalPoints) > 0 {
			nearest := res.RankReversalPoints[0]
			for _, p := range res.RankReversalPoints[1:] {
				if math.Abs(p-original) < math.Abs(nearest-original) {
					nearest = p
				}
			}
			res.CriticalWeight = &nearest
		}

		results = append(results, res)
	}
	return results
}

// SweepPoints returns n evenly spaced values from lo to hi inclusive.
func SweepPoints(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	points := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range points {
		points[i] = lo + step*float64(i)
	}
	points[n-1] = hi
	return points
}

// SensitivityLevel labels a sensitivity score for display.
func SensitivityLevel(score float64) string {
	switch {
	case score < 0.3:
		return "low"
	case score < 0.6:
		return "medium"
	default:
		return "high"
	}
}
