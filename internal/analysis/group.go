package analysis

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// ErrEmptyMatrices is returned when there is nothing to aggregate.
var ErrEmptyMatrices = errors.New("no comparison matrices")

// Aggregation methods for combining evaluators' judgments.
const (
	AggregateGeometric         = "geometric"
	AggregateWeightedGeometric = "weighted_geometric"
	AggregateArithmetic        = "arithmetic"
)

// AggregateMatrices combines several evaluators' comparison matrices over the
// same items into one group matrix. evaluatorWeights is only used by the
// weighted geometric method and must have one positive entry per matrix.
func AggregateMatrices(matrices []*ComparisonMatrix, method string, evaluatorWeights []float64) (*ComparisonMatrix, error) {
	if len(matrices) == 0 {
		return nil, ErrEmptyMatrices
	}
	items := matrices[0].Items
	for k, m := range matrices[1:] {
		if !slices.Equal(m.Items, items) {
			return nil, fmt.Errorf("%w: matrix %d has items %v, want %v", ErrInvalidComparison, k+1, m.Items, items)
		}
	}
	if method == "" {
		method = AggregateGeometric
	}

	weights, err := evaluatorShares(method, len(matrices), evaluatorWeights)
	if err != nil {
		return nil, err
	}

	n := len(items)
	out := identityMatrix(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			switch method {
			case AggregateArithmetic:
				var sum float64
				for k, m := range matrices {
					sum += weights[k] * m.Values[i][j]
				}
				out[i][j] = sum
			default:
				var logSum float64
				for k, m := range matrices {
					logSum += weights[k] * math.Log(m.Values[i][j])
				}
				out[i][j] = math.Exp(logSum)
			}
		}
	}

	// Arithmetic means break reciprocity; restore it from the upper triangle.
	if method == AggregateArithmetic {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				out[j][i] = 1 / out[i][j]
			}
		}
	}
	return &ComparisonMatrix{Items: append([]string(nil), items...), Values: out}, nil
}

// evaluatorShares returns per-matrix weights summing to 1 for the method.
func evaluatorShares(method string, n int, evaluatorWeights []float64) ([]float64, error) {
	shares := make([]float64, n)
	switch method {
	case AggregateGeometric, AggregateArithmetic:
		for i := range shares {
			shares[i] = 1 / float64(n)
		}
		return shares, nil
	case AggregateWeightedGeometric:
		if len(evaluatorWeights) != n {
			return nil, fmt.Errorf("%w: %d evaluator weights for %d matrices", ErrInvalidComparison, len(evaluatorWeights), n)
		}
		var total float64
		for _, w := range evaluatorWeights {
			if w < 0 || math.IsNaN(w) {
				return nil, fmt.Errorf("%w: evaluator weight %f", ErrInvalidComparison, w)
			}
			total += w
		}
		if total == 0 {
			return nil, fmt.Errorf("%w: evaluator weights sum to 0", ErrInvalidComparison)
		}
		for i, w := range evaluatorWeights {
			shares[i] = w / total
		}
		return shares, nil
	default:
		return nil, fmt.Errorf("unknown aggregation method %q", method)
	}
}

// ConsensusIndex measures agreement between evaluators as
// 1 / (1 + mean coefficient of variation) of their derived weights.
// Identical judgments give 1.
func ConsensusIndex(matrices []*ComparisonMatrix) (float64, error) {
	if len(matrices) == 0 {
		return 0, ErrEmptyMatrices
	}
	items := matrices[0].Items
	derived := make([]CriteriaWeights, len(matrices))
	for k, m := range matrices {
		if !slices.Equal(m.Items, items) {
			return 0, fmt.Errorf("%w: matrix %d has mismatched items", ErrInvalidComparison, k)
		}
		derived[k] = DerivePriorities(m).Weights
	}

	var cvSum float64
	for _, it := range items {
		xs := make([]float64, len(derived))
		for k, w := range derived {
			xs[k] = w[it]
		}
		mean, std := meanStd(xs)
		if mean > 0 {
			cvSum += std / mean
		}
	}
	return 1 / (1 + cvSum/float64(len(items))), nil
}
