package analysis

import (
	"fmt"
	"math"
	"sort"
)

// WeightTolerance is the allowed deviation from 1.0 when validating a weight set.
const WeightTolerance = 0.001

// CriteriaWeights maps a criterion id to its relative importance.
// A valid set is non-negative and sums to 1.0 (±WeightTolerance).
type CriteriaWeights map[string]float64

// Sum returns the total of all weights.
func (w CriteriaWeights) Sum() float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	return total
}

// Validate checks that weights sum to 1.0 and none are negative.
func (w CriteriaWeights) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("no criteria weights")
	}
	for _, id := range w.Keys() {
		v := w[id]
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid weight for %q: %f", id, v)
		}
	}
	if math.Abs(w.Sum()-1.0) > WeightTolerance {
		return fmt.Errorf("weights sum to %.4f, must sum to 1.0", w.Sum())
	}
	return nil
}

// Keys returns criterion ids in ascending order.
func (w CriteriaWeights) Keys() []string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (w CriteriaWeights) Clone() CriteriaWeights {
	out := make(CriteriaWeights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Normalize returns a copy scaled to sum to 1.0. Negative weights are
// floored at zero first. A set summing to zero is returned unchanged.
func (w CriteriaWeights) Normalize() CriteriaWeights {
	out := make(CriteriaWeights, len(w))
	var total float64
	for k, v := range w {
		v = math.Max(0, v)
		out[k] = v
		total += v
	}
	if total == 0 {
		return out
	}
	for k := range out {
		out[k] /= total
	}
	return out
}

// AdjustWeight sets one criterion to newWeight and rescales the others
// proportionally so the whole set still sums to 1.0. When the other criteria
// carry no weight at all, the remainder is shared equally between them.
func AdjustWeight(w CriteriaWeights, id string, newWeight float64) CriteriaWeights {
	newWeight = clamp(newWeight, 0, 1)
	out := w.Clone()
	if _, ok := out[id]; !ok || len(out) == 1 {
		out[id] = newWeight
		return out.Normalize()
	}

	var others float64
	for k, v := range out {
		if k != id {
			others += math.Max(0, v)
		}
	}

	remainder := 1.0 - newWeight
	if others == 0 {
		share := remainder / float64(len(out)-1)
		for k := range out {
			if k != id {
				out[k] = share
			}
		}
	} else {
		scale := remainder / others
		for k, v := range out {
			if k != id {
				out[k] = math.Max(0, v) * scale
			}
		}
	}
	out[id] = newWeight
	return out.Normalize()
}

// AlternativeScores maps alternative id to per-criterion normalized scores.
type AlternativeScores map[string]map[string]float64

// IDs returns alternative ids in ascending order.
func (s AlternativeScores) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Score returns the score of alternative alt on criterion c; missing entries are 0.
func (s AlternativeScores) Score(alt, c string) float64 {
	if row, ok := s[alt]; ok {
		return row[c]
	}
	return 0
}

// Clone returns a deep copy.
func (s AlternativeScores) Clone() AlternativeScores {
	out := make(AlternativeScores, len(s))
	for alt, row := range s {
		cp := make(map[string]float64, len(row))
		for c, v := range row {
			cp[c] = v
		}
		out[alt] = cp
	}
	return out
}

// Validate checks every score lies in [0,1].
func (s AlternativeScores) Validate() error {
	for _, alt := range s.IDs() {
		for c, v := range s[alt] {
			if v < 0 || v > 1 || math.IsNaN(v) {
				return fmt.Errorf("score for %q on %q out of range: %f", alt, c, v)
			}
		}
	}
	return nil
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
