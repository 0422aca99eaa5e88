package analysis

import "sort"

// RankedAlternative is one row of a ranking.
type RankedAlternative struct {
	AlternativeID string  `json:"alternative_id"`
	Name          string  `json:"name,omitempty"`
	Score         float64 `json:"score"`
	Rank          int     `json:"rank"`
}

// Ranking is ordered by score descending; Rank is the 1-based position.
type Ranking []RankedAlternative

// CalculateRanking computes the weighted-sum score of every alternative and
// ranks them. Ties keep ascending id order.
func CalculateRanking(weights CriteriaWeights, scores AlternativeScores) Ranking {
	return rankInOrder(weights, scores, scores.IDs())
}

// rankInOrder ranks the alternatives listed in order. Equal scores keep the
// relative position they have in order.
func rankInOrder(weights CriteriaWeights, scores AlternativeScores, order []string) Ranking {
	// Fixed criterion order keeps float summation identical between calls.
	criteria := weights.Keys()
	ranking := make(Ranking, 0, len(order))
	for _, alt := range order {
		var total float64
		for _, c := range criteria {
			total += weights[c] * scores.Score(alt, c)
		}
		ranking = append(ranking, RankedAlternative{AlternativeID: alt, Score: total})
	}

	sort.SliceStable(ranking, func(i, j int) bool {
		return ranking[i].Score > ranking[j].Score
	})
	for i := range ranking {
		ranking[i].Rank = i + 1
	}
	return ranking
}

// Top returns the first-ranked alternative id, or "" for an empty ranking.
func (r Ranking) Top() string {
	if len(r) == 0 {
		return ""
	}
	return r[0].AlternativeID
}

// Positions maps alternative id to rank.
func (r Ranking) Positions() map[string]int {
	out := make(map[string]int, len(r))
	for _, ra := range r {
		out[ra.AlternativeID] = ra.Rank
	}
	return out
}

// Order returns alternative ids in rank order.
func (r Ranking) Order() []string {
	out := make([]string, len(r))
	for i, ra := range r {
		out[i] = ra.AlternativeID
	}
	return out
}

// SameOrder reports whether both rankings list the same alternatives in the same order.
func (r Ranking) SameOrder(other Ranking) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i].AlternativeID != other[i].AlternativeID {
			return false
		}
	}
	return true
}

// WithNames fills the Name field from names, leaving unknown ids blank.
func (r Ranking) WithNames(names map[string]string) Ranking {
	for i := range r {
		r[i].Name = names[r[i].AlternativeID]
	}
	return r
}
