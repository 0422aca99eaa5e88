package analysis

// ParetoCandidate is an alternative placed across the trade-off dimensions.
type ParetoCandidate struct {
	AlternativeID string  `json:"alternative_id"`
	Score         float64 `json:"score"`   // weighted-sum score, higher is better
	Benefit       float64 `json:"benefit"` // higher is better
	Cost          float64 `json:"cost"`    // lower is better
	Risk          float64 `json:"risk"`    // lower is better
}

// ComputeFrontier returns the Pareto-optimal candidates in input order.
// A candidate is dominated if another is at least as good on every dimension
// and strictly better on one. O(n^2), fine for alternative set sizes.
func ComputeFrontier(candidates []ParetoCandidate) []ParetoCandidate {
	if len(candidates) <= 1 {
		return candidates
	}

	frontier := make([]ParetoCandidate, 0, len(candidates))
	for i := range candidates {
		dominated := false
		for j := range candidates {
			if i == j {
				continue
			}
			if dominates(candidates[j], candidates[i]) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, candidates[i])
		}
	}
	return frontier
}

func dominates(a, b ParetoCandidate) bool {
	if a.Score < b.Score || a.Benefit < b.Benefit || a.Cost > b.Cost || a.Risk > b.Risk {
		return false
	}
	return a.Score > b.Score || a.Benefit > b.Benefit || a.Cost < b.Cost || a.Risk < b.Risk
}

// ParetoCandidates joins a ranking with alternative attributes and risk scores.
// Alternatives without attributes contribute only their score.
func ParetoCandidates(ranking Ranking, alternatives map[string]Alternative, risks []RiskAssessment) []ParetoCandidate {
	riskByID := make(map[string]float64, len(risks))
	for _, r := range risks {
		riskByID[r.AlternativeID] = r.RiskScore
	}
	out := make([]ParetoCandidate, 0, len(ranking))
	for _, ra := range ranking {
		alt := alternatives[ra.AlternativeID]
		out = append(out, ParetoCandidate{
			AlternativeID: ra.AlternativeID,
			Score:         ra.Score,
			Benefit:       alt.ExpectedBenefit,
			Cost:          alt.Cost,
			Risk:          riskByID[ra.AlternativeID],
		})
	}
	return out
}
