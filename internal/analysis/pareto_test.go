package analysis

import "testing"

func TestComputeFrontier(t *testing.T) {
	candidates := []ParetoCandidate{
		{AlternativeID: "a", Score: 0.9, Benefit: 0.8, Cost: 100, Risk: 0.3},
		{AlternativeID: "b", Score: 0.7, Benefit: 0.6, Cost: 150, Risk: 0.5}, // dominated by a
		{AlternativeID: "c", Score: 0.6, Benefit: 0.5, Cost: 50, Risk: 0.2},
	}
	frontier := ComputeFrontier(candidates)
	if len(frontier) != 2 {
		t.Fatalf("expected 2 on frontier, got %d", len(frontier))
	}
	for _, f := range frontier {
		if f.AlternativeID == "b" {
			t.Error("b should be dominated")
		}
		for _, other := range candidates {
			if dominates(other, f) {
				t.Errorf("%s on frontier is dominated by %s", f.AlternativeID, other.AlternativeID)
			}
		}
	}
}

func TestComputeFrontierEqualCandidates(t *testing.T) {
	c := ParetoCandidate{AlternativeID: "x", Score: 0.5}
	d := ParetoCandidate{AlternativeID: "y", Score: 0.5}
	if got := ComputeFrontier([]ParetoCandidate{c, d}); len(got) != 2 {
		t.Errorf("equal candidates should both survive, got %d", len(got))
	}
}

func TestComputeFrontierSingle(t *testing.T) {
	c := []ParetoCandidate{{AlternativeID: "only"}}
	if got := ComputeFrontier(c); len(got) != 1 {
		t.Errorf("expected 1, got %d", len(got))
	}
}

func TestParetoCandidates(t *testing.T) {
	ranking := exampleScenario().Ranking()
	alts := map[string]Alternative{"a1": {Cost: 10, ExpectedBenefit: 0.4}}
	risks := []RiskAssessment{{AlternativeID: "a1", RiskScore: 0.2}}

	got := ParetoCandidates(ranking, alts, risks)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[1].AlternativeID != "a1" || got[1].Cost != 10 || got[1].Risk != 0.2 {
		t.Errorf("unexpected candidate %+v", got[1])
	}
	if got[0].Cost != 0 || got[0].Risk != 0 {
		t.Errorf("alternative without attributes should carry zeros, got %+v", got[0])
	}
}
