package analysis

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ErrDuplicateScenario is returned when two scenarios in one analysis share an id.
var ErrDuplicateScenario = errors.New("duplicate scenario id")

// Scenario is a named configuration of criteria weights and alternative scores.
// Analyses treat it as read-only; derived scenarios are new values.
type Scenario struct {
	ID                string            `json:"id" yaml:"id"`
	Name              string            `json:"name" yaml:"name"`
	Description       string            `json:"description,omitempty" yaml:"description"`
	CriteriaWeights   CriteriaWeights   `json:"criteria_weights" yaml:"criteria_weights"`
	AlternativeScores AlternativeScores `json:"alternative_scores" yaml:"alternative_scores"`

	// AlternativeOrder is the caller's first-seen order, used to break score ties.
	AlternativeOrder []string `json:"alternative_order,omitempty" yaml:"alternative_order"`
}

// Validate checks the weights and score ranges.
func (s *Scenario) Validate() error {
	if err := s.CriteriaWeights.Validate(); err != nil {
		return fmt.Errorf("scenario %q: %w", s.ID, err)
	}
	if len(s.AlternativeScores) == 0 {
		return fmt.Errorf("scenario %q: no alternatives", s.ID)
	}
	if err := s.AlternativeScores.Validate(); err != nil {
		return fmt.Errorf("scenario %q: %w", s.ID, err)
	}
	return nil
}

// Ranking ranks the scenario's alternatives, breaking ties by AlternativeOrder.
func (s *Scenario) Ranking() Ranking {
	return rankInOrder(s.CriteriaWeights, s.AlternativeScores, s.alternativeOrder())
}

// rankWith ranks the scenario's alternatives under a different weight set.
func (s *Scenario) rankWith(weights CriteriaWeights) Ranking {
	return rankInOrder(weights, s.AlternativeScores, s.alternativeOrder())
}

// alternativeOrder returns AlternativeOrder restricted to known alternatives,
// followed by any remaining ids in ascending order.
func (s *Scenario) alternativeOrder() []string {
	if len(s.AlternativeOrder) == 0 {
		return s.AlternativeScores.IDs()
	}
	seen := make(map[string]bool, len(s.AlternativeScores))
	order := make([]string, 0, len(s.AlternativeScores))
	for _, id := range s.AlternativeOrder {
		if _, ok := s.AlternativeScores[id]; ok && !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	var rest []string
	for id := range s.AlternativeScores {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// Clone returns a deep copy.
func (s *Scenario) Clone() *Scenario {
	cp := *s
	cp.CriteriaWeights = s.CriteriaWeights.Clone()
	cp.AlternativeScores = s.AlternativeScores.Clone()
	if s.AlternativeOrder != nil {
		cp.AlternativeOrder = append([]string(nil), s.AlternativeOrder...)
	}
	return &cp
}

// WhatIf describes a derivation from a base scenario.
type WhatIf struct {
	ID          string `json:"id,omitempty" yaml:"id"`
	Name        string `json:"name,omitempty" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`

	// CriteriaWeightChanges overrides base weights per key. Not renormalized.
	CriteriaWeightChanges CriteriaWeights `json:"criteria_weight_changes,omitempty" yaml:"criteria_weight_changes"`

	// AlternativeScoreChanges overrides individual alternative scores.
	AlternativeScoreChanges AlternativeScores `json:"alternative_score_changes,omitempty" yaml:"alternative_score_changes"`
}

// GenerateWhatIfScenario derives a new scenario from base. It returns nil only
// when base is nil. Weight overrides are applied as given; callers that need a
// normalized set must supply one.
func GenerateWhatIfScenario(base *Scenario, change WhatIf) *Scenario {
	if base == nil {
		return nil
	}

	derived := base.Clone()
	for c, w := range change.CriteriaWeightChanges {
		derived.CriteriaWeights[c] = w
	}
	for alt, row := range change.AlternativeScoreChanges {
		if derived.AlternativeScores[alt] == nil {
			derived.AlternativeScores[alt] = make(map[string]float64, len(row))
		}
		for c, v := range row {
			derived.AlternativeScores[alt][c] = v
		}
	}

	derived.ID = change.ID
	if derived.ID == "" {
		derived.ID = uuid.NewString()
	}
	derived.Name = change.Name
	if derived.Name == "" {
		derived.Name = base.Name + " (what-if)"
	}
	derived.Description = change.Description
	if derived.Description == "" {
		derived.Description = "derived from " + base.ID
	}
	return derived
}

// ScenarioResult is the ranking of one scenario and its rank deltas against the base.
type ScenarioResult struct {
	ScenarioID   string  `json:"scenario_id"`
	ScenarioName string  `json:"scenario_name"`
	Ranking      Ranking `json:"ranking"`

	// RankingChanges is baseRank - scenarioRank; positive means the alternative moved up.
	RankingChanges map[string]int `json:"ranking_changes"`
}

// RunScenarioAnalysis ranks every scenario and compares it with the base
// ranking. Output order follows scenarios. A nil base yields no results.
func RunScenarioAnalysis(base *Scenario, scenarios []Scenario, names map[string]string) ([]ScenarioResult, error) {
	if base == nil {
		return nil, nil
	}

	seen := make(map[string]bool, len(scenarios))
	for _, sc := range scenarios {
		if seen[sc.ID] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateScenario, sc.ID)
		}
		seen[sc.ID] = true
	}

	basePositions := base.Ranking().Positions()
	results := make([]ScenarioResult, 0, len(scenarios))
	for i := range scenarios {
		sc := &scenarios[i]
		ranking := sc.Ranking().WithNames(names)

		changes := make(map[string]int, len(ranking))
		for _, ra := range ranking {
			baseRank, ok := basePositions[ra.AlternativeID]
			if !ok {
				// Alternative unknown to the base: no meaningful delta.
				changes[ra.AlternativeID] = 0
				continue
			}
			changes[ra.AlternativeID] = baseRank - ra.Rank
		}

		results = append(results, ScenarioResult{
			ScenarioID:     sc.ID,
			ScenarioName:   sc.Name,
			Ranking:        ranking,
			RankingChanges: changes,
		})
	}
	return results, nil
}
