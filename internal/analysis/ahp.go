package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidComparison is returned for malformed pairwise comparison input.
var ErrInvalidComparison = errors.New("invalid comparison")

// ConsistencyThreshold is the conventional maximum acceptable consistency ratio.
const ConsistencyThreshold = 0.1

// Saaty random consistency indices by matrix order.
var randomIndex = map[int]float64{
	1: 0.00, 2: 0.00, 3: 0.52, 4: 0.89, 5: 1.11,
	6: 1.25, 7: 1.35, 8: 1.40, 9: 1.45, 10: 1.49,
	11: 1.51, 12: 1.54, 13: 1.56, 14: 1.58, 15: 1.59,
}

const (
	minJudgment = 1.0 / 9.0
	maxJudgment = 9.0

	powerIterTolerance = 1e-12
	powerIterMax       = 1000
)

// Comparison states how strongly A is preferred over B on Saaty's 1/9..9 scale.
type Comparison struct {
	A     string  `json:"a" yaml:"a"`
	B     string  `json:"b" yaml:"b"`
	Value float64 `json:"value" yaml:"value"`
}

// ComparisonMatrix is a positive reciprocal matrix over Items.
type ComparisonMatrix struct {
	Items  []string    `json:"items"`
	Values [][]float64 `json:"values"`
}

// NewComparisonMatrix builds a reciprocal matrix from pairwise judgments.
// Pairs not mentioned default to 1 (equal importance).
func NewComparisonMatrix(items []string, comparisons []Comparison) (*ComparisonMatrix, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidComparison)
	}
	index := make(map[string]int, len(items))
	for i, it := range items {
		if _, dup := index[it]; dup {
			return nil, fmt.Errorf("%w: duplicate item %q", ErrInvalidComparison, it)
		}
		index[it] = i
	}

	m := identityMatrix(len(items))
	for _, cmp := range comparisons {
		i, ok := index[cmp.A]
		if !ok {
			return nil, fmt.Errorf("%w: unknown item %q", ErrInvalidComparison, cmp.A)
		}
		j, ok := index[cmp.B]
		if !ok {
			return nil, fmt.Errorf("%w: unknown item %q", ErrInvalidComparison, cmp.B)
		}
		if i == j {
			continue
		}
		if !(cmp.Value >= minJudgment-1e-9 && cmp.Value <= maxJudgment+1e-9) {
			return nil, fmt.Errorf("%w: %s vs %s = %f outside [1/9, 9]", ErrInvalidComparison, cmp.A, cmp.B, cmp.Value)
		}
		m[i][j] = cmp.Value
		m[j][i] = 1 / cmp.Value
	}
	return &ComparisonMatrix{Items: append([]string(nil), items...), Values: m}, nil
}

// Priorities is the outcome of deriving weights from one comparison matrix.
type Priorities struct {
	Weights          CriteriaWeights `json:"weights"`
	LambdaMax        float64         `json:"lambda_max"`
	ConsistencyIndex float64         `json:"consistency_index"`
	ConsistencyRatio float64         `json:"consistency_ratio"`
	Consistent       bool            `json:"consistent"`
}

// DerivePriorities computes the principal eigenvector of the matrix by power
// iteration and reports its consistency.
func DerivePriorities(m *ComparisonMatrix) Priorities {
	n := len(m.Items)
	vec := make([]float64, n)
	for i := range vec {
		vec[i] = 1 / float64(n)
	}

	next := make([]float64, n)
	for iter := 0; iter < powerIterMax; iter++ {
		var total float64
		for i := 0; i < n; i++ {
			var s float64
			for j := 0; j < n; j++ {
				s += m.Values[i][j] * vec[j]
			}
			next[i] = s
			total += s
		}
		var delta float64
		for i := range next {
			next[i] /= total
			delta = math.Max(delta, math.Abs(next[i]-vec[i]))
		}
		vec, next = next, vec
		if delta < powerIterTolerance {
			break
		}
	}

	// λmax estimated as the mean of (Aw)_i / w_i.
	var lambda float64
	for i := 0; i < n; i++ {
		var s float64
		for j := 0; j < n; j++ {
			s += m.Values[i][j] * vec[j]
		}
		lambda += s / vec[i]
	}
	lambda /= float64(n)

	p := Priorities{
		Weights:   make(CriteriaWeights, n),
		LambdaMax: lambda,
	}
	for i, it := range m.Items {
		p.Weights[it] = vec[i]
	}
	p.ConsistencyIndex, p.ConsistencyRatio = consistency(lambda, n)
	p.Consistent = p.ConsistencyRatio <= ConsistencyThreshold
	return p
}

func consistency(lambda float64, n int) (ci, cr float64) {
	if n <= 2 {
		return 0, 0
	}
	ci = math.Max(0, (lambda-float64(n))/float64(n-1))
	ri, ok := randomIndex[n]
	if !ok {
		ri = randomIndex[15]
	}
	if ri == 0 {
		return ci, 0
	}
	return ci, ci / ri
}

// Synthesize combines criteria priorities with each criterion's local
// alternative priorities into a score matrix. Local priorities already lie in
// [0,1], so the result can feed a Scenario directly.
func Synthesize(local map[string]Priorities) AlternativeScores {
	scores := make(AlternativeScores)
	criteria := make([]string, 0, len(local))
	for c := range local {
		criteria = append(criteria, c)
	}
	sort.Strings(criteria)

	for _, c := range criteria {
		for alt, w := range local[c].Weights {
			if scores[alt] == nil {
				scores[alt] = make(map[string]float64, len(local))
			}
			scores[alt][c] = w
		}
	}
	return scores
}

// Hierarchy is a two-level AHP model: criteria compared against the goal and
// alternatives compared under each criterion.
type Hierarchy struct {
	ScenarioID   string                  `json:"scenario_id,omitempty" yaml:"scenario_id"`
	Name         string                  `json:"name,omitempty" yaml:"name"`
	Criteria     []string                `json:"criteria" yaml:"criteria"`
	Alternatives []string                `json:"alternatives" yaml:"alternatives"`
	CriteriaJudg []Comparison            `json:"criteria_comparisons" yaml:"criteria_comparisons"`
	AltJudg      map[string][]Comparison `json:"alternative_comparisons" yaml:"alternative_comparisons"`
}

// HierarchyResult holds the derived scenario and every matrix's consistency.
type HierarchyResult struct {
	Scenario *Scenario            `json:"scenario"`
	Criteria Priorities           `json:"criteria"`
	Local    map[string]Priorities `json:"local"`
	Ranking  Ranking              `json:"ranking"`

	// Inconsistent lists matrices whose CR exceeds ConsistencyThreshold;
	// "criteria" denotes the criteria matrix.
	Inconsistent []string `json:"inconsistent"`
}

// ScenarioFromHierarchy derives criteria weights and alternative scores from
// pairwise judgments and packages them as a Scenario.
func ScenarioFromHierarchy(h Hierarchy) (*HierarchyResult, error) {
	cm, err := NewComparisonMatrix(h.Criteria, h.CriteriaJudg)
	if err != nil {
		return nil, fmt.Errorf("criteria matrix: %w", err)
	}
	res := &HierarchyResult{
		Criteria:     DerivePriorities(cm),
		Local:        make(map[string]Priorities, len(h.Criteria)),
		Inconsistent: []string{},
	}
	if !res.Criteria.Consistent {
		res.Inconsistent = append(res.Inconsistent, "criteria")
	}

	for _, c := range h.Criteria {
		am, err := NewComparisonMatrix(h.Alternatives, h.AltJudg[c])
		if err != nil {
			return nil, fmt.Errorf("alternatives under %q: %w", c, err)
		}
		p := DerivePriorities(am)
		res.Local[c] = p
		if !p.Consistent {
			res.Inconsistent = append(res.Inconsistent, c)
		}
	}

	id := h.ScenarioID
	if id == "" {
		id = "base"
	}
	res.Scenario = &Scenario{
		ID:                id,
		Name:              h.Name,
		CriteriaWeights:   res.Criteria.Weights,
		AlternativeScores: Synthesize(res.Local),
		AlternativeOrder:  append([]string(nil), h.Alternatives...),
	}
	res.Ranking = res.Scenario.Ranking()
	return res, nil
}

func identityMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	return m
}
