package projects

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/MikeSquared-Agency/Arbiter/internal/analysis"
)

var (
	ErrNotFound      = errors.New("project not found")
	ErrNoCriteria    = errors.New("project has no criteria")
	ErrNoAlternative = errors.New("project has no alternatives")
)

// Input is a project's evaluation packaged for the analysis engine.
type Input struct {
	Project          Project
	Base             *analysis.Scenario
	Alternatives     map[string]analysis.Alternative
	AlternativeNames map[string]string
	CriteriaNames    map[string]string
}

// SuiteRequest builds a suite request over the project's base scenario.
func (in *Input) SuiteRequest() analysis.SuiteRequest {
	return analysis.SuiteRequest{
		Base:             in.Base,
		Alternatives:     in.Alternatives,
		AlternativeNames: in.AlternativeNames,
		CriteriaNames:    in.CriteriaNames,
	}
}

// Load fetches a project and converts it into a base scenario. Only top-level
// criteria are used. Stored weights are normalized to sum to 1; when every
// weight is zero the criteria share equally. Negative weights count as zero
// and scores are clamped to [0, 1].
func Load(ctx context.Context, c Client, projectID string) (*Input, error) {
	project, err := c.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	criteria, err := c.ListCriteria(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	alternatives, err := c.ListAlternatives(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list alternatives: %w", err)
	}
	results, err := c.ListResults(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	in := &Input{
		Project:          *project,
		Alternatives:     make(map[string]analysis.Alternative, len(alternatives)),
		AlternativeNames: make(map[string]string, len(alternatives)),
		CriteriaNames:    make(map[string]string, len(criteria)),
	}

	weights := make(analysis.CriteriaWeights, len(criteria))
	for _, cr := range criteria {
		if cr.Parent != nil {
			continue
		}
		id := string(cr.ID)
		weights[id] = math.Max(cr.Weight, 0)
		in.CriteriaNames[id] = cr.Name
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCriteria, projectID)
	}
	if weights.Sum() <= 0 {
		for id := range weights {
			weights[id] = 1
		}
	}
	weights = weights.Normalize()

	if len(alternatives) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAlternative, projectID)
	}
	scores := make(analysis.AlternativeScores, len(alternatives))
	order := make([]string, 0, len(alternatives))
	for _, a := range alternatives {
		id := string(a.ID)
		order = append(order, id)
		scores[id] = make(map[string]float64, len(weights))
		in.AlternativeNames[id] = a.Name
		in.Alternatives[id] = analysis.Alternative{
			ID:                 id,
			Name:               a.Name,
			Description:        a.Description,
			Feasibility:        a.Feasibility,
			Cost:               a.Cost,
			RiskLevel:          a.RiskLevel,
			ImplementationTime: a.ImplementationTime,
			ExpectedBenefit:    a.ExpectedBenefit,
		}
	}
	for _, r := range results {
		row, ok := scores[string(r.Alternative)]
		if !ok {
			continue
		}
		if _, ok := weights[string(r.Criteria)]; !ok {
			continue
		}
		row[string(r.Criteria)] = clampScore(r.Score)
	}

	in.Base = &analysis.Scenario{
		ID:                "project-" + projectID,
		Name:              project.Name,
		Description:       project.Description,
		CriteriaWeights:   weights,
		AlternativeScores: scores,
		AlternativeOrder:  order,
	}
	return in, nil
}

func clampScore(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
