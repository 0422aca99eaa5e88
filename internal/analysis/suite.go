package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrNoBaseScenario is returned when a suite is requested without a base.
var ErrNoBaseScenario = errors.New("base scenario required")

// AnalyzerOptions holds the defaults applied when a request leaves options unset.
type AnalyzerOptions struct {
	Sensitivity SensitivityOptions
	MonteCarlo  MonteCarloOptions
	Risk        RiskOptions
}

// DefaultAnalyzerOptions returns the package defaults for every analysis.
func DefaultAnalyzerOptions() AnalyzerOptions {
	return AnalyzerOptions{
		Sensitivity: DefaultSensitivityOptions(),
		MonteCarlo:  DefaultMonteCarloOptions(),
		Risk:        DefaultRiskOptions(),
	}
}

// Analyzer runs the full analysis suite for a base scenario.
type Analyzer struct {
	opts   AnalyzerOptions
	logger *slog.Logger
}

// NewAnalyzer creates an Analyzer with the given defaults.
func NewAnalyzer(opts AnalyzerOptions, logger *slog.Logger) *Analyzer {
	return &Analyzer{opts: opts, logger: logger}
}

// Options returns the analyzer defaults.
func (a *Analyzer) Options() AnalyzerOptions {
	return a.opts
}

// SuiteRequest is the input to RunSuite. Nil option pointers fall back to the
// analyzer defaults.
type SuiteRequest struct {
	Base      *Scenario  `json:"base" yaml:"base"`
	Scenarios []Scenario `json:"scenarios,omitempty" yaml:"scenarios"`
	WhatIfs   []WhatIf   `json:"what_ifs,omitempty" yaml:"what_ifs"`

	Alternatives     map[string]Alternative `json:"alternatives,omitempty" yaml:"alternatives"`
	AlternativeNames map[string]string      `json:"alternative_names,omitempty" yaml:"alternative_names"`
	CriteriaNames    map[string]string      `json:"criteria_names,omitempty" yaml:"criteria_names"`

	Sensitivity *SensitivityOptions  `json:"sensitivity,omitempty" yaml:"sensitivity"`
	MonteCarlo  *MonteCarloOverrides `json:"monte_carlo,omitempty" yaml:"monte_carlo"`
	Risk        *RiskOptions         `json:"risk,omitempty" yaml:"risk"`
}

// Names merges explicit alternative names with those carried by Alternatives.
func (r *SuiteRequest) Names() map[string]string {
	names := make(map[string]string, len(r.Alternatives)+len(r.AlternativeNames))
	for id, alt := range r.Alternatives {
		if alt.Name != "" {
			names[id] = alt.Name
		}
	}
	for id, n := range r.AlternativeNames {
		names[id] = n
	}
	return names
}

// Summary condenses a suite into findings for decision makers.
type Summary struct {
	TopAlternative     string   `json:"top_alternative"`
	TopAlternativeName string   `json:"top_alternative_name,omitempty"`
	KeyFindings        []string `json:"key_findings"`
	Recommendations    []string `json:"recommendations"`

	// OverallConfidence is the mean of the average ranking stability and the
	// Monte Carlo confidence, in [0,1].
	OverallConfidence float64 `json:"overall_confidence"`
}

// SuiteResult bundles every analysis of one base scenario.
type SuiteResult struct {
	ScenarioID     string              `json:"scenario_id"`
	BaseRanking    Ranking             `json:"base_ranking"`
	Scenarios      []ScenarioResult    `json:"scenarios"`
	Sensitivity    []SensitivityResult `json:"sensitivity"`
	MonteCarlo     *MonteCarloResult   `json:"monte_carlo"`
	Risk           []RiskAssessment    `json:"risk"`
	ParetoFrontier []ParetoCandidate   `json:"pareto_frontier"`
	Summary        Summary             `json:"summary"`
	DurationMs     int64               `json:"duration_ms"`
}

// RunSuite runs scenario, sensitivity, Monte Carlo and risk analyses
// concurrently and summarizes them. The first failing analysis cancels the rest.
func (a *Analyzer) RunSuite(ctx context.Context, req SuiteRequest) (*SuiteResult, error) {
	if req.Base == nil {
		return nil, ErrNoBaseScenario
	}
	start := time.Now()
	base := req.Base
	names := req.Names()

	sensOpts := a.opts.Sensitivity
	if req.Sensitivity != nil {
		sensOpts = *req.Sensitivity
	}
	mcOpts := req.MonteCarlo.Apply(a.opts.MonteCarlo)
	riskOpts := a.opts.Risk
	if req.Risk != nil {
		riskOpts = *req.Risk
	}

	scenarios := make([]Scenario, 0, len(req.Scenarios)+len(req.WhatIfs))
	scenarios = append(scenarios, req.Scenarios...)
	for _, w := range req.WhatIfs {
		scenarios = append(scenarios, *GenerateWhatIfScenario(base, w))
	}

	result := &SuiteResult{
		ScenarioID:  base.ID,
		BaseRanking: base.Ranking().WithNames(names),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := RunScenarioAnalysis(base, scenarios, names)
		if err != nil {
			return fmt.Errorf("scenario analysis: %w", err)
		}
		result.Scenarios = res
		return nil
	})
	g.Go(func() error {
		result.Sensitivity = PerformSensitivityAnalysis(base, names, req.CriteriaNames, sensOpts)
		return nil
	})
	g.Go(func() error {
		res, err := NewSimulator(mcOpts).Run(gctx, base, names)
		if err != nil {
			return fmt.Errorf("monte carlo: %w", err)
		}
		result.MonteCarlo = res
		return nil
	})
	g.Go(func() error {
		result.Risk = AssessRisk(req.Alternatives, riskOpts)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.ParetoFrontier = ComputeFrontier(ParetoCandidates(result.BaseRanking, req.Alternatives, result.Risk))
	result.Summary = summarize(result, names, req.CriteriaNames)
	result.DurationMs = time.Since(start).Milliseconds()

	a.logger.Info("analysis suite completed",
		"scenario_id", base.ID,
		"scenarios", len(result.Scenarios),
		"top", result.Summary.TopAlternative,
		"confidence", result.Summary.OverallConfidence,
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

func summarize(r *SuiteResult, altNames, critNames map[string]string) Summary {
	s := Summary{
		TopAlternative:  r.BaseRanking.Top(),
		KeyFindings:     []string{},
		Recommendations: []string{},
	}
	s.TopAlternativeName = altNames[s.TopAlternative]
	label := func(names map[string]string, id string) string {
		if n := names[id]; n != "" {
			return n
		}
		return id
	}
	if s.TopAlternative == "" {
		return s
	}
	top := label(altNames, s.TopAlternative)
	s.KeyFindings = append(s.KeyFindings, fmt.Sprintf("%s ranks first with a score of %.3f", top, r.BaseRanking[0].Score))

	for _, sr := range r.Scenarios {
		if sr.Ranking.Top() != s.TopAlternative {
			s.KeyFindings = append(s.KeyFindings, fmt.Sprintf("Scenario %q changes the leader to %s", sr.ScenarioName, label(altNames, sr.Ranking.Top())))
		}
	}

	var stabilitySum float64
	for _, sens := range r.Sensitivity {
		stabilitySum += sens.RankingStability
		if sens.RankingStability < 1 {
			crit := label(critNames, sens.CriteriaID)
			s.KeyFindings = append(s.KeyFindings, fmt.Sprintf("The leader changes when the weight of %s moves within [%.2f, %.2f]", crit, sens.MinWeight, sens.MaxWeight))
			s.Recommendations = append(s.Recommendations, fmt.Sprintf("Confirm the weight of %s with stakeholders", crit))
		}
	}

	var confidenceParts []float64
	if len(r.Sensitivity) > 0 {
		confidenceParts = append(confidenceParts, stabilitySum/float64(len(r.Sensitivity)))
	}
	if mc := r.MonteCarlo; mc != nil {
		confidenceParts = append(confidenceParts, mc.Confidence)
		s.KeyFindings = append(s.KeyFindings, fmt.Sprintf("%s ranks first in %.0f%% of %d simulations", label(altNames, mc.BestAlternative), mc.Confidence*100, mc.Iterations))
		if mc.BestAlternative != s.TopAlternative {
			s.Recommendations = append(s.Recommendations, "Simulated and base leaders disagree; gather more evidence before deciding")
		}
	}

	for _, ra := range r.Risk {
		if ra.Level != "high" {
			continue
		}
		s.KeyFindings = append(s.KeyFindings, fmt.Sprintf("%s carries high risk (%.2f)", label(altNames, ra.AlternativeID), ra.RiskScore))
		if ra.AlternativeID == s.TopAlternative {
			s.Recommendations = append(s.Recommendations, fmt.Sprintf("Plan risk mitigation before committing to %s", top))
		}
	}

	if len(confidenceParts) > 0 {
		var sum float64
		for _, p := range confidenceParts {
			sum += p
		}
		s.OverallConfidence = sum / float64(len(confidenceParts))
	}
	if s.OverallConfidence >= 0.7 && len(s.Recommendations) == 0 {
		s.Recommendations = append(s.Recommendations, fmt.Sprintf("Proceed with %s", top))
	}
	return s
}
