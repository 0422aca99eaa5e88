package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MikeSquared-Agency/Arbiter/internal/analysis"
	"github.com/MikeSquared-Agency/Arbiter/internal/metrics"
	"github.com/MikeSquared-Agency/Arbiter/internal/store"
)

// ErrUnknownKind is returned for a run kind the runner cannot execute.
var ErrUnknownKind = errors.New("unknown run kind")

// MonteCarloRequest is the payload of a monte_carlo run.
type MonteCarloRequest struct {
	Base             *analysis.Scenario            `json:"base" yaml:"base"`
	AlternativeNames map[string]string             `json:"alternative_names,omitempty" yaml:"alternative_names"`
	Options          *analysis.MonteCarloOverrides `json:"options,omitempty" yaml:"options"`
}

func (r *MonteCarloRequest) Validate() error {
	if r.Base == nil {
		return analysis.ErrNoBaseScenario
	}
	if err := r.Base.Validate(); err != nil {
		return err
	}
	return validOverrides(r.Options)
}

// validOverrides checks overrides as merged over the package defaults, so
// fields left unset never fail.
func validOverrides(o *analysis.MonteCarloOverrides) error {
	return o.Apply(analysis.DefaultMonteCarloOptions()).Validate()
}

// SensitivityRequest is the payload of a sensitivity run.
type SensitivityRequest struct {
	Base             *analysis.Scenario           `json:"base" yaml:"base"`
	AlternativeNames map[string]string            `json:"alternative_names,omitempty" yaml:"alternative_names"`
	CriteriaNames    map[string]string            `json:"criteria_names,omitempty" yaml:"criteria_names"`
	Options          *analysis.SensitivityOptions `json:"options,omitempty" yaml:"options"`
}

func (r *SensitivityRequest) Validate() error {
	if r.Base == nil {
		return analysis.ErrNoBaseScenario
	}
	if err := r.Base.Validate(); err != nil {
		return err
	}
	if r.Options != nil {
		return r.Options.Validate()
	}
	return nil
}

// ScenarioAnalysisRequest compares explicit and what-if scenarios with a base.
type ScenarioAnalysisRequest struct {
	Base             *analysis.Scenario  `json:"base" yaml:"base"`
	Scenarios        []analysis.Scenario `json:"scenarios,omitempty" yaml:"scenarios"`
	WhatIfs          []analysis.WhatIf   `json:"what_ifs,omitempty" yaml:"what_ifs"`
	AlternativeNames map[string]string   `json:"alternative_names,omitempty" yaml:"alternative_names"`
}

func (r *ScenarioAnalysisRequest) Validate() error {
	if r.Base == nil {
		return analysis.ErrNoBaseScenario
	}
	return r.Base.Validate()
}

// AllScenarios returns the explicit scenarios followed by the derived what-ifs.
func (r *ScenarioAnalysisRequest) AllScenarios() []analysis.Scenario {
	out := make([]analysis.Scenario, 0, len(r.Scenarios)+len(r.WhatIfs))
	out = append(out, r.Scenarios...)
	for _, w := range r.WhatIfs {
		if sc := analysis.GenerateWhatIfScenario(r.Base, w); sc != nil {
			out = append(out, *sc)
		}
	}
	return out
}

// RiskRequest is the payload of a risk run.
type RiskRequest struct {
	Alternatives map[string]analysis.Alternative `json:"alternatives" yaml:"alternatives"`
	Options      *analysis.RiskOptions           `json:"options,omitempty" yaml:"options"`
}

func (r *RiskRequest) Validate() error {
	if len(r.Alternatives) == 0 {
		return fmt.Errorf("no alternatives")
	}
	if r.Options != nil && r.Options.Weights != (analysis.RiskWeights{}) {
		return r.Options.Weights.Validate()
	}
	return nil
}

// Executor runs decoded requests against the analysis engine. It is shared by
// the queued runner and the synchronous API.
type Executor struct {
	analyzer *analysis.Analyzer
	limits   analysis.Limits
}

// NewExecutor creates an Executor enforcing limits. Zero limits are unbounded.
func NewExecutor(analyzer *analysis.Analyzer, limits analysis.Limits) *Executor {
	return &Executor{analyzer: analyzer, limits: limits}
}

func (e *Executor) Limits() analysis.Limits {
	return e.limits
}

// MonteCarloOptions merges request overrides over the analyzer defaults,
// validates the result and enforces the iteration cap.
func (e *Executor) MonteCarloOptions(o *analysis.MonteCarloOverrides) (analysis.MonteCarloOptions, error) {
	opts := o.Apply(e.analyzer.Options().MonteCarlo)
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	if err := e.limits.CheckIterations(opts.Iterations); err != nil {
		return opts, err
	}
	return opts, nil
}

// SensitivityOptions merges request options over the analyzer defaults and
// enforces the step cap. Zero fields keep the default.
func (e *Executor) SensitivityOptions(o *analysis.SensitivityOptions) (analysis.SensitivityOptions, error) {
	opts := e.analyzer.Options().Sensitivity
	if o != nil {
		if err := o.Validate(); err != nil {
			return opts, err
		}
		if o.Range > 0 {
			opts.Range = o.Range
		}
		if o.Steps > 0 {
			opts.Steps = o.Steps
		}
	}
	if err := e.limits.CheckSensitivitySteps(opts.Steps); err != nil {
		return opts, err
	}
	return opts, nil
}

// CheckSuite validates the option blocks of a suite request against the
// defaults and limits without running it.
func (e *Executor) CheckSuite(req *analysis.SuiteRequest) error {
	if _, err := e.MonteCarloOptions(req.MonteCarlo); err != nil {
		return err
	}
	if _, err := e.SensitivityOptions(req.Sensitivity); err != nil {
		return err
	}
	return nil
}

func (e *Executor) MonteCarlo(ctx context.Context, req *MonteCarloRequest) (*analysis.MonteCarloResult, error) {
	opts, err := e.MonteCarloOptions(req.Options)
	if err != nil {
		return nil, err
	}
	res, err := analysis.NewSimulator(opts).Run(ctx, req.Base, req.AlternativeNames)
	if err == nil && res != nil {
		metrics.RecordMonteCarlo(res.Iterations, res.Confidence)
	}
	return res, err
}

func (e *Executor) Sensitivity(req *SensitivityRequest) ([]analysis.SensitivityResult, error) {
	opts, err := e.SensitivityOptions(req.Options)
	if err != nil {
		return nil, err
	}
	return analysis.PerformSensitivityAnalysis(req.Base, req.AlternativeNames, req.CriteriaNames, opts), nil
}

func (e *Executor) Scenarios(req *ScenarioAnalysisRequest) ([]analysis.ScenarioResult, error) {
	return analysis.RunScenarioAnalysis(req.Base, req.AllScenarios(), req.AlternativeNames)
}

func (e *Executor) Risk(req *RiskRequest) []analysis.RiskAssessment {
	opts := e.analyzer.Options().Risk
	if req.Options != nil {
		opts = *req.Options
	}
	return analysis.AssessRisk(req.Alternatives, opts)
}

func (e *Executor) Suite(ctx context.Context, req *analysis.SuiteRequest) (*analysis.SuiteResult, error) {
	if _, err := e.MonteCarloOptions(req.MonteCarlo); err != nil {
		return nil, err
	}
	sens, err := e.SensitivityOptions(req.Sensitivity)
	if err != nil {
		return nil, err
	}
	run := *req
	run.Sensitivity = &sens
	res, err := e.analyzer.RunSuite(ctx, run)
	if err == nil && res.MonteCarlo != nil {
		metrics.RecordMonteCarlo(res.MonteCarlo.Iterations, res.MonteCarlo.Confidence)
	}
	return res, err
}

// Validate decodes raw as the request of kind and checks it against the
// defaults and limits without running anything.
func (e *Executor) Validate(kind store.RunKind, raw json.RawMessage) error {
	_, err := e.decodeChecked(kind, raw)
	return err
}

func (e *Executor) decodeChecked(kind store.RunKind, raw json.RawMessage) (validator, error) {
	req, err := decode(kind, raw)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	switch r := req.(type) {
	case *MonteCarloRequest:
		_, err = e.MonteCarloOptions(r.Options)
	case *SensitivityRequest:
		_, err = e.SensitivityOptions(r.Options)
	case *suiteRequest:
		err = e.CheckSuite(&r.SuiteRequest)
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

type validator interface {
	Validate() error
}

type suiteRequest struct {
	analysis.SuiteRequest
}

func (r *suiteRequest) Validate() error {
	if r.Base == nil {
		return analysis.ErrNoBaseScenario
	}
	if err := r.Base.Validate(); err != nil {
		return err
	}
	if r.Sensitivity != nil {
		if err := r.Sensitivity.Validate(); err != nil {
			return err
		}
	}
	return validOverrides(r.MonteCarlo)
}

func decode(kind store.RunKind, raw json.RawMessage) (validator, error) {
	var req validator
	switch kind {
	case store.KindMonteCarlo:
		req = &MonteCarloRequest{}
	case store.KindSensitivity:
		req = &SensitivityRequest{}
	case store.KindScenarios:
		req = &ScenarioAnalysisRequest{}
	case store.KindRisk:
		req = &RiskRequest{}
	case store.KindSuite:
		req = &suiteRequest{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty %s request", kind)
	}
	if err := json.Unmarshal(raw, req); err != nil {
		return nil, fmt.Errorf("decode %s request: %w", kind, err)
	}
	return req, nil
}

// Execute decodes raw as a request of kind and runs it.
func (e *Executor) Execute(ctx context.Context, kind store.RunKind, raw json.RawMessage) (interface{}, error) {
	req, err := e.decodeChecked(kind, raw)
	if err != nil {
		return nil, err
	}
	switch r := req.(type) {
	case *MonteCarloRequest:
		return e.MonteCarlo(ctx, r)
	case *SensitivityRequest:
		return e.Sensitivity(r)
	case *ScenarioAnalysisRequest:
		return e.Scenarios(r)
	case *RiskRequest:
		return e.Risk(r), nil
	case *suiteRequest:
		return e.Suite(ctx, &r.SuiteRequest)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
