package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Alternative carries the collaborator-supplied attributes used for risk scoring.
type Alternative struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`

	Feasibility float64 `json:"feasibility" yaml:"feasibility"` // 0-1
	Cost        float64 `json:"cost" yaml:"cost"`
	RiskLevel   string  `json:"risk_level" yaml:"risk_level"` // low, medium, high

	// ImplementationTime is in months.
	ImplementationTime float64 `json:"implementation_time" yaml:"implementation_time"`
	ExpectedBenefit    float64 `json:"expected_benefit" yaml:"expected_benefit"` // 0-1
}

// RiskWeights defines how the four sub-risks combine into the overall score.
// All weights must sum to 1.0 (±0.001 tolerance).
type RiskWeights struct {
	Implementation float64 `json:"implementation" yaml:"implementation"`
	Cost           float64 `json:"cost" yaml:"cost"`
	Time           float64 `json:"time" yaml:"time"`
	Quality        float64 `json:"quality" yaml:"quality"`
}

// DefaultRiskWeights returns the standard distribution.
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{
		Implementation: 0.30,
		Cost:           0.25,
		Time:           0.20,
		Quality:        0.25,
	}
}

// Sum returns the total of all weights.
func (w RiskWeights) Sum() float64 {
	return w.Implementation + w.Cost + w.Time + w.Quality
}

// Validate checks that weights sum to 1.0 and none are negative.
func (w RiskWeights) Validate() error {
	if math.Abs(w.Sum()-1.0) > WeightTolerance {
		return fmt.Errorf("risk weights sum to %.4f, must sum to 1.0", w.Sum())
	}
	for _, v := range []float64{w.Implementation, w.Cost, w.Time, w.Quality} {
		if v < 0 {
			return fmt.Errorf("negative risk weight: %f", v)
		}
	}
	return nil
}

// RiskOptions configures the risk assessor.
type RiskOptions struct {
	Weights RiskWeights `json:"weights" yaml:"weights"`

	// MitigationThreshold is the sub-risk level at which a strategy is recommended.
	MitigationThreshold float64 `json:"mitigation_threshold" yaml:"mitigation_threshold"`
}

// DefaultRiskOptions returns default weights and a 0.6 mitigation threshold.
func DefaultRiskOptions() RiskOptions {
	return RiskOptions{Weights: DefaultRiskWeights(), MitigationThreshold: 0.6}
}

// RiskFactors holds the four sub-risk scores, each in [0,1].
type RiskFactors struct {
	ImplementationRisk float64 `json:"implementation_risk"`
	CostRisk           float64 `json:"cost_risk"`
	TimeRisk           float64 `json:"time_risk"`
	QualityRisk        float64 `json:"quality_risk"`
}

// RiskAssessment is the risk breakdown of one alternative.
type RiskAssessment struct {
	AlternativeID        string      `json:"alternative_id"`
	AlternativeName      string      `json:"alternative_name,omitempty"`
	RiskScore            float64     `json:"risk_score"`
	Level                string      `json:"level"`
	RiskFactors          RiskFactors `json:"risk_factors"`
	MitigationStrategies []string    `json:"mitigation_strategies"`
}

// Base implementation risk per declared risk level.
var riskLevelBase = map[string]float64{
	"low":    0.2,
	"medium": 0.5,
	"high":   0.8,
}

// AssessRisk scores every alternative. Cost and implementation time are
// normalized against the largest value among the alternatives given, so the
// result depends on the whole set. Output is ordered by alternative id.
func AssessRisk(alternatives map[string]Alternative, opts RiskOptions) []RiskAssessment {
	if opts.Weights == (RiskWeights{}) {
		opts.Weights = DefaultRiskWeights()
	}
	if opts.MitigationThreshold <= 0 {
		opts.MitigationThreshold = DefaultRiskOptions().MitigationThreshold
	}

	ids := make([]string, 0, len(alternatives))
	var maxCost, maxTime float64
	for id, alt := range alternatives {
		ids = append(ids, id)
		maxCost = math.Max(maxCost, alt.Cost)
		maxTime = math.Max(maxTime, alt.ImplementationTime)
	}
	sort.Strings(ids)

	out := make([]RiskAssessment, 0, len(ids))
	for _, id := range ids {
		alt := alternatives[id]
		factors := RiskFactors{
			ImplementationRisk: implementationRisk(alt),
			CostRisk:           relativeRisk(alt.Cost, maxCost),
			TimeRisk:           relativeRisk(alt.ImplementationTime, maxTime),
			QualityRisk:        clamp(1-alt.ExpectedBenefit, 0, 1),
		}
		score := clamp(
			factors.ImplementationRisk*opts.Weights.Implementation+
				factors.CostRisk*opts.Weights.Cost+
				factors.TimeRisk*opts.Weights.Time+
				factors.QualityRisk*opts.Weights.Quality,
			0, 1)

		out = append(out, RiskAssessment{
			AlternativeID:        id,
			AlternativeName:      alt.Name,
			RiskScore:            score,
			Level:                RiskLevel(score),
			RiskFactors:          factors,
			MitigationStrategies: mitigationStrategies(factors, score, opts.MitigationThreshold),
		})
	}
	return out
}

// implementationRisk blends the declared level with infeasibility.
//
//	implementationRisk = 0.6*levelBase + 0.4*(1-feasibility)
func implementationRisk(alt Alternative) float64 {
	base, ok := riskLevelBase[strings.ToLower(strings.TrimSpace(alt.RiskLevel))]
	if !ok {
		base = riskLevelBase["medium"]
	}
	feasibility := clamp(alt.Feasibility, 0, 1)
	return clamp(0.6*base+0.4*(1-feasibility), 0, 1)
}

func relativeRisk(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return clamp(v/max, 0, 1)
}

func mitigationStrategies(f RiskFactors, score, threshold float64) []string {
	strategies := []string{}
	if f.ImplementationRisk >= threshold {
		strategies = append(strategies, "Roll out in phases with a pilot and invest in team training")
	}
	if f.CostRisk >= threshold {
		strategies = append(strategies, "Stage the budget, hold a contingency reserve, and review costs at each milestone")
	}
	if f.TimeRisk >= threshold {
		strategies = append(strategies, "Break delivery into milestones and track schedule on the critical path")
	}
	if f.QualityRisk >= threshold {
		strategies = append(strategies, "Define acceptance criteria up front and validate benefits with a proof of concept")
	}
	if score >= 0.6 {
		strategies = append(strategies, "Assign a risk owner and review this alternative at every decision gate")
	}
	return strategies
}

// RiskLevel maps a risk score to low (<0.3), medium (<0.6) or high.
func RiskLevel(score float64) string {
	switch {
	case score < 0.3:
		return "low"
	case score < 0.6:
		return "medium"
	default:
		return "high"
	}
}
