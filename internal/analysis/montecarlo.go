package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// ErrInvalidIterations is returned for a non-positive iteration count.
var ErrInvalidIterations = errors.New("iterations must be positive")

// Noise distributions.
const (
	DistributionNormal  = "normal"
	DistributionUniform = "uniform"
)

// cancelCheckInterval is how many draws run between context checks.
const cancelCheckInterval = 64

// MonteCarloOptions parameterizes the noise model.
type MonteCarloOptions struct {
	Iterations int `json:"iterations" yaml:"iterations"`

	// WeightNoise is the standard deviation (normal) or half-width (uniform)
	// of the perturbation added to each criterion weight.
	WeightNoise float64 `json:"weight_noise" yaml:"weight_noise"`

	// ScoreNoise perturbs alternative scores the same way. Zero leaves scores fixed.
	ScoreNoise float64 `json:"score_noise" yaml:"score_noise"`

	Distribution string `json:"distribution" yaml:"distribution"`

	// Seed makes the simulation reproducible. Nil draws a random seed.
	Seed *uint64 `json:"seed,omitempty" yaml:"seed"`
}

// DefaultMonteCarloOptions returns 1000 draws of Gaussian weight noise with σ=0.1.
func DefaultMonteCarloOptions() MonteCarloOptions {
	return MonteCarloOptions{
		Iterations:   1000,
		WeightNoise:  0.1,
		Distribution: DistributionNormal,
	}
}

// Validate checks the options are usable.
func (o MonteCarloOptions) Validate() error {
	if o.Iterations <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIterations, o.Iterations)
	}
	if !(o.WeightNoise >= 0) || !(o.ScoreNoise >= 0) {
		return fmt.Errorf("noise must be non-negative")
	}
	switch o.Distribution {
	case "", DistributionNormal, DistributionUniform:
		return nil
	default:
		return fmt.Errorf("unknown distribution %q", o.Distribution)
	}
}

// MonteCarloOverrides is the per-request form of MonteCarloOptions. Nil
// fields keep the configured default; an explicit zero is kept as zero.
type MonteCarloOverrides struct {
	Iterations   *int     `json:"iterations,omitempty" yaml:"iterations"`
	WeightNoise  *float64 `json:"weight_noise,omitempty" yaml:"weight_noise"`
	ScoreNoise   *float64 `json:"score_noise,omitempty" yaml:"score_noise"`
	Distribution string   `json:"distribution,omitempty" yaml:"distribution"`
	Seed         *uint64  `json:"seed,omitempty" yaml:"seed"`
}

// Apply returns defaults with the set fields of o replaced. A nil o
// returns defaults unchanged.
func (o *MonteCarloOverrides) Apply(defaults MonteCarloOptions) MonteCarloOptions {
	if o == nil {
		return defaults
	}
	opts := defaults
	if o.Iterations != nil {
		opts.Iterations = *o.Iterations
	}
	if o.WeightNoise != nil {
		opts.WeightNoise = *o.WeightNoise
	}
	if o.ScoreNoise != nil {
		opts.ScoreNoise = *o.ScoreNoise
	}
	if o.Distribution != "" {
		opts.Distribution = o.Distribution
	}
	if o.Seed != nil {
		seed := *o.Seed
		opts.Seed = &seed
	}
	return opts
}

// ScoreStats summarizes an alternative's simulated scores.
type ScoreStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// MonteCarloResult aggregates all simulated rankings.
type MonteCarloResult struct {
	Iterations          int     `json:"iterations"`
	BestAlternative     string  `json:"best_alternative"`
	BestAlternativeName string  `json:"best_alternative_name,omitempty"`
	Confidence          float64 `json:"confidence"`

	AlternativeStability map[string]ScoreStats `json:"alternative_stability"`

	// RankingProbability[alt][rank] is the share of draws placing alt at rank.
	RankingProbability map[string]map[int]float64 `json:"ranking_probability"`

	MostFrequentRank map[string]int `json:"most_frequent_rank"`

	// OverallStability is the mean, over alternatives, of the share of draws
	// at each alternative's most frequent rank.
	OverallStability float64 `json:"overall_stability"`

	DurationMs int64 `json:"duration_ms"`
}

// Simulator runs Monte Carlo simulations with a single random source.
// A Simulator is not safe for concurrent use.
type Simulator struct {
	opts MonteCarloOptions
	rng  *rand.Rand
}

// NewSimulator creates a Simulator. A nil Seed uses a random one.
func NewSimulator(opts MonteCarloOptions) *Simulator {
	var seed uint64
	if opts.Seed != nil {
		seed = *opts.Seed
	} else {
		seed = rand.Uint64()
	}
	return NewSimulatorWithRand(opts, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// NewSimulatorWithRand creates a Simulator drawing from rng.
func NewSimulatorWithRand(opts MonteCarloOptions, rng *rand.Rand) *Simulator {
	if opts.Distribution == "" {
		opts.Distribution = DistributionNormal
	}
	return &Simulator{opts: opts, rng: rng}
}

// RunMonteCarloSimulation is a convenience wrapper around a fresh Simulator.
func RunMonteCarloSimulation(ctx context.Context, base *Scenario, alternativeNames map[string]string, opts MonteCarloOptions) (*MonteCarloResult, error) {
	return NewSimulator(opts).Run(ctx, base, alternativeNames)
}

// Run draws opts.Iterations noisy scenarios around base and aggregates the
// resulting rankings. A nil base yields a nil result.
func (s *Simulator) Run(ctx context.Context, base *Scenario, alternativeNames map[string]string) (*MonteCarloResult, error) {
	if err := s.opts.Validate(); err != nil {
		return nil, err
	}
	if base == nil {
		return nil, nil
	}

	start := time.Now()
	n := s.opts.Iterations
	order := base.alternativeOrder()
	baseWeights := base.CriteriaWeights.Normalize()
	criteria := base.CriteriaWeights.Keys()

	scoreSeries := make(map[string][]float64, len(order))
	rankCounts := make(map[string]map[int]int, len(order))
	for _, alt := range order {
		scoreSeries[alt] = make([]float64, 0, n)
		rankCounts[alt] = make(map[int]int, len(order))
	}

	weights := make(CriteriaWeights, len(criteria))
	scores := base.AlternativeScores
	if s.opts.ScoreNoise > 0 {
		scores = base.AlternativeScores.Clone()
	}

	for i := 0; i < n; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("monte carlo cancelled after %d iterations: %w", i, err)
			}
		}

		s.sampleWeights(baseWeights, criteria, weights)
		if s.opts.ScoreNoise > 0 {
			s.sampleScores(base.AlternativeScores, scores)
		}

		for _, ra := range rankInOrder(weights, scores, order) {
			scoreSeries[ra.AlternativeID] = append(scoreSeries[ra.AlternativeID], ra.Score)
			rankCounts[ra.AlternativeID][ra.Rank]++
		}
	}

	result := &MonteCarloResult{
		Iterations:           n,
		AlternativeStability: make(map[string]ScoreStats, len(order)),
		RankingProbability:   make(map[string]map[int]float64, len(order)),
		MostFrequentRank:     make(map[string]int, len(order)),
	}

	// Ties for most rank-1 wins go to the alternative ranked higher in the base.
	bestWins := -1
	var stabilitySum float64
	for _, alt := range base.Ranking().Order() {
		mean, std := meanStd(scoreSeries[alt])
		result.AlternativeStability[alt] = ScoreStats{Mean: mean, Std: std}

		probs := make(map[int]float64, len(rankCounts[alt]))
		modeRank, modeCount := 0, -1
		for rank := 1; rank <= len(order); rank++ {
			count := rankCounts[alt][rank]
			if count == 0 {
				continue
			}
			probs[rank] = float64(count) / float64(n)
			if count > modeCount {
				modeRank, modeCount = rank, count
			}
		}
		result.RankingProbability[alt] = probs
		result.MostFrequentRank[alt] = modeRank
		stabilitySum += float64(modeCount) / float64(n)

		if wins := rankCounts[alt][1]; wins > bestWins {
			bestWins = wins
			result.BestAlternative = alt
			result.Confidence = float64(wins) / float64(n)
		}
	}
	if len(order) > 0 {
		result.OverallStability = stabilitySum / float64(len(order))
	}
	result.BestAlternativeName = alternativeNames[result.BestAlternative]
	result.DurationMs = time.Since(start).Milliseconds()
	return result, nil
}

// sampleWeights fills out with a perturbed, renormalized copy of base.
func (s *Simulator) sampleWeights(base CriteriaWeights, criteria []string, out CriteriaWeights) {
	var total float64
	for _, c := range criteria {
		v := math.Max(0, base[c]+s.noise(s.opts.WeightNoise))
		out[c] = v
		total += v
	}
	if total == 0 {
		for _, c := range criteria {
			out[c] = base[c]
		}
		return
	}
	for _, c := range criteria {
		out[c] /= total
	}
}

// sampleScores fills out with scores perturbed and clamped to [0,1].
func (s *Simulator) sampleScores(base, out AlternativeScores) {
	for _, alt := range base.IDs() {
		row := base[alt]
		for _, c := range sortedKeys(row) {
			out[alt][c] = clamp(row[c]+s.noise(s.opts.ScoreNoise), 0, 1)
		}
	}
}

func (s *Simulator) noise(scale float64) float64 {
	if scale == 0 {
		return 0
	}
	if s.opts.Distribution == DistributionUniform {
		return (s.rng.Float64()*2 - 1) * scale
	}
	return s.rng.NormFloat64() * scale
}

// meanStd returns the mean and population standard deviation.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}

func sortedKeys(m map[string]float64) []string {
	return CriteriaWeights(m).Keys()
}
