package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Arbiter/internal/analysis"
	"github.com/MikeSquared-Agency/Arbiter/internal/runner"
)

func newRankCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rank <scenario.yaml>",
		Short: "Rank the alternatives of a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sc analysis.Scenario
			if err := readInput(args[0], &sc); err != nil {
				return err
			}
			if err := sc.Validate(); err != nil {
				return err
			}
			ranking := sc.Ranking()
			if opts.format == "json" {
				return printJSON(cmd.OutOrStdout(), ranking)
			}
			printRanking(cmd.OutOrStdout(), ranking)
			return nil
		},
	}
}

func newScenariosCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios <request.yaml>",
		Short: "Compare what-if and explicit scenarios against a base",
		Long: `Ranks every scenario in the file and reports how each alternative's
rank moved relative to the base. Positive deltas mean the alternative moved up.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req runner.ScenarioAnalysisRequest
			if err := readInput(args[0], &req); err != nil {
				return err
			}
			if err := req.Validate(); err != nil {
				return err
			}
			exec, err := opts.executor()
			if err != nil {
				return err
			}
			results, err := exec.Scenarios(&req)
			if err != nil {
				return err
			}
			if opts.format == "json" {
				return printJSON(cmd.OutOrStdout(), results)
			}
			w := cmd.OutOrStdout()
			for _, res := range results {
				fmt.Fprintf(w, "Scenario %s (%s)\n", res.ScenarioID, res.ScenarioName)
				for _, ra := range res.Ranking {
					fmt.Fprintf(w, "  %2d. %-20s %.4f  %+d\n", ra.Rank, label(ra), ra.Score, res.RankingChanges[ra.AlternativeID])
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
}

func newSensitivityCommand(opts *cliOptions) *cobra.Command {
	var (
		sweepRange float64
		steps      int
	)
	cmd := &cobra.Command{
		Use:   "sensitivity <request.yaml>",
		Short: "Sweep each criterion weight and report ranking stability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req runner.SensitivityRequest
			if err := readInput(args[0], &req); err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("range") || flags.Changed("steps") {
				if req.Options == nil {
					req.Options = &analysis.SensitivityOptions{}
				}
				if flags.Changed("range") {
					req.Options.Range = sweepRange
				}
				if flags.Changed("steps") {
					req.Options.Steps = steps
				}
			}
			if err := req.Validate(); err != nil {
				return err
			}
			exec, err := opts.executor()
			if err != nil {
				return err
			}
			results, err := exec.Sensitivity(&req)
			if err != nil {
				return err
			}
			if opts.format == "json" {
				return printJSON(cmd.OutOrStdout(), results)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "  %-20s %-8s %-8s %-10s %-10s %s\n", "Criterion", "Weight", "Score", "Level", "Stability", "Critical")
			for _, r := range results {
				critical := "-"
				if r.CriticalWeight != nil {
					critical = fmt.Sprintf("%.3f", *r.CriticalWeight)
				}
				name := r.CriteriaName
				if name == "" {
					name = r.CriteriaID
				}
				fmt.Fprintf(w, "  %-20s %-8.3f %-8.3f %-10s %-10.2f %s\n",
					name, r.OriginalWeight, r.SensitivityScore, analysis.SensitivityLevel(r.SensitivityScore), r.RankingStability, critical)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&sweepRange, "range", 0.2, "Maximum deviation from each base weight")
	cmd.Flags().IntVar(&steps, "steps", 21, "Number of sweep points per criterion")
	return cmd
}

func newMonteCarloCommand(opts *cliOptions) *cobra.Command {
	var (
		iterations int
		noise      float64
		scoreNoise float64
		dist       string
		seed       uint64
	)
	cmd := &cobra.Command{
		Use:     "montecarlo <request.yaml>",
		Aliases: []string{"mc"},
		Short:   "Simulate weight uncertainty and report rank probabilities",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req runner.MonteCarloRequest
			if err := readInput(args[0], &req); err != nil {
				return err
			}
			if req.Options == nil {
				req.Options = &analysis.MonteCarloOverrides{}
			}
			flags := cmd.Flags()
			if flags.Changed("iterations") {
				req.Options.Iterations = &iterations
			}
			if flags.Changed("noise") {
				req.Options.WeightNoise = &noise
			}
			if flags.Changed("score-noise") {
				req.Options.ScoreNoise = &scoreNoise
			}
			if flags.Changed("distribution") {
				req.Options.Distribution = dist
			}
			if flags.Changed("seed") {
				req.Options.Seed = &seed
			}
			if err := req.Validate(); err != nil {
				return err
			}
			exec, err := opts.executor()
			if err != nil {
				return err
			}
			res, err := exec.MonteCarlo(cmd.Context(), &req)
			if err != nil {
				return err
			}
			if opts.format == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printMonteCarlo(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 1000, "Number of simulated draws")
	cmd.Flags().Float64Var(&noise, "noise", 0.1, "Weight noise (σ for normal, half-width for uniform)")
	cmd.Flags().Float64Var(&scoreNoise, "score-noise", 0, "Score noise; 0 keeps scores fixed")
	cmd.Flags().StringVar(&dist, "distribution", analysis.DistributionNormal, "Noise distribution: normal or uniform")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for reproducible runs")
	return cmd
}

func newRiskCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "risk <alternatives.yaml>",
		Short: "Assess implementation, cost, time and quality risk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req runner.RiskRequest
			if err := readInput(args[0], &req); err != nil {
				return err
			}
			if err := req.Validate(); err != nil {
				return err
			}
			exec, err := opts.executor()
			if err != nil {
				return err
			}
			results := exec.Risk(&req)
			if opts.format == "json" {
				return printJSON(cmd.OutOrStdout(), results)
			}
			printRisk(cmd.OutOrStdout(), results)
			return nil
		},
	}
}

func newAHPCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ahp <hierarchy.yaml>",
		Short: "Derive weights and scores from pairwise comparisons",
		Long: `Derives criteria weights and alternative priorities from Saaty-scale
pairwise judgments, reports each matrix's consistency ratio, and ranks the
alternatives of the resulting scenario.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var h analysis.Hierarchy
			if err := readInput(args[0], &h); err != nil {
				return err
			}
			res, err := analysis.ScenarioFromHierarchy(h)
			if err != nil {
				return err
			}
			if opts.format == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Criteria weights (CR %.3f)\n", res.Criteria.ConsistencyRatio)
			for _, c := range res.Criteria.Weights.Keys() {
				fmt.Fprintf(w, "  %-20s %.4f  (CR %.3f)\n", c, res.Criteria.Weights[c], res.Local[c].ConsistencyRatio)
			}
			if len(res.Inconsistent) > 0 {
				fmt.Fprintf(w, "Inconsistent matrices: %s\n", strings.Join(res.Inconsistent, ", "))
			}
			fmt.Fprintln(w)
			printRanking(w, res.Ranking)
			return nil
		},
	}
}

func newSuiteCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "suite <request.yaml>",
		Short: "Run every analysis and summarize the decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req analysis.SuiteRequest
			if err := readInput(args[0], &req); err != nil {
				return err
			}
			if req.Base == nil {
				return analysis.ErrNoBaseScenario
			}
			if err := req.Base.Validate(); err != nil {
				return err
			}
			exec, err := opts.executor()
			if err != nil {
				return err
			}
			res, err := exec.Suite(cmd.Context(), &req)
			if err != nil {
				return err
			}
			if opts.format == "json" {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printSuite(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func label(ra analysis.RankedAlternative) string {
	if ra.Name != "" {
		return ra.Name
	}
	return ra.AlternativeID
}

func printRanking(w io.Writer, ranking analysis.Ranking) {
	fmt.Fprintf(w, "  %-4s %-20s %s\n", "Rank", "Alternative", "Score")
	for _, ra := range ranking {
		fmt.Fprintf(w, "  %-4d %-20s %.4f\n", ra.Rank, label(ra), ra.Score)
	}
}

func printMonteCarlo(w io.Writer, res *analysis.MonteCarloResult) {
	fmt.Fprintf(w, "Best alternative: %s (%.1f%% of %d draws)\n", res.BestAlternative, res.Confidence*100, res.Iterations)
	fmt.Fprintf(w, "Overall stability: %.3f\n\n", res.OverallStability)

	ids := make([]string, 0, len(res.AlternativeStability))
	for id := range res.AlternativeStability {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fmt.Fprintf(w, "  %-20s %-8s %-8s %-6s %s\n", "Alternative", "Mean", "Std", "Mode", "P(rank 1)")
	for _, id := range ids {
		st := res.AlternativeStability[id]
		fmt.Fprintf(w, "  %-20s %-8.4f %-8.4f %-6d %.3f\n", id, st.Mean, st.Std, res.MostFrequentRank[id], res.RankingProbability[id][1])
	}
}

func printRisk(w io.Writer, results []analysis.RiskAssessment) {
	fmt.Fprintf(w, "  %-20s %-7s %-7s %-7s %-7s %-7s %s\n", "Alternative", "Score", "Level", "Impl", "Cost", "Time", "Quality")
	for _, r := range results {
		name := r.AlternativeName
		if name == "" {
			name = r.AlternativeID
		}
		f := r.RiskFactors
		fmt.Fprintf(w, "  %-20s %-7.3f %-7s %-7.3f %-7.3f %-7.3f %.3f\n",
			name, r.RiskScore, r.Level, f.ImplementationRisk, f.CostRisk, f.TimeRisk, f.QualityRisk)
		for _, s := range r.MitigationStrategies {
			fmt.Fprintf(w, "      - %s\n", s)
		}
	}
}

func printSuite(w io.Writer, res *analysis.SuiteResult) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, " DECISION SUMMARY: %s\n", res.ScenarioID)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	top := res.Summary.TopAlternative
	if res.Summary.TopAlternativeName != "" {
		top = res.Summary.TopAlternativeName
	}
	fmt.Fprintf(w, "Top alternative:    %s\n", top)
	fmt.Fprintf(w, "Overall confidence: %.1f%%\n\n", res.Summary.OverallConfidence*100)

	printRanking(w, res.BaseRanking)

	if len(res.Summary.KeyFindings) > 0 {
		fmt.Fprintln(w, "\nKey findings:")
		for _, f := range res.Summary.KeyFindings {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	if len(res.Summary.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, r := range res.Summary.Recommendations {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}
	if len(res.ParetoFrontier) > 0 {
		ids := make([]string, 0, len(res.ParetoFrontier))
		for _, c := range res.ParetoFrontier {
			ids = append(ids, c.AlternativeID)
		}
		fmt.Fprintf(w, "\nPareto frontier: %s\n", strings.Join(ids, ", "))
	}
}
