package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Arbiter/internal/analysis"
	"github.com/MikeSquared-Agency/Arbiter/internal/config"
	"github.com/MikeSquared-Agency/Arbiter/internal/runner"
)

var version = "dev"

// cliOptions are the persistent flags shared by every subcommand.
type cliOptions struct {
	format     string
	configPath string
	debug      bool
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}
	cmd := &cobra.Command{
		Use:   "arbiterctl",
		Short: "Run AHP decision analyses on scenario files",
		Long: `arbiterctl runs the Arbiter analysis engine on local YAML or JSON files.

Each subcommand reads one input file describing a base scenario (criteria
weights and alternative scores) and prints a ranking, scenario comparison,
sensitivity sweep, Monte Carlo simulation, risk assessment or full suite.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", "table", "Output format: table or json")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Arbiter config file supplying analysis defaults")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if opts.debug {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
		if opts.format != "table" && opts.format != "json" {
			return fmt.Errorf("unsupported format %q: must be table or json", opts.format)
		}
		return nil
	}

	cmd.AddCommand(newRankCommand(opts))
	cmd.AddCommand(newScenariosCommand(opts))
	cmd.AddCommand(newSensitivityCommand(opts))
	cmd.AddCommand(newMonteCarloCommand(opts))
	cmd.AddCommand(newRiskCommand(opts))
	cmd.AddCommand(newAHPCommand(opts))
	cmd.AddCommand(newSuiteCommand(opts))
	return cmd
}

// executor builds an engine executor from the config file, or from defaults
// when none is given. The CLI does not cap Monte Carlo iterations.
func (o *cliOptions) executor() (*runner.Executor, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if o.debug {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return runner.NewExecutor(analysis.NewAnalyzer(cfg.AnalyzerOptions(), logger), analysis.Limits{}), nil
}

// readInput decodes a YAML or JSON file into v. JSON is valid YAML, so one
// decoder serves both.
func readInput(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
