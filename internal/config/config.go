package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Arbiter/internal/analysis"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Hermes   HermesConfig   `yaml:"hermes"`
	Projects ProjectsConfig `yaml:"projects"`
	Runner   RunnerConfig   `yaml:"runner"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int `yaml:"port"`
	MetricsPort int `yaml:"metrics_port"`
	// RateLimit is requests per minute per client IP; 0 disables limiting.
	RateLimit int `yaml:"rate_limit"`
}

// DatabaseConfig selects the run store. An empty URL keeps runs in memory.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

// ProjectsConfig points at the decision platform backend that owns projects.
type ProjectsConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type RunnerConfig struct {
	TickIntervalMs     int `yaml:"tick_interval_ms"`
	TimeoutSweepMs     int `yaml:"timeout_sweep_ms"`
	DefaultTimeoutSecs int `yaml:"default_timeout_secs"`
	MaxRetries         int `yaml:"max_retries"`
	BatchSize          int `yaml:"batch_size"`
}

type AnalysisConfig struct {
	Sensitivity SensitivityConfig `yaml:"sensitivity"`
	MonteCarlo  MonteCarloConfig  `yaml:"monte_carlo"`
	Risk        RiskConfig        `yaml:"risk"`
	AHP         AHPConfig         `yaml:"ahp"`
}

type SensitivityConfig struct {
	Range    float64 `yaml:"range"`
	Steps    int     `yaml:"steps"`
	MaxSteps int     `yaml:"max_steps"`
}

// AHPConfig bounds pairwise comparison input.
type AHPConfig struct {
	// MaxItems is the largest matrix order accepted per comparison matrix.
	MaxItems int `yaml:"max_items"`
	// MaxEvaluators bounds the judgment sets in one group aggregation.
	MaxEvaluators int `yaml:"max_evaluators"`
}

type MonteCarloConfig struct {
	Iterations    int     `yaml:"iterations"`
	MaxIterations int     `yaml:"max_iterations"`
	WeightNoise   float64 `yaml:"weight_noise"`
	ScoreNoise    float64 `yaml:"score_noise"`
	Distribution  string  `yaml:"distribution"`
}

type RiskConfig struct {
	Weights             RiskWeights `yaml:"weights"`
	MitigationThreshold float64     `yaml:"mitigation_threshold"`
}

type RiskWeights struct {
	Implementation float64 `yaml:"implementation"`
	Cost           float64 `yaml:"cost"`
	Time           float64 `yaml:"time"`
	Quality        float64 `yaml:"quality"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Runner.TickIntervalMs) * time.Millisecond
}

func (c *Config) TimeoutSweep() time.Duration {
	return time.Duration(c.Runner.TimeoutSweepMs) * time.Millisecond
}

func (c *Config) DefaultRunTimeout() time.Duration {
	return time.Duration(c.Runner.DefaultTimeoutSecs) * time.Second
}

// AnalyzerOptions converts the analysis section into engine defaults.
func (c *Config) AnalyzerOptions() analysis.AnalyzerOptions {
	a := c.Analysis
	return analysis.AnalyzerOptions{
		Sensitivity: analysis.SensitivityOptions{
			Range: a.Sensitivity.Range,
			Steps: a.Sensitivity.Steps,
		},
		MonteCarlo: analysis.MonteCarloOptions{
			Iterations:   a.MonteCarlo.Iterations,
			WeightNoise:  a.MonteCarlo.WeightNoise,
			ScoreNoise:   a.MonteCarlo.ScoreNoise,
			Distribution: a.MonteCarlo.Distribution,
		},
		Risk: analysis.RiskOptions{
			Weights: analysis.RiskWeights{
				Implementation: a.Risk.Weights.Implementation,
				Cost:           a.Risk.Weights.Cost,
				Time:           a.Risk.Weights.Time,
				Quality:        a.Risk.Weights.Quality,
			},
			MitigationThreshold: a.Risk.MitigationThreshold,
		},
	}
}

// Limits converts the analysis section into the request bounds enforced by
// the service.
func (c *Config) Limits() analysis.Limits {
	return analysis.Limits{
		MaxIterations:       c.Analysis.MonteCarlo.MaxIterations,
		MaxSensitivitySteps: c.Analysis.Sensitivity.MaxSteps,
		MaxMatrixOrder:      c.Analysis.AHP.MaxItems,
		MaxEvaluators:       c.Analysis.AHP.MaxEvaluators,
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if err := c.AnalyzerOptions().Risk.Weights.Validate(); err != nil {
		return fmt.Errorf("analysis.risk: %w", err)
	}
	if err := c.AnalyzerOptions().MonteCarlo.Validate(); err != nil {
		return fmt.Errorf("analysis.monte_carlo: %w", err)
	}
	if c.Analysis.MonteCarlo.MaxIterations < c.Analysis.MonteCarlo.Iterations {
		return fmt.Errorf("analysis.monte_carlo: max_iterations %d below iterations %d",
			c.Analysis.MonteCarlo.MaxIterations, c.Analysis.MonteCarlo.Iterations)
	}
	if err := c.AnalyzerOptions().Sensitivity.Validate(); err != nil {
		return fmt.Errorf("analysis.sensitivity: %w", err)
	}
	if c.Analysis.Sensitivity.MaxSteps < c.Analysis.Sensitivity.Steps {
		return fmt.Errorf("analysis.sensitivity: max_steps %d below steps %d",
			c.Analysis.Sensitivity.MaxSteps, c.Analysis.Sensitivity.Steps)
	}
	if c.Analysis.AHP.MaxItems < 2 {
		return fmt.Errorf("analysis.ahp: max_items must be at least 2, got %d", c.Analysis.AHP.MaxItems)
	}
	if c.Analysis.AHP.MaxEvaluators < 1 {
		return fmt.Errorf("analysis.ahp: max_evaluators must be positive, got %d", c.Analysis.AHP.MaxEvaluators)
	}
	return nil
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
			RateLimit:   120,
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Projects: ProjectsConfig{
			URL: "http://localhost:8000",
		},
		Runner: RunnerConfig{
			TickIntervalMs:     1000,
			TimeoutSweepMs:     30000,
			DefaultTimeoutSecs: 300,
			MaxRetries:         2,
			BatchSize:          4,
		},
		Analysis: AnalysisConfig{
			Sensitivity: SensitivityConfig{
				Range:    0.2,
				Steps:    21,
				MaxSteps: 1001,
			},
			MonteCarlo: MonteCarloConfig{
				Iterations:    1000,
				MaxIterations: 100000,
				WeightNoise:   0.1,
				ScoreNoise:    0,
				Distribution:  analysis.DistributionNormal,
			},
			Risk: RiskConfig{
				Weights: RiskWeights{
					Implementation: 0.30,
					Cost:           0.25,
					Time:           0.20,
					Quality:        0.25,
				},
				MitigationThreshold: 0.6,
			},
			AHP: AHPConfig{
				MaxItems:      50,
				MaxEvaluators: 100,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ARBITER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("ARBITER_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("ARBITER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
	if v := os.Getenv("ARBITER_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("ARBITER_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("ARBITER_PROJECTS_URL"); v != "" {
		cfg.Projects.URL = v
	}
	if v := os.Getenv("ARBITER_PROJECTS_TOKEN"); v != "" {
		cfg.Projects.Token = v
	}
	if v := os.Getenv("ARBITER_TICK_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Runner.TickIntervalMs = n
		}
	}
	if v := os.Getenv("ARBITER_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Runner.MaxRetries = n
		}
	}
	if v := os.Getenv("ARBITER_MC_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.MonteCarlo.Iterations = n
		}
	}
	if v := os.Getenv("ARBITER_MC_WEIGHT_NOISE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Analysis.MonteCarlo.WeightNoise = f
		}
	}
	if v := os.Getenv("ARBITER_MC_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.MonteCarlo.MaxIterations = n
		}
	}
	if v := os.Getenv("ARBITER_AHP_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.AHP.MaxItems = n
		}
	}
	if v := os.Getenv("ARBITER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
