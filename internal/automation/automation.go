// Package automation runs scripted sequences of optimizations and sweeps
// over pulse length.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/qpulse/internal/config"
	"github.com/san-kum/qpulse/internal/experiment"
	"github.com/san-kum/qpulse/internal/storage"
)

// Scenario defines a scripted optimization sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single optimization in a scenario. It names either a
// preset or a config file; the remaining fields override it when set.
type ScenarioStep struct {
	Preset     string  `yaml:"preset"`
	Config     string  `yaml:"config"`
	Seed       *int64  `yaml:"seed"`
	Restarts   int     `yaml:"restarts"`
	Steps      int     `yaml:"steps"`
	Dt         float64 `yaml:"dt"`
	Integrator string  `yaml:"integrator"`
	SaveAs     string  `yaml:"save_as"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

// ParseScenario decodes and checks a scenario
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, errors.New("scenario has no steps")
	}
	for i, step := range scenario.Steps {
		if (step.Preset == "") == (step.Config == "") {
			return nil, fmt.Errorf("step %d: need exactly one of preset and config", i+1)
		}
	}
	return &scenario, nil
}

// Resolve builds the configuration of the step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	var cfg *config.Config
	if s.Config != "" {
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}

	if s.Seed != nil {
		cfg.Seed = *s.Seed
	}
	if s.Restarts > 0 {
		cfg.Restarts = s.Restarts
	}
	if s.Steps > 0 {
		cfg.Steps = s.Steps
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	if s.Integrator != "" {
		cfg.Integrator = s.Integrator
	}
	if s.SaveAs != "" {
		cfg.Name = s.SaveAs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StepResult is the outcome of one scenario step. RunID is empty when the
// run was not stored.
type StepResult struct {
	Name    string
	RunID   string
	Outcome *experiment.Outcome
}

// RunScenario executes all steps in order and stores each run in st when
// st is not nil. It stops at the first failing step.
func RunScenario(ctx context.Context, scenario *Scenario, st *storage.Store, log zerolog.Logger, opts ...experiment.Option) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))
	log = log.With().Str("component", "automation").Str("scenario", scenario.Name).Logger()

	for i, step := range scenario.Steps {
		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		log.Info().Int("step", i+1).Int("of", len(scenario.Steps)).Str("name", cfg.Name).Msg("running step")

		out, err := experiment.New(cfg, append([]experiment.Option{experiment.WithLogger(log)}, opts...)...).Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		res := StepResult{Name: cfg.Name, Outcome: out}
		if st != nil {
			if res.RunID, err = st.Save(out.Metadata(), out.Result.Sequence, cfg); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, res)
	}

	return results, nil
}

// StepSweep optimizes a problem for a range of pulse lengths at fixed dt
type StepSweep struct {
	Base     *config.Config
	MinSteps int
	MaxSteps int
	Points   int
}

// SweepResult holds the outcome for one pulse length
type SweepResult struct {
	Steps      int
	Duration   float64
	Value      float64
	Converged  bool
	Fidelity   float64
	Robustness float64
}

// Lengths returns the distinct step counts of the sweep in increasing order.
func (s *StepSweep) Lengths() []int {
	if s.Points <= 1 || s.MaxSteps <= s.MinSteps {
		return []int{s.MinSteps}
	}
	out := make([]int, 0, s.Points)
	span := float64(s.MaxSteps - s.MinSteps)
	for i := 0; i < s.Points; i++ {
		n := s.MinSteps + int(span*float64(i)/float64(s.Points-1)+0.5)
		if len(out) == 0 || out[len(out)-1] != n {
			out = append(out, n)
		}
	}
	return out
}

// RunSweep executes a pulse length sweep
func RunSweep(ctx context.Context, sweep *StepSweep, log zerolog.Logger, opts ...experiment.Option) ([]SweepResult, error) {
	if sweep.Base == nil {
		return nil, errors.New("sweep has no base config")
	}
	if sweep.MinSteps < 1 {
		return nil, fmt.Errorf("sweep min steps %d must be positive", sweep.MinSteps)
	}

	lengths := sweep.Lengths()
	results := make([]SweepResult, 0, len(lengths))
	log = log.With().Str("component", "automation").Logger()

	for i, n := range lengths {
		cfg := *sweep.Base
		cfg.Steps = n

		out, err := experiment.New(&cfg, append([]experiment.Option{experiment.WithLogger(log)}, opts...)...).Run(ctx)
		if err != nil {
			return results, fmt.Errorf("sweep %d steps: %w", n, err)
		}

		r := SweepResult{
			Steps:     n,
			Duration:  float64(n) * cfg.Dt,
			Value:     out.Result.Value,
			Converged: out.Result.Converged,
		}
		if out.Diagnostics != nil {
			r.Fidelity = out.Diagnostics.Fidelity
			r.Robustness = out.Diagnostics.Robustness
		}
		results = append(results, r)

		log.Info().Int("point", i+1).Int("of", len(lengths)).Int("steps", n).Float64("value", r.Value).Msg("sweep point")
	}

	return results, nil
}
