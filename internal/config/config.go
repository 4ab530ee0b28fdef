package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/qpulse/internal/telemetry"
)

const (
	DefaultSteps          = 152
	DefaultDt             = 0.0125
	DefaultIntegrator     = "pade"
	DefaultMethod         = "bfgs"
	DefaultMaxIterations  = 5000
	DefaultReportInterval = 100
	DefaultRestarts       = 1
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Term is one weighted operator: (re + i·im)·op, where op is a Pauli name or,
// when Op is empty, an explicit matrix of [re, im] pairs. A term with both
// re and im zero has coefficient 1.
type Term struct {
	Op     string         `yaml:"op,omitempty" validate:"omitempty,oneof=i x y z I X Y Z"`
	Re     float64        `yaml:"re,omitempty"`
	Im     float64        `yaml:"im,omitempty"`
	Matrix [][][2]float64 `yaml:"matrix,omitempty"`
}

// Operator is a sum of terms. An empty operator is the zero matrix.
type Operator []Term

type FidelityConfig struct {
	Phase        string  `yaml:"phase" validate:"omitempty,oneof=sensitive insensitive"`
	Unnormalized bool    `yaml:"unnormalized"`
	Weight       float64 `yaml:"weight" validate:"gte=0"`
}

// RobustnessConfig locates the sensitivity block. Zero Rows selects the
// default block (rows 0:d, cols d:2d).
type RobustnessConfig struct {
	Weight float64 `yaml:"weight" validate:"gte=0"`
	Row    int     `yaml:"row,omitempty" validate:"gte=0"`
	Col    int     `yaml:"col,omitempty" validate:"gte=0"`
	Rows   int     `yaml:"rows,omitempty" validate:"gte=0"`
	Cols   int     `yaml:"cols,omitempty" validate:"gte=0"`
}

type PenaltyConfig struct {
	Weight        float64 `yaml:"weight" validate:"gte=0"`
	Lower         float64 `yaml:"lower"`
	Upper         float64 `yaml:"upper" validate:"gtfield=Lower"`
	Tolerance     float64 `yaml:"tolerance" validate:"gte=0"`
	Rate          float64 `yaml:"rate" validate:"gte=0"`
	RateTolerance float64 `yaml:"rate_tolerance" validate:"gte=0"`
}

type OptimizerConfig struct {
	Method            string  `yaml:"method" validate:"oneof=bfgs lbfgs"`
	MaxIterations     int     `yaml:"max_iterations" validate:"gte=0"`
	MaxEvaluations    int     `yaml:"max_evaluations" validate:"gte=0"`
	ReportInterval    int     `yaml:"report_interval" validate:"gte=1"`
	GradientThreshold float64 `yaml:"gradient_threshold" validate:"gte=0"`
	FunctionTolerance float64 `yaml:"function_tolerance" validate:"gte=0"`
}

// GuessConfig is the uniform range of random initial guesses.
type GuessConfig struct {
	Lower float64 `yaml:"lower"`
	Upper float64 `yaml:"upper" validate:"gtefield=Lower"`
}

// GoalConfig stops restarts once the value is within Tolerance of Value.
type GoalConfig struct {
	Value     float64 `yaml:"value"`
	Tolerance float64 `yaml:"tolerance" validate:"gt=0"`
}

type Config struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description,omitempty"`

	Dim          int        `yaml:"dim" validate:"gte=1"`
	Drift        Operator   `yaml:"drift" validate:"dive"`
	Controls     []Operator `yaml:"controls" validate:"min=1,dive,min=1,dive"`
	Perturbation Operator   `yaml:"perturbation,omitempty" validate:"dive"`
	Target       Operator   `yaml:"target" validate:"min=1,dive"`
	TargetDim    int        `yaml:"target_dim,omitempty" validate:"gte=0"`

	Steps      int     `yaml:"steps" validate:"gte=1"`
	Dt         float64 `yaml:"dt" validate:"gt=0"`
	Integrator string  `yaml:"integrator" validate:"oneof=pade rk4 rk45"`
	Workers    int     `yaml:"workers" validate:"gte=0"`

	Fidelity   FidelityConfig   `yaml:"fidelity"`
	Robustness RobustnessConfig `yaml:"robustness"`
	Penalty    PenaltyConfig    `yaml:"penalty"`
	Optimizer  OptimizerConfig  `yaml:"optimizer"`
	Guess      GuessConfig      `yaml:"guess"`
	Goal       *GoalConfig      `yaml:"goal,omitempty"`

	Seed     int64 `yaml:"seed"`
	Restarts int   `yaml:"restarts" validate:"gte=1"`

	Logging telemetry.LoggingConfig `yaml:"logging"`
	Metrics telemetry.MetricsConfig `yaml:"metrics"`
}

// DefaultConfig is a one-qubit X gate with an X control and no robustness
// term. Loaded files are merged over it.
func DefaultConfig() *Config {
	return &Config{
		Name:       "default",
		Dim:        2,
		Drift:      Operator{},
		Controls:   []Operator{{{Op: "x", Im: -math.Pi}}},
		Target:     Operator{{Op: "x", Re: 1}},
		Steps:      DefaultSteps,
		Dt:         DefaultDt,
		Integrator: DefaultIntegrator,
		Fidelity: FidelityConfig{
			Phase:  "insensitive",
			Weight: 1,
		},
		Penalty: PenaltyConfig{
			Lower: -1,
			Upper: 1,
		},
		Optimizer: OptimizerConfig{
			Method:            DefaultMethod,
			MaxIterations:     DefaultMaxIterations,
			ReportInterval:    DefaultReportInterval,
			GradientThreshold: 1e-10,
			FunctionTolerance: 1e-12,
		},
		Guess:    GuessConfig{Lower: 0, Upper: 1},
		Seed:     1,
		Restarts: DefaultRestarts,
		Logging:  telemetry.DefaultLoggingConfig(),
		Metrics:  telemetry.DefaultMetricsConfig(),
	}
}

// Load reads a YAML file over the defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

var validate = validator.New()

// Validate checks field constraints and the consistency of operator
// dimensions.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	ops := map[string]Operator{"drift": c.Drift, "perturbation": c.Perturbation}
	for k, op := range c.Controls {
		ops[fmt.Sprintf("controls[%d]", k)] = op
	}
	for name, op := range ops {
		if err := op.check(c.Dim); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
		}
	}
	if err := c.Target.check(c.TargetDimension()); err != nil {
		return fmt.Errorf("%w: target: %v", ErrInvalid, err)
	}
	if c.TargetDimension() > c.Dim {
		return fmt.Errorf("%w: target dimension %d exceeds system dimension %d", ErrInvalid, c.TargetDimension(), c.Dim)
	}
	if c.Penalty.Lower+c.Penalty.Tolerance > c.Penalty.Upper-c.Penalty.Tolerance {
		return fmt.Errorf("%w: penalty tolerance %.3g empties [%.3g, %.3g]", ErrInvalid, c.Penalty.Tolerance, c.Penalty.Lower, c.Penalty.Upper)
	}
	if c.Penalty.Rate > 0 && c.Penalty.RateTolerance >= c.Penalty.Rate {
		return fmt.Errorf("%w: rate tolerance %.3g must be below rate %.3g", ErrInvalid, c.Penalty.RateTolerance, c.Penalty.Rate)
	}
	if c.Robustness.Weight > 0 && len(c.Perturbation) == 0 {
		return fmt.Errorf("%w: robustness weight without a perturbation", ErrInvalid)
	}
	return nil
}

// TargetDimension is TargetDim, or Dim when unset.
func (c *Config) TargetDimension() int {
	if c.TargetDim > 0 {
		return c.TargetDim
	}
	return c.Dim
}

// Robust reports whether the problem carries a perturbation.
func (c *Config) Robust() bool { return len(c.Perturbation) > 0 }

func (op Operator) check(dim int) error {
	for i, t := range op {
		switch {
		case t.Op != "" && t.Matrix != nil:
			return fmt.Errorf("term %d has both op and matrix", i)
		case t.Op != "" && dim != 2:
			return fmt.Errorf("term %d: Pauli %q needs dimension 2, have %d", i, t.Op, dim)
		case t.Op == "" && t.Matrix == nil:
			return fmt.Errorf("term %d has neither op nor matrix", i)
		case t.Matrix != nil:
			if len(t.Matrix) != dim {
				return fmt.Errorf("term %d: matrix has %d rows, want %d", i, len(t.Matrix), dim)
			}
			for r, row := range t.Matrix {
				if len(row) != dim {
					return fmt.Errorf("term %d: matrix row %d has %d entries, want %d", i, r, len(row), dim)
				}
			}
		}
	}
	return nil
}
