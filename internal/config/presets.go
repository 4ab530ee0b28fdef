package config

import (
	"math"
	"sort"
)

// Presets builds named problem configurations.
var Presets = map[string]func() *Config{
	"x_gate_z_robust":      xGateZRobust,
	"x_gate":               xGate,
	"x_gate_amp_robust":    xGateAmplitudeRobust,
	"hadamard_xy_z_robust": hadamardXYZRobust,
}

// xGateZRobust: zero drift, control -iπX, target X, robust to a -iπZ
// detuning. The best achievable value of
// -|Tr(X†U)|² + robustness + penalty/20 is -4.
func xGateZRobust() *Config {
	cfg := DefaultConfig()
	cfg.Name = "x_gate_z_robust"
	cfg.Description = "X gate from a single X control, first order robust to Z detuning"
	cfg.Controls = []Operator{{{Op: "x", Im: -math.Pi}}}
	cfg.Perturbation = Operator{{Op: "z", Im: -math.Pi}}
	cfg.Target = Operator{{Op: "x", Re: 1}}
	cfg.Steps = 152
	cfg.Dt = 0.0125
	cfg.Fidelity = FidelityConfig{Phase: "insensitive", Unnormalized: true, Weight: 1}
	cfg.Robustness = RobustnessConfig{Weight: 1}
	cfg.Penalty = PenaltyConfig{Weight: 0.05, Lower: -2, Upper: 2, Tolerance: 0.1, Rate: 0.4, RateTolerance: 0.05}
	cfg.Guess = GuessConfig{Lower: 0, Upper: 1}
	cfg.Goal = &GoalConfig{Value: -4, Tolerance: 1e-8}
	cfg.Restarts = 5
	return cfg
}

// xGate: phase sensitive target -iX, which lies in SU(2), with X and Y
// controls and no robustness term.
func xGate() *Config {
	cfg := DefaultConfig()
	cfg.Name = "x_gate"
	cfg.Description = "Phase sensitive X gate (-iX) from X and Y controls"
	cfg.Controls = []Operator{{{Op: "x", Im: -math.Pi}}, {{Op: "y", Im: -math.Pi}}}
	cfg.Target = Operator{{Op: "x", Im: -1}}
	cfg.Steps = 100
	cfg.Dt = 0.01
	cfg.Fidelity = FidelityConfig{Phase: "sensitive", Weight: 1}
	cfg.Penalty = PenaltyConfig{Weight: 0.05, Lower: -1, Upper: 1, Tolerance: 0.05}
	cfg.Guess = GuessConfig{Lower: -0.5, Upper: 0.5}
	cfg.Goal = &GoalConfig{Value: -1, Tolerance: 1e-8}
	cfg.Restarts = 3
	return cfg
}

// xGateAmplitudeRobust: X gate robust to a relative error of the control
// amplitude, modeled as a perturbation along the control itself.
func xGateAmplitudeRobust() *Config {
	cfg := xGate()
	cfg.Name = "x_gate_amp_robust"
	cfg.Description = "X gate robust to X amplitude miscalibration"
	cfg.Perturbation = Operator{{Op: "x", Im: -math.Pi}}
	cfg.Robustness = RobustnessConfig{Weight: 1}
	cfg.Steps = 200
	cfg.Goal = nil
	return cfg
}

// hadamardXYZRobust: Hadamard from X and Y controls, robust to Z detuning.
func hadamardXYZRobust() *Config {
	cfg := DefaultConfig()
	cfg.Name = "hadamard_xy_z_robust"
	cfg.Description = "Hadamard gate from X and Y controls, first order robust to Z detuning"
	cfg.Controls = []Operator{{{Op: "x", Im: -math.Pi}}, {{Op: "y", Im: -math.Pi}}}
	cfg.Perturbation = Operator{{Op: "z", Im: -math.Pi}}
	cfg.Target = Operator{{Op: "x", Re: 1 / math.Sqrt2}, {Op: "z", Re: 1 / math.Sqrt2}}
	cfg.Steps = 200
	cfg.Dt = 0.01
	cfg.Fidelity = FidelityConfig{Phase: "insensitive", Weight: 1}
	cfg.Robustness = RobustnessConfig{Weight: 1}
	cfg.Penalty = PenaltyConfig{Weight: 0.05, Lower: -2, Upper: 2, Tolerance: 0.1, Rate: 0.4, RateTolerance: 0.05}
	cfg.Guess = GuessConfig{Lower: -1, Upper: 1}
	cfg.Goal = &GoalConfig{Value: -1, Tolerance: 1e-8}
	cfg.Restarts = 5
	return cfg
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

// ListPresets returns preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
