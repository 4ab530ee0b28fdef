package automation

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	"github.com/san-kum/qpulse/internal/config"
	"github.com/san-kum/qpulse/internal/storage"
)

const scenarioYAML = `
name: short pulses
steps:
  - preset: x_gate
    steps: 20
    restarts: 1
    save_as: x_gate_short
  - preset: x_gate_z_robust
    steps: 16
    restarts: 1
    seed: 7
`

func TestParseScenario(t *testing.T) {
	g := NewWithT(t)
	s, err := ParseScenario([]byte(scenarioYAML))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(s.Steps).To(HaveLen(2))

	cfg, err := s.Steps[1].Resolve()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Seed).To(BeEquivalentTo(7))
	g.Expect(cfg.Steps).To(Equal(16))
	g.Expect(cfg.Restarts).To(Equal(1))

	first, err := s.Steps[0].Resolve()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(first.Name).To(Equal("x_gate_short"))
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no steps", "name: empty\n"},
		{"neither source", "steps:\n  - steps: 10\n"},
		{"both sources", "steps:\n  - preset: x_gate\n    config: x.yaml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			_, err := ParseScenario([]byte(tt.yaml))
			g.Expect(err).To(HaveOccurred())
		})
	}

	g := NewWithT(t)
	_, err := (ScenarioStep{Preset: "nope"}).Resolve()
	g.Expect(err).To(HaveOccurred(), "unknown preset")
}

func TestRunScenarioStoresRuns(t *testing.T) {
	g := NewWithT(t)
	s, err := ParseScenario([]byte(scenarioYAML))
	g.Expect(err).NotTo(HaveOccurred())
	st := storage.New(t.TempDir())

	results, err := RunScenario(context.Background(), s, st, zerolog.Nop())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(results).To(HaveLen(2))

	runs, err := st.List()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(runs).To(HaveLen(2))
	for _, r := range results {
		g.Expect(r.RunID).NotTo(BeEmpty(), "%s: run id", r.Name)
	}
}

func TestSweepLengths(t *testing.T) {
	g := NewWithT(t)
	tests := []struct {
		sweep StepSweep
		want  []int
	}{
		{StepSweep{MinSteps: 10, MaxSteps: 20, Points: 3}, []int{10, 15, 20}},
		{StepSweep{MinSteps: 10, MaxSteps: 11, Points: 5}, []int{10, 11}},
		{StepSweep{MinSteps: 8, MaxSteps: 8, Points: 4}, []int{8}},
	}
	for _, tt := range tests {
		g.Expect(tt.sweep.Lengths()).To(Equal(tt.want), "%+v", tt.sweep)
	}
}

func TestRunSweep(t *testing.T) {
	g := NewWithT(t)
	base := config.GetPreset("x_gate")
	base.Restarts = 1
	base.Goal = nil

	results, err := RunSweep(context.Background(), &StepSweep{Base: base, MinSteps: 10, MaxSteps: 20, Points: 2}, zerolog.Nop())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(results).To(HaveLen(2))
	g.Expect(results[1].Duration).To(Equal(20 * base.Dt))
	g.Expect(base.Steps).To(Equal(config.GetPreset("x_gate").Steps), "sweep modified the base config")

	_, err = RunSweep(context.Background(), &StepSweep{}, zerolog.Nop())
	g.Expect(err).To(HaveOccurred(), "no base config")
}
