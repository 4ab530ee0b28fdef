package experiment

import (
	"context"
	"math"
	"math/cmplx"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/config"
	"github.com/san-kum/qpulse/internal/objective"
	"github.com/san-kum/qpulse/internal/optim"
	"github.com/san-kum/qpulse/internal/telemetry"
)

func TestRegistryOperator(t *testing.T) {
	g := NewWithT(t)
	reg := NewRegistry()

	m, err := reg.Operator(config.Operator{{Op: "x", Im: -math.Pi}, {Op: "z", Re: 0.5}}, 2)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cmplx.Abs(m.At(0, 1) - complex(0, -math.Pi))).To(BeNumerically("<", 1e-15))
	g.Expect(cmplx.Abs(m.At(1, 0) - complex(0, -math.Pi))).To(BeNumerically("<", 1e-15))
	g.Expect(m.At(0, 0)).To(Equal(complex(0.5, 0)))
	g.Expect(m.At(1, 1)).To(Equal(complex(-0.5, 0)))

	explicit, err := reg.Operator(config.Operator{{Matrix: [][][2]float64{{{1, 0}, {0, 2}}, {{0, 0}, {3, 0}}}}}, 2)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(explicit.At(0, 1)).To(Equal(complex(0, 2)))
	g.Expect(explicit.At(1, 1)).To(Equal(complex(3, 0)))

	empty, err := reg.Operator(nil, 3)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(empty.At(2, 2)).To(Equal(complex(0, 0)))

	_, err = reg.Operator(config.Operator{{Op: "w"}}, 2)
	g.Expect(err).To(MatchError(ContainSubstring("unknown operator")))
}

func TestRegistryNames(t *testing.T) {
	reg := NewRegistry()
	for _, name := range reg.ListIntegrators() {
		integ, err := reg.GetIntegrator(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if integ.Name() != name {
			t.Errorf("integrator %s reports name %s", name, integ.Name())
		}
	}
	if _, err := reg.GetIntegrator("euler"); err == nil {
		t.Error("expected an error for an unknown integrator")
	}
	if m, err := reg.GetMethod("lbfgs"); err != nil || m != optim.LBFGS {
		t.Errorf("lbfgs resolved to %q, %v", m, err)
	}
}

func smallRobust() *config.Config {
	cfg := config.GetPreset("x_gate_z_robust")
	cfg.Steps = 12
	cfg.Restarts = 1
	cfg.Goal = nil
	return cfg
}

func TestBuildRobustProblem(t *testing.T) {
	g := NewWithT(t)
	p, err := Build(smallRobust(), nil)
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(p.Decoupling).NotTo(BeNil())
	g.Expect(p.Evolved().Dim()).To(Equal(4))
	rows, cols := p.Shape()
	g.Expect(rows).To(Equal(12))
	g.Expect(cols).To(Equal(1))
	g.Expect(p.Simulator.Integrator().Name()).To(Equal("pade"))
	g.Expect(p.block).To(Equal(objective.DefaultBlock(2)))

	plain, err := Build(config.GetPreset("x_gate"), nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(plain.Decoupling).To(BeNil())
	g.Expect(plain.Evolved().Dim()).To(Equal(2))
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := smallRobust()
	cfg.Steps = 0
	if _, err := Build(cfg, nil); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestObjectiveGradient(t *testing.T) {
	g := NewWithT(t)
	p, err := Build(smallRobust(), nil)
	g.Expect(err).NotTo(HaveOccurred())

	rows, cols := p.Shape()
	x := optim.RandomGuess(rows, cols, -1.5, 1.5, 7)
	_, grad, err := p.Objective(x)
	g.Expect(err).NotTo(HaveOccurred())

	const h = 1e-6
	for i := 0; i < rows; i++ {
		plus := mat.DenseCopyOf(x)
		minus := mat.DenseCopyOf(x)
		plus.Set(i, 0, x.At(i, 0)+h)
		minus.Set(i, 0, x.At(i, 0)-h)
		vp, _, err := p.Objective(plus)
		g.Expect(err).NotTo(HaveOccurred())
		vm, _, err := p.Objective(minus)
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(grad.At(i, 0)).To(BeNumerically("~", (vp-vm)/(2*h), 1e-5), "step %d", i)
	}
}

func TestDiagnoseMatchesObjective(t *testing.T) {
	g := NewWithT(t)
	p, err := Build(smallRobust(), nil)
	g.Expect(err).NotTo(HaveOccurred())

	rows, cols := p.Shape()
	x := optim.RandomGuess(rows, cols, -3, 3, 3)
	value, _, err := p.Objective(x)
	g.Expect(err).NotTo(HaveOccurred())

	diag, err := p.Diagnose(context.Background(), x)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(diag.Value).To(BeNumerically("~", value, 1e-10))
	g.Expect(diag.Penalty).To(BeNumerically(">", 0))
	g.Expect(diag.Unitarity).To(BeNumerically("<", 1e-12))
	g.Expect(diag.Metrics()).To(HaveKey("robustness"))
}

func TestRunRecordsMetrics(t *testing.T) {
	g := NewWithT(t)
	cfg := config.GetPreset("x_gate")
	cfg.Steps = 20
	cfg.Restarts = 1
	cfg.Goal = nil
	cfg.Optimizer.ReportInterval = 5

	m := telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: true, Namespace: "test"})
	reports := 0
	e := New(cfg, WithMetrics(m), WithReporter(optim.ReporterFunc(func(optim.Progress) { reports++ })))

	out, err := e.Run(context.Background())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(out.Attempts).To(Equal(1))
	g.Expect(out.Diagnostics).NotTo(BeNil())
	g.Expect(reports).To(BeNumerically(">", 0))

	runs, err := testutil.GatherAndCount(m.Registry(), "test_runs_total")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(runs).To(Equal(1))

	meta := out.Metadata()
	g.Expect(meta.Name).To(Equal("x_gate"))
	g.Expect(meta.Value).To(Equal(out.Result.Value))
	g.Expect(meta.Metrics).To(HaveKey("fidelity"))
	g.Expect(meta.Metrics).To(HaveKey("energy"))
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := New(smallRobust()).Run(ctx)
	if err == nil {
		t.Fatal("expected an error from a canceled context")
	}
	if out != nil {
		t.Errorf("expected no outcome before the first attempt, got %+v", out)
	}
}

// Zero drift, control -iπX, 152 steps of 0.0125, target X robust to -iπZ:
// -|Tr(X†U)|² + robustness + penalty/20 reaches its minimum of -4.
func TestRobustXGateEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("long optimization")
	}
	g := NewWithT(t)

	out, err := New(config.GetPreset("x_gate_z_robust")).Run(context.Background())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(out.Result.Value).To(BeNumerically("~", -4, 1e-8))
	g.Expect(out.Diagnostics.Fidelity).To(BeNumerically("~", 4, 1e-6))
	g.Expect(out.Diagnostics.Robustness).To(BeNumerically("<", 1e-6))
}
