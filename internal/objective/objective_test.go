package objective_test

import (
	"context"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/control"
	"github.com/san-kum/qpulse/internal/dynamo"
	"github.com/san-kum/qpulse/internal/linalg"
	"github.com/san-kum/qpulse/internal/objective"
	"github.com/san-kum/qpulse/internal/sim"
)

func randomSequence(rows, cols int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	seq := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			seq.Set(i, j, rng.Float64()*2-1)
		}
	}
	return seq
}

func zeroJacobian(n, m, d int) [][]*mat.CDense {
	jac := make([][]*mat.CDense, n)
	for i := range jac {
		jac[i] = make([]*mat.CDense, m)
		for k := range jac[i] {
			jac[i][k] = linalg.Zeros(d)
		}
	}
	return jac
}

// checkGradient compares the gradient of f at x with central differences.
func checkGradient(f objective.Func, x *mat.Dense, tol float64) {
	_, grad, err := f(x)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())

	const h = 1e-6
	r, c := x.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			plus := mat.DenseCopyOf(x)
			minus := mat.DenseCopyOf(x)
			plus.Set(i, j, x.At(i, j)+h)
			minus.Set(i, j, x.At(i, j)-h)
			vp, _, err := f(plus)
			ExpectWithOffset(1, err).NotTo(HaveOccurred())
			vm, _, err := f(minus)
			ExpectWithOffset(1, err).NotTo(HaveOccurred())
			ExpectWithOffset(1, grad.At(i, j)).To(BeNumerically("~", (vp-vm)/(2*h), tol), "entry (%d,%d)", i, j)
		}
	}
}

var _ = Describe("GateFidelity", func() {
	var x, h *mat.CDense

	BeforeEach(func() {
		x = control.PauliX()
		h = linalg.Scale(complex(1/math.Sqrt2, 0), linalg.Add(control.PauliX(), control.PauliZ()))
	})

	It("is one at the target with no jacobian contribution", func() {
		for _, target := range []*mat.CDense{x, h, linalg.Identity(3)} {
			d, _ := target.Dims()
			v, g, err := objective.GateFidelity(target, target, zeroJacobian(4, 2, d), objective.FidelityOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeNumerically("~", 1, 1e-15))
			Expect(mat.Norm(g, 2)).To(BeZero())
		}
	})

	It("penalizes a global phase only when phase sensitive", func() {
		u := linalg.Scale(1i, x)

		v, _, err := objective.GateFidelity(x, u, nil, objective.FidelityOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeNumerically("~", 0, 1e-15))

		v, _, err = objective.GateFidelity(x, u, nil, objective.FidelityOptions{Phase: objective.PhaseInsensitive})
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeNumerically("~", 1, 1e-15))

		v, _, err = objective.GateFidelity(x, u, nil, objective.FidelityOptions{Phase: objective.PhaseInsensitive, Unnormalized: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeNumerically("~", 4, 1e-14))
	})

	It("compares the nominal block of an augmented propagator", func() {
		aug := linalg.BlockUpper(x, linalg.Identity(2), x)
		v, _, err := objective.GateFidelity(x, aug, nil, objective.FidelityOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeNumerically("~", 1, 1e-15))
	})

	It("rejects targets larger than the propagator", func() {
		_, _, err := objective.GateFidelity(linalg.Identity(3), x, nil, objective.FidelityOptions{})
		Expect(err).To(MatchError(dynamo.ErrShape))
	})

	DescribeTable("gradient matches finite differences",
		func(opts objective.FidelityOptions) {
			cs, err := control.NewControlSystem(
				control.Generator(-0.4i, control.PauliZ()),
				control.Generator(-1i*math.Pi, control.PauliX()),
				control.Generator(-1i*math.Pi, control.PauliY()),
			)
			Expect(err).NotTo(HaveOccurred())
			f := objective.Propagation(sim.New(nil), cs, 0.05, objective.ResultTerm{
				Weight: 1,
				Func:   objective.Fidelity(h, opts),
			})
			checkGradient(f, randomSequence(5, 2, 21), 1e-7)
		},
		Entry("phase sensitive", objective.FidelityOptions{}),
		Entry("phase insensitive", objective.FidelityOptions{Phase: objective.PhaseInsensitive}),
		Entry("unnormalized", objective.FidelityOptions{Phase: objective.PhaseInsensitive, Unnormalized: true}),
	)
})

var _ = Describe("Robustness", func() {
	var cs *control.ControlSystem

	BeforeEach(func() {
		var err error
		cs, err = control.NewControlSystem(
			linalg.Zeros(2),
			control.Generator(-1i*math.Pi, control.PauliX()),
			control.Generator(-1i*math.Pi, control.PauliY()),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	It("is identically zero for a zero perturbation", func() {
		ds, err := cs.DecouplingSystem(linalg.Zeros(2))
		Expect(err).NotTo(HaveOccurred())
		f := objective.Propagation(sim.New(nil), ds, 0.1, objective.ResultTerm{Weight: 1, Func: objective.Robust(objective.BlockSpec{})})

		for seed := int64(0); seed < 5; seed++ {
			v, g, err := f(randomSequence(8, 2, seed))
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeZero())
			Expect(mat.Norm(g, 2)).To(BeZero())
		}
	})

	It("equals the squared first order response of the nominal gate", func() {
		p := control.Generator(-1i*math.Pi, control.PauliZ())
		ds, err := cs.DecouplingSystem(p)
		Expect(err).NotTo(HaveOccurred())

		seq := randomSequence(3, 2, 4)
		s := sim.New(nil)
		res, err := s.Evolve(context.Background(), ds, seq, 0.1, false)
		Expect(err).NotTo(HaveOccurred())

		v, _, err := objective.Robustness(res.Propagator, nil, objective.BlockSpec{})
		Expect(err).NotTo(HaveOccurred())

		block := linalg.Block(res.Propagator, 0, 2, 2, 2)
		Expect(v).To(BeNumerically("~", math.Pow(linalg.FrobeniusDist(block, linalg.Zeros(2)), 2), 1e-12))
		Expect(v).To(BeNumerically(">", 0))
	})

	It("rejects blocks outside the propagator", func() {
		_, _, err := objective.Robustness(linalg.Identity(4), nil, objective.BlockSpec{Row: 2, Col: 2, Rows: 3, Cols: 2})
		Expect(err).To(MatchError(dynamo.ErrShape))

		_, _, err = objective.Robustness(linalg.Identity(3), nil, objective.BlockSpec{})
		Expect(err).To(MatchError(dynamo.ErrShape))
	})

	It("rejects a plain propagator when the system dimension is known", func() {
		_, _, err := objective.Robustness(control.PauliX(), nil, objective.DefaultBlock(2))
		Expect(err).To(MatchError(dynamo.ErrShape))

		// the zero block only sees an even square matrix
		v, _, err := objective.Robustness(control.PauliX(), nil, objective.BlockSpec{})
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(1.0))
	})

	It("has a gradient matching finite differences", func() {
		ds, err := cs.DecouplingSystem(control.Generator(-1i*math.Pi, control.PauliZ()))
		Expect(err).NotTo(HaveOccurred())
		f := objective.Propagation(sim.New(nil), ds, 0.08, objective.ResultTerm{Weight: 1, Func: objective.Robust(objective.BlockSpec{})})
		checkGradient(f, randomSequence(6, 2, 17), 1e-7)
	})
})

var _ = Describe("AmplitudePenalty", func() {
	cfg := objective.PenaltyConfig{Lower: -1, Upper: 1, Tolerance: 0.1, Rate: 0.5, RateTolerance: 0.05}

	It("is exactly zero inside the shrunk bounds", func() {
		seq := mat.NewDense(4, 2, []float64{
			0.0, 0.89,
			0.4, 0.6,
			0.8, 0.3,
			0.5, -0.1,
		})
		v, g, err := objective.AmplitudePenalty(seq, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(0.0))
		Expect(mat.Norm(g, 1)).To(Equal(0.0))
	})

	DescribeTable("is positive outside",
		func(data []float64) {
			v, _, err := objective.AmplitudePenalty(mat.NewDense(len(data), 1, data), cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeNumerically(">", 0))
		},
		Entry("above upper", []float64{0.95}),
		Entry("below lower", []float64{-0.91}),
		Entry("rate up", []float64{0, 0.46}),
		Entry("rate down", []float64{0.3, -0.2}),
	)

	It("ignores the rate when disabled", func() {
		noRate := cfg
		noRate.Rate = 0
		v, _, err := objective.AmplitudePenalty(mat.NewDense(2, 1, []float64{-0.8, 0.8}), noRate)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(0.0))
	})

	DescribeTable("rejects bounds with no admissible region",
		func(bad objective.PenaltyConfig) {
			seq := mat.NewDense(2, 1, []float64{0.4, 0.40001})
			_, _, err := objective.AmplitudePenalty(seq, bad)
			Expect(err).To(MatchError(objective.ErrInvalidPenalty))

			_, _, err = objective.Penalty(bad)(seq)
			Expect(err).To(MatchError(objective.ErrInvalidPenalty))
		},
		Entry("tolerance empties the interval", objective.PenaltyConfig{Lower: 0, Upper: 1, Tolerance: 0.6}),
		Entry("rate tolerance exceeds rate", objective.PenaltyConfig{Lower: -1, Upper: 1, Rate: 0.1, RateTolerance: 0.2}),
		Entry("rate tolerance equals rate", objective.PenaltyConfig{Lower: -1, Upper: 1, Rate: 0.1, RateTolerance: 0.1}),
		Entry("negative rate", objective.PenaltyConfig{Lower: -1, Upper: 1, Rate: -0.1}),
	)

	It("accepts a tolerance that closes the interval to a point", func() {
		point := objective.PenaltyConfig{Lower: 0, Upper: 1, Tolerance: 0.5}
		v, _, err := objective.AmplitudePenalty(mat.NewDense(1, 1, []float64{0.6}), point)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeNumerically("~", 0.01, 1e-15))
	})

	It("has a gradient matching finite differences", func() {
		seq := mat.NewDense(5, 2, []float64{
			1.3, -0.2,
			-1.1, 0.1,
			0.0, 0.85,
			0.7, -0.95,
			0.2, 0.0,
		})
		checkGradient(objective.Penalty(cfg), seq, 1e-6)
	})

	It("does not modify the sequence", func() {
		seq := mat.NewDense(2, 1, []float64{3, -3})
		orig := mat.DenseCopyOf(seq)
		_, _, err := objective.AmplitudePenalty(seq, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(mat.Equal(seq, orig)).To(BeTrue())
	})
})

var _ = Describe("Sum", func() {
	constant := func(v float64, g float64) objective.Func {
		return func(x *mat.Dense) (float64, *mat.Dense, error) {
			r, c := x.Dims()
			grad := mat.NewDense(r, c, nil)
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					grad.Set(i, j, g)
				}
			}
			return v, grad, nil
		}
	}

	It("is the weighted sum of values and gradients", func() {
		f := objective.Sum(
			objective.Term{Weight: 2, Func: constant(1, 0.5)},
			objective.Term{Weight: -1, Func: constant(3, 1)},
			objective.Term{Weight: 0.05, Func: constant(20, 10)},
		)
		v, g, err := f(mat.NewDense(3, 2, nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeNumerically("~", 2-3+1, 1e-15))
		Expect(g.At(2, 1)).To(BeNumerically("~", 1-1+0.5, 1e-15))
	})

	It("negates", func() {
		v, g, err := objective.Negate(constant(2, 3))(mat.NewDense(1, 1, nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(-2.0))
		Expect(g.At(0, 0)).To(Equal(-3.0))
	})

	It("rejects gradients of the wrong shape", func() {
		bad := func(x *mat.Dense) (float64, *mat.Dense, error) {
			return 0, mat.NewDense(1, 1, nil), nil
		}
		_, _, err := objective.Sum(objective.Term{Name: "bad", Weight: 1, Func: bad})(mat.NewDense(2, 2, nil))
		Expect(err).To(MatchError(dynamo.ErrShape))
		Expect(err.Error()).To(ContainSubstring("bad"))
	})

	It("surfaces evolution errors", func() {
		cs, err := control.NewControlSystem(linalg.Zeros(2), control.PauliX())
		Expect(err).NotTo(HaveOccurred())
		f := objective.Propagation(sim.New(nil), cs, 0.1, objective.ResultTerm{Weight: 1, Func: objective.Fidelity(control.PauliX(), objective.FidelityOptions{})})

		_, _, err = f(mat.NewDense(3, 2, nil))
		Expect(err).To(MatchError(dynamo.ErrShape))
	})

	DescribeTable("rejects result terms without a usable gradient",
		func(grad *mat.Dense) {
			cs, err := control.NewControlSystem(linalg.Zeros(2), control.PauliX())
			Expect(err).NotTo(HaveOccurred())
			term := func(res *sim.Result) (float64, *mat.Dense, error) { return 1, grad, nil }
			f := objective.Propagation(sim.New(nil), cs, 0.1, objective.ResultTerm{Name: "custom", Weight: 2, Func: term})

			var v float64
			Expect(func() { v, _, err = f(mat.NewDense(3, 1, nil)) }).NotTo(Panic())
			Expect(err).To(MatchError(dynamo.ErrShape))
			Expect(err.Error()).To(ContainSubstring("custom"))
			Expect(v).To(BeZero())
		},
		Entry("nil gradient", (*mat.Dense)(nil)),
		Entry("wrong shape", mat.NewDense(1, 1, nil)),
	)
})
