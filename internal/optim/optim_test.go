package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/dynamo"
	"github.com/san-kum/qpulse/internal/objective"
)

// quadratic is Σ (x_ij - c_ij)² with minimum 0 at c.
func quadratic(c *mat.Dense, calls *int) objective.Func {
	return func(x *mat.Dense) (float64, *mat.Dense, error) {
		if calls != nil {
			*calls++
		}
		var diff mat.Dense
		diff.Sub(x, c)
		var grad mat.Dense
		grad.Scale(2, &diff)
		v := mat.Norm(&diff, 2)
		return v * v, &grad, nil
	}
}

func TestFindPulseQuadratic(t *testing.T) {
	g := NewWithT(t)
	c := mat.NewDense(4, 2, []float64{1, -2, 0.5, 3, -1, 0, 2, 2})

	var calls int
	res, err := FindPulse(context.Background(), quadratic(c, &calls), 4, 2, mat.NewDense(4, 2, nil), Options{})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Converged).To(BeTrue(), res.Status)
	g.Expect(res.Value).To(BeNumerically("<", 1e-16))
	g.Expect(mat.EqualApprox(res.Sequence, c, 1e-8)).To(BeTrue())
	g.Expect(res.Evaluations).To(Equal(calls))
	g.Expect(res.Iterations).To(BeNumerically(">", 0))
}

func TestFindPulseLBFGS(t *testing.T) {
	g := NewWithT(t)
	c := mat.NewDense(10, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	res, err := FindPulse(context.Background(), quadratic(c, nil), 10, 1, mat.NewDense(10, 1, nil), Options{Method: LBFGS})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Converged).To(BeTrue())
	g.Expect(mat.EqualApprox(res.Sequence, c, 1e-8)).To(BeTrue())
}

func TestFindPulseDoesNotModifyGuess(t *testing.T) {
	guess := mat.NewDense(2, 2, []float64{5, 5, 5, 5})
	orig := mat.DenseCopyOf(guess)
	if _, err := FindPulse(context.Background(), quadratic(mat.NewDense(2, 2, nil), nil), 2, 2, guess, Options{}); err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(guess, orig) {
		t.Error("guess was modified")
	}
}

func TestFindPulseShapeErrors(t *testing.T) {
	obj := quadratic(mat.NewDense(2, 2, nil), nil)
	tests := []struct {
		name       string
		rows, cols int
		guess      *mat.Dense
		want       error
	}{
		{"nil guess", 2, 2, nil, dynamo.ErrShape},
		{"wrong rows", 3, 2, mat.NewDense(2, 2, nil), dynamo.ErrShape},
		{"zero shape", 0, 2, mat.NewDense(2, 2, nil), dynamo.ErrShape},
		{"nan guess", 1, 1, mat.NewDense(1, 1, []float64{math.NaN()}), dynamo.ErrInvalidSequence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindPulse(context.Background(), obj, tt.rows, tt.cols, tt.guess, Options{})
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := FindPulse(context.Background(), obj, 2, 2, mat.NewDense(2, 2, nil), Options{Method: "newton"}); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestFindPulseReportsAtInterval(t *testing.T) {
	g := NewWithT(t)
	c := mat.NewDense(6, 1, []float64{1, 2, 3, 4, 5, 6})

	var reports []Progress
	res, err := FindPulse(context.Background(), quadratic(c, nil), 6, 1, mat.NewDense(6, 1, nil), Options{
		ReportInterval: 2,
		Reporter:       ReporterFunc(func(p Progress) { reports = append(reports, p) }),
	})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(reports).To(HaveLen(res.Evaluations / 2))
	for i, p := range reports {
		g.Expect(p.Evaluations).To(Equal(2 * (i + 1)))
		g.Expect(p.Best).To(BeNumerically("<=", p.Value))
	}
}

func TestFindPulseIterationLimit(t *testing.T) {
	g := NewWithT(t)
	rosen := func(x *mat.Dense) (float64, *mat.Dense, error) {
		a, b := x.At(0, 0), x.At(1, 0)
		v := (1-a)*(1-a) + 100*(b-a*a)*(b-a*a)
		grad := mat.NewDense(2, 1, []float64{
			-2*(1-a) - 400*a*(b-a*a),
			200 * (b - a*a),
		})
		return v, grad, nil
	}

	res, err := FindPulse(context.Background(), rosen, 2, 1, mat.NewDense(2, 1, []float64{-1.2, 1}), Options{MaxIterations: 3})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(res.Converged).To(BeFalse())
	g.Expect(res.Value).To(BeNumerically("<", 24.2))
}

func TestFindPulseCanceled(t *testing.T) {
	g := NewWithT(t)
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	obj := func(x *mat.Dense) (float64, *mat.Dense, error) {
		calls++
		if calls == 3 {
			cancel()
		}
		return quadratic(mat.NewDense(3, 1, []float64{1, 2, 3}), nil)(x)
	}

	res, err := FindPulse(ctx, obj, 3, 1, mat.NewDense(3, 1, nil), Options{})
	g.Expect(err).To(MatchError(dynamo.ErrCanceled))
	g.Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	g.Expect(IsCanceled(err)).To(BeTrue())
	g.Expect(res).NotTo(BeNil())
	g.Expect(res.Converged).To(BeFalse())
	g.Expect(res.Evaluations).To(BeNumerically("<=", 4))
}

func TestFindPulseObjectiveError(t *testing.T) {
	g := NewWithT(t)
	boom := errors.New("boom")
	var calls int
	obj := func(x *mat.Dense) (float64, *mat.Dense, error) {
		calls++
		if calls > 2 {
			return 0, nil, boom
		}
		return quadratic(mat.NewDense(2, 1, []float64{4, 4}), nil)(x)
	}

	res, err := FindPulse(context.Background(), obj, 2, 1, mat.NewDense(2, 1, nil), Options{})
	g.Expect(err).To(MatchError(boom))
	g.Expect(res.Converged).To(BeFalse())
	g.Expect(res.Value).To(BeNumerically("<=", 32))
}

func TestMultiStartStopsAtGoal(t *testing.T) {
	g := NewWithT(t)
	c := mat.NewDense(3, 1, []float64{0.5, -0.5, 2})

	var seen []int
	guess := func(i int) *mat.Dense {
		seen = append(seen, i)
		return RandomGuess(3, 1, 0, 1, int64(i))
	}

	res, attempts, err := MultiStart(context.Background(), quadratic(c, nil), 3, 1, 5, guess, Options{}, WithinOf(0, 1e-12))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(attempts).To(Equal(1))
	g.Expect(seen).To(Equal([]int{0}))
	g.Expect(res.Value).To(BeNumerically("<", 1e-12))

	// an unreachable goal uses every attempt
	_, attempts, err = MultiStart(context.Background(), quadratic(c, nil), 3, 1, 4, guess, Options{}, WithinOf(-1, 1e-12))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(attempts).To(Equal(4))
}

func TestMultiStartCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, attempts, err := MultiStart(ctx, quadratic(mat.NewDense(1, 1, nil), nil), 1, 1, 3, RandomGuesses(1, 1, 0, 1, 1), Options{}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if attempts != 0 || res != nil {
		t.Errorf("expected no attempts, got %d", attempts)
	}
}

func TestMultiStartKeepsBest(t *testing.T) {
	g := NewWithT(t)
	c := mat.NewDense(2, 1, []float64{1, 1})

	res, attempts, err := MultiStart(context.Background(), quadratic(c, nil), 2, 1, 3, RandomGuesses(2, 1, -1, 1, 7), Options{}, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(attempts).To(Equal(3))
	g.Expect(res.Value).To(BeNumerically("<", 1e-16))
}

func TestRandomGuess(t *testing.T) {
	g := NewWithT(t)
	a := RandomGuess(152, 1, 0, 1, 42)
	b := RandomGuess(152, 1, 0, 1, 42)
	g.Expect(mat.Equal(a, b)).To(BeTrue())

	r, c := a.Dims()
	g.Expect(r).To(Equal(152))
	g.Expect(c).To(Equal(1))
	for i := 0; i < r; i++ {
		g.Expect(a.At(i, 0)).To(And(BeNumerically(">=", 0), BeNumerically("<", 1)))
	}
	g.Expect(mat.Equal(a, RandomGuess(152, 1, 0, 1, 43))).To(BeFalse())
}
