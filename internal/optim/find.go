package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/qpulse/internal/dynamo"
	"github.com/san-kum/qpulse/internal/objective"
)

// Result of a FindPulse run.
type Result struct {
	Sequence    *mat.Dense
	Value       float64
	Converged   bool
	Iterations  int
	Evaluations int
	Status      string
	Runtime     time.Duration
}

// FindPulse minimizes obj over rows×cols control sequences starting at
// guess. A shape mismatch in guess is returned immediately. Errors from obj
// and cancellation of ctx stop the run and are returned together with the
// best result so far. Every other way the solver can stop yields
// Converged=false and no error.
func FindPulse(ctx context.Context, obj objective.Func, rows, cols int, guess *mat.Dense, opts Options) (*Result, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("optim: sequence shape %d×%d: %w", rows, cols, dynamo.ErrShape)
	}
	if guess == nil {
		return nil, fmt.Errorf("optim: nil guess: %w", dynamo.ErrShape)
	}
	if r, c := guess.Dims(); r != rows || c != cols {
		return nil, fmt.Errorf("optim: guess is %d×%d, want %d×%d: %w", r, c, rows, cols, dynamo.ErrShape)
	}
	if !dynamo.IsFinite(guess) {
		return nil, dynamo.ErrInvalidSequence
	}

	opts = opts.withDefaults()
	method, err := opts.Method.gonum()
	if err != nil {
		return nil, err
	}

	ev := newEvaluator(ctx, obj, rows, cols, opts)

	problem := optimize.Problem{
		Func:   ev.value,
		Grad:   ev.gradient,
		Status: ev.status,
	}
	settings := &optimize.Settings{
		GradientThreshold: opts.GradientThreshold,
		MajorIterations:   opts.MaxIterations,
		FuncEvaluations:   opts.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   opts.FunctionTolerance,
			Iterations: opts.FunctionIterations,
		},
		Recorder: ev,
	}

	start := time.Now()
	res, solveErr := optimize.Minimize(problem, dynamo.Flatten(guess), settings, method)
	runtime := time.Since(start)

	out := ev.best(rows, cols, guess)
	out.Runtime = runtime
	if res != nil {
		out.Iterations = res.Stats.MajorIterations
		out.Status = res.Status.String()
		out.Converged = converged(res.Status) && ev.err == nil
		if res.Location.X != nil && res.Location.F <= out.Value {
			out.Sequence = dynamo.Unflatten(res.Location.X, rows, cols)
			out.Value = res.Location.F
		}
	}
	out.Evaluations = ev.evals

	switch {
	case ev.err != nil:
		out.Converged = false
		return out, ev.err
	case solveErr != nil:
		out.Converged = false
		opts.Logger.Debug().Err(solveErr).Str("status", out.Status).Msg("solver stopped")
	}
	return out, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionThreshold,
		optimize.FunctionConvergence, optimize.StepConvergence, optimize.MethodConverge:
		return true
	}
	return false
}

// evaluator memoizes the objective at the last point so the solver's value
// and gradient requests for the same x cost one evaluation. It also records
// the best point seen, reports progress and carries cancellation.
type evaluator struct {
	ctx  context.Context
	obj  objective.Func
	rows int
	cols int
	opts Options

	lastX    []float64
	lastVal  float64
	lastGrad []float64

	bestX   []float64
	bestVal float64

	evals int
	iters int
	err   error
	start time.Time
}

func newEvaluator(ctx context.Context, obj objective.Func, rows, cols int, opts Options) *evaluator {
	return &evaluator{
		ctx:     ctx,
		obj:     obj,
		rows:    rows,
		cols:    cols,
		opts:    opts,
		bestVal: math.Inf(1),
		start:   time.Now(),
	}
}

func (e *evaluator) eval(x []float64) {
	if e.lastX != nil && floats.Equal(e.lastX, x) {
		return
	}
	e.lastX = append(e.lastX[:0], x...)
	if e.lastGrad == nil {
		e.lastGrad = make([]float64, len(x))
	}

	if e.err != nil {
		e.lastVal = math.Inf(1)
		floats.Scale(0, e.lastGrad)
		return
	}

	v, g, err := e.obj(dynamo.Unflatten(x, e.rows, e.cols))
	e.evals++
	if err == nil && (math.IsNaN(v) || g == nil) {
		err = fmt.Errorf("objective returned value %v: %w", v, dynamo.ErrInvalidSequence)
	}
	if err == nil {
		if r, c := g.Dims(); r != e.rows || c != e.cols {
			err = fmt.Errorf("gradient is %d×%d, want %d×%d: %w", r, c, e.rows, e.cols, dynamo.ErrShape)
		}
	}
	if err != nil {
		e.err = fmt.Errorf("evaluation %d: %w", e.evals, err)
		e.lastVal = math.Inf(1)
		floats.Scale(0, e.lastGrad)
		return
	}

	e.lastVal = v
	copy(e.lastGrad, dynamo.Flatten(g))
	if v < e.bestVal {
		e.bestVal = v
		e.bestX = append(e.bestX[:0], x...)
	}
	if e.evals%e.opts.ReportInterval == 0 {
		e.opts.Reporter.Report(Progress{
			Evaluations: e.evals,
			Iterations:  e.iters,
			Value:       v,
			Best:        e.bestVal,
			Elapsed:     time.Since(e.start),
		})
	}
}

func (e *evaluator) value(x []float64) float64 {
	e.eval(x)
	return e.lastVal
}

func (e *evaluator) gradient(grad, x []float64) {
	e.eval(x)
	copy(grad, e.lastGrad)
}

// status stops the solver after an objective error or cancellation.
func (e *evaluator) status() (optimize.Status, error) {
	if e.err != nil {
		return optimize.Failure, e.err
	}
	if err := e.ctx.Err(); err != nil {
		e.err = fmt.Errorf("%w: %w", dynamo.ErrCanceled, err)
		return optimize.Failure, e.err
	}
	return optimize.NotTerminated, nil
}

// Init implements optimize.Recorder.
func (e *evaluator) Init() error { return nil }

// Record implements optimize.Recorder. It counts major iterations and checks
// for cancellation between evaluations.
func (e *evaluator) Record(_ *optimize.Location, op optimize.Operation, _ *optimize.Stats) error {
	if op == optimize.MajorIteration {
		e.iters++
	}
	if _, err := e.status(); err != nil {
		return err
	}
	return nil
}

func (e *evaluator) best(rows, cols int, guess *mat.Dense) *Result {
	if e.bestX == nil {
		return &Result{Sequence: mat.DenseCopyOf(guess), Value: math.Inf(1)}
	}
	return &Result{Sequence: dynamo.Unflatten(e.bestX, rows, cols), Value: e.bestVal}
}

// IsCanceled reports whether err came from a canceled context.
func IsCanceled(err error) bool {
	return errors.Is(err, dynamo.ErrCanceled)
}
