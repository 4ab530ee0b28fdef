package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/qpulse/internal/config"
	"github.com/san-kum/qpulse/internal/metrics"
	"github.com/san-kum/qpulse/internal/optim"
	"github.com/san-kum/qpulse/internal/sim"
	"github.com/san-kum/qpulse/internal/storage"
	"github.com/san-kum/qpulse/internal/telemetry"
)

// Experiment runs the optimizer on one problem configuration.
type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	log       zerolog.Logger
	metrics   *telemetry.Metrics
	reporters optim.Reporters
	simOpts   []sim.Option
}

type Option func(*Experiment)

func WithLogger(log zerolog.Logger) Option {
	return func(e *Experiment) { e.log = log }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Experiment) { e.metrics = m }
}

// WithReporter adds a progress reporter next to the log reporter.
func WithReporter(r optim.Reporter) Option {
	return func(e *Experiment) { e.reporters = append(e.reporters, r) }
}

func WithSimOptions(opts ...sim.Option) Option {
	return func(e *Experiment) { e.simOpts = append(e.simOpts, opts...) }
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		log:      zerolog.Nop(),
		metrics:  telemetry.NewMetrics(telemetry.MetricsConfig{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Outcome is the best pulse of a run with its term breakdown.
type Outcome struct {
	Problem     *Problem
	Result      *optim.Result
	Attempts    int
	Diagnostics *Diagnostics
	Runtime     time.Duration
}

// Run builds the problem and minimizes its objective from up to
// cfg.Restarts random guesses. It stops early once the configured goal, or
// convergence when no goal is set, is reached. Cancellation returns the best
// outcome so far together with the error.
func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	problem, err := Build(e.cfg, e.registry, e.simOpts...)
	if err != nil {
		return nil, err
	}
	method, err := e.registry.GetMethod(e.cfg.Optimizer.Method)
	if err != nil {
		return nil, err
	}

	log := telemetry.Component(e.log, "experiment")
	rows, cols := problem.Shape()
	log.Info().
		Str("name", e.cfg.Name).
		Int("steps", rows).
		Int("channels", cols).
		Int("dim", problem.Evolved().Dim()).
		Str("integrator", problem.Simulator.Integrator().Name()).
		Str("method", string(method)).
		Int("restarts", e.cfg.Restarts).
		Msg("starting optimization")

	opts := optim.Options{
		Method:            method,
		MaxIterations:     e.cfg.Optimizer.MaxIterations,
		MaxEvaluations:    e.cfg.Optimizer.MaxEvaluations,
		GradientThreshold: e.cfg.Optimizer.GradientThreshold,
		FunctionTolerance: e.cfg.Optimizer.FunctionTolerance,
		ReportInterval:    e.cfg.Optimizer.ReportInterval,
		Logger:            e.log,
		Reporter: append(optim.Reporters{
			optim.NewLogReporter(e.log),
			newMetricsReporter(e.metrics),
		}, e.reporters...),
	}

	goal := optim.ConvergedGoal
	if e.cfg.Goal != nil {
		goal = optim.WithinOf(e.cfg.Goal.Value, e.cfg.Goal.Tolerance)
	}
	guess := optim.RandomGuesses(rows, cols, e.cfg.Guess.Lower, e.cfg.Guess.Upper, e.cfg.Seed)

	start := time.Now()
	e.metrics.RunStarted()
	res, attempts, runErr := optim.MultiStart(ctx, problem.Objective, rows, cols, e.cfg.Restarts, guess, opts, goal)
	elapsed := time.Since(start)
	if res == nil {
		e.metrics.RunFinished(false, elapsed)
		if runErr == nil {
			runErr = fmt.Errorf("experiment: no attempt finished")
		}
		return nil, runErr
	}
	e.metrics.RunFinished(res.Converged, elapsed)

	out := &Outcome{Problem: problem, Result: res, Attempts: attempts, Runtime: elapsed}

	diag, err := problem.Diagnose(context.Background(), res.Sequence)
	if err != nil {
		log.Warn().Err(err).Msg("diagnostics failed")
	} else {
		out.Diagnostics = diag
		e.metrics.SetUnitarity(diag.Unitarity)
	}

	evt := log.Info()
	if runErr != nil {
		evt = log.Warn().Err(runErr)
	}
	evt.Float64("value", res.Value).
		Bool("converged", res.Converged).
		Int("attempts", attempts).
		Dur("runtime", elapsed).
		Msg("optimization finished")

	return out, runErr
}

// Metadata describes the outcome for the run store.
func (o *Outcome) Metadata() storage.RunMetadata {
	cfg := o.Problem.Config
	meta := storage.RunMetadata{
		Name:        cfg.Name,
		Seed:        cfg.Seed,
		Dt:          cfg.Dt,
		Integrator:  o.Problem.Simulator.Integrator().Name(),
		Method:      cfg.Optimizer.Method,
		Value:       o.Result.Value,
		Converged:   o.Result.Converged,
		Status:      o.Result.Status,
		Iterations:  o.Result.Iterations,
		Evaluations: o.Result.Evaluations,
		Attempts:    o.Attempts,
		Runtime:     o.Runtime.Seconds(),
	}
	meta.Metrics = metrics.Evaluate(o.Result.Sequence, cfg.Dt, metrics.Defaults(cfg.Dt, cfg.Penalty.Lower, cfg.Penalty.Upper)...)
	if o.Diagnostics != nil {
		for name, v := range o.Diagnostics.Metrics() {
			meta.Metrics[name] = v
		}
	}
	return meta
}

// metricsReporter forwards progress to Prometheus. Evaluation counts restart
// at zero with every attempt.
type metricsReporter struct {
	metrics *telemetry.Metrics
	last    int
}

func newMetricsReporter(m *telemetry.Metrics) *metricsReporter {
	return &metricsReporter{metrics: m}
}

func (r *metricsReporter) Report(p optim.Progress) {
	if p.Evaluations < r.last {
		r.last = 0
	}
	r.metrics.ObserveProgress(p.Evaluations-r.last, p.Value, p.Best)
	r.last = p.Evaluations
}
