package optim

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/optimize"
)

// Method names a quasi-Newton method.
type Method string

const (
	BFGS  Method = "bfgs"
	LBFGS Method = "lbfgs"
)

func (m Method) gonum() (optimize.Method, error) {
	switch m {
	case "", BFGS:
		return &optimize.BFGS{}, nil
	case LBFGS:
		return &optimize.LBFGS{}, nil
	}
	return nil, fmt.Errorf("optim: unknown method %q", string(m))
}

// Options configures FindPulse. Zero fields take the defaults below.
type Options struct {
	Method Method
	// MaxIterations bounds major iterations (default 5000).
	MaxIterations int
	// MaxEvaluations bounds objective evaluations (0 = unbounded).
	MaxEvaluations int
	// GradientThreshold stops when the gradient infinity norm falls below it
	// (default 1e-10).
	GradientThreshold float64
	// FunctionTolerance and FunctionIterations stop when the value improves
	// by less than FunctionTolerance over FunctionIterations iterations
	// (defaults 1e-12 and 50).
	FunctionTolerance  float64
	FunctionIterations int
	// ReportInterval is the number of evaluations between reports
	// (default 100).
	ReportInterval int
	// Reporter receives progress. Nil logs through Logger.
	Reporter Reporter
	Logger   zerolog.Logger
}

// DefaultOptions returns the defaults used for zero fields.
func DefaultOptions() Options {
	return Options{
		Method:             BFGS,
		MaxIterations:      5000,
		GradientThreshold:  1e-10,
		FunctionTolerance:  1e-12,
		FunctionIterations: 50,
		ReportInterval:     100,
		Logger:             zerolog.Nop(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Method == "" {
		o.Method = d.Method
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.GradientThreshold <= 0 {
		o.GradientThreshold = d.GradientThreshold
	}
	if o.FunctionTolerance <= 0 {
		o.FunctionTolerance = d.FunctionTolerance
	}
	if o.FunctionIterations <= 0 {
		o.FunctionIterations = d.FunctionIterations
	}
	if o.ReportInterval <= 0 {
		o.ReportInterval = d.ReportInterval
	}
	if o.Reporter == nil {
		o.Reporter = NewLogReporter(o.Logger)
	}
	return o
}

// Progress is a periodic snapshot of a run.
type Progress struct {
	Evaluations int
	Iterations  int
	Value       float64
	Best        float64
	Elapsed     time.Duration
}

// Reporter receives progress snapshots. Report is called from the
// optimizing goroutine and must not block for long.
type Reporter interface {
	Report(p Progress)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(p Progress)

func (f ReporterFunc) Report(p Progress) { f(p) }

// Reporters fans a snapshot out to several reporters.
type Reporters []Reporter

func (rs Reporters) Report(p Progress) {
	for _, r := range rs {
		if r != nil {
			r.Report(p)
		}
	}
}

// LogReporter writes snapshots as structured log lines.
type LogReporter struct {
	log zerolog.Logger
}

func NewLogReporter(log zerolog.Logger) *LogReporter {
	return &LogReporter{log: log.With().Str("component", "optim").Logger()}
}

func (r *LogReporter) Report(p Progress) {
	r.log.Info().
		Int("evaluations", p.Evaluations).
		Int("iterations", p.Iterations).
		Float64("value", p.Value).
		Float64("best", p.Best).
		Dur("elapsed", p.Elapsed).
		Msg("progress")
}
