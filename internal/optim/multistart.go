package optim

import (
	"context"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/objective"
)

// RandomGuess returns a rows×cols sequence drawn uniformly from [lo, hi)
// with a source seeded by seed.
func RandomGuess(rows, cols int, lo, hi float64, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = lo + (hi-lo)*rng.Float64()
	}
	return mat.NewDense(rows, cols, data)
}

// GuessFunc returns the starting sequence for a 0-based attempt.
type GuessFunc func(attempt int) *mat.Dense

// RandomGuesses returns uniform guesses seeded seed, seed+1, ...
func RandomGuesses(rows, cols int, lo, hi float64, seed int64) GuessFunc {
	return func(attempt int) *mat.Dense {
		return RandomGuess(rows, cols, lo, hi, seed+int64(attempt))
	}
}

// Goal decides whether a result is good enough to stop retrying.
type Goal func(r *Result) bool

// WithinOf accepts results whose value is within tol of target.
func WithinOf(target, tol float64) Goal {
	return func(r *Result) bool {
		return math.Abs(r.Value-target) <= tol
	}
}

// ConvergedGoal accepts any converged result.
func ConvergedGoal(r *Result) bool { return r.Converged }

// MultiStart runs FindPulse from up to attempts guesses and stops at the
// first result that satisfies goal. It returns the best result seen, the
// number of attempts made and the error that stopped it, if any. A nil goal
// runs every attempt.
func MultiStart(ctx context.Context, obj objective.Func, rows, cols, attempts int, guess GuessFunc, opts Options, goal Goal) (*Result, int, error) {
	var best *Result
	made := 0
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return best, made, err
		}

		res, err := FindPulse(ctx, obj, rows, cols, guess(i), opts)
		made++
		if res != nil && (best == nil || res.Value < best.Value) {
			best = res
		}
		if err != nil {
			return best, made, err
		}

		opts.Logger.Info().
			Int("attempt", i+1).
			Float64("value", res.Value).
			Bool("converged", res.Converged).
			Str("status", res.Status).
			Msg("attempt finished")

		if goal != nil && goal(res) {
			best = res
			break
		}
	}
	return best, made, nil
}
