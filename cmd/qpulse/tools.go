package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/config"
	"github.com/san-kum/qpulse/internal/control"
	"github.com/san-kum/qpulse/internal/experiment"
	"github.com/san-kum/qpulse/internal/linalg"
	"github.com/san-kum/qpulse/internal/optim"
	"github.com/san-kum/qpulse/internal/sim"
	"github.com/san-kum/qpulse/internal/viz"
)

func listPresets(cmd *cobra.Command, args []string) error {
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Printf("%s\n  %s\n", viz.Title.Render(name), viz.Subtle.Render(cfg.Description))
		fmt.Printf("  %d steps, dt %g, %d controls, robust: %v\n\n", cfg.Steps, cfg.Dt, len(cfg.Controls), cfg.Robust())
	}
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	preset := args[0]
	names := args[1:]

	base := config.GetPreset(preset)
	if base == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}
	seq := optim.RandomGuess(base.Steps, len(base.Controls), base.Guess.Lower, base.Guess.Upper, seed)

	reference, err := experiment.Build(base, nil)
	if err != nil {
		return err
	}
	want, err := reference.Simulator.Evolve(context.Background(), reference.Evolved(), seq, base.Dt, false)
	if err != nil {
		return err
	}

	fmt.Printf("comparing step exponentials for %s (%d steps, dt=%g, seed %d)\n\n", preset, base.Steps, base.Dt, seed)
	fmt.Printf("%-10s  %-14s  %-12s  %-16s  %-10s\n", "integrator", "dist_to_pade", "unitarity", "objective", "time_ms")
	fmt.Println(strings.Repeat("-", 70))

	dim := reference.System.Dim()
	for _, name := range names {
		cfg := config.GetPreset(preset)
		cfg.Integrator = name
		problem, err := experiment.Build(cfg, nil)
		if err != nil {
			fmt.Printf("%-10s  error: %v\n", name, err)
			continue
		}

		start := time.Now()
		value, _, err := problem.Objective(seq)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("%-10s  error: %v\n", name, err)
			continue
		}

		res, err := problem.Simulator.Evolve(context.Background(), problem.Evolved(), seq, cfg.Dt, false)
		if err != nil {
			fmt.Printf("%-10s  error: %v\n", name, err)
			continue
		}

		dist := linalg.FrobeniusDist(res.Propagator, want.Propagator)
		unitarity := sim.Unitarity(linalg.Block(res.Propagator, 0, 0, dim, dim))
		fmt.Printf("%-10s  %14.3e  %12.3e  %16.10f  %10.2f\n", name, dist, unitarity, value, float64(elapsed.Microseconds())/1000)
	}
	return nil
}

// randomGenerator returns -i·H for a random Hermitian H with entries of
// order one.
func randomGenerator(rng *rand.Rand, d int) *mat.CDense {
	g := mat.NewCDense(d, d, nil)
	for i := 0; i < d; i++ {
		g.Set(i, i, complex(0, -rng.NormFloat64()))
		for j := i + 1; j < d; j++ {
			h := complex(rng.NormFloat64(), rng.NormFloat64())
			g.Set(i, j, -1i*h)
			g.Set(j, i, -1i*complex(real(h), -imag(h)))
		}
	}
	return g
}

func benchEvolve(cmd *cobra.Command, args []string) error {
	if benchTrials < 1 {
		return fmt.Errorf("trials must be positive, got %d", benchTrials)
	}
	rng := rand.New(rand.NewSource(seed))
	dims := []int{2, 4, 8, 16}
	workerCounts := []int{1}
	if n := runtime.NumCPU(); n > 1 {
		workerCounts = append(workerCounts, n)
	}

	fmt.Printf("benchmarking evolution: %d steps, %d channels, %d trials\n\n", benchSteps, benchChannels, benchTrials)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DIM\tSYSTEM\tWORKERS\tDERIV\tTIME/EVAL\tEVALS/SEC")

	for _, d := range dims {
		controls := make([]*mat.CDense, benchChannels)
		for k := range controls {
			controls[k] = randomGenerator(rng, d)
		}
		sys, err := control.NewControlSystem(randomGenerator(rng, d), controls...)
		if err != nil {
			return err
		}
		robust, err := sys.DecouplingSystem(randomGenerator(rng, d))
		if err != nil {
			return err
		}
		seq := optim.RandomGuess(benchSteps, benchChannels, -1, 1, seed)

		systems := []struct {
			name string
			sys  control.System
		}{{"plain", sys}, {"decoupling", robust}}

		for _, s := range systems {
			for _, n := range workerCounts {
				simulator := sim.New(nil, sim.WithWorkers(n))
				for _, deriv := range []bool{false, true} {
					start := time.Now()
					for i := 0; i < benchTrials; i++ {
						if _, err := simulator.Evolve(context.Background(), s.sys, seq, 0.01, deriv); err != nil {
							return err
						}
					}
					per := time.Since(start) / time.Duration(benchTrials)
					fmt.Fprintf(w, "%d\t%s\t%d\t%v\t%v\t%.1f\n", d, s.name, n, deriv, per, 1/per.Seconds())
				}
			}
		}
	}

	return w.Flush()
}
