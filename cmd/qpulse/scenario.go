package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/qpulse/internal/automation"
	"github.com/san-kum/qpulse/internal/config"
	"github.com/san-kum/qpulse/internal/storage"
	"github.com/san-kum/qpulse/internal/telemetry"
	"github.com/san-kum/qpulse/internal/viz"
)

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return fmt.Errorf("failed to load scenario: %w", err)
	}

	logCfg := telemetry.DefaultLoggingConfig()
	logCfg.Level = logLevel
	log := telemetry.NewLoggerTo(os.Stderr, logCfg)

	var st *storage.Store
	if !noSave {
		st = storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running scenario %s (%d steps)\n\n", scenario.Name, len(scenario.Steps))
	results, runErr := automation.RunScenario(ctx, scenario, st, log)

	fmt.Printf("%-24s  %-10s  %16s  %s\n", "name", "run", "value", "status")
	fmt.Println(strings.Repeat("-", 70))
	for _, r := range results {
		fmt.Printf("%-24s  %-10s  %16.10g  %s\n", r.Name, shortID(r.RunID), r.Outcome.Result.Value, viz.Status(r.Outcome.Result.Converged))
	}
	return runErr
}

func runSweep(cmd *cobra.Command, args []string) error {
	base := config.GetPreset(args[0])
	if base == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}

	logCfg := telemetry.DefaultLoggingConfig()
	logCfg.Level = logLevel
	log := telemetry.NewLoggerTo(os.Stderr, logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sweep := &automation.StepSweep{Base: base, MinSteps: minSteps, MaxSteps: maxSteps, Points: sweepPoints}
	results, runErr := automation.RunSweep(ctx, sweep, log)

	fmt.Printf("\n%-8s  %-10s  %16s  %12s  %12s  %s\n", "steps", "duration", "value", "fidelity", "robustness", "status")
	fmt.Println(strings.Repeat("-", 80))
	values := make([]float64, len(results))
	for i, r := range results {
		values[i] = r.Value
		fmt.Printf("%-8d  %-10.4g  %16.10g  %12.6g  %12.3e  %s\n", r.Steps, r.Duration, r.Value, r.Fidelity, r.Robustness, viz.Status(r.Converged))
	}
	if len(values) > 1 {
		fmt.Println()
		fmt.Println(viz.KeyValue("value trend", viz.SparklineChart(values, len(values))))
	}
	return runErr
}
