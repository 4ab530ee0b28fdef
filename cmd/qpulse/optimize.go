package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/qpulse/internal/config"
	"github.com/san-kum/qpulse/internal/experiment"
	"github.com/san-kum/qpulse/internal/optim"
	"github.com/san-kum/qpulse/internal/storage"
	"github.com/san-kum/qpulse/internal/telemetry"
	"github.com/san-kum/qpulse/internal/tui"
	"github.com/san-kum/qpulse/internal/viz"
)

// loadConfig resolves a preset name or --config file and applies the flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	case len(args) == 1:
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
	default:
		return nil, fmt.Errorf("need a preset or --config (presets: %v)", config.ListPresets())
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("restarts") {
		cfg.Restarts = restarts
	}
	if flags.Changed("report") {
		cfg.Optimizer.ReportInterval = report
	}
	if flags.Changed("method") {
		cfg.Optimizer.Method = method
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	log, closer, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()
	// the live view owns the terminal
	if live && (cfg.Logging.Output == "" || cfg.Logging.Output == "stderr" || cfg.Logging.Output == "stdout") {
		log = zerolog.Nop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	metrics := telemetry.NewMetrics(cfg.Metrics)
	if metrics.Enabled() && cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				log.Error().Err(err).Str("addr", cfg.Metrics.Addr).Msg("metrics server stopped")
			}
		}()
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("serving metrics")
	}

	opts := []experiment.Option{
		experiment.WithLogger(log),
		experiment.WithMetrics(metrics),
	}

	var out *experiment.Outcome
	var runErr error
	if live {
		var goal *float64
		if cfg.Goal != nil {
			goal = &cfg.Goal.Value
		}
		runErr = tui.Run(ctx, cfg.Name, goal, func(ctx context.Context, r optim.Reporter) error {
			var err error
			out, err = experiment.New(cfg, append(opts, experiment.WithReporter(r))...).Run(ctx)
			return err
		})
	} else {
		fmt.Printf("optimizing %s (%d steps, dt %g, %d restarts)...\n", cfg.Name, cfg.Steps, cfg.Dt, cfg.Restarts)
		out, runErr = experiment.New(cfg, opts...).Run(ctx)
	}

	if out == nil {
		return runErr
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "stopped early: %v\n", runErr)
	}

	meta := out.Metadata()
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		id, err := st.Save(meta, out.Result.Sequence, cfg)
		if err != nil {
			return err
		}
		saved, err := st.Load(id)
		if err != nil {
			return err
		}
		meta = *saved
	}

	fmt.Println(viz.RunSummary(meta))
	return runErr
}
