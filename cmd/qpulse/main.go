package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/qpulse/internal/viz"
)

var (
	dataDir string
	theme   string

	// optimize
	configFile  string
	seed        int64
	restarts    int
	report      int
	method      string
	integrator  string
	workers     int
	live        bool
	metricsAddr string
	logLevel    string
	logFormat   string
	noSave      bool

	// plots and analysis
	plotWidth   int
	plotHeight  int
	exportOut   string
	figureOut   string
	channel     int
	maxStrength float64
	points      int
	ensemble    int

	// sweep
	minSteps    int
	maxSteps    int
	sweepPoints int

	// bench
	benchSteps    int
	benchChannels int
	benchTrials   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "qpulse",
		Short: "robust quantum control pulse optimizer",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			viz.SetTheme(theme)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".qpulse", "data directory")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "cyberpunk", "color theme")

	optimizeCmd := &cobra.Command{
		Use:   "optimize [preset]",
		Short: "optimize a pulse for a preset or config file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runOptimize,
	}
	optimizeCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	optimizeCmd.Flags().Int64Var(&seed, "seed", 1, "random seed for initial guesses")
	optimizeCmd.Flags().IntVar(&restarts, "restarts", 1, "maximum number of random restarts")
	optimizeCmd.Flags().IntVar(&report, "report", 100, "evaluations between progress reports")
	optimizeCmd.Flags().StringVar(&method, "method", "bfgs", "optimizer method (bfgs, lbfgs)")
	optimizeCmd.Flags().StringVar(&integrator, "integrator", "pade", "step exponential (pade, rk4, rk45)")
	optimizeCmd.Flags().IntVar(&workers, "workers", 0, "parallel step workers (0 = sequential)")
	optimizeCmd.Flags().BoolVar(&live, "live", false, "show live progress")
	optimizeCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	optimizeCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	optimizeCmd.Flags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	optimizeCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a run and recheck its pulse",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the pulse of a run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as an image (png, svg, pdf) or json",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportOut, "out", "pulse.png", "output file")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "power spectrum of a pulse channel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  spectrumRun,
	}
	spectrumCmd.Flags().IntVar(&channel, "channel", 0, "control channel")
	spectrumCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	spectrumCmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")
	spectrumCmd.Flags().StringVar(&figureOut, "out", "", "also save the spectrum to this image file")

	robustnessCmd := &cobra.Command{
		Use:   "robustness [run_id]",
		Short: "fidelity of a pulse against perturbation strength",
		Args:  cobra.MaximumNArgs(1),
		RunE:  robustnessRun,
	}
	robustnessCmd.Flags().Float64Var(&maxStrength, "max", 0.2, "largest perturbation strength")
	robustnessCmd.Flags().IntVar(&points, "points", 41, "number of strengths")
	robustnessCmd.Flags().IntVar(&ensemble, "workers", 4, "concurrent evolutions")
	robustnessCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	robustnessCmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")
	robustnessCmd.Flags().StringVar(&figureOut, "out", "", "also save the profile to this image file")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [preset] [integrator1] [integrator2] ...",
		Short: "compare step exponentials on a random pulse",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	compareCmd.Flags().Int64Var(&seed, "seed", 1, "random seed for the pulse")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark propagation and derivatives",
		Args:  cobra.NoArgs,
		RunE:  benchEvolve,
	}
	benchCmd.Flags().IntVar(&benchSteps, "steps", 100, "time steps")
	benchCmd.Flags().IntVar(&benchChannels, "channels", 3, "control channels")
	benchCmd.Flags().IntVar(&benchTrials, "trials", 10, "evaluations per case")
	benchCmd.Flags().Int64Var(&seed, "seed", 1, "random seed")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a scripted sequence of optimizations",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the runs")
	scenarioCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "optimize a preset over a range of pulse lengths",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().IntVar(&minSteps, "min-steps", 50, "shortest pulse in steps")
	sweepCmd.Flags().IntVar(&maxSteps, "max-steps", 200, "longest pulse in steps")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 6, "number of pulse lengths")
	sweepCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")

	rootCmd.AddCommand(optimizeCmd, listCmd, showCmd, plotCmd, exportCmd, spectrumCmd, robustnessCmd, presetsCmd, compareCmd, benchCmd, scenarioCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
