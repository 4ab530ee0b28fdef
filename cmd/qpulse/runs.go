package main

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/analysis"
	"github.com/san-kum/qpulse/internal/experiment"
	"github.com/san-kum/qpulse/internal/export"
	"github.com/san-kum/qpulse/internal/sim"
	"github.com/san-kum/qpulse/internal/storage"
	"github.com/san-kum/qpulse/internal/viz"
)

type storedRun struct {
	meta  *storage.RunMetadata
	pulse *mat.Dense
	times []float64
}

// loadRun resolves a run reference, "latest" when none is given.
func loadRun(args []string) (*storage.Store, *storedRun, error) {
	ref := "latest"
	if len(args) > 0 {
		ref = args[0]
	}

	st := storage.New(dataDir)
	id, err := st.Resolve(ref)
	if err != nil {
		return nil, nil, err
	}
	meta, err := st.Load(id)
	if err != nil {
		return nil, nil, err
	}
	pulse, times, err := st.LoadPulse(id)
	if err != nil {
		return nil, nil, err
	}
	return st, &storedRun{meta: meta, pulse: pulse, times: times}, nil
}

// loadProblem rebuilds the problem a run was optimized for.
func loadProblem(st *storage.Store, run *storedRun) (*experiment.Problem, error) {
	cfg, err := st.LoadConfig(run.meta.ID)
	if err != nil {
		return nil, fmt.Errorf("run %s has no usable config: %w", shortID(run.meta.ID), err)
	}
	return experiment.Build(cfg, nil)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	fmt.Println(viz.RunTable(runs))
	return nil
}

func showRun(cmd *cobra.Command, args []string) error {
	st, run, err := loadRun(args)
	if err != nil {
		return err
	}
	fmt.Println(viz.RunSummary(*run.meta))

	problem, err := loadProblem(st, run)
	if err != nil {
		fmt.Println(viz.StatusWarn.Render("recheck skipped: " + err.Error()))
		return nil
	}

	diag, err := problem.Diagnose(context.Background(), run.pulse)
	if err != nil {
		return err
	}

	lines := []string{viz.HeaderStyle.Render("recheck")}
	lines = append(lines, viz.MetricsLines(diag.Metrics())...)
	drift := math.Abs(diag.Value - run.meta.Value)
	status := viz.StatusOK.Render("matches")
	if drift > 1e-9*math.Max(1, math.Abs(run.meta.Value)) {
		status = viz.StatusWarn.Render("differs")
	}
	lines = append(lines, viz.KeyValue("value", fmt.Sprintf("%.12g  %s (Δ %.2g)", diag.Value, status, drift)))
	fmt.Println(viz.Panel.Render(strings.Join(lines, "\n")))
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	_, run, err := loadRun(args)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", run.meta.ID)
	fmt.Printf("name: %s\n\n", run.meta.Name)
	fmt.Print(viz.PulsePlot(run.pulse, run.meta.Dt, viz.PlotOptions{Width: plotWidth, Height: plotHeight}))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	_, run, err := loadRun(args)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(exportOut), ".json") {
		if err := storage.ExportJSONFile(exportOut, *run.meta, run.pulse, run.times); err != nil {
			return err
		}
	} else {
		p, err := export.PulsePlot(run.pulse, run.meta.Dt, fmt.Sprintf("%s (%s)", run.meta.Name, shortID(run.meta.ID)))
		if err != nil {
			return err
		}
		if err := export.Save(p, exportOut); err != nil {
			return err
		}
	}

	fmt.Printf("exported %s to %s\n", shortID(run.meta.ID), exportOut)
	return nil
}

func spectrumRun(cmd *cobra.Command, args []string) error {
	_, run, err := loadRun(args)
	if err != nil {
		return err
	}

	spec, err := analysis.Spectrum(run.pulse, channel, run.meta.Dt)
	if err != nil {
		return err
	}

	caption := fmt.Sprintf("power spectrum (u%d)", channel)
	fmt.Println(viz.SpectrumPlot(spec, caption, viz.PlotOptions{Width: plotWidth, Height: plotHeight}))
	fmt.Println()

	peak := analysis.Dominant(spec)
	if len(spec) > 1 {
		fmt.Println(viz.KeyValue("resolution", fmt.Sprintf("%.4g", spec[1].Frequency)))
	}
	fmt.Println(viz.KeyValue("dc power", fmt.Sprintf("%.6g", spec[0].Power)))
	fmt.Println(viz.KeyValue("peak", fmt.Sprintf("%.6g at f = %.4g", peak.Power, peak.Frequency)))

	if figureOut != "" {
		p, err := export.SpectrumPlot(spec, caption)
		if err != nil {
			return err
		}
		return export.Save(p, figureOut)
	}
	return nil
}

func robustnessRun(cmd *cobra.Command, args []string) error {
	st, run, err := loadRun(args)
	if err != nil {
		return err
	}
	problem, err := loadProblem(st, run)
	if err != nil {
		return err
	}
	if problem.Decoupling == nil {
		return fmt.Errorf("run %s has no perturbation to profile", shortID(run.meta.ID))
	}

	ens := sim.NewEnsemble(problem.Simulator, ensemble)
	profile, err := analysis.RobustnessProfile(
		context.Background(), ens, problem.System, problem.Decoupling.Perturbation(),
		problem.Target, problem.FidelityOptions(), run.pulse, problem.Config.Dt,
		analysis.Strengths(maxStrength, points),
	)
	if err != nil {
		return err
	}

	fmt.Println(viz.ProfilePlot(profile, viz.PlotOptions{Width: plotWidth, Height: plotHeight}))
	fmt.Println()
	fmt.Printf("%-12s  %-16s\n", "strength", "fidelity")
	fmt.Println(strings.Repeat("-", 30))
	for _, p := range profile {
		fmt.Printf("%12.4f  %16.10f\n", p.Strength, p.Fidelity)
	}

	if figureOut != "" {
		p, err := export.ProfilePlot(profile, fmt.Sprintf("%s robustness", run.meta.Name))
		if err != nil {
			return err
		}
		return export.Save(p, figureOut)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
