package viz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/qpulse/internal/storage"
)

// Status renders a converged flag.
func Status(converged bool) string {
	if converged {
		return StatusOK.Render("converged")
	}
	return StatusWarn.Render("not converged")
}

// RunSummary renders the metadata of one stored run.
func RunSummary(meta storage.RunMetadata) string {
	lines := []string{
		Title.Render(meta.Name) + "  " + Subtle.Render(meta.ID),
		"",
		KeyValue("status", Status(meta.Converged)+" "+Subtle.Render(meta.Status)),
		KeyValue("value", fmt.Sprintf("%.12g", meta.Value)),
		KeyValue("shape", fmt.Sprintf("%d steps × %d channels, dt %g", meta.Steps, meta.Channels, meta.Dt)),
		KeyValue("solver", fmt.Sprintf("%s / %s", meta.Method, meta.Integrator)),
		KeyValue("work", fmt.Sprintf("%d iterations, %d evaluations, %d attempts", meta.Iterations, meta.Evaluations, meta.Attempts)),
		KeyValue("runtime", fmt.Sprintf("%.2fs", meta.Runtime)),
		KeyValue("seed", fmt.Sprintf("%d", meta.Seed)),
		KeyValue("created", meta.Timestamp.Format("2006-01-02 15:04:05")),
	}

	if len(meta.Metrics) > 0 {
		lines = append(lines, "", HeaderStyle.Render("metrics"))
		lines = append(lines, MetricsLines(meta.Metrics)...)
	}

	return Panel.Render(strings.Join(lines, "\n"))
}

// MetricsLines renders named values sorted by name.
func MetricsLines(values map[string]float64) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = KeyValue(name, fmt.Sprintf("%.6g", values[name]))
	}
	return lines
}

// RunTable renders one line per run.
func RunTable(runs []storage.RunMetadata) string {
	if len(runs) == 0 {
		return Subtle.Render("no runs")
	}

	header := fmt.Sprintf("%-10s %-22s %-20s %16s %-14s", "id", "name", "created", "value", "status")
	lines := []string{HeaderStyle.Render(header)}
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		row := fmt.Sprintf("%-10s %-22s %-20s %16.10g ", id, r.Name, r.Timestamp.Format("2006-01-02 15:04:05"), r.Value)
		lines = append(lines, row+Status(r.Converged))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
