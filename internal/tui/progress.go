// Package tui shows live optimizer progress in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/qpulse/internal/optim"
	"github.com/san-kum/qpulse/internal/viz"
)

const historyLen = 120

// ProgressMsg carries one optimizer snapshot.
type ProgressMsg optim.Progress

// DoneMsg ends the view.
type DoneMsg struct {
	Value     float64
	Converged bool
	Err       error
}

type model struct {
	name    string
	goal    *float64
	cancel  context.CancelFunc
	last    optim.Progress
	reports int
	history []float64
	done    *DoneMsg
	aborted bool
	frame   int
	width   int
}

func newModel(name string, goal *float64, cancel context.CancelFunc) model {
	return model{
		name:    name,
		goal:    goal,
		cancel:  cancel,
		history: make([]float64, 0, historyLen),
		width:   80,
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.aborted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case ProgressMsg:
		m.last = optim.Progress(msg)
		m.reports++
		m.frame++
		m.history = append(m.history, msg.Best)
		if len(m.history) > historyLen {
			m.history = m.history[1:]
		}
	case DoneMsg:
		m.done = &msg
		return m, tea.Quit
	}
	return m, nil
}

var spinner = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func (m model) View() string {
	var s strings.Builder

	status := viz.StatusOK.Render(spinner[m.frame%len(spinner)] + " optimizing")
	switch {
	case m.done != nil && m.done.Err != nil:
		status = viz.StatusFail.Render("✗ " + m.done.Err.Error())
	case m.done != nil:
		status = viz.Status(m.done.Converged)
	case m.aborted:
		status = viz.StatusWarn.Render("canceling")
	}
	s.WriteString(viz.Title.Render(m.name) + "  " + status + "\n\n")

	s.WriteString(viz.KeyValue("evaluations", fmt.Sprintf("%d", m.last.Evaluations)) + "\n")
	s.WriteString(viz.KeyValue("iterations", fmt.Sprintf("%d", m.last.Iterations)) + "\n")
	s.WriteString(viz.KeyValue("value", fmt.Sprintf("%.10g", m.last.Value)) + "\n")
	s.WriteString(viz.KeyValue("best", fmt.Sprintf("%.10g", m.last.Best)) + "\n")
	if m.goal != nil {
		s.WriteString(viz.KeyValue("goal", fmt.Sprintf("%.10g (gap %.3g)", *m.goal, m.last.Best-*m.goal)) + "\n")
	}
	s.WriteString(viz.KeyValue("elapsed", m.last.Elapsed.Round(time.Millisecond).String()) + "\n\n")

	if len(m.history) > 1 {
		width := min(max(m.width-20, 20), 100)
		chart := asciigraph.Plot(m.history, asciigraph.Height(8), asciigraph.Width(width), asciigraph.Caption("best value"))
		s.WriteString(chart + "\n\n")
	}

	s.WriteString(viz.Subtle.Render("q: cancel"))
	return s.String()
}

// Reporter forwards optimizer progress to a running view.
type Reporter struct {
	program *tea.Program
}

func (r *Reporter) Report(p optim.Progress) {
	r.program.Send(ProgressMsg(p))
}

// Run shows the live view while work runs. work receives a context that is
// canceled when the user quits and a reporter to pass to the optimizer. Run
// returns once work has returned and the view has closed.
func Run(ctx context.Context, name string, goal *float64, work func(ctx context.Context, r optim.Reporter) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(newModel(name, goal, cancel), tea.WithContext(ctx))
	reporter := &Reporter{program: program}

	errCh := make(chan error, 1)
	go func() {
		err := work(ctx, reporter)
		program.Send(DoneMsg{Err: err})
		errCh <- err
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-errCh
		return err
	}
	return <-errCh
}
