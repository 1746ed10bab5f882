// Package tui is a live terminal monitor for a running relaxation: one
// panel of per-iteration force and energy figures next to an asciigraph
// of the force history.
package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/latticeworks/lgfrelax/internal/relax"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	label  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
)

type iterMsg relax.Iteration

type doneMsg struct {
	result *relax.Result
	err    error
}

// monitor forwards driver iterations into the bubbletea program. It is
// the only piece that runs on the driver's goroutine.
type monitor struct {
	ch chan relax.Iteration
}

func (m *monitor) OnIteration(it relax.Iteration) { m.ch <- it }

type model struct {
	last    relax.Iteration
	history []float64
	done    bool
	result  *relax.Result
	err     error
	cancel  context.CancelFunc
	width   int
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			if m.done {
				return m, tea.Quit
			}
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case iterMsg:
		m.last = relax.Iteration(msg)
		m.history = append(m.history, math.Log10(math.Max(m.last.ForceMax, 1e-16)))
		return m, nil
	case doneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(cyan.Bold(true).Render("lgfrelax") + dim.Render("  elastic correction monitor") + "\n\n")

	b.WriteString(label.Render("iteration") + white.Render(fmt.Sprintf("%d", m.last.Index)) + "\n")
	b.WriteString(label.Render("force max") + white.Render(fmt.Sprintf("%.3e", m.last.ForceMax)) + "\n")
	b.WriteString(label.Render("force norm") + white.Render(fmt.Sprintf("%.3e", m.last.ForceNorm)) + "\n")
	b.WriteString(label.Render("drift") + white.Render(fmt.Sprintf("(%.3e, %.3e, %.3e)",
		m.last.Drift[0], m.last.Drift[1], m.last.Drift[2])) + "\n")
	b.WriteString(label.Render("energy est") + white.Render(fmt.Sprintf("%.6e", m.last.Energy)) + "\n\n")

	if len(m.history) > 1 {
		w := m.width - 10
		if w < 20 || w > 80 {
			w = 80
		}
		b.WriteString(asciigraph.Plot(m.history,
			asciigraph.Height(10),
			asciigraph.Width(w),
			asciigraph.Caption("log10 max force"),
		))
		b.WriteString("\n\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(red.Render("error: "+m.err.Error()) + "\n")
	case m.done && m.result != nil && m.result.Converged:
		b.WriteString(green.Render("converged") + "\n")
	case m.done:
		b.WriteString(yellow.Render("stopped without convergence") + "\n")
	default:
		b.WriteString(dim.Render("q to abort") + "\n")
	}
	return b.String()
}

// Run executes the supplied relaxation function under the monitor and
// blocks until it finishes or the user aborts.
func Run(parent context.Context, run func(ctx context.Context, obs relax.Observer) (*relax.Result, error)) (*relax.Result, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	mon := &monitor{ch: make(chan relax.Iteration)}
	p := tea.NewProgram(model{cancel: cancel, width: 80})

	var done doneMsg
	go func() {
		done.result, done.err = run(ctx, mon)
		close(mon.ch)
	}()
	go func() {
		for it := range mon.ch {
			p.Send(iterMsg(it))
		}
		p.Send(done)
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(model)
	return m.result, m.err
}
