// Package ui renders the live view of a test run.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"caveat/internal/runner"
	"caveat/internal/warning"
)

// maxFailures is how many recent failures stay on screen.
const maxFailures = 5

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	phaseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// nodeState is the view of one node.
type nodeState struct {
	id       string
	phase    warning.Phase // last phase started, 0 while queued
	finished bool
	failed   bool
	warnings int
}

type failure struct {
	id  string
	err string
}

type runModel struct {
	title    string
	events   <-chan runner.Event
	spinner  spinner.Model
	bar      progress.Model
	nodes    []nodeState
	index    map[string]int
	running  []int // indexes of nodes with a phase in flight, in start order
	failures []failure
	finished int
	failed   int
	warnings int
	width    int
	done     bool
}

type eventMsg runner.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model fed by runner events. It quits
// when events is closed.
func NewProgressModel(title string, nodes []string, events <-chan runner.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = phaseStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	m := &runModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		nodes:   make([]nodeState, len(nodes)),
		index:   make(map[string]int, len(nodes)),
		width:   80,
	}
	for i, id := range nodes {
		m.nodes[i] = nodeState{id: id}
		m.index[id] = i
	}
	return m
}

func (m *runModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.apply(runner.Event(msg)), m.next())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = max(msg.Width-4, 10)
		}
		return m, nil
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *runModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *runModel) apply(ev runner.Event) tea.Cmd {
	idx, ok := m.index[ev.Node]
	if !ok {
		return nil
	}
	n := &m.nodes[idx]
	if n.finished {
		return nil
	}
	switch ev.Status {
	case runner.StatusWorking:
		if n.phase == 0 {
			m.running = append(m.running, idx)
		}
		n.phase = ev.Phase
	case runner.StatusPassed, runner.StatusFailed:
		n.finished = true
		n.warnings = ev.Warnings
		m.finished++
		m.warnings += ev.Warnings
		m.removeRunning(idx)
		if ev.Status == runner.StatusFailed {
			n.failed = true
			m.failed++
			m.addFailure(n.id, ev.Err)
		}
	}
	return m.bar.SetPercent(m.percent())
}

func (m *runModel) removeRunning(idx int) {
	for i, r := range m.running {
		if r == idx {
			m.running = append(m.running[:i], m.running[i+1:]...)
			return
		}
	}
}

func (m *runModel) addFailure(id string, err error) {
	f := failure{id: id}
	if err != nil {
		f.err = err.Error()
	}
	m.failures = append(m.failures, f)
	if len(m.failures) > maxFailures {
		m.failures = m.failures[len(m.failures)-maxFailures:]
	}
}

// percent weighs a running node by how far through its phases it is.
func (m *runModel) percent() float64 {
	if len(m.nodes) == 0 {
		return 1
	}
	total := 0.0
	for _, n := range m.nodes {
		total += nodeProgress(n)
	}
	return total / float64(len(m.nodes))
}

func nodeProgress(n nodeState) float64 {
	switch {
	case n.finished:
		return 1
	case n.phase == warning.PhaseSetup:
		return 0.1
	case n.phase == warning.PhaseCall:
		return 0.4
	case n.phase == warning.PhaseTeardown:
		return 0.9
	}
	return 0
}

func (m *runModel) header() string {
	h := fmt.Sprintf("%s %d/%d", m.title, m.finished, len(m.nodes))
	var parts []string
	if m.failed > 0 {
		parts = append(parts, failStyle.Render(fmt.Sprintf("%d failed", m.failed)))
	}
	if m.warnings > 0 {
		parts = append(parts, warningStyle.Render(plural(m.warnings, "warning")))
	}
	if len(parts) > 0 {
		h += " (" + strings.Join(parts, ", ") + ")"
	}
	if m.done {
		return "done: " + h
	}
	return m.spinner.View() + " " + h
}

func (m *runModel) View() string {
	if len(m.nodes) == 0 {
		return ""
	}
	nameWidth := max(m.width-14, 20)

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.header()))
	b.WriteString("\n\n")
	for _, idx := range m.running {
		n := m.nodes[idx]
		fmt.Fprintf(&b, "  %s %s\n", phaseStyle.Render(fmt.Sprintf("%-9s", n.phase)), truncate(n.id, nameWidth))
	}
	for _, f := range m.failures {
		line := "  " + failStyle.Render("FAILED") + "    " + truncate(f.id, nameWidth)
		if f.err != "" {
			line += dimStyle.Render(" - " + truncate(f.err, nameWidth/2))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1.0))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	return b.String()
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
