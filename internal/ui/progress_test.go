package ui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"caveat/internal/runner"
	"caveat/internal/warning"
)

func newModel(ids ...string) *runModel {
	return NewProgressModel("caveat run", ids, make(chan runner.Event)).(*runModel)
}

func TestRunModel_ApplyEvents(t *testing.T) {
	m := newModel("a.cvt::t1", "a.cvt::t2")

	m.apply(runner.Event{Node: "a.cvt::t1", Phase: warning.PhaseSetup, Status: runner.StatusWorking})
	m.apply(runner.Event{Node: "a.cvt::t1", Phase: warning.PhaseCall, Status: runner.StatusWorking})
	if len(m.running) != 1 || m.nodes[0].phase != warning.PhaseCall {
		t.Fatalf("running=%v phase=%v", m.running, m.nodes[0].phase)
	}
	if !strings.Contains(m.View(), "call") {
		t.Errorf("running phase not shown:\n%s", m.View())
	}

	m.apply(runner.Event{Node: "a.cvt::t1", Status: runner.StatusPassed, Warnings: 2})
	m.apply(runner.Event{Node: "a.cvt::t2", Status: runner.StatusFailed, Err: errors.New("DeprecationWarning: old")})
	m.apply(runner.Event{Node: "a.cvt::t2", Status: runner.StatusFailed})
	m.apply(runner.Event{Node: "unknown", Status: runner.StatusFailed})

	if m.warnings != 2 || m.failed != 1 || m.finished != 2 {
		t.Errorf("warnings=%d failed=%d finished=%d", m.warnings, m.failed, m.finished)
	}
	if len(m.running) != 0 {
		t.Errorf("finished nodes still running: %v", m.running)
	}
	view := m.View()
	for _, want := range []string{"caveat run 2/2", "1 failed", "2 warnings", "FAILED", "a.cvt::t2", "DeprecationWarning: old"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestRunModel_KeepsRecentFailures(t *testing.T) {
	var ids []string
	for i := range maxFailures + 3 {
		ids = append(ids, fmt.Sprintf("n%d", i))
	}
	m := newModel(ids...)
	for _, id := range ids {
		m.apply(runner.Event{Node: id, Status: runner.StatusFailed})
	}
	if len(m.failures) != maxFailures {
		t.Fatalf("kept %d failures", len(m.failures))
	}
	if m.failures[0].id != ids[3] {
		t.Errorf("oldest kept failure = %s", m.failures[0].id)
	}
}

func TestNodeProgress(t *testing.T) {
	if got := nodeProgress(nodeState{phase: warning.PhaseTeardown}); got != 0.9 {
		t.Errorf("teardown progress = %v", got)
	}
	if got := nodeProgress(nodeState{phase: warning.PhaseSetup, finished: true}); got != 1.0 {
		t.Errorf("finished progress = %v", got)
	}
	if got := newModel().percent(); got != 1 {
		t.Errorf("empty run percent = %v", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"a_long_node_identifier", 10, "a_long_..."},
		{"abcdef", 3, "abc"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
