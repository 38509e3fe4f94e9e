package capture

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"caveat/internal/escalate"
	"caveat/internal/filter"
	"caveat/internal/intercept"
	"caveat/internal/source"
	"caveat/internal/warning"
)

const script = "test_it.cvt"

func newContext(t *testing.T) (*intercept.Context, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return intercept.New(intercept.Options{Output: &out}), &out
}

func rules(t *testing.T, ic *intercept.Context, cmdline ...string) *filter.List {
	t.Helper()
	l, err := filter.Build(ic.Taxonomy(), nil, cmdline)
	if err != nil {
		t.Fatalf("build rules: %v", err)
	}
	return l
}

func at(line uint32) intercept.Location {
	return intercept.Location{File: script, Line: line, Module: "test_it"}
}

func TestScope_CapturesWithContext(t *testing.T) {
	ic, out := newContext(t)
	sources := source.NewCache()
	sources.Add(script, []byte("test test_func\ncall\n    warn UserWarning \"user warning\"\n"))

	s, err := Enter(ic, Options{
		NodeID:  script + "::test_func",
		Phase:   warning.PhaseCall,
		Rules:   rules(t, ic),
		Sources: sources,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := ic.WarnAt(at(3), warning.UserWarning, "user warning"); err != nil {
		t.Fatalf("warn: %v", err)
	}
	res, err := s.Exit()
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Captured) != 1 {
		t.Fatalf("expected 1 captured, got %d", len(res.Captured))
	}
	got := res.Captured[0]
	want := warning.Record{
		Message:    "user warning",
		Category:   warning.UserWarning,
		Filename:   script,
		Line:       3,
		SourceLine: `warn UserWarning "user warning"`,
		Module:     "test_it",
		Phase:      warning.PhaseCall,
		NodeID:     script + "::test_func",
	}
	if got.Record != want {
		t.Errorf("record mismatch:\n got %+v\nwant %+v", got.Record, want)
	}
	if got.Action != filter.ActionDefault {
		t.Errorf("action = %v", got.Action)
	}
	if res.Failure != nil {
		t.Errorf("unexpected failure %v", res.Failure)
	}
	if out.Len() != 0 {
		t.Errorf("captured warnings must not reach the fallback output: %q", out.String())
	}
}

func TestScope_MissingSourceLeavesLineEmpty(t *testing.T) {
	ic, _ := newContext(t)
	s, err := Enter(ic, Options{NodeID: "n", Phase: warning.PhaseSetup, Sources: source.NewCache()})
	if err != nil {
		t.Fatal(err)
	}
	_ = ic.WarnAt(intercept.Location{File: "/does/not/exist.cvt", Line: 1}, warning.UserWarning, "x")
	res, _ := s.Exit()
	if len(res.Captured) != 1 || res.Captured[0].Record.SourceLine != "" {
		t.Errorf("unreadable source must give empty line: %+v", res.Captured)
	}
}

func TestScope_IgnoreDrops(t *testing.T) {
	ic, _ := newContext(t)
	s, err := Enter(ic, Options{NodeID: "n", Phase: warning.PhaseCall, Rules: rules(t, ic, "ignore::DeprecationWarning")})
	if err != nil {
		t.Fatal(err)
	}
	_ = ic.WarnAt(at(1), warning.DeprecationWarning, "gone")
	_ = ic.WarnAt(at(2), warning.UserWarning, "kept")
	res, _ := s.Exit()
	if len(res.Captured) != 1 || res.Captured[0].Record.Message != "kept" {
		t.Errorf("captured = %+v", res.Captured)
	}
}

func TestScope_EscalatesFirstOnly(t *testing.T) {
	ic, _ := newContext(t)
	before := ic.Snapshot()

	s, err := Enter(ic, Options{NodeID: "n", Phase: warning.PhaseCall, Rules: rules(t, ic, "error::UserWarning")})
	if err != nil {
		t.Fatal(err)
	}
	if err := ic.WarnAt(at(1), warning.RuntimeWarning, "before"); err != nil {
		t.Fatalf("RuntimeWarning is not escalated: %v", err)
	}
	first := ic.WarnAt(at(2), warning.UserWarning, "boom")
	var f *escalate.Failure
	if !errors.As(first, &f) {
		t.Fatalf("expected *escalate.Failure, got %v", first)
	}
	if f.Phase != warning.PhaseCall || f.NodeID != "n" || f.Line != 2 {
		t.Errorf("failure = %+v", f)
	}
	second := ic.WarnAt(at(3), warning.UserWarning, "again")
	if second != first {
		t.Errorf("later escalations must return the same failure")
	}
	if err := ic.WarnAt(at(4), warning.RuntimeWarning, "after"); err != first {
		t.Errorf("after tripping every warning returns the failure, got %v", err)
	}

	res, err := s.Exit()
	if err != nil {
		t.Fatal(err)
	}
	if res.Failure != f {
		t.Errorf("result failure = %v", res.Failure)
	}
	if len(res.Captured) != 1 || res.Captured[0].Record.Message != "before" {
		t.Errorf("escalated warnings must not be captured: %+v", res.Captured)
	}
	if after := ic.Snapshot(); !after.Equal(before) {
		t.Errorf("state not restored after failing phase")
	}
}

func TestScope_PriorResidueDoesNotSuppress(t *testing.T) {
	ic, out := newContext(t)
	_ = ic.WarnAt(at(7), warning.UserWarning, "seen")
	if !strings.Contains(out.String(), "seen") {
		t.Fatalf("fallback display expected, got %q", out.String())
	}

	s, err := Enter(ic, Options{NodeID: "n", Phase: warning.PhaseCall})
	if err != nil {
		t.Fatal(err)
	}
	_ = ic.WarnAt(at(7), warning.UserWarning, "seen")
	_ = ic.WarnAt(at(7), warning.UserWarning, "seen")
	res, _ := s.Exit()
	if len(res.Captured) != 2 {
		t.Errorf("every occurrence inside the scope is captured, got %d", len(res.Captured))
	}
}

func TestScope_ExitTwice(t *testing.T) {
	ic, _ := newContext(t)
	s, err := Enter(ic, Options{NodeID: "n", Phase: warning.PhaseTeardown})
	if err != nil {
		t.Fatal(err)
	}
	_ = ic.WarnAt(at(1), warning.UserWarning, "x")
	r1, err1 := s.Exit()
	r2, err2 := s.Exit()
	if err1 != nil || err2 != nil {
		t.Fatalf("exit errors: %v, %v", err1, err2)
	}
	if len(r1.Captured) != 1 || len(r2.Captured) != 1 {
		t.Errorf("second exit must return the first result")
	}
	_ = ic.WarnAt(at(1), warning.UserWarning, "late")
	if r3, _ := s.Exit(); len(r3.Captured) != 1 {
		t.Errorf("nothing is captured after exit")
	}
}

func TestScope_NestedNotUnwound(t *testing.T) {
	ic, _ := newContext(t)
	outer, err := Enter(ic, Options{NodeID: "n", Phase: warning.PhaseCall})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Enter(ic, Options{NodeID: "n", Phase: warning.PhaseCall}); err != nil {
		t.Fatal(err)
	}
	if _, err := outer.Exit(); !errors.Is(err, intercept.ErrCorrupted) {
		t.Errorf("expected ErrCorrupted, got %v", err)
	}
}

func TestEnter_Validates(t *testing.T) {
	ic, _ := newContext(t)
	if _, err := Enter(nil, Options{NodeID: "n", Phase: warning.PhaseCall}); err == nil {
		t.Errorf("nil context accepted")
	}
	if _, err := Enter(ic, Options{Phase: warning.PhaseCall}); err == nil {
		t.Errorf("empty node id accepted")
	}
	if _, err := Enter(ic, Options{NodeID: "n"}); err == nil {
		t.Errorf("zero phase accepted")
	}
	if d := ic.Snapshot().Depth; d != 0 {
		t.Errorf("failed Enter must not install anything, depth %d", d)
	}
}
