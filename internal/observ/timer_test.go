package observ

import (
	"errors"
	"strings"
	"testing"
)

func TestTimer_Report(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("load")
	tm.End(idx, "3 files")
	if err := tm.Measure("run", func() error { return errors.New("x") }); err == nil {
		t.Fatal("Measure must return fn's error")
	}
	tm.End(42, "ignored")

	rep := tm.Report()
	if len(rep.Stages) != 2 {
		t.Fatalf("stages = %+v", rep.Stages)
	}
	if rep.Stages[0].Name != "load" || rep.Stages[0].Note != "3 files" {
		t.Errorf("stage 0 = %+v", rep.Stages[0])
	}
	if rep.Stages[1].Note != "error" {
		t.Errorf("failed stage note = %q", rep.Stages[1].Note)
	}

	sum := tm.Summary()
	for _, want := range []string{"timings:", "load", "// 3 files", "total"} {
		if !strings.Contains(sum, want) {
			t.Errorf("summary missing %q:\n%s", want, sum)
		}
	}
}

func TestTimer_Empty(t *testing.T) {
	if rep := NewTimer().Report(); rep.TotalMS != 0 || rep.Stages != nil {
		t.Errorf("empty report = %+v", rep)
	}
}
