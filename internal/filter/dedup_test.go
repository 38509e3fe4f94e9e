package filter

import (
	"testing"

	"pgregory.net/rapid"

	"caveat/internal/warning"
)

func TestDeduper_Admit(t *testing.T) {
	d := NewDeduper(DedupLocation)
	rec := testRecord()

	if !d.Admit(rec, ActionDefault) {
		t.Fatalf("first occurrence must be admitted")
	}
	if d.Admit(rec, ActionDefault) {
		t.Errorf("second identical occurrence must be suppressed")
	}

	moved := *rec
	moved.Line = 4
	if !d.Admit(&moved, ActionDefault) {
		t.Errorf("a different line is a different location")
	}

	otherPhase := *rec
	otherPhase.Phase = warning.PhaseTeardown
	if d.Admit(&otherPhase, ActionDefault) {
		t.Errorf("location mode must ignore the phase")
	}

	if !d.Admit(rec, ActionAlways) || !d.Admit(rec, ActionAlways) {
		t.Errorf("always must admit every occurrence")
	}
	if d.Admit(rec, ActionIgnore) || d.Admit(rec, ActionError) {
		t.Errorf("ignore and error never reach the summary")
	}
}

func TestDeduper_PhaseMode(t *testing.T) {
	d := NewDeduper(DedupPhase)
	rec := testRecord()
	if !d.Admit(rec, ActionDefault) {
		t.Fatal("first occurrence must be admitted")
	}
	teardown := *rec
	teardown.Phase = warning.PhaseTeardown
	if !d.Admit(&teardown, ActionDefault) {
		t.Errorf("phase mode keys on the phase")
	}
}

func TestDeduper_ModuleAndOnce(t *testing.T) {
	d := NewDeduper(DedupLocation)
	rec := testRecord()
	moved := *rec
	moved.Line = 40

	if !d.Admit(rec, ActionModule) || d.Admit(&moved, ActionModule) {
		t.Errorf("module keys on category, message and module only")
	}
	otherModule := moved
	otherModule.Module = "other"
	if !d.Admit(&otherModule, ActionModule) {
		t.Errorf("module action is per module")
	}
	if !d.Admit(rec, ActionOnce) || d.Admit(&otherModule, ActionOnce) {
		t.Errorf("once keys on category and message only")
	}

	d.Reset()
	if d.Len() != 0 {
		t.Errorf("Reset should clear the registry")
	}
}

func TestProperty_DefaultAdmitsOncePerLocation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := NewDeduper(DedupLocation)
		lines := rapid.SliceOfN(rapid.Uint32Range(1, 5), 1, 30).Draw(t, "lines")
		admitted := make(map[uint32]int)
		for _, line := range lines {
			rec := testRecord()
			rec.Line = line
			if d.Admit(rec, ActionDefault) {
				admitted[line]++
			}
		}
		for _, line := range lines {
			if admitted[line] != 1 {
				t.Fatalf("line %d admitted %d times", line, admitted[line])
			}
		}
	})
}
