package warning

import "testing"

func TestTaxonomy_IsA(t *testing.T) {
	tx := NewTaxonomy()
	if err := tx.Define("ApiWarning", DeprecationWarning); err != nil {
		t.Fatalf("Define: %v", err)
	}

	tests := []struct {
		name, ancestor string
		want           bool
	}{
		{DeprecationWarning, Warning, true},
		{DeprecationWarning, DeprecationWarning, true},
		{"ApiWarning", DeprecationWarning, true},
		{"ApiWarning", Warning, true},
		{PendingDeprecationWarning, DeprecationWarning, false},
		{Warning, UserWarning, false},
		{"Missing", Warning, false},
	}
	for _, tc := range tests {
		if got := tx.IsA(tc.name, tc.ancestor); got != tc.want {
			t.Errorf("IsA(%q, %q) = %v, want %v", tc.name, tc.ancestor, got, tc.want)
		}
	}
}

func TestTaxonomy_Define(t *testing.T) {
	tx := NewTaxonomy()
	if err := tx.Define("X", "Nope"); err == nil {
		t.Errorf("expected error for unknown parent")
	}
	if err := tx.Define("X", UserWarning); err != nil {
		t.Fatalf("Define: %v", err)
	}
	if err := tx.Define("X", UserWarning); err != nil {
		t.Errorf("redefinition with same parent should be a no-op, got %v", err)
	}
	if err := tx.Define("X", RuntimeWarning); err == nil {
		t.Errorf("expected error when moving a category")
	}
}

func TestTaxonomy_Ensure(t *testing.T) {
	tx := NewTaxonomy()
	if tx.Known("CustomWarning") {
		t.Fatalf("CustomWarning should not be known yet")
	}
	tx.Ensure("CustomWarning")
	if !tx.IsA("CustomWarning", Warning) {
		t.Errorf("ensured category should descend from Warning")
	}
	if got := tx.Ensure(""); got != Warning {
		t.Errorf("Ensure(\"\") = %q, want Warning", got)
	}
}

func TestRecord_Header(t *testing.T) {
	r := Record{
		Message:  "functionality is deprecated",
		Category: DeprecationWarning,
		Filename: "suite.cvt",
		Line:     4,
		NodeID:   "suite.cvt::test_func",
	}
	want := "suite.cvt:4: DeprecationWarning: functionality is deprecated"
	if got := r.Header(); got != want {
		t.Errorf("Header() = %q, want %q", got, want)
	}
	r.Line = UnknownLine
	if got := r.Location(); got != "suite.cvt:?" {
		t.Errorf("Location() = %q, want suite.cvt:?", got)
	}
}

func TestRecord_Validate(t *testing.T) {
	if err := (Record{Category: UserWarning, NodeID: "n"}).Validate(); err != nil {
		t.Errorf("valid record rejected: %v", err)
	}
	if err := (Record{NodeID: "n"}).Validate(); err == nil {
		t.Errorf("record without category accepted")
	}
	if err := (Record{Category: UserWarning}).Validate(); err == nil {
		t.Errorf("record without node accepted")
	}
}

func TestParsePhase(t *testing.T) {
	for _, p := range Phases {
		got, err := ParsePhase(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePhase(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParsePhase("run"); err == nil {
		t.Errorf("expected error for unknown phase")
	}
}
