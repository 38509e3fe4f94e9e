package testkit

import (
	"strings"
	"testing"

	"caveat/internal/session"
	"caveat/internal/warning"
)

func rec(node string, phase warning.Phase, line uint32) warning.Record {
	return warning.Record{
		Message:  "m",
		Category: warning.UserWarning,
		Filename: "test_it.cvt",
		Line:     line,
		Phase:    phase,
		NodeID:   node,
	}
}

func TestCheckAggregateInvariants_Valid(t *testing.T) {
	agg := session.New()
	agg.Record("a", rec("a", warning.PhaseSetup, 1))
	agg.Record("a", rec("a", warning.PhaseCall, 2))
	agg.Record("b", rec("b", warning.PhaseTeardown, 3))
	if err := CheckAggregateInvariants(agg.All()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckAggregateInvariants_Violations(t *testing.T) {
	stamp := func(r warning.Record, seq uint64) warning.Record {
		r.Seq = seq
		return r
	}
	tests := []struct {
		name   string
		groups []session.Group
		want   string
	}{
		{
			name:   "zero seq",
			groups: []session.Group{{NodeID: "a", Records: []warning.Record{rec("a", warning.PhaseCall, 1)}}},
			want:   "zero sequence",
		},
		{
			name: "wrong node",
			groups: []session.Group{{NodeID: "a", Records: []warning.Record{
				stamp(rec("b", warning.PhaseCall, 1), 1),
			}}},
			want: "wrong node",
		},
		{
			name: "phase goes back",
			groups: []session.Group{{NodeID: "a", Records: []warning.Record{
				stamp(rec("a", warning.PhaseTeardown, 1), 1),
				stamp(rec("a", warning.PhaseSetup, 2), 2),
			}}},
			want: "recorded after",
		},
		{
			name: "duplicate seq",
			groups: []session.Group{
				{NodeID: "a", Records: []warning.Record{stamp(rec("a", warning.PhaseCall, 1), 1)}},
				{NodeID: "b", Records: []warning.Record{stamp(rec("b", warning.PhaseCall, 1), 1)}},
			},
			want: "already used",
		},
		{
			name: "duplicate group",
			groups: []session.Group{
				{NodeID: "a"},
				{NodeID: "a"},
			},
			want: "more than one group",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAggregateInvariants(tt.groups)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}
