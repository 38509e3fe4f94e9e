package testkit

import (
	"fmt"

	"caveat/internal/session"
)

// CheckAggregateInvariants runs a minimal set of invariants on the groups
// of a session aggregate:
// 1) every record is valid and belongs to the group it is filed under
// 2) no node appears in two groups
// 3) sequence numbers are non-zero, unique and increase within a group
// 4) phases never go backwards within a group
func CheckAggregateInvariants(groups []session.Group) error {
	seenNode := make(map[string]bool, len(groups))
	seenSeq := make(map[uint64]string)
	for _, g := range groups {
		if g.NodeID == "" {
			return fmt.Errorf("group with empty node id")
		}
		if seenNode[g.NodeID] {
			return fmt.Errorf("node %s has more than one group", g.NodeID)
		}
		seenNode[g.NodeID] = true

		var prevSeq uint64
		for i, rec := range g.Records {
			if err := rec.Validate(); err != nil {
				return fmt.Errorf("%s #%d: %w", g.NodeID, i, err)
			}
			if !rec.Phase.Valid() {
				return fmt.Errorf("%s #%d: invalid phase %d", g.NodeID, i, rec.Phase)
			}
			if rec.NodeID != g.NodeID {
				return fmt.Errorf("%s #%d: record filed under wrong node %s", g.NodeID, i, rec.NodeID)
			}
			if rec.Seq == 0 {
				return fmt.Errorf("%s #%d: zero sequence number", g.NodeID, i)
			}
			if other, dup := seenSeq[rec.Seq]; dup {
				return fmt.Errorf("%s #%d: sequence %d already used by %s", g.NodeID, i, rec.Seq, other)
			}
			seenSeq[rec.Seq] = g.NodeID
			if rec.Seq <= prevSeq {
				return fmt.Errorf("%s #%d: sequence %d not after %d", g.NodeID, i, rec.Seq, prevSeq)
			}
			prevSeq = rec.Seq
			// 4) setup, call, teardown
			if i > 0 && rec.Phase < g.Records[i-1].Phase {
				return fmt.Errorf("%s #%d: %s recorded after %s", g.NodeID, i, rec.Phase, g.Records[i-1].Phase)
			}
		}
	}
	return nil
}
