// Package session accumulates the warnings kept during a test session.
package session

import (
	"sync"

	"caveat/internal/filter"
	"caveat/internal/warning"
)

// Group is the ordered list of records of one node.
type Group struct {
	NodeID  string           `msgpack:"node_id"`
	Records []warning.Record `msgpack:"records"`
}

// Aggregate maps node ids to their records, nodes in first-seen order.
// Append-only; safe for concurrent use.
type Aggregate struct {
	mu     sync.Mutex
	order  []string
	byNode map[string][]warning.Record
	seq    uint64
}

// New returns an empty aggregate.
func New() *Aggregate {
	return &Aggregate{byNode: make(map[string][]warning.Record)}
}

// Record appends rec under nodeID and stamps its capture sequence number.
func (a *Aggregate) Record(nodeID string, rec warning.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recordLocked(nodeID, rec)
}

func (a *Aggregate) recordLocked(nodeID string, rec warning.Record) {
	if rec.NodeID == "" {
		rec.NodeID = nodeID
	}
	a.seq++
	rec.Seq = a.seq
	if _, ok := a.byNode[nodeID]; !ok {
		a.order = append(a.order, nodeID)
	}
	a.byNode[nodeID] = append(a.byNode[nodeID], rec)
}

// Offer records rec if the deduper admits it under action.
func (a *Aggregate) Offer(rec warning.Record, action filter.Action, d *filter.Deduper) bool {
	if d == nil {
		if !action.Shown() {
			return false
		}
	} else if !d.Admit(&rec, action) {
		return false
	}
	a.Record(rec.NodeID, rec)
	return true
}

// All returns a copy of every group in node order.
func (a *Aggregate) All() []Group {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Group, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, Group{NodeID: id, Records: append([]warning.Record(nil), a.byNode[id]...)})
	}
	return out
}

// Records returns every record, grouped by node in node order.
func (a *Aggregate) Records() []warning.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []warning.Record
	for _, id := range a.order {
		out = append(out, a.byNode[id]...)
	}
	return out
}

// Nodes returns the node ids that have records, in first-seen order.
func (a *Aggregate) Nodes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.order...)
}

// Len returns the total number of records.
func (a *Aggregate) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, recs := range a.byNode {
		n += len(recs)
	}
	return n
}

// Merge appends every record of other, renumbering them.
func (a *Aggregate) Merge(other *Aggregate) {
	if other == nil || other == a {
		return
	}
	groups := other.All()
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, g := range groups {
		for _, rec := range g.Records {
			a.recordLocked(g.NodeID, rec)
		}
	}
}

// Reset drops everything.
func (a *Aggregate) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.order = nil
	a.byNode = make(map[string][]warning.Record)
	a.seq = 0
}
