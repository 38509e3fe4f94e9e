// Package escalate turns warnings matched by an error rule into phase failures.
package escalate

import (
	"sync"

	"caveat/internal/warning"
)

// Failure is the error a phase fails with when a warning is escalated.
type Failure struct {
	Category string
	Message  string
	Filename string
	Line     uint32
	Phase    warning.Phase
	NodeID   string
}

// FromRecord builds the failure describing rec.
func FromRecord(rec *warning.Record) *Failure {
	return &Failure{
		Category: rec.Category,
		Message:  rec.Message,
		Filename: rec.Filename,
		Line:     rec.Line,
		Phase:    rec.Phase,
		NodeID:   rec.NodeID,
	}
}

func (f *Failure) Error() string { return f.Category + ": " + f.Message }

// Location returns "<filename>:<lineno>".
func (f *Failure) Location() string {
	return f.record().Location()
}

// record returns the warning the failure was raised for.
func (f *Failure) record() warning.Record {
	return warning.Record{
		Category: f.Category,
		Message:  f.Message,
		Filename: f.Filename,
		Line:     f.Line,
		Phase:    f.Phase,
		NodeID:   f.NodeID,
	}
}

// Handler escalates at most one warning per capture scope. The first call to
// Escalate trips it; later calls get the same failure back.
type Handler struct {
	mu      sync.Mutex
	tripped *Failure
}

// Escalate returns the failure for rec, or the already tripped one.
func (h *Handler) Escalate(rec *warning.Record) *Failure {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tripped == nil {
		h.tripped = FromRecord(rec)
	}
	return h.tripped
}

// Tripped returns the failure, or nil if nothing was escalated.
func (h *Handler) Tripped() *Failure {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tripped
}
