package warning

import (
	"errors"
	"fmt"
	"strconv"
)

// UnknownLine marks a record whose line number could not be determined.
const UnknownLine uint32 = 0

// Record is one intercepted warning occurrence.
type Record struct {
	Message    string `msgpack:"message"`
	Category   string `msgpack:"category"`
	Filename   string `msgpack:"filename"`
	Line       uint32 `msgpack:"line"`
	SourceLine string `msgpack:"source_line,omitempty"`
	Module     string `msgpack:"module,omitempty"`
	Phase      Phase  `msgpack:"phase"`
	NodeID     string `msgpack:"node_id"`
	// Seq is the capture order within the session (1-based, 0 when unset).
	Seq uint64 `msgpack:"seq"`
}

var (
	errNoCategory = errors.New("record has no category")
	errNoNode     = errors.New("record has no node id")
)

// Validate reports records that violate the model invariants.
func (r Record) Validate() error {
	if r.Category == "" {
		return fmt.Errorf("%s: %w", r.Location(), errNoCategory)
	}
	if r.NodeID == "" {
		return fmt.Errorf("%s: %w", r.Location(), errNoNode)
	}
	return nil
}

// LineString returns the line number, or "?" when unknown.
func (r Record) LineString() string {
	if r.Line == UnknownLine {
		return "?"
	}
	return strconv.FormatUint(uint64(r.Line), 10)
}

// Location returns "<filename>:<lineno>".
func (r Record) Location() string {
	return r.Filename + ":" + r.LineString()
}

// Header returns "<filename>:<lineno>: <category>: <message>".
func (r Record) Header() string {
	return r.Location() + ": " + r.Category + ": " + r.Message
}
