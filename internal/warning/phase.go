package warning

import (
	"fmt"
	"strings"
)

// Phase identifies the execution stage of a test node.
type Phase uint8

const (
	// PhaseSetup prepares the node (fixtures).
	PhaseSetup Phase = iota + 1
	// PhaseCall runs the test body.
	PhaseCall
	PhaseTeardown
)

// Phases lists phases in execution order.
var Phases = [...]Phase{PhaseSetup, PhaseCall, PhaseTeardown}

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseCall:
		return "call"
	case PhaseTeardown:
		return "teardown"
	}
	return "unknown"
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	return p >= PhaseSetup && p <= PhaseTeardown
}

// ParsePhase converts a phase name to Phase.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "setup":
		return PhaseSetup, nil
	case "call":
		return PhaseCall, nil
	case "teardown":
		return PhaseTeardown, nil
	default:
		return 0, fmt.Errorf("invalid phase: %q (expected: setup|call|teardown)", s)
	}
}
