package runner

import (
	"context"
	"errors"
	"fmt"

	"caveat/internal/intercept"
	"caveat/internal/warning"
)

// ErrFailed marks failures raised explicitly through T.Fail.
var ErrFailed = errors.New("failed")

// PhaseFunc is the body of one phase.
type PhaseFunc func(t *T) error

// Node is a single test with its optional setup and teardown.
type Node struct {
	ID string
	// Module is attributed to warnings raised without one.
	Module   string
	Setup    PhaseFunc
	Call     PhaseFunc
	Teardown PhaseFunc
}

func (n *Node) phase(p warning.Phase) PhaseFunc {
	switch p {
	case warning.PhaseSetup:
		return n.Setup
	case warning.PhaseCall:
		return n.Call
	case warning.PhaseTeardown:
		return n.Teardown
	}
	return nil
}

// T is handed to phase functions.
type T struct {
	ctx   context.Context
	ic    *intercept.Context
	node  *Node
	phase warning.Phase
	fails []error
}

// Context returns the phase context; the interception context is attached.
func (t *T) Context() context.Context { return t.ctx }

// Intercept returns the interception context of the phase.
func (t *T) Intercept() *intercept.Context { return t.ic }

// NodeID returns the id of the running node.
func (t *T) NodeID() string { return t.node.ID }

// Phase returns the running phase.
func (t *T) Phase() warning.Phase { return t.phase }

// Warn raises a warning located at the caller. A non-nil error means the
// warning was escalated and the phase has failed.
func (t *T) Warn(category, message string) error {
	return t.ic.WarnSkip(1, category, message)
}

// Warnf is Warn with a formatted message.
func (t *T) Warnf(category, format string, args ...any) error {
	return t.ic.WarnSkip(1, category, fmt.Sprintf(format, args...))
}

// WarnAt raises a warning with an explicit location.
func (t *T) WarnAt(loc intercept.Location, category, message string) error {
	if loc.Module == "" {
		loc.Module = t.node.Module
	}
	return t.ic.WarnAt(loc, category, message)
}

// Fail marks the phase failed. The returned error can be returned from the
// phase function but does not have to be.
func (t *T) Fail(message string) error {
	err := fmt.Errorf("%w: %s", ErrFailed, message)
	t.fails = append(t.fails, err)
	return err
}

// Failed reports whether Fail was called in this phase.
func (t *T) Failed() bool { return len(t.fails) > 0 }
