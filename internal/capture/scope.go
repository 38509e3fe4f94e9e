// Package capture records the warnings raised during a single phase of a
// test node.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"caveat/internal/escalate"
	"caveat/internal/filter"
	"caveat/internal/intercept"
	"caveat/internal/source"
	"caveat/internal/trace"
	"caveat/internal/warning"
)

var (
	errNoNode     = errors.New("capture: empty node id")
	errBadPhase   = errors.New("capture: invalid phase")
	errNilContext = errors.New("capture: nil interception context")
)

// Options describes the phase being captured.
type Options struct {
	NodeID string
	Phase  warning.Phase
	// Module is used for occurrences without a module of their own.
	Module string
	// Rules replaces the active rule list for the duration of the scope.
	// Nil keeps whatever is installed.
	Rules   *filter.List
	Sources *source.Cache
	Tracer  trace.Tracer
	// Parent is the trace span of the enclosing node.
	Parent uint64
}

// Captured is one kept warning with the action it was classified as.
type Captured struct {
	Record warning.Record
	Action filter.Action
}

// Result is what a scope hands back on exit.
type Result struct {
	Captured []Captured
	// Failure is set when a warning was escalated.
	Failure *escalate.Failure
}

// Scope intercepts warnings between Enter and Exit.
type Scope struct {
	ic      *intercept.Context
	saved   intercept.Saved
	opts    Options
	rules   *filter.List
	handler escalate.Handler
	span    *trace.Span

	mu       sync.Mutex
	captured []Captured
	exited   bool
	result   Result
	exitErr  error
}

// Enter snapshots the interception state of ic and installs the scope as
// the active listener. Duplicate suppression of the context is switched off
// so nothing raised before the scope can hide a warning inside it.
func Enter(ic *intercept.Context, opts Options) (*Scope, error) {
	if ic == nil {
		return nil, errNilContext
	}
	if opts.NodeID == "" {
		return nil, errNoNode
	}
	if !opts.Phase.Valid() {
		return nil, fmt.Errorf("%w: %d", errBadPhase, opts.Phase)
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	s := &Scope{ic: ic, opts: opts, rules: opts.Rules}
	if s.rules == nil {
		s.rules = ic.Snapshot().Rules
	}
	s.span = trace.Begin(opts.Tracer, trace.ScopePhase, "phase:"+opts.Phase.String(), opts.Parent).
		WithExtra("node", opts.NodeID)
	s.saved = ic.Install(s, s.rules, intercept.ModeAlways)
	return s, nil
}

// Notify implements intercept.Listener.
func (s *Scope) Notify(occ intercept.Occurrence) error {
	if f := s.handler.Tripped(); f != nil {
		return f
	}

	rec := warning.Record{
		Message:  occ.Message,
		Category: occ.Category,
		Filename: occ.File,
		Line:     occ.Line,
		Module:   occ.Module,
		Phase:    s.opts.Phase,
		NodeID:   s.opts.NodeID,
	}
	if rec.Module == "" {
		rec.Module = s.opts.Module
	}
	rec.SourceLine = s.sourceLine(rec.Filename, rec.Line)

	action := s.rules.Classify(&rec)
	trace.Point(s.opts.Tracer, trace.ScopeWarning, "warning", rec.Header(), s.span.ID(), map[string]string{
		"action": action.String(),
	})

	switch action {
	case filter.ActionIgnore:
		return nil
	case filter.ActionError:
		return s.handler.Escalate(&rec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited {
		return nil
	}
	s.captured = append(s.captured, Captured{Record: rec, Action: action})
	return nil
}

func (s *Scope) sourceLine(path string, line uint32) string {
	if s.opts.Sources == nil || line == warning.UnknownLine {
		return ""
	}
	text, err := s.opts.Sources.Line(path, line)
	if err != nil {
		trace.Point(s.opts.Tracer, trace.ScopeWarning, "source", err.Error(), s.span.ID(), nil)
		return ""
	}
	return text
}

// Exit restores the interception state saved by Enter and returns what was
// captured. It is safe to call more than once; later calls return the first
// result. The error is intercept.ErrCorrupted when the state could not be
// restored cleanly; the result is still valid.
func (s *Scope) Exit() (Result, error) {
	s.mu.Lock()
	if s.exited {
		defer s.mu.Unlock()
		return s.result, s.exitErr
	}
	s.exited = true
	s.mu.Unlock()

	err := s.ic.Restore(s.saved)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = Result{Captured: s.captured, Failure: s.handler.Tripped()}
	s.exitErr = err
	s.span.WithExtra("captured", fmt.Sprint(len(s.captured)))
	if s.result.Failure != nil {
		s.span.Fail(s.result.Failure).End("failed")
	} else {
		s.span.End("")
	}
	return s.result, err
}
