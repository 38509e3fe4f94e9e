package suite

import (
	"errors"
	"fmt"

	"caveat/internal/intercept"
	"caveat/internal/runner"
	"caveat/internal/warning"
)

// DefineCategories registers the categories declared by files.
func DefineCategories(tx *warning.Taxonomy, files []*File) error {
	var errs []error
	for _, f := range files {
		for _, c := range f.Categories {
			if err := tx.Define(c.Name, c.Parent); err != nil {
				errs = append(errs, &ParseError{Path: f.Path, Line: c.Line, Err: err})
			}
		}
	}
	return errors.Join(errs...)
}

// Nodes converts the tests of files into runner nodes, in file order.
func Nodes(files []*File) []runner.Node {
	var nodes []runner.Node
	for _, f := range files {
		for i := range f.Tests {
			nodes = append(nodes, f.node(&f.Tests[i]))
		}
	}
	return nodes
}

func (f *File) node(t *Test) runner.Node {
	n := runner.Node{ID: NodeID(f.Path, t.Name), Module: f.Module}
	for _, phase := range warning.Phases {
		body, declared := t.Body(phase)
		if !declared && phase != warning.PhaseCall {
			continue
		}
		fn := f.phaseFunc(body)
		switch phase {
		case warning.PhaseSetup:
			n.Setup = fn
		case warning.PhaseCall:
			n.Call = fn
		case warning.PhaseTeardown:
			n.Teardown = fn
		}
	}
	return n
}

// phaseFunc executes statements in order. An escalated warning or a fail
// statement stops the phase.
func (f *File) phaseFunc(body []Stmt) runner.PhaseFunc {
	return func(t *runner.T) error {
		for _, st := range body {
			if err := t.Context().Err(); err != nil {
				return err
			}
			loc := intercept.Location{File: f.Path, Line: st.Line, Module: f.Module}
			switch st.Kind {
			case StmtWarn:
				if err := t.WarnAt(loc, st.Category, st.Message); err != nil {
					return err
				}
			case StmtFail:
				return t.Fail(fmt.Sprintf("%s (%s:%d)", st.Message, f.Path, st.Line))
			case StmtPass:
			}
		}
		return nil
	}
}
