// Package suite loads line-oriented test scripts (*.cvt).
//
// A script declares tests, each with optional setup, call and teardown
// sections. Statements raise warnings or fail the phase:
//
//	# comment
//	category LegacyWarning DeprecationWarning
//
//	test test_func
//	setup:
//	    warn UserWarning "setup warning"
//	call:
//	    warn DeprecationWarning functionality is deprecated
//	    pass
//	teardown:
//	    fail "resource left open"
//
// Statements before the first marker belong to the call phase.
package suite

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"caveat/internal/warning"
)

// Ext is the script file extension.
const Ext = ".cvt"

// StmtKind is the kind of a script statement.
type StmtKind uint8

const (
	StmtPass StmtKind = iota + 1
	StmtWarn
	StmtFail
)

// Stmt is one statement of a phase body.
type Stmt struct {
	Kind     StmtKind
	Line     uint32
	Category string
	Message  string
}

// Test is one declared test.
type Test struct {
	Name string
	Line uint32
	// Phases holds bodies indexed by phase-1; Declared marks the sections
	// that exist at all.
	Phases   [len(warning.Phases)][]Stmt
	Declared [len(warning.Phases)]bool
}

// Body returns the statements of phase p and whether the section exists.
func (t *Test) Body(p warning.Phase) ([]Stmt, bool) {
	if !p.Valid() {
		return nil, false
	}
	return t.Phases[p-1], t.Declared[p-1]
}

// CategoryDef is a category declared by a script.
type CategoryDef struct {
	Name   string
	Parent string
	Line   uint32
}

// File is a parsed script.
type File struct {
	Path       string
	Module     string
	Categories []CategoryDef
	Tests      []Test
}

// ParseError reports a malformed script line.
type ParseError struct {
	Path string
	Line uint32
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	ErrSyntax         = errors.New("syntax error")
	ErrOutsideTest    = errors.New("statement outside of a test")
	ErrDuplicateTest  = errors.New("duplicate test")
	ErrDuplicatePhase = errors.New("duplicate phase section")
)

// ModuleName derives the module attributed to a script's warnings: the file
// name without its extension.
func ModuleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NodeID returns "<path>::<test>".
func NodeID(path, test string) string {
	return filepath.ToSlash(path) + "::" + test
}
