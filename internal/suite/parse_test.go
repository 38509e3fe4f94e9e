package suite

import (
	"errors"
	"strings"
	"testing"

	"caveat/internal/warning"
)

const sample = `# deprecations
category LegacyWarning DeprecationWarning

test test_func
    warn PendingDeprecationWarning "functionality is pending deprecation"
    warn DeprecationWarning functionality is deprecated

test test_fixture
setup:
    warn UserWarning "setup warning"
call
    pass
teardown:
    fail "left open"
`

func TestParse_Sample(t *testing.T) {
	f, err := Parse("dir/test_it.cvt", []byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	if f.Module != "test_it" {
		t.Errorf("Module = %q", f.Module)
	}
	if len(f.Categories) != 1 || f.Categories[0] != (CategoryDef{Name: "LegacyWarning", Parent: "DeprecationWarning", Line: 2}) {
		t.Errorf("categories = %+v", f.Categories)
	}
	if len(f.Tests) != 2 {
		t.Fatalf("expected 2 tests, got %d", len(f.Tests))
	}

	first := f.Tests[0]
	call, ok := first.Body(warning.PhaseCall)
	if !ok || len(call) != 2 {
		t.Fatalf("call body = %+v", call)
	}
	if call[0] != (Stmt{Kind: StmtWarn, Line: 5, Category: warning.PendingDeprecationWarning, Message: "functionality is pending deprecation"}) {
		t.Errorf("stmt 0 = %+v", call[0])
	}
	if call[1].Message != "functionality is deprecated" || call[1].Line != 6 {
		t.Errorf("bare message: %+v", call[1])
	}
	if _, ok := first.Body(warning.PhaseSetup); ok {
		t.Errorf("setup was not declared")
	}

	second := f.Tests[1]
	for _, p := range warning.Phases {
		if _, ok := second.Body(p); !ok {
			t.Errorf("%s should be declared", p)
		}
	}
	td, _ := second.Body(warning.PhaseTeardown)
	if len(td) != 1 || td[0].Kind != StmtFail || td[0].Message != "left open" {
		t.Errorf("teardown = %+v", td)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
		line uint32
	}{
		{"outside test", "warn UserWarning x", ErrOutsideTest, 1},
		{"phase outside test", "setup:", ErrOutsideTest, 1},
		{"unknown statement", "test a\n  explode", ErrSyntax, 2},
		{"duplicate test", "test a\ntest a", ErrDuplicateTest, 2},
		{"duplicate phase", "test a\nsetup\nsetup", ErrDuplicatePhase, 3},
		{"bad quote", "test a\n warn UserWarning \"open", ErrSyntax, 2},
		{"warn without category", "test a\n warn", ErrSyntax, 2},
		{"bad test name", "test", ErrSyntax, 1},
		{"category arity", "category A B C", ErrSyntax, 1},
		{"pass args", "test a\n pass now", ErrSyntax, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("s.cvt", []byte(tt.src))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var perr *ParseError
			if !errors.As(err, &perr) || perr.Line != tt.line {
				t.Errorf("error line: %v", err)
			}
		})
	}
}

func TestParse_ReportsEveryError(t *testing.T) {
	_, err := Parse("s.cvt", []byte("bogus\ntest a\nalso bogus\n"))
	if err == nil {
		t.Fatal("expected errors")
	}
	msg := err.Error()
	if !strings.Contains(msg, "s.cvt:1:") || !strings.Contains(msg, "s.cvt:3:") {
		t.Errorf("both lines must be reported:\n%s", msg)
	}
}

func TestParse_CRLF(t *testing.T) {
	f, err := Parse("s.cvt", []byte("test a\r\ncall:\r\n  warn UserWarning \"x\"\r\n"))
	if err != nil {
		t.Fatal(err)
	}
	body, _ := f.Tests[0].Body(warning.PhaseCall)
	if len(body) != 1 || body[0].Message != "x" {
		t.Errorf("body = %+v", body)
	}
}

func TestNodeIDAndModule(t *testing.T) {
	if got := NodeID("a/test_x.cvt", "test_y"); got != "a/test_x.cvt::test_y" {
		t.Errorf("NodeID = %q", got)
	}
	if got := ModuleName("a/b/test_x.cvt"); got != "test_x" {
		t.Errorf("ModuleName = %q", got)
	}
}
