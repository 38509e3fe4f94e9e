package suite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"caveat/internal/escalate"
	"caveat/internal/filter"
	"caveat/internal/runner"
	"caveat/internal/source"
	"caveat/internal/warning"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.cvt"), "")
	writeFile(t, filepath.Join(dir, "a.cvt"), "")
	writeFile(t, filepath.Join(dir, "sub", "c.cvt"), "")
	writeFile(t, filepath.Join(dir, ".hidden", "d.cvt"), "")
	writeFile(t, filepath.Join(dir, "notes.txt"), "")

	got, err := Discover([]string{dir, filepath.Join(dir, "a.cvt")})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "a.cvt"),
		filepath.Join(dir, "b.cvt"),
		filepath.Join(dir, "sub", "c.cvt"),
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Discover = %v, want %v", got, want)
	}

	if _, err := Discover([]string{filepath.Join(dir, "missing")}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist, got %v", err)
	}
}

func run(t *testing.T, src string, cmdline ...string) runner.Result {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test_it.cvt")
	writeFile(t, path, src)

	sources := source.NewCache()
	files, err := Load([]string{path}, sources)
	if err != nil {
		t.Fatal(err)
	}
	tx := warning.NewTaxonomy()
	if err := DefineCategories(tx, files); err != nil {
		t.Fatal(err)
	}
	rules, err := filter.Build(tx, nil, cmdline)
	if err != nil {
		t.Fatal(err)
	}
	r := runner.New(runner.Config{Taxonomy: tx, Rules: rules, Sources: sources})
	res, err := r.Run(context.Background(), Nodes(files))
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestSuite_WarningsCarryScriptLocation(t *testing.T) {
	res := run(t, `test test_func
    warn PendingDeprecationWarning "functionality is pending deprecation"
    warn DeprecationWarning "functionality is deprecated"
`)
	if res.Passed != 1 {
		t.Fatalf("passed = %d", res.Passed)
	}
	recs := res.Aggregate.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Line != 2 || recs[1].Line != 3 {
		t.Errorf("lines = %d, %d", recs[0].Line, recs[1].Line)
	}
	if recs[0].SourceLine != `warn PendingDeprecationWarning "functionality is pending deprecation"` {
		t.Errorf("source line = %q", recs[0].SourceLine)
	}
	if recs[0].Module != "test_it" || !strings.HasSuffix(recs[0].NodeID, "test_it.cvt::test_func") {
		t.Errorf("attribution = %+v", recs[0])
	}
}

func TestSuite_CustomCategoryRule(t *testing.T) {
	res := run(t, `category LegacyWarning DeprecationWarning
test test_legacy
    warn LegacyWarning "old api"
`, "error::DeprecationWarning")
	if res.Failed != 1 {
		t.Fatalf("custom subcategory must match its parent's rule")
	}
	first, _ := res.Nodes[0].First()
	var f *escalate.Failure
	if !errors.As(first.Err, &f) || f.Category != "LegacyWarning" || f.Line != 3 {
		t.Errorf("failure = %v", first.Err)
	}
}

func TestSuite_FailStatementAndTeardown(t *testing.T) {
	res := run(t, `test test_a
setup:
    fail "no db"
call:
    warn UserWarning "never"
teardown:
    warn UserWarning "cleanup"
`)
	if res.Failed != 1 {
		t.Fatalf("fail statement must fail the node")
	}
	first, _ := res.Nodes[0].First()
	if first.Phase != warning.PhaseSetup || !errors.Is(first.Err, runner.ErrFailed) {
		t.Errorf("first = %+v", first)
	}
	recs := res.Aggregate.Records()
	if len(recs) != 1 || recs[0].Message != "cleanup" {
		t.Errorf("only teardown should have warned: %+v", recs)
	}
}

func TestLoad_ReportsAllFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.cvt")
	b := filepath.Join(dir, "b.cvt")
	writeFile(t, a, "bogus\n")
	writeFile(t, b, "test x\n")
	_, err := Load([]string{a, b, filepath.Join(dir, "none.cvt")}, nil)
	if err == nil {
		t.Fatal("expected errors")
	}
	if !strings.Contains(err.Error(), "a.cvt:1:") || !strings.Contains(err.Error(), "none.cvt") {
		t.Errorf("err = %v", err)
	}
}
