package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCache_Line(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suite.cvt")
	content := "test test_func\r\n    warn UserWarning \"x\"\r\nlast"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewCache()
	tests := []struct {
		line uint32
		want string
	}{
		{1, "test test_func"},
		{2, `warn UserWarning "x"`},
		{3, "last"},
	}
	for _, tc := range tests {
		got, err := c.Line(path, tc.line)
		if err != nil {
			t.Errorf("Line(%d) error: %v", tc.line, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Line(%d) = %q, want %q", tc.line, got, tc.want)
		}
	}

	if _, err := c.Line(path, 4); !errors.Is(err, ErrNoLine) {
		t.Errorf("Line(4) error = %v, want ErrNoLine", err)
	}
	if _, err := c.Line(path, 0); !errors.Is(err, ErrNoLine) {
		t.Errorf("Line(0) error = %v, want ErrNoLine", err)
	}
}

func TestCache_MissingFile(t *testing.T) {
	c := NewCache()
	path := filepath.Join(t.TempDir(), "missing.cvt")
	_, err := c.Line(path, 1)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	// ошибка закеширована: файл, созданный позже, не перечитывается
	if err := os.WriteFile(path, []byte("late\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err = c.Line(path, 1); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected cached ErrNotExist, got %v", err)
	}
}

func TestCache_UTF8BOMStripped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.cvt")
	if err := os.WriteFile(path, append([]byte{0xEF, 0xBB, 0xBF}, []byte("first\nsecond\n")...), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := NewCache().Line(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != "first" {
		t.Errorf("Line(1) = %q, want first", got)
	}
}

func TestCache_NonUTF8(t *testing.T) {
	c := NewCache()
	c.Add("virtual.cvt", []byte("ok\n\xff\xfe bad\n"))
	if _, err := c.Line("virtual.cvt", 2); !errors.Is(err, ErrNotUTF8) {
		t.Errorf("expected ErrNotUTF8, got %v", err)
	}
	if got, err := c.Line("virtual.cvt", 1); err != nil || got != "ok" {
		t.Errorf("Line(1) = %q, %v", got, err)
	}
}

func TestGetLine_TrailingNewline(t *testing.T) {
	c := NewCache()
	f := c.Add("v.cvt", []byte("a\nb\n"))
	if got, ok := f.GetLine(2); !ok || got != "b" {
		t.Errorf("GetLine(2) = %q, %v", got, ok)
	}
	if _, ok := f.GetLine(3); ok {
		t.Errorf("GetLine(3) should be out of range for a trailing newline")
	}
}

func TestFile_Lines(t *testing.T) {
	c := NewCache()
	tests := []struct {
		content string
		want    int
	}{
		{"", 1},
		{"a", 1},
		{"a\n", 1},
		{"a\r\nb\r\n", 2},
		{"a\n\nc", 3},
	}
	for _, tt := range tests {
		f := c.Add("lines.cvt", []byte(tt.content))
		if got := f.Lines(); got != tt.want {
			t.Errorf("Lines(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
	f := c.Add("lines.cvt", []byte("a\r\n\r\nc"))
	if got, ok := f.GetLine(2); !ok || got != "" {
		t.Errorf("GetLine(2) = %q, %v", got, ok)
	}
	if got, ok := f.GetLine(3); !ok || got != "c" {
		t.Errorf("GetLine(3) = %q, %v", got, ok)
	}
}
