// Package source reads the literal source text at warning call sites.
//
// Reads are best-effort and bounded: files larger than MaxFileSize, missing
// files, unreadable files and non-UTF-8 content all yield an error that callers
// are expected to turn into an empty source line.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxFileSize bounds how much of a file is read to resolve a line.
const MaxFileSize = 8 << 20

var (
	// ErrTooLarge is returned for files above MaxFileSize.
	ErrTooLarge = errors.New("source file too large")
	// ErrNotUTF8 is returned when the requested line is not valid UTF-8.
	ErrNotUTF8 = errors.New("source line is not valid UTF-8")
	// ErrNoLine is returned for line numbers outside the file.
	ErrNoLine = errors.New("line out of range")
)

// Cache loads files on first use and resolves line numbers.
// Safe for concurrent use.
type Cache struct {
	mu    sync.Mutex
	files map[string]*File
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{files: make(map[string]*File)}
}

// Add stores in-memory content for path, replacing anything loaded before.
// Used for virtual files (suites parsed from memory, tests).
func (c *Cache) Add(path string, content []byte) *File {
	f := newFile(path, content)
	c.mu.Lock()
	c.files[f.Path] = f
	c.mu.Unlock()
	return f
}

// Load returns the cached file for path, reading it from disk on first use.
func (c *Cache) Load(path string) (*File, error) {
	key := cleanPath(path)
	c.mu.Lock()
	f, ok := c.files[key]
	c.mu.Unlock()
	if ok {
		return f, f.Err
	}

	content, err := readBounded(path)
	if err != nil {
		f = &File{Path: key, Err: err}
	} else {
		f = newFile(path, content)
	}

	c.mu.Lock()
	if prev, ok := c.files[key]; ok {
		f = prev
	} else {
		c.files[key] = f
	}
	c.mu.Unlock()
	return f, f.Err
}

// Line returns line lineNum (1-based) of path with surrounding whitespace removed.
func (c *Cache) Line(path string, lineNum uint32) (string, error) {
	if lineNum == 0 {
		return "", ErrNoLine
	}
	f, err := c.Load(path)
	if err != nil {
		return "", err
	}
	raw, ok := f.GetLine(lineNum)
	if !ok {
		return "", fmt.Errorf("%s:%d: %w", f.Path, lineNum, ErrNoLine)
	}
	if !utf8.ValidString(raw) {
		return "", fmt.Errorf("%s:%d: %w", f.Path, lineNum, ErrNotUTF8)
	}
	return norm.NFC.String(strings.TrimSpace(raw)), nil
}

// readBounded reads at most MaxFileSize bytes, decoding UTF-16 files that carry
// a byte order mark and stripping a UTF-8 BOM.
func readBounded(path string) ([]byte, error) {
	// #nosec G304 -- path comes from a warning call site
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var buf bytes.Buffer
	r := transform.NewReader(io.LimitReader(fh, MaxFileSize+1), unicode.BOMOverride(transform.Nop))
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if buf.Len() > MaxFileSize {
		return nil, fmt.Errorf("%s: %w", path, ErrTooLarge)
	}
	return buf.Bytes(), nil
}
