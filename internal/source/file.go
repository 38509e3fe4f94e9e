package source

import (
	"bytes"
	"path/filepath"

	"fortio.org/safecast"
)

// File is a loaded source file split into lines.
type File struct {
	Path    string
	Content []byte
	// starts holds the byte offset of every line. A trailing newline does
	// not open another line.
	starts []int
	// Err is the load error, cached so a missing file is only read once.
	Err error
}

// newFile normalises CRLF line endings (lone \r is kept) and indexes lines.
func newFile(path string, content []byte) *File {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	f := &File{Path: cleanPath(path), Content: content, starts: []int{0}}
	for i, b := range content {
		if b == '\n' && i+1 < len(content) {
			f.starts = append(f.starts, i+1)
		}
	}
	return f
}

// Lines returns the number of lines in f.
func (f *File) Lines() int {
	if f == nil || f.Err != nil {
		return 0
	}
	return len(f.starts)
}

// GetLine returns line lineNum (1-based) without its line terminator.
func (f *File) GetLine(lineNum uint32) (string, bool) {
	if f == nil || f.Err != nil || lineNum == 0 {
		return "", false
	}
	idx, err := safecast.Conv[int](lineNum - 1)
	if err != nil || idx >= len(f.starts) {
		return "", false
	}
	end := len(f.Content)
	if idx+1 < len(f.starts) {
		end = f.starts[idx+1]
	}
	return string(bytes.TrimSuffix(f.Content[f.starts[idx]:end], []byte("\n"))), true
}

// cleanPath gives one spelling per file, so Windows and Unix runs share keys.
func cleanPath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
