package warning

import (
	"fmt"
	"sort"
	"sync"
)

// Built-in category names.
const (
	Warning                   = "Warning"
	UserWarning               = "UserWarning"
	DeprecationWarning        = "DeprecationWarning"
	PendingDeprecationWarning = "PendingDeprecationWarning"
	SyntaxWarning             = "SyntaxWarning"
	RuntimeWarning            = "RuntimeWarning"
	FutureWarning             = "FutureWarning"
	ImportWarning             = "ImportWarning"
	UnicodeWarning            = "UnicodeWarning"
	BytesWarning              = "BytesWarning"
	ResourceWarning           = "ResourceWarning"
)

var builtinCategories = []string{
	UserWarning,
	DeprecationWarning,
	PendingDeprecationWarning,
	SyntaxWarning,
	RuntimeWarning,
	FutureWarning,
	ImportWarning,
	UnicodeWarning,
	BytesWarning,
	ResourceWarning,
}

// Taxonomy is an open tree of warning categories rooted at Warning.
// Safe for concurrent use.
type Taxonomy struct {
	mu     sync.RWMutex
	parent map[string]string // name -> parent ("" for the root)
}

// NewTaxonomy returns a taxonomy preloaded with the built-in categories.
func NewTaxonomy() *Taxonomy {
	t := &Taxonomy{parent: make(map[string]string, len(builtinCategories)+1)}
	t.parent[Warning] = ""
	for _, name := range builtinCategories {
		t.parent[name] = Warning
	}
	return t
}

// Define registers name as a child of parent. Redefining a category with the
// same parent is a no-op; moving it elsewhere is an error.
func (t *Taxonomy) Define(name, parent string) error {
	if name == "" {
		return fmt.Errorf("empty category name")
	}
	if parent == "" {
		parent = Warning
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.parent[parent]; !ok {
		return fmt.Errorf("unknown parent category %q for %q", parent, name)
	}
	if prev, ok := t.parent[name]; ok {
		if prev != parent && name != Warning {
			return fmt.Errorf("category %q already defined under %q", name, prev)
		}
		return nil
	}
	t.parent[name] = parent
	return nil
}

// Ensure makes sure name exists, attaching unknown names under Warning.
func (t *Taxonomy) Ensure(name string) string {
	if name == "" {
		return Warning
	}
	t.mu.RLock()
	_, ok := t.parent[name]
	t.mu.RUnlock()
	if !ok {
		t.mu.Lock()
		if _, ok := t.parent[name]; !ok {
			t.parent[name] = Warning
		}
		t.mu.Unlock()
	}
	return name
}

// Known reports whether name is registered.
func (t *Taxonomy) Known(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.parent[name]
	return ok
}

// IsA reports whether name is ancestor or one of its descendants.
func (t *Taxonomy) IsA(name, ancestor string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for cur, guard := name, 0; guard <= len(t.parent); guard++ {
		if cur == ancestor {
			return true
		}
		next, ok := t.parent[cur]
		if !ok || next == "" {
			return false
		}
		cur = next
	}
	return false
}

// Names returns all registered categories sorted by name.
func (t *Taxonomy) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.parent))
	for name := range t.parent {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
