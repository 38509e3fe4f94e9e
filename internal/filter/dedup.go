package filter

import (
	"fmt"
	"strings"
	"sync"

	"caveat/internal/warning"
)

// DedupMode selects the key used by the default action.
type DedupMode uint8

const (
	// DedupLocation keys on category, message, module, file and line.
	DedupLocation DedupMode = iota + 1
	// DedupPhase additionally keys on the phase.
	DedupPhase
)

func (m DedupMode) String() string {
	switch m {
	case DedupLocation:
		return "location"
	case DedupPhase:
		return "phase"
	}
	return "unknown"
}

// ParseDedupMode converts a string to DedupMode.
func ParseDedupMode(s string) (DedupMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "location":
		return DedupLocation, nil
	case "phase":
		return DedupPhase, nil
	default:
		return 0, fmt.Errorf("invalid dedup mode: %q (expected: location|phase)", s)
	}
}

type dedupKey struct {
	action   Action
	category string
	message  string
	module   string
	file     string
	line     uint32
	phase    warning.Phase
}

// Deduper remembers which warnings were already admitted in this session.
// Safe for concurrent use.
type Deduper struct {
	mu   sync.Mutex
	mode DedupMode
	seen map[dedupKey]struct{}
}

// NewDeduper returns an empty registry.
func NewDeduper(mode DedupMode) *Deduper {
	if mode == 0 {
		mode = DedupLocation
	}
	return &Deduper{mode: mode, seen: make(map[dedupKey]struct{})}
}

// Admit reports whether rec should be kept for the summary under action, and
// remembers it. ActionAlways admits everything; ignore and error admit nothing.
func (d *Deduper) Admit(rec *warning.Record, action Action) bool {
	if !action.Shown() {
		return false
	}
	if action == ActionAlways {
		return true
	}
	key := dedupKey{action: action, category: rec.Category, message: rec.Message}
	switch action {
	case ActionDefault:
		key.module = rec.Module
		key.file = rec.Filename
		key.line = rec.Line
		if d.mode == DedupPhase {
			key.phase = rec.Phase
		}
	case ActionModule:
		key.module = rec.Module
	case ActionOnce:
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	return true
}

// Reset forgets everything.
func (d *Deduper) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[dedupKey]struct{})
}

// Len returns the number of remembered keys.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
