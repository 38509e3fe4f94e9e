package trace

import (
	"io"
	"sync"
)

// DefaultRingSize is the capacity used when none is given.
const DefaultRingSize = 4096

// RingTracer keeps the most recent events in memory for crash dumps.
type RingTracer struct {
	mu     sync.RWMutex
	events []Event
	total  uint64 // events ever stored
	level  Level
}

// NewRingTracer creates a RingTracer holding up to capacity events.
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = DefaultRingSize
	}
	return &RingTracer{events: make([]Event, capacity), level: level}
}

// accepts keeps phase-level history even at LevelError, so a dump after a
// panic shows which node and phase were running.
func (t *RingTracer) accepts(ev *Event) bool {
	switch {
	case ev.Kind == KindHeartbeat:
		return true
	case t.level == LevelError:
		return ev.Scope <= ScopePhase
	}
	return t.level.ShouldEmit(ev.Scope)
}

// Emit stores ev, overwriting the oldest event when full.
func (t *RingTracer) Emit(ev *Event) {
	if !t.accepts(ev) {
		return
	}
	stored := *ev
	stored.Seq = NextSeq()

	t.mu.Lock()
	t.events[t.total%uint64(len(t.events))] = stored
	t.total++
	t.mu.Unlock()
}

// Len returns the number of events currently held.
func (t *RingTracer) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lenLocked()
}

func (t *RingTracer) lenLocked() int {
	if t.total < uint64(len(t.events)) {
		return int(t.total)
	}
	return len(t.events)
}

// Snapshot returns the held events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.lenLocked()
	out := make([]Event, n)
	start := t.total - uint64(n)
	for i := range out {
		out[i] = t.events[(start+uint64(i))%uint64(len(t.events))]
	}
	return out
}

// Dump writes the held events to w in format.
func (t *RingTracer) Dump(w io.Writer, format Format) error {
	events := t.Snapshot()
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error { return nil }

func (t *RingTracer) Close() error { return nil }

func (t *RingTracer) Level() Level { return t.level }

func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
