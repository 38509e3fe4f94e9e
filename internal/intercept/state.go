package intercept

import (
	"fmt"

	"caveat/internal/filter"
)

// State is a snapshot of the interception state.
type State struct {
	Rules *filter.List
	Mode  Mode
	Depth int
	Top   Listener
}

// Equal reports whether two snapshots describe the same state.
func (s State) Equal(o State) bool {
	return s.Rules == o.Rules && s.Mode == o.Mode && s.Depth == o.Depth && s.Top == o.Top
}

// Saved is returned by Install and consumed by Restore.
type Saved struct {
	prev      State
	installed Listener
}

// Snapshot returns the current state.
func (c *Context) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Context) snapshotLocked() State {
	s := State{Rules: c.rules, Mode: c.mode, Depth: len(c.stack)}
	if s.Depth > 0 {
		s.Top = c.stack[s.Depth-1]
	}
	return s
}

// Install pushes l and makes rules and mode active. A nil rules keeps the
// current list.
func (c *Context) Install(l Listener, rules *filter.List, mode Mode) Saved {
	c.mu.Lock()
	defer c.mu.Unlock()
	saved := Saved{prev: c.snapshotLocked(), installed: l}
	c.stack = append(c.stack, l)
	if rules != nil {
		c.rules = rules
	}
	if mode != 0 {
		c.mode = mode
	}
	return saved
}

// Restore puts back the state captured by Install. It always restores, and
// returns ErrCorrupted when the listener installed by the matching Install was
// no longer on top (an inner installation was never restored, or this one was
// restored twice).
func (c *Context) Restore(s Saved) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	depth := len(c.stack)
	switch {
	case depth != s.prev.Depth+1:
		err = fmt.Errorf("%w: listener depth %d, expected %d", ErrCorrupted, depth, s.prev.Depth+1)
	case c.stack[depth-1] != s.installed:
		err = fmt.Errorf("%w: unexpected listener on top", ErrCorrupted)
	}

	if s.prev.Depth <= len(c.stack) {
		clear(c.stack[s.prev.Depth:])
		c.stack = c.stack[:s.prev.Depth]
	}
	c.rules = s.prev.Rules
	c.mode = s.prev.Mode
	return err
}
