package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff     Level = iota // no tracing
	LevelError                // ring keeps coarse events for crash dumps only
	LevelSession              // session and node boundaries
	LevelPhase                // phase boundaries and escalations
	LevelDebug                // every intercepted warning
)

var levelNames = [...]string{"off", "error", "session", "phase", "debug"}

// finest is the most detailed scope a level writes out; 0 writes nothing.
var finest = [...]Scope{0, 0, ScopeNode, ScopePhase, ScopeWarning}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel converts a string to a Level; "" is LevelOff.
func ParseLevel(s string) (Level, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	if want == "" {
		return LevelOff, nil
	}
	for i, name := range levelNames {
		if name == want {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// ShouldEmit reports whether events of scope are written at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	return int(l) < len(finest) && scope <= finest[l] && scope > 0
}

// wants reports whether t records scope; at LevelError only the ring keeps
// coarse events for crash dumps.
func wants(t Tracer, scope Scope) bool {
	l := t.Level()
	return l.ShouldEmit(scope) || (l == LevelError && scope <= ScopePhase)
}
