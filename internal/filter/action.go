package filter

import (
	"fmt"
	"strings"
)

// Action is what a matching filter rule does with a warning.
type Action uint8

const (
	// ActionDefault shows a warning once per location.
	ActionDefault Action = iota + 1
	// ActionError turns the warning into a phase failure.
	ActionError
	ActionIgnore
	ActionAlways
	ActionModule
	ActionOnce
)

func (a Action) String() string {
	switch a {
	case ActionDefault:
		return "default"
	case ActionError:
		return "error"
	case ActionIgnore:
		return "ignore"
	case ActionAlways:
		return "always"
	case ActionModule:
		return "module"
	case ActionOnce:
		return "once"
	}
	return "unknown"
}

// Shown reports whether warnings with this action reach the summary at all.
func (a Action) Shown() bool {
	return a != ActionIgnore && a != ActionError
}

// порядок важен: префиксы разрешаются по первому совпадению
var actionNames = []struct {
	name   string
	action Action
}{
	{"default", ActionDefault},
	{"always", ActionAlways},
	{"all", ActionAlways},
	{"ignore", ActionIgnore},
	{"module", ActionModule},
	{"once", ActionOnce},
	{"error", ActionError},
}

// ParseAction accepts an action name or any prefix of one ("e" is error).
// The empty string means ActionDefault.
func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ActionDefault, nil
	}
	for _, n := range actionNames {
		if strings.HasPrefix(n.name, s) {
			return n.action, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (expected: error|ignore|always|default|module|once)", ErrUnknownAction, s)
}
