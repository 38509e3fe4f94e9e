package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"caveat/internal/warning"
)

// Origin records where a rule came from.
type Origin uint8

const (
	// OriginDefault marks built-in rules.
	OriginDefault Origin = iota + 1
	// OriginConfig marks rules read from the configuration file.
	OriginConfig
	// OriginCmdline marks rules given with -W.
	OriginCmdline
)

func (o Origin) String() string {
	switch o {
	case OriginDefault:
		return "built-in"
	case OriginConfig:
		return "config"
	case OriginCmdline:
		return "command-line"
	}
	return "unknown"
}

// Rule is one compiled filter specification.
// Empty pattern fields match anything.
type Rule struct {
	Action   Action
	Message  *regexp.Regexp
	Category string
	Module   string
	Line     uint32
	Origin   Origin
	Spec     string
}

// ParseRule compiles "action:message:category:module:lineno". Trailing fields may
// be omitted. The message is a case-insensitive regular expression matched at the
// start of the warning text; the module must match exactly; a zero line matches
// any line.
func ParseRule(spec string, origin Origin, tx *warning.Taxonomy) (Rule, error) {
	fail := func(field string, err error) (Rule, error) {
		return Rule{}, &RuleError{Spec: spec, Origin: origin, Field: field, Err: err}
	}

	parts := strings.Split(spec, ":")
	if len(parts) > 5 {
		return fail("", ErrTooManyFields)
	}
	for len(parts) < 5 {
		parts = append(parts, "")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	rule := Rule{Origin: origin, Spec: spec}

	action, err := ParseAction(parts[0])
	if err != nil {
		return fail("action", err)
	}
	rule.Action = action

	if parts[1] != "" {
		re, err := regexp.Compile(`(?i)^(?:` + parts[1] + `)`)
		if err != nil {
			return fail("message", fmt.Errorf("%w: %v", ErrBadPattern, err))
		}
		rule.Message = re
	}

	if parts[2] != "" {
		if tx != nil && !tx.Known(parts[2]) {
			return fail("category", fmt.Errorf("%w: %s", ErrUnknownCategory, parts[2]))
		}
		rule.Category = parts[2]
	}

	rule.Module = parts[3]

	if parts[4] != "" {
		n, err := strconv.Atoi(parts[4])
		if err != nil || n < 0 {
			return fail("lineno", fmt.Errorf("%w: %q", ErrBadLine, parts[4]))
		}
		line, err := safecast.Conv[uint32](n)
		if err != nil {
			return fail("lineno", fmt.Errorf("%w: %v", ErrBadLine, err))
		}
		rule.Line = line
	}
	return rule, nil
}

// MustParseRule is ParseRule that panics on error. Intended for built-ins and tests.
func MustParseRule(spec string, origin Origin, tx *warning.Taxonomy) Rule {
	r, err := ParseRule(spec, origin, tx)
	if err != nil {
		panic(err)
	}
	return r
}

// Matches reports whether every non-empty field of the rule matches rec.
func (r *Rule) Matches(rec *warning.Record, tx *warning.Taxonomy) bool {
	if r.Message != nil && !r.Message.MatchString(rec.Message) {
		return false
	}
	if r.Category != "" {
		if tx == nil {
			if rec.Category != r.Category {
				return false
			}
		} else if !tx.IsA(rec.Category, r.Category) {
			return false
		}
	}
	if r.Module != "" && r.Module != rec.Module {
		return false
	}
	if r.Line != 0 && r.Line != rec.Line {
		return false
	}
	return true
}

// String renders the rule back in specification form.
func (r Rule) String() string {
	msg := ""
	if r.Message != nil {
		msg = strings.TrimSuffix(strings.TrimPrefix(r.Message.String(), `(?i)^(?:`), `)`)
	}
	line := ""
	if r.Line != 0 {
		line = strconv.FormatUint(uint64(r.Line), 10)
	}
	return strings.TrimRight(strings.Join([]string{r.Action.String(), msg, r.Category, r.Module, line}, ":"), ":")
}
