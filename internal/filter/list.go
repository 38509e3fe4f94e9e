package filter

import (
	"errors"

	"caveat/internal/warning"
)

// DefaultRules returns the built-in rules: show everything once per location.
func DefaultRules(tx *warning.Taxonomy) []Rule {
	return []Rule{MustParseRule("default::"+warning.Warning, OriginDefault, tx)}
}

// List is an immutable, ordered set of rules.
// Rules are stored in concatenation order and searched from the end, so later
// rules take precedence.
type List struct {
	rules []Rule
	tx    *warning.Taxonomy
}

// NewList builds a list from already compiled rules, lowest precedence first.
func NewList(tx *warning.Taxonomy, rules ...Rule) *List {
	return &List{rules: append([]Rule(nil), rules...), tx: tx}
}

// Build compiles the session rule list: built-in defaults, then configuration
// rules, then command-line rules. Every invalid specification is reported.
func Build(tx *warning.Taxonomy, config, cmdline []string) (*List, error) {
	rules := DefaultRules(tx)
	var errs []error
	add := func(specs []string, origin Origin) {
		for _, spec := range specs {
			r, err := ParseRule(spec, origin, tx)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			rules = append(rules, r)
		}
	}
	add(config, OriginConfig)
	add(cmdline, OriginCmdline)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return NewList(tx, rules...), nil
}

// Classify returns the action of the highest-precedence matching rule, or
// ActionDefault when nothing matches. It has no side effects.
func (l *List) Classify(rec *warning.Record) Action {
	if r, ok := l.Match(rec); ok {
		return r.Action
	}
	return ActionDefault
}

// Match returns the highest-precedence rule matching rec.
func (l *List) Match(rec *warning.Record) (Rule, bool) {
	if l == nil {
		return Rule{}, false
	}
	for i := len(l.rules) - 1; i >= 0; i-- {
		if l.rules[i].Matches(rec, l.tx) {
			return l.rules[i], true
		}
	}
	return Rule{}, false
}

// Rules returns the rules in precedence order (first searched first).
func (l *List) Rules() []Rule {
	if l == nil {
		return nil
	}
	out := make([]Rule, 0, len(l.rules))
	for i := len(l.rules) - 1; i >= 0; i-- {
		out = append(out, l.rules[i])
	}
	return out
}

// Len returns the number of rules.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.rules)
}

// Taxonomy returns the category tree the list was compiled against.
func (l *List) Taxonomy() *warning.Taxonomy {
	if l == nil {
		return nil
	}
	return l.tx
}
