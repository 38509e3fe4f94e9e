// Package summary renders the end-of-session warnings summary.
package summary

import (
	"strconv"
	"strings"

	"caveat/internal/filter"
	"caveat/internal/session"
	"caveat/internal/warning"
)

// Header is the section title consumers match on verbatim.
const Header = "warnings summary"

// Indent prefixes source lines under their entry.
const Indent = "  "

// Entry is one distinct warning in the summary.
type Entry struct {
	Record warning.Record
	// Occurrences counts how many aggregated records collapsed into this entry.
	Occurrences int
}

// Report is the rendered summary.
type Report struct {
	Entries []Entry
}

type entryKey struct {
	file     string
	line     uint32
	category string
	message  string
	phase    warning.Phase
}

// Render collapses the aggregate into distinct entries keyed by filename,
// line, category and message. Under filter.DedupPhase the phase is part of
// the key too, so a location warned in setup and teardown is listed twice.
// Node groups are walked in first-seen order and records in capture order;
// an entry sits where its key was first seen.
func Render(groups []session.Group, mode filter.DedupMode) Report {
	var rep Report
	index := make(map[entryKey]int)
	for _, g := range groups {
		for _, rec := range g.Records {
			key := entryKey{file: rec.Filename, line: rec.Line, category: rec.Category, message: rec.Message}
			if mode == filter.DedupPhase {
				key.phase = rec.Phase
			}
			if i, ok := index[key]; ok {
				rep.Entries[i].Occurrences++
				continue
			}
			index[key] = len(rep.Entries)
			rep.Entries = append(rep.Entries, Entry{Record: rec, Occurrences: 1})
		}
	}
	return rep
}

// Count returns the number of distinct warnings.
func (r Report) Count() int { return len(r.Entries) }

// Empty reports whether there is nothing to show.
func (r Report) Empty() bool { return len(r.Entries) == 0 }

// Fragment returns the warnings part of the final result line, e.g.
// "2 warnings", or "" when there are none.
func (r Report) Fragment() string {
	return Plural(r.Count(), "warning")
}

// Body returns the entry lines: the header line of every entry followed by
// its indented source line when known.
func (r Report) Body() []string {
	lines := make([]string, 0, 2*len(r.Entries))
	for _, e := range r.Entries {
		lines = append(lines, e.Record.Header())
		if src := e.Record.SourceLine; src != "" {
			lines = append(lines, Indent+src)
		}
	}
	return lines
}

// Lines returns the whole section: the header, the body, and the result
// line made of outcome (e.g. "1 passed", supplied by the caller) and the
// warnings fragment. An empty report yields no lines at all.
func (r Report) Lines(outcome string) []string {
	if r.Empty() {
		return nil
	}
	lines := make([]string, 0, 2+2*len(r.Entries))
	lines = append(lines, Header)
	lines = append(lines, r.Body()...)
	lines = append(lines, ResultLine(outcome, r.Fragment()))
	return lines
}

// ResultLine joins the non-empty fragments with ", ".
func ResultLine(fragments ...string) string {
	var parts []string
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, ", ")
}

// Plural formats "<n> <noun>" adding an "s" unless n is 1. Zero gives "".
func Plural(n int, noun string) string {
	switch n {
	case 0:
		return ""
	case 1:
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
