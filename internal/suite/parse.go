package suite

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"caveat/internal/warning"
)

type parser struct {
	file  *File
	errs  []error
	test  *Test
	phase warning.Phase
	names map[string]uint32
	line  uint32
}

// Parse parses script content. All malformed lines are reported.
func Parse(path string, content []byte) (*File, error) {
	p := &parser{
		file:  &File{Path: path, Module: ModuleName(path)},
		names: make(map[string]uint32),
	}
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	n := 0
	for sc.Scan() {
		n++
		line, err := safecast.Conv[uint32](n)
		if err != nil {
			return nil, err
		}
		p.line = line
		p.parseLine(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.flush()
	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	return p.file, nil
}

func (p *parser) errorf(base error, format string, args ...any) {
	p.errs = append(p.errs, &ParseError{
		Path: p.file.Path,
		Line: p.line,
		Err:  fmt.Errorf("%w: "+format, append([]any{base}, args...)...),
	})
}

func (p *parser) flush() {
	if p.test != nil {
		p.file.Tests = append(p.file.Tests, *p.test)
		p.test = nil
	}
}

func (p *parser) parseLine(raw string) {
	text := strings.TrimSpace(raw)
	if text == "" || strings.HasPrefix(text, "#") {
		return
	}
	word, rest := splitWord(text)

	if phase, err := warning.ParsePhase(strings.TrimSuffix(word, ":")); err == nil && rest == "" {
		p.enterPhase(phase)
		return
	}

	switch word {
	case "test":
		p.startTest(rest)
	case "category":
		p.defineCategory(rest)
	case "warn":
		category, message := splitWord(rest)
		if category == "" {
			p.errorf(ErrSyntax, "warn needs a category")
			return
		}
		msg, ok := p.message(message)
		if !ok {
			return
		}
		p.add(Stmt{Kind: StmtWarn, Category: category, Message: msg})
	case "fail":
		msg, ok := p.message(rest)
		if !ok {
			return
		}
		p.add(Stmt{Kind: StmtFail, Message: msg})
	case "pass":
		if rest != "" {
			p.errorf(ErrSyntax, "pass takes no arguments")
			return
		}
		p.add(Stmt{Kind: StmtPass})
	default:
		p.errorf(ErrSyntax, "unknown statement %q", word)
	}
}

func (p *parser) startTest(name string) {
	p.flush()
	if name == "" || strings.ContainsAny(name, " \t:") {
		p.errorf(ErrSyntax, "invalid test name %q", name)
		return
	}
	if prev, ok := p.names[name]; ok {
		p.errorf(ErrDuplicateTest, "%s (first declared on line %d)", name, prev)
		return
	}
	p.names[name] = p.line
	p.test = &Test{Name: name, Line: p.line}
	p.phase = warning.PhaseCall
}

func (p *parser) enterPhase(phase warning.Phase) {
	if p.test == nil {
		p.errorf(ErrOutsideTest, "%s", phase)
		return
	}
	if p.test.Declared[phase-1] {
		p.errorf(ErrDuplicatePhase, "%s", phase)
		return
	}
	p.test.Declared[phase-1] = true
	p.phase = phase
}

func (p *parser) defineCategory(rest string) {
	name, parent := splitWord(rest)
	parent, extra := splitWord(parent)
	if name == "" || extra != "" {
		p.errorf(ErrSyntax, "expected: category <Name> [<Parent>]")
		return
	}
	p.file.Categories = append(p.file.Categories, CategoryDef{Name: name, Parent: parent, Line: p.line})
}

func (p *parser) add(st Stmt) {
	if p.test == nil {
		p.errorf(ErrOutsideTest, "%s", p.statementName(st))
		return
	}
	st.Line = p.line
	idx := p.phase - 1
	p.test.Declared[idx] = true
	p.test.Phases[idx] = append(p.test.Phases[idx], st)
}

func (p *parser) statementName(st Stmt) string {
	switch st.Kind {
	case StmtWarn:
		return "warn"
	case StmtFail:
		return "fail"
	}
	return "pass"
}

// message accepts a Go-quoted string or bare text.
func (p *parser) message(s string) (string, bool) {
	if !strings.HasPrefix(s, `"`) {
		return s, true
	}
	msg, err := strconv.Unquote(s)
	if err != nil {
		p.errorf(ErrSyntax, "bad quoted message %s", s)
		return "", false
	}
	return msg, true
}

func splitWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}
