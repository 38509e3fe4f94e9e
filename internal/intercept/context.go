package intercept

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"fortio.org/safecast"

	"caveat/internal/filter"
	"caveat/internal/warning"
)

// ErrCorrupted reports that Restore found the context in a state it did not
// install. Everything raised afterwards may be routed to the wrong consumer.
var ErrCorrupted = errors.New("warning interception state corrupted")

// Mode controls deduplication done by the context itself.
type Mode uint8

const (
	// ModeFilter applies the installed rules, including once-per-location
	// suppression.
	ModeFilter Mode = iota + 1
	// ModeAlways disables the context's own suppression; consumers dedup.
	ModeAlways
)

func (m Mode) String() string {
	switch m {
	case ModeFilter:
		return "filter"
	case ModeAlways:
		return "always"
	}
	return "unknown"
}

// Location is the call site that raised a warning.
type Location struct {
	File   string
	Line   uint32
	Module string
}

// Occurrence is a raw warning as delivered to listeners.
type Occurrence struct {
	Category string
	Message  string
	Location
}

// Listener receives every warning raised while it is installed.
// A non-nil error is returned to the code that raised the warning.
// Implementations must be comparable (pointer receivers), Restore compares them.
type Listener interface {
	Notify(occ Occurrence) error
}

// Error is returned by Warn when the context's own rules escalate a warning.
type Error struct {
	Category string
	Message  string
	Location Location
}

func (e *Error) Error() string { return e.Category + ": " + e.Message }

// Options configures a Context.
type Options struct {
	Taxonomy *warning.Taxonomy
	Rules    *filter.List
	// Output receives warnings shown with no listener installed (default stderr).
	Output io.Writer
}

// Context holds the mutable warning interception state.
type Context struct {
	mu       sync.Mutex
	tx       *warning.Taxonomy
	rules    *filter.List
	mode     Mode
	stack    []Listener
	registry *filter.Deduper
	out      io.Writer
}

// New creates a context with no listener installed.
func New(opts Options) *Context {
	tx := opts.Taxonomy
	if tx == nil {
		tx = warning.NewTaxonomy()
	}
	rules := opts.Rules
	if rules == nil {
		rules = filter.NewList(tx, filter.DefaultRules(tx)...)
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return &Context{
		tx:       tx,
		rules:    rules,
		mode:     ModeFilter,
		registry: filter.NewDeduper(filter.DedupLocation),
		out:      out,
	}
}

var (
	defaultOnce sync.Once
	defaultCtx  *Context
)

// Default returns the process-wide context used when none is attached to a
// context.Context.
func Default() *Context {
	defaultOnce.Do(func() { defaultCtx = New(Options{}) })
	return defaultCtx
}

type ctxKey struct{}

// WithContext attaches c to ctx.
func WithContext(ctx context.Context, c *Context) context.Context {
	if c == nil {
		c = Default()
	}
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext extracts the interception context, falling back to Default.
func FromContext(ctx context.Context) *Context {
	if ctx != nil {
		if c, ok := ctx.Value(ctxKey{}).(*Context); ok && c != nil {
			return c
		}
	}
	return Default()
}

// Warn raises a warning through the context attached to ctx, located at the
// caller of Warn.
func Warn(ctx context.Context, category, message string) error {
	return FromContext(ctx).WarnSkip(1, category, message)
}

// Taxonomy returns the category tree used by c.
func (c *Context) Taxonomy() *warning.Taxonomy { return c.tx }

// Warn raises a warning located at the caller of Warn.
func (c *Context) Warn(category, message string) error {
	return c.WarnSkip(1, category, message)
}

// Warnf is Warn with a formatted message.
func (c *Context) Warnf(category, format string, args ...any) error {
	return c.WarnSkip(1, category, fmt.Sprintf(format, args...))
}

// WarnSkip raises a warning located skip frames above the caller of WarnSkip.
func (c *Context) WarnSkip(skip int, category, message string) error {
	return c.WarnAt(Caller(skip+1), category, message)
}

// WarnAt raises a warning with an explicit location.
func (c *Context) WarnAt(loc Location, category, message string) error {
	occ := Occurrence{
		Category: c.tx.Ensure(category),
		Message:  message,
		Location: loc,
	}

	c.mu.Lock()
	var top Listener
	if n := len(c.stack); n > 0 {
		top = c.stack[n-1]
	}
	rules, mode := c.rules, c.mode
	c.mu.Unlock()

	if top != nil {
		return top.Notify(occ)
	}
	return c.show(occ, rules, mode)
}

// show is the behaviour with nobody listening.
func (c *Context) show(occ Occurrence, rules *filter.List, mode Mode) error {
	rec := warning.Record{
		Message:  occ.Message,
		Category: occ.Category,
		Filename: occ.File,
		Line:     occ.Line,
		Module:   occ.Module,
	}
	action := rules.Classify(&rec)
	switch action {
	case filter.ActionError:
		return &Error{Category: occ.Category, Message: occ.Message, Location: occ.Location}
	case filter.ActionIgnore:
		return nil
	}
	if mode != ModeAlways && !c.registry.Admit(&rec, action) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.out, rec.Header())
	return err
}

// Caller resolves the location skip frames above the caller of Caller.
func Caller(skip int) Location {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return Location{File: "<unknown>", Line: warning.UnknownLine}
	}
	ln, err := safecast.Conv[uint32](line)
	if err != nil {
		ln = warning.UnknownLine
	}
	loc := Location{File: file, Line: ln}
	if fn := runtime.FuncForPC(pc); fn != nil {
		loc.Module = packageOf(fn.Name())
	}
	return loc
}

// packageOf extracts the import path from a qualified function name such as
// "example.com/pkg.(*T).Method.func1".
func packageOf(funcName string) string {
	slash := strings.LastIndexByte(funcName, '/')
	dot := strings.IndexByte(funcName[slash+1:], '.')
	if dot < 0 {
		return funcName
	}
	return funcName[:slash+1+dot]
}
