// Package report writes the terminal report of a session.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"caveat/internal/session"
	"caveat/internal/summary"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

// Section titles.
const (
	TitleSessionStarts = "test session starts"
	TitleFailures      = "FAILURES"
)

// Options configures a Writer.
type Options struct {
	Width int
	Color bool
	// Verbose lists every node with its outcome.
	Verbose bool
}

// Writer renders report sections. The first write error is kept and every
// later call becomes a no-op.
type Writer struct {
	out     io.Writer
	width   int
	verbose bool
	err     error

	red, green, yellow, bold *color.Color
}

// New creates a writer.
func New(out io.Writer, opts Options) *Writer {
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}
	w := &Writer{
		out:     out,
		width:   width,
		verbose: opts.Verbose,
		red:     color.New(color.FgRed, color.Bold),
		green:   color.New(color.FgGreen, color.Bold),
		yellow:  color.New(color.FgYellow, color.Bold),
		bold:    color.New(color.Bold),
	}
	for _, c := range []*color.Color{w.red, w.green, w.yellow, w.bold} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return w
}

// TerminalWidth returns the width of the terminal behind fd, or DefaultWidth.
func TerminalWidth(fd int) int {
	if !term.IsTerminal(fd) {
		return DefaultWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}

// Err returns the first write error.
func (w *Writer) Err() error { return w.err }

func (w *Writer) println(s string) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintln(w.out, s)
}

// Sep returns title centred in a line of fill characters.
func (w *Writer) Sep(fill, title string) string {
	if title == "" {
		return strings.Repeat(fill, w.width)
	}
	free := w.width - runewidth.StringWidth(title) - 2
	if free < 2 {
		free = 2
	}
	left := free / 2
	return strings.Repeat(fill, left) + " " + title + " " + strings.Repeat(fill, free-left)
}

// Start writes the session header.
func (w *Writer) Start(root string, nodes int) {
	w.println(w.bold.Sprint(w.Sep("=", TitleSessionStarts)))
	if root != "" {
		w.println("rootdir: " + root)
	}
	w.println("collected " + items(nodes))
	w.println("")
}

func items(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

// Node writes the outcome line of one node when verbose.
func (w *Writer) Node(o session.Outcome) {
	if !w.verbose {
		return
	}
	if o.Passed {
		w.println(o.NodeID + " " + w.green.Sprint("PASSED"))
		return
	}
	w.println(o.NodeID + " " + w.red.Sprint("FAILED"))
}

// Failures writes the failures section; nothing when every node passed.
func (w *Writer) Failures(outcomes []session.Outcome) {
	var failed []session.Outcome
	for _, o := range outcomes {
		if !o.Passed {
			failed = append(failed, o)
		}
	}
	if len(failed) == 0 {
		return
	}
	w.println(w.Sep("=", TitleFailures))
	for _, o := range failed {
		w.println(w.red.Sprint(w.Sep("_", o.NodeID)))
		w.println("")
		w.println(w.red.Sprint("E       " + o.Message))
		switch {
		case o.Location != "" && o.Category != "":
			w.println(o.Location + ": " + o.Category)
		case o.Location != "":
			w.println(o.Location)
		case o.Phase != 0:
			w.println("in " + o.Phase.String())
		}
		w.println("")
	}
}

// Finish writes the warnings summary (if any) and the final result line.
func (w *Writer) Finish(outcomes []session.Outcome, rep summary.Report, elapsed time.Duration) {
	passed, failed := Count(outcomes)
	outcome := summary.ResultLine(count(failed, "failed"), count(passed, "passed"))

	final := summary.ResultLine(outcome, rep.Fragment())
	if lines := rep.Lines(outcome); len(lines) > 0 {
		w.println(w.yellow.Sprint(w.Sep("=", lines[0])))
		for _, l := range lines[1 : len(lines)-1] {
			w.println(l)
		}
		w.println("")
		final = lines[len(lines)-1]
	}
	if final == "" {
		final = "no tests ran"
	}
	final += " in " + FormatElapsed(elapsed)

	c := w.green
	switch {
	case failed > 0:
		c = w.red
	case !rep.Empty() || passed == 0:
		c = w.yellow
	}
	w.println(c.Sprint(w.Sep("=", final)))
}

// Count returns the number of passed and failed outcomes.
func Count(outcomes []session.Outcome) (passed, failed int) {
	for _, o := range outcomes {
		if o.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

func count(n int, word string) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d %s", n, word)
}

// FormatElapsed renders a duration as seconds with two decimals.
func FormatElapsed(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
