package trace

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// StreamTracer writes events to an io.Writer through a buffer. The buffer is
// flushed on session-scope events and heartbeats, so a hanging run can be
// followed with tail -f.
type StreamTracer struct {
	mu     sync.Mutex
	out    io.Writer
	buf    *bufio.Writer
	level  Level
	format Format
}

// NewStreamTracer creates a StreamTracer writing to w.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{
		out:    w,
		buf:    bufio.NewWriter(w),
		level:  level,
		format: format,
	}
}

// Emit formats and buffers ev. Write errors are dropped: tracing never fails
// a test run.
func (t *StreamTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	ev.Seq = NextSeq()
	data := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.buf.Write(data)
	if ev.Kind == KindHeartbeat || ev.Scope == ScopeSession {
		_ = t.buf.Flush()
	}
}

// Flush writes buffered events.
func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Flush()
}

// Close flushes and closes the writer if it implements io.Closer.
func (t *StreamTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.buf.Flush()
	if closer, ok := t.out.(io.Closer); ok {
		err = errors.Join(err, closer.Close())
	}
	return err
}

func (t *StreamTracer) Level() Level { return t.level }

func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
