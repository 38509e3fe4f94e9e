package runner

import (
	"time"

	"caveat/internal/warning"
)

// Status captures the progress state of a node.
type Status string

const (
	// StatusQueued indicates the node is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates a phase of the node is running.
	StatusWorking Status = "working"
	// StatusPassed indicates the node finished without failures.
	StatusPassed Status = "passed"
	// StatusFailed indicates at least one phase failed.
	StatusFailed Status = "failed"
)

// Event reports progress of a run. Node is empty for session-wide events.
type Event struct {
	Node     string
	Phase    warning.Phase
	Status   Status
	Warnings int
	Err      error
	Elapsed  time.Duration
}

// ProgressSink consumes progress events. Must be goroutine-safe when the
// runner uses more than one job.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func emit(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}
