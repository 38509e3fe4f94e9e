package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat periodically emits liveness events naming the phase that has been
// running longest, so a hanging test shows up in the trace while it hangs.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// StartHeartbeat starts emitting heartbeat events every interval.
// It returns nil when tracing is disabled or interval is not positive.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{
		tracer:   tracer,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Heartbeat) run() {
	defer close(h.done)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for beat := uint64(1); ; beat++ {
		select {
		case <-ticker.C:
			h.tracer.Emit(&Event{
				Time:   time.Now(),
				Seq:    NextSeq(),
				Kind:   KindHeartbeat,
				Scope:  ScopeSession,
				GID:    goroutineID(),
				Name:   "heartbeat",
				Detail: heartbeatDetail(beat),
			})
		case <-h.stop:
			return
		}
	}
}

func heartbeatDetail(beat uint64) string {
	span, n, ok := Oldest()
	if !ok {
		return fmt.Sprintf("#%d idle", beat)
	}
	return fmt.Sprintf("#%d open=%d %s %s for %s", beat, n, span.Scope, span.Name, span.Age.Round(time.Millisecond))
}

// Stop ends the heartbeat and waits for its goroutine. Safe to call on nil
// and more than once.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stop) })
	<-h.done
}
