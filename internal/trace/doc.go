// Package trace is caveat's structured log.
//
// A run emits spans for the session, every node and every phase, plus an
// instant event per intercepted warning with the action the filter chose.
// That is enough to answer "why was this warning hidden" after the fact:
//
//	caveat run --trace=run.ndjson --trace-level=debug tests/
//
// Tracers: Nop when disabled, StreamTracer writing text or NDJSON,
// RingTracer keeping the tail in memory for panic dumps, and MultiTracer
// combining the last two. Levels go from off through error (ring only),
// session, phase, up to debug (warnings).
//
// The tracer travels in the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeNode, "node:"+id, trace.ParentID(ctx))
//	defer span.End("")
package trace
