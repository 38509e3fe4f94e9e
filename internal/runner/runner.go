// Package runner executes test nodes phase by phase, capturing the warnings
// each phase raises.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"caveat/internal/capture"
	"caveat/internal/escalate"
	"caveat/internal/filter"
	"caveat/internal/intercept"
	"caveat/internal/session"
	"caveat/internal/source"
	"caveat/internal/trace"
	"caveat/internal/warning"
)

// Config configures a Runner.
type Config struct {
	Taxonomy *warning.Taxonomy
	// Rules is the session rule list; nil means built-in defaults.
	Rules *filter.List
	Dedup filter.DedupMode
	// Jobs > 1 runs nodes concurrently, each with its own interception context.
	// Zero means sequential; negative means GOMAXPROCS.
	Jobs int
	// Intercept is the context used when running sequentially.
	Intercept *intercept.Context
	Sources   *source.Cache
	Tracer    trace.Tracer
	Progress  ProgressSink
	// Output receives warnings raised outside of any phase.
	Output io.Writer
}

// PhaseError is a failure attributed to a phase.
type PhaseError struct {
	Phase warning.Phase
	Err   error
}

func (e PhaseError) Error() string { return e.Phase.String() + ": " + e.Err.Error() }

func (e PhaseError) Unwrap() error { return e.Err }

// NodeResult is the outcome of one node.
type NodeResult struct {
	NodeID   string
	Failures []PhaseError
	Captured []capture.Captured
	Elapsed  time.Duration
	// Ran lists the phases that were executed.
	Ran []warning.Phase
}

// Passed reports whether the node finished without failures.
func (r *NodeResult) Passed() bool { return len(r.Failures) == 0 }

// First returns the failure reported for the node (the first one).
func (r *NodeResult) First() (PhaseError, bool) {
	if len(r.Failures) == 0 {
		return PhaseError{}, false
	}
	return r.Failures[0], true
}

// Outcome converts the result to its journal form.
func (r *NodeResult) Outcome() session.Outcome {
	out := session.Outcome{NodeID: r.NodeID, Passed: r.Passed()}
	first, ok := r.First()
	if !ok {
		return out
	}
	out.Phase = first.Phase
	out.Message = first.Err.Error()
	var f *escalate.Failure
	if errors.As(first.Err, &f) {
		out.Category = f.Category
		out.Location = f.Location()
	}
	return out
}

// Result is the outcome of a run.
type Result struct {
	Nodes     []NodeResult
	Aggregate *session.Aggregate
	Passed    int
	Failed    int
	Elapsed   time.Duration
}

// Outcomes returns the journal form of every node result.
func (r *Result) Outcomes() []session.Outcome {
	out := make([]session.Outcome, len(r.Nodes))
	for i := range r.Nodes {
		out[i] = r.Nodes[i].Outcome()
	}
	return out
}

// Runner executes nodes and feeds kept warnings to the session aggregate.
type Runner struct {
	cfg   Config
	agg   *session.Aggregate
	dedup *filter.Deduper
}

// New creates a runner with a fresh session aggregate.
func New(cfg Config) *Runner {
	if cfg.Taxonomy == nil {
		cfg.Taxonomy = cfg.Rules.Taxonomy()
	}
	if cfg.Taxonomy == nil {
		cfg.Taxonomy = warning.NewTaxonomy()
	}
	if cfg.Rules == nil {
		cfg.Rules = filter.NewList(cfg.Taxonomy, filter.DefaultRules(cfg.Taxonomy)...)
	}
	if cfg.Jobs < 0 {
		cfg.Jobs = runtime.GOMAXPROCS(0)
	}
	if cfg.Tracer == nil {
		cfg.Tracer = trace.Nop
	}
	if cfg.Sources == nil {
		cfg.Sources = source.NewCache()
	}
	return &Runner{
		cfg:   cfg,
		agg:   session.New(),
		dedup: filter.NewDeduper(cfg.Dedup),
	}
}

// Aggregate returns the session aggregate the runner feeds.
func (r *Runner) Aggregate() *session.Aggregate { return r.agg }

// Run executes nodes in order. The error is non-nil only when the session
// could not complete: cancellation or intercept.ErrCorrupted. Results of
// the nodes that finished are returned in both cases.
func (r *Runner) Run(ctx context.Context, nodes []Node) (Result, error) {
	start := time.Now()
	span := trace.Begin(r.cfg.Tracer, trace.ScopeSession, "session", trace.ParentID(ctx)).
		WithExtra("nodes", fmt.Sprint(len(nodes)))
	ctx = trace.WithSpan(ctx, span)

	for i := range nodes {
		emit(r.cfg.Progress, Event{Node: nodes[i].ID, Status: StatusQueued})
	}

	var (
		results []NodeResult
		err     error
	)
	if r.cfg.Jobs > 1 && len(nodes) > 1 {
		results, err = r.runParallel(ctx, span.ID(), nodes)
	} else {
		results, err = r.runSequential(ctx, span.ID(), nodes)
	}

	res := Result{Nodes: results, Aggregate: r.agg, Elapsed: time.Since(start)}
	for i := range results {
		if results[i].Passed() {
			res.Passed++
		} else {
			res.Failed++
		}
	}
	span.WithExtra("passed", fmt.Sprint(res.Passed)).
		WithExtra("failed", fmt.Sprint(res.Failed)).
		WithExtra("warnings", fmt.Sprint(r.agg.Len()))
	span.Fail(err).End("")
	return res, err
}

func (r *Runner) runSequential(ctx context.Context, parent uint64, nodes []Node) ([]NodeResult, error) {
	ic := r.cfg.Intercept
	if ic == nil {
		ic = r.isolated()
	}
	results := make([]NodeResult, 0, len(nodes))
	for i := range nodes {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := r.runNode(ctx, ic, parent, &nodes[i])
		if err != nil {
			return results, err
		}
		r.feed(&res)
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) runParallel(ctx context.Context, parent uint64, nodes []Node) ([]NodeResult, error) {
	// индексы уникальны для каждой горутины, мьютекс не нужен
	results := make([]NodeResult, len(nodes))
	done := make([]bool, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(r.cfg.Jobs, len(nodes)))
	for i := range nodes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.runNode(gctx, r.isolated(), parent, &nodes[i])
			if err != nil {
				return err
			}
			results[i] = res
			done[i] = true
			return nil
		})
	}
	err := g.Wait()

	// aggregate in node order so deduplication does not depend on scheduling
	out := make([]NodeResult, 0, len(nodes))
	for i := range results {
		if !done[i] {
			continue
		}
		r.feed(&results[i])
		out = append(out, results[i])
	}
	return out, err
}

func (r *Runner) isolated() *intercept.Context {
	return intercept.New(intercept.Options{
		Taxonomy: r.cfg.Taxonomy,
		Rules:    r.cfg.Rules,
		Output:   r.cfg.Output,
	})
}

func (r *Runner) feed(res *NodeResult) {
	for _, c := range res.Captured {
		r.agg.Offer(c.Record, c.Action, r.dedup)
	}
}

// runNode executes setup, call and teardown. A setup failure skips the call;
// teardown runs whenever setup was started.
func (r *Runner) runNode(ctx context.Context, ic *intercept.Context, parent uint64, node *Node) (NodeResult, error) {
	start := time.Now()
	span := trace.Begin(r.cfg.Tracer, trace.ScopeNode, "node:"+node.ID, parent)
	res := NodeResult{NodeID: node.ID}

	for _, phase := range warning.Phases {
		fn := node.phase(phase)
		if fn == nil {
			continue
		}
		if phase == warning.PhaseCall && !res.Passed() {
			continue
		}
		emit(r.cfg.Progress, Event{Node: node.ID, Phase: phase, Status: StatusWorking})
		if err := r.runPhase(ctx, ic, span.ID(), node, phase, fn, &res); err != nil {
			span.End(err.Error())
			return res, fmt.Errorf("%s: %s: %w", node.ID, phase, err)
		}
	}

	res.Elapsed = time.Since(start)
	status := StatusPassed
	var firstErr error
	if first, ok := res.First(); ok {
		status = StatusFailed
		firstErr = first
	}
	span.WithExtra("warnings", fmt.Sprint(len(res.Captured)))
	span.End(string(status))
	emit(r.cfg.Progress, Event{
		Node:     node.ID,
		Status:   status,
		Warnings: len(res.Captured),
		Err:      firstErr,
		Elapsed:  res.Elapsed,
	})
	return res, nil
}

// runPhase records the phase outcome in res. The error is non-nil only for
// conditions that end the session.
func (r *Runner) runPhase(ctx context.Context, ic *intercept.Context, parent uint64, node *Node, phase warning.Phase, fn PhaseFunc, res *NodeResult) error {
	t := &T{ic: ic, node: node, phase: phase}
	opts := capture.Options{
		NodeID:  node.ID,
		Phase:   phase,
		Module:  node.Module,
		Rules:   r.cfg.Rules,
		Sources: r.cfg.Sources,
		Tracer:  r.cfg.Tracer,
		Parent:  parent,
	}
	captured, err := capture.Run(ctx, ic, opts, func(ctx context.Context) error {
		t.ctx = ctx
		return fn(t)
	})
	res.Ran = append(res.Ran, phase)
	res.Captured = append(res.Captured, captured.Captured...)

	if errors.Is(err, intercept.ErrCorrupted) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var failure error
	switch {
	case captured.Failure != nil:
		failure = captured.Failure
	case err != nil:
		failure = err
	case t.Failed():
		failure = t.fails[0]
	}
	if failure != nil {
		res.Failures = append(res.Failures, PhaseError{Phase: phase, Err: failure})
	}
	return nil
}
