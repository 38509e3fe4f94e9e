package capture

import (
	"context"
	"errors"
	"testing"

	"caveat/internal/intercept"
	"caveat/internal/warning"
)

func TestRun_WarnThroughContext(t *testing.T) {
	ic, _ := newContext(t)
	res, err := Run(context.Background(), ic, Options{NodeID: "n", Phase: warning.PhaseCall}, func(ctx context.Context) error {
		return intercept.Warn(ctx, warning.UserWarning, "from ctx")
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Captured) != 1 || res.Captured[0].Record.Message != "from ctx" {
		t.Errorf("captured = %+v", res.Captured)
	}
}

func TestRun_PanicRestores(t *testing.T) {
	ic, _ := newContext(t)
	before := ic.Snapshot()
	res, err := Run(context.Background(), ic, Options{NodeID: "n", Phase: warning.PhaseSetup}, func(ctx context.Context) error {
		_ = intercept.Warn(ctx, warning.UserWarning, "first")
		panic("kaboom")
	})
	var perr *PanicError
	if !errors.As(err, &perr) || perr.Value != "kaboom" {
		t.Fatalf("expected PanicError, got %v", err)
	}
	if len(res.Captured) != 1 {
		t.Errorf("warnings raised before the panic are kept, got %d", len(res.Captured))
	}
	if after := ic.Snapshot(); !after.Equal(before) {
		t.Errorf("state not restored after panic")
	}
}

func TestRun_Cancelled(t *testing.T) {
	ic, _ := newContext(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	_, err := Run(ctx, ic, Options{NodeID: "n", Phase: warning.PhaseCall}, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Errorf("phase must not run on a cancelled context")
	}
	if ic.Snapshot().Depth != 0 {
		t.Errorf("nothing should be installed")
	}
}

func TestRun_CancelledDuringPhase(t *testing.T) {
	ic, _ := newContext(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := Run(ctx, ic, Options{NodeID: "n", Phase: warning.PhaseCall}, func(context.Context) error {
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
