package capture

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"caveat/internal/intercept"
)

// PanicError is returned by Run when the phase function panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// Run executes fn inside a capture scope. The scope is exited on every path,
// including panics. fn receives ctx with ic attached. The returned error is
// the phase error (fn's error, a panic or cancellation) joined with any
// restore error.
func Run(ctx context.Context, ic *intercept.Context, opts Options, fn func(context.Context) error) (res Result, err error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s, err := Enter(ic, opts)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
		var exitErr error
		res, exitErr = s.Exit()
		if exitErr != nil {
			err = errors.Join(err, exitErr)
		}
	}()

	err = fn(intercept.WithContext(ctx, ic))
	if err == nil {
		err = ctx.Err()
	}
	return res, err
}
