// Package intercept is the ambient warning system code under test raises
// warnings through.
//
// A Context plays the role of process-wide warning state, but it is an explicit
// value: tests create a fresh one per case and the runner gives every concurrent
// worker its own. Code reaches it through context.Context:
//
//	ic := intercept.FromContext(ctx)
//	if err := ic.Warn(warning.DeprecationWarning, "use NewClient instead"); err != nil {
//		return err // the warning was escalated to an error
//	}
//
// Listeners (capture scopes) are installed with Install and removed with Restore.
// Install returns the prior state; Restore puts it back and reports ErrCorrupted
// when someone else changed the context in between.
//
// With no listener installed the context filters warnings itself and prints the
// ones it shows to its output, once per location unless the rules say otherwise.
package intercept
