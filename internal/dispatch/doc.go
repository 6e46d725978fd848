// Package dispatch runs an external analysis program once per immediate child
// of a parent directory.
//
// A Dispatcher enumerates the parent with an explicit directory read, builds
// one Invocation per entry (command, prefix arguments, entry path, output
// name), and hands each to a Runner together with a per-process environment
// override naming the GPU device. The ambient process environment is never
// mutated. Runs are strictly sequential; when several sweeper processes share
// a device, an optional Locker serializes them.
//
// Failures are governed by Policy: best_effort keeps going and reports every
// failed entry, fail_fast stops at the first one and marks the rest skipped.
// Entry failures are reported through Report.Err; run-level problems (an
// invalid parent, a lock that could not be taken, cancellation) are returned
// directly from Run.
package dispatch
