// Package logging assembles structured slog loggers and formatting helpers used
// across sweeper.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes the standard field keys so dispatcher code tags every
// line with the run ID, entry, and device in the same shape. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
