// Package history persists dispatch runs and their per-entry outcomes in a
// SQLite ledger so past sweeps can be listed, inspected, and pruned.
//
// The Recorder type plugs into dispatch.Dispatcher as an Observer and writes
// each outcome as soon as it is known, so an interrupted run still leaves a
// partial record behind.
package history
