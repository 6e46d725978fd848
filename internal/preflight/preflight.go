package preflight

import (
	"context"

	"sweeper/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional results are informational; they never fail a status run.
	Optional bool
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckCommand("Collaborator", cfg.Dispatch.Command),
	}
	if script := ScriptArg(cfg.Dispatch.Args); script != "" {
		results = append(results, CheckScript("Analysis script", script))
	}

	results = append(results,
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	)

	if cfg.History.Enabled {
		results = append(results, CheckHistory(ctx, cfg.HistoryPath()))
	}
	if cfg.Locks.Enabled {
		results = append(results, CheckDeviceLocks(cfg.LockDir())...)
	}
	return results
}

// Failed returns the non-optional results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}
