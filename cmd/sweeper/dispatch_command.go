package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"sweeper/internal/config"
	"sweeper/internal/devicelock"
	"sweeper/internal/dispatch"
	"sweeper/internal/history"
	"sweeper/internal/logging"
	"sweeper/internal/preflight"
)

func runDispatch(cmd *cobra.Command, ctx *commandContext, parent, device, output string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	policy, err := dispatch.ParsePolicy(cfg.Dispatch.Policy)
	if err != nil {
		return err
	}

	dryRun := ctx.flags.dryRun
	if !dryRun {
		if check := preflight.CheckCommand("collaborator", cfg.Dispatch.Command); !check.Passed {
			logging.WarnWithContext(logger, "collaborator not found on PATH; every entry will fail", "collaborator_missing",
				logging.String("command", cfg.Dispatch.Command),
				logging.String(logging.FieldErrorHint, "set dispatch.command or pass --command"),
			)
		}
	}

	opts := []dispatch.Option{
		dispatch.WithCommand(cfg.Dispatch.Command, cfg.Dispatch.Args...),
		dispatch.WithDeviceEnv(cfg.Dispatch.DeviceEnv),
		dispatch.WithPolicy(policy),
		dispatch.WithTimeout(cfg.InvocationTimeout()),
		dispatch.WithLogger(logger),
		dispatch.WithSorted(cfg.Dispatch.SortEntries),
		dispatch.WithDryRun(dryRun),
	}
	if cfg.Locks.Enabled {
		opts = append(opts, dispatch.WithLocker(devicelock.New(cfg.LockDir(), cfg.LockRetryInterval())))
	}
	if cfg.History.Enabled && !dryRun {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			// A broken ledger never blocks the sweep.
			logging.WarnWithContext(logger, "history ledger unavailable; run will not be recorded", "history_unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove "+cfg.HistoryPath()+" or pass --no-history"),
			)
		} else {
			defer store.Close()
			opts = append(opts, dispatch.WithObserver(history.NewRecorder(store, logger)))
		}
	}

	runner := dispatch.NewExecRunner(cmd.OutOrStdout(), cmd.ErrOrStderr())
	d := dispatch.New(runner, opts...)

	absParent := parent
	if abs, err := filepath.Abs(parent); err == nil {
		absParent = abs
	}
	report, runErr := d.Run(cmd.Context(), dispatch.Request{Parent: absParent, Device: device, Output: output})

	if errors.Is(runErr, dispatch.ErrInvalidParent) {
		return fmt.Errorf("invalid parent path: %w", runErr)
	}
	if len(report.Outcomes) > 0 {
		printReport(cmd, cfg, report)
	}
	if runErr != nil {
		return runErr
	}
	return report.Err()
}

func printReport(cmd *cobra.Command, cfg *config.Config, report *dispatch.Report) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		rows = append(rows, []string{
			o.Entry.Name,
			statusLabel(string(o.Status)),
			exitCodeText(o),
			formatDuration(o.Duration()),
			errorText(o.Err),
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"Entry", "Status", "Exit", "Duration", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))

	counts := report.Counts()
	summary := fmt.Sprintf("Run %s: %d succeeded, %d failed, %d skipped in %s",
		shortID(report.RunID),
		counts[dispatch.StatusSucceeded],
		counts[dispatch.StatusFailed],
		counts[dispatch.StatusSkipped],
		formatDuration(report.Duration()),
	)
	if report.DryRun {
		summary = fmt.Sprintf("Dry run: %d invocations planned for device %s", counts[dispatch.StatusPlanned], report.Request.Device)
	}
	kind := statusOK
	switch {
	case counts[dispatch.StatusFailed] > 0:
		kind = statusError
	case counts[dispatch.StatusSkipped] > 0:
		kind = statusWarn
	case report.DryRun:
		kind = statusInfo
	}
	fmt.Fprintln(out, renderStatusLine("Summary", kind, summary, shouldColorize(out)))
	if cfg.History.Enabled && !report.DryRun {
		fmt.Fprintf(out, "Details: sweeper history show %s\n", shortID(report.RunID))
	}
}

func exitCodeText(o dispatch.Outcome) string {
	switch o.Status {
	case dispatch.StatusSkipped, dispatch.StatusPlanned:
		return "-"
	}
	if o.ExitCode < 0 {
		return "n/a"
	}
	return strconv.Itoa(o.ExitCode)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	var exitErr *dispatch.ExitError
	if errors.As(err, &exitErr) {
		return ""
	}
	return err.Error()
}

// shortID matches the abbreviated run id printed in console logs.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
