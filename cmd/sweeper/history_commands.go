package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"sweeper/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded dispatch runs",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))
	return historyCmd
}

func (c *commandContext) withStore(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseOutputFormat(format)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if outFormat != formatTable {
					if runs == nil {
						runs = []history.Run{}
					}
					return writeStructured(cmd, outFormat, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						formatTimestamp(run.StartedAt),
						statusLabel(string(run.Status)),
						run.Device,
						run.Output,
						fmt.Sprintf("%d/%d", run.Succeeded, run.Total),
						strconv.Itoa(run.Failed),
						formatDuration(run.Duration()),
						run.Parent,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Started", "Status", "Device", "Output", "OK", "Failed", "Duration", "Parent"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	cmd.Flags().StringVarP(&format, "format", "o", "table", "Output format: table, json, or yaml")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its per-entry outcomes",
		Long:  "Show one run with its per-entry outcomes. The run id may be abbreviated to any unique prefix.",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseOutputFormat(format)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if outFormat != formatTable {
					return writeStructured(cmd, outFormat, run)
				}
				renderRun(cmd, run)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "table", "Output format: table, json, or yaml")
	return cmd
}

func renderRun(cmd *cobra.Command, run *history.Run) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Status:   %s\n", statusLabel(string(run.Status)))
	fmt.Fprintf(out, "Parent:   %s\n", run.Parent)
	fmt.Fprintf(out, "Device:   %s\n", run.Device)
	fmt.Fprintf(out, "Output:   %s\n", run.Output)
	fmt.Fprintf(out, "Policy:   %s\n", statusLabel(run.Policy))
	fmt.Fprintf(out, "Dry run:  %s\n", yesNo(run.DryRun))
	fmt.Fprintf(out, "Started:  %s\n", formatTimestamp(run.StartedAt))
	fmt.Fprintf(out, "Finished: %s\n", formatTimestamp(run.FinishedAt))
	fmt.Fprintf(out, "Duration: %s\n", formatDuration(run.Duration()))

	if len(run.Entries) == 0 {
		fmt.Fprintln(out, "\nNo entries recorded")
		return
	}
	rows := make([][]string, 0, len(run.Entries))
	for _, entry := range run.Entries {
		exit := strconv.Itoa(entry.ExitCode)
		if entry.ExitCode < 0 {
			exit = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(entry.Seq),
			entry.Name,
			statusLabel(entry.Status),
			exit,
			formatDuration(entry.FinishedAt.Sub(entry.StartedAt)),
			entry.Error,
		})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Entry", "Status", "Exit", "Duration", "Error"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a cutoff",
		Long:  "Delete runs older than a cutoff. Without --older-than the configured history.retention_days applies.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			age := olderThan
			if age <= 0 {
				if cfg.History.RetentionDays <= 0 {
					return fmt.Errorf("no cutoff: pass --older-than or set history.retention_days")
				}
				age = time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
			}
			return ctx.withStore(func(store *history.Store) error {
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-age))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs older than %s\n", removed, age)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Remove runs that started longer ago than this, for example 720h")
	return cmd
}
