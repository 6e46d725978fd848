package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sweeper/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [parent_path]",
		Short: "Check that the collaborator and state directories are ready",
		Long: `Check that the collaborator resolves, the analysis script is readable, and
the state, log, and history locations are usable. Device lock files are
listed with their current holder state. With parent_path, also verify that
the parent can be enumerated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if len(args) == 1 {
				results = append(results, preflight.CheckParent("Parent", args[0]))
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Sweeper status", colorize) {
				fmt.Fprintln(out, line)
			}
			if ctx.configPath != "" {
				fmt.Fprintln(out, renderStatusLine("Config", statusInfo, ctx.configPath, colorize))
			}
			for _, line := range statusLines(results, colorize) {
				fmt.Fprintln(out, line)
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return errors.New(pluralize(len(failed), "check") + " failed")
			}
			return nil
		},
	}
}

func statusLines(results []preflight.Result, colorize bool) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		kind := statusOK
		switch {
		case r.Passed:
		case r.Optional:
			kind = statusWarn
		default:
			kind = statusError
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
