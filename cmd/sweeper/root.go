package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// usageError marks argument-count mistakes so main can print the usage text.
type usageError struct {
	cmd *cobra.Command
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return &usageError{cmd: cmd, err: err}
		}
		return nil
	}
}

func newRootCommand() *cobra.Command {
	flags := &runFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:   "sweeper [flags] <parent_path> <device_id> <output_name>",
		Short: "Run the analysis program once per entry of a directory",
		Long: `Run the analysis program once for every immediate child of parent_path.

Each invocation receives the entry path and output_name as arguments, with
the device variable (CUDA_VISIBLE_DEVICES by default) set to device_id for
that process only. Entries run one at a time.

Flags must come before parent_path. A parent directory named like a
subcommand (status, history, config, version) is dispatched when the
subcommand would reject the arguments; prefix it with ./ to be explicit.`,
		Example: `  sweeper /data/experiments 0 run1
  sweeper --policy fail_fast --timeout 2h /data/experiments 1 ablation
  sweeper --dry-run --sorted /data/experiments 0 run1
  sweeper /data/experiments -1 cpu-baseline`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          exactArgs(3),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(cmd, ctx, args[0], args[1], args[2])
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	rootCmd.Flags().StringVar(&flags.policy, "policy", "", fmt.Sprintf("Failure policy (%s or %s)", "best_effort", "fail_fast"))
	rootCmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Per-invocation timeout, for example 90m (0 keeps the configured value)")
	rootCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the planned invocations without running them")
	rootCmd.Flags().BoolVar(&flags.sorted, "sorted", false, "Process entries in name order instead of listing order")
	rootCmd.Flags().StringVar(&flags.deviceEnv, "device-env", "", "Environment variable that carries the device id")
	rootCmd.Flags().StringVar(&flags.command, "command", "", `Collaborator command line, for example "python music_trees/analyze.py"`)
	rootCmd.Flags().BoolVar(&flags.noHistory, "no-history", false, "Do not record this run in the history ledger")
	// Flags end at parent_path so device ids such as -1 stay positional.
	rootCmd.Flags().SetInterspersed(false)

	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// runFlags holds root-level overrides applied on top of the loaded config.
type runFlags struct {
	configPath string
	logLevel   string
	policy     string
	timeout    time.Duration
	dryRun     bool
	sorted     bool
	deviceEnv  string
	command    string
	noHistory  bool
}
