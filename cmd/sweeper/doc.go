// Command sweeper runs an analysis program once for every immediate child of
// a parent directory, pinning each run to one accelerator device.
//
//	sweeper [flags] <parent_path> <device_id> <output_name>
//
// Every child, file or directory, produces one sequential invocation of
//
//	<device_env>=<device_id> python music_trees/analyze.py <entry> <output_name>
//
// The collaborator command, device variable, failure policy, and timeout come
// from ~/.config/sweeper/config.toml and can be overridden per run with
// flags. Runs are recorded in a SQLite ledger that the "history" subcommands
// query, and "status" reports whether the environment is ready.
package main
