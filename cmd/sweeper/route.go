package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// execute runs root with args after resolving parent paths that collide with
// subcommand names.
func execute(ctx context.Context, root *cobra.Command, args []string) error {
	root.SetArgs(dispatchArgs(root, args))
	return root.ExecuteContext(ctx)
}

// dispatchArgs rewrites args so that a parent directory named like a
// top-level subcommand (status, history, ...) is dispatched instead. The
// rewrite applies only when there are exactly three positional arguments,
// the first names an existing directory, and the matching subcommand would
// reject the invocation anyway.
func dispatchArgs(root *cobra.Command, args []string) []string {
	root.InitDefaultHelpCmd()
	root.InitDefaultCompletionCmd(args...)

	found, _, err := root.Find(args)
	if err != nil || found == root || found.Parent() != root {
		return args
	}
	idx, positional := positionalArgs(root.Flags(), args)
	if len(positional) != 3 || idx < 0 {
		return args
	}
	info, statErr := os.Stat(args[idx])
	if statErr != nil || !info.IsDir() {
		return args
	}
	if found.Runnable() && found.ValidateArgs(positional[1:]) == nil {
		return args
	}

	rewritten := make([]string, 0, len(args))
	rewritten = append(rewritten, args[:idx]...)
	rewritten = append(rewritten, "."+string(filepath.Separator)+args[idx])
	return append(rewritten, args[idx+1:]...)
}

// positionalArgs returns the index of the first positional argument in args
// and every positional argument, skipping flags and their values.
func positionalArgs(flags *pflag.FlagSet, args []string) (int, []string) {
	first := -1
	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			return first, append(positional, args[i+1:]...)
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			if first >= 0 {
				// Root flag parsing stops at the first positional argument.
				positional = append(positional, arg)
				continue
			}
			if takesValue(flags, arg) {
				i++
			}
		default:
			if first < 0 {
				first = i
			}
			positional = append(positional, arg)
		}
	}
	return first, positional
}

// takesValue reports whether a flag token without "=" consumes the next
// argument. Unknown flags are assumed to, matching cobra's own lookup.
func takesValue(flags *pflag.FlagSet, arg string) bool {
	if strings.Contains(arg, "=") {
		return false
	}
	var flag *pflag.Flag
	if name, ok := strings.CutPrefix(arg, "--"); ok {
		flag = flags.Lookup(name)
	} else if len(arg) == 2 {
		flag = flags.ShorthandLookup(arg[1:])
	} else {
		return false
	}
	return flag == nil || flag.NoOptDefVal == ""
}
