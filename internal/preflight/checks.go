package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"sweeper/internal/devicelock"
	"sweeper/internal/dispatch"
	"sweeper/internal/history"
)

// CheckCommand verifies the collaborator executable resolves on PATH.
func CheckCommand(name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// ScriptArg returns the first prefix argument that names a file, or "" when
// the collaborator is invoked without one (for example "python -m pkg").
func ScriptArg(args []string) string {
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return ""
		}
		if strings.ContainsRune(arg, filepath.Separator) || filepath.Ext(arg) != "" {
			return arg
		}
	}
	return ""
}

// CheckScript verifies that a script path is readable. Relative paths
// resolve against the working directory, as they do for the child.
func CheckScript(name, path string) Result {
	display := path
	if !filepath.IsAbs(path) {
		if wd, err := os.Getwd(); err == nil {
			display = fmt.Sprintf("%s (relative to %s)", path, wd)
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", display)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", display, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", display)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", display, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckParent verifies that parent can be enumerated and reports its size.
func CheckParent(name, parent string) Result {
	entries, err := dispatch.ListEntries(parent)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if len(entries) == 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (empty, nothing to run)", parent)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries)", parent, len(entries))}
}

// CheckHistory opens the ledger and runs a trivial query.
func CheckHistory(ctx context.Context, path string) Result {
	const name = "History ledger"

	store, err := history.Open(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()
	if err := store.Ping(ctx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDeviceLocks reports each device lock file and whether another process
// holds it right now.
func CheckDeviceLocks(dir string) []Result {
	locks, err := devicelock.Scan(dir)
	if err != nil {
		return []Result{{Name: "Device locks", Optional: true, Detail: fmt.Sprintf("%s (error: %v)", dir, err)}}
	}
	if len(locks) == 0 {
		return []Result{{Name: "Device locks", Optional: true, Passed: true, Detail: "none held"}}
	}
	results := make([]Result, 0, len(locks))
	for _, lock := range locks {
		r := Result{Name: "Device " + lock.Device, Optional: true, Passed: !lock.Held}
		if lock.Held {
			r.Detail = fmt.Sprintf("busy (%s)", lock.Path)
		} else {
			r.Detail = "idle"
		}
		results = append(results, r)
	}
	return results
}
