package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

// Invocation is the fully resolved description of one collaborator launch.
type Invocation struct {
	Command string
	Args    []string
	// Env holds variables set for this process only, layered over the
	// inherited environment.
	Env map[string]string
}

// String renders the invocation the way a shell user would type it.
func (inv Invocation) String() string {
	keys := make([]string, 0, len(inv.Env))
	for key := range inv.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+len(inv.Args)+1)
	for _, key := range keys {
		parts = append(parts, key+"="+shellQuote(inv.Env[key]))
	}
	parts = append(parts, shellQuote(inv.Command))
	for _, arg := range inv.Args {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ")
}

// Runner launches one invocation and waits for it to finish. It returns the
// exit code; -1 means the process never ran to an exit status.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (int, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, inv Invocation) (int, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, inv Invocation) (int, error) {
	return f(ctx, inv)
}

// ExecRunner starts invocations as child processes.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
	// Dir is the working directory for the child. Empty inherits ours.
	Dir string
	// WaitDelay bounds how long to wait for output pipes after a kill.
	WaitDelay time.Duration
}

// NewExecRunner returns a runner forwarding child output to the given writers.
func NewExecRunner(stdout, stderr io.Writer) *ExecRunner {
	return &ExecRunner{Stdout: stdout, Stderr: stderr, WaitDelay: 5 * time.Second}
}

// Run executes inv and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (int, error) {
	if strings.TrimSpace(inv.Command) == "" {
		return -1, errors.New("command required")
	}
	cmd := commandContext(ctx, inv.Command, inv.Args...) //nolint:gosec
	base := cmd.Env
	if base == nil {
		base = os.Environ()
	}
	cmd.Env = mergeEnv(base, inv.Env)
	cmd.Dir = r.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.WaitDelay = r.WaitDelay

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			if code < 0 {
				return -1, fmt.Errorf("%s: %w", inv.Command, err)
			}
			return code, &ExitError{Code: code, Err: err}
		}
		return -1, fmt.Errorf("start %s: %w", inv.Command, err)
	}
	return 0, nil
}

// mergeEnv returns base with every key in overrides replaced or appended.
// Overrides are appended in key order so the result is deterministic.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return append([]string(nil), base...)
	}
	merged := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, replaced := overrides[key]; replaced {
			continue
		}
		merged = append(merged, kv)
	}
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		merged = append(merged, key+"="+overrides[key])
	}
	return merged
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`*?[]{}()<>|&;#~!") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
