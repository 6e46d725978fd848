package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sweeper/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// History and locking stay enabled so tests exercise the real ledger.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Locks.RetryIntervalMS = 10

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithPolicy sets the failure policy.
func WithPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dispatch.Policy = policy
	}
}

// WithoutHistory disables the run ledger.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithStubCollaborator replaces the analysis program with a shell script
// that appends "<device>|<entry>|<output>" to CallsLog and exits 1 for
// entries whose base name starts with "fail".
func WithStubCollaborator() ConfigOption {
	return func(b *configBuilder) {
		script := WriteStubCollaborator(b.t, filepath.Join(b.baseDir, "bin"), b.cfg.Dispatch.DeviceEnv, callsLogPath(b.baseDir))
		b.cfg.Dispatch.Command = "/bin/sh"
		b.cfg.Dispatch.Args = []string{script}
	}
}

// WriteStubCollaborator writes the recording stub script into dir and
// returns its path.
func WriteStubCollaborator(t testing.TB, dir, deviceEnv, logPath string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir stub dir: %v", err)
	}
	script := strings.Join([]string{
		"#!/bin/sh",
		`printf '%s|%s|%s\n' "$` + deviceEnv + `" "$1" "$2" >> '` + logPath + `'`,
		`case "$(basename "$1")" in`,
		"  fail*) exit 1 ;;",
		"esac",
		"exit 0",
		"",
	}, "\n")
	target := filepath.Join(dir, "analyze.sh")
	if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub collaborator: %v", err)
	}
	return target
}

// CallsLog returns the lines recorded by the stub collaborator, in call order.
func CallsLog(t testing.TB, cfg *config.Config) []string {
	t.Helper()

	data, err := os.ReadFile(callsLogPath(BaseDir(cfg)))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read calls log: %v", err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func callsLogPath(base string) string {
	return filepath.Join(base, "calls.log")
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
