package main

import (
	"path/filepath"
	"strings"
	"testing"

	"sweeper/internal/testsupport"
)

func TestStatusCommandPasses(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	requireContains(t, out, "== Sweeper status ==")
	requireContains(t, out, "Collaborator:")
	requireContains(t, out, "History ledger:")
	requireContains(t, out, env.configPath)
	if strings.Contains(out, "[ERROR]") {
		t.Fatalf("unexpected error line in %q", out)
	}
}

func TestStatusCommandChecksParent(t *testing.T) {
	env := setupCLITestEnv(t)
	parent := testsupport.MakeTree(t, "a/", "b/")

	out, _, err := runCLI(t, []string{"status", parent}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "(2 entries)")

	out, _, err = runCLI(t, []string{"status", filepath.Join(parent, "missing")}, env.configPath)
	if err == nil || err.Error() != "1 check failed" {
		t.Fatalf("expected one failed check, got %v", err)
	}
	requireContains(t, out, "[ERROR]")
}

func TestStatusCommandMissingCollaborator(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Dispatch.Command = "clearly-not-present-binary"
	env.cfg.Dispatch.Args = nil
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err == nil {
		t.Fatal("expected status to fail")
	}
	requireContains(t, out, `binary "clearly-not-present-binary" not found`)
}
