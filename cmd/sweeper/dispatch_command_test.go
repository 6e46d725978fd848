package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"sweeper/internal/dispatch"
	"sweeper/internal/history"
	"sweeper/internal/testsupport"
)

func TestRootRequiresThreeArgs(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, args := range [][]string{{}, {"/data"}, {"/data", "0"}, {"/data", "0", "run1", "extra"}} {
		_, _, err := runCLI(t, args, env.configPath)
		var usage *usageError
		if !errors.As(err, &usage) {
			t.Fatalf("args %v: expected usage error, got %v", args, err)
		}
	}
}

func TestDispatchRunsStubPerEntry(t *testing.T) {
	env := setupCLITestEnv(t)
	parent := testsupport.MakeTree(t, "a/", "b/", "file.txt")

	out, _, err := runCLI(t, []string{parent, "0", "run1"}, env.configPath)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	calls := testsupport.CallsLog(t, env.cfg)
	sort.Strings(calls)
	want := []string{
		"0|" + filepath.Join(parent, "a") + "|run1",
		"0|" + filepath.Join(parent, "b") + "|run1",
		"0|" + filepath.Join(parent, "file.txt") + "|run1",
	}
	if strings.Join(calls, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected calls\n got: %v\nwant: %v", calls, want)
	}
	requireContains(t, out, "3 succeeded, 0 failed, 0 skipped")
	requireContains(t, out, "sweeper history show")
}

func TestDispatchDoesNotLeakDeviceIntoParentEnv(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("CUDA_VISIBLE_DEVICES", "7")
	parent := testsupport.MakeTree(t, "a/")

	if _, _, err := runCLI(t, []string{parent, "3", "run1"}, env.configPath); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if got := os.Getenv("CUDA_VISIBLE_DEVICES"); got != "7" {
		t.Fatalf("parent environment modified: %q", got)
	}
	calls := testsupport.CallsLog(t, env.cfg)
	if len(calls) != 1 || !strings.HasPrefix(calls[0], "3|") {
		t.Fatalf("expected child to see device 3, got %v", calls)
	}
}

func TestDispatchAcceptsDashLeadingDeviceID(t *testing.T) {
	env := setupCLITestEnv(t)
	parent := testsupport.MakeTree(t, "a/", "b/")

	if _, _, err := runCLI(t, []string{parent, "-1", "run1"}, env.configPath); err != nil {
		t.Fatalf("dispatch with device -1 failed: %v", err)
	}
	calls := testsupport.CallsLog(t, env.cfg)
	if len(calls) != 2 {
		t.Fatalf("expected 2 invocations, got %v", calls)
	}
	for _, call := range calls {
		if !strings.HasPrefix(call, "-1|") || !strings.HasSuffix(call, "|run1") {
			t.Fatalf("unexpected call %q", call)
		}
	}
}

func TestDispatchParentNamedLikeSubcommand(t *testing.T) {
	for _, name := range []string{"status", "history", "version"} {
		t.Run(name, func(t *testing.T) {
			env := setupCLITestEnv(t)
			t.Chdir(testsupport.MakeTree(t, name+"/a/", name+"/b/"))

			if _, _, err := runCLI(t, []string{name, "0", "run1"}, env.configPath); err != nil {
				t.Fatalf("dispatch into %s/ failed: %v", name, err)
			}
			calls := testsupport.CallsLog(t, env.cfg)
			sort.Strings(calls)
			if len(calls) != 2 ||
				!strings.HasSuffix(calls[0], string(filepath.Separator)+filepath.Join(name, "a")+"|run1") ||
				!strings.HasSuffix(calls[1], string(filepath.Separator)+filepath.Join(name, "b")+"|run1") {
				t.Fatalf("unexpected calls %v", calls)
			}
		})
	}
}

func TestSubcommandsStillWinWhenValid(t *testing.T) {
	env := setupCLITestEnv(t)
	cwd := testsupport.MakeTree(t, "status/a/")
	t.Chdir(cwd)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	requireContains(t, out, "Collaborator")

	_, _, err = runCLI(t, []string{"version", "0", "run1"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected version to reject args without a version directory, got %v", err)
	}
	if calls := testsupport.CallsLog(t, env.cfg); len(calls) != 0 {
		t.Fatalf("expected no invocations, got %v", calls)
	}
}

func TestDispatchBestEffortReportsFailures(t *testing.T) {
	env := setupCLITestEnv(t)
	parent := testsupport.MakeTree(t, "a/", "fail-b/", "c/")

	out, _, err := runCLI(t, []string{parent, "0", "run1"}, env.configPath)
	var failed *dispatch.FailedEntriesError
	if !errors.As(err, &failed) || failed.Failed != 1 || failed.Total != 3 {
		t.Fatalf("expected 1 of 3 failed, got %v", err)
	}
	if calls := testsupport.CallsLog(t, env.cfg); len(calls) != 3 {
		t.Fatalf("best effort should attempt every entry, got %d calls", len(calls))
	}
	requireContains(t, out, "2 succeeded, 1 failed")
}

func TestDispatchFailFastStopsEarly(t *testing.T) {
	env := setupCLITestEnv(t)
	parent := testsupport.MakeTree(t, "fail-a/", "m/", "z/")

	out, _, err := runCLI(t, []string{"--policy", "fail-fast", "--sorted", parent, "0", "run1"}, env.configPath)
	if err == nil {
		t.Fatal("expected failure exit")
	}
	if calls := testsupport.CallsLog(t, env.cfg); len(calls) != 1 {
		t.Fatalf("fail fast should stop after first entry, got %v", calls)
	}
	requireContains(t, out, "0 succeeded, 1 failed, 2 skipped")
}

func TestDispatchInvalidParent(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(env.baseDir, "no-such-dir")

	_, _, err := runCLI(t, []string{missing, "0", "run1"}, env.configPath)
	if !errors.Is(err, dispatch.ErrInvalidParent) {
		t.Fatalf("expected invalid parent error, got %v", err)
	}
	requireContains(t, err.Error(), "invalid parent path")
	if calls := testsupport.CallsLog(t, env.cfg); len(calls) != 0 {
		t.Fatalf("expected no invocations, got %v", calls)
	}
}

func TestDispatchEmptyParentSucceeds(t *testing.T) {
	env := setupCLITestEnv(t)
	out, stderr, err := runCLI(t, []string{t.TempDir(), "0", "run1"}, env.configPath)
	if err != nil {
		t.Fatalf("empty parent should succeed, got %v", err)
	}
	if strings.Contains(out, "Summary") {
		t.Fatalf("expected no summary for empty parent, got %q", out)
	}
	requireContains(t, stderr, "parent has no entries")
}

func TestDispatchDryRun(t *testing.T) {
	env := setupCLITestEnv(t)
	parent := testsupport.MakeTree(t, "a/", "b/")

	out, _, err := runCLI(t, []string{"--dry-run", parent, "1", "run1"}, env.configPath)
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if calls := testsupport.CallsLog(t, env.cfg); len(calls) != 0 {
		t.Fatalf("dry run must not invoke the collaborator, got %v", calls)
	}
	requireContains(t, out, "Dry run: 2 invocations planned for device 1")
}

func TestDispatchCommandAndDeviceEnvFlags(t *testing.T) {
	env := setupCLITestEnv(t)
	logPath := filepath.Join(env.baseDir, "hip.log")
	script := testsupport.WriteStubCollaborator(t, filepath.Join(env.baseDir, "hip"), "HIP_VISIBLE_DEVICES", logPath)
	parent := testsupport.MakeTree(t, "exp/")

	args := []string{"--device-env", "HIP_VISIBLE_DEVICES", "--command", "/bin/sh " + script, parent, "2", "out"}
	if _, _, err := runCLI(t, args, env.configPath); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read stub log: %v", err)
	}
	want := "2|" + filepath.Join(parent, "exp") + "|out\n"
	if string(data) != want {
		t.Fatalf("unexpected stub log %q, want %q", data, want)
	}
}

func TestDispatchRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	parent := testsupport.MakeTree(t, "a/", "fail-b/")

	if _, _, err := runCLI(t, []string{parent, "0", "run1"}, env.configPath); err == nil {
		t.Fatal("expected failure exit")
	}

	out, _, err := runCLI(t, []string{"history", "list", "--format", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	var runs []history.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history json: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].Status != history.RunFailed || runs[0].Total != 2 || runs[0].Failed != 1 {
		t.Fatalf("unexpected runs %+v", runs)
	}

	out, _, err = runCLI(t, []string{"history", "show", runs[0].ID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, runs[0].ID)
	requireContains(t, out, "fail-b")
	requireContains(t, out, "Failed")

	out, _, err = runCLI(t, []string{"history", "show", "--format", "yaml", runs[0].ID}, env.configPath)
	if err != nil {
		t.Fatalf("history show yaml: %v", err)
	}
	requireContains(t, out, "output: run1")
	requireContains(t, out, "name: fail-b")

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list table: %v", err)
	}
	requireContains(t, out, runs[0].ID[:8])

	out, _, err = runCLI(t, []string{"history", "prune", "--older-than", "1ns"}, env.configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Removed 1 runs")
}

func TestNoHistoryFlagSkipsLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	parent := testsupport.MakeTree(t, "a/")

	if _, _, err := runCLI(t, []string{"--no-history", parent, "0", "run1"}, env.configPath); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	out, _, err := runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestHistoryShowUnknownRun(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"history", "show", "deadbeef"}, env.configPath)
	if !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInvalidPolicyFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"--policy", "retry", t.TempDir(), "0", "run1"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "dispatch.policy") {
		t.Fatalf("expected policy validation error, got %v", err)
	}
}
