package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"sweeper/internal/devicelock"
	"sweeper/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCommand(t *testing.T) {
	if result := CheckCommand("sh", "sh"); !result.Passed {
		t.Fatalf("expected sh on PATH: %s", result.Detail)
	}
	if result := CheckCommand("missing", "clearly-not-present-binary"); result.Passed {
		t.Fatal("expected missing binary to fail")
	}
	if result := CheckCommand("empty", " "); result.Passed || result.Detail != "command not configured" {
		t.Fatalf("unexpected result for empty command: %+v", result)
	}
}

func TestScriptArg(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{[]string{"music_trees/analyze.py"}, "music_trees/analyze.py"},
		{[]string{"analyze.py", "--fast"}, "analyze.py"},
		{[]string{"-m", "music_trees.analyze"}, ""},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := ScriptArg(tc.args); got != tc.want {
			t.Fatalf("ScriptArg(%v) = %q, want %q", tc.args, got, tc.want)
		}
	}
}

func TestCheckScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "analyze.py")
	if err := os.WriteFile(script, []byte("print('ok')\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckScript("script", script); !result.Passed {
		t.Fatalf("expected readable script to pass: %s", result.Detail)
	}
	if result := CheckScript("script", filepath.Join(dir, "missing.py")); result.Passed {
		t.Fatal("expected missing script to fail")
	}
	if result := CheckScript("script", dir); result.Passed {
		t.Fatal("expected directory to fail")
	}
}

func TestCheckParent(t *testing.T) {
	parent := testsupport.MakeTree(t, "a/", "b/", "file.txt")
	result := CheckParent("Parent", parent)
	if !result.Passed || result.Detail != parent+" (3 entries)" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result := CheckParent("Parent", filepath.Join(parent, "missing")); result.Passed {
		t.Fatal("expected missing parent to fail")
	}
}

func TestRunAllWithStubCollaborator(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubCollaborator())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg)
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = true
	}
	for _, want := range []string{"Collaborator", "Analysis script", "State directory", "Log directory", "History ledger", "Device locks"} {
		if !names[want] {
			t.Fatalf("missing check %q in %+v", want, results)
		}
	}
}

func TestCheckDeviceLocksReportsBusyDevice(t *testing.T) {
	dir := t.TempDir()
	release, err := devicelock.New(dir, 0).TryAcquire("0")
	if err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	defer release()

	results := CheckDeviceLocks(dir)
	if len(results) != 1 || results[0].Name != "Device 0" || results[0].Passed || !results[0].Optional {
		t.Fatalf("unexpected lock results %+v", results)
	}
	if len(Failed(results)) != 0 {
		t.Fatal("busy device must not count as a failed check")
	}
}

func TestRunAllMissingDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubCollaborator(), testsupport.WithoutHistory())
	failed := Failed(RunAll(context.Background(), cfg))
	if len(failed) != 2 {
		t.Fatalf("expected state and log dir failures, got %+v", failed)
	}
}
