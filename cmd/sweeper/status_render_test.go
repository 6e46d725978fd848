package main

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"sweeper/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Collaborator", statusError, "binary \"python\" not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Collaborator:", `[ERROR] binary "python" not found`)
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Summary", statusOK, "done", true)
	if !strings.HasPrefix(got, "\x1b[32m") {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, "\x1b[0m") {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestStatusLinesKinds(t *testing.T) {
	lines := statusLines([]preflight.Result{
		{Name: "Collaborator", Passed: true, Detail: "/usr/bin/python"},
		{Name: "Device 0", Optional: true, Detail: "busy"},
		{Name: "State directory", Detail: "missing"},
	}, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, want := range []string{"[OK]", "[WARN]", "[ERROR]"} {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d %q missing %s", i, lines[i], want)
		}
	}
}

func TestStatusLabel(t *testing.T) {
	cases := map[string]string{
		"succeeded": "Succeeded",
		"fail_fast": "Fail Fast",
		"":          "-",
	}
	for input, want := range cases {
		if got := statusLabel(input); got != want {
			t.Fatalf("statusLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "-"},
		{1500 * time.Millisecond, "1.5s"},
		{2*time.Minute + 5*time.Second, "2m05s"},
		{3*time.Hour + 7*time.Minute + 9*time.Second, "3h07m"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.in); got != tc.want {
			t.Fatalf("formatDuration(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseOutputFormat(t *testing.T) {
	for input, want := range map[string]outputFormat{"": formatTable, "JSON": formatJSON, "yml": formatYAML} {
		got, err := parseOutputFormat(input)
		if err != nil || got != want {
			t.Fatalf("parseOutputFormat(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := parseOutputFormat("csv"); err == nil {
		t.Fatal("expected error for csv")
	}
}
