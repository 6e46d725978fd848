package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sweeper/internal/config"
	"sweeper/internal/logging"
)

func TestConsoleLoggerLiftsRunAndEntryIntoHeader(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "dispatch").With(logging.String(logging.FieldRunID, "0123456789abcdef"))
	logger.Warn("entry failed",
		logging.String(logging.FieldEntry, "/data/experiments/run-a"),
		logging.Int(logging.FieldExitCode, 3),
		logging.Error(errors.New("exit status 3")),
	)

	out := buf.String()
	for _, want := range []string{"WARN [dispatch] Run 01234567 · run-a – entry failed", "    - exit_code: 3", `    - error: exit status 3`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "run_id") {
		t.Fatalf("expected run_id lifted out of the field list:\n%s", out)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")
	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("dispatch complete", logging.Int("entries", 3))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
	if record["msg"] != "dispatch complete" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
}

func TestJSONLoggerWritesDurationsAsMilliseconds(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("entry complete",
		logging.String(logging.FieldEntry, "/data/a"),
		logging.Duration("duration", 1500*time.Millisecond),
	)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if record["duration_ms"] != float64(1500) {
		t.Fatalf("expected duration_ms=1500, got %v", record)
	}
	if _, ok := record["duration"]; ok {
		t.Fatalf("raw duration key should be replaced, got %v", record)
	}
	ts, _ := record["ts"].(string)
	if _, err := time.Parse("2006-01-02T15:04:05.000Z07:00", ts); err != nil {
		t.Fatalf("unexpected ts %q: %v", ts, err)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	var console bytes.Buffer
	logger, err := logging.NewFromConfig(&cfg, &console, "warn")
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("file only")
	logger.Warn("both sinks")

	if strings.Contains(console.String(), "file only") {
		t.Fatalf("expected level override to suppress info on console:\n%s", console.String())
	}
	if !strings.Contains(console.String(), "both sinks") {
		t.Fatalf("expected warn on console:\n%s", console.String())
	}

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "sweeper.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "file only") || !strings.Contains(string(data), "both sinks") {
		t.Fatalf("expected both records in log file, got:\n%s", data)
	}
}

func TestTeeHandlerCollapsesNilHandlers(t *testing.T) {
	if _, ok := logging.TeeHandler(nil, nil).(logging.NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
}
