package history

import "time"

// RunStatus summarizes how a recorded run ended.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
	RunPlanned   RunStatus = "planned"
	RunEmpty     RunStatus = "empty"
)

// Run is one persisted dispatch run.
type Run struct {
	ID         string        `json:"id" yaml:"id"`
	Parent     string        `json:"parent" yaml:"parent"`
	Device     string        `json:"device" yaml:"device"`
	Output     string        `json:"output" yaml:"output"`
	Policy     string        `json:"policy" yaml:"policy"`
	DryRun     bool          `json:"dry_run" yaml:"dry_run"`
	Status     RunStatus     `json:"status" yaml:"status"`
	Total      int           `json:"total" yaml:"total"`
	Succeeded  int           `json:"succeeded" yaml:"succeeded"`
	Failed     int           `json:"failed" yaml:"failed"`
	Skipped    int           `json:"skipped" yaml:"skipped"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time     `json:"finished_at,omitzero" yaml:"finished_at,omitempty"`
	Entries    []EntryRecord `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// Duration is zero while the run is still open.
func (r Run) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// EntryRecord is the persisted outcome of one entry.
type EntryRecord struct {
	Seq        int       `json:"seq" yaml:"seq"`
	Name       string    `json:"name" yaml:"name"`
	Path       string    `json:"path" yaml:"path"`
	IsDir      bool      `json:"is_dir" yaml:"is_dir"`
	Command    string    `json:"command" yaml:"command"`
	Status     string    `json:"status" yaml:"status"`
	ExitCode   int       `json:"exit_code" yaml:"exit_code"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time `json:"started_at,omitzero" yaml:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitzero" yaml:"finished_at,omitempty"`
}
