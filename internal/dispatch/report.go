package dispatch

import (
	"time"
)

// Request carries the three caller-supplied values of a run.
type Request struct {
	Parent string
	Device string
	Output string
}

// Status is the final state of one entry.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusPlanned   Status = "planned"
)

// Outcome records what happened to one entry.
type Outcome struct {
	Entry      Entry
	Invocation Invocation
	Status     Status
	ExitCode   int
	Err        error
	Started    time.Time
	Finished   time.Time
}

// Duration is zero for entries that never ran.
func (o Outcome) Duration() time.Duration {
	if o.Started.IsZero() || o.Finished.IsZero() {
		return 0
	}
	return o.Finished.Sub(o.Started)
}

// Report summarizes a run.
type Report struct {
	RunID    string
	Request  Request
	Policy   Policy
	DryRun   bool
	Outcomes []Outcome
	Started  time.Time
	Finished time.Time
}

// Counts tallies outcomes by status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int, 4)
	if r == nil {
		return counts
	}
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// Failed returns the outcomes that ran and failed.
func (r *Report) Failed() []Outcome {
	if r == nil {
		return nil
	}
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// Err returns a *FailedEntriesError when any entry failed, nil otherwise.
func (r *Report) Err() error {
	failed := len(r.Failed())
	if failed == 0 {
		return nil
	}
	return &FailedEntriesError{Failed: failed, Total: len(r.Outcomes)}
}

// Duration is the wall-clock length of the run.
func (r *Report) Duration() time.Duration {
	if r == nil || r.Started.IsZero() || r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}
