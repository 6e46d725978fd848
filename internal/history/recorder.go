package history

import (
	"context"
	"log/slog"

	"sweeper/internal/dispatch"
	"sweeper/internal/logging"
)

// Recorder writes dispatch progress into a Store. It satisfies
// dispatch.Observer.
type Recorder struct {
	store  *Store
	logger *slog.Logger
}

var _ dispatch.Observer = (*Recorder)(nil)

// NewRecorder returns a recorder backed by store.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{store: store, logger: logging.NewComponentLogger(logger, "history")}
}

// RunStarted inserts the open run row.
func (r *Recorder) RunStarted(ctx context.Context, report *dispatch.Report, entries []dispatch.Entry) error {
	run := Run{
		ID:        report.RunID,
		Parent:    report.Request.Parent,
		Device:    report.Request.Device,
		Output:    report.Request.Output,
		Policy:    string(report.Policy),
		DryRun:    report.DryRun,
		Status:    RunRunning,
		Total:     len(entries),
		StartedAt: report.Started,
	}
	if err := r.store.BeginRun(ctx, run); err != nil {
		return err
	}
	r.logger.Debug("run recorded", logging.String(logging.FieldRunID, run.ID), logging.String("ledger", r.store.Path()))
	return nil
}

// EntryFinished appends the outcome just added to report.
func (r *Recorder) EntryFinished(ctx context.Context, report *dispatch.Report, outcome dispatch.Outcome) error {
	return r.store.AddEntry(ctx, report.RunID, entryRecord(len(report.Outcomes), outcome))
}

// RunFinished closes the run row with final counts.
func (r *Recorder) RunFinished(ctx context.Context, report *dispatch.Report) error {
	counts := report.Counts()
	return r.store.FinishRun(ctx, Run{
		ID:         report.RunID,
		Status:     StatusOf(report),
		Total:      len(report.Outcomes),
		Succeeded:  counts[dispatch.StatusSucceeded],
		Failed:     counts[dispatch.StatusFailed],
		Skipped:    counts[dispatch.StatusSkipped],
		FinishedAt: report.Finished,
	})
}

// StatusOf derives the run-level status from a finished report.
func StatusOf(report *dispatch.Report) RunStatus {
	counts := report.Counts()
	switch {
	case len(report.Outcomes) == 0:
		return RunEmpty
	case counts[dispatch.StatusFailed] > 0:
		return RunFailed
	case counts[dispatch.StatusSkipped] > 0:
		return RunCancelled
	case report.DryRun:
		return RunPlanned
	default:
		return RunSucceeded
	}
}

func entryRecord(seq int, outcome dispatch.Outcome) EntryRecord {
	record := EntryRecord{
		Seq:        seq,
		Name:       outcome.Entry.Name,
		Path:       outcome.Entry.Path,
		IsDir:      outcome.Entry.IsDir,
		Command:    outcome.Invocation.String(),
		Status:     string(outcome.Status),
		ExitCode:   outcome.ExitCode,
		StartedAt:  outcome.Started,
		FinishedAt: outcome.Finished,
	}
	if outcome.Err != nil {
		record.Error = outcome.Err.Error()
	}
	return record
}
