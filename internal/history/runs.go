package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = `id, parent, device, output, policy, dry_run, status, total,
	succeeded, failed, skipped, started_at, finished_at`

// BeginRun inserts an open run row.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id required")
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Parent, run.Device, run.Output, run.Policy, boolToInt(run.DryRun),
		string(run.Status), run.Total, run.Succeeded, run.Failed, run.Skipped,
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// AddEntry appends one entry outcome to a run.
func (s *Store) AddEntry(ctx context.Context, runID string, entry EntryRecord) error {
	var errMsg sql.NullString
	if entry.Error != "" {
		errMsg = sql.NullString{String: entry.Error, Valid: true}
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO entries (run_id, seq, name, path, is_dir, command, status, exit_code,
			error_message, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, entry.Seq, entry.Name, entry.Path, boolToInt(entry.IsDir), entry.Command,
		entry.Status, entry.ExitCode, errMsg, formatTime(entry.StartedAt), formatTime(entry.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert entry %s for run %s: %w", entry.Path, runID, err)
	}
	return nil
}

// FinishRun closes a run with its final status and counts.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, total = ?, succeeded = ?, failed = ?, skipped = ?, finished_at = ?
		WHERE id = ?`,
		string(run.Status), run.Total, run.Succeeded, run.Failed, run.Skipped, formatTime(run.FinishedAt), run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs first, without entries. A limit of
// zero or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun loads a run and its entries. id may be a unique prefix of the full
// run id, which is how console logs abbreviate it.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("run id required")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY id = ? DESC LIMIT 2`,
		id, stripWildcards(id)+"%", id,
	)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	var matches []Run
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		matches = append(matches, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case len(matches) > 1 && matches[0].ID != id:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
	run := matches[0]

	entries, err := s.listEntries(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Entries = entries
	return &run, nil
}

func (s *Store) listEntries(ctx context.Context, runID string) ([]EntryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, name, path, is_dir, command, status, exit_code, error_message, started_at, finished_at
		FROM entries WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list entries for run %s: %w", runID, err)
	}
	defer rows.Close()

	var entries []EntryRecord
	for rows.Next() {
		var (
			entry             EntryRecord
			isDir             int
			errMsg            sql.NullString
			started, finished sql.NullString
		)
		if err := rows.Scan(&entry.Seq, &entry.Name, &entry.Path, &isDir, &entry.Command, &entry.Status,
			&entry.ExitCode, &errMsg, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entry.IsDir = isDir != 0
		entry.Error = errMsg.String
		entry.StartedAt = parseTime(started)
		entry.FinishedAt = parseTime(finished)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Prune deletes runs that started before cutoff, entries included, and
// reports how many runs were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run               Run
		dryRun            int
		status            string
		started, finished sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Parent, &run.Device, &run.Output, &run.Policy, &dryRun, &status,
		&run.Total, &run.Succeeded, &run.Failed, &run.Skipped, &started, &finished); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.DryRun = dryRun != 0
	run.Status = RunStatus(status)
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	return run, nil
}

func stripWildcards(value string) string {
	r := strings.NewReplacer(`%`, ``, `_`, ``)
	return r.Replace(value)
}
