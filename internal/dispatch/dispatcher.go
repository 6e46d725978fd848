package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"sweeper/internal/config"
	"sweeper/internal/logging"
)

// Defaults for the reference collaborator.
const (
	DefaultCommand   = config.DefaultCommand
	DefaultScript    = config.DefaultScript
	DefaultDeviceEnv = config.DefaultDeviceEnv
)

// Policy decides what happens after an entry fails.
type Policy string

const (
	// PolicyBestEffort runs every entry and reports failures at the end.
	PolicyBestEffort Policy = config.PolicyBestEffort
	// PolicyFailFast stops after the first failed entry.
	PolicyFailFast Policy = config.PolicyFailFast
)

// ParsePolicy accepts the canonical names plus hyphenated spellings.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(config.NormalizePolicy(value)) {
	case PolicyBestEffort, "":
		return PolicyBestEffort, nil
	case PolicyFailFast:
		return PolicyFailFast, nil
	default:
		return "", fmt.Errorf("unknown policy %q (want %s or %s)", value, PolicyBestEffort, PolicyFailFast)
	}
}

// Locker grants exclusive use of a device for the duration of a run.
type Locker interface {
	Acquire(ctx context.Context, device string) (release func() error, err error)
}

// Observer is notified as a run progresses. Observer errors are logged and
// never abort the run.
type Observer interface {
	RunStarted(ctx context.Context, report *Report, entries []Entry) error
	EntryFinished(ctx context.Context, report *Report, outcome Outcome) error
	RunFinished(ctx context.Context, report *Report) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCommand sets the collaborator executable and the arguments placed
// before the entry path.
func WithCommand(command string, prefixArgs ...string) Option {
	return func(d *Dispatcher) {
		if strings.TrimSpace(command) != "" {
			d.command = command
			d.prefixArgs = append([]string(nil), prefixArgs...)
		}
	}
}

// WithDeviceEnv names the device-selection variable.
func WithDeviceEnv(name string) Option {
	return func(d *Dispatcher) {
		if strings.TrimSpace(name) != "" {
			d.deviceEnv = name
		}
	}
}

func WithPolicy(policy Policy) Option {
	return func(d *Dispatcher) { d.policy = policy }
}

// WithTimeout bounds each invocation. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithSorted orders entries by name instead of listing order.
func WithSorted(sorted bool) Option {
	return func(d *Dispatcher) { d.sorted = sorted }
}

// WithDryRun plans invocations without running them.
func WithDryRun(dryRun bool) Option {
	return func(d *Dispatcher) { d.dryRun = dryRun }
}

func WithLocker(locker Locker) Option {
	return func(d *Dispatcher) { d.locker = locker }
}

func WithObserver(observer Observer) Option {
	return func(d *Dispatcher) { d.observer = observer }
}

// Dispatcher runs the collaborator once per parent entry.
type Dispatcher struct {
	runner     Runner
	command    string
	prefixArgs []string
	deviceEnv  string
	policy     Policy
	timeout    time.Duration
	logger     *slog.Logger
	sorted     bool
	dryRun     bool
	locker     Locker
	observer   Observer

	newRunID func() string
	now      func() time.Time
}

// New constructs a Dispatcher. A nil runner uses an ExecRunner that discards
// child output.
func New(runner Runner, opts ...Option) *Dispatcher {
	if runner == nil {
		runner = NewExecRunner(nil, nil)
	}
	d := &Dispatcher{
		runner:     runner,
		command:    DefaultCommand,
		prefixArgs: []string{DefaultScript},
		deviceEnv:  DefaultDeviceEnv,
		policy:     PolicyBestEffort,
		logger:     logging.NewNop(),
		newRunID:   uuid.NewString,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "dispatch")
	return d
}

// Plan returns the invocation that would be launched for entry.
func (d *Dispatcher) Plan(entry Entry, req Request) Invocation {
	args := make([]string, 0, len(d.prefixArgs)+2)
	args = append(args, d.prefixArgs...)
	args = append(args, entry.Path, req.Output)
	return Invocation{
		Command: d.command,
		Args:    args,
		Env:     map[string]string{d.deviceEnv: req.Device},
	}
}

// Run enumerates req.Parent and invokes the collaborator for every entry in
// turn. The returned report is never nil. The error covers run-level
// failures only; inspect Report.Err for entry failures.
func (d *Dispatcher) Run(ctx context.Context, req Request) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	report := &Report{
		RunID:   d.newRunID(),
		Request: req,
		Policy:  d.policy,
		DryRun:  d.dryRun,
		Started: d.now(),
	}
	logger := d.logger.With(
		logging.String(logging.FieldRunID, report.RunID),
		logging.String(logging.FieldDevice, req.Device),
	)

	entries, err := ListEntries(req.Parent)
	if err != nil {
		report.Finished = d.now()
		logger.Error("cannot enumerate parent",
			logging.String("parent", req.Parent),
			logging.Error(err),
			logging.String(logging.FieldEventType, "parent_invalid"),
		)
		return report, err
	}
	if d.sorted {
		sortEntries(entries)
	}

	if len(entries) == 0 {
		report.Finished = d.now()
		logger.Warn("parent has no entries; nothing to run",
			logging.String("parent", req.Parent),
			logging.String(logging.FieldEventType, "parent_empty"),
		)
		d.notifyStarted(ctx, logger, report, entries)
		d.notifyFinished(ctx, logger, report)
		return report, nil
	}

	if d.locker != nil && !d.dryRun {
		release, err := d.locker.Acquire(ctx, req.Device)
		if err != nil {
			report.Finished = d.now()
			return report, fmt.Errorf("acquire device %s: %w", req.Device, err)
		}
		defer func() {
			if err := release(); err != nil {
				logger.Warn("release device lock failed", logging.Error(err))
			}
		}()
	}

	logger.Info("dispatch started",
		logging.String("parent", req.Parent),
		logging.String("output", req.Output),
		logging.Int("entries", len(entries)),
		logging.String("policy", string(d.policy)),
		logging.Bool("dry_run", d.dryRun),
	)
	d.notifyStarted(ctx, logger, report, entries)

	var runErr error
	stopped := false
	for i, entry := range entries {
		inv := d.Plan(entry, req)
		outcome := Outcome{Entry: entry, Invocation: inv, ExitCode: -1}

		switch {
		case stopped:
			outcome.Status = StatusSkipped
		case ctx.Err() != nil:
			outcome.Status = StatusSkipped
			stopped = true
			runErr = ctx.Err()
		case d.dryRun:
			outcome.Status = StatusPlanned
			logger.Info("would run", logging.String(logging.FieldEntry, entry.Path), logging.String("command", inv.String()))
		default:
			outcome = d.runEntry(ctx, logger, outcome, i, len(entries))
			if outcome.Status == StatusFailed && d.policy == PolicyFailFast && ctx.Err() == nil {
				logger.Warn("stopping after failure", logging.String("policy", string(d.policy)), logging.Int("remaining", len(entries)-i-1))
				stopped = true
			}
			if ctx.Err() != nil {
				stopped = true
				runErr = ctx.Err()
			}
		}

		report.Outcomes = append(report.Outcomes, outcome)
		if d.observer != nil {
			if err := d.observer.EntryFinished(context.WithoutCancel(ctx), report, outcome); err != nil {
				logger.Warn("observer rejected outcome", logging.String(logging.FieldEntry, entry.Path), logging.Error(err))
			}
		}
	}

	report.Finished = d.now()
	counts := report.Counts()
	logger.Info("dispatch complete",
		logging.Int("succeeded", counts[StatusSucceeded]),
		logging.Int("failed", counts[StatusFailed]),
		logging.Int("skipped", counts[StatusSkipped]),
		logging.Duration("duration", report.Duration()),
	)
	d.notifyFinished(ctx, logger, report)
	return report, runErr
}

func (d *Dispatcher) runEntry(ctx context.Context, logger *slog.Logger, outcome Outcome, index, total int) Outcome {
	entryLogger := logger.With(logging.String(logging.FieldEntry, outcome.Entry.Path))
	entryLogger.Info("running entry",
		logging.Int("index", index+1),
		logging.Int("total", total),
	)
	entryLogger.Debug("invocation", logging.String("command", outcome.Invocation.String()))

	runCtx := ctx
	cancel := func() {}
	if d.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, d.timeout)
	}
	outcome.Started = d.now()
	code, err := d.runner.Run(runCtx, outcome.Invocation)
	outcome.Finished = d.now()
	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	cancel()

	outcome.ExitCode = code
	if timedOut {
		err = fmt.Errorf("timed out after %s: %w", d.timeout, context.DeadlineExceeded)
	}
	if err == nil && code != 0 {
		err = &ExitError{Code: code}
	}
	if err == nil {
		outcome.Status = StatusSucceeded
		entryLogger.Info("entry complete", logging.Duration("duration", outcome.Duration()))
		return outcome
	}

	outcome.Status = StatusFailed
	outcome.Err = err
	attrs := []logging.Attr{
		logging.Int(logging.FieldExitCode, code),
		logging.Error(err),
		logging.Duration("duration", outcome.Duration()),
	}
	var killed *exec.ExitError
	switch {
	case timedOut:
		logging.WarnWithContext(entryLogger, "entry timed out", "entry_timeout", append(attrs,
			logging.String(logging.FieldErrorHint, "raise dispatch.timeout_seconds or --timeout if the entry needs longer"),
		)...)
	case ctx.Err() != nil:
		logging.WarnWithContext(entryLogger, "entry interrupted", "entry_cancelled", append(attrs,
			logging.String(logging.FieldErrorHint, "run was cancelled; rerun to process the remaining entries"),
		)...)
	case code < 0 && errors.As(err, &killed):
		logging.WarnWithContext(entryLogger, "entry killed by signal", "entry_killed", append(attrs,
			logging.String(logging.FieldErrorHint, "check for OOM kills or external signals sent to the collaborator"),
		)...)
	case code < 0:
		entryLogger.Error("entry could not run", logging.Args(append(attrs,
			logging.String(logging.FieldEventType, "entry_spawn_failed"),
			logging.String(logging.FieldErrorHint, "verify dispatch.command is installed and on PATH"),
		)...)...)
	default:
		logging.WarnWithContext(entryLogger, "entry failed", "entry_failed", attrs...)
	}
	return outcome
}

func (d *Dispatcher) notifyStarted(ctx context.Context, logger *slog.Logger, report *Report, entries []Entry) {
	if d.observer == nil {
		return
	}
	if err := d.observer.RunStarted(context.WithoutCancel(ctx), report, entries); err != nil {
		logger.Warn("observer rejected run start", logging.Error(err))
	}
}

func (d *Dispatcher) notifyFinished(ctx context.Context, logger *slog.Logger, report *Report) {
	if d.observer == nil {
		return
	}
	// Record the finish even when the run itself was cancelled.
	if err := d.observer.RunFinished(context.WithoutCancel(ctx), report); err != nil {
		logger.Warn("observer rejected run finish", logging.Error(err))
	}
}
