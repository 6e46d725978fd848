package dispatch

import (
	"errors"
	"fmt"
)

// ErrInvalidParent matches every *ParentError under errors.Is.
var ErrInvalidParent = errors.New("invalid parent directory")

// ErrNotDirectory is the cause recorded when the parent exists but is a file.
var ErrNotDirectory = errors.New("not a directory")

// ParentError reports a parent path that could not be enumerated.
type ParentError struct {
	Path string
	Err  error
}

func (e *ParentError) Error() string {
	return fmt.Sprintf("read parent %s: %v", e.Path, e.Err)
}

func (e *ParentError) Unwrap() error { return e.Err }

func (e *ParentError) Is(target error) bool { return target == ErrInvalidParent }

// ExitError reports a collaborator that ran but exited non-zero.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// FailedEntriesError summarizes a run in which at least one entry failed.
type FailedEntriesError struct {
	Failed int
	Total  int
}

func (e *FailedEntriesError) Error() string {
	return fmt.Sprintf("%d of %d entries failed", e.Failed, e.Total)
}
