// Package devicelock serializes sweeper processes that target the same
// accelerator device through one lock file per device. A comma-separated
// device list takes one lock per member.
package devicelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked reports that another process held the device lock until the
// caller gave up waiting.
var ErrLocked = errors.New("device locked by another process")

const defaultRetryInterval = 500 * time.Millisecond

// Locker hands out per-device file locks under Dir.
type Locker struct {
	Dir           string
	RetryInterval time.Duration
}

// New returns a Locker that keeps lock files in dir.
func New(dir string, retry time.Duration) *Locker {
	if retry <= 0 {
		retry = defaultRetryInterval
	}
	return &Locker{Dir: dir, RetryInterval: retry}
}

// Path returns the lock file used for a single device member.
func (l *Locker) Path(member string) string {
	return filepath.Join(l.Dir, "device-"+sanitize(member)+".lock")
}

// Paths returns the lock files for every member of device in acquisition
// order. A list such as "1,0" locks device-0 then device-1, so runs whose
// device lists overlap serialize on the shared members.
func (l *Locker) Paths(device string) []string {
	names := members(device)
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(l.Dir, "device-"+name+".lock")
	}
	return paths
}

// Acquire blocks until every member lock for device is held or ctx ends. The
// returned release func unlocks them in reverse order.
func (l *Locker) Acquire(ctx context.Context, device string) (func() error, error) {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	retry := l.RetryInterval
	if retry <= 0 {
		retry = defaultRetryInterval
	}

	var held heldLocks
	for _, path := range l.Paths(device) {
		lock := flock.New(path)
		ok, err := lock.TryLock()
		if err != nil {
			return nil, held.abort(fmt.Errorf("acquire lock %s: %w", path, err))
		}
		if !ok {
			ok, err = lock.TryLockContext(ctx, retry)
			if err != nil && ctx.Err() != nil {
				return nil, held.abort(fmt.Errorf("%w: %s: %w", ErrLocked, path, ctx.Err()))
			}
			if err != nil {
				return nil, held.abort(fmt.Errorf("acquire lock %s: %w", path, err))
			}
			if !ok {
				return nil, held.abort(fmt.Errorf("%w: %s", ErrLocked, path))
			}
		}
		held = append(held, lock)
	}
	return held.release, nil
}

// TryAcquire attempts every member lock once without waiting.
func (l *Locker) TryAcquire(device string) (func() error, error) {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	var held heldLocks
	for _, path := range l.Paths(device) {
		lock := flock.New(path)
		ok, err := lock.TryLock()
		if err != nil {
			return nil, held.abort(fmt.Errorf("acquire lock %s: %w", path, err))
		}
		if !ok {
			return nil, held.abort(fmt.Errorf("%w: %s", ErrLocked, path))
		}
		held = append(held, lock)
	}
	return held.release, nil
}

type heldLocks []*flock.Flock

func (h heldLocks) release() error {
	var errs []error
	for i := len(h) - 1; i >= 0; i-- {
		if err := h[i].Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release lock %s: %w", h[i].Path(), err))
		}
	}
	return errors.Join(errs...)
}

func (h heldLocks) abort(err error) error {
	if releaseErr := h.release(); releaseErr != nil {
		return errors.Join(err, releaseErr)
	}
	return err
}

// members splits a device list such as "0,1" into sorted, de-duplicated
// lock names. An empty list maps to a single "default" member.
func members(device string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, part := range strings.Split(device, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name := sanitize(part)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if len(names) == 0 {
		return []string{sanitize("")}
	}
	sort.Strings(names)
	return names
}

// sanitize maps a device member such as "GPU-3f2a/mig" onto a safe filename
// fragment.
func sanitize(device string) string {
	device = strings.TrimSpace(device)
	if device == "" {
		return "default"
	}
	var b strings.Builder
	for _, r := range device {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
