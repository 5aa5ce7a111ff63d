// Package pidfile implements the single-instance guard built around a PID
// record at a well-known path.
package pidfile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"logsweep/internal/logging"
)

// DefaultGrace is how long a terminated predecessor is given to exit.
const DefaultGrace = time.Second

// ErrNoRecord is returned by Read when the PID file is absent, empty or does
// not hold a positive decimal PID.
var ErrNoRecord = errors.New("no pid record")

// Signaler probes and signals processes. The zero Guard uses the kernel.
type Signaler interface {
	Alive(pid int) bool
	Terminate(pid int) error
}

type osSignaler struct{}

func (osSignaler) Alive(pid int) bool { return Alive(pid) }

func (osSignaler) Terminate(pid int) error { return unix.Kill(pid, unix.SIGTERM) }

// Guard enforces that only one daemon holds the PID record.
type Guard struct {
	Path     string
	Grace    time.Duration
	Signaler Signaler
	Logger   *slog.Logger
	// Self is the PID treated as the current process. Zero means os.Getpid.
	Self int
}

// Outcome describes what EnsureSingleInstance found and did.
type Outcome struct {
	PreviousPID int
	Terminated  bool
	Removed     bool
}

// Read returns the PID stored at path. Surrounding whitespace is tolerated.
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrNoRecord
		}
		return 0, fmt.Errorf("read pid file: %w", err)
	}
	value := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(value)
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%w: %q is not a pid", ErrNoRecord, value)
	}
	return pid, nil
}

// Alive reports whether a process with pid exists. A permission error from the
// probe still means the process exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// EnsureSingleInstance terminates any live predecessor named by the PID file
// and removes the file. An unreadable record counts as no predecessor. The
// grace wait returns early with ctx.Err() when ctx is cancelled.
func (g *Guard) EnsureSingleInstance(ctx context.Context) (Outcome, error) {
	logger := logging.NewComponentLogger(g.Logger, "pidfile")
	var outcome Outcome

	if _, err := os.Lstat(g.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("no pid record present", logging.String(logging.FieldPath, g.Path))
			return outcome, nil
		}
		return outcome, fmt.Errorf("stat pid file: %w", err)
	}

	pid, err := Read(g.Path)
	switch {
	case err != nil:
		logger.Info("ignoring unreadable pid record",
			logging.String(logging.FieldPath, g.Path),
			logging.Error(err),
		)
	case pid == g.self():
		logger.Debug("pid record names this process", logging.Int(logging.FieldPID, pid))
	default:
		outcome.PreviousPID = pid
		if g.signaler().Alive(pid) {
			logger.Info("terminating previous instance",
				logging.String(logging.FieldEventType, "previous_instance_terminate"),
				logging.Int(logging.FieldPID, pid),
			)
			if err := g.signaler().Terminate(pid); err != nil {
				logging.WarnWithContext(logger, "signal previous instance failed", "previous_instance_signal_failed",
					logging.Int(logging.FieldPID, pid),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "stop the previous daemon manually"),
				)
			} else {
				outcome.Terminated = true
				if err := g.wait(ctx); err != nil {
					return outcome, err
				}
			}
		} else {
			logger.Info("removing stale pid record", logging.Int(logging.FieldPID, pid))
		}
	}

	if err := os.Remove(g.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return outcome, fmt.Errorf("remove pid file: %w", err)
	}
	outcome.Removed = true
	return outcome, nil
}

// WriteOwn records the current process in the PID file, replacing any
// content. The record is the bare decimal PID.
func (g *Guard) WriteOwn() error {
	value := strconv.Itoa(g.self())
	if err := os.WriteFile(g.Path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

func (g *Guard) wait(ctx context.Context) error {
	grace := g.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (g *Guard) self() int {
	if g.Self > 0 {
		return g.Self
	}
	return os.Getpid()
}

func (g *Guard) signaler() Signaler {
	if g.Signaler == nil {
		return osSignaler{}
	}
	return g.Signaler
}
