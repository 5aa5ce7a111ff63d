// Package daemonctl controls a running daemon from the CLI through its PID
// record and process signals.
package daemonctl

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"logsweep/internal/pidfile"
)

// ErrNotRunning is returned when no live daemon is recorded in the PID file.
var ErrNotRunning = errors.New("daemon not running")

// State classifies the PID record.
type State string

const (
	StateRunning State = "running"
	StateStale   State = "stale"
	StateAbsent  State = "absent"
)

// ProcessInfo describes the daemon named by the PID record.
type ProcessInfo struct {
	State State `json:"state"`
	PID   int   `json:"pid,omitempty"`
}

// Inspect reads the PID record at pidPath and probes the named process.
func Inspect(pidPath string) (ProcessInfo, error) {
	pid, err := pidfile.Read(pidPath)
	if err != nil {
		if errors.Is(err, pidfile.ErrNoRecord) {
			return ProcessInfo{State: StateAbsent}, nil
		}
		return ProcessInfo{}, err
	}
	if !pidfile.Alive(pid) {
		return ProcessInfo{State: StateStale, PID: pid}, nil
	}
	return ProcessInfo{State: StateRunning, PID: pid}, nil
}

// Reload sends SIGHUP to the recorded daemon and returns its PID.
func Reload(pidPath string) (int, error) {
	info, err := running(pidPath)
	if err != nil {
		return 0, err
	}
	if err := unix.Kill(info.PID, unix.SIGHUP); err != nil {
		return info.PID, fmt.Errorf("signal daemon (pid %d): %w", info.PID, err)
	}
	return info.PID, nil
}

// StopOptions controls Stop.
type StopOptions struct {
	Timeout time.Duration
	// Force sends SIGKILL when the daemon outlives Timeout.
	Force bool
}

// StopResult reports how the daemon was stopped.
type StopResult struct {
	PID    int
	Killed bool
}

// Stop sends SIGTERM to the recorded daemon and waits for it to exit.
func Stop(pidPath string, opts StopOptions) (StopResult, error) {
	info, err := running(pidPath)
	if err != nil {
		return StopResult{}, err
	}
	result := StopResult{PID: info.PID}
	if err := unix.Kill(info.PID, unix.SIGTERM); err != nil {
		return result, fmt.Errorf("signal daemon (pid %d): %w", info.PID, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if waitForExit(info.PID, timeout) {
		return result, nil
	}
	if !opts.Force {
		return result, fmt.Errorf("daemon (pid %d) did not stop within %s", info.PID, timeout)
	}
	if err := ForceKillProcess(info.PID); err != nil {
		return result, err
	}
	result.Killed = true
	if !waitForExit(info.PID, 2*time.Second) {
		return result, fmt.Errorf("daemon (pid %d) survived SIGKILL", info.PID)
	}
	return result, nil
}

// ForceKillProcess sends SIGKILL to pid.
func ForceKillProcess(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	if err := unix.Kill(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	return nil
}

func running(pidPath string) (ProcessInfo, error) {
	info, err := Inspect(pidPath)
	if err != nil {
		return info, err
	}
	if info.State != StateRunning {
		return info, fmt.Errorf("%w (pid record %s)", ErrNotRunning, info.State)
	}
	return info, nil
}

func waitForExit(pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !pidfile.Alive(pid) {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return !pidfile.Alive(pid)
}
