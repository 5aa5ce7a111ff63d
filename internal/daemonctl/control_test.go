package daemonctl

import (
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"
)

func startSleeper(t *testing.T) *exec.Cmd {
	t.Helper()
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start helper process: %v", err)
	}
	reaped := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(reaped)
	}()
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		<-reaped
	})
	return cmd
}

func writePID(t *testing.T, pid int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logsweep.pid")
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		t.Fatalf("write pid file: %v", err)
	}
	return path
}

func TestInspectStates(t *testing.T) {
	dir := t.TempDir()
	info, err := Inspect(filepath.Join(dir, "absent.pid"))
	if err != nil || info.State != StateAbsent {
		t.Fatalf("absent: %+v err=%v", info, err)
	}

	garbage := filepath.Join(dir, "garbage.pid")
	if err := os.WriteFile(garbage, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if info, err := Inspect(garbage); err != nil || info.State != StateAbsent {
		t.Fatalf("garbage: %+v err=%v", info, err)
	}

	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("cannot run helper: %v", err)
	}
	if info, err := Inspect(writePID(t, cmd.Process.Pid)); err != nil || (info.State != StateStale && info.State != StateRunning) {
		t.Fatalf("exited: %+v err=%v", info, err)
	}

	if info, err := Inspect(writePID(t, os.Getpid())); err != nil || info.State != StateRunning || info.PID != os.Getpid() {
		t.Fatalf("self: %+v err=%v", info, err)
	}
}

func TestStopTerminatesRecordedProcess(t *testing.T) {
	cmd := startSleeper(t)
	path := writePID(t, cmd.Process.Pid)

	result, err := Stop(path, StopOptions{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if result.PID != cmd.Process.Pid || result.Killed {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	_, err := Stop(filepath.Join(t.TempDir(), "absent.pid"), StopOptions{})
	if !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
	if _, err := Reload(filepath.Join(t.TempDir(), "absent.pid")); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}

func TestReloadSendsHangup(t *testing.T) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP)
	defer signal.Stop(ch)

	path := writePID(t, os.Getpid())
	pid, err := Reload(path)
	if err != nil {
		t.Fatalf("Reload returned error: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("unexpected pid %d", pid)
	}
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("SIGHUP not delivered")
	}
}

func TestForceKillRejectsInvalidPID(t *testing.T) {
	if err := ForceKillProcess(0); err == nil {
		t.Fatal("expected error for pid 0")
	}
}
