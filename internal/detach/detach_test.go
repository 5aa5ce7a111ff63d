package detach

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type recorder struct {
	calls []string
	sid   int
}

func (r *recorder) ops() Ops {
	return Ops{
		IgnoreHangup: func() { r.calls = append(r.calls, "ignore-hup") },
		Getsid:       func() (int, error) { r.calls = append(r.calls, "getsid"); return r.sid, nil },
		Getpid:       func() int { return 100 },
		Setsid:       func() error { r.calls = append(r.calls, "setsid"); return nil },
		Umask:        func(mask int) int { r.calls = append(r.calls, "umask"); return 0o22 },
		Chdir: func(dir string) error {
			r.calls = append(r.calls, "chdir "+dir)
			return nil
		},
		RedirectStdio: func() error { r.calls = append(r.calls, "stdio"); return nil },
	}
}

func TestSettleOrderWhenAlreadySessionLeader(t *testing.T) {
	r := &recorder{sid: 100}
	if err := r.ops().Settle(); err != nil {
		t.Fatalf("Settle returned error: %v", err)
	}
	want := "ignore-hup,getsid,umask,chdir /,stdio"
	if got := strings.Join(r.calls, ","); got != want {
		t.Fatalf("calls: got %q want %q", got, want)
	}
}

func TestSettleCallsSetsidWhenNotLeader(t *testing.T) {
	r := &recorder{sid: 1}
	if err := r.ops().Settle(); err != nil {
		t.Fatalf("Settle returned error: %v", err)
	}
	want := "ignore-hup,getsid,setsid,umask,chdir /,stdio"
	if got := strings.Join(r.calls, ","); got != want {
		t.Fatalf("calls: got %q want %q", got, want)
	}
}

func TestSettleSetsidFailureIsFatal(t *testing.T) {
	r := &recorder{sid: 1}
	ops := r.ops()
	ops.Setsid = func() error { return errors.New("operation not permitted") }
	err := ops.Settle()
	if err == nil || !strings.Contains(err.Error(), "setsid") {
		t.Fatalf("expected setsid error, got %v", err)
	}
	for _, call := range r.calls {
		if call == "stdio" {
			t.Fatal("stdio must not be redirected after a failed setsid")
		}
	}
}

func TestIsChildReadsMarker(t *testing.T) {
	t.Setenv(EnvMarker, "")
	if IsChild() {
		t.Fatal("expected parent without marker")
	}
	t.Setenv(EnvMarker, "1")
	if !IsChild() {
		t.Fatal("expected child with marker")
	}
}

func TestSpawnStartsMarkedChild(t *testing.T) {
	sh := "/bin/sh"
	if _, err := os.Stat(sh); err != nil {
		t.Skipf("no shell available: %v", err)
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "child.out")
	// The appended flag pair arrives as $0 and $1.
	script := `printf '%s %s %s' "$` + EnvMarker + `" "$0" "$1" > ` + out

	pid, err := Spawn(SpawnOptions{Executable: sh, Args: []string{"-c", script}, WorkDir: dir})
	if err != nil {
		t.Fatalf("Spawn returned error: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("unexpected pid %d", pid)
	}

	want := "1 " + WorkDirFlag + " " + dir
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(out)
		if err == nil && string(data) == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	data, _ := os.ReadFile(out)
	t.Fatalf("child output: got %q want %q", data, want)
}

func TestSpawnMissingExecutable(t *testing.T) {
	_, err := Spawn(SpawnOptions{Executable: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatal("expected spawn failure")
	}
}
