// Package detach moves the daemon into the background.
//
// A Go program cannot fork safely once the runtime has started threads, so
// detachment re-executes the current binary in a new session and lets the
// parent exit. The child finishes the job with Settle.
package detach

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// EnvMarker is set in the environment of a re-executed child.
const EnvMarker = "LOGSWEEP_DETACHED"

// WorkDirFlagName names the flag that carries the parent's working
// directory to the child.
const WorkDirFlagName = "workdir"

// WorkDirFlag is WorkDirFlagName in command-line form.
const WorkDirFlag = "--" + WorkDirFlagName

// SpawnOptions describes the child to start.
type SpawnOptions struct {
	// Executable defaults to os.Executable.
	Executable string
	Args       []string
	// WorkDir is the working directory captured by the parent. It is passed
	// to the child with WorkDirFlag and used as the child's initial directory.
	WorkDir string
	Env     []string
}

// IsChild reports whether the process was started by Spawn.
func IsChild() bool {
	return os.Getenv(EnvMarker) == "1"
}

// Spawn starts the detached child in its own session with stdio bound to the
// null device and returns its PID. The child is released; the caller is
// expected to exit.
func Spawn(opts SpawnOptions) (int, error) {
	exe := strings.TrimSpace(opts.Executable)
	if exe == "" {
		resolved, err := os.Executable()
		if err != nil {
			return 0, fmt.Errorf("resolve executable: %w", err)
		}
		exe = resolved
	}

	args := append([]string(nil), opts.Args...)
	if opts.WorkDir != "" {
		args = append(args, WorkDirFlag, opts.WorkDir)
	}

	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	env := opts.Env
	if env == nil {
		env = os.Environ()
	}
	cmd := exec.Command(exe, args...)
	cmd.Env = append(append([]string(nil), env...), EnvMarker+"=1")
	cmd.Dir = opts.WorkDir
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("spawn daemon: %w", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("release daemon process: %w", err)
	}
	return pid, nil
}

// Ops are the process primitives used by Settle.
type Ops struct {
	IgnoreHangup func()
	Getsid       func() (int, error)
	Getpid       func() int
	Setsid       func() error
	Umask        func(mask int) int
	Chdir        func(dir string) error
	// RedirectStdio points descriptors 0, 1 and 2 at the null device.
	RedirectStdio func() error
}

// SystemOps returns the real primitives.
func SystemOps() Ops {
	return Ops{
		IgnoreHangup: func() { signal.Ignore(syscall.SIGHUP) },
		Getsid:       func() (int, error) { return unix.Getsid(0) },
		Getpid:       os.Getpid,
		Setsid: func() error {
			_, err := unix.Setsid()
			return err
		},
		Umask:         unix.Umask,
		Chdir:         os.Chdir,
		RedirectStdio: redirectStdio,
	}
}

// Settle finishes detachment inside the child: it ignores SIGHUP until the
// real handlers are installed, makes sure the process leads its own session,
// clears the umask, moves to the filesystem root and drops the terminal
// descriptors.
func Settle() error {
	return SystemOps().Settle()
}

// Settle runs the detachment steps with o.
func (o Ops) Settle() error {
	o.IgnoreHangup()

	sid, err := o.Getsid()
	if err != nil {
		return fmt.Errorf("query session: %w", err)
	}
	if sid != o.Getpid() {
		if err := o.Setsid(); err != nil {
			return fmt.Errorf("setsid: %w", err)
		}
	}

	o.Umask(0)
	if err := o.Chdir("/"); err != nil {
		return fmt.Errorf("chdir /: %w", err)
	}
	if err := o.RedirectStdio(); err != nil {
		return fmt.Errorf("redirect stdio: %w", err)
	}
	return nil
}

func redirectStdio() error {
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer devNull.Close()
	for _, fd := range []int{0, 1, 2} {
		if err := dupTo(int(devNull.Fd()), fd); err != nil {
			return fmt.Errorf("fd %d: %w", fd, err)
		}
	}
	return nil
}
