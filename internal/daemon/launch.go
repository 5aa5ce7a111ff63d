package daemon

import (
	"fmt"
	"time"

	"logsweep/internal/config"
	"logsweep/internal/detach"
	"logsweep/internal/logging"
	"logsweep/internal/pidfile"
)

// LaunchOptions controls how the background daemon process is started.
type LaunchOptions struct {
	// Executable defaults to the running binary.
	Executable string
	ConfigPath string
	PIDPath    string
	LedgerPath string
	LogLevel   string
	LogFormat  string
	FileFormat string
	LogOutputs []string
	// WorkDir defaults to the current directory.
	WorkDir string
	// Wait bounds how long Launch waits for the child to write its PID record.
	// Zero returns right after the spawn.
	Wait time.Duration
}

// Launch validates the configuration in the calling process, then re-executes
// the binary as a detached daemon and returns the child PID. Relative paths
// are resolved here, since the child moves to the filesystem root.
func Launch(opts LaunchOptions) (int, error) {
	root, err := resolveDir(opts.WorkDir)
	if err != nil {
		return 0, fmt.Errorf("capture working directory: %w", err)
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigFile
	}
	if configPath, err = config.ExpandPath(configPath, root); err != nil {
		return 0, fmt.Errorf("resolve config path: %w", err)
	}
	if _, err := config.Load(configPath); err != nil {
		return 0, fmt.Errorf("load config: %w", err)
	}

	pidPath := opts.PIDPath
	if pidPath == "" {
		pidPath = config.DefaultPIDPath
	}
	if pidPath, err = config.ExpandPath(pidPath, root); err != nil {
		return 0, fmt.Errorf("resolve pid path: %w", err)
	}
	ledgerPath, err := config.ExpandPath(opts.LedgerPath, root)
	if err != nil {
		return 0, fmt.Errorf("resolve ledger path: %w", err)
	}

	args := []string{
		"daemon",
		"--config", configPath,
		"--pid-file", pidPath,
		"--ledger", ledgerPath,
	}
	if opts.LogLevel != "" {
		args = append(args, "--log-level", opts.LogLevel)
	}
	if opts.LogFormat != "" {
		args = append(args, "--log-format", opts.LogFormat)
	}
	if opts.FileFormat != "" {
		args = append(args, "--log-file-format", opts.FileFormat)
	}
	for _, output := range opts.LogOutputs {
		switch output {
		case logging.OutputStdout, logging.OutputStderr, logging.OutputSyslog:
		default:
			if output, err = config.ExpandPath(output, root); err != nil {
				return 0, fmt.Errorf("resolve log output: %w", err)
			}
		}
		args = append(args, "--log-output", output)
	}

	pid, err := detach.Spawn(detach.SpawnOptions{
		Executable: opts.Executable,
		Args:       args,
		WorkDir:    root,
	})
	if err != nil {
		return 0, err
	}
	if opts.Wait <= 0 {
		return pid, nil
	}
	if err := WaitForRecord(pidPath, pid, opts.Wait); err != nil {
		return pid, err
	}
	return pid, nil
}

// WaitForRecord polls the PID file until it names pid or timeout elapses.
func WaitForRecord(pidPath string, pid int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if recorded, err := pidfile.Read(pidPath); err == nil && recorded == pid {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("daemon (pid %d) did not record itself in %s within %s; check the daemon log", pid, pidPath, timeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
