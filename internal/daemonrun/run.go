package daemonrun

import (
	"context"
	"fmt"

	"logsweep/internal/daemon"
	"logsweep/internal/detach"
	"logsweep/internal/logging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	ConfigPath string
	WorkDir    string
	PIDPath    string
	LedgerPath string

	LogLevel   string
	LogFormat  string
	FileFormat string
	LogOutputs []string
	// Detached marks the re-executed background child.
	Detached bool
}

// Run builds the logger and the daemon, then sweeps until shutdown.
func Run(ctx context.Context, opts Options) error {
	outputs := opts.LogOutputs
	if len(outputs) == 0 {
		outputs = DefaultOutputs(opts.Detached)
	}
	logger, err := logging.New(logging.Options{
		Level:      opts.LogLevel,
		Format:     opts.LogFormat,
		FileFormat: opts.FileFormat,
		Outputs:    outputs,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		if dropped := logger.Dropped(); dropped > 0 {
			logger.Warn("log lines dropped", logging.Int64("dropped", int64(dropped)))
		}
		_ = logger.Close()
	}()

	d, err := daemon.New(daemon.Options{
		ConfigPath: opts.ConfigPath,
		WorkDir:    opts.WorkDir,
		PIDPath:    opts.PIDPath,
		LedgerPath: opts.LedgerPath,
		Detached:   opts.Detached,
		Logger:     logger.Logger,
	})
	if err != nil {
		logging.ErrorWithContext(logger.Logger, "daemon startup failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the configuration file"),
		)
		return err
	}
	defer d.Close()

	if err := d.Run(ctx); err != nil {
		logging.ErrorWithContext(logger.Logger, "daemon exited with error", "daemon_run_failed",
			logging.Error(err),
		)
		return err
	}
	return nil
}

// DefaultOutputs returns where logs go when no output is configured. A
// detached daemon has no terminal, so it logs to syslog.
func DefaultOutputs(detached bool) []string {
	if detached {
		return []string{logging.OutputSyslog}
	}
	return []string{logging.OutputStderr}
}

// IsDetachedChild reports whether this process was started by daemon.Launch.
func IsDetachedChild() bool {
	return detach.IsChild()
}
