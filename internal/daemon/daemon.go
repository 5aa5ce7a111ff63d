package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"logsweep/internal/aggregate"
	"logsweep/internal/config"
	"logsweep/internal/detach"
	"logsweep/internal/ledger"
	"logsweep/internal/logging"
	"logsweep/internal/pidfile"
	"logsweep/internal/preflight"
	"logsweep/internal/signals"
)

// Options configures a Daemon.
type Options struct {
	// ConfigPath is resolved against WorkDir when relative.
	ConfigPath string
	// WorkDir is the working directory the daemon was started from. Empty
	// means the current directory.
	WorkDir    string
	PIDPath    string
	LedgerPath string
	// Detached runs the post-spawn settle steps before writing the PID record.
	Detached bool
	Logger   *slog.Logger

	// Settle replaces detach.Settle; used by tests.
	Settle func() error
	// Guard replaces the default PID guard; used by tests.
	Guard *pidfile.Guard
}

// Status is a snapshot of daemon runtime information.
type Status struct {
	Running     bool
	PID         int
	WorkingRoot string
	ConfigPath  string
	PIDPath     string
	LedgerPath  string
	Settings    config.Settings
}

// Daemon holds the process-wide state of one logsweep instance.
type Daemon struct {
	workingRoot string
	settings    *config.Store
	pidPath     string
	detached    bool
	settle      func() error

	logger *slog.Logger
	guard  *pidfile.Guard
	router *signals.Router
	cycle  *aggregate.Cycle
	ledger *ledger.Store

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// New loads the configuration and prepares a daemon. A configuration error
// is a fatal startup error. A ledger that cannot be opened is logged and the
// daemon runs without history.
func New(opts Options) (*Daemon, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	root := opts.WorkDir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("capture working directory: %w", err)
		}
		root = wd
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigFile
	}
	configPath, err := config.ExpandPath(configPath, root)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	store, err := config.NewStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	pidPath := opts.PIDPath
	if pidPath == "" {
		pidPath = config.DefaultPIDPath
	}

	guard := opts.Guard
	if guard == nil {
		guard = &pidfile.Guard{Path: pidPath}
	}
	if guard.Logger == nil {
		guard.Logger = logger
	}

	settle := opts.Settle
	if settle == nil {
		settle = detach.Settle
	}

	d := &Daemon{
		workingRoot: root,
		settings:    store,
		pidPath:     guard.Path,
		detached:    opts.Detached,
		settle:      settle,
		logger:      logging.NewComponentLogger(logger, "daemon"),
		guard:       guard,
	}

	cycleOpts := []aggregate.Option{aggregate.WithLogger(logger)}
	if opts.LedgerPath != "" {
		ledgerStore, err := ledger.Open(context.Background(), opts.LedgerPath)
		if err != nil {
			logging.WarnWithContext(d.logger, "pass ledger unavailable", "ledger_open_failed",
				logging.String(logging.FieldPath, opts.LedgerPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the ledger directory permissions or pass --ledger \"\""),
				logging.String(logging.FieldImpact, "passes are not recorded"),
			)
		} else {
			d.ledger = ledgerStore
			cycleOpts = append(cycleOpts, aggregate.WithRecorder(ledgerStore))
		}
	}
	d.cycle = aggregate.NewCycle(store, cycleOpts...)
	d.router = signals.NewRouter(d, logger)
	return d, nil
}

// Run enforces the single instance, finishes detachment when requested,
// writes the PID record and sweeps until shutdown. It returns nil after a
// graceful shutdown and an error for any fatal startup condition.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	st := d.Status()
	settings := st.Settings
	d.logger.Info("logsweep starting",
		logging.String(logging.FieldEventType, "daemon_starting"),
		logging.Int(logging.FieldPID, st.PID),
		logging.String("config", st.ConfigPath),
		logging.String("working_root", st.WorkingRoot),
		logging.String("ledger", st.LedgerPath),
		logging.String("source_dir", settings.SourceDir),
		logging.String("dest_dir", settings.DestDir),
		logging.Duration("poll_interval", settings.PollInterval),
		logging.Bool("detached", d.detached),
	)

	outcome, err := d.guard.EnsureSingleInstance(ctx)
	if err != nil {
		return fmt.Errorf("singleton guard: %w", err)
	}
	if outcome.Terminated {
		d.logger.Info("previous instance terminated", logging.Int(logging.FieldPID, outcome.PreviousPID))
	}

	if d.detached {
		if err := d.settle(); err != nil {
			logging.ErrorWithContext(d.logger, "detach failed", "detach_failed", logging.Error(err))
			return fmt.Errorf("detach: %w", err)
		}
	}

	// Handlers are installed before the PID record makes the process reachable.
	d.router.Install()
	defer d.router.Stop()

	if err := d.guard.WriteOwn(); err != nil {
		logging.ErrorWithContext(d.logger, "pid record not written", "pid_write_failed",
			logging.String(logging.FieldPath, d.pidPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run as a user that can write the pid file or pass --pid-file"),
		)
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.cancel = cancel
	d.mu.Unlock()

	go d.router.Run(runCtx)

	d.logPreflight(settings)
	d.logger.Info("logsweep running",
		logging.String(logging.FieldEventType, "daemon_running"),
		logging.String(logging.FieldPath, d.pidPath),
	)

	err = d.cycle.Run(runCtx)
	d.logger.Info("logsweep stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	return err
}

// ReloadConfig re-reads the configuration file. On success the next pass
// starts immediately with the new settings; on failure the previous settings
// remain active.
func (d *Daemon) ReloadConfig() error {
	settings, err := d.settings.Reload()
	if err != nil {
		return err
	}
	d.logger.Info("configuration reloaded",
		logging.String(logging.FieldEventType, "config_reloaded"),
		logging.String("source_dir", settings.SourceDir),
		logging.String("dest_dir", settings.DestDir),
		logging.Duration("poll_interval", settings.PollInterval),
	)
	d.logPreflight(settings)
	d.cycle.Wake()
	return nil
}

// Shutdown stops the sweep. The pass in progress, if any, finishes first.
func (d *Daemon) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.cancel != nil {
		d.cancel()
	}
}

// Status returns a snapshot of runtime information.
func (d *Daemon) Status() Status {
	st := Status{
		Running:     d.running.Load(),
		PID:         os.Getpid(),
		WorkingRoot: d.workingRoot,
		ConfigPath:  d.settings.Path(),
		PIDPath:     d.pidPath,
		Settings:    d.settings.Current(),
	}
	if d.ledger != nil {
		st.LedgerPath = d.ledger.Path()
	}
	return st
}

// Close releases the ledger.
func (d *Daemon) Close() error {
	if d.ledger == nil {
		return nil
	}
	return d.ledger.Close()
}

func (d *Daemon) logPreflight(settings config.Settings) {
	for _, r := range preflight.Failed(preflight.RunAll(settings, d.pidPath)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "fix the directory or update the configuration and send SIGHUP"),
			logging.String(logging.FieldImpact, "passes may skip or lose files"),
		)
	}
}

// resolveDir returns dir made absolute against the process working directory.
func resolveDir(dir string) (string, error) {
	if dir == "" {
		return os.Getwd()
	}
	return filepath.Abs(dir)
}
