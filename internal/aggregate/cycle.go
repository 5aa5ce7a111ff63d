package aggregate

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"logsweep/internal/config"
	"logsweep/internal/logging"
)

// SettingsSource supplies the active configuration snapshot.
type SettingsSource interface {
	Current() config.Settings
}

// Recorder persists pass results.
type Recorder interface {
	Record(ctx context.Context, result Result) error
}

// Result summarizes one pass.
type Result struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	SourceDir  string
	DestDir    string
	Discovered int
	Appended   int
	Skipped    int
	Deleted    int
	Bytes      int64
	// Error holds the discovery or aggregate-file failure of the pass, if any.
	Error string
}

// DataLoss reports whether any discovered file was deleted without its
// content reaching the aggregate file.
func (r Result) DataLoss() bool {
	return r.Deleted > 0 && r.Appended < r.Discovered
}

// Duration returns how long the pass took.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Option configures a Cycle.
type Option func(*Cycle)

// WithLogger sets the cycle logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cycle) {
		c.logger = logging.NewComponentLogger(logger, "cycle")
	}
}

// WithRecorder stores every pass that discovered at least one file.
func WithRecorder(r Recorder) Option {
	return func(c *Cycle) {
		c.recorder = r
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cycle) {
		if now != nil {
			c.now = now
		}
	}
}

// Cycle runs passes back to back, sleeping the configured interval between them.
type Cycle struct {
	settings SettingsSource
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
	wake     chan struct{}
}

// NewCycle returns a cycle reading its configuration from settings.
func NewCycle(settings SettingsSource, opts ...Option) *Cycle {
	c := &Cycle{
		settings: settings,
		logger:   logging.NewComponentLogger(nil, "cycle"),
		now:      time.Now,
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wake ends the current sleep so the next pass starts immediately. It never
// blocks; wake-ups that arrive while one is pending are merged.
func (c *Cycle) Wake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run executes passes until ctx is cancelled. It returns nil on cancellation.
func (c *Cycle) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		c.RunOnce(ctx)

		interval := c.settings.Current().PollInterval
		if interval <= 0 {
			interval = time.Second
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-c.wake:
			timer.Stop()
			c.logger.Debug("woken before interval elapsed")
		case <-timer.C:
		}
	}
}

// RunOnce performs one discover, append and delete pass against a single
// settings snapshot.
func (c *Cycle) RunOnce(ctx context.Context) Result {
	settings := c.settings.Current()
	result := Result{
		ID:        uuid.NewString(),
		StartedAt: c.now().UTC(),
		SourceDir: settings.SourceDir,
		DestDir:   settings.DestDir,
	}
	logger := c.logger.With(logging.String(logging.FieldPassID, result.ID))
	aggregatePath := settings.AggregatePath()

	files, err := Discover(ctx, settings.SourceDir, aggregatePath, logger)
	if err != nil {
		result.Error = err.Error()
		if ctx.Err() == nil {
			logging.WarnWithContext(logger, "discovery failed", "discover_failed",
				logging.String(logging.FieldPath, settings.SourceDir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the source directory exists and is readable"),
				logging.String(logging.FieldImpact, "discovered files are still processed, the rest wait for the next pass"),
			)
		}
	}
	result.Discovered = len(files)
	if len(files) == 0 {
		result.FinishedAt = c.now().UTC()
		logger.Debug("no log files discovered", logging.String(logging.FieldPath, settings.SourceDir))
		return result
	}

	stats, err := Append(aggregatePath, files, logger)
	result.Appended = stats.Appended
	result.Skipped = stats.Skipped
	result.Bytes = stats.Bytes
	if err != nil {
		result.Error = err.Error()
		logging.ErrorWithContext(logger, "aggregate file unavailable", "aggregate_open_failed",
			logging.String(logging.FieldPath, aggregatePath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the destination directory permissions"),
			logging.Int("files", len(files)),
		)
	}

	result.Deleted = Delete(files, logger)
	result.FinishedAt = c.now().UTC()

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "pass_completed"),
		logging.Int("discovered", result.Discovered),
		logging.Int("appended", result.Appended),
		logging.Int("skipped", result.Skipped),
		logging.Int("deleted", result.Deleted),
		logging.Int64("bytes", result.Bytes),
		logging.Duration("duration", result.Duration()),
	}
	if result.DataLoss() {
		attrs = append(attrs, logging.Bool("data_loss", true))
		logger.Warn("pass completed with data loss", logging.Args(attrs...)...)
	} else {
		logger.Info("pass completed", logging.Args(attrs...)...)
	}

	if c.recorder != nil {
		if err := c.recorder.Record(context.WithoutCancel(ctx), result); err != nil {
			logging.WarnWithContext(logger, "record pass failed", "ledger_record_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "pass is missing from history"),
			)
		}
	}
	return result
}
