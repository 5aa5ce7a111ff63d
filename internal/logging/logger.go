package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"log/syslog"
	"os"
	"path/filepath"
	"strings"
)

// Output names understood by Options.Outputs in addition to file paths.
const (
	OutputStdout = "stdout"
	OutputStderr = "stderr"
	OutputSyslog = "syslog"
)

// SyslogTag is the program tag attached to syslog records.
const SyslogTag = "logsweep"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// FileFormat applies to file path outputs. Empty means Format.
	FileFormat string
	Outputs    []string
	// BufferSize bounds the number of pending lines held by the asynchronous
	// writer. Zero selects DefaultBufferSize.
	BufferSize int
}

// Logger bundles the slog logger with the writer pipeline backing it so
// callers can flush pending lines on shutdown.
type Logger struct {
	*slog.Logger
	sinks []*AsyncWriter
}

// Close drains pending log lines and releases the outputs.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	var errs []error
	for _, sink := range l.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dropped reports how many lines were discarded because a sink was saturated.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	var total uint64
	for _, sink := range l.sinks {
		total += sink.Dropped()
	}
	return total
}

// New constructs a slog logger using the provided options. Every output is
// fed through a bounded asynchronous writer so that emitting a record never
// blocks the caller. Stream outputs (stdout, stderr, syslog) and file outputs
// form two groups that may use different formats.
func New(opts Options) (*Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)
	addSource := level <= slog.LevelDebug

	streamFormat, err := normalizeFormat(opts.Format, "console")
	if err != nil {
		return nil, err
	}
	fileFormat, err := normalizeFormat(opts.FileFormat, streamFormat)
	if err != nil {
		return nil, err
	}

	streams, files := splitOutputs(defaultSlice(opts.Outputs, []string{OutputStderr}))
	logger := &Logger{}
	var handlers []slog.Handler
	for _, group := range []struct {
		outputs []string
		format  string
	}{{streams, streamFormat}, {files, fileFormat}} {
		if len(group.outputs) == 0 {
			continue
		}
		writer, closers, err := openWriters(group.outputs)
		if err != nil {
			_ = logger.Close()
			return nil, err
		}
		sink := NewAsyncWriter(writer, opts.BufferSize, closers...)
		logger.sinks = append(logger.sinks, sink)
		handlers = append(handlers, newFormatHandler(group.format, sink, levelVar, addSource))
	}

	logger.Logger = slog.New(newFanoutHandler(handlers...))
	return logger, nil
}

func normalizeFormat(value, fallback string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(value))
	switch format {
	case "":
		return fallback, nil
	case "json", "console":
		return format, nil
	default:
		return "", fmt.Errorf("log format: unsupported value %q", value)
	}
}

func newFormatHandler(format string, w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	if format == "json" {
		return newJSONHandler(w, lvl, addSource)
	}
	return newConsoleHandler(w, lvl, addSource)
}

// splitOutputs separates stream outputs from file paths, dropping blanks and
// duplicates.
func splitOutputs(outputs []string) (streams, files []string) {
	seen := map[string]struct{}{}
	for _, out := range outputs {
		trimmed := strings.TrimSpace(out)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		switch trimmed {
		case OutputStdout, OutputStderr, OutputSyslog:
			streams = append(streams, trimmed)
		default:
			files = append(files, trimmed)
		}
	}
	return streams, files
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultSlice(value []string, fallback []string) []string {
	if len(value) == 0 {
		cp := make([]string, len(fallback))
		copy(cp, fallback)
		return cp
	}
	cp := make([]string, len(value))
	copy(cp, value)
	return cp
}

func openWriters(outputs []string) (io.Writer, []io.Closer, error) {
	var writers []io.Writer
	var closers []io.Closer

	fail := func(err error) (io.Writer, []io.Closer, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, nil, err
	}

	for _, trimmed := range outputs {
		switch trimmed {
		case OutputStdout:
			writers = append(writers, os.Stdout)
		case OutputStderr:
			writers = append(writers, os.Stderr)
		case OutputSyslog:
			sw, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, SyslogTag)
			if err != nil {
				return fail(fmt.Errorf("open syslog: %w", err))
			}
			writers = append(writers, sw)
			closers = append(closers, sw)
		default:
			if err := ensureLogDir(trimmed); err != nil {
				return fail(err)
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fail(fmt.Errorf("open log file %s: %w", trimmed, err))
			}
			writers = append(writers, file)
			closers = append(closers, file)
		}
	}

	switch len(writers) {
	case 0:
		return os.Stderr, nil, nil
	case 1:
		return writers[0], closers, nil
	default:
		return io.MultiWriter(writers...), closers, nil
	}
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
