package aggregate

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"logsweep/internal/fileutil"
	"logsweep/internal/logging"
)

// Separator precedes every block in the aggregate file.
const Separator = "\n\n"

// BlockOverhead is the number of bytes a block adds beyond the path and the
// file content.
const BlockOverhead = len(Separator) + 1

// AppendStats summarizes one Append call.
type AppendStats struct {
	Appended int
	Skipped  int
	Bytes    int64
}

// Append writes one block per file to the aggregate file at aggregatePath,
// creating it when needed. The file is held under an exclusive advisory lock
// for the duration. A block is "\n\n", the path, "\n", then the verbatim
// content. Files that cannot be opened are logged and skipped. An error is
// returned only when the aggregate file itself cannot be used.
func Append(aggregatePath string, files []string, logger *slog.Logger) (AppendStats, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var stats AppendStats

	if err := os.MkdirAll(filepath.Dir(aggregatePath), 0o755); err != nil {
		return stats, fmt.Errorf("create destination directory: %w", err)
	}
	out, err := os.OpenFile(aggregatePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return stats, fmt.Errorf("open aggregate file: %w", err)
	}
	defer out.Close()

	lock := flock.New(aggregatePath)
	if err := lock.Lock(); err != nil {
		return stats, fmt.Errorf("lock aggregate file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	w := bufio.NewWriter(out)
	for _, path := range files {
		n, err := appendBlock(w, path)
		if err != nil {
			stats.Skipped++
			logging.WarnWithContext(logger, "skipping unreadable log file", "append_source_unreadable",
				logging.String(logging.FieldPath, path),
				logging.Error(err),
				logging.Bool("data_loss", true),
				logging.String(logging.FieldImpact, "file is deleted without being aggregated"),
			)
			continue
		}
		stats.Appended++
		stats.Bytes += n
		logger.Debug("appended log file",
			logging.String(logging.FieldPath, path),
			logging.Int64("bytes", n),
		)
	}
	if err := w.Flush(); err != nil {
		return stats, fmt.Errorf("write aggregate file: %w", err)
	}
	if err := out.Sync(); err != nil {
		return stats, fmt.Errorf("sync aggregate file: %w", err)
	}
	return stats, nil
}

// appendBlock opens path before writing anything so an unreadable file leaves
// no partial header behind.
func appendBlock(w *bufio.Writer, path string) (int64, error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	header := Separator + path + "\n"
	if _, err := w.WriteString(header); err != nil {
		return 0, err
	}
	n, err := w.ReadFrom(in)
	if err != nil {
		return int64(len(header)) + n, err
	}
	return int64(len(header)) + n, nil
}

// ReadTail returns at most n trailing bytes of the aggregate file, read under
// a shared lock, and the file size at the time of the read. A missing file
// yields os.ErrNotExist without creating it.
func ReadTail(aggregatePath string, n int64) ([]byte, int64, error) {
	f, err := os.Open(aggregatePath)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	lock := flock.New(aggregatePath)
	if err := lock.RLock(); err != nil {
		return nil, 0, fmt.Errorf("lock aggregate file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := fileutil.ReadTail(f, n)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	return data, info.Size(), nil
}
