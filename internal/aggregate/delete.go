package aggregate

import (
	"errors"
	"log/slog"
	"os"

	"logsweep/internal/logging"
)

// Delete removes every file in files and returns how many were removed.
// Files that are already gone count as removed.
func Delete(files []string, logger *slog.Logger) int {
	if logger == nil {
		logger = logging.NewNop()
	}
	removed := 0
	for _, path := range files {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(logger, "remove log file failed", "delete_failed",
				logging.String(logging.FieldPath, path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file will be aggregated again on the next pass"),
			)
			continue
		}
		removed++
		logger.Debug("removed log file", logging.String(logging.FieldPath, path))
	}
	return removed
}
