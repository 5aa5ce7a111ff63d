package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"logsweep/internal/config"
	"logsweep/internal/fileutil"
	"logsweep/internal/logging"
)

// Matches reports whether a file name selects a file for aggregation.
// A name consisting only of the extension is a hidden file, not a log.
func Matches(name string) bool {
	return name != config.LogExtension && filepath.Ext(name) == config.LogExtension
}

// Discover walks sourceDir and returns every regular file, or symlink to a
// regular file, whose name matches. A sourceDir that is itself a symlink is
// followed; returned paths stay under sourceDir as configured. exclude names
// a path that is never returned, normally the aggregate file. Unreadable
// subtrees are logged and skipped; a missing or unreadable sourceDir is
// returned as an error.
func Discover(ctx context.Context, sourceDir, exclude string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	excluded := map[string]bool{filepath.Clean(exclude): true}
	if resolved, ok := resolveParent(exclude); ok {
		excluded[resolved] = true
	}

	root := sourceDir
	if resolved, err := filepath.EvalSymlinks(sourceDir); err == nil {
		root = resolved
	}
	// display maps a walked path back under the configured sourceDir.
	display := func(walked string) string {
		rel, err := filepath.Rel(root, walked)
		if err != nil {
			return walked
		}
		return filepath.Join(sourceDir, rel)
	}

	var files []string
	err := filepath.WalkDir(root, func(walked string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		path := display(walked)
		if err != nil {
			if walked == root {
				return err
			}
			logging.WarnWithContext(logger, "skipping unreadable entry", "discover_entry_unreadable",
				logging.String(logging.FieldPath, path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions under the source directory"),
				logging.String(logging.FieldImpact, "files below this entry are not aggregated"),
			)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !Matches(d.Name()) {
			return nil
		}
		if excluded[filepath.Clean(path)] || excluded[filepath.Clean(walked)] {
			return nil
		}
		switch {
		case d.Type().IsRegular():
		case d.Type()&fs.ModeSymlink != 0 && fileutil.IsRegular(walked):
		default:
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return files, err
		}
		return files, fmt.Errorf("walk %s: %w", sourceDir, err)
	}
	return files, nil
}

// resolveParent resolves the directory part of path through symlinks. The
// file itself may not exist yet.
func resolveParent(path string) (string, bool) {
	dir, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		return "", false
	}
	return filepath.Join(dir, filepath.Base(path)), true
}
