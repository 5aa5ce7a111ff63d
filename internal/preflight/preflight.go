package preflight

import (
	"path/filepath"

	"logsweep/internal/config"
)

// Result holds the outcome of a single check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll checks the directories named by settings and the directory that
// holds the PID file.
func RunAll(settings config.Settings, pidPath string) []Result {
	results := []Result{
		// Files are read and the directory entries removed.
		CheckDirectoryAccess("Source directory", settings.SourceDir, AccessRead|AccessWrite),
		CheckDirectoryAccess("Destination directory", settings.DestDir, AccessWrite),
	}
	if pidPath != "" {
		results = append(results, CheckDirectoryAccess("PID directory", filepath.Dir(pidPath), AccessWrite))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
