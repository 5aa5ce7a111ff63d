package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid marks configuration content that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Settings is one consistent view of the daemon configuration.
type Settings struct {
	SourceDir    string
	DestDir      string
	PollInterval time.Duration
}

// AggregatePath returns the location of the aggregate file for these settings.
func (s Settings) AggregatePath() string {
	return filepath.Join(s.DestDir, AggregateFileName)
}

// PollSeconds returns the poll interval as whole seconds, the unit used on disk.
func (s Settings) PollSeconds() int {
	return int(s.PollInterval / time.Second)
}

// Load reads and validates the configuration file at path.
func Load(path string) (Settings, error) {
	resolved, err := ExpandPath(path, "")
	if err != nil {
		return Settings{}, err
	}
	file, err := os.Open(resolved)
	if err != nil {
		return Settings{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	settings, err := Parse(file, filepath.Dir(resolved))
	if err != nil {
		return Settings{}, fmt.Errorf("parse config %s: %w", resolved, err)
	}
	return settings, nil
}

// maxPollSeconds is the largest interval a time.Duration can hold.
const maxPollSeconds = math.MaxInt64 / int64(time.Second)

// Parse reads the three configuration lines from r. Relative directories are
// resolved against baseDir. Lines after the third are ignored.
func Parse(r io.Reader, baseDir string) (Settings, error) {
	scanner := bufio.NewScanner(r)
	lines := make([]string, 0, 3)
	for len(lines) < 3 && scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return Settings{}, fmt.Errorf("read config: %w", err)
	}

	names := []string{"source directory", "destination directory", "poll interval"}
	if len(lines) < len(names) {
		return Settings{}, fmt.Errorf("%w: missing %s (line %d)", ErrInvalid, names[len(lines)], len(lines)+1)
	}

	// Directory lines are taken verbatim; only the interval is trimmed.
	interval := strings.TrimSpace(lines[2])
	seconds, err := strconv.ParseInt(interval, 10, 64)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: poll interval %q is not an integer", ErrInvalid, interval)
	}
	if seconds > maxPollSeconds {
		return Settings{}, fmt.Errorf("%w: poll interval %d exceeds %d seconds", ErrInvalid, seconds, maxPollSeconds)
	}

	settings := Settings{
		SourceDir:    lines[0],
		DestDir:      lines[1],
		PollInterval: time.Duration(seconds) * time.Second,
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}

	if settings.SourceDir, err = ExpandPath(settings.SourceDir, baseDir); err != nil {
		return Settings{}, fmt.Errorf("source directory: %w", err)
	}
	if settings.DestDir, err = ExpandPath(settings.DestDir, baseDir); err != nil {
		return Settings{}, fmt.Errorf("destination directory: %w", err)
	}
	return settings, nil
}

// Format renders settings in the on-disk three-line layout.
func Format(s Settings) string {
	return fmt.Sprintf("%s\n%s\n%d\n", s.SourceDir, s.DestDir, s.PollSeconds())
}

// WriteFile stores settings at path in the on-disk layout.
func WriteFile(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return writeConfig(path, Format(s))
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	return writeConfig(path, sampleConfig)
}

func writeConfig(path, content string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ExpandPath expands a leading tilde, resolves relative paths against
// baseDir (or the working directory when baseDir is empty) and cleans the
// result.
func ExpandPath(pathValue, baseDir string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	if !filepath.IsAbs(pathValue) && baseDir != "" {
		pathValue = filepath.Join(baseDir, pathValue)
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
