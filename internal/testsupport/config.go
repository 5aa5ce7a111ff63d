package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"logsweep/internal/config"
)

// SettingsOption allows callers to customize the generated test settings.
type SettingsOption func(*settingsBuilder)

type settingsBuilder struct {
	t        testing.TB
	baseDir  string
	settings config.Settings
	noDirs   bool
}

// NewSettings produces settings seeded with unique temp directories per test.
// Source and destination directories exist unless WithoutDirectories is given.
func NewSettings(t testing.TB, opts ...SettingsOption) config.Settings {
	t.Helper()

	base := t.TempDir()
	builder := &settingsBuilder{
		t:       t,
		baseDir: base,
		settings: config.Settings{
			SourceDir:    filepath.Join(base, "source"),
			DestDir:      filepath.Join(base, "dest"),
			PollInterval: time.Second,
		},
	}
	for _, opt := range opts {
		opt(builder)
	}

	if !builder.noDirs {
		for _, dir := range []string{builder.settings.SourceDir, builder.settings.DestDir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", dir, err)
			}
		}
	}
	return builder.settings
}

// WithPollInterval overrides the poll interval.
func WithPollInterval(d time.Duration) SettingsOption {
	return func(b *settingsBuilder) {
		b.settings.PollInterval = d
	}
}

// WithSharedDirectory points source and destination at the same directory.
func WithSharedDirectory() SettingsOption {
	return func(b *settingsBuilder) {
		b.settings.DestDir = b.settings.SourceDir
	}
}

// WithoutDirectories leaves the configured directories uncreated.
func WithoutDirectories() SettingsOption {
	return func(b *settingsBuilder) {
		b.noDirs = true
	}
}

// WriteConfig stores settings as a configuration file next to the source
// directory and returns its path.
func WriteConfig(t testing.TB, settings config.Settings) string {
	t.Helper()

	path := filepath.Join(filepath.Dir(settings.SourceDir), config.DefaultConfigFile)
	if err := config.WriteFile(path, settings); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
