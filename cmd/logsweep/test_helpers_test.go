package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"logsweep/internal/config"
	"logsweep/internal/testsupport"
)

type cliTestEnv struct {
	settings   config.Settings
	configPath string
	pidPath    string
	ledgerPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	settings := testsupport.NewSettings(t)
	state := t.TempDir()
	return &cliTestEnv{
		settings:   settings,
		configPath: testsupport.WriteConfig(t, settings),
		pidPath:    filepath.Join(state, "logsweep.pid"),
		ledgerPath: filepath.Join(state, "ledger.db"),
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, append([]string{
		"--config", e.configPath,
		"--pid-file", e.pidPath,
		"--ledger", e.ledgerPath,
		"--log-output", filepath.Join(filepath.Dir(e.pidPath), "cli.log"),
	}, args...))
}

func runCLI(t *testing.T, args []string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
