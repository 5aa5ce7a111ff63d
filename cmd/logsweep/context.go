package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"logsweep/internal/config"
	"logsweep/internal/ledger"
	"logsweep/internal/logging"
)

const skipConfigAnnotation = "skipConfigLoad"

type globalFlags struct {
	config        string
	pidFile       string
	ledger        string
	logLevel      string
	logFormat     string
	logFileFormat string
	logOutputs    []string
	workDir       string
}

type commandContext struct {
	flags *globalFlags

	settingsOnce sync.Once
	settings     config.Settings
	configPath   string
	settingsErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureSettings() (config.Settings, error) {
	c.settingsOnce.Do(func() {
		path, err := c.resolvedConfigPath()
		if err != nil {
			c.settingsErr = err
			return
		}
		c.configPath = path
		c.settings, c.settingsErr = config.Load(path)
	})
	return c.settings, c.settingsErr
}

func (c *commandContext) resolvedConfigPath() (string, error) {
	path := strings.TrimSpace(c.flags.config)
	if path == "" {
		path = config.DefaultConfigFile
	}
	return config.ExpandPath(path, c.flags.workDir)
}

func (c *commandContext) pidPath() string {
	if p := strings.TrimSpace(c.flags.pidFile); p != "" {
		return p
	}
	return config.DefaultPIDPath
}

func (c *commandContext) ledgerPath() string {
	return strings.TrimSpace(c.flags.ledger)
}

// openLedger opens the pass history for reading. A disabled or missing ledger
// yields a nil store and no error.
func (c *commandContext) openLedger(ctx context.Context) (*ledger.Store, error) {
	path := c.ledgerPath()
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat ledger: %w", err)
	}
	return ledger.Open(ctx, path)
}

func (c *commandContext) newLogger(defaults []string) (*logging.Logger, error) {
	outputs := c.flags.logOutputs
	if len(outputs) == 0 {
		outputs = defaults
	}
	return logging.New(logging.Options{
		Level:      c.flags.logLevel,
		Format:     c.flags.logFormat,
		FileFormat: c.flags.logFileFormat,
		Outputs:    outputs,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}
