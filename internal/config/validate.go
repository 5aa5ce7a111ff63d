package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks the settings carry every required value.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.SourceDir) == "" {
		return fmt.Errorf("%w: source directory is empty", ErrInvalid)
	}
	if strings.TrimSpace(s.DestDir) == "" {
		return fmt.Errorf("%w: destination directory is empty", ErrInvalid)
	}
	if s.PollInterval < time.Second {
		return fmt.Errorf("%w: poll interval must be a positive number of seconds", ErrInvalid)
	}
	return nil
}

var errNoBackingFile = fmt.Errorf("%w: store has no backing file", ErrInvalid)
