package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"bidsify/internal/textutil"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateTransfer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateScan() error {
	if c.Scan.ForceTask != "" && !textutil.IsLabel(c.Scan.ForceTask) {
		return fmt.Errorf("scan.force_task %q must contain only letters and digits", c.Scan.ForceTask)
	}
	for old, replacement := range c.Scan.TaskRenames {
		if old == "" {
			return errors.New("scan.task_renames keys must not be empty")
		}
		if !textutil.IsLabel(replacement) {
			return fmt.Errorf("scan.task_renames.%s: %q must contain only letters and digits", old, replacement)
		}
	}
	switch c.Scan.MappingFormat {
	case "yaml", "json":
	default:
		return fmt.Errorf("scan.mapping_format must be yaml or json, got %q", c.Scan.MappingFormat)
	}
	return nil
}

func (c *Config) validateTransfer() error {
	if !slices.Contains(Methods, c.Transfer.Method) {
		return fmt.Errorf("transfer.method must be one of %s, got %q", strings.Join(Methods, "|"), c.Transfer.Method)
	}
	if !textutil.IsLabel(c.Transfer.Session) {
		return fmt.Errorf("transfer.session %q must contain only letters and digits", c.Transfer.Session)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}
