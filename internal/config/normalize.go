package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScan()
	if err := c.normalizeTransfer(); err != nil {
		return err
	}
	c.normalizeLogging()
	return c.normalizeHistory()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeScan() {
	c.Scan.ForceTask = strings.ToLower(strings.TrimSpace(c.Scan.ForceTask))
	if len(c.Scan.TaskRenames) > 0 {
		renames := make(map[string]string, len(c.Scan.TaskRenames))
		for old, replacement := range c.Scan.TaskRenames {
			renames[strings.ToLower(strings.TrimSpace(old))] = strings.TrimSpace(replacement)
		}
		c.Scan.TaskRenames = renames
	}
	c.Scan.MappingFormat = strings.ToLower(strings.TrimSpace(c.Scan.MappingFormat))
	if c.Scan.MappingFormat == "yml" || c.Scan.MappingFormat == "" {
		c.Scan.MappingFormat = defaultMappingFormat
	}
}

func (c *Config) normalizeTransfer() error {
	c.Transfer.Method = strings.ToLower(strings.TrimSpace(c.Transfer.Method))
	switch c.Transfer.Method {
	case "":
		c.Transfer.Method = defaultMethod
	case "hardlink", "hard-link":
		c.Transfer.Method = "link"
	case "softlink", "symbolic-link":
		c.Transfer.Method = "symlink"
	}
	c.Transfer.Session = strings.TrimPrefix(strings.TrimSpace(c.Transfer.Session), "ses-")
	if c.Transfer.Session == "" {
		c.Transfer.Session = defaultSession
	}
	if strings.TrimSpace(c.Transfer.EventsDir) != "" {
		var err error
		if c.Transfer.EventsDir, err = ExpandPath(c.Transfer.EventsDir); err != nil {
			return fmt.Errorf("transfer.events_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	if value, ok := os.LookupEnv("BIDSIFY_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		return nil
	}
	var err error
	if c.History.Path, err = ExpandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}
