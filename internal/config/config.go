package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir string `toml:"log_dir"`
}

// Scan contains overrides for the series classifier.
type Scan struct {
	// ForceTask labels every functional series with this task, skipping detection.
	ForceTask string `toml:"force_task"`
	// TaskRenames maps a detected task name to the name used in the mapping.
	TaskRenames map[string]string `toml:"task_renames"`
	// Prompt asks for confirmation before the mapping document is written.
	Prompt bool `toml:"prompt"`
	// MappingFormat is the default encoding for new mapping documents (yaml or json).
	MappingFormat string `toml:"mapping_format"`
}

// Transfer contains configuration for materializing the BIDS tree.
type Transfer struct {
	Method       string `toml:"method"`
	Session      string `toml:"session"`
	EventsDir    string `toml:"events_dir"`
	Overwrite    bool   `toml:"overwrite"`
	VerifyCopies bool   `toml:"verify_copies"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// History contains configuration for the run history database.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // Default: <log_dir>/history.db
}

// Config encapsulates all configuration values for bidsify.
//
// Configuration sections by subsystem:
//   - Paths: log directory
//   - Scan: classifier overrides and mapping output defaults
//   - Transfer: materializer method, session label, events lookup, collisions
//   - Logging: log format and level
//   - History: SQLite ledger of materialize runs
type Config struct {
	Paths    Paths    `toml:"paths"`
	Scan     Scan     `toml:"scan"`
	Transfer Transfer `toml:"transfer"`
	Logging  Logging  `toml:"logging"`
	History  History  `toml:"history"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath(defaultConfigPath)
}

// Load builds the configuration from defaults, then the first config file
// found, then environment overrides, and validates the result. It returns the
// config, the file path that was (or would have been) read, and whether that
// file exists. Unknown keys in the file are rejected.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	dec := toml.NewDecoder(file).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: unknown keys:\n%s", path, strict.String())
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// resolveConfigPath picks the file to read. An explicit path is used as is,
// even when missing. Otherwise the user config and then ./bidsify.toml are
// tried; when neither exists the user config path is reported as absent.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		exists, err := isFile(expanded)
		return expanded, exists, err
	}

	candidates := []string{defaultConfigPath, projectConfigName}
	resolved := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		expanded, err := ExpandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if ok, _ := isFile(expanded); ok {
			return expanded, true, nil
		}
		resolved = append(resolved, expanded)
	}
	return resolved[0], false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return !info.IsDir(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat config: %w", err)
	}
}

// EnsureDirectories creates the log directory used for log files and history.
func (c *Config) EnsureDirectories() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	return nil
}

// HistoryPath returns the ledger database location.
func (c *Config) HistoryPath() string {
	if strings.TrimSpace(c.History.Path) != "" {
		return c.History.Path
	}
	return filepath.Join(c.Paths.LogDir, "history.db")
}

// ExpandPath resolves a leading ~ to the home directory and returns an
// absolute, cleaned path. The empty string is returned unchanged.
func ExpandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ParseTaskRenames parses OLD=NEW pairs as accepted on the command line.
func ParseTaskRenames(pairs []string) (map[string]string, error) {
	renames := make(map[string]string, len(pairs))
	for _, item := range pairs {
		old, replacement, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("task rename expects OLD=NEW format, got %q", item)
		}
		old = strings.ToLower(strings.TrimSpace(old))
		replacement = strings.TrimSpace(replacement)
		if old == "" || replacement == "" {
			return nil, fmt.Errorf("invalid task rename pair %q", item)
		}
		renames[old] = replacement
	}
	return renames, nil
}
