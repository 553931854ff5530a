package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bidsify/internal/config"
	"bidsify/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	source     string
	dest       string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("NO_COLOR", "1")

	configPath := filepath.Join(homeDir, ".config", "bidsify", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	source := filepath.Join(base, "sub-P01")
	testsupport.WriteSeries(t, source, testsupport.ScannerScenario)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		source:     source,
		dest:       filepath.Join(base, "bids"),
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, args, configPath, nil)
}

func runCLIWithInput(t *testing.T, args []string, configPath string, stdin io.Reader) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	flags := []string{"--log-level", "error"}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nlog_dir = %q\n\n", cfg.Paths.LogDir)
	fmt.Fprintf(&b, "[scan]\nprompt = %t\nmapping_format = %q\n", cfg.Scan.Prompt, cfg.Scan.MappingFormat)
	if cfg.Scan.ForceTask != "" {
		fmt.Fprintf(&b, "force_task = %q\n", cfg.Scan.ForceTask)
	}
	fmt.Fprintf(&b, "\n[transfer]\nmethod = %q\nsession = %q\noverwrite = %t\n", cfg.Transfer.Method, cfg.Transfer.Session, cfg.Transfer.Overwrite)
	if cfg.Transfer.EventsDir != "" {
		fmt.Fprintf(&b, "events_dir = %q\n", cfg.Transfer.EventsDir)
	}
	fmt.Fprintf(&b, "\n[history]\nenabled = %t\n", cfg.History.Enabled)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
