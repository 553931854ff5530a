package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bidsify/internal/mapping"
)

func TestScanWritesMapping(t *testing.T) {
	env := setupCLITestEnv(t)
	out := filepath.Join(env.baseDir, "mapping.yaml")

	stdout, _, err := runCLI(t, []string{"scan", "--source", env.source, "--out", out}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, stdout, "Proposed mapping:")
	requireContains(t, stdout, "func/mbep2d/run-01 (sbref)")
	requireContains(t, stdout, "excluded")
	requireContains(t, stdout, "Wrote mapping to "+out)

	doc, err := mapping.Load(out)
	if err != nil {
		t.Fatalf("load mapping: %v", err)
	}
	if got := doc.Func["mbep2d"]["run-01"]; got.Bold != "0005_cmrr_mbep2d_bold_mb8_TR2000" || got.SBRef != "0004_cmrr_mbep2d_bold_mb8_TR2000_SBRef" {
		t.Fatalf("unexpected run-01: %+v", got)
	}
	if doc.Fmap["gre"]["phase2"] != "0017_gre_field_mapping_e2_ph" {
		t.Fatalf("unexpected fieldmaps: %+v", doc.Fmap)
	}
}

func TestScanForceTaskAndRename(t *testing.T) {
	env := setupCLITestEnv(t)
	out := filepath.Join(env.baseDir, "forced.json")

	if _, _, err := runCLI(t, []string{"scan", "-s", env.source, "-o", out, "--force-task", "vision"}, env.configPath); err != nil {
		t.Fatalf("scan: %v", err)
	}
	doc, err := mapping.Load(out)
	if err != nil {
		t.Fatalf("load mapping: %v", err)
	}
	if tasks := doc.Tasks(); len(tasks) != 1 || tasks[0] != "vision" {
		t.Fatalf("expected task vision, got %v", tasks)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "{") {
		t.Fatalf("expected JSON document, got %s", data)
	}

	renamed := filepath.Join(env.baseDir, "renamed.yaml")
	if _, _, err := runCLI(t, []string{"scan", "-s", env.source, "-o", renamed, "--task-rename", "mbep2d=motor"}, env.configPath); err != nil {
		t.Fatalf("scan rename: %v", err)
	}
	doc, err = mapping.Load(renamed)
	if err != nil {
		t.Fatalf("load mapping: %v", err)
	}
	if _, ok := doc.Func["motor"]; !ok {
		t.Fatalf("expected renamed task, got %v", doc.Tasks())
	}
}

func TestScanPromptDeclined(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Scan.Prompt = true
	writeTestConfig(t, env.configPath, env.cfg)
	out := filepath.Join(env.baseDir, "declined.yaml")

	stdout, _, err := runCLIWithInput(t, []string{"scan", "--source", env.source, "--out", out}, env.configPath, strings.NewReader("n\n"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, stdout, "Write mapping to "+out+"? [Y/n]")
	requireContains(t, stdout, "Mapping not written")
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("mapping should not exist, stat err = %v", err)
	}

	stdout, _, err = runCLIWithInput(t, []string{"scan", "--source", env.source, "--out", out}, env.configPath, strings.NewReader("yes\n"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, stdout, "Wrote mapping")
}

func TestScanPromptDefaultsToYes(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Scan.Prompt = true
	writeTestConfig(t, env.configPath, env.cfg)
	out := filepath.Join(env.baseDir, "accepted.yaml")

	stdout, _, err := runCLIWithInput(t, []string{"scan", "--source", env.source, "--out", out}, env.configPath, strings.NewReader("\n"))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, stdout, "Wrote mapping")
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("mapping should exist: %v", err)
	}

	closed := filepath.Join(env.baseDir, "closed.yaml")
	stdout, _, err = runCLIWithInput(t, []string{"scan", "--source", env.source, "--out", closed}, env.configPath, strings.NewReader(""))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, stdout, "Mapping not written")
	if _, err := os.Stat(closed); !os.IsNotExist(err) {
		t.Fatalf("mapping should not exist, stat err = %v", err)
	}
}

func TestScanJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	out := filepath.Join(env.baseDir, "m.yaml")

	stdout, _, err := runCLI(t, []string{"scan", "--source", env.source, "--out", out, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var report struct {
		Decisions []struct {
			ID      string `json:"id"`
			Outcome string `json:"outcome"`
		} `json:"decisions"`
		Mapping mapping.Document `json:"mapping"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("decode JSON: %v\n%s", err, stdout)
	}
	if len(report.Decisions) != 8 {
		t.Fatalf("expected 8 decisions, got %d", len(report.Decisions))
	}
	if report.Decisions[0].Outcome != "excluded" {
		t.Fatalf("expected localizer first and excluded, got %+v", report.Decisions[0])
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected mapping written: %v", err)
	}
}

func TestScanMissingSource(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"scan", "--source", filepath.Join(env.baseDir, "missing"), "--out", filepath.Join(env.baseDir, "x.yaml")}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}
