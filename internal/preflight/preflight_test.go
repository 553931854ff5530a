package preflight

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bidsify/internal/errs"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir, ModeReadWrite)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "read/write ok") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"), ModeRead)
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f, ModeRead)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckSourceCountsImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0003_t1.nii.gz", "0003_t1.json", "0005_bold.nii", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	result := CheckSource(dir)
	if !result.Passed || !strings.Contains(result.Detail, "2 imaging files") {
		t.Fatalf("unexpected result: %+v", result)
	}

	if CheckSource("").Passed {
		t.Fatal("expected failure for empty source")
	}
}

func TestCheckDestinationNotYetCreated(t *testing.T) {
	base := t.TempDir()
	result := CheckDestination(filepath.Join(base, "bids", "derivatives"))
	if !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "will be created under "+base) {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}

	file := filepath.Join(base, "plain")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if CheckDestination(filepath.Join(file, "child")).Passed {
		t.Fatal("expected failure beneath a regular file")
	}
}

func TestRunAllAndErr(t *testing.T) {
	source := t.TempDir()
	results := RunAll(Inputs{SourceDir: source, DestRoot: filepath.Join(t.TempDir(), "out")})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if err := Err(results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results = RunAll(Inputs{SourceDir: source, EventsDir: filepath.Join(source, "missing")})
	err := Err(results)
	if err == nil {
		t.Fatal("expected failure for missing events directory")
	}
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !strings.Contains(err.Error(), "Events directory") {
		t.Fatalf("error should name the failed check: %v", err)
	}
}
