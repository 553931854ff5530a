package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"bidsify/internal/scan"
)

// Access modes for CheckDirectoryAccess.
const (
	ModeRead      = unix.R_OK | unix.X_OK
	ModeReadWrite = unix.R_OK | unix.W_OK | unix.X_OK
)

// CheckDirectoryAccess verifies that the directory exists and grants mode.
func CheckDirectoryAccess(name, path string, mode uint32) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s ok)", path, modeLabel(mode))}
}

// CheckSource verifies the source directory is readable and holds at least
// one imaging series.
func CheckSource(path string) Result {
	const name = "Source directory"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not set"}
	}
	result := CheckDirectoryAccess(name, path, ModeRead)
	if !result.Passed {
		return result
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: read: %v)", path, err)}
	}
	images := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ext, ok := scan.SplitName(entry.Name()); ok && ext != scan.ExtSidecar {
			images++
		}
	}
	if images == 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable, no imaging files)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d imaging files)", path, images)}
}

// CheckDestination verifies that the destination, or its nearest existing
// ancestor when it does not exist yet, is writable.
func CheckDestination(path string) Result {
	const name = "Destination directory"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not set"}
	}
	ancestor, err := nearestExisting(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	result := CheckDirectoryAccess(name, ancestor, ModeReadWrite)
	if !result.Passed || ancestor == filepath.Clean(path) {
		return result
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created under %s)", path, ancestor)}
}

// CheckEventsDir verifies the optional events directory when set.
func CheckEventsDir(path string) Result {
	const name = "Events directory"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Passed: true, Detail: "not configured"}
	}
	return CheckDirectoryAccess(name, path, ModeRead)
}

func nearestExisting(path string) (string, error) {
	current := filepath.Clean(path)
	for {
		info, err := os.Stat(current)
		if err == nil {
			if !info.IsDir() {
				return "", fmt.Errorf("%s is not a directory", current)
			}
			return current, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("no existing ancestor")
		}
		current = parent
	}
}

func modeLabel(mode uint32) string {
	if mode&unix.W_OK != 0 {
		return "read/write"
	}
	return "read"
}
