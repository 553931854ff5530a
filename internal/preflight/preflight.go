package preflight

import (
	"errors"
	"fmt"
	"strings"

	"bidsify/internal/errs"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Inputs are the paths a run is about to touch.
type Inputs struct {
	SourceDir string
	DestRoot  string
	EventsDir string
	LogDir    string
}

// RunAll executes all applicable preflight checks. Destination and log
// checks are skipped when the path is empty.
func RunAll(in Inputs) []Result {
	results := []Result{CheckSource(in.SourceDir)}
	if strings.TrimSpace(in.DestRoot) != "" {
		results = append(results, CheckDestination(in.DestRoot))
	}
	if strings.TrimSpace(in.EventsDir) != "" {
		results = append(results, CheckEventsDir(in.EventsDir))
	}
	if strings.TrimSpace(in.LogDir) != "" {
		result := CheckDestination(in.LogDir)
		result.Name = "Log directory"
		results = append(results, result)
	}
	return results
}

// Err returns a validation error listing every failed check, or nil.
func Err(results []Result) error {
	var failed []error
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Errorf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return errs.Wrap(errs.ErrValidation, "preflight", "check paths", "", errors.Join(failed...))
}
