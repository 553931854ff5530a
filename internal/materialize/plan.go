package materialize

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"bidsify/internal/bids"
	"bidsify/internal/errs"
	"bidsify/internal/logging"
	"bidsify/internal/mapping"
	"bidsify/internal/scan"
)

// Kind tells what a transfer carries.
type Kind string

const (
	KindImage   Kind = "image"
	KindSidecar Kind = "sidecar"
	KindEvents  Kind = "events"
)

// Transfer is one planned file placement.
type Transfer struct {
	SeriesID    string `json:"series_id"`
	Kind        Kind   `json:"kind"`
	Method      Method `json:"method"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Line renders the decision line printed for every transfer. Dry and real
// runs print identical text apart from the [DRY] marker.
func (t Transfer) Line(dryRun bool) string {
	prefix := ""
	if dryRun {
		prefix = "[DRY] "
	}
	return fmt.Sprintf("%s%s %s -> %s", prefix, t.Method.Verb(), t.Source, t.Destination)
}

// Failure is a per-entry error. The run continues past it.
type Failure struct {
	SeriesID    string `json:"series_id"`
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination,omitempty"`
	Err         error  `json:"-"`
}

func (f Failure) Error() string {
	if f.Err == nil {
		return f.SeriesID + ": failed"
	}
	return f.SeriesID + ": " + f.Err.Error()
}

// Warning reports a missing optional file.
type Warning struct {
	SeriesID string `json:"series_id"`
	Message  string `json:"message"`
}

func (w Warning) String() string {
	return w.SeriesID + ": " + w.Message
}

// PlanResult is the ordered set of transfer decisions for a document.
type PlanResult struct {
	Subject   string
	Session   string
	Method    Method
	Transfers []Transfer
	Failures  []Failure
	Warnings  []Warning
}

// Plan resolves every leaf of doc to source files and destination paths.
// It only reads the filesystem.
func (m *Materializer) Plan(ctx context.Context, doc *mapping.Document, opts Options) (*PlanResult, error) {
	opts.normalize()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, m.logger)

	plan := &PlanResult{Subject: opts.Subject, Session: opts.Session, Method: opts.Method}
	for _, leaf := range doc.Leaves() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.planLeaf(plan, leaf, opts)
	}

	logger.Info(
		"materialize plan built",
		logging.String("subject", plan.Subject),
		logging.String("session", plan.Session),
		logging.String("method", string(plan.Method)),
		logging.Int("transfers", len(plan.Transfers)),
		logging.Int("failures", len(plan.Failures)),
		logging.Int("warnings", len(plan.Warnings)),
	)
	return plan, nil
}

func (m *Materializer) planLeaf(plan *PlanResult, leaf mapping.Leaf, opts Options) {
	image, ext, ok := resolveImage(opts.SourceDir, leaf.ID)
	if !ok {
		plan.Failures = append(plan.Failures, Failure{
			SeriesID: leaf.ID,
			Err: errs.Wrap(errs.ErrMissingFile, "materialize", "resolve image",
				fmt.Sprintf("no %s or %s file for %s in %s", scan.ExtNiftiGz, scan.ExtNifti, leaf.ID, opts.SourceDir), nil),
		})
		return
	}
	dest, err := bids.Destination(opts.DestRoot, opts.Subject, opts.Session, leaf, ext)
	if err != nil {
		plan.Failures = append(plan.Failures, Failure{SeriesID: leaf.ID, Source: image, Err: err})
		return
	}
	plan.add(leaf.ID, KindImage, image, dest)

	sidecar := filepath.Join(opts.SourceDir, leaf.ID+scan.ExtSidecar)
	if isFile(sidecar) {
		sidecarDest, err := bids.Destination(opts.DestRoot, opts.Subject, opts.Session, leaf, scan.ExtSidecar)
		if err != nil {
			plan.Failures = append(plan.Failures, Failure{SeriesID: leaf.ID, Source: sidecar, Err: err})
			return
		}
		plan.add(leaf.ID, KindSidecar, sidecar, sidecarDest)
	} else {
		plan.warn(leaf.ID, "sidecar "+filepath.Base(sidecar)+" not found")
	}

	if opts.EventsDir == "" || leaf.Category != mapping.CategoryFunc || leaf.Role != mapping.RoleBold {
		return
	}
	events, found := resolveEvents(opts.EventsDir, leaf.Task, leaf.Run)
	if !found {
		plan.warn(leaf.ID, fmt.Sprintf("events file for task %s %s not found in %s", leaf.Task, leaf.Run, opts.EventsDir))
		return
	}
	eventsDest := filepath.Join(
		bids.SubjectDir(opts.DestRoot, opts.Subject, opts.Session),
		string(mapping.CategoryFunc),
		bids.EventsFileName(opts.Subject, opts.Session, leaf.Task, leaf.Run),
	)
	plan.add(leaf.ID, KindEvents, events, eventsDest)
}

func (p *PlanResult) add(id string, kind Kind, src, dst string) {
	p.Transfers = append(p.Transfers, Transfer{SeriesID: id, Kind: kind, Method: p.Method, Source: src, Destination: dst})
}

func (p *PlanResult) warn(id, msg string) {
	p.Warnings = append(p.Warnings, Warning{SeriesID: id, Message: msg})
}

func resolveImage(dir, id string) (string, string, bool) {
	for _, ext := range scan.ImageExtensions {
		candidate := filepath.Join(dir, id+ext)
		if isFile(candidate) {
			return candidate, ext, true
		}
	}
	return "", "", false
}

// EventsCandidates lists the file names tried for a run's events table, in
// order.
func EventsCandidates(task, run string) []string {
	return []string{
		fmt.Sprintf("task-%s_%s_events.tsv", task, run),
		fmt.Sprintf("%s_%s_events.tsv", task, run),
	}
}

func resolveEvents(dir, task, run string) (string, bool) {
	for _, name := range EventsCandidates(task, run) {
		candidate := filepath.Join(dir, name)
		if isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// MarshalJSON includes the error text, which encoding/json cannot derive
// from the error interface.
func (f Failure) MarshalJSON() ([]byte, error) {
	type failureJSON struct {
		SeriesID    string `json:"series_id"`
		Source      string `json:"source,omitempty"`
		Destination string `json:"destination,omitempty"`
		Error       string `json:"error"`
	}
	out := failureJSON{SeriesID: f.SeriesID, Source: f.Source, Destination: f.Destination}
	if f.Err != nil {
		out.Error = f.Err.Error()
	}
	return json.Marshal(out)
}
