package materialize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"bidsify/internal/errs"
	"bidsify/internal/logging"
	"bidsify/internal/mapping"
)

// Materializer plans and executes transfers for mapping documents.
type Materializer struct {
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Materializer logging under the materializer component.
func New(logger *slog.Logger) *Materializer {
	return &Materializer{
		logger: logging.NewComponentLogger(logger, "materializer"),
		now:    time.Now,
	}
}

// Report summarises a run.
type Report struct {
	RunID      string     `json:"run_id"`
	Subject    string     `json:"subject"`
	Session    string     `json:"session"`
	Method     Method     `json:"method"`
	DryRun     bool       `json:"dry_run"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Transfers  []Transfer `json:"transfers"`
	Failures   []Failure  `json:"failures,omitempty"`
	Warnings   []Warning  `json:"warnings,omitempty"`
}

// Err returns nil when every entry succeeded, otherwise an error joining the
// per-entry failures.
func (r *Report) Err() error {
	if r == nil || len(r.Failures) == 0 {
		return nil
	}
	joined := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		joined = append(joined, f)
	}
	return fmt.Errorf("%d of %d entries failed: %w", len(r.Failures), r.entryCount(), errors.Join(joined...))
}

// Status returns the outcome label for a transfer in this report.
func (r *Report) Status(t Transfer) string {
	if r.DryRun {
		return "planned"
	}
	for _, f := range r.Failures {
		if f.Destination == t.Destination && f.Source == t.Source {
			return "failed"
		}
	}
	return "done"
}

// Completed counts transfers that were applied.
func (r *Report) Completed() int {
	if r.DryRun {
		return 0
	}
	n := 0
	for _, t := range r.Transfers {
		if r.Status(t) == "done" {
			n++
		}
	}
	return n
}

func (r *Report) entryCount() int {
	seen := make(map[string]struct{})
	for _, t := range r.Transfers {
		seen[t.SeriesID] = struct{}{}
	}
	for _, f := range r.Failures {
		seen[f.SeriesID] = struct{}{}
	}
	return len(seen)
}

// Run plans doc and, unless opts.DryRun is set, executes the plan under an
// exclusive destination lock. The returned error is non-nil only for fatal
// problems; per-entry failures are in the report.
func (m *Materializer) Run(ctx context.Context, doc *mapping.Document, opts Options) (*Report, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	ctx = logging.WithStage(ctx, "materialize")
	logger := logging.WithContext(ctx, m.logger)

	started := m.now()
	plan, err := m.Plan(ctx, doc, opts)
	if err != nil {
		return nil, err
	}
	opts.normalize()

	report := &Report{
		RunID:     runID,
		Subject:   plan.Subject,
		Session:   plan.Session,
		Method:    plan.Method,
		DryRun:    opts.DryRun,
		StartedAt: started,
		Transfers: plan.Transfers,
		Failures:  append([]Failure(nil), plan.Failures...),
		Warnings:  plan.Warnings,
	}

	for _, w := range plan.Warnings {
		logging.WarnWithContext(logger, "optional file missing", "optional_file_missing",
			logging.Series(w.SeriesID),
			logging.String("detail", w.Message),
			logging.String(logging.FieldImpact, "BIDS tree lacks optional metadata"),
		)
	}

	if !opts.DryRun {
		release, err := acquireLock(opts.DestRoot)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(); err != nil {
				logger.Warn("failed to release destination lock", logging.Error(err))
			}
		}()
		report.Failures = append(report.Failures, m.Execute(ctx, plan, opts)...)
	}
	report.FinishedAt = m.now()

	logger.Info(
		"materialize run finished",
		logging.Bool("dry_run", report.DryRun),
		logging.Int("transfers", len(report.Transfers)),
		logging.Int("completed", report.Completed()),
		logging.Int("failures", len(report.Failures)),
		logging.Int("warnings", len(report.Warnings)),
		logging.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// FailureSummary renders failures one per line.
func FailureSummary(failures []Failure) string {
	lines := make([]string, 0, len(failures))
	for _, f := range failures {
		lines = append(lines, f.Error())
	}
	return strings.Join(lines, "\n")
}

// IsFatal reports whether err aborted the run before any transfer.
func IsFatal(err error) bool {
	return errs.Fatal(err)
}
