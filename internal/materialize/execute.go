package materialize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bidsify/internal/errs"
	"bidsify/internal/fileutil"
	"bidsify/internal/logging"
)

// Execute applies every planned transfer in order. Failures are recorded per
// transfer; the remaining transfers still run.
func (m *Materializer) Execute(ctx context.Context, plan *PlanResult, opts Options) []Failure {
	logger := logging.WithContext(ctx, m.logger)
	var failures []Failure
	for i, t := range plan.Transfers {
		if err := ctx.Err(); err != nil {
			for _, skipped := range plan.Transfers[i:] {
				failures = append(failures, Failure{
					SeriesID:    skipped.SeriesID,
					Source:      skipped.Source,
					Destination: skipped.Destination,
					Err:         errs.Wrap(errs.ErrTransfer, "materialize", "cancelled", "run interrupted before transfer", err),
				})
			}
			break
		}
		if err := m.apply(t, opts); err != nil {
			failures = append(failures, Failure{SeriesID: t.SeriesID, Source: t.Source, Destination: t.Destination, Err: err})
			logging.WarnWithContext(logger, "transfer failed", "transfer_failed",
				logging.Series(t.SeriesID),
				logging.String("source", t.Source),
				logging.String("destination", t.Destination),
				logging.String(logging.FieldImpact, "file missing from BIDS tree"),
				logging.Error(err),
			)
			continue
		}
		logger.Debug(
			"transfer complete",
			logging.Series(t.SeriesID),
			logging.String("kind", string(t.Kind)),
			logging.String("destination", t.Destination),
		)
	}
	return failures
}

func (m *Materializer) apply(t Transfer, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(t.Destination), 0o755); err != nil {
		return errs.Wrap(errs.ErrTransfer, "materialize", "create directory", filepath.Dir(t.Destination), err)
	}
	// Each method replaces an existing destination itself; a copy renames
	// over it, so a failed copy leaves the previous file in place.
	if !opts.Overwrite && fileutil.Exists(t.Destination) {
		return errs.Wrap(errs.ErrTransfer, "materialize", "check destination",
			fmt.Sprintf("%s already exists and overwrite is disabled", t.Destination), nil)
	}

	var err error
	switch t.Method {
	case MethodLink:
		err = fileutil.HardLink(t.Source, t.Destination)
		if fileutil.IsCrossDevice(err) {
			return errs.Wrap(errs.ErrTransfer, "materialize", "hard link",
				"source and destination are on different filesystems; use --method copy or symlink", err)
		}
	case MethodSymlink:
		err = fileutil.RelativeSymlink(t.Source, t.Destination)
	default:
		if opts.VerifyCopies {
			err = fileutil.CopyFileVerified(t.Source, t.Destination)
		} else {
			err = fileutil.CopyPreserve(t.Source, t.Destination)
		}
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errs.Wrap(errs.ErrMissingFile, "materialize", string(t.Method), t.Source, err)
		}
		return errs.Wrap(errs.ErrTransfer, "materialize", string(t.Method), t.Source, err)
	}
	return nil
}
