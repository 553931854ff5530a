// Package scan discovers imaging series in a flat source directory.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"bidsify/internal/logging"
	"bidsify/internal/textutil"
)

// Imaging and sidecar extensions, in lookup preference order.
const (
	ExtNiftiGz = ".nii.gz"
	ExtNifti   = ".nii"
	ExtSidecar = ".json"
)

// ImageExtensions lists the supported imaging extensions, preferred first.
var ImageExtensions = []string{ExtNiftiGz, ExtNifti}

// Series is one imaging series found on disk: an imaging file plus an
// optional JSON sidecar sharing its stem.
type Series struct {
	ID           string
	SeriesNumber int
	ImageExt     string
	HasSidecar   bool
}

// Discover lists the top level of sourceDir and returns the series it holds,
// naturally sorted by identifier. Subdirectories are ignored; sidecars without
// an imaging file are skipped.
func Discover(ctx context.Context, sourceDir string, logger *slog.Logger) ([]Series, error) {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "scanner"))

	info, err := os.Stat(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("inspect source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", sourceDir)
	}
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}

	images := make(map[string]string)
	sidecars := make(map[string]bool)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}
		stem, ext, ok := SplitName(entry.Name())
		if !ok {
			continue
		}
		if ext == ExtSidecar {
			sidecars[stem] = true
			continue
		}
		if prev, seen := images[stem]; !seen || preferExt(ext, prev) {
			images[stem] = ext
		}
	}

	ids := make([]string, 0, len(images))
	for id := range images {
		ids = append(ids, id)
	}
	textutil.NaturalSort(ids)

	series := make([]Series, 0, len(ids))
	for _, id := range ids {
		series = append(series, Series{
			ID:           id,
			SeriesNumber: textutil.LeadingNumber(id),
			ImageExt:     images[id],
			HasSidecar:   sidecars[id],
		})
	}

	orphans := make([]string, 0)
	for stem := range sidecars {
		if _, ok := images[stem]; !ok {
			orphans = append(orphans, stem)
		}
	}
	sort.Strings(orphans)
	for _, stem := range orphans {
		logger.Debug("sidecar without imaging file skipped", logging.Series(stem))
	}

	logger.Info(
		"source directory scanned",
		logging.String("source", sourceDir),
		logging.Int("series_count", len(series)),
		logging.Int("orphan_sidecars", len(orphans)),
	)
	return series, nil
}

// IDs returns the identifiers of series in order.
func IDs(series []Series) []string {
	ids := make([]string, 0, len(series))
	for _, s := range series {
		ids = append(ids, s.ID)
	}
	return ids
}

// SplitName separates a recognised file name into its stem and extension.
// Extensions match exactly, so every stem it accepts resolves to the same
// file names when the series is materialized.
func SplitName(name string) (stem, ext string, ok bool) {
	for _, candidate := range []string{ExtNiftiGz, ExtNifti, ExtSidecar} {
		if strings.HasSuffix(name, candidate) && len(name) > len(candidate) {
			return name[:len(name)-len(candidate)], candidate, true
		}
	}
	return "", "", false
}

func preferExt(candidate, current string) bool {
	return candidate == ExtNiftiGz && current != ExtNiftiGz
}
