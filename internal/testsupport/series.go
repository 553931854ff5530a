package testsupport

import (
	"path/filepath"
	"testing"
)

// ScannerScenario is a representative Siemens export: localizer, ADNI T1,
// two multiband BOLD runs with a leading SBRef, and a GRE fieldmap.
var ScannerScenario = []string{
	"0001_localizer",
	"0003_ADNI_192slices_64channel",
	"0004_cmrr_mbep2d_bold_mb8_TR2000_SBRef",
	"0005_cmrr_mbep2d_bold_mb8_TR2000",
	"0007_cmrr_mbep2d_bold_mb8_TR2000",
	"0016_gre_field_mapping_e1",
	"0016_gre_field_mapping_e2",
	"0017_gre_field_mapping_e2_ph",
}

// SeriesOption customises WriteSeries.
type SeriesOption func(*seriesLayout)

type seriesLayout struct {
	ext     string
	sidecar bool
	size    int64
}

// WithPlainNifti writes .nii instead of .nii.gz.
func WithPlainNifti() SeriesOption {
	return func(s *seriesLayout) { s.ext = ".nii" }
}

// WithoutSidecar omits the JSON sidecar.
func WithoutSidecar() SeriesOption {
	return func(s *seriesLayout) { s.sidecar = false }
}

// WriteSeries creates an imaging file and sidecar for each id in dir.
func WriteSeries(t testing.TB, dir string, ids []string, opts ...SeriesOption) {
	t.Helper()
	layout := seriesLayout{ext: ".nii.gz", sidecar: true, size: 64}
	for _, opt := range opts {
		opt(&layout)
	}
	for _, id := range ids {
		WriteFile(t, filepath.Join(dir, id+layout.ext), layout.size)
		if layout.sidecar {
			WriteFile(t, filepath.Join(dir, id+".json"), 2)
		}
	}
}
