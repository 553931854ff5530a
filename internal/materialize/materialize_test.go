package materialize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidsify/internal/bids"
	"bidsify/internal/classify"
	"bidsify/internal/errs"
	"bidsify/internal/fileutil"
	"bidsify/internal/logging"
	"bidsify/internal/mapping"
	"bidsify/internal/scan"
	"bidsify/internal/testsupport"
)

type fixture struct {
	source string
	dest   string
	doc    *mapping.Document
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	base := t.TempDir()
	source := filepath.Join(base, "sub-P01")
	testsupport.WriteSeries(t, source, testsupport.ScannerScenario)

	c, err := classify.New(classify.Options{}, logging.NewNop())
	require.NoError(t, err)
	result := c.Classify(context.Background(), testsupport.ScannerScenario)
	return fixture{source: source, dest: filepath.Join(base, "bids"), doc: result.Document}
}

func (f fixture) options() Options {
	return Options{SourceDir: f.source, DestRoot: f.dest, Method: MethodCopy, Overwrite: true}
}

func run(t *testing.T, doc *mapping.Document, opts Options) *Report {
	t.Helper()
	report, err := New(logging.NewNop()).Run(context.Background(), doc, opts)
	require.NoError(t, err)
	return report
}

func TestRunCopiesScannerScenario(t *testing.T) {
	f := newFixture(t)
	report := run(t, f.doc, f.options())
	require.NoError(t, report.Err())
	assert.Equal(t, "P01", report.Subject)
	assert.Equal(t, DefaultSession, report.Session)
	assert.NotEmpty(t, report.RunID)

	root := filepath.Join(f.dest, "sub-P01", "ses-01")
	for _, rel := range []string{
		"anat/sub-P01_ses-01_T1w.nii.gz",
		"anat/sub-P01_ses-01_T1w.json",
		"func/sub-P01_ses-01_task-mbep2d_run-01_bold.nii.gz",
		"func/sub-P01_ses-01_task-mbep2d_run-01_sbref.nii.gz",
		"func/sub-P01_ses-01_task-mbep2d_run-02_bold.json",
		"fmap/sub-P01_ses-01_magnitude1.nii.gz",
		"fmap/sub-P01_ses-01_phase1.nii.gz",
		"fmap/sub-P01_ses-01_phase2.json",
	} {
		assert.FileExists(t, filepath.Join(root, filepath.FromSlash(rel)))
	}
	testsupport.SameContent(t,
		filepath.Join(f.source, "0004_cmrr_mbep2d_bold_mb8_TR2000_SBRef.nii.gz"),
		filepath.Join(root, "func", "sub-P01_ses-01_task-mbep2d_run-01_sbref.nii.gz"))
	assert.NoFileExists(t, filepath.Join(f.dest, LockFileName))
	assert.Equal(t, len(report.Transfers), report.Completed())
}

func TestDryRunMatchesRealRun(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.DryRun = true
	dry := run(t, f.doc, opts)

	_, err := os.Stat(f.dest)
	assert.True(t, errors.Is(err, os.ErrNotExist), "dry run must not create the destination")

	opts.DryRun = false
	realRun := run(t, f.doc, opts)
	assert.Equal(t, dry.Transfers, realRun.Transfers)
	assert.Equal(t, 0, dry.Completed())

	for i := range dry.Transfers {
		assert.Equal(t, "[DRY] "+realRun.Transfers[i].Line(false), dry.Transfers[i].Line(true))
	}
}

func TestMissingImageIsPerEntryFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(filepath.Join(f.source, "0007_cmrr_mbep2d_bold_mb8_TR2000.nii.gz")))

	report := run(t, f.doc, f.options())
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "0007_cmrr_mbep2d_bold_mb8_TR2000", report.Failures[0].SeriesID)
	assert.True(t, errors.Is(report.Failures[0].Err, errs.ErrMissingFile))
	assert.Error(t, report.Err())

	assert.FileExists(t, filepath.Join(f.dest, "sub-P01", "ses-01", "func", "sub-P01_ses-01_task-mbep2d_run-01_bold.nii.gz"))
	assert.FileExists(t, filepath.Join(f.dest, "sub-P01", "ses-01", "fmap", "sub-P01_ses-01_phase2.nii.gz"))
}

func TestPlainNiftiAndMissingSidecar(t *testing.T) {
	base := t.TempDir()
	source := filepath.Join(base, "raw")
	testsupport.WriteSeries(t, source, []string{"0003_t1_mprage"}, testsupport.WithPlainNifti(), testsupport.WithoutSidecar())
	doc := mapping.New()
	doc.AddAnat(mapping.LabelT1w, "0003_t1_mprage")

	report := run(t, doc, Options{SourceDir: source, DestRoot: filepath.Join(base, "out"), Subject: "sub-7", Overwrite: true})
	require.NoError(t, report.Err())
	require.Len(t, report.Transfers, 1)
	assert.True(t, strings.HasSuffix(report.Transfers[0].Destination, "sub-7_ses-01_T1w.nii"))
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0].Message, "sidecar")
}

func TestHardLinkAcrossFilesystemsFailsPerEntry(t *testing.T) {
	f := newFixture(t)
	crossed := "0005_cmrr_mbep2d_bold_mb8_TR2000.nii.gz"
	restore := fileutil.SetLinkForTests(func(oldname, newname string) error {
		if filepath.Base(oldname) == crossed {
			return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: syscall.EXDEV}
		}
		return os.Link(oldname, newname)
	})
	t.Cleanup(restore)

	opts := f.options()
	opts.Method = MethodLink
	report := run(t, f.doc, opts)

	require.Len(t, report.Failures, 1)
	failure := report.Failures[0]
	assert.True(t, errors.Is(failure.Err, errs.ErrTransfer))
	assert.True(t, errors.Is(failure.Err, fileutil.ErrCrossDevice))
	assert.NoFileExists(t, failure.Destination)

	assert.FileExists(t, filepath.Join(f.dest, "sub-P01", "ses-01", "func", "sub-P01_ses-01_task-mbep2d_run-02_bold.nii.gz"))
	assert.Equal(t, len(report.Transfers)-1, report.Completed())

	src, err := os.Stat(filepath.Join(f.source, "0003_ADNI_192slices_64channel.nii.gz"))
	require.NoError(t, err)
	dst, err := os.Stat(filepath.Join(f.dest, "sub-P01", "ses-01", "anat", "sub-P01_ses-01_T1w.nii.gz"))
	require.NoError(t, err)
	assert.True(t, os.SameFile(src, dst))
}

func TestSymlinkTargetsAreRelative(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.Method = MethodSymlink
	report := run(t, f.doc, opts)
	require.NoError(t, report.Err())

	dest := filepath.Join(f.dest, "sub-P01", "ses-01", "anat", "sub-P01_ses-01_T1w.nii.gz")
	target, err := os.Readlink(dest)
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(target))
	resolved, err := filepath.EvalSymlinks(dest)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(filepath.Join(f.source, "0003_ADNI_192slices_64channel.nii.gz"))
	require.NoError(t, err)
	assert.Equal(t, want, resolved)
}

func TestOverwritePolicy(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	run(t, f.doc, opts)

	dest := filepath.Join(f.dest, "sub-P01", "ses-01", "anat", "sub-P01_ses-01_T1w.nii.gz")
	require.NoError(t, os.WriteFile(dest, []byte("stale"), 0o644))

	report := run(t, f.doc, opts)
	require.NoError(t, report.Err())
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.NotEqual(t, "stale", string(data))

	opts.Overwrite = false
	report = run(t, f.doc, opts)
	assert.Len(t, report.Failures, len(report.Transfers))
	assert.True(t, errors.Is(report.Failures[0].Err, errs.ErrTransfer))
}

func TestFailedCopyKeepsExistingDestination(t *testing.T) {
	base := t.TempDir()
	srcDir := filepath.Join(base, "not-a-file")
	require.NoError(t, os.Mkdir(srcDir, 0o755))
	dest := filepath.Join(base, "bids", "anat", "sub-01_T1w.nii")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0o755))
	require.NoError(t, os.WriteFile(dest, []byte("previous"), 0o644))

	plan := &PlanResult{Method: MethodCopy, Transfers: []Transfer{
		{SeriesID: "0003", Kind: KindImage, Method: MethodCopy, Source: srcDir, Destination: dest},
	}}
	failures := New(nil).Execute(context.Background(), plan, Options{Overwrite: true})
	require.Len(t, failures, 1)
	assert.True(t, errors.Is(failures[0].Err, errs.ErrTransfer))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestScanOutputMaterializes(t *testing.T) {
	source := filepath.Join(t.TempDir(), "sub-P02")
	require.NoError(t, os.MkdirAll(source, 0o755))
	for _, name := range []string{"0005_rest_bold.NII.GZ", "0006_rest_bold.nii.gz", "0006_rest_bold.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(source, name), []byte(name), 0o644))
	}

	series, err := scan.Discover(context.Background(), source, nil)
	require.NoError(t, err)
	c, err := classify.New(classify.Options{}, nil)
	require.NoError(t, err)
	doc := c.Classify(context.Background(), scan.IDs(series)).Document

	opts := Options{SourceDir: source, DestRoot: filepath.Join(t.TempDir(), "bids"), Method: MethodCopy, DryRun: true}
	report := run(t, doc, opts)
	require.NoError(t, report.Err())
	require.Len(t, report.Transfers, 2)
	for _, tr := range report.Transfers {
		assert.Equal(t, "0006_rest_bold", tr.SeriesID)
	}
}

func TestVerifiedCopy(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.VerifyCopies = true
	report := run(t, f.doc, opts)
	require.NoError(t, report.Err())
	assert.Equal(t, len(report.Transfers), report.Completed())
}

func TestEventsFilesFollowFunctionalRuns(t *testing.T) {
	f := newFixture(t)
	events := filepath.Join(filepath.Dir(f.source), "events")
	testsupport.WriteFile(t, filepath.Join(events, "task-mbep2d_run-01_events.tsv"), 10)
	testsupport.WriteFile(t, filepath.Join(events, "mbep2d_run-02_events.tsv"), 10)

	opts := f.options()
	opts.EventsDir = events
	report := run(t, f.doc, opts)
	require.NoError(t, report.Err())

	funcDir := filepath.Join(f.dest, "sub-P01", "ses-01", "func")
	assert.FileExists(t, filepath.Join(funcDir, "sub-P01_ses-01_task-mbep2d_run-01_events.tsv"))
	assert.FileExists(t, filepath.Join(funcDir, "sub-P01_ses-01_task-mbep2d_run-02_events.tsv"))

	require.NoError(t, os.Remove(filepath.Join(events, "mbep2d_run-02_events.tsv")))
	report = run(t, f.doc, opts)
	require.NoError(t, report.Err())
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0].Message, "events file")
}

func TestMalformedDocumentAbortsBeforeTransfer(t *testing.T) {
	f := newFixture(t)
	f.doc.SetRun("mbep2d", "run-03", mapping.Run{SBRef: "0004_cmrr_mbep2d_bold_mb8_TR2000_SBRef"})

	_, err := New(nil).Run(context.Background(), f.doc, f.options())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrMalformedMapping))
	assert.True(t, IsFatal(err))
	_, statErr := os.Stat(f.dest)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestInvalidOptions(t *testing.T) {
	f := newFixture(t)
	opts := f.options()
	opts.Method = "teleport"
	_, err := New(nil).Run(context.Background(), f.doc, opts)
	assert.True(t, errors.Is(err, errs.ErrConfiguration))

	opts = f.options()
	opts.SourceDir = filepath.Join(f.source, "missing")
	_, err = New(nil).Run(context.Background(), f.doc, opts)
	assert.True(t, errors.Is(err, errs.ErrConfiguration))
}

func TestHeldLockFailsFast(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.dest, 0o755))
	held := flock.New(filepath.Join(f.dest, LockFileName))
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	t.Cleanup(func() { _ = held.Unlock() })

	_, err = New(nil).Run(context.Background(), f.doc, f.options())
	assert.True(t, errors.Is(err, errs.ErrLocked))

	opts := f.options()
	opts.DryRun = true
	_, err = New(nil).Run(context.Background(), f.doc, opts)
	assert.NoError(t, err)
}

// Re-deriving category and component from the materialized tree recovers the
// classification that produced the mapping.
func TestRoundTripRecoversAssignments(t *testing.T) {
	f := newFixture(t)
	report := run(t, f.doc, f.options())
	require.NoError(t, report.Err())

	want := make(map[string]string)
	for _, leaf := range f.doc.Leaves() {
		want[leaf.ID] = assignment(string(leaf.Category), leaf.Label, leaf.Component, string(leaf.Role))
	}

	got := make(map[string]string)
	err := filepath.WalkDir(f.dest, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		stem, ext, ok := scan.SplitName(d.Name())
		if !ok || ext == scan.ExtSidecar {
			return nil
		}
		parsed, err := bids.ParseFileName(d.Name())
		require.NoError(t, err, stem)
		assert.Equal(t, string(parsed.Category), filepath.Base(filepath.Dir(path)))

		var source string
		for _, tr := range report.Transfers {
			if tr.Destination == path {
				source = tr.SeriesID
			}
		}
		require.NotEmpty(t, source, path)
		switch parsed.Category {
		case mapping.CategoryAnat:
			got[source] = assignment(string(parsed.Category), parsed.Suffix, "", "")
		case mapping.CategoryFmap:
			got[source] = assignment(string(parsed.Category), "", parsed.Suffix, "")
		case mapping.CategoryFunc:
			got[source] = assignment(string(parsed.Category), "", "", parsed.Suffix)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func assignment(category, label, component, role string) string {
	return strings.Join([]string{category, label, component, role}, "|")
}

func TestParseMethod(t *testing.T) {
	for input, want := range map[string]Method{
		"":          MethodCopy,
		"COPY":      MethodCopy,
		"hardlink":  MethodLink,
		"link":      MethodLink,
		"softlink":  MethodSymlink,
		" symlink ": MethodSymlink,
	} {
		got, err := ParseMethod(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
	_, err := ParseMethod("move")
	assert.Error(t, err)
}
