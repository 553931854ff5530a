package bids

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidsify/internal/mapping"
)

func TestDestinationTemplates(t *testing.T) {
	root := "/data/bids"
	tests := []struct {
		name string
		leaf mapping.Leaf
		ext  string
		want string
	}{
		{
			name: "anat",
			leaf: mapping.Leaf{Category: mapping.CategoryAnat, Label: mapping.LabelT1w, Index: 1, Count: 1, ID: "0003_ADNI"},
			ext:  ".nii.gz",
			want: "sub-01/ses-01/anat/sub-01_ses-01_T1w.nii.gz",
		},
		{
			name: "anat with several entries",
			leaf: mapping.Leaf{Category: mapping.CategoryAnat, Label: mapping.LabelT1w, Index: 2, Count: 2, ID: "0009_ADNI"},
			ext:  ".json",
			want: "sub-01/ses-01/anat/sub-01_ses-01_run-02_T1w.json",
		},
		{
			name: "bold",
			leaf: mapping.Leaf{Category: mapping.CategoryFunc, Task: "mbep2d", Run: "run-01", Role: mapping.RoleBold, ID: "0005"},
			ext:  ".nii",
			want: "sub-01/ses-01/func/sub-01_ses-01_task-mbep2d_run-01_bold.nii",
		},
		{
			name: "sbref",
			leaf: mapping.Leaf{Category: mapping.CategoryFunc, Task: "mbep2d", Run: "run-01", Role: mapping.RoleSBRef, ID: "0004"},
			ext:  ".json",
			want: "sub-01/ses-01/func/sub-01_ses-01_task-mbep2d_run-01_sbref.json",
		},
		{
			name: "fieldmap",
			leaf: mapping.Leaf{Category: mapping.CategoryFmap, Group: mapping.FmapGRE, Component: mapping.ComponentPhase2, ID: "0017"},
			ext:  ".nii.gz",
			want: "sub-01/ses-01/fmap/sub-01_ses-01_phase2.nii.gz",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Destination(root, "01", "01", tt.leaf, tt.ext)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(root, filepath.FromSlash(tt.want)), got)
		})
	}
}

func TestDestinationUnknownCategory(t *testing.T) {
	_, err := Destination("/x", "01", "01", mapping.Leaf{Category: "dwi", ID: "0040"}, ".nii")
	assert.Error(t, err)
}

func TestEventsFileName(t *testing.T) {
	assert.Equal(t, "sub-7_ses-01_task-rest_run-02_events.tsv", EventsFileName("7", "01", "rest", "run-02"))
}

func TestParseFileNameInvertsDestination(t *testing.T) {
	doc := mapping.New()
	doc.AddAnat(mapping.LabelT1w, "0003_ADNI")
	doc.SetRun("rest", "run-01", mapping.Run{Bold: "0005_rest_bold", SBRef: "0004_rest_bold_SBRef"})
	doc.SetFieldmap(mapping.FmapGRE, mapping.ComponentMagnitude1, "0016_gre_e1")

	for _, leaf := range doc.Leaves() {
		dest, err := Destination("/out", "abc", "01", leaf, ".nii.gz")
		require.NoError(t, err)
		parsed, err := ParseFileName(filepath.Base(dest))
		require.NoError(t, err)
		assert.Equal(t, leaf.Category, parsed.Category, dest)
		assert.Equal(t, "abc", parsed.Subject)
		assert.Equal(t, "01", parsed.Session)
		assert.Equal(t, ".nii.gz", parsed.Ext)
		switch leaf.Category {
		case mapping.CategoryFunc:
			assert.Equal(t, leaf.Task, parsed.Task)
			assert.Equal(t, leaf.Run, parsed.Run)
			assert.Equal(t, string(leaf.Role), parsed.Suffix)
		case mapping.CategoryFmap:
			assert.Equal(t, leaf.Component, parsed.Suffix)
		case mapping.CategoryAnat:
			assert.Equal(t, leaf.Label, parsed.Suffix)
		}
	}
}

func TestParseFileNameRejects(t *testing.T) {
	for _, name := range []string{
		"sub-01_ses-01_T1w.mgz",
		"sub-01_T1w.nii",
		"sub-01_ses-01_acq-x_T1w.nii",
		"sub-01_ses-01_dwi.nii",
	} {
		_, err := ParseFileName(name)
		assert.Error(t, err, name)
	}
	p, err := ParseFileName("sub-01_ses-01_task-rest_run-01_events.tsv")
	require.NoError(t, err)
	assert.Equal(t, mapping.Category(""), p.Category)
	assert.Equal(t, "rest", p.Task)
}

func TestSubjectFromSource(t *testing.T) {
	assert.Equal(t, "P017", SubjectFromSource("/scans/P017/"))
	assert.Equal(t, "042", SubjectFromSource("/scans/sub-042"))
	assert.Equal(t, "ab12", SubjectFromSource("raw/ab_12"))
}
