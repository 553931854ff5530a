package bids

import (
	"fmt"
	"path/filepath"
	"strings"

	"bidsify/internal/mapping"
	"bidsify/internal/textutil"
)

// Entity prefixes and fixed suffixes used in file names.
const (
	PrefixSubject = "sub-"
	PrefixSession = "ses-"
	PrefixTask    = "task-"
	PrefixRun     = "run-"

	SuffixBold   = "bold"
	SuffixSBRef  = "sbref"
	SuffixEvents = "events"

	ExtEvents = ".tsv"
)

// Entities are the optional key-value pairs between session and suffix.
type Entities struct {
	Task string
	Run  string // full run label, e.g. run-01
}

// SubjectDir returns root/sub-S/ses-N.
func SubjectDir(root, subject, session string) string {
	return filepath.Join(root, PrefixSubject+subject, PrefixSession+session)
}

// FileName returns sub-S_ses-N[_task-T][_run-NN]_suffix.ext.
func FileName(subject, session string, entities Entities, suffix, ext string) string {
	parts := []string{PrefixSubject + subject, PrefixSession + session}
	if entities.Task != "" {
		parts = append(parts, PrefixTask+entities.Task)
	}
	if entities.Run != "" {
		parts = append(parts, entities.Run)
	}
	parts = append(parts, suffix)
	return strings.Join(parts, "_") + ext
}

// Destination computes where a leaf lands under root. The extension is
// appended verbatim so imaging files and sidecars share one code path.
func Destination(root, subject, session string, leaf mapping.Leaf, ext string) (string, error) {
	dir := filepath.Join(SubjectDir(root, subject, session), string(leaf.Category))
	var name string
	switch leaf.Category {
	case mapping.CategoryAnat:
		entities := Entities{}
		if leaf.Count > 1 {
			entities.Run = mapping.RunLabel(leaf.Index)
		}
		name = FileName(subject, session, entities, leaf.Label, ext)
	case mapping.CategoryFunc:
		suffix := SuffixBold
		if leaf.Role == mapping.RoleSBRef {
			suffix = SuffixSBRef
		}
		name = FileName(subject, session, Entities{Task: leaf.Task, Run: leaf.Run}, suffix, ext)
	case mapping.CategoryFmap:
		name = FileName(subject, session, Entities{}, leaf.Component, ext)
	default:
		return "", fmt.Errorf("unknown category %q for series %s", leaf.Category, leaf.ID)
	}
	return filepath.Join(dir, name), nil
}

// EventsFileName names the events table of a functional run.
func EventsFileName(subject, session, task, run string) string {
	return FileName(subject, session, Entities{Task: task, Run: run}, SuffixEvents, ExtEvents)
}

// SubjectFromSource derives a subject label from a source directory name:
// the base name, without a leading sub- prefix, reduced to a BIDS label.
func SubjectFromSource(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	if len(base) >= len(PrefixSubject) && strings.EqualFold(base[:len(PrefixSubject)], PrefixSubject) {
		base = base[len(PrefixSubject):]
	}
	return textutil.SanitizeLabel(base)
}
