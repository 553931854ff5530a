package bids

import (
	"fmt"
	"slices"
	"strings"

	"bidsify/internal/mapping"
)

// Parsed is the decomposition of a BIDS file name.
type Parsed struct {
	Subject  string
	Session  string
	Task     string
	Run      string
	Suffix   string
	Ext      string
	Category mapping.Category
}

var knownExts = []string{".nii.gz", ".nii", ".json", ExtEvents}

// ParseFileName is the inverse of FileName for names this package produces.
// The category is implied by the suffix; events tables parse with an empty
// category.
func ParseFileName(name string) (Parsed, error) {
	var p Parsed
	stem := name
	for _, ext := range knownExts {
		if strings.HasSuffix(name, ext) {
			p.Ext = ext
			stem = strings.TrimSuffix(name, ext)
			break
		}
	}
	if p.Ext == "" {
		return Parsed{}, fmt.Errorf("parse %s: unrecognised extension", name)
	}

	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return Parsed{}, fmt.Errorf("parse %s: too few entities", name)
	}
	p.Suffix = parts[len(parts)-1]
	for _, part := range parts[:len(parts)-1] {
		switch {
		case strings.HasPrefix(part, PrefixSubject):
			p.Subject = strings.TrimPrefix(part, PrefixSubject)
		case strings.HasPrefix(part, PrefixSession):
			p.Session = strings.TrimPrefix(part, PrefixSession)
		case strings.HasPrefix(part, PrefixTask):
			p.Task = strings.TrimPrefix(part, PrefixTask)
		case strings.HasPrefix(part, PrefixRun):
			p.Run = part
		default:
			return Parsed{}, fmt.Errorf("parse %s: unexpected entity %q", name, part)
		}
	}
	if p.Subject == "" || p.Session == "" {
		return Parsed{}, fmt.Errorf("parse %s: subject and session are required", name)
	}

	switch {
	case p.Suffix == mapping.LabelT1w:
		p.Category = mapping.CategoryAnat
	case p.Suffix == SuffixBold, p.Suffix == SuffixSBRef:
		p.Category = mapping.CategoryFunc
	case slices.Contains(mapping.Components, p.Suffix):
		p.Category = mapping.CategoryFmap
	case p.Suffix == SuffixEvents:
	default:
		return Parsed{}, fmt.Errorf("parse %s: unknown suffix %q", name, p.Suffix)
	}
	return p, nil
}
