package textutil

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the Unicode case-folded form of s. Marker vocabularies are
// stored folded so matching is a plain substring test.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold reports whether marker occurs in s, ignoring case.
func ContainsFold(s, marker string) bool {
	return strings.Contains(Fold(s), Fold(marker))
}
