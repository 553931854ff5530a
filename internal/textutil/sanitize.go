package textutil

import "strings"

// SanitizeLabel reduces value to a BIDS label: ASCII letters and digits only.
// Case is preserved. Returns "" when nothing survives.
func SanitizeLabel(value string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsLabel reports whether value is a non-empty BIDS label.
func IsLabel(value string) bool {
	return value != "" && SanitizeLabel(value) == value
}
