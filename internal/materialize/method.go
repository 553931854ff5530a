package materialize

import (
	"fmt"
	"strings"
)

// Method selects how files reach the destination.
type Method string

const (
	MethodCopy    Method = "copy"
	MethodLink    Method = "link"
	MethodSymlink Method = "symlink"
)

// ParseMethod accepts the canonical names plus common aliases.
func ParseMethod(value string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "copy", "copy2":
		return MethodCopy, nil
	case "link", "hardlink", "hard-link":
		return MethodLink, nil
	case "symlink", "softlink", "symbolic-link":
		return MethodSymlink, nil
	default:
		return "", fmt.Errorf("unknown transfer method %q (want copy, link, or symlink)", value)
	}
}

// Verb is the upper-case label used in decision lines.
func (m Method) Verb() string {
	return strings.ToUpper(string(m))
}
