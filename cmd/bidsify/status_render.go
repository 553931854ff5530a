package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = [...]struct {
	label string
	color string
}{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const ansiReset = "\x1b[0m"

func (k statusKind) label() string {
	if int(k) < len(statusStyles) {
		return statusStyles[k].label
	}
	return "INFO"
}

// renderStatusLine formats one check result as "  Label:   [OK] detail".
func renderStatusLine(label string, kind statusKind, detail string, colorize bool) string {
	status := "[" + kind.label() + "]"
	if detail != "" {
		status += " " + detail
	}
	return paint(fmt.Sprintf("  %-22s %s", label+":", status), kind, colorize)
}

// paint wraps line in the colour for kind when colorize is set.
func paint(line string, kind statusKind, colorize bool) string {
	if !colorize || int(kind) >= len(statusStyles) {
		return line
	}
	return statusStyles[kind].color + line + ansiReset
}

// shouldColorize reports whether out is a terminal that accepts ANSI colour.
// NO_COLOR disables colour regardless.
func shouldColorize(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
