package materialize

import (
	"fmt"
	"os"
	"strings"

	"bidsify/internal/bids"
	"bidsify/internal/errs"
	"bidsify/internal/textutil"
)

// DefaultSession is the fixed session label of a single-session dataset.
const DefaultSession = "01"

// Options configure one materialize run.
type Options struct {
	SourceDir    string
	DestRoot     string
	Subject      string
	Session      string
	Method       Method
	EventsDir    string
	DryRun       bool
	Overwrite    bool
	VerifyCopies bool
}

func (o *Options) normalize() {
	o.SourceDir = strings.TrimSpace(o.SourceDir)
	o.DestRoot = strings.TrimSpace(o.DestRoot)
	o.Subject = strings.TrimSpace(o.Subject)
	o.Session = strings.TrimPrefix(strings.TrimSpace(o.Session), "ses-")
	if o.Session == "" {
		o.Session = DefaultSession
	}
	o.Subject = strings.TrimPrefix(o.Subject, "sub-")
	if o.Subject == "" && o.SourceDir != "" {
		o.Subject = bids.SubjectFromSource(o.SourceDir)
	}
	if method, err := ParseMethod(string(o.Method)); err == nil {
		o.Method = method
	}
	o.EventsDir = strings.TrimSpace(o.EventsDir)
}

func (o *Options) validate() error {
	var problems []string
	if o.SourceDir == "" {
		problems = append(problems, "source directory is required")
	} else if info, err := os.Stat(o.SourceDir); err != nil {
		problems = append(problems, fmt.Sprintf("source directory: %v", err))
	} else if !info.IsDir() {
		problems = append(problems, fmt.Sprintf("source %s is not a directory", o.SourceDir))
	}
	if o.DestRoot == "" {
		problems = append(problems, "destination directory is required")
	}
	if !textutil.IsLabel(o.Subject) {
		problems = append(problems, fmt.Sprintf("subject %q is not a valid BIDS label", o.Subject))
	}
	if !textutil.IsLabel(o.Session) {
		problems = append(problems, fmt.Sprintf("session %q is not a valid BIDS label", o.Session))
	}
	if _, err := ParseMethod(string(o.Method)); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return errs.Wrap(errs.ErrConfiguration, "materialize", "validate options", strings.Join(problems, "; "), nil)
	}
	return nil
}
