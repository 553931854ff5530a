package classify

import (
	"context"
	"fmt"
	"log/slog"
		"strings"

	"bidsify/internal/errs"
	"bidsify/internal/logging"
	"bidsify/internal/mapping"
	"bidsify/internal/textutil"
)

// Options are the immutable inputs that change classification.
type Options struct {
	// ForceTask, when set, replaces per-series task detection for every
	// functional series.
	ForceTask string
	// TaskRenames maps a task name to its replacement once detection and
	// ForceTask have settled the task keys. Keys are compared
	// case-insensitively; replacements keep their case.
	TaskRenames map[string]string
}

// Decision records how one series was classified.
type Decision struct {
	ID        string  `json:"id"`
	Rule      string  `json:"rule"`
	Outcome   Outcome `json:"outcome"`
	Label     string  `json:"label,omitempty"`
	Task      string  `json:"task,omitempty"`
	Run       string  `json:"run,omitempty"`
	Component string  `json:"component,omitempty"`
	Reference bool    `json:"reference,omitempty"`
	Note      string  `json:"note,omitempty"`
}

// Result is the output of a classification pass.
type Result struct {
	Document  *mapping.Document
	Decisions []Decision
	Warnings  []string
}

// Classifier applies a rule table to series identifiers.
type Classifier struct {
	rules     []Rule
	forceTask string
	renames   map[string]string
	logger    *slog.Logger
}

type resolvedOptions struct {
	forceTask string
}

// New validates opts and returns a Classifier using DefaultRules.
func New(opts Options, logger *slog.Logger) (*Classifier, error) {
	c := &Classifier{
		rules:   DefaultRules(),
		renames: make(map[string]string, len(opts.TaskRenames)),
		logger:  logging.NewComponentLogger(logger, "classifier"),
	}
	if force := strings.TrimSpace(opts.ForceTask); force != "" {
		label := textutil.SanitizeLabel(foldID(force))
		if label == "" {
			return nil, errs.Wrap(errs.ErrConfiguration, "classify", "force task", fmt.Sprintf("%q is not a valid task label", force), nil)
		}
		c.forceTask = label
	}
	for from, to := range opts.TaskRenames {
		key := textutil.SanitizeLabel(foldID(strings.TrimSpace(from)))
		value := strings.TrimSpace(to)
		if key == "" || !textutil.IsLabel(value) {
			return nil, errs.Wrap(errs.ErrConfiguration, "classify", "task rename", fmt.Sprintf("%q=%q is not a valid rename", from, to), nil)
		}
		c.renames[key] = value
	}
	return c, nil
}

// Classify folds the identifiers, which it sorts naturally first, into a
// mapping document. It never fails: ambiguity is settled by rule order and
// recorded in the decisions.
func (c *Classifier) Classify(ctx context.Context, ids []string) Result {
	logger := logging.WithContext(ctx, c.logger)
	sorted := append([]string(nil), ids...)
	textutil.NaturalSort(sorted)

	opts := &resolvedOptions{forceTask: c.forceTask}
	st := newFoldState()
	for _, id := range sorted {
		candidate := evaluate(c.rules, newMatch(id), opts)
		st.apply(id, candidate)
	}
	st.finish()

	st.renameTasks(c.renames)

	for _, d := range st.decisions {
		attrs := logging.DecisionAttrs(d.ID, d.Rule, string(d.Outcome))
		if d.Task != "" {
			attrs = append(attrs, logging.String("task", d.Task))
		}
		if d.Run != "" {
			attrs = append(attrs, logging.String("run", d.Run))
		}
		if d.Component != "" {
			attrs = append(attrs, logging.String("fmap_component", d.Component))
		}
		switch d.Outcome {
		case OutcomeUnclassified:
			logger.Info("series not classified", logging.Args(attrs...)...)
		default:
			logger.Debug("series classified", logging.Args(attrs...)...)
		}
	}
	for _, w := range st.warnings {
		logging.WarnWithContext(logger, w, "classification_warning",
			logging.String(logging.FieldImpact, "series omitted from mapping"))
	}
	logger.Info(
		"classification complete",
		logging.Int("series_count", len(sorted)),
		logging.Int("tasks", len(st.doc.Func)),
		logging.Int("warnings", len(st.warnings)),
	)
	return Result{Document: st.doc, Decisions: st.decisions, Warnings: st.warnings}
}

// Summary counts decisions per outcome.
func (r Result) Summary() map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, d := range r.Decisions {
		counts[d.Outcome]++
	}
	return counts
}
