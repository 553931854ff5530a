package mapping

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"bidsify/internal/errs"
	"bidsify/internal/textutil"
)

// Category names the top-level BIDS datatype of a mapping entry.
type Category string

const (
	CategoryAnat Category = "anat"
	CategoryFunc Category = "func"
	CategoryFmap Category = "fmap"
)

// Role distinguishes the series attached to a functional run.
type Role string

const (
	RoleBold  Role = "bold"
	RoleSBRef Role = "sbref"
)

const (
	// LabelT1w is the anatomical label the classifier emits.
	LabelT1w = "T1w"
	// FmapGRE is the fieldmap group the classifier emits.
	FmapGRE = "gre"
)

// Fieldmap components understood by the materializer.
const (
	ComponentMagnitude1 = "magnitude1"
	ComponentMagnitude2 = "magnitude2"
	ComponentPhase1     = "phase1"
	ComponentPhase2     = "phase2"
	ComponentPhaseDiff  = "phasediff"
)

// Components lists the accepted fieldmap component names in output order.
var Components = []string{
	ComponentMagnitude1,
	ComponentMagnitude2,
	ComponentPhase1,
	ComponentPhase2,
	ComponentPhaseDiff,
}

var runLabelPattern = regexp.MustCompile(`^run-[0-9]{2,}$`)

// Run pairs a functional series with its optional single-band reference.
type Run struct {
	Bold  string `yaml:"bold" json:"bold"`
	SBRef string `yaml:"sbref,omitempty" json:"sbref,omitempty"`
}

// Document is the serialized contract between scan and materialize.
type Document struct {
	Anat map[string][]string          `yaml:"anat,omitempty" json:"anat,omitempty"`
	Func map[string]map[string]Run    `yaml:"func,omitempty" json:"func,omitempty"`
	Fmap map[string]map[string]string `yaml:"fmap,omitempty" json:"fmap,omitempty"`
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// RunLabel formats a 1-based run index as run-NN.
func RunLabel(index int) string {
	return fmt.Sprintf("run-%02d", index)
}

// Empty reports whether the document references no series.
func (d *Document) Empty() bool {
	return d == nil || (len(d.Anat) == 0 && len(d.Func) == 0 && len(d.Fmap) == 0)
}

// AddAnat appends id under label.
func (d *Document) AddAnat(label, id string) {
	if d.Anat == nil {
		d.Anat = make(map[string][]string)
	}
	d.Anat[label] = append(d.Anat[label], id)
}

// SetRun stores run under task/runLabel.
func (d *Document) SetRun(task, runLabel string, run Run) {
	if d.Func == nil {
		d.Func = make(map[string]map[string]Run)
	}
	if d.Func[task] == nil {
		d.Func[task] = make(map[string]Run)
	}
	d.Func[task][runLabel] = run
}

// SetFieldmap stores id as component of the fieldmap group.
func (d *Document) SetFieldmap(group, component, id string) {
	if d.Fmap == nil {
		d.Fmap = make(map[string]map[string]string)
	}
	if d.Fmap[group] == nil {
		d.Fmap[group] = make(map[string]string)
	}
	d.Fmap[group][component] = id
}

// Tasks returns functional task names in sorted order.
func (d *Document) Tasks() []string {
	return sortedKeys(d.Func)
}

// Identifiers returns every series identifier referenced by the document in
// leaf order.
func (d *Document) Identifiers() []string {
	leaves := d.Leaves()
	ids := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		ids = append(ids, leaf.ID)
	}
	return ids
}

// Validate checks the structural rules the materializer depends on.
func (d *Document) Validate() error {
	if d == nil {
		return errs.Wrap(errs.ErrMalformedMapping, "mapping", "validate", "document is empty", nil)
	}
	var problems []string
	for _, label := range sortedKeys(d.Anat) {
		if !textutil.IsLabel(label) {
			problems = append(problems, fmt.Sprintf("anat.%s: label must contain only letters and digits", label))
		}
		if len(d.Anat[label]) == 0 {
			problems = append(problems, fmt.Sprintf("anat.%s: no series listed", label))
		}
		for i, id := range d.Anat[label] {
			if msg := checkIdentifier(id); msg != "" {
				problems = append(problems, fmt.Sprintf("anat.%s[%d]: %s", label, i, msg))
			}
		}
	}
	for _, task := range sortedKeys(d.Func) {
		if !textutil.IsLabel(task) {
			problems = append(problems, fmt.Sprintf("func.%s: task must contain only letters and digits", task))
		}
		for _, runLabel := range sortedKeys(d.Func[task]) {
			run := d.Func[task][runLabel]
			path := fmt.Sprintf("func.%s.%s", task, runLabel)
			if !runLabelPattern.MatchString(runLabel) {
				problems = append(problems, path+": run label must look like run-01")
			}
			if strings.TrimSpace(run.Bold) == "" {
				problems = append(problems, path+": bold series is required")
			} else if msg := checkIdentifier(run.Bold); msg != "" {
				problems = append(problems, path+".bold: "+msg)
			}
			if run.SBRef != "" {
				if msg := checkIdentifier(run.SBRef); msg != "" {
					problems = append(problems, path+".sbref: "+msg)
				}
			}
		}
	}
	for _, group := range sortedKeys(d.Fmap) {
		if !textutil.IsLabel(group) {
			problems = append(problems, fmt.Sprintf("fmap.%s: group must contain only letters and digits", group))
		}
		for _, component := range sortedKeys(d.Fmap[group]) {
			path := fmt.Sprintf("fmap.%s.%s", group, component)
			if !slices.Contains(Components, component) {
				problems = append(problems, fmt.Sprintf("%s: unknown component (want one of %s)", path, strings.Join(Components, ", ")))
			}
			if msg := checkIdentifier(d.Fmap[group][component]); msg != "" {
				problems = append(problems, path+": "+msg)
			}
		}
	}
	if len(problems) > 0 {
		return errs.Wrap(errs.ErrMalformedMapping, "mapping", "validate", strings.Join(problems, "; "), nil)
	}
	return nil
}

func checkIdentifier(id string) string {
	switch {
	case strings.TrimSpace(id) == "":
		return "series identifier is empty"
	case strings.ContainsAny(id, `/\`):
		return fmt.Sprintf("series identifier %q must be a bare filename stem", id)
	case id == "." || id == "..":
		return fmt.Sprintf("series identifier %q is not a filename", id)
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return textutil.NaturalLess(keys[i], keys[j])
	})
	return keys
}
