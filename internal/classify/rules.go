package classify

import (
	"slices"
	"strings"

	"bidsify/internal/mapping"
)

// Outcome is the classification a rule assigns to a series.
type Outcome string

const (
	OutcomeExcluded     Outcome = "excluded"
	OutcomeAnatomical   Outcome = "anatomical"
	OutcomeFunctional   Outcome = "functional"
	OutcomeReference    Outcome = "reference"
	OutcomeFieldmap     Outcome = "fieldmap"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeDropped      Outcome = "dropped"
	OutcomeUnclassified Outcome = "unclassified"
)

// Rule names.
const (
	RuleExclude  = "exclude"
	RuleAnatT1w  = "anat/T1w"
	RuleFuncBold = "func/bold"
	RuleFmapGRE  = "fmap/gre"
	RuleDefault  = "default"
)

// Match is the view of a series a rule inspects: the raw identifier, its
// case-folded form, and the folded underscore-separated tokens.
type Match struct {
	ID     string
	Folded string
	Tokens []string
}

func newMatch(id string) Match {
	folded := foldID(id)
	return Match{ID: id, Folded: folded, Tokens: strings.Split(folded, "_")}
}

// Rule is one entry of the classification table. Match receives the folded
// view; Classify produces the provisional outcome before the fold assigns
// runs and references.
type Rule struct {
	Name     string
	Match    func(m Match) bool
	Classify func(m Match, opts *resolvedOptions) Candidate
}

// Candidate is a rule's verdict on a single series, independent of its
// neighbours.
type Candidate struct {
	Rule      string
	Outcome   Outcome
	Label     string
	Task      string
	Reference bool
	Component string
}

// Marker vocabularies, stored folded.
var (
	excludeMarkers   = []string{"localizer", "scout"}
	anatomicalMarker = []string{"t1", "adni", "mprage", "mp2rage", "me4"}
	functionalMarker = "bold"
	referenceMarker  = "sbref"
	fieldmapMarkers  = []string{"field", "gre"}
)

// componentRule maps an identifier token to a fieldmap component. Entries are
// checked in order; the first token hit wins.
type componentRule struct {
	Tokens    []string
	Component string
}

var componentTable = []componentRule{
	{Tokens: []string{"e1"}, Component: mapping.ComponentMagnitude1},
	{Tokens: []string{"ph", "phase"}, Component: mapping.ComponentPhase2},
}

// defaultComponent applies when no componentTable entry matches (second echo).
const defaultComponent = mapping.ComponentPhase1

// DefaultRules returns the rule table in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:  RuleExclude,
			Match: containsAny(excludeMarkers),
			Classify: func(Match, *resolvedOptions) Candidate {
				return Candidate{Rule: RuleExclude, Outcome: OutcomeExcluded}
			},
		},
		{
			Name:  RuleAnatT1w,
			Match: containsAny(anatomicalMarker),
			Classify: func(Match, *resolvedOptions) Candidate {
				return Candidate{Rule: RuleAnatT1w, Outcome: OutcomeAnatomical, Label: mapping.LabelT1w}
			},
		},
		{
			Name:  RuleFuncBold,
			Match: containsAny([]string{functionalMarker}),
			Classify: func(m Match, opts *resolvedOptions) Candidate {
				c := Candidate{Rule: RuleFuncBold, Outcome: OutcomeFunctional, Task: opts.task(m)}
				if strings.Contains(m.Folded, referenceMarker) {
					c.Outcome = OutcomeReference
					c.Reference = true
				}
				return c
			},
		},
		{
			Name:  RuleFmapGRE,
			Match: containsAny(fieldmapMarkers),
			Classify: func(m Match, _ *resolvedOptions) Candidate {
				return Candidate{
					Rule:      RuleFmapGRE,
					Outcome:   OutcomeFieldmap,
					Label:     mapping.FmapGRE,
					Component: fieldmapComponent(m.Tokens),
				}
			},
		},
	}
}

func containsAny(markers []string) func(Match) bool {
	return func(m Match) bool {
		for _, marker := range markers {
			if strings.Contains(m.Folded, marker) {
				return true
			}
		}
		return false
	}
}

func fieldmapComponent(tokens []string) string {
	for _, rule := range componentTable {
		for _, token := range rule.Tokens {
			if slices.Contains(tokens, token) {
				return rule.Component
			}
		}
	}
	return defaultComponent
}

// evaluate returns the first matching rule's candidate, or an unclassified
// candidate when nothing matches.
func evaluate(rules []Rule, m Match, opts *resolvedOptions) Candidate {
	for _, rule := range rules {
		if rule.Match(m) {
			return rule.Classify(m, opts)
		}
	}
	return Candidate{Rule: RuleDefault, Outcome: OutcomeUnclassified}
}
