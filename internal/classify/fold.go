package classify

import (
	"fmt"
	"sort"

	"bidsify/internal/mapping"
)

// openRun is the most recent non-reference functional run. It stays open for
// a reference only until any other functional series is seen.
type openRun struct {
	task   string
	label  string
	hasRef bool
}

type pendingRef struct {
	id       string
	task     string
	decision int
}

// foldState is the single piece of state carried across the sorted sequence.
type foldState struct {
	doc       *mapping.Document
	decisions []Decision
	warnings  []string

	runs     map[string]int
	last     *openRun
	pending  *pendingRef
	anatID   string
	fmapSeen map[string]string
}

func newFoldState() *foldState {
	return &foldState{
		doc:      mapping.New(),
		runs:     make(map[string]int),
		fmapSeen: make(map[string]string),
	}
}

func (s *foldState) warn(msg string) {
	s.warnings = append(s.warnings, msg)
}

func (s *foldState) record(d Decision) int {
	s.decisions = append(s.decisions, d)
	return len(s.decisions) - 1
}

func (s *foldState) apply(id string, c Candidate) {
	d := Decision{ID: id, Rule: c.Rule, Outcome: c.Outcome, Label: c.Label, Task: c.Task, Component: c.Component, Reference: c.Reference}
	switch c.Outcome {
	case OutcomeAnatomical:
		if s.anatID != "" {
			d.Outcome = OutcomeDuplicate
			d.Note = "anatomical already assigned to " + s.anatID
			s.warn(fmt.Sprintf("duplicate anatomical series %s ignored; keeping %s", id, s.anatID))
			s.record(d)
			return
		}
		s.anatID = id
		s.doc.AddAnat(c.Label, id)
	case OutcomeFunctional:
		s.addRun(id, &d)
		return
	case OutcomeReference:
		s.addReference(id, &d)
		return
	case OutcomeFieldmap:
		key := c.Label + "/" + c.Component
		if prev, ok := s.fmapSeen[key]; ok {
			d.Outcome = OutcomeDuplicate
			d.Note = c.Component + " already assigned to " + prev
			s.warn(fmt.Sprintf("duplicate fieldmap %s series %s ignored; keeping %s", c.Component, id, prev))
			s.record(d)
			return
		}
		s.fmapSeen[key] = id
		s.doc.SetFieldmap(c.Label, c.Component, id)
	}
	s.record(d)
}

func (s *foldState) addRun(id string, d *Decision) {
	s.runs[d.Task]++
	d.Run = mapping.RunLabel(s.runs[d.Task])
	run := mapping.Run{Bold: id}

	if p := s.pending; p != nil {
		s.pending = nil
		if p.task == d.Task {
			run.SBRef = p.id
			s.decisions[p.decision].Run = d.Run
			s.decisions[p.decision].Note = "attached to following run"
		} else {
			s.dropPending(p, fmt.Sprintf("followed by run of task %s", d.Task))
		}
	}

	s.doc.SetRun(d.Task, d.Run, run)
	s.last = &openRun{task: d.Task, label: d.Run, hasRef: run.SBRef != ""}
	s.record(*d)
}

func (s *foldState) addReference(id string, d *Decision) {
	last := s.last
	s.last = nil
	if last != nil && last.task == d.Task && !last.hasRef {
		run := s.doc.Func[last.task][last.label]
		run.SBRef = id
		s.doc.SetRun(last.task, last.label, run)
		d.Run = last.label
		d.Note = "attached to preceding run"
		s.record(*d)
		return
	}
	if p := s.pending; p != nil {
		s.dropPending(p, "superseded by "+id)
	}
	d.Note = "waiting for next run"
	idx := s.record(*d)
	s.pending = &pendingRef{id: id, task: d.Task, decision: idx}
}

func (s *foldState) dropPending(p *pendingRef, reason string) {
	s.decisions[p.decision].Outcome = OutcomeDropped
	s.decisions[p.decision].Note = reason
	s.warn(fmt.Sprintf("reference series %s dropped: %s", p.id, reason))
}

func (s *foldState) finish() {
	if p := s.pending; p != nil {
		s.pending = nil
		s.dropPending(p, "no following run")
	}
}

// renameTasks moves whole tasks in the document. A rename whose source task
// is absent, or whose target already exists, is skipped with a warning so two
// tasks never merge.
func (s *foldState) renameTasks(renames map[string]string) {
	olds := make([]string, 0, len(renames))
	for old := range renames {
		olds = append(olds, old)
	}
	sort.Strings(olds)
	for _, old := range olds {
		target := renames[old]
		runs, ok := s.doc.Func[old]
		if !ok {
			s.warn(fmt.Sprintf("rename ignored: task %q was not detected", old))
			continue
		}
		if target == old {
			continue
		}
		if _, taken := s.doc.Func[target]; taken {
			s.warn(fmt.Sprintf("rename of task %q aborted: target task %q already exists", old, target))
			continue
		}
		s.doc.Func[target] = runs
		delete(s.doc.Func, old)
		for i := range s.decisions {
			if s.decisions[i].Task == old {
				s.decisions[i].Task = target
			}
		}
	}
}
