package mapping

import "slices"

// Leaf is one series reference in a document, flattened with the keys that
// locate it.
type Leaf struct {
	Category  Category
	Label     string // anat label (T1w)
	Index     int    // 1-based position within an anat label list
	Count     int    // number of series under the same anat label
	Task      string
	Run       string
	Role      Role
	Group     string // fmap group (gre)
	Component string
	ID        string
}

// Leaves flattens the document in transfer order: anatomical labels, then
// functional tasks and runs (bold before sbref), then fieldmap groups with
// components in vocabulary order.
func (d *Document) Leaves() []Leaf {
	if d == nil {
		return nil
	}
	var leaves []Leaf
	for _, label := range sortedKeys(d.Anat) {
		ids := d.Anat[label]
		for i, id := range ids {
			leaves = append(leaves, Leaf{
				Category: CategoryAnat,
				Label:    label,
				Index:    i + 1,
				Count:    len(ids),
				ID:       id,
			})
		}
	}
	for _, task := range sortedKeys(d.Func) {
		for _, runLabel := range sortedKeys(d.Func[task]) {
			run := d.Func[task][runLabel]
			leaves = append(leaves, Leaf{Category: CategoryFunc, Task: task, Run: runLabel, Role: RoleBold, ID: run.Bold})
			if run.SBRef != "" {
				leaves = append(leaves, Leaf{Category: CategoryFunc, Task: task, Run: runLabel, Role: RoleSBRef, ID: run.SBRef})
			}
		}
	}
	for _, group := range sortedKeys(d.Fmap) {
		components := sortedKeys(d.Fmap[group])
		slices.SortStableFunc(components, func(a, b string) int {
			return componentRank(a) - componentRank(b)
		})
		for _, component := range components {
			leaves = append(leaves, Leaf{
				Category:  CategoryFmap,
				Group:     group,
				Component: component,
				ID:        d.Fmap[group][component],
			})
		}
	}
	return leaves
}

func componentRank(component string) int {
	if i := slices.Index(Components, component); i >= 0 {
		return i
	}
	return len(Components)
}
