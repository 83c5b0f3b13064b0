package index

import "sort"

// Plan describes the work for one index pass, derived by comparing
// current file fingerprints against the previous pass.
type Plan struct {
	// Changed holds files that are new or whose content digest differs.
	Changed []string
	// Unchanged holds files whose digest matches the previous pass.
	Unchanged []string
	// Deleted holds files present in the previous pass but gone now.
	Deleted []string
}

// Empty reports whether the plan requires no index mutations.
func (p *Plan) Empty() bool {
	return len(p.Changed) == 0 && len(p.Deleted) == 0
}

// BuildPlan compares current fingerprints against prior ones. Every
// current path lands in exactly one of Changed or Unchanged; Deleted
// holds prior paths absent from current. All slices are sorted.
func BuildPlan(current, prior map[string]string) *Plan {
	plan := &Plan{}

	for path, digest := range current {
		if prev, ok := prior[path]; ok && prev == digest {
			plan.Unchanged = append(plan.Unchanged, path)
		} else {
			plan.Changed = append(plan.Changed, path)
		}
	}

	for path := range prior {
		if _, ok := current[path]; !ok {
			plan.Deleted = append(plan.Deleted, path)
		}
	}

	sort.Strings(plan.Changed)
	sort.Strings(plan.Unchanged)
	sort.Strings(plan.Deleted)

	return plan
}
