package ilanalysis

// DominatorTree holds each reachable block's immediate dominator, computed
// with the standard iterative Cooper/Harvey/Kennedy algorithm over the
// CFG's reverse-postorder.
type DominatorTree struct {
	idom  map[string]string // block -> immediate dominator; entry maps to itself
	order map[string]int    // reverse-postorder index, for the fast-intersect walk
}

// BuildDominatorTree computes the dominator tree of cfg. Blocks
// unreachable from the entry have no entry in the tree: Dominates reports
// false for them and Reachable lets a caller distinguish "not dominated"
// from "not reachable at all" (an unreachable block is legal IL —
// SimplifyCFG deletes it, the verifier skips dominance checks in it).
func BuildDominatorTree(cfg *CFG) *DominatorTree {
	if cfg.Entry == "" {
		return &DominatorTree{idom: map[string]string{}, order: map[string]int{}}
	}
	order := map[string]int{}
	for i, label := range cfg.Order {
		order[label] = i
	}

	idom := map[string]string{cfg.Entry: cfg.Entry}
	changed := true
	for changed {
		changed = false
		for _, label := range cfg.Order {
			if label == cfg.Entry {
				continue
			}
			var newIdom string
			for _, pred := range cfg.Preds[label] {
				if _, ok := idom[pred]; !ok {
					continue
				}
				if newIdom == "" {
					newIdom = pred
					continue
				}
				newIdom = intersect(idom, order, newIdom, pred)
			}
			if newIdom == "" {
				continue // no processed predecessor yet
			}
			if idom[label] != newIdom {
				idom[label] = newIdom
				changed = true
			}
		}
	}

	return &DominatorTree{idom: idom, order: order}
}

// Reachable reports whether label is reachable from the CFG entry the tree
// was built over.
func (d *DominatorTree) Reachable(label string) bool {
	_, ok := d.idom[label]
	return ok
}

func intersect(idom map[string]string, order map[string]int, a, b string) string {
	for a != b {
		for order[a] > order[b] {
			a = idom[a]
		}
		for order[b] > order[a] {
			b = idom[b]
		}
	}
	return a
}

// Dominates reports whether a dominates b (every path from the entry to b
// passes through a), including the reflexive case a == b.
func (d *DominatorTree) Dominates(a, b string) bool {
	if a == b {
		return true
	}
	if _, ok := d.idom[b]; !ok {
		return false
	}
	cur := d.idom[b]
	for {
		if cur == a {
			return true
		}
		parent, ok := d.idom[cur]
		if !ok || parent == cur {
			return false
		}
		cur = parent
	}
}

// ImmediateDominator returns the immediate dominator of label, or "" if
// label is the entry or unreachable.
func (d *DominatorTree) ImmediateDominator(label string) string {
	if idom, ok := d.idom[label]; ok && idom != label {
		return idom
	}
	return ""
}
