package ilanalysis

import "sort"

// Loop is one natural loop: a header block dominating every block in the
// loop body, built from the back edges into that header — edges b -> h
// where h dominates b. All back edges sharing one header form one Loop.
type Loop struct {
	Header string
	Body   map[string]bool
}

// LoopInfo holds every natural loop found in a function's CFG, plus the
// innermost loop containing each block.
type LoopInfo struct {
	Loops       []*Loop
	ContainedBy map[string]*Loop
}

// FindLoops detects natural loops in cfg using dom: for every back edge
// (CFG edge whose target dominates its source), the loop body is built by
// walking predecessors backward from the source until the header is
// reached.
func FindLoops(cfg *CFG, dom *DominatorTree) *LoopInfo {
	info := &LoopInfo{ContainedBy: map[string]*Loop{}}

	var backEdges [][2]string
	for _, label := range cfg.Order {
		for _, succ := range cfg.Succs[label] {
			if dom.Dominates(succ, label) {
				backEdges = append(backEdges, [2]string{label, succ})
			}
		}
	}
	// Deterministic order for reproducible pass output.
	sort.Slice(backEdges, func(i, j int) bool {
		if backEdges[i][1] != backEdges[j][1] {
			return backEdges[i][1] < backEdges[j][1]
		}
		return backEdges[i][0] < backEdges[j][0]
	})

	byHeader := map[string]*Loop{}
	for _, edge := range backEdges {
		src, header := edge[0], edge[1]
		loop, ok := byHeader[header]
		if !ok {
			loop = &Loop{Header: header, Body: map[string]bool{header: true}}
			byHeader[header] = loop
			info.Loops = append(info.Loops, loop)
		}
		worklist := []string{src}
		for len(worklist) > 0 {
			b := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			if loop.Body[b] {
				continue
			}
			loop.Body[b] = true
			worklist = append(worklist, cfg.Preds[b]...)
		}
	}

	for _, loop := range info.Loops {
		for b := range loop.Body {
			cur, ok := info.ContainedBy[b]
			if !ok || len(loop.Body) < len(cur.Body) {
				info.ContainedBy[b] = loop
			}
		}
	}
	return info
}
