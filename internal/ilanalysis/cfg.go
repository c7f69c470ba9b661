// Package ilanalysis provides the CFG, dominator tree, natural-loop, and
// alias analyses the transform passes rely on, plus the per-function
// analysis manager that memoizes them across passes and invalidates the
// cache whenever a pass reports that it changed the function.
package ilanalysis

import "vil/internal/il"

// CFG is the control-flow graph of one function's blocks, indexed by label.
type CFG struct {
	Entry string
	Preds map[string][]string
	Succs map[string][]string
	Order []string // reverse postorder over Succs from Entry
}

// BuildCFG constructs the control-flow graph of f from its block
// terminators' successor lists, plus the exception edges the terminator
// list alone does not carry: an eh.push's handler label (control may
// transfer there on a trap anywhere in the protected region) and a
// resume.label's target. Without those, handler chains look unreachable
// and dominance/reachability queries come out wrong for any function that
// traps.
func BuildCFG(f *il.Function) *CFG {
	cfg := &CFG{
		Preds: map[string][]string{},
		Succs: map[string][]string{},
	}
	if len(f.Blocks) == 0 {
		return cfg
	}
	cfg.Entry = f.Blocks[0].Label
	for _, b := range f.Blocks {
		cfg.Preds[b.Label] = nil
		cfg.Succs[b.Label] = nil
	}
	addEdge := func(from, to string) {
		if _, ok := cfg.Succs[to]; !ok {
			return // dangling target reported separately by ilverify
		}
		cfg.Succs[from] = append(cfg.Succs[from], to)
		cfg.Preds[to] = append(cfg.Preds[to], from)
	}
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == il.OpEhPush && instr.HandlerLabel != "" {
				addEdge(b.Label, instr.HandlerLabel)
			}
		}
		term := b.Terminator()
		if term == nil {
			continue
		}
		for _, s := range term.Succs {
			addEdge(b.Label, s)
		}
		if term.Op == il.OpResumeLabel && term.ResumeTarget != "" {
			addEdge(b.Label, term.ResumeTarget)
		}
	}
	cfg.Order = reversePostorder(cfg)
	return cfg
}

func reversePostorder(cfg *CFG) []string {
	visited := map[string]bool{}
	var post []string
	var visit func(label string)
	visit = func(label string) {
		if visited[label] {
			return
		}
		visited[label] = true
		for _, s := range cfg.Succs[label] {
			visit(s)
		}
		post = append(post, label)
	}
	visit(cfg.Entry)
	// reverse in place
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}
