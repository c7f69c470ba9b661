package iltransform

import (
	"vil/internal/il"
	"vil/internal/ilanalysis"
)

// SimplifyCFG performs four block-level rewrites, each gated by the global
// exception-handling guard: no block stamped
// BasicBlock.EHSensitive (a handler, or one containing eh.push/eh.pop/
// eh.entry/resume.*, per ilanalysis.StampEHSensitivity) is modified, and no
// edge into or out of such a block is merged or redirected.
//
//  1. cbr with identical successors -> br (handled earlier by Peephole, but
//     re-checked here in case a prior SimplifyCFG rewrite created one).
//  2. Empty block (single unconditional terminator, no block-parameters) ->
//     predecessors splice directly to its successor.
//  3. Single-predecessor block reached only by an unconditional br -> merge
//     into the predecessor.
//  4. Unreachable blocks -> deleted.
type SimplifyCFG struct{}

func (s *SimplifyCFG) Name() string { return "simplify-cfg" }

func (s *SimplifyCFG) Run(fn *il.Function, am *ilanalysis.Manager) bool {
	refs := ehReferencedLabels(fn)
	changed := false
	if mergeUnconditionalDuplicateSuccessors(fn) {
		changed = true
	}
	if spliceEmptyBlocks(fn, refs) {
		changed = true
	}
	if mergeSinglePredecessor(fn, refs) {
		changed = true
	}
	if deleteUnreachable(fn, am) {
		changed = true
	}
	return changed
}

func ehGuarded(b *il.BasicBlock) bool { return b.EHSensitive }

// ehReferencedLabels collects every block label named by an eh.push
// handler operand or a resume.label target. Those references live outside
// the terminator successor lists redirectEdges rewrites, so a block they
// name can be neither spliced away nor merged into its predecessor
// without leaving the reference dangling.
func ehReferencedLabels(fn *il.Function) map[string]bool {
	refs := map[string]bool{}
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.HandlerLabel != "" {
				refs[instr.HandlerLabel] = true
			}
			if instr.ResumeTarget != "" {
				refs[instr.ResumeTarget] = true
			}
		}
	}
	return refs
}

// mergeUnconditionalDuplicateSuccessors rewrites any surviving cbr with two
// identical (label, args) successors into br.
func mergeUnconditionalDuplicateSuccessors(fn *il.Function) bool {
	changed := false
	for bi := range fn.Blocks {
		b := &fn.Blocks[bi]
		if ehGuarded(b) {
			continue
		}
		term := b.Terminator()
		if term != nil && collapseCBr(term) {
			changed = true
		}
	}
	return changed
}

// spliceEmptyBlocks removes a block whose only content is an unconditional
// branch and which declares no block-parameters, rewriting every
// predecessor's edge into it to target its successor directly, forwarding
// that predecessor's original branch-arguments translated through the
// empty block's own (parameter-less, argument-less) edge. The entry block
// is never spliced.
func spliceEmptyBlocks(fn *il.Function, refs map[string]bool) bool {
	changed := false
	for {
		roundChanged := false
		for i := 0; i < len(fn.Blocks); i++ {
			b := &fn.Blocks[i]
			if i == 0 || ehGuarded(b) || refs[b.Label] || len(b.Params) != 0 || len(b.Instrs) != 1 {
				continue
			}
			term := b.Instrs[0]
			if term.Op != il.OpBr || len(term.Args[0]) != 0 {
				continue
			}
			if b.Label == term.Succs[0] {
				continue // a self-loop empty block is not splice-able
			}
			target := term.Succs[0]
			if redirectEdges(fn, b.Label, target) {
				removeBlock(fn, b.Label)
				roundChanged = true
				break // indices shifted; restart the scan
			}
		}
		if !roundChanged {
			break
		}
		changed = true
	}
	return changed
}

// redirectEdges retarges every edge pointing at oldLabel to newLabel,
// skipping (and reporting false, leaving the empty block alone) if any such
// edge originates from an EH-guarded block.
func redirectEdges(fn *il.Function, oldLabel, newLabel string) bool {
	for bi := range fn.Blocks {
		pb := &fn.Blocks[bi]
		term := pb.Terminator()
		if term == nil {
			continue
		}
		for _, s := range term.Succs {
			if s == oldLabel && ehGuarded(pb) {
				return false
			}
		}
	}
	for bi := range fn.Blocks {
		pb := &fn.Blocks[bi]
		term := pb.Terminator()
		if term == nil {
			continue
		}
		for si, s := range term.Succs {
			if s == oldLabel {
				term.Succs[si] = newLabel
			}
		}
	}
	return true
}

// mergeSinglePredecessor merges a block into its sole predecessor when that
// predecessor's terminator is an unconditional branch (with no arguments,
// since the block declares no parameters once merged) directly to it.
func mergeSinglePredecessor(fn *il.Function, refs map[string]bool) bool {
	changed := false
	for {
		cfg := ilanalysis.BuildCFG(fn)
		merged := false
		for i := 0; i < len(fn.Blocks); i++ {
			b := &fn.Blocks[i]
			if ehGuarded(b) || refs[b.Label] || b.Label == cfg.Entry {
				continue
			}
			preds := cfg.Preds[b.Label]
			if len(preds) != 1 {
				continue
			}
			pred := fn.Block(preds[0])
			if pred == nil || ehGuarded(pred) {
				continue
			}
			pterm := pred.Terminator()
			if pterm == nil || pterm.Op != il.OpBr || pterm.Succs[0] != b.Label {
				continue
			}
			if len(b.Params) != len(pterm.Args[0]) {
				continue // argument/parameter shape mismatch: leave for the verifier to report
			}
			bindBlockParams(pred, b, pterm.Args[0])
			pred.Instrs = pred.Instrs[:len(pred.Instrs)-1] // drop the br
			pred.Instrs = append(pred.Instrs, b.Instrs...)
			removeBlock(fn, b.Label)
			merged = true
			changed = true
			break
		}
		if !merged {
			break
		}
	}
	return changed
}

// bindBlockParams substitutes every use of b's block-parameters within b's
// own instructions with the values the sole incoming branch supplied,
// since after merging those parameters no longer have a binding site.
func bindBlockParams(pred, b *il.BasicBlock, args []il.Value) {
	if len(b.Params) == 0 {
		return
	}
	subst := map[uint64]il.Value{}
	for i, p := range b.Params {
		subst[p.ID] = args[i]
	}
	for ii := range b.Instrs {
		substituteOperands(&b.Instrs[ii], subst)
	}
	b.Params = nil
}

// deleteUnreachable removes every block not reachable from the entry in
// the (post-rewrite) CFG. The CFG already carries eh.push handler edges
// and resume.label target edges, so handler chains count as reachable;
// EH-sensitive blocks are additionally never deleted even when the walk
// misses them.
func deleteUnreachable(fn *il.Function, am *ilanalysis.Manager) bool {
	cfg := ilanalysis.BuildCFG(fn)
	reachable := map[string]bool{}
	var walk func(label string)
	walk = func(label string) {
		if reachable[label] {
			return
		}
		reachable[label] = true
		for _, s := range cfg.Succs[label] {
			walk(s)
		}
	}
	if cfg.Entry != "" {
		walk(cfg.Entry)
	}

	changed := false
	var kept []il.BasicBlock
	for i := range fn.Blocks {
		b := &fn.Blocks[i]
		if !reachable[b.Label] && !ehGuarded(b) {
			changed = true
			continue
		}
		kept = append(kept, *b)
	}
	fn.Blocks = kept
	if changed {
		am.Invalidate(fn.Name)
	}
	return changed
}

func removeBlock(fn *il.Function, label string) {
	for i := range fn.Blocks {
		if fn.Blocks[i].Label == label {
			fn.Blocks = append(fn.Blocks[:i], fn.Blocks[i+1:]...)
			return
		}
	}
}
