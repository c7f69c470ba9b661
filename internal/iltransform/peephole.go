package iltransform

import (
	"vil/internal/il"
	"vil/internal/ilanalysis"
)

// Peephole applies two rewrites:
//  1. Algebraic identities from a static rule table (x+0, x*1, x*0, x&0,
//     x|0, x^0, x-0), forwarding the other operand and erasing the
//     instruction — the same erase-and-substitute shape as ConstFold, so a
//     chain of identities collapses in one pass.
//  2. Conditional-branch collapse: a constant predicate, or identical
//     successors with identical branch-arguments, rewrites cbr to br.
//
// Because ConstFold always runs first in the pipeline (NewManager's pass
// order) and folds pure constant-comparisons unconditionally, a cbr whose
// predicate was a constant-comparison with both operands literal already
// arrives here with a literal predicate operand — Peephole only needs to
// handle the already-constant-predicate case plus the identical-successors
// case.
type Peephole struct{}

func (p *Peephole) Name() string { return "peephole" }

func (p *Peephole) Run(fn *il.Function, am *ilanalysis.Manager) bool {
	changed := false
	subst := map[uint64]il.Value{}
	for bi := range fn.Blocks {
		instrs := fn.Blocks[bi].Instrs
		kept := instrs[:0]
		for _, instr := range instrs {
			substituteOperands(&instr, subst)
			if instr.HasResultID && !instr.Op.IsTerminator() {
				if fwd, ok := identityForward(instr); ok {
					subst[instr.ResultID] = fwd
					changed = true
					continue
				}
			}
			if collapseCBr(&instr) {
				changed = true
			}
			kept = append(kept, instr)
		}
		fn.Blocks[bi].Instrs = kept
	}
	// Same final sweep as ConstFold: catch uses sitting in blocks listed
	// before their forwarded definition.
	if len(subst) > 0 {
		for bi := range fn.Blocks {
			for ii := range fn.Blocks[bi].Instrs {
				substituteOperands(&fn.Blocks[bi].Instrs[ii], subst)
			}
		}
	}
	return changed
}

// identityForward matches instr against the algebraic-identity rule table
// and returns the operand (or synthesized zero) that should replace every
// use of instr's result.
func identityForward(instr il.Instr) (il.Value, bool) {
	if len(instr.Operands) != 2 {
		return il.Value{}, false
	}
	a, b := instr.Operands[0], instr.Operands[1]
	aZero := a.Kind == il.VConstInt && a.ConstInt == 0
	bZero := b.Kind == il.VConstInt && b.ConstInt == 0
	aOne := a.Kind == il.VConstInt && a.ConstInt == 1
	bOne := b.Kind == il.VConstInt && b.ConstInt == 1

	switch instr.Op {
	case il.OpIAddOvf:
		if bZero {
			return a, true
		}
		if aZero {
			return b, true
		}
	case il.OpISubOvf:
		if bZero {
			return a, true
		}
	case il.OpIMulOvf:
		if bZero || aZero {
			return il.ConstI(0), true
		}
		if bOne {
			return a, true
		}
		if aOne {
			return b, true
		}
	case il.OpAnd:
		if bZero || aZero {
			return il.ConstI(0), true
		}
	case il.OpOr:
		if bZero {
			return a, true
		}
		if aZero {
			return b, true
		}
	case il.OpXor:
		if bZero {
			return a, true
		}
		if aZero {
			return b, true
		}
	}
	return il.Value{}, false
}

// collapseCBr rewrites instr in place from cbr to br when its predicate is
// a compile-time constant or both successors are identical (same label,
// same branch-arguments). Returns whether a rewrite happened.
func collapseCBr(instr *il.Instr) bool {
	if instr.Op != il.OpCBr {
		return false
	}
	pred := instr.Operands[0]
	if pred.Kind == il.VConstInt {
		taken := 0
		if pred.ConstInt == 0 {
			taken = 1
		}
		rewriteAsBr(instr, instr.Succs[taken], instr.Args[taken])
		return true
	}
	if instr.Succs[0] == instr.Succs[1] && valuesEqual(instr.Args[0], instr.Args[1]) {
		rewriteAsBr(instr, instr.Succs[0], instr.Args[0])
		return true
	}
	return false
}

func rewriteAsBr(instr *il.Instr, target string, args []il.Value) {
	loc := instr.Loc
	*instr = il.Instr{
		Op:    il.OpBr,
		Succs: []string{target},
		Args:  [][]il.Value{args},
		Loc:   loc,
	}
}

func valuesEqual(a, b []il.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
