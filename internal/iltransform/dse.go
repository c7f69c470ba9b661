package iltransform

import (
	"vil/internal/il"
	"vil/internal/ilanalysis"
)

// DSE eliminates stores whose value is guaranteed to be overwritten or
// never observed before the allocation's storage is reused. It runs two
// sub-passes:
//
//  1. Intra-block: a forward scan per block tracking, for each memory
//     site BasicAA can name, the index of the most recent store not yet
//     known to be read. A second store to the same site retires (erases)
//     the pending one; a load, or a call whose ModRef may read that site,
//     marks it read (no longer eligible for elimination).
//  2. Cross-block: for each alloca, forward dataflow tracks whether a
//     store is dead because every path from it hits another store to the
//     same alloca before any load of it. A path that reaches function exit
//     first keeps the store.
//
// Both variants refuse to treat a call as transparent unless BasicAA's
// ModRef classification (refined by callee attributes when the pass
// manager bound the owning module) says it cannot read the site — a store
// that is kept must never be reordered across a call whose ModRef set
// includes it, which intra-block DSE satisfies by simply never erasing a
// store the call's ModRef makes live.
type DSE struct{}

func (d *DSE) Name() string { return "dse" }

func (d *DSE) Run(fn *il.Function, am *ilanalysis.Manager) bool {
	aa := am.Alias(fn)
	changed := false
	for bi := range fn.Blocks {
		if intraBlockDSE(am.Module, aa, &fn.Blocks[bi]) {
			changed = true
		}
	}
	if crossBlockDSE(am.Module, aa, fn) {
		changed = true
	}
	return changed
}

// intraBlockDSE removes stores within a single block that are provably
// dead before the block ends, per the pending-store tracking described
// above.
func intraBlockDSE(mod *il.Module, aa *ilanalysis.BasicAA, b *il.BasicBlock) bool {
	dead := map[int]bool{}
	pending := map[string]int{} // site -> index of its most recent unread store

	for i, instr := range b.Instrs {
		switch instr.Op {
		case il.OpStore:
			site, known := siteOf(aa, instr.Operands[0])
			if known {
				if prevIdx, ok := pending[site]; ok {
					dead[prevIdx] = true
				}
				pending[site] = i
			} else {
				// Unknown site: conservatively clobbers everything pending,
				// since it might alias any of them.
				pending = map[string]int{}
			}
		case il.OpLoad:
			observe(aa, pending, instr.Operands[0])
		case il.OpCall:
			if ilanalysis.ModRefOf(mod, instr) != ilanalysis.ModRefNone {
				// Conservative: a call that may touch memory at all could
				// read any site this block doesn't prove disjoint from its
				// arguments; retire every pending store's dead-eligibility.
				pending = map[string]int{}
			}
		}
	}

	if len(dead) == 0 {
		return false
	}
	kept := b.Instrs[:0]
	for i, instr := range b.Instrs {
		if dead[i] {
			continue
		}
		kept = append(kept, instr)
	}
	b.Instrs = kept
	return true
}

func siteOf(aa *ilanalysis.BasicAA, ptr il.Value) (string, bool) {
	// Reuse BasicAA's MustAlias-only-with-self rule by comparing against
	// itself: a site name exists iff Alias(ptr, ptr) resolves it as a named
	// allocation or global rather than an opaque unknown pointer.
	if aa.Alias(ptr, ptr) != ilanalysis.MustAlias {
		return "", false
	}
	return ptr.String() + "#" + siteKind(ptr), true
}

func siteKind(v il.Value) string {
	if v.Kind == il.VGlobal {
		return "g"
	}
	return "a"
}

// observe marks, in pending, every tracked store whose site may alias ptr
// as read (removing its dead-elimination eligibility).
func observe(aa *ilanalysis.BasicAA, pending map[string]int, ptr il.Value) {
	if site, ok := siteOf(aa, ptr); ok {
		delete(pending, site)
		return
	}
	// Unknown pointer may alias anything tracked.
	for k := range pending {
		delete(pending, k)
	}
}

// crossBlockDSE finds stores to allocas that are dead across block
// boundaries: every forward path from the store reaches another store to
// the same alloca before any load of it or function exit.
func crossBlockDSE(mod *il.Module, aa *ilanalysis.BasicAA, fn *il.Function) bool {
	cfg := ilanalysis.BuildCFG(fn)
	changed := false

	for bi := range fn.Blocks {
		b := &fn.Blocks[bi]
		dead := map[int]bool{}
		for ii, instr := range b.Instrs {
			if instr.Op != il.OpStore {
				continue
			}
			site, ok := siteOf(aa, instr.Operands[0])
			if !ok || siteKind(instr.Operands[0]) != "a" {
				continue // only alloca sites are eligible, never globals
			}
			// Check the remainder of this block first.
			if overwrittenWithinBlock(mod, aa, b.Instrs[ii+1:], site) {
				dead[ii] = true
				continue
			}
			succs := cfg.Succs[b.Label]
			if len(succs) == 0 {
				continue
			}
			if allPathsOverwriteBeforeRead(mod, aa, fn, cfg, site, succs, map[string]bool{}) {
				dead[ii] = true
			}
		}
		if len(dead) == 0 {
			continue
		}
		kept := b.Instrs[:0]
		for ii, instr := range b.Instrs {
			if dead[ii] {
				continue
			}
			kept = append(kept, instr)
		}
		b.Instrs = kept
		changed = true
	}
	return changed
}

// overwrittenWithinBlock reports whether, scanning instrs in order, a
// store to site is encountered before any load of site or any memory
// operation that may read it.
func overwrittenWithinBlock(mod *il.Module, aa *ilanalysis.BasicAA, instrs []il.Instr, site string) bool {
	for _, instr := range instrs {
		switch instr.Op {
		case il.OpStore:
			if s, ok := siteOf(aa, instr.Operands[0]); ok && s == site {
				return true
			}
		case il.OpLoad:
			if s, ok := siteOf(aa, instr.Operands[0]); !ok || s == site {
				return false
			}
		case il.OpCall:
			if ilanalysis.ModRefOf(mod, instr) != ilanalysis.ModRefNone {
				return false
			}
		}
	}
	return false
}

// allPathsOverwriteBeforeRead walks the CFG forward from each successor in
// turn; every path must hit a store to site before any load of site or
// function exit.
func allPathsOverwriteBeforeRead(mod *il.Module, aa *ilanalysis.BasicAA, fn *il.Function, cfg *ilanalysis.CFG, site string, succs []string, visiting map[string]bool) bool {
	for _, label := range succs {
		if visiting[label] {
			return false // a cycle back to a block already on this path without resolution: conservatively not dead
		}
		blk := fn.Block(label)
		if blk == nil {
			return false
		}
		switch blockResolvesSite(mod, aa, blk, site) {
		case resolvedDead:
			continue
		case resolvedLive:
			return false
		default: // unresolved: recurse into this block's own successors
			visiting2 := map[string]bool{}
			for k := range visiting {
				visiting2[k] = true
			}
			visiting2[label] = true
			if len(cfg.Succs[label]) == 0 {
				return false // reaches function exit with no resolving store: conservatively live
			}
			if !allPathsOverwriteBeforeRead(mod, aa, fn, cfg, site, cfg.Succs[label], visiting2) {
				return false
			}
		}
	}
	return true
}

type resolution int

const (
	resolvedUnknown resolution = iota
	resolvedDead               // store to site seen before any read
	resolvedLive               // read of site (or unresolvable memory op) seen first
)

func blockResolvesSite(mod *il.Module, aa *ilanalysis.BasicAA, b *il.BasicBlock, site string) resolution {
	for _, instr := range b.Instrs {
		switch instr.Op {
		case il.OpStore:
			if s, ok := siteOf(aa, instr.Operands[0]); ok && s == site {
				return resolvedDead
			}
		case il.OpLoad:
			if s, ok := siteOf(aa, instr.Operands[0]); !ok || s == site {
				return resolvedLive
			}
		case il.OpCall:
			if ilanalysis.ModRefOf(mod, instr) != ilanalysis.ModRefNone {
				return resolvedLive
			}
		}
	}
	return resolvedUnknown
}
