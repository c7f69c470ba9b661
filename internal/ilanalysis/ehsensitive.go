package ilanalysis

import "vil/internal/il"

// StampEHSensitivity computes and caches BasicBlock.EHSensitive for every
// block in f: true for handler blocks and for any block containing
// eh.push/eh.pop/eh.entry/resume.*. SimplifyCFG consults this cached flag
// instead of re-scanning opcodes on every merge attempt, and extending the
// set of EH-sensitive opcodes only means updating this one function rather
// than every call site that would otherwise re-derive the same check.
func StampEHSensitivity(f *il.Function) {
	for i := range f.Blocks {
		b := &f.Blocks[i]
		if b.IsHandler {
			b.EHSensitive = true
			continue
		}
		sensitive := false
		for _, instr := range b.Instrs {
			switch instr.Op {
			case il.OpEhPush, il.OpEhPop, il.OpEhEntry,
				il.OpResumeSame, il.OpResumeNext, il.OpResumeLabel:
				sensitive = true
			}
		}
		b.EHSensitive = sensitive
	}
}
