package vm

import "vil/internal/il"

// operandKind tags how a resolvedOperand was pre-decoded.
type operandKind int

const (
	operandReg operandKind = iota
	operandConstI
	operandConstF
	operandCold // string literal, global reference, or null — falls back to the general evaluator
)

// resolvedOperand is one pre-decoded instruction operand: a register index
// for a temporary, an embedded integer for a constant int, a bit-cast float
// for a constant float, or a cold marker for everything else (string
// literals, global references, null).
type resolvedOperand struct {
	kind operandKind
	reg  int
	i    int64
	f    float64
	orig il.Value // preserved for the cold fallback path
}

func resolveOperand(v il.Value) resolvedOperand {
	switch v.Kind {
	case il.VTemp:
		return resolvedOperand{kind: operandReg, reg: int(v.TempID)}
	case il.VConstInt:
		return resolvedOperand{kind: operandConstI, i: v.ConstInt}
	case il.VConstFloat:
		return resolvedOperand{kind: operandConstF, f: v.ConstF}
	default:
		return resolvedOperand{kind: operandCold, orig: v}
	}
}

// instrExecCache holds the pre-resolved form of one instruction's operands
// and per-successor branch-argument lists.
type instrExecCache struct {
	operands []resolvedOperand
	args     [][]resolvedOperand
	resumeOp resolvedOperand

	// handler is lazily bound to opTable[instr.Op] the first time
	// DispatchThreaded executes this instruction, so every subsequent
	// execution skips the opcode lookup entirely.
	handler opHandler
}

// blockExecInfo is the pre-resolved form of one basic block.
type blockExecInfo struct {
	instrs []instrExecCache
}

// funcExecInfo is the lazily-built, per-function execution cache. NumRegs
// is the dense register-file size the function's frame needs (one past the
// highest SSA id any parameter or instruction in it defines).
type funcExecInfo struct {
	numRegs int
	blocks  []blockExecInfo
}

func buildFuncExecInfo(fn *il.Function) *funcExecInfo {
	info := &funcExecInfo{blocks: make([]blockExecInfo, len(fn.Blocks))}
	maxID := -1
	bump := func(id uint64) {
		if int(id) > maxID {
			maxID = int(id)
		}
	}
	for _, p := range fn.Params {
		bump(p.ID)
	}
	for _, b := range fn.Blocks {
		for _, p := range b.Params {
			bump(p.ID)
		}
	}
	for bi, b := range fn.Blocks {
		bc := blockExecInfo{instrs: make([]instrExecCache, len(b.Instrs))}
		for ii, instr := range b.Instrs {
			if instr.HasResultID {
				bump(instr.ResultID)
			}
			ic := instrExecCache{
				operands: make([]resolvedOperand, len(instr.Operands)),
				args:     make([][]resolvedOperand, len(instr.Args)),
			}
			for oi, op := range instr.Operands {
				ic.operands[oi] = resolveOperand(op)
			}
			for ai, argList := range instr.Args {
				rs := make([]resolvedOperand, len(argList))
				for vi, v := range argList {
					rs[vi] = resolveOperand(v)
				}
				ic.args[ai] = rs
			}
			ic.resumeOp = resolveOperand(instr.ResumeTok)
			bc.instrs[ii] = ic
		}
		info.blocks[bi] = bc
	}
	info.numRegs = maxID + 1
	return info
}

// execCache memoizes funcExecInfo per function across a VM run — the
// module is immutable for the duration of a run, so a function's exec info
// never needs invalidating once built.
type execCache struct {
	byFunc map[*il.Function]*funcExecInfo
}

func newExecCache() *execCache { return &execCache{byFunc: map[*il.Function]*funcExecInfo{}} }

func (c *execCache) get(fn *il.Function) *funcExecInfo {
	if info, ok := c.byFunc[fn]; ok {
		return info
	}
	info := buildFuncExecInfo(fn)
	c.byFunc[fn] = info
	return info
}
