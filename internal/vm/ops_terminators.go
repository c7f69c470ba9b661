package vm

import (
	"fmt"

	"vil/internal/il"
	"vil/internal/ilerrors"
)

// trapReport builds a structured trap diagnostic tagged with the active
// function and block, so a caller printing a trap doesn't need to walk the
// stack itself to say where it happened.
func (vm *VM) trapReport(code, msg string, instr *il.Instr) *ilerrors.Report {
	fr := vm.top()
	fn, block := "", ""
	if fr != nil {
		fn = fr.Fn.Name
		block = fr.currentBlock().Label
	}
	rep := ilerrors.New(code, msg).WithFunc(fn, block)
	if instr != nil {
		rep = rep.WithLoc(instr.Loc)
	}
	return rep
}

// takeEdge stages succIdx's branch-argument list and transfers it into the
// successor block's parameters: the branch stages argument values, and the
// successor block transfers them into registers as the first action on
// entry. This is the interpreter side of the block-parameter SSA substitute
// for phi nodes.
func (vm *VM) takeEdge(fr *Frame, instr *il.Instr, ic *instrExecCache, succIdx int) {
	label := instr.Succs[succIdx]
	blockIdx := -1
	for i := range fr.Fn.Blocks {
		if fr.Fn.Blocks[i].Label == label {
			blockIdx = i
			break
		}
	}
	args := ic.args[succIdx]
	fr.Staged = fr.Staged[:0]
	for _, ro := range args {
		fr.Staged = append(fr.Staged, vm.resolveOperand(fr, ro))
	}
	fr.Block = blockIdx
	fr.IP = 0
	params := fr.Fn.Blocks[blockIdx].Params
	for i, p := range params {
		if i < len(fr.Staged) {
			fr.Regs[p.ID] = fr.Staged[i]
		}
	}
	fr.Staged = fr.Staged[:0]
}

func (vm *VM) doBr(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	vm.takeEdge(fr, instr, ic, 0)
	return signal{kind: sigBranch}
}

func (vm *VM) doCBr(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	cond := vm.operand(fr, ic, 0).Bool()
	if cond {
		vm.takeEdge(fr, instr, ic, 0)
	} else {
		vm.takeEdge(fr, instr, ic, 1)
	}
	return signal{kind: sigBranch}
}

func (vm *VM) doSwitch(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	scrut := vm.operand(fr, ic, 0).I32()
	for i, c := range instr.SwitchCases {
		if c == scrut {
			vm.takeEdge(fr, instr, ic, i+1) // Succs[0] is the default edge
			return signal{kind: sigBranch}
		}
	}
	vm.takeEdge(fr, instr, ic, 0)
	return signal{kind: sigBranch}
}

func (vm *VM) doRet(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	if len(instr.Operands) == 1 {
		fr.retVal = vm.operand(fr, ic, 0)
		fr.hasRetVal = true
	}
	return signal{kind: sigReturn}
}

func (vm *VM) doCall(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	args := make([]Slot, len(ic.operands))
	for i, ro := range ic.operands {
		args[i] = vm.resolveOperand(fr, ro)
	}

	if fn := vm.mod.FindFunction(instr.Callee); fn != nil {
		if fn.Linkage == il.Import {
			return trapSig(vm.trapReport(ilerrors.TRP006, fmt.Sprintf("call to unresolved import @%s", instr.Callee), instr))
		}
		if len(vm.stack) >= vm.limits.MaxRecursion {
			return trapSig(vm.trapReport(ilerrors.TRP005, "maximum recursion depth exceeded", instr))
		}
		info := vm.execCache.get(fn)
		callee := vm.pool.Get(fn, info.numRegs)
		for i, p := range fn.Params {
			callee.Regs[p.ID] = args[i]
		}
		if instr.HasResultID {
			callee.CallResultReg = int(instr.ResultID)
		}
		vm.stack = append(vm.stack, callee)
		return signal{kind: sigCall}
	}

	if ext := vm.mod.FindExtern(instr.Callee); ext != nil {
		res, rep := vm.bridge.Call(instr.Callee, args, vm.strings, fr.Fn.Name, fr.currentBlock().Label)
		if rep != nil {
			return trapSig(rep)
		}
		setResult(fr, instr, res)
		return sigNextOK()
	}

	return trapSig(vm.trapReport(ilerrors.TRP006, fmt.Sprintf("call to unknown function %q", instr.Callee), instr))
}

func (vm *VM) doTrap(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	return trapSig(vm.trapReport(ilerrors.TRP007, "explicit trap", instr))
}

func (vm *VM) doTrapKind(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	code := trapKindCode(instr.Callee)
	return trapSig(vm.trapReport(code, "trap.kind "+instr.Callee, instr))
}

func (vm *VM) doTrapFromErr(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	errSlot := vm.operand(fr, ic, 0)
	if rep := vm.errors.get(errSlot.Addr()); rep != nil {
		return signal{kind: sigTrap, trap: rep}
	}
	return trapSig(vm.trapReport(ilerrors.TRP006, "trap.from_err with no underlying error", instr))
}

func (vm *VM) doResumeSame(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	tok := vm.resolveOperand(fr, ic.resumeOp)
	info := vm.resumeTok(tok)
	if info == nil {
		return trapSig(vm.trapReport(ilerrors.TRP006, "resume.same with an invalid resume token", instr))
	}
	fr.Block, fr.IP = info.block, info.instr
	return signal{kind: sigBranch}
}

func (vm *VM) doResumeNext(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	tok := vm.resolveOperand(fr, ic.resumeOp)
	info := vm.resumeTok(tok)
	if info == nil {
		return trapSig(vm.trapReport(ilerrors.TRP006, "resume.next with an invalid resume token", instr))
	}
	fr.Block, fr.IP = info.block, info.instr+1
	return signal{kind: sigBranch}
}

func (vm *VM) doResumeLabel(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	tok := vm.resolveOperand(fr, ic.resumeOp)
	if vm.resumeTok(tok) == nil {
		return trapSig(vm.trapReport(ilerrors.TRP006, "resume.label with an invalid resume token", instr))
	}
	for i := range fr.Fn.Blocks {
		if fr.Fn.Blocks[i].Label == instr.ResumeTarget {
			fr.Block, fr.IP = i, 0
			return signal{kind: sigBranch}
		}
	}
	return trapSig(vm.trapReport(ilerrors.TRP006, "resume.label target block not found", instr))
}
