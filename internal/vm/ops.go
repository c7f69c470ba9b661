package vm

import (
	"math"

	"vil/internal/il"
	"vil/internal/ilerrors"
)

// opHandler executes one instruction against the active frame and reports
// what the main loop should do next. Every opcode's semantics live in
// exactly one of these functions; DispatchTable looks the function up in
// opTable on every execution, DispatchThreaded keeps that lookup in the
// instruction's instrExecCache entry after its first execution, and
// DispatchSwitch reaches the identical function through a literal switch
// (dispatch_switch.go), so all three dispatch modes are calling the same
// code.
type opHandler func(vm *VM, fr *Frame, instr *il.Instr, ic *instrExecCache) signal

// opTable is indexed by il.Opcode; built once at package init.
var opTable = buildOpTable()

func buildOpTable() [64]opHandler {
	var t [64]opHandler
	t[il.OpIAddOvf] = (*VM).doIAddOvf
	t[il.OpISubOvf] = (*VM).doISubOvf
	t[il.OpIMulOvf] = (*VM).doIMulOvf
	t[il.OpSDivChk0] = (*VM).doSDivChk0
	t[il.OpSRemChk0] = (*VM).doSRemChk0
	t[il.OpAnd] = (*VM).doAnd
	t[il.OpOr] = (*VM).doOr
	t[il.OpXor] = (*VM).doXor
	t[il.OpFAdd] = (*VM).doFAdd
	t[il.OpFSub] = (*VM).doFSub
	t[il.OpFMul] = (*VM).doFMul
	t[il.OpFDiv] = (*VM).doFDiv
	t[il.OpSCmpLT] = (*VM).doSCmp
	t[il.OpSCmpLE] = (*VM).doSCmp
	t[il.OpSCmpGT] = (*VM).doSCmp
	t[il.OpSCmpGE] = (*VM).doSCmp
	t[il.OpSCmpEQ] = (*VM).doSCmp
	t[il.OpSCmpNE] = (*VM).doSCmp
	t[il.OpIcmpNe] = (*VM).doIcmpNe
	t[il.OpZext1] = (*VM).doZext1
	t[il.OpAlloca] = (*VM).doAlloca
	t[il.OpLoad] = (*VM).doLoad
	t[il.OpStore] = (*VM).doStore
	t[il.OpPtrAdd] = (*VM).doPtrAdd
	t[il.OpCall] = (*VM).doCall
	t[il.OpConstStr] = (*VM).doConstStr
	t[il.OpEhPush] = (*VM).doEhPush
	t[il.OpEhPop] = (*VM).doEhPop
	t[il.OpEhEntry] = (*VM).doEhEntry
	t[il.OpBr] = (*VM).doBr
	t[il.OpCBr] = (*VM).doCBr
	t[il.OpSwitchI32] = (*VM).doSwitch
	t[il.OpRet] = (*VM).doRet
	t[il.OpTrap] = (*VM).doTrap
	t[il.OpTrapKind] = (*VM).doTrapKind
	t[il.OpTrapFromErr] = (*VM).doTrapFromErr
	t[il.OpResumeSame] = (*VM).doResumeSame
	t[il.OpResumeNext] = (*VM).doResumeNext
	t[il.OpResumeLabel] = (*VM).doResumeLabel
	return t
}

func sigNextOK() signal { return signal{kind: sigNext} }

func trapSig(r *ilerrors.Report) signal { return signal{kind: sigTrap, trap: r} }

func (vm *VM) operand(fr *Frame, ic *instrExecCache, i int) Slot {
	return vm.resolveOperand(fr, ic.operands[i])
}

func (vm *VM) resolveOperand(fr *Frame, ro resolvedOperand) Slot {
	switch ro.kind {
	case operandReg:
		return fr.Regs[ro.reg]
	case operandConstI:
		return I64Slot(ro.i)
	case operandConstF:
		return F64Slot(ro.f)
	default:
		return vm.resolveCold(ro.orig)
	}
}

func (vm *VM) resolveCold(v il.Value) Slot {
	switch v.Kind {
	case il.VConstStr:
		return StrSlot(vm.strings.Intern(v.ConstStr))
	case il.VGlobal:
		if addr, ok := vm.globalAddr[v.Global]; ok {
			return AddrSlot(addr)
		}
		return NullSlot()
	default:
		return NullSlot()
	}
}

func setResult(fr *Frame, instr *il.Instr, v Slot) {
	if instr.HasResultID {
		fr.Regs[instr.ResultID] = v
	}
}

// ---- arithmetic (checked) ----

func (vm *VM) doIAddOvf(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	a, b := vm.operand(fr, ic, 0).I64(), vm.operand(fr, ic, 1).I64()
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return trapSig(vm.trapReport(ilerrors.TRP002, "integer overflow in iadd.ovf", instr))
	}
	setResult(fr, instr, I64Slot(sum))
	return sigNextOK()
}

func (vm *VM) doISubOvf(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	a, b := vm.operand(fr, ic, 0).I64(), vm.operand(fr, ic, 1).I64()
	diff := a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) {
		return trapSig(vm.trapReport(ilerrors.TRP002, "integer overflow in isub.ovf", instr))
	}
	setResult(fr, instr, I64Slot(diff))
	return sigNextOK()
}

func (vm *VM) doIMulOvf(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	a, b := vm.operand(fr, ic, 0).I64(), vm.operand(fr, ic, 1).I64()
	prod := a * b
	overflow := false
	if a != 0 && b != 0 {
		if a == -1 && b == math.MinInt64 {
			overflow = true
		} else if prod/b != a {
			overflow = true
		}
	}
	if overflow {
		return trapSig(vm.trapReport(ilerrors.TRP002, "integer overflow in imul.ovf", instr))
	}
	setResult(fr, instr, I64Slot(prod))
	return sigNextOK()
}

func (vm *VM) doSDivChk0(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	a, b := vm.operand(fr, ic, 0).I64(), vm.operand(fr, ic, 1).I64()
	if b == 0 {
		return trapSig(vm.trapReport(ilerrors.TRP001, "division by zero", instr))
	}
	if a == math.MinInt64 && b == -1 {
		return trapSig(vm.trapReport(ilerrors.TRP002, "signed division overflow (INT_MIN / -1)", instr))
	}
	setResult(fr, instr, I64Slot(a/b))
	return sigNextOK()
}

func (vm *VM) doSRemChk0(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	a, b := vm.operand(fr, ic, 0).I64(), vm.operand(fr, ic, 1).I64()
	if b == 0 {
		return trapSig(vm.trapReport(ilerrors.TRP001, "division by zero", instr))
	}
	if a == math.MinInt64 && b == -1 {
		return trapSig(vm.trapReport(ilerrors.TRP002, "signed remainder overflow (INT_MIN / -1)", instr))
	}
	setResult(fr, instr, I64Slot(a%b))
	return sigNextOK()
}

// ---- bitwise / float (unchecked) ----

func (vm *VM) doAnd(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	setResult(fr, instr, I64Slot(vm.operand(fr, ic, 0).I64()&vm.operand(fr, ic, 1).I64()))
	return sigNextOK()
}
func (vm *VM) doOr(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	setResult(fr, instr, I64Slot(vm.operand(fr, ic, 0).I64()|vm.operand(fr, ic, 1).I64()))
	return sigNextOK()
}
func (vm *VM) doXor(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	setResult(fr, instr, I64Slot(vm.operand(fr, ic, 0).I64()^vm.operand(fr, ic, 1).I64()))
	return sigNextOK()
}
func (vm *VM) doFAdd(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	setResult(fr, instr, F64Slot(vm.operand(fr, ic, 0).F64()+vm.operand(fr, ic, 1).F64()))
	return sigNextOK()
}
func (vm *VM) doFSub(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	setResult(fr, instr, F64Slot(vm.operand(fr, ic, 0).F64()-vm.operand(fr, ic, 1).F64()))
	return sigNextOK()
}
func (vm *VM) doFMul(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	setResult(fr, instr, F64Slot(vm.operand(fr, ic, 0).F64()*vm.operand(fr, ic, 1).F64()))
	return sigNextOK()
}
func (vm *VM) doFDiv(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	setResult(fr, instr, F64Slot(vm.operand(fr, ic, 0).F64()/vm.operand(fr, ic, 1).F64()))
	return sigNextOK()
}

// ---- comparisons ----

func (vm *VM) doSCmp(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	a, b := vm.operand(fr, ic, 0).I64(), vm.operand(fr, ic, 1).I64()
	var r bool
	switch instr.Op {
	case il.OpSCmpLT:
		r = a < b
	case il.OpSCmpLE:
		r = a <= b
	case il.OpSCmpGT:
		r = a > b
	case il.OpSCmpGE:
		r = a >= b
	case il.OpSCmpEQ:
		r = a == b
	case il.OpSCmpNE:
		r = a != b
	}
	setResult(fr, instr, BoolSlot(r))
	return sigNextOK()
}

func (vm *VM) doIcmpNe(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	setResult(fr, instr, BoolSlot(vm.operand(fr, ic, 0).I64() != 0))
	return sigNextOK()
}

func (vm *VM) doZext1(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	if vm.operand(fr, ic, 0).Bool() {
		setResult(fr, instr, I64Slot(1))
	} else {
		setResult(fr, instr, I64Slot(0))
	}
	return sigNextOK()
}

// ---- memory ----

func (vm *VM) doAlloca(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	elemType, ok := il.ParseType(instr.Callee)
	if !ok {
		elemType = il.I64
	}
	addr := vm.mem.Alloc(byteWidth(elemType))
	setResult(fr, instr, AddrSlot(addr))
	return sigNextOK()
}

func (vm *VM) doLoad(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	ptr := vm.operand(fr, ic, 0)
	if ptr.IsNull() {
		return trapSig(vm.trapReport(ilerrors.TRP004, "load through null pointer", instr))
	}
	v, ok := vm.mem.Load(ptr.Addr(), instr.ResultType)
	if !ok {
		return trapSig(vm.trapReport(ilerrors.TRP005, "load out of bounds", instr))
	}
	setResult(fr, instr, v)
	return sigNextOK()
}

func (vm *VM) doStore(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	ptr := vm.operand(fr, ic, 0)
	val := vm.operand(fr, ic, 1)
	if ptr.IsNull() {
		return trapSig(vm.trapReport(ilerrors.TRP004, "store through null pointer", instr))
	}
	// The allocation's element width (recorded at alloca time) is the
	// number of bytes written, regardless of the stored value's logical
	// type, so a store/load pair through the same alloca round-trips
	// exactly. A pointer produced by ptr_add (not an exact alloc base)
	// falls back to a full 8-byte slot write.
	width := 8
	if n, ok := vm.mem.sizes[ptr.Addr()]; ok {
		width = n
	}
	if !vm.mem.StoreWidth(ptr.Addr(), width, val) {
		return trapSig(vm.trapReport(ilerrors.TRP005, "store out of bounds", instr))
	}
	return sigNextOK()
}

func (vm *VM) doPtrAdd(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	ptr := vm.operand(fr, ic, 0)
	off := vm.operand(fr, ic, 1).I64()
	setResult(fr, instr, AddrSlot(ptr.Addr()+uint64(off)))
	return sigNextOK()
}

// ---- strings ----

func (vm *VM) doConstStr(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	setResult(fr, instr, vm.operand(fr, ic, 0))
	return sigNextOK()
}

// ---- exception-handling bookkeeping (non-terminator) ----

func (vm *VM) doEhPush(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	fr.pushHandler(instr.HandlerLabel)
	return sigNextOK()
}
func (vm *VM) doEhPop(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	fr.popHandler()
	return sigNextOK()
}
func (vm *VM) doEhEntry(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	return sigNextOK()
}
