package vm

import (
	"vil/internal/il"
	"vil/internal/ilerrors"
)

// execSwitch is DispatchSwitch's lookup mechanism: a literal Go switch over
// the opcode reaching the exact same vm.do* functions DispatchTable finds
// through opTable and DispatchThreaded binds into each instruction's
// instrExecCache entry.
// Keeping every opcode's semantics in those shared functions — never
// duplicated here — is what makes the three dispatch modes observationally
// identical by construction.
func (vm *VM) execSwitch(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	switch instr.Op {
	case il.OpIAddOvf:
		return vm.doIAddOvf(fr, instr, ic)
	case il.OpISubOvf:
		return vm.doISubOvf(fr, instr, ic)
	case il.OpIMulOvf:
		return vm.doIMulOvf(fr, instr, ic)
	case il.OpSDivChk0:
		return vm.doSDivChk0(fr, instr, ic)
	case il.OpSRemChk0:
		return vm.doSRemChk0(fr, instr, ic)
	case il.OpAnd:
		return vm.doAnd(fr, instr, ic)
	case il.OpOr:
		return vm.doOr(fr, instr, ic)
	case il.OpXor:
		return vm.doXor(fr, instr, ic)
	case il.OpFAdd:
		return vm.doFAdd(fr, instr, ic)
	case il.OpFSub:
		return vm.doFSub(fr, instr, ic)
	case il.OpFMul:
		return vm.doFMul(fr, instr, ic)
	case il.OpFDiv:
		return vm.doFDiv(fr, instr, ic)
	case il.OpSCmpLT, il.OpSCmpLE, il.OpSCmpGT, il.OpSCmpGE, il.OpSCmpEQ, il.OpSCmpNE:
		return vm.doSCmp(fr, instr, ic)
	case il.OpIcmpNe:
		return vm.doIcmpNe(fr, instr, ic)
	case il.OpZext1:
		return vm.doZext1(fr, instr, ic)
	case il.OpAlloca:
		return vm.doAlloca(fr, instr, ic)
	case il.OpLoad:
		return vm.doLoad(fr, instr, ic)
	case il.OpStore:
		return vm.doStore(fr, instr, ic)
	case il.OpPtrAdd:
		return vm.doPtrAdd(fr, instr, ic)
	case il.OpCall:
		return vm.doCall(fr, instr, ic)
	case il.OpConstStr:
		return vm.doConstStr(fr, instr, ic)
	case il.OpEhPush:
		return vm.doEhPush(fr, instr, ic)
	case il.OpEhPop:
		return vm.doEhPop(fr, instr, ic)
	case il.OpEhEntry:
		return vm.doEhEntry(fr, instr, ic)
	case il.OpBr:
		return vm.doBr(fr, instr, ic)
	case il.OpCBr:
		return vm.doCBr(fr, instr, ic)
	case il.OpSwitchI32:
		return vm.doSwitch(fr, instr, ic)
	case il.OpRet:
		return vm.doRet(fr, instr, ic)
	case il.OpTrap:
		return vm.doTrap(fr, instr, ic)
	case il.OpTrapKind:
		return vm.doTrapKind(fr, instr, ic)
	case il.OpTrapFromErr:
		return vm.doTrapFromErr(fr, instr, ic)
	case il.OpResumeSame:
		return vm.doResumeSame(fr, instr, ic)
	case il.OpResumeNext:
		return vm.doResumeNext(fr, instr, ic)
	case il.OpResumeLabel:
		return vm.doResumeLabel(fr, instr, ic)
	default:
		return trapSig(vm.trapReport(ilerrors.TRP006, "unimplemented opcode", instr))
	}
}
