package il

// Opcode enumerates every instruction kind the core understands: the
// checked-arithmetic, bitwise, comparison, control-flow, and exception-
// handling operations the language surfaces, plus the minimal memory/cast
// vocabulary (Load/Store/Alloca/PtrAdd/Zext1) needed to make them executable.
type Opcode int

const (
	OpInvalid Opcode = iota

	// Arithmetic — checked (traps on overflow; ConstFold refuses to fold
	// through an overflow so the trap still happens at run time).
	OpIAddOvf
	OpISubOvf
	OpIMulOvf
	OpSDivChk0 // traps DivideByZero and signed-min/-1 overflow
	OpSRemChk0

	// Bitwise / logical, unchecked.
	OpAnd
	OpOr
	OpXor

	// Floating point, unchecked (IEEE-754 semantics).
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv

	// Comparisons, all produce i1.
	OpSCmpLT
	OpSCmpLE
	OpSCmpGT
	OpSCmpGE
	OpSCmpEQ
	OpSCmpNE
	OpIcmpNe // operand vs 0 — used directly by the linker's i64→i1 bool thunk

	// Casts.
	OpZext1 // i1 → i64 zero-extend — used by the linker's i1→i64 bool thunk

	// Memory.
	OpAlloca
	OpLoad
	OpStore
	OpPtrAdd // ptr + i64 byte offset, bounds-checked by the VM at access time

	// Calls and string literals.
	OpCall
	OpConstStr

	// Exception handling (non-terminator bookkeeping).
	OpEhPush
	OpEhPop
	OpEhEntry

	// Terminators.
	OpBr
	OpCBr
	OpSwitchI32
	OpRet
	OpTrap
	OpTrapKind
	OpTrapFromErr
	OpResumeSame
	OpResumeNext
	OpResumeLabel
)

var opcodeNames = map[Opcode]string{
	OpIAddOvf: "iadd.ovf", OpISubOvf: "isub.ovf", OpIMulOvf: "imul.ovf",
	OpSDivChk0: "sdiv.chk0", OpSRemChk0: "srem.chk0",
	OpAnd: "and", OpOr: "or", OpXor: "xor",
	OpFAdd: "fadd", OpFSub: "fsub", OpFMul: "fmul", OpFDiv: "fdiv",
	OpSCmpLT: "scmp_lt", OpSCmpLE: "scmp_le", OpSCmpGT: "scmp_gt",
	OpSCmpGE: "scmp_ge", OpSCmpEQ: "scmp_eq", OpSCmpNE: "scmp_ne",
	OpIcmpNe: "icmp_ne", OpZext1: "zext1",
	OpAlloca: "alloca", OpLoad: "load", OpStore: "store", OpPtrAdd: "ptr_add",
	OpCall: "call", OpConstStr: "const_str",
	OpEhPush: "eh.push", OpEhPop: "eh.pop", OpEhEntry: "eh.entry",
	OpBr: "br", OpCBr: "cbr", OpSwitchI32: "switch.i32", OpRet: "ret",
	OpTrap: "trap", OpTrapKind: "trap.kind", OpTrapFromErr: "trap.from_err",
	OpResumeSame: "resume.same", OpResumeNext: "resume.next", OpResumeLabel: "resume.label",
}

var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		m[name] = op
	}
	return m
}()

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "<invalid-opcode>"
}

// ParseOpcode maps an IL-text mnemonic to its Opcode.
func ParseOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

// IsTerminator reports whether op may only appear as a block's last
// instruction. Terminators never bind a result id.
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpBr, OpCBr, OpSwitchI32, OpRet, OpTrap, OpTrapKind, OpTrapFromErr,
		OpResumeSame, OpResumeNext, OpResumeLabel:
		return true
	default:
		return false
	}
}

// HasResult reports whether op produces a value bound to a result SSA id.
func (op Opcode) HasResult() bool {
	if op.IsTerminator() {
		return false
	}
	switch op {
	case OpStore, OpEhPush, OpEhPop, OpEhEntry:
		return false
	default:
		return true
	}
}

// DefaultResultType returns the result type implied purely by the opcode,
// independent of operands — used by the serializer to elide a type
// annotation whenever it would just repeat the opcode's default.
func (op Opcode) DefaultResultType() (Type, bool) {
	switch op {
	case OpIAddOvf, OpISubOvf, OpIMulOvf, OpSDivChk0, OpSRemChk0, OpAnd, OpOr, OpXor:
		return I64, true
	case OpFAdd, OpFSub, OpFMul, OpFDiv:
		return F64, true
	case OpSCmpLT, OpSCmpLE, OpSCmpGT, OpSCmpGE, OpSCmpEQ, OpSCmpNE, OpIcmpNe:
		return I1, true
	case OpZext1:
		return I64, true
	case OpAlloca, OpPtrAdd:
		return Ptr, true
	case OpConstStr:
		return Str, true
	default:
		return Void, false
	}
}

// IsOverflowChecked reports whether op traps instead of wrapping on
// overflow — constant folding must preserve this, never folding an
// operation whose result would have trapped at run time.
func (op Opcode) IsOverflowChecked() bool {
	switch op {
	case OpIAddOvf, OpISubOvf, OpIMulOvf, OpSDivChk0, OpSRemChk0:
		return true
	default:
		return false
	}
}

// IsCommutative reports whether operand order does not affect the result,
// used by the peephole pass to match constant-operand rules on either side.
func (op Opcode) IsCommutative() bool {
	switch op {
	case OpIAddOvf, OpIMulOvf, OpAnd, OpOr, OpXor, OpFAdd, OpFMul, OpSCmpEQ, OpSCmpNE:
		return true
	default:
		return false
	}
}
