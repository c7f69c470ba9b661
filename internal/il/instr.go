package il

import "vil/internal/ilerrors"

// Instr is one instruction: an opcode, its operands, an optional result
// binding, and — for terminators — its successor edges.
type Instr struct {
	Op Opcode

	HasResultID bool
	ResultID    uint64
	ResultName  string // diagnostic name, "" if unnamed
	ResultType  Type

	Operands []Value

	// Callee is set for OpCall: the name of the called function or extern.
	Callee string

	// Succs holds successor block labels, in the order the opcode defines
	// them (e.g. cbr: [then, else]; switch.i32: [default, case0, case1, ...]).
	Succs []string

	// Args holds one branch-argument list per entry in Succs, supplying the
	// values bound to the successor's block parameters on that edge. This is
	// how a value flows into a block-parameter instead of through a phi node.
	Args [][]Value

	// SwitchCases holds the constant i32 values matched by each non-default
	// successor in Succs[1:], in order, when Op == OpSwitchI32.
	SwitchCases []int32

	// HandlerLabel names the handler block pushed by eh.push.
	HandlerLabel string

	// ResumeTok is the resume_tok operand consumed by resume.* terminators.
	ResumeTok Value

	// ResumeTarget is the ^target label for resume.label.
	ResumeTarget string

	Loc ilerrors.SourceLoc // optional, zero value means "no location"
}

// Result returns a Value referencing this instruction's result, usable as an
// operand by later instructions.
func (i *Instr) Result() Value {
	return Temp(i.ResultID, i.ResultName)
}
