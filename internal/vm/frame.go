package vm

import "vil/internal/il"

// handlerEntry is one entry on a frame's EH handler stack: the label of the
// handler block `eh.push` named.
type handlerEntry struct {
	label string
}

// Frame is one in-flight call activation, stacked in the VM's explicit,
// pooled execution-stack vector. Registers are a flat array indexed by SSA
// id rather than a chained lexical environment, since IL has no nested
// scoping — every temporary's liveness is already resolved by its unique
// id.
type Frame struct {
	Fn *il.Function

	// Regs is indexed by SSA id (dense, starting at 0 within a function —
	// see ilfmt's funcState.resolve). Pooled and reused across calls.
	Regs []Slot

	// Block is the index into Fn.Blocks of the currently executing block.
	Block int
	// IP is the index of the next instruction to execute within Block.
	IP int

	// Staged holds block-parameter values copied from a taken branch's
	// argument list, transferred into Regs as the first action on entering
	// the successor block, then cleared.
	Staged []Slot

	// Handlers is this frame's EH handler stack; eh.push/eh.pop push and
	// pop entries here.
	Handlers []handlerEntry

	// CallResultReg is the register index in the CALLER's frame that
	// should receive this frame's return value, or -1 if the call had no
	// result binding (void callee, or a call whose result is discarded —
	// the IL data model never omits HasResultID for a non-void call, so
	// this is -1 exactly when the callee's return type is void).
	CallResultReg int

	retVal    Slot
	hasRetVal bool
}

func newFrame(fn *il.Function, numRegs int) *Frame {
	return &Frame{
		Fn:            fn,
		Regs:          make([]Slot, numRegs),
		Block:         0,
		IP:            0,
		CallResultReg: -1,
	}
}

func (f *Frame) reset(fn *il.Function, numRegs int) {
	f.Fn = fn
	if cap(f.Regs) < numRegs {
		f.Regs = make([]Slot, numRegs)
	} else {
		f.Regs = f.Regs[:numRegs]
		for i := range f.Regs {
			f.Regs[i] = Slot{}
		}
	}
	f.Block = 0
	f.IP = 0
	f.Staged = f.Staged[:0]
	f.Handlers = f.Handlers[:0]
	f.CallResultReg = -1
	f.retVal = Slot{}
	f.hasRetVal = false
}

func (f *Frame) currentBlock() *il.BasicBlock { return &f.Fn.Blocks[f.Block] }

// pushHandler records a new innermost EH handler.
func (f *Frame) pushHandler(label string) { f.Handlers = append(f.Handlers, handlerEntry{label: label}) }

// popHandler removes the innermost EH handler.
func (f *Frame) popHandler() {
	if len(f.Handlers) > 0 {
		f.Handlers = f.Handlers[:len(f.Handlers)-1]
	}
}

// topHandler returns the innermost active handler's block label, or "" if
// none is registered in this frame.
func (f *Frame) topHandler() (string, bool) {
	if len(f.Handlers) == 0 {
		return "", false
	}
	h := f.Handlers[len(f.Handlers)-1]
	return h.label, true
}
