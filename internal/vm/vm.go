package vm

import (
	"vil/internal/il"
	"vil/internal/ilerrors"
)

// TraceSink receives one notification per executed instruction; see
// trace.go for the IL-mode and source-mode implementations.
type TraceSink interface {
	Trace(fn *il.Function, block *il.BasicBlock, instr *il.Instr, fr *Frame)
}

// DebugController decides whether execution should pause before a given
// instruction; see debug.go for the breakpoint/step-budget implementation.
type DebugController interface {
	ShouldBreak(fn *il.Function, block *il.BasicBlock, instr *il.Instr) bool
}

// VM is one interpreter instance: a module, its runtime bridge, and all the
// mutable execution state a Run needs. A VM is not safe for concurrent Runs;
// callers that need parallelism construct one VM per goroutine over the
// same (immutable) Module.
type VM struct {
	mod    *il.Module
	bridge *Bridge
	limits Limits

	strings *StringTable
	mem     *Memory
	errors  *errorTable

	execCache *execCache
	pool      *framePool
	stack     []*Frame

	globalAddr map[string]uint64

	resumeTokens []resumeTokenInfo

	dispatch DispatchMode
	trace    TraceSink
	debug    DebugController

	// Cancel, when non-nil, is polled every limits.InterruptPeriod
	// instructions, giving an embedder a cooperative cancellation
	// checkpoint without needing to interrupt execution mid-instruction.
	Cancel func() bool

	// MaxSteps bounds total executed instructions across a Run; zero means
	// unbounded. Distinct from limits.InterruptPeriod, which only controls
	// how often Cancel is polled.
	MaxSteps int

	stepCount int

	// resumeSkipBreak suppresses one ShouldBreak check immediately after
	// Resume, so resuming from a label/source-line breakpoint doesn't
	// re-trigger on the very same instruction it just paused at.
	resumeSkipBreak bool
}

// NewVM constructs a VM over mod with the given runtime bridge and resource
// limits. Construction eagerly interns every const_str literal appearing
// anywhere in mod and materializes every Global's initializer bytes into
// the memory arena, so first execution of any block never pays an
// allocation for a literal it references.
func NewVM(mod *il.Module, bridge *Bridge, limits Limits, dispatch DispatchMode) *VM {
	vm := &VM{
		mod:        mod,
		bridge:     bridge,
		limits:     limits,
		strings:    newStringTable(),
		mem:        newMemory(),
		errors:     &errorTable{},
		execCache:  newExecCache(),
		pool:       newFramePool(limits.StackPoolSize),
		globalAddr: map[string]uint64{},
		dispatch:   dispatch,
	}
	vm.internLiterals()
	vm.materializeGlobals()
	return vm
}

func (vm *VM) internLiterals() {
	for _, fn := range vm.mod.Functions {
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				for _, op := range instr.Operands {
					if op.Kind == il.VConstStr {
						vm.strings.Intern(op.ConstStr)
					}
				}
				for _, argList := range instr.Args {
					for _, v := range argList {
						if v.Kind == il.VConstStr {
							vm.strings.Intern(v.ConstStr)
						}
					}
				}
			}
		}
	}
}

func (vm *VM) materializeGlobals() {
	for _, g := range vm.mod.Globals {
		addr := vm.mem.Alloc(len(g.Init))
		if len(g.Init) > 0 {
			vm.mem.StoreBytes(addr, g.Init)
		}
		vm.globalAddr[g.Name] = addr
	}
}

// SetTrace installs a trace sink; nil disables tracing.
func (vm *VM) SetTrace(t TraceSink) { vm.trace = t }

// SetDebug installs a debug controller; nil disables breakpoints.
func (vm *VM) SetDebug(d DebugController) { vm.debug = d }

// CurrentFrame returns the innermost active Frame, or nil if the VM is not
// mid-run (used by debugconsole's "print"/"bt" commands between pauses).
func (vm *VM) CurrentFrame() *Frame { return vm.top() }

// StackDepth returns the number of frames currently on the execution stack.
func (vm *VM) StackDepth() int { return len(vm.stack) }

// FrameAt returns the frame at depth i, 0 being the innermost (most
// recently called), or nil if i is out of range.
func (vm *VM) FrameAt(i int) *Frame {
	n := len(vm.stack)
	if i < 0 || i >= n {
		return nil
	}
	return vm.stack[n-1-i]
}

func (vm *VM) top() *Frame {
	if len(vm.stack) == 0 {
		return nil
	}
	return vm.stack[len(vm.stack)-1]
}

func (vm *VM) popFrame() *Frame {
	n := len(vm.stack) - 1
	fr := vm.stack[n]
	vm.stack = vm.stack[:n]
	vm.pool.Put(fr)
	return fr
}

func (vm *VM) resumeTok(s Slot) *resumeTokenInfo {
	addr := s.Addr()
	if addr == 0 || int(addr) > len(vm.resumeTokens) {
		return nil
	}
	return &vm.resumeTokens[addr-1]
}

// Run executes entryFn from its first block with args bound to its
// parameters, driving the main loop with vm.dispatch, until the call stack
// empties (normal return), a trap goes unhandled, or a breakpoint/step
// budget pauses execution.
func (vm *VM) Run(entryFn string, args []Slot) (Slot, *ilerrors.Report) {
	fn := vm.mod.FindFunction(entryFn)
	if fn == nil {
		return Slot{}, ilerrors.New(ilerrors.TRP006, "no such function @"+entryFn)
	}
	if fn.Linkage == il.Import {
		return Slot{}, ilerrors.New(ilerrors.TRP006, "entry function @"+entryFn+" is an unresolved import")
	}

	info := vm.execCache.get(fn)
	fr := vm.pool.Get(fn, info.numRegs)
	for i, p := range fn.Params {
		if i < len(args) {
			fr.Regs[p.ID] = args[i]
		}
	}
	vm.stack = append(vm.stack, fr)

	return vm.loop()
}

// Resume continues execution from a prior pause (breakpoint or step
// budget), reusing the execution stack exactly as Run left it. Calling
// Resume with an empty stack (no prior Run, or a Run that already
// completed) returns immediately with a zero Slot and no error.
func (vm *VM) Resume() (Slot, *ilerrors.Report) {
	vm.resumeSkipBreak = true
	return vm.loop()
}

func (vm *VM) loop() (Slot, *ilerrors.Report) {
	for {
		cur := vm.top()
		if cur == nil {
			return Slot{}, nil
		}

		vm.stepCount++
		if vm.MaxSteps > 0 && vm.stepCount > vm.MaxSteps {
			return PauseSlot(), ilerrors.New(ilerrors.DBG001, "step budget exhausted").WithFunc(cur.Fn.Name, cur.currentBlock().Label)
		}
		if vm.Cancel != nil && vm.limits.InterruptPeriod > 0 && vm.stepCount%vm.limits.InterruptPeriod == 0 {
			if vm.Cancel() {
				return PauseSlot(), ilerrors.New(ilerrors.DBG001, "cancelled at interrupt checkpoint").WithFunc(cur.Fn.Name, cur.currentBlock().Label)
			}
		}

		block := cur.currentBlock()
		instr := &block.Instrs[cur.IP]

		if vm.resumeSkipBreak {
			vm.resumeSkipBreak = false
		} else if vm.debug != nil && vm.debug.ShouldBreak(cur.Fn, block, instr) {
			return PauseSlot(), ilerrors.New(ilerrors.DBG001, "breakpoint").WithFunc(cur.Fn.Name, block.Label)
		}
		if vm.trace != nil {
			vm.trace.Trace(cur.Fn, block, instr, cur)
		}

		ic := &vm.execCache.get(cur.Fn).blocks[cur.Block].instrs[cur.IP]
		sig := vm.dispatchOne(cur, instr, ic)

		switch sig.kind {
		case sigNext:
			cur.IP++
		case sigBranch, sigCall:
			// handler already repositioned fr.Block/IP, or pushed a new frame
		case sigReturn:
			callee := vm.popFrame()
			caller := vm.top()
			if caller == nil {
				if callee.hasRetVal {
					return callee.retVal, nil
				}
				return Slot{}, nil
			}
			if callee.CallResultReg >= 0 && callee.hasRetVal {
				caller.Regs[callee.CallResultReg] = callee.retVal
			}
			caller.IP++
		case sigPause:
			return PauseSlot(), ilerrors.New(ilerrors.DBG001, "pause").WithFunc(cur.Fn.Name, block.Label)
		case sigTrap:
			res, rep, unhandled := vm.unwind(sig.trap)
			if unhandled {
				return res, rep
			}
		}
	}
}

// dispatchOne executes one instruction using the VM's configured dispatch
// strategy. All three strategies call into the exact same opHandler
// functions; only how that function is found differs.
func (vm *VM) dispatchOne(fr *Frame, instr *il.Instr, ic *instrExecCache) signal {
	switch vm.dispatch {
	case DispatchThreaded:
		if ic.handler == nil {
			ic.handler = opTable[instr.Op]
		}
		if ic.handler == nil {
			return trapSig(vm.trapReport(ilerrors.TRP006, "unimplemented opcode", instr))
		}
		return ic.handler(vm, fr, instr, ic)
	case DispatchSwitch:
		return vm.execSwitch(fr, instr, ic)
	default: // DispatchTable
		h := opTable[instr.Op]
		if h == nil {
			return trapSig(vm.trapReport(ilerrors.TRP006, "unimplemented opcode", instr))
		}
		return h(vm, fr, instr, ic)
	}
}

// unwind searches the call stack, innermost frame first, for an active EH
// handler, popping frames with no handler registered as it goes. It
// materializes the trap as an error Slot plus a resume_tok Slot and stages
// them as the handler block's parameter prefix. unhandled is true when no
// frame on the
// stack has an active handler, in which case res/rep are the final
// diagnostic to return from Run.
func (vm *VM) unwind(rep *ilerrors.Report) (res Slot, out *ilerrors.Report, unhandled bool) {
	errAddr := vm.errors.store(rep)
	for len(vm.stack) > 0 {
		fr := vm.top()
		label, ok := fr.topHandler()
		if !ok {
			vm.popFrame()
			continue
		}
		fr.popHandler()

		blockIdx := -1
		for i := range fr.Fn.Blocks {
			if fr.Fn.Blocks[i].Label == label {
				blockIdx = i
				break
			}
		}
		if blockIdx < 0 {
			return Slot{}, rep, true
		}

		tokAddr := uint64(len(vm.resumeTokens) + 1)
		vm.resumeTokens = append(vm.resumeTokens, resumeTokenInfo{frame: fr, block: fr.Block, instr: fr.IP})

		fr.Block = blockIdx
		fr.IP = 0
		params := fr.Fn.Blocks[blockIdx].Params
		if len(params) >= 2 {
			fr.Regs[params[0].ID] = AddrSlot(errAddr)
			fr.Regs[params[1].ID] = AddrSlot(tokAddr)
		}
		return Slot{}, nil, false
	}
	return Slot{}, rep, true
}
