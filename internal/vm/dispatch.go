package vm

import "vil/internal/ilerrors"

// DispatchMode selects how the interpreter's main loop maps an opcode to
// the code that executes it: table, switch, or threaded. All three are
// required to be observationally identical; they are built
// here as three different lookup strategies over the exact same set of
// per-opcode Go functions, so there is no way for them to diverge in
// result, only in how the handler for the current instruction is found.
type DispatchMode int

const (
	// DispatchTable looks up instr.Op in a fixed array of function
	// pointers indexed by Opcode.
	DispatchTable DispatchMode = iota
	// DispatchSwitch uses a literal Go switch over instr.Op.
	DispatchSwitch
	// DispatchThreaded binds each instruction's handler function pointer
	// into its instrExecCache entry the first time the instruction runs, so
	// every later execution pays no per-instruction opcode lookup at all
	// — the closest approximation to computed-goto tail-dispatch that Go
	// (without computed goto) can express.
	DispatchThreaded
)

func (m DispatchMode) String() string {
	switch m {
	case DispatchTable:
		return "table"
	case DispatchSwitch:
		return "switch"
	case DispatchThreaded:
		return "threaded"
	default:
		return "<invalid-dispatch-mode>"
	}
}

// ParseDispatchMode maps a CLI/config string to a DispatchMode.
func ParseDispatchMode(s string) (DispatchMode, bool) {
	switch s {
	case "table":
		return DispatchTable, true
	case "switch":
		return DispatchSwitch, true
	case "threaded":
		return DispatchThreaded, true
	default:
		return DispatchTable, false
	}
}

// sigKind is the outcome of executing one instruction.
type sigKind int

const (
	sigNext   sigKind = iota // fall through to the next instruction index
	sigBranch                // fr.Block/fr.IP already updated by the handler
	sigCall                  // a new frame was pushed; it is now the active frame
	sigReturn                // the active frame should be popped
	sigTrap                  // a trap fired; see signal.trap
	sigPause                 // a debug breakpoint or step budget fired
)

type signal struct {
	kind sigKind
	trap *ilerrors.Report
}
