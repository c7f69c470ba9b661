package vm

import "vil/internal/ilerrors"

// BridgeFunc is one C-ABI runtime-bridge entry point: it receives its
// already-marshalled argument slots and the owning VM's string table (for
// functions that take or return str values) and returns either a result
// slot or a trap report. There is no capability gate here — bridge dispatch
// is unconditional — only marshalling and trap conversion.
type BridgeFunc func(args []Slot, strs *StringTable) (Slot, *ilerrors.Report)

// Bridge is the registry of C-ABI runtime helpers reachable from `call`
// instructions targeting an extern declaration. It is built once per VM and
// read-only afterward; scoping it per-VM rather than process-wide lets
// tests construct independent VMs with independent bridges.
type Bridge struct {
	funcs map[string]BridgeFunc
}

// NewBridge returns a Bridge pre-populated with a minimal set of
// illustrative C runtime helpers, enough to exercise the bridge and
// trap-conversion path end to end: str_concat, str_len, abs_i64, sqrt_f64.
func NewBridge() *Bridge {
	b := &Bridge{funcs: map[string]BridgeFunc{}}
	registerDefaultBridgeFuncs(b)
	return b
}

// Register installs or replaces the handler for an extern name. Embedders
// (or tests standing in for a real C runtime) use this to extend the
// bridge beyond the illustrative defaults.
func (b *Bridge) Register(name string, fn BridgeFunc) {
	b.funcs[name] = fn
}

// Call dispatches name with args, converting an unknown callee or a
// helper-reported error into a trap Report tagged with the calling function
// and block. The bridge never panics.
func (b *Bridge) Call(name string, args []Slot, strs *StringTable, fnName, blockLabel string) (Slot, *ilerrors.Report) {
	fn, ok := b.funcs[name]
	if !ok {
		return Slot{}, ilerrors.New(ilerrors.TRP006, "unknown runtime-bridge function "+name).WithFunc(fnName, blockLabel)
	}
	res, rep := fn(args, strs)
	if rep != nil {
		rep = rep.WithFunc(fnName, blockLabel)
	}
	return res, rep
}
