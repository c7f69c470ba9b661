package il

// Module is the top-level IL compilation unit, owning every extern, global,
// and function by value.
//
// A Module is immutable after construction by the parser or lowerer, and
// during any single pass; passes mutate a Module then hand it back to the
// verifier before the next pass runs.
type Module struct {
	Version string
	Target  string // empty means "no target triple directive"

	Externs   []Extern
	Globals   []Global
	Functions []Function
}

// DefaultVersion is the IL spec version new modules are stamped with.
const DefaultVersion = "0.1"

// NewModule returns an empty module at DefaultVersion.
func NewModule() *Module {
	return &Module{Version: DefaultVersion}
}

// FindFunction looks up a function by name, or returns nil.
func (m *Module) FindFunction(name string) *Function {
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i]
		}
	}
	return nil
}

// FindExtern looks up an extern by name, or returns nil.
func (m *Module) FindExtern(name string) *Extern {
	for i := range m.Externs {
		if m.Externs[i].Name == name {
			return &m.Externs[i]
		}
	}
	return nil
}

// FindGlobal looks up a global by name, or returns nil.
func (m *Module) FindGlobal(name string) *Global {
	for i := range m.Globals {
		if m.Globals[i].Name == name {
			return &m.Globals[i]
		}
	}
	return nil
}

// Signature returns the (return type, parameter types) pair a caller must
// match, for either a Function or an Extern name; ok is false if neither
// exists.
func (m *Module) Signature(name string) (ret Type, params []Type, ok bool) {
	if fn := m.FindFunction(name); fn != nil {
		pts := make([]Type, len(fn.Params))
		for i, p := range fn.Params {
			pts[i] = p.Type
		}
		return fn.RetType, pts, true
	}
	if ext := m.FindExtern(name); ext != nil {
		return ext.RetType, ext.ParamTypes, true
	}
	return Void, nil, false
}

// Clone produces a deep copy of m, used by transform passes that want to
// preserve the pre-pass module for verification diffing or rollback.
func (m *Module) Clone() *Module {
	out := &Module{Version: m.Version, Target: m.Target}
	out.Externs = make([]Extern, len(m.Externs))
	for i, e := range m.Externs {
		e.ParamTypes = append([]Type(nil), e.ParamTypes...)
		out.Externs[i] = e
	}
	out.Globals = make([]Global, len(m.Globals))
	for i, g := range m.Globals {
		g.Init = append([]byte(nil), g.Init...)
		out.Globals[i] = g
	}
	out.Functions = make([]Function, len(m.Functions))
	for i, f := range m.Functions {
		out.Functions[i] = cloneFunction(f)
	}
	return out
}

func cloneFunction(f Function) Function {
	out := f
	out.Params = append([]Param(nil), f.Params...)
	out.Blocks = make([]BasicBlock, len(f.Blocks))
	for i, b := range f.Blocks {
		out.Blocks[i] = cloneBlock(b)
	}
	if f.ValueNames != nil {
		out.ValueNames = make(map[uint64]string, len(f.ValueNames))
		for k, v := range f.ValueNames {
			out.ValueNames[k] = v
		}
	}
	return out
}

func cloneBlock(b BasicBlock) BasicBlock {
	out := b
	out.Params = append([]Param(nil), b.Params...)
	out.Instrs = make([]Instr, len(b.Instrs))
	for i, in := range b.Instrs {
		ci := in
		ci.Operands = append([]Value(nil), in.Operands...)
		ci.Succs = append([]string(nil), in.Succs...)
		ci.SwitchCases = append([]int32(nil), in.SwitchCases...)
		ci.Args = make([][]Value, len(in.Args))
		for j, a := range in.Args {
			ci.Args[j] = append([]Value(nil), a...)
		}
		out.Instrs[i] = ci
	}
	return out
}
