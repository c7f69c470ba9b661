package il

// Linkage is the tri-state cross-module visibility attribute on functions
// and globals: internal (private, the default), export (defined here and
// visible to the linker), or import (declared here, resolved by the linker
// against an export or internal symbol in another module).
type Linkage int

const (
	Internal Linkage = iota // private, default, not printed in text form
	Export
	Import
)

func (l Linkage) String() string {
	switch l {
	case Internal:
		return "internal"
	case Export:
		return "export"
	case Import:
		return "import"
	default:
		return "<invalid-linkage>"
	}
}

// Function is an IL function definition: name, linkage, signature, and body.
type Function struct {
	Name    string
	Linkage Linkage
	RetType Type
	Params  []Param
	Blocks  []BasicBlock

	// ValueNames maps an SSA id to its source-level name for diagnostics;
	// absent entries mean the temporary is unnamed. Preserved through
	// serialize/parse round-trips so a named temporary keeps its name.
	ValueNames map[uint64]string

	Attrs FuncAttrs
}

// IsDefined reports whether the function owns a body (non-import).
func (f *Function) IsDefined() bool { return f.Linkage != Import }

// Block looks up a block by label, or returns nil.
func (f *Function) Block(label string) *BasicBlock {
	for i := range f.Blocks {
		if f.Blocks[i].Label == label {
			return &f.Blocks[i]
		}
	}
	return nil
}

// Entry returns the function's entry block (its first block), or nil for an
// import with no body.
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return &f.Blocks[0]
}

// Extern is a declared external (runtime-bridge) function signature.
type Extern struct {
	Name       string
	RetType    Type
	ParamTypes []Type
	Attrs      FuncAttrs
}

// SignatureEquals compares two signatures at kind level (return type and
// parameter type list). This is the granularity the linker's extern-merge
// rule uses: two externs with the same name may disagree on attributes
// without being treated as a conflict.
func (e Extern) SignatureEquals(o Extern) bool {
	if e.RetType != o.RetType || len(e.ParamTypes) != len(o.ParamTypes) {
		return false
	}
	for i := range e.ParamTypes {
		if e.ParamTypes[i] != o.ParamTypes[i] {
			return false
		}
	}
	return true
}

// Global is a module-scope constant or variable declaration.
type Global struct {
	Name    string
	Type    Type
	Linkage Linkage // Internal or Export only; globals are never Import
	Init    []byte  // initializer bytes, may be empty
}
