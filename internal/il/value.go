package il

import "fmt"

// ValueKind tags the union held by Value: a kind enum plus payload fields
// instead of a type hierarchy, specialized to the five shapes an instruction
// operand can take.
type ValueKind int

const (
	// VTemp is a reference to a temporary (SSA id) defined earlier in the
	// same function, or a block/function parameter.
	VTemp ValueKind = iota
	VConstInt
	VConstFloat
	VConstStr
	VGlobal
	VNull
)

// Value is an instruction operand: a tagged union of temporary reference or
// literal. Only one payload field is meaningful per Kind.
type Value struct {
	Kind ValueKind

	TempID   uint64 // VTemp
	TempName string // optional diagnostic name for TempID, "" if unnamed

	ConstInt int64   // VConstInt — interpreted per the operand's static Type
	ConstF   float64 // VConstFloat
	ConstStr string  // VConstStr — raw bytes, embedded NULs preserved

	Global string // VGlobal — referenced global's name
}

func Temp(id uint64, name string) Value { return Value{Kind: VTemp, TempID: id, TempName: name} }
func ConstI(v int64) Value              { return Value{Kind: VConstInt, ConstInt: v} }
func ConstF(v float64) Value            { return Value{Kind: VConstFloat, ConstF: v} }
func ConstStr(s string) Value           { return Value{Kind: VConstStr, ConstStr: s} }
func GlobalRef(name string) Value       { return Value{Kind: VGlobal, Global: name} }
func Null() Value                       { return Value{Kind: VNull} }

// IsConst reports whether v is a compile-time literal (not a temporary or
// global reference) — the condition constant folding and peephole
// simplification gate on.
func (v Value) IsConst() bool {
	return v.Kind == VConstInt || v.Kind == VConstFloat || v.Kind == VConstStr || v.Kind == VNull
}

func (v Value) String() string {
	switch v.Kind {
	case VTemp:
		if v.TempName != "" {
			return "%" + v.TempName
		}
		return fmt.Sprintf("%%t%d", v.TempID)
	case VConstInt:
		return fmt.Sprintf("%d", v.ConstInt)
	case VConstFloat:
		return formatFloat(v.ConstF)
	case VConstStr:
		return quoteString(v.ConstStr)
	case VGlobal:
		return "@" + v.Global
	case VNull:
		return "null"
	default:
		return "<invalid-value>"
	}
}
