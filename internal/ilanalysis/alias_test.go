package ilanalysis

import (
	"testing"

	"vil/internal/il"
)

func allocaFunc() *il.Function {
	return &il.Function{
		Name: "f",
		Blocks: []il.BasicBlock{{
			Label: "entry",
			Instrs: []il.Instr{
				{Op: il.OpAlloca, HasResultID: true, ResultID: 0, ResultType: il.Ptr, Callee: "i64"},
				{Op: il.OpAlloca, HasResultID: true, ResultID: 1, ResultType: il.Ptr, Callee: "i64"},
				{Op: il.OpRet},
			},
		}},
	}
}

func TestBasicAADistinctAllocasNeverAlias(t *testing.T) {
	f := allocaFunc()
	aa := NewBasicAA(f)
	a := il.Temp(0, "p")
	b := il.Temp(1, "q")
	if got := aa.Alias(a, b); got != NoAlias {
		t.Fatalf("expected NoAlias between distinct allocas, got %v", got)
	}
	if got := aa.Alias(a, a); got != MustAlias {
		t.Fatalf("expected MustAlias between a value and itself, got %v", got)
	}
}

func TestBasicAAUnknownPointerIsMayAlias(t *testing.T) {
	f := allocaFunc()
	aa := NewBasicAA(f)
	a := il.Temp(0, "p")
	unknown := il.Temp(99, "ptrParam")
	if got := aa.Alias(a, unknown); got != MayAlias {
		t.Fatalf("expected MayAlias when one side isn't a known site, got %v", got)
	}
}

func TestModRefOfLoadStoreCall(t *testing.T) {
	if got := ModRefOf(nil, il.Instr{Op: il.OpLoad}); got != ModRefRef {
		t.Fatalf("expected load to be ModRefRef, got %v", got)
	}
	if got := ModRefOf(nil, il.Instr{Op: il.OpStore}); got != ModRefMod {
		t.Fatalf("expected store to be ModRefMod, got %v", got)
	}
	if got := ModRefOf(nil, il.Instr{Op: il.OpCall, Callee: "unknown"}); got != ModRefModRef {
		t.Fatalf("expected an unresolvable call to be conservatively ModRefModRef, got %v", got)
	}
}

func TestModRefOfHonorsPureAndReadOnlyAttrs(t *testing.T) {
	m := il.NewModule()
	m.Functions = append(m.Functions,
		il.Function{Name: "pureFn", Attrs: il.FuncAttrs{Pure: true}},
		il.Function{Name: "roFn", Attrs: il.FuncAttrs{ReadOnly: true}},
	)
	if got := ModRefOf(m, il.Instr{Op: il.OpCall, Callee: "pureFn"}); got != ModRefNone {
		t.Fatalf("expected a pure call to be ModRefNone, got %v", got)
	}
	if got := ModRefOf(m, il.Instr{Op: il.OpCall, Callee: "roFn"}); got != ModRefRef {
		t.Fatalf("expected a readonly call to be ModRefRef, got %v", got)
	}
}
