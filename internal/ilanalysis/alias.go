package ilanalysis

import (
	"strconv"

	"vil/internal/il"
)

// ModRef classifies how an instruction may interact with memory, the
// granularity DSE and other memory-sensitive transforms need.
type ModRef int

const (
	ModRefNone ModRef = iota
	ModRefRef         // may read memory
	ModRefMod         // may write memory
	ModRefModRef      // may read and write memory
)

// AliasResult classifies whether two pointer-producing values can ever
// refer to overlapping storage.
type AliasResult int

const (
	NoAlias AliasResult = iota
	MayAlias
	MustAlias
)

// BasicAA is a flow-insensitive alias classifier: distinct alloca sites
// never alias each other or any global, and a pointer only aliases itself
// trivially (MustAlias). Everything else is conservatively MayAlias. Stack
// slots and globals are disjoint unless they're identical — the cheapest
// sound approximation that still lets DSE eliminate same-slot dead stores.
type BasicAA struct {
	allocaOf map[uint64]string // temp id of an alloca result -> a synthetic site name
}

// NewBasicAA builds an alias analysis for f by recording each alloca's
// result id as its own distinct site.
func NewBasicAA(f *il.Function) *BasicAA {
	aa := &BasicAA{allocaOf: map[uint64]string{}}
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == il.OpAlloca && instr.HasResultID {
				aa.allocaOf[instr.ResultID] = "alloca#" + strconv.FormatUint(instr.ResultID, 10)
			}
		}
	}
	return aa
}

func (aa *BasicAA) siteOf(v il.Value) (string, bool) {
	switch v.Kind {
	case il.VTemp:
		if site, ok := aa.allocaOf[v.TempID]; ok {
			// Each alloca result id is itself a distinct site.
			return site, true
		}
		return "", false
	case il.VGlobal:
		return "global#" + v.Global, true
	default:
		return "", false
	}
}

// Alias classifies the relationship between two pointer values.
func (aa *BasicAA) Alias(a, b il.Value) AliasResult {
	siteA, okA := aa.siteOf(a)
	siteB, okB := aa.siteOf(b)
	if !okA || !okB {
		return MayAlias
	}
	if siteA == siteB {
		return MustAlias
	}
	return NoAlias
}

// ModRefOf classifies an instruction's memory effect, consulted by DSE to
// decide whether an intervening instruction can observe or clobber a
// pending store. mod may be nil, in which case a call is classified
// conservatively (ModRefModRef); when non-nil, the callee's attribute
// bundle refines the result: readonly means Ref only, pure means neither,
// anything else means both.
func ModRefOf(mod *il.Module, instr il.Instr) ModRef {
	switch instr.Op {
	case il.OpLoad:
		return ModRefRef
	case il.OpStore:
		return ModRefMod
	case il.OpCall:
		attrs, ok := calleeAttrs(mod, instr.Callee)
		if !ok {
			return ModRefModRef
		}
		switch {
		case attrs.Pure:
			return ModRefNone
		case attrs.ReadOnly:
			return ModRefRef
		default:
			return ModRefModRef
		}
	default:
		return ModRefNone
	}
}

func calleeAttrs(mod *il.Module, name string) (il.FuncAttrs, bool) {
	if mod == nil {
		return il.FuncAttrs{}, false
	}
	if fn := mod.FindFunction(name); fn != nil {
		return fn.Attrs, true
	}
	if ext := mod.FindExtern(name); ext != nil {
		return ext.Attrs, true
	}
	return il.FuncAttrs{}, false
}
