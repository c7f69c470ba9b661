package illink

import (
	"fmt"

	"vil/internal/il"
)

// boolMismatch reports whether an import's declared signature and its
// resolved export's actual signature disagree ONLY in i1/i64 boolean
// representation at the return type or some parameter position. ok is
// false when the signatures disagree in some other, unbridgeable way
// (arity, or a non-boolean type mismatch).
func boolMismatch(impRet il.Type, impParams []il.Type, expRet il.Type, expParams []il.Type) (needsThunk, ok bool) {
	if len(impParams) != len(expParams) {
		return false, false
	}
	for i := range impParams {
		if impParams[i] == expParams[i] {
			continue
		}
		if !isBoolPair(impParams[i], expParams[i]) {
			return false, false
		}
		needsThunk = true
	}
	if impRet != expRet {
		if !isBoolPair(impRet, expRet) {
			return false, false
		}
		needsThunk = true
	}
	return needsThunk, true
}

func isBoolPair(a, b il.Type) bool {
	return (a == il.I1 && b == il.I64) || (a == il.I64 && b == il.I1)
}

// thunkName is injective in (target, import-signature-shape): the target
// function name alone identifies the thunk, since a given exported target
// has exactly one actual signature and therefore at most one distinct
// bool-thunk shape is ever generated for it.
func thunkName(target string) string { return target + "$bool_thunk" }

// generateBoolThunk builds the internal-linkage bridge function: it is
// declared with the IMPORT's signature, converts each parameter to the
// export's actual type (i64->i1 via icmp_ne 0, i1->i64 via zext1), calls
// target, converts the return value back to the import's expected type by
// the same rule, and returns.
func generateBoolThunk(target string, impRet il.Type, impParams []il.Type, expRet il.Type, expParams []il.Type) il.Function {
	var nextID uint64
	fresh := func() uint64 {
		id := nextID
		nextID++
		return id
	}

	params := make([]il.Param, len(impParams))
	callArgs := make([]il.Value, len(impParams))
	var body []il.Instr

	for i, pt := range impParams {
		id := fresh()
		params[i] = il.Param{Name: fmt.Sprintf("p%d", i), Type: pt, ID: id}
		v := il.Temp(id, params[i].Name)
		if pt == expParams[i] {
			callArgs[i] = v
			continue
		}
		convID := fresh()
		if pt == il.I64 {
			// i64 -> i1
			body = append(body, il.Instr{
				Op: il.OpIcmpNe, HasResultID: true, ResultID: convID, ResultType: il.I1,
				Operands: []il.Value{v},
			})
		} else {
			// i1 -> i64
			body = append(body, il.Instr{
				Op: il.OpZext1, HasResultID: true, ResultID: convID, ResultType: il.I64,
				Operands: []il.Value{v},
			})
		}
		callArgs[i] = il.Temp(convID, "")
	}

	call := il.Instr{Op: il.OpCall, Callee: target, Operands: callArgs}
	var callResult il.Value
	if expRet != il.Void {
		call.HasResultID = true
		call.ResultID = fresh()
		call.ResultType = expRet
		callResult = il.Temp(call.ResultID, "")
	}
	body = append(body, call)

	ret := il.Instr{Op: il.OpRet}
	if impRet != il.Void {
		retVal := callResult
		if impRet != expRet {
			convID := fresh()
			if impRet == il.I64 {
				// export returned i1, import expects i64
				body = append(body, il.Instr{
					Op: il.OpZext1, HasResultID: true, ResultID: convID, ResultType: il.I64,
					Operands: []il.Value{callResult},
				})
			} else {
				// export returned i64, import expects i1
				body = append(body, il.Instr{
					Op: il.OpIcmpNe, HasResultID: true, ResultID: convID, ResultType: il.I1,
					Operands: []il.Value{callResult},
				})
			}
			retVal = il.Temp(convID, "")
		}
		ret.Operands = []il.Value{retVal}
	}
	body = append(body, ret)

	return il.Function{
		Name:    thunkName(target),
		Linkage: il.Internal,
		RetType: impRet,
		Params:  params,
		Blocks:  []il.BasicBlock{{Label: "entry", Instrs: body}},
	}
}
