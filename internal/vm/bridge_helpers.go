package vm

import (
	"math"

	"vil/internal/ilerrors"
)

// registerDefaultBridgeFuncs installs a small set of illustrative
// runtime-bridge helpers so a `.il` module can exercise string marshalling
// and error-to-trap conversion without a real C runtime library linked in.
func registerDefaultBridgeFuncs(b *Bridge) {
	b.Register("str_concat", bridgeStrConcat)
	b.Register("str_len", bridgeStrLen)
	b.Register("abs_i64", bridgeAbsI64)
	b.Register("sqrt_f64", bridgeSqrtF64)
}

func bridgeStrConcat(args []Slot, strs *StringTable) (Slot, *ilerrors.Report) {
	if len(args) != 2 {
		return Slot{}, ilerrors.New(ilerrors.TRP006, "str_concat expects 2 arguments")
	}
	left := strs.Get(args[0].StrHandle())
	right := strs.Get(args[1].StrHandle())
	h := strs.New(left + right)
	return StrSlot(h), nil
}

func bridgeStrLen(args []Slot, strs *StringTable) (Slot, *ilerrors.Report) {
	if len(args) != 1 {
		return Slot{}, ilerrors.New(ilerrors.TRP006, "str_len expects 1 argument")
	}
	return I64Slot(int64(len(strs.Get(args[0].StrHandle())))), nil
}

func bridgeAbsI64(args []Slot, _ *StringTable) (Slot, *ilerrors.Report) {
	if len(args) != 1 {
		return Slot{}, ilerrors.New(ilerrors.TRP006, "abs_i64 expects 1 argument")
	}
	n := args[0].I64()
	if n == math.MinInt64 {
		return Slot{}, ilerrors.New(ilerrors.TRP002, "abs_i64(INT_MIN) overflows")
	}
	if n < 0 {
		n = -n
	}
	return I64Slot(n), nil
}

func bridgeSqrtF64(args []Slot, _ *StringTable) (Slot, *ilerrors.Report) {
	if len(args) != 1 {
		return Slot{}, ilerrors.New(ilerrors.TRP006, "sqrt_f64 expects 1 argument")
	}
	f := args[0].F64()
	if f < 0 {
		return Slot{}, ilerrors.New(ilerrors.TRP006, "sqrt_f64 of a negative operand")
	}
	return F64Slot(math.Sqrt(f)), nil
}
