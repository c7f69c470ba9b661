package iltransform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vil/internal/il"
	"vil/internal/ilanalysis"
	"vil/internal/ilfmt"
)

// An iadd.ovf whose constant operands would overflow must be left unfolded,
// so the VM's own overflow trap still fires at runtime instead of being
// silently replaced by a folded constant.
const overflowSample = `il 0.1
target "x86_64-linux"
func @f() -> i64 {
entry:
  %x = iadd.ovf 9223372036854775807, 1
  ret %x
}
`

func TestConstFoldRefusesOverflowingAdd(t *testing.T) {
	m, err := ilfmt.Parse([]byte(overflowSample), "sample.il")
	require.NoError(t, err)
	fn := m.FindFunction("f")
	am := ilanalysis.NewManager()
	cf := &ConstFold{}
	changed := cf.Run(fn, am)
	require.False(t, changed, "expected no fold, ConstFold reported a change")
	entry := fn.Block("entry")
	require.Lenf(t, entry.Instrs, 2, "expected iadd.ovf left in place, got %+v", entry.Instrs)
	require.Equal(t, il.OpIAddOvf, entry.Instrs[0].Op, "expected iadd.ovf untouched")
}

const foldableSample = `il 0.1
target "x86_64-linux"
func @f() -> i64 {
entry:
  %a = iadd.ovf 2, 3
  %b = imul.ovf %a, 10
  ret %b
}
`

func TestConstFoldThreadsThroughUses(t *testing.T) {
	m, err := ilfmt.Parse([]byte(foldableSample), "sample.il")
	require.NoError(t, err)
	fn := m.FindFunction("f")
	am := ilanalysis.NewManager()
	cf := &ConstFold{}
	require.True(t, cf.Run(fn, am), "expected a fold")
	entry := fn.Block("entry")
	require.Lenf(t, entry.Instrs, 1, "expected the iadd and imul folded away, got %+v", entry.Instrs)
	ret := entry.Instrs[0]
	require.Equal(t, il.OpRet, ret.Op)
	require.Equal(t, il.VConstInt, ret.Operands[0].Kind)
	require.EqualValues(t, 50, ret.Operands[0].ConstInt, "expected ret 50")
}

const divByZeroSample = `il 0.1
target "x86_64-linux"
func @f() -> i64 {
entry:
  %x = sdiv.chk0 7, 0
  ret %x
}
`

func TestConstFoldRefusesDivideByZero(t *testing.T) {
	m, err := ilfmt.Parse([]byte(divByZeroSample), "sample.il")
	require.NoError(t, err)
	fn := m.FindFunction("f")
	am := ilanalysis.NewManager()
	cf := &ConstFold{}
	require.False(t, cf.Run(fn, am), "expected no fold for divide by zero")
	require.Equal(t, il.OpSDivChk0, fn.Block("entry").Instrs[0].Op, "expected sdiv.chk0 left in place")
}

const intrinsicSample = `il 0.1
target "x86_64-linux"
func @f() -> i64 {
entry:
  %x = call @abs_i64(-9223372036854775808)
  ret %x
}
`

func TestConstFoldRefusesAbsIntMin(t *testing.T) {
	m, err := ilfmt.Parse([]byte(intrinsicSample), "sample.il")
	require.NoError(t, err)
	fn := m.FindFunction("f")
	am := ilanalysis.NewManager()
	cf := &ConstFold{}
	require.False(t, cf.Run(fn, am), "expected abs_i64(INT_MIN) to stay unfolded")
}
