package vm

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"vil/internal/ilerrors"
	"vil/internal/ilfmt"
)

// A loop summing 0+1+2, driven entirely by block-parameters/branch-arguments
// (no phi nodes). Checked under all three dispatch modes, which must agree.
const s1Sample = `il 0.1
target "x86_64-linux"
func @main() -> i64 {
entry:
  br loop(0, 0)
loop(sum: i64, i: i64):
  %c = scmp_lt %i, 3
  cbr %c, body(%sum, %i), done(%sum)
body(s: i64, k: i64):
  %s2 = iadd.ovf %s, %k
  %k2 = iadd.ovf %k, 1
  br loop(%s2, %k2)
done(r: i64):
  ret %r
}
`

func TestS1ArithmeticAndControlFlow(t *testing.T) {
	for _, mode := range []DispatchMode{DispatchTable, DispatchSwitch, DispatchThreaded} {
		t.Run(mode.String(), func(t *testing.T) {
			m, err := ilfmt.Parse([]byte(s1Sample), "s1.il")
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			v := NewVM(m, NewBridge(), DefaultLimits(), mode)
			res, rep := v.Run("main", nil)
			if rep != nil {
				t.Fatalf("unexpected trap: %+v", rep)
			}
			if res.I64() != 3 {
				t.Fatalf("expected 3, got %d", res.I64())
			}
		})
	}
}

// The three dispatch strategies must agree instruction for instruction,
// not just on the final result: the IL-mode traces of a full run are
// compared byte for byte.
func TestDispatchModesProduceIdenticalTraces(t *testing.T) {
	traces := map[string]string{}
	for _, mode := range []DispatchMode{DispatchTable, DispatchSwitch, DispatchThreaded} {
		m, err := ilfmt.Parse([]byte(s1Sample), "s1.il")
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		var buf bytes.Buffer
		sink := NewILTrace(&buf)
		sink.NoColor = true
		v := NewVM(m, NewBridge(), DefaultLimits(), mode)
		v.SetTrace(sink)
		if _, rep := v.Run("main", nil); rep != nil {
			t.Fatalf("%s: unexpected trap: %+v", mode, rep)
		}
		traces[mode.String()] = buf.String()
	}
	if diff := cmp.Diff(traces["table"], traces["switch"]); diff != "" {
		t.Fatalf("table and switch traces diverge (-table +switch):\n%s", diff)
	}
	if diff := cmp.Diff(traces["table"], traces["threaded"]); diff != "" {
		t.Fatalf("table and threaded traces diverge (-table +threaded):\n%s", diff)
	}
}

// An iadd.ovf with constant operands that would overflow survives constant
// folding unfolded, so executing it must still raise the integer-overflow
// trap.
const overflowAddSample = `il 0.1
target "x86_64-linux"
func @main() -> i64 {
entry:
  %x = iadd.ovf 9223372036854775807, 1
  ret %x
}
`

func TestOverflowingAddTrapsAtRuntime(t *testing.T) {
	m, err := ilfmt.Parse([]byte(overflowAddSample), "ovf.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	v := NewVM(m, NewBridge(), DefaultLimits(), DispatchTable)
	_, rep := v.Run("main", nil)
	if rep == nil {
		t.Fatalf("expected an integer-overflow trap")
	}
	if rep.Code != ilerrors.TRP002 {
		t.Fatalf("expected TRP002, got %+v", rep)
	}
}

// A trap inside an eh.push/eh.pop region is caught by the handler, which
// resumes execution at a named label via resume.label, producing 42 rather
// than propagating the trap.
const s2Sample = `il 0.1
target "x86_64-linux"
func @main() -> i64 {
entry:
  eh.push ^h
  %x = sdiv.chk0 7, 0
  eh.pop
  ret 0
handler ^h(e: error, t: resume_tok):
  eh.entry
  resume.label %t, ^recover
recover:
  ret 42
}
`

func TestS2TrapAndHandler(t *testing.T) {
	m, err := ilfmt.Parse([]byte(s2Sample), "s2.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	v := NewVM(m, NewBridge(), DefaultLimits(), DispatchTable)
	res, rep := v.Run("main", nil)
	if rep != nil {
		t.Fatalf("unexpected unhandled trap: %+v", rep)
	}
	if res.I64() != 42 {
		t.Fatalf("expected 42, got %d", res.I64())
	}
}

// An unhandled trap (no eh.push in scope) must propagate all the way out
// of Run with a diagnostic tagged to the faulting function and block.
const unhandledTrapSample = `il 0.1
target "x86_64-linux"
func @main() -> i64 {
entry:
  %x = sdiv.chk0 1, 0
  ret %x
}
`

func TestUnhandledTrapReportsFunctionAndBlock(t *testing.T) {
	m, err := ilfmt.Parse([]byte(unhandledTrapSample), "trap.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	v := NewVM(m, NewBridge(), DefaultLimits(), DispatchTable)
	_, rep := v.Run("main", nil)
	if rep == nil {
		t.Fatalf("expected an unhandled trap")
	}
	if rep.Function != "main" || rep.Block != "entry" {
		t.Fatalf("expected trap tagged to main/entry, got %+v", rep)
	}
}

// The handle returned for a given const_str byte-sequence is identical
// across every reference to it within one VM instance.
const literalCacheSample = `il 0.1
target "x86_64-linux"
func @main() -> i64 {
entry:
  %a = const_str "hello"
  %b = const_str "hello"
  %eq = scmp_eq %a, %b
  %r = zext1 %eq
  ret %r
}
`

func TestLiteralCacheIsStableWithinAVM(t *testing.T) {
	m, err := ilfmt.Parse([]byte(literalCacheSample), "lit.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	v := NewVM(m, NewBridge(), DefaultLimits(), DispatchTable)
	res, rep := v.Run("main", nil)
	if rep != nil {
		t.Fatalf("unexpected trap: %+v", rep)
	}
	if res.I64() != 1 {
		t.Fatalf("expected the two const_str handles to compare equal, got %d", res.I64())
	}
}

// A step budget that runs out mid-execution returns the pause sentinel
// rather than a trap.
const infiniteLoopSample = `il 0.1
target "x86_64-linux"
func @main() -> i64 {
entry:
  br loop(0)
loop(i: i64):
  %next = iadd.ovf %i, 1
  br loop(%next)
}
`

func TestMaxStepsPausesRatherThanTraps(t *testing.T) {
	m, err := ilfmt.Parse([]byte(infiniteLoopSample), "loop.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	v := NewVM(m, NewBridge(), DefaultLimits(), DispatchTable)
	v.MaxSteps = 50
	res, rep := v.Run("main", nil)
	if rep == nil {
		t.Fatalf("expected a pause report")
	}
	if !res.IsPause() {
		t.Fatalf("expected the pause sentinel slot")
	}
}
