package ilfmt

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"vil/internal/il"
)

const sampleModule = `il 0.1
target "x86_64-linux"
extern @rt_print_str(str) -> void
global const str @greeting = "hello"
func @add(a: i64, b: i64) -> i64 {
entry:
  %sum[:i64] = iadd.ovf %a, %b
  ret %sum
}
func export @main() -> i64 {
entry:
  %s = const_str "hi"
  call @rt_print_str(%s)
  %r = call @add(1, 2)
  ret %r
}
`

func TestParseModule(t *testing.T) {
	m, err := Parse([]byte(sampleModule), "sample.il")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.Version != "0.1" {
		t.Fatalf("version = %q, want 0.1", m.Version)
	}
	if len(m.Externs) != 1 || m.Externs[0].Name != "rt_print_str" {
		t.Fatalf("externs = %+v", m.Externs)
	}
	if len(m.Globals) != 1 || m.Globals[0].Name != "greeting" {
		t.Fatalf("globals = %+v", m.Globals)
	}
	if len(m.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(m.Functions))
	}
	add := m.FindFunction("add")
	if add == nil {
		t.Fatalf("missing @add")
	}
	entry := add.Block("entry")
	if entry == nil || len(entry.Instrs) != 2 {
		t.Fatalf("entry block = %+v", entry)
	}
	if entry.Instrs[0].Op != il.OpIAddOvf {
		t.Fatalf("expected iadd.ovf, got %v", entry.Instrs[0].Op)
	}
	if !entry.Instrs[1].Op.IsTerminator() {
		t.Fatalf("expected last instruction to be a terminator")
	}
}

func TestParseUnknownOpcode(t *testing.T) {
	src := `il 0.1
func @f() -> void {
entry:
  bogus_op
}
`
	_, err := Parse([]byte(src), "bad.il")
	if err == nil {
		t.Fatalf("expected parse error for unknown opcode")
	}
}

func TestParseUndefinedBranchTarget(t *testing.T) {
	src := `il 0.1
func @f() -> void {
entry:
  br nowhere
}
`
	_, err := Parse([]byte(src), "bad.il")
	if err == nil {
		t.Fatalf("expected error for undefined branch target")
	}
}

func TestRoundTripStable(t *testing.T) {
	m, err := Parse([]byte(sampleModule), "sample.il")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	printed := Print(m)

	m2, err := Parse([]byte(printed), "sample.il")
	if err != nil {
		t.Fatalf("Parse(Print(m)): %v\n---\n%s", err, printed)
	}
	printed2 := Print(m2)
	if diff := cmp.Diff(printed, printed2); diff != "" {
		t.Fatalf("Print(Parse(Print(m))) != Print(m) (-want +got):\n%s", diff)
	}
}

func TestBlockParamsAndBranchArgs(t *testing.T) {
	src := `il 0.1
func @loop() -> i64 {
entry:
  br head(0)
head(i: i64):
  %done = scmp_ge %i, 10
  cbr %done, exit(%i), body(%i)
body(j: i64):
  %next = iadd.ovf %j, 1
  br head(%next)
exit(r: i64):
  ret %r
}
`
	m, err := Parse([]byte(src), "loop.il")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fn := m.FindFunction("loop")
	head := fn.Block("head")
	if head == nil || len(head.Params) != 1 || head.Params[0].Name != "i" {
		t.Fatalf("head block params = %+v", head)
	}
	printed := Print(m)
	if !strings.Contains(printed, "head(i: i64)") {
		t.Fatalf("expected printed block params, got:\n%s", printed)
	}
}

// TestLinkageSurvivesRoundTrip checks that a module with one internal, one
// export, and one import function keeps all three linkage tags through a
// serialize/parse cycle.
func TestLinkageSurvivesRoundTrip(t *testing.T) {
	src := `il 0.1
func @helper() -> i64 {
entry:
  ret 0
}
func export @pub() -> i64 {
entry:
  ret 1
}
func import @ext() -> i64
`
	m, err := Parse([]byte(src), "linkage.il")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	wantLinkage := map[string]il.Linkage{"helper": il.Internal, "pub": il.Export, "ext": il.Import}
	for name, want := range wantLinkage {
		fn := m.FindFunction(name)
		if fn == nil {
			t.Fatalf("missing function %q", name)
		}
		if fn.Linkage != want {
			t.Fatalf("%s linkage = %v, want %v", name, fn.Linkage, want)
		}
	}

	printed := Print(m)
	m2, err := Parse([]byte(printed), "linkage.il")
	if err != nil {
		t.Fatalf("Parse(Print(m)): %v\n---\n%s", err, printed)
	}
	for name, want := range wantLinkage {
		fn := m2.FindFunction(name)
		if fn == nil {
			t.Fatalf("missing function %q after round-trip", name)
		}
		if fn.Linkage != want {
			t.Fatalf("after round-trip %s linkage = %v, want %v", name, fn.Linkage, want)
		}
	}
}
