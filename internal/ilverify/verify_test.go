package ilverify

import (
	"testing"

	"vil/internal/il"
	"vil/internal/ilerrors"
	"vil/internal/ilfmt"
)

const wellFormedSample = `il 0.1
target "x86_64-linux"
func @add(a: i64, b: i64) -> i64 {
entry:
  %r = iadd.ovf %a, %b
  ret %r
}
func export @main() -> i64 {
entry:
  %r = call @add(1, 2)
  ret %r
}
`

func TestVerifyAcceptsWellFormedModule(t *testing.T) {
	m, err := ilfmt.Parse([]byte(wellFormedSample), "ok.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if reps := Verify(m); len(reps) != 0 {
		t.Fatalf("expected no diagnostics, got %+v", reps)
	}
}

func hasCode(reps []*ilerrors.Report, code string) bool {
	for _, r := range reps {
		if r.Code == code {
			return true
		}
	}
	return false
}

const retTypeMismatchSample = `il 0.1
target "x86_64-linux"
func @f() -> i64 {
entry:
  ret
}
`

func TestVerifyCatchesRetTypeMismatch(t *testing.T) {
	m, err := ilfmt.Parse([]byte(retTypeMismatchSample), "bad.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	reps := Verify(m)
	if !hasCode(reps, ilerrors.VER003) {
		t.Fatalf("expected VER003, got %+v", reps)
	}
}

const ehPushMissingHandlerSample = `il 0.1
target "x86_64-linux"
func @f() -> i64 {
entry:
  eh.push ^notahandler
  ret 0
notahandler:
  ret 1
}
`

func TestVerifyCatchesEhPushWithoutHandlerBlock(t *testing.T) {
	m, err := ilfmt.Parse([]byte(ehPushMissingHandlerSample), "bad.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	reps := Verify(m)
	if !hasCode(reps, ilerrors.VER010) {
		t.Fatalf("expected VER010, got %+v", reps)
	}
}

const unbalancedEHSample = `il 0.1
target "x86_64-linux"
func @f() -> i64 {
entry:
  eh.pop
  ret 0
}
`

func TestVerifyCatchesUnbalancedEHPop(t *testing.T) {
	m, err := ilfmt.Parse([]byte(unbalancedEHSample), "bad.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	reps := Verify(m)
	if !hasCode(reps, ilerrors.VER014) {
		t.Fatalf("expected VER014, got %+v", reps)
	}
}

// The text-format parser itself rejects duplicate module-scope names
// before Verify ever runs (ilfmt's verifyUniqueNames), so exercising
// Verify's own VER008 check requires constructing the collision directly
// rather than through Parse.
func TestVerifyCatchesDuplicateModuleScopeName(t *testing.T) {
	dup := il.Function{
		Name:    "dup",
		RetType: il.I64,
		Blocks: []il.BasicBlock{{
			Label:  "entry",
			Instrs: []il.Instr{{Op: il.OpRet, Operands: []il.Value{il.ConstI(0)}}},
		}},
	}
	m := il.NewModule()
	m.Functions = append(m.Functions, dup, dup)
	reps := Verify(m)
	if !hasCode(reps, ilerrors.VER008) {
		t.Fatalf("expected VER008, got %+v", reps)
	}
}

// The text-format parser rejects a malformed handler-parameter prefix at
// parse time, so a module with a bad prefix can only reach Verify if a
// transform pass mutates it in place after parsing — exercise that path by
// constructing the handler block directly.
func TestVerifyCatchesMalformedHandlerParamPrefix(t *testing.T) {
	fn := il.Function{
		Name:    "f",
		RetType: il.I64,
		Blocks: []il.BasicBlock{
			{
				Label:  "entry",
				Instrs: []il.Instr{{Op: il.OpEhPush, HandlerLabel: "h", Succs: []string{"h"}}, {Op: il.OpRet, Operands: []il.Value{il.ConstI(0)}}},
			},
			{
				Label:     "h",
				IsHandler: true,
				Params:    []il.Param{{Name: "e", Type: il.ErrorT, ID: 0}}, // missing the resume_tok second parameter
				Instrs:    []il.Instr{{Op: il.OpEhEntry}, {Op: il.OpRet, Operands: []il.Value{il.ConstI(1)}}},
			},
		},
	}
	m := il.NewModule()
	m.Functions = append(m.Functions, fn)
	reps := Verify(m)
	if !hasCode(reps, ilerrors.VER012) {
		t.Fatalf("expected VER012, got %+v", reps)
	}
}
