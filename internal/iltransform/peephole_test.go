package iltransform

import (
	"testing"

	"vil/internal/il"
	"vil/internal/ilanalysis"
	"vil/internal/ilfmt"
)

const identitySample = `il 0.1
target "x86_64-linux"
func @f(x: i64) -> i64 {
entry:
  %z = iadd.ovf %x, 0
  %w = imul.ovf %z, 1
  ret %w
}
`

func TestPeepholeForwardsIdentities(t *testing.T) {
	m, err := ilfmt.Parse([]byte(identitySample), "sample.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fn := m.FindFunction("f")
	am := ilanalysis.NewManager()
	p := &Peephole{}

	for i := 0; i < 4 && p.Run(fn, am); i++ {
	}

	entry := fn.Block("entry")
	if len(entry.Instrs) != 1 {
		t.Fatalf("expected both identity instructions erased, got %+v", entry.Instrs)
	}
	ret := entry.Instrs[0]
	if ret.Operands[0].Kind != il.VTemp {
		t.Fatalf("expected ret to forward straight to %%x, got %+v", ret.Operands[0])
	}
	if ret.Operands[0].TempName != "x" {
		t.Fatalf("expected ret operand to be %%x, got %+v", ret.Operands[0])
	}
}

const cbrConstSample = `il 0.1
target "x86_64-linux"
func @f() -> i64 {
entry:
  cbr 0, ^then(), ^else()
then:
  ret 1
else:
  ret 2
}
`

func TestPeepholeCollapsesConstantCBr(t *testing.T) {
	m, err := ilfmt.Parse([]byte(cbrConstSample), "sample.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fn := m.FindFunction("f")
	am := ilanalysis.NewManager()
	p := &Peephole{}
	if !p.Run(fn, am) {
		t.Fatalf("expected a rewrite")
	}
	term := fn.Block("entry").Terminator()
	if term.Op.String() != "br" {
		t.Fatalf("expected cbr collapsed to br, got %v", term.Op)
	}
	if term.Succs[0] != "else" {
		t.Fatalf("expected a false constant predicate to take the else edge, got %q", term.Succs[0])
	}
}
