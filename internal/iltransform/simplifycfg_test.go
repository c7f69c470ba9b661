package iltransform

import (
	"testing"

	"vil/internal/ilanalysis"
	"vil/internal/ilfmt"
)

const emptyBlockSample = `il 0.1
target "x86_64-linux"
func @f(x: i64) -> i64 {
entry:
  br ^mid
mid:
  br ^exit
exit:
  ret %x
}
`

func TestSimplifyCFGSplicesEmptyBlocks(t *testing.T) {
	m, err := ilfmt.Parse([]byte(emptyBlockSample), "sample.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fn := m.FindFunction("f")
	ilanalysis.StampEHSensitivity(fn)
	am := ilanalysis.NewManager()
	s := &SimplifyCFG{}
	for i := 0; i < 4 && s.Run(fn, am); i++ {
	}

	if len(fn.Blocks) != 1 {
		t.Fatalf("expected every empty block spliced away, got %d blocks: %+v", len(fn.Blocks), fn.Blocks)
	}
	if fn.Blocks[0].Label != "entry" {
		t.Fatalf("expected the entry block to survive, got %q", fn.Blocks[0].Label)
	}
}

const singlePredSample = `il 0.1
target "x86_64-linux"
func @f(x: i64) -> i64 {
entry:
  %y = iadd.ovf %x, 1
  br ^next
next:
  %z = iadd.ovf %y, 1
  ret %z
}
`

func TestSimplifyCFGMergesSinglePredecessor(t *testing.T) {
	m, err := ilfmt.Parse([]byte(singlePredSample), "sample.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fn := m.FindFunction("f")
	ilanalysis.StampEHSensitivity(fn)
	am := ilanalysis.NewManager()
	s := &SimplifyCFG{}
	for i := 0; i < 4 && s.Run(fn, am); i++ {
	}

	if len(fn.Blocks) != 1 {
		t.Fatalf("expected next merged into entry, got %d blocks: %+v", len(fn.Blocks), fn.Blocks)
	}
	if len(fn.Blocks[0].Instrs) != 3 {
		t.Fatalf("expected both adds plus the ret in the merged block, got %+v", fn.Blocks[0].Instrs)
	}
}

const unreachableBlockSample = `il 0.1
target "x86_64-linux"
func @f(x: i64) -> i64 {
entry:
  ret %x
dead:
  ret 0
}
`

func TestSimplifyCFGDeletesUnreachableBlock(t *testing.T) {
	m, err := ilfmt.Parse([]byte(unreachableBlockSample), "sample.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fn := m.FindFunction("f")
	ilanalysis.StampEHSensitivity(fn)
	am := ilanalysis.NewManager()
	s := &SimplifyCFG{}
	if !s.Run(fn, am) {
		t.Fatalf("expected a rewrite")
	}
	if fn.Block("dead") != nil {
		t.Fatalf("expected the unreachable block removed")
	}
}

// A handler block containing eh.entry, eh.pop, and a resume.next terminator
// must be left untouched by SimplifyCFG — including the empty-block splice
// and single-predecessor merge rewrites, both of which would otherwise
// apply to it — and the run must report no changes.
const ehGuardedSample = `il 0.1
target "x86_64-linux"
func @f() -> i64 {
entry:
  eh.push ^h
  %x = sdiv.chk0 1, 0
  eh.pop
  ret %x
handler ^h(e: error, t: resume_tok):
  eh.entry
  eh.pop
  resume.next %t
}
`

func TestSimplifyCFGLeavesEHBlockUntouched(t *testing.T) {
	m, err := ilfmt.Parse([]byte(ehGuardedSample), "sample.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fn := m.FindFunction("f")
	ilanalysis.StampEHSensitivity(fn)
	h := fn.Block("h")
	if h == nil || !h.EHSensitive {
		t.Fatalf("expected handler block ^h to be stamped EH-sensitive, got %+v", h)
	}
	wantInstrs := len(h.Instrs)

	am := ilanalysis.NewManager()
	s := &SimplifyCFG{}
	changed := false
	for i := 0; i < 4 && s.Run(fn, am); i++ {
		changed = true
	}
	if changed {
		t.Fatalf("expected zero rewrites with an EH-sensitive handler block present")
	}
	h = fn.Block("h")
	if h == nil {
		t.Fatalf("expected handler block ^h to survive")
	}
	if len(h.Instrs) != wantInstrs {
		t.Fatalf("expected handler block instructions untouched, got %+v", h.Instrs)
	}
	if fn.Block("entry") == nil {
		t.Fatalf("expected entry block to survive")
	}
}
