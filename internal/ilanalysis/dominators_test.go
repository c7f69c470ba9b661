package ilanalysis

import (
	"testing"

	"vil/internal/il"
)

func diamondFunc() *il.Function {
	br := func(target string) il.Instr {
		return il.Instr{Op: il.OpBr, Succs: []string{target}, Args: [][]il.Value{nil}}
	}
	return &il.Function{
		Name: "diamond",
		Blocks: []il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{{Op: il.OpCBr, Succs: []string{"left", "right"}, Args: [][]il.Value{nil, nil}}}},
			{Label: "left", Instrs: []il.Instr{br("join")}},
			{Label: "right", Instrs: []il.Instr{br("join")}},
			{Label: "join", Instrs: []il.Instr{{Op: il.OpRet}}},
		},
	}
}

func TestDominatorTreeDiamond(t *testing.T) {
	f := diamondFunc()
	cfg := BuildCFG(f)
	dom := BuildDominatorTree(cfg)
	if !dom.Dominates("entry", "join") {
		t.Fatalf("expected entry to dominate join")
	}
	if dom.Dominates("left", "join") {
		t.Fatalf("left must not dominate join (right is an alternate path)")
	}
	if dom.ImmediateDominator("join") != "entry" {
		t.Fatalf("expected join's idom to be entry, got %q", dom.ImmediateDominator("join"))
	}
}

func TestFindLoopsBackEdge(t *testing.T) {
	f := &il.Function{
		Name: "loopfn",
		Blocks: []il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{{Op: il.OpBr, Succs: []string{"head"}, Args: [][]il.Value{nil}}}},
			{Label: "head", Instrs: []il.Instr{{Op: il.OpCBr, Succs: []string{"body", "exit"}, Args: [][]il.Value{nil, nil}}}},
			{Label: "body", Instrs: []il.Instr{{Op: il.OpBr, Succs: []string{"head"}, Args: [][]il.Value{nil}}}},
			{Label: "exit", Instrs: []il.Instr{{Op: il.OpRet}}},
		},
	}
	cfg := BuildCFG(f)
	dom := BuildDominatorTree(cfg)
	info := FindLoops(cfg, dom)
	if len(info.Loops) != 1 {
		t.Fatalf("expected 1 loop, got %d", len(info.Loops))
	}
	if info.Loops[0].Header != "head" {
		t.Fatalf("expected loop header 'head', got %q", info.Loops[0].Header)
	}
	if !info.Loops[0].Body["body"] {
		t.Fatalf("expected loop body to contain 'body'")
	}
}
