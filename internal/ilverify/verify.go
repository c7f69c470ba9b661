// Package ilverify checks every structural and SSA invariant a Module must
// satisfy, after parsing and after every transform pass. One pass per
// invariant family collects every violation rather than aborting on the
// first, so a caller building tooling on top of the verifier sees the
// complete picture instead of one error at a time.
package ilverify

import (
	"fmt"

	"vil/internal/il"
	"vil/internal/ilanalysis"
	"vil/internal/ilerrors"
)

// Verify checks m against every structural and SSA invariant and returns
// every violation found, in module declaration order. A nil/empty return
// means m is well-formed.
func Verify(m *il.Module) []*ilerrors.Report {
	var reports []*ilerrors.Report
	seen := map[string]bool{}
	for _, e := range m.Externs {
		if seen[e.Name] {
			reports = append(reports, ilerrors.New(ilerrors.VER008, "duplicate module-scope name "+e.Name))
		}
		seen[e.Name] = true
	}
	for _, g := range m.Globals {
		if seen[g.Name] {
			reports = append(reports, ilerrors.New(ilerrors.VER008, "duplicate module-scope name "+g.Name))
		}
		seen[g.Name] = true
		reports = append(reports, verifyGlobal(g)...)
	}
	for _, f := range m.Functions {
		if seen[f.Name] {
			reports = append(reports, ilerrors.New(ilerrors.VER008, "duplicate module-scope name "+f.Name))
		}
		seen[f.Name] = true
		reports = append(reports, VerifyFunction(m, &f)...)
	}
	return reports
}

func verifyGlobal(g il.Global) []*ilerrors.Report {
	var reports []*ilerrors.Report
	switch g.Type {
	case il.I1, il.I32, il.I64, il.F64, il.Str:
		// acceptable initializer-bearing kinds
	default:
		reports = append(reports, ilerrors.New(ilerrors.VER009,
			fmt.Sprintf("global %q has non-initializable type %s", g.Name, g.Type)).
			WithData("global", g.Name))
	}
	return reports
}

// VerifyFunction checks a single function in isolation, given the owning
// module for call-signature lookups.
func VerifyFunction(m *il.Module, f *il.Function) []*ilerrors.Report {
	var reports []*ilerrors.Report

	if !f.IsDefined() {
		if len(f.Blocks) != 0 {
			reports = append(reports, ilerrors.New(ilerrors.VER007,
				fmt.Sprintf("import function %q must not have a body", f.Name)).WithFunc(f.Name, ""))
		}
		return reports
	}
	if len(f.Blocks) == 0 {
		reports = append(reports, ilerrors.New(ilerrors.VER007,
			fmt.Sprintf("function %q must have a body", f.Name)).WithFunc(f.Name, ""))
		return reports
	}

	blockSet := map[string]*il.BasicBlock{}
	for i := range f.Blocks {
		blockSet[f.Blocks[i].Label] = &f.Blocks[i]
	}

	for i := range f.Blocks {
		reports = append(reports, verifyBlockTermination(f, &f.Blocks[i])...)
		reports = append(reports, verifyBranchTargets(f, &f.Blocks[i], blockSet)...)
		reports = append(reports, verifyInstrShapes(m, f, &f.Blocks[i])...)
	}

	reports = append(reports, verifyDominance(f)...)
	reports = append(reports, verifyEH(f, blockSet)...)

	return reports
}

func verifyBlockTermination(f *il.Function, b *il.BasicBlock) []*ilerrors.Report {
	var reports []*ilerrors.Report
	if len(b.Instrs) == 0 {
		reports = append(reports, ilerrors.New(ilerrors.VER001,
			fmt.Sprintf("block %q is empty", b.Label)).WithFunc(f.Name, b.Label))
		return reports
	}
	for i, instr := range b.Instrs {
		isLast := i == len(b.Instrs)-1
		if instr.Op.IsTerminator() != isLast {
			reports = append(reports, ilerrors.New(ilerrors.VER001,
				fmt.Sprintf("block %q: terminator %s must be exactly the last instruction", b.Label, instr.Op)).
				WithFunc(f.Name, b.Label))
		}
	}
	if b.IsHandler {
		if len(b.Instrs) == 0 || b.Instrs[0].Op != il.OpEhEntry {
			reports = append(reports, ilerrors.New(ilerrors.VER011,
				fmt.Sprintf("handler block %q must begin with eh.entry", b.Label)).WithFunc(f.Name, b.Label))
		}
		if len(b.Params) < 2 || b.Params[0].Type != il.ErrorT || b.Params[1].Type != il.ResumeTok {
			reports = append(reports, ilerrors.New(ilerrors.VER012,
				fmt.Sprintf("handler block %q must declare (error, resume_tok) parameter prefix", b.Label)).
				WithFunc(f.Name, b.Label))
		}
	}
	return reports
}

func verifyBranchTargets(f *il.Function, b *il.BasicBlock, blocks map[string]*il.BasicBlock) []*ilerrors.Report {
	var reports []*ilerrors.Report
	term := b.Terminator()
	if term == nil {
		return reports
	}
	for i, succ := range term.Succs {
		target, ok := blocks[succ]
		if !ok {
			reports = append(reports, ilerrors.New(ilerrors.VER006,
				fmt.Sprintf("block %q: branch target %q does not exist", b.Label, succ)).WithFunc(f.Name, b.Label))
			continue
		}
		var args []il.Value
		if i < len(term.Args) {
			args = term.Args[i]
		}
		if len(args) != len(target.Params) {
			reports = append(reports, ilerrors.New(ilerrors.VER002,
				fmt.Sprintf("branch to %q passes %d argument(s), block declares %d parameter(s)",
					succ, len(args), len(target.Params))).WithFunc(f.Name, b.Label))
			continue
		}
		for j, p := range target.Params {
			at := operandType(f, args[j])
			if at != p.Type {
				reports = append(reports, ilerrors.New(ilerrors.VER002,
					fmt.Sprintf("branch to %q argument %d has type %s, parameter %q expects %s",
						succ, j, at, p.Name, p.Type)).WithFunc(f.Name, b.Label))
			}
		}
	}
	for _, instr := range b.Instrs {
		switch instr.Op {
		case il.OpEhPush:
			if target, ok := blocks[instr.HandlerLabel]; !ok || !target.IsHandler {
				reports = append(reports, ilerrors.New(ilerrors.VER010,
					fmt.Sprintf("eh.push target %q must be a declared handler block", instr.HandlerLabel)).
					WithFunc(f.Name, b.Label))
			}
		case il.OpResumeLabel:
			if _, ok := blocks[instr.ResumeTarget]; !ok {
				reports = append(reports, ilerrors.New(ilerrors.VER006,
					fmt.Sprintf("block %q: resume.label target %q does not exist", b.Label, instr.ResumeTarget)).
					WithFunc(f.Name, b.Label))
			}
		}
	}
	return reports
}

// operandType resolves the static type of a value within f; parameters and
// instruction results carry explicit types, literals carry their syntactic
// type.
func operandType(f *il.Function, v il.Value) il.Type {
	switch v.Kind {
	case il.VConstInt:
		return il.I64
	case il.VConstFloat:
		return il.F64
	case il.VConstStr:
		return il.Str
	case il.VNull:
		return il.Ptr
	case il.VGlobal:
		return il.Ptr
	case il.VTemp:
		for _, p := range f.Params {
			if p.ID == v.TempID {
				return p.Type
			}
		}
		for _, b := range f.Blocks {
			for _, p := range b.Params {
				if p.ID == v.TempID {
					return p.Type
				}
			}
			for _, instr := range b.Instrs {
				if instr.HasResultID && instr.ResultID == v.TempID {
					return instr.ResultType
				}
			}
		}
	}
	return il.Void
}

func verifyInstrShapes(m *il.Module, f *il.Function, b *il.BasicBlock) []*ilerrors.Report {
	var reports []*ilerrors.Report
	for _, instr := range b.Instrs {
		if instr.Op == il.OpCall {
			ret, params, ok := m.Signature(instr.Callee)
			if !ok {
				reports = append(reports, ilerrors.New(ilerrors.VER004,
					fmt.Sprintf("call to undeclared function %q", instr.Callee)).WithFunc(f.Name, b.Label))
				continue
			}
			if len(instr.Operands) != len(params) {
				reports = append(reports, ilerrors.New(ilerrors.VER004,
					fmt.Sprintf("call to %q passes %d argument(s), signature expects %d",
						instr.Callee, len(instr.Operands), len(params))).WithFunc(f.Name, b.Label))
				continue
			}
			for i, want := range params {
				got := operandType(f, instr.Operands[i])
				if got != want {
					reports = append(reports, ilerrors.New(ilerrors.VER004,
						fmt.Sprintf("call to %q argument %d has type %s, expected %s",
							instr.Callee, i, got, want)).WithFunc(f.Name, b.Label))
				}
			}
			if instr.HasResultID && instr.ResultType != ret {
				reports = append(reports, ilerrors.New(ilerrors.VER003,
					fmt.Sprintf("call to %q result type %s disagrees with signature return type %s",
						instr.Callee, instr.ResultType, ret)).WithFunc(f.Name, b.Label))
			}
		}
		if instr.Op == il.OpRet {
			switch {
			case f.RetType == il.Void && len(instr.Operands) != 0:
				reports = append(reports, ilerrors.New(ilerrors.VER003,
					"ret in void function must not return a value").WithFunc(f.Name, b.Label))
			case f.RetType != il.Void && len(instr.Operands) != 1:
				reports = append(reports, ilerrors.New(ilerrors.VER003,
					fmt.Sprintf("ret must return exactly one %s value", f.RetType)).WithFunc(f.Name, b.Label))
			case f.RetType != il.Void:
				got := operandType(f, instr.Operands[0])
				if got != f.RetType {
					reports = append(reports, ilerrors.New(ilerrors.VER003,
						fmt.Sprintf("ret value has type %s, function returns %s", got, f.RetType)).
						WithFunc(f.Name, b.Label))
				}
			}
		}
	}
	return reports
}

// verifyDominance checks that every temporary use is dominated by its
// definition, using the dominator tree from ilanalysis. Uses inside blocks
// unreachable from the entry are skipped — dominance is undefined there,
// and SimplifyCFG is the pass that removes such blocks, not the verifier.
func verifyDominance(f *il.Function) []*ilerrors.Report {
	var reports []*ilerrors.Report
	cfg := ilanalysis.BuildCFG(f)
	domTree := ilanalysis.BuildDominatorTree(cfg)

	defBlock := map[uint64]string{}
	for _, p := range f.Params {
		defBlock[p.ID] = f.Entry().Label // function params are available everywhere in the function
	}
	for _, b := range f.Blocks {
		for _, p := range b.Params {
			defBlock[p.ID] = b.Label
		}
		for _, instr := range b.Instrs {
			if instr.HasResultID {
				defBlock[instr.ResultID] = b.Label
			}
		}
	}

	checkUse := func(blockLabel string, v il.Value) {
		if v.Kind != il.VTemp {
			return
		}
		if !domTree.Reachable(blockLabel) {
			return
		}
		defB, ok := defBlock[v.TempID]
		if !ok {
			return // undefined temp is a different, already-reported class of error
		}
		if defB == f.Entry().Label {
			return // function parameters dominate every block
		}
		if !domTree.Dominates(defB, blockLabel) {
			reports = append(reports, ilerrors.New(ilerrors.VER005,
				fmt.Sprintf("use of %%%s in block %q is not dominated by its definition in block %q",
					v.String(), blockLabel, defB)).WithFunc(f.Name, blockLabel))
		}
	}

	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			for _, op := range instr.Operands {
				checkUse(b.Label, op)
			}
			for _, args := range instr.Args {
				for _, a := range args {
					checkUse(b.Label, a)
				}
			}
			if instr.Op == il.OpResumeSame || instr.Op == il.OpResumeNext || instr.Op == il.OpResumeLabel {
				checkUse(b.Label, instr.ResumeTok)
			}
		}
	}
	return reports
}

// verifyEH checks exception-handling balance and resume-token provenance.
func verifyEH(f *il.Function, blocks map[string]*il.BasicBlock) []*ilerrors.Report {
	var reports []*ilerrors.Report
	entryDepth := map[string]int{}
	var walk func(label string, depth int)
	walk = func(label string, depth int) {
		if prev, seen := entryDepth[label]; seen {
			if prev != depth {
				reports = append(reports, ilerrors.New(ilerrors.VER014,
					fmt.Sprintf("block %q reached with inconsistent EH-push depth (%d vs %d)", label, prev, depth)).
					WithFunc(f.Name, label))
			}
			return
		}
		entryDepth[label] = depth
		b, ok := blocks[label]
		if !ok {
			return
		}
		d := depth
		for _, instr := range b.Instrs {
			switch instr.Op {
			case il.OpEhPush:
				d++
			case il.OpEhPop:
				d--
				if d < 0 {
					reports = append(reports, ilerrors.New(ilerrors.VER014,
						fmt.Sprintf("block %q pops an EH handler with none pushed", label)).WithFunc(f.Name, label))
					d = 0
				}
			}
		}
		if term := b.Terminator(); term != nil {
			for _, succ := range term.Succs {
				walk(succ, d)
			}
		}
	}
	if entry := f.Entry(); entry != nil {
		walk(entry.Label, 0)
	}

	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == il.OpResumeLabel || instr.Op == il.OpResumeSame || instr.Op == il.OpResumeNext {
				if instr.ResumeTok.Kind != il.VTemp {
					reports = append(reports, ilerrors.New(ilerrors.VER013,
						fmt.Sprintf("%s operand must be a resume_tok temporary", instr.Op)).WithFunc(f.Name, b.Label))
				}
			}
		}
	}
	return reports
}
