package ilfmt

import (
	"fmt"
	"sort"
	"strings"

	"vil/internal/il"
	"vil/internal/ilerrors"
)

// Print renders m in canonical IL text form: a deterministic byte sequence
// such that Parse(Print(m)) round-trips to a module equal to m in every
// field the grammar can express. Externs are always printed sorted by name;
// their declaration order is not preserved.
func Print(m *il.Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "il %s\n", m.Version)
	if m.Target != "" {
		fmt.Fprintf(&b, "target %s\n", il.QuoteString(m.Target))
	}

	externs := append([]il.Extern(nil), m.Externs...)
	sort.Slice(externs, func(i, j int) bool { return externs[i].Name < externs[j].Name })
	for _, e := range externs {
		printExtern(&b, e)
	}
	for _, g := range m.Globals {
		printGlobal(&b, g)
	}
	for _, fn := range m.Functions {
		printFunction(&b, fn)
	}
	return b.String()
}

func printExtern(b *strings.Builder, e il.Extern) {
	fmt.Fprintf(b, "extern @%s(", e.Name)
	for i, t := range e.ParamTypes {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.String())
	}
	fmt.Fprintf(b, ") -> %s\n", e.RetType.String())
}

func printGlobal(b *strings.Builder, g il.Global) {
	b.WriteString("global ")
	if g.Linkage == il.Export {
		b.WriteString("export ")
	}
	init := string(g.Init)
	if g.Type == il.Str {
		init = il.QuoteString(init)
	}
	fmt.Fprintf(b, "const %s @%s = %s\n", g.Type.String(), g.Name, init)
}

func printFunction(b *strings.Builder, fn il.Function) {
	b.WriteString("func ")
	switch fn.Linkage {
	case il.Export:
		b.WriteString("export ")
	case il.Import:
		b.WriteString("import ")
	}
	fmt.Fprintf(b, "@%s(", fn.Name)
	for i, p := range fn.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s: %s", paramRef(p, fn.ValueNames), p.Type.String())
	}
	fmt.Fprintf(b, ") -> %s", fn.RetType.String())
	if fn.Linkage == il.Import {
		b.WriteString("\n")
		return
	}
	b.WriteString(" {\n")
	for _, blk := range fn.Blocks {
		printBlock(b, blk, fn.ValueNames)
	}
	b.WriteString("}\n")
}

func paramRef(p il.Param, names map[uint64]string) string {
	if p.Name != "" {
		return p.Name
	}
	if n, ok := names[p.ID]; ok && n != "" {
		return n
	}
	return fmt.Sprintf("t%d", p.ID)
}

func printBlock(b *strings.Builder, blk il.BasicBlock, names map[uint64]string) {
	if blk.IsHandler {
		fmt.Fprintf(b, "  handler ^%s", blk.Label)
	} else {
		fmt.Fprintf(b, "  %s", blk.Label)
	}
	if len(blk.Params) > 0 {
		b.WriteString("(")
		for i, p := range blk.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s: %s", paramRef(p, names), p.Type.String())
		}
		b.WriteString(")")
	}
	b.WriteString(":\n")
	var haveLastLoc bool
	var lastLoc ilerrors.SourceLoc
	for _, instr := range blk.Instrs {
		if !instr.Loc.IsZero() {
			if !haveLastLoc || lastLoc != instr.Loc {
				fmt.Fprintf(b, "    .loc %s %d %d\n", instr.Loc.File, instr.Loc.Line, instr.Loc.Col)
				lastLoc = instr.Loc
				haveLastLoc = true
			}
		}
		b.WriteString("    ")
		printInstr(b, instr, names)
		b.WriteString("\n")
	}
}

func printInstr(b *strings.Builder, instr il.Instr, names map[uint64]string) {
	// A void result means the value is never consumable (a call to a void
	// callee); the binding is dropped rather than printed as "[:void]".
	if instr.HasResultID && instr.Op.HasResult() && instr.ResultType != il.Void {
		fmt.Fprintf(b, "%%%s", tempRef(instr.ResultID, instr.ResultName, names))
		if dt, ok := instr.Op.DefaultResultType(); !ok || dt != instr.ResultType {
			fmt.Fprintf(b, "[:%s]", instr.ResultType.String())
		}
		b.WriteString(" = ")
	}
	b.WriteString(instr.Op.String())

	switch instr.Op {
	case il.OpBr:
		fmt.Fprintf(b, " %s", branchRef(instr.Succs[0], instr.Args[0], names))
	case il.OpCBr:
		fmt.Fprintf(b, " %s, %s, %s", valueRef(instr.Operands[0], names),
			branchRef(instr.Succs[0], instr.Args[0], names), branchRef(instr.Succs[1], instr.Args[1], names))
	case il.OpSwitchI32:
		fmt.Fprintf(b, " %s, %s", valueRef(instr.Operands[0], names), branchRef(instr.Succs[0], instr.Args[0], names))
		for i, c := range instr.SwitchCases {
			fmt.Fprintf(b, ", %d -> %s", c, branchRef(instr.Succs[i+1], instr.Args[i+1], names))
		}
	case il.OpRet:
		if len(instr.Operands) == 1 {
			fmt.Fprintf(b, " %s", valueRef(instr.Operands[0], names))
		}
	case il.OpTrap:
		// no operands
	case il.OpTrapKind:
		fmt.Fprintf(b, " %s", instr.Callee)
	case il.OpTrapFromErr:
		fmt.Fprintf(b, " %s", valueRef(instr.Operands[0], names))
	case il.OpResumeSame, il.OpResumeNext:
		fmt.Fprintf(b, " %s", valueRef(instr.ResumeTok, names))
	case il.OpResumeLabel:
		fmt.Fprintf(b, " %s, ^%s", valueRef(instr.ResumeTok, names), instr.ResumeTarget)
	case il.OpEhPush:
		fmt.Fprintf(b, " ^%s", instr.HandlerLabel)
	case il.OpEhPop, il.OpEhEntry:
		// no operands
	case il.OpCall:
		b.WriteString(" @" + instr.Callee + "(")
		for i, op := range instr.Operands {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(valueRef(op, names))
		}
		b.WriteString(")")
	case il.OpConstStr:
		fmt.Fprintf(b, " %s", valueRef(instr.Operands[0], names))
	case il.OpAlloca:
		fmt.Fprintf(b, " %s", instr.Callee)
	default:
		for i, op := range instr.Operands {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(" " + valueRef(op, names))
		}
	}
}

func branchRef(label string, args []il.Value, names map[uint64]string) string {
	if len(args) == 0 {
		return label
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = valueRef(a, names)
	}
	return fmt.Sprintf("%s(%s)", label, strings.Join(parts, ", "))
}

func tempRef(id uint64, name string, names map[uint64]string) string {
	if name != "" {
		return name
	}
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return fmt.Sprintf("t%d", id)
}

func valueRef(v il.Value, names map[uint64]string) string {
	if v.Kind == il.VTemp {
		return "%" + tempRef(v.TempID, v.TempName, names)
	}
	return v.String()
}
