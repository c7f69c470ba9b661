package vm

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"vil/internal/il"
)

var (
	traceFunc  = color.New(color.FgCyan).SprintFunc()
	traceBlock = color.New(color.FgYellow).SprintFunc()
	traceOp    = color.New(color.Bold).SprintFunc()
	traceDim   = color.New(color.Faint).SprintFunc()
)

// ILTrace writes one line per executed instruction in IL-text-ish form:
// function, block, instruction index, and opcode mnemonic. Color is applied
// unless NoColor or fatih/color's global color.NoColor (set when stdout is
// not a terminal) is set; w itself is not inspected. NoColor forces plain
// text for redirected output or golden-file tests.
type ILTrace struct {
	w       io.Writer
	NoColor bool
}

// NewILTrace returns an ILTrace writing to w.
func NewILTrace(w io.Writer) *ILTrace { return &ILTrace{w: w} }

func (t *ILTrace) Trace(fn *il.Function, block *il.BasicBlock, instr *il.Instr, fr *Frame) {
	mnemonic := instr.Op.String()
	if t.NoColor || color.NoColor {
		fmt.Fprintf(t.w, "%s:%s:%d %s\n", fn.Name, block.Label, fr.IP, mnemonic)
		return
	}
	fmt.Fprintf(t.w, "%s:%s:%s %s\n",
		traceFunc(fn.Name), traceBlock(block.Label), traceDim(strconv.Itoa(fr.IP)), traceOp(mnemonic))
}

// SourceTrace renders trace lines against the source the IL was lowered
// from, using each instruction's ilerrors.SourceLoc and suppressing repeats
// within a run of IL instructions lowered from the same source line.
type SourceTrace struct {
	w       io.Writer
	src     *SourceManager
	NoColor bool

	lastFile string
	lastLine uint32
}

// NewSourceTrace returns a SourceTrace reading source text through src.
func NewSourceTrace(w io.Writer, src *SourceManager) *SourceTrace {
	return &SourceTrace{w: w, src: src}
}

func (t *SourceTrace) Trace(fn *il.Function, block *il.BasicBlock, instr *il.Instr, fr *Frame) {
	if instr.Loc.IsZero() {
		return
	}
	file := normalizeSourcePath(instr.Loc.File)
	if file == t.lastFile && instr.Loc.Line == t.lastLine {
		return
	}
	t.lastFile, t.lastLine = file, instr.Loc.Line

	line, ok := t.src.Line(file, instr.Loc.Line)
	if !ok {
		line = "<unavailable>"
	}
	if t.NoColor || color.NoColor {
		fmt.Fprintf(t.w, "%s:%d: %s\n", file, instr.Loc.Line, line)
		return
	}
	fmt.Fprintf(t.w, "%s:%s %s\n", traceFunc(file), traceDim(strconv.FormatUint(uint64(instr.Loc.Line), 10)), line)
}

// normalizeSourcePath forces forward slashes so trace output and
// breakpoint paths compare equal regardless of the host OS.
func normalizeSourcePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
