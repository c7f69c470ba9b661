// Package debugconsole implements an interactive stepping console over a
// paused vm.VM: break/step/continue/trace/print/bt commands driven from a
// liner-backed prompt loop with tab completion and colorized output.
package debugconsole

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"vil/internal/ilerrors"
	"vil/internal/vm"
	"vil/internal/vm/debugscript"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

var commands = []string{
	"break", "step", "continue", "trace", "print", "bt", "help", "quit",
}

// Console is an interactive liner-backed front end over a *vm.VM and its
// *vm.Debugger, started once and driven one command line at a time.
type Console struct {
	VM      *vm.VM
	Debug   *vm.Debugger
	Entry   string
	Args    []vm.Slot
	started bool
}

// New returns a Console wired to run and step the entry function with args.
func New(v *vm.VM, d *vm.Debugger, entry string, args []vm.Slot) *Console {
	v.SetDebug(d)
	return &Console{VM: v, Debug: d, Entry: entry, Args: args}
}

// Start runs the console's read-eval loop against in/out until the user
// quits or the VM runs to completion.
func (c *Console) Start(in io.Reader, out io.Writer) {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCompleter(func(line string) (matches []string) {
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, line) {
				matches = append(matches, cmd)
			}
		}
		return
	})

	fmt.Fprintln(out, dim("type 'help' for a list of commands"))

	for {
		input, err := ln.Prompt(cyan("(dbg) "))
		if err == io.EOF {
			fmt.Fprintln(out, green("goodbye"))
			return
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
			continue
		}
		ln.AppendHistory(input)
		line := strings.TrimSpace(input)
		c.dispatch(line, out)
		if f := strings.Fields(line); (len(f) > 0 && f[0] == "quit") || (c.started && c.VM.StackDepth() == 0) {
			return
		}
	}
}

func (c *Console) dispatch(line string, out io.Writer) {
	if line == "" {
		return
	}
	fields := strings.Fields(line)
	cmd, rest := fields[0], fields[1:]

	switch cmd {
	case "help":
		fmt.Fprintln(out, "break label <fn> <block> | break line <file> <n> | step [n] | continue | trace [il|src] | print <reg> | bt | quit")
	case "break":
		c.cmdBreak(rest, out)
	case "trace":
		if len(rest) == 1 && rest[0] == "src" {
			c.VM.SetTrace(vm.NewSourceTrace(out, vm.NewSourceManager()))
		} else {
			c.VM.SetTrace(vm.NewILTrace(out))
		}
	case "step":
		c.cmdStep(rest, out)
	case "continue":
		c.cmdContinue(out)
	case "print":
		c.cmdPrint(rest, out)
	case "bt":
		c.cmdBacktrace(out)
	case "quit":
		fmt.Fprintln(out, green("goodbye"))
	default:
		fmt.Fprintf(out, "%s: unknown command %q\n", red("error"), cmd)
	}
}

// RunScript replays a debugscript.Script against the console's VM without
// a terminal, for automated regression suites that need a reproducible
// break/step/print sequence. Each step is dispatched through the exact
// same command handlers an interactive "(dbg)" session would use.
func (c *Console) RunScript(script *debugscript.Script, out io.Writer) {
	for _, step := range script.Steps {
		switch step.Kind {
		case "break-label":
			c.Debug.AddBreakLabel(step.Function, step.Block)
		case "break-line":
			c.Debug.AddBreakSrcLine(step.File, step.Line)
		case "step":
			c.cmdStep([]string{strconv.Itoa(step.Count)}, out)
		case "continue":
			c.cmdContinue(out)
		case "print":
			c.cmdPrint([]string{strconv.FormatUint(step.Reg, 10)}, out)
		case "backtrace":
			c.cmdBacktrace(out)
		default:
			fmt.Fprintf(out, "%s: unknown script step kind %q\n", red("error"), step.Kind)
		}
	}
}

func (c *Console) cmdBreak(args []string, out io.Writer) {
	if len(args) != 3 {
		fmt.Fprintln(out, red("usage: break label <fn> <block> | break line <file> <n>"))
		return
	}
	switch args[0] {
	case "label":
		c.Debug.AddBreakLabel(args[1], args[2])
	case "line":
		n, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
			return
		}
		c.Debug.AddBreakSrcLine(args[1], uint32(n))
	default:
		fmt.Fprintln(out, red("usage: break label <fn> <block> | break line <file> <n>"))
	}
}

func (c *Console) cmdStep(args []string, out io.Writer) {
	n := 1
	if len(args) == 1 {
		if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
			n = v
		}
	}
	c.Debug.StepBudget = n
	c.run(out)
}

func (c *Console) cmdContinue(out io.Writer) {
	c.Debug.StepBudget = 0
	c.run(out)
}

func (c *Console) run(out io.Writer) {
	var (
		res vm.Slot
		rep *ilerrors.Report
	)
	if !c.started {
		c.started = true
		res, rep = c.VM.Run(c.Entry, c.Args)
	} else {
		res, rep = c.VM.Resume()
	}
	if rep != nil && rep.Code != ilerrors.DBG001 {
		fmt.Fprintf(out, "%s %s: %s\n", red("trap"), rep.Code, rep.Message)
		return
	}
	if res.IsPause() {
		fmt.Fprintln(out, dim("paused"))
		return
	}
	fmt.Fprintf(out, "%s %d\n", green("returned"), res.I64())
}

func (c *Console) cmdPrint(args []string, out io.Writer) {
	if len(args) != 1 {
		fmt.Fprintln(out, red("usage: print <reg>"))
		return
	}
	reg, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		return
	}
	fr := c.VM.CurrentFrame()
	if fr == nil {
		fmt.Fprintln(out, red("no active frame"))
		return
	}
	if int(reg) >= len(fr.Regs) {
		fmt.Fprintln(out, red("register out of range"))
		return
	}
	fmt.Fprintf(out, "%%%d = %d\n", reg, fr.Regs[reg].I64())
}

func (c *Console) cmdBacktrace(out io.Writer) {
	depth := c.VM.StackDepth()
	idxs := make([]int, depth)
	for i := range idxs {
		idxs[i] = i
	}
	sort.Sort(sort.Reverse(sort.IntSlice(idxs)))
	for _, i := range idxs {
		fr := c.VM.FrameAt(i)
		if fr == nil {
			continue
		}
		fmt.Fprintf(out, "#%d %s:%s+%d\n", i, fr.Fn.Name, fr.Fn.Blocks[fr.Block].Label, fr.IP)
	}
}
