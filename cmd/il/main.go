// Command il is a thin flag-based driver over the IL core toolchain:
// verify, run, optimize, link, and reformat `.il` text files.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"vil/internal/il"
	"vil/internal/ilerrors"
	"vil/internal/ilfmt"
	"vil/internal/illink"
	"vil/internal/iltransform"
	"vil/internal/ilverify"
	"vil/internal/vm"
	"vil/internal/vm/debugconsole"
	"vil/internal/vm/debugscript"
)

var (
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "verify":
		err = cmdVerify(args)
	case "run":
		err = cmdRun(args)
	case "opt":
		err = cmdOpt(args)
	case "link":
		err = cmdLink(args)
	case "fmt":
		err = cmdFmt(args)
	case "debug":
		err = cmdDebug(args)
	case "-h", "--help", "help":
		printHelp()
		return
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", red("error"), cmd)
		printHelp()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(bold("il") + " — IL core toolchain driver")
	fmt.Println("  il verify <file.il>")
	fmt.Println("  il run <file.il> [--dispatch table|switch|threaded] [--trace il|src] [--max-steps N] [--entry name]")
	fmt.Println("  il opt <file.il> [--passes constfold,peephole,dse,simplifycfg]")
	fmt.Println("  il link <a.il> <b.il> ... -o out.il [--config patterns.yaml]")
	fmt.Println("  il fmt <file.il>")
	fmt.Println("  il debug <file.il> [--entry name] [--script steps.yaml]")
}

func parseModuleFile(path string) (*il.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ilfmt.Parse(data, path)
}

func printReports(reps []*ilerrors.Report) {
	for _, r := range reps {
		loc := ""
		if r.Loc != nil {
			loc = r.Loc.String() + ": "
		}
		fmt.Fprintf(os.Stderr, "%s%s %s: %s\n", loc, yellow(r.Code), r.Function, r.Message)
	}
}

func cmdVerify(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: il verify <file.il>")
	}
	mod, err := parseModuleFile(args[0])
	if err != nil {
		return err
	}
	reps := ilverify.Verify(mod)
	if len(reps) > 0 {
		printReports(reps)
		return fmt.Errorf("%d verification error(s)", len(reps))
	}
	fmt.Println(green("ok"))
	return nil
}

func cmdFmt(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: il fmt <file.il>")
	}
	mod, err := parseModuleFile(args[0])
	if err != nil {
		return err
	}
	fmt.Print(ilfmt.Print(mod))
	return nil
}

func cmdLink(args []string) error {
	var inputs []string
	out, configPath := "", ""
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-o":
			if i+1 < len(args) {
				out = args[i+1]
				i++
			}
		case "--config":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		default:
			inputs = append(inputs, args[i])
		}
	}
	if len(inputs) == 0 || out == "" {
		return fmt.Errorf("usage: il link <a.il> <b.il> ... -o out.il [--config patterns.yaml]")
	}
	mods := make([]*il.Module, len(inputs))
	for i, path := range inputs {
		m, err := parseModuleFile(path)
		if err != nil {
			return err
		}
		mods[i] = m
	}

	cfg := illink.DefaultConfig()
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return err
		}
		cfg, err = illink.LoadConfig(data)
		if err != nil {
			return fmt.Errorf("parsing linker config: %w", err)
		}
	}

	linked, reps := illink.LinkWithConfig(mods, cfg)
	if len(reps) > 0 {
		printReports(reps)
		return fmt.Errorf("%d link error(s)", len(reps))
	}
	return os.WriteFile(out, []byte(ilfmt.Print(linked)), 0o644)
}

func cmdOpt(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: il opt <file.il> [--passes a,b,c]")
	}
	mod, err := parseModuleFile(args[0])
	if err != nil {
		return err
	}
	// --passes is accepted for forward compatibility with a configurable
	// pass subset; the manager currently always runs its full fixed-point
	// sequence (constfold, peephole, dse, simplifycfg).
	pm := iltransform.NewManager()
	pm.RunModule(mod)
	fmt.Print(ilfmt.Print(mod))
	return nil
}

func cmdRun(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: il run <file.il> [--dispatch table|switch|threaded] [--trace il|src] [--max-steps N] [--entry name]")
	}
	path := args[0]
	dispatchStr, traceStr, entry := "table", "", "main"
	maxSteps := 0

	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--dispatch":
			i++
			if i < len(args) {
				dispatchStr = args[i]
			}
		case "--trace":
			i++
			if i < len(args) {
				traceStr = args[i]
			}
		case "--max-steps":
			i++
			if i < len(args) {
				fmt.Sscanf(args[i], "%d", &maxSteps)
			}
		case "--entry":
			i++
			if i < len(args) {
				entry = args[i]
			}
		}
	}

	mod, err := parseModuleFile(path)
	if err != nil {
		return err
	}
	if reps := ilverify.Verify(mod); len(reps) > 0 {
		printReports(reps)
		return fmt.Errorf("%d verification error(s)", len(reps))
	}

	mode, ok := vm.ParseDispatchMode(dispatchStr)
	if !ok {
		return fmt.Errorf("unknown dispatch mode %q", dispatchStr)
	}

	machine := vm.NewVM(mod, vm.NewBridge(), vm.LimitsFromEnv(), mode)
	machine.MaxSteps = maxSteps

	switch strings.ToLower(traceStr) {
	case "il":
		machine.SetTrace(vm.NewILTrace(os.Stdout))
	case "src":
		machine.SetTrace(vm.NewSourceTrace(os.Stdout, vm.NewSourceManager()))
	case "":
		// no tracing
	default:
		return fmt.Errorf("unknown trace mode %q (want il or src)", traceStr)
	}

	res, rep := machine.Run(entry, nil)
	if rep != nil {
		fmt.Fprintf(os.Stderr, "%s %s: %s\n", red("trap"), rep.Code, rep.Message)
		return fmt.Errorf("run failed")
	}
	if res.IsPause() {
		fmt.Println(yellow("paused"))
		return nil
	}
	fmt.Printf("%s %d\n", green("=>"), res.I64())
	return nil
}

// cmdDebug drives a paused vm.VM through the interactive liner-backed
// debugconsole, or — given --script — replays a debugscript.Script
// non-interactively, for reproducible break/step/print regression runs.
func cmdDebug(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: il debug <file.il> [--entry name] [--script steps.yaml]")
	}
	path := args[0]
	entry, scriptPath := "main", ""
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--entry":
			i++
			if i < len(args) {
				entry = args[i]
			}
		case "--script":
			i++
			if i < len(args) {
				scriptPath = args[i]
			}
		}
	}

	mod, err := parseModuleFile(path)
	if err != nil {
		return err
	}
	if reps := ilverify.Verify(mod); len(reps) > 0 {
		printReports(reps)
		return fmt.Errorf("%d verification error(s)", len(reps))
	}

	machine := vm.NewVM(mod, vm.NewBridge(), vm.LimitsFromEnv(), vm.DispatchTable)
	console := debugconsole.New(machine, vm.NewDebugger(), entry, nil)

	if scriptPath == "" {
		console.Start(os.Stdin, os.Stdout)
		return nil
	}
	data, err := os.ReadFile(scriptPath)
	if err != nil {
		return err
	}
	script, err := debugscript.Load(data)
	if err != nil {
		return fmt.Errorf("parsing debug script: %w", err)
	}
	console.RunScript(script, os.Stdout)
	return nil
}
