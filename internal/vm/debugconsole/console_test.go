package debugconsole

import (
	"bytes"
	"strings"
	"testing"

	"vil/internal/ilfmt"
	"vil/internal/vm"
	"vil/internal/vm/debugscript"
)

const stepSample = `il 0.1
target "x86_64-linux"
func @main() -> i64 {
entry:
  %a = iadd.ovf 1, 2
  %b = iadd.ovf %a, 3
  ret %b
}
`

func TestRunScriptStepsAndReturns(t *testing.T) {
	m, err := ilfmt.Parse([]byte(stepSample), "step.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	machine := vm.NewVM(m, vm.NewBridge(), vm.DefaultLimits(), vm.DispatchTable)
	console := New(machine, vm.NewDebugger(), "main", nil)

	script, err := debugscript.Load([]byte(`
steps:
  - kind: step
    count: 2
  - kind: print
    reg: 0
  - kind: continue
`))
	if err != nil {
		t.Fatalf("load script: %v", err)
	}

	var out bytes.Buffer
	console.RunScript(script, &out)

	got := out.String()
	if !strings.Contains(got, "paused") {
		t.Fatalf("expected a paused line from the step command, got:\n%s", got)
	}
	if !strings.Contains(got, "returned 6") {
		t.Fatalf("expected the continue to finish the run with 6, got:\n%s", got)
	}
}

func TestRunScriptBreakLabel(t *testing.T) {
	m, err := ilfmt.Parse([]byte(stepSample), "step.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	machine := vm.NewVM(m, vm.NewBridge(), vm.DefaultLimits(), vm.DispatchTable)
	console := New(machine, vm.NewDebugger(), "main", nil)

	script, err := debugscript.Load([]byte(`
steps:
  - kind: break-label
    function: main
    block: entry
  - kind: continue
  - kind: backtrace
`))
	if err != nil {
		t.Fatalf("load script: %v", err)
	}

	var out bytes.Buffer
	console.RunScript(script, &out)
	if !strings.Contains(out.String(), "paused") {
		t.Fatalf("expected the label breakpoint to pause execution, got:\n%s", out.String())
	}
}
