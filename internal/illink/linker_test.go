package illink

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vil/internal/il"
	"vil/internal/ilfmt"
)

const moduleA = `il 0.1
target "x86_64-linux"
func import @helper(x: i64) -> i64
func @double(x: i64) -> i64 {
entry:
  %r = imul.ovf %x, 2
  ret %r
}
func export @main() -> i64 {
entry:
  %h = call @helper(21)
  %d = call @double(%h)
  ret %d
}
`

const moduleB = `il 0.1
target "x86_64-linux"
func export @helper(x: i64) -> i64 {
entry:
  %d = call @double(%x)
  ret %d
}
func @double(x: i64) -> i64 {
entry:
  %r = iadd.ovf %x, %x
  ret %r
}
`

func parseOrFatal(t *testing.T, src, name string) *il.Module {
	t.Helper()
	m, err := ilfmt.Parse([]byte(src), name)
	require.NoError(t, err, "parse %s", name)
	return m
}

func funcNames(m *il.Module) []string {
	names := make([]string, len(m.Functions))
	for i, f := range m.Functions {
		names[i] = f.Name
	}
	return names
}

func TestLinkRenamesCollisionAndRewritesCalls(t *testing.T) {
	a := parseOrFatal(t, moduleA, "a.il")
	b := parseOrFatal(t, moduleB, "b.il")

	merged, diags := Link([]*il.Module{a, b})
	require.Empty(t, diags, "unexpected diagnostics")

	require.NotNil(t, merged.FindFunction("main"), "merged module missing @main")
	require.NotNil(t, merged.FindFunction("double"), "merged module missing entry module's @double")
	renamed := merged.FindFunction("m1$double")
	require.NotNilf(t, renamed, "expected module B's colliding @double renamed to m1$double, functions: %v", funcNames(merged))

	helperFn := merged.FindFunction("helper")
	require.NotNil(t, helperFn, "merged module missing @helper")
	entry := helperFn.Block("entry")
	require.NotNil(t, entry, "helper entry block missing")
	require.NotEmpty(t, entry.Instrs, "helper entry block missing")
	require.Equal(t, "m1$double", entry.Instrs[0].Callee, "helper's call to its own @double should have been rewritten")

	mainFn := merged.FindFunction("main")
	mainEntry := mainFn.Block("entry")
	require.Equal(t, "helper", mainEntry.Instrs[0].Callee, "main's call to the resolved import should target @helper directly")
}

const moduleAInitOnly = `il 0.1
target "x86_64-linux"
func export @main() -> i64 {
entry:
  ret 0
}
`

const moduleBWithInit = `il 0.1
target "x86_64-linux"
func @mod$init() -> void {
entry:
  ret
}
`

func TestLinkInjectsModuleInitCalls(t *testing.T) {
	a := parseOrFatal(t, moduleAInitOnly, "a.il")
	b := parseOrFatal(t, moduleBWithInit, "b.il")

	merged, diags := Link([]*il.Module{a, b})
	require.Empty(t, diags, "unexpected diagnostics")

	mainFn := merged.FindFunction("main")
	require.NotNil(t, mainFn, "missing @main")
	entry := mainFn.Block("entry")
	require.GreaterOrEqualf(t, len(entry.Instrs), 2, "expected an injected init call before the original body, got %+v", entry.Instrs)
	require.Equal(t, "mod$init", entry.Instrs[0].Callee, "expected first instruction to call mod$init")
}

const moduleABoolImport = `il 0.1
target "x86_64-linux"
func import @flag() -> i1
func export @main() -> i64 {
entry:
  %f = call @flag()
  %r = zext1 %f
  ret %r
}
`

const moduleBBoolExport = `il 0.1
target "x86_64-linux"
func export @flag() -> i64 {
entry:
  ret 1
}
`

func TestLinkGeneratesBoolThunkForMismatchedReturn(t *testing.T) {
	a := parseOrFatal(t, moduleABoolImport, "a.il")
	b := parseOrFatal(t, moduleBBoolExport, "b.il")

	merged, diags := Link([]*il.Module{a, b})
	require.Empty(t, diags, "unexpected diagnostics")

	thunk := merged.FindFunction("flag$bool_thunk")
	require.NotNilf(t, thunk, "expected a generated flag$bool_thunk, functions: %v", funcNames(merged))
	require.Equal(t, il.I1, thunk.RetType, "thunk must keep the import's declared i1 return type")

	mainFn := merged.FindFunction("main")
	entry := mainFn.Block("entry")
	require.Equal(t, "flag$bool_thunk", entry.Instrs[0].Callee, "expected call rewritten to flag$bool_thunk")
}

func TestLinkNoEntryModule(t *testing.T) {
	b := parseOrFatal(t, moduleBWithInit, "b.il")
	_, diags := Link([]*il.Module{b})
	require.NotEmpty(t, diags, "expected LNK001 diagnostic for missing entry module")
	require.Equal(t, "LNK001", diags[0].Code)
}

func TestLinkMultipleEntryModules(t *testing.T) {
	a := parseOrFatal(t, moduleAInitOnly, "a.il")
	a2 := parseOrFatal(t, moduleAInitOnly, "a2.il")
	_, diags := Link([]*il.Module{a, a2})
	require.NotEmpty(t, diags, "expected LNK002 for two entry modules")
	require.Equal(t, "LNK002", diags[0].Code)
}
