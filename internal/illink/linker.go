package illink

import (
	"fmt"
	"path/filepath"
	"sort"

	"vil/internal/il"
	"vil/internal/ilerrors"
)

// matchesInit reports whether name matches one of c's init-function glob
// patterns.
func (c *Config) matchesInit(name string) bool {
	for _, pat := range c.InitPatterns {
		if ok, _ := filepath.Match(pat, name); ok {
			return true
		}
	}
	return false
}

type exportRef struct {
	fn *il.Function
}

type importResolution struct {
	target     string // merged-module name of the actual callee
	useThunk   bool
	impRet     il.Type
	impParams  []il.Type
	expRet     il.Type
	expParams  []il.Type
}

// Link merges mods into a single module, using the default
// init-function-pattern configuration.
func Link(mods []*il.Module) (*il.Module, []*ilerrors.Report) {
	return LinkWithConfig(mods, DefaultConfig())
}

// LinkWithConfig merges mods into a single module. It collects every
// diagnostic before returning rather than stopping at the first, so a
// caller gets the complete picture of what's wrong with its inputs in one
// pass; a non-empty diagnostic list means the returned module, if any,
// should not be trusted.
func LinkWithConfig(mods []*il.Module, cfg *Config) (*il.Module, []*ilerrors.Report) {
	if len(mods) == 0 {
		return nil, []*ilerrors.Report{ilerrors.New(ilerrors.LNK001, "no modules supplied to link")}
	}

	entryIdx, errRep := findEntryModule(mods)
	if errRep != nil {
		return nil, []*ilerrors.Report{errRep}
	}

	work := make([]*il.Module, len(mods))
	for i, m := range mods {
		work[i] = m.Clone()
	}

	var diags []*ilerrors.Report

	exports := buildExportIndex(work)

	used := map[string]bool{}
	for name := range exports {
		used[name] = true
	}
	for _, fn := range work[entryIdx].Functions {
		used[fn.Name] = true
	}

	// Step 5: rename colliding internal functions in non-entry modules and
	// rewrite their own call sites to match.
	for i, m := range work {
		if i == entryIdx {
			continue
		}
		rn := map[string]string{}
		for _, f := range m.Functions {
			if f.Linkage == il.Internal && used[f.Name] {
				rn[f.Name] = fmt.Sprintf("m%d$%s", i, f.Name)
			}
		}
		applyFunctionRenames(m, rn)
	}

	// Step 3: resolve imports against the export index, falling back to an
	// internal function of the same name in the entry module.
	importTarget := map[string]*importResolution{}
	for _, m := range work {
		for _, f := range m.Functions {
			if f.Linkage != il.Import {
				continue
			}
			if _, ok := importTarget[f.Name]; ok {
				continue
			}
			impParams := paramTypes(f.Params)
			var target *il.Function
			if exp, ok := exports[f.Name]; ok {
				target = exp.fn
			} else if entryFn := work[entryIdx].FindFunction(f.Name); entryFn != nil && entryFn.Linkage != il.Import {
				target = entryFn
			}
			if target == nil {
				diags = append(diags, ilerrors.New(ilerrors.LNK003,
					fmt.Sprintf("unresolved import @%s", f.Name)).WithData("import", f.Name))
				continue
			}
			expParams := paramTypes(target.Params)
			needsThunk, ok := boolMismatch(f.RetType, impParams, target.RetType, expParams)
			if !ok {
				diags = append(diags, ilerrors.New(ilerrors.LNK006,
					fmt.Sprintf("import @%s signature disagrees with export @%s beyond boolean representation",
						f.Name, target.Name)).WithData("import", f.Name).WithData("export", target.Name))
				continue
			}
			importTarget[f.Name] = &importResolution{
				target: target.Name, useThunk: needsThunk,
				impRet: f.RetType, impParams: impParams,
				expRet: target.RetType, expParams: expParams,
			}
		}
	}

	// Step 11: generate one thunk per distinct target requiring a bridge.
	thunksByTarget := map[string]il.Function{}
	for _, res := range importTarget {
		if !res.useThunk {
			continue
		}
		if _, ok := thunksByTarget[res.target]; ok {
			continue
		}
		thunksByTarget[res.target] = generateBoolThunk(res.target, res.impRet, res.impParams, res.expRet, res.expParams)
	}

	// Rewrite every call site across every module that targets a resolved
	// import name to call the thunk (if one was generated) or the actual
	// target directly.
	for _, m := range work {
		rewriteImportCalls(m, importTarget)
	}

	// Step 6: merge externs.
	mergedExterns, externDiags := mergeExterns(work)
	diags = append(diags, externDiags...)

	// Step 7: merge globals, prefixing non-entry collisions.
	mergedGlobals := mergeGlobals(work, entryIdx)

	// Step 8: collect init functions in input order, post-rename.
	initNames := collectInitFuncs(work, entryIdx, cfg)

	// Step 9: assemble functions — entry module first, others in input
	// order, imports dropped, thunks appended in deterministic (sorted)
	// order.
	var funcs []il.Function
	for _, f := range work[entryIdx].Functions {
		if f.Linkage != il.Import {
			funcs = append(funcs, f)
		}
	}
	for i, m := range work {
		if i == entryIdx {
			continue
		}
		for _, f := range m.Functions {
			if f.Linkage != il.Import {
				funcs = append(funcs, f)
			}
		}
	}
	thunkNames := make([]string, 0, len(thunksByTarget))
	for name := range thunksByTarget {
		thunkNames = append(thunkNames, name)
	}
	sort.Strings(thunkNames)
	for _, target := range thunkNames {
		funcs = append(funcs, thunksByTarget[target])
	}

	out := &il.Module{
		Version:   work[entryIdx].Version,
		Target:    work[entryIdx].Target,
		Externs:   mergedExterns,
		Globals:   mergedGlobals,
		Functions: funcs,
	}

	// Step 10: prepend init calls to main's entry block.
	for i := range out.Functions {
		if out.Functions[i].Name == "main" {
			injectInitCalls(&out.Functions[i], initNames)
			break
		}
	}

	return out, diags
}

func findEntryModule(mods []*il.Module) (int, *ilerrors.Report) {
	idx := -1
	count := 0
	for i, m := range mods {
		if fn := m.FindFunction("main"); fn != nil && fn.Linkage != il.Import {
			count++
			idx = i
		}
	}
	switch {
	case count == 0:
		return 0, ilerrors.New(ilerrors.LNK001, "no module defines a non-import @main")
	case count > 1:
		return 0, ilerrors.New(ilerrors.LNK002, "multiple modules define a non-import @main")
	default:
		return idx, nil
	}
}

func buildExportIndex(work []*il.Module) map[string]exportRef {
	idx := map[string]exportRef{}
	for _, m := range work {
		for fi := range m.Functions {
			f := &m.Functions[fi]
			if f.Linkage == il.Export {
				idx[f.Name] = exportRef{fn: f}
			}
		}
	}
	return idx
}

func paramTypes(params []il.Param) []il.Type {
	out := make([]il.Type, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}

// applyFunctionRenames renames every function in m named by a key in rn,
// and rewrites every OpCall in m targeting a renamed callee, so recursive
// and intra-module calls stay consistent.
func applyFunctionRenames(m *il.Module, rn map[string]string) {
	if len(rn) == 0 {
		return
	}
	for i := range m.Functions {
		f := &m.Functions[i]
		if newName, ok := rn[f.Name]; ok {
			f.Name = newName
		}
	}
	for i := range m.Functions {
		for bi := range m.Functions[i].Blocks {
			instrs := m.Functions[i].Blocks[bi].Instrs
			for ii := range instrs {
				if instrs[ii].Op == il.OpCall {
					if newName, ok := rn[instrs[ii].Callee]; ok {
						instrs[ii].Callee = newName
					}
				}
			}
		}
	}
}

// rewriteImportCalls redirects every call to a resolved import name, in
// every function of m, to the thunk (if one was generated for its target)
// or the target directly.
func rewriteImportCalls(m *il.Module, importTarget map[string]*importResolution) {
	for i := range m.Functions {
		for bi := range m.Functions[i].Blocks {
			instrs := m.Functions[i].Blocks[bi].Instrs
			for ii := range instrs {
				if instrs[ii].Op != il.OpCall {
					continue
				}
				res, ok := importTarget[instrs[ii].Callee]
				if !ok {
					continue
				}
				if res.useThunk {
					instrs[ii].Callee = thunkName(res.target)
				} else {
					instrs[ii].Callee = res.target
				}
			}
		}
	}
}

func mergeExterns(work []*il.Module) ([]il.Extern, []*ilerrors.Report) {
	var diags []*ilerrors.Report
	var out []il.Extern
	seen := map[string]int{}
	for _, m := range work {
		for _, e := range m.Externs {
			if idx, ok := seen[e.Name]; ok {
				if !out[idx].SignatureEquals(e) {
					diags = append(diags, ilerrors.New(ilerrors.LNK004,
						fmt.Sprintf("extern @%s signature mismatch across modules", e.Name)).
						WithData("extern", e.Name))
				}
				continue
			}
			seen[e.Name] = len(out)
			out = append(out, e)
		}
	}
	return out, diags
}

// mergeGlobals merges every module's globals, prefixing a non-entry
// module's global with its module prefix when its name collides with an
// already-registered global, and rewriting that module's own global
// references to match.
func mergeGlobals(work []*il.Module, entryIdx int) []il.Global {
	var out []il.Global
	seen := map[string]bool{}

	order := []int{entryIdx}
	for i := range work {
		if i != entryIdx {
			order = append(order, i)
		}
	}

	for _, i := range order {
		m := work[i]
		rn := map[string]string{}
		for _, g := range m.Globals {
			if seen[g.Name] && i != entryIdx {
				newName := fmt.Sprintf("m%d$%s", i, g.Name)
				rn[g.Name] = newName
				g.Name = newName
			}
			seen[g.Name] = true
			out = append(out, g)
		}
		applyGlobalRenames(m, rn)
	}
	return out
}

func applyGlobalRenames(m *il.Module, rn map[string]string) {
	if len(rn) == 0 {
		return
	}
	for i := range m.Functions {
		for bi := range m.Functions[i].Blocks {
			instrs := m.Functions[i].Blocks[bi].Instrs
			for ii := range instrs {
				rewriteGlobalOperands(&instrs[ii], rn)
			}
		}
	}
}

func rewriteGlobalOperands(instr *il.Instr, rn map[string]string) {
	for i, v := range instr.Operands {
		if v.Kind == il.VGlobal {
			if nn, ok := rn[v.Global]; ok {
				instr.Operands[i].Global = nn
			}
		}
	}
	for ai := range instr.Args {
		for j, v := range instr.Args[ai] {
			if v.Kind == il.VGlobal {
				if nn, ok := rn[v.Global]; ok {
					instr.Args[ai][j].Global = nn
				}
			}
		}
	}
}

// collectInitFuncs gathers the (post-rename) names of every non-entry
// module's non-import function matching cfg's init-function patterns, in
// input order.
func collectInitFuncs(work []*il.Module, entryIdx int, cfg *Config) []string {
	var names []string
	for i, m := range work {
		if i == entryIdx {
			continue
		}
		for _, f := range m.Functions {
			if f.Linkage == il.Import {
				continue
			}
			if cfg.matchesInit(f.Name) {
				names = append(names, f.Name)
			}
		}
	}
	return names
}

// injectInitCalls prepends a void-returning call to each name in initNames,
// in order, to fn's entry block.
func injectInitCalls(fn *il.Function, initNames []string) {
	if len(fn.Blocks) == 0 || len(initNames) == 0 {
		return
	}
	calls := make([]il.Instr, len(initNames))
	for i, name := range initNames {
		calls[i] = il.Instr{Op: il.OpCall, Callee: name}
	}
	fn.Blocks[0].Instrs = append(calls, fn.Blocks[0].Instrs...)
}
