package ilanalysis

import "vil/internal/il"

// Manager memoizes per-function analyses across a sequence of transform
// passes, invalidating the cache only for functions a pass reports having
// changed. Passes do not declare preserved analyses: every cached analysis
// of a changed function, its CFG included, is dropped.
type Manager struct {
	// Module is the owning module, bound once per RunModule call, so
	// call-site ModRef classification can consult callee attribute bundles.
	Module *il.Module

	cfg  map[string]*CFG
	dom  map[string]*DominatorTree
	loop map[string]*LoopInfo
	aa   map[string]*BasicAA
}

// NewManager returns an empty analysis manager.
func NewManager() *Manager {
	return &Manager{
		cfg:  map[string]*CFG{},
		dom:  map[string]*DominatorTree{},
		loop: map[string]*LoopInfo{},
		aa:   map[string]*BasicAA{},
	}
}

// Bind attaches the owning module, enabling callee-attribute-aware ModRef
// queries for the lifetime of this Manager.
func (m *Manager) Bind(mod *il.Module) { m.Module = mod }

// Invalidate drops every cached analysis for fn, forcing recomputation on
// next access. Called by the pass manager after every pass that reports
// it changed fn.
func (m *Manager) Invalidate(fn string) {
	delete(m.cfg, fn)
	delete(m.dom, fn)
	delete(m.loop, fn)
	delete(m.aa, fn)
}

// CFG returns the cached (or freshly built) control-flow graph for f.
func (m *Manager) CFG(f *il.Function) *CFG {
	if c, ok := m.cfg[f.Name]; ok {
		return c
	}
	c := BuildCFG(f)
	m.cfg[f.Name] = c
	return c
}

// Dominators returns the cached (or freshly built) dominator tree for f.
func (m *Manager) Dominators(f *il.Function) *DominatorTree {
	if d, ok := m.dom[f.Name]; ok {
		return d
	}
	d := BuildDominatorTree(m.CFG(f))
	m.dom[f.Name] = d
	return d
}

// Loops returns the cached (or freshly built) loop info for f.
func (m *Manager) Loops(f *il.Function) *LoopInfo {
	if l, ok := m.loop[f.Name]; ok {
		return l
	}
	l := FindLoops(m.CFG(f), m.Dominators(f))
	m.loop[f.Name] = l
	return l
}

// Alias returns the cached (or freshly built) alias analysis for f.
func (m *Manager) Alias(f *il.Function) *BasicAA {
	if a, ok := m.aa[f.Name]; ok {
		return a
	}
	a := NewBasicAA(f)
	m.aa[f.Name] = a
	return a
}
