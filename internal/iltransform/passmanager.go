// Package iltransform implements the IL optimization passes: constant
// folding, peephole simplification, dead store elimination, and CFG
// simplification, plus the pass manager that sequences them and keeps
// ilanalysis's cache honest.
package iltransform

import (
	"vil/internal/il"
	"vil/internal/ilanalysis"
)

// Pass is one optimization pass. Changed reports whether it modified fn, so
// the Manager knows whether to invalidate fn's cached analyses and whether
// to re-run the pipeline (a fixed-point driver re-runs until no pass
// reports a change or an iteration cap is hit).
type Pass interface {
	Name() string
	Run(fn *il.Function, am *ilanalysis.Manager) (changed bool)
}

// Manager sequences passes over every function in a module, re-running to a
// fixed point (bounded, to guarantee termination on pathological input).
type Manager struct {
	Passes   []Pass
	MaxRound int
}

// NewManager returns a pass manager running the standard pipeline in the
// order that lets each pass feed the next: constant folding exposes
// peephole opportunities, peephole exposes dead stores and collapsible
// branches, DSE exposes further CFG simplification.
func NewManager() *Manager {
	return &Manager{
		Passes: []Pass{
			&ConstFold{},
			&Peephole{},
			&DSE{},
			&SimplifyCFG{},
		},
		MaxRound: 8,
	}
}

// RunModule runs the pipeline over every function in m to a fixed point.
func (pm *Manager) RunModule(m *il.Module) {
	for i := range m.Functions {
		pm.RunFunction(m, &m.Functions[i])
	}
}

// RunFunction runs the pipeline over fn to a fixed point or MaxRound
// iterations, whichever comes first. mod is the owning module, bound to the
// analysis manager so call-site ModRef queries can consult callee
// attributes; it may be nil for standalone function-level testing.
func (pm *Manager) RunFunction(mod *il.Module, fn *il.Function) {
	if !fn.IsDefined() {
		return
	}
	am := ilanalysis.NewManager()
	am.Bind(mod)
	ilanalysis.StampEHSensitivity(fn)
	for round := 0; round < pm.MaxRound; round++ {
		anyChanged := false
		for _, p := range pm.Passes {
			if p.Run(fn, am) {
				anyChanged = true
				am.Invalidate(fn.Name)
				ilanalysis.StampEHSensitivity(fn)
			}
		}
		if !anyChanged {
			return
		}
	}
}
