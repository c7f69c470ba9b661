package iltransform

import (
	"testing"

	"vil/internal/ilanalysis"
	"vil/internal/ilfmt"
)

const deadStoreSample = `il 0.1
target "x86_64-linux"
func @f() -> i64 {
entry:
  %p = alloca i64
  store %p, 1
  store %p, 2
  %v = load %p
  ret %v
}
`

func TestDSEEliminatesOverwrittenStore(t *testing.T) {
	m, err := ilfmt.Parse([]byte(deadStoreSample), "sample.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fn := m.FindFunction("f")
	ilanalysis.StampEHSensitivity(fn)
	am := ilanalysis.NewManager()
	d := &DSE{}
	if !d.Run(fn, am) {
		t.Fatalf("expected the first store to be eliminated")
	}
	entry := fn.Block("entry")
	storeCount := 0
	for _, instr := range entry.Instrs {
		if instr.Op.String() == "store" {
			storeCount++
		}
	}
	if storeCount != 1 {
		t.Fatalf("expected exactly one surviving store, got %d in %+v", storeCount, entry.Instrs)
	}
}

const liveStoreSample = `il 0.1
target "x86_64-linux"
func @f() -> i64 {
entry:
  %p = alloca i64
  store %p, 1
  %v = load %p
  store %p, 2
  %w = load %p
  ret %w
}
`

func TestDSEKeepsStoreReadBeforeOverwrite(t *testing.T) {
	m, err := ilfmt.Parse([]byte(liveStoreSample), "sample.il")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fn := m.FindFunction("f")
	ilanalysis.StampEHSensitivity(fn)
	am := ilanalysis.NewManager()
	d := &DSE{}
	d.Run(fn, am)

	entry := fn.Block("entry")
	storeCount := 0
	for _, instr := range entry.Instrs {
		if instr.Op.String() == "store" {
			storeCount++
		}
	}
	if storeCount != 2 {
		t.Fatalf("expected both stores to survive since each is read before the next overwrite, got %d", storeCount)
	}
}
