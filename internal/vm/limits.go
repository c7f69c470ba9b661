package vm

import (
	"os"
	"strconv"
)

// Limits bounds the interpreter's resource usage: recursion depth,
// cooperative-cancellation granularity, and the sizes of the frame/stack
// free lists.
type Limits struct {
	// MaxRecursion caps the execution stack's frame count (default 1000).
	MaxRecursion int
	// InterruptPeriod is how many instructions run between cooperative
	// cancellation checkpoints (default 10000).
	InterruptPeriod int
	// RegPoolSize is loaded from VIL_REG_POOL (default 16) but no pool
	// reads it: register files are recycled together with their Frames
	// through the frame pool, which StackPoolSize bounds.
	RegPoolSize int
	// StackPoolSize bounds the stack-buffer free list (default 8).
	StackPoolSize int
}

// DefaultLimits returns the interpreter's built-in resource-limit defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxRecursion:    1000,
		InterruptPeriod: 10000,
		RegPoolSize:     16,
		StackPoolSize:   8,
	}
}

// LimitsFromEnv loads Limits from VIL_MAX_RECURSION, VIL_INTERRUPT_PERIOD,
// VIL_REG_POOL, and VIL_STACK_POOL, falling back to DefaultLimits for any
// variable that is unset or fails to parse as a positive integer.
func LimitsFromEnv() Limits {
	l := DefaultLimits()
	l.MaxRecursion = envInt("VIL_MAX_RECURSION", l.MaxRecursion)
	l.InterruptPeriod = envInt("VIL_INTERRUPT_PERIOD", l.InterruptPeriod)
	l.RegPoolSize = envInt("VIL_REG_POOL", l.RegPoolSize)
	l.StackPoolSize = envInt("VIL_STACK_POOL", l.StackPoolSize)
	return l
}

func envInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
