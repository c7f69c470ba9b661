// Package vm implements the register-style IL interpreter: three
// interchangeable dispatch strategies over a shared opcode-handler table, a
// pre-resolved-operand cache, cooperative-scheduled call frames,
// block-argument SSA semantics, a tracing sink, a debug controller, and a
// runtime bridge to C-ABI extern functions.
package vm

import "math"

// Slot is a register: one 64-bit payload, i64 and f64 views bit-cast over
// the same bits. The VM never tags a Slot with a runtime type — every read
// site already knows the static IL type of the value it is reading (the
// instruction's or parameter's declared type), so a typed read just
// chooses which field to decode.
type Slot struct {
	bits uint64
}

// I64Slot packs a signed 64-bit integer (also used for i32 and i1: booleans
// are stored as 0/1 in the i64 field).
func I64Slot(v int64) Slot { return Slot{bits: uint64(v)} }

// F64Slot packs an IEEE-754 double by bit-casting, never by conversion.
func F64Slot(v float64) Slot { return Slot{bits: math.Float64bits(v)} }

// BoolSlot packs a boolean as the i64 values 0 or 1.
func BoolSlot(b bool) Slot {
	if b {
		return I64Slot(1)
	}
	return I64Slot(0)
}

// AddrSlot packs a raw address: used for ptr, str (string-handle id),
// error, and resume_tok payloads alike, since all four are opaque
// addresses at the slot level.
func AddrSlot(addr uint64) Slot { return Slot{bits: addr} }

// NullSlot is the null pointer value.
func NullSlot() Slot { return Slot{bits: 0} }

func (s Slot) I64() int64      { return int64(s.bits) }
func (s Slot) I32() int32      { return int32(int64(s.bits)) }
func (s Slot) Bool() bool      { return s.bits != 0 }
func (s Slot) F64() float64    { return math.Float64frombits(s.bits) }
func (s Slot) Addr() uint64    { return s.bits }
func (s Slot) IsNull() bool    { return s.bits == 0 }
func (s Slot) RawBits() uint64 { return s.bits }

// pauseBits is the sentinel bit pattern PauseSlot carries: the top bit set
// plus 'PAUS' in the low 32 bits. Slots carry no type tag, so an i64 or
// f64 value with exactly this bit pattern also reports IsPause.
const pauseBits uint64 = 1<<63 | 0x50415553 // 'PAUS' tagged into the low word

// PauseSlot is returned by the VM's step loop when a breakpoint or step
// budget fires mid-execution.
func PauseSlot() Slot { return Slot{bits: pauseBits} }

// IsPause reports whether s is the debug-pause sentinel.
func (s Slot) IsPause() bool { return s.bits == pauseBits }
