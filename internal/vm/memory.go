package vm

import "vil/internal/il"

// Memory is a flat, bump-allocated byte arena backing every alloca in a VM
// run. Addresses are 1-based byte offsets into buf; address 0 is always the
// null pointer.
//
// There is deliberately no free list — allocas live for the run's duration
// — since the memory model only needs alloca/load/store/ptr_add to behave
// consistently and bounds-check, not to reclaim.
type Memory struct {
	buf   []byte
	sizes map[uint64]int // allocation start address -> size in bytes, read by doStore for the write width
}

func newMemory() *Memory {
	return &Memory{buf: make([]byte, 1, 4096), sizes: map[uint64]int{}}
}

// byteWidth returns the in-memory size of t, used to size an alloca's
// element and to bounds-check load/store.
func byteWidth(t il.Type) int {
	switch t {
	case il.I1:
		return 1
	case il.I32:
		return 4
	case il.I64, il.F64, il.Ptr, il.Str, il.ErrorT, il.ResumeTok:
		return 8
	default:
		return 8
	}
}

// Alloc reserves size bytes and returns the address of the first byte.
func (m *Memory) Alloc(size int) uint64 {
	if size <= 0 {
		size = 1
	}
	addr := uint64(len(m.buf))
	m.buf = append(m.buf, make([]byte, size)...)
	m.sizes[addr] = size
	return addr
}

// StoreBytes copies data verbatim into an allocation starting at addr, used
// to materialize a Global's initializer at VM construction time.
func (m *Memory) StoreBytes(addr uint64, data []byte) {
	copy(m.buf[int(addr):], data)
}

// bounds reports whether addr is non-null and the byte range
// [addr, addr+width) lies inside the arena. It does not check that the
// range stays within a single allocation.
func (m *Memory) bounds(addr uint64, width int) bool {
	if addr == 0 {
		return false
	}
	if addr+uint64(width) > uint64(len(m.buf)) {
		return false
	}
	return true
}

func (m *Memory) Load(addr uint64, t il.Type) (Slot, bool) {
	w := byteWidth(t)
	if !m.bounds(addr, w) {
		return Slot{}, false
	}
	var raw uint64
	for i := 0; i < w; i++ {
		raw |= uint64(m.buf[int(addr)+i]) << (8 * i)
	}
	return Slot{bits: raw}, true
}

func (m *Memory) Store(addr uint64, t il.Type, v Slot) bool {
	return m.StoreWidth(addr, byteWidth(t), v)
}

// StoreWidth writes v's low width bytes at addr, used when the caller
// knows the allocation's byte width directly rather than its IL type (the
// `store` opcode carries no explicit type annotation — see vm/ops.go
// doStore).
func (m *Memory) StoreWidth(addr uint64, width int, v Slot) bool {
	if !m.bounds(addr, width) {
		return false
	}
	raw := v.bits
	for i := 0; i < width; i++ {
		m.buf[int(addr)+i] = byte(raw >> (8 * i))
	}
	return true
}
