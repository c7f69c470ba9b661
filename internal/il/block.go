package il

// Param is a function or block parameter. Block parameters receive their
// value from each predecessor's branch arguments instead of a phi node,
// which keeps "where does this value come from" a property of the edge
// rather than of a separate instruction kind.
type Param struct {
	Name  string
	Type  Type
	ID    uint64
	Attrs ParamAttrs
}

// BasicBlock is a labeled, non-empty, singly-terminated instruction
// sequence. "Terminated" is not stored as a field — a Go slice makes "last
// instruction is a terminator" a cheap derived query, and the verifier is
// the place that actually needs to check it.
type BasicBlock struct {
	Label string

	// IsHandler marks a block entered via the EH handler-stack, printed
	// with the "handler" keyword and a leading '^' on its label.
	IsHandler bool

	Params []Param
	Instrs []Instr

	// EHSensitive caches whether this block participates in exception
	// handling (is a handler, or pushes/pops/enters one) — stamped by
	// ilanalysis.StampEHSensitivity and consulted by SimplifyCFG so it never
	// merges or redirects control flow through an EH-relevant block.
	EHSensitive bool
}

// Terminator returns the block's final instruction, or nil if the block is
// empty (a verifier error by itself, but the accessor must not panic so the
// verifier can report it cleanly).
func (b *BasicBlock) Terminator() *Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	return &b.Instrs[len(b.Instrs)-1]
}

// Successors returns the terminator's successor labels, or nil if the block
// is empty or unterminated.
func (b *BasicBlock) Successors() []string {
	term := b.Terminator()
	if term == nil {
		return nil
	}
	return term.Succs
}
