package ilfmt

import (
	"vil/internal/il"
	"vil/internal/ilerrors"
)

// parseInstr parses one non-terminator-or-terminator instruction, including
// an optional "%name[:type] = " result binding.
func (p *parser) parseInstr(fs *funcState, pendingLoc **ilerrors.SourceLoc) (il.Instr, error) {
	var instr il.Instr
	if *pendingLoc != nil {
		instr.Loc = **pendingLoc
	}

	var resultName string
	var haveResult bool
	var annotatedType il.Type
	var haveAnnotation bool

	if p.cur.Kind == TPercent {
		if err := p.advance(); err != nil { // '%'
			return instr, err
		}
		name, err := p.expect(TIdent, ilerrors.SYN005, "result name")
		if err != nil {
			return instr, err
		}
		if p.cur.Kind == TLBracket {
			if err := p.advance(); err != nil {
				return instr, err
			}
			if _, err := p.expect(TColon, ilerrors.SYN005, "':'"); err != nil {
				return instr, err
			}
			ty, err := p.parseType()
			if err != nil {
				return instr, err
			}
			annotatedType = ty
			haveAnnotation = true
			if _, err := p.expect(TRBracket, ilerrors.SYN005, "']'"); err != nil {
				return instr, err
			}
		}
		// A bare "%name" can only appear here as a result binding — no
		// instruction form begins with a lone operand — so '=' is required.
		if _, err := p.expect(TEquals, ilerrors.SYN005, "'='"); err != nil {
			return instr, err
		}
		resultName = name.Text
		haveResult = true
	}

	if p.cur.Kind != TIdent {
		return instr, p.errf(ilerrors.SYN005, "expected opcode, found %q", p.cur.Text)
	}
	opName := p.cur.Text
	op, ok := il.ParseOpcode(opName)
	if !ok {
		return instr, p.errf(ilerrors.SYN001, "unknown opcode %q", opName)
	}
	instr.Op = op
	if err := p.advance(); err != nil {
		return instr, err
	}

	if haveResult {
		if !op.HasResult() {
			return instr, p.errf(ilerrors.VER003, "opcode %q does not produce a result", opName)
		}
		id := fs.resolve(resultName)
		instr.HasResultID = true
		instr.ResultID = id
		instr.ResultName = resultName
		if haveAnnotation {
			instr.ResultType = annotatedType
		} else if dt, ok := op.DefaultResultType(); ok {
			instr.ResultType = dt
		} else {
			// call/load without an annotation: the real type needs module
			// context (the callee's signature) that isn't available until
			// the whole module is parsed. Void marks it for
			// resolveResultTypes, since no result-bearing opcode legally
			// produces void.
			instr.ResultType = il.Void
		}
	} else if op.HasResult() {
		// Result is unnamed but still gets a fresh temp id so later
		// instructions could reference %tN — matches the serializer's
		// dump form for anonymous temporaries.
		id := fs.nextTempID
		fs.nextTempID++
		instr.HasResultID = true
		instr.ResultID = id
		if dt, ok := op.DefaultResultType(); ok {
			instr.ResultType = dt
		} else {
			instr.ResultType = il.Void
		}
	}

	switch op {
	case il.OpBr:
		target, line, col, err := p.parseBranchTarget()
		if err != nil {
			return instr, err
		}
		args, err := p.parseOptionalArgList()
		if err != nil {
			return instr, err
		}
		instr.Succs = []string{target}
		instr.Args = [][]il.Value{args}
		fs.pendingBranches = append(fs.pendingBranches, pendingBranch{label: target, line: line, col: col})

	case il.OpCBr:
		cond, err := p.parseOperand()
		if err != nil {
			return instr, err
		}
		instr.Operands = []il.Value{cond}
		if _, err := p.expect(TComma, ilerrors.SYN005, "','"); err != nil {
			return instr, err
		}
		thenLabel, line1, col1, err := p.parseBranchTarget()
		if err != nil {
			return instr, err
		}
		thenArgs, err := p.parseOptionalArgList()
		if err != nil {
			return instr, err
		}
		if _, err := p.expect(TComma, ilerrors.SYN005, "','"); err != nil {
			return instr, err
		}
		elseLabel, line2, col2, err := p.parseBranchTarget()
		if err != nil {
			return instr, err
		}
		elseArgs, err := p.parseOptionalArgList()
		if err != nil {
			return instr, err
		}
		instr.Succs = []string{thenLabel, elseLabel}
		instr.Args = [][]il.Value{thenArgs, elseArgs}
		fs.pendingBranches = append(fs.pendingBranches,
			pendingBranch{label: thenLabel, line: line1, col: col1},
			pendingBranch{label: elseLabel, line: line2, col: col2})

	case il.OpSwitchI32:
		scrut, err := p.parseOperand()
		if err != nil {
			return instr, err
		}
		instr.Operands = []il.Value{scrut}
		if _, err := p.expect(TComma, ilerrors.SYN005, "','"); err != nil {
			return instr, err
		}
		defLabel, dline, dcol, err := p.parseBranchTarget()
		if err != nil {
			return instr, err
		}
		defArgs, err := p.parseOptionalArgList()
		if err != nil {
			return instr, err
		}
		instr.Succs = []string{defLabel}
		instr.Args = [][]il.Value{defArgs}
		fs.pendingBranches = append(fs.pendingBranches, pendingBranch{label: defLabel, line: dline, col: dcol})
		for p.cur.Kind == TComma {
			if err := p.advance(); err != nil {
				return instr, err
			}
			caseVal, err := p.expect(TInt, ilerrors.SYN009, "case constant")
			if err != nil {
				return instr, err
			}
			if _, err := p.expect(TArrow, ilerrors.SYN005, "'->'"); err != nil {
				return instr, err
			}
			label, line, col, err := p.parseBranchTarget()
			if err != nil {
				return instr, err
			}
			args, err := p.parseOptionalArgList()
			if err != nil {
				return instr, err
			}
			instr.SwitchCases = append(instr.SwitchCases, int32(caseVal.IntVal))
			instr.Succs = append(instr.Succs, label)
			instr.Args = append(instr.Args, args)
			fs.pendingBranches = append(fs.pendingBranches, pendingBranch{label: label, line: line, col: col})
		}

	case il.OpRet:
		if p.cur.Kind != TRBrace {
			isHeader, err := p.looksLikeBlockHeader()
			if err != nil {
				return instr, err
			}
			if !isHeader {
				v, err := p.parseOperand()
				if err != nil {
					return instr, err
				}
				instr.Operands = []il.Value{v}
			}
		}

	case il.OpTrap:
		// no operands

	case il.OpTrapKind:
		kind, err := p.expect(TIdent, ilerrors.SYN009, "trap kind identifier")
		if err != nil {
			return instr, err
		}
		instr.Callee = kind.Text

	case il.OpTrapFromErr:
		v, err := p.parseOperand()
		if err != nil {
			return instr, err
		}
		instr.Operands = []il.Value{v}

	case il.OpResumeSame, il.OpResumeNext:
		tok, err := p.parseOperand()
		if err != nil {
			return instr, err
		}
		instr.ResumeTok = tok

	case il.OpResumeLabel:
		tok, err := p.parseOperand()
		if err != nil {
			return instr, err
		}
		instr.ResumeTok = tok
		if _, err := p.expect(TComma, ilerrors.SYN005, "','"); err != nil {
			return instr, err
		}
		if _, err := p.expect(TCaret, ilerrors.SYN005, "'^'"); err != nil {
			return instr, err
		}
		target, line, col, err := p.parseBranchTargetIdent()
		if err != nil {
			return instr, err
		}
		instr.ResumeTarget = target
		fs.pendingBranches = append(fs.pendingBranches, pendingBranch{label: target, line: line, col: col})

	case il.OpEhPush:
		if _, err := p.expect(TCaret, ilerrors.SYN005, "'^'"); err != nil {
			return instr, err
		}
		label, line, col, err := p.parseBranchTargetIdent()
		if err != nil {
			return instr, err
		}
		instr.HandlerLabel = label
		fs.pendingBranches = append(fs.pendingBranches, pendingBranch{label: label, line: line, col: col})

	case il.OpEhPop, il.OpEhEntry:
		// no operands

	case il.OpCall:
		if _, err := p.expect(TAt, ilerrors.SYN005, "'@'"); err != nil {
			return instr, err
		}
		callee, err := p.expect(TIdent, ilerrors.SYN005, "callee name")
		if err != nil {
			return instr, err
		}
		instr.Callee = callee.Text
		args, err := p.parseOperandList()
		if err != nil {
			return instr, err
		}
		instr.Operands = args

	case il.OpConstStr:
		s, err := p.expect(TString, ilerrors.SYN009, "string literal")
		if err != nil {
			return instr, err
		}
		instr.Operands = []il.Value{il.ConstStr(s.Text)}

	case il.OpAlloca:
		ty, err := p.parseType()
		if err != nil {
			return instr, err
		}
		instr.ResultType = il.Ptr
		// Callee is unused by alloca otherwise; it carries the allocated
		// element type's mnemonic so the verifier and VM can size the slot.
		instr.Callee = ty.String()

	case il.OpLoad:
		ptr, err := p.parseOperand()
		if err != nil {
			return instr, err
		}
		instr.Operands = []il.Value{ptr}

	case il.OpStore:
		ptr, err := p.parseOperand()
		if err != nil {
			return instr, err
		}
		if _, err := p.expect(TComma, ilerrors.SYN005, "','"); err != nil {
			return instr, err
		}
		val, err := p.parseOperand()
		if err != nil {
			return instr, err
		}
		instr.Operands = []il.Value{ptr, val}

	case il.OpPtrAdd:
		ptr, err := p.parseOperand()
		if err != nil {
			return instr, err
		}
		if _, err := p.expect(TComma, ilerrors.SYN005, "','"); err != nil {
			return instr, err
		}
		off, err := p.parseOperand()
		if err != nil {
			return instr, err
		}
		instr.Operands = []il.Value{ptr, off}

	case il.OpZext1:
		v, err := p.parseOperand()
		if err != nil {
			return instr, err
		}
		instr.Operands = []il.Value{v}

	default:
		// Generic binary/unary arithmetic, bitwise, float, and comparison
		// opcodes: a bare comma-separated operand list (no enclosing
		// parens — matches the serializer's default-case printInstr form
		// "opcode op1, op2").
		ops, err := p.parseBareOperandList()
		if err != nil {
			return instr, err
		}
		instr.Operands = ops
	}

	return instr, nil
}

// parseOperand parses a single instruction operand: %temp, @global, an int
// or float literal, a string literal, or "null".
func (p *parser) parseOperand() (il.Value, error) {
	switch p.cur.Kind {
	case TPercent:
		if err := p.advance(); err != nil {
			return il.Value{}, err
		}
		name, err := p.expect(TIdent, ilerrors.SYN005, "temporary name")
		if err != nil {
			return il.Value{}, err
		}
		id := p.fs.resolve(name.Text)
		return il.Temp(id, name.Text), nil
	case TAt:
		if err := p.advance(); err != nil {
			return il.Value{}, err
		}
		name, err := p.expect(TIdent, ilerrors.SYN005, "global name")
		if err != nil {
			return il.Value{}, err
		}
		return il.GlobalRef(name.Text), nil
	case TInt:
		v := p.cur.IntVal
		return il.ConstI(v), p.advance()
	case TFloat:
		v := p.cur.FltVal
		return il.ConstF(v), p.advance()
	case TString:
		s := p.cur.Text
		return il.ConstStr(s), p.advance()
	case TIdent:
		if p.cur.Text == "null" {
			return il.Null(), p.advance()
		}
		return il.Value{}, p.errf(ilerrors.SYN009, "expected operand, found identifier %q", p.cur.Text)
	default:
		return il.Value{}, p.errf(ilerrors.SYN009, "expected operand, found %q", p.cur.Text)
	}
}

// parseBareOperandList parses one or more comma-separated operands with no
// enclosing parens, terminating naturally at the next token that isn't a
// comma (the next instruction, ".loc" directive, or block/function close).
func (p *parser) parseBareOperandList() ([]il.Value, error) {
	v, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	vals := []il.Value{v}
	for p.cur.Kind == TComma {
		if err := p.advance(); err != nil {
			return nil, err
		}
		v, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func (p *parser) parseOperandList() ([]il.Value, error) {
	if _, err := p.expect(TLParen, ilerrors.SYN005, "'('"); err != nil {
		return nil, err
	}
	var vals []il.Value
	for p.cur.Kind != TRParen {
		v, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		if p.cur.Kind == TComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return vals, p.advance()
}

func (p *parser) parseOptionalArgList() ([]il.Value, error) {
	if p.cur.Kind != TLParen {
		return nil, nil
	}
	return p.parseOperandList()
}

// parseBranchTargetIdent parses a bare label identifier (no '^' sigil
// consumed here — callers that need the sigil consume it themselves).
func (p *parser) parseBranchTargetIdent() (string, int, int, error) {
	line, col := p.cur.Line, p.cur.Col
	tok, err := p.expect(TIdent, ilerrors.SYN005, "block label")
	if err != nil {
		return "", 0, 0, err
	}
	return tok.Text, line, col, nil
}

// parseBranchTarget parses a branch successor label, which may be written
// bare ("then") or '^'-prefixed ("^handler") for EH targets; both forms
// resolve to the same label namespace.
func (p *parser) parseBranchTarget() (string, int, int, error) {
	if p.cur.Kind == TCaret {
		if err := p.advance(); err != nil {
			return "", 0, 0, err
		}
	}
	return p.parseBranchTargetIdent()
}
