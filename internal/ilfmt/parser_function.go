package ilfmt

import (
	"fmt"

	"vil/internal/il"
	"vil/internal/ilerrors"
)

// funcState is the per-function parse state: a temp-id map, the next-id
// counter, a per-block parameter-count table, and a pending-branch list
// resolved once the whole function body is parsed.
// It is scoped to a single parseFunction call and discarded (rolled back,
// in effect, since the module's Functions slice is only appended to on
// success) on any error.
type funcState struct {
	tempIDs    map[string]uint64
	nextTempID uint64
	valueNames map[uint64]string

	blockParamCount map[string]int

	pendingBranches []pendingBranch
}

type pendingBranch struct {
	label string
	line  int
	col   int
}

func newFuncState() *funcState {
	return &funcState{
		tempIDs:         map[string]uint64{},
		valueNames:      map[uint64]string{},
		blockParamCount: map[string]int{},
	}
}

func (fs *funcState) resolve(name string) uint64 {
	if id, ok := fs.tempIDs[name]; ok {
		return id
	}
	id := fs.nextTempID
	fs.nextTempID++
	fs.tempIDs[name] = id
	fs.valueNames[id] = name
	return id
}

func (p *parser) parseFunction() (il.Function, error) {
	var fn il.Function
	if err := p.advance(); err != nil { // 'func'
		return fn, err
	}
	fn.Linkage = il.Internal
	if p.atIdent("export") {
		fn.Linkage = il.Export
		if err := p.advance(); err != nil {
			return fn, err
		}
	} else if p.atIdent("import") {
		fn.Linkage = il.Import
		if err := p.advance(); err != nil {
			return fn, err
		}
	}
	if _, err := p.expect(TAt, ilerrors.SYN005, "'@'"); err != nil {
		return fn, err
	}
	name, err := p.expect(TIdent, ilerrors.SYN005, "function name")
	if err != nil {
		return fn, err
	}
	fn.Name = name.Text

	fs := newFuncState()
	p.fs = fs
	defer func() { p.fs = nil }()

	if _, err := p.expect(TLParen, ilerrors.SYN005, "'('"); err != nil {
		return fn, err
	}
	for p.cur.Kind != TRParen {
		pname, err := p.expect(TIdent, ilerrors.SYN005, "parameter name")
		if err != nil {
			return fn, err
		}
		if _, err := p.expect(TColon, ilerrors.SYN005, "':'"); err != nil {
			return fn, err
		}
		pty, err := p.parseType()
		if err != nil {
			return fn, err
		}
		if _, dup := fs.tempIDs[pname.Text]; dup {
			return fn, p.errf(ilerrors.SYN004, "duplicate parameter name %q", pname.Text)
		}
		id := fs.resolve(pname.Text)
		fn.Params = append(fn.Params, il.Param{Name: pname.Text, Type: pty, ID: id})
		if p.cur.Kind == TComma {
			if err := p.advance(); err != nil {
				return fn, err
			}
		}
	}
	if err := p.advance(); err != nil { // ')'
		return fn, err
	}
	if _, err := p.expect(TArrow, ilerrors.SYN005, "'->'"); err != nil {
		return fn, err
	}
	ret, err := p.parseType()
	if err != nil {
		return fn, err
	}
	fn.RetType = ret

	if p.cur.Kind != TLBrace {
		if fn.Linkage != il.Import {
			return fn, p.errf(ilerrors.VER007, "non-import function %q must have a body", fn.Name)
		}
		return fn, nil
	}
	if fn.Linkage == il.Import {
		return fn, p.errf(ilerrors.VER007, "import function %q must not have a body", fn.Name)
	}
	if err := p.advance(); err != nil { // '{'
		return fn, err
	}

	var pendingLoc *ilerrors.SourceLoc
	for p.cur.Kind != TRBrace {
		if p.cur.Kind == TDirective && p.cur.Text == ".loc" {
			loc, err := p.parseLocDirective()
			if err != nil {
				return fn, err
			}
			pendingLoc = &loc
			continue
		}
		blk, err := p.parseBlock(fs, &pendingLoc)
		if err != nil {
			return fn, err
		}
		for _, existing := range fn.Blocks {
			if existing.Label == blk.Label {
				return fn, p.errf(ilerrors.SYN003, "duplicate block label %q", blk.Label)
			}
		}
		fn.Blocks = append(fn.Blocks, blk)
	}
	if err := p.advance(); err != nil { // '}'
		return fn, err
	}
	if len(fn.Blocks) == 0 {
		return fn, p.errf(ilerrors.SYN005, "function %q must have at least one block", fn.Name)
	}

	for _, pb := range fs.pendingBranches {
		found := false
		for _, b := range fn.Blocks {
			if b.Label == pb.label {
				found = true
				break
			}
		}
		if !found {
			return fn, ilerrors.Wrap(ilerrors.New(ilerrors.SYN007,
				fmt.Sprintf("branch to undefined block %q", pb.label)).
				WithLoc(ilerrors.SourceLoc{File: p.file, Line: uint32(pb.line), Col: uint32(pb.col)}).
				WithFunc(fn.Name, ""))
		}
	}

	fn.ValueNames = fs.valueNames
	return fn, nil
}

func (p *parser) parseLocDirective() (ilerrors.SourceLoc, error) {
	if err := p.advance(); err != nil { // '.loc'
		return ilerrors.SourceLoc{}, err
	}
	fileID, err := p.expect(TInt, ilerrors.SYN009, "file id")
	if err != nil {
		return ilerrors.SourceLoc{}, err
	}
	line, err := p.expect(TInt, ilerrors.SYN009, "line")
	if err != nil {
		return ilerrors.SourceLoc{}, err
	}
	col, err := p.expect(TInt, ilerrors.SYN009, "column")
	if err != nil {
		return ilerrors.SourceLoc{}, err
	}
	return ilerrors.SourceLoc{
		File: fmt.Sprintf("%d", fileID.IntVal),
		Line: uint32(line.IntVal),
		Col:  uint32(col.IntVal),
	}, nil
}

// looksLikeBlockHeader reports whether the parser is positioned at the start
// of a new block (an identifier immediately followed by ':' or '(') rather
// than at an instruction. Opcodes are never themselves directly followed by
// '(' — call targets use "@name(args)" — so this one-token lookahead
// disambiguates the grammar without backtracking.
func (p *parser) looksLikeBlockHeader() (bool, error) {
	if p.atIdent("handler") {
		return true, nil
	}
	if p.cur.Kind != TIdent {
		return false, nil
	}
	next, err := p.peek()
	if err != nil {
		return false, err
	}
	return next.Kind == TColon || next.Kind == TLParen, nil
}

func (p *parser) parseBlock(fs *funcState, pendingLoc **ilerrors.SourceLoc) (il.BasicBlock, error) {
	var blk il.BasicBlock
	if p.atIdent("handler") {
		blk.IsHandler = true
		if err := p.advance(); err != nil {
			return blk, err
		}
		if _, err := p.expect(TCaret, ilerrors.SYN005, "'^'"); err != nil {
			return blk, err
		}
	}
	label, err := p.expect(TIdent, ilerrors.SYN005, "block label")
	if err != nil {
		return blk, err
	}
	blk.Label = label.Text

	if p.cur.Kind == TLParen {
		if err := p.advance(); err != nil {
			return blk, err
		}
		for p.cur.Kind != TRParen {
			pname, err := p.expect(TIdent, ilerrors.SYN005, "block parameter name")
			if err != nil {
				return blk, err
			}
			if _, err := p.expect(TColon, ilerrors.SYN005, "':'"); err != nil {
				return blk, err
			}
			pty, err := p.parseType()
			if err != nil {
				return blk, err
			}
			id := fs.resolve(pname.Text)
			blk.Params = append(blk.Params, il.Param{Name: pname.Text, Type: pty, ID: id})
			if p.cur.Kind == TComma {
				if err := p.advance(); err != nil {
					return blk, err
				}
			}
		}
		if err := p.advance(); err != nil { // ')'
			return blk, err
		}
	}
	if blk.IsHandler {
		if len(blk.Params) < 2 || blk.Params[0].Type != il.ErrorT || blk.Params[1].Type != il.ResumeTok {
			return blk, p.errf(ilerrors.VER012, "handler block %q must declare (error, resume_tok) parameter prefix", blk.Label)
		}
	}
	fs.blockParamCount[blk.Label] = len(blk.Params)

	if _, err := p.expect(TColon, ilerrors.SYN005, "':'"); err != nil {
		return blk, err
	}

	for {
		if p.cur.Kind == TRBrace {
			break
		}
		if p.cur.Kind == TDirective && p.cur.Text == ".loc" {
			loc, err := p.parseLocDirective()
			if err != nil {
				return blk, err
			}
			*pendingLoc = &loc
			continue
		}
		isHeader, err := p.looksLikeBlockHeader()
		if err != nil {
			return blk, err
		}
		if isHeader {
			break
		}
		instr, err := p.parseInstr(fs, pendingLoc)
		if err != nil {
			return blk, err
		}
		*pendingLoc = nil
		blk.Instrs = append(blk.Instrs, instr)
		if instr.Op.IsTerminator() {
			break
		}
	}
	return blk, nil
}
