// Package ilfmt implements the IL text format: the canonical deterministic
// serializer and the streaming recursive-descent parser.
//
// The parser never panics the host on malformed input; it reports a
// structured diagnostic and returns, with input normalization (see
// normalize.go) applied once at the tokenizer boundary.
package ilfmt

import (
	"fmt"

	"vil/internal/il"
	"vil/internal/ilerrors"
)

// Parse parses IL text into a Module. filename is used only for diagnostics
// and as the default source-location file for instructions with no
// explicit .loc.
func Parse(src []byte, filename string) (*il.Module, error) {
	p := &parser{lex: newLexer(src), file: filename}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseModule()
}

type parser struct {
	lex  *lexer
	file string

	cur    Token
	peeked *Token

	// fs is the state of the function currently being parsed, set by
	// parseFunction for the duration of its body and consulted by
	// parseOperand to resolve "%name" references to stable temp ids.
	fs *funcState
}

func (p *parser) advance() error {
	if p.peeked != nil {
		p.cur = *p.peeked
		p.peeked = nil
		return nil
	}
	tok, err := p.lex.Next()
	if err != nil {
		return p.wrapLexErr(err)
	}
	p.cur = tok
	return nil
}

func (p *parser) peek() (Token, error) {
	if p.peeked != nil {
		return *p.peeked, nil
	}
	tok, err := p.lex.Next()
	if err != nil {
		return Token{}, p.wrapLexErr(err)
	}
	p.peeked = &tok
	return tok, nil
}

func (p *parser) wrapLexErr(err error) error {
	if le, ok := err.(*LexError); ok {
		return ilerrors.Wrap(ilerrors.New(ilerrors.SYN001, le.Msg).
			WithLoc(ilerrors.SourceLoc{File: p.file, Line: uint32(le.Line), Col: uint32(le.Col)}))
	}
	return err
}

func (p *parser) errf(code string, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return ilerrors.Wrap(ilerrors.New(code, msg).
		WithLoc(ilerrors.SourceLoc{File: p.file, Line: uint32(p.cur.Line), Col: uint32(p.cur.Col)}))
}

func (p *parser) expect(kind TokenKind, code, what string) (Token, error) {
	if p.cur.Kind != kind {
		return Token{}, p.errf(code, "expected %s, found %q", what, p.cur.Text)
	}
	t := p.cur
	if err := p.advance(); err != nil {
		return Token{}, err
	}
	return t, nil
}

func (p *parser) expectIdent(text, code string) error {
	if p.cur.Kind != TIdent || p.cur.Text != text {
		return p.errf(code, "expected %q, found %q", text, p.cur.Text)
	}
	return p.advance()
}

func (p *parser) atIdent(text string) bool {
	return p.cur.Kind == TIdent && p.cur.Text == text
}

func (p *parser) parseModule() (*il.Module, error) {
	m := il.NewModule()

	if err := p.expectIdent("il", ilerrors.SYN005); err != nil {
		return nil, err
	}
	if p.cur.Kind != TIdent && p.cur.Kind != TFloat {
		return nil, p.errf(ilerrors.SYN005, "expected %s, found %q", "version identifier", p.cur.Text)
	}
	ver := p.cur
	if err := p.advance(); err != nil {
		return nil, err
	}
	m.Version = ver.Text

	if p.atIdent("target") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		tgt, err := p.expect(TString, ilerrors.SYN005, "target triple string")
		if err != nil {
			return nil, err
		}
		m.Target = tgt.Text
	}

	for p.cur.Kind != TEOF {
		switch {
		case p.atIdent("extern"):
			ext, err := p.parseExtern()
			if err != nil {
				return nil, err
			}
			if m.FindExtern(ext.Name) != nil {
				return nil, p.errf(ilerrors.VER008, "duplicate extern name %q", ext.Name)
			}
			m.Externs = append(m.Externs, ext)
		case p.atIdent("global"):
			g, err := p.parseGlobal()
			if err != nil {
				return nil, err
			}
			if m.FindGlobal(g.Name) != nil {
				return nil, p.errf(ilerrors.VER008, "duplicate global name %q", g.Name)
			}
			m.Globals = append(m.Globals, g)
		case p.atIdent("func"):
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			if m.FindFunction(fn.Name) != nil {
				return nil, p.errf(ilerrors.SYN002, "duplicate function name %q", fn.Name)
			}
			m.Functions = append(m.Functions, fn)
		default:
			return nil, p.errf(ilerrors.SYN005, "expected 'extern', 'global', or 'func', found %q", p.cur.Text)
		}
	}

	resolveResultTypes(m)
	if err := verifyUniqueNames(m); err != nil {
		return nil, err
	}
	return m, nil
}

// resolveResultTypes fills in the result types parseInstr left as Void
// because they need whole-module context: an unannotated call result takes
// its callee's declared return type (functions and externs may be declared
// after their first call site), and an unannotated load defaults to an
// 8-byte i64 slot, matching the VM's store width for plain allocas.
func resolveResultTypes(m *il.Module) {
	for fi := range m.Functions {
		for bi := range m.Functions[fi].Blocks {
			instrs := m.Functions[fi].Blocks[bi].Instrs
			for ii := range instrs {
				in := &instrs[ii]
				if !in.HasResultID || in.ResultType != il.Void {
					continue
				}
				switch in.Op {
				case il.OpCall:
					if ret, _, ok := m.Signature(in.Callee); ok {
						in.ResultType = ret
					}
				case il.OpLoad:
					in.ResultType = il.I64
				}
			}
		}
	}
}

func verifyUniqueNames(m *il.Module) error {
	seen := map[string]bool{}
	for _, e := range m.Externs {
		if seen[e.Name] {
			return ilerrors.Wrap(ilerrors.New(ilerrors.VER008, "duplicate module-scope name "+e.Name))
		}
		seen[e.Name] = true
	}
	for _, g := range m.Globals {
		if seen[g.Name] {
			return ilerrors.Wrap(ilerrors.New(ilerrors.VER008, "duplicate module-scope name "+g.Name))
		}
		seen[g.Name] = true
	}
	for _, f := range m.Functions {
		if seen[f.Name] {
			return ilerrors.Wrap(ilerrors.New(ilerrors.VER008, "duplicate module-scope name "+f.Name))
		}
		seen[f.Name] = true
	}
	return nil
}

func (p *parser) parseType() (il.Type, error) {
	if p.cur.Kind != TIdent {
		return il.Void, p.errf(ilerrors.SYN008, "expected type, found %q", p.cur.Text)
	}
	t, ok := il.ParseType(p.cur.Text)
	if !ok {
		return il.Void, p.errf(ilerrors.SYN008, "unknown type %q", p.cur.Text)
	}
	return t, p.advance()
}

func (p *parser) parseExtern() (il.Extern, error) {
	var e il.Extern
	if err := p.advance(); err != nil { // 'extern'
		return e, err
	}
	if _, err := p.expect(TAt, ilerrors.SYN005, "'@'"); err != nil {
		return e, err
	}
	name, err := p.expect(TIdent, ilerrors.SYN005, "extern name")
	if err != nil {
		return e, err
	}
	e.Name = name.Text
	if _, err := p.expect(TLParen, ilerrors.SYN005, "'('"); err != nil {
		return e, err
	}
	for p.cur.Kind != TRParen {
		ty, err := p.parseType()
		if err != nil {
			return e, err
		}
		e.ParamTypes = append(e.ParamTypes, ty)
		if p.cur.Kind == TComma {
			if err := p.advance(); err != nil {
				return e, err
			}
		}
	}
	if err := p.advance(); err != nil { // ')'
		return e, err
	}
	if _, err := p.expect(TArrow, ilerrors.SYN005, "'->'"); err != nil {
		return e, err
	}
	ret, err := p.parseType()
	if err != nil {
		return e, err
	}
	e.RetType = ret
	return e, nil
}

func (p *parser) parseGlobal() (il.Global, error) {
	var g il.Global
	if err := p.advance(); err != nil { // 'global'
		return g, err
	}
	g.Linkage = il.Internal
	if p.atIdent("export") {
		g.Linkage = il.Export
		if err := p.advance(); err != nil {
			return g, err
		}
	}
	if err := p.expectIdent("const", ilerrors.SYN005); err != nil {
		return g, err
	}
	ty, err := p.parseType()
	if err != nil {
		return g, err
	}
	g.Type = ty
	if _, err := p.expect(TAt, ilerrors.SYN005, "'@'"); err != nil {
		return g, err
	}
	name, err := p.expect(TIdent, ilerrors.SYN005, "global name")
	if err != nil {
		return g, err
	}
	g.Name = name.Text
	if _, err := p.expect(TEquals, ilerrors.SYN005, "'='"); err != nil {
		return g, err
	}
	switch p.cur.Kind {
	case TInt:
		g.Init = []byte(fmt.Sprintf("%d", p.cur.IntVal))
		if err := p.advance(); err != nil {
			return g, err
		}
	case TFloat:
		g.Init = []byte(il.FormatFloat(p.cur.FltVal))
		if err := p.advance(); err != nil {
			return g, err
		}
	case TString:
		g.Init = []byte(p.cur.Text)
		if err := p.advance(); err != nil {
			return g, err
		}
	default:
		return g, p.errf(ilerrors.SYN008, "expected literal initializer, found %q", p.cur.Text)
	}
	return g, nil
}
