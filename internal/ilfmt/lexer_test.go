package ilfmt

import "testing"

func TestLexerTokens(t *testing.T) {
	input := `il 0.1
target "x86_64-linux"

func @add(a: i64, b: i64) -> i64 {
entry:
  %sum[:i64] = iadd.ovf %a, %b
  ret %sum
}
`
	lex := newLexer([]byte(input))
	var kinds []TokenKind
	for {
		tok, err := lex.Next()
		if err != nil {
			t.Fatalf("unexpected lex error: %v", err)
		}
		if tok.Kind == TEOF {
			break
		}
		kinds = append(kinds, tok.Kind)
	}
	if len(kinds) == 0 {
		t.Fatalf("expected tokens, got none")
	}
	if kinds[0] != TIdent {
		t.Fatalf("expected first token TIdent, got %v", kinds[0])
	}
}

func TestLexerBracketTokens(t *testing.T) {
	lex := newLexer([]byte("[ ]"))
	tok, err := lex.Next()
	if err != nil || tok.Kind != TLBracket {
		t.Fatalf("expected TLBracket, got %v err=%v", tok, err)
	}
	tok, err = lex.Next()
	if err != nil || tok.Kind != TRBracket {
		t.Fatalf("expected TRBracket, got %v err=%v", tok, err)
	}
}

func TestLexerNegativeNumber(t *testing.T) {
	lex := newLexer([]byte("-42"))
	tok, err := lex.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Kind != TInt || tok.IntVal != -42 {
		t.Fatalf("expected TInt -42, got %+v", tok)
	}
}

func TestLexerUnterminatedString(t *testing.T) {
	lex := newLexer([]byte(`"abc`))
	_, err := lex.Next()
	if err == nil {
		t.Fatalf("expected error for unterminated string")
	}
}

func TestLexerOpcodeDotSuffix(t *testing.T) {
	lex := newLexer([]byte("iadd.ovf"))
	tok, err := lex.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.Kind != TIdent || tok.Text != "iadd.ovf" {
		t.Fatalf("expected ident %q, got %+v", "iadd.ovf", tok)
	}
}
