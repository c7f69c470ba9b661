package ilfmt

import (
	"bytes"

	"golang.org/x/text/unicode/norm"
)

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// Normalize prepares raw IL source text for tokenizing: it strips a UTF-8
// byte-order mark if present and applies Unicode NFC normalization, so that
// byte-for-byte distinct but canonically equivalent source always produces
// an identical token stream. String literals and identifiers can carry
// non-ASCII content copied verbatim from the original source by the
// lowerer, so the same normalization applies here as at any other
// language's lexer boundary.
func Normalize(src []byte) []byte {
	src = bytes.TrimPrefix(src, bomUTF8)
	if !norm.NFC.IsNormal(src) {
		src = norm.NFC.Bytes(src)
	}
	return src
}
