package lexer

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// bomUTF8 is the UTF-8 Byte Order Mark.
const bomUTF8 = "\uFEFF"

// Normalize performs input normalization at the lexer boundary:
// 1. Strips a leading UTF-8 BOM if present
// 2. Applies Unicode NFC normalization
//
// Lexically equivalent source produces identical token streams
// regardless of encoding variations: identifiers written with
// combining characters compare bytewise after normalization.
func Normalize(input string) string {
	input = strings.TrimPrefix(input, bomUTF8)
	if norm.NFC.IsNormalString(input) {
		return input
	}
	return norm.NFC.String(input)
}
