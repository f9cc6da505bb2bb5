package lexer

import (
	"testing"

	"golang.org/x/text/unicode/norm"
)

// TestBOMStripping verifies that a leading UTF-8 BOM is removed.
func TestBOMStripping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "with_bom",
			input:    "\uFEFFhello",
			expected: "hello",
		},
		{
			name:     "without_bom",
			input:    "hello",
			expected: "hello",
		},
		{
			name:     "empty_with_bom",
			input:    "\uFEFF",
			expected: "",
		},
		{
			name:     "empty_without_bom",
			input:    "",
			expected: "",
		},
		{
			name:     "partial_bom",
			input:    string([]byte{0xEF, 0xBB, 'h', 'i'}),
			expected: string([]byte{0xEF, 0xBB, 'h', 'i'}), // not a valid BOM
		},
		{
			name:     "bom_only_at_start",
			input:    "a\uFEFFb",
			expected: "a\uFEFFb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

// TestNFCNormalization verifies that NFD input folds to NFC.
func TestNFCNormalization(t *testing.T) {
	nfd := norm.NFD.String("café")
	nfc := norm.NFC.String("café")
	if nfd == nfc {
		t.Fatal("test setup: NFD and NFC forms should differ")
	}
	if got := Normalize(nfd); got != nfc {
		t.Errorf("expected %q, got %q", nfc, got)
	}
	// Already-normalized input passes through unchanged.
	if got := Normalize(nfc); got != nfc {
		t.Errorf("expected %q, got %q", nfc, got)
	}
}

// TestUnicodeIdentifier verifies that multi-byte letters lex as one
// identifier token.
func TestUnicodeIdentifier(t *testing.T) {
	l := New("let café = 42")
	toks := l.Tokenize()
	if len(l.Errors()) != 0 {
		t.Fatalf("unexpected lexer errors: %v", l.Errors())
	}

	want := []struct {
		typ TokenType
		lit string
	}{
		{LET, "let"},
		{IDENT, "café"},
		{ASSIGN, "="},
		{INT, "42"},
		{EOF, ""},
	}
	if len(toks) != len(want) {
		t.Fatalf("token count: expected=%d got=%d (%v)", len(want), len(toks), toks)
	}
	for i, w := range want {
		if toks[i].Type != w.typ || toks[i].Literal != w.lit {
			t.Errorf("toks[%d]: expected %s(%q), got %s(%q)", i, w.typ, w.lit, toks[i].Type, toks[i].Literal)
		}
	}
}

// TestNFDInputLexesLikeNFC verifies that encoding variations produce
// identical token streams.
func TestNFDInputLexesLikeNFC(t *testing.T) {
	src := "let café = 42"
	nfcToks := New(norm.NFC.String(src)).Tokenize()
	nfdToks := New(norm.NFD.String(src)).Tokenize()

	if len(nfcToks) != len(nfdToks) {
		t.Fatalf("token counts differ: %d vs %d", len(nfcToks), len(nfdToks))
	}
	for i := range nfcToks {
		if nfcToks[i].Type != nfdToks[i].Type || nfcToks[i].Literal != nfdToks[i].Literal {
			t.Errorf("toks[%d]: %s(%q) vs %s(%q)", i,
				nfcToks[i].Type, nfcToks[i].Literal, nfdToks[i].Type, nfdToks[i].Literal)
		}
	}
}

// TestBOMPrefixedSource verifies that a BOM-prefixed file lexes
// cleanly from offset zero.
func TestBOMPrefixedSource(t *testing.T) {
	l := New("\uFEFFlet café = 42")
	toks := l.Tokenize()
	if len(l.Errors()) != 0 {
		t.Fatalf("unexpected lexer errors: %v", l.Errors())
	}
	if toks[0].Type != LET {
		t.Errorf("expected let first, got %s(%q)", toks[0].Type, toks[0].Literal)
	}
	if toks[0].Span.Start != 0 {
		t.Errorf("BOM must be stripped before offsets are assigned, got start=%d", toks[0].Span.Start)
	}
	if toks[1].Type != IDENT || toks[1].Literal != "café" {
		t.Errorf("expected café identifier, got %s(%q)", toks[1].Type, toks[1].Literal)
	}
}

// TestUnicodeStringAndCharLiterals verifies rune handling inside
// literals.
func TestUnicodeStringAndCharLiterals(t *testing.T) {
	l := New(`"héllo wörld" 'é'`)
	toks := l.Tokenize()
	if len(l.Errors()) != 0 {
		t.Fatalf("unexpected lexer errors: %v", l.Errors())
	}
	if toks[0].Type != STRING || toks[0].Literal != "héllo wörld" {
		t.Errorf("bad string token: %s(%q)", toks[0].Type, toks[0].Literal)
	}
	if toks[1].Type != CHAR || toks[1].Literal != "é" {
		t.Errorf("bad char token: %s(%q)", toks[1].Type, toks[1].Literal)
	}
}
