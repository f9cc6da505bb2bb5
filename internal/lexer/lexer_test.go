package lexer

import (
	"testing"
)

func TestNextToken(t *testing.T) {
	input := `fn main() {
	let mut x = 5;
	let y = x + 2.5;
	if x <= 10 && y != 3.0 {
		x += 1;
	}
	let r = 0..10;
	let p = Point{x: 1, y: 2};
	v.push('a');
}`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{FN, "fn"},
		{IDENT, "main"},
		{LPAREN, "("},
		{RPAREN, ")"},
		{LBRACE, "{"},
		{LET, "let"},
		{MUT, "mut"},
		{IDENT, "x"},
		{ASSIGN, "="},
		{INT, "5"},
		{SEMICOLON, ";"},
		{LET, "let"},
		{IDENT, "y"},
		{ASSIGN, "="},
		{IDENT, "x"},
		{PLUS, "+"},
		{FLOAT, "2.5"},
		{SEMICOLON, ";"},
		{IF, "if"},
		{IDENT, "x"},
		{LTE, "<="},
		{INT, "10"},
		{AND, "&&"},
		{IDENT, "y"},
		{NEQ, "!="},
		{FLOAT, "3.0"},
		{LBRACE, "{"},
		{IDENT, "x"},
		{PLUSEQ, "+="},
		{INT, "1"},
		{SEMICOLON, ";"},
		{RBRACE, "}"},
		{LET, "let"},
		{IDENT, "r"},
		{ASSIGN, "="},
		{INT, "0"},
		{DOTDOT, ".."},
		{INT, "10"},
		{SEMICOLON, ";"},
		{LET, "let"},
		{IDENT, "p"},
		{ASSIGN, "="},
		{IDENT, "Point"},
		{LBRACE, "{"},
		{IDENT, "x"},
		{COLON, ":"},
		{INT, "1"},
		{COMMA, ","},
		{IDENT, "y"},
		{COLON, ":"},
		{INT, "2"},
		{RBRACE, "}"},
		{SEMICOLON, ";"},
		{IDENT, "v"},
		{DOT, "."},
		{IDENT, "push"},
		{LPAREN, "("},
		{CHAR, "a"},
		{RPAREN, ")"},
		{SEMICOLON, ";"},
		{RBRACE, "}"},
		{EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - wrong token type. expected=%q, got=%q (%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - wrong literal. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
	if len(l.Errors()) != 0 {
		t.Fatalf("unexpected lexer errors: %v", l.Errors())
	}
}

func TestComments(t *testing.T) {
	input := `// line comment
fn /* block /* nested */ comment */ f() {}`

	l := New(input)
	toks := l.Tokenize()
	if len(l.Errors()) != 0 {
		t.Fatalf("unexpected lexer errors: %v", l.Errors())
	}

	want := []TokenType{FN, IDENT, LPAREN, RPAREN, LBRACE, RBRACE, EOF}
	if len(toks) != len(want) {
		t.Fatalf("token count: expected=%d got=%d (%v)", len(want), len(toks), toks)
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("toks[%d]: expected=%q got=%q", i, w, toks[i].Type)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	l := New(`"a\nb\"c"`)
	tok := l.NextToken()
	if tok.Type != STRING {
		t.Fatalf("expected STRING, got %q", tok.Type)
	}
	if tok.Literal != "a\nb\"c" {
		t.Errorf("wrong literal: %q", tok.Literal)
	}
}

func TestSpans(t *testing.T) {
	l := New("let xy = 42")
	toks := l.Tokenize()

	// let:0..3 xy:4..6 =:7..8 42:9..11
	spans := [][2]int{{0, 3}, {4, 6}, {7, 8}, {9, 11}}
	for i, s := range spans {
		if toks[i].Span.Start != s[0] || toks[i].Span.End != s[1] {
			t.Errorf("toks[%d] span: expected=%d..%d got=%s", i, s[0], s[1], toks[i].Span)
		}
	}
}

func TestUnterminatedString(t *testing.T) {
	l := New(`"abc`)
	tok := l.NextToken()
	if tok.Type != ILLEGAL {
		t.Fatalf("expected ILLEGAL, got %q", tok.Type)
	}
	if len(l.Errors()) == 0 {
		t.Fatal("expected a lexer error")
	}
}

func TestRangeVersusFloat(t *testing.T) {
	l := New("0..10")
	toks := l.Tokenize()
	want := []TokenType{INT, DOTDOT, INT, EOF}
	for i, w := range want {
		if toks[i].Type != w {
			t.Fatalf("toks[%d]: expected=%q got=%q", i, w, toks[i].Type)
		}
	}
}
