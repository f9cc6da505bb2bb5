// Package parser turns wisp tokens into an AST and resolves imports
// into a SourceFileWithImports.
package parser

import (
	"github.com/wisplang/wisp/internal/ast"
	"github.com/wisplang/wisp/internal/diag"
	"github.com/wisplang/wisp/internal/lexer"
	"github.com/wisplang/wisp/internal/source"
)

// Precedence levels, low to high. Assignment is handled separately
// (right-associative, statement-level entry point).
const (
	LOWEST      int = iota
	RANGE           // ..
	LogicalOr       // ||
	LogicalAnd      // &&
	EQUALS          // ==, !=
	LESSGREATER     // <, >, <=, >=
	SUM             // +, -
	PRODUCT         // *, /, %
	CAST            // as
	PREFIX          // -x, !x, *x, &x
	CALL            // f(x), x.f, x[i]
)

var precedences = map[lexer.TokenType]int{
	lexer.DOTDOT:  RANGE,
	lexer.OR:      LogicalOr,
	lexer.AND:     LogicalAnd,
	lexer.EQ:      EQUALS,
	lexer.NEQ:     EQUALS,
	lexer.LT:      LESSGREATER,
	lexer.GT:      LESSGREATER,
	lexer.LTE:     LESSGREATER,
	lexer.GTE:     LESSGREATER,
	lexer.PLUS:    SUM,
	lexer.MINUS:   SUM,
	lexer.STAR:    PRODUCT,
	lexer.SLASH:   PRODUCT,
	lexer.PERCENT: PRODUCT,
	lexer.AS:      CAST,
	lexer.LPAREN:  CALL,
	lexer.DOT:     CALL,
	lexer.LBRACKET: CALL,
}

// Parser parses a token stream into an AST
type Parser struct {
	toks []lexer.Token
	pos  int

	diags *diag.Bag

	// Struct literals are disabled while parsing the condition of
	// if/while/for and match scrutinees, so `if x < limit {` parses
	// the brace as the body.
	noStructLit bool
}

// New creates a Parser over pre-lexed source text. Lex errors are
// recorded into the bag.
func New(input string, bag *diag.Bag) *Parser {
	l := lexer.New(input)
	toks := l.Tokenize()
	for _, e := range l.Errors() {
		bag.Addf(diag.LexError, e.Span, "%s", e.Message)
	}
	return &Parser{toks: toks, diags: bag}
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) peek() lexer.Token {
	if p.pos+1 >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+1]
}

func (p *Parser) next() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

func (p *Parser) curIs(t lexer.TokenType) bool  { return p.cur().Type == t }
func (p *Parser) peekIs(t lexer.TokenType) bool { return p.peek().Type == t }

// mark/reset support speculative parses (lambda vs grouping).
func (p *Parser) mark() int       { return p.pos }
func (p *Parser) reset(mark int)  { p.pos = mark }

func (p *Parser) curSpan() source.Span { return p.cur().Span }

// spanFrom builds a span from a start offset to the end of the
// previous token.
func (p *Parser) spanFrom(start int) source.Span {
	end := start
	if p.pos > 0 {
		end = p.toks[p.pos-1].Span.End
	}
	if end < start {
		end = start
	}
	return source.Span{Start: start, End: end}
}

func (p *Parser) errorf(span source.Span, format string, args ...interface{}) {
	p.diags.Addf(diag.ParseError, span, format, args...)
}

// expect consumes the current token if it has the wanted type, else
// records a diagnostic and leaves the position unchanged.
func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curIs(t) {
		p.next()
		return true
	}
	p.errorf(p.curSpan(), "expected %q, found %q", t.String(), p.cur().Literal)
	return false
}

// expectIdent consumes and returns an identifier.
func (p *Parser) expectIdent() (string, bool) {
	if p.curIs(lexer.IDENT) {
		name := p.cur().Literal
		p.next()
		return name, true
	}
	p.errorf(p.curSpan(), "expected identifier, found %q", p.cur().Literal)
	return "", false
}

// ParseFile parses a whole source file without resolving imports.
func (p *Parser) ParseFile() *ast.SourceFile {
	file := &ast.SourceFile{Sp: source.Span{Start: 0, End: p.toks[len(p.toks)-1].Span.End}}
	for !p.curIs(lexer.EOF) {
		before := p.pos
		if p.curIs(lexer.IMPORT) || (p.curIs(lexer.PUB) && p.peekIs(lexer.IMPORT)) {
			if imp := p.parseImportDecl(); imp != nil {
				file.Imports = append(file.Imports, imp)
			}
		} else if item := p.parseItem(); item != nil {
			file.Items = append(file.Items, item)
		}
		if p.pos == before {
			// The item parser made no progress; skip to the next
			// top-level keyword so one bad item doesn't cascade.
			p.recoverToItem()
		}
	}
	return file
}

var itemStart = map[lexer.TokenType]bool{
	lexer.FN:     true,
	lexer.STRUCT: true,
	lexer.ENUM:   true,
	lexer.TRAIT:  true,
	lexer.IMPL:   true,
	lexer.CONST:  true,
	lexer.TYPE:   true,
	lexer.EXTERN: true,
	lexer.IMPORT: true,
	lexer.PUB:    true,
}

// recoverToItem skips tokens until the next plausible top-level item.
func (p *Parser) recoverToItem() {
	p.next()
	depth := 0
	for !p.curIs(lexer.EOF) {
		switch {
		case p.curIs(lexer.LBRACE):
			depth++
		case p.curIs(lexer.RBRACE):
			if depth > 0 {
				depth--
			}
		case depth == 0 && itemStart[p.cur().Type]:
			return
		}
		p.next()
	}
}
