package parser

import (
	"strconv"

	"github.com/wisplang/wisp/internal/ast"
	"github.com/wisplang/wisp/internal/lexer"
)

// parsePattern parses one match pattern. A bare identifier parses as
// a binding; the resolver promotes it to a variant pattern when the
// name matches a known enum variant.
func (p *Parser) parsePattern() ast.Pattern {
	start := p.curSpan().Start
	switch p.cur().Type {
	case lexer.IDENT:
		if p.cur().Literal == "_" {
			p.next()
			return &ast.WildcardPat{Sp: p.spanFrom(start)}
		}
		path := []string{p.cur().Literal}
		p.next()
		for p.curIs(lexer.DOT) && p.peekIs(lexer.IDENT) {
			p.next()
			path = append(path, p.cur().Literal)
			p.next()
		}
		if p.curIs(lexer.LPAREN) {
			p.next()
			var elems []ast.Pattern
			for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
				if sub := p.parsePattern(); sub != nil {
					elems = append(elems, sub)
				} else {
					break
				}
				if p.curIs(lexer.COMMA) {
					p.next()
				}
			}
			p.expect(lexer.RPAREN)
			return &ast.VariantPat{Path: path, Elems: elems, Sp: p.spanFrom(start)}
		}
		if len(path) > 1 {
			return &ast.VariantPat{Path: path, Sp: p.spanFrom(start)}
		}
		return &ast.BindingPat{Name: path[0], Sp: p.spanFrom(start)}

	case lexer.INT:
		v, _ := strconv.ParseInt(p.cur().Literal, 10, 64)
		text := p.cur().Literal
		p.next()
		return &ast.LiteralPat{Lit: &ast.IntLit{Value: v, Text: text, Sp: p.spanFrom(start)}, Sp: p.spanFrom(start)}

	case lexer.MINUS:
		p.next()
		if !p.curIs(lexer.INT) {
			p.errorf(p.curSpan(), "expected integer after '-' in pattern")
			return nil
		}
		v, _ := strconv.ParseInt(p.cur().Literal, 10, 64)
		text := "-" + p.cur().Literal
		p.next()
		return &ast.LiteralPat{Lit: &ast.IntLit{Value: -v, Text: text, Sp: p.spanFrom(start)}, Sp: p.spanFrom(start)}

	case lexer.FLOAT:
		v, _ := strconv.ParseFloat(p.cur().Literal, 64)
		text := p.cur().Literal
		p.next()
		return &ast.LiteralPat{Lit: &ast.FloatLit{Value: v, Text: text, Sp: p.spanFrom(start)}, Sp: p.spanFrom(start)}

	case lexer.TRUE, lexer.FALSE:
		v := p.curIs(lexer.TRUE)
		p.next()
		return &ast.LiteralPat{Lit: &ast.BoolLit{Value: v, Sp: p.spanFrom(start)}, Sp: p.spanFrom(start)}

	case lexer.CHAR:
		r := []rune(p.cur().Literal)
		var v rune
		if len(r) > 0 {
			v = r[0]
		}
		p.next()
		return &ast.LiteralPat{Lit: &ast.CharLit{Value: v, Sp: p.spanFrom(start)}, Sp: p.spanFrom(start)}

	case lexer.STRING:
		lit := p.parseStringLit()
		sl, _ := lit.(*ast.StringLit)
		if sl != nil && !sl.IsPlain() {
			p.errorf(sl.Sp, "string patterns cannot interpolate")
		}
		return &ast.LiteralPat{Lit: lit, Sp: p.spanFrom(start)}

	case lexer.LPAREN:
		p.next()
		var elems []ast.Pattern
		for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
			if sub := p.parsePattern(); sub != nil {
				elems = append(elems, sub)
			} else {
				break
			}
			if p.curIs(lexer.COMMA) {
				p.next()
			}
		}
		p.expect(lexer.RPAREN)
		return &ast.TuplePat{Elems: elems, Sp: p.spanFrom(start)}

	default:
		p.errorf(p.curSpan(), "expected pattern, found %q", p.cur().Literal)
		return nil
	}
}
