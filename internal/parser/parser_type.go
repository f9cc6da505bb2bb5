package parser

import (
	"strconv"

	"github.com/wisplang/wisp/internal/ast"
	"github.com/wisplang/wisp/internal/lexer"
)

// parseType parses a type expression.
func (p *Parser) parseType() ast.TypeExpr {
	start := p.curSpan().Start
	switch p.cur().Type {
	case lexer.AMP:
		p.next()
		mut := false
		if p.curIs(lexer.MUT) {
			mut = true
			p.next()
		}
		inner := p.parseType()
		return &ast.RefType{Mut: mut, Inner: inner, Sp: p.spanFrom(start)}

	case lexer.LBRACKET:
		p.next()
		elem := p.parseType()
		if p.curIs(lexer.SEMICOLON) {
			p.next()
			size := 0
			if p.curIs(lexer.INT) {
				size, _ = strconv.Atoi(p.cur().Literal)
				p.next()
			} else {
				p.errorf(p.curSpan(), "expected array length, found %q", p.cur().Literal)
			}
			p.expect(lexer.RBRACKET)
			return &ast.ArrayType{Elem: elem, Size: size, Sp: p.spanFrom(start)}
		}
		p.expect(lexer.RBRACKET)
		return &ast.SliceType{Elem: elem, Sp: p.spanFrom(start)}

	case lexer.LPAREN:
		p.next()
		if p.curIs(lexer.RPAREN) {
			p.next()
			return &ast.UnitType{Sp: p.spanFrom(start)}
		}
		var elems []ast.TypeExpr
		elems = append(elems, p.parseType())
		for p.curIs(lexer.COMMA) {
			p.next()
			if p.curIs(lexer.RPAREN) {
				break
			}
			elems = append(elems, p.parseType())
		}
		p.expect(lexer.RPAREN)
		if len(elems) == 1 {
			return elems[0]
		}
		return &ast.TupleType{Elems: elems, Sp: p.spanFrom(start)}

	case lexer.FN:
		p.next()
		p.expect(lexer.LPAREN)
		var params []ast.TypeExpr
		for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
			params = append(params, p.parseType())
			if p.curIs(lexer.COMMA) {
				p.next()
			}
		}
		p.expect(lexer.RPAREN)
		var ret ast.TypeExpr
		if p.curIs(lexer.ARROW) {
			p.next()
			ret = p.parseType()
		}
		return &ast.FnType{Params: params, Ret: ret, Sp: p.spanFrom(start)}

	case lexer.SELFTYPE:
		p.next()
		return &ast.NamedType{Path: []string{"Self"}, Sp: p.spanFrom(start)}

	case lexer.IDENT:
		path := []string{p.cur().Literal}
		p.next()
		for p.curIs(lexer.DOT) && p.peekIs(lexer.IDENT) {
			p.next()
			path = append(path, p.cur().Literal)
			p.next()
		}
		var args []ast.TypeExpr
		if p.curIs(lexer.LT) {
			p.next()
			for !p.curIs(lexer.GT) && !p.curIs(lexer.EOF) {
				args = append(args, p.parseType())
				if p.curIs(lexer.COMMA) {
					p.next()
				}
			}
			p.expect(lexer.GT)
		}
		return &ast.NamedType{Path: path, Args: args, Sp: p.spanFrom(start)}

	default:
		p.errorf(p.curSpan(), "expected type, found %q", p.cur().Literal)
		p.next()
		return &ast.NamedType{Path: []string{"<error>"}, Sp: p.spanFrom(start)}
	}
}
