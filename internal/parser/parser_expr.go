package parser

import (
	"strconv"
	"strings"

	"github.com/wisplang/wisp/internal/ast"
	"github.com/wisplang/wisp/internal/diag"
	"github.com/wisplang/wisp/internal/lexer"
	"github.com/wisplang/wisp/internal/source"
)

// parseBlock parses `{ stmt* }`. The last expression without a
// trailing semicolon is the block's value.
func (p *Parser) parseBlock() *ast.BlockExpr {
	start := p.curSpan().Start
	blk := &ast.BlockExpr{}
	p.expect(lexer.LBRACE)
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		before := p.pos
		if s := p.parseStmt(); s != nil {
			blk.Stmts = append(blk.Stmts, s)
		}
		if p.pos == before {
			// No progress. An item keyword here usually means a
			// missing closing brace; bail so the item isn't eaten.
			if itemStart[p.cur().Type] {
				break
			}
			p.next()
		}
	}
	p.expect(lexer.RBRACE)
	blk.Sp = p.spanFrom(start)
	return blk
}

func (p *Parser) parseStmt() ast.Stmt {
	start := p.curSpan().Start
	switch p.cur().Type {
	case lexer.LET:
		return p.parseLetStmt()

	case lexer.RETURN:
		p.next()
		var value ast.Expr
		if !p.curIs(lexer.SEMICOLON) && !p.curIs(lexer.RBRACE) {
			value = p.parseAssign()
		}
		if p.curIs(lexer.SEMICOLON) {
			p.next()
		}
		return &ast.ReturnStmt{Value: value, Sp: p.spanFrom(start)}

	case lexer.WHILE:
		p.next()
		cond := p.parseNoStructLit()
		body := p.parseBlock()
		return &ast.WhileStmt{Cond: cond, Body: body, Sp: p.spanFrom(start)}

	case lexer.FOR:
		p.next()
		name, ok := p.expectIdent()
		if !ok {
			return nil
		}
		p.expect(lexer.IN)
		rng := p.parseNoStructLit()
		r, ok := rng.(*ast.RangeExpr)
		if !ok {
			p.errorf(rng.Span(), "for loops iterate a range: expected `lo..hi`")
			r = &ast.RangeExpr{Lo: rng, Hi: rng, Sp: rng.Span()}
		}
		body := p.parseBlock()
		return &ast.ForStmt{Var: name, Range: r, Body: body, Sp: p.spanFrom(start)}

	case lexer.DEFER:
		p.next()
		call := p.parseExpr(LOWEST)
		if p.curIs(lexer.SEMICOLON) {
			p.next()
		}
		return &ast.DeferStmt{Call: call, Sp: p.spanFrom(start)}

	default:
		e := p.parseAssign()
		if e == nil {
			return nil
		}
		semi := false
		if p.curIs(lexer.SEMICOLON) {
			semi = true
			p.next()
		}
		return &ast.ExprStmt{E: e, Semi: semi, Sp: p.spanFrom(start)}
	}
}

func (p *Parser) parseLetStmt() ast.Stmt {
	start := p.curSpan().Start
	p.next() // consume let
	mut := false
	if p.curIs(lexer.MUT) {
		mut = true
		p.next()
	}
	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	var ty ast.TypeExpr
	if p.curIs(lexer.COLON) {
		p.next()
		ty = p.parseType()
	}
	p.expect(lexer.ASSIGN)
	value := p.parseAssign()
	if p.curIs(lexer.SEMICOLON) {
		p.next()
	}
	return &ast.LetStmt{Mut: mut, Name: name, Ty: ty, Value: value, Sp: p.spanFrom(start)}
}

// parseAssign parses an expression allowing `=` and the compound
// forms. Assignment is right-associative and binds loosest.
func (p *Parser) parseAssign() ast.Expr {
	start := p.curSpan().Start
	left := p.parseExpr(LOWEST)
	if left == nil {
		return nil
	}
	switch p.cur().Type {
	case lexer.ASSIGN, lexer.PLUSEQ, lexer.MINUSEQ, lexer.STAREQ, lexer.SLASHEQ:
		op := p.cur().Literal
		p.next()
		value := p.parseAssign()
		return &ast.AssignExpr{Op: op, Target: left, Value: value, Sp: p.spanFrom(start)}
	}
	return left
}

// parseNoStructLit parses a condition-position expression where a
// brace opens the body rather than a struct literal.
func (p *Parser) parseNoStructLit() ast.Expr {
	saved := p.noStructLit
	p.noStructLit = true
	e := p.parseExpr(LOWEST)
	p.noStructLit = saved
	return e
}

// parseExpr is the Pratt entry point.
func (p *Parser) parseExpr(precedence int) ast.Expr {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}
	for {
		prec, ok := precedences[p.cur().Type]
		if !ok || precedence >= prec {
			return left
		}
		left = p.parseInfix(left)
		if left == nil {
			return nil
		}
	}
}

func (p *Parser) parsePrefix() ast.Expr {
	start := p.curSpan().Start
	switch p.cur().Type {
	case lexer.INT:
		text := p.cur().Literal
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			p.errorf(p.curSpan(), "integer literal out of range: %s", text)
		}
		p.next()
		return &ast.IntLit{Value: v, Text: text, Sp: p.spanFrom(start)}

	case lexer.FLOAT:
		text := p.cur().Literal
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.errorf(p.curSpan(), "invalid float literal: %s", text)
		}
		p.next()
		return &ast.FloatLit{Value: v, Text: text, Sp: p.spanFrom(start)}

	case lexer.TRUE, lexer.FALSE:
		v := p.curIs(lexer.TRUE)
		p.next()
		return &ast.BoolLit{Value: v, Sp: p.spanFrom(start)}

	case lexer.CHAR:
		r := []rune(p.cur().Literal)
		var v rune
		if len(r) > 0 {
			v = r[0]
		}
		p.next()
		return &ast.CharLit{Value: v, Sp: p.spanFrom(start)}

	case lexer.STRING:
		return p.parseStringLit()

	case lexer.SELF:
		p.next()
		return &ast.SelfExpr{Sp: p.spanFrom(start)}

	case lexer.IDENT:
		return p.parseIdentExpr()

	case lexer.MINUS, lexer.BANG, lexer.STAR:
		op := p.cur().Literal
		p.next()
		operand := p.parseExpr(PREFIX)
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpr{Op: op, Operand: operand, Sp: p.spanFrom(start)}

	case lexer.AMP:
		p.next()
		mut := false
		if p.curIs(lexer.MUT) {
			mut = true
			p.next()
		}
		operand := p.parseExpr(PREFIX)
		if operand == nil {
			return nil
		}
		return &ast.RefExpr{Mut: mut, Operand: operand, Sp: p.spanFrom(start)}

	case lexer.IF:
		return p.parseIfExpr()

	case lexer.MATCH:
		return p.parseMatchExpr()

	case lexer.LBRACE:
		return p.parseBlock()

	case lexer.LBRACKET:
		p.next()
		var elems []ast.Expr
		for !p.curIs(lexer.RBRACKET) && !p.curIs(lexer.EOF) {
			if e := p.parseExpr(LOWEST); e != nil {
				elems = append(elems, e)
			} else {
				break
			}
			if p.curIs(lexer.COMMA) {
				p.next()
			}
		}
		p.expect(lexer.RBRACKET)
		return &ast.ArrayLit{Elems: elems, Sp: p.spanFrom(start)}

	case lexer.LPAREN:
		return p.parseParenOrLambda()

	default:
		p.errorf(p.curSpan(), "expected expression, found %q", p.cur().Literal)
		return nil
	}
}

func (p *Parser) parseInfix(left ast.Expr) ast.Expr {
	start := left.Span().Start
	switch p.cur().Type {
	case lexer.PLUS, lexer.MINUS, lexer.STAR, lexer.SLASH, lexer.PERCENT,
		lexer.EQ, lexer.NEQ, lexer.LT, lexer.GT, lexer.LTE, lexer.GTE,
		lexer.AND, lexer.OR:
		op := p.cur().Literal
		prec := precedences[p.cur().Type]
		p.next()
		right := p.parseExpr(prec)
		if right == nil {
			return nil
		}
		return &ast.BinaryExpr{Op: op, Left: left, Right: right, Sp: p.spanFrom(start)}

	case lexer.DOTDOT:
		p.next()
		hi := p.parseExpr(RANGE)
		if hi == nil {
			return nil
		}
		return &ast.RangeExpr{Lo: left, Hi: hi, Sp: p.spanFrom(start)}

	case lexer.AS:
		p.next()
		ty := p.parseType()
		return &ast.CastExpr{E: left, Ty: ty, Sp: p.spanFrom(start)}

	case lexer.LPAREN:
		args := p.parseCallArgs()
		return &ast.CallExpr{Callee: left, Args: args, Sp: p.spanFrom(start)}

	case lexer.DOT:
		p.next()
		name, ok := p.expectIdent()
		if !ok {
			return left
		}
		if p.curIs(lexer.LPAREN) {
			args := p.parseCallArgs()
			return &ast.MethodCallExpr{Recv: left, Name: name, Args: args, Sp: p.spanFrom(start)}
		}
		return &ast.FieldAccessExpr{Recv: left, Name: name, Sp: p.spanFrom(start)}

	case lexer.LBRACKET:
		p.next()
		idx := p.parseExpr(LOWEST)
		p.expect(lexer.RBRACKET)
		return &ast.IndexExpr{Recv: left, Index: idx, Sp: p.spanFrom(start)}
	}
	return left
}

// parseCallArgs parses `(arg, ...)` where arguments may be named
// (`name: expr`). Mixing is diagnosed later by the type checker.
func (p *Parser) parseCallArgs() []ast.Arg {
	var args []ast.Arg
	p.expect(lexer.LPAREN)
	for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
		start := p.curSpan().Start
		var arg ast.Arg
		if p.curIs(lexer.IDENT) && p.peekIs(lexer.COLON) {
			arg.Name = p.cur().Literal
			p.next()
			p.next()
		}
		arg.Value = p.parseExpr(LOWEST)
		if arg.Value == nil {
			break
		}
		arg.Sp = p.spanFrom(start)
		args = append(args, arg)
		if p.curIs(lexer.COMMA) {
			p.next()
		} else {
			break
		}
	}
	p.expect(lexer.RPAREN)
	return args
}

// parseIdentExpr parses an identifier, or a (possibly dotted) struct
// literal when a brace follows.
func (p *Parser) parseIdentExpr() ast.Expr {
	start := p.curSpan().Start
	m := p.mark()
	path := []string{p.cur().Literal}
	p.next()
	for p.curIs(lexer.DOT) && p.peekIs(lexer.IDENT) {
		p.next()
		path = append(path, p.cur().Literal)
		p.next()
	}
	if p.curIs(lexer.LBRACE) && !p.noStructLit && p.structLitAhead() {
		return p.parseStructLit(path, start)
	}
	// Not a struct literal: rewind and let the infix loop build the
	// field-access chain.
	p.reset(m)
	name := p.cur().Literal
	p.next()
	return &ast.Ident{Name: name, Sp: p.spanFrom(start)}
}

// structLitAhead peeks past the brace for `}` or `ident:`, the only
// struct-literal openings.
func (p *Parser) structLitAhead() bool {
	if p.peekIs(lexer.RBRACE) {
		return true
	}
	if p.peekIs(lexer.IDENT) && p.pos+2 < len(p.toks) && p.toks[p.pos+2].Type == lexer.COLON {
		return true
	}
	return false
}

func (p *Parser) parseStructLit(path []string, start int) ast.Expr {
	lit := &ast.StructLit{Path: path}
	p.expect(lexer.LBRACE)
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		fstart := p.curSpan().Start
		name, ok := p.expectIdent()
		if !ok {
			break
		}
		if !p.expect(lexer.COLON) {
			break
		}
		value := p.parseExpr(LOWEST)
		if value == nil {
			break
		}
		lit.Fields = append(lit.Fields, ast.FieldInit{Name: name, Value: value, Sp: p.spanFrom(fstart)})
		if p.curIs(lexer.COMMA) {
			p.next()
		} else {
			break
		}
	}
	p.expect(lexer.RBRACE)
	lit.Sp = p.spanFrom(start)
	return lit
}

func (p *Parser) parseIfExpr() ast.Expr {
	start := p.curSpan().Start
	p.next() // consume if
	cond := p.parseNoStructLit()
	then := p.parseBlock()
	e := &ast.IfExpr{Cond: cond, Then: then}
	if p.curIs(lexer.ELSE) {
		p.next()
		if p.curIs(lexer.IF) {
			e.Else = p.parseIfExpr()
		} else {
			e.Else = p.parseBlock()
		}
	}
	e.Sp = p.spanFrom(start)
	return e
}

func (p *Parser) parseMatchExpr() ast.Expr {
	start := p.curSpan().Start
	p.next() // consume match
	scrutinee := p.parseNoStructLit()
	m := &ast.MatchExpr{Scrutinee: scrutinee}
	p.expect(lexer.LBRACE)
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		astart := p.curSpan().Start
		pat := p.parsePattern()
		if pat == nil {
			break
		}
		p.expect(lexer.ARROW)
		body := p.parseExpr(LOWEST)
		if body == nil {
			break
		}
		m.Arms = append(m.Arms, ast.MatchArm{Pat: pat, Body: body, Sp: p.spanFrom(astart)})
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RBRACE)
	m.Sp = p.spanFrom(start)
	return m
}

// parseParenOrLambda disambiguates `(x, y: T) -> body` lambdas from
// grouping, tuples and the unit literal by a speculative scan.
func (p *Parser) parseParenOrLambda() ast.Expr {
	start := p.curSpan().Start
	if params, ok := p.tryLambdaParams(); ok {
		body := p.parseAssign()
		return &ast.LambdaExpr{Params: params, Body: body, Sp: p.spanFrom(start)}
	}

	p.expect(lexer.LPAREN)
	if p.curIs(lexer.RPAREN) {
		p.next()
		return &ast.UnitLit{Sp: p.spanFrom(start)}
	}
	first := p.parseExpr(LOWEST)
	if first == nil {
		p.expect(lexer.RPAREN)
		return nil
	}
	if p.curIs(lexer.COMMA) {
		elems := []ast.Expr{first}
		for p.curIs(lexer.COMMA) {
			p.next()
			if p.curIs(lexer.RPAREN) {
				break
			}
			if e := p.parseExpr(LOWEST); e != nil {
				elems = append(elems, e)
			} else {
				break
			}
		}
		p.expect(lexer.RPAREN)
		return &ast.TupleLit{Elems: elems, Sp: p.spanFrom(start)}
	}
	p.expect(lexer.RPAREN)
	return first
}

// tryLambdaParams consumes `(a, b: T)` followed by `->` and returns
// the parameter list; on failure the position is restored.
func (p *Parser) tryLambdaParams() ([]ast.Param, bool) {
	m := p.mark()
	errsBefore := p.diags.Len()
	if !p.curIs(lexer.LPAREN) {
		return nil, false
	}
	p.next()
	var params []ast.Param
	for !p.curIs(lexer.RPAREN) {
		pstart := p.curSpan().Start
		if !p.curIs(lexer.IDENT) {
			p.reset(m)
			p.diags.Truncate(errsBefore)
			return nil, false
		}
		param := ast.Param{Name: p.cur().Literal}
		p.next()
		if p.curIs(lexer.COLON) {
			p.next()
			param.Ty = p.parseType()
		}
		param.Sp = p.spanFrom(pstart)
		params = append(params, param)
		if p.curIs(lexer.COMMA) {
			p.next()
			continue
		}
		break
	}
	if !p.curIs(lexer.RPAREN) || !p.peekIs(lexer.ARROW) || p.diags.Len() != errsBefore {
		p.reset(m)
		p.diags.Truncate(errsBefore)
		return nil, false
	}
	p.next() // )
	p.next() // ->
	return params, true
}

// parseStringLit splits an interpolated string into literal and
// expression parts. `{{` and `}}` escape literal braces.
func (p *Parser) parseStringLit() ast.Expr {
	tok := p.cur()
	p.next()
	lit := &ast.StringLit{Sp: tok.Span}

	raw := tok.Literal
	var sb strings.Builder
	flush := func() {
		if sb.Len() > 0 {
			lit.Parts = append(lit.Parts, ast.StringPart{Lit: sb.String()})
			sb.Reset()
		}
	}
	for i := 0; i < len(raw); {
		switch {
		case strings.HasPrefix(raw[i:], "{{"):
			sb.WriteByte('{')
			i += 2
		case strings.HasPrefix(raw[i:], "}}"):
			sb.WriteByte('}')
			i += 2
		case raw[i] == '{':
			end := matchBrace(raw, i)
			if end < 0 {
				p.errorf(tok.Span, "unclosed '{' in string interpolation")
				sb.WriteByte('{')
				i++
				continue
			}
			flush()
			fragment := raw[i+1 : end]
			expr := p.parseInterpolatedExpr(fragment, tok.Span)
			if expr != nil {
				lit.Parts = append(lit.Parts, ast.StringPart{Expr: expr})
			}
			i = end + 1
		case raw[i] == '}':
			p.errorf(tok.Span, "stray '}' in string literal; use '}}' for a literal brace")
			i++
		default:
			sb.WriteByte(raw[i])
			i++
		}
	}
	if sb.Len() > 0 || len(lit.Parts) == 0 {
		lit.Parts = append(lit.Parts, ast.StringPart{Lit: sb.String()})
	}
	return lit
}

func matchBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseInterpolatedExpr parses one `{...}` fragment. The fragment is
// left-padded with blanks so its token spans land inside the string
// literal's own span.
func (p *Parser) parseInterpolatedExpr(fragment string, span source.Span) ast.Expr {
	padded := strings.Repeat(" ", span.Start) + fragment
	sub := New(padded, p.diags)
	expr := sub.parseAssign()
	if expr == nil {
		p.errorf(span, "invalid expression in string interpolation")
		return nil
	}
	if !sub.curIs(lexer.EOF) {
		p.diags.Addf(diag.ParseError, span, "unexpected %q after interpolated expression", sub.cur().Literal)
	}
	return expr
}
