package parser

import (
	"github.com/wisplang/wisp/internal/ast"
	"github.com/wisplang/wisp/internal/lexer"
)

// parseItem parses one top-level declaration.
func (p *Parser) parseItem() ast.Item {
	public := false
	if p.curIs(lexer.PUB) {
		public = true
		p.next()
	}

	switch p.cur().Type {
	case lexer.FN:
		return p.parseFuncDecl(public)
	case lexer.STRUCT:
		return p.parseStructDecl(public)
	case lexer.ENUM:
		return p.parseEnumDecl(public)
	case lexer.TRAIT:
		return p.parseTraitDecl(public)
	case lexer.IMPL:
		if public {
			p.errorf(p.curSpan(), "impl blocks cannot be declared pub")
		}
		return p.parseImplBlock()
	case lexer.CONST:
		return p.parseConstDecl(public)
	case lexer.TYPE:
		return p.parseTypeAlias(public)
	case lexer.EXTERN:
		if public {
			p.errorf(p.curSpan(), "extern blocks cannot be declared pub")
		}
		return p.parseExternBlock()
	default:
		p.errorf(p.curSpan(), "expected item, found %q", p.cur().Literal)
		return nil
	}
}

// parseTypeParams parses `<T, U: Bound, V = Default>` if present.
func (p *Parser) parseTypeParams() []ast.TypeParamDecl {
	if !p.curIs(lexer.LT) {
		return nil
	}
	p.next()
	var params []ast.TypeParamDecl
	for !p.curIs(lexer.GT) && !p.curIs(lexer.EOF) {
		start := p.curSpan().Start
		name, ok := p.expectIdent()
		if !ok {
			break
		}
		tp := ast.TypeParamDecl{Name: name}
		if p.curIs(lexer.COLON) {
			p.next()
			for {
				bound, ok := p.expectIdent()
				if !ok {
					break
				}
				tp.Bounds = append(tp.Bounds, bound)
				if p.curIs(lexer.PLUS) {
					p.next()
					continue
				}
				break
			}
		}
		if p.curIs(lexer.ASSIGN) {
			p.next()
			tp.Default = p.parseType()
		}
		tp.Sp = p.spanFrom(start)
		params = append(params, tp)
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.GT)
	return params
}

// parseParams parses a parenthesized parameter list, returning the
// self kind (methods) and the declared parameters.
func (p *Parser) parseParams() (ast.SelfKind, []ast.Param) {
	selfKind := ast.NoSelf
	var params []ast.Param
	p.expect(lexer.LPAREN)

	first := true
	for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
		start := p.curSpan().Start
		if first && (p.curIs(lexer.SELF) || (p.curIs(lexer.AMP) && (p.peekIs(lexer.SELF) || p.peekIs(lexer.MUT)))) {
			selfKind = p.parseSelfParam()
		} else {
			mut := false
			if p.curIs(lexer.MUT) {
				mut = true
				p.next()
			}
			name, ok := p.expectIdent()
			if !ok {
				break
			}
			if !p.expect(lexer.COLON) {
				break
			}
			ty := p.parseType()
			params = append(params, ast.Param{Name: name, Mut: mut, Ty: ty, Sp: p.spanFrom(start)})
		}
		first = false
		if p.curIs(lexer.COMMA) {
			p.next()
		} else {
			break
		}
	}
	p.expect(lexer.RPAREN)
	return selfKind, params
}

func (p *Parser) parseSelfParam() ast.SelfKind {
	if p.curIs(lexer.SELF) {
		p.next()
		return ast.SelfValue
	}
	// & [mut] self
	p.next() // consume &
	if p.curIs(lexer.MUT) {
		p.next()
		p.expect(lexer.SELF)
		return ast.SelfRefMut
	}
	p.expect(lexer.SELF)
	return ast.SelfRef
}

func (p *Parser) parseFuncDecl(public bool) *ast.FuncDecl {
	start := p.curSpan().Start
	p.next() // consume fn

	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	fn := &ast.FuncDecl{Public: public, Name: name}
	fn.TypeParams = p.parseTypeParams()
	fn.SelfParam, fn.Params = p.parseParams()

	if p.curIs(lexer.ARROW) {
		p.next()
		fn.Ret = p.parseType()
	}
	if p.curIs(lexer.LBRACE) {
		fn.Body = p.parseBlock()
	} else {
		p.expect(lexer.SEMICOLON)
	}
	fn.Sp = p.spanFrom(start)
	return fn
}

func (p *Parser) parseStructDecl(public bool) *ast.StructDecl {
	start := p.curSpan().Start
	p.next() // consume struct

	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	s := &ast.StructDecl{Public: public, Name: name}
	s.TypeParams = p.parseTypeParams()
	p.expect(lexer.LBRACE)
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		fstart := p.curSpan().Start
		fieldPub := false
		if p.curIs(lexer.PUB) {
			fieldPub = true
			p.next()
		}
		fname, ok := p.expectIdent()
		if !ok {
			break
		}
		if !p.expect(lexer.COLON) {
			break
		}
		fty := p.parseType()
		s.Fields = append(s.Fields, ast.FieldDef{Public: fieldPub, Name: fname, Ty: fty, Sp: p.spanFrom(fstart)})
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RBRACE)
	s.Sp = p.spanFrom(start)
	return s
}

func (p *Parser) parseEnumDecl(public bool) *ast.EnumDecl {
	start := p.curSpan().Start
	p.next() // consume enum

	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	e := &ast.EnumDecl{Public: public, Name: name}
	e.TypeParams = p.parseTypeParams()
	p.expect(lexer.LBRACE)
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		vstart := p.curSpan().Start
		vname, ok := p.expectIdent()
		if !ok {
			break
		}
		v := ast.VariantDef{Name: vname}
		if p.curIs(lexer.LPAREN) {
			p.next()
			for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
				v.Fields = append(v.Fields, p.parseType())
				if p.curIs(lexer.COMMA) {
					p.next()
				}
			}
			p.expect(lexer.RPAREN)
		}
		v.Sp = p.spanFrom(vstart)
		e.Variants = append(e.Variants, v)
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RBRACE)
	e.Sp = p.spanFrom(start)
	return e
}

func (p *Parser) parseTraitDecl(public bool) *ast.TraitDecl {
	start := p.curSpan().Start
	p.next() // consume trait

	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	t := &ast.TraitDecl{Public: public, Name: name}
	t.TypeParams = p.parseTypeParams()
	p.expect(lexer.LBRACE)
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		if !p.curIs(lexer.FN) {
			p.errorf(p.curSpan(), "expected method signature, found %q", p.cur().Literal)
			p.next()
			continue
		}
		mstart := p.curSpan().Start
		p.next()
		mname, ok := p.expectIdent()
		if !ok {
			break
		}
		m := ast.TraitMethod{Name: mname}
		m.SelfParam, m.Params = p.parseParams()
		if p.curIs(lexer.ARROW) {
			p.next()
			m.Ret = p.parseType()
		}
		p.expect(lexer.SEMICOLON)
		m.Sp = p.spanFrom(mstart)
		t.Methods = append(t.Methods, m)
	}
	p.expect(lexer.RBRACE)
	t.Sp = p.spanFrom(start)
	return t
}

func (p *Parser) parseImplBlock() *ast.ImplBlock {
	start := p.curSpan().Start
	p.next() // consume impl

	blk := &ast.ImplBlock{}
	blk.TypeParams = p.parseTypeParams()

	// Either `impl Target` or `impl Trait<Args> for Target`. Both start
	// with a type; reinterpret the head as a trait if `for` follows.
	head := p.parseType()
	if p.curIs(lexer.FOR) {
		p.next()
		if named, ok := head.(*ast.NamedType); ok && len(named.Path) == 1 {
			blk.TraitName = named.Path[0]
			blk.TraitArgs = named.Args
		} else {
			p.errorf(head.Span(), "expected trait name before 'for'")
		}
		blk.Target = p.parseType()
	} else {
		blk.Target = head
	}

	p.expect(lexer.LBRACE)
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		public := false
		if p.curIs(lexer.PUB) {
			public = true
			p.next()
		}
		if !p.curIs(lexer.FN) {
			p.errorf(p.curSpan(), "expected method, found %q", p.cur().Literal)
			p.next()
			continue
		}
		if fn := p.parseFuncDecl(public); fn != nil {
			blk.Methods = append(blk.Methods, fn)
		}
	}
	p.expect(lexer.RBRACE)
	blk.Sp = p.spanFrom(start)
	return blk
}

func (p *Parser) parseConstDecl(public bool) *ast.ConstDecl {
	start := p.curSpan().Start
	p.next() // consume const

	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	c := &ast.ConstDecl{Public: public, Name: name}
	p.expect(lexer.COLON)
	c.Ty = p.parseType()
	p.expect(lexer.ASSIGN)
	c.Value = p.parseExpr(LOWEST)
	p.expect(lexer.SEMICOLON)
	c.Sp = p.spanFrom(start)
	return c
}

func (p *Parser) parseTypeAlias(public bool) *ast.TypeAliasDecl {
	start := p.curSpan().Start
	p.next() // consume type

	name, ok := p.expectIdent()
	if !ok {
		return nil
	}
	t := &ast.TypeAliasDecl{Public: public, Name: name}
	p.expect(lexer.ASSIGN)
	t.Ty = p.parseType()
	p.expect(lexer.SEMICOLON)
	t.Sp = p.spanFrom(start)
	return t
}

func (p *Parser) parseExternBlock() *ast.ExternBlock {
	start := p.curSpan().Start
	p.next() // consume extern

	blk := &ast.ExternBlock{}
	p.expect(lexer.LBRACE)
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		switch p.cur().Type {
		case lexer.FN:
			fstart := p.curSpan().Start
			p.next()
			name, ok := p.expectIdent()
			if !ok {
				return blk
			}
			f := ast.ExternFunc{Name: name}
			_, f.Params = p.parseParams()
			if p.curIs(lexer.ARROW) {
				p.next()
				f.Ret = p.parseType()
			}
			p.expect(lexer.SEMICOLON)
			f.Sp = p.spanFrom(fstart)
			blk.Funcs = append(blk.Funcs, f)
		case lexer.STATIC:
			sstart := p.curSpan().Start
			p.next()
			name, ok := p.expectIdent()
			if !ok {
				return blk
			}
			p.expect(lexer.COLON)
			ty := p.parseType()
			p.expect(lexer.SEMICOLON)
			blk.Statics = append(blk.Statics, ast.ExternStatic{Name: name, Ty: ty, Sp: p.spanFrom(sstart)})
		default:
			p.errorf(p.curSpan(), "expected fn or static in extern block, found %q", p.cur().Literal)
			p.next()
		}
	}
	p.expect(lexer.RBRACE)
	blk.Sp = p.spanFrom(start)
	return blk
}

// parseImportDecl handles the import forms:
//
//	import std.io
//	import std.io as term
//	import std.io.{print, println as pln}
//	import {print} from std.io
//	pub import std.io as io
func (p *Parser) parseImportDecl() *ast.ImportDecl {
	start := p.curSpan().Start
	imp := &ast.ImportDecl{}
	if p.curIs(lexer.PUB) {
		imp.Public = true
		p.next()
	}
	p.next() // consume import

	// from-clause form
	if p.curIs(lexer.LBRACE) {
		imp.Items = p.parseImportItems()
		if name, ok := p.expectIdent(); !ok || name != "from" {
			p.errorf(p.curSpan(), "expected 'from' after import list")
			return nil
		}
		imp.Path = p.parseImportPath()
		if p.curIs(lexer.SEMICOLON) {
			p.next()
		}
		imp.Sp = p.spanFrom(start)
		return imp
	}

	imp.Path = p.parseImportPath()
	if len(imp.Path) == 0 {
		return nil
	}
	// Trailing `.{a, b}` destructuring was captured by parseImportPath
	// signalling with a brace.
	if p.curIs(lexer.LBRACE) {
		imp.Items = p.parseImportItems()
	}
	if p.curIs(lexer.AS) {
		p.next()
		alias, ok := p.expectIdent()
		if !ok {
			return nil
		}
		imp.Alias = alias
	}
	if p.curIs(lexer.SEMICOLON) {
		p.next()
	}
	imp.Sp = p.spanFrom(start)
	return imp
}

// parseImportPath reads dotted segments, stopping before a `.{`.
func (p *Parser) parseImportPath() []string {
	var segs []string
	for {
		switch {
		case p.curIs(lexer.IDENT):
			segs = append(segs, p.cur().Literal)
			p.next()
		case p.curIs(lexer.AT):
			segs = append(segs, "@")
			p.next()
		default:
			p.errorf(p.curSpan(), "expected import path segment, found %q", p.cur().Literal)
			return segs
		}
		if p.curIs(lexer.DOT) {
			if p.peekIs(lexer.LBRACE) {
				p.next() // leave LBRACE for the caller
				return segs
			}
			p.next()
			continue
		}
		return segs
	}
}

func (p *Parser) parseImportItems() []ast.ImportItem {
	var items []ast.ImportItem
	p.expect(lexer.LBRACE)
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		start := p.curSpan().Start
		name, ok := p.expectIdent()
		if !ok {
			break
		}
		item := ast.ImportItem{Name: name}
		if p.curIs(lexer.AS) {
			p.next()
			alias, ok := p.expectIdent()
			if !ok {
				break
			}
			item.Alias = alias
		}
		item.Sp = p.spanFrom(start)
		items = append(items, item)
		if p.curIs(lexer.COMMA) {
			p.next()
		}
	}
	p.expect(lexer.RBRACE)
	return items
}
