package check

import (
	"github.com/wisplang/wisp/internal/resolve"
	"github.com/wisplang/wisp/internal/source"
	"github.com/wisplang/wisp/internal/types"
)

// checkStringLit types a string literal. A plain literal is a `str`;
// an interpolated one desugars into a left-to-right chain of
// `String::add` calls over `String::from` and `to_string()` pieces,
// so the MIR and the backend see only ordinary calls.
func (c *Checker) checkStringLit(ex *resolve.StringLit) Expr {
	plain := true
	for _, p := range ex.Parts {
		if p.Expr != nil {
			plain = false
		}
	}
	if plain {
		var text string
		for _, p := range ex.Parts {
			text += p.Lit
		}
		return &StrLit{Value: text, Sp: ex.Sp}
	}

	stringDef, ok := c.findStringType()
	if !ok {
		c.errorf(ex.Sp, "string interpolation requires the std 'String' type")
		return &ErrorExpr{Sp: ex.Sp}
	}
	stringTy := types.Type(&types.Struct{Def: stringDef})
	from, hasFrom := c.ctx.AssociatedFunctions[types.MethodKey{Type: stringDef, Name: "from"}]
	add, hasAdd := c.ctx.Methods[types.MethodKey{Type: stringDef, Name: "add"}]
	if !hasFrom || !hasAdd {
		c.errorf(ex.Sp, "string interpolation requires 'String.from' and 'String::add'")
		return &ErrorExpr{Sp: ex.Sp}
	}

	var chain Expr
	for _, part := range ex.Parts {
		var piece Expr
		if part.Expr == nil {
			if part.Lit == "" {
				continue
			}
			piece = c.stringFrom(from, stringTy, part.Lit, ex.Sp)
		} else {
			piece = c.displayPiece(part.Expr, stringDef, stringTy)
		}
		if chain == nil {
			chain = piece
			continue
		}
		selfMode := resolve.SelfValue
		if add.SelfRef {
			selfMode = resolve.SelfByRef
		} else if add.SelfRefMut {
			selfMode = resolve.SelfRefMut
		}
		chain = &MethodCall{
			Kind: StructMethod, Recv: chain, Method: add.Def, Name: "add",
			RecvName: "String", SelfMode: selfMode,
			Args: []Expr{piece}, Ty: stringTy, Sp: ex.Sp,
		}
	}
	if chain == nil {
		chain = c.stringFrom(from, stringTy, "", ex.Sp)
	}
	return chain
}

func (c *Checker) stringFrom(from types.MethodInfo, stringTy types.Type, lit string, sp source.Span) Expr {
	return &Call{
		Callee: &FuncRef{
			Def: from.Def, Name: "from", QualName: "String::from",
			Ty: from.Ty, Sp: sp,
		},
		Args: []Expr{&StrLit{Value: lit, Sp: sp}},
		Ty:   stringTy,
		Sp:   sp,
	}
}

// displayPiece converts one interpolated expression to a String:
// values already of type String pass through, anything else needs a
// `to_string` via its Display impl.
func (c *Checker) displayPiece(e resolve.Expr, stringDef types.DefId, stringTy types.Type) Expr {
	te := c.checkExpr(e, nil)
	ty := c.ctx.Apply(te.Type())

	if st, ok := ty.(*types.Struct); ok && st.Def == stringDef {
		return te
	}

	displayTrait, hasDisplay := c.traitsByName["Display"]

	switch t := ty.(type) {
	case *types.Error:
		return te

	case *types.Prim:
		key := types.PrimMethodKey{Prim: t.Kind.String(), Name: "to_string"}
		info, hasMethod := c.ctx.PrimitiveMethods[key]
		implOK := hasDisplay && c.ctx.PrimitiveTraitImpls[types.PrimImplKey{Prim: t.Kind.String(), Trait: displayTrait}]
		if !hasMethod || !implOK {
			c.errorf(e.Span(), "type %s does not implement 'Display' for string interpolation", t)
			return &ErrorExpr{Sp: e.Span()}
		}
		return &MethodCall{
			Kind: PrimitiveMethod, Recv: te, Method: info.Def, Name: "to_string",
			RecvName: t.Kind.String(), SelfMode: selfModeOf(info),
			Ty: stringTy, Sp: e.Span(),
		}

	case *types.Struct:
		return c.nominalToString(te, t.Def, displayTrait, hasDisplay, stringTy, e.Span())
	case *types.Enum:
		return c.nominalToString(te, t.Def, displayTrait, hasDisplay, stringTy, e.Span())

	case *types.TypeParam:
		if hasDisplay && c.satisfiesBound(t, displayTrait) {
			return &MethodCall{
				Kind: TraitMethod, Recv: te, Name: "to_string",
				RecvName: t.Name, SelfMode: resolve.SelfByRef,
				Bounds: c.typeParams[t.Def], Ty: stringTy, Sp: e.Span(),
			}
		}
	}

	c.errorf(e.Span(), "type %s does not implement 'Display' for string interpolation", c.ctx.TypeString(ty))
	return &ErrorExpr{Sp: e.Span()}
}

func (c *Checker) nominalToString(te Expr, def types.DefId, displayTrait types.DefId, hasDisplay bool, stringTy types.Type, sp source.Span) Expr {
	info, hasMethod := c.ctx.Methods[types.MethodKey{Type: def, Name: "to_string"}]
	implOK := hasDisplay
	if implOK {
		_, implOK = c.ctx.TraitImpls[types.ImplKey{Type: def, Trait: displayTrait}]
	}
	if !hasMethod || !implOK {
		c.errorf(sp, "type %s does not implement 'Display' for string interpolation", c.ctx.TypeNames[def])
		return &ErrorExpr{Sp: sp}
	}
	return &MethodCall{
		Kind: StructMethod, Recv: te, Method: info.Def, Name: "to_string",
		RecvName: c.ctx.TypeNames[def], SelfMode: selfModeOf(info),
		Ty: stringTy, Sp: sp,
	}
}

func selfModeOf(info types.MethodInfo) resolve.SelfMode {
	switch {
	case info.SelfRefMut:
		return resolve.SelfRefMut
	case info.SelfRef:
		return resolve.SelfByRef
	}
	return resolve.SelfValue
}

// findStringType locates the std String struct. The lowest DefId wins
// so the choice is deterministic when shadowed.
func (c *Checker) findStringType() (types.DefId, bool) {
	var best types.DefId
	found := false
	for def, sd := range c.structDefs {
		if sd.Name == "String" && (!found || def < best) {
			best = def
			found = true
		}
	}
	return best, found
}
