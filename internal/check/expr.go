package check

import (
	"github.com/wisplang/wisp/internal/resolve"
	"github.com/wisplang/wisp/internal/types"
)

// checkExpr types an expression. expected may be nil; when present it
// guides literal defaulting and generic inference but the caller
// still unifies.
func (c *Checker) checkExpr(e resolve.Expr, expected types.Type) Expr {
	switch ex := e.(type) {
	case *resolve.ErrorExpr:
		return &ErrorExpr{Sp: ex.Sp}

	case *resolve.IntLit:
		ty := types.Type(types.TI32)
		if p, ok := c.ctx.Apply(orErr(expected)).(*types.Prim); ok && p.Kind.IsNumeric() {
			if p.Kind.IsFloat() {
				return &FloatLit{Value: float64(ex.Value), Ty: p, Sp: ex.Sp}
			}
			ty = p
		}
		return &IntLit{Value: ex.Value, Ty: ty, Sp: ex.Sp}

	case *resolve.FloatLit:
		ty := types.Type(types.TF64)
		if p, ok := c.ctx.Apply(orErr(expected)).(*types.Prim); ok && p.Kind.IsFloat() {
			ty = p
		}
		return &FloatLit{Value: ex.Value, Ty: ty, Sp: ex.Sp}

	case *resolve.BoolLit:
		return &BoolLit{Value: ex.Value, Sp: ex.Sp}

	case *resolve.CharLit:
		return &CharLit{Value: ex.Value, Sp: ex.Sp}

	case *resolve.StringLit:
		return c.checkStringLit(ex)

	case *resolve.VarRef:
		return c.checkVarRef(ex)

	case *resolve.SelfRef:
		ty, ok := c.varTypes[ex.Def]
		if !ok {
			return &ErrorExpr{Sp: ex.Sp}
		}
		return &VarRef{Def: ex.Def, Name: "self", Kind: resolve.DefParam, Ty: ty, Sp: ex.Sp}

	case *resolve.TypeRef:
		c.errorf(ex.Sp, "expected a value, found type %s", c.ctx.TypeString(ex.Ty))
		return &ErrorExpr{Sp: ex.Sp}

	case *resolve.NamespacePath:
		c.errorf(ex.Sp, "namespace '%s' is not a value", ex.NS.Name)
		return &ErrorExpr{Sp: ex.Sp}

	case *resolve.VariantRef:
		return c.checkVariantRef(ex, nil)

	case *resolve.Unary:
		return c.checkUnary(ex)

	case *resolve.RefTake:
		operand := c.checkExpr(ex.Operand, nil)
		return &RefTake{Mut: ex.Mut, Operand: operand, Ty: &types.Ref{Mut: ex.Mut, Inner: operand.Type()}, Sp: ex.Sp}

	case *resolve.Binary:
		return c.checkBinary(ex)

	case *resolve.Range:
		c.errorf(ex.Sp, "range expressions are only valid in for loops")
		return &ErrorExpr{Sp: ex.Sp}

	case *resolve.Assign:
		return c.checkAssign(ex)

	case *resolve.Call:
		return c.checkCall(ex, expected)

	case *resolve.MethodCall:
		return c.checkMethodCall(ex)

	case *resolve.FieldAccess:
		return c.checkFieldAccess(ex)

	case *resolve.Index:
		return c.checkIndex(ex)

	case *resolve.StructLit:
		return c.checkStructLit(ex, expected)

	case *resolve.ArrayLit:
		out := &ArrayLit{Sp: ex.Sp}
		var elemTy types.Type
		if len(ex.Elems) == 0 {
			elemTy = c.ctx.NewVar()
		}
		for i, el := range ex.Elems {
			te := c.checkExpr(el, elemTy)
			if i == 0 {
				elemTy = te.Type()
			} else if err := c.ctx.Unify(elemTy, te.Type()); err != nil {
				c.errorf(el.Span(), "array element type mismatch: %s vs %s",
					c.ctx.TypeString(elemTy), c.ctx.TypeString(te.Type()))
			}
			out.Elems = append(out.Elems, te)
		}
		out.Ty = &types.Array{Elem: elemTy, Size: len(ex.Elems)}
		return out

	case *resolve.TupleLit:
		out := &TupleLit{Sp: ex.Sp}
		var elems []types.Type
		for _, el := range ex.Elems {
			te := c.checkExpr(el, nil)
			out.Elems = append(out.Elems, te)
			elems = append(elems, te.Type())
		}
		out.Ty = &types.Tuple{Elems: elems}
		return out

	case *resolve.UnitLit:
		return &UnitLit{Sp: ex.Sp}

	case *resolve.Block:
		return c.checkBlock(ex, expected)

	case *resolve.If:
		return c.checkIf(ex, expected)

	case *resolve.Match:
		return c.checkMatch(ex, expected)

	case *resolve.Lambda:
		return c.checkLambda(ex)

	case *resolve.Cast:
		return c.checkCast(ex)
	}
	c.errorf(e.Span(), "unsupported expression")
	return &ErrorExpr{Sp: e.Span()}
}

// orErr substitutes the error sentinel for a nil expected type so
// Apply never sees nil.
func orErr(t types.Type) types.Type {
	if t == nil {
		return types.TErr
	}
	return t
}

func (c *Checker) checkVarRef(ex *resolve.VarRef) Expr {
	info := c.res.Def(ex.Def)
	kind := resolve.DefLocal
	if info != nil {
		kind = info.Kind
	}
	switch kind {
	case resolve.DefFunc, resolve.DefMethod, resolve.DefExternFunc:
		ty, ok := c.ctx.DefTypes[ex.Def].(*types.Function)
		if !ok {
			return &ErrorExpr{Sp: ex.Sp}
		}
		if _, generic := c.ctx.GenericFunctions[ex.Def]; generic {
			// A bare generic reference has no concrete instantiation.
			c.errorf(ex.Sp, "generic function '%s' must be called", ex.Name)
			return &ErrorExpr{Sp: ex.Sp}
		}
		c.ctx.SpanTypes[ex.Sp] = c.ctx.TypeString(ty)
		return &FuncRef{
			Def: ex.Def, Name: ex.Name, QualName: ex.Name,
			Extern: kind == resolve.DefExternFunc, Ty: ty, Sp: ex.Sp,
		}
	case resolve.DefConst, resolve.DefExternStatic:
		ty := c.ctx.DefTypes[ex.Def]
		if ty == nil {
			ty = types.TErr
		}
		return &VarRef{Def: ex.Def, Name: ex.Name, Kind: kind, Ty: ty, Sp: ex.Sp}
	}
	ty, ok := c.varTypes[ex.Def]
	if !ok {
		c.errorf(ex.Sp, "'%s' used before its type is known", ex.Name)
		ty = types.TErr
	}
	c.ctx.SpanTypes[ex.Sp] = c.ctx.TypeString(ty)
	return &VarRef{Def: ex.Def, Name: ex.Name, Kind: kind, Ty: ty, Sp: ex.Sp}
}

// checkVariantRef types a bare variant reference. A unit variant is a
// value of the enum; a payload variant must be called.
func (c *Checker) checkVariantRef(ex *resolve.VariantRef, args []types.Type) Expr {
	ed := c.enumDefs[ex.Enum]
	if ed == nil {
		return &ErrorExpr{Sp: ex.Sp}
	}
	enumTy := c.instantiateEnum(ed)
	variant := ed.Variants[ex.Index]
	if len(variant.Fields) == 0 {
		return &VariantCtor{Enum: ex.Enum, Variant: ex.Variant, Index: ex.Index, Ty: enumTy, Sp: ex.Sp}
	}
	// Constructor used as a value: a function from payload to enum.
	sub := c.enumParamSubst(ed, enumTy)
	params := make([]types.Type, len(variant.Fields))
	for i, f := range variant.Fields {
		params[i] = substituteParams(f, sub)
	}
	return &VariantCtor{
		Enum: ex.Enum, Variant: ex.Variant, Index: ex.Index,
		Ty: &types.Function{Params: params, Ret: enumTy}, Sp: ex.Sp,
	}
}

// instantiateEnum builds the enum type with fresh inference variables
// for its type parameters.
func (c *Checker) instantiateEnum(ed *resolve.EnumDef) types.Type {
	if len(ed.TypeParams) == 0 {
		return &types.Enum{Def: ed.Def}
	}
	args := make([]types.Type, len(ed.TypeParams))
	for i := range ed.TypeParams {
		args[i] = c.ctx.NewVar()
	}
	return &types.Enum{Def: ed.Def, Args: args}
}

func (c *Checker) enumParamSubst(ed *resolve.EnumDef, enumTy types.Type) map[types.DefId]types.Type {
	sub := make(map[types.DefId]types.Type)
	if en, ok := enumTy.(*types.Enum); ok {
		for i, p := range ed.TypeParams {
			if i < len(en.Args) {
				sub[p.Def] = en.Args[i]
			}
		}
	}
	return sub
}

// substituteParams replaces TypeParams per the substitution map.
func substituteParams(t types.Type, sub map[types.DefId]types.Type) types.Type {
	return types.Substitute(t, sub)
}

func (c *Checker) checkUnary(ex *resolve.Unary) Expr {
	operand := c.checkExpr(ex.Operand, nil)
	ty := c.ctx.Apply(operand.Type())
	switch ex.Op {
	case "-":
		if p, ok := ty.(*types.Prim); ok && p.Kind.IsNumeric() {
			if p.Kind.IsInteger() && !p.Kind.IsSigned() {
				c.errorf(ex.Sp, "cannot negate unsigned type %s", p)
			}
			return &Unary{Op: "-", Operand: operand, Ty: p, Sp: ex.Sp}
		}
		if isErrTy(ty) {
			return &ErrorExpr{Sp: ex.Sp}
		}
		c.errorf(ex.Sp, "cannot negate %s", c.ctx.TypeString(ty))
		return &ErrorExpr{Sp: ex.Sp}
	case "!":
		if err := c.ctx.Unify(types.TBool, ty); err != nil {
			c.errorf(ex.Sp, "'!' requires bool, found %s", c.ctx.TypeString(ty))
		}
		return &Unary{Op: "!", Operand: operand, Ty: types.TBool, Sp: ex.Sp}
	case "*":
		if r, ok := ty.(*types.Ref); ok {
			return &Unary{Op: "*", Operand: operand, Ty: r.Inner, Sp: ex.Sp}
		}
		if isErrTy(ty) {
			return &ErrorExpr{Sp: ex.Sp}
		}
		c.errorf(ex.Sp, "cannot dereference %s", c.ctx.TypeString(ty))
		return &ErrorExpr{Sp: ex.Sp}
	}
	c.errorf(ex.Sp, "unsupported unary operator %q", ex.Op)
	return &ErrorExpr{Sp: ex.Sp}
}

func (c *Checker) checkAssign(ex *resolve.Assign) Expr {
	target := c.checkExpr(ex.Target, nil)
	if !isPlace(target) {
		c.errorf(ex.Target.Span(), "invalid assignment target")
	}

	if ex.Op != "=" {
		// Compound assignment desugars to `target = target op value`
		// through the regular operator path.
		op := ex.Op[:1]
		rhs := c.checkBinaryParts(target, ex.Value, op, ex.Sp)
		return &Assign{Target: target, Value: rhs, Sp: ex.Sp}
	}

	value := c.checkExpr(ex.Value, target.Type())
	if err := c.ctx.Unify(target.Type(), value.Type()); err != nil {
		c.errorf(ex.Sp, "cannot assign %s to %s",
			c.ctx.TypeString(value.Type()), c.ctx.TypeString(target.Type()))
	}
	return &Assign{Target: target, Value: value, Sp: ex.Sp}
}

// isPlace reports whether a typed expression denotes an assignable
// location.
func isPlace(e Expr) bool {
	switch ex := e.(type) {
	case *VarRef:
		return ex.Kind == resolve.DefLocal || ex.Kind == resolve.DefParam
	case *FieldAccess:
		return isPlace(ex.Recv) || isDeref(ex.Recv)
	case *Index:
		return isPlace(ex.Recv) || isDeref(ex.Recv)
	case *Unary:
		return ex.Op == "*"
	case *ErrorExpr:
		return true
	}
	return false
}

func isDeref(e Expr) bool {
	u, ok := e.(*Unary)
	return ok && u.Op == "*"
}

func (c *Checker) checkFieldAccess(ex *resolve.FieldAccess) Expr {
	recv := c.checkExpr(ex.Recv, nil)
	recvTy := c.ctx.Apply(recv.Type())

	// Auto-deref a single reference level.
	if r, ok := recvTy.(*types.Ref); ok {
		recvTy = c.ctx.Apply(r.Inner)
	}

	st, ok := recvTy.(*types.Struct)
	if !ok {
		if tup, ok := recvTy.(*types.Tuple); ok {
			return c.checkTupleField(ex, recv, tup)
		}
		if !isErrTy(recvTy) {
			c.errorf(ex.Sp, "type %s has no field '%s'", c.ctx.TypeString(recvTy), ex.Name)
		}
		return &ErrorExpr{Sp: ex.Sp}
	}

	fields := c.ctx.StructFields[st.Def]
	sub := c.structParamSubst(st)
	for i, f := range fields {
		if f.Name == ex.Name {
			fieldTy := substituteParams(f.Ty, sub)
			c.ctx.SpanTypes[ex.Sp] = c.ctx.TypeString(fieldTy)
			return &FieldAccess{Recv: recv, Index: i, Name: ex.Name, Ty: fieldTy, Sp: ex.Sp}
		}
	}
	c.errorf(ex.Sp, "struct '%s' has no field '%s'", c.ctx.TypeNames[st.Def], ex.Name)
	return &ErrorExpr{Sp: ex.Sp}
}

func (c *Checker) checkTupleField(ex *resolve.FieldAccess, recv Expr, tup *types.Tuple) Expr {
	idx := -1
	if len(ex.Name) > 0 && ex.Name[0] >= '0' && ex.Name[0] <= '9' {
		idx = 0
		for _, ch := range ex.Name {
			if ch < '0' || ch > '9' {
				idx = -1
				break
			}
			idx = idx*10 + int(ch-'0')
		}
	}
	if idx < 0 || idx >= len(tup.Elems) {
		c.errorf(ex.Sp, "tuple has no element '%s'", ex.Name)
		return &ErrorExpr{Sp: ex.Sp}
	}
	return &FieldAccess{Recv: recv, Index: idx, Name: ex.Name, Ty: tup.Elems[idx], Sp: ex.Sp}
}

// structParamSubst maps a struct's declared type parameters to the
// instance's arguments.
func (c *Checker) structParamSubst(st *types.Struct) map[types.DefId]types.Type {
	sd := c.structDefs[st.Def]
	sub := make(map[types.DefId]types.Type)
	if sd == nil {
		return sub
	}
	for i, p := range sd.TypeParams {
		if i < len(st.Args) {
			sub[p.Def] = st.Args[i]
		}
	}
	return sub
}

func (c *Checker) checkIndex(ex *resolve.Index) Expr {
	recv := c.checkExpr(ex.Recv, nil)
	idx := c.checkExpr(ex.Index, types.TU64)
	if !c.isIntegerType(idx.Type()) {
		c.errorf(ex.Index.Span(), "index must be an integer, found %s", c.ctx.TypeString(idx.Type()))
	}

	recvTy := c.ctx.Apply(recv.Type())
	if r, ok := recvTy.(*types.Ref); ok {
		recvTy = c.ctx.Apply(r.Inner)
	}
	switch t := recvTy.(type) {
	case *types.Slice:
		return &Index{Recv: recv, Idx: idx, Ty: t.Elem, Sp: ex.Sp}
	case *types.Array:
		return &Index{Recv: recv, Idx: idx, Ty: t.Elem, Sp: ex.Sp}
	}
	if !isErrTy(recvTy) {
		c.errorf(ex.Sp, "type %s cannot be indexed", c.ctx.TypeString(recvTy))
	}
	return &ErrorExpr{Sp: ex.Sp}
}

func (c *Checker) checkStructLit(ex *resolve.StructLit, expected types.Type) Expr {
	sd := c.structDefs[ex.Struct]
	if sd == nil {
		return &ErrorExpr{Sp: ex.Sp}
	}

	// Fresh variables for the struct's type parameters; field
	// initializers and the expected type pin them down.
	args := make([]types.Type, len(sd.TypeParams))
	sub := make(map[types.DefId]types.Type)
	for i, p := range sd.TypeParams {
		v := c.ctx.NewVar()
		args[i] = v
		sub[p.Def] = v
	}
	st := &types.Struct{Def: sd.Def, Args: args}
	if expected != nil {
		_ = c.ctx.Unify(expected, st)
	}

	out := &StructLit{Def: sd.Def, Ty: st, Sp: ex.Sp}
	out.Fields = make([]Expr, len(sd.Fields))
	seen := make(map[string]bool)
	for _, init := range ex.Fields {
		if seen[init.Name] {
			c.errorf(init.Sp, "field '%s' initialized twice", init.Name)
			continue
		}
		seen[init.Name] = true
		idx := -1
		for i, f := range sd.Fields {
			if f.Name == init.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			c.errorf(init.Sp, "struct '%s' has no field '%s'", sd.Name, init.Name)
			continue
		}
		fieldTy := substituteParams(sd.Fields[idx].Ty, sub)
		value := c.checkExpr(init.Value, fieldTy)
		if err := c.ctx.Unify(fieldTy, value.Type()); err != nil {
			c.errorf(init.Sp, "field '%s' expects %s, found %s",
				init.Name, c.ctx.TypeString(fieldTy), c.ctx.TypeString(value.Type()))
		}
		out.Fields[idx] = value
	}
	for i, f := range sd.Fields {
		if out.Fields[i] == nil {
			if !seen[f.Name] {
				c.errorf(ex.Sp, "missing field '%s' in struct literal '%s'", f.Name, sd.Name)
			}
			out.Fields[i] = &ErrorExpr{Sp: ex.Sp}
		}
	}
	c.ctx.SpanTypes[ex.Sp] = c.ctx.TypeString(st)
	return out
}

func (c *Checker) checkIf(ex *resolve.If, expected types.Type) Expr {
	cond := c.checkExpr(ex.Cond, types.TBool)
	if err := c.ctx.Unify(types.TBool, cond.Type()); err != nil {
		c.errorf(ex.Cond.Span(), "if condition must be bool, found %s", c.ctx.TypeString(cond.Type()))
	}
	then := c.checkBlock(ex.Then, expected)
	out := &If{Cond: cond, Then: then, Sp: ex.Sp}
	if ex.Else == nil {
		if err := c.ctx.Unify(types.TUnit, then.Ty); err != nil {
			c.errorf(ex.Sp, "if without else must have unit type, found %s", c.ctx.TypeString(then.Ty))
		}
		out.Ty = types.TUnit
		return out
	}
	els := c.checkExpr(ex.Else, expected)
	out.Else = els
	if err := c.ctx.Unify(then.Ty, els.Type()); err != nil {
		c.errorf(ex.Sp, "if branches disagree: %s vs %s",
			c.ctx.TypeString(then.Ty), c.ctx.TypeString(els.Type()))
	}
	out.Ty = c.pickBranchType(then.Ty, els.Type())
	return out
}

// pickBranchType prefers the non-diverging branch's type.
func (c *Checker) pickBranchType(a, b types.Type) types.Type {
	if p, ok := c.ctx.Apply(a).(*types.Prim); ok && p.Kind == types.Never {
		return b
	}
	return a
}

func (c *Checker) checkMatch(ex *resolve.Match, expected types.Type) Expr {
	scrutinee := c.checkExpr(ex.Scrutinee, nil)
	out := &Match{Scrutinee: scrutinee, Sp: ex.Sp}

	var armTy types.Type
	for _, arm := range ex.Arms {
		pat := c.checkPattern(arm.Pat, scrutinee.Type())
		body := c.checkExpr(arm.Body, expected)
		out.Arms = append(out.Arms, MatchArm{Pat: pat, Body: body, Sp: arm.Sp})
		if armTy == nil {
			armTy = body.Type()
		} else if err := c.ctx.Unify(armTy, body.Type()); err != nil {
			c.errorf(arm.Sp, "match arms disagree: %s vs %s",
				c.ctx.TypeString(armTy), c.ctx.TypeString(body.Type()))
		} else {
			armTy = c.pickBranchType(armTy, body.Type())
		}
	}
	if armTy == nil {
		armTy = types.TUnit
	}
	out.Ty = armTy
	return out
}

func (c *Checker) checkPattern(p resolve.Pattern, scrutinee types.Type) Pattern {
	switch pt := p.(type) {
	case *resolve.WildcardPat:
		return &WildcardPat{Sp: pt.Sp}

	case *resolve.BindPat:
		c.varTypes[pt.Def] = scrutinee
		return &BindPat{Def: pt.Def, Name: pt.Name, Ty: scrutinee, Sp: pt.Sp}

	case *resolve.LitPat:
		lit := c.checkExpr(pt.Lit, scrutinee)
		if err := c.ctx.Unify(scrutinee, lit.Type()); err != nil {
			c.errorf(pt.Sp, "pattern type %s does not match scrutinee %s",
				c.ctx.TypeString(lit.Type()), c.ctx.TypeString(scrutinee))
		}
		return &LitPat{Lit: lit, Sp: pt.Sp}

	case *resolve.TuplePat:
		tup, ok := c.ctx.Apply(scrutinee).(*types.Tuple)
		if !ok || len(tup.Elems) != len(pt.Elems) {
			if !isErrTy(c.ctx.Apply(scrutinee)) {
				c.errorf(pt.Sp, "tuple pattern does not match %s", c.ctx.TypeString(scrutinee))
			}
			return &WildcardPat{Sp: pt.Sp}
		}
		out := &TuplePat{Sp: pt.Sp}
		for i, el := range pt.Elems {
			out.Elems = append(out.Elems, c.checkPattern(el, tup.Elems[i]))
		}
		return out

	case *resolve.VariantPat:
		ed := c.enumDefs[pt.Enum]
		if ed == nil {
			return &WildcardPat{Sp: pt.Sp}
		}
		enumTy := c.instantiateEnum(ed)
		if err := c.ctx.Unify(scrutinee, enumTy); err != nil {
			c.errorf(pt.Sp, "pattern matches %s but scrutinee is %s",
				c.ctx.TypeString(enumTy), c.ctx.TypeString(scrutinee))
		}
		variant := ed.Variants[pt.Index]
		if len(pt.Elems) != len(variant.Fields) {
			c.errorf(pt.Sp, "variant '%s' has %d fields, pattern binds %d",
				variant.Name, len(variant.Fields), len(pt.Elems))
		}
		sub := c.enumParamSubst(ed, c.ctx.Apply(enumTy))
		out := &VariantPat{Enum: pt.Enum, Variant: pt.Variant, Index: pt.Index, Sp: pt.Sp}
		for i, el := range pt.Elems {
			fieldTy := types.Type(types.TErr)
			if i < len(variant.Fields) {
				fieldTy = substituteParams(variant.Fields[i], sub)
			}
			out.Elems = append(out.Elems, c.checkPattern(el, fieldTy))
		}
		return out
	}
	c.errorf(p.Span(), "unsupported pattern")
	return &WildcardPat{Sp: p.Span()}
}

func (c *Checker) checkLambda(ex *resolve.Lambda) Expr {
	out := &Lambda{Def: ex.Def, Sp: ex.Sp}
	var params []types.Type
	for _, p := range ex.Params {
		ty := p.Ty
		if ty == nil {
			ty = c.ctx.NewVar()
		}
		c.varTypes[p.Def] = ty
		out.Params = append(out.Params, Param{Def: p.Def, Name: p.Name, Ty: ty})
		params = append(params, ty)
	}
	body := c.checkExpr(ex.Body, nil)
	out.Body = body
	out.Ty = &types.Function{Params: params, Ret: body.Type()}
	return out
}

func (c *Checker) checkCast(ex *resolve.Cast) Expr {
	e := c.checkExpr(ex.E, nil)
	from := c.ctx.Apply(e.Type())
	to := ex.Ty
	if !castAllowed(from, to) && !isErrTy(from) && !isErrTy(to) {
		c.errorf(ex.Sp, "invalid cast from %s to %s", c.ctx.TypeString(from), c.ctx.TypeString(to))
	}
	return &Cast{E: e, Target: to, Sp: ex.Sp}
}

// castAllowed implements the cast validity table: numeric↔numeric,
// char↔numeric, bool→numeric, and str/ref↔i64 for FFI.
func castAllowed(from, to types.Type) bool {
	fp, fromPrim := from.(*types.Prim)
	tp, toPrim := to.(*types.Prim)

	if fromPrim && toPrim {
		switch {
		case fp.Kind.IsNumeric() && tp.Kind.IsNumeric():
			return true
		case fp.Kind == types.Char && tp.Kind.IsNumeric():
			return true
		case fp.Kind.IsNumeric() && tp.Kind == types.Char:
			return true
		case fp.Kind == types.Bool && tp.Kind.IsNumeric():
			return true
		case fp.Kind == types.Str && tp.Kind == types.I64:
			return true
		case fp.Kind == types.I64 && tp.Kind == types.Str:
			return true
		}
		return false
	}
	if _, isRef := from.(*types.Ref); isRef && toPrim && tp.Kind == types.I64 {
		return true
	}
	if _, isRef := to.(*types.Ref); isRef && fromPrim && fp.Kind == types.I64 {
		return true
	}
	return false
}

func isErrTy(t types.Type) bool {
	_, ok := t.(*types.Error)
	return ok
}
