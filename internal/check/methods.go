package check

import (
	"strings"

	"github.com/wisplang/wisp/internal/resolve"
	"github.com/wisplang/wisp/internal/source"
	"github.com/wisplang/wisp/internal/types"
)

// opInfo maps a source operator to its trait and method.
type opInfo struct {
	trait      string
	method     string
	comparison bool
}

var binaryOps = map[string]opInfo{
	"+":  {"Add", "add", false},
	"-":  {"Sub", "sub", false},
	"*":  {"Mul", "mul", false},
	"/":  {"Div", "div", false},
	"%":  {"Rem", "rem", false},
	"==": {"PartialEq", "eq", true},
	"<":  {"PartialLt", "lt", true},
	">":  {"PartialGt", "gt", true},
	"<=": {"PartialLe", "le", true},
	">=": {"PartialGe", "ge", true},
}

// operatorTraits are satisfied natively by numeric primitives.
var operatorTraits = map[string]bool{
	"Add": true, "Sub": true, "Mul": true, "Div": true, "Rem": true,
	"PartialEq": true, "PartialLt": true, "PartialGt": true,
	"PartialLe": true, "PartialGe": true,
	"BitAnd": true, "BitOr": true, "BitXor": true,
	"Shl": true, "Shr": true, "Neg": true, "Not": true,
}

// ---------------------------------------------------------------------------
// Calls

func (c *Checker) checkCall(ex *resolve.Call, expected types.Type) Expr {
	switch callee := ex.Callee.(type) {
	case *resolve.VarRef:
		if info := c.res.Def(callee.Def); info != nil {
			switch info.Kind {
			case resolve.DefFunc, resolve.DefMethod, resolve.DefExternFunc:
				return c.checkDirectCall(callee.Def, callee.Name, callee.Name,
					info.Kind == resolve.DefExternFunc, ex.TypeArgs, ex.Args, ex.Sp)
			}
		}

	case *resolve.VariantRef:
		return c.checkVariantCall(callee, ex)
	}

	// Indirect call through a function-typed value.
	calleeE := c.checkExpr(ex.Callee, nil)
	fnTy, ok := c.ctx.Apply(calleeE.Type()).(*types.Function)
	if !ok {
		if !isErrTy(c.ctx.Apply(calleeE.Type())) {
			c.errorf(ex.Sp, "cannot call a value of type %s", c.ctx.TypeString(calleeE.Type()))
		}
		return &ErrorExpr{Sp: ex.Sp}
	}
	for _, a := range ex.Args {
		if a.Name != "" {
			c.errorf(a.Sp, "named arguments require a direct function call")
		}
	}
	if len(ex.Args) != len(fnTy.Params) {
		c.errorf(ex.Sp, "expected %d arguments, found %d", len(fnTy.Params), len(ex.Args))
		return &ErrorExpr{Sp: ex.Sp}
	}
	out := &Call{Callee: calleeE, Ty: fnTy.Ret, Sp: ex.Sp}
	for i, a := range ex.Args {
		arg := c.checkExpr(a.Value, fnTy.Params[i])
		if err := c.ctx.Unify(fnTy.Params[i], arg.Type()); err != nil {
			c.errorf(a.Value.Span(), "argument %d expects %s, found %s",
				i+1, c.ctx.TypeString(fnTy.Params[i]), c.ctx.TypeString(arg.Type()))
		}
		out.Args = append(out.Args, arg)
	}
	return out
}

// checkDirectCall types a call to a known function DefId, handling
// named-argument reordering and generic instantiation.
func (c *Checker) checkDirectCall(def types.DefId, name, qualName string, extern bool, typeArgs []types.Type, args []resolve.Arg, sp source.Span) Expr {
	fnTy, ok := c.ctx.DefTypes[def].(*types.Function)
	if !ok {
		return &ErrorExpr{Sp: sp}
	}

	positional := c.reorderArgs(def, name, args, sp)

	tps, generic := c.ctx.GenericFunctions[def]
	callee := &FuncRef{Def: def, Name: name, QualName: qualName, Extern: extern, Ty: fnTy, Sp: sp}

	params := fnTy.Params
	ret := fnTy.Ret
	var sub map[types.DefId]types.Type
	if generic {
		if len(typeArgs) > 0 && len(typeArgs) != len(tps) {
			c.errorf(sp, "function '%s' takes %d type arguments, %d given", name, len(tps), len(typeArgs))
			typeArgs = nil
		}
		// Each type parameter gets a fresh inference variable (or the
		// explicit argument); bounds are verified after inference.
		sub = make(map[types.DefId]types.Type, len(tps))
		for i, tp := range tps {
			if i < len(typeArgs) {
				sub[tp.Def] = typeArgs[i]
			} else {
				sub[tp.Def] = c.ctx.NewVar()
			}
		}
		inst := substituteParams(fnTy, sub).(*types.Function)
		params = inst.Params
		ret = inst.Ret
	}

	if len(positional) != len(params) {
		c.errorf(sp, "function '%s' takes %d arguments, %d given", name, len(params), len(positional))
	}
	out := &Call{Callee: callee, Ty: ret, Sp: sp}
	for i, a := range positional {
		if i >= len(params) {
			out.Args = append(out.Args, c.checkExpr(a, nil))
			continue
		}
		arg := c.checkExpr(a, params[i])
		if err := c.ctx.Unify(params[i], arg.Type()); err != nil {
			c.errorf(a.Span(), "argument %d of '%s' expects %s, found %s",
				i+1, name, c.ctx.TypeString(params[i]), c.ctx.TypeString(arg.Type()))
		}
		out.Args = append(out.Args, arg)
	}

	if generic {
		solved, concrete := c.solveTypeArgs(name, tps, sub, sp)
		callee.TypeArgs = solved
		if concrete {
			c.ctx.RecordInstantiation(def, solved)
		}
		out.Ty = c.ctx.Apply(ret)
	}
	c.ctx.SpanTypes[sp] = c.ctx.TypeString(out.Ty)
	return out
}

// solveTypeArgs reads back the inferred type arguments and verifies
// the trait bounds. The second result reports whether every argument
// is concrete (instantiations with remaining type parameters are
// recorded during monomorphization instead).
func (c *Checker) solveTypeArgs(name string, tps []types.TypeParamInfo, sub map[types.DefId]types.Type, sp source.Span) ([]types.Type, bool) {
	out := make([]types.Type, len(tps))
	concrete := true
	for i, tp := range tps {
		solved := c.ctx.Apply(sub[tp.Def])
		if types.HasVar(solved) {
			c.errorf(sp, "cannot infer type parameter '%s' of '%s'", tp.Name, name)
			solved = types.TErr
		}
		c.checkBounds(tp, solved, sp)
		if types.HasTypeParam(solved) || isErrTy(solved) {
			concrete = false
		}
		out[i] = solved
	}
	return out, concrete
}

// checkBounds verifies one solved type argument against a parameter's
// trait bounds.
func (c *Checker) checkBounds(tp types.TypeParamInfo, arg types.Type, sp source.Span) {
	for _, trait := range tp.Bounds {
		if c.satisfiesBound(arg, trait) {
			continue
		}
		c.errorf(sp, "type %s does not implement trait '%s' required by '%s'",
			c.ctx.TypeString(arg), c.ctx.TypeNames[trait], tp.Name)
	}
}

// satisfiesBound implements the three-way bound check: native numeric
// operator traits, registered impls, and transitive type-parameter
// bounds (exact match only).
func (c *Checker) satisfiesBound(arg types.Type, trait types.DefId) bool {
	switch t := c.ctx.Apply(arg).(type) {
	case *types.Error:
		return true
	case *types.Prim:
		if t.Kind.IsNumeric() && operatorTraits[c.ctx.TypeNames[trait]] {
			return true
		}
		return c.ctx.PrimitiveTraitImpls[types.PrimImplKey{Prim: t.Kind.String(), Trait: trait}]
	case *types.Struct:
		_, ok := c.ctx.TraitImpls[types.ImplKey{Type: t.Def, Trait: trait}]
		return ok
	case *types.Enum:
		_, ok := c.ctx.TraitImpls[types.ImplKey{Type: t.Def, Trait: trait}]
		return ok
	case *types.TypeParam:
		for _, b := range c.typeParams[t.Def] {
			if b == trait {
				return true
			}
		}
		return false
	}
	return false
}

// reorderArgs validates named arguments against the callee's
// parameter names and returns a positional list. Positional and named
// arguments must not mix; named arguments may appear in any order but
// must cover all parameters.
func (c *Checker) reorderArgs(def types.DefId, fname string, args []resolve.Arg, sp source.Span) []resolve.Expr {
	hasNamed, hasPositional := false, false
	for _, a := range args {
		if a.Name != "" {
			hasNamed = true
		} else {
			hasPositional = true
		}
	}
	if hasNamed && hasPositional {
		c.errorf(sp, "cannot mix positional and named arguments in call to '%s'", fname)
	}
	if !hasNamed {
		out := make([]resolve.Expr, len(args))
		for i, a := range args {
			out[i] = a.Value
		}
		return out
	}

	paramNames := c.ctx.FunctionParamNames[def]
	paramInfos := c.ctx.FunctionParams[def]
	byName := make(map[string]resolve.Expr, len(args))
	for _, a := range args {
		if a.Name == "" {
			continue
		}
		if _, dup := byName[a.Name]; dup {
			c.errorf(a.Sp, "duplicate argument '%s' in call to '%s'", a.Name, fname)
			continue
		}
		known := false
		for _, pn := range paramNames {
			if pn == a.Name {
				known = true
				break
			}
		}
		if !known {
			c.errorf(a.Sp, "function '%s' has no parameter '%s'", fname, a.Name)
			continue
		}
		byName[a.Name] = a.Value
	}

	out := make([]resolve.Expr, 0, len(paramNames))
	var missing []string
	for i, pn := range paramNames {
		val, ok := byName[pn]
		if !ok {
			desc := pn
			if i < len(paramInfos) {
				desc = pn + ": " + c.ctx.TypeString(paramInfos[i].Ty)
			}
			missing = append(missing, desc)
			val = &resolve.ErrorExpr{Sp: sp}
		}
		out = append(out, val)
	}
	if len(missing) > 0 {
		c.errorf(sp, "call to '%s' is missing arguments: %s", fname, strings.Join(missing, ", "))
	}
	return out
}

func (c *Checker) checkVariantCall(callee *resolve.VariantRef, ex *resolve.Call) Expr {
	ed := c.enumDefs[callee.Enum]
	if ed == nil {
		return &ErrorExpr{Sp: ex.Sp}
	}
	enumTy := c.instantiateEnum(ed)
	variant := ed.Variants[callee.Index]
	sub := c.enumParamSubst(ed, enumTy)

	if len(ex.Args) != len(variant.Fields) {
		c.errorf(ex.Sp, "variant '%s' takes %d values, %d given",
			variant.Name, len(variant.Fields), len(ex.Args))
	}
	ctor := &VariantCtor{Enum: callee.Enum, Variant: callee.Variant, Index: callee.Index, Ty: enumTy, Sp: callee.Sp}
	out := &Call{Callee: ctor, Ty: enumTy, Sp: ex.Sp}
	for i, a := range ex.Args {
		if a.Name != "" {
			c.errorf(a.Sp, "variant constructors take positional values")
		}
		var fieldTy types.Type = types.TErr
		if i < len(variant.Fields) {
			fieldTy = substituteParams(variant.Fields[i], sub)
		}
		arg := c.checkExpr(a.Value, fieldTy)
		if err := c.ctx.Unify(fieldTy, arg.Type()); err != nil {
			c.errorf(a.Value.Span(), "variant field %d expects %s, found %s",
				i+1, c.ctx.TypeString(fieldTy), c.ctx.TypeString(arg.Type()))
		}
		out.Args = append(out.Args, arg)
	}
	out.Ty = c.ctx.Apply(enumTy)
	return out
}

// ---------------------------------------------------------------------------
// Method calls

// checkMethodCall implements the resolution order: associated
// function on a type name, method on the (auto-dereferenced)
// receiver, trait-bound method on a type parameter, then primitive
// method.
func (c *Checker) checkMethodCall(ex *resolve.MethodCall) Expr {
	// Case 1: the receiver is a type name.
	if tr, ok := ex.Recv.(*resolve.TypeRef); ok {
		return c.checkAssociatedCall(tr, ex)
	}

	recv := c.checkExpr(ex.Recv, nil)
	recvTy := c.ctx.Apply(recv.Type())
	base := recvTy
	if r, ok := base.(*types.Ref); ok {
		base = c.ctx.Apply(r.Inner)
	}

	switch bt := base.(type) {
	case *types.Struct:
		if info, ok := c.ctx.Methods[types.MethodKey{Type: bt.Def, Name: ex.Name}]; ok {
			return c.buildMethodCall(recv, recvTy, bt, nil, info, ex, c.ctx.TypeNames[bt.Def])
		}
	case *types.Enum:
		if info, ok := c.ctx.Methods[types.MethodKey{Type: bt.Def, Name: ex.Name}]; ok {
			return c.buildMethodCall(recv, recvTy, nil, bt, info, ex, c.ctx.TypeNames[bt.Def])
		}
	case *types.TypeParam:
		return c.checkTraitMethodCall(recv, bt, ex)
	case *types.Prim:
		key := types.PrimMethodKey{Prim: bt.Kind.String(), Name: ex.Name}
		if info, ok := c.ctx.PrimitiveMethods[key]; ok && info.HasSelf {
			return c.buildPrimMethodCall(recv, recvTy, bt, info, ex)
		}
	case *types.Error:
		return &ErrorExpr{Sp: ex.Sp}
	}

	c.errorf(ex.Sp, "type %s has no method '%s'", c.ctx.TypeString(recvTy), ex.Name)
	return &ErrorExpr{Sp: ex.Sp}
}

// checkAssociatedCall handles `Type.func(args)`.
func (c *Checker) checkAssociatedCall(tr *resolve.TypeRef, ex *resolve.MethodCall) Expr {
	switch t := tr.Ty.(type) {
	case *types.Struct:
		if info, ok := c.ctx.AssociatedFunctions[types.MethodKey{Type: t.Def, Name: ex.Name}]; ok {
			qual := types.MangleMethod(c.ctx.TypeNames[t.Def], ex.Name)
			return c.checkDirectCall(info.Def, ex.Name, qual, false, nil, ex.Args, ex.Sp)
		}
		c.errorf(ex.Sp, "type %s has no associated function '%s'", c.ctx.TypeNames[t.Def], ex.Name)
	case *types.Enum:
		if info, ok := c.ctx.AssociatedFunctions[types.MethodKey{Type: t.Def, Name: ex.Name}]; ok {
			qual := types.MangleMethod(c.ctx.TypeNames[t.Def], ex.Name)
			return c.checkDirectCall(info.Def, ex.Name, qual, false, nil, ex.Args, ex.Sp)
		}
		c.errorf(ex.Sp, "type %s has no associated function '%s'", c.ctx.TypeNames[t.Def], ex.Name)
	case *types.Prim:
		key := types.PrimMethodKey{Prim: t.Kind.String(), Name: ex.Name}
		if info, ok := c.ctx.PrimitiveMethods[key]; ok && !info.HasSelf {
			qual := types.MangleMethod(t.Kind.String(), ex.Name)
			return c.checkDirectCall(info.Def, ex.Name, qual, false, nil, ex.Args, ex.Sp)
		}
		c.errorf(ex.Sp, "type %s has no associated function '%s'", t.Kind, ex.Name)
	default:
		c.errorf(ex.Sp, "type %s has no associated function '%s'", c.ctx.TypeString(tr.Ty), ex.Name)
	}
	return &ErrorExpr{Sp: ex.Sp}
}

// buildMethodCall types a struct/enum method call, adjusting the
// receiver to the method's self mode and instantiating generic impl
// methods.
func (c *Checker) buildMethodCall(recv Expr, recvTy types.Type, st *types.Struct, en *types.Enum, info types.MethodInfo, ex *resolve.MethodCall, recvName string) Expr {
	fnTy := info.Ty
	var sub map[types.DefId]types.Type
	if tps, generic := c.ctx.GenericFunctions[info.Def]; generic {
		sub = make(map[types.DefId]types.Type, len(tps))
		for _, tp := range tps {
			sub[tp.Def] = c.ctx.NewVar()
		}
		fnTy = substituteParams(fnTy, sub).(*types.Function)
	}

	// Unify the self parameter with the receiver, auto-ref/deref by a
	// single level.
	selfParam := fnTy.Params[0]
	adjusted, selfMode := c.adjustReceiver(recv, recvTy, info, ex.Sp)
	selfArgTy := adjusted.Type()
	_, alreadyRef := c.ctx.Apply(selfArgTy).(*types.Ref)
	if (info.SelfRef || info.SelfRefMut) && !alreadyRef {
		selfArgTy = &types.Ref{Mut: info.SelfRefMut, Inner: selfArgTy}
	}
	if err := c.ctx.Unify(selfParam, selfArgTy); err != nil {
		c.errorf(ex.Sp, "method '%s' cannot take receiver of type %s",
			ex.Name, c.ctx.TypeString(recvTy))
	}

	positional := c.reorderArgs(info.Def, ex.Name, ex.Args, ex.Sp)
	methodParams := fnTy.Params[1:]
	if len(positional) != len(methodParams) {
		c.errorf(ex.Sp, "method '%s' takes %d arguments, %d given", ex.Name, len(methodParams), len(positional))
	}
	out := &MethodCall{
		Kind: StructMethod, Recv: adjusted, Method: info.Def, Name: ex.Name,
		RecvName: recvName, SelfMode: selfMode, Ty: fnTy.Ret, Sp: ex.Sp,
	}
	for i, a := range positional {
		if i >= len(methodParams) {
			out.Args = append(out.Args, c.checkExpr(a, nil))
			continue
		}
		arg := c.checkExpr(a, methodParams[i])
		if err := c.ctx.Unify(methodParams[i], arg.Type()); err != nil {
			c.errorf(a.Span(), "argument %d of '%s' expects %s, found %s",
				i+1, ex.Name, c.ctx.TypeString(methodParams[i]), c.ctx.TypeString(arg.Type()))
		}
		out.Args = append(out.Args, arg)
	}

	if tps, generic := c.ctx.GenericFunctions[info.Def]; generic {
		// Read back impl type parameters and queue monomorphization.
		solved, concrete := c.solveTypeArgs(ex.Name, tps, sub, ex.Sp)
		if concrete {
			c.ctx.RecordInstantiation(info.Def, solved)
		}
		out.TypeArgs = solved
	}
	out.Ty = c.ctx.Apply(out.Ty)
	c.ctx.SpanTypes[ex.Sp] = c.ctx.TypeString(out.Ty)
	return out
}

// adjustReceiver applies single-level auto-deref or marks auto-ref to
// match a method's self mode.
func (c *Checker) adjustReceiver(recv Expr, recvTy types.Type, info types.MethodInfo, sp source.Span) (Expr, resolve.SelfMode) {
	isRef := false
	var inner types.Type
	if r, ok := c.ctx.Apply(recvTy).(*types.Ref); ok {
		isRef = true
		inner = r.Inner
	}

	switch {
	case info.SelfRefMut:
		if isRef {
			return recv, resolve.SelfRefMut
		}
		return recv, resolve.SelfRefMut
	case info.SelfRef:
		return recv, resolve.SelfByRef
	default:
		// Method takes self by value: deref a reference receiver.
		if isRef {
			return &Unary{Op: "*", Operand: recv, Ty: inner, Sp: sp}, resolve.SelfValue
		}
		return recv, resolve.SelfValue
	}
}

func (c *Checker) buildPrimMethodCall(recv Expr, recvTy types.Type, prim *types.Prim, info types.MethodInfo, ex *resolve.MethodCall) Expr {
	fnTy := info.Ty
	adjusted, selfMode := c.adjustReceiver(recv, recvTy, info, ex.Sp)

	positional := c.reorderArgs(info.Def, ex.Name, ex.Args, ex.Sp)
	methodParams := fnTy.Params[1:]
	if len(positional) != len(methodParams) {
		c.errorf(ex.Sp, "method '%s' takes %d arguments, %d given", ex.Name, len(methodParams), len(positional))
	}
	out := &MethodCall{
		Kind: PrimitiveMethod, Recv: adjusted, Method: info.Def, Name: ex.Name,
		RecvName: prim.Kind.String(), SelfMode: selfMode, Ty: fnTy.Ret, Sp: ex.Sp,
	}
	for i, a := range positional {
		if i >= len(methodParams) {
			out.Args = append(out.Args, c.checkExpr(a, nil))
			continue
		}
		arg := c.checkExpr(a, methodParams[i])
		if err := c.ctx.Unify(methodParams[i], arg.Type()); err != nil {
			c.errorf(a.Span(), "argument %d of '%s' expects %s, found %s",
				i+1, ex.Name, c.ctx.TypeString(methodParams[i]), c.ctx.TypeString(arg.Type()))
		}
		out.Args = append(out.Args, arg)
	}
	c.ctx.SpanTypes[ex.Sp] = c.ctx.TypeString(out.Ty)
	return out
}

// checkTraitMethodCall types a call on a type-parameter receiver. The
// call stays late-bound: monomorphization resolves it against the
// substituted receiver type.
func (c *Checker) checkTraitMethodCall(recv Expr, tp *types.TypeParam, ex *resolve.MethodCall) Expr {
	bounds := c.typeParams[tp.Def]
	for _, trait := range bounds {
		for _, sig := range c.ctx.TraitMethods[trait] {
			if sig.Name != ex.Name {
				continue
			}
			td := c.traitsByDef[trait]
			sub := map[types.DefId]types.Type{td.SelfParam: tp}
			// Trait type parameters (e.g. Rhs) default to Self when
			// not otherwise constrained; binding them to the receiver
			// matches the defaulted impl form.
			for _, ttp := range td.TypeParams {
				sub[ttp.Def] = tp
			}
			fnTy := substituteParams(sig.Ty, sub).(*types.Function)

			methodParams := fnTy.Params[1:]
			if len(ex.Args) != len(methodParams) {
				c.errorf(ex.Sp, "method '%s' takes %d arguments, %d given", ex.Name, len(methodParams), len(ex.Args))
			}
			selfMode := resolve.SelfValue
			if r, ok := fnTy.Params[0].(*types.Ref); ok {
				selfMode = resolve.SelfByRef
				if r.Mut {
					selfMode = resolve.SelfRefMut
				}
			}
			out := &MethodCall{
				Kind: TraitMethod, Recv: recv, Name: ex.Name,
				RecvName: tp.Name, SelfMode: selfMode,
				Bounds: bounds, Ty: fnTy.Ret, Sp: ex.Sp,
			}
			for i, a := range ex.Args {
				if a.Name != "" {
					c.errorf(a.Sp, "named arguments are not supported on trait-bound methods")
				}
				var want types.Type = types.TErr
				if i < len(methodParams) {
					want = methodParams[i]
				}
				arg := c.checkExpr(a.Value, want)
				if err := c.ctx.Unify(want, arg.Type()); err != nil {
					c.errorf(a.Value.Span(), "argument %d of '%s' expects %s, found %s",
						i+1, ex.Name, c.ctx.TypeString(want), c.ctx.TypeString(arg.Type()))
				}
				out.Args = append(out.Args, arg)
			}
			return out
		}
	}
	c.errorf(ex.Sp, "no trait bound on '%s' provides method '%s'", tp.Name, ex.Name)
	return &ErrorExpr{Sp: ex.Sp}
}

// ---------------------------------------------------------------------------
// Binary operators

func (c *Checker) checkBinary(ex *resolve.Binary) Expr {
	if ex.Op == "&&" || ex.Op == "||" {
		left := c.checkExpr(ex.Left, types.TBool)
		right := c.checkExpr(ex.Right, types.TBool)
		if err := c.ctx.Unify(types.TBool, left.Type()); err != nil {
			c.errorf(ex.Left.Span(), "'%s' requires bool operands, found %s", ex.Op, c.ctx.TypeString(left.Type()))
		}
		if err := c.ctx.Unify(types.TBool, right.Type()); err != nil {
			c.errorf(ex.Right.Span(), "'%s' requires bool operands, found %s", ex.Op, c.ctx.TypeString(right.Type()))
		}
		return &Binary{Op: ex.Op, Left: left, Right: right, Ty: types.TBool, Sp: ex.Sp}
	}

	if ex.Op == "!=" {
		// `a != b` desugars to `!(a == b)`.
		left := c.checkExpr(ex.Left, nil)
		eq := c.checkBinaryParts(left, ex.Right, "==", ex.Sp)
		if b, ok := eq.(*Binary); ok {
			// Primitive comparison keeps the direct operator.
			return &Binary{Op: "!=", Left: b.Left, Right: b.Right, Ty: types.TBool, Sp: ex.Sp}
		}
		return &Unary{Op: "!", Operand: eq, Ty: types.TBool, Sp: ex.Sp}
	}

	left := c.checkExpr(ex.Left, nil)
	return c.checkBinaryParts(left, ex.Right, ex.Op, ex.Sp)
}

// checkBinaryParts types `left op right` with an already-typed left
// operand (shared with compound-assignment desugaring).
func (c *Checker) checkBinaryParts(left Expr, rightRes resolve.Expr, op string, sp source.Span) Expr {
	info, known := binaryOps[op]
	if !known {
		c.errorf(sp, "unsupported operator %q", op)
		return &ErrorExpr{Sp: sp}
	}

	leftTy := c.ctx.Apply(left.Type())
	effLeft := left
	effTy := leftTy

	// Binary operators look through a single reference level.
	if r, ok := leftTy.(*types.Ref); ok {
		inner := c.ctx.Apply(r.Inner)
		if p, ok := inner.(*types.Prim); ok {
			effLeft = &Unary{Op: "*", Operand: left, Ty: p, Sp: left.Span()}
			effTy = p
		} else {
			effTy = inner
		}
	}

	switch t := effTy.(type) {
	case *types.Error:
		c.checkExpr(rightRes, nil)
		return &ErrorExpr{Sp: sp}

	case *types.Prim:
		return c.checkPrimBinary(effLeft, t, rightRes, op, info, sp)

	case *types.TypeParam:
		return c.checkTypeParamBinary(effLeft, t, rightRes, op, info, sp)

	case *types.Struct:
		return c.checkOverloadBinary(effLeft, leftTy, t.Def, c.ctx.TypeNames[t.Def], rightRes, op, info, sp)

	case *types.Enum:
		return c.checkOverloadBinary(effLeft, leftTy, t.Def, c.ctx.TypeNames[t.Def], rightRes, op, info, sp)
	}

	c.checkExpr(rightRes, nil)
	c.errorf(sp, "operator '%s' is not defined for %s", op, c.ctx.TypeString(effTy))
	return &ErrorExpr{Sp: sp}
}

func (c *Checker) checkPrimBinary(left Expr, prim *types.Prim, rightRes resolve.Expr, op string, info opInfo, sp source.Span) Expr {
	right := c.checkExpr(rightRes, prim)
	// Look through a reference on the right as well.
	if r, ok := c.ctx.Apply(right.Type()).(*types.Ref); ok {
		if p, ok := c.ctx.Apply(r.Inner).(*types.Prim); ok && p.Kind == prim.Kind {
			right = &Unary{Op: "*", Operand: right, Ty: p, Sp: right.Span()}
		}
	}
	if err := c.ctx.Unify(prim, right.Type()); err != nil {
		c.errorf(sp, "operator '%s' has mismatched operands: %s vs %s",
			op, c.ctx.TypeString(prim), c.ctx.TypeString(right.Type()))
	}

	if !info.comparison {
		if !prim.Kind.IsNumeric() {
			c.errorf(sp, "operator '%s' requires numeric operands, found %s", op, prim)
		}
		if op == "%" && !prim.Kind.IsInteger() {
			c.errorf(sp, "operator '%%' requires integer operands, found %s", prim)
		}
		return &Binary{Op: op, Left: left, Right: right, Ty: prim, Sp: sp}
	}
	if op != "==" && !prim.Kind.IsNumeric() && prim.Kind != types.Char {
		c.errorf(sp, "operator '%s' cannot order %s", op, prim)
	}
	return &Binary{Op: op, Left: left, Right: right, Ty: types.TBool, Sp: sp}
}

// checkTypeParamBinary emits a late-bound trait-method call for an
// operator whose left operand is a type parameter.
func (c *Checker) checkTypeParamBinary(left Expr, tp *types.TypeParam, rightRes resolve.Expr, op string, info opInfo, sp source.Span) Expr {
	bounds := c.typeParams[tp.Def]
	traitDef, hasTrait := c.traitsByName[info.trait]
	bound := false
	if hasTrait {
		for _, b := range bounds {
			if b == traitDef {
				bound = true
				break
			}
		}
	}
	if !bound {
		c.errorf(sp, "operator '%s' requires '%s' to be bounded by trait '%s'", op, tp.Name, info.trait)
	}

	right := c.checkExpr(rightRes, tp)
	if err := c.ctx.Unify(tp, right.Type()); err != nil {
		c.errorf(sp, "operator '%s' has mismatched operands: %s vs %s",
			op, tp.Name, c.ctx.TypeString(right.Type()))
	}

	resultTy := types.Type(tp)
	selfMode := resolve.SelfValue
	if info.comparison {
		resultTy = types.TBool
		selfMode = resolve.SelfByRef
		right = &RefTake{Operand: right, Ty: &types.Ref{Inner: right.Type()}, Sp: right.Span()}
	}
	return &MethodCall{
		Kind: TraitMethod, Recv: left, Name: info.method,
		RecvName: tp.Name, SelfMode: selfMode, Bounds: bounds,
		Args: []Expr{right}, Ty: resultTy, Sp: sp,
	}
}

// checkOverloadBinary desugars an operator on a nominal type to a
// call of its operator-trait impl method. Arithmetic methods take
// both operands by value; comparison methods take both by reference.
func (c *Checker) checkOverloadBinary(left Expr, leftTy types.Type, def types.DefId, typeName string, rightRes resolve.Expr, op string, info opInfo, sp source.Span) Expr {
	traitDef, ok := c.traitsByName[info.trait]
	if !ok {
		c.checkExpr(rightRes, nil)
		c.errorf(sp, "operator '%s' requires trait '%s', which is not defined", op, info.trait)
		return &ErrorExpr{Sp: sp}
	}
	var method *types.ImplMethod
	for i, m := range c.ctx.TraitImpls[types.ImplKey{Type: def, Trait: traitDef}] {
		if m.Name == info.method {
			method = &c.ctx.TraitImpls[types.ImplKey{Type: def, Trait: traitDef}][i]
			break
		}
	}
	if method == nil {
		c.checkExpr(rightRes, nil)
		c.errorf(sp, "type '%s' does not implement '%s' for operator '%s'", typeName, info.trait, op)
		return &ErrorExpr{Sp: sp}
	}

	fnTy := method.Ty
	recv := left
	selfMode := resolve.SelfValue
	if r, ok := fnTy.Params[0].(*types.Ref); ok {
		selfMode = resolve.SelfByRef
		if r.Mut {
			selfMode = resolve.SelfRefMut
		}
	} else if _, isRef := c.ctx.Apply(leftTy).(*types.Ref); isRef {
		// Method takes self by value but the receiver is borrowed.
		recv = &Unary{Op: "*", Operand: left, Ty: c.ctx.Apply(left.Type()), Sp: left.Span()}
	}

	var want types.Type = types.TErr
	if len(fnTy.Params) > 1 {
		want = fnTy.Params[1]
	}
	argExpected := want
	if r, ok := want.(*types.Ref); ok {
		argExpected = r.Inner
	}
	right := c.checkExpr(rightRes, argExpected)
	arg := right
	if _, wantRef := want.(*types.Ref); wantRef {
		if _, isRef := c.ctx.Apply(right.Type()).(*types.Ref); !isRef {
			arg = &RefTake{Operand: right, Ty: &types.Ref{Inner: right.Type()}, Sp: right.Span()}
		}
	}
	if err := c.ctx.Unify(want, arg.Type()); err != nil {
		c.errorf(sp, "operator '%s' expects %s, found %s",
			op, c.ctx.TypeString(want), c.ctx.TypeString(arg.Type()))
	}

	return &MethodCall{
		Kind: StructMethod, Recv: recv, Method: method.Def, Name: info.method,
		RecvName: typeName, SelfMode: selfMode,
		Args: []Expr{arg}, Ty: fnTy.Ret, Sp: sp,
	}
}
