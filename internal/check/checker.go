package check

import (
	"github.com/wisplang/wisp/internal/diag"
	"github.com/wisplang/wisp/internal/resolve"
	"github.com/wisplang/wisp/internal/source"
	"github.com/wisplang/wisp/internal/types"
)

// Checker infers and checks types over a resolved program.
type Checker struct {
	ctx *types.Context
	bag *diag.Bag
	res *resolve.Program

	// varTypes maps local/param DefIds to their (possibly still
	// inferred) types. DefIds are globally unique, so one map serves
	// all functions.
	varTypes map[types.DefId]types.Type

	// traitsByDef, traitsByName, structDefs and enumDefs serve
	// method/operator lookup.
	traitsByDef  map[types.DefId]*resolve.TraitDef
	traitsByName map[string]types.DefId
	structDefs   map[types.DefId]*resolve.StructDef
	enumDefs     map[types.DefId]*resolve.EnumDef

	// current function state
	retTy       types.Type
	typeParams  map[types.DefId][]types.DefId // type param def -> bounds
	curFuncName string

	out *Program
}

// New creates a checker over a resolved program and its context.
func New(ctx *types.Context, res *resolve.Program, bag *diag.Bag) *Checker {
	return &Checker{
		ctx:          ctx,
		bag:          bag,
		res:          res,
		varTypes:     make(map[types.DefId]types.Type),
		traitsByDef:  make(map[types.DefId]*resolve.TraitDef),
		traitsByName: make(map[string]types.DefId),
		structDefs:   make(map[types.DefId]*resolve.StructDef),
		enumDefs:     make(map[types.DefId]*resolve.EnumDef),
		typeParams:   make(map[types.DefId][]types.DefId),
		out:          &Program{Ctx: ctx, Resolved: res},
	}
}

func (c *Checker) errorf(sp source.Span, format string, args ...interface{}) {
	c.bag.Addf(diag.TypeError, sp, format, args...)
}

// Check registers all declarations into the type context, then checks
// every function body. The returned program carries no inference
// variables on success.
func (c *Checker) Check() *Program {
	c.register()

	for _, fn := range c.res.Functions {
		c.out.Functions = append(c.out.Functions, c.checkFunction(fn, ""))
	}
	for _, impl := range c.res.Impls {
		recvName := c.targetName(impl.Target)
		for _, m := range impl.Methods {
			c.out.Functions = append(c.out.Functions, c.checkFunction(m, recvName))
		}
	}
	for _, cd := range c.res.Consts {
		c.checkConst(cd)
	}

	c.finalize()
	return c.out
}

// ---------------------------------------------------------------------------
// Registration

func (c *Checker) register() {
	for _, t := range c.res.Traits {
		c.traitsByDef[t.Def] = t
		c.traitsByName[t.Name] = t.Def
	}

	for _, s := range c.res.Structs {
		c.structDefs[s.Def] = s
		fields := make([]types.Field, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = types.Field{Name: f.Name, Ty: f.Ty}
		}
		c.ctx.StructFields[s.Def] = fields
		c.ctx.DefTypes[s.Def] = &types.Struct{Def: s.Def, Args: typeParamTypes(s.TypeParams)}
	}
	for _, e := range c.res.Enums {
		c.enumDefs[e.Def] = e
		variants := make([]types.Variant, len(e.Variants))
		for i, v := range e.Variants {
			variants[i] = types.Variant{Name: v.Name, Def: v.Def, Fields: v.Fields}
		}
		c.ctx.EnumVariants[e.Def] = variants
		c.ctx.DefTypes[e.Def] = &types.Enum{Def: e.Def, Args: typeParamTypes(e.TypeParams)}
	}

	for _, t := range c.res.Traits {
		var sigs []types.TraitMethodSig
		for _, m := range t.Methods {
			sigs = append(sigs, types.TraitMethodSig{
				Name: m.Name,
				Ty:   c.traitMethodType(t, m),
			})
		}
		c.ctx.TraitMethods[t.Def] = sigs
	}

	for _, fn := range c.res.Functions {
		c.registerFunc(fn)
	}
	for _, impl := range c.res.Impls {
		c.registerImpl(impl)
	}
	for _, xf := range c.res.ExternFuncs {
		params := make([]types.Type, len(xf.Params))
		infos := make([]types.ParamInfo, len(xf.Params))
		names := make([]string, len(xf.Params))
		for i, p := range xf.Params {
			params[i] = p.Ty
			infos[i] = types.ParamInfo{Name: p.Name, Ty: p.Ty}
			names[i] = p.Name
		}
		c.ctx.DefTypes[xf.Def] = &types.Function{Params: params, Ret: xf.Ret}
		c.ctx.FunctionParams[xf.Def] = infos
		c.ctx.FunctionParamNames[xf.Def] = names
	}
	for _, xs := range c.res.ExternStatics {
		c.ctx.DefTypes[xs.Def] = xs.Ty
	}
	for _, cd := range c.res.Consts {
		c.ctx.DefTypes[cd.Def] = cd.Ty
	}
}

func typeParamTypes(params []resolve.TypeParamDef) []types.Type {
	if len(params) == 0 {
		return nil
	}
	out := make([]types.Type, len(params))
	for i, p := range params {
		out[i] = &types.TypeParam{Def: p.Def, Name: p.Name}
	}
	return out
}

// traitMethodType builds a trait method signature with Self abstract.
func (c *Checker) traitMethodType(t *resolve.TraitDef, m resolve.TraitMethodDef) *types.Function {
	selfTy := types.Type(&types.TypeParam{Def: t.SelfParam, Name: "Self"})
	var params []types.Type
	switch m.Self {
	case resolve.SelfValue:
		params = append(params, selfTy)
	case resolve.SelfByRef:
		params = append(params, &types.Ref{Inner: selfTy})
	case resolve.SelfRefMut:
		params = append(params, &types.Ref{Mut: true, Inner: selfTy})
	}
	params = append(params, m.Params...)
	return &types.Function{Params: params, Ret: m.Ret}
}

func (c *Checker) fnType(fn *resolve.Func) *types.Function {
	var params []types.Type
	switch fn.Self {
	case resolve.SelfValue:
		params = append(params, fn.SelfTy)
	case resolve.SelfByRef:
		params = append(params, &types.Ref{Inner: fn.SelfTy})
	case resolve.SelfRefMut:
		params = append(params, &types.Ref{Mut: true, Inner: fn.SelfTy})
	}
	for _, p := range fn.Params {
		params = append(params, p.Ty)
	}
	return &types.Function{Params: params, Ret: fn.Ret}
}

func (c *Checker) registerFunc(fn *resolve.Func) {
	ty := c.fnType(fn)
	c.ctx.DefTypes[fn.Def] = ty

	infos := make([]types.ParamInfo, len(fn.Params))
	names := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		infos[i] = types.ParamInfo{Name: p.Name, Ty: p.Ty}
		names[i] = p.Name
	}
	c.ctx.FunctionParams[fn.Def] = infos
	c.ctx.FunctionParamNames[fn.Def] = names

	if len(fn.TypeParams) > 0 {
		var tps []types.TypeParamInfo
		for _, tp := range fn.TypeParams {
			tps = append(tps, types.TypeParamInfo{Def: tp.Def, Name: tp.Name, Bounds: tp.Bounds})
		}
		c.ctx.GenericFunctions[fn.Def] = tps
	}
}

func (c *Checker) registerImpl(impl *resolve.Impl) {
	for _, m := range impl.Methods {
		c.registerFunc(m)
		info := types.MethodInfo{
			Def:        m.Def,
			Ty:         c.fnType(m),
			HasSelf:    m.Self != resolve.NoSelf,
			SelfRef:    m.Self == resolve.SelfByRef,
			SelfRefMut: m.Self == resolve.SelfRefMut,
		}
		switch target := impl.Target.(type) {
		case *types.Struct:
			c.registerNominalMethod(target.Def, m.Name, info)
		case *types.Enum:
			c.registerNominalMethod(target.Def, m.Name, info)
		case *types.Prim:
			c.ctx.PrimitiveMethods[types.PrimMethodKey{Prim: target.Kind.String(), Name: m.Name}] = info
		default:
			c.errorf(impl.Sp, "impl target must be a struct, enum or primitive")
		}
	}

	if impl.HasTrait {
		var methods []types.ImplMethod
		for _, m := range impl.Methods {
			methods = append(methods, types.ImplMethod{Name: m.Name, Def: m.Def, Ty: c.fnType(m)})
		}
		switch target := impl.Target.(type) {
		case *types.Struct:
			key := types.ImplKey{Type: target.Def, Trait: impl.Trait}
			c.ctx.TraitImpls[key] = methods
		case *types.Enum:
			key := types.ImplKey{Type: target.Def, Trait: impl.Trait}
			c.ctx.TraitImpls[key] = methods
		case *types.Prim:
			c.ctx.PrimitiveTraitImpls[types.PrimImplKey{Prim: target.Kind.String(), Trait: impl.Trait}] = true
			// Primitive trait methods stay reachable through the
			// primitive-methods table registered above.
		}
	}
}

func (c *Checker) registerNominalMethod(def types.DefId, name string, info types.MethodInfo) {
	if info.HasSelf {
		c.ctx.Methods[types.MethodKey{Type: def, Name: name}] = info
	} else {
		c.ctx.AssociatedFunctions[types.MethodKey{Type: def, Name: name}] = info
	}
}

func (c *Checker) targetName(t types.Type) string {
	switch tt := t.(type) {
	case *types.Struct:
		return c.ctx.TypeNames[tt.Def]
	case *types.Enum:
		return c.ctx.TypeNames[tt.Def]
	case *types.Prim:
		return tt.Kind.String()
	}
	return ""
}

// ---------------------------------------------------------------------------
// Function bodies

func (c *Checker) checkFunction(fn *resolve.Func, recvName string) *Func {
	out := &Func{
		Def:      fn.Def,
		Name:     fn.Name,
		QualName: fn.Name,
		SelfMode: fn.Self,
		Ret:      fn.Ret,
		Sp:       fn.Sp,
	}
	if recvName != "" {
		out.QualName = types.MangleMethod(recvName, fn.Name)
	}
	if tps, ok := c.ctx.GenericFunctions[fn.Def]; ok {
		out.TypeParams = tps
	}

	// Bring the function's type parameters with their bounds into
	// scope for trait-method resolution.
	c.typeParams = make(map[types.DefId][]types.DefId)
	for _, tp := range fn.TypeParams {
		c.typeParams[tp.Def] = tp.Bounds
	}

	if fn.Self != resolve.NoSelf {
		selfTy := types.Type(fn.SelfTy)
		switch fn.Self {
		case resolve.SelfByRef:
			selfTy = &types.Ref{Inner: selfTy}
		case resolve.SelfRefMut:
			selfTy = &types.Ref{Mut: true, Inner: selfTy}
		}
		c.varTypes[fn.SelfDef] = selfTy
		out.Self = &Param{Def: fn.SelfDef, Name: "self", Ty: selfTy}
	}
	for _, p := range fn.Params {
		c.varTypes[p.Def] = p.Ty
		out.Params = append(out.Params, Param{Def: p.Def, Name: p.Name, Mut: p.Mut, Ty: p.Ty})
	}

	c.retTy = fn.Ret
	c.curFuncName = out.QualName
	if fn.Body != nil {
		out.Body = c.checkBlock(fn.Body, fn.Ret)
		if err := c.ctx.Unify(fn.Ret, out.Body.Ty); err != nil {
			c.errorf(fn.Body.Sp, "function '%s' returns %s but body has type %s",
				fn.Name, c.ctx.TypeString(fn.Ret), c.ctx.TypeString(out.Body.Ty))
		}
	}
	return out
}

func (c *Checker) checkConst(cd *resolve.ConstDef) {
	// Constant initializers are checked against the declared type.
	value := c.checkExpr(cd.Value, cd.Ty)
	if err := c.ctx.Unify(cd.Ty, value.Type()); err != nil {
		c.errorf(cd.Sp, "constant '%s' declared %s but initialized with %s",
			cd.Name, c.ctx.TypeString(cd.Ty), c.ctx.TypeString(value.Type()))
	}
	c.out.Consts = append(c.out.Consts, &Const{Def: cd.Def, Name: cd.Name, Ty: cd.Ty, Value: value, Sp: cd.Sp})
}

// checkBlock types a block; the tail expression (no semicolon) gives
// the block its type, and a trailing return makes it diverge.
func (c *Checker) checkBlock(blk *resolve.Block, expected types.Type) *Block {
	out := &Block{Sp: blk.Sp, Ty: types.TUnit}
	for i, s := range blk.Stmts {
		last := i == len(blk.Stmts)-1
		var exp types.Type
		if last {
			exp = expected
		}
		ts := c.checkStmt(s, exp)
		if ts == nil {
			continue
		}
		out.Stmts = append(out.Stmts, ts)
		if last {
			switch st := ts.(type) {
			case *ExprStmt:
				if !st.Semi {
					out.Ty = st.E.Type()
				}
			case *Return:
				out.Ty = types.TNever
			}
		}
	}
	return out
}

func (c *Checker) checkStmt(s resolve.Stmt, expected types.Type) Stmt {
	switch st := s.(type) {
	case *resolve.Let:
		var value Expr
		if st.Ty != nil {
			value = c.checkExpr(st.Value, st.Ty)
			if err := c.ctx.Unify(st.Ty, value.Type()); err != nil {
				c.errorf(st.Sp, "cannot initialize %s with %s",
					c.ctx.TypeString(st.Ty), c.ctx.TypeString(value.Type()))
			}
			c.varTypes[st.Def] = st.Ty
		} else {
			value = c.checkExpr(st.Value, nil)
			c.varTypes[st.Def] = value.Type()
		}
		c.ctx.SpanTypes[st.Sp] = c.ctx.TypeString(c.varTypes[st.Def])
		return &Let{Def: st.Def, Name: st.Name, Mut: st.Mut, Ty: c.varTypes[st.Def], Value: value, Sp: st.Sp}

	case *resolve.ExprStmt:
		var e Expr
		if !st.Semi && expected != nil {
			e = c.checkExpr(st.E, expected)
		} else {
			e = c.checkExpr(st.E, nil)
		}
		return &ExprStmt{E: e, Semi: st.Semi, Sp: st.Sp}

	case *resolve.Return:
		out := &Return{Sp: st.Sp}
		if st.Value != nil {
			out.Value = c.checkExpr(st.Value, c.retTy)
			if err := c.ctx.Unify(c.retTy, out.Value.Type()); err != nil {
				c.errorf(st.Sp, "return type mismatch: expected %s, found %s",
					c.ctx.TypeString(c.retTy), c.ctx.TypeString(out.Value.Type()))
			}
		} else if err := c.ctx.Unify(c.retTy, types.TUnit); err != nil {
			c.errorf(st.Sp, "bare return in function returning %s", c.ctx.TypeString(c.retTy))
		}
		return out

	case *resolve.While:
		cond := c.checkExpr(st.Cond, types.TBool)
		if err := c.ctx.Unify(types.TBool, cond.Type()); err != nil {
			c.errorf(st.Cond.Span(), "while condition must be bool, found %s", c.ctx.TypeString(cond.Type()))
		}
		return &While{Cond: cond, Body: c.checkBlock(st.Body, nil), Sp: st.Sp}

	case *resolve.For:
		lo := c.checkExpr(st.Lo, types.TI32)
		hi := c.checkExpr(st.Hi, lo.Type())
		if err := c.ctx.Unify(lo.Type(), hi.Type()); err != nil {
			c.errorf(st.Sp, "range bounds disagree: %s vs %s",
				c.ctx.TypeString(lo.Type()), c.ctx.TypeString(hi.Type()))
		}
		if !c.isIntegerType(lo.Type()) {
			c.errorf(st.Lo.Span(), "range bounds must be integers, found %s", c.ctx.TypeString(lo.Type()))
		}
		c.varTypes[st.Def] = lo.Type()
		return &For{
			Def: st.Def, Name: st.Name, Ty: lo.Type(),
			Lo: lo, Hi: hi, Body: c.checkBlock(st.Body, nil), Sp: st.Sp,
		}

	case *resolve.Defer:
		return &Defer{Call: c.checkExpr(st.Call, nil), Sp: st.Sp}
	}
	c.errorf(s.Span(), "unsupported statement")
	return nil
}

func (c *Checker) isIntegerType(t types.Type) bool {
	switch tt := c.ctx.Apply(t).(type) {
	case *types.Prim:
		return tt.Kind.IsInteger()
	case *types.Error:
		return true
	}
	return false
}
