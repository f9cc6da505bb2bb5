package mir

import (
	"strconv"

	"github.com/wisplang/wisp/internal/check"
	"github.com/wisplang/wisp/internal/resolve"
	"github.com/wisplang/wisp/internal/types"
)

// lowerExpr lowers an expression and yields its value as an operand.
func (f *funcCompiler) lowerExpr(e check.Expr) Operand {
	switch ex := e.(type) {
	case *check.IntLit:
		return ConstOp(&ConstInt{Value: ex.Value, Ty: f.sub(ex.Ty)})
	case *check.FloatLit:
		return ConstOp(&ConstFloat{Value: ex.Value, Ty: f.sub(ex.Ty)})
	case *check.BoolLit:
		return ConstOp(&ConstBool{Value: ex.Value})
	case *check.CharLit:
		return ConstOp(&ConstInt{Value: int64(ex.Value), Ty: types.TChar})
	case *check.StrLit:
		return ConstOp(&ConstStr{Value: ex.Value})
	case *check.UnitLit:
		return ConstOp(&ConstUnit{})
	case *check.ErrorExpr:
		return ConstOp(&ConstUnit{})

	case *check.VarRef:
		return f.lowerVarRef(ex)

	case *check.FuncRef:
		return f.funcOperand(ex)

	case *check.VariantCtor:
		// A bare unit variant constructs the enum value.
		ty := f.sub(ex.Ty)
		if en, ok := ty.(*types.Enum); ok {
			id := f.temp(en)
			f.storageLive(id)
			f.assign(Place{Local: id}, &RvAggregate{
				Kind: AggEnum, Def: ex.Enum, Variant: ex.Index,
				Operands: []Operand{ConstOp(&ConstInt{Value: int64(ex.Index), Ty: types.TI64})},
			})
			return MoveOf(Place{Local: id})
		}
		return ConstOp(&ConstUnit{})

	case *check.Unary:
		if ex.Op == "*" {
			place, ok := f.placeOfExpr(ex)
			if ok {
				return f.readOperand(place, ex.Ty)
			}
		}
		operand := f.lowerExpr(ex.Operand)
		id := f.temp(f.sub(ex.Ty))
		f.storageLive(id)
		f.assign(Place{Local: id}, &RvUnary{Op: ex.Op, Operand: operand})
		return f.readOperand(Place{Local: id}, ex.Ty)

	case *check.RefTake:
		place, ok := f.placeOfExpr(ex.Operand)
		if !ok {
			op := f.lowerExpr(ex.Operand)
			place = f.materialize(op, ex.Operand.Type())
		}
		id := f.temp(f.sub(ex.Ty))
		f.storageLive(id)
		f.assign(Place{Local: id}, &RvRef{Mut: ex.Mut, Place: place})
		return CopyOf(Place{Local: id})

	case *check.Binary:
		return f.lowerBinary(ex)

	case *check.Assign:
		place, ok := f.placeOfExpr(ex.Target)
		if !ok {
			f.lowerExpr(ex.Value)
			return ConstOp(&ConstUnit{})
		}
		f.lowerInto(place, ex.Value)
		return ConstOp(&ConstUnit{})

	case *check.Call:
		dest, ok := f.lowerCall(ex)
		if !ok {
			return ConstOp(&ConstUnit{})
		}
		return dest

	case *check.MethodCall:
		return f.lowerMethodCall(ex)

	case *check.FieldAccess, *check.Index:
		if place, ok := f.placeOfExpr(e); ok {
			return f.readOperand(place, e.Type())
		}
		return ConstOp(&ConstUnit{})

	case *check.StructLit:
		ops := make([]Operand, len(ex.Fields))
		for i, fe := range ex.Fields {
			ops[i] = f.lowerExpr(fe)
		}
		id := f.temp(f.sub(ex.Ty))
		f.storageLive(id)
		f.assign(Place{Local: id}, &RvAggregate{Kind: AggStruct, Def: ex.Def, Operands: ops})
		return MoveOf(Place{Local: id})

	case *check.ArrayLit:
		ops := make([]Operand, len(ex.Elems))
		for i, el := range ex.Elems {
			ops[i] = f.lowerExpr(el)
		}
		id := f.temp(f.sub(ex.Ty))
		f.storageLive(id)
		f.assign(Place{Local: id}, &RvAggregate{Kind: AggArray, Operands: ops})
		return MoveOf(Place{Local: id})

	case *check.TupleLit:
		ops := make([]Operand, len(ex.Elems))
		for i, el := range ex.Elems {
			ops[i] = f.lowerExpr(el)
		}
		id := f.temp(f.sub(ex.Ty))
		f.storageLive(id)
		f.assign(Place{Local: id}, &RvAggregate{Kind: AggTuple, Operands: ops})
		return MoveOf(Place{Local: id})

	case *check.Block:
		return f.lowerBlock(ex)

	case *check.If:
		return f.lowerIf(ex)

	case *check.Match:
		return f.lowerMatch(ex)

	case *check.Lambda:
		return f.lowerLambda(ex)

	case *check.Cast:
		op := f.lowerExpr(ex.E)
		id := f.temp(f.sub(ex.Target))
		f.storageLive(id)
		f.assign(Place{Local: id}, &RvCast{Operand: op, Target: f.sub(ex.Target)})
		return f.readOperand(Place{Local: id}, ex.Target)
	}
	return ConstOp(&ConstUnit{})
}

func (f *funcCompiler) lowerVarRef(ex *check.VarRef) Operand {
	if id, ok := f.locals[ex.Def]; ok {
		return f.readOperand(Place{Local: id}, ex.Ty)
	}
	switch ex.Kind {
	case resolve.DefExternStatic:
		return ConstOp(&ConstExternStatic{Def: ex.Def, Name: ex.Name, Ty: f.sub(ex.Ty)})
	case resolve.DefConst:
		// Constants inline their initializer at each use site.
		if cd := f.l.constsByDef[ex.Def]; cd != nil {
			return f.lowerExpr(cd.Value)
		}
	}
	return ConstOp(&ConstUnit{})
}

// funcOperand lowers a function reference: a plain function pointer,
// or a monomorphized instance for generic calls.
func (f *funcCompiler) funcOperand(ex *check.FuncRef) Operand {
	if len(ex.TypeArgs) == 0 {
		return ConstOp(&ConstFnPtr{Def: ex.Def, Name: ex.QualName})
	}
	args := make([]types.Type, len(ex.TypeArgs))
	for i, a := range ex.TypeArgs {
		args[i] = f.sub(a)
	}
	// A call inside a generic body becomes concrete only here; record
	// the instantiation so the fixpoint lowers it.
	concrete := true
	for _, a := range args {
		if types.HasTypeParam(a) {
			concrete = false
		}
	}
	if concrete {
		f.l.ctx.RecordInstantiation(ex.Def, args)
	}
	base := ex.QualName
	if target := f.l.funcsByDef[ex.Def]; target != nil {
		base = target.QualName
	}
	return ConstOp(&ConstMonoFn{Def: ex.Def, Mangled: types.MangleGeneric(base, args), TypeArgs: args})
}

func (f *funcCompiler) lowerBinary(ex *check.Binary) Operand {
	left := f.lowerExpr(ex.Left)
	right := f.lowerExpr(ex.Right)
	id := f.temp(f.sub(ex.Ty))
	f.storageLive(id)
	f.assign(Place{Local: id}, &RvBinary{Op: ex.Op, Left: left, Right: right, Ty: f.sub(ex.Ty)})
	return f.readOperand(Place{Local: id}, ex.Ty)
}

// ---------------------------------------------------------------------------
// Places

// placeOfExpr maps an expression to a place when it denotes one.
func (f *funcCompiler) placeOfExpr(e check.Expr) (Place, bool) {
	switch ex := e.(type) {
	case *check.VarRef:
		if id, ok := f.locals[ex.Def]; ok {
			return Place{Local: id}, true
		}
		return Place{}, false
	case *check.FieldAccess:
		base, ok := f.placeOfExpr(ex.Recv)
		if !ok {
			op := f.lowerExpr(ex.Recv)
			base = f.materialize(op, ex.Recv.Type())
		}
		if _, isRef := f.sub(ex.Recv.Type()).(*types.Ref); isRef {
			base = base.Extend(Projection{Kind: ProjDeref})
		}
		return base.Extend(Projection{Kind: ProjField, Field: ex.Index, Name: ex.Name}), true
	case *check.Index:
		base, ok := f.placeOfExpr(ex.Recv)
		if !ok {
			op := f.lowerExpr(ex.Recv)
			base = f.materialize(op, ex.Recv.Type())
		}
		if _, isRef := f.sub(ex.Recv.Type()).(*types.Ref); isRef {
			base = base.Extend(Projection{Kind: ProjDeref})
		}
		idx := f.lowerExpr(ex.Idx)
		return base.Extend(Projection{Kind: ProjIndex, Index: idx}), true
	case *check.Unary:
		if ex.Op != "*" {
			return Place{}, false
		}
		base, ok := f.placeOfExpr(ex.Operand)
		if !ok {
			op := f.lowerExpr(ex.Operand)
			base = f.materialize(op, ex.Operand.Type())
		}
		return base.Extend(Projection{Kind: ProjDeref}), true
	}
	return Place{}, false
}

// ---------------------------------------------------------------------------
// Calls

// lowerCall lowers a call expression; the second result is false for
// enum constructions that produce no call.
func (f *funcCompiler) lowerCall(ex *check.Call) (Operand, bool) {
	if ctor, ok := ex.Callee.(*check.VariantCtor); ok {
		ops := []Operand{ConstOp(&ConstInt{Value: int64(ctor.Index), Ty: types.TI64})}
		for _, a := range ex.Args {
			ops = append(ops, f.lowerExpr(a))
		}
		id := f.temp(f.sub(ex.Ty))
		f.storageLive(id)
		f.assign(Place{Local: id}, &RvAggregate{Kind: AggEnum, Def: ctor.Enum, Variant: ctor.Index, Operands: ops})
		return MoveOf(Place{Local: id}), true
	}

	retTy := f.sub(ex.Ty)
	id := f.temp(retTy)
	f.storageLive(id)
	dest := Place{Local: id}
	f.emitCall(dest, retTy, ex)
	return f.readOperand(dest, ex.Ty), true
}

// lowerCallInto lowers a struct-returning call directly into dest.
func (f *funcCompiler) lowerCallInto(dest Place, ex *check.Call) bool {
	if _, isCtor := ex.Callee.(*check.VariantCtor); isCtor {
		return false
	}
	f.emitCall(dest, f.sub(ex.Ty), ex)
	return true
}

// emitCall emits the call terminator, passing the destination address
// as a prepended argument when the callee returns a struct (sret).
func (f *funcCompiler) emitCall(dest Place, retTy types.Type, ex *check.Call) {
	var fnOp Operand
	if fr, ok := ex.Callee.(*check.FuncRef); ok {
		fnOp = f.funcOperand(fr)
	} else {
		fnOp = f.lowerExpr(ex.Callee)
	}

	var args []Operand
	_, sret := retTy.(*types.Struct)
	if sret {
		ptr := f.temp(&types.Ref{Mut: true, Inner: retTy})
		f.storageLive(ptr)
		f.assign(Place{Local: ptr}, &RvRef{Mut: true, Place: dest})
		args = append(args, CopyOf(Place{Local: ptr}))
	}
	for _, a := range ex.Args {
		args = append(args, f.lowerExpr(a))
	}

	callDest := dest
	if sret {
		unit := f.temp(types.TUnit)
		callDest = Place{Local: unit}
	}
	next := f.newBlock()
	f.terminate(&CallTerm{Func: fnOp, Args: args, Dest: callDest, Target: next.Id}, next)
}

// ---------------------------------------------------------------------------
// Method calls

func (f *funcCompiler) lowerMethodCall(ex *check.MethodCall) Operand {
	retTy := f.sub(ex.Ty)
	id := f.temp(retTy)
	f.storageLive(id)
	dest := Place{Local: id}
	f.emitMethodCall(dest, retTy, ex)
	return f.readOperand(dest, ex.Ty)
}

func (f *funcCompiler) lowerMethodCallInto(dest Place, ex *check.MethodCall) {
	f.emitMethodCall(dest, f.sub(ex.Ty), ex)
}

func (f *funcCompiler) emitMethodCall(dest Place, retTy types.Type, ex *check.MethodCall) {
	fnOp, inline := f.methodTarget(ex)
	if inline != nil {
		// A trait-method call whose substituted receiver is a numeric
		// primitive lowers to the native operator on values; the
		// checker's auto-ref is undone.
		recvOp := f.lowerExpr(ex.Recv)
		var right Operand
		if len(ex.Args) > 0 {
			argE := ex.Args[0]
			if rt, ok := argE.(*check.RefTake); ok {
				argE = rt.Operand
			}
			right = f.lowerExpr(argE)
		}
		f.assign(dest, &RvBinary{Op: *inline, Left: recvOp, Right: right, Ty: retTy})
		return
	}

	// Receiver: by-value moves; by-reference takes an explicit Ref.
	// Constant receivers are materialized so they have an address.
	var recvOp Operand
	switch ex.SelfMode {
	case resolve.SelfByRef, resolve.SelfRefMut:
		if _, isRef := f.sub(ex.Recv.Type()).(*types.Ref); isRef {
			recvOp = f.lowerExpr(ex.Recv)
		} else {
			place, ok := f.placeOfExpr(ex.Recv)
			if !ok {
				op := f.lowerExpr(ex.Recv)
				place = f.materialize(op, ex.Recv.Type())
			}
			ref := f.temp(&types.Ref{Mut: ex.SelfMode == resolve.SelfRefMut, Inner: f.sub(ex.Recv.Type())})
			f.storageLive(ref)
			f.assign(Place{Local: ref}, &RvRef{Mut: ex.SelfMode == resolve.SelfRefMut, Place: place})
			recvOp = CopyOf(Place{Local: ref})
		}
	default:
		recvOp = f.lowerExpr(ex.Recv)
	}

	var args []Operand
	_, sret := retTy.(*types.Struct)
	if sret {
		ptr := f.temp(&types.Ref{Mut: true, Inner: retTy})
		f.storageLive(ptr)
		f.assign(Place{Local: ptr}, &RvRef{Mut: true, Place: dest})
		args = append(args, CopyOf(Place{Local: ptr}))
	}
	args = append(args, recvOp)
	for _, a := range ex.Args {
		args = append(args, f.lowerExpr(a))
	}

	callDest := dest
	if sret {
		unit := f.temp(types.TUnit)
		callDest = Place{Local: unit}
	}
	next := f.newBlock()
	f.terminate(&CallTerm{Func: fnOp, Args: args, Dest: callDest, Target: next.Id}, next)
}

// operatorByMethod maps operator-trait method names back to the
// primitive operator for inlining on numeric receivers.
var operatorByMethod = map[string]string{
	"add": "+", "sub": "-", "mul": "*", "div": "/", "rem": "%",
	"eq": "==", "lt": "<", "gt": ">", "le": "<=", "ge": ">=",
}

// methodTarget resolves a method call's callee operand. The second
// result requests primitive-operator inlining.
func (f *funcCompiler) methodTarget(ex *check.MethodCall) (Operand, *string) {
	switch ex.Kind {
	case check.TraitMethod:
		recvTy := f.sub(stripRef(ex.Recv.Type()))
		switch rt := recvTy.(type) {
		case *types.Prim:
			if op, ok := operatorByMethod[ex.Name]; ok && rt.Kind.IsNumeric() {
				return Operand{}, &op
			}
		case *types.Struct:
			// A generic operator or trait method resolved against the
			// substituted struct type calls the impl directly.
			if target, name, ok := f.resolveTraitImpl(rt.Def, ex.Name, ex.Bounds); ok {
				return ConstOp(&ConstFnPtr{Def: target, Name: name}), nil
			}
		case *types.Enum:
			if target, name, ok := f.resolveTraitImpl(rt.Def, ex.Name, ex.Bounds); ok {
				return ConstOp(&ConstFnPtr{Def: target, Name: name}), nil
			}
		}
		// Still late-bound: the code generator resolves it via the
		// receiver type's method table.
		return ConstOp(&ConstTraitMethodCall{
			ReceiverType: recvTy, MethodName: ex.Name, TraitBounds: ex.Bounds,
		}), nil

	default:
		qual := ex.RecvName + "::" + ex.Name
		if target := f.l.funcsByDef[ex.Method]; target != nil {
			qual = target.QualName
		}
		if len(ex.TypeArgs) > 0 {
			args := make([]types.Type, len(ex.TypeArgs))
			for i, a := range ex.TypeArgs {
				args[i] = f.sub(a)
			}
			concrete := true
			for _, a := range args {
				if types.HasTypeParam(a) {
					concrete = false
				}
			}
			if concrete {
				f.l.ctx.RecordInstantiation(ex.Method, args)
			}
			return ConstOp(&ConstMonoFn{Def: ex.Method, Mangled: types.MangleGeneric(qual, args), TypeArgs: args}), nil
		}
		return ConstOp(&ConstFnPtr{Def: ex.Method, Name: qual}), nil
	}
}

func (f *funcCompiler) resolveTraitImpl(def types.DefId, method string, bounds []types.DefId) (types.DefId, string, bool) {
	for _, trait := range bounds {
		for _, m := range f.l.ctx.TraitImpls[types.ImplKey{Type: def, Trait: trait}] {
			if m.Name == method {
				name := f.l.ctx.TypeNames[def] + "::" + method
				if target := f.l.funcsByDef[m.Def]; target != nil {
					name = target.QualName
				}
				return m.Def, name, true
			}
		}
	}
	// Fall back to any method of that name on the type.
	if info, ok := f.l.ctx.Methods[types.MethodKey{Type: def, Name: method}]; ok {
		name := f.l.ctx.TypeNames[def] + "::" + method
		if target := f.l.funcsByDef[info.Def]; target != nil {
			name = target.QualName
		}
		return info.Def, name, true
	}
	return 0, "", false
}

func stripRef(t types.Type) types.Type {
	if r, ok := t.(*types.Ref); ok {
		return r.Inner
	}
	return t
}

// ---------------------------------------------------------------------------
// Control flow expressions

func (f *funcCompiler) lowerIf(ex *check.If) Operand {
	ty := f.sub(ex.Ty)
	var result Place
	hasValue := !isUnit(ty) && !isNever(ty)
	if hasValue {
		id := f.temp(ty)
		f.storageLive(id)
		result = Place{Local: id}
	}

	cond := f.lowerExpr(ex.Cond)
	thenBlock := f.newBlock()
	elseBlock := f.newBlock()
	f.terminate(&SwitchInt{
		Discr: cond, Values: []int64{0}, Targets: []BlockId{elseBlock.Id}, Otherwise: thenBlock.Id,
	}, thenBlock)

	thenVal := f.lowerBlock(ex.Then)
	if hasValue {
		f.assign(result, &RvUse{Operand: thenVal})
	}
	thenEnd := f.cur

	f.cur = elseBlock
	if ex.Else != nil {
		elseVal := f.lowerExpr(ex.Else)
		if hasValue {
			f.assign(result, &RvUse{Operand: elseVal})
		}
	}
	elseEnd := f.cur

	join := f.newBlock()
	if thenEnd.Term == nil {
		thenEnd.Term = &Goto{Target: join.Id}
	}
	if elseEnd.Term == nil {
		elseEnd.Term = &Goto{Target: join.Id}
	}
	f.cur = join

	if hasValue {
		return f.readOperand(result, ex.Ty)
	}
	return ConstOp(&ConstUnit{})
}

func isNever(t types.Type) bool {
	p, ok := t.(*types.Prim)
	return ok && p.Kind == types.Never
}

// lowerMatch lowers a match to a discriminant switch. Variant
// payloads load from field idx+1 of the scrutinee place; field 0 is
// the discriminant.
func (f *funcCompiler) lowerMatch(ex *check.Match) Operand {
	scrPlace, ok := f.placeOfExpr(ex.Scrutinee)
	if !ok {
		op := f.lowerExpr(ex.Scrutinee)
		scrPlace = f.materialize(op, ex.Scrutinee.Type())
	}
	scrTy := f.sub(stripRef(ex.Scrutinee.Type()))
	if _, isRef := f.sub(ex.Scrutinee.Type()).(*types.Ref); isRef {
		scrPlace = scrPlace.Extend(Projection{Kind: ProjDeref})
	}

	ty := f.sub(ex.Ty)
	var result Place
	hasValue := !isUnit(ty) && !isNever(ty)
	if hasValue {
		id := f.temp(ty)
		f.storageLive(id)
		result = Place{Local: id}
	}

	// Discriminant: enum tag, or the value itself for literal
	// matches.
	var discr Operand
	if _, isEnum := scrTy.(*types.Enum); isEnum {
		id := f.temp(types.TI64)
		f.storageLive(id)
		f.assign(Place{Local: id}, &RvDiscriminant{Place: scrPlace})
		discr = CopyOf(Place{Local: id})
	} else {
		discr = f.readOperand(scrPlace, scrTy)
	}

	sw := &SwitchInt{Discr: discr}
	switchBlock := f.cur
	join := f.newBlock()

	otherwiseSet := false
	for _, arm := range ex.Arms {
		armBlock := f.newBlock()
		switch pat := arm.Pat.(type) {
		case *check.VariantPat:
			sw.Values = append(sw.Values, int64(pat.Index))
			sw.Targets = append(sw.Targets, armBlock.Id)
		case *check.LitPat:
			if v, ok := litSwitchValue(pat.Lit); ok {
				sw.Values = append(sw.Values, v)
				sw.Targets = append(sw.Targets, armBlock.Id)
			} else if !otherwiseSet {
				sw.Otherwise = armBlock.Id
				otherwiseSet = true
			}
		default:
			if !otherwiseSet {
				sw.Otherwise = armBlock.Id
				otherwiseSet = true
			}
		}

		f.cur = armBlock
		f.bindPattern(arm.Pat, scrPlace)
		val := f.lowerExpr(arm.Body)
		if hasValue && f.cur.Term == nil {
			f.assign(result, &RvUse{Operand: val})
		}
		if f.cur.Term == nil {
			f.cur.Term = &Goto{Target: join.Id}
		}
	}
	if !otherwiseSet {
		// Unmatched values fall through to the join (exhaustiveness
		// is not checked).
		sw.Otherwise = join.Id
	}
	switchBlock.Term = sw
	f.cur = join

	if hasValue {
		return f.readOperand(result, ex.Ty)
	}
	return ConstOp(&ConstUnit{})
}

func litSwitchValue(e check.Expr) (int64, bool) {
	switch lit := e.(type) {
	case *check.IntLit:
		return lit.Value, true
	case *check.BoolLit:
		if lit.Value {
			return 1, true
		}
		return 0, true
	case *check.CharLit:
		return int64(lit.Value), true
	}
	return 0, false
}

// bindPattern realizes pattern bindings as field loads from the
// scrutinee place.
func (f *funcCompiler) bindPattern(p check.Pattern, scr Place) {
	switch pat := p.(type) {
	case *check.BindPat:
		id := f.newLocal(pat.Name, f.sub(pat.Ty))
		f.locals[pat.Def] = id
		f.storageLive(id)
		f.assign(Place{Local: id}, &RvUse{Operand: f.readOperand(scr, pat.Ty)})

	case *check.TuplePat:
		for i, el := range pat.Elems {
			f.bindPattern(el, scr.Extend(Projection{Kind: ProjField, Field: i, Name: "_" + strconv.Itoa(i)}))
		}

	case *check.VariantPat:
		for i, el := range pat.Elems {
			// Field 0 is the discriminant; payload starts at 1.
			f.bindPattern(el, scr.Extend(Projection{Kind: ProjField, Field: i + 1, Name: "_" + strconv.Itoa(i)}))
		}
	}
}

// lowerLambda lifts a lambda to a top-level function and yields a
// function-pointer constant. Captures were rejected during
// resolution.
func (f *funcCompiler) lowerLambda(ex *check.Lambda) Operand {
	f.lambdaN++
	name := f.mirFn.Name + "$lambda" + strconv.Itoa(f.lambdaN)

	fnTy, _ := f.sub(ex.Ty).(*types.Function)
	ret := types.Type(types.TUnit)
	if fnTy != nil {
		ret = fnTy.Ret
	}

	lam := &funcCompiler{
		l:      f.l,
		fn:     f.fn,
		subst:  f.subst,
		locals: make(map[types.DefId]LocalId),
		mirFn:  &Function{Def: ex.Def, Name: name},
	}
	_, sret := ret.(*types.Struct)
	lam.mirFn.Sret = sret
	lam.mirFn.ReturnType = ret
	if sret {
		lam.mirFn.ReturnType = types.TUnit
	}
	lam.newLocal("", lam.mirFn.ReturnType)
	if sret {
		id := lam.newLocal("sret", &types.Ref{Mut: true, Inner: ret})
		lam.mirFn.Params = append(lam.mirFn.Params, id)
	}
	for _, p := range ex.Params {
		id := lam.newLocal(p.Name, lam.sub(p.Ty))
		lam.locals[p.Def] = id
		lam.mirFn.Params = append(lam.mirFn.Params, id)
	}
	lam.cur = lam.newBlock()
	value := lam.lowerExpr(ex.Body)
	lam.emitReturn(value)
	lam.pruneUnreachable()

	f.l.out.Functions = append(f.l.out.Functions, lam.mirFn)
	return ConstOp(&ConstFnPtr{Def: ex.Def, Name: name})
}

// ---------------------------------------------------------------------------

// pruneUnreachable removes blocks unreachable from block 0 and
// renumbers the survivors so every terminator target exists.
func (f *funcCompiler) pruneUnreachable() {
	if len(f.mirFn.Blocks) == 0 {
		return
	}
	// Any open block still missing a terminator diverges.
	for _, b := range f.mirFn.Blocks {
		if b.Term == nil {
			b.Term = &Unreachable{}
		}
	}

	reachable := make(map[BlockId]bool)
	var walk func(id BlockId)
	walk = func(id BlockId) {
		if reachable[id] {
			return
		}
		reachable[id] = true
		switch t := f.mirFn.Blocks[id].Term.(type) {
		case *Goto:
			walk(t.Target)
		case *SwitchInt:
			for _, tgt := range t.Targets {
				walk(tgt)
			}
			walk(t.Otherwise)
		case *CallTerm:
			walk(t.Target)
		}
	}
	walk(0)

	remap := make(map[BlockId]BlockId)
	var kept []*BasicBlock
	for _, b := range f.mirFn.Blocks {
		if reachable[b.Id] {
			remap[b.Id] = BlockId(len(kept))
			kept = append(kept, b)
		}
	}
	for _, b := range kept {
		b.Id = remap[b.Id]
		switch t := b.Term.(type) {
		case *Goto:
			t.Target = remap[t.Target]
		case *SwitchInt:
			for i := range t.Targets {
				t.Targets[i] = remap[t.Targets[i]]
			}
			t.Otherwise = remap[t.Otherwise]
		case *CallTerm:
			t.Target = remap[t.Target]
		}
	}
	f.mirFn.Blocks = kept
}
