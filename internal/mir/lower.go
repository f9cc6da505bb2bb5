package mir

import (
	"github.com/wisplang/wisp/internal/check"
	"github.com/wisplang/wisp/internal/types"
)

// Lowerer turns a typed program into MIR. It is only invoked on a
// clean type-check, so it never diagnoses; internal inconsistencies
// are programmer errors.
type Lowerer struct {
	ctx  *types.Context
	prog *check.Program

	funcsByDef map[types.DefId]*check.Func
	constsByDef map[types.DefId]*check.Const
	emitted    map[string]bool

	out *Program
}

// Lower builds the MIR program, monomorphizing every recorded generic
// instantiation to a fixpoint.
func Lower(prog *check.Program) *Program {
	l := &Lowerer{
		ctx:        prog.Ctx,
		prog:       prog,
		funcsByDef: make(map[types.DefId]*check.Func),
		constsByDef: make(map[types.DefId]*check.Const),
		emitted:    make(map[string]bool),
		out:        &Program{},
	}
	for _, fn := range prog.Functions {
		l.funcsByDef[fn.Def] = fn
	}
	for _, cd := range prog.Consts {
		l.constsByDef[cd.Def] = cd
	}

	l.lowerDecls()

	for _, fn := range prog.Functions {
		if fn.IsGeneric() || fn.Body == nil {
			continue
		}
		l.out.Functions = append(l.out.Functions, l.lowerFunction(fn, nil, fn.QualName))
	}

	l.monomorphize()
	return l.out
}

// lowerDecls copies extern signatures and type layouts into the
// hand-off program.
func (l *Lowerer) lowerDecls() {
	for _, xf := range l.prog.Resolved.ExternFuncs {
		ef := ExternFunction{Def: xf.Def, Name: xf.Name, Ret: xf.Ret}
		for _, p := range xf.Params {
			ef.Params = append(ef.Params, p.Ty)
		}
		l.out.ExternFunctions = append(l.out.ExternFunctions, ef)
	}
	for _, xs := range l.prog.Resolved.ExternStatics {
		l.out.ExternStatics = append(l.out.ExternStatics, ExternStaticDecl{Def: xs.Def, Name: xs.Name, Ty: xs.Ty})
	}
	for _, sd := range l.prog.Resolved.Structs {
		layout := StructLayout{Def: sd.Def, Name: sd.Name}
		for _, f := range l.ctx.StructFields[sd.Def] {
			layout.Fields = append(layout.Fields, f.Ty)
		}
		l.out.Structs = append(l.out.Structs, layout)
	}
	for _, ed := range l.prog.Resolved.Enums {
		layout := EnumLayout{Def: ed.Def, Name: ed.Name}
		for _, v := range l.ctx.EnumVariants[ed.Def] {
			layout.Variants = append(layout.Variants, VariantLayout{Name: v.Name, Fields: v.Fields})
		}
		l.out.Enums = append(l.out.Enums, layout)
	}
}

// monomorphize drains the instantiation work-list to a fixpoint:
// lowering a monomorphized body can record new instantiations, each
// of which is lowered exactly once.
func (l *Lowerer) monomorphize() {
	for {
		progress := false
		for _, inst := range l.ctx.Instantiations() {
			fn := l.funcsByDef[inst.Func]
			if fn == nil || fn.Body == nil {
				continue
			}
			name := types.MangleGeneric(fn.QualName, inst.Args)
			if l.emitted[name] {
				continue
			}
			l.emitted[name] = true
			progress = true

			subst := make(map[types.DefId]types.Type, len(fn.TypeParams))
			for i, tp := range fn.TypeParams {
				if i < len(inst.Args) {
					subst[tp.Def] = inst.Args[i]
				}
			}
			l.out.Functions = append(l.out.Functions, l.lowerFunction(fn, subst, name))
		}
		if !progress {
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Per-function compilation

type funcCompiler struct {
	l     *Lowerer
	fn    *check.Func
	subst map[types.DefId]types.Type

	mirFn   *Function
	locals  map[types.DefId]LocalId
	cur     *BasicBlock
	defers  []check.Expr
	lambdaN int
}

// sub applies the monomorphization substitution to a type.
func (f *funcCompiler) sub(t types.Type) types.Type {
	return types.Substitute(t, f.subst)
}

func (l *Lowerer) lowerFunction(fn *check.Func, subst map[types.DefId]types.Type, name string) *Function {
	f := &funcCompiler{
		l:      l,
		fn:     fn,
		subst:  subst,
		locals: make(map[types.DefId]LocalId),
		mirFn:  &Function{Def: fn.Def, Name: name},
	}

	ret := f.sub(fn.Ret)
	_, sret := ret.(*types.Struct)
	f.mirFn.Sret = sret
	f.mirFn.ReturnType = ret
	if sret {
		f.mirFn.ReturnType = types.TUnit
	}

	// Local 0 is the return place.
	f.newLocal("", f.mirFn.ReturnType)
	if sret {
		// Implicit sret pointer, prepended to the parameters.
		id := f.newLocal("sret", &types.Ref{Mut: true, Inner: ret})
		f.mirFn.Params = append(f.mirFn.Params, id)
	}
	if fn.Self != nil {
		id := f.newLocal("self", f.sub(fn.Self.Ty))
		f.locals[fn.Self.Def] = id
		f.mirFn.Params = append(f.mirFn.Params, id)
	}
	for _, p := range fn.Params {
		id := f.newLocal(p.Name, f.sub(p.Ty))
		f.locals[p.Def] = id
		f.mirFn.Params = append(f.mirFn.Params, id)
	}

	f.cur = f.newBlock()
	value := f.lowerBlock(fn.Body)
	f.emitReturn(value)

	f.pruneUnreachable()
	return f.mirFn
}

func (f *funcCompiler) newLocal(name string, ty types.Type) LocalId {
	id := LocalId(len(f.mirFn.Locals))
	f.mirFn.Locals = append(f.mirFn.Locals, Local{Id: id, Name: name, Ty: ty})
	return id
}

func (f *funcCompiler) temp(ty types.Type) LocalId {
	return f.newLocal("", ty)
}

func (f *funcCompiler) newBlock() *BasicBlock {
	b := &BasicBlock{Id: BlockId(len(f.mirFn.Blocks))}
	f.mirFn.Blocks = append(f.mirFn.Blocks, b)
	return b
}

func (f *funcCompiler) assign(p Place, rv Rvalue) {
	f.cur.Statements = append(f.cur.Statements, Statement{Kind: StmtAssign, Place: p, Rvalue: rv})
}

func (f *funcCompiler) storageLive(id LocalId) {
	f.cur.Statements = append(f.cur.Statements, Statement{Kind: StmtStorageLive, Local: id})
}

func (f *funcCompiler) terminate(t Terminator, next *BasicBlock) {
	if f.cur.Term == nil {
		f.cur.Term = t
	}
	f.cur = next
}

// readOperand turns a place into a copy or move per its type.
func (f *funcCompiler) readOperand(p Place, ty types.Type) Operand {
	if types.IsCopy(f.sub(ty)) {
		return CopyOf(p)
	}
	return MoveOf(p)
}

// materialize stores an operand into a fresh temporary so it has an
// address.
func (f *funcCompiler) materialize(op Operand, ty types.Type) Place {
	id := f.temp(f.sub(ty))
	f.storageLive(id)
	place := Place{Local: id}
	f.assign(place, &RvUse{Operand: op})
	return place
}

// emitReturn writes the function's value into the return place, runs
// deferred calls in reverse order, and returns.
func (f *funcCompiler) emitReturn(value Operand) {
	if f.cur.Term != nil {
		return
	}
	if f.mirFn.Sret {
		// Write through the sret pointer.
		dest := Place{Local: 1, Projs: []Projection{{Kind: ProjDeref}}}
		f.assign(dest, &RvUse{Operand: value})
	} else if !isUnit(f.mirFn.ReturnType) {
		f.assign(Place{Local: 0}, &RvUse{Operand: value})
	}
	f.emitDefers()
	f.cur.Term = &Return{}
}

func (f *funcCompiler) emitDefers() {
	for i := len(f.defers) - 1; i >= 0; i-- {
		f.lowerExpr(f.defers[i])
	}
}

func isUnit(t types.Type) bool {
	p, ok := t.(*types.Prim)
	return ok && p.Kind == types.Unit
}

// ---------------------------------------------------------------------------
// Statements

// lowerBlock lowers a block's statements and yields its value.
func (f *funcCompiler) lowerBlock(b *check.Block) Operand {
	value := ConstOp(&ConstUnit{})
	for i, s := range b.Stmts {
		last := i == len(b.Stmts)-1
		switch st := s.(type) {
		case *check.Let:
			id := f.newLocal(st.Name, f.sub(st.Ty))
			f.locals[st.Def] = id
			f.storageLive(id)
			f.lowerInto(Place{Local: id}, st.Value)

		case *check.ExprStmt:
			op := f.lowerExpr(st.E)
			if last && !st.Semi {
				value = op
			}

		case *check.Return:
			var op Operand = ConstOp(&ConstUnit{})
			if st.Value != nil {
				op = f.lowerExpr(st.Value)
			}
			f.emitReturn(op)
			// Continuation is unreachable; it gets pruned.
			f.cur = f.newBlock()

		case *check.While:
			f.lowerWhile(st)

		case *check.For:
			f.lowerFor(st)

		case *check.Defer:
			f.defers = append(f.defers, st.Call)
		}
	}
	return value
}

func (f *funcCompiler) lowerWhile(st *check.While) {
	condBlock := f.newBlock()
	f.terminate(&Goto{Target: condBlock.Id}, condBlock)

	cond := f.lowerExpr(st.Cond)
	bodyBlock := f.newBlock()
	exitBlock := f.newBlock()
	f.terminate(&SwitchInt{
		Discr: cond, Values: []int64{0}, Targets: []BlockId{exitBlock.Id}, Otherwise: bodyBlock.Id,
	}, bodyBlock)

	f.lowerBlock(st.Body)
	f.terminate(&Goto{Target: condBlock.Id}, exitBlock)
}

// lowerFor desugars `for i in a..b` to `i = a; while i < b { body;
// i = i + 1 }`.
func (f *funcCompiler) lowerFor(st *check.For) {
	ty := f.sub(st.Ty)
	id := f.newLocal(st.Name, ty)
	f.locals[st.Def] = id
	f.storageLive(id)
	iPlace := Place{Local: id}
	f.assign(iPlace, &RvUse{Operand: f.lowerExpr(st.Lo)})
	hi := f.lowerExpr(st.Hi)
	hiPlace := f.materialize(hi, ty)

	condBlock := f.newBlock()
	f.terminate(&Goto{Target: condBlock.Id}, condBlock)

	condTmp := f.temp(types.TBool)
	f.assign(Place{Local: condTmp}, &RvBinary{Op: "<", Left: CopyOf(iPlace), Right: CopyOf(hiPlace), Ty: types.TBool})
	bodyBlock := f.newBlock()
	exitBlock := f.newBlock()
	f.terminate(&SwitchInt{
		Discr: CopyOf(Place{Local: condTmp}), Values: []int64{0},
		Targets: []BlockId{exitBlock.Id}, Otherwise: bodyBlock.Id,
	}, bodyBlock)

	f.lowerBlock(st.Body)
	f.assign(iPlace, &RvBinary{Op: "+", Left: CopyOf(iPlace), Right: ConstOp(&ConstInt{Value: 1, Ty: ty}), Ty: ty})
	f.terminate(&Goto{Target: condBlock.Id}, exitBlock)
}

// lowerInto lowers an expression directly into a destination place,
// letting struct-returning calls write through sret without an extra
// copy.
func (f *funcCompiler) lowerInto(dest Place, e check.Expr) {
	switch ex := e.(type) {
	case *check.Call:
		if _, isStruct := f.sub(ex.Ty).(*types.Struct); isStruct {
			if f.lowerCallInto(dest, ex) {
				return
			}
		}
	case *check.MethodCall:
		if _, isStruct := f.sub(ex.Ty).(*types.Struct); isStruct {
			f.lowerMethodCallInto(dest, ex)
			return
		}
	}
	op := f.lowerExpr(e)
	f.assign(dest, &RvUse{Operand: op})
}
