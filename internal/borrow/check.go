package borrow

import (
	"fmt"

	"github.com/wisplang/wisp/internal/check"
	"github.com/wisplang/wisp/internal/diag"
	"github.com/wisplang/wisp/internal/resolve"
	"github.com/wisplang/wisp/internal/source"
	"github.com/wisplang/wisp/internal/types"
)

// Loan is an outstanding borrow of a place.
type Loan struct {
	Place Place
	Mut   bool
	Sp    source.Span
	scope int
}

// varInfo tracks one declared variable.
type varInfo struct {
	name        string
	mut         bool
	initialized bool
}

// Checker runs the per-function dataflow.
type Checker struct {
	ctx *types.Context
	bag *diag.Bag
}

// New creates a borrow checker.
func New(ctx *types.Context, bag *diag.Bag) *Checker {
	return &Checker{ctx: ctx, bag: bag}
}

// Check walks every function. State never leaks between functions.
func (c *Checker) Check(prog *check.Program) {
	for _, fn := range prog.Functions {
		if fn.Body == nil {
			continue
		}
		fc := &fnChecker{
			c:     c,
			vars:  make(map[types.DefId]*varInfo),
			moved: make(map[string]moveRecord),
			names: make(map[types.DefId]string),
		}
		if fn.Self != nil {
			fc.declare(fn.Self.Def, "self", fn.SelfMode == resolve.SelfRefMut || fn.SelfMode == resolve.SelfValue)
		}
		for _, p := range fn.Params {
			fc.declare(p.Def, p.Name, p.Mut)
		}
		fc.checkBlock(fn.Body)
	}
}

type moveRecord struct {
	place Place
	sp    source.Span
}

type fnChecker struct {
	c     *Checker
	vars  map[types.DefId]*varInfo
	moved map[string]moveRecord
	loans []Loan
	names map[types.DefId]string
	scope int
}

func (f *fnChecker) errorf(sp source.Span, notes []diag.Note, format string, args ...interface{}) {
	f.c.bag.Add(diag.Diagnostic{
		Kind:    diag.BorrowError,
		Message: fmt.Sprintf(format, args...),
		Span:    sp,
		Notes:   notes,
	})
}

func (f *fnChecker) declare(def types.DefId, name string, mut bool) {
	f.vars[def] = &varInfo{name: name, mut: mut, initialized: true}
	f.names[def] = name
}

func (f *fnChecker) typeOf(def types.DefId) types.Type {
	if t, ok := f.c.ctx.DefTypes[def]; ok {
		return t
	}
	return types.TErr
}

// ---------------------------------------------------------------------------
// Scopes and loans

func (f *fnChecker) enterScope() int {
	f.scope++
	return f.scope
}

// exitScope retires loans created in the scope (lexical lifetimes).
func (f *fnChecker) exitScope(s int) {
	kept := f.loans[:0]
	for _, l := range f.loans {
		if l.scope < s {
			kept = append(kept, l)
		}
	}
	f.loans = kept
	f.scope = s - 1
}

func (f *fnChecker) overlappingLoans(p Place) (imm, mut []Loan) {
	for _, l := range f.loans {
		if l.Place.Overlaps(p) {
			if l.Mut {
				mut = append(mut, l)
			} else {
				imm = append(imm, l)
			}
		}
	}
	return imm, mut
}

// ---------------------------------------------------------------------------
// Statements

func (f *fnChecker) checkBlock(b *check.Block) {
	s := f.enterScope()
	for _, st := range b.Stmts {
		f.checkStmt(st)
	}
	f.exitScope(s)
}

func (f *fnChecker) checkStmt(s check.Stmt) {
	switch st := s.(type) {
	case *check.Let:
		f.consumeExpr(st.Value)
		f.declare(st.Def, st.Name, st.Mut)

	case *check.ExprStmt:
		f.consumeExpr(st.E)

	case *check.Return:
		if st.Value != nil {
			f.consumeExpr(st.Value)
		}

	case *check.While:
		f.consumeExpr(st.Cond)
		// Loop bodies are checked once with a clean loan set; loans
		// retire at scope exit rather than via fixpoint iteration.
		f.checkBlock(st.Body)

	case *check.For:
		f.consumeExpr(st.Lo)
		f.consumeExpr(st.Hi)
		sc := f.enterScope()
		f.declare(st.Def, st.Name, true)
		f.checkBlock(st.Body)
		f.exitScope(sc)

	case *check.Defer:
		f.consumeExpr(st.Call)
	}
}

// ---------------------------------------------------------------------------
// Expressions

// consumeExpr evaluates an expression for its value: reading a
// non-Copy place moves it.
func (f *fnChecker) consumeExpr(e check.Expr) {
	switch ex := e.(type) {
	case *check.VarRef:
		if place, ok := f.placeOf(ex); ok {
			f.readPlace(place, ex.Type(), ex.Span())
		}

	case *check.FieldAccess:
		if place, ok := f.placeOf(ex); ok {
			f.readPlace(place, ex.Type(), ex.Span())
		} else {
			f.consumeExpr(ex.Recv)
		}

	case *check.Index:
		f.consumeExpr(ex.Idx)
		if place, ok := f.placeOf(ex); ok {
			f.readPlace(place, ex.Type(), ex.Span())
		} else {
			f.consumeExpr(ex.Recv)
		}

	case *check.Unary:
		if ex.Op == "*" {
			if place, ok := f.placeOf(ex); ok {
				f.readPlace(place, ex.Type(), ex.Span())
				return
			}
		}
		f.consumeExpr(ex.Operand)

	case *check.RefTake:
		f.takeRef(ex)

	case *check.Binary:
		f.consumeExpr(ex.Left)
		f.consumeExpr(ex.Right)

	case *check.Assign:
		f.checkAssign(ex)

	case *check.Call:
		f.consumeExpr(ex.Callee)
		for _, a := range ex.Args {
			f.consumeExpr(a)
		}

	case *check.MethodCall:
		f.checkMethodCall(ex)

	case *check.StructLit:
		for _, fe := range ex.Fields {
			f.consumeExpr(fe)
		}

	case *check.ArrayLit:
		for _, el := range ex.Elems {
			f.consumeExpr(el)
		}

	case *check.TupleLit:
		for _, el := range ex.Elems {
			f.consumeExpr(el)
		}

	case *check.Block:
		f.checkBlock(ex)

	case *check.If:
		f.consumeExpr(ex.Cond)
		f.checkBlock(ex.Then)
		if ex.Else != nil {
			f.consumeExpr(ex.Else)
		}

	case *check.Match:
		f.consumeExpr(ex.Scrutinee)
		for _, arm := range ex.Arms {
			sc := f.enterScope()
			f.declarePattern(arm.Pat)
			f.consumeExpr(arm.Body)
			f.exitScope(sc)
		}

	case *check.Lambda:
		sc := f.enterScope()
		for _, p := range ex.Params {
			f.declare(p.Def, p.Name, false)
		}
		f.consumeExpr(ex.Body)
		f.exitScope(sc)

	case *check.Cast:
		f.consumeExpr(ex.E)

	case *check.FuncRef, *check.VariantCtor, *check.IntLit, *check.FloatLit,
		*check.BoolLit, *check.CharLit, *check.StrLit, *check.UnitLit,
		*check.ErrorExpr:
		// No places involved.
	}
}

func (f *fnChecker) declarePattern(p check.Pattern) {
	switch pt := p.(type) {
	case *check.BindPat:
		f.declare(pt.Def, pt.Name, false)
	case *check.TuplePat:
		for _, el := range pt.Elems {
			f.declarePattern(el)
		}
	case *check.VariantPat:
		for _, el := range pt.Elems {
			f.declarePattern(el)
		}
	}
}

// placeOf maps a typed expression to a place when it denotes one.
func (f *fnChecker) placeOf(e check.Expr) (Place, bool) {
	switch ex := e.(type) {
	case *check.VarRef:
		if _, tracked := f.vars[ex.Def]; tracked {
			return Place{Local: ex.Def}, true
		}
		return Place{}, false
	case *check.FieldAccess:
		base, ok := f.placeOf(ex.Recv)
		if !ok {
			return Place{}, false
		}
		// Field access through a reference dereferences implicitly.
		if _, isRef := f.c.ctx.Apply(ex.Recv.Type()).(*types.Ref); isRef {
			base = base.Extend(Projection{Kind: ProjDeref})
		}
		return base.Extend(Projection{Kind: ProjField, Index: ex.Index, Name: ex.Name}), true
	case *check.Index:
		base, ok := f.placeOf(ex.Recv)
		if !ok {
			return Place{}, false
		}
		return base.Extend(Projection{Kind: ProjIndex}), true
	case *check.Unary:
		if ex.Op != "*" {
			return Place{}, false
		}
		base, ok := f.placeOf(ex.Operand)
		if !ok {
			return Place{}, false
		}
		return base.Extend(Projection{Kind: ProjDeref}), true
	}
	return Place{}, false
}

// readPlace models a read for value: Copy types copy; everything else
// moves. Reads also conflict with outstanding mutable loans.
func (f *fnChecker) readPlace(place Place, ty types.Type, sp source.Span) {
	if prior, gone := f.findMoved(place); gone {
		f.errorf(sp, []diag.Note{{Message: "value moved here", Span: prior.sp}},
			"use of moved value '%s'", place.String(f.names))
		return
	}
	if _, muts := f.overlappingLoans(place); len(muts) > 0 {
		f.errorf(sp, []diag.Note{{Message: "mutable borrow occurs here", Span: muts[0].Sp}},
			"cannot use '%s' while it is mutably borrowed", place.String(f.names))
	}
	if !types.IsCopy(f.c.ctx.Apply(ty)) {
		f.moved[place.Key()] = moveRecord{place: place, sp: sp}
	}
}

// findMoved reports whether the place or any overlapping place has
// been moved out.
func (f *fnChecker) findMoved(place Place) (moveRecord, bool) {
	for _, rec := range f.moved {
		if rec.place.Overlaps(place) {
			return rec, true
		}
	}
	return moveRecord{}, false
}

// clearMoved re-initializes a place on assignment.
func (f *fnChecker) clearMoved(place Place) {
	for k, rec := range f.moved {
		if rec.place.Overlaps(place) {
			delete(f.moved, k)
		}
	}
}

func (f *fnChecker) rootMutable(place Place) bool {
	v, ok := f.vars[place.Local]
	if !ok {
		return true
	}
	if v.mut {
		return true
	}
	// Dereferencing a mutable reference is a mutable place even when
	// the reference binding itself is immutable.
	if len(place.Projs) > 0 && place.Projs[0].Kind == ProjDeref {
		if r, ok := f.c.ctx.Apply(f.typeOf(place.Local)).(*types.Ref); ok {
			return r.Mut
		}
	}
	return false
}

func (f *fnChecker) takeRef(ex *check.RefTake) {
	place, ok := f.placeOf(ex.Operand)
	if !ok {
		// Borrowing a temporary: evaluate it, nothing to track.
		f.consumeExpr(ex.Operand)
		return
	}
	if prior, gone := f.findMoved(place); gone {
		f.errorf(ex.Sp, []diag.Note{{Message: "value moved here", Span: prior.sp}},
			"borrow of moved value '%s'", place.String(f.names))
		return
	}

	imm, mut := f.overlappingLoans(place)
	if ex.Mut {
		if !f.rootMutable(place) {
			f.errorf(ex.Sp, nil,
				"cannot borrow '%s' as mutable: '%s' is not declared mut",
				place.String(f.names), f.names[place.Local])
			return
		}
		if len(mut) > 0 {
			f.errorf(ex.Sp, []diag.Note{{Message: "first mutable borrow occurs here", Span: mut[0].Sp}},
				"cannot borrow '%s' as mutable more than once", place.String(f.names))
			return
		}
		if len(imm) > 0 {
			f.errorf(ex.Sp, []diag.Note{{Message: "immutable borrow occurs here", Span: imm[0].Sp}},
				"cannot borrow '%s' as mutable because it is also borrowed as immutable", place.String(f.names))
			return
		}
	} else if len(mut) > 0 {
		f.errorf(ex.Sp, []diag.Note{{Message: "mutable borrow occurs here", Span: mut[0].Sp}},
			"cannot borrow '%s' as immutable because it is also borrowed as mutable", place.String(f.names))
		return
	}
	f.loans = append(f.loans, Loan{Place: place, Mut: ex.Mut, Sp: ex.Sp, scope: f.scope})
}

func (f *fnChecker) checkAssign(ex *check.Assign) {
	f.consumeExpr(ex.Value)

	place, ok := f.placeOf(ex.Target)
	if !ok {
		return
	}
	if !f.rootMutable(place) {
		f.errorf(ex.Sp, nil, "cannot assign to '%s': '%s' is not declared mut",
			place.String(f.names), f.names[place.Local])
		return
	}
	imm, mut := f.overlappingLoans(place)
	if len(imm)+len(mut) > 0 {
		first := append(imm, mut...)[0]
		f.errorf(ex.Sp, []diag.Note{{Message: "borrow occurs here", Span: first.Sp}},
			"cannot assign to '%s' while it is borrowed", place.String(f.names))
		return
	}
	f.clearMoved(place)
}

// checkMethodCall loans the receiver for the duration of argument
// evaluation, matching the method's self mode.
func (f *fnChecker) checkMethodCall(ex *check.MethodCall) {
	place, isPlace := f.placeOf(ex.Recv)

	switch ex.SelfMode {
	case resolve.SelfValue:
		f.consumeExpr(ex.Recv)
		for _, a := range ex.Args {
			f.consumeExpr(a)
		}
		return

	case resolve.SelfByRef, resolve.SelfRefMut:
		wantMut := ex.SelfMode == resolve.SelfRefMut
		if !isPlace {
			f.consumeExpr(ex.Recv)
			for _, a := range ex.Args {
				f.consumeExpr(a)
			}
			return
		}
		if prior, gone := f.findMoved(place); gone {
			f.errorf(ex.Sp, []diag.Note{{Message: "value moved here", Span: prior.sp}},
				"use of moved value '%s'", place.String(f.names))
			return
		}
		// A &-receiver through an already-borrowed reference local is
		// fine; borrowing the place itself follows the loan rules.
		imm, mut := f.overlappingLoans(place)
		if wantMut {
			if !f.recvMutable(ex.Recv, place) {
				f.errorf(ex.Sp, nil,
					"cannot borrow '%s' as mutable: '%s' is not declared mut",
					place.String(f.names), f.names[place.Local])
			} else if len(mut) > 0 {
				f.errorf(ex.Sp, []diag.Note{{Message: "first mutable borrow occurs here", Span: mut[0].Sp}},
					"cannot borrow '%s' as mutable more than once", place.String(f.names))
			} else if len(imm) > 0 {
				f.errorf(ex.Sp, []diag.Note{{Message: "immutable borrow occurs here", Span: imm[0].Sp}},
					"cannot borrow '%s' as mutable because it is also borrowed as immutable", place.String(f.names))
			}
		} else if len(mut) > 0 {
			f.errorf(ex.Sp, []diag.Note{{Message: "mutable borrow occurs here", Span: mut[0].Sp}},
				"cannot use '%s' while it is mutably borrowed", place.String(f.names))
		}

		// Loan held only for the argument evaluation.
		loanIdx := len(f.loans)
		f.loans = append(f.loans, Loan{Place: place, Mut: wantMut, Sp: ex.Sp, scope: f.scope})
		for _, a := range ex.Args {
			f.consumeExpr(a)
		}
		f.loans = append(f.loans[:loanIdx], f.loans[loanIdx+1:]...)
	}
}

// recvMutable: a receiver that is itself a mutable reference may be
// re-borrowed mutably even if the binding is immutable.
func (f *fnChecker) recvMutable(recv check.Expr, place Place) bool {
	if r, ok := f.c.ctx.Apply(recv.Type()).(*types.Ref); ok {
		return r.Mut
	}
	return f.rootMutable(place)
}
