package resolve

import (
	"strings"

	"github.com/wisplang/wisp/internal/ast"
	"github.com/wisplang/wisp/internal/source"
	"github.com/wisplang/wisp/internal/types"
)

// scopeFrame is one lexical scope. A barrier frame marks a lambda
// boundary: locals beyond it cannot be referenced (no capture).
type scopeFrame struct {
	names   map[string]types.DefId
	barrier bool
}

// bodyResolver resolves one function body.
type bodyResolver struct {
	r     *Resolver
	env   typeEnv
	stack []scopeFrame
}

// resolveBodies resolves every queued function body.
func (r *Resolver) resolveBodies() {
	for _, job := range r.bodies {
		br := &bodyResolver{r: r, env: job.env}
		br.push(false)
		if job.fn.Self != NoSelf {
			br.bind("self", job.fn.SelfDef)
		}
		for _, p := range job.fn.Params {
			br.bind(p.Name, p.Def)
		}
		job.fn.Body = br.resolveBlock(job.ast.Body)
		br.pop()
	}
}

func (b *bodyResolver) push(barrier bool) {
	b.stack = append(b.stack, scopeFrame{names: make(map[string]types.DefId), barrier: barrier})
}

func (b *bodyResolver) pop() {
	b.stack = b.stack[:len(b.stack)-1]
}

func (b *bodyResolver) bind(name string, def types.DefId) {
	b.stack[len(b.stack)-1].names[name] = def
}

// lookupLocal walks the scope stack. The second result reports
// whether a lambda barrier was crossed before the hit.
func (b *bodyResolver) lookupLocal(name string) (types.DefId, bool, bool) {
	crossed := false
	for i := len(b.stack) - 1; i >= 0; i-- {
		if def, ok := b.stack[i].names[name]; ok {
			return def, crossed, true
		}
		if b.stack[i].barrier {
			crossed = true
		}
	}
	return 0, false, false
}

// ---------------------------------------------------------------------------

func (b *bodyResolver) resolveBlock(blk *ast.BlockExpr) *Block {
	b.push(false)
	defer b.pop()
	out := &Block{Sp: blk.Sp}
	for _, s := range blk.Stmts {
		if rs := b.resolveStmt(s); rs != nil {
			out.Stmts = append(out.Stmts, rs)
		}
	}
	return out
}

func (b *bodyResolver) resolveStmt(s ast.Stmt) Stmt {
	switch st := s.(type) {
	case *ast.LetStmt:
		var ty types.Type
		if st.Ty != nil {
			ty = b.r.resolveType(b.env, st.Ty)
		}
		value := b.resolveExpr(st.Value)
		def := b.r.newDef(st.Name, DefLocal, b.env.mod.id, false, st.Sp)
		b.bind(st.Name, def)
		return &Let{Def: def, Name: st.Name, Mut: st.Mut, Ty: ty, Value: value, Sp: st.Sp}

	case *ast.ExprStmt:
		return &ExprStmt{E: b.resolveExpr(st.E), Semi: st.Semi, Sp: st.Sp}

	case *ast.ReturnStmt:
		ret := &Return{Sp: st.Sp}
		if st.Value != nil {
			ret.Value = b.resolveExpr(st.Value)
		}
		return ret

	case *ast.WhileStmt:
		cond := b.resolveExpr(st.Cond)
		return &While{Cond: cond, Body: b.resolveBlock(st.Body), Sp: st.Sp}

	case *ast.ForStmt:
		lo := b.resolveExpr(st.Range.Lo)
		hi := b.resolveExpr(st.Range.Hi)
		b.push(false)
		defer b.pop()
		def := b.r.newDef(st.Var, DefLocal, b.env.mod.id, false, st.Sp)
		b.bind(st.Var, def)
		return &For{Def: def, Name: st.Var, Lo: lo, Hi: hi, Body: b.resolveBlock(st.Body), Sp: st.Sp}

	case *ast.DeferStmt:
		call := b.resolveExpr(st.Call)
		switch call.(type) {
		case *Call, *MethodCall:
		default:
			b.r.errorf(st.Sp, "defer requires a function or method call")
		}
		return &Defer{Call: call, Sp: st.Sp}
	}
	b.r.errorf(s.Span(), "unsupported statement")
	return nil
}

func (b *bodyResolver) resolveExpr(e ast.Expr) Expr {
	if e == nil {
		return &ErrorExpr{}
	}
	switch ex := e.(type) {
	case *ast.IntLit:
		return &IntLit{Value: ex.Value, Sp: ex.Sp}
	case *ast.FloatLit:
		return &FloatLit{Value: ex.Value, Sp: ex.Sp}
	case *ast.BoolLit:
		return &BoolLit{Value: ex.Value, Sp: ex.Sp}
	case *ast.CharLit:
		return &CharLit{Value: ex.Value, Sp: ex.Sp}
	case *ast.StringLit:
		out := &StringLit{Sp: ex.Sp}
		for _, part := range ex.Parts {
			if part.Expr != nil {
				out.Parts = append(out.Parts, StringPart{Expr: b.resolveExpr(part.Expr)})
			} else {
				out.Parts = append(out.Parts, StringPart{Lit: part.Lit})
			}
		}
		return out

	case *ast.SelfExpr:
		def, _, ok := b.lookupLocal("self")
		if !ok {
			b.r.errorf(ex.Sp, "'self' outside of a method")
			return &ErrorExpr{Sp: ex.Sp}
		}
		return &SelfRef{Def: def, Sp: ex.Sp}

	case *ast.Ident:
		return b.resolveIdent(ex.Name, ex.Sp)

	case *ast.UnaryExpr:
		return &Unary{Op: ex.Op, Operand: b.resolveExpr(ex.Operand), Sp: ex.Sp}

	case *ast.RefExpr:
		return &RefTake{Mut: ex.Mut, Operand: b.resolveExpr(ex.Operand), Sp: ex.Sp}

	case *ast.BinaryExpr:
		return &Binary{Op: ex.Op, Left: b.resolveExpr(ex.Left), Right: b.resolveExpr(ex.Right), Sp: ex.Sp}

	case *ast.RangeExpr:
		return &Range{Lo: b.resolveExpr(ex.Lo), Hi: b.resolveExpr(ex.Hi), Sp: ex.Sp}

	case *ast.AssignExpr:
		return &Assign{Op: ex.Op, Target: b.resolveExpr(ex.Target), Value: b.resolveExpr(ex.Value), Sp: ex.Sp}

	case *ast.CallExpr:
		call := &Call{Sp: ex.Sp}
		call.Callee = b.resolveExpr(ex.Callee)
		for _, ta := range ex.TypeArgs {
			call.TypeArgs = append(call.TypeArgs, b.r.resolveType(b.env, ta))
		}
		for _, a := range ex.Args {
			call.Args = append(call.Args, Arg{Name: a.Name, Value: b.resolveExpr(a.Value), Sp: a.Sp})
		}
		return call

	case *ast.MethodCallExpr:
		recv := b.resolveExpr(ex.Recv)
		var args []Arg
		for _, a := range ex.Args {
			args = append(args, Arg{Name: a.Name, Value: b.resolveExpr(a.Value), Sp: a.Sp})
		}
		if ns, ok := recv.(*NamespacePath); ok {
			callee := b.namespaceItem(ns, ex.Name, ex.Sp)
			return &Call{Callee: callee, Args: args, Sp: ex.Sp}
		}
		return &MethodCall{Recv: recv, Name: ex.Name, Args: args, Sp: ex.Sp}

	case *ast.FieldAccessExpr:
		recv := b.resolveExpr(ex.Recv)
		if ns, ok := recv.(*NamespacePath); ok {
			return b.namespaceAccess(ns, ex.Name, ex.Sp)
		}
		if tr, ok := recv.(*TypeRef); ok {
			if en, ok := tr.Ty.(*types.Enum); ok {
				return b.enumVariantRef(en.Def, ex.Name, ex.Sp)
			}
		}
		return &FieldAccess{Recv: recv, Name: ex.Name, Sp: ex.Sp}

	case *ast.IndexExpr:
		return &Index{Recv: b.resolveExpr(ex.Recv), Index: b.resolveExpr(ex.Index), Sp: ex.Sp}

	case *ast.StructLit:
		return b.resolveStructLit(ex)

	case *ast.ArrayLit:
		out := &ArrayLit{Sp: ex.Sp}
		for _, el := range ex.Elems {
			out.Elems = append(out.Elems, b.resolveExpr(el))
		}
		return out

	case *ast.TupleLit:
		out := &TupleLit{Sp: ex.Sp}
		for _, el := range ex.Elems {
			out.Elems = append(out.Elems, b.resolveExpr(el))
		}
		return out

	case *ast.UnitLit:
		return &UnitLit{Sp: ex.Sp}

	case *ast.BlockExpr:
		return b.resolveBlock(ex)

	case *ast.IfExpr:
		out := &If{Cond: b.resolveExpr(ex.Cond), Then: b.resolveBlock(ex.Then), Sp: ex.Sp}
		if ex.Else != nil {
			out.Else = b.resolveExpr(ex.Else)
		}
		return out

	case *ast.MatchExpr:
		out := &Match{Scrutinee: b.resolveExpr(ex.Scrutinee), Sp: ex.Sp}
		for _, arm := range ex.Arms {
			b.push(false)
			pat := b.resolvePattern(arm.Pat)
			body := b.resolveExpr(arm.Body)
			b.pop()
			out.Arms = append(out.Arms, MatchArm{Pat: pat, Body: body, Sp: arm.Sp})
		}
		return out

	case *ast.LambdaExpr:
		def := b.r.newDef("lambda", DefLambda, b.env.mod.id, false, ex.Sp)
		lam := &Lambda{Def: def, Sp: ex.Sp}
		b.push(true)
		for _, p := range ex.Params {
			pdef := b.r.newDef(p.Name, DefParam, b.env.mod.id, false, p.Sp)
			var ty types.Type
			if p.Ty != nil {
				ty = b.r.resolveType(b.env, p.Ty)
			}
			lam.Params = append(lam.Params, ParamDef{Def: pdef, Name: p.Name, Ty: ty, Sp: p.Sp})
			b.bind(p.Name, pdef)
		}
		lam.Body = b.resolveExpr(ex.Body)
		b.pop()
		return lam

	case *ast.CastExpr:
		return &Cast{E: b.resolveExpr(ex.E), Ty: b.r.resolveType(b.env, ex.Ty), Sp: ex.Sp}
	}
	b.r.errorf(e.Span(), "unsupported expression")
	return &ErrorExpr{Sp: e.Span()}
}

// resolveIdent resolves a bare name: lexical scope, then module
// items, then enum variants, then namespace prefixes.
func (b *bodyResolver) resolveIdent(name string, sp source.Span) Expr {
	if def, crossedBarrier, ok := b.lookupLocal(name); ok {
		kind := b.r.defs[def].Kind
		if crossedBarrier && (kind == DefLocal || kind == DefParam) {
			b.r.errorf(sp, "lambdas cannot capture '%s' from the enclosing function", name)
			return &ErrorExpr{Sp: sp}
		}
		b.r.ctx.SpanDefs[sp] = def
		return &VarRef{Def: def, Name: name, Sp: sp}
	}

	if entry, ok := b.env.mod.scope[name]; ok {
		return b.entryToExpr(entry, name, sp)
	}
	if entry, ok := b.env.mod.injected[name]; ok {
		return b.entryToExpr(entry, name, sp)
	}

	if v, ok := b.r.variants[name]; ok {
		b.r.ctx.SpanDefs[sp] = v.variant
		return &VariantRef{Enum: v.enum, Variant: v.variant, Index: v.index, Sp: sp}
	}

	if ns, ok := b.env.mod.prefixes[name]; ok {
		return &NamespacePath{Segments: []string{name}, NS: ns, Sp: sp}
	}

	// Primitive type name in receiver position (`i32.parse(...)`).
	if prim, ok := types.PrimByName[name]; ok {
		return &TypeRef{Ty: types.PrimOf(prim), Sp: sp}
	}

	b.r.errorf(sp, "undefined name '%s'", name)
	return &ErrorExpr{Sp: sp}
}

func (b *bodyResolver) entryToExpr(entry scopeEntry, name string, sp source.Span) Expr {
	b.r.ctx.SpanDefs[sp] = entry.def
	switch entry.kind {
	case DefStruct:
		if a, ok := b.r.aliases[entry.def]; ok {
			return &TypeRef{Ty: b.r.resolveAlias(entry.def, a, sp), Sp: sp}
		}
		return &TypeRef{Ty: &types.Struct{Def: entry.def, Args: b.freshStructArgs(entry.def)}, Sp: sp}
	case DefEnum:
		return &TypeRef{Ty: &types.Enum{Def: entry.def}, Sp: sp}
	case DefTrait:
		b.r.errorf(sp, "trait '%s' cannot be used as a value", name)
		return &ErrorExpr{Sp: sp}
	}
	return &VarRef{Def: entry.def, Name: name, Sp: sp}
}

// freshStructArgs leaves generic args empty; type-level receivers of
// associated calls carry no instantiation.
func (b *bodyResolver) freshStructArgs(def types.DefId) []types.Type {
	return nil
}

// namespaceAccess resolves `ns.name`: a child namespace extends the
// path, a public item ends the walk.
func (b *bodyResolver) namespaceAccess(ns *NamespacePath, name string, sp source.Span) Expr {
	if child, ok := ns.NS.Child(name); ok {
		return &NamespacePath{Segments: append(append([]string{}, ns.Segments...), name), NS: child, Sp: sp}
	}
	return b.namespaceItem(ns, name, sp)
}

// namespaceItem resolves a terminal item in a namespace, enforcing
// visibility.
func (b *bodyResolver) namespaceItem(ns *NamespacePath, name string, sp source.Span) Expr {
	if id, ok := ns.NS.Item(name); ok {
		entry := scopeEntry{def: id, kind: b.r.defs[id].Kind, public: true}
		return b.entryToExpr(entry, name, sp)
	}
	if owner := b.r.nsOwner[ns.NS]; owner != nil {
		if _, exists := owner.scope[name]; exists {
			b.r.errorf(sp, "'%s' is private", name)
			return &ErrorExpr{Sp: sp}
		}
	}
	b.r.errorf(sp, "no item '%s' in namespace '%s'", name, strings.Join(ns.Segments, "."))
	return &ErrorExpr{Sp: sp}
}

func (b *bodyResolver) enumVariantRef(enum types.DefId, name string, sp source.Span) Expr {
	ed := b.r.enums[enum]
	if ed == nil {
		return &ErrorExpr{Sp: sp}
	}
	for i, v := range ed.Variants {
		if v.Name == name {
			b.r.ctx.SpanDefs[sp] = v.Def
			return &VariantRef{Enum: enum, Variant: v.Def, Index: i, Sp: sp}
		}
	}
	b.r.errorf(sp, "enum '%s' has no variant '%s'", ed.Name, name)
	return &ErrorExpr{Sp: sp}
}

// resolveStructLit resolves `T{...}` or `ns.T{...}`.
func (b *bodyResolver) resolveStructLit(ex *ast.StructLit) Expr {
	var def types.DefId
	found := false

	if len(ex.Path) == 1 {
		name := ex.Path[0]
		if entry, ok := b.env.mod.scope[name]; ok && entry.kind == DefStruct {
			def, found = entry.def, true
		} else if entry, ok := b.env.mod.injected[name]; ok && entry.kind == DefStruct {
			def, found = entry.def, true
		}
	} else {
		if ns, ok := b.env.mod.prefixes[ex.Path[0]]; ok {
			walk := ns
			ok := true
			for _, seg := range ex.Path[1 : len(ex.Path)-1] {
				if walk, ok = walk.Child(seg); !ok {
					break
				}
			}
			if ok {
				last := ex.Path[len(ex.Path)-1]
				if id, has := walk.Item(last); has && b.r.defs[id].Kind == DefStruct {
					def, found = id, true
				} else if owner := b.r.nsOwner[walk]; owner != nil {
					if _, exists := owner.scope[last]; exists {
						b.r.errorf(ex.Sp, "'%s' is private", last)
						return &ErrorExpr{Sp: ex.Sp}
					}
				}
			}
		}
	}

	if !found {
		b.r.errorf(ex.Sp, "undefined struct '%s'", strings.Join(ex.Path, "."))
		return &ErrorExpr{Sp: ex.Sp}
	}

	// Aliases in literal position resolve to their target struct.
	if a, ok := b.r.aliases[def]; ok {
		t := b.r.resolveAlias(def, a, ex.Sp)
		if st, ok := t.(*types.Struct); ok {
			def = st.Def
		} else {
			b.r.errorf(ex.Sp, "'%s' is not a struct", strings.Join(ex.Path, "."))
			return &ErrorExpr{Sp: ex.Sp}
		}
	}

	b.r.ctx.SpanDefs[ex.Sp] = def
	lit := &StructLit{Struct: def, Sp: ex.Sp}
	for _, f := range ex.Fields {
		lit.Fields = append(lit.Fields, FieldInit{Name: f.Name, Value: b.resolveExpr(f.Value), Sp: f.Sp})
	}
	return lit
}

func (b *bodyResolver) resolvePattern(p ast.Pattern) Pattern {
	switch pt := p.(type) {
	case *ast.WildcardPat:
		return &WildcardPat{Sp: pt.Sp}

	case *ast.BindingPat:
		// A bare name matching a known enum variant is a unit-variant
		// pattern, not a binding.
		if v, ok := b.r.variants[pt.Name]; ok {
			return &VariantPat{Enum: v.enum, Variant: v.variant, Index: v.index, Sp: pt.Sp}
		}
		def := b.r.newDef(pt.Name, DefLocal, b.env.mod.id, false, pt.Sp)
		b.bind(pt.Name, def)
		return &BindPat{Def: def, Name: pt.Name, Sp: pt.Sp}

	case *ast.LiteralPat:
		return &LitPat{Lit: b.resolveExpr(pt.Lit), Sp: pt.Sp}

	case *ast.TuplePat:
		out := &TuplePat{Sp: pt.Sp}
		for _, el := range pt.Elems {
			out.Elems = append(out.Elems, b.resolvePattern(el))
		}
		return out

	case *ast.VariantPat:
		return b.resolveVariantPat(pt)
	}
	b.r.errorf(p.Span(), "unsupported pattern")
	return &WildcardPat{Sp: p.Span()}
}

func (b *bodyResolver) resolveVariantPat(pt *ast.VariantPat) Pattern {
	var entry variantEntry
	found := false

	switch len(pt.Path) {
	case 1:
		entry, found = b.r.variants[pt.Path[0]]
	case 2:
		// Enum.Variant
		if se, ok := b.env.mod.scope[pt.Path[0]]; ok && se.kind == DefEnum {
			entry, found = b.variantOf(se.def, pt.Path[1])
		} else if se, ok := b.env.mod.injected[pt.Path[0]]; ok && se.kind == DefEnum {
			entry, found = b.variantOf(se.def, pt.Path[1])
		}
	default:
		// ns.Enum.Variant
		if ns, ok := b.env.mod.prefixes[pt.Path[0]]; ok {
			walk := ns
			ok := true
			for _, seg := range pt.Path[1 : len(pt.Path)-2] {
				if walk, ok = walk.Child(seg); !ok {
					break
				}
			}
			if ok {
				if id, has := walk.Item(pt.Path[len(pt.Path)-2]); has && b.r.defs[id].Kind == DefEnum {
					entry, found = b.variantOf(id, pt.Path[len(pt.Path)-1])
				}
			}
		}
	}

	if !found {
		b.r.errorf(pt.Sp, "undefined variant '%s'", strings.Join(pt.Path, "."))
		return &WildcardPat{Sp: pt.Sp}
	}

	out := &VariantPat{Enum: entry.enum, Variant: entry.variant, Index: entry.index, Sp: pt.Sp}
	for _, el := range pt.Elems {
		out.Elems = append(out.Elems, b.resolvePattern(el))
	}
	return out
}

func (b *bodyResolver) variantOf(enum types.DefId, name string) (variantEntry, bool) {
	ed := b.r.enums[enum]
	if ed == nil {
		return variantEntry{}, false
	}
	for i, v := range ed.Variants {
		if v.Name == name {
			return variantEntry{enum: enum, variant: v.Def, index: i}, true
		}
	}
	return variantEntry{}, false
}
