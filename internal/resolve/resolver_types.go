package resolve

import (
	"strings"

	"github.com/wisplang/wisp/internal/ast"
	"github.com/wisplang/wisp/internal/source"
	"github.com/wisplang/wisp/internal/types"
)

// typeEnv is the context a type expression resolves in.
type typeEnv struct {
	mod    *moduleCtx
	params map[string]*types.TypeParam
	selfTy types.Type
}

// bodyJob is a function whose body still needs resolution.
type bodyJob struct {
	env typeEnv
	fn  *Func
	ast *ast.FuncDecl
}

// resolveSignatures resolves all declared types: struct fields, enum
// variant payloads, trait method signatures, impl heads, function and
// extern signatures, const types. Bodies come after so that every
// signature is known first.
func (r *Resolver) resolveSignatures() {
	// Type parameters first so arities are known during field and
	// signature resolution.
	for _, ps := range r.pendingStructs {
		sd := r.structs[ps.def]
		sd.TypeParams, _ = r.declareTypeParams(ps.mod, ps.decl.TypeParams)
	}
	for _, pe := range r.pendingEnums {
		ed := r.enums[pe.def]
		ed.TypeParams, _ = r.declareTypeParams(pe.mod, pe.decl.TypeParams)
	}
	for _, pt := range r.pendingTraits {
		td := r.traits[pt.def]
		td.SelfParam = r.newDef("Self", DefTypeParam, pt.mod.id, false, pt.decl.Sp)
		var defaults []ast.TypeExpr
		for _, tp := range pt.decl.TypeParams {
			def := r.newDef(tp.Name, DefTypeParam, pt.mod.id, false, tp.Sp)
			td.TypeParams = append(td.TypeParams, TraitTypeParam{
				Def: def, Name: tp.Name, HasDefault: tp.Default != nil,
			})
			defaults = append(defaults, tp.Default)
		}
		r.traitDefaults[pt.def] = defaults
	}

	for _, ps := range r.pendingStructs {
		r.resolveStructFields(ps)
	}
	for _, pe := range r.pendingEnums {
		r.resolveEnumVariants(pe)
	}
	for _, pt := range r.pendingTraits {
		r.resolveTraitMethods(pt)
	}
	for _, pf := range r.pendingFuncs {
		r.resolveFuncSignature(pf.mod, pf.decl, pf.def, nil, nil)
	}
	for _, pi := range r.pendingImpls {
		r.resolveImpl(pi)
	}
	for _, pc := range r.pendingConsts {
		env := typeEnv{mod: pc.mod}
		ty := r.resolveType(env, pc.decl.Ty)
		r.prog.Consts = append(r.prog.Consts, &ConstDef{
			Def: pc.def, Name: pc.decl.Name, Ty: ty, Sp: pc.decl.Sp,
		})
	}
	for _, px := range r.pendingExterns {
		r.resolveExtern(px)
	}
}

// declareTypeParams assigns DefIds to declared type parameters and
// resolves their bounds to trait DefIds.
func (r *Resolver) declareTypeParams(mod *moduleCtx, decls []ast.TypeParamDecl) ([]TypeParamDef, map[string]*types.TypeParam) {
	var out []TypeParamDef
	scope := make(map[string]*types.TypeParam)
	for _, d := range decls {
		def := r.newDef(d.Name, DefTypeParam, mod.id, false, d.Sp)
		tp := TypeParamDef{Def: def, Name: d.Name}
		for _, bound := range d.Bounds {
			if traitDef, ok := r.lookupTrait(mod, bound); ok {
				tp.Bounds = append(tp.Bounds, traitDef)
			} else {
				r.errorf(d.Sp, "undefined trait '%s'", bound)
			}
		}
		out = append(out, tp)
		scope[d.Name] = &types.TypeParam{Def: def, Name: d.Name}
	}
	return out, scope
}

func (r *Resolver) lookupTrait(mod *moduleCtx, name string) (types.DefId, bool) {
	if e, ok := mod.scope[name]; ok && e.kind == DefTrait {
		return e.def, true
	}
	if e, ok := mod.injected[name]; ok && e.kind == DefTrait {
		return e.def, true
	}
	return 0, false
}

func (r *Resolver) resolveStructFields(ps pendingStruct) {
	sd := r.structs[ps.def]
	env := typeEnv{mod: ps.mod, params: typeParamScope(sd.TypeParams)}
	seen := make(map[string]bool)
	for _, f := range ps.decl.Fields {
		if seen[f.Name] {
			r.errorf(f.Sp, "duplicate field '%s'", f.Name)
			continue
		}
		seen[f.Name] = true
		fdef := r.newDef(f.Name, DefField, ps.mod.id, f.Public, f.Sp)
		sd.Fields = append(sd.Fields, FieldDef{
			Def: fdef, Name: f.Name, Public: f.Public,
			Ty: r.resolveType(env, f.Ty), Sp: f.Sp,
		})
	}
	r.prog.Structs = append(r.prog.Structs, sd)
}

func (r *Resolver) resolveEnumVariants(pe pendingEnum) {
	ed := r.enums[pe.def]
	env := typeEnv{mod: pe.mod, params: typeParamScope(ed.TypeParams)}
	for i, v := range pe.decl.Variants {
		for _, fty := range v.Fields {
			ed.Variants[i].Fields = append(ed.Variants[i].Fields, r.resolveType(env, fty))
		}
	}
	r.prog.Enums = append(r.prog.Enums, ed)
}

func typeParamScope(params []TypeParamDef) map[string]*types.TypeParam {
	scope := make(map[string]*types.TypeParam, len(params))
	for _, p := range params {
		scope[p.Name] = &types.TypeParam{Def: p.Def, Name: p.Name}
	}
	return scope
}

// resolveTraitMethods resolves method signatures with Self abstract:
// Self appears as the trait's synthetic type parameter.
func (r *Resolver) resolveTraitMethods(pt pendingTrait) {
	td := r.traits[pt.def]
	env := typeEnv{
		mod:    pt.mod,
		params: make(map[string]*types.TypeParam),
		selfTy: &types.TypeParam{Def: td.SelfParam, Name: "Self"},
	}
	for _, p := range td.TypeParams {
		env.params[p.Name] = &types.TypeParam{Def: p.Def, Name: p.Name}
	}
	for _, m := range pt.decl.Methods {
		md := TraitMethodDef{Name: m.Name, Self: selfMode(m.SelfParam), Sp: m.Sp}
		for _, param := range m.Params {
			md.Params = append(md.Params, r.resolveType(env, param.Ty))
		}
		md.Ret = types.Type(types.TUnit)
		if m.Ret != nil {
			md.Ret = r.resolveType(env, m.Ret)
		}
		td.Methods = append(td.Methods, md)
	}
	r.prog.Traits = append(r.prog.Traits, td)
}

func selfMode(k ast.SelfKind) SelfMode {
	switch k {
	case ast.SelfValue:
		return SelfValue
	case ast.SelfRef:
		return SelfByRef
	case ast.SelfRefMut:
		return SelfRefMut
	}
	return NoSelf
}

// resolveFuncSignature resolves a function or method head and queues
// its body. extraParams carries the impl block's type parameters;
// selfTy is the impl target for methods.
func (r *Resolver) resolveFuncSignature(mod *moduleCtx, decl *ast.FuncDecl, def types.DefId, extraParams map[string]*types.TypeParam, selfTy types.Type) *Func {
	typeParams, scope := r.declareTypeParams(mod, decl.TypeParams)
	for name, tp := range extraParams {
		if _, shadowed := scope[name]; !shadowed {
			scope[name] = tp
		}
	}
	env := typeEnv{mod: mod, params: scope, selfTy: selfTy}

	fn := &Func{
		Def: def, Name: decl.Name, Public: decl.Public,
		TypeParams: typeParams,
		Self:       selfMode(decl.SelfParam),
		SelfTy:     selfTy,
		Sp:         decl.Sp,
	}
	if fn.Self != NoSelf {
		fn.SelfDef = r.newDef("self", DefParam, mod.id, false, decl.Sp)
	}
	seen := make(map[string]bool)
	for _, p := range decl.Params {
		if seen[p.Name] {
			r.errorf(p.Sp, "duplicate parameter '%s'", p.Name)
		}
		seen[p.Name] = true
		pdef := r.newDef(p.Name, DefParam, mod.id, false, p.Sp)
		fn.Params = append(fn.Params, ParamDef{
			Def: pdef, Name: p.Name, Mut: p.Mut,
			Ty: r.resolveType(env, p.Ty), Sp: p.Sp,
		})
	}
	fn.Ret = types.Type(types.TUnit)
	if decl.Ret != nil {
		fn.Ret = r.resolveType(env, decl.Ret)
	}
	if decl.Body != nil {
		r.bodies = append(r.bodies, bodyJob{env: env, fn: fn, ast: decl})
	}
	if selfTy == nil {
		r.prog.Functions = append(r.prog.Functions, fn)
	}
	return fn
}

// resolveImpl resolves an impl block head, fills trait type-argument
// defaults, and resolves its methods.
func (r *Resolver) resolveImpl(pi pendingImpl) {
	implParams, scope := r.declareTypeParams(pi.mod, pi.decl.TypeParams)
	env := typeEnv{mod: pi.mod, params: scope}
	target := r.resolveType(env, pi.decl.Target)

	impl := &Impl{Target: target, Sp: pi.decl.Sp}
	if pi.decl.TraitName != "" {
		traitDef, ok := r.lookupTrait(pi.mod, pi.decl.TraitName)
		if !ok {
			r.errorf(pi.decl.Sp, "undefined trait '%s'", pi.decl.TraitName)
		} else {
			impl.Trait = traitDef
			impl.HasTrait = true
			impl.TraitArgs = r.traitArgsWithDefaults(pi, traitDef, target, env)
		}
	}

	for _, m := range pi.decl.Methods {
		mdef := r.newDef(m.Name, DefMethod, pi.mod.id, true, m.Sp)
		fn := r.resolveFuncSignature(pi.mod, m, mdef, scope, target)
		// Generic impls monomorphize per method: the impl's type
		// parameters count as the method's own.
		if len(implParams) > 0 {
			merged := make([]TypeParamDef, 0, len(implParams)+len(fn.TypeParams))
			merged = append(merged, implParams...)
			merged = append(merged, fn.TypeParams...)
			fn.TypeParams = merged
		}
		impl.Methods = append(impl.Methods, fn)
	}
	r.prog.Impls = append(r.prog.Impls, impl)
}

// traitArgsWithDefaults resolves explicit trait type arguments and
// fills missing positions from the trait's declared defaults; a
// missing position without a default is a diagnostic.
func (r *Resolver) traitArgsWithDefaults(pi pendingImpl, traitDef types.DefId, target types.Type, env typeEnv) []types.Type {
	td := r.traits[traitDef]
	defaults := r.traitDefaults[traitDef]
	var args []types.Type
	for i, tp := range td.TypeParams {
		if i < len(pi.decl.TraitArgs) {
			args = append(args, r.resolveType(env, pi.decl.TraitArgs[i]))
			continue
		}
		if i < len(defaults) && defaults[i] != nil {
			defEnv := env
			defEnv.selfTy = target
			args = append(args, r.resolveType(defEnv, defaults[i]))
			continue
		}
		r.errorf(pi.decl.Sp, "missing type argument '%s' for trait '%s'", tp.Name, td.Name)
		args = append(args, types.TErr)
	}
	if len(pi.decl.TraitArgs) > len(td.TypeParams) {
		r.errorf(pi.decl.Sp, "trait '%s' takes %d type arguments, %d given",
			td.Name, len(td.TypeParams), len(pi.decl.TraitArgs))
	}
	return args
}

func (r *Resolver) resolveExtern(px pendingExtern) {
	env := typeEnv{mod: px.mod}
	for _, f := range px.decl.Funcs {
		def := px.defs[f.Name]
		xf := &ExternFuncDef{Def: def, Name: f.Name, Sp: f.Sp}
		for _, p := range f.Params {
			pdef := r.newDef(p.Name, DefParam, px.mod.id, false, p.Sp)
			xf.Params = append(xf.Params, ParamDef{
				Def: pdef, Name: p.Name, Ty: r.resolveType(env, p.Ty), Sp: p.Sp,
			})
		}
		xf.Ret = types.Type(types.TUnit)
		if f.Ret != nil {
			xf.Ret = r.resolveType(env, f.Ret)
		}
		r.prog.ExternFuncs = append(r.prog.ExternFuncs, xf)
	}
	for _, s := range px.decl.Statics {
		def := px.defs[s.Name]
		r.prog.ExternStatics = append(r.prog.ExternStatics, &ExternStaticDef{
			Def: def, Name: s.Name, Ty: r.resolveType(env, s.Ty), Sp: s.Sp,
		})
	}
}

// ---------------------------------------------------------------------------
// Type expression resolution

// resolveType maps a syntactic type to a semantic one. Unresolvable
// names yield the Error sentinel and a diagnostic.
func (r *Resolver) resolveType(env typeEnv, te ast.TypeExpr) types.Type {
	switch t := te.(type) {
	case *ast.UnitType:
		return types.TUnit
	case *ast.RefType:
		return &types.Ref{Mut: t.Mut, Inner: r.resolveType(env, t.Inner)}
	case *ast.SliceType:
		return &types.Slice{Elem: r.resolveType(env, t.Elem)}
	case *ast.ArrayType:
		return &types.Array{Elem: r.resolveType(env, t.Elem), Size: t.Size}
	case *ast.TupleType:
		elems := make([]types.Type, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = r.resolveType(env, e)
		}
		return &types.Tuple{Elems: elems}
	case *ast.FnType:
		params := make([]types.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = r.resolveType(env, p)
		}
		ret := types.Type(types.TUnit)
		if t.Ret != nil {
			ret = r.resolveType(env, t.Ret)
		}
		return &types.Function{Params: params, Ret: ret}
	case *ast.NamedType:
		return r.resolveNamedType(env, t)
	}
	r.errorf(te.Span(), "unsupported type expression")
	return types.TErr
}

func (r *Resolver) resolveNamedType(env typeEnv, t *ast.NamedType) types.Type {
	var args []types.Type
	for _, a := range t.Args {
		args = append(args, r.resolveType(env, a))
	}

	if len(t.Path) == 1 {
		name := t.Path[0]
		if name == "Self" {
			if env.selfTy == nil {
				r.errorf(t.Sp, "'Self' outside of an impl or trait")
				return types.TErr
			}
			return env.selfTy
		}
		if env.params != nil {
			if tp, ok := env.params[name]; ok {
				if len(args) > 0 {
					r.errorf(t.Sp, "type parameter '%s' takes no type arguments", name)
				}
				return tp
			}
		}
		if prim, ok := types.PrimByName[name]; ok {
			if len(args) > 0 {
				r.errorf(t.Sp, "primitive type '%s' takes no type arguments", name)
			}
			return types.PrimOf(prim)
		}
		if entry, ok := env.mod.scope[name]; ok {
			return r.entryToType(entry, name, args, t.Sp)
		}
		if entry, ok := env.mod.injected[name]; ok {
			return r.entryToType(entry, name, args, t.Sp)
		}
		r.errorf(t.Sp, "undefined type '%s'", name)
		return types.TErr
	}

	// Dotted path: walk namespaces.
	ns, ok := env.mod.prefixes[t.Path[0]]
	if !ok {
		r.errorf(t.Sp, "undefined namespace '%s'", t.Path[0])
		return types.TErr
	}
	for _, seg := range t.Path[1 : len(t.Path)-1] {
		child, ok := ns.Child(seg)
		if !ok {
			r.errorf(t.Sp, "no namespace '%s' in '%s'", seg, ns.Name)
			return types.TErr
		}
		ns = child
	}
	last := t.Path[len(t.Path)-1]
	if id, ok := ns.Item(last); ok {
		entry := scopeEntry{def: id, kind: r.defs[id].Kind, public: true}
		return r.entryToType(entry, last, args, t.Sp)
	}
	if owner := r.nsOwner[ns]; owner != nil {
		if _, private := owner.scope[last]; private {
			r.errorf(t.Sp, "'%s' is private", last)
			return types.TErr
		}
	}
	r.errorf(t.Sp, "undefined type '%s' in namespace '%s'", last, strings.Join(t.Path[:len(t.Path)-1], "."))
	return types.TErr
}

// entryToType converts a scope entry naming a type into a Type.
func (r *Resolver) entryToType(entry scopeEntry, name string, args []types.Type, sp source.Span) types.Type {
	if a, ok := r.aliases[entry.def]; ok {
		if len(args) > 0 {
			r.errorf(sp, "type alias '%s' takes no type arguments", name)
		}
		return r.resolveAlias(entry.def, a, sp)
	}
	switch entry.kind {
	case DefStruct:
		sd := r.structs[entry.def]
		if sd != nil && len(args) != len(sd.TypeParams) {
			r.errorf(sp, "struct '%s' takes %d type arguments, %d given", name, len(sd.TypeParams), len(args))
		}
		return &types.Struct{Def: entry.def, Args: args}
	case DefEnum:
		ed := r.enums[entry.def]
		if ed != nil && len(args) != len(ed.TypeParams) {
			r.errorf(sp, "enum '%s' takes %d type arguments, %d given", name, len(ed.TypeParams), len(args))
		}
		return &types.Enum{Def: entry.def, Args: args}
	}
	r.errorf(sp, "'%s' is not a type", name)
	return types.TErr
}

func (r *Resolver) resolveAlias(def types.DefId, a *aliasEntry, sp source.Span) types.Type {
	if a.resolved != nil {
		return a.resolved
	}
	if a.resolving {
		r.errorf(sp, "cyclic type alias '%s'", r.defs[def].Name)
		return types.TErr
	}
	a.resolving = true
	t := r.resolveType(typeEnv{mod: a.module}, a.ty)
	a.resolving = false
	a.resolved = t
	return t
}
