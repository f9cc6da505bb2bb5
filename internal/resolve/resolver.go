package resolve

import (
	"strings"

	"github.com/wisplang/wisp/internal/ast"
	"github.com/wisplang/wisp/internal/diag"
	"github.com/wisplang/wisp/internal/source"
	"github.com/wisplang/wisp/internal/types"
)

// scopeEntry is one name in a module scope.
type scopeEntry struct {
	def    types.DefId
	kind   DefKind
	public bool
}

// variantEntry is one globally visible enum variant.
type variantEntry struct {
	enum    types.DefId
	variant types.DefId
	index   int
}

// aliasEntry is an unresolved type alias; resolved lazily with a
// cycle guard.
type aliasEntry struct {
	module    *moduleCtx
	ty        ast.TypeExpr
	resolving bool
	resolved  types.Type
}

// moduleCtx is the per-source-file resolution state.
type moduleCtx struct {
	id        types.ModuleId
	canonical string
	items     []ast.Item
	imports   []*ast.ImportDecl

	scope    map[string]scopeEntry // all items, private included
	injected map[string]scopeEntry // destructured imports
	prefixes map[string]*Namespace // accessible namespace names
	ns       *Namespace            // this module's public surface
}

// Resolver assigns DefIds and resolves every name in the program.
type Resolver struct {
	bag *diag.Bag
	ctx *types.Context

	nextDef types.DefId
	defs    map[types.DefId]*DefInfo

	modules []*moduleCtx
	byPath  map[string]*moduleCtx // import-path key -> module
	byCanon map[string]*moduleCtx

	variants map[string]variantEntry
	aliases  map[types.DefId]*aliasEntry
	aliasIds map[*moduleCtx]map[string]types.DefId

	structs map[types.DefId]*StructDef
	enums   map[types.DefId]*EnumDef
	traits  map[types.DefId]*TraitDef

	nsOwner       map[*Namespace]*moduleCtx
	traitDefaults map[types.DefId][]ast.TypeExpr
	bodies        []bodyJob

	// declared items needing signature/body resolution
	pendingStructs []pendingStruct
	pendingEnums   []pendingEnum
	pendingTraits  []pendingTrait
	pendingFuncs   []pendingFunc
	pendingImpls   []pendingImpl
	pendingConsts  []pendingConst
	pendingExterns []pendingExtern

	// dedup: items reached through more than one import path are
	// declared once, keyed by (module, span)
	declared map[declKey]bool

	prog *Program
}

type pendingStruct struct {
	mod  *moduleCtx
	decl *ast.StructDecl
	def  types.DefId
}

type pendingEnum struct {
	mod  *moduleCtx
	decl *ast.EnumDecl
	def  types.DefId
}

type pendingTrait struct {
	mod  *moduleCtx
	decl *ast.TraitDecl
	def  types.DefId
}

type pendingExtern struct {
	mod  *moduleCtx
	decl *ast.ExternBlock
	defs map[string]types.DefId
}

type pendingFunc struct {
	mod  *moduleCtx
	decl *ast.FuncDecl
	def  types.DefId
}

type pendingImpl struct {
	mod  *moduleCtx
	decl *ast.ImplBlock
}

type pendingConst struct {
	mod  *moduleCtx
	decl *ast.ConstDecl
	def  types.DefId
}

// declKey identifies one item occurrence; spans alone can collide
// across files.
type declKey struct {
	canon string
	sp    source.Span
}

// New creates a resolver writing names and definition spans into the
// shared type context.
func New(ctx *types.Context, bag *diag.Bag) *Resolver {
	return &Resolver{
		bag:      bag,
		ctx:      ctx,
		defs:     make(map[types.DefId]*DefInfo),
		byPath:   make(map[string]*moduleCtx),
		byCanon:  make(map[string]*moduleCtx),
		variants: make(map[string]variantEntry),
		aliases:  make(map[types.DefId]*aliasEntry),
		aliasIds: make(map[*moduleCtx]map[string]types.DefId),
		structs:  make(map[types.DefId]*StructDef),
		enums:    make(map[types.DefId]*EnumDef),
		traits:   make(map[types.DefId]*TraitDef),
		declared:      make(map[declKey]bool),
		nsOwner:       make(map[*Namespace]*moduleCtx),
		traitDefaults: make(map[types.DefId][]ast.TypeExpr),
		prog: &Program{
			Defs:       nil,
			Namespaces: make(map[string]*Namespace),
		},
	}
}

func (r *Resolver) errorf(sp source.Span, format string, args ...interface{}) {
	r.bag.Addf(diag.ResolveError, sp, format, args...)
}

func (r *Resolver) newDef(name string, kind DefKind, mod types.ModuleId, public bool, sp source.Span) types.DefId {
	id := r.nextDef
	r.nextDef++
	r.defs[id] = &DefInfo{Id: id, Name: name, Kind: kind, Module: mod, Public: public, Sp: sp}
	r.ctx.TypeNames[id] = name
	r.ctx.SpanDefs[sp] = id
	return id
}

// Resolve runs both passes over the root file and its import closure.
func (r *Resolver) Resolve(file *ast.SourceFileWithImports) *Program {
	// Module 0 is the root file; imported modules follow in import
	// order.
	root := &moduleCtx{
		id:       0,
		items:    file.LocalItems,
		imports:  file.LocalImports,
		scope:    make(map[string]scopeEntry),
		injected: make(map[string]scopeEntry),
		prefixes: make(map[string]*Namespace),
		ns:       NewNamespace(""),
	}
	r.modules = append(r.modules, root)
	r.nsOwner[root.ns] = root

	for _, im := range file.ImportedModules {
		mod := &moduleCtx{
			id:        types.ModuleId(len(r.modules)),
			canonical: im.CanonicalID,
			items:     im.Items,
			imports:   im.OwnImports,
			scope:     make(map[string]scopeEntry),
			injected:  make(map[string]scopeEntry),
			prefixes:  make(map[string]*Namespace),
			ns:        NewNamespace(importedName(im.Decl)),
		}
		r.modules = append(r.modules, mod)
		r.nsOwner[mod.ns] = mod
		r.byCanon[im.CanonicalID] = mod
		key := strings.Join(im.Decl.Path, ".")
		if _, ok := r.byPath[key]; !ok {
			r.byPath[key] = mod
		}
	}

	// Pass 1: declare all items into module scopes and namespaces.
	for _, mod := range r.modules {
		r.declareModule(mod)
	}
	for _, mod := range r.modules {
		r.buildNamespace(mod, make(map[*moduleCtx]bool))
	}
	// Wire import prefixes and destructured injections.
	r.wireImports(root, file.ImportedModules)
	for _, mod := range r.modules[1:] {
		r.wireOwnImports(mod)
	}

	// Pass 2: resolve signatures, then bodies.
	r.resolveSignatures()
	r.resolveBodies()

	r.prog.Defs = r.defs
	r.prog.Namespaces = root.prefixes
	return r.prog
}

// importedName is the accessible prefix an import introduces.
func importedName(decl *ast.ImportDecl) string {
	if decl.Alias != "" {
		return decl.Alias
	}
	return decl.Path[len(decl.Path)-1]
}

// declareModule performs the first pass for one module: every item
// gets a DefId and lands in the module scope (and, when public, the
// module namespace).
func (r *Resolver) declareModule(mod *moduleCtx) {
	for _, item := range mod.items {
		key := declKey{canon: mod.canonical, sp: item.Span()}
		if r.declared[key] {
			continue
		}
		r.declared[key] = true
		switch it := item.(type) {
		case *ast.StructDecl:
			def := r.newDef(it.Name, DefStruct, mod.id, it.Public, it.Sp)
			r.declareName(mod, it.Name, scopeEntry{def, DefStruct, it.Public}, it.Sp)
			r.structs[def] = &StructDef{Def: def, Name: it.Name, Sp: it.Sp}
			r.pendingStructs = append(r.pendingStructs, pendingStruct{mod, it, def})

		case *ast.EnumDecl:
			def := r.newDef(it.Name, DefEnum, mod.id, it.Public, it.Sp)
			r.declareName(mod, it.Name, scopeEntry{def, DefEnum, it.Public}, it.Sp)
			e := &EnumDef{Def: def, Name: it.Name, Sp: it.Sp}
			for i, v := range it.Variants {
				vdef := r.newDef(v.Name, DefVariant, mod.id, it.Public, v.Sp)
				e.Variants = append(e.Variants, VariantDef{Def: vdef, Name: v.Name, Sp: v.Sp})
				if _, taken := r.variants[v.Name]; !taken {
					r.variants[v.Name] = variantEntry{enum: def, variant: vdef, index: i}
				}
			}
			r.enums[def] = e
			r.pendingEnums = append(r.pendingEnums, pendingEnum{mod, it, def})

		case *ast.TraitDecl:
			def := r.newDef(it.Name, DefTrait, mod.id, it.Public, it.Sp)
			r.declareName(mod, it.Name, scopeEntry{def, DefTrait, it.Public}, it.Sp)
			r.traits[def] = &TraitDef{Def: def, Name: it.Name, Sp: it.Sp}
			r.pendingTraits = append(r.pendingTraits, pendingTrait{mod, it, def})

		case *ast.FuncDecl:
			def := r.newDef(it.Name, DefFunc, mod.id, it.Public, it.Sp)
			r.declareName(mod, it.Name, scopeEntry{def, DefFunc, it.Public}, it.Sp)
			r.pendingFuncs = append(r.pendingFuncs, pendingFunc{mod, it, def})

		case *ast.ConstDecl:
			def := r.newDef(it.Name, DefConst, mod.id, it.Public, it.Sp)
			r.declareName(mod, it.Name, scopeEntry{def, DefConst, it.Public}, it.Sp)
			r.pendingConsts = append(r.pendingConsts, pendingConst{mod, it, def})

		case *ast.TypeAliasDecl:
			ids, ok := r.aliasIds[mod]
			if !ok {
				ids = make(map[string]types.DefId)
				r.aliasIds[mod] = ids
			}
			def := r.newDef(it.Name, DefStruct, mod.id, it.Public, it.Sp)
			ids[it.Name] = def
			r.aliases[def] = &aliasEntry{module: mod, ty: it.Ty}
			r.declareName(mod, it.Name, scopeEntry{def, DefStruct, it.Public}, it.Sp)

		case *ast.ExternBlock:
			defs := make(map[string]types.DefId)
			for _, f := range it.Funcs {
				def := r.newDef(f.Name, DefExternFunc, mod.id, true, f.Sp)
				r.declareName(mod, f.Name, scopeEntry{def, DefExternFunc, true}, f.Sp)
				defs[f.Name] = def
			}
			for _, s := range it.Statics {
				def := r.newDef(s.Name, DefExternStatic, mod.id, true, s.Sp)
				r.declareName(mod, s.Name, scopeEntry{def, DefExternStatic, true}, s.Sp)
				defs[s.Name] = def
			}
			r.pendingExterns = append(r.pendingExterns, pendingExtern{mod, it, defs})

		case *ast.ImplBlock:
			r.pendingImpls = append(r.pendingImpls, pendingImpl{mod, it})
		}
	}
}

func (r *Resolver) declareName(mod *moduleCtx, name string, entry scopeEntry, sp source.Span) {
	if _, exists := mod.scope[name]; exists {
		r.errorf(sp, "duplicate definition of '%s'", name)
		return
	}
	mod.scope[name] = entry
	if entry.public {
		mod.ns.Items[name] = entry.def
	}
}

// buildNamespace attaches re-exported child namespaces: a
// `pub import` inside a module surfaces the imported module as a
// nested namespace.
func (r *Resolver) buildNamespace(mod *moduleCtx, visiting map[*moduleCtx]bool) {
	if visiting[mod] {
		return
	}
	visiting[mod] = true
	for _, imp := range mod.imports {
		if !imp.Public {
			continue
		}
		target, ok := r.byPath[strings.Join(imp.Path, ".")]
		if !ok {
			continue
		}
		r.buildNamespace(target, visiting)
		mod.ns.Children[importedName(imp)] = target.ns
	}
}

// wireImports makes directly imported modules accessible as prefixes
// in the root module and injects destructured items.
func (r *Resolver) wireImports(root *moduleCtx, imported []*ast.ImportedModule) {
	for _, im := range imported {
		if im.IsTransitive {
			continue
		}
		mod := r.byCanon[im.CanonicalID]
		if mod == nil {
			continue
		}
		if im.Decl.Items != nil {
			// Destructured import: items land in scope, no prefix.
			r.injectItems(root, mod, im.Decl)
			continue
		}
		root.prefixes[importedName(im.Decl)] = mod.ns
	}
}

// wireOwnImports gives a non-root module its own namespace prefixes
// so its body can resolve the names it imports.
func (r *Resolver) wireOwnImports(mod *moduleCtx) {
	for _, imp := range mod.imports {
		target, ok := r.byPath[strings.Join(imp.Path, ".")]
		if !ok {
			continue
		}
		if imp.Items != nil {
			r.injectItems(mod, target, imp)
			continue
		}
		mod.prefixes[importedName(imp)] = target.ns
	}
}

// injectItems handles destructured imports: the listed public items
// land directly in the importer's scope.
func (r *Resolver) injectItems(into *moduleCtx, from *moduleCtx, decl *ast.ImportDecl) {
	for _, item := range decl.Items {
		entry, ok := from.scope[item.Name]
		if !ok {
			r.errorf(item.Sp, "undefined item '%s' in %s", item.Name, strings.Join(decl.Path, "."))
			continue
		}
		if !entry.public {
			r.errorf(item.Sp, "'%s' is private", item.Name)
			continue
		}
		name := item.Name
		if item.Alias != "" {
			name = item.Alias
		}
		into.injected[name] = entry
	}
}
