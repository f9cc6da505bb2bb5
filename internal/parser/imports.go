package parser

import (
	"strings"

	"github.com/wisplang/wisp/internal/ast"
	"github.com/wisplang/wisp/internal/diag"
	"github.com/wisplang/wisp/internal/loader"
)

type cachedModule struct {
	items   []ast.Item
	imports []*ast.ImportDecl
}

// ImportResolver recursively parses imported modules. The visited
// set breaks cycles: re-reaching a module already seen in this walk
// reuses it instead of recursing, so a cyclic import degenerates to
// an empty continuation and the resolver later reports unresolved
// names where they arise.
type ImportResolver struct {
	reader loader.Reader
	roots  loader.Roots
	bag    *diag.Bag
	cache  map[string]*cachedModule
}

// NewImportResolver creates an ImportResolver over the given reader
// and import roots.
func NewImportResolver(reader loader.Reader, roots loader.Roots, bag *diag.Bag) *ImportResolver {
	return &ImportResolver{
		reader: reader,
		roots:  roots,
		bag:    bag,
		cache:  make(map[string]*cachedModule),
	}
}

// ParseWithImports parses root source code and resolves its imports
// transitively.
func (r *ImportResolver) ParseWithImports(code string) *ast.SourceFileWithImports {
	p := New(code, r.bag)
	file := p.ParseFile()

	out := &ast.SourceFileWithImports{
		LocalItems:   file.Items,
		LocalImports: file.Imports,
		Sp:           file.Sp,
	}
	seen := make(map[string]*ast.ImportedModule)
	for _, imp := range file.Imports {
		r.resolveImport(imp, out, seen, false)
	}
	return out
}

// resolveImport loads one import and appends it (and its transitive
// imports) to the output in deterministic order.
func (r *ImportResolver) resolveImport(imp *ast.ImportDecl, out *ast.SourceFileWithImports, seen map[string]*ast.ImportedModule, transitive bool) {
	canonical, err := r.roots.ResolveImport(imp.Path, r.reader)
	if err != nil {
		r.bag.Addf(diag.ParseError, imp.Sp, "cannot resolve import %s: %v", strings.Join(imp.Path, "."), err)
		return
	}

	if existing, ok := seen[canonical]; ok {
		// Reached through a second path. A direct import makes a
		// previously transitive module accessible.
		if !transitive && existing.IsTransitive {
			existing.IsTransitive = false
			existing.Decl = imp
		}
		return
	}

	mod := r.loadModule(imp, canonical)
	mod.IsTransitive = transitive
	seen[canonical] = mod
	out.ImportedModules = append(out.ImportedModules, mod)

	for _, sub := range mod.OwnImports {
		r.resolveImport(sub, out, seen, true)
	}
}

// loadModule parses the file behind a canonical path, consulting the
// cache.
func (r *ImportResolver) loadModule(imp *ast.ImportDecl, canonical string) *ast.ImportedModule {
	if cached, ok := r.cache[canonical]; ok {
		return &ast.ImportedModule{Decl: imp, CanonicalID: canonical, Items: cached.items, OwnImports: cached.imports}
	}

	data, err := r.reader.Read(canonical)
	if err != nil {
		r.bag.Addf(diag.ParseError, imp.Sp, "cannot read %s: %v", canonical, err)
		return &ast.ImportedModule{Decl: imp, CanonicalID: canonical}
	}

	sub := New(string(data), r.bag)
	file := sub.ParseFile()

	r.cache[canonical] = &cachedModule{items: file.Items, imports: file.Imports}
	return &ast.ImportedModule{Decl: imp, CanonicalID: canonical, Items: file.Items, OwnImports: file.Imports}
}
