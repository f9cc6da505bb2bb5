// Package ast defines the syntax tree produced by the parser.
package ast

import (
	"strings"

	"github.com/wisplang/wisp/internal/source"
)

// Node is the base interface for all AST nodes
type Node interface {
	String() string
	Span() source.Span
}

// Item is a top-level declaration
type Item interface {
	Node
	itemNode()
}

// Stmt is a statement inside a block
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression
type Expr interface {
	Node
	exprNode()
}

// TypeExpr is a syntactic type annotation
type TypeExpr interface {
	Node
	typeNode()
}

// Pattern is a match pattern
type Pattern interface {
	Node
	patternNode()
}

// ---------------------------------------------------------------------------
// Files and imports

// SourceFile is a parsed file before import resolution
type SourceFile struct {
	Items   []Item
	Imports []*ImportDecl
	Sp      source.Span
}

func (f *SourceFile) String() string {
	parts := make([]string, 0, len(f.Imports)+len(f.Items))
	for _, imp := range f.Imports {
		parts = append(parts, imp.String())
	}
	for _, it := range f.Items {
		parts = append(parts, it.String())
	}
	return strings.Join(parts, "\n\n")
}
func (f *SourceFile) Span() source.Span { return f.Sp }

// ImportItem is one entry of a destructured import list
type ImportItem struct {
	Name  string
	Alias string // "" when not renamed
	Sp    source.Span
}

// ImportDecl represents `import std.io`, `import std.io as term`,
// `import std.io.{print, println as pln}` or `import {print} from std.io`.
type ImportDecl struct {
	Public bool // re-export: `pub import`
	Path   []string
	Alias  string       // "" when not renamed
	Items  []ImportItem // destructured imports; nil when whole-module
	Sp     source.Span
}

func (i *ImportDecl) String() string {
	var sb strings.Builder
	if i.Public {
		sb.WriteString("pub ")
	}
	sb.WriteString("import ")
	sb.WriteString(strings.Join(i.Path, "."))
	if i.Items != nil {
		sb.WriteString(".{")
		for n, it := range i.Items {
			if n > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(it.Name)
			if it.Alias != "" {
				sb.WriteString(" as " + it.Alias)
			}
		}
		sb.WriteString("}")
	}
	if i.Alias != "" {
		sb.WriteString(" as " + i.Alias)
	}
	return sb.String()
}
func (i *ImportDecl) Span() source.Span { return i.Sp }
func (i *ImportDecl) itemNode()         {}

// ImportedModule is one module pulled in by import resolution. Direct
// imports inject an accessible namespace prefix; transitive ones exist
// only so re-exports can be wired.
type ImportedModule struct {
	Decl         *ImportDecl
	CanonicalID  string
	Items        []Item
	OwnImports   []*ImportDecl
	IsTransitive bool
}

// SourceFileWithImports is the parser's final output: the root file's
// items plus every module reachable through its imports.
type SourceFileWithImports struct {
	LocalItems      []Item
	LocalImports    []*ImportDecl
	ImportedModules []*ImportedModule
	Sp              source.Span
}

func (f *SourceFileWithImports) Span() source.Span { return f.Sp }
func (f *SourceFileWithImports) String() string {
	parts := []string{}
	for _, imp := range f.LocalImports {
		parts = append(parts, imp.String())
	}
	for _, it := range f.LocalItems {
		parts = append(parts, it.String())
	}
	return strings.Join(parts, "\n\n")
}

// ---------------------------------------------------------------------------
// Declarations

// TypeParamDecl is a declared generic parameter with optional trait
// bounds and (on traits) an optional default.
type TypeParamDecl struct {
	Name    string
	Bounds  []string
	Default TypeExpr // traits only; nil otherwise
	Sp      source.Span
}

func (t *TypeParamDecl) String() string {
	s := t.Name
	if len(t.Bounds) > 0 {
		s += ": " + strings.Join(t.Bounds, " + ")
	}
	if t.Default != nil {
		s += " = " + t.Default.String()
	}
	return s
}

func typeParamList(ps []TypeParamDecl) string {
	if len(ps) == 0 {
		return ""
	}
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

// SelfKind says how a method takes its receiver
type SelfKind int

const (
	NoSelf SelfKind = iota
	SelfValue
	SelfRef
	SelfRefMut
)

func (k SelfKind) String() string {
	switch k {
	case SelfValue:
		return "self"
	case SelfRef:
		return "&self"
	case SelfRefMut:
		return "&mut self"
	}
	return ""
}

// Param is a function parameter
type Param struct {
	Name string
	Mut  bool
	Ty   TypeExpr
	Sp   source.Span
}

func (p Param) String() string {
	s := ""
	if p.Mut {
		s = "mut "
	}
	return s + p.Name + ": " + p.Ty.String()
}

// FuncDecl is a function or method declaration
type FuncDecl struct {
	Public     bool
	Name       string
	TypeParams []TypeParamDecl
	SelfParam  SelfKind
	Params     []Param
	Ret        TypeExpr // nil means unit
	Body       *BlockExpr
	Sp         source.Span
}

func (f *FuncDecl) String() string {
	var sb strings.Builder
	if f.Public {
		sb.WriteString("pub ")
	}
	sb.WriteString("fn ")
	sb.WriteString(f.Name)
	sb.WriteString(typeParamList(f.TypeParams))
	sb.WriteString("(")
	first := true
	if f.SelfParam != NoSelf {
		sb.WriteString(f.SelfParam.String())
		first = false
	}
	for _, p := range f.Params {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(p.String())
	}
	sb.WriteString(")")
	if f.Ret != nil {
		sb.WriteString(" -> " + f.Ret.String())
	}
	if f.Body != nil {
		sb.WriteString(" " + f.Body.String())
	}
	return sb.String()
}
func (f *FuncDecl) Span() source.Span { return f.Sp }
func (f *FuncDecl) itemNode()         {}

// FieldDef is one struct field
type FieldDef struct {
	Public bool
	Name   string
	Ty     TypeExpr
	Sp     source.Span
}

// StructDecl is a struct declaration
type StructDecl struct {
	Public     bool
	Name       string
	TypeParams []TypeParamDecl
	Fields     []FieldDef
	Sp         source.Span
}

func (s *StructDecl) String() string {
	var sb strings.Builder
	if s.Public {
		sb.WriteString("pub ")
	}
	sb.WriteString("struct " + s.Name + typeParamList(s.TypeParams) + " {\n")
	for _, f := range s.Fields {
		sb.WriteString("    ")
		if f.Public {
			sb.WriteString("pub ")
		}
		sb.WriteString(f.Name + ": " + f.Ty.String() + ",\n")
	}
	sb.WriteString("}")
	return sb.String()
}
func (s *StructDecl) Span() source.Span { return s.Sp }
func (s *StructDecl) itemNode()         {}

// VariantDef is one enum variant, with zero or more payload types
type VariantDef struct {
	Name   string
	Fields []TypeExpr
	Sp     source.Span
}

// EnumDecl is an enum declaration
type EnumDecl struct {
	Public     bool
	Name       string
	TypeParams []TypeParamDecl
	Variants   []VariantDef
	Sp         source.Span
}

func (e *EnumDecl) String() string {
	var sb strings.Builder
	if e.Public {
		sb.WriteString("pub ")
	}
	sb.WriteString("enum " + e.Name + typeParamList(e.TypeParams) + " {\n")
	for _, v := range e.Variants {
		sb.WriteString("    " + v.Name)
		if len(v.Fields) > 0 {
			parts := make([]string, len(v.Fields))
			for i, f := range v.Fields {
				parts[i] = f.String()
			}
			sb.WriteString("(" + strings.Join(parts, ", ") + ")")
		}
		sb.WriteString(",\n")
	}
	sb.WriteString("}")
	return sb.String()
}
func (e *EnumDecl) Span() source.Span { return e.Sp }
func (e *EnumDecl) itemNode()         {}

// TraitMethod is a method signature inside a trait declaration
type TraitMethod struct {
	Name      string
	SelfParam SelfKind
	Params    []Param
	Ret       TypeExpr
	Sp        source.Span
}

func (m TraitMethod) String() string {
	var sb strings.Builder
	sb.WriteString("fn " + m.Name + "(")
	first := true
	if m.SelfParam != NoSelf {
		sb.WriteString(m.SelfParam.String())
		first = false
	}
	for _, p := range m.Params {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(p.String())
	}
	sb.WriteString(")")
	if m.Ret != nil {
		sb.WriteString(" -> " + m.Ret.String())
	}
	return sb.String()
}

// TraitDecl is a trait declaration. Type parameters may carry defaults
// (`trait Add<Rhs = Self>`).
type TraitDecl struct {
	Public     bool
	Name       string
	TypeParams []TypeParamDecl
	Methods    []TraitMethod
	Sp         source.Span
}

func (t *TraitDecl) String() string {
	var sb strings.Builder
	if t.Public {
		sb.WriteString("pub ")
	}
	sb.WriteString("trait " + t.Name + typeParamList(t.TypeParams) + " {\n")
	for _, m := range t.Methods {
		sb.WriteString("    " + m.String() + ";\n")
	}
	sb.WriteString("}")
	return sb.String()
}
func (t *TraitDecl) Span() source.Span { return t.Sp }
func (t *TraitDecl) itemNode()         {}

// ImplBlock is `impl Target { ... }` or `impl Trait for Target { ... }`
type ImplBlock struct {
	TypeParams []TypeParamDecl
	TraitName  string     // "" for inherent impls
	TraitArgs  []TypeExpr // explicit trait type arguments
	Target     TypeExpr
	Methods    []*FuncDecl
	Sp         source.Span
}

func (i *ImplBlock) String() string {
	var sb strings.Builder
	sb.WriteString("impl" + typeParamList(i.TypeParams) + " ")
	if i.TraitName != "" {
		sb.WriteString(i.TraitName)
		if len(i.TraitArgs) > 0 {
			parts := make([]string, len(i.TraitArgs))
			for n, a := range i.TraitArgs {
				parts[n] = a.String()
			}
			sb.WriteString("<" + strings.Join(parts, ", ") + ">")
		}
		sb.WriteString(" for ")
	}
	sb.WriteString(i.Target.String() + " {\n")
	for _, m := range i.Methods {
		for _, line := range strings.Split(m.String(), "\n") {
			sb.WriteString("    " + line + "\n")
		}
	}
	sb.WriteString("}")
	return sb.String()
}
func (i *ImplBlock) Span() source.Span { return i.Sp }
func (i *ImplBlock) itemNode()         {}

// ConstDecl is a top-level constant
type ConstDecl struct {
	Public bool
	Name   string
	Ty     TypeExpr
	Value  Expr
	Sp     source.Span
}

func (c *ConstDecl) String() string {
	s := ""
	if c.Public {
		s = "pub "
	}
	return s + "const " + c.Name + ": " + c.Ty.String() + " = " + c.Value.String() + ";"
}
func (c *ConstDecl) Span() source.Span { return c.Sp }
func (c *ConstDecl) itemNode()         {}

// TypeAliasDecl is `type Name = T;`
type TypeAliasDecl struct {
	Public bool
	Name   string
	Ty     TypeExpr
	Sp     source.Span
}

func (t *TypeAliasDecl) String() string {
	s := ""
	if t.Public {
		s = "pub "
	}
	return s + "type " + t.Name + " = " + t.Ty.String() + ";"
}
func (t *TypeAliasDecl) Span() source.Span { return t.Sp }
func (t *TypeAliasDecl) itemNode()         {}

// ExternFunc is a foreign function signature
type ExternFunc struct {
	Name   string
	Params []Param
	Ret    TypeExpr
	Sp     source.Span
}

// ExternStatic is a foreign global
type ExternStatic struct {
	Name string
	Ty   TypeExpr
	Sp   source.Span
}

// ExternBlock groups foreign declarations
type ExternBlock struct {
	Funcs   []ExternFunc
	Statics []ExternStatic
	Sp      source.Span
}

func (e *ExternBlock) String() string {
	var sb strings.Builder
	sb.WriteString("extern {\n")
	for _, f := range e.Funcs {
		sb.WriteString("    fn " + f.Name + "(")
		for i, p := range f.Params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.String())
		}
		sb.WriteString(")")
		if f.Ret != nil {
			sb.WriteString(" -> " + f.Ret.String())
		}
		sb.WriteString(";\n")
	}
	for _, s := range e.Statics {
		sb.WriteString("    static " + s.Name + ": " + s.Ty.String() + ";\n")
	}
	sb.WriteString("}")
	return sb.String()
}
func (e *ExternBlock) Span() source.Span { return e.Sp }
func (e *ExternBlock) itemNode()         {}
