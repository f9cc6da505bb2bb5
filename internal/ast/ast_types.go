package ast

import (
	"strconv"
	"strings"

	"github.com/wisplang/wisp/internal/source"
)

// NamedType is a (possibly dotted, possibly generic) type name:
// `i32`, `Point`, `Vec<i32>`, `io.Buffer`, `Self`.
type NamedType struct {
	Path []string
	Args []TypeExpr
	Sp   source.Span
}

func (n *NamedType) String() string {
	s := strings.Join(n.Path, ".")
	if len(n.Args) > 0 {
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = a.String()
		}
		s += "<" + strings.Join(parts, ", ") + ">"
	}
	return s
}
func (n *NamedType) Span() source.Span { return n.Sp }
func (n *NamedType) typeNode()         {}

// Name returns the final path segment.
func (n *NamedType) Name() string { return n.Path[len(n.Path)-1] }

// RefType is `&T` or `&mut T`
type RefType struct {
	Mut   bool
	Inner TypeExpr
	Sp    source.Span
}

func (r *RefType) String() string {
	if r.Mut {
		return "&mut " + r.Inner.String()
	}
	return "&" + r.Inner.String()
}
func (r *RefType) Span() source.Span { return r.Sp }
func (r *RefType) typeNode()         {}

// SliceType is `[T]`
type SliceType struct {
	Elem TypeExpr
	Sp   source.Span
}

func (s *SliceType) String() string    { return "[" + s.Elem.String() + "]" }
func (s *SliceType) Span() source.Span { return s.Sp }
func (s *SliceType) typeNode()         {}

// ArrayType is `[T; n]`
type ArrayType struct {
	Elem TypeExpr
	Size int
	Sp   source.Span
}

func (a *ArrayType) String() string {
	return "[" + a.Elem.String() + "; " + strconv.Itoa(a.Size) + "]"
}
func (a *ArrayType) Span() source.Span { return a.Sp }
func (a *ArrayType) typeNode()         {}

// TupleType is `(A, B)`
type TupleType struct {
	Elems []TypeExpr
	Sp    source.Span
}

func (t *TupleType) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (t *TupleType) Span() source.Span { return t.Sp }
func (t *TupleType) typeNode()         {}

// UnitType is `()`
type UnitType struct {
	Sp source.Span
}

func (u *UnitType) String() string    { return "()" }
func (u *UnitType) Span() source.Span { return u.Sp }
func (u *UnitType) typeNode()         {}

// FnType is `fn(A, B) -> R`
type FnType struct {
	Params []TypeExpr
	Ret    TypeExpr // nil means unit
	Sp     source.Span
}

func (f *FnType) String() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = p.String()
	}
	s := "fn(" + strings.Join(parts, ", ") + ")"
	if f.Ret != nil {
		s += " -> " + f.Ret.String()
	}
	return s
}
func (f *FnType) Span() source.Span { return f.Sp }
func (f *FnType) typeNode()         {}
