package ast

import (
	"strings"

	"github.com/wisplang/wisp/internal/source"
)

// WildcardPat is `_`
type WildcardPat struct {
	Sp source.Span
}

func (w *WildcardPat) String() string    { return "_" }
func (w *WildcardPat) Span() source.Span { return w.Sp }
func (w *WildcardPat) patternNode()      {}

// BindingPat binds the matched value to a fresh name
type BindingPat struct {
	Name string
	Sp   source.Span
}

func (b *BindingPat) String() string    { return b.Name }
func (b *BindingPat) Span() source.Span { return b.Sp }
func (b *BindingPat) patternNode()      {}

// LiteralPat matches a literal value
type LiteralPat struct {
	Lit Expr // IntLit, FloatLit, BoolLit, CharLit or plain StringLit
	Sp  source.Span
}

func (l *LiteralPat) String() string    { return l.Lit.String() }
func (l *LiteralPat) Span() source.Span { return l.Sp }
func (l *LiteralPat) patternNode()      {}

// TuplePat destructures a tuple
type TuplePat struct {
	Elems []Pattern
	Sp    source.Span
}

func (t *TuplePat) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (t *TuplePat) Span() source.Span { return t.Sp }
func (t *TuplePat) patternNode()      {}

// VariantPat matches an enum variant, optionally destructuring its
// payload: `Some(x)`, `Shape.Circle(r)`, `None`.
type VariantPat struct {
	Path  []string
	Elems []Pattern
	Sp    source.Span
}

func (v *VariantPat) String() string {
	s := strings.Join(v.Path, ".")
	if len(v.Elems) > 0 {
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = e.String()
		}
		s += "(" + strings.Join(parts, ", ") + ")"
	}
	return s
}
func (v *VariantPat) Span() source.Span { return v.Sp }
func (v *VariantPat) patternNode()      {}
