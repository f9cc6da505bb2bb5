package ast

import (
	"strings"
	"testing"

	"github.com/wisplang/wisp/internal/source"
)

func TestFuncDeclString(t *testing.T) {
	fn := &FuncDecl{
		Public: true,
		Name:   "sum",
		TypeParams: []TypeParamDecl{
			{Name: "T", Bounds: []string{"Add"}},
		},
		Params: []Param{
			{Name: "a", Ty: &NamedType{Path: []string{"T"}}},
			{Name: "b", Ty: &NamedType{Path: []string{"T"}}},
		},
		Ret: &NamedType{Path: []string{"T"}},
	}
	got := fn.String()
	want := "pub fn sum<T: Add>(a: T, b: T) -> T"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMethodWithSelf(t *testing.T) {
	fn := &FuncDecl{
		Name:      "bump",
		SelfParam: SelfRefMut,
		Params:    []Param{{Name: "by", Ty: &NamedType{Path: []string{"i32"}}}},
	}
	if got := fn.String(); got != "fn bump(&mut self, by: i32)" {
		t.Errorf("got %q", got)
	}
}

func TestTypeExprStrings(t *testing.T) {
	tests := []struct {
		te   TypeExpr
		want string
	}{
		{&RefType{Mut: true, Inner: &NamedType{Path: []string{"Point"}}}, "&mut Point"},
		{&SliceType{Elem: &NamedType{Path: []string{"u8"}}}, "[u8]"},
		{&ArrayType{Elem: &NamedType{Path: []string{"f32"}}, Size: 4}, "[f32; 4]"},
		{&TupleType{Elems: []TypeExpr{
			&NamedType{Path: []string{"i32"}},
			&NamedType{Path: []string{"bool"}},
		}}, "(i32, bool)"},
		{&FnType{
			Params: []TypeExpr{&NamedType{Path: []string{"i32"}}},
			Ret:    &NamedType{Path: []string{"bool"}},
		}, "fn(i32) -> bool"},
		{&NamedType{Path: []string{"io", "Buffer"}}, "io.Buffer"},
		{&NamedType{Path: []string{"Vec"}, Args: []TypeExpr{&NamedType{Path: []string{"i32"}}}}, "Vec<i32>"},
		{&UnitType{}, "()"},
	}
	for _, tt := range tests {
		if got := tt.te.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestStringLitEscapes(t *testing.T) {
	lit := &StringLit{Parts: []StringPart{
		{Lit: "line\n\"quoted\" "},
		{Expr: &Ident{Name: "x"}},
	}}
	got := lit.String()
	if !strings.Contains(got, `\n`) || !strings.Contains(got, `\"`) {
		t.Errorf("escapes not rendered: %q", got)
	}
	if !strings.Contains(got, "{x}") {
		t.Errorf("interpolation not rendered: %q", got)
	}
}

func TestImportDeclString(t *testing.T) {
	imp := &ImportDecl{
		Public: true,
		Path:   []string{"std", "io"},
		Items:  []ImportItem{{Name: "print"}, {Name: "println", Alias: "pln"}},
	}
	if got := imp.String(); got != "pub import std.io.{print, println as pln}" {
		t.Errorf("got %q", got)
	}
}

func TestSpanMerge(t *testing.T) {
	a := source.Span{Start: 5, End: 10}
	b := source.Span{Start: 8, End: 20}
	m := a.Merge(b)
	if m.Start != 5 || m.End != 20 {
		t.Errorf("got %v", m)
	}
}
