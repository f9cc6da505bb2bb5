package parser

import (
	"testing"

	"github.com/wisplang/wisp/internal/ast"
	"github.com/wisplang/wisp/internal/diag"
)

func parseFile(t *testing.T, input string) *ast.SourceFile {
	t.Helper()
	var bag diag.Bag
	p := New(input, &bag)
	file := p.ParseFile()
	if bag.HasErrors() {
		t.Fatalf("parse errors: %v", bag.Diagnostics())
	}
	return file
}

func TestFuncDecl(t *testing.T) {
	file := parseFile(t, `
pub fn add(a: i32, b: i32) -> i32 {
    a + b
}`)
	if len(file.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(file.Items))
	}
	fn, ok := file.Items[0].(*ast.FuncDecl)
	if !ok {
		t.Fatalf("expected *ast.FuncDecl, got %T", file.Items[0])
	}
	if !fn.Public || fn.Name != "add" || len(fn.Params) != 2 {
		t.Errorf("bad decl: %s", fn)
	}
	if fn.Ret.String() != "i32" {
		t.Errorf("bad return type: %s", fn.Ret)
	}
	if len(fn.Body.Stmts) != 1 {
		t.Fatalf("expected 1 body stmt, got %d", len(fn.Body.Stmts))
	}
	tail, ok := fn.Body.Stmts[0].(*ast.ExprStmt)
	if !ok || tail.Semi {
		t.Errorf("expected tail expression, got %v", fn.Body.Stmts[0])
	}
}

func TestGenericFunc(t *testing.T) {
	file := parseFile(t, `fn sum<T: Add>(a: T, b: T) -> T { a + b }`)
	fn := file.Items[0].(*ast.FuncDecl)
	if len(fn.TypeParams) != 1 {
		t.Fatalf("expected 1 type param, got %d", len(fn.TypeParams))
	}
	tp := fn.TypeParams[0]
	if tp.Name != "T" || len(tp.Bounds) != 1 || tp.Bounds[0] != "Add" {
		t.Errorf("bad type param: %+v", tp)
	}
}

func TestStructAndEnum(t *testing.T) {
	file := parseFile(t, `
struct Point {
    pub x: i32,
    y: i32,
}

enum Shape {
    Circle(f64),
    Rect(f64, f64),
    Empty,
}`)
	s := file.Items[0].(*ast.StructDecl)
	if len(s.Fields) != 2 || !s.Fields[0].Public || s.Fields[1].Public {
		t.Errorf("bad struct: %s", s)
	}
	e := file.Items[1].(*ast.EnumDecl)
	if len(e.Variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(e.Variants))
	}
	if len(e.Variants[1].Fields) != 2 || len(e.Variants[2].Fields) != 0 {
		t.Errorf("bad variants: %s", e)
	}
}

func TestTraitWithDefault(t *testing.T) {
	file := parseFile(t, `
trait Add<Rhs = Self> {
    fn add(self, other: Rhs) -> Self;
}`)
	tr := file.Items[0].(*ast.TraitDecl)
	if len(tr.TypeParams) != 1 || tr.TypeParams[0].Default == nil {
		t.Fatalf("expected defaulted type param: %s", tr)
	}
	if tr.TypeParams[0].Default.String() != "Self" {
		t.Errorf("bad default: %s", tr.TypeParams[0].Default)
	}
	if len(tr.Methods) != 1 || tr.Methods[0].SelfParam != ast.SelfValue {
		t.Errorf("bad method: %s", tr)
	}
}

func TestImplBlocks(t *testing.T) {
	file := parseFile(t, `
impl Add for Point {
    fn add(self, o: Point) -> Point { Point{x: self.x + o.x, y: self.y + o.y} }
}

impl Point {
    fn norm(&self) -> i32 { self.x }
}`)
	tr := file.Items[0].(*ast.ImplBlock)
	if tr.TraitName != "Add" || tr.Target.String() != "Point" {
		t.Errorf("bad trait impl: %s", tr)
	}
	inh := file.Items[1].(*ast.ImplBlock)
	if inh.TraitName != "" || inh.Methods[0].SelfParam != ast.SelfRef {
		t.Errorf("bad inherent impl: %s", inh)
	}
}

func TestImportForms(t *testing.T) {
	tests := []struct {
		input string
		check func(t *testing.T, imp *ast.ImportDecl)
	}{
		{"import std.io", func(t *testing.T, imp *ast.ImportDecl) {
			if len(imp.Path) != 2 || imp.Alias != "" || imp.Items != nil {
				t.Errorf("bad: %s", imp)
			}
		}},
		{"import std.io as term", func(t *testing.T, imp *ast.ImportDecl) {
			if imp.Alias != "term" {
				t.Errorf("bad alias: %s", imp)
			}
		}},
		{"import std.io.{print, println as pln}", func(t *testing.T, imp *ast.ImportDecl) {
			if len(imp.Items) != 2 || imp.Items[1].Alias != "pln" {
				t.Errorf("bad items: %s", imp)
			}
			if len(imp.Path) != 2 {
				t.Errorf("bad path: %v", imp.Path)
			}
		}},
		{"import {print} from std.io", func(t *testing.T, imp *ast.ImportDecl) {
			if len(imp.Items) != 1 || len(imp.Path) != 2 {
				t.Errorf("bad from-import: %s", imp)
			}
		}},
		{"import @.utils", func(t *testing.T, imp *ast.ImportDecl) {
			if imp.Path[0] != "@" || imp.Path[1] != "utils" {
				t.Errorf("bad project import: %v", imp.Path)
			}
		}},
		{"pub import std.io as io", func(t *testing.T, imp *ast.ImportDecl) {
			if !imp.Public {
				t.Errorf("expected re-export: %s", imp)
			}
		}},
	}
	for _, tt := range tests {
		file := parseFile(t, tt.input)
		if len(file.Imports) != 1 {
			t.Fatalf("%q: expected 1 import", tt.input)
		}
		tt.check(t, file.Imports[0])
	}
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 * 2 + 3", "((1 * 2) + 3)"},
		{"a || b && c", "(a || (b && c))"},
		{"a == b < c", "(a == (b < c))"},
		{"-a * b", "(-a * b)"},
		{"!a == b", "(!a == b)"},
		{"a + b == c + d", "((a + b) == (c + d))"},
	}
	for _, tt := range tests {
		file := parseFile(t, "fn f() { "+tt.input+" }")
		fn := file.Items[0].(*ast.FuncDecl)
		got := fn.Body.Stmts[0].(*ast.ExprStmt).E.String()
		if got != tt.expected {
			t.Errorf("%q: expected %s, got %s", tt.input, tt.expected, got)
		}
	}
}

func TestStructLiteralVsBlock(t *testing.T) {
	file := parseFile(t, `
fn f(x: i32) -> i32 {
    if x < limit {
        let p = Point{x: 1, y: 2};
        p.x
    } else {
        0
    }
}`)
	fn := file.Items[0].(*ast.FuncDecl)
	ifExpr := fn.Body.Stmts[0].(*ast.ExprStmt).E.(*ast.IfExpr)
	cond, ok := ifExpr.Cond.(*ast.BinaryExpr)
	if !ok || cond.Op != "<" {
		t.Fatalf("condition parsed wrong: %s", ifExpr.Cond)
	}
	let := ifExpr.Then.Stmts[0].(*ast.LetStmt)
	if _, ok := let.Value.(*ast.StructLit); !ok {
		t.Errorf("expected struct literal, got %T", let.Value)
	}
}

func TestNamedArguments(t *testing.T) {
	file := parseFile(t, `fn f() { mk(width: 3, height: 4); }`)
	fn := file.Items[0].(*ast.FuncDecl)
	call := fn.Body.Stmts[0].(*ast.ExprStmt).E.(*ast.CallExpr)
	if len(call.Args) != 2 || call.Args[0].Name != "width" || call.Args[1].Name != "height" {
		t.Errorf("bad named args: %s", call)
	}
}

func TestLambda(t *testing.T) {
	file := parseFile(t, `fn f() { let g = (x, y: i32) -> x; }`)
	fn := file.Items[0].(*ast.FuncDecl)
	let := fn.Body.Stmts[0].(*ast.LetStmt)
	lam, ok := let.Value.(*ast.LambdaExpr)
	if !ok {
		t.Fatalf("expected lambda, got %T", let.Value)
	}
	if len(lam.Params) != 2 || lam.Params[0].Ty != nil || lam.Params[1].Ty == nil {
		t.Errorf("bad params: %s", lam)
	}
}

func TestGroupingNotLambda(t *testing.T) {
	file := parseFile(t, `fn f() { let x = (1 + 2) * 3; }`)
	fn := file.Items[0].(*ast.FuncDecl)
	let := fn.Body.Stmts[0].(*ast.LetStmt)
	if _, ok := let.Value.(*ast.BinaryExpr); !ok {
		t.Errorf("expected binary expr, got %T", let.Value)
	}
}

func TestMatchExpr(t *testing.T) {
	file := parseFile(t, `
fn area(s: Shape) -> f64 {
    match s {
        Circle(r) -> r * r,
        Rect(w, h) -> w * h,
        _ -> 0.0,
    }
}`)
	fn := file.Items[0].(*ast.FuncDecl)
	m := fn.Body.Stmts[0].(*ast.ExprStmt).E.(*ast.MatchExpr)
	if len(m.Arms) != 3 {
		t.Fatalf("expected 3 arms, got %d", len(m.Arms))
	}
	v := m.Arms[0].Pat.(*ast.VariantPat)
	if v.Path[0] != "Circle" || len(v.Elems) != 1 {
		t.Errorf("bad variant pattern: %s", v)
	}
	if _, ok := m.Arms[2].Pat.(*ast.WildcardPat); !ok {
		t.Errorf("expected wildcard, got %T", m.Arms[2].Pat)
	}
}

func TestForAndWhile(t *testing.T) {
	file := parseFile(t, `
fn f() {
    for i in 0..10 {
        total += i;
    }
    while total > 0 {
        total -= 1;
    }
}`)
	fn := file.Items[0].(*ast.FuncDecl)
	forStmt := fn.Body.Stmts[0].(*ast.ForStmt)
	if forStmt.Var != "i" {
		t.Errorf("bad loop var: %s", forStmt.Var)
	}
	whileStmt := fn.Body.Stmts[1].(*ast.WhileStmt)
	assign := whileStmt.Body.Stmts[0].(*ast.ExprStmt).E.(*ast.AssignExpr)
	if assign.Op != "-=" {
		t.Errorf("bad compound assign: %s", assign)
	}
}

func TestStringInterpolation(t *testing.T) {
	file := parseFile(t, `fn f() { let s = "x is {x} and {y + 1}!"; }`)
	fn := file.Items[0].(*ast.FuncDecl)
	let := fn.Body.Stmts[0].(*ast.LetStmt)
	lit := let.Value.(*ast.StringLit)
	// "x is ", {x}, " and ", {y + 1}, "!"
	if len(lit.Parts) != 5 {
		t.Fatalf("expected 5 parts, got %d: %s", len(lit.Parts), lit)
	}
	if lit.Parts[0].Lit != "x is " || lit.Parts[2].Lit != " and " || lit.Parts[4].Lit != "!" {
		t.Errorf("bad literal parts: %q %q %q", lit.Parts[0].Lit, lit.Parts[2].Lit, lit.Parts[4].Lit)
	}
	if lit.Parts[1].Expr == nil || lit.Parts[3].Expr == nil {
		t.Fatal("expected expression parts")
	}
	if lit.Parts[3].Expr.String() != "(y + 1)" {
		t.Errorf("bad interpolated expr: %s", lit.Parts[3].Expr)
	}
}

func TestEscapedBraces(t *testing.T) {
	file := parseFile(t, `fn f() { let s = "literal {{brace}}"; }`)
	fn := file.Items[0].(*ast.FuncDecl)
	lit := fn.Body.Stmts[0].(*ast.LetStmt).Value.(*ast.StringLit)
	if !lit.IsPlain() {
		t.Fatalf("expected plain string: %s", lit)
	}
	if lit.PlainText() != "literal {brace}" {
		t.Errorf("bad text: %q", lit.PlainText())
	}
}

func TestDeferAndExtern(t *testing.T) {
	file := parseFile(t, `
extern {
    fn puts(s: str) -> i32;
    static ERRNO: i32;
}

fn f() {
    defer cleanup();
}`)
	ext := file.Items[0].(*ast.ExternBlock)
	if len(ext.Funcs) != 1 || len(ext.Statics) != 1 {
		t.Fatalf("bad extern block: %s", ext)
	}
	fn := file.Items[1].(*ast.FuncDecl)
	if _, ok := fn.Body.Stmts[0].(*ast.DeferStmt); !ok {
		t.Errorf("expected defer, got %T", fn.Body.Stmts[0])
	}
}

func TestCastChain(t *testing.T) {
	file := parseFile(t, `fn f() { let x = y as i64 + 1; }`)
	fn := file.Items[0].(*ast.FuncDecl)
	let := fn.Body.Stmts[0].(*ast.LetStmt)
	bin, ok := let.Value.(*ast.BinaryExpr)
	if !ok || bin.Op != "+" {
		t.Fatalf("expected cast to bind tighter than +: %s", let.Value)
	}
	if _, ok := bin.Left.(*ast.CastExpr); !ok {
		t.Errorf("expected cast on left, got %T", bin.Left)
	}
}

func TestErrorRecovery(t *testing.T) {
	var bag diag.Bag
	p := New(`
fn broken( {
fn ok() -> i32 { 1 }
`, &bag)
	file := p.ParseFile()
	if !bag.HasErrors() {
		t.Fatal("expected parse errors")
	}
	// The second function must survive the first one's failure.
	found := false
	for _, it := range file.Items {
		if fn, ok := it.(*ast.FuncDecl); ok && fn.Name == "ok" {
			found = true
		}
	}
	if !found {
		t.Errorf("recovery lost the following item; items=%v", file.Items)
	}
}
