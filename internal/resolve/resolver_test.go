package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisplang/wisp/internal/diag"
	"github.com/wisplang/wisp/internal/loader"
	"github.com/wisplang/wisp/internal/parser"
	"github.com/wisplang/wisp/internal/types"
)

func resolveSource(t *testing.T, code string, files map[string]string) (*Program, *types.Context, *diag.Bag) {
	t.Helper()
	var bag diag.Bag
	reader, err := loader.NewMem(files)
	require.NoError(t, err)
	roots := loader.Roots{Std: "std", Project: "proj", Packages: "pkgs"}
	ir := parser.NewImportResolver(reader, roots, &bag)
	file := ir.ParseWithImports(code)

	ctx := types.NewContext()
	r := New(ctx, &bag)
	prog := r.Resolve(file)
	return prog, ctx, &bag
}

func noDiags(t *testing.T, bag *diag.Bag) {
	t.Helper()
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Diagnostics())
	}
}

func TestResolveLocalsAndParams(t *testing.T) {
	prog, _, bag := resolveSource(t, `
fn add(a: i32, b: i32) -> i32 {
    let c = a + b;
    c
}`, nil)
	noDiags(t, bag)

	require.Len(t, prog.Functions, 1)
	fn := prog.Functions[0]
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)

	// Every VarRef must point at a declared DefId.
	let := fn.Body.Stmts[0].(*Let)
	bin := let.Value.(*Binary)
	aRef := bin.Left.(*VarRef)
	assert.Equal(t, fn.Params[0].Def, aRef.Def)
	tail := fn.Body.Stmts[1].(*ExprStmt)
	cRef := tail.E.(*VarRef)
	assert.Equal(t, let.Def, cRef.Def)
	assert.NotNil(t, prog.Def(cRef.Def))
}

func TestUndefinedName(t *testing.T) {
	_, _, bag := resolveSource(t, `fn f() -> i32 { missing }`, nil)
	require.True(t, bag.HasErrors())
	assert.Contains(t, bag.Diagnostics()[0].Message, "undefined name 'missing'")
}

func TestDuplicateParam(t *testing.T) {
	_, _, bag := resolveSource(t, `fn f(a: i32, a: i32) {}`, nil)
	require.True(t, bag.HasErrors())
	assert.Contains(t, bag.Diagnostics()[0].Message, "duplicate parameter 'a'")
}

func TestNamespaceAccess(t *testing.T) {
	files := map[string]string{
		"std/io.ws": `
pub fn print(s: str) {}
fn _helper() {}
`,
	}
	prog, _, bag := resolveSource(t, `
import std.io

fn main() {
    io.print("hi");
}`, files)
	noDiags(t, bag)

	ns, ok := prog.Namespaces["io"]
	require.True(t, ok)
	_, ok = ns.Item("print")
	assert.True(t, ok)
	_, ok = ns.Item("_helper")
	assert.False(t, ok, "private items must not land in the namespace")

	// The call resolved to a direct reference.
	main := prog.Functions[0]
	call := main.Body.Stmts[0].(*ExprStmt).E.(*Call)
	callee := call.Callee.(*VarRef)
	assert.Equal(t, "print", callee.Name)
}

func TestPrivateAccessDiagnostic(t *testing.T) {
	files := map[string]string{
		"std/io.ws": `
pub fn print(s: str) {}
fn _helper() {}
`,
	}
	_, _, bag := resolveSource(t, `
import std.io

fn main() {
    io._helper();
}`, files)
	require.True(t, bag.HasErrors())
	assert.Contains(t, bag.Diagnostics()[0].Message, "'_helper' is private")
}

func TestDestructuredImport(t *testing.T) {
	files := map[string]string{
		"std/io.ws": `pub fn print(s: str) {}`,
	}
	prog, _, bag := resolveSource(t, `
import std.io.{print}

fn main() {
    print("hi");
}`, files)
	noDiags(t, bag)

	// Destructured imports do not inject a prefix.
	_, ok := prog.Namespaces["io"]
	assert.False(t, ok)
}

func TestImportAlias(t *testing.T) {
	files := map[string]string{
		"std/io.ws": `pub fn print(s: str) {}`,
	}
	prog, _, bag := resolveSource(t, `
import std.io as term

fn main() {
    term.print("hi");
}`, files)
	noDiags(t, bag)
	_, ok := prog.Namespaces["term"]
	assert.True(t, ok)
}

func TestReExportChild(t *testing.T) {
	files := map[string]string{
		"std/mod.ws": `pub import std.io as io`,
		"std/io.ws":  `pub fn print(s: str) {}`,
	}
	prog, _, bag := resolveSource(t, `
import std

fn main() {
    std.io.print("hi");
}`, files)
	noDiags(t, bag)

	std, ok := prog.Namespaces["std"]
	require.True(t, ok)
	io, ok := std.Child("io")
	require.True(t, ok)
	_, ok = io.Item("print")
	assert.True(t, ok)
}

func TestCyclicImport(t *testing.T) {
	files := map[string]string{
		"std/a.ws": `
import std.b
pub fn fa() {}`,
		"std/b.ws": `
import std.a
pub fn fb() {}`,
	}
	_, _, bag := resolveSource(t, `
import std.a

fn main() {
    a.fa();
}`, files)
	// Cycles are tolerated, not fatal.
	noDiags(t, bag)
}

func TestEnumVariantGlobalLookup(t *testing.T) {
	prog, _, bag := resolveSource(t, `
enum Shape {
    Circle(f64),
    Empty,
}

fn f() -> Shape {
    Circle(1.0)
}

fn g(s: Shape) -> i32 {
    match s {
        Circle(r) -> 1,
        Empty -> 2,
    }
}`, nil)
	noDiags(t, bag)

	f := prog.Functions[0]
	call := f.Body.Stmts[0].(*ExprStmt).E.(*Call)
	vref := call.Callee.(*VariantRef)
	assert.Equal(t, 0, vref.Index)

	g := prog.Functions[1]
	m := g.Body.Stmts[0].(*ExprStmt).E.(*Match)
	arm0 := m.Arms[0].Pat.(*VariantPat)
	assert.Equal(t, 0, arm0.Index)
	require.Len(t, arm0.Elems, 1)
	_, isBind := arm0.Elems[0].(*BindPat)
	assert.True(t, isBind)
	arm1 := m.Arms[1].Pat.(*VariantPat)
	assert.Equal(t, 1, arm1.Index)
}

func TestTraitDefaultFilled(t *testing.T) {
	prog, _, bag := resolveSource(t, `
trait Add<Rhs = Self> {
    fn add(self, other: Rhs) -> Self;
}

struct Point { x: i32, y: i32 }

impl Add for Point {
    fn add(self, o: Point) -> Point { o }
}`, nil)
	noDiags(t, bag)

	require.Len(t, prog.Impls, 1)
	impl := prog.Impls[0]
	require.True(t, impl.HasTrait)
	require.Len(t, impl.TraitArgs, 1)
	st, ok := impl.TraitArgs[0].(*types.Struct)
	require.True(t, ok, "default Rhs = Self must resolve to the target")
	assert.Equal(t, impl.Methods[0].SelfTy.(*types.Struct).Def, st.Def)
}

func TestMissingTraitArg(t *testing.T) {
	_, _, bag := resolveSource(t, `
trait Conv<Target> {
    fn conv(self) -> Target;
}

struct A {}

impl Conv for A {
    fn conv(self) -> i32 { 0 }
}`, nil)
	require.True(t, bag.HasErrors())
	assert.Contains(t, bag.Diagnostics()[0].Message, "missing type argument 'Target'")
}

func TestLambdaCaptureRejected(t *testing.T) {
	_, _, bag := resolveSource(t, `
fn f() {
    let x = 1;
    let g = (y: i32) -> x + y;
}`, nil)
	require.True(t, bag.HasErrors())
	assert.Contains(t, bag.Diagnostics()[0].Message, "cannot capture 'x'")
}

func TestPrimitiveImpl(t *testing.T) {
	prog, _, bag := resolveSource(t, `
impl i32 {
    fn double(self) -> i32 { self * 2 }
}`, nil)
	noDiags(t, bag)
	require.Len(t, prog.Impls, 1)
	prim, ok := prog.Impls[0].Target.(*types.Prim)
	require.True(t, ok)
	assert.Equal(t, types.I32, prim.Kind)
}

func TestSelfTypeInImpl(t *testing.T) {
	prog, _, bag := resolveSource(t, `
struct Counter { n: i32 }

impl Counter {
    fn fresh() -> Self { Counter{n: 0} }
    fn bump(&mut self) { self.n += 1; }
}`, nil)
	noDiags(t, bag)
	impl := prog.Impls[0]
	fresh := impl.Methods[0]
	st, ok := fresh.Ret.(*types.Struct)
	require.True(t, ok)
	assert.Equal(t, impl.Target.(*types.Struct).Def, st.Def)
	assert.Equal(t, SelfRefMut, impl.Methods[1].Self)
}

func TestSpanDefinitionsRecorded(t *testing.T) {
	_, ctx, bag := resolveSource(t, `
fn f(a: i32) -> i32 { a }`, nil)
	noDiags(t, bag)
	// The use of `a` records a go-to-definition entry.
	found := false
	for _, def := range ctx.SpanDefs {
		if ctx.TypeNames[def] == "a" {
			found = true
		}
	}
	assert.True(t, found)
}
