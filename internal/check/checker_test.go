package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisplang/wisp/internal/diag"
	"github.com/wisplang/wisp/internal/loader"
	"github.com/wisplang/wisp/internal/parser"
	"github.com/wisplang/wisp/internal/resolve"
	"github.com/wisplang/wisp/internal/types"
)

func checkSource(t *testing.T, code string) (*Program, *diag.Bag) {
	t.Helper()
	var bag diag.Bag
	reader, err := loader.NewMem(nil)
	require.NoError(t, err)
	ir := parser.NewImportResolver(reader, loader.Roots{Std: "std"}, &bag)
	file := ir.ParseWithImports(code)
	ctx := types.NewContext()
	res := resolve.New(ctx, &bag).Resolve(file)
	if bag.HasErrors() {
		t.Fatalf("pre-check errors: %v", bag.Diagnostics())
	}
	prog := New(ctx, res, &bag).Check()
	return prog, &bag
}

func fnNamed(t *testing.T, prog *Program, name string) *Func {
	t.Helper()
	for _, f := range prog.Functions {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("no function %q", name)
	return nil
}

func TestLiteralDefaulting(t *testing.T) {
	prog, bag := checkSource(t, `
fn f() {
    let a = 42;
    let b = 2.5;
    let c: i64 = 42;
    let d: f32 = 1.5;
}`)
	require.False(t, bag.HasErrors(), "%v", bag.Diagnostics())

	f := fnNamed(t, prog, "f")
	wants := []types.PrimKind{types.I32, types.F64, types.I64, types.F32}
	for i, want := range wants {
		let := f.Body.Stmts[i].(*Let)
		p, ok := let.Ty.(*types.Prim)
		require.True(t, ok, "stmt %d: %T", i, let.Ty)
		assert.Equal(t, want, p.Kind, "stmt %d", i)
	}
}

func TestNoVarsAfterCheck(t *testing.T) {
	prog, bag := checkSource(t, `
struct Pair<T> { a: T, b: T }

fn mk() -> Pair<i32> {
    Pair{a: 1, b: 2}
}

fn f() {
    let p = mk();
    let x = p.a;
}`)
	require.False(t, bag.HasErrors(), "%v", bag.Diagnostics())

	f := fnNamed(t, prog, "f")
	for _, s := range f.Body.Stmts {
		let := s.(*Let)
		assert.False(t, types.HasVar(let.Ty), "%s still has inference vars", let.Name)
		assert.False(t, types.HasVar(let.Value.Type()))
	}
}

func TestGenericStructFieldSubstitution(t *testing.T) {
	prog, bag := checkSource(t, `
struct Box<T> { item: T }

fn f() -> i64 {
    let b = Box{item: 7 as i64};
    b.item
}`)
	require.False(t, bag.HasErrors(), "%v", bag.Diagnostics())

	f := fnNamed(t, prog, "f")
	tail := f.Body.Stmts[1].(*ExprStmt)
	p, ok := tail.E.Type().(*types.Prim)
	require.True(t, ok)
	assert.Equal(t, types.I64, p.Kind)
}

func TestMethodAutoDerefAndAutoRef(t *testing.T) {
	prog, bag := checkSource(t, `
struct Counter { n: i32 }

impl Counter {
    fn get(&self) -> i32 { self.n }
    fn take(self) -> i32 { self.n }
}

fn f(c: Counter, r: &Counter) -> i32 {
    c.get() + r.get()
}`)
	require.False(t, bag.HasErrors(), "%v", bag.Diagnostics())
	_ = prog
}

func TestMethodOnValueThroughRefNeedsDeref(t *testing.T) {
	_, bag := checkSource(t, `
struct Counter { n: i32 }

impl Counter {
    fn take(self) -> i32 { self.n }
}

fn f(r: &Counter) -> i32 {
    r.take()
}`)
	// Single-level auto-deref makes this legal: the receiver is
	// dereferenced to match by-value self.
	require.False(t, bag.HasErrors(), "%v", bag.Diagnostics())
}

func TestUnknownMethod(t *testing.T) {
	_, bag := checkSource(t, `
struct S { x: i32 }

fn f(s: S) {
    s.nope();
}`)
	require.True(t, bag.HasErrors())
	assert.Contains(t, bag.Diagnostics()[0].Message, "has no method 'nope'")
}

func TestOperatorRequiresImpl(t *testing.T) {
	_, bag := checkSource(t, `
trait Add<Rhs = Self> {
    fn add(self, other: Rhs) -> Self;
}

struct P { x: i32 }

fn f(a: P, b: P) -> P {
    a + b
}`)
	require.True(t, bag.HasErrors())
	assert.Contains(t, bag.Diagnostics()[0].Message, "does not implement 'Add'")
}

func TestTraitBoundRejected(t *testing.T) {
	_, bag := checkSource(t, `
trait Add<Rhs = Self> {
    fn add(self, other: Rhs) -> Self;
}

struct P { x: i32 }

fn sum<T: Add>(a: T, b: T) -> T { a + b }

fn f() {
    let p = sum(P{x: 1}, P{x: 2});
}`)
	require.True(t, bag.HasErrors())
	assert.Contains(t, bag.Diagnostics()[0].Message, "does not implement trait 'Add'")
}

func TestRefMutabilityMismatch(t *testing.T) {
	_, bag := checkSource(t, `
fn wants_mut(r: &mut i32) {}

fn f() {
    let mut x = 1;
    wants_mut(&x);
}`)
	require.True(t, bag.HasErrors())
}

func TestNotEqualDesugar(t *testing.T) {
	prog, bag := checkSource(t, `
trait PartialEq<Rhs = Self> {
    fn eq(&self, other: &Rhs) -> bool;
}

struct P { x: i32 }

impl PartialEq for P {
    fn eq(&self, other: &P) -> bool { self.x == other.x }
}

fn f(a: P, b: P) -> bool {
    a != b
}`)
	require.False(t, bag.HasErrors(), "%v", bag.Diagnostics())

	f := fnNamed(t, prog, "f")
	tail := f.Body.Stmts[0].(*ExprStmt)
	not, ok := tail.E.(*Unary)
	require.True(t, ok, "!= on a struct desugars to !(eq), got %T", tail.E)
	assert.Equal(t, "!", not.Op)
	eq, ok := not.Operand.(*MethodCall)
	require.True(t, ok)
	assert.Equal(t, "eq", eq.Name)
	// Comparison methods take both operands by reference.
	assert.Equal(t, resolve.SelfByRef, eq.SelfMode)
	_, argIsRef := eq.Args[0].(*RefTake)
	assert.True(t, argIsRef)
}

func TestMatchArmTypes(t *testing.T) {
	_, bag := checkSource(t, `
enum E { A, B }

fn f(e: E) -> i32 {
    match e {
        A -> 1,
        B -> "two",
    }
}`)
	require.True(t, bag.HasErrors())
	assert.Contains(t, bag.Diagnostics()[0].Message, "match arms disagree")
}

func TestIfBranchesDisagree(t *testing.T) {
	_, bag := checkSource(t, `
fn f(c: bool) -> i32 {
    if c { 1 } else { "no" }
}`)
	require.True(t, bag.HasErrors())
}

func TestSpanTypesRecorded(t *testing.T) {
	prog, bag := checkSource(t, `
fn f() {
    let total = 40 + 2;
}`)
	require.False(t, bag.HasErrors())
	found := false
	for _, ty := range prog.Ctx.SpanTypes {
		if ty == "i32" {
			found = true
		}
	}
	assert.True(t, found, "hover types must be recorded")
}
