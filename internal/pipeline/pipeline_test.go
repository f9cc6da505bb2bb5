package pipeline

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisplang/wisp/internal/check"
	"github.com/wisplang/wisp/internal/loader"
	"github.com/wisplang/wisp/internal/mir"
	"github.com/wisplang/wisp/internal/types"
)

// stringPrelude is a minimal std string module used by interpolation
// tests.
const stringPrelude = `
pub struct String {
    pub data: str,
    pub len: i64,
}

pub trait Display {
    fn to_string(&self) -> String;
}

impl String {
    pub fn from(s: str) -> String {
        String{data: s, len: 0}
    }
    pub fn add(self, other: String) -> String {
        String{data: self.data, len: self.len + other.len}
    }
}

impl Display for i32 {
    fn to_string(&self) -> String {
        String{data: "", len: 0}
    }
}
`

func run(t *testing.T, code string, files map[string]string) *Result {
	t.Helper()
	reader, err := loader.NewMem(files)
	require.NoError(t, err)
	return Run(Config{Reader: reader, Roots: loader.Roots{Std: "std", Project: "proj", Packages: "pkgs"}},
		Source{Path: "main.ws", Code: code})
}

func requireClean(t *testing.T, res *Result) {
	t.Helper()
	if res.Failed {
		t.Fatalf("pipeline failed in %s: %v", res.FailedPhase, res.Diags)
	}
}

func TestMoveThenUse(t *testing.T) {
	res := run(t, `
struct Message { text: str }

fn make_message() -> Message {
    Message{text: "hi"}
}

fn consume(m: Message) {}

fn main() {
    let s = make_message();
    consume(s);
    consume(s);
}`, nil)

	require.True(t, res.Failed)
	assert.Equal(t, PhaseBorrow, res.FailedPhase)
	require.Len(t, res.Diags, 1)
	d := res.Diags[0]
	assert.Contains(t, d.Message, "use of moved value 's'")
	require.Len(t, d.Notes, 1)
	assert.Contains(t, d.Notes[0].Message, "moved here")
	// The note points at the earlier consume argument.
	assert.Less(t, d.Notes[0].Span.Start, d.Span.Start)
}

func TestAliasingViolation(t *testing.T) {
	res := run(t, `
struct Holder<T> { item: T }

fn use_it(r: &Holder<i32>) {}

fn f(mut v: Holder<i32>) {
    let r = &v;
    let m = &mut v;
    use_it(r);
}`, nil)

	require.True(t, res.Failed)
	assert.Equal(t, PhaseBorrow, res.FailedPhase)
	require.NotEmpty(t, res.Diags)
	d := res.Diags[0]
	assert.Contains(t, d.Message, "cannot borrow 'v' as mutable because it is also borrowed as immutable")
	require.Len(t, d.Notes, 1)
	assert.Contains(t, d.Notes[0].Message, "immutable borrow")
}

const genericOperatorSource = `
trait Add<Rhs = Self> {
    fn add(self, other: Rhs) -> Self;
}

struct Point { x: i32, y: i32 }

impl Add for Point {
    fn add(self, o: Point) -> Point {
        Point{x: self.x + o.x, y: self.y + o.y}
    }
}

fn sum<T: Add>(a: T, b: T) -> T {
    a + b
}

fn main() {
    let p = sum(Point{x: 1, y: 2}, Point{x: 3, y: 4});
    let q = sum(Point{x: 5, y: 6}, Point{x: 7, y: 8});
}`

func TestGenericOperatorMonomorphization(t *testing.T) {
	res := run(t, genericOperatorSource, nil)
	requireClean(t, res)

	// Exactly one instantiation: {sum, [Struct(Point)]}.
	insts := res.Ctx.Instantiations()
	require.Len(t, insts, 1)
	st, ok := insts[0].Args[0].(*types.Struct)
	require.True(t, ok)
	assert.Equal(t, "Point", res.Ctx.TypeNames[st.Def])

	mangled := types.MangleGeneric("sum", insts[0].Args)
	mono := res.MIR.FunctionByName(mangled)
	require.NotNil(t, mono, "expected monomorphized %s in MIR", mangled)

	// The monomorphized body calls Point::add directly.
	foundCall := false
	for _, b := range mono.Blocks {
		if call, ok := b.Term.(*mir.CallTerm); ok {
			if fp, ok := call.Func.Const.(*mir.ConstFnPtr); ok && fp.Name == "Point::add" {
				foundCall = true
			}
		}
	}
	assert.True(t, foundCall, "sum<Point> must call Point::add directly:\n%s", mono)
}

func TestMonomorphizationIdempotent(t *testing.T) {
	res := run(t, genericOperatorSource, nil)
	requireClean(t, res)

	mangled := ""
	count := 0
	for _, f := range res.MIR.Functions {
		if strings.HasPrefix(f.Name, "sum<") {
			mangled = f.Name
			count++
		}
	}
	require.NotEmpty(t, mangled)
	assert.Equal(t, 1, count, "same type args must produce exactly one MIR function")
}

func TestNamespaceVisibility(t *testing.T) {
	files := map[string]string{
		"std/io.ws": `
pub fn print(s: str) {}
fn _helper() {}
`,
	}
	res := run(t, `
import std.io

fn main() {
    io.print("hi");
}`, files)
	requireClean(t, res)

	bad := run(t, `
import std.io

fn main() {
    io._helper();
}`, files)
	require.True(t, bad.Failed)
	assert.Equal(t, PhaseResolve, bad.FailedPhase)
	assert.Contains(t, bad.Diags[0].Message, "'_helper' is private")
}

func TestStructReturnSret(t *testing.T) {
	res := run(t, `
struct Point { x: i32, y: i32 }

fn make() -> Point {
    Point{x: 1, y: 2}
}

fn main() {
    let p = make();
}`, nil)
	requireClean(t, res)

	makeFn := res.MIR.FunctionByName("make")
	require.NotNil(t, makeFn)
	assert.True(t, makeFn.Sret)
	require.Len(t, makeFn.Params, 1)
	ptr, ok := makeFn.Locals[makeFn.Params[0]].Ty.(*types.Ref)
	require.True(t, ok, "sret parameter must be a pointer")
	assert.True(t, ptr.Mut)
	_, isStruct := ptr.Inner.(*types.Struct)
	assert.True(t, isStruct)
	p, _ := makeFn.ReturnType.(*types.Prim)
	require.NotNil(t, p)
	assert.Equal(t, types.Unit, p.Kind)

	// main passes the destination's address as the first argument.
	mainFn := res.MIR.FunctionByName("main")
	require.NotNil(t, mainFn)
	found := false
	for _, b := range mainFn.Blocks {
		call, ok := b.Term.(*mir.CallTerm)
		if !ok {
			continue
		}
		if fp, ok := call.Func.Const.(*mir.ConstFnPtr); ok && fp.Name == "make" {
			require.NotEmpty(t, call.Args)
			ref, ok := mainFn.Locals[call.Args[0].Place.Local].Ty.(*types.Ref)
			require.True(t, ok, "first argument of a struct-returning call is an address")
			assert.True(t, ref.Mut)
			found = true
		}
	}
	assert.True(t, found, "main must call make:\n%s", mainFn)
}

func TestStringInterpolationDesugar(t *testing.T) {
	files := map[string]string{"std/string.ws": stringPrelude}
	res := run(t, `
import std.string.{String, Display}

fn main() {
    let x = 5;
    let s = "x is {x}";
}`, files)
	requireClean(t, res)

	var mainFn *check.Func
	for _, f := range res.Typed.Functions {
		if f.Name == "main" {
			mainFn = f
		}
	}
	require.NotNil(t, mainFn)

	let, ok := mainFn.Body.Stmts[1].(*check.Let)
	require.True(t, ok)

	// `String::from("x is ").add(x.to_string())`
	add, ok := let.Value.(*check.MethodCall)
	require.True(t, ok, "interpolation desugars to an add chain, got %T", let.Value)
	assert.Equal(t, "add", add.Name)
	assert.Equal(t, "String", add.RecvName)

	from, ok := add.Recv.(*check.Call)
	require.True(t, ok)
	fref, ok := from.Callee.(*check.FuncRef)
	require.True(t, ok)
	assert.Equal(t, "String::from", fref.QualName)
	lit, ok := from.Args[0].(*check.StrLit)
	require.True(t, ok)
	assert.Equal(t, "x is ", lit.Value)

	require.Len(t, add.Args, 1)
	ts, ok := add.Args[0].(*check.MethodCall)
	require.True(t, ok)
	assert.Equal(t, "to_string", ts.Name)
	assert.Equal(t, "i32", ts.RecvName)

	// The whole expression type-checks to String.
	st, ok := let.Ty.(*types.Struct)
	require.True(t, ok)
	assert.Equal(t, "String", res.Ctx.TypeNames[st.Def])
}

func TestInterpolationWithoutDisplay(t *testing.T) {
	files := map[string]string{"std/string.ws": stringPrelude}
	res := run(t, `
import std.string.{String, Display}

struct Opaque { v: i32 }

fn main() {
    let o = Opaque{v: 1};
    let s = "got {o}";
}`, files)
	require.True(t, res.Failed)
	assert.Equal(t, PhaseCheck, res.FailedPhase)
	assert.Contains(t, res.Diags[0].Message, "does not implement 'Display'")
}

func TestNamedArgumentReordering(t *testing.T) {
	res := run(t, `
fn area(width: i32, height: i32) -> i32 {
    width * height
}

fn main() {
    let a = area(height: 4, width: 3);
}`, nil)
	requireClean(t, res)

	var mainFn *check.Func
	for _, f := range res.Typed.Functions {
		if f.Name == "main" {
			mainFn = f
		}
	}
	require.NotNil(t, mainFn)
	call := mainFn.Body.Stmts[0].(*check.Let).Value.(*check.Call)
	// Reordering is a permutation: positional list length equals the
	// parameter count.
	assert.Len(t, call.Args, 2)
	assert.Equal(t, int64(3), call.Args[0].(*check.IntLit).Value)
	assert.Equal(t, int64(4), call.Args[1].(*check.IntLit).Value)
}

func TestNamedArgumentDiagnostics(t *testing.T) {
	base := `
fn area(width: i32, height: i32) -> i32 { width * height }
fn main() { %s; }`

	tests := []struct {
		call string
		want string
	}{
		{"area(3, height: 4)", "cannot mix positional and named arguments"},
		{"area(width: 3, width: 4)", "duplicate argument 'width'"},
		{"area(width: 3, depth: 4)", "no parameter 'depth'"},
		{"area(width: 3)", "missing arguments: height: i32"},
	}
	for _, tt := range tests {
		res := run(t, fmt.Sprintf(base, tt.call), nil)
		require.True(t, res.Failed, "%s should fail", tt.call)
		found := false
		for _, d := range res.Diags {
			if strings.Contains(d.Message, tt.want) {
				found = true
			}
		}
		assert.True(t, found, "%s: expected %q in %v", tt.call, tt.want, res.Diags)
	}
}

func TestMirInvariants(t *testing.T) {
	res := run(t, `
enum Shape {
    Circle(f64),
    Rect(f64, f64),
    Empty,
}

fn area(s: Shape) -> f64 {
    match s {
        Circle(r) -> r * r,
        Rect(w, h) -> w * h,
        _ -> 0.0,
    }
}

fn count(n: i32) -> i32 {
    let mut total = 0;
    for i in 0..n {
        total += i;
    }
    while total > 100 {
        total = total - 1;
    }
    total
}

fn main() {
    let a = area(Circle(2.0));
    let c = count(10);
}`, nil)
	requireClean(t, res)

	for _, fn := range res.MIR.Functions {
		n := len(fn.Blocks)
		reachable := map[mir.BlockId]bool{}
		var walk func(mir.BlockId)
		walk = func(id mir.BlockId) {
			require.Less(t, int(id), n, "%s: terminator target out of range", fn.Name)
			if reachable[id] {
				return
			}
			reachable[id] = true
			switch term := fn.Blocks[id].Term.(type) {
			case *mir.Goto:
				walk(term.Target)
			case *mir.SwitchInt:
				for _, tgt := range term.Targets {
					walk(tgt)
				}
				walk(term.Otherwise)
			case *mir.CallTerm:
				walk(term.Target)
			}
		}
		require.NotEmpty(t, fn.Blocks, fn.Name)
		walk(0)
		assert.Len(t, reachable, n, "%s: every block must be reachable from block 0:\n%s", fn.Name, fn)

		for _, b := range fn.Blocks {
			require.NotNil(t, b.Term, "%s: block %d lacks a terminator", fn.Name, b.Id)
		}
	}
}

func TestEveryInstantiationHasMirFunction(t *testing.T) {
	res := run(t, `
trait Add<Rhs = Self> {
    fn add(self, other: Rhs) -> Self;
}

struct P { x: i32 }
struct Q { y: i64 }

impl Add for P {
    fn add(self, o: P) -> P { P{x: self.x + o.x} }
}
impl Add for Q {
    fn add(self, o: Q) -> Q { Q{y: self.y + o.y} }
}

fn sum<T: Add>(a: T, b: T) -> T { a + b }
fn twice<T: Add>(a: T, b: T) -> T { sum(a, b) }

fn main() {
    let p = twice(P{x: 1}, P{x: 2});
    let q = sum(Q{y: 2}, Q{y: 3});
    let n = sum(1, 2);
}`, nil)
	requireClean(t, res)

	for _, inst := range res.Ctx.Instantiations() {
		var base string
		for _, f := range res.Typed.Functions {
			if f.Def == inst.Func {
				base = f.QualName
			}
		}
		mangled := types.MangleGeneric(base, inst.Args)
		assert.NotNil(t, res.MIR.FunctionByName(mangled), "missing MIR function %s", mangled)
	}

	// twice<P> calls sum with T=P, discovered only while lowering the
	// monomorphized body: the fixpoint must still emit sum<P>.
	pDef := types.DefId(0)
	for def, name := range res.Ctx.TypeNames {
		if name == "P" {
			pDef = def
		}
	}
	mangledSumP := types.MangleGeneric("sum", []types.Type{&types.Struct{Def: pDef}})
	assert.NotNil(t, res.MIR.FunctionByName(mangledSumP), "recursive instantiation %s must be lowered", mangledSumP)
}

func TestDeferLowering(t *testing.T) {
	res := run(t, `
extern {
    fn hook(code: i32) -> i32;
}

fn f() -> i32 {
    defer hook(1);
    return 42;
}

fn main() {
    let x = f();
}`, nil)
	requireClean(t, res)

	fn := res.MIR.FunctionByName("f")
	require.NotNil(t, fn)
	// The deferred hook call is emitted before the return.
	foundHook := false
	for _, b := range fn.Blocks {
		if call, ok := b.Term.(*mir.CallTerm); ok {
			if fp, ok := call.Func.Const.(*mir.ConstFnPtr); ok && fp.Name == "hook" {
				foundHook = true
			}
		}
	}
	assert.True(t, foundHook, "deferred call must appear in MIR:\n%s", fn)
}

func TestLambdaLifting(t *testing.T) {
	res := run(t, `
fn apply(f: fn(i32) -> i32, x: i32) -> i32 {
    f(x)
}

fn main() {
    let g = (a: i32) -> a + 1;
    let r = apply(g, 41);
}`, nil)
	requireClean(t, res)

	var lifted *mir.Function
	for _, f := range res.MIR.Functions {
		if strings.Contains(f.Name, "$lambda") {
			lifted = f
		}
	}
	require.NotNil(t, lifted, "lambda must lift to a top-level function")
	assert.Equal(t, "main$lambda1", lifted.Name)
	require.Len(t, lifted.Params, 1)
}

func TestCastLowering(t *testing.T) {
	res := run(t, `
fn main() {
    let a = 1;
    let b = a as i64;
    let c = 'x' as i32;
    let d = true as i32;
}`, nil)
	requireClean(t, res)
	assert.NotNil(t, res.MIR.FunctionByName("main"))
}

func TestInvalidCast(t *testing.T) {
	res := run(t, `
struct P { x: i32 }
fn main() {
    let p = P{x: 1};
    let b = p as i64;
}`, nil)
	require.True(t, res.Failed)
	assert.Equal(t, PhaseCheck, res.FailedPhase)
	assert.Contains(t, res.Diags[0].Message, "invalid cast")
}

func TestDeterministicDiagnosticOrder(t *testing.T) {
	code := `
fn main() {
    let a = missing_one;
    let b = missing_two;
}`
	first := run(t, code, nil)
	second := run(t, code, nil)
	require.Equal(t, len(first.Diags), len(second.Diags))
	for i := range first.Diags {
		assert.Equal(t, first.Diags[i].Message, second.Diags[i].Message)
		assert.Equal(t, first.Diags[i].Span, second.Diags[i].Span)
	}
	// Source order.
	for i := 1; i < len(first.Diags); i++ {
		assert.LessOrEqual(t, first.Diags[i-1].Span.Start, first.Diags[i].Span.Start)
	}
}
