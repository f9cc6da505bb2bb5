package borrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	checkpkg "github.com/wisplang/wisp/internal/check"
	"github.com/wisplang/wisp/internal/diag"
	"github.com/wisplang/wisp/internal/loader"
	"github.com/wisplang/wisp/internal/parser"
	"github.com/wisplang/wisp/internal/resolve"
	"github.com/wisplang/wisp/internal/types"
)

func borrowCheck(t *testing.T, code string) *diag.Bag {
	t.Helper()
	var bag diag.Bag
	reader, err := loader.NewMem(nil)
	require.NoError(t, err)
	ir := parser.NewImportResolver(reader, loader.Roots{Std: "std"}, &bag)
	file := ir.ParseWithImports(code)
	ctx := types.NewContext()
	res := resolve.New(ctx, &bag).Resolve(file)
	prog := checkpkg.New(ctx, res, &bag).Check()
	if bag.HasErrors() {
		t.Fatalf("pre-borrow errors: %v", bag.Diagnostics())
	}
	New(ctx, &bag).Check(prog)
	return &bag
}

func firstMessage(bag *diag.Bag) string {
	ds := bag.Diagnostics()
	if len(ds) == 0 {
		return ""
	}
	return ds[0].Message
}

const prelude = `
struct Data { v: i32 }

fn make() -> Data { Data{v: 1} }
fn eat(d: Data) {}
fn peek(r: &Data) {}
fn poke(r: &mut Data) {}
`

func TestCopyTypesNeverMove(t *testing.T) {
	bag := borrowCheck(t, prelude+`
fn f() {
    let x = 1;
    let a = x + x;
    let b = x;
    let c = x;
}`)
	assert.False(t, bag.HasErrors(), "%v", bag.Diagnostics())
}

func TestUseAfterMove(t *testing.T) {
	bag := borrowCheck(t, prelude+`
fn f() {
    let d = make();
    eat(d);
    eat(d);
}`)
	require.True(t, bag.HasErrors())
	assert.Contains(t, firstMessage(bag), "use of moved value 'd'")
}

func TestMoveIntoStructField(t *testing.T) {
	bag := borrowCheck(t, prelude+`
struct Wrap { inner: Data }

fn f() {
    let d = make();
    let w = Wrap{inner: d};
    eat(d);
}`)
	require.True(t, bag.HasErrors())
	assert.Contains(t, firstMessage(bag), "use of moved value 'd'")
}

func TestFieldMoveConflictsWithWhole(t *testing.T) {
	bag := borrowCheck(t, prelude+`
struct Pair { a: Data, b: Data }

fn f(p: Pair) {
    eat(p.a);
    eat_pair(p);
}

fn eat_pair(p: Pair) {}`)
	require.True(t, bag.HasErrors())
	assert.Contains(t, firstMessage(bag), "use of moved value")
}

func TestReassignmentClearsMove(t *testing.T) {
	bag := borrowCheck(t, prelude+`
fn f() {
    let mut d = make();
    eat(d);
    d = make();
    eat(d);
}`)
	assert.False(t, bag.HasErrors(), "%v", bag.Diagnostics())
}

func TestSharedBorrowsCoexist(t *testing.T) {
	bag := borrowCheck(t, prelude+`
fn f() {
    let d = make();
    let r1 = &d;
    let r2 = &d;
    peek(r1);
    peek(r2);
}`)
	assert.False(t, bag.HasErrors(), "%v", bag.Diagnostics())
}

func TestMutBorrowExcludesAll(t *testing.T) {
	bag := borrowCheck(t, prelude+`
fn f() {
    let mut d = make();
    let m = &mut d;
    let r = &d;
    poke(m);
}`)
	require.True(t, bag.HasErrors())
	assert.Contains(t, firstMessage(bag), "borrowed as mutable")
}

func TestBorrowMutOfImmutable(t *testing.T) {
	bag := borrowCheck(t, prelude+`
fn f() {
    let d = make();
    let m = &mut d;
}`)
	require.True(t, bag.HasErrors())
	assert.Contains(t, firstMessage(bag), "not declared mut")
}

func TestAssignToImmutable(t *testing.T) {
	bag := borrowCheck(t, prelude+`
fn f() {
    let d = make();
    d = make();
}`)
	require.True(t, bag.HasErrors())
	assert.Contains(t, firstMessage(bag), "not declared mut")
}

func TestWriteWhileBorrowed(t *testing.T) {
	bag := borrowCheck(t, prelude+`
fn f() {
    let mut d = make();
    let r = &d;
    d = make();
    peek(r);
}`)
	require.True(t, bag.HasErrors())
	assert.Contains(t, firstMessage(bag), "while it is borrowed")
}

func TestLoansRetireAtScopeExit(t *testing.T) {
	bag := borrowCheck(t, prelude+`
fn f() {
    let mut d = make();
    {
        let r = &d;
        peek(r);
    }
    let m = &mut d;
    poke(m);
}`)
	assert.False(t, bag.HasErrors(), "%v", bag.Diagnostics())
}

func TestDisjointFieldBorrows(t *testing.T) {
	bag := borrowCheck(t, prelude+`
struct Pair { a: Data, b: Data }

fn f(mut p: Pair) {
    let ra = &mut p.a;
    let rb = &p.b;
    poke(ra);
    peek(rb);
}`)
	// Disjoint fields may hold a mutable and an immutable borrow at
	// once.
	assert.False(t, bag.HasErrors(), "%v", bag.Diagnostics())
}

func TestOverlappingFieldBorrowConflicts(t *testing.T) {
	bag := borrowCheck(t, prelude+`
struct Pair { a: Data, b: Data }

fn f(mut p: Pair) {
    let rp = &p;
    let ra = &mut p.a;
    peek_pair(rp);
}

fn peek_pair(r: &Pair) {}`)
	require.True(t, bag.HasErrors())
	assert.Contains(t, firstMessage(bag), "borrowed as immutable")
}

func TestMethodSelfLoans(t *testing.T) {
	bag := borrowCheck(t, prelude+`
impl Data {
    fn get(&self) -> i32 { self.v }
    fn bump(&mut self) { self.v += 1; }
}

fn f() {
    let mut d = make();
    let x = d.get();
    d.bump();
    let y = d.get();
}`)
	assert.False(t, bag.HasErrors(), "%v", bag.Diagnostics())
}

func TestMutMethodOnImmutableReceiver(t *testing.T) {
	bag := borrowCheck(t, prelude+`
impl Data {
    fn bump(&mut self) { self.v += 1; }
}

fn f() {
    let d = make();
    d.bump();
}`)
	require.True(t, bag.HasErrors())
	assert.Contains(t, firstMessage(bag), "not declared mut")
}

func TestMethodCallWhileBorrowed(t *testing.T) {
	bag := borrowCheck(t, prelude+`
impl Data {
    fn bump(&mut self) { self.v += 1; }
}

fn f() {
    let mut d = make();
    let r = &d;
    d.bump();
    peek(r);
}`)
	require.True(t, bag.HasErrors())
	assert.Contains(t, firstMessage(bag), "borrowed as immutable")
}

func TestDerefMutThroughReference(t *testing.T) {
	bag := borrowCheck(t, prelude+`
fn f(r: &mut Data) {
    *r = Data{v: 2};
}`)
	assert.False(t, bag.HasErrors(), "%v", bag.Diagnostics())
}

func TestPlaceOverlap(t *testing.T) {
	base := Place{Local: 1}
	fieldA := base.Extend(Projection{Kind: ProjField, Index: 0, Name: "a"})
	fieldB := base.Extend(Projection{Kind: ProjField, Index: 1, Name: "b"})
	deep := fieldA.Extend(Projection{Kind: ProjField, Index: 0, Name: "x"})

	assert.True(t, base.Overlaps(fieldA), "prefix overlaps extension")
	assert.True(t, fieldA.Overlaps(base))
	assert.True(t, fieldA.Overlaps(deep))
	assert.False(t, fieldA.Overlaps(fieldB), "disjoint fields do not overlap")
	assert.False(t, deep.Overlaps(fieldB))
	assert.False(t, base.Overlaps(Place{Local: 2}))
}
