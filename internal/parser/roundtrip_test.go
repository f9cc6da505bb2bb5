package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/wisplang/wisp/internal/ast"
	"github.com/wisplang/wisp/internal/diag"
	"github.com/wisplang/wisp/internal/source"
)

// Parsing, printing and re-parsing must preserve structure modulo
// span values.
func TestRoundTrip(t *testing.T) {
	inputs := []string{
		`
import std.io
import std.io.{print, println as pln}

pub struct Point {
    pub x: i32,
    y: i32,
}

enum Option<T> {
    Some(T),
    None,
}

trait Add<Rhs = Self> {
    fn add(self, other: Rhs) -> Self;
}

impl Add for Point {
    fn add(self, o: Point) -> Point {
        Point{x: self.x + o.x, y: self.y + o.y}
    }
}

const LIMIT: i32 = 100;

fn sum<T: Add>(a: T, b: T) -> T {
    a + b
}

fn main() {
    let mut total = 0;
    for i in 0..10 {
        total += i;
    }
    while total > 0 {
        total = total - 1;
    }
    let p = Point{x: 1, y: 2};
    let q = sum(p, Point{x: 3, y: 4});
    let r = &q;
    let label = "point is {q.x}";
    match total {
        0 -> print(label),
        _ -> pln("done"),
    }
}`,
		`
extern {
    fn puts(s: str) -> i32;
    static ERRNO: i32;
}

type Id = i64;

fn casts(x: i32) -> i64 {
    defer puts("exit");
    let f = (a: i32) -> a;
    x as i64
}`,
	}

	ignoreSpans := cmpopts.IgnoreTypes(source.Span{})
	for _, input := range inputs {
		first := parseFile(t, input)
		printed := first.String()

		var bag diag.Bag
		second := New(printed, &bag).ParseFile()
		if bag.HasErrors() {
			t.Fatalf("re-parse of printed source failed: %v\nprinted:\n%s", bag.Diagnostics(), printed)
		}
		if diff := cmp.Diff(first, second, ignoreSpans); diff != "" {
			t.Errorf("round trip mismatch (-first +second):\n%s\nprinted:\n%s", diff, printed)
		}
	}
}

func TestRoundTripPatterns(t *testing.T) {
	input := `
fn classify(s: Shape) -> i32 {
    match s {
        Circle(r) -> 1,
        Shape.Rect(w, h) -> 2,
        (a, b) -> 3,
        true -> 4,
        'c' -> 5,
        -1 -> 6,
        _ -> 0,
    }
}`
	first := parseFile(t, input)
	printed := first.String()

	var bag diag.Bag
	second := New(printed, &bag).ParseFile()
	if bag.HasErrors() {
		t.Fatalf("re-parse failed: %v\nprinted:\n%s", bag.Diagnostics(), printed)
	}
	if diff := cmp.Diff(first, second, cmpopts.IgnoreTypes(source.Span{})); diff != "" {
		t.Errorf("round trip mismatch:\n%s", diff)
	}
	_ = first.Items[0].(*ast.FuncDecl)
}
