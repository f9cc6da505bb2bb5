package diag

import (
	"strings"
	"testing"

	"github.com/wisplang/wisp/internal/source"
)

func TestBagOrdersBySpan(t *testing.T) {
	var bag Bag
	bag.Addf(TypeError, source.Span{Start: 40, End: 42}, "second")
	bag.Addf(ResolveError, source.Span{Start: 10, End: 12}, "first")
	bag.Addf(BorrowError, source.Span{Start: 40, End: 41}, "also second region")

	out := bag.Diagnostics()
	if len(out) != 3 {
		t.Fatalf("expected 3 diagnostics, got %d", len(out))
	}
	if out[0].Message != "first" {
		t.Errorf("expected span order, got %q first", out[0].Message)
	}
	// Equal spans keep insertion order (stable sort).
	if out[1].Message != "second" {
		t.Errorf("expected stable order, got %q", out[1].Message)
	}
}

func TestTruncate(t *testing.T) {
	var bag Bag
	bag.Addf(ParseError, source.Span{}, "keep")
	mark := bag.Len()
	bag.Addf(ParseError, source.Span{}, "speculative")
	bag.Truncate(mark)
	if bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic after truncate, got %d", bag.Len())
	}
}

func TestRenderSnippet(t *testing.T) {
	src := "fn main() {\n    broken;\n}"
	var sb strings.Builder
	Render(&sb, src, []Diagnostic{{
		Kind:    ResolveError,
		Message: "undefined name 'broken'",
		Span:    source.Span{Start: 16, End: 22},
		Notes:   []Note{{Message: "declared nowhere", Span: source.Span{Start: 0, End: 2}}},
	}})
	out := sb.String()
	if !strings.Contains(out, "undefined name 'broken'") {
		t.Errorf("missing message:\n%s", out)
	}
	if !strings.Contains(out, "broken;") {
		t.Errorf("missing snippet line:\n%s", out)
	}
	if !strings.Contains(out, "^^^^^^") {
		t.Errorf("missing caret underline:\n%s", out)
	}
	if !strings.Contains(out, "2:5") {
		t.Errorf("missing line:col position:\n%s", out)
	}
}
