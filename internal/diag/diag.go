// Package diag defines the structured diagnostics emitted by every
// compiler phase. The driver owns rendering.
package diag

import (
	"fmt"
	"sort"

	"github.com/wisplang/wisp/internal/source"
)

// Kind partitions diagnostics by the phase that produced them.
type Kind int

const (
	LexError Kind = iota
	ParseError
	ResolveError
	TypeError
	BorrowError
)

func (k Kind) String() string {
	switch k {
	case LexError:
		return "lex error"
	case ParseError:
		return "parse error"
	case ResolveError:
		return "resolve error"
	case TypeError:
		return "type error"
	case BorrowError:
		return "borrow error"
	}
	return "error"
}

// Note is a secondary message pointing at a related span.
type Note struct {
	Message string
	Span    source.Span
}

// Diagnostic is one reported problem with its primary span and any
// secondary notes.
type Diagnostic struct {
	Kind    Kind
	Message string
	Span    source.Span
	Notes   []Note
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s (%s)", d.Kind, d.Message, d.Span)
}

// Bag accumulates diagnostics for a phase.
type Bag struct {
	diags []Diagnostic
}

// Add appends a diagnostic.
func (b *Bag) Add(d Diagnostic) {
	b.diags = append(b.diags, d)
}

// Addf appends a diagnostic with a formatted message and no notes.
func (b *Bag) Addf(kind Kind, span source.Span, format string, args ...interface{}) {
	b.Add(Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Span: span})
}

// HasErrors reports whether any diagnostic was recorded.
func (b *Bag) HasErrors() bool { return len(b.diags) > 0 }

// Len returns the number of recorded diagnostics.
func (b *Bag) Len() int { return len(b.diags) }

// Truncate drops diagnostics recorded after position n. Speculative
// parses use it to roll back.
func (b *Bag) Truncate(n int) {
	if n >= 0 && n < len(b.diags) {
		b.diags = b.diags[:n]
	}
}

// Diagnostics returns the recorded diagnostics in source order
// (stable across runs: sorted by span start, then insertion order).
func (b *Bag) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(b.diags))
	copy(out, b.diags)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Span.Start < out[j].Span.Start
	})
	return out
}

// Merge appends all diagnostics from another bag.
func (b *Bag) Merge(other *Bag) {
	b.diags = append(b.diags, other.diags...)
}
