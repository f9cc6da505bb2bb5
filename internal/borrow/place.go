// Package borrow enforces move and aliasing rules per function over
// the typed program.
package borrow

import (
	"strconv"
	"strings"

	"github.com/wisplang/wisp/internal/types"
)

// ProjKind is one step of a place projection.
type ProjKind int

const (
	ProjField ProjKind = iota
	ProjDeref
	ProjIndex
)

// Projection walks from a base local into a component.
type Projection struct {
	Kind  ProjKind
	Index int    // field index, ProjField only
	Name  string // field name, for diagnostics
}

// Place is a compile-time-describable location: a base local plus
// projections.
type Place struct {
	Local types.DefId
	Projs []Projection
}

// Key is a stable map key for the place.
func (p Place) Key() string {
	var sb strings.Builder
	sb.WriteString(p.Local.String())
	for _, pr := range p.Projs {
		switch pr.Kind {
		case ProjField:
			sb.WriteString(".f" + strconv.Itoa(pr.Index))
		case ProjDeref:
			sb.WriteString(".*")
		case ProjIndex:
			sb.WriteString(".[]")
		}
	}
	return sb.String()
}

// Extend returns the place with one more projection.
func (p Place) Extend(pr Projection) Place {
	projs := make([]Projection, 0, len(p.Projs)+1)
	projs = append(projs, p.Projs...)
	projs = append(projs, pr)
	return Place{Local: p.Local, Projs: projs}
}

// Overlaps reports whether two places conflict: one is a prefix of
// the other (or they are equal).
func (p Place) Overlaps(q Place) bool {
	if p.Local != q.Local {
		return false
	}
	n := len(p.Projs)
	if len(q.Projs) < n {
		n = len(q.Projs)
	}
	for i := 0; i < n; i++ {
		a, b := p.Projs[i], q.Projs[i]
		if a.Kind != b.Kind {
			return false
		}
		if a.Kind == ProjField && a.Index != b.Index {
			return false
		}
		// Index projections are approximated as overlapping.
	}
	return true
}

// String renders the place for diagnostics.
func (p Place) String(names map[types.DefId]string) string {
	var sb strings.Builder
	sb.WriteString(names[p.Local])
	for _, pr := range p.Projs {
		switch pr.Kind {
		case ProjField:
			sb.WriteString("." + pr.Name)
		case ProjDeref:
			sb.WriteString(".*")
		case ProjIndex:
			sb.WriteString("[_]")
		}
	}
	return sb.String()
}
