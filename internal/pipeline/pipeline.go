// Package pipeline runs the compilation phases front to middle end:
// parse (with import resolution), resolve, type check, borrow check,
// MIR lowering.
package pipeline

import (
	"time"

	"github.com/wisplang/wisp/internal/ast"
	"github.com/wisplang/wisp/internal/borrow"
	"github.com/wisplang/wisp/internal/check"
	"github.com/wisplang/wisp/internal/diag"
	"github.com/wisplang/wisp/internal/loader"
	"github.com/wisplang/wisp/internal/mir"
	"github.com/wisplang/wisp/internal/parser"
	"github.com/wisplang/wisp/internal/resolve"
	"github.com/wisplang/wisp/internal/types"
)

// Config contains pipeline configuration.
type Config struct {
	Reader loader.Reader
	Roots  loader.Roots
	// CheckOnly stops after borrow checking, producing no MIR.
	CheckOnly bool
}

// Phase names a pipeline stage.
type Phase int

const (
	PhaseParse Phase = iota
	PhaseResolve
	PhaseCheck
	PhaseBorrow
	PhaseLower
)

func (p Phase) String() string {
	switch p {
	case PhaseParse:
		return "parse"
	case PhaseResolve:
		return "resolve"
	case PhaseCheck:
		return "typecheck"
	case PhaseBorrow:
		return "borrowck"
	case PhaseLower:
		return "lower"
	}
	return "unknown"
}

// Source is the root input.
type Source struct {
	Path string
	Code string
}

// Result carries every produced artifact plus diagnostics. The
// pipeline stops at the first phase that reports errors; later
// artifacts stay nil.
type Result struct {
	File     *ast.SourceFileWithImports
	Ctx      *types.Context
	Resolved *resolve.Program
	Typed    *check.Program
	MIR      *mir.Program

	Diags        []diag.Diagnostic
	FailedPhase  Phase
	Failed       bool
	PhaseTimings map[string]time.Duration
}

// Run executes the pipeline over one root source file.
func Run(cfg Config, src Source) *Result {
	res := &Result{PhaseTimings: make(map[string]time.Duration)}
	var bag diag.Bag

	reader := cfg.Reader
	if reader == nil {
		reader = loader.NewFS()
	}

	finish := func(phase Phase) bool {
		res.Diags = bag.Diagnostics()
		if bag.HasErrors() {
			res.Failed = true
			res.FailedPhase = phase
			return true
		}
		return false
	}
	timed := func(phase Phase, fn func()) {
		start := time.Now()
		fn()
		res.PhaseTimings[phase.String()] = time.Since(start)
	}

	timed(PhaseParse, func() {
		ir := parser.NewImportResolver(reader, cfg.Roots, &bag)
		res.File = ir.ParseWithImports(src.Code)
	})
	if finish(PhaseParse) {
		return res
	}

	res.Ctx = types.NewContext()
	timed(PhaseResolve, func() {
		r := resolve.New(res.Ctx, &bag)
		res.Resolved = r.Resolve(res.File)
	})
	if finish(PhaseResolve) {
		return res
	}

	timed(PhaseCheck, func() {
		c := check.New(res.Ctx, res.Resolved, &bag)
		res.Typed = c.Check()
	})
	if finish(PhaseCheck) {
		return res
	}

	timed(PhaseBorrow, func() {
		b := borrow.New(res.Ctx, &bag)
		b.Check(res.Typed)
	})
	if finish(PhaseBorrow) || cfg.CheckOnly {
		return res
	}

	// Lowering only runs on a clean check; no partial results.
	timed(PhaseLower, func() {
		res.MIR = mir.Lower(res.Typed)
	})
	res.Diags = bag.Diagnostics()
	return res
}
