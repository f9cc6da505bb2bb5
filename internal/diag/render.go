package diag

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/wisplang/wisp/internal/source"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	noteColor = color.New(color.FgCyan)
	posColor  = color.New(color.FgWhite, color.Faint)
)

// Render writes a human-readable report for the diagnostics against
// the given source text, with line/column positions and carets.
func Render(w io.Writer, src string, diags []Diagnostic) {
	for _, d := range diags {
		line, col := lineCol(src, d.Span.Start)
		errColor.Fprintf(w, "%s", d.Kind)
		fmt.Fprintf(w, ": %s\n", d.Message)
		posColor.Fprintf(w, "  --> %d:%d\n", line, col)
		writeSnippet(w, src, d.Span)
		for _, n := range d.Notes {
			nl, nc := lineCol(src, n.Span.Start)
			noteColor.Fprintf(w, "  note")
			fmt.Fprintf(w, ": %s ", n.Message)
			posColor.Fprintf(w, "(%d:%d)\n", nl, nc)
			writeSnippet(w, src, n.Span)
		}
	}
}

func writeSnippet(w io.Writer, src string, sp source.Span) {
	if sp.Start >= len(src) {
		return
	}
	lineStart := strings.LastIndexByte(src[:sp.Start], '\n') + 1
	lineEnd := strings.IndexByte(src[sp.Start:], '\n')
	if lineEnd < 0 {
		lineEnd = len(src)
	} else {
		lineEnd += sp.Start
	}
	fmt.Fprintf(w, "   | %s\n", src[lineStart:lineEnd])
	caretLen := sp.End - sp.Start
	if sp.End > lineEnd {
		caretLen = lineEnd - sp.Start
	}
	if caretLen < 1 {
		caretLen = 1
	}
	fmt.Fprintf(w, "   | %s%s\n", strings.Repeat(" ", sp.Start-lineStart), strings.Repeat("^", caretLen))
}

func lineCol(src string, offset int) (int, int) {
	line, col := 1, 1
	for i := 0; i < offset && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
