// Package repl provides an interactive type-checking loop: source
// lines accumulate into a virtual file that is re-checked on every
// entry. No evaluation happens; the REPL reports types and lowered
// MIR on demand.
package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/wisplang/wisp/internal/diag"
	"github.com/wisplang/wisp/internal/loader"
	"github.com/wisplang/wisp/internal/pipeline"
)

const prompt = "wisp> "

// REPL holds the accumulated declarations and the import roots.
type REPL struct {
	out    io.Writer
	reader loader.Reader
	roots  loader.Roots
	decls  []string
}

// New creates a REPL against the given import roots.
func New(out io.Writer, reader loader.Reader, roots loader.Roots) *REPL {
	return &REPL{out: out, reader: reader, roots: roots}
}

// Run reads lines until EOF or :quit.
func (r *REPL) Run() {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	color.New(color.FgCyan).Fprintln(r.out, "wisp check repl — :type <expr>, :mir <fn>, :quit")
	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			fmt.Fprintln(r.out)
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch {
		case input == ":quit" || input == ":q":
			return
		case strings.HasPrefix(input, ":type "):
			r.showType(strings.TrimPrefix(input, ":type "))
		case strings.HasPrefix(input, ":mir "):
			r.showMIR(strings.TrimPrefix(input, ":mir "))
		default:
			r.addDecl(input)
		}
	}
}

func (r *REPL) source(extra string) string {
	var sb strings.Builder
	for _, d := range r.decls {
		sb.WriteString(d)
		sb.WriteString("\n")
	}
	sb.WriteString(extra)
	return sb.String()
}

func (r *REPL) check(code string, checkOnly bool) *pipeline.Result {
	return pipeline.Run(pipeline.Config{
		Reader:    r.reader,
		Roots:     r.roots,
		CheckOnly: checkOnly,
	}, pipeline.Source{Path: "<repl>", Code: code})
}

// addDecl accepts a declaration if the accumulated file still checks.
func (r *REPL) addDecl(input string) {
	res := r.check(r.source(input), true)
	if res.Failed {
		diag.Render(r.out, r.source(input), res.Diags)
		return
	}
	r.decls = append(r.decls, input)
	color.New(color.FgGreen).Fprintln(r.out, "ok")
}

// showType wraps the expression in a probe function and reports the
// recorded type.
func (r *REPL) showType(expr string) {
	probe := fmt.Sprintf("fn __probe() {\n    let __it = %s;\n}", expr)
	code := r.source(probe)
	res := r.check(code, true)
	if res.Failed {
		diag.Render(r.out, code, res.Diags)
		return
	}
	// The let statement's hover entry carries the type.
	idx := strings.Index(code, "let __it")
	for sp, ty := range res.Ctx.SpanTypes {
		if sp.Start == idx {
			fmt.Fprintf(r.out, "%s : %s\n", expr, ty)
			return
		}
	}
	fmt.Fprintf(r.out, "%s : <unknown>\n", expr)
}

// showMIR lowers the accumulated declarations and prints one
// function.
func (r *REPL) showMIR(name string) {
	res := r.check(r.source(""), false)
	if res.Failed {
		diag.Render(r.out, r.source(""), res.Diags)
		return
	}
	if res.MIR == nil {
		fmt.Fprintln(r.out, "no MIR (nothing lowered)")
		return
	}
	for _, f := range res.MIR.Functions {
		if f.Name == name || strings.HasPrefix(f.Name, name+"<") {
			fmt.Fprint(r.out, f.String())
			return
		}
	}
	fmt.Fprintf(r.out, "no function named '%s'\n", name)
}
