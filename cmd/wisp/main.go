// Command wisp drives the compiler core: check a file, dump its MIR,
// or start the type-checking repl.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wisplang/wisp/internal/diag"
	"github.com/wisplang/wisp/internal/loader"
	"github.com/wisplang/wisp/internal/manifest"
	"github.com/wisplang/wisp/internal/pipeline"
	"github.com/wisplang/wisp/internal/repl"
)

func main() {
	// Optional .env for WISP_STD / WISP_PKGS overrides.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "wisp",
		Short:         "wisp compiler front/middle end",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(checkCmd(), mirCmd(), replCmd())

	if err := root.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error")
		fmt.Fprintf(os.Stderr, ": %v\n", err)
		os.Exit(1)
	}
}

// roots resolves the injected import roots: WISP_STD and WISP_PKGS
// from the environment, the project root by walking parents for the
// wisp.yaml marker.
func roots(reader loader.Reader, file string) loader.Roots {
	r := loader.Roots{
		Std:      os.Getenv("WISP_STD"),
		Packages: os.Getenv("WISP_PKGS"),
	}
	if r.Std == "" {
		r.Std = "std"
	}
	if r.Packages == "" {
		r.Packages = "packages"
	}
	dir := filepath.Dir(file)
	if _, projectRoot, err := manifest.Find(reader, dir); err == nil {
		r.Project = projectRoot
	} else {
		r.Project = dir
	}
	return r
}

func runPipeline(file string, checkOnly bool) (*pipeline.Result, string, error) {
	reader := loader.NewFS()
	code, err := reader.Read(file)
	if err != nil {
		return nil, "", err
	}
	res := pipeline.Run(pipeline.Config{
		Reader:    reader,
		Roots:     roots(reader, file),
		CheckOnly: checkOnly,
	}, pipeline.Source{Path: file, Code: string(code)})
	return res, string(code), nil
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.ws>",
		Short: "Parse, resolve, type-check and borrow-check a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, code, err := runPipeline(args[0], true)
			if err != nil {
				return err
			}
			if res.Failed {
				diag.Render(os.Stderr, code, res.Diags)
				return fmt.Errorf("%s failed with %d errors", res.FailedPhase, len(res.Diags))
			}
			color.New(color.FgGreen).Printf("ok: %s\n", args[0])
			return nil
		},
	}
}

func mirCmd() *cobra.Command {
	var fnFilter string
	cmd := &cobra.Command{
		Use:   "mir <file.ws>",
		Short: "Lower a file and print its MIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, code, err := runPipeline(args[0], false)
			if err != nil {
				return err
			}
			if res.Failed {
				diag.Render(os.Stderr, code, res.Diags)
				return fmt.Errorf("%s failed with %d errors", res.FailedPhase, len(res.Diags))
			}
			for _, f := range res.MIR.Functions {
				if fnFilter != "" && f.Name != fnFilter {
					continue
				}
				fmt.Print(f.String())
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&fnFilter, "fn", "", "print only the named function")
	return cmd
}

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive type-checking repl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := loader.NewFS()
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			repl.New(os.Stdout, reader, roots(reader, filepath.Join(wd, "repl.ws"))).Run()
			return nil
		},
	}
}
