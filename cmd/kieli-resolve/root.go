// Package main implements kieli-resolve, a small driver exercising the
// resolution core end to end: it loads a YAML-described toy module
// (standing in for the out-of-scope parser/desugarer's output, spec.md
// §1's "out of scope" list), runs it through internal/core/compile and
// internal/core/eval, reifies the result (internal/core/reify), and prints
// the resolved namespace plus any diagnostics — the shape of
// cue-lang-cue/cmd/cue/cmd's eval command, minus CUE's own language
// surface.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/kieli-lang/resolvecore/internal/core/adt"
	"github.com/kieli-lang/resolvecore/internal/core/compile"
	"github.com/kieli-lang/resolvecore/internal/core/eval"
	"github.com/kieli-lang/resolvecore/internal/core/reify"
	"github.com/kieli-lang/resolvecore/internal/diag"
	"github.com/kieli-lang/resolvecore/internal/intern"
)

func newRootCmd() *cobra.Command {
	var quiet bool
	var trace bool

	cmd := &cobra.Command{
		Use:   "kieli-resolve [file.yaml]",
		Short: "resolve a YAML-described toy module and print its namespace",
		Long: "kieli-resolve loads a YAML-described toy module, runs it through\n" +
			"name resolution, type/pattern elaboration, unification, template\n" +
			"instantiation, method resolution and reification, and prints the\n" +
			"resulting function signatures plus any diagnostics. Pass \"-\" or\n" +
			"omit the argument to read from stdin.",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			data, err := readInput(path)
			if err != nil {
				return err
			}
			return run(cmd.OutOrStdout(), cmd.ErrOrStderr(), data, quiet, trace)
		},
	}

	addGlobalFlags(cmd.PersistentFlags(), &quiet, &trace)
	return cmd
}

// addGlobalFlags registers flags directly against the pflag.FlagSet cobra
// hands out, the way the teacher's own cmd/cue/cmd/flags.go builds up a
// command's flags through small addXFlags(f *pflag.FlagSet) helpers instead
// of calling the cobra wrapper inline.
func addGlobalFlags(f *pflag.FlagSet, quiet, trace *bool) {
	f.BoolVar(quiet, "quiet", false, "suppress note-level diagnostics")
	f.BoolVar(trace, "trace", false, "print unification and instantiation trace events to stderr")
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// run drives the full pipeline and writes a human-readable report to w. It
// returns an error only for fixture-level problems (malformed YAML, a type
// expression this stand-in parser can't build); resolution-time problems
// are reported as diagnostics, not Go errors, matching spec.md §7's "other
// definitions keep resolving after one fails".
func run(w, traceOut io.Writer, yamlData []byte, quiet, trace bool) error {
	var fx fixtureModule
	if err := yaml.Unmarshal(yamlData, &fx); err != nil {
		return fmt.Errorf("parsing fixture: %w", err)
	}
	surfaceMod, err := buildModule(fx)
	if err != nil {
		return fmt.Errorf("building module: %w", err)
	}

	var suppress []diag.Severity
	if quiet {
		suppress = append(suppress, diag.SeverityNote)
	}
	diagnostics := diag.NewBuilder(suppress...)
	pool := intern.NewPool()

	compiler := compile.NewCompiler(pool, diagnostics)
	root := compiler.CompileModule(surfaceMod)
	nameless := compiler.Finish()

	ctx := eval.NewContext(pool, diagnostics)
	if trace {
		ctx.SetTracer(adt.WriterTracer{W: traceOut})
	}
	ctx.SetRoot(root, nameless)
	ctx.ResolveModule(root, nameless)

	mod := ctx.CollectModule()
	reify.New(diagnostics).ReifyModule(mod)

	printReport(w, root, mod, diagnostics)
	return nil
}

func printReport(w io.Writer, root *adt.Namespace, mod *adt.Module, diagnostics *diag.Builder) {
	fmt.Fprintln(w, "structs:")
	for _, sym := range root.OrderedNames() {
		entry, ok := root.LookupUpper(sym, false)
		if !ok || entry.Struct == nil {
			continue
		}
		fmt.Fprintln(w, "  "+describeStruct(entry.Struct))
	}

	fmt.Fprintln(w, "functions:")
	for _, fn := range mod.Functions {
		fmt.Fprintln(w, "  "+describeFunction(fn))
	}

	diagnostics.Sort()
	ds := diagnostics.Diagnostics()
	if len(ds) == 0 {
		fmt.Fprintln(w, "\nno diagnostics")
		return
	}
	fmt.Fprintf(w, "\n%d diagnostic(s):\n", len(ds))
	fmt.Fprintln(w, diagnostics.String())
}
