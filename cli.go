package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/strager/cmmc/compiler"
)

var errCompilationFailed = errors.New("compilation failed")

type settings struct {
	program    string
	stackLimit int
	verbose    bool
	out        string
	noMain     bool
}

func newRootCmd() *cobra.Command {
	s := &settings{}
	root := &cobra.Command{
		Use:   "cmmc",
		Short: "cmmc compiles C-like syntax trees to Jasmin assembler for the JVM",
		Long: `cmmc compiles programs of a small C-like language, written as
s-expression syntax trees, into Jasmin classes for the JVM.

Commands:
  build    Compile a tree file to a Jasmin (.j) class
  check    Run both passes and report errors
  symbols  Print the symbol tables built for a tree file
  repl     Enter declarations and functions interactively
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&s.program, "program", "p", "", "class name (default: the file's base name)")
	root.PersistentFlags().IntVar(&s.stackLimit, "stack", compiler.DefaultStackLimit, "operand stack limit of every method")
	root.PersistentFlags().BoolVarP(&s.verbose, "verbose", "v", false, "trace both compiler passes")

	build := &cobra.Command{
		Use:   "build <file>",
		Short: "Compile a tree file to a Jasmin (.j) class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, s, args[0])
		},
	}
	build.Flags().StringVarP(&s.out, "out", "o", "", "output file (default: <program>.j next to the input)")
	build.Flags().BoolVar(&s.noMain, "no-main", false, "do not emit the main([Ljava/lang/String;)V entry point")

	check := &cobra.Command{
		Use:   "check <file>",
		Short: "Run both passes and report errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, s, args[0])
		},
	}

	symbols := &cobra.Command{
		Use:   "symbols <file>",
		Short: "Print the symbol tables built for a tree file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSymbols(cmd, s, args[0])
		},
	}

	repl := &cobra.Command{
		Use:   "repl",
		Short: "Enter declarations and functions interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd.OutOrStdout(), s.options(cmd.ErrOrStderr(), "Repl"))
		},
	}

	root.AddCommand(build, check, symbols, repl)
	return root
}

func (s *settings) options(logOut io.Writer, fallback string) compiler.Options {
	opts := compiler.Options{
		Program:      s.program,
		StackLimit:   s.stackLimit,
		NoEntryPoint: s.noMain,
	}
	if opts.Program == "" {
		opts.Program = fallback
	}
	if s.verbose {
		opts.Logger = log.New(logOut, "cmmc: ", 0)
	}
	return opts
}

// programName derives a class name from a file name.
func programName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func compileFile(cmd *cobra.Command, s *settings, filename string) (*compiler.Result, error) {
	source, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", filename, err)
	}
	opts := s.options(cmd.ErrOrStderr(), programName(filename))
	if opts.Logger != nil {
		opts.Logger.Printf("compiling %s as %s", filename, opts.Program)
	}
	return compiler.CompileSource(string(source), opts)
}

// report prints the errors of res and fails when there are any.
func report(cmd *cobra.Command, filename string, res *compiler.Result) error {
	if !res.Errors.HasErrors() {
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Errors in %s:\n%s\n", filename, res.Errors.String())
	return fmt.Errorf("%w: %d errors", errCompilationFailed, len(res.Errors))
}

func runBuild(cmd *cobra.Command, s *settings, filename string) error {
	res, err := compileFile(cmd, s, filename)
	if err != nil {
		return err
	}
	if err := report(cmd, filename, res); err != nil {
		return err
	}

	output := s.out
	if output == "" {
		output = filepath.Join(filepath.Dir(filename), res.Program.Name+".j")
	}
	text := res.Program.Text()
	if err := os.WriteFile(output, []byte(text), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Generated %s (%d bytes)\n", output, len(text))
	return nil
}

func runCheck(cmd *cobra.Command, s *settings, filename string) error {
	res, err := compileFile(cmd, s, filename)
	if err != nil {
		return err
	}
	if err := report(cmd, filename, res); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: no errors found\n", filename)
	return nil
}

func runSymbols(cmd *cobra.Command, s *settings, filename string) error {
	res, err := compileFile(cmd, s, filename)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), res.Context.Dump())
	return report(cmd, filename, res)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errCompilationFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
