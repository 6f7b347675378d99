// Package compiler turns a checked syntax tree into a Jasmin class in two
// passes: Collect builds the scoped symbol tables, Generate replays them
// while emitting JVM instructions.
package compiler

import (
	"fmt"

	"github.com/strager/cmmc/ast"
	"github.com/strager/cmmc/sexy"
	"github.com/strager/cmmc/symtab"
)

// Result is everything a compilation produced. Program is nil when a fatal
// error stopped the run.
type Result struct {
	Context *symtab.Context
	Program *Program
	Errors  ErrorList
}

// OK reports whether the unit compiled without errors.
func (r *Result) OK() bool {
	return r.Program != nil && !r.Errors.HasErrors()
}

// Compile runs both passes over unit. The returned error is set only for a
// fatal problem; ordinary errors are collected in Result.Errors.
func Compile(unit *ast.Node, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	ctx := symtab.NewContext(opts.Program)
	res := &Result{Context: ctx}

	opts.logf("pass 1: collecting declarations")
	if err := Collect(ctx, unit, opts, &res.Errors); err != nil {
		res.Errors.addErr(ErrScopeImbalance, 0, err)
		return res, err
	}
	opts.logf("pass 1: %d tables, %d declarations, %d errors",
		len(ctx.Tables()), ctx.Declarations(), len(res.Errors))

	opts.logf("pass 2: generating code")
	prog, err := Generate(ctx, unit, opts, &res.Errors)
	if err != nil {
		res.Errors.addErr(ErrScopeImbalance, 0, err)
		return res, err
	}
	res.Program = prog
	opts.logf("pass 2: %d methods, %d errors", len(prog.Methods), len(res.Errors))
	return res, nil
}

// CompileSource parses a tree in its s-expression form and compiles it.
func CompileSource(source string, opts Options) (*Result, error) {
	tree, err := sexy.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	unit, err := ast.FromSexy(tree)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return Compile(unit, opts)
}
