package compiler

import (
	"github.com/strager/cmmc/ast"
	"github.com/strager/cmmc/symtab"
	"github.com/strager/cmmc/types"
)

// collector is the declaration pass. It builds one table per scope,
// declares every variable and parameter, registers function signatures and
// records the lines each name is referenced on.
type collector struct {
	ctx   *symtab.Context
	stack *symtab.Stack
	opts  Options
	errs  *ErrorList
}

// Collect runs the declaration pass over unit, filling ctx. Recoverable
// problems go to errs; the returned error is fatal.
func Collect(ctx *symtab.Context, unit *ast.Node, opts Options, errs *ErrorList) (err error) {
	c := &collector{ctx: ctx, stack: ctx.Stack(), opts: opts, errs: errs}
	defer recoverFatal(&err)

	for _, item := range unit.Children {
		switch item.Kind {
		case ast.NodeFunc:
			c.function(item)
		case ast.NodeDecl:
			c.decl(item)
		default:
			c.errs.add(ErrMalformedTree, item.Line, "unexpected %s at top level", item.Kind)
		}
	}
	return c.stack.Balanced()
}

func (c *collector) function(fn *ast.Node) {
	sig := symtab.Signature{}
	ret, err := kindOf(fn.Specifiers, true)
	if err != nil {
		c.errs.addErr(ErrInvalidType, fn.Line, err)
		ret = types.Int
	}
	sig.Return = ret
	for _, p := range fn.Params() {
		sig.Params = append(sig.Params, c.paramKind(p))
	}

	if err := c.ctx.RegisterFunction(fn.String, sig); err != nil {
		c.errs.add(ErrDuplicateSymbol, fn.Line, "function '%s' already defined", fn.String)
		return
	}
	c.opts.logf("collect: function %s%s", fn.String, descriptor(sig))

	withScope(c.stack, symtab.Function, fn.String, func() {
		for i, p := range fn.Params() {
			if _, err := c.stack.Declare(p.String, sig.Params[i], false); err != nil {
				c.errs.add(ErrDuplicateSymbol, p.Line, "parameter '%s' already declared", p.String)
			}
		}
		c.statements(fn.Body().Children)
	})
}

// paramKind resolves a parameter's type, reporting and substituting int
// for one that is invalid so the rest of the function still checks.
func (c *collector) paramKind(p *ast.Node) types.Kind {
	k, err := kindOf(p.Specifiers, false)
	if err != nil {
		c.errs.add(ErrInvalidType, p.Line, "parameter '%s': %v", p.String, err)
		return types.Int
	}
	return k
}

func (c *collector) decl(d *ast.Node) {
	k, err := kindOf(d.Specifiers, false)
	if err != nil {
		c.errs.addErr(ErrInvalidType, d.Line, err)
		k = types.Int
	}
	for _, v := range d.Children {
		hasInit := len(v.Children) > 0
		if hasInit {
			c.expr(v.Children[0])
		}
		sym, err := c.stack.Declare(v.String, k, hasInit)
		if err != nil {
			c.errs.add(ErrDuplicateSymbol, v.Line, "variable '%s' already declared", v.String)
			continue
		}
		c.opts.logf("collect: %s %s in %s slot %d", k, v.String, c.stack.Current().Name(), sym.Slot())
	}
}

func (c *collector) statements(stmts []*ast.Node) {
	for _, s := range stmts {
		c.statement(s)
	}
}

func (c *collector) statement(s *ast.Node) {
	switch s.Kind {
	case ast.NodeDecl:
		c.decl(s)
	case ast.NodeBlock:
		withScope(c.stack, symtab.Anonymous, "", func() {
			c.statements(s.Children)
		})
	case ast.NodeIf:
		c.expr(s.Children[0])
		withScope(c.stack, symtab.Conditional, "if", func() {
			c.statements(statements(s.Children[1]))
		})
		if len(s.Children) > 2 {
			withScope(c.stack, symtab.Conditional, "else", func() {
				c.statements(statements(s.Children[2]))
			})
		}
	case ast.NodeWhile:
		c.expr(s.Children[0])
		withScope(c.stack, symtab.Loop, "while", func() {
			c.statements(statements(s.Children[1]))
		})
	case ast.NodeDoWhile:
		withScope(c.stack, symtab.Loop, "do", func() {
			c.statements(statements(s.Children[0]))
		})
		c.expr(s.Children[1])
	case ast.NodeFor:
		withScope(c.stack, symtab.Loop, "for", func() {
			c.statement(s.Children[0])
			c.expr(s.Children[1])
			c.expr(s.Children[2])
			c.statements(statements(s.Children[3]))
		})
	case ast.NodeReturn, ast.NodePrint, ast.NodeExprStmt:
		for _, e := range s.Children {
			c.expr(e)
		}
	}
}

// expr records references. Unknown names are left for code generation to
// report, as it knows which declarations precede each use.
func (c *collector) expr(e *ast.Node) {
	switch e.Kind {
	case ast.NodeIdent:
		c.stack.Reference(e.String, e.Line)
	case ast.NodeEmpty:
	default:
		for _, child := range e.Children {
			c.expr(child)
		}
	}
}
