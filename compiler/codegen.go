package compiler

import (
	"fmt"

	"github.com/strager/cmmc/ast"
	"github.com/strager/cmmc/symtab"
	"github.com/strager/cmmc/types"
)

// generator is the code generation pass. It replays the scopes built by
// the declaration pass and only reads the context, apart from the marker
// naming the function being generated.
type generator struct {
	ctx     *symtab.Context
	stack   *symtab.Stack
	opts    Options
	errs    *ErrorList
	program *Program
	out     *emitter
	// seq counts the declarations visited so far, in the same order the
	// declaration pass numbered them.
	seq     int
	loops   []loopLabels
	defined map[string]bool
}

type loopLabels struct {
	brk, cont string
}

// Generate runs the code generation pass over unit, which must have been
// collected into ctx.
func Generate(ctx *symtab.Context, unit *ast.Node, opts Options, errs *ErrorList) (prog *Program, err error) {
	g := &generator{
		ctx:     ctx,
		stack:   ctx.Replay(),
		opts:    opts,
		errs:    errs,
		program: &Program{Name: ctx.Program()},
		defined: make(map[string]bool),
	}
	defer recoverFatal(&err)

	clinit := &emitter{}
	for _, item := range unit.Children {
		switch item.Kind {
		case ast.NodeDecl:
			g.out = clinit
			g.declare(item)
		case ast.NodeFunc:
			g.function(item)
		}
	}
	if err := g.stack.Balanced(); err != nil {
		return nil, err
	}

	for _, sym := range ctx.Global().Symbols() {
		tag, err := types.Tag(sym.Type())
		if err != nil {
			return nil, err
		}
		g.program.Fields = append(g.program.Fields, Field{Name: sym.Name(), Tag: tag})
	}
	if len(clinit.code) > 0 {
		clinit.emit("return")
		init := &Method{Name: "<clinit>", Descriptor: "()V", Stack: opts.StackLimit, Code: clinit.code}
		g.program.Methods = append([]*Method{init}, g.program.Methods...)
	}
	if !opts.NoEntryPoint {
		g.entryPoint()
	}
	return g.program, nil
}

func (g *generator) function(fn *ast.Node) {
	if g.defined[fn.String] {
		// a redefinition; the declaration pass skipped it too
		return
	}
	g.defined[fn.String] = true
	sig, _ := g.ctx.Function(fn.String)
	g.opts.logf("codegen: function %s%s", fn.String, descriptor(sig))

	g.ctx.SetCurrentFunction(fn.String)
	defer g.ctx.SetCurrentFunction("")
	g.out = &emitter{}

	withScope(g.stack, symtab.Function, fn.String, func() {
		for _, p := range fn.Params() {
			if g.declared(p.String) != nil {
				g.seq++
			}
		}
		g.statements(fn.Body().Children)
	})

	if !g.out.endsWithExit() {
		g.emitReturn(sig.Return)
	}
	g.program.Methods = append(g.program.Methods, &Method{
		Name:       fn.String,
		Descriptor: descriptor(sig),
		Public:     true,
		Locals:     g.ctx.FrameSize(fn.String),
		Stack:      g.opts.StackLimit,
		Code:       g.out.code,
	})
}

// emitReturn leaves a function that fell off its end, returning zero
// when it has a value to return.
func (g *generator) emitReturn(k types.Kind) {
	if k == types.Void {
		g.out.emit("return")
		return
	}
	prefix, _ := types.Prefix(k)
	g.out.emit(constant(k, 0))
	g.out.emit("%creturn", prefix)
}

// entryPoint adds the JVM main method that calls a parameterless main.
func (g *generator) entryPoint() {
	sig, ok := g.ctx.Function("main")
	if !ok || len(sig.Params) > 0 {
		return
	}
	code := []string{fmt.Sprintf("invokestatic %s/main%s", g.program.Name, descriptor(sig))}
	if sig.Return != types.Void {
		code = append(code, pop(sig.Return))
	}
	code = append(code, "return")
	g.program.Methods = append(g.program.Methods, &Method{
		Name:       "main",
		Descriptor: "([Ljava/lang/String;)V",
		Public:     true,
		Locals:     1,
		Stack:      g.opts.StackLimit,
		Code:       code,
	})
}

// declared returns the symbol the declaration pass created for the
// declarator of name being visited now, or nil when that declarator was a
// rejected duplicate.
func (g *generator) declared(name string) *symtab.Symbol {
	sym := g.stack.Current().LookupSymbol(name)
	if sym == nil || sym.Seq() != g.seq {
		return nil
	}
	return sym
}

func (g *generator) declare(d *ast.Node) {
	for _, v := range d.Children {
		sym := g.declared(v.String)
		if sym == nil {
			continue
		}
		if sym.HasInitializer() {
			mark := g.out.mark()
			if g.exprTo(v.Children[0], sym.Type()) {
				g.store(sym, g.stack.Depth()-1)
			} else {
				g.out.truncate(mark)
			}
		}
		g.seq++
	}
}

func (g *generator) statements(stmts []*ast.Node) {
	for _, s := range stmts {
		g.statement(s)
	}
}

func (g *generator) statement(s *ast.Node) {
	switch s.Kind {
	case ast.NodeDecl:
		g.declare(s)
	case ast.NodeBlock:
		withScope(g.stack, symtab.Anonymous, "", func() {
			g.statements(s.Children)
		})
	case ast.NodeIf:
		elseLabel := g.out.newLabel()
		g.branchUnless(s.Children[0], elseLabel)
		withScope(g.stack, symtab.Conditional, "if", func() {
			g.statements(statements(s.Children[1]))
		})
		if len(s.Children) > 2 {
			end := g.out.newLabel()
			g.out.emit("goto %s", end)
			g.out.label(elseLabel)
			withScope(g.stack, symtab.Conditional, "else", func() {
				g.statements(statements(s.Children[2]))
			})
			g.out.label(end)
		} else {
			g.out.label(elseLabel)
		}
	case ast.NodeWhile:
		cond, end := g.out.newLabel(), g.out.newLabel()
		g.out.label(cond)
		g.branchUnless(s.Children[0], end)
		withScope(g.stack, symtab.Loop, "while", func() {
			g.loop(end, cond, statements(s.Children[1]))
		})
		g.out.emit("goto %s", cond)
		g.out.label(end)
	case ast.NodeDoWhile:
		body, cont, end := g.out.newLabel(), g.out.newLabel(), g.out.newLabel()
		g.out.label(body)
		withScope(g.stack, symtab.Loop, "do", func() {
			g.loop(end, cont, statements(s.Children[0]))
		})
		g.out.label(cont)
		g.branchIf(s.Children[1], body)
		g.out.label(end)
	case ast.NodeFor:
		withScope(g.stack, symtab.Loop, "for", func() {
			g.forLoop(s)
		})
	case ast.NodeReturn:
		g.ret(s)
	case ast.NodeBreak, ast.NodeContinue:
		if len(g.loops) == 0 {
			word := "break"
			if s.Kind == ast.NodeContinue {
				word = "continue"
			}
			g.errs.add(ErrInvalidType, s.Line, "%s statement not within a loop", word)
			return
		}
		l := g.loops[len(g.loops)-1]
		if s.Kind == ast.NodeBreak {
			g.out.emit("goto %s", l.brk)
		} else {
			g.out.emit("goto %s", l.cont)
		}
	case ast.NodePrint:
		g.print(s)
	case ast.NodeExprStmt:
		g.discard(s.Children[0])
	}
}

func (g *generator) forLoop(s *ast.Node) {
	init, cond, step, body := s.Children[0], s.Children[1], s.Children[2], s.Children[3]
	g.statement(init)

	top, next, end := g.out.newLabel(), g.out.newLabel(), g.out.newLabel()
	g.out.label(top)
	if cond.Kind != ast.NodeEmpty {
		g.branchUnless(cond, end)
	}
	// the step is generated after the body but must not see names the
	// body declares
	stepSeq := g.seq
	g.loop(end, next, statements(body))
	g.out.label(next)
	if step.Kind != ast.NodeEmpty {
		bodySeq := g.seq
		g.seq = stepSeq
		g.discard(step)
		g.seq = bodySeq
	}
	g.out.emit("goto %s", top)
	g.out.label(end)
}

func (g *generator) loop(brk, cont string, body []*ast.Node) {
	g.loops = append(g.loops, loopLabels{brk: brk, cont: cont})
	defer func() { g.loops = g.loops[:len(g.loops)-1] }()
	g.statements(body)
}

// branchUnless jumps to label when cond is false.
func (g *generator) branchUnless(cond *ast.Node, label string) {
	g.branch(cond, "ifeq", label)
}

// branchIf jumps to label when cond is true.
func (g *generator) branchIf(cond *ast.Node, label string) {
	g.branch(cond, "ifne", label)
}

func (g *generator) branch(cond *ast.Node, jump, label string) {
	mark := g.out.mark()
	k, ok := g.expr(cond)
	if !ok {
		return
	}
	if k == types.Void {
		g.out.truncate(mark)
		g.errs.add(ErrInvalidType, cond.Line, "void value used as a condition")
		return
	}
	g.out.emitAll(truthTest(k))
	g.out.emit("%s %s", jump, label)
}

func (g *generator) ret(s *ast.Node) {
	name, _ := g.ctx.CurrentFunction()
	sig, _ := g.ctx.Function(name)
	if len(s.Children) == 0 {
		if sig.Return != types.Void {
			g.errs.add(ErrInvalidType, s.Line, "function '%s' must return a %s", name, sig.Return)
			return
		}
		g.out.emit("return")
		return
	}
	if sig.Return == types.Void {
		mark := g.out.mark()
		if _, ok := g.expr(s.Children[0]); ok {
			g.errs.add(ErrInvalidType, s.Line, "void function '%s' returns a value", name)
		}
		g.out.truncate(mark)
		return
	}
	mark := g.out.mark()
	if !g.exprTo(s.Children[0], sig.Return) {
		g.out.truncate(mark)
		return
	}
	prefix, _ := types.Prefix(sig.Return)
	g.out.emit("%creturn", prefix)
}

func (g *generator) print(s *ast.Node) {
	mark := g.out.mark()
	g.out.emit("getstatic java/lang/System/out Ljava/io/PrintStream;")
	k, ok := g.expr(s.Children[0])
	if !ok {
		g.out.truncate(mark)
		return
	}
	switch {
	case k == types.Void:
		g.out.truncate(mark)
		g.errs.add(ErrInvalidType, s.Line, "cannot print a void value")
	case k.IsUnsigned():
		g.out.emit("invokestatic java/lang/Integer/toUnsignedString(I)Ljava/lang/String;")
		g.out.emit("invokevirtual java/io/PrintStream/println(Ljava/lang/String;)V")
	default:
		g.out.emit("invokevirtual java/io/PrintStream/println(%c)V", printTag(k))
	}
}

func printTag(k types.Kind) byte {
	switch k {
	case types.Bool, types.Char, types.Long, types.Float, types.Double:
		tag, _ := types.Tag(k)
		return tag
	default:
		return 'I'
	}
}

// discard generates e for its side effects only.
func (g *generator) discard(e *ast.Node) {
	switch e.Kind {
	case ast.NodeAssign:
		g.assign(e, false)
		return
	case ast.NodeIncDec:
		g.incDec(e, false)
		return
	}
	k, ok := g.expr(e)
	if ok && k != types.Void {
		g.out.emit(pop(k))
	}
}

func (g *generator) load(sym *symtab.Symbol, depth int) {
	ins, err := loadInstruction(g.ctx.Program(), sym, depth)
	if err != nil {
		fatal(err)
	}
	g.out.emit("%s", ins)
}

func (g *generator) store(sym *symtab.Symbol, depth int) {
	ins, err := storeInstruction(g.ctx.Program(), sym, depth)
	if err != nil {
		fatal(err)
	}
	g.out.emit("%s", ins)
}
