package compiler

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/nalgeon/be"
	"github.com/strager/cmmc/ast"
	"github.com/strager/cmmc/sexy"
	"github.com/strager/cmmc/symtab"
	"github.com/strager/cmmc/types"
)

func compile(t *testing.T, source string) *Result {
	t.Helper()
	res, err := CompileSource(source, Options{Program: "P", NoEntryPoint: true})
	be.Err(t, err, nil)
	return res
}

func methodCode(t *testing.T, res *Result, name string) []string {
	t.Helper()
	m := res.Program.Method(name)
	if m == nil {
		t.Fatalf("no method %s", name)
	}
	return m.Code
}

func TestGlobalAndLocalAddressing(t *testing.T) {
	res := compile(t, `(unit
		(decl int x)
		(func void f [(int a)] (block (decl int (y (+ a x))))))`)

	be.Equal(t, res.Errors.HasErrors(), false)
	be.Equal(t, methodCode(t, res, "f"), []string{
		"iload 0",
		"getstatic P/x I",
		"iadd",
		"istore 1",
		"return",
	})

	f := res.Context.Table("f")
	be.Equal(t, f.LookupSymbol("a").ID(), 0)
	be.Equal(t, f.LookupSymbol("y").ID(), 1)
	be.Equal(t, f.LookupSymbol("y").Slot(), 1)
	be.True(t, f.LookupSymbol("y").HasInitializer())
}

func TestShadowing(t *testing.T) {
	res := compile(t, `(unit
		(decl int x)
		(func void f [] (block
			(block (decl double (x 1.5)) (= x 2))
			(= x 3))))`)

	be.Equal(t, res.Errors.HasErrors(), false)
	be.Equal(t, methodCode(t, res, "f"), []string{
		"ldc2_w 1.5",
		"dstore 0",
		"iconst_2",
		"i2d",
		"dstore 0",
		"iconst_3",
		"putstatic P/x I",
		"return",
	})
	be.Equal(t, res.Context.Table("block_0").LookupSymbol("x").Type(), types.Double)
}

func TestDuplicateDeclaration(t *testing.T) {
	res := compile(t, "(unit (func void f [] (block\n(decl int x)\n(decl double x))))")

	be.Equal(t, len(res.Errors), 1)
	be.Err(t, res.Errors[0], ErrDuplicateSymbol)
	be.Equal(t, res.Errors[0].Error(), "line 3: error: variable 'x' already declared")
	f := res.Context.Table("f")
	be.Equal(t, f.Size(), 1)
	be.Equal(t, f.LookupSymbol("x").Type(), types.Int)
}

func TestMixedArithmetic(t *testing.T) {
	res := compile(t, "(unit (func double f [(int i) (double d)] (block (return (+ i d)))))")

	be.Equal(t, res.Errors.HasErrors(), false)
	be.Equal(t, methodCode(t, res, "f"), []string{
		"iload 0",
		"i2d",
		"dload 1",
		"dadd",
		"dreturn",
	})
	be.Equal(t, res.Program.Method("f").Descriptor, "(ID)D")
	be.Equal(t, res.Program.Method("f").Locals, 3)
}

func TestShiftOfDouble(t *testing.T) {
	res := compile(t, `(unit (func void f [(double d)] (block
		(decl int (y 1))
		(= y (<< d 1))
		(= y 2))))`)

	be.Equal(t, len(res.Errors), 1)
	be.Err(t, res.Errors[0], ErrInvalidType)
	be.True(t, strings.Contains(res.Errors[0].Msg, "shift operator requires integer operands"))
	be.Equal(t, methodCode(t, res, "f"), []string{
		"iconst_1",
		"istore 2",
		"iconst_2",
		"istore 2",
		"return",
	})
}

func TestUndefinedVariable(t *testing.T) {
	res := compile(t, "(unit (func void f [] (block (print z) (print 1))))")

	be.Equal(t, len(res.Errors), 1)
	be.Err(t, res.Errors[0], ErrUndefinedSymbol)
	be.Equal(t, res.Errors[0].Msg, "undefined variable 'z'")
	be.Equal(t, methodCode(t, res, "f"), []string{
		"getstatic java/lang/System/out Ljava/io/PrintStream;",
		"iconst_1",
		"invokevirtual java/io/PrintStream/println(I)V",
		"return",
	})
}

func TestUseBeforeDeclaration(t *testing.T) {
	res := compile(t, `(unit
		(func int f [] (block (= x 1) (decl int x) (return g)))
		(decl int g))`)

	be.Equal(t, res.Errors.Count(ErrUndefinedSymbol), 2)
	be.Equal(t, res.Errors[0].Msg, "undefined variable 'x'")
	be.Equal(t, res.Errors[1].Msg, "undefined variable 'g'")
}

func TestErrorsAreCumulative(t *testing.T) {
	res := compile(t, `(unit
		(decl int a)
		(decl int a)
		(func void f [] (block
			(print missing)
			(decl double d)
			(<< d 2)
			(break))))`)

	be.Equal(t, len(res.Errors), 4)
	be.Equal(t, res.Errors.Count(ErrDuplicateSymbol), 1)
	be.Equal(t, res.Errors.Count(ErrUndefinedSymbol), 1)
	be.Equal(t, res.Errors.Count(ErrInvalidType), 2)
	be.True(t, errors.Is(res.Errors.Err(), ErrUndefinedSymbol))
	be.True(t, res.Program != nil)
	be.Equal(t, res.OK(), false)
}

func TestSlotsOfNestedScopes(t *testing.T) {
	res := compile(t, `(unit (func void f [(long a)] (block
		(decl int b)
		(block (decl int c))
		(decl int d))))`)

	ctx := res.Context
	slots := map[string]int{}
	for _, table := range []string{"f", "block_0"} {
		for _, sym := range ctx.Table(table).Symbols() {
			slots[sym.Name()] = sym.Slot()
		}
	}
	if diff := deep.Equal(slots, map[string]int{"a": 0, "b": 2, "c": 3, "d": 3}); diff != nil {
		t.Error(diff)
	}
	be.Equal(t, ctx.Table("block_0").NestingLevel(), 2)
	be.Equal(t, res.Program.Method("f").Locals, 4)
}

func TestScopeDepthAfterPasses(t *testing.T) {
	res := compile(t, `(unit (func void f [(int n)] (block
		(if n (block (decl int a)) (decl int b))
		(while n (block (decl int c) (do (block (decl int e)) false)))
		(for (decl int (i 0)) (< i n) (post++ i) (block (decl int j))))))`)

	be.Equal(t, res.Errors.HasErrors(), false)
	be.Equal(t, res.Context.Stack().Depth(), 1)
	be.Err(t, res.Context.Stack().Balanced(), nil)

	var names []string
	for _, table := range res.Context.Tables() {
		names = append(names, table.Name())
	}
	be.Equal(t, names, []string{"global", "f", "if_0", "else_1", "while_2", "do_3", "for_4"})
	be.Equal(t, res.Context.Table("for_4").Kind(), symtab.Loop)
	be.Equal(t, res.Context.Table("else_1").Kind(), symtab.Conditional)
	be.True(t, res.Context.Table("for_4").SymbolExists("j"))
}

func TestForStepDoesNotSeeBodyDeclarations(t *testing.T) {
	res := compile(t, `(unit (func void f [] (block
		(for (decl int (i 0)) (< i 3) (= j i) (decl int j)))))`)

	be.Equal(t, res.Errors.Count(ErrUndefinedSymbol), 1)
	be.Equal(t, res.Errors[0].Msg, "undefined variable 'j'")
}

func TestReferenceLines(t *testing.T) {
	res := compile(t, "(unit\n(decl int x)\n(func void f [] (block\n(= x 1)\n(print x))))")

	be.Equal(t, res.Context.Global().LookupSymbol("x").Lines(), []int{4, 5})
}

func TestDuplicateFunction(t *testing.T) {
	res := compile(t, `(unit
		(func void f [] (block))
		(func int f [] (block (return missing))))`)

	be.Equal(t, len(res.Errors), 1)
	be.Err(t, res.Errors[0], ErrDuplicateSymbol)
	be.Equal(t, res.Errors[0].Msg, "function 'f' already defined")
	be.Equal(t, len(res.Program.Methods), 1)
	be.Equal(t, res.Program.Method("f").Descriptor, "()V")
}

func TestInvalidDeclarationTypes(t *testing.T) {
	res := compile(t, `(unit
		(decl void v)
		(decl (unsigned double) u)
		(func void f [(void p)] (block (print (+ v p)))))`)

	be.Equal(t, res.Errors.Count(ErrInvalidType), 3)
	be.Equal(t, res.Errors.Count(ErrUndefinedSymbol), 0)
	be.Equal(t, res.Context.Global().LookupSymbol("v").Type(), types.Int)
}

func TestGlobalInitializers(t *testing.T) {
	res := compile(t, "(unit (decl int (x 5)) (decl double (y x)) (decl long z))")

	be.Equal(t, methodCode(t, res, "<clinit>"), []string{
		"iconst_5",
		"putstatic P/x I",
		"getstatic P/x I",
		"i2d",
		"putstatic P/y D",
		"return",
	})
	if diff := deep.Equal(res.Program.Fields, []Field{{"x", 'I'}, {"y", 'D'}, {"z", 'J'}}); diff != nil {
		t.Error(diff)
	}
}

func TestProgramText(t *testing.T) {
	res, err := CompileSource("(unit (decl int g) (func int main [] (block (return g))))", Options{Program: "Demo"})
	be.Err(t, err, nil)

	want := `.class public Demo
.super java/lang/Object

.field public static g I

.method public <init>()V
	aload_0
	invokenonvirtual java/lang/Object/<init>()V
	return
.end method

.method public static main()I
	.limit stack 32
	.limit locals 0
	getstatic Demo/g I
	ireturn
.end method

.method public static main([Ljava/lang/String;)V
	.limit stack 32
	.limit locals 1
	invokestatic Demo/main()I
	pop
	return
.end method
`
	be.Equal(t, res.Program.Text(), want)
}

func TestDefaultOptions(t *testing.T) {
	res, err := CompileSource("(unit (func void f [] (block)))", Options{})
	be.Err(t, err, nil)
	be.Equal(t, res.Program.Name, DefaultProgram)
	be.Equal(t, res.Program.Method("f").Stack, DefaultStackLimit)
	be.Equal(t, len(res.Program.Methods), 1)
}

func TestVerboseLogging(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{Logger: log.New(&buf, "", 0)}
	_, err := CompileSource("(unit (decl int x) (func void f [] (block)))", opts)
	be.Err(t, err, nil)

	out := buf.String()
	be.True(t, strings.Contains(out, "pass 1: collecting declarations"))
	be.True(t, strings.Contains(out, "collect: int x in global slot 0"))
	be.True(t, strings.Contains(out, "codegen: function f()V"))
}

func TestParseErrors(t *testing.T) {
	_, err := CompileSource("(unit (decl int x)", Options{})
	be.Err(t, err, "parse error")
	_, err = CompileSource("(decl int x)", Options{})
	be.Err(t, err, "expected (unit ...)")
}

func mustUnit(t *testing.T, source string) *ast.Node {
	t.Helper()
	tree, err := sexy.Parse(source)
	be.Err(t, err, nil)
	unit, err := ast.FromSexy(tree)
	be.Err(t, err, nil)
	return unit
}

func TestCodegenLeavesContextUnchanged(t *testing.T) {
	unit := mustUnit(t, `(unit (decl int g) (func int f [(int a)] (block
		(decl int b)
		(block (decl int c))
		(return (+ a g)))))`)
	res, err := Compile(unit, Options{Program: "P"})
	be.Err(t, err, nil)

	before := res.Context.Dump()
	lines := res.Context.Global().LookupSymbol("g").Lines()
	prog, err := Generate(res.Context, unit, Options{Program: "P", StackLimit: 8}, &ErrorList{})
	be.Err(t, err, nil)
	be.Equal(t, prog.Method("f").Code, res.Program.Method("f").Code)
	be.Equal(t, res.Context.Dump(), before)
	be.Equal(t, res.Context.Global().LookupSymbol("g").Lines(), lines)
	_, current := res.Context.CurrentFunction()
	be.Equal(t, current, false)
}

func TestFunctionsNamedLikeScopes(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"global", "(unit (func int global [] (block (return 1))))"},
		{"if_0", "(unit (func void f [(int n)] (block (if n (print n)))) (func int if_0 [] (block (return 1))))"},
		{"block_0", "(unit (func int block_0 [] (block (return 1))) (func void f [] (block (block (decl int k)))))"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res, err := CompileSource(test.source, Options{Program: "P", NoEntryPoint: true})
			be.Err(t, err, nil)
			be.Equal(t, res.Errors.String(), "")
			be.True(t, res.OK())
			be.Equal(t, methodCode(t, res, test.name), []string{"iconst_1", "ireturn"})
			be.Equal(t, res.Context.FunctionTable(test.name).Kind(), symtab.Function)
			be.True(t, res.Context.Table(test.name).Kind() != symtab.Function)
		})
	}
}

func TestMalformedTopLevelItem(t *testing.T) {
	unit := mustUnit(t, "(unit (decl int x))")
	unit.Children = append(unit.Children, &ast.Node{Kind: ast.NodeBlock, Line: 4})

	res, err := Compile(unit, Options{Program: "P"})
	be.Err(t, err, nil)
	be.Equal(t, len(res.Errors), 1)
	be.Err(t, res.Errors[0], ErrMalformedTree)
	be.Equal(t, res.Errors.Count(ErrScopeImbalance), 0)
	be.True(t, res.Program != nil)
}

func TestReferenceLinesFollowDeclarationOrder(t *testing.T) {
	res := compile(t, "(unit\n(decl int x)\n(func void f [] (block\n(block\n(= x 1)\n(decl int x)\n(= x 2)))))")

	be.Equal(t, res.Errors.String(), "")
	be.Equal(t, res.Context.Global().LookupSymbol("x").Lines(), []int{5})
	be.Equal(t, res.Context.Table("block_0").LookupSymbol("x").Lines(), []int{7})
	be.Equal(t, methodCode(t, res, "f"), []string{
		"iconst_1",
		"putstatic P/x I",
		"iconst_2",
		"istore 0",
		"return",
	})
}
