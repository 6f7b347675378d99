package compiler

import (
	"fmt"
	"strings"

	"github.com/strager/cmmc/ast"
	"github.com/strager/cmmc/symtab"
	"github.com/strager/cmmc/types"
)

var categories = map[string]types.Category{
	"+":  types.Arithmetic,
	"-":  types.Arithmetic,
	"*":  types.Arithmetic,
	"/":  types.Arithmetic,
	"%":  types.Arithmetic,
	"&":  types.Bitwise,
	"|":  types.Bitwise,
	"^":  types.Bitwise,
	"<<": types.Shift,
	">>": types.Shift,
	"==": types.Comparison,
	"!=": types.Comparison,
	"<":  types.Comparison,
	"<=": types.Comparison,
	">":  types.Comparison,
	">=": types.Comparison,
	"&&": types.Logical,
	"||": types.Logical,
}

var opcodes = map[string]string{
	"+":  "add",
	"-":  "sub",
	"*":  "mul",
	"/":  "div",
	"%":  "rem",
	"&":  "and",
	"|":  "or",
	"^":  "xor",
	"<<": "shl",
	">>": "shr",
}

var conditions = map[string]string{
	"==": "eq",
	"!=": "ne",
	"<":  "lt",
	"<=": "le",
	">":  "gt",
	">=": "ge",
}

// expr generates e and returns the kind of the value it leaves on the
// stack. When e is in error, nothing it generated is kept and ok is false;
// the error has already been reported.
func (g *generator) expr(e *ast.Node) (k types.Kind, ok bool) {
	mark := g.out.mark()
	k, ok = g.value(e)
	if !ok {
		g.out.truncate(mark)
	}
	return k, ok
}

// exprTo generates e converted to kind to.
func (g *generator) exprTo(e *ast.Node, to types.Kind) bool {
	k, ok := g.expr(e)
	if !ok {
		return false
	}
	return g.convert(e.Line, k, to)
}

func (g *generator) convert(line int, from, to types.Kind) bool {
	ops, err := types.Conversion(from, to)
	if err != nil {
		g.errs.add(ErrInvalidType, line, "cannot convert %s to %s", from, to)
		return false
	}
	g.out.emitAll(ops)
	return true
}

func (g *generator) fail(kind error, line int, format string, args ...any) (types.Kind, bool) {
	g.errs.add(kind, line, format, args...)
	return types.Void, false
}

func (g *generator) lookup(name string) (*symtab.Symbol, int) {
	return g.stack.LookupBefore(name, g.seq)
}

func (g *generator) value(e *ast.Node) (types.Kind, bool) {
	switch e.Kind {
	case ast.NodeIdent:
		sym, depth := g.lookup(e.String)
		if sym == nil {
			return g.fail(ErrUndefinedSymbol, e.Line, "undefined variable '%s'", e.String)
		}
		g.load(sym, depth)
		return sym.Type(), true
	case ast.NodeInteger, ast.NodeFloat, ast.NodeBool:
		return g.literal(e)
	case ast.NodeBinary:
		if categories[e.Op] == types.Logical {
			return g.logical(e)
		}
		return g.binary(e)
	case ast.NodeUnary:
		return g.unary(e)
	case ast.NodeAssign:
		return g.assign(e, true)
	case ast.NodeIncDec:
		return g.incDec(e, true)
	case ast.NodeConditional:
		return g.conditional(e)
	case ast.NodeCall:
		return g.call(e)
	case ast.NodeCast:
		return g.cast(e)
	default:
		return g.fail(ErrInvalidType, e.Line, "%s is not an expression", e.Kind)
	}
}

func (g *generator) literal(e *ast.Node) (types.Kind, bool) {
	k, err := literalKind(e)
	if err != nil {
		return g.fail(ErrInvalidType, e.Line, "%v", err)
	}
	switch {
	case k == types.Long:
		g.out.emit(longConst(e.Integer))
	case k == types.Float:
		g.out.emit(floatConst(e.Float))
	case k == types.Double:
		g.out.emit(doubleConst(e.Float))
	default:
		g.out.emit(intConst(e.Integer))
	}
	return k, true
}

// operands generates both sides of a binary operator, bringing the left one
// to left and the right one to right once their kinds are known.
func (g *generator) operands(e *ast.Node, cat types.Category) (operand types.Kind, ok bool) {
	lk, lok := g.expr(e.Children[0])
	at := g.out.mark()
	rk, rok := g.expr(e.Children[1])
	if !lok || !rok {
		return types.Void, false
	}
	operand, err := types.Resolve(lk, rk, cat)
	if err != nil {
		return g.fail(ErrInvalidType, e.Line, "%v", err)
	}
	if !g.insertConversion(e.Line, at, lk, operand) {
		return types.Void, false
	}
	return operand, g.convert(e.Line, rk, rightKind(cat, operand))
}

func (g *generator) insertConversion(line, at int, from, to types.Kind) bool {
	ops, err := types.Conversion(from, to)
	if err != nil {
		g.errs.add(ErrInvalidType, line, "cannot convert %s to %s", from, to)
		return false
	}
	g.out.insert(at, ops)
	return true
}

// rightKind is the kind the right operand is brought to. Shift counts are
// always int on the JVM.
func rightKind(cat types.Category, operand types.Kind) types.Kind {
	if cat == types.Shift {
		return types.Int
	}
	return operand
}

func (g *generator) binary(e *ast.Node) (types.Kind, bool) {
	cat, known := categories[e.Op]
	if !known {
		return g.fail(ErrInvalidType, e.Line, "unknown operator '%s'", e.Op)
	}
	operand, ok := g.operands(e, cat)
	if !ok {
		return types.Void, false
	}
	if cat == types.Comparison {
		g.compare(e.Op, operand)
	} else {
		g.arithmetic(e.Op, operand)
	}
	return types.Result(cat, operand), true
}

// arithmetic emits the instruction for an arithmetic, bitwise or shift
// operator whose operands are both of kind operand.
func (g *generator) arithmetic(op string, operand types.Kind) {
	prefix, _ := types.Prefix(operand)
	switch {
	case operand.IsUnsigned() && op == "/":
		g.out.emit("invokestatic java/lang/Integer/divideUnsigned(II)I")
	case operand.IsUnsigned() && op == "%":
		g.out.emit("invokestatic java/lang/Integer/remainderUnsigned(II)I")
	case operand.IsUnsigned() && op == ">>":
		g.out.emit("%cushr", prefix)
	default:
		g.out.emit("%c%s", prefix, opcodes[op])
	}
}

// compare turns two operands of kind operand into a bool.
func (g *generator) compare(op string, operand types.Kind) {
	cc := conditions[op]
	yes, end := g.out.newLabel(), g.out.newLabel()
	switch {
	case operand.IsUnsigned():
		g.out.emit("invokestatic java/lang/Integer/compareUnsigned(II)I")
		g.out.emit("if%s %s", cc, yes)
	case operand == types.Long:
		g.out.emit("lcmp")
		g.out.emit("if%s %s", cc, yes)
	case operand == types.Float || operand == types.Double:
		prefix, _ := types.Prefix(operand)
		// NaN makes every ordered comparison false
		if op == "<" || op == "<=" {
			g.out.emit("%ccmpg", prefix)
		} else {
			g.out.emit("%ccmpl", prefix)
		}
		g.out.emit("if%s %s", cc, yes)
	default:
		g.out.emit("if_icmp%s %s", cc, yes)
	}
	g.pushBool(yes, end, false)
}

// pushBool pushes fall on the fallthrough path and its negation at yes.
func (g *generator) pushBool(yes, end string, fall bool) {
	if fall {
		g.out.emit("iconst_1")
	} else {
		g.out.emit("iconst_0")
	}
	g.out.emit("goto %s", end)
	g.out.label(yes)
	if fall {
		g.out.emit("iconst_0")
	} else {
		g.out.emit("iconst_1")
	}
	g.out.label(end)
}

// logical generates && and || with short-circuit evaluation.
func (g *generator) logical(e *ast.Node) (types.Kind, bool) {
	jump := "ifeq"
	if e.Op == "||" {
		jump = "ifne"
	}
	exit, end := g.out.newLabel(), g.out.newLabel()

	lk, lok := g.expr(e.Children[0])
	at := g.out.mark()
	rk, rok := g.expr(e.Children[1])
	if !lok || !rok {
		return types.Void, false
	}
	operand, err := types.Resolve(lk, rk, types.Logical)
	if err != nil {
		return g.fail(ErrInvalidType, e.Line, "%v", err)
	}

	lconv, _ := types.Conversion(lk, operand)
	left := append(lconv, truthTest(operand)...)
	g.out.insert(at, append(left, fmt.Sprintf("%s %s", jump, exit)))
	g.convert(e.Line, rk, operand)
	g.out.emitAll(truthTest(operand))
	g.out.emit("%s %s", jump, exit)
	// && falls through to true, || to false
	g.pushBool(exit, end, e.Op == "&&")
	return types.Bool, true
}

func (g *generator) unary(e *ast.Node) (types.Kind, bool) {
	k, ok := g.expr(e.Children[0])
	if !ok {
		return types.Void, false
	}
	switch e.Op {
	case "!":
		if k == types.Void {
			return g.fail(ErrInvalidType, e.Line, "invalid operand of type void to '!'")
		}
		g.out.emitAll(truthTest(k))
		yes, end := g.out.newLabel(), g.out.newLabel()
		g.out.emit("ifeq %s", yes)
		g.pushBool(yes, end, false)
		return types.Bool, true
	case "-", "+":
		operand, err := types.Resolve(k, k, types.Arithmetic)
		if err != nil {
			return g.fail(ErrInvalidType, e.Line, "%v", err)
		}
		g.convert(e.Line, k, operand)
		if e.Op == "-" {
			prefix, _ := types.Prefix(operand)
			g.out.emit("%cneg", prefix)
		}
		return operand, true
	case "~":
		operand, err := types.Resolve(k, k, types.Bitwise)
		if err != nil {
			return g.fail(ErrInvalidType, e.Line, "%v", err)
		}
		g.convert(e.Line, k, operand)
		if operand == types.Long {
			g.out.emit("ldc2_w -1")
			g.out.emit("lxor")
		} else {
			g.out.emit("iconst_m1")
			g.out.emit("ixor")
		}
		return operand, true
	default:
		return g.fail(ErrInvalidType, e.Line, "unknown operator '%s'", e.Op)
	}
}

func (g *generator) conditional(e *ast.Node) (types.Kind, bool) {
	other, end := g.out.newLabel(), g.out.newLabel()
	ck, cok := g.expr(e.Children[0])
	if cok && ck == types.Void {
		g.errs.add(ErrInvalidType, e.Line, "void value used as a condition")
		cok = false
	}
	if cok {
		g.out.emitAll(truthTest(ck))
		g.out.emit("ifeq %s", other)
	}
	tk, tok := g.expr(e.Children[1])
	at := g.out.mark()
	g.out.emit("goto %s", end)
	g.out.label(other)
	ek, eok := g.expr(e.Children[2])
	if !cok || !tok || !eok {
		return types.Void, false
	}
	common, err := types.Promote(tk, ek)
	if err != nil {
		return g.fail(ErrInvalidType, e.Line, "%v", err)
	}
	ok := g.insertConversion(e.Line, at, tk, common) && g.convert(e.Line, ek, common)
	g.out.label(end)
	return common, ok
}

// assign generates = and the compound assignments. The assigned value is
// left on the stack only when want is set.
func (g *generator) assign(e *ast.Node, want bool) (types.Kind, bool) {
	mark := g.out.mark()
	k, ok := g.assignValue(e, want)
	if !ok {
		g.out.truncate(mark)
	}
	return k, ok
}

func (g *generator) assignValue(e *ast.Node, want bool) (types.Kind, bool) {
	name := e.Children[0].String
	sym, depth := g.lookup(name)
	if sym == nil {
		g.expr(e.Children[1])
		return g.fail(ErrUndefinedSymbol, e.Line, "undefined variable '%s'", name)
	}
	st := sym.Type()

	if e.Op == "=" {
		if !g.exprTo(e.Children[1], st) {
			return types.Void, false
		}
	} else {
		op := strings.TrimSuffix(e.Op, "=")
		cat, known := categories[op]
		if !known || cat == types.Comparison || cat == types.Logical {
			return g.fail(ErrInvalidType, e.Line, "unknown operator '%s'", e.Op)
		}
		g.load(sym, depth)
		at := g.out.mark()
		rk, ok := g.expr(e.Children[1])
		if !ok {
			return types.Void, false
		}
		operand, err := types.Resolve(st, rk, cat)
		if err != nil {
			return g.fail(ErrInvalidType, e.Line, "%v", err)
		}
		if !g.insertConversion(e.Line, at, st, operand) || !g.convert(e.Line, rk, rightKind(cat, operand)) {
			return types.Void, false
		}
		g.arithmetic(op, operand)
		g.convert(e.Line, operand, st)
	}
	if want {
		g.out.emit(dup(st))
	}
	g.store(sym, depth)
	return st, true
}

// incDec generates ++ and -- in prefix and postfix form.
func (g *generator) incDec(e *ast.Node, want bool) (types.Kind, bool) {
	name := e.Children[0].String
	sym, depth := g.lookup(name)
	if sym == nil {
		return g.fail(ErrUndefinedSymbol, e.Line, "undefined variable '%s'", name)
	}
	st := sym.Type()
	if st == types.Bool {
		return g.fail(ErrInvalidType, e.Line, "cannot apply '%s' to bool '%s'", e.Op, name)
	}
	post := strings.HasPrefix(e.Op, "post")
	delta, opcode := 1, "add"
	if strings.HasSuffix(e.Op, "--") {
		delta, opcode = -1, "sub"
	}

	if depth > 0 && st.Rank() == types.Int.Rank() {
		if want && post {
			g.load(sym, depth)
		}
		g.out.emit("iinc %d %d", sym.Slot(), delta)
		if want && !post {
			g.load(sym, depth)
		}
		return st, true
	}

	operand, _ := types.Resolve(st, types.Int, types.Arithmetic)
	prefix, _ := types.Prefix(operand)
	g.load(sym, depth)
	if want && post {
		g.out.emit(dup(st))
	}
	g.convert(e.Line, st, operand)
	g.out.emit(constant(operand, 1))
	g.out.emit("%c%s", prefix, opcode)
	g.convert(e.Line, operand, st)
	if want && !post {
		g.out.emit(dup(st))
	}
	g.store(sym, depth)
	return st, true
}

func (g *generator) call(e *ast.Node) (types.Kind, bool) {
	sig, known := g.ctx.Function(e.String)
	if !known {
		for _, a := range e.Children {
			g.expr(a)
		}
		return g.fail(ErrUndefinedSymbol, e.Line, "unknown function '%s'", e.String)
	}
	if len(e.Children) != len(sig.Params) {
		return g.fail(ErrInvalidType, e.Line, "function '%s' expects %d arguments but got %d",
			e.String, len(sig.Params), len(e.Children))
	}
	ok := true
	for i, a := range e.Children {
		if !g.exprTo(a, sig.Params[i]) {
			ok = false
		}
	}
	if !ok {
		return types.Void, false
	}
	g.out.emit("invokestatic %s/%s%s", g.ctx.Program(), e.String, descriptor(sig))
	return sig.Return, true
}

func (g *generator) cast(e *ast.Node) (types.Kind, bool) {
	target, err := kindOf(e.Specifiers, false)
	if err != nil {
		g.expr(e.Children[0])
		return g.fail(ErrInvalidType, e.Line, "%v", err)
	}
	if !g.exprTo(e.Children[0], target) {
		return types.Void, false
	}
	return target, true
}
