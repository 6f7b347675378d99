package compiler

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/strager/cmmc/ast"
	"github.com/strager/cmmc/symtab"
	"github.com/strager/cmmc/types"
)

// loadInstruction reads sym, found depth tables into the stack. Depth 0
// is the global table, which lives in static fields of program.
func loadInstruction(program string, sym *symtab.Symbol, depth int) (string, error) {
	if depth == 0 {
		tag, err := types.Tag(sym.Type())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("getstatic %s/%s %c", program, sym.Name(), tag), nil
	}
	prefix, err := types.Prefix(sym.Type())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%cload %d", prefix, sym.Slot()), nil
}

func storeInstruction(program string, sym *symtab.Symbol, depth int) (string, error) {
	if depth == 0 {
		tag, err := types.Tag(sym.Type())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("putstatic %s/%s %c", program, sym.Name(), tag), nil
	}
	prefix, err := types.Prefix(sym.Type())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%cstore %d", prefix, sym.Slot()), nil
}

// descriptor builds a method descriptor such as (IJ)D.
func descriptor(sig symtab.Signature) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range sig.Params {
		tag, _ := types.Tag(p)
		b.WriteByte(tag)
	}
	b.WriteByte(')')
	if sig.Return == types.Void {
		b.WriteByte('V')
	} else {
		tag, _ := types.Tag(sig.Return)
		b.WriteByte(tag)
	}
	return b.String()
}

// kindOf resolves declaration specifiers. Void is rejected unless
// allowVoid is set.
func kindOf(specs []string, allowVoid bool) (types.Kind, error) {
	k, err := types.FromSpecifiers(specs)
	if err != nil {
		return types.Void, err
	}
	if k == types.Void && !allowVoid {
		return types.Void, fmt.Errorf("%w: void is not a value type", types.ErrInvalidType)
	}
	return k, nil
}

// withScope runs fn inside a new table on stack. The table is popped on
// every way out of fn, including a bailout.
func withScope(stack *symtab.Stack, kind symtab.ScopeKind, hint string, fn func()) {
	scope, err := stack.Enter(kind, hint)
	if err != nil {
		fatal(err)
	}
	defer scope.Exit()
	fn()
}

// statements flattens a block used as the body of an if, loop or for so
// that it shares the scope opened for that statement.
func statements(n *ast.Node) []*ast.Node {
	if n.Kind == ast.NodeBlock {
		return n.Children
	}
	return []*ast.Node{n}
}

// literalKind is the kind of an integer, float or bool literal.
func literalKind(n *ast.Node) (types.Kind, error) {
	k, err := kindOf(n.Specifiers, false)
	if err != nil {
		return types.Void, err
	}
	if n.Kind == ast.NodeInteger && k == types.Int && (n.Integer > math.MaxInt32 || n.Integer < math.MinInt32) {
		k = types.Long
	}
	return k, nil
}

// intConst pushes the int v with the shortest instruction.
func intConst(v int64) string {
	switch {
	case v == -1:
		return "iconst_m1"
	case v >= 0 && v <= 5:
		return "iconst_" + strconv.FormatInt(v, 10)
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return "bipush " + strconv.FormatInt(v, 10)
	case v >= math.MinInt16 && v <= math.MaxInt16:
		return "sipush " + strconv.FormatInt(v, 10)
	default:
		return "ldc " + strconv.FormatInt(v, 10)
	}
}

func longConst(v int64) string {
	if v == 0 || v == 1 {
		return "lconst_" + strconv.FormatInt(v, 10)
	}
	return "ldc2_w " + strconv.FormatInt(v, 10)
}

func floatConst(v float64) string {
	if v == 0 || v == 1 || v == 2 {
		if !math.Signbit(v) {
			return "fconst_" + strconv.FormatInt(int64(v), 10)
		}
	}
	return "ldc " + floatText(strconv.FormatFloat(v, 'g', -1, 32))
}

func doubleConst(v float64) string {
	if (v == 0 || v == 1) && !math.Signbit(v) {
		return "dconst_" + strconv.FormatInt(int64(v), 10)
	}
	return "ldc2_w " + floatText(strconv.FormatFloat(v, 'g', -1, 64))
}

// floatText makes sure the assembler reads text as a floating constant.
func floatText(text string) string {
	if strings.Contains(text, ".") || strings.Contains(text, "Inf") || strings.Contains(text, "NaN") {
		return text
	}
	if i := strings.IndexByte(text, 'e'); i >= 0 {
		return text[:i] + ".0" + text[i:]
	}
	return text + ".0"
}

// constant pushes v converted to k.
func constant(k types.Kind, v float64) string {
	switch k {
	case types.Long:
		return longConst(int64(v))
	case types.Float:
		return floatConst(v)
	case types.Double:
		return doubleConst(v)
	default:
		return intConst(int64(v))
	}
}

// truthTest leaves an int on the stack that is zero exactly when the value
// of kind k on top of the stack is zero.
func truthTest(k types.Kind) []string {
	switch k {
	case types.Long:
		return []string{"lconst_0", "lcmp"}
	case types.Float:
		return []string{"fconst_0", "fcmpl"}
	case types.Double:
		return []string{"dconst_0", "dcmpl"}
	default:
		return nil
	}
}

// pop discards a value of kind k.
func pop(k types.Kind) string {
	if k.Width() == 2 {
		return "pop2"
	}
	return "pop"
}

func dup(k types.Kind) string {
	if k.Width() == 2 {
		return "dup2"
	}
	return "dup"
}
