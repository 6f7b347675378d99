package types

import "fmt"

// Category groups operators by the typing rule they follow.
type Category int

const (
	Arithmetic Category = iota
	Bitwise
	Shift
	Comparison
	Logical
	Assignment
)

func (c Category) String() string {
	switch c {
	case Arithmetic:
		return "arithmetic"
	case Bitwise:
		return "bitwise"
	case Shift:
		return "shift"
	case Comparison:
		return "comparison"
	case Logical:
		return "logical"
	case Assignment:
		return "assignment"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// Resolve returns the kind both operands of a binary operator of category
// cat are brought to before the operator's own instruction runs.
//
// Arithmetic, bitwise, shift and comparison operands narrower than int are
// widened to int, as the JVM has no narrower arithmetic. Bitwise and shift operators
// reject float and double operands.
func Resolve(a, b Kind, cat Category) (Kind, error) {
	k, err := Promote(a, b)
	if err != nil {
		return Void, err
	}
	switch cat {
	case Bitwise, Shift:
		if !a.IsInteger() || !b.IsInteger() {
			return Void, fmt.Errorf("%w: %s operator requires integer operands, got %s and %s", ErrInvalidType, cat, a, b)
		}
		fallthrough
	case Arithmetic, Comparison:
		if k.Rank() < Int.Rank() {
			k = Int
		}
	}
	return k, nil
}

// Result is the kind of the value an operator of category cat leaves on
// the stack when its operands were resolved to operand.
func Result(cat Category, operand Kind) Kind {
	switch cat {
	case Comparison, Logical:
		return Bool
	default:
		return operand
	}
}
