package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/strager/cmmc/symtab"
	"github.com/strager/cmmc/types"
)

// Error kinds. Every reported Error wraps one of them.
var (
	ErrDuplicateSymbol = symtab.ErrDuplicateSymbol
	ErrUndefinedSymbol = errors.New("undefined symbol")
	ErrInvalidType     = types.ErrInvalidType
	ErrScopeImbalance  = symtab.ErrScopeImbalance
	ErrMalformedTree   = errors.New("malformed tree")
)

// Error is one semantic problem found in a unit.
type Error struct {
	Kind error
	Line int
	Msg  string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: error: %s", e.Line, e.Msg)
	}
	return "error: " + e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

// ErrorList collects every recoverable error of a run.
type ErrorList []*Error

func (l *ErrorList) add(kind error, line int, format string, args ...any) {
	*l = append(*l, &Error{Kind: kind, Line: line, Msg: fmt.Sprintf(format, args...)})
}

// addErr reports err under its own kind when it wraps one of the known
// kinds, and as kind otherwise.
func (l *ErrorList) addErr(kind error, line int, err error) {
	for _, known := range []error{ErrDuplicateSymbol, ErrUndefinedSymbol, ErrInvalidType, ErrScopeImbalance, ErrMalformedTree} {
		if errors.Is(err, known) {
			kind = known
			break
		}
	}
	*l = append(*l, &Error{Kind: kind, Line: line, Msg: err.Error()})
}

func (l ErrorList) HasErrors() bool { return len(l) > 0 }

// Count returns how many errors wrap kind.
func (l ErrorList) Count(kind error) int {
	n := 0
	for _, e := range l {
		if errors.Is(e, kind) {
			n++
		}
	}
	return n
}

func (l ErrorList) String() string {
	var lines []string
	for _, e := range l {
		lines = append(lines, e.Error())
	}
	return strings.Join(lines, "\n")
}

func (l ErrorList) Error() string { return l.String() }

// Err returns nil for an empty list and the list itself otherwise.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

// bailout aborts a pass. Scope handles are still released by their
// deferred Exit calls while the panic unwinds.
type bailout struct{ err error }

func fatal(err error) {
	panic(bailout{err})
}

func recoverFatal(errp *error) {
	if r := recover(); r != nil {
		b, ok := r.(bailout)
		if !ok {
			panic(r)
		}
		*errp = b.err
	}
}
