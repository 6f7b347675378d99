package symtab

import (
	"fmt"

	"github.com/strager/cmmc/types"
)

// Stack is the chain of active tables during one walk of the tree. The
// declaration pass builds tables as it enters scopes; a replay stack, used
// by code generation, reopens the same tables in the same order.
type Stack struct {
	ctx     *Context
	tables  []*Table
	counter int
	replay  bool
	broken  bool
}

func newStack(ctx *Context, replay bool) *Stack {
	return &Stack{ctx: ctx, tables: []*Table{ctx.global}, replay: replay}
}

// Scope is the handle returned by Enter. Exit pops the table; callers defer
// it right after entering so the stack follows the tree on every path.
type Scope struct {
	stack    *Stack
	table    *Table
	depth    int
	released bool
}

func (h *Scope) Table() *Table { return h.table }

// Exit pops the scope's table. It is safe to call more than once. Exiting a
// scope that is not innermost pops everything above it too and marks the
// stack as unbalanced.
func (h *Scope) Exit() {
	if h.released {
		return
	}
	h.released = true
	s := h.stack
	if len(s.tables) != h.depth+1 || s.tables[h.depth] != h.table {
		s.broken = true
	}
	if h.depth < len(s.tables) {
		s.tables = s.tables[:h.depth]
	}
}

// Enter pushes a table for a new scope. Function scopes are named after the
// function; every other scope gets a name built from hint and a counter
// that is unique across the unit. Function tables live in their own
// namespace, so a function may be called global or if_0.
func (s *Stack) Enter(kind ScopeKind, hint string) (*Scope, error) {
	if kind == Global {
		return nil, fmt.Errorf("%w: the global scope cannot be entered twice", ErrScopeImbalance)
	}
	name := hint
	if kind != Function {
		if hint == "" {
			hint = kind.String()
		}
		name = fmt.Sprintf("%s_%d", hint, s.counter)
		s.counter++
	}

	key := tableKey(kind, name)
	var table *Table
	if s.replay {
		table = s.ctx.tables[key]
		if table == nil {
			return nil, fmt.Errorf("%w: no table named '%s' was built", ErrScopeImbalance, name)
		}
	} else {
		if _, ok := s.ctx.tables[key]; ok {
			return nil, fmt.Errorf("%w: scope '%s' already exists", ErrDuplicateSymbol, name)
		}
		parent := s.Current()
		function, base := name, 0
		if kind != Function {
			function, base = parent.function, parent.nextSlot
		}
		table = newTable(kind, name, len(s.tables), function, base)
		s.ctx.tables[key] = table
		s.ctx.order = append(s.ctx.order, table)
	}

	h := &Scope{stack: s, table: table, depth: len(s.tables)}
	s.tables = append(s.tables, table)
	return h, nil
}

// Depth is the number of active tables; 1 when only the global table is.
func (s *Stack) Depth() int { return len(s.tables) }

// Current is the innermost table.
func (s *Stack) Current() *Table { return s.tables[len(s.tables)-1] }

// Lookup searches from the innermost table outward and returns the symbol
// with the index of the table it was found in; 0 is the global table.
func (s *Stack) Lookup(name string) (*Symbol, int) {
	for i := len(s.tables) - 1; i >= 0; i-- {
		if sym := s.tables[i].LookupSymbol(name); sym != nil {
			return sym, i
		}
	}
	return nil, -1
}

// LookupBefore is Lookup restricted to symbols declared before the
// declaration numbered seq.
func (s *Stack) LookupBefore(name string, seq int) (*Symbol, int) {
	for i := len(s.tables) - 1; i >= 0; i-- {
		if sym := s.tables[i].LookupSymbol(name); sym != nil && sym.seq < seq {
			return sym, i
		}
	}
	return nil, -1
}

// Declare adds a symbol to the innermost table.
func (s *Stack) Declare(name string, typ types.Kind, initialized bool) (*Symbol, error) {
	if s.replay {
		return nil, fmt.Errorf("cannot declare '%s' while replaying scopes", name)
	}
	sym, err := s.Current().add(name, typ, initialized, s.ctx.seq)
	if err != nil {
		return nil, err
	}
	s.ctx.seq++
	return sym, nil
}

// Reference records that name was used on line, if it resolves.
func (s *Stack) Reference(name string, line int) *Symbol {
	sym, _ := s.Lookup(name)
	if sym != nil && !s.replay {
		sym.reference(line)
	}
	return sym
}

// Balanced reports ErrScopeImbalance unless the stack is back to holding
// only the global table and every scope was exited in order.
func (s *Stack) Balanced() error {
	if s.broken {
		return fmt.Errorf("%w: a scope was exited out of order", ErrScopeImbalance)
	}
	if len(s.tables) != 1 {
		return fmt.Errorf("%w: depth is %d at end of unit, expected 1", ErrScopeImbalance, len(s.tables))
	}
	return nil
}
