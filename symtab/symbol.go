// Package symtab holds the symbols, scoped symbol tables and the
// compilation context shared by the declaration and code generation passes.
package symtab

import "github.com/strager/cmmc/types"

// Symbol is one declared name. Only the reference lines change after
// creation, and only while the declaration pass is walking the tree.
type Symbol struct {
	name        string
	id          int
	slot        int
	typ         types.Kind
	initialized bool
	seq         int
	lines       []int
}

func (s *Symbol) Name() string { return s.name }

// ID is the symbol's position in its owning table, starting at 0.
func (s *Symbol) ID() int { return s.id }

// Slot is the JVM local variable index of the symbol. It equals ID for
// single-width symbols of a function table; nested tables continue after
// their parent's slots, and long/double symbols take two slots.
func (s *Symbol) Slot() int { return s.slot }

func (s *Symbol) Type() types.Kind { return s.typ }

// HasInitializer reports whether the declaration carried an initializer.
func (s *Symbol) HasInitializer() bool { return s.initialized }

// Seq is the declaration's position in source order across the whole
// unit, or -1 for symbols added directly to a table.
func (s *Symbol) Seq() int { return s.seq }

// Lines lists the source lines the symbol was referenced on.
func (s *Symbol) Lines() []int { return s.lines }

func (s *Symbol) reference(line int) {
	s.lines = append(s.lines, line)
}
