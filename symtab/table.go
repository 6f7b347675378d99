package symtab

import (
	"errors"
	"fmt"
	"sort"

	"github.com/strager/cmmc/types"
)

var (
	ErrDuplicateSymbol = errors.New("duplicate symbol")
	ErrScopeImbalance  = errors.New("scope imbalance")
)

// ScopeKind tells which construct opened a table.
type ScopeKind int

const (
	Global ScopeKind = iota
	Function
	Loop
	Conditional
	Anonymous
)

func (k ScopeKind) String() string {
	switch k {
	case Global:
		return "global"
	case Function:
		return "function"
	case Loop:
		return "loop"
	case Conditional:
		return "conditional"
	case Anonymous:
		return "block"
	default:
		return fmt.Sprintf("ScopeKind(%d)", int(k))
	}
}

// Table is one lexical scope.
type Table struct {
	kind     ScopeKind
	name     string
	level    int
	function string
	base     int
	nextID   int
	nextSlot int
	symbols  map[string]*Symbol
}

func newTable(kind ScopeKind, name string, level int, function string, base int) *Table {
	return &Table{
		kind:     kind,
		name:     name,
		level:    level,
		function: function,
		base:     base,
		nextSlot: base,
		symbols:  make(map[string]*Symbol),
	}
}

// NewTable returns an empty standalone table.
func NewTable(kind ScopeKind, name string, level int) *Table {
	return newTable(kind, name, level, "", 0)
}

// CreateAndAddSymbol adds name with the next sequential id.
func (t *Table) CreateAndAddSymbol(name string, typ types.Kind) (*Symbol, error) {
	return t.add(name, typ, false, -1)
}

func (t *Table) add(name string, typ types.Kind, initialized bool, seq int) (*Symbol, error) {
	if _, ok := t.symbols[name]; ok {
		return nil, fmt.Errorf("%w: variable '%s' already declared in %s", ErrDuplicateSymbol, name, t.name)
	}
	sym := &Symbol{
		name:        name,
		id:          t.nextID,
		slot:        t.nextSlot,
		typ:         typ,
		initialized: initialized,
		seq:         seq,
	}
	t.symbols[name] = sym
	t.nextID++
	t.nextSlot += typ.Width()
	return sym, nil
}

// LookupSymbol searches this table only.
func (t *Table) LookupSymbol(name string) *Symbol {
	return t.symbols[name]
}

func (t *Table) SymbolExists(name string) bool {
	_, ok := t.symbols[name]
	return ok
}

func (t *Table) Size() int { return len(t.symbols) }
func (t *Table) Name() string { return t.name }
func (t *Table) Kind() ScopeKind { return t.kind }
func (t *Table) NestingLevel() int { return t.level }
func (t *Table) Function() string { return t.function }
func (t *Table) FrameEnd() int { return t.nextSlot }
func (t *Table) LastSymbolID() int { return t.nextID - 1 }

// Symbols returns every symbol ordered by id.
func (t *Table) Symbols() []*Symbol {
	syms := make([]*Symbol, 0, len(t.symbols))
	for _, sym := range t.symbols {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool { return syms[i].id < syms[j].id })
	return syms
}
