package symtab

import (
	"fmt"
	"strings"

	"github.com/strager/cmmc/types"
)

// Signature is a function's parameter kinds in order and its return kind.
type Signature struct {
	Params []types.Kind
	Return types.Kind
}

// Context is the state of one compilation unit. The declaration pass fills
// it through Stack; code generation reads it through Replay.
type Context struct {
	program   string
	global    *Table
	tables    map[string]*Table
	order     []*Table
	functions map[string]*Signature
	funcOrder []string
	current   string
	seq       int
	build     *Stack
}

// NewContext returns a context holding only the global table.
func NewContext(program string) *Context {
	global := newTable(Global, "global", 0, "", 0)
	ctx := &Context{
		program:   program,
		global:    global,
		tables:    map[string]*Table{global.name: global},
		order:     []*Table{global},
		functions: make(map[string]*Signature),
	}
	ctx.build = newStack(ctx, false)
	return ctx
}

// Program is the name global instructions are qualified with.
func (c *Context) Program() string { return c.program }

func (c *Context) Global() *Table { return c.global }

// Stack is the building stack used by the declaration pass.
func (c *Context) Stack() *Stack { return c.build }

// Replay returns a fresh read-only stack that reopens the tables the
// declaration pass built, in the same order.
func (c *Context) Replay() *Stack { return newStack(c, true) }

// EnterScope pushes a new table on the building stack.
func (c *Context) EnterScope(kind ScopeKind, hint string) (*Scope, error) {
	return c.build.Enter(kind, hint)
}

// Lookup searches the building stack.
func (c *Context) Lookup(name string) (*Symbol, int) {
	return c.build.Lookup(name)
}

// Table returns the table built under name. Scope names are tried before
// function names.
func (c *Context) Table(name string) *Table {
	if t := c.tables[name]; t != nil {
		return t
	}
	return c.tables[tableKey(Function, name)]
}

// FunctionTable returns the table of function name.
func (c *Context) FunctionTable(name string) *Table {
	return c.tables[tableKey(Function, name)]
}

func tableKey(kind ScopeKind, name string) string {
	if kind == Function {
		return "func " + name
	}
	return name
}

// Tables lists every table in creation order, global first.
func (c *Context) Tables() []*Table { return c.order }

// Declarations is the number of symbols declared through the stack.
func (c *Context) Declarations() int { return c.seq }

// RegisterFunction records a function signature.
func (c *Context) RegisterFunction(name string, sig Signature) error {
	if _, ok := c.functions[name]; ok {
		return fmt.Errorf("%w: function '%s' already defined", ErrDuplicateSymbol, name)
	}
	sig.Params = append([]types.Kind(nil), sig.Params...)
	c.functions[name] = &sig
	c.funcOrder = append(c.funcOrder, name)
	return nil
}

// Function returns the signature registered for name.
func (c *Context) Function(name string) (Signature, bool) {
	sig, ok := c.functions[name]
	if !ok {
		return Signature{}, false
	}
	return *sig, true
}

// Functions lists registered function names in registration order.
func (c *Context) Functions() []string { return c.funcOrder }

// FrameSize is the number of local slots function name needs.
func (c *Context) FrameSize(name string) int {
	size := 0
	for _, t := range c.order {
		if t.function == name && t.kind != Global && t.nextSlot > size {
			size = t.nextSlot
		}
	}
	return size
}

func (c *Context) CurrentFunction() (string, bool) {
	return c.current, c.current != ""
}

// SetCurrentFunction marks name as the function being generated; an empty
// name clears the marker.
func (c *Context) SetCurrentFunction(name string) { c.current = name }

// Dump renders every table and its symbols, one table header per scope.
func (c *Context) Dump() string {
	var b strings.Builder
	for _, t := range c.order {
		fmt.Fprintf(&b, "%s %s %d\n", t.name, t.kind, t.level)
		for _, sym := range t.Symbols() {
			fmt.Fprintf(&b, "  %s #%d slot %d %s", sym.name, sym.id, sym.slot, sym.typ)
			if sym.initialized {
				b.WriteString(" init")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
