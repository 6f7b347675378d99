package compiler

import (
	"fmt"
	"strings"
)

// Field is a static field holding one global variable.
type Field struct {
	Name string
	Tag  byte
}

// Method is one generated JVM method. Code holds bare instructions and
// "L<n>:" label lines.
type Method struct {
	Name       string
	Descriptor string
	Public     bool
	Locals     int
	Stack      int
	Code       []string
}

// Program is a whole Jasmin class.
type Program struct {
	Name    string
	Fields  []Field
	Methods []*Method
}

// Method returns the method called name, or nil.
func (p *Program) Method(name string) *Method {
	for _, m := range p.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Text renders the class as Jasmin assembler source.
func (p *Program) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, ".class public %s\n", p.Name)
	b.WriteString(".super java/lang/Object\n")
	if len(p.Fields) > 0 {
		b.WriteString("\n")
	}
	for _, f := range p.Fields {
		fmt.Fprintf(&b, ".field public static %s %c\n", f.Name, f.Tag)
	}
	b.WriteString("\n.method public <init>()V\n")
	b.WriteString("\taload_0\n")
	b.WriteString("\tinvokenonvirtual java/lang/Object/<init>()V\n")
	b.WriteString("\treturn\n")
	b.WriteString(".end method\n")
	for _, m := range p.Methods {
		b.WriteString("\n")
		m.write(&b)
	}
	return b.String()
}

// Text renders the method alone, as it appears inside the class.
func (m *Method) Text() string {
	var b strings.Builder
	m.write(&b)
	return b.String()
}

func (m *Method) write(b *strings.Builder) {
	access := "static"
	if m.Public {
		access = "public static"
	}
	fmt.Fprintf(b, ".method %s %s%s\n", access, m.Name, m.Descriptor)
	fmt.Fprintf(b, "\t.limit stack %d\n", m.Stack)
	fmt.Fprintf(b, "\t.limit locals %d\n", m.Locals)
	for _, line := range m.Code {
		if isLabel(line) {
			b.WriteString(line + "\n")
		} else {
			b.WriteString("\t" + line + "\n")
		}
	}
	b.WriteString(".end method\n")
}

func isLabel(line string) bool {
	return strings.HasSuffix(line, ":")
}

// emitter accumulates the code of the method being generated.
type emitter struct {
	code   []string
	labels int
}

func (e *emitter) emit(format string, args ...any) {
	e.code = append(e.code, fmt.Sprintf(format, args...))
}

func (e *emitter) emitAll(ops []string) {
	e.code = append(e.code, ops...)
}

func (e *emitter) newLabel() string {
	l := fmt.Sprintf("L%d", e.labels)
	e.labels++
	return l
}

func (e *emitter) label(l string) {
	e.code = append(e.code, l+":")
}

// mark and truncate let a failed expression take back everything it
// emitted.
func (e *emitter) mark() int { return len(e.code) }

func (e *emitter) truncate(mark int) { e.code = e.code[:mark] }

// insert places ops at position at, shifting later code.
func (e *emitter) insert(at int, ops []string) {
	if len(ops) == 0 {
		return
	}
	e.code = append(e.code[:at], append(append([]string(nil), ops...), e.code[at:]...)...)
}

// endsWithExit reports whether the last instruction leaves the method or
// jumps away unconditionally.
func (e *emitter) endsWithExit() bool {
	if len(e.code) == 0 {
		return false
	}
	switch last := e.code[len(e.code)-1]; last {
	case "return", "ireturn", "lreturn", "freturn", "dreturn":
		return true
	default:
		return strings.HasPrefix(last, "goto ")
	}
}
