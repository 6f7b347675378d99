// Package types describes the primitive types of the source language and
// the rules that map them onto JVM instruction families.
package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidType is returned whenever a type has no tag, prefix or
// promotion entry for the requested use.
var ErrInvalidType = errors.New("invalid type")

// Kind is one of the closed set of primitive types.
type Kind int

const (
	Void Kind = iota
	Bool
	Char
	Short
	Int
	Long
	Float
	Double
	Signed
	Unsigned
	Int32
	Uint32
)

type kindInfo struct {
	name   string
	rank   int
	order  int // tie break inside a rank
	tag    byte
	prefix byte
	width  int
}

var kindTable = [...]kindInfo{
	Void:     {name: "void"},
	Bool:     {name: "bool", rank: 1, tag: 'Z', prefix: 'i', width: 1},
	Char:     {name: "char", rank: 2, tag: 'C', prefix: 'i', width: 1},
	Short:    {name: "short", rank: 3, tag: 'S', prefix: 'i', width: 1},
	Int:      {name: "int", rank: 4, order: 0, tag: 'I', prefix: 'i', width: 1},
	Signed:   {name: "signed", rank: 4, order: 1, tag: 'I', prefix: 'i', width: 1},
	Int32:    {name: "int32_t", rank: 4, order: 2, tag: 'I', prefix: 'i', width: 1},
	Unsigned: {name: "unsigned", rank: 4, order: 3, tag: 'I', prefix: 'i', width: 1},
	Uint32:   {name: "uint32_t", rank: 4, order: 4, tag: 'I', prefix: 'i', width: 1},
	Long:     {name: "long", rank: 5, tag: 'J', prefix: 'l', width: 2},
	Float:    {name: "float", rank: 6, tag: 'F', prefix: 'f', width: 1},
	Double:   {name: "double", rank: 7, tag: 'D', prefix: 'd', width: 2},
}

// All lists every kind, void included.
var All = []Kind{Void, Bool, Char, Short, Int, Long, Float, Double, Signed, Unsigned, Int32, Uint32}

func (k Kind) valid() bool {
	return k >= 0 && int(k) < len(kindTable)
}

func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindTable[k].name
}

// Rank is the promotion rank; void has rank 0.
func (k Kind) Rank() int {
	if !k.valid() {
		return 0
	}
	return kindTable[k].rank
}

// Width is the number of JVM local slots a value of this kind occupies.
func (k Kind) Width() int {
	if !k.valid() {
		return 0
	}
	return kindTable[k].width
}

// IsInteger reports whether k belongs to the int or long instruction family.
func (k Kind) IsInteger() bool {
	return k.valid() && (kindTable[k].prefix == 'i' || kindTable[k].prefix == 'l')
}

// IsUnsigned reports whether k is one of the unsigned int-width kinds.
func (k Kind) IsUnsigned() bool {
	return k == Unsigned || k == Uint32
}

// Promote returns the wider of a and b. Kinds of equal rank are ordered by
// a fixed precedence in which unsigned kinds win over signed ones, so the
// result does not depend on argument order.
func Promote(a, b Kind) (Kind, error) {
	if a.Rank() == 0 {
		return Void, fmt.Errorf("%w: cannot promote %s", ErrInvalidType, a)
	}
	if b.Rank() == 0 {
		return Void, fmt.Errorf("%w: cannot promote %s", ErrInvalidType, b)
	}
	ia, ib := kindTable[a], kindTable[b]
	if ia.rank != ib.rank {
		if ia.rank > ib.rank {
			return a, nil
		}
		return b, nil
	}
	if ia.order >= ib.order {
		return a, nil
	}
	return b, nil
}

// Tag returns the JVM descriptor letter of k.
func Tag(k Kind) (byte, error) {
	if !k.valid() || kindTable[k].tag == 0 {
		return 0, fmt.Errorf("%w: %s has no type tag", ErrInvalidType, k)
	}
	return kindTable[k].tag, nil
}

// Prefix returns the opcode prefix ('i', 'l', 'f' or 'd') of k.
func Prefix(k Kind) (byte, error) {
	if !k.valid() || kindTable[k].prefix == 0 {
		return 0, fmt.Errorf("%w: %s has no instruction prefix", ErrInvalidType, k)
	}
	return kindTable[k].prefix, nil
}

// Conversion returns the instructions that turn a value of kind from into
// a value of kind to. A nil result means no instruction is needed.
func Conversion(from, to Kind) ([]string, error) {
	pf, err := Prefix(from)
	if err != nil {
		return nil, err
	}
	pt, err := Prefix(to)
	if err != nil {
		return nil, err
	}
	if from == to {
		return nil, nil
	}

	var ops []string
	switch {
	case pf == pt:
	case from.IsUnsigned():
		// zero-extend; i2l would sign-extend values above MaxInt32
		ops = append(ops, ToUnsignedLong)
		if pt != 'l' {
			ops = append(ops, "l2"+string(pt))
		}
	default:
		ops = append(ops, string(pf)+"2"+string(pt))
	}
	// int-family storage narrower than int needs an explicit truncation.
	// char is unsigned, so char to short truncates too.
	switch {
	case to == Char && from.Rank() > Char.Rank():
		ops = append(ops, "i2c")
	case to == Short && (from.Rank() > Short.Rank() || from == Char):
		ops = append(ops, "i2s")
	}
	return ops, nil
}

// ToUnsignedLong zero-extends an unsigned int to a long.
const ToUnsignedLong = "invokestatic java/lang/Integer/toUnsignedLong(I)J"

var specifierCombos = map[string]Kind{
	"void":          Void,
	"bool":          Bool,
	"_Bool":         Bool,
	"char":          Char,
	"char signed":   Char,
	"char unsigned": Char,
	"short":         Short,
	"int short":     Short,
	"int":           Int,
	"long":          Long,
	"int long":      Long,
	"long long":     Long,
	"float":         Float,
	"double":        Double,
	"double long":   Double,
	"signed":        Signed,
	"int signed":    Signed,
	"unsigned":      Unsigned,
	"int unsigned":  Unsigned,
	"int32_t":       Int32,
	"uint32_t":      Uint32,
}

// FromSpecifiers resolves a list of declaration specifiers such as
// ["unsigned", "int"] to a kind. Order is irrelevant.
func FromSpecifiers(specs []string) (Kind, error) {
	if len(specs) == 0 {
		return Void, fmt.Errorf("%w: missing type specifier", ErrInvalidType)
	}
	sorted := append([]string(nil), specs...)
	sort.Strings(sorted)
	key := strings.Join(sorted, " ")
	if k, ok := specifierCombos[key]; ok {
		return k, nil
	}
	return Void, fmt.Errorf("%w: unknown type '%s'", ErrInvalidType, strings.Join(specs, " "))
}
