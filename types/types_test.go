package types

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
)

func TestPromoteCommutative(t *testing.T) {
	for _, a := range All {
		for _, b := range All {
			ab, errAB := Promote(a, b)
			ba, errBA := Promote(b, a)
			if a == Void || b == Void {
				be.True(t, errors.Is(errAB, ErrInvalidType))
				be.True(t, errors.Is(errBA, ErrInvalidType))
				continue
			}
			be.Err(t, errAB, nil)
			be.Err(t, errBA, nil)
			be.Equal(t, ab, ba)
		}
	}
}

func TestPromoteIdempotent(t *testing.T) {
	for _, k := range All {
		if k == Void {
			continue
		}
		got, err := Promote(k, k)
		be.Err(t, err, nil)
		be.Equal(t, got, k)
	}
}

func TestPromote(t *testing.T) {
	tests := []struct {
		a, b     Kind
		expected Kind
	}{
		{Int, Double, Double},
		{Char, Short, Short},
		{Bool, Char, Char},
		{Long, Float, Float},
		{Int, Long, Long},
		{Int, Unsigned, Unsigned},
		{Signed, Unsigned, Unsigned},
		{Int32, Uint32, Uint32},
		{Unsigned, Uint32, Uint32},
		{Int, Signed, Signed},
		{Float, Double, Double},
	}

	for _, test := range tests {
		t.Run(test.a.String()+"+"+test.b.String(), func(t *testing.T) {
			got, err := Promote(test.a, test.b)
			be.Err(t, err, nil)
			be.Equal(t, got, test.expected)
		})
	}
}

func TestTag(t *testing.T) {
	tests := map[Kind]byte{
		Bool: 'Z', Char: 'C', Short: 'S', Int: 'I', Long: 'J',
		Float: 'F', Double: 'D', Signed: 'I', Unsigned: 'I', Int32: 'I', Uint32: 'I',
	}
	for k, expected := range tests {
		tag, err := Tag(k)
		be.Err(t, err, nil)
		be.Equal(t, tag, expected)
	}

	_, err := Tag(Void)
	be.Err(t, err, ErrInvalidType)
	be.Equal(t, err.Error(), "invalid type: void has no type tag")
}

func TestPrefix(t *testing.T) {
	p, err := Prefix(Double)
	be.Err(t, err, nil)
	be.Equal(t, p, byte('d'))

	p, err = Prefix(Char)
	be.Err(t, err, nil)
	be.Equal(t, p, byte('i'))

	_, err = Prefix(Void)
	be.Err(t, err, ErrInvalidType)
}

func TestConversion(t *testing.T) {
	tests := []struct {
		name     string
		from, to Kind
		expected []string
	}{
		{"same kind", Int, Int, nil},
		{"int to double", Int, Double, []string{"i2d"}},
		{"double to int", Double, Int, []string{"d2i"}},
		{"long to float", Long, Float, []string{"l2f"}},
		{"char to int is free", Char, Int, nil},
		{"int to unsigned is free", Int, Unsigned, nil},
		{"int to char narrows", Int, Char, []string{"i2c"}},
		{"int to short narrows", Int, Short, []string{"i2s"}},
		{"double to char", Double, Char, []string{"d2i", "i2c"}},
		{"int to bool", Int, Bool, nil},
		{"char to short narrows", Char, Short, []string{"i2s"}},
		{"short to char narrows", Short, Char, []string{"i2c"}},
		{"bool to short is free", Bool, Short, nil},
		{"unsigned to long zero-extends", Unsigned, Long, []string{ToUnsignedLong}},
		{"uint32_t to double zero-extends", Uint32, Double, []string{ToUnsignedLong, "l2d"}},
		{"unsigned to float zero-extends", Unsigned, Float, []string{ToUnsignedLong, "l2f"}},
		{"int32_t to long sign-extends", Int32, Long, []string{"i2l"}},
		{"unsigned to short narrows", Unsigned, Short, []string{"i2s"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ops, err := Conversion(test.from, test.to)
			be.Err(t, err, nil)
			be.Equal(t, ops, test.expected)
		})
	}
}

func TestConversionVoid(t *testing.T) {
	_, err := Conversion(Void, Int)
	be.Err(t, err, ErrInvalidType)

	_, err = Conversion(Int, Void)
	be.Err(t, err, ErrInvalidType)

	_, err = Conversion(Void, Void)
	be.Err(t, err, ErrInvalidType)
}

func TestFromSpecifiers(t *testing.T) {
	tests := []struct {
		specs    []string
		expected Kind
	}{
		{[]string{"int"}, Int},
		{[]string{"unsigned", "int"}, Unsigned},
		{[]string{"int", "unsigned"}, Unsigned},
		{[]string{"long", "int"}, Long},
		{[]string{"short"}, Short},
		{[]string{"void"}, Void},
		{[]string{"uint32_t"}, Uint32},
		{[]string{"long", "double"}, Double},
	}
	for _, test := range tests {
		k, err := FromSpecifiers(test.specs)
		be.Err(t, err, nil)
		be.Equal(t, k, test.expected)
	}

	_, err := FromSpecifiers([]string{"unsigned", "double"})
	be.Err(t, err, ErrInvalidType)
	be.Equal(t, err.Error(), "invalid type: unknown type 'unsigned double'")

	_, err = FromSpecifiers(nil)
	be.Err(t, err, ErrInvalidType)
}

func TestResolve(t *testing.T) {
	k, err := Resolve(Int, Double, Arithmetic)
	be.Err(t, err, nil)
	be.Equal(t, k, Double)

	k, err = Resolve(Char, Char, Arithmetic)
	be.Err(t, err, nil)
	be.Equal(t, k, Int)

	k, err = Resolve(Char, Short, Comparison)
	be.Err(t, err, nil)
	be.Equal(t, k, Int)
	be.Equal(t, Result(Comparison, k), Bool)

	k, err = Resolve(Int, Long, Shift)
	be.Err(t, err, nil)
	be.Equal(t, k, Long)

	_, err = Resolve(Int, Double, Shift)
	be.Err(t, err, ErrInvalidType)
	be.Equal(t, err.Error(), "invalid type: shift operator requires integer operands, got int and double")

	_, err = Resolve(Float, Int, Bitwise)
	be.Err(t, err, ErrInvalidType)

	_, err = Resolve(Void, Int, Logical)
	be.Err(t, err, ErrInvalidType)
}
