package enum

import (
	"fmt"

	"github.com/refaktor/hostbridge/foreign"
)

// Arith applies an arithmetic operator to an enum value and a float. If
// reversed is true, the enum is the right operand. The result is always a
// float.
func Arith(op foreign.Op, left *Value, right float64, reversed bool) (float64, error) {
	a, b := left.Float64(), right
	if reversed {
		a, b = b, a
	}
	switch op {
	case foreign.OpAdd:
		return a + b, nil
	case foreign.OpSub:
		return a - b, nil
	case foreign.OpMul:
		return a * b, nil
	case foreign.OpTrueDiv:
		if b == 0 {
			return 0, ErrZeroDivision
		}
		return a / b, nil
	default:
		return 0, fmt.Errorf("enum arithmetic: unsupported operator %v", op)
	}
}

// Bitwise applies &, | or ^ to two values of the same flags enum type.
func Bitwise(op foreign.Op, left, right *Value) (*Value, error) {
	t := left.typ
	if !t.Flags {
		return nil, fmt.Errorf("%v %v %v: %w", t.Name, op, right.typ.Name, ErrNotFlags)
	}
	if right.typ != t {
		return nil, fmt.Errorf("%v %v %v: mismatched enum types", t.Name, op, right.typ.Name)
	}
	var bits uint64
	switch op {
	case foreign.OpAnd:
		bits = left.bits & right.bits
	case foreign.OpOr:
		bits = left.bits | right.bits
	case foreign.OpXor:
		bits = left.bits ^ right.bits
	default:
		return nil, fmt.Errorf("enum bitwise: unsupported operator %v", op)
	}
	return t.reg.Project(t, bits), nil
}

// Invert returns the bitwise complement of a flags enum value.
func Invert(v *Value) (*Value, error) {
	if !v.typ.Flags {
		return nil, fmt.Errorf("~%v: %w", v.typ.Name, ErrNotFlags)
	}
	return v.typ.reg.Project(v.typ, ^v.bits), nil
}
