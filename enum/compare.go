package enum

import (
	"cmp"
	"fmt"
	"math"
	"strings"

	"github.com/refaktor/hostbridge/foreign"
)

type compareResult int

const (
	ordered compareResult = iota
	unordered
	unsupported
)

// TypeError is returned by ordering comparisons between an enum and a value
// it cannot be ordered against.
type TypeError struct {
	Op          foreign.Op
	Left, Right *foreign.Type
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("'%v' not supported between instances of '%v' and '%v'",
		e.Op, e.Left.Name, e.Right.Name)
}

// Compare orders left against right. ok is false if right is of a type an
// enum cannot be compared with, or the comparison is unordered (NaN).
func Compare(left *Value, right foreign.Object) (ord int, ok bool) {
	ord, res := compare(left, right)
	return ord, res == ordered
}

// RichCompare evaluates the comparison operator op on left and right.
// Equality against unsupported types is false, ordering against them is a
// *TypeError.
func RichCompare(op foreign.Op, left *Value, right foreign.Object) (bool, error) {
	if !op.IsComparison() {
		return false, fmt.Errorf("rich compare: %v is not a comparison", op.Name())
	}
	ord, res := compare(left, right)
	switch res {
	case unsupported:
		switch op {
		case foreign.OpEq:
			return false, nil
		case foreign.OpNe:
			return true, nil
		}
		rt := foreign.NoneType
		if right != nil {
			rt = right.Type()
		}
		return false, &TypeError{Op: op, Left: left.Type(), Right: rt}
	case unordered:
		return op == foreign.OpNe, nil
	}
	return op.Eval(ord), nil
}

func compare(left *Value, right foreign.Object) (int, compareResult) {
	if foreign.Object(left) == right {
		return 0, ordered
	}
	switch r := right.(type) {
	case *Value:
		if r.typ == left.typ {
			if left.typ.signed {
				return cmp.Compare(int64(left.bits), int64(r.bits)), ordered
			}
			return cmp.Compare(left.bits, r.bits), ordered
		}
		if r.typ.unsigned64 {
			return compareUnsigned(left, r.bits), ordered
		}
		return compareSigned(left, r.signedBits()), ordered
	case *foreign.Int:
		if v, ok := r.Int64(); ok {
			return compareSigned(left, v), ordered
		}
		if v, ok := r.Uint64(); ok {
			return compareUnsigned(left, v), ordered
		}
		// Out of range of every enum.
		return -r.Sign(), ordered
	case foreign.Bool:
		if r {
			return compareSigned(left, 1), ordered
		}
		return compareSigned(left, 0), ordered
	case foreign.Float:
		f := float64(r)
		if math.IsNaN(f) {
			return 0, unordered
		}
		return cmp.Compare(left.Float64(), f), ordered
	case foreign.Str:
		return strings.Compare(left.Name(), string(r)), ordered
	}
	return 0, unsupported
}

// signedBits is the value as an int64. Only meaningful if the type is not
// Unsigned64.
func (v *Value) signedBits() int64 {
	return int64(v.bits)
}

func compareSigned(left *Value, b int64) int {
	if left.typ.unsigned64 {
		if b < 0 {
			return 1
		}
		return cmp.Compare(left.bits, uint64(b))
	}
	return cmp.Compare(left.signedBits(), b)
}

func compareUnsigned(left *Value, b uint64) int {
	if left.typ.unsigned64 {
		return cmp.Compare(left.bits, b)
	}
	a := left.signedBits()
	if a < 0 {
		return -1
	}
	return cmp.Compare(uint64(a), b)
}
