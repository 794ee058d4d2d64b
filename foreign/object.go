// Package foreign models values living on the dynamic-language side of the
// bridge.
//
// An embedding interpreter adapts its own values to [Object] before handing
// them to the binder, and receives [Object] values back from native calls.
// There is one type per builtin kind, plus
// [Native] for opaque Go values and projected enum constants (see package
// enum).
package foreign

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Type is the foreign runtime type of an [Object].
// Types are interned, so they can be compared with ==.
type Type struct {
	Name string
	// Go is the Go type a native type projects. Nil for builtins.
	Go reflect.Type
}

func (t *Type) String() string {
	return "<class '" + t.Name + "'>"
}

var (
	NoneType      = &Type{Name: "NoneType"}
	BoolType      = &Type{Name: "bool"}
	IntType       = &Type{Name: "int"}
	FloatType     = &Type{Name: "float"}
	StrType       = &Type{Name: "str"}
	DecimalType   = &Type{Name: "decimal.Decimal"}
	DateTimeType  = &Type{Name: "datetime.datetime"}
	TimeDeltaType = &Type{Name: "datetime.timedelta"}
	ListType      = &Type{Name: "list"}
	TupleType     = &Type{Name: "tuple"}
	DictType      = &Type{Name: "dict"}
)

var nativeTypes sync.Map // map[reflect.Type]*Type

// NativeType returns the interned foreign type projecting Go type t.
func NativeType(t reflect.Type) *Type {
	if ft, ok := nativeTypes.Load(t); ok {
		return ft.(*Type)
	}
	ft, _ := nativeTypes.LoadOrStore(t, &Type{Name: t.String(), Go: t})
	return ft.(*Type)
}

// Object is a foreign value.
type Object interface {
	Type() *Type
}

// Sequence is implemented by ordered foreign containers.
type Sequence interface {
	Object
	Len() int
	Item(i int) Object
}

type NoneObject struct{}

// None is the only NoneObject.
var None = NoneObject{}

func (NoneObject) Type() *Type { return NoneType }
func (NoneObject) String() string { return "None" }

type Bool bool

func (Bool) Type() *Type { return BoolType }

// Int is an arbitrary precision integer.
type Int struct {
	v big.Int
}

func NewInt(x int64) *Int {
	i := &Int{}
	i.v.SetInt64(x)
	return i
}

func NewUint(x uint64) *Int {
	i := &Int{}
	i.v.SetUint64(x)
	return i
}

// NewBigInt copies x.
func NewBigInt(x *big.Int) *Int {
	i := &Int{}
	i.v.Set(x)
	return i
}

func (*Int) Type() *Type { return IntType }

// Big returns a copy of the value.
func (i *Int) Big() *big.Int {
	return new(big.Int).Set(&i.v)
}

func (i *Int) Sign() int { return i.v.Sign() }

// Int64 returns the value and whether it fits into an int64.
func (i *Int) Int64() (int64, bool) {
	return i.v.Int64(), i.v.IsInt64()
}

// Uint64 returns the value and whether it fits into a uint64.
func (i *Int) Uint64() (uint64, bool) {
	return i.v.Uint64(), i.v.IsUint64()
}

func (i *Int) Float64() float64 {
	f, _ := new(big.Float).SetInt(&i.v).Float64()
	return f
}

func (i *Int) String() string { return i.v.String() }

type Float float64

func (Float) Type() *Type { return FloatType }

// IsIntegral reports whether f has no fractional part.
func (f Float) IsIntegral() bool {
	return !math.IsInf(float64(f), 0) && float64(f) == math.Trunc(float64(f))
}

type Str string

func (Str) Type() *Type { return StrType }

type Decimal struct {
	Value decimal.Decimal
}

func (Decimal) Type() *Type { return DecimalType }
func (d Decimal) String() string { return d.Value.String() }

type DateTime struct {
	Value time.Time
}

func (DateTime) Type() *Type { return DateTimeType }

type TimeDelta struct {
	Value time.Duration
}

func (TimeDelta) Type() *Type { return TimeDeltaType }

// List is a mutable sequence.
type List struct {
	Items []Object
}

func NewList(items ...Object) *List {
	return &List{Items: items}
}

func (*List) Type() *Type { return ListType }
func (l *List) Len() int { return len(l.Items) }
func (l *List) Item(i int) Object { return l.Items[i] }
func (l *List) Append(obj Object) { l.Items = append(l.Items, obj) }

// Tuple is an immutable sequence.
type Tuple []Object

func (Tuple) Type() *Type { return TupleType }
func (t Tuple) Len() int { return len(t) }
func (t Tuple) Item(i int) Object { return t[i] }

// Native wraps an opaque Go value.
type Native struct {
	Value any
}

func NewNative(v any) *Native {
	return &Native{Value: v}
}

func (n *Native) Type() *Type {
	if n.Value == nil {
		return NoneType
	}
	return NativeType(reflect.TypeOf(n.Value))
}

func (n *Native) String() string {
	return fmt.Sprintf("<%v object>", n.Type().Name)
}

// TypeNames renders the foreign types of objs as a comma separated list,
// e.g. "<class 'int'>, <class 'str'>".
func TypeNames(objs []Object) string {
	var b strings.Builder
	for i, obj := range objs {
		if i > 0 {
			b.WriteString(", ")
		}
		if obj == nil {
			b.WriteString(NoneType.String())
			continue
		}
		b.WriteString(obj.Type().String())
	}
	return b.String()
}
