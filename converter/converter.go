// Package converter converts values between the foreign object model and Go.
package converter

import (
	"errors"
	"reflect"
	"time"

	"github.com/refaktor/hostbridge/enum"
	"github.com/refaktor/hostbridge/foreign"
	"github.com/shopspring/decimal"
)

var (
	ErrType     = errors.New("type mismatch")
	ErrOverflow = errors.New("value out of range")
	ErrValue    = errors.New("invalid value")
)

var (
	anyType      = reflect.TypeFor[any]()
	objectType   = reflect.TypeFor[foreign.Object]()
	decimalType  = reflect.TypeFor[decimal.Decimal]()
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
)

type Direction uint8

const (
	ToNative Direction = iota
	ToForeign
)

// String returns the PascalCase string representation ("ToNative" or "ToForeign").
func (d Direction) String() string {
	switch d {
	case ToNative:
		return "ToNative"
	case ToForeign:
		return "ToForeign"
	default:
		panic("invalid conversion direction")
	}
}

func (d Direction) Opposite() Direction {
	switch d {
	case ToNative:
		return ToForeign
	case ToForeign:
		return ToNative
	default:
		panic("invalid conversion direction")
	}
}

type Converter struct {
	Enums     *enum.Registry
	Implicits *Implicits
}

func New(enums *enum.Registry) *Converter {
	return &Converter{
		Enums:     enums,
		Implicits: &Implicits{},
	}
}

// NativeEquivalent returns the Go type a foreign value most naturally
// converts to, or nil if there is no single such type (containers, None).
func (c *Converter) NativeEquivalent(obj foreign.Object) reflect.Type {
	switch obj := obj.(type) {
	case foreign.Bool:
		return reflect.TypeFor[bool]()
	case *foreign.Int:
		return reflect.TypeFor[int]()
	case foreign.Float:
		return reflect.TypeFor[float64]()
	case foreign.Str:
		return reflect.TypeFor[string]()
	case foreign.Decimal:
		return decimalType
	case foreign.DateTime:
		return timeType
	case foreign.TimeDelta:
		return durationType
	case *enum.Value:
		return obj.EnumType().Go
	case *foreign.Native:
		if obj.Value != nil {
			return reflect.TypeOf(obj.Value)
		}
	}
	return nil
}

// ForeignTypeOf returns the foreign type values of t are converted to.
func (c *Converter) ForeignTypeOf(t reflect.Type) *foreign.Type {
	switch t {
	case nil:
		return nil
	case decimalType:
		return foreign.DecimalType
	case timeType:
		return foreign.DateTimeType
	case durationType:
		return foreign.TimeDeltaType
	}
	if c.isEnum(t) {
		return foreign.NativeType(t)
	}
	switch t.Kind() {
	case reflect.Bool:
		return foreign.BoolType
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return foreign.IntType
	case reflect.Float32, reflect.Float64:
		return foreign.FloatType
	case reflect.String:
		return foreign.StrType
	case reflect.Slice, reflect.Array:
		return foreign.ListType
	case reflect.Map:
		return foreign.DictType
	}
	return foreign.NativeType(t)
}

func (c *Converter) isEnum(t reflect.Type) bool {
	if c.Enums == nil {
		return false
	}
	_, ok := c.Enums.Lookup(t)
	return ok
}

// TypeCode is the primitive storage class of a Go type.
type TypeCode int

const (
	CodeObject TypeCode = iota
	CodeBool
	CodeInt8
	CodeUint8
	CodeInt16
	CodeUint16
	CodeInt32
	CodeUint32
	CodeInt64
	CodeUint64
	CodeFloat32
	CodeFloat64
	CodeDecimal
	CodeDateTime
	CodeString
)

// TypeCodeOf returns the type code of t. Named integer types (including
// enums) report their underlying kind. Every non-primitive type, and
// [time.Duration], is CodeObject.
func TypeCodeOf(t reflect.Type) TypeCode {
	switch t {
	case decimalType:
		return CodeDecimal
	case timeType:
		return CodeDateTime
	case durationType:
		return CodeObject
	}
	switch t.Kind() {
	case reflect.Bool:
		return CodeBool
	case reflect.Int8:
		return CodeInt8
	case reflect.Uint8:
		return CodeUint8
	case reflect.Int16:
		return CodeInt16
	case reflect.Uint16:
		return CodeUint16
	case reflect.Int32:
		return CodeInt32
	case reflect.Uint32:
		return CodeUint32
	case reflect.Int, reflect.Int64:
		return CodeInt64
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return CodeUint64
	case reflect.Float32:
		return CodeFloat32
	case reflect.Float64:
		return CodeFloat64
	case reflect.String:
		return CodeString
	}
	return CodeObject
}

// IsEnum reports whether t is a registered enum type.
func (c *Converter) IsEnum(t reflect.Type) bool {
	return c.isEnum(t)
}
