package overload

import (
	"reflect"

	"github.com/refaktor/hostbridge/foreign"
	"github.com/shopspring/decimal"
)

var (
	anyType     = reflect.TypeFor[any]()
	objectType  = reflect.TypeFor[foreign.Object]()
	decimalType = reflect.TypeFor[decimal.Decimal]()
	errorType   = reflect.TypeFor[error]()
)

const (
	precAny        = 3000
	precAnySlice   = 2500
	precOther      = 2000
	precSlice      = 100
	precStatic     = 3000
	precPromoted   = 3000
	precGeneric    = 1
	precForeignArg = -1
)

// ArgPrecedence ranks the parameter type t. Candidates whose parameters
// rank lower are tried first.
//
// A parameter accepting any foreign object ranks below everything else,
// unless it belongs to an operator, where the bound operand would otherwise
// always be preferred.
func ArgPrecedence(t reflect.Type, isOperator bool) int {
	switch {
	case t == nil:
		return precOther
	case t == anyType:
		return precAny
	case t == decimalType:
		return 2
	case IsForeignParam(t):
		if isOperator {
			return precOther
		}
		return precForeignArg
	}

	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		if t.Elem() == anyType {
			return precAnySlice
		}
		return precSlice + ArgPrecedence(t.Elem(), isOperator)
	case reflect.Float64:
		return 3
	case reflect.Float32:
		return 4
	case reflect.Int64:
		return 21
	case reflect.Int, reflect.Int32:
		return 22
	case reflect.Int16:
		return 23
	case reflect.Uint64, reflect.Uintptr:
		return 24
	case reflect.Uint, reflect.Uint32:
		return 25
	case reflect.Uint16:
		return 26
	case reflect.Uint8:
		return 28
	case reflect.Int8:
		return 29
	case reflect.String:
		return 30
	case reflect.Bool:
		return 40
	}
	return precOther
}

// IsForeignParam reports whether a parameter of type t receives foreign
// objects unconverted.
func IsForeignParam(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Interface && t != anyType && t.Implements(objectType)
}

// Precedence returns the candidate's rank in its set. Lower is tried first.
// A function without result adds nothing for it.
func (c *Candidate) Precedence() int {
	isOperator := c.Op != nil
	val := 0
	if c.Generic {
		val += precGeneric
	}
	if c.Static {
		val += precStatic
	}
	if c.DeclaringType != c.ReflectedType {
		val += precPromoted
	}
	for _, p := range c.Params {
		val += ArgPrecedence(p.Type, isOperator)
	}
	if c.Return != nil {
		val += ArgPrecedence(c.Return, isOperator)
	}
	return val
}
