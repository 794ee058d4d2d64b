package converter

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// ConversionError is returned when a value cannot be converted.
type ConversionError struct {
	Dir  Direction
	From string
	To   string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %v to %v: %v", e.From, e.To, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func errToNative(from fmt.Stringer, to reflect.Type, err error) error {
	return &ConversionError{Dir: ToNative, From: from.String(), To: to.String(), Err: err}
}

func errToForeign(from reflect.Type, err error) error {
	return &ConversionError{Dir: ToForeign, From: from.String(), To: "foreign value", Err: err}
}

// ImplicitConversionError is returned when a registered implicit conversion
// operator fails (returns an error or panics). It is distinct from a
// conversion simply being unavailable.
type ImplicitConversionError struct {
	From, To reflect.Type
	Err      error
}

func (e *ImplicitConversionError) Error() string {
	return fmt.Sprintf("failed to implicitly convert %v to %v: %v", e.From, e.To, e.Err)
}

func (e *ImplicitConversionError) Unwrap() error {
	return e.Err
}

// ElementError aggregates the failed elements of a container conversion.
type ElementError struct {
	errors map[int]error
}

// Returns nil if errs is empty.
// Underlying type is always [*ElementError].
func newElementError(errs map[int]error) error {
	if len(errs) == 0 {
		return nil
	}
	return &ElementError{errors: errs}
}

func (e *ElementError) sortedKeys() []int {
	return slices.Sorted(maps.Keys(e.errors))
}

// Error returns a short error message.
func (e *ElementError) Error() string {
	first := e.sortedKeys()[0]
	if len(e.errors) == 1 {
		return fmt.Sprintf("element %v: %v", first, e.errors[first])
	}
	return fmt.Sprintf("%v element errors, first: element %v: %v", len(e.errors), first, e.errors[first])
}

// String returns a full multi-line error message containing
// all errors.
func (e *ElementError) String() string {
	var b strings.Builder
	for _, k := range e.sortedKeys() {
		fmt.Fprintf(&b, "element %v: %v\n", k, e.errors[k])
	}
	return b.String()
}

func (e *ElementError) Unwrap() []error {
	keys := e.sortedKeys()
	errs := make([]error, 0, len(keys))
	for _, k := range keys {
		errs = append(errs, e.errors[k])
	}
	return errs
}
