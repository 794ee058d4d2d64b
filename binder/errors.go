package binder

import (
	"errors"
	"fmt"

	"github.com/refaktor/hostbridge/converter"
	"github.com/refaktor/hostbridge/foreign"
)

var ErrAmbiguousGeneric = errors.New("ambiguous generic")

// NoMatchError is returned by [Binder.Invoke] if no overload matches the
// arguments.
type NoMatchError struct {
	Name string
	Args []foreign.Object
	// Why generic definitions could not be closed, if there were any.
	Cause error
}

func (e *NoMatchError) Error() string {
	msg := fmt.Sprintf("no method matches given arguments for %v: (%v)", e.Name, foreign.TypeNames(e.Args))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *NoMatchError) Unwrap() error {
	return e.Cause
}

// PanicError is a panic of a called native function with a value that is
// not an error.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// innermost returns the innermost error of the chain of single wrapped
// errors starting at err.
func innermost(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func isImplicitFault(err error) bool {
	var ice *converter.ImplicitConversionError
	return errors.As(err, &ice)
}
