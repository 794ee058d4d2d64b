package converter

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var errorType = reflect.TypeFor[error]()

// ImplicitOp is a user-declared conversion between two Go types.
type ImplicitOp struct {
	From, To reflect.Type
	fn       reflect.Value
	hasErr   bool
}

// Apply calls the operator on v. Any failure of the operator is returned
// as an [*ImplicitConversionError].
func (op *ImplicitOp) Apply(v reflect.Value) (res reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			res, err = reflect.Value{}, &ImplicitConversionError{From: op.From, To: op.To, Err: cause}
		}
	}()
	out := op.fn.Call([]reflect.Value{v})
	if op.hasErr && !out[1].IsNil() {
		return reflect.Value{}, &ImplicitConversionError{From: op.From, To: op.To, Err: out[1].Interface().(error)}
	}
	return out[0], nil
}

// Implicits holds implicit conversion operators. Operators are tried in
// registration order, the first applicable one wins.
type Implicits struct {
	mu  sync.RWMutex
	ops []*ImplicitOp
}

// Register adds fn, which must be of the form func(From) To or
// func(From) (To, error).
func (im *Implicits) Register(fn any) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Errorf("register implicit conversion: expected func, got %T", fn)
	}
	t := v.Type()
	if t.NumIn() != 1 || t.IsVariadic() {
		return fmt.Errorf("register implicit conversion %v: expected exactly one parameter", t)
	}
	op := &ImplicitOp{From: t.In(0), fn: v}
	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
		op.hasErr = true
	default:
		return fmt.Errorf("register implicit conversion %v: expected (To) or (To, error) results", t)
	}
	op.To = t.Out(0)
	if op.From == op.To {
		return errors.New("register implicit conversion: identity conversion " + t.String())
	}

	im.mu.Lock()
	defer im.mu.Unlock()
	for _, other := range im.ops {
		if other.From == op.From && other.To == op.To {
			return fmt.Errorf("register implicit conversion: %v to %v already registered", op.From, op.To)
		}
	}
	im.ops = append(im.ops, op)
	return nil
}

// Lookup returns the first operator converting from to a type assignable
// to to.
func (im *Implicits) Lookup(from, to reflect.Type) (*ImplicitOp, bool) {
	if im == nil || from == nil {
		return nil, false
	}
	im.mu.RLock()
	defer im.mu.RUnlock()
	for _, op := range im.ops {
		if op.From == from && op.To.AssignableTo(to) {
			return op, true
		}
	}
	return nil, false
}
