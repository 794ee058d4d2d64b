package binder

import (
	"reflect"

	"github.com/refaktor/hostbridge/foreign"
	"github.com/refaktor/hostbridge/overload"
)

// Invoke binds call against set and calls the bound function.
//
// If nothing matches, the error is a [*NoMatchError]. An error returned
// or panicked by the function itself is returned unwrapped to its
// innermost cause.
//
// Results are converted to foreign values. Several results, or results
// and out parameters, are returned as a [foreign.Tuple]. A function
// without results and exactly one out parameter returns that parameter's
// value.
func (b *Binder) Invoke(set *overload.Set, call *Call) (foreign.Object, error) {
	binding, cause, err := b.bindSet(set, call)
	if err != nil {
		return nil, err
	}
	if binding == nil {
		return nil, &NoMatchError{Name: set.Name(), Args: call.Args, Cause: cause}
	}
	return b.Call(binding)
}

// Call invokes a binding returned by [Binder.Bind].
func (b *Binder) Call(binding *Binding) (foreign.Object, error) {
	c := binding.Candidate
	in := binding.Args
	if !c.Static {
		in = make([]reflect.Value, 0, len(binding.Args)+1)
		in = append(in, binding.Target)
		in = append(in, binding.Args...)
	}

	out, err := b.call(c, in)
	if err != nil {
		return nil, err
	}
	if c.HasErr {
		if errv := out[len(out)-1]; !errv.IsNil() {
			return nil, innermost(errv.Interface().(error))
		}
		out = out[:len(out)-1]
	}
	return b.results(binding, out)
}

// call calls the candidate's function, releasing the interpreter lock
// while it runs if enabled.
func (b *Binder) call(c *overload.Candidate, in []reflect.Value) (out []reflect.Value, err error) {
	if b.AllowThreads && b.Lock != nil {
		b.Lock.Unlock()
		defer b.Lock.Lock()
	}
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = innermost(e)
			} else {
				err = &PanicError{Value: r}
			}
		}
	}()
	if n := len(c.Params); n > 0 && c.Params[n-1].Variadic {
		return c.Fn.CallSlice(in), nil
	}
	return c.Fn.Call(in), nil
}

func (b *Binder) results(binding *Binding, out []reflect.Value) (foreign.Object, error) {
	c := binding.Candidate
	items := make(foreign.Tuple, 0, len(out)+binding.Outs)
	for i, v := range out {
		obj, err := b.Conv.ToForeign(v, c.Results[i])
		if err != nil {
			return nil, err
		}
		items = append(items, obj)
	}

	if binding.Outs > 0 {
		if len(items) == 0 {
			items = append(items, foreign.None)
		}
		for i, p := range c.Params {
			if !p.Out {
				continue
			}
			ptr := binding.Args[i]
			var obj foreign.Object = foreign.None
			if !ptr.IsNil() {
				var err error
				obj, err = b.Conv.ToForeign(ptr.Elem(), p.Type.Elem())
				if err != nil {
					return nil, err
				}
			}
			items = append(items, obj)
		}
		if binding.Outs == 1 && len(out) == 0 {
			return items[1], nil
		}
		return items, nil
	}

	switch len(items) {
	case 0:
		return foreign.None, nil
	case 1:
		return items[0], nil
	default:
		return items, nil
	}
}
