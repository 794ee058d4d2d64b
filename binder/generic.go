package binder

import (
	"fmt"
	"reflect"

	"github.com/hashicorp/go-multierror"
	"github.com/refaktor/hostbridge/foreign"
	"github.com/refaktor/hostbridge/overload"
)

// closeGeneric is the second phase of binding, run if no candidate
// matched in the first. It infers the type arguments of each generic
// definition from the arguments' runtime types and binds the first
// instantiation that matches. cause collects why each definition failed.
func (b *Binder) closeGeneric(name string, candidates []*overload.Candidate, call *Call) (binding *Binding, cause error, err error) {
	for _, c := range candidates {
		if !c.IsOpen() {
			continue
		}
		plan, err := Match(c.Params, len(call.Args), call.Kwargs, b.Casing)
		if err != nil {
			continue
		}
		typeArgs, err := b.inferTypeArgs(c, plan, call)
		if err != nil {
			cause = multierror.Append(cause, err)
			continue
		}
		closed, err := c.Close(typeArgs)
		if err != nil {
			cause = multierror.Append(cause, err)
			continue
		}
		b.trace("%v: closed %v as %v", name, c.Signature(), closed.Signature())
		binding, err := b.bind(name, []*overload.Candidate{closed}, call)
		if err != nil {
			return nil, nil, err
		}
		if binding != nil {
			return binding, nil, nil
		}
	}
	return nil, cause, nil
}

// inferTypeArgs infers the type arguments of the generic definition c
// from the native equivalents of the arguments given for its type
// parameter typed parameters.
func (b *Binder) inferTypeArgs(c *overload.Candidate, plan Plan, call *Call) ([]reflect.Type, error) {
	typeArgs := make([]reflect.Type, len(c.Def.TypeParams))
	infer := func(k int, obj foreign.Object) error {
		t := b.Conv.NativeEquivalent(obj)
		if t == nil {
			return fmt.Errorf("%w: %v: cannot infer %v from %v", ErrAmbiguousGeneric, c.Name, c.Def.TypeParams[k], obj.Type())
		}
		if typeArgs[k] != nil && typeArgs[k] != t {
			return fmt.Errorf("%w: %v: %v is both %v and %v", ErrAmbiguousGeneric, c.Name, c.Def.TypeParams[k], typeArgs[k], t)
		}
		typeArgs[k] = t
		return nil
	}

	for i, p := range c.Params {
		if p.TypeParam < 0 {
			continue
		}
		var objs []foreign.Object
		switch plan.Sources[i] {
		case FromPositional:
			objs = []foreign.Object{call.Args[i]}
		case FromKeyword:
			objs = []foreign.Object{call.Kwargs[plan.Keywords[i]]}
		case FromVariadic:
			arg := foldVariadic(call.Args, i)
			seq := arg.(foreign.Sequence)
			for j := range seq.Len() {
				objs = append(objs, seq.Item(j))
			}
		}
		for _, obj := range objs {
			if err := infer(p.TypeParam, obj); err != nil {
				return nil, err
			}
		}
	}

	for k, t := range typeArgs {
		if t == nil {
			return nil, fmt.Errorf("%w: %v: cannot infer %v", ErrAmbiguousGeneric, c.Name, c.Def.TypeParams[k])
		}
	}
	return typeArgs, nil
}
