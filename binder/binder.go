// Package binder selects the overload of a callable that matches a call
// made with foreign arguments, converts the arguments and invokes it.
//
// Candidates are tried in precedence order (see [overload.ArgPrecedence]).
// A candidate whose arguments all convert without coercion is bound
// immediately. Candidates that need a coercion are remembered, and the
// best of them is bound if no exact candidate follows:
//
//  1. an integer passed as an enum
//  2. an integer passed as a float
//  3. a user-defined implicit conversion, a number passed as a decimal, or
//     a string naming an enum constant
//
// Within each class the first candidate found wins. Only one implicitly
// converted binding is ever attempted.
package binder

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/refaktor/hostbridge/converter"
	"github.com/refaktor/hostbridge/foreign"
	"github.com/refaktor/hostbridge/logger"
	"github.com/refaktor/hostbridge/overload"
	"github.com/shopspring/decimal"
)

var (
	anyType     = reflect.TypeFor[any]()
	decimalType = reflect.TypeFor[decimal.Decimal]()
)

type Binder struct {
	Conv   *converter.Converter
	Casing Casing
	// Interpreter lock. Held by callers of Bind and Invoke.
	Lock sync.Locker
	// Release Lock while the native function runs.
	AllowThreads bool
	// Log each candidate attempt at DEBUG level.
	Trace bool
	Log   *logger.Logger
}

func New(conv *converter.Converter) *Binder {
	return &Binder{Conv: conv}
}

// Call is a call from the foreign side.
type Call struct {
	// Bound instance, nil if unbound.
	Target foreign.Object
	Args   []foreign.Object
	Kwargs map[string]foreign.Object
	// If set, only this overload is considered.
	Overload *overload.Candidate
}

// KwargsFromDict returns the keyword arguments held in d, whose keys must
// be strings.
func KwargsFromDict(d *foreign.Dict) (map[string]foreign.Object, error) {
	if d == nil || d.Len() == 0 {
		return nil, nil
	}
	res := make(map[string]foreign.Object, d.Len())
	var err error
	d.Items(func(k, v foreign.Object) bool {
		s, ok := k.(foreign.Str)
		if !ok {
			err = fmt.Errorf("keywords must be strings, got %v", k.Type())
			return false
		}
		res[string(s)] = v
		return true
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Binding is a resolved call, ready to be invoked.
type Binding struct {
	Candidate *overload.Candidate
	// Receiver. Invalid for static candidates.
	Target reflect.Value
	// One per parameter of Candidate.
	Args []reflect.Value
	// Number of out parameters.
	Outs int
	// At least one argument was coerced.
	Implicit bool
}

// tier classifies how well a candidate matched. Lower is better.
type tier int

const (
	tierExact tier = iota
	tierEnum
	tierWiden
	tierImplicit
	numTiers
)

func (t tier) String() string {
	switch t {
	case tierExact:
		return "exact"
	case tierEnum:
		return "enum"
	case tierWiden:
		return "widen"
	case tierImplicit:
		return "implicit"
	default:
		panic("invalid tier")
	}
}

// Bind resolves call against set. It returns nil if no candidate matches.
// An error is only returned if a user-defined implicit conversion fails.
func (b *Binder) Bind(set *overload.Set, call *Call) (*Binding, error) {
	binding, _, err := b.bindSet(set, call)
	return binding, err
}

// bindSet is like Bind, but also returns why generic definitions could
// not be closed.
func (b *Binder) bindSet(set *overload.Set, call *Call) (binding *Binding, cause error, err error) {
	candidates := set.Candidates()
	if call.Overload != nil {
		candidates = []*overload.Candidate{call.Overload}
	}
	binding, err = b.bind(set.Name(), candidates, call)
	if err != nil || binding != nil {
		return binding, nil, err
	}
	if call.Overload == nil && set.HasGeneric() {
		return b.closeGeneric(set.Name(), candidates, call)
	}
	return nil, nil, nil
}

// bind is the first phase of binding. Open generic definitions never
// match.
func (b *Binder) bind(name string, candidates []*overload.Candidate, call *Call) (*Binding, error) {
	var deferred [numTiers]*Binding
	multi := len(candidates) > 1
	for _, c := range candidates {
		if c.IsOpen() {
			b.trace("%v: skip generic definition %v", name, c.Signature())
			continue
		}
		params, op, ok := effectiveParams(c, len(call.Args))
		if !ok {
			b.trace("%v: skip %v: reversed comparison", name, c.Signature())
			continue
		}
		plan, err := Match(params, len(call.Args), call.Kwargs, b.Casing)
		if err != nil {
			b.trace("%v: reject %v: %v", name, c.Signature(), err)
			continue
		}

		binding := &Binding{Candidate: c, Outs: c.NumOut()}
		if !c.Static {
			if call.Target == nil {
				b.trace("%v: reject %v: no instance", name, c.Signature())
				continue
			}
			recv, err := b.Conv.ToNativeExact(call.Target, c.ReflectedType)
			if err != nil {
				b.trace("%v: reject %v: receiver: %v", name, c.Signature(), err)
				continue
			}
			binding.Target = recv
		}

		args, t, err := b.convertArgs(c, params, plan, call, multi, deferred[tierImplicit] != nil)
		if err != nil {
			return nil, err
		}
		if args == nil {
			continue
		}
		if op != nil {
			args, ok = b.withOperand(c, op, args, call.Target)
			if !ok {
				b.trace("%v: reject %v: no operand", name, c.Signature())
				continue
			}
		}
		binding.Args = args
		binding.Implicit = t != tierExact
		b.trace("%v: match %v (%v)", name, c.Signature(), t)
		if t == tierExact {
			return binding, nil
		}
		if deferred[t] == nil {
			deferred[t] = binding
		}
	}
	for _, binding := range deferred {
		if binding != nil {
			return binding, nil
		}
	}
	return nil, nil
}

// effectiveParams returns the parameters of c that are filled by call
// arguments. For an operator called with one argument less than it has
// operands, the bound instance fills the remaining operand, and op is the
// operator. Reversed comparisons never match.
func effectiveParams(c *overload.Candidate, nargs int) (params []overload.Param, op *overload.Operator, ok bool) {
	if c.Op == nil || nargs != len(c.Params)-1 {
		return c.Params, nil, true
	}
	if c.Op.Reverse {
		if c.Op.Kind.IsComparison() {
			return nil, nil, false
		}
		return c.Params[:1], c.Op, true
	}
	return c.Params[1:], c.Op, true
}

// withOperand inserts the bound operand into the converted operator
// arguments.
func (b *Binder) withOperand(c *overload.Candidate, op *overload.Operator, args []reflect.Value, target foreign.Object) ([]reflect.Value, bool) {
	if target == nil {
		return nil, false
	}
	bound := 0
	if op.Reverse {
		bound = 1
	}
	v, err := b.Conv.ToNativeExact(target, c.Params[bound].Type)
	if err != nil {
		return nil, false
	}
	res := make([]reflect.Value, 0, len(c.Params))
	if op.Reverse {
		res = append(res, args...)
		res = append(res, v)
	} else {
		res = append(res, v)
		res = append(res, args...)
	}
	return res, true
}

// convertArgs converts the arguments for params according to plan. It
// returns nil if an argument does not convert, and an error only for a
// failing implicit conversion. Nothing is converted in place, so a
// rejected candidate leaves no trace.
func (b *Binder) convertArgs(c *overload.Candidate, params []overload.Param, plan Plan, call *Call, multi, haveImplicit bool) ([]reflect.Value, tier, error) {
	args := make([]reflect.Value, len(params))
	worst := tierExact
	for i := range params {
		p := &params[i]
		var obj foreign.Object
		switch plan.Sources[i] {
		case FromPositional:
			obj = call.Args[i]
		case FromKeyword:
			obj = call.Kwargs[plan.Keywords[i]]
		case FromDefault:
			args[i] = defaultValue(p)
			continue
		case FromVariadic:
			obj = foldVariadic(call.Args, i)
		}

		var (
			v   reflect.Value
			t   tier
			ok  bool
			err error
		)
		switch {
		case !multi:
			v, err = b.Conv.ToNative(obj, p.Type)
			ok = err == nil
		case plan.Sources[i] == FromVariadic:
			v, t, ok, err = b.matchVariadic(obj, p.Type, haveImplicit)
		default:
			v, t, ok, err = b.matchArg(obj, p.Type, haveImplicit)
		}
		if err != nil && isImplicitFault(err) {
			return nil, 0, err
		}
		if !ok {
			b.trace("%v: reject %v: argument %v: %v", c.Name, c.Signature(), p.Name, errOr(err, "type mismatch"))
			return nil, 0, nil
		}
		args[i] = v
		worst = max(worst, t)
	}
	return args, worst, nil
}

func errOr(err error, s string) error {
	if err == nil {
		return errors.New(s)
	}
	return err
}

// defaultValue returns the value of an omitted parameter.
func defaultValue(p *overload.Param) reflect.Value {
	switch {
	case p.Out:
		return reflect.New(p.Type.Elem())
	case p.Variadic:
		return reflect.MakeSlice(p.Type, 0, 0)
	case p.Default.Kind() == reflect.Pointer && !p.Default.IsNil():
		res := reflect.New(p.Default.Type().Elem())
		res.Elem().Set(p.Default.Elem())
		return res
	case p.HasDefault:
		return p.Default
	}
	return reflect.Zero(p.Type)
}

// foldVariadic returns the argument for a variadic parameter at index
// start: a single iterable argument is used as is, anything else is
// collected into a tuple.
func foldVariadic(args []foreign.Object, start int) foreign.Object {
	if start >= len(args) {
		return foreign.Tuple{}
	}
	rest := args[start:]
	if len(rest) == 1 {
		if _, isStr := rest[0].(foreign.Str); !isStr {
			if _, isSeq := rest[0].(foreign.Sequence); isSeq {
				return rest[0]
			}
		}
	}
	return foreign.Tuple(rest)
}

// matchArg converts obj to t when several candidates compete, classifying
// how well it matched. ok is false if obj does not convert.
func (b *Binder) matchArg(obj foreign.Object, t reflect.Type, haveImplicit bool) (v reflect.Value, tr tier, ok bool, err error) {
	exact := func(tr tier) (reflect.Value, tier, bool, error) {
		v, err := b.Conv.ToNativeExact(obj, t)
		if err != nil {
			return reflect.Value{}, 0, false, err
		}
		return v, tr, true, nil
	}

	eq := b.Conv.NativeEquivalent(obj)
	if eq == nil {
		return exact(tierExact)
	}
	ut := t
	if ut.Kind() == reflect.Pointer {
		ut = ut.Elem()
	}
	if t == anyType || t == eq || ut == eq || b.Conv.ForeignTypeOf(ut) == obj.Type() {
		return exact(tierExact)
	}
	if tr, ok := b.numericPreference(obj, ut); ok {
		return exact(tr)
	}
	if code := converter.TypeCodeOf(ut); code == converter.TypeCodeOf(eq) {
		v, err := b.Conv.ToNativeExact(obj, t)
		if err == nil {
			return v, tierExact, true, nil
		}
		// Objects of unrelated types may still convert implicitly.
		if code != converter.CodeObject {
			return reflect.Value{}, 0, false, err
		}
	}
	if haveImplicit {
		return reflect.Value{}, 0, false, nil
	}

	if ut == decimalType {
		return exact(tierImplicit)
	}
	if op, ok := b.Conv.Implicits.Lookup(eq, t); ok {
		v, err := b.Conv.ApplyImplicit(op, obj, t)
		if err != nil {
			return reflect.Value{}, 0, false, err
		}
		return v, tierImplicit, true, nil
	}
	if _, isStr := obj.(foreign.Str); isStr && b.Conv.IsEnum(ut) {
		return exact(tierImplicit)
	}
	return reflect.Value{}, 0, false, nil
}

// matchVariadic is matchArg for the folded arguments of a variadic
// parameter of slice type t. The worst matching element ranks the whole.
func (b *Binder) matchVariadic(obj foreign.Object, t reflect.Type, haveImplicit bool) (reflect.Value, tier, bool, error) {
	seq, ok := obj.(foreign.Sequence)
	if !ok {
		return b.matchArg(obj, t, haveImplicit)
	}
	res := reflect.MakeSlice(t, seq.Len(), seq.Len())
	worst := tierExact
	for i := range seq.Len() {
		v, tr, ok, err := b.matchArg(seq.Item(i), t.Elem(), haveImplicit)
		if !ok {
			return reflect.Value{}, 0, false, err
		}
		res.Index(i).Set(v)
		worst = max(worst, tr)
	}
	return res, worst, true, nil
}

// numericPreference ranks integer arguments for parameters that are not
// integers: an enum parameter is preferred over a floating point one, and
// both only if no integer parameter matches.
func (b *Binder) numericPreference(obj foreign.Object, t reflect.Type) (tier, bool) {
	if _, ok := obj.(*foreign.Int); !ok {
		return 0, false
	}
	if b.Conv.IsEnum(t) {
		return tierEnum, true
	}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64:
		return tierWiden, true
	}
	return 0, false
}

func (b *Binder) trace(format string, args ...any) {
	if b.Trace {
		b.Log.Debugf(format, args...)
	}
}
