package projection

import (
	"reflect"

	"github.com/hashicorp/go-multierror"
	"github.com/refaktor/hostbridge/enum"
	"github.com/refaktor/hostbridge/foreign"
	"github.com/refaktor/hostbridge/overload"
)

var (
	float64Type = reflect.TypeFor[float64]()
	errorType   = reflect.TypeFor[error]()
)

type opImpl func(args []reflect.Value) (reflect.Value, error)

// makeOp creates a function of type func(in...) (out, error) from impl.
func makeOp(in []reflect.Type, out reflect.Type, impl opImpl) any {
	ft := reflect.FuncOf(in, []reflect.Type{out, errorType}, false)
	return reflect.MakeFunc(ft, func(args []reflect.Value) []reflect.Value {
		res, err := impl(args)
		if !res.IsValid() {
			res = reflect.Zero(out)
		}
		errv := reflect.Zero(errorType)
		if err != nil {
			errv = reflect.ValueOf(&err).Elem()
		}
		return []reflect.Value{res, errv}
	}).Interface()
}

// enumOperators returns operator candidates for an enum type: + - * /
// against float64 in both directions, and & | ^ ~ for flags.
func enumOperators(et *enum.Type, reg *enum.Registry) ([]*overload.Candidate, error) {
	t := et.Go
	value := func(v reflect.Value) *enum.Value {
		ev, _ := reg.ProjectValue(v)
		return ev
	}

	var (
		cands []*overload.Candidate
		errs  error
	)
	add := func(op foreign.Op, fn any) {
		c, err := overload.NewOperator(op, t, fn)
		if err != nil {
			errs = multierror.Append(errs, err)
			return
		}
		cands = append(cands, c)
	}

	for _, op := range []foreign.Op{foreign.OpAdd, foreign.OpSub, foreign.OpMul, foreign.OpTrueDiv} {
		add(op, makeOp([]reflect.Type{t, float64Type}, float64Type, func(args []reflect.Value) (reflect.Value, error) {
			res, err := enum.Arith(op, value(args[0]), args[1].Float(), false)
			return reflect.ValueOf(res), err
		}))
		add(op, makeOp([]reflect.Type{float64Type, t}, float64Type, func(args []reflect.Value) (reflect.Value, error) {
			res, err := enum.Arith(op, value(args[1]), args[0].Float(), true)
			return reflect.ValueOf(res), err
		}))
	}

	if et.Flags {
		for _, op := range []foreign.Op{foreign.OpAnd, foreign.OpOr, foreign.OpXor} {
			add(op, makeOp([]reflect.Type{t, t}, t, func(args []reflect.Value) (reflect.Value, error) {
				res, err := enum.Bitwise(op, value(args[0]), value(args[1]))
				if err != nil {
					return reflect.Value{}, err
				}
				return res.Native(), nil
			}))
		}
		add(foreign.OpInvert, makeOp([]reflect.Type{t}, t, func(args []reflect.Value) (reflect.Value, error) {
			res, err := enum.Invert(value(args[0]))
			if err != nil {
				return reflect.Value{}, err
			}
			return res.Native(), nil
		}))
	}
	return cands, errs
}
