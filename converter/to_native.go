package converter

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"time"

	"github.com/refaktor/hostbridge/enum"
	"github.com/refaktor/hostbridge/foreign"
	"github.com/shopspring/decimal"
)

// nativeConv is a single conversion rule. TryConv returns ok=false if the
// rule does not apply to the given value and type, so the next rule is
// tried. If the rule applies but fails, it returns ok=true and an error.
type nativeConv struct {
	Name    string
	TryConv func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (v reflect.Value, ok bool, err error)
}

// If the list is declared directly, the compiler falsely complains of an
// initialization cycle.
var convListToNative []nativeConv

func init() {
	convListToNative = nativeConvs
}

// ToNative converts obj to a value of type t, using registered implicit
// conversion operators as a last resort.
func (c *Converter) ToNative(obj foreign.Object, t reflect.Type) (reflect.Value, error) {
	return c.toNative(obj, t, true)
}

// ToNativeExact is like [Converter.ToNative], but never applies implicit
// conversion operators.
func (c *Converter) ToNativeExact(obj foreign.Object, t reflect.Type) (reflect.Value, error) {
	return c.toNative(obj, t, false)
}

// ConvName returns the name of the rule that converts obj to t, or "" if
// there is none. Used for diagnostics.
func (c *Converter) ConvName(obj foreign.Object, t reflect.Type) string {
	if obj == nil {
		obj = foreign.None
	}
	for _, conv := range convListToNative {
		if _, ok, err := conv.TryConv(c, obj, t, false); ok && err == nil {
			return conv.Name
		}
	}
	return ""
}

func (c *Converter) toNative(obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, error) {
	if obj == nil {
		obj = foreign.None
	}
	for _, conv := range convListToNative {
		v, ok, err := conv.TryConv(c, obj, t, implicit)
		if !ok {
			continue
		}
		if err != nil {
			return reflect.Value{}, err
		}
		return v, nil
	}
	if implicit {
		if v, ok, err := c.tryImplicit(obj, t); ok {
			return v, err
		}
	}
	return reflect.Value{}, errToNative(obj.Type(), t, ErrType)
}

// ApplyImplicit converts obj to t through the implicit operator op, which
// must convert from obj's native equivalent.
func (c *Converter) ApplyImplicit(op *ImplicitOp, obj foreign.Object, t reflect.Type) (reflect.Value, error) {
	src, err := c.toNative(obj, op.From, false)
	if err != nil {
		return reflect.Value{}, err
	}
	res, err := op.Apply(src)
	if err != nil {
		return reflect.Value{}, err
	}
	return assign(res, t), nil
}

func (c *Converter) tryImplicit(obj foreign.Object, t reflect.Type) (reflect.Value, bool, error) {
	op, ok := c.Implicits.Lookup(c.NativeEquivalent(obj), t)
	if !ok {
		return reflect.Value{}, false, nil
	}
	v, err := c.ApplyImplicit(op, obj, t)
	return v, true, err
}

// assign returns v as a settable value of type t. v must be assignable to t.
func assign(v reflect.Value, t reflect.Type) reflect.Value {
	if v.Type() == t {
		return v
	}
	res := reflect.New(t).Elem()
	res.Set(v)
	return res
}

func isNilable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map,
		reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

// SeqElem returns the element type of t if t is an iter.Seq type.
func SeqElem(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Func || t.NumIn() != 1 || t.NumOut() != 0 {
		return nil, false
	}
	yield := t.In(0)
	if yield.Kind() != reflect.Func || yield.NumIn() != 1 || yield.NumOut() != 1 ||
		yield.Out(0).Kind() != reflect.Bool {
		return nil, false
	}
	return yield.In(0), true
}

var nativeConvs = []nativeConv{
	{
		Name: "foreign object",
		TryConv: func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, bool, error) {
			if t != objectType {
				return reflect.Value{}, false, nil
			}
			return assign(reflect.ValueOf(obj), t), true, nil
		},
	},
	{
		Name: "none",
		TryConv: func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, bool, error) {
			if _, ok := obj.(foreign.NoneObject); !ok {
				if n, ok := obj.(*foreign.Native); !ok || n.Value != nil {
					return reflect.Value{}, false, nil
				}
			}
			if !isNilable(t.Kind()) {
				return reflect.Value{}, true, errToNative(obj.Type(), t, ErrType)
			}
			return reflect.Zero(t), true, nil
		},
	},
	{
		Name: "native",
		TryConv: func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, bool, error) {
			n, ok := obj.(*foreign.Native)
			if !ok {
				return reflect.Value{}, false, nil
			}
			v := reflect.ValueOf(n.Value)
			switch {
			case v.Type().AssignableTo(t):
				return assign(v, t), true, nil
			case v.Kind() == reflect.Pointer && !v.IsNil() && v.Type().Elem().AssignableTo(t):
				return assign(v.Elem(), t), true, nil
			case t.Kind() == reflect.Pointer && v.Type().AssignableTo(t.Elem()):
				p := reflect.New(t.Elem())
				p.Elem().Set(v)
				return p, true, nil
			}
			return reflect.Value{}, false, nil
		},
	},
	{
		Name: "enum",
		TryConv: func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, bool, error) {
			if e, ok := obj.(*enum.Value); ok {
				goType := e.EnumType().Go
				switch {
				case goType == t:
					return e.Native(), true, nil
				case t.Kind() == reflect.Interface && goType.Implements(t):
					return assign(e.Native(), t), true, nil
				}
				return reflect.Value{}, false, nil
			}
			if c.Enums == nil {
				return reflect.Value{}, false, nil
			}
			et, ok := c.Enums.Lookup(t)
			if !ok {
				return reflect.Value{}, false, nil
			}
			switch obj := obj.(type) {
			case *foreign.Int:
				rv := reflect.New(t).Elem()
				if err := setInt(rv, obj); err != nil {
					return reflect.Value{}, true, errToNative(obj.Type(), t, err)
				}
				if !et.IsDefined(c.bitsOf(rv)) {
					return reflect.Value{}, true, errToNative(obj.Type(), t,
						fmt.Errorf("%w: %v is not a valid %v", ErrValue, obj, et.Name))
				}
				return rv, true, nil
			case foreign.Str:
				v, ok := et.Constant(string(obj))
				if !ok {
					return reflect.Value{}, true, errToNative(obj.Type(), t,
						fmt.Errorf("%w: %v has no member %q", ErrValue, et.Name, string(obj)))
				}
				return v.Native(), true, nil
			}
			return reflect.Value{}, false, nil
		},
	},
	{
		Name: "interface",
		TryConv: func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, bool, error) {
			if t.Kind() != reflect.Interface {
				return reflect.Value{}, false, nil
			}
			if t.NumMethod() == 0 {
				v, err := c.toAny(obj)
				if err != nil {
					return reflect.Value{}, true, err
				}
				res := reflect.New(t).Elem()
				if v != nil {
					res.Set(reflect.ValueOf(v))
				}
				return res, true, nil
			}
			if reflect.TypeOf(obj).Implements(t) {
				return assign(reflect.ValueOf(obj), t), true, nil
			}
			return reflect.Value{}, false, nil
		},
	},
	{
		Name: "nullable",
		TryConv: func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, bool, error) {
			if t.Kind() != reflect.Pointer {
				return reflect.Value{}, false, nil
			}
			elem, err := c.toNative(obj, t.Elem(), implicit)
			if err != nil {
				return reflect.Value{}, true, err
			}
			p := reflect.New(t.Elem())
			p.Elem().Set(elem)
			return p, true, nil
		},
	},
	{
		Name: "decimal",
		TryConv: func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, bool, error) {
			if t != decimalType {
				return reflect.Value{}, false, nil
			}
			var d decimal.Decimal
			switch obj := obj.(type) {
			case foreign.Decimal:
				d = obj.Value
			case *foreign.Int:
				d = decimal.NewFromBigInt(obj.Big(), 0)
			case foreign.Float:
				f := float64(obj)
				if math.IsNaN(f) || math.IsInf(f, 0) {
					return reflect.Value{}, true, errToNative(obj.Type(), t, fmt.Errorf("%w: %v", ErrValue, f))
				}
				d = decimal.NewFromFloat(f)
			default:
				return reflect.Value{}, false, nil
			}
			return reflect.ValueOf(d), true, nil
		},
	},
	{
		Name: "datetime",
		TryConv: func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, bool, error) {
			if t != timeType {
				return reflect.Value{}, false, nil
			}
			switch obj := obj.(type) {
			case foreign.DateTime:
				return reflect.ValueOf(obj.Value), true, nil
			case foreign.Str:
				tm, err := time.Parse(time.RFC3339Nano, string(obj))
				if err != nil {
					return reflect.Value{}, true, errToNative(obj.Type(), t, fmt.Errorf("%w: %w", ErrValue, err))
				}
				return reflect.ValueOf(tm), true, nil
			}
			return reflect.Value{}, false, nil
		},
	},
	{
		Name: "timedelta",
		TryConv: func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, bool, error) {
			if t != durationType {
				return reflect.Value{}, false, nil
			}
			if obj, ok := obj.(foreign.TimeDelta); ok {
				return reflect.ValueOf(obj.Value), true, nil
			}
			return reflect.Value{}, false, nil
		},
	},
	{
		Name: "bool",
		TryConv: func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, bool, error) {
			b, ok := obj.(foreign.Bool)
			if !ok || t.Kind() != reflect.Bool {
				return reflect.Value{}, false, nil
			}
			rv := reflect.New(t).Elem()
			rv.SetBool(bool(b))
			return rv, true, nil
		},
	},
	{
		Name: "integer",
		TryConv: func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, bool, error) {
			i, ok := obj.(*foreign.Int)
			if !ok || t == durationType {
				return reflect.Value{}, false, nil
			}
			switch t.Kind() {
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
				reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
				rv := reflect.New(t).Elem()
				if err := setInt(rv, i); err != nil {
					return reflect.Value{}, true, errToNative(obj.Type(), t, err)
				}
				return rv, true, nil
			case reflect.Float32, reflect.Float64:
				rv := reflect.New(t).Elem()
				if err := setFloat(rv, i.Float64()); err != nil {
					return reflect.Value{}, true, errToNative(obj.Type(), t, err)
				}
				return rv, true, nil
			}
			return reflect.Value{}, false, nil
		},
	},
	{
		Name: "float",
		TryConv: func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, bool, error) {
			f, ok := obj.(foreign.Float)
			if !ok || (t.Kind() != reflect.Float32 && t.Kind() != reflect.Float64) {
				return reflect.Value{}, false, nil
			}
			rv := reflect.New(t).Elem()
			if err := setFloat(rv, float64(f)); err != nil {
				return reflect.Value{}, true, errToNative(obj.Type(), t, err)
			}
			return rv, true, nil
		},
	},
	{
		Name: "string",
		TryConv: func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, bool, error) {
			s, ok := obj.(foreign.Str)
			if !ok || t.Kind() != reflect.String {
				return reflect.Value{}, false, nil
			}
			rv := reflect.New(t).Elem()
			rv.SetString(string(s))
			return rv, true, nil
		},
	},
	{
		Name: "sequence",
		TryConv: func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, bool, error) {
			seq, ok := obj.(foreign.Sequence)
			if !ok {
				return reflect.Value{}, false, nil
			}
			switch t.Kind() {
			case reflect.Slice:
				elems, err := c.convertElems(seq, t.Elem(), implicit)
				if err != nil {
					return reflect.Value{}, true, errToNative(obj.Type(), t, err)
				}
				rv := reflect.MakeSlice(t, len(elems), len(elems))
				for i, e := range elems {
					rv.Index(i).Set(e)
				}
				return rv, true, nil
			case reflect.Array:
				if seq.Len() != t.Len() {
					return reflect.Value{}, true, errToNative(obj.Type(), t,
						fmt.Errorf("%w: expected %v elements, got %v", ErrValue, t.Len(), seq.Len()))
				}
				elems, err := c.convertElems(seq, t.Elem(), implicit)
				if err != nil {
					return reflect.Value{}, true, errToNative(obj.Type(), t, err)
				}
				rv := reflect.New(t).Elem()
				for i, e := range elems {
					rv.Index(i).Set(e)
				}
				return rv, true, nil
			case reflect.Func:
				elemType, ok := SeqElem(t)
				if !ok {
					return reflect.Value{}, false, nil
				}
				elems, err := c.convertElems(seq, elemType, implicit)
				if err != nil {
					return reflect.Value{}, true, errToNative(obj.Type(), t, err)
				}
				return makeSeq(t, elems), true, nil
			}
			return reflect.Value{}, false, nil
		},
	},
	{
		Name: "dict",
		TryConv: func(c *Converter, obj foreign.Object, t reflect.Type, implicit bool) (reflect.Value, bool, error) {
			d, ok := obj.(*foreign.Dict)
			if !ok || t.Kind() != reflect.Map {
				return reflect.Value{}, false, nil
			}
			rv := reflect.MakeMapWithSize(t, d.Len())
			errs := map[int]error{}
			i := 0
			for k, v := range d.Items {
				kv, err := c.toNative(k, t.Key(), implicit)
				if err != nil {
					errs[i] = err
				} else if vv, err := c.toNative(v, t.Elem(), implicit); err != nil {
					errs[i] = err
				} else {
					rv.SetMapIndex(kv, vv)
				}
				i++
			}
			if err := newElementError(errs); err != nil {
				return reflect.Value{}, true, errToNative(obj.Type(), t, err)
			}
			return rv, true, nil
		},
	},
}

// convertElems converts all elements of seq into scratch values. Nothing is
// returned unless every element converts.
func (c *Converter) convertElems(seq foreign.Sequence, t reflect.Type, implicit bool) ([]reflect.Value, error) {
	elems := make([]reflect.Value, seq.Len())
	errs := map[int]error{}
	for i := range seq.Len() {
		v, err := c.toNative(seq.Item(i), t, implicit)
		if err != nil {
			errs[i] = err
			continue
		}
		elems[i] = v
	}
	if err := newElementError(errs); err != nil {
		return nil, err
	}
	return elems, nil
}

func makeSeq(t reflect.Type, elems []reflect.Value) reflect.Value {
	return reflect.MakeFunc(t, func(args []reflect.Value) []reflect.Value {
		yield := args[0]
		for _, e := range elems {
			if !yield.Call([]reflect.Value{e})[0].Bool() {
				break
			}
		}
		return nil
	})
}

func (c *Converter) bitsOf(rv reflect.Value) uint64 {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(rv.Int())
	default:
		return rv.Uint()
	}
}

// setInt stores i in the integer value rv, failing with ErrOverflow if it
// does not fit.
func setInt(rv reflect.Value, i *foreign.Int) error {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		x, ok := i.Int64()
		if !ok || rv.OverflowInt(x) {
			return fmt.Errorf("%w: %v does not fit into %v", ErrOverflow, i, rv.Type())
		}
		rv.SetInt(x)
	default:
		x, ok := i.Uint64()
		if !ok || rv.OverflowUint(x) {
			return fmt.Errorf("%w: %v does not fit into %v", ErrOverflow, i, rv.Type())
		}
		rv.SetUint(x)
	}
	return nil
}

func setFloat(rv reflect.Value, f float64) error {
	if !math.IsInf(f, 0) && !math.IsNaN(f) && rv.OverflowFloat(f) {
		return fmt.Errorf("%w: %v does not fit into %v", ErrOverflow, f, rv.Type())
	}
	rv.SetFloat(f)
	return nil
}

// toAny converts obj to its natural Go representation.
func (c *Converter) toAny(obj foreign.Object) (any, error) {
	switch obj := obj.(type) {
	case foreign.NoneObject:
		return nil, nil
	case foreign.Bool:
		return bool(obj), nil
	case *foreign.Int:
		if x, ok := obj.Int64(); ok {
			if x >= math.MinInt && x <= math.MaxInt {
				return int(x), nil
			}
			return x, nil
		}
		if x, ok := obj.Uint64(); ok {
			return x, nil
		}
		return obj.Big(), nil
	case foreign.Float:
		return float64(obj), nil
	case foreign.Str:
		return string(obj), nil
	case foreign.Decimal:
		return obj.Value, nil
	case foreign.DateTime:
		return obj.Value, nil
	case foreign.TimeDelta:
		return obj.Value, nil
	case foreign.Sequence:
		res := make([]any, obj.Len())
		for i := range obj.Len() {
			v, err := c.toAny(obj.Item(i))
			if err != nil {
				return nil, err
			}
			res[i] = v
		}
		return res, nil
	case *foreign.Dict:
		res := make(map[any]any, obj.Len())
		var err error
		obj.Items(func(k, v foreign.Object) bool {
			var kv, vv any
			if kv, err = c.toAny(k); err != nil {
				return false
			}
			if kv != nil && !reflect.TypeOf(kv).Comparable() {
				err = errToNative(k.Type(), anyType, fmt.Errorf("%w: unhashable map key", ErrType))
				return false
			}
			if _, isBig := kv.(*big.Int); isBig {
				kv = kv.(*big.Int).String()
			}
			if vv, err = c.toAny(v); err != nil {
				return false
			}
			res[kv] = vv
			return true
		})
		if err != nil {
			return nil, err
		}
		return res, nil
	case *foreign.Native:
		return obj.Value, nil
	case *enum.Value:
		return obj.Native().Interface(), nil
	}
	return obj, nil
}
