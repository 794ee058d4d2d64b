package converter

import (
	"cmp"
	"reflect"
	"slices"
	"time"

	"github.com/refaktor/hostbridge/foreign"
	"github.com/shopspring/decimal"
)

// ToForeign converts v, declared as type declared, to a foreign value.
// declared may be nil, in which case the dynamic type of v is used.
func (c *Converter) ToForeign(v reflect.Value, declared reflect.Type) (foreign.Object, error) {
	if !v.IsValid() {
		return foreign.None, nil
	}
	if declared != nil && declared != v.Type() && v.Type().AssignableTo(declared) {
		v = assign(v, declared)
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return foreign.None, nil
		}
		v = v.Elem()
	}
	t := v.Type()

	if t.Implements(objectType) {
		if isNilable(v.Kind()) && v.IsNil() {
			return foreign.None, nil
		}
		return v.Interface().(foreign.Object), nil
	}
	if c.Enums != nil {
		if e, ok := c.Enums.ProjectValue(v); ok {
			return e, nil
		}
	}
	switch t {
	case decimalType:
		return foreign.Decimal{Value: v.Interface().(decimal.Decimal)}, nil
	case timeType:
		return foreign.DateTime{Value: v.Interface().(time.Time)}, nil
	case durationType:
		return foreign.TimeDelta{Value: time.Duration(v.Int())}, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return foreign.Bool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return foreign.NewInt(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return foreign.NewUint(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return foreign.Float(v.Float()), nil
	case reflect.String:
		return foreign.Str(v.String()), nil
	case reflect.Pointer:
		if v.IsNil() {
			return foreign.None, nil
		}
		if isValueLike(t.Elem()) {
			// Nullable value
			return c.ToForeign(v.Elem(), nil)
		}
	case reflect.Slice:
		if v.IsNil() {
			return foreign.None, nil
		}
		fallthrough
	case reflect.Array:
		l := &foreign.List{Items: make([]foreign.Object, v.Len())}
		for i := range v.Len() {
			item, err := c.ToForeign(v.Index(i), t.Elem())
			if err != nil {
				return nil, err
			}
			l.Items[i] = item
		}
		return l, nil
	case reflect.Map:
		if v.IsNil() {
			return foreign.None, nil
		}
		keys := v.MapKeys()
		sortKeys(keys)
		d := foreign.NewDict()
		for _, k := range keys {
			fk, err := c.ToForeign(k, t.Key())
			if err != nil {
				return nil, err
			}
			fv, err := c.ToForeign(v.MapIndex(k), t.Elem())
			if err != nil {
				return nil, err
			}
			if err := d.Set(fk, fv); err != nil {
				return nil, errToForeign(t, err)
			}
		}
		return d, nil
	}
	return foreign.NewNative(v.Interface()), nil
}

// isValueLike reports whether a pointer to t is treated as a nullable t
// rather than a reference to a native object.
func isValueLike(t reflect.Type) bool {
	switch t {
	case decimalType, timeType, durationType:
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// sortKeys sorts map keys of ordered kinds so dicts built from Go maps have
// a deterministic order.
func sortKeys(keys []reflect.Value) {
	if len(keys) == 0 {
		return
	}
	switch keys[0].Kind() {
	case reflect.String:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.String(), b.String()) })
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) })
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) })
	case reflect.Float32, reflect.Float64:
		slices.SortFunc(keys, func(a, b reflect.Value) int { return cmp.Compare(a.Float(), b.Float()) })
	}
}
