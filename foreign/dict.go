package foreign

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

var ErrUnhashable = errors.New("unhashable key")

// Dict is an insertion ordered mapping. Keys must be hashable
// (None, Bool, Int, Float, Str, Decimal, DateTime, TimeDelta, Tuple of
// hashables or Native values with comparable Go values).
type Dict struct {
	keys   []Object
	values []Object
	index  map[any]int
}

func NewDict() *Dict {
	return &Dict{index: map[any]int{}}
}

func (*Dict) Type() *Type { return DictType }

func (d *Dict) Len() int { return len(d.keys) }

func (d *Dict) Set(key, value Object) error {
	h, err := hashKey(key)
	if err != nil {
		return err
	}
	if i, ok := d.index[h]; ok {
		d.values[i] = value
		return nil
	}
	d.index[h] = len(d.keys)
	d.keys = append(d.keys, key)
	d.values = append(d.values, value)
	return nil
}

// SetStr is shorthand for Set(Str(key), value).
func (d *Dict) SetStr(key string, value Object) {
	// Str keys are always hashable.
	_ = d.Set(Str(key), value)
}

func (d *Dict) Get(key Object) (Object, bool) {
	h, err := hashKey(key)
	if err != nil {
		return nil, false
	}
	i, ok := d.index[h]
	if !ok {
		return nil, false
	}
	return d.values[i], true
}

// Items calls yield for each entry in insertion order.
func (d *Dict) Items(yield func(key, value Object) bool) {
	for i := range d.keys {
		if !yield(d.keys[i], d.values[i]) {
			return
		}
	}
}

type tupleKey string

func hashKey(key Object) (any, error) {
	switch k := key.(type) {
	case NoneObject:
		return k, nil
	case Bool:
		// Python semantics: True == 1, False == 0.
		if k {
			return hashInt(big.NewInt(1)), nil
		}
		return hashInt(big.NewInt(0)), nil
	case *Int:
		return hashInt(&k.v), nil
	case Float:
		if k.IsIntegral() {
			bf, _ := big.NewFloat(float64(k)).Int(nil)
			return hashInt(bf), nil
		}
		return float64(k), nil
	case Str:
		return string(k), nil
	case Decimal:
		return hashDecimal(k.Value), nil
	case DateTime:
		return k.Value.UTC().Format(time.RFC3339Nano), nil
	case TimeDelta:
		return k.Value, nil
	case Tuple:
		var s string
		for _, item := range k {
			h, err := hashKey(item)
			if err != nil {
				return nil, err
			}
			s += "\x00" + item.Type().Name + ":" + toKeyString(h)
		}
		return tupleKey(s), nil
	case *Native:
		if k.Value == nil {
			return None, nil
		}
		if !isComparable(k.Value) {
			return nil, ErrUnhashable
		}
		return nativeKey{k.Value}, nil
	default:
		return nil, ErrUnhashable
	}
}

type intKey string

type nativeKey struct{ v any }

func hashInt(x *big.Int) any {
	if x.IsInt64() {
		return x.Int64()
	}
	return intKey(x.String())
}

func hashDecimal(d decimal.Decimal) any {
	if d.IsInteger() {
		return hashInt(d.BigInt())
	}
	return "decimal:" + d.String()
}

func toKeyString(h any) string {
	switch h := h.(type) {
	case string:
		return h
	case tupleKey:
		return "(" + string(h) + ")"
	default:
		return fmt.Sprint(h)
	}
}

func isComparable(v any) bool {
	return reflect.TypeOf(v).Comparable()
}
