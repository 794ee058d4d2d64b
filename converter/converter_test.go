package converter

import (
	"errors"
	"iter"
	"math"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/refaktor/hostbridge/enum"
	"github.com/refaktor/hostbridge/foreign"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type Color uint8

const (
	Red   Color = 1
	Green Color = 2
)

type Money struct {
	Cents int64
}

type point struct{ X, Y int }

func newTestConverter(t *testing.T) *Converter {
	reg := enum.NewRegistry()
	_, err := enum.Register[Color](reg, "Color", false, enum.Const("Red", Red), enum.Const("Green", Green))
	require.NoError(t, err)
	return New(reg)
}

func toNative[T any](t *testing.T, c *Converter, obj foreign.Object) (T, error) {
	t.Helper()
	v, err := c.ToNative(obj, reflect.TypeFor[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	return v.Interface().(T), nil
}

func TestToNativePrimitives(t *testing.T) {
	require := require.New(t)
	c := newTestConverter(t)

	i, err := toNative[int16](t, c, foreign.NewInt(-300))
	require.NoError(err)
	require.Equal(int16(-300), i)

	f, err := toNative[float64](t, c, foreign.NewInt(3))
	require.NoError(err)
	require.Equal(3.0, f)

	s, err := toNative[string](t, c, foreign.Str("abc"))
	require.NoError(err)
	require.Equal("abc", s)

	b, err := toNative[bool](t, c, foreign.Bool(true))
	require.NoError(err)
	require.True(b)

	_, err = toNative[int](t, c, foreign.Float(1.5))
	require.ErrorIs(err, ErrType)
	var convErr *ConversionError
	require.ErrorAs(err, &convErr)
	require.Equal(ToNative, convErr.Dir)
	require.EqualError(err, "convert <class 'float'> to int: type mismatch")

	_, err = toNative[string](t, c, foreign.NewInt(1))
	require.ErrorIs(err, ErrType)
}

func TestToNativeOverflow(t *testing.T) {
	c := newTestConverter(t)
	tests := []struct {
		name string
		typ  reflect.Type
		obj  foreign.Object
	}{
		{"int8 high", reflect.TypeFor[int8](), foreign.NewInt(128)},
		{"int8 low", reflect.TypeFor[int8](), foreign.NewInt(-129)},
		{"uint negative", reflect.TypeFor[uint](), foreign.NewInt(-1)},
		{"uint16", reflect.TypeFor[uint16](), foreign.NewInt(math.MaxUint16 + 1)},
		{"int64 from uint64", reflect.TypeFor[int64](), foreign.NewUint(math.MaxUint64)},
		{"float32", reflect.TypeFor[float32](), foreign.Float(math.MaxFloat64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ToNative(tt.obj, tt.typ)
			require.ErrorIs(t, err, ErrOverflow)
		})
	}

	v, err := c.ToNative(foreign.NewUint(math.MaxUint64), reflect.TypeFor[uint64]())
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), v.Uint())
}

func TestDecimalRoundTrip(t *testing.T) {
	require := require.New(t)
	c := newTestConverter(t)
	for _, s := range []string{"0", "1.234567", "-98765.4321001", "79228162514264337593543950335"} {
		orig := decimal.RequireFromString(s)
		obj, err := c.ToForeign(reflect.ValueOf(orig), nil)
		require.NoError(err)
		require.Equal(foreign.DecimalType, obj.Type())
		back, err := toNative[decimal.Decimal](t, c, obj)
		require.NoError(err)
		require.True(orig.Equal(back), "%v != %v", orig, back)
	}

	d, err := toNative[decimal.Decimal](t, c, foreign.Float(1.2))
	require.NoError(err)
	require.Equal("1.2", d.String())
	d, err = toNative[decimal.Decimal](t, c, foreign.NewInt(10))
	require.NoError(err)
	require.Equal("10", d.String())
	_, err = toNative[decimal.Decimal](t, c, foreign.Float(math.Inf(1)))
	require.ErrorIs(err, ErrValue)
}

func TestTimeRoundTrip(t *testing.T) {
	require := require.New(t)
	c := newTestConverter(t)

	now := time.Date(2024, 2, 29, 13, 45, 10, 500, time.UTC)
	obj, err := c.ToForeign(reflect.ValueOf(now), nil)
	require.NoError(err)
	back, err := toNative[time.Time](t, c, obj)
	require.NoError(err)
	require.True(now.Equal(back))

	span := 90*time.Minute + 3*time.Millisecond
	obj, err = c.ToForeign(reflect.ValueOf(span), nil)
	require.NoError(err)
	require.Equal(foreign.TimeDeltaType, obj.Type())
	backSpan, err := toNative[time.Duration](t, c, obj)
	require.NoError(err)
	require.Equal(span, backSpan)

	parsed, err := toNative[time.Time](t, c, foreign.Str("2024-02-29T13:45:10Z"))
	require.NoError(err)
	require.Equal(2024, parsed.Year())
	_, err = toNative[time.Time](t, c, foreign.Str("2024-02-30 25:00"))
	require.ErrorIs(err, ErrValue)

	// Durations are not integers on the foreign side.
	_, err = toNative[time.Duration](t, c, foreign.NewInt(5))
	require.ErrorIs(err, ErrType)
}

func TestCollections(t *testing.T) {
	require := require.New(t)
	c := newTestConverter(t)

	list := foreign.NewList(foreign.NewInt(1), foreign.NewInt(2), foreign.NewInt(3))
	ints, err := toNative[[]int](t, c, list)
	require.NoError(err)
	require.Equal([]int{1, 2, 3}, ints)

	arr, err := toNative[[3]int8](t, c, foreign.Tuple{foreign.NewInt(1), foreign.NewInt(2), foreign.NewInt(3)})
	require.NoError(err)
	require.Equal([3]int8{1, 2, 3}, arr)
	_, err = toNative[[2]int8](t, c, list)
	require.ErrorIs(err, ErrValue)

	seq, err := toNative[iter.Seq[string]](t, c, foreign.Tuple{foreign.Str("a"), foreign.Str("b")})
	require.NoError(err)
	require.Equal([]string{"a", "b"}, slices.Collect(seq))

	bad := foreign.NewList(foreign.NewInt(1), foreign.Str("x"), foreign.NewInt(1000))
	_, err = toNative[[]int8](t, c, bad)
	require.ErrorIs(err, ErrType)
	require.ErrorIs(err, ErrOverflow)
	var elemErr *ElementError
	require.ErrorAs(err, &elemErr)
	require.Len(elemErr.Unwrap(), 2)

	d := foreign.NewDict()
	d.SetStr("b", foreign.NewInt(2))
	d.SetStr("a", foreign.NewInt(1))
	m, err := toNative[map[string]int](t, c, d)
	require.NoError(err)
	require.Equal(map[string]int{"a": 1, "b": 2}, m)

	obj, err := c.ToForeign(reflect.ValueOf(map[string]int{"y": 2, "x": 1}), nil)
	require.NoError(err)
	var keys []string
	for k := range obj.(*foreign.Dict).Items {
		keys = append(keys, string(k.(foreign.Str)))
	}
	require.Equal([]string{"x", "y"}, keys)

	obj, err = c.ToForeign(reflect.ValueOf([]string{"p", "q"}), nil)
	require.NoError(err)
	back, err := toNative[[]string](t, c, obj)
	require.NoError(err)
	require.Equal([]string{"p", "q"}, back)
}

func TestAnyAndNone(t *testing.T) {
	require := require.New(t)
	c := newTestConverter(t)

	v, err := toNative[any](t, c, foreign.NewList(foreign.NewInt(1), foreign.Str("a"), foreign.None))
	require.NoError(err)
	require.Equal([]any{1, "a", nil}, v)

	p, err := toNative[*int](t, c, foreign.None)
	require.NoError(err)
	require.Nil(p)
	p, err = toNative[*int](t, c, foreign.NewInt(4))
	require.NoError(err)
	require.Equal(4, *p)
	_, err = toNative[int](t, c, foreign.None)
	require.ErrorIs(err, ErrType)

	obj, err := toNative[foreign.Object](t, c, foreign.Str("kept"))
	require.NoError(err)
	require.Equal(foreign.Str("kept"), obj)

	five := 5
	fobj, err := c.ToForeign(reflect.ValueOf(&five), nil)
	require.NoError(err)
	require.Equal("5", fobj.(*foreign.Int).String())
	fobj, err = c.ToForeign(reflect.ValueOf((*int)(nil)), nil)
	require.NoError(err)
	require.Equal(foreign.None, fobj)
}

func TestNative(t *testing.T) {
	require := require.New(t)
	c := newTestConverter(t)

	pt := &point{X: 1, Y: 2}
	obj, err := c.ToForeign(reflect.ValueOf(pt), nil)
	require.NoError(err)
	require.Equal("*converter.point", obj.Type().Name)

	got, err := toNative[*point](t, c, obj)
	require.NoError(err)
	require.Same(pt, got)
	val, err := toNative[point](t, c, obj)
	require.NoError(err)
	require.Equal(*pt, val)

	_, err = toNative[Money](t, c, obj)
	require.ErrorIs(err, ErrType)
}

func TestEnumConversion(t *testing.T) {
	require := require.New(t)
	c := newTestConverter(t)

	obj, err := c.ToForeign(reflect.ValueOf(Green), nil)
	require.NoError(err)
	green, ok := obj.(*enum.Value)
	require.True(ok)
	require.Equal("Green", green.Name())

	col, err := toNative[Color](t, c, green)
	require.NoError(err)
	require.Equal(Green, col)

	col, err = toNative[Color](t, c, foreign.NewInt(1))
	require.NoError(err)
	require.Equal(Red, col)
	_, err = toNative[Color](t, c, foreign.NewInt(3))
	require.ErrorIs(err, ErrValue)

	col, err = toNative[Color](t, c, foreign.Str("Red"))
	require.NoError(err)
	require.Equal(Red, col)

	_, err = toNative[uint8](t, c, green)
	require.ErrorIs(err, ErrType)

	require.Equal(CodeUint8, TypeCodeOf(reflect.TypeFor[Color]()))
	require.Equal(foreign.NativeType(reflect.TypeFor[Color]()), c.ForeignTypeOf(reflect.TypeFor[Color]()))
	require.Equal(reflect.TypeFor[Color](), c.NativeEquivalent(green))
}

func TestImplicit(t *testing.T) {
	require := require.New(t)
	c := newTestConverter(t)

	require.NoError(c.Implicits.Register(func(cents int) Money { return Money{Cents: int64(cents)} }))
	require.NoError(c.Implicits.Register(func(m Money) (string, error) {
		if m.Cents < 0 {
			return "", errors.New("negative amount")
		}
		return "money", nil
	}))
	require.Error(c.Implicits.Register(func(cents int) Money { return Money{} }))
	require.Error(c.Implicits.Register(func(a, b int) Money { return Money{} }))
	require.Error(c.Implicits.Register(42))

	m, err := toNative[Money](t, c, foreign.NewInt(250))
	require.NoError(err)
	require.Equal(Money{Cents: 250}, m)

	_, err = c.ToNativeExact(foreign.NewInt(250), reflect.TypeFor[Money]())
	require.ErrorIs(err, ErrType)

	s, err := toNative[string](t, c, foreign.NewNative(Money{Cents: 1}))
	require.NoError(err)
	require.Equal("money", s)

	_, err = toNative[string](t, c, foreign.NewNative(Money{Cents: -1}))
	var implErr *ImplicitConversionError
	require.ErrorAs(err, &implErr)
	require.EqualError(err,
		"failed to implicitly convert converter.Money to string: negative amount")

	require.NoError(c.Implicits.Register(func(p point) Money { panic("boom") }))
	_, err = toNative[Money](t, c, foreign.NewNative(point{}))
	require.ErrorAs(err, &implErr)
	require.EqualError(implErr.Err, "boom")
}

func TestTypeMapping(t *testing.T) {
	require := require.New(t)
	c := newTestConverter(t)

	require.Equal(reflect.TypeFor[int](), c.NativeEquivalent(foreign.NewInt(1)))
	require.Equal(reflect.TypeFor[float64](), c.NativeEquivalent(foreign.Float(1)))
	require.Nil(c.NativeEquivalent(foreign.NewList()))
	require.Nil(c.NativeEquivalent(foreign.None))

	require.Equal(foreign.IntType, c.ForeignTypeOf(reflect.TypeFor[uint16]()))
	require.Equal(foreign.FloatType, c.ForeignTypeOf(reflect.TypeFor[float32]()))
	require.Equal(foreign.ListType, c.ForeignTypeOf(reflect.TypeFor[[]string]()))
	require.Equal(foreign.TimeDeltaType, c.ForeignTypeOf(reflect.TypeFor[time.Duration]()))

	require.Equal(CodeInt64, TypeCodeOf(reflect.TypeFor[int]()))
	require.Equal(CodeObject, TypeCodeOf(reflect.TypeFor[time.Duration]()))
	require.Equal(CodeObject, TypeCodeOf(reflect.TypeFor[point]()))
	require.Equal(CodeDecimal, TypeCodeOf(reflect.TypeFor[decimal.Decimal]()))

	require.Equal("integer", c.ConvName(foreign.NewInt(1), reflect.TypeFor[int]()))
	require.Equal("", c.ConvName(foreign.NewInt(1), reflect.TypeFor[string]()))
	require.Equal("ToForeign", ToNative.Opposite().String())
}
