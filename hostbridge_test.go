package hostbridge_test

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/refaktor/hostbridge"
	"github.com/refaktor/hostbridge/config"
	"github.com/refaktor/hostbridge/enum"
	"github.com/refaktor/hostbridge/foreign"
	"github.com/refaktor/hostbridge/overload"
	"github.com/stretchr/testify/require"
)

type Level int

const (
	Low Level = iota
	High
)

type Thing struct {
	Name string
}

func (t *Thing) Rename(name string) { t.Name = name }

func newBridge(t *testing.T, cfg *config.Config) *hostbridge.Bridge {
	t.Helper()
	b, err := hostbridge.New(cfg)
	require.NoError(t, err)
	return b
}

func TestFuncOverloads(t *testing.T) {
	require := require.New(t)
	b := newBridge(t, nil)

	require.NoError(b.Func("scale", func(x int) int { return 2 * x }, "x"))
	require.NoError(b.Func("scale", func(x float64) float64 { return 2 * x }, "x"))
	require.NoError(b.Func("greet", func(name string, greeting string) string { return greeting + " " + name }, `name, greeting="hello"`))
	require.Equal([]string{"greet", "scale"}, b.Names())
	require.NoError(b.Validate())

	tests := []struct {
		name   string
		fn     string
		args   []foreign.Object
		kwargs map[string]foreign.Object
		want   foreign.Object
	}{
		{"int", "scale", []foreign.Object{foreign.NewInt(2)}, nil, foreign.NewInt(4)},
		{"float", "scale", []foreign.Object{foreign.Float(1.5)}, nil, foreign.Float(3)},
		{"default", "greet", []foreign.Object{foreign.Str("bob")}, nil, foreign.Str("hello bob")},
		{"keyword", "greet", []foreign.Object{foreign.Str("bob")}, map[string]foreign.Object{"greeting": foreign.Str("hi")}, foreign.Str("hi bob")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := b.Call(tt.fn, tt.args, tt.kwargs)
			require.NoError(err)
			require.Equal(tt.want, res)
		})
	}

	_, err := b.Call("nope", nil, nil)
	require.ErrorIs(err, hostbridge.ErrUndefined)
	require.EqualError(err, "undefined function: nope")

	require.Error(b.Func("bad", 42, ""))
}

func TestValidate(t *testing.T) {
	require := require.New(t)
	b := newBridge(t, nil)

	require.NoError(b.Func("f", func(x int) int { return x }, "x"))
	require.NoError(b.Func("f", func(y int) int { return -y }, "y"))
	require.Error(b.Validate())
}

func TestConfig(t *testing.T) {
	require := require.New(t)

	cfg := config.Default()
	cfg.Binder.KeywordCasing = "snake"
	b := newBridge(t, cfg)
	require.NoError(b.Func("hello", func(firstName string) string { return "hello " + firstName }, "firstName"))
	res, err := b.Call("hello", nil, map[string]foreign.Object{"first_name": foreign.Str("ann")})
	require.NoError(err)
	require.Equal(foreign.Str("hello ann"), res)

	cfg.Binder.KeywordCasing = "upper"
	_, err = hostbridge.New(cfg)
	require.ErrorContains(err, "invalid keyword casing")

	cfg = config.Default()
	cfg.Log.Level = "loud"
	_, err = hostbridge.New(cfg)
	require.ErrorContains(err, "invalid log level")
}

func TestWrapUnwrap(t *testing.T) {
	require := require.New(t)
	b := newBridge(t, nil)

	obj, err := b.Wrap(3)
	require.NoError(err)
	require.Equal(foreign.NewInt(3), obj)

	obj, err = b.Wrap(nil)
	require.NoError(err)
	require.Equal(foreign.None, obj)

	n, err := hostbridge.Unwrap[int](b, foreign.NewInt(3))
	require.NoError(err)
	require.Equal(3, n)

	s, err := hostbridge.Unwrap[[]string](b, foreign.NewList(foreign.Str("a"), foreign.Str("b")))
	require.NoError(err)
	require.Equal([]string{"a", "b"}, s)

	_, err = hostbridge.Unwrap[int](b, foreign.Str("x"))
	require.Error(err)
}

func TestEnum(t *testing.T) {
	require := require.New(t)
	b := newBridge(t, nil)

	typ, err := hostbridge.RegisterEnum[Level](b, "Level", false,
		enum.Const("Low", Low), enum.Const("High", High))
	require.NoError(err)
	require.Equal("Level", typ.Name)

	_, err = hostbridge.RegisterEnum[Level](b, "Level", false)
	require.ErrorIs(err, enum.ErrDuplicate)

	obj, err := b.Wrap(High)
	require.NoError(err)
	require.Equal("Level.High", fmt.Sprint(obj))

	require.NoError(b.Func("describe", func(l Level) string {
		if l == High {
			return "high"
		}
		return "low"
	}, "level"))
	res, err := b.Call("describe", []foreign.Object{obj}, nil)
	require.NoError(err)
	require.Equal(foreign.Str("high"), res)
}

func TestGeneric(t *testing.T) {
	require := require.New(t)
	b := newBridge(t, nil)

	def, err := overload.NewGeneric("first", []string{"T"}, "a, b",
		[]overload.ParamType{overload.TypeParam(0), overload.TypeParam(0)},
		func(typeArgs []reflect.Type) (any, error) {
			if typeArgs[0] == reflect.TypeFor[string]() {
				return func(a, b string) string { return a }, nil
			}
			return nil, fmt.Errorf("unsupported type %v", typeArgs[0])
		})
	require.NoError(err)
	require.NoError(b.Generic(def))

	res, err := b.Call("first", []foreign.Object{foreign.Str("x"), foreign.Str("y")}, nil)
	require.NoError(err)
	require.Equal(foreign.Str("x"), res)

	c, err := overload.NewFunc("plain", func() {}, "")
	require.NoError(err)
	require.Error(b.Generic(c))
}

func TestClass(t *testing.T) {
	require := require.New(t)
	b := newBridge(t, nil)

	c, err := b.Class(&Thing{})
	require.NoError(err)
	require.Equal("Thing", c.Name)
	same, err := b.Class(reflect.TypeFor[Thing]())
	require.NoError(err)
	require.Same(c, same)

	thing := &Thing{}
	_, err = b.Classes.Call(foreign.NewNative(thing), "Rename", []foreign.Object{foreign.Str("box")}, nil)
	require.NoError(err)
	require.Equal("box", thing.Name)

	_, err = b.Class(nil)
	require.Error(err)
}
