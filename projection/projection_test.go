package projection_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/refaktor/hostbridge/binder"
	"github.com/refaktor/hostbridge/config"
	"github.com/refaktor/hostbridge/converter"
	"github.com/refaktor/hostbridge/enum"
	"github.com/refaktor/hostbridge/foreign"
	"github.com/refaktor/hostbridge/projection"
	"github.com/stretchr/testify/require"
)

type Perm uint8

const (
	Read  Perm = 1
	Write Perm = 2
	Exec  Perm = 4
)

type Counter struct {
	Count int
	Label string
	step  int
}

func (c *Counter) Add(n int) int {
	c.Count += n
	return c.Count
}

func (c *Counter) AddFloat(f float64) float64 {
	c.Count += int(f)
	return f
}

func (c Counter) Describe() string { return "counter " + c.Label }
func (c *Counter) Fail() error     { return errors.New("boom") }
func (c *Counter) Step() int       { return c.step }
func (c *Counter) SetStep(v int)   { c.step = v }

type Version struct {
	Major int
}

func (v Version) Compare(o Version) int { return v.Major - o.Major }

const testRules = `
[[rule]]
select.name = "AddFloat"
action.rename = "Add"

[[rule]]
select.type = "field"
action.to-casing = "snake"

[[rule]]
select.name = "Fail"
action.include = false
`

type fixture struct {
	reg   *projection.Registry
	enums *enum.Registry
	perm  *enum.Type
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	enums := enum.NewRegistry()
	perm, err := enum.Register[Perm](enums, "Perm", true,
		enum.Const("Read", Read), enum.Const("Write", Write), enum.Const("Exec", Exec))
	require.NoError(t, err)
	cfg, err := config.Parse([]byte(testRules), ".toml")
	require.NoError(t, err)
	b := binder.New(converter.New(enums))
	return &fixture{reg: projection.New(b, cfg.Rules), enums: enums, perm: perm}
}

func (f *fixture) constant(t *testing.T, name string) *enum.Value {
	t.Helper()
	v, ok := f.perm.Constant(name)
	require.True(t, ok)
	return v
}

func TestClass(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	c, err := f.reg.Class(reflect.TypeFor[*Counter]())
	require.NoError(err)
	same, err := f.reg.Class(reflect.TypeFor[Counter]())
	require.NoError(err)
	require.Same(c, same)

	require.Equal("Counter", c.Name)
	require.Equal("<class 'Counter'>", c.String())
	require.Equal([]string{"Add", "Describe", "Step", "count", "label"}, c.Dir())

	add, ok := c.Method("Add")
	require.True(ok)
	require.Equal(2, add.Len())
	_, ok = c.Method("Fail")
	require.False(ok)
	_, ok = c.Method("SetStep")
	require.False(ok)
}

func TestAttributes(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	counter := &Counter{Count: 1}
	obj := foreign.NewNative(counter)

	count, err := f.reg.GetAttr(obj, "count")
	require.NoError(err)
	require.Equal(foreign.NewInt(1), count)

	require.NoError(f.reg.SetAttr(obj, "label", foreign.Str("x")))
	require.Equal("x", counter.Label)

	require.NoError(f.reg.SetAttr(obj, "Step", foreign.NewInt(5)))
	require.Equal(5, counter.step)
	step, err := f.reg.GetAttr(obj, "Step")
	require.NoError(err)
	require.Equal(foreign.NewInt(5), step)

	err = f.reg.SetAttr(obj, "count", foreign.Str("x"))
	require.ErrorIs(err, converter.ErrType)

	_, err = f.reg.GetAttr(obj, "nope")
	require.EqualError(err, "'*projection_test.Counter' object has no attribute 'nope'")
	var attrErr *projection.AttributeError
	require.ErrorAs(err, &attrErr)

	_, err = f.reg.GetAttr(foreign.Str("s"), "x")
	require.ErrorIs(err, projection.ErrNotProjected)
}

func TestMethods(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	counter := &Counter{}
	obj := foreign.NewNative(counter)

	res, err := f.reg.Call(obj, "Add", []foreign.Object{foreign.NewInt(2)}, nil)
	require.NoError(err)
	require.Equal(foreign.NewInt(2), res)

	res, err = f.reg.Call(obj, "Add", []foreign.Object{foreign.Float(1.5)}, nil)
	require.NoError(err)
	require.Equal(foreign.Float(1.5), res)
	require.Equal(3, counter.Count)

	m, err := f.reg.GetAttr(obj, "Add")
	require.NoError(err)
	require.Equal("<bound method Add of *projection_test.Counter>", fmt.Sprint(m))

	// Value receivers work on natives holding values.
	res, err = f.reg.Call(foreign.NewNative(Counter{Label: "v"}), "Describe", nil, nil)
	require.NoError(err)
	require.Equal(foreign.Str("counter v"), res)

	_, err = f.reg.Call(obj, "Add", []foreign.Object{foreign.Str("x")}, nil)
	var noMatch *binder.NoMatchError
	require.ErrorAs(err, &noMatch)

	_, err = f.reg.Call(obj, "count", nil, nil)
	require.EqualError(err, "'int' object is not callable")
}

func TestEnum(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	read, write := f.constant(t, "Read"), f.constant(t, "Write")

	c, err := f.reg.Class(reflect.TypeFor[Perm]())
	require.NoError(err)
	require.Equal("Perm", c.Name)
	require.Subset(c.Dir(), []string{"Exec", "Read", "Write", "__add__", "__radd__", "__or__", "__invert__"})

	attr, err := f.reg.ClassAttr(c, "Read")
	require.NoError(err)
	require.Same(read, attr)
	_, err = f.reg.ClassAttr(c, "Delete")
	require.EqualError(err, "'projection_test.Perm' object has no attribute 'Delete'")

	name, err := f.reg.GetAttr(read, "name")
	require.NoError(err)
	require.Equal(foreign.Str("Read"), name)
	value, err := f.reg.GetAttr(write, "value")
	require.NoError(err)
	require.Equal(foreign.NewUint(2), value)

	rw, err := f.reg.BinaryOp(foreign.OpOr, read, write)
	require.NoError(err)
	require.Equal("Read, Write", rw.(*enum.Value).Name())

	inv, err := f.reg.UnaryOp(foreign.OpInvert, read)
	require.NoError(err)
	require.Equal(uint64(0xfe), inv.(*enum.Value).Bits())

	sum, err := f.reg.BinaryOp(foreign.OpAdd, read, foreign.NewInt(1))
	require.NoError(err)
	require.Equal(foreign.Float(2), sum)

	diff, err := f.reg.BinaryOp(foreign.OpSub, foreign.Float(10), write)
	require.NoError(err)
	require.Equal(foreign.Float(8), diff)

	_, err = f.reg.BinaryOp(foreign.OpTrueDiv, read, foreign.Float(0))
	require.ErrorIs(err, enum.ErrZeroDivision)

	lt, err := f.reg.Compare(foreign.OpLt, read, write)
	require.NoError(err)
	require.True(lt)
	gt, err := f.reg.Compare(foreign.OpGt, foreign.NewInt(5), write)
	require.NoError(err)
	require.True(gt)
	// Enums compare with strings by name.
	eq, err := f.reg.BinaryOp(foreign.OpEq, read, foreign.Str("Read"))
	require.NoError(err)
	require.Equal(foreign.Bool(true), eq)
	eq, err = f.reg.BinaryOp(foreign.OpEq, read, foreign.NewNative(&Counter{}))
	require.NoError(err)
	require.Equal(foreign.Bool(false), eq)
}

func TestOperatorErrors(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	_, err := f.reg.BinaryOp(foreign.OpAdd, foreign.Str("a"), foreign.Str("b"))
	require.EqualError(err, "unsupported operand type(s) for +: 'str' and 'str'")
	var opErr *projection.OperatorError
	require.ErrorAs(err, &opErr)

	_, err = f.reg.UnaryOp(foreign.OpInvert, foreign.NewNative(&Counter{}))
	require.EqualError(err, "bad operand type for unary ~: '*projection_test.Counter'")
}

func TestCompare(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	counter := foreign.NewNative(&Counter{})
	eq, err := f.reg.Compare(foreign.OpEq, counter, counter)
	require.NoError(err)
	require.True(eq)
	ne, err := f.reg.Compare(foreign.OpNe, counter, foreign.NewNative(&Counter{}))
	require.NoError(err)
	require.True(ne)

	_, err = f.reg.Compare(foreign.OpLt, counter, counter)
	require.EqualError(err, "'<' not supported between instances of '*projection_test.Counter' and '*projection_test.Counter'")

	lt, err := f.reg.Compare(foreign.OpLt, foreign.NewNative(Version{1}), foreign.NewNative(Version{2}))
	require.NoError(err)
	require.True(lt)

	eq, err = f.reg.Compare(foreign.OpEq, foreign.Str("a"), foreign.Str("a"))
	require.NoError(err)
	require.True(eq)

	_, err = f.reg.Compare(foreign.OpAdd, counter, counter)
	require.EqualError(err, "compare: __add__ is not a comparison")
}
