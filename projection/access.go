package projection

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/refaktor/hostbridge/binder"
	"github.com/refaktor/hostbridge/enum"
	"github.com/refaktor/hostbridge/foreign"
	"github.com/refaktor/hostbridge/overload"
)

var ErrNotProjected = errors.New("object is not a projected Go value")

// AttributeError is returned for a missing attribute.
type AttributeError struct {
	Type *foreign.Type
	Name string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("'%v' object has no attribute '%v'", e.Type.Name, e.Name)
}

// OperatorError is returned when no operand implements an operator.
type OperatorError struct {
	Op          foreign.Op
	Left, Right *foreign.Type
}

func (e *OperatorError) Error() string {
	if e.Op.IsComparison() {
		return fmt.Sprintf("'%v' not supported between instances of '%v' and '%v'", e.Op, e.Left.Name, e.Right.Name)
	}
	if e.Op.IsUnary() {
		return fmt.Sprintf("bad operand type for unary %v: '%v'", e.Op, e.Left.Name)
	}
	return fmt.Sprintf("unsupported operand type(s) for %v: '%v' and '%v'", e.Op, e.Left.Name, e.Right.Name)
}

// MethodType is the foreign type of bound methods.
var MethodType = &foreign.Type{Name: "method"}

// BoundMethod is a method looked up on an instance, ready to be called.
type BoundMethod struct {
	Set  *overload.Set
	Self foreign.Object
	reg  *Registry
}

func (*BoundMethod) Type() *foreign.Type { return MethodType }

func (m *BoundMethod) String() string {
	return fmt.Sprintf("<bound method %v of %v>", m.Set.Name(), m.Self.Type().Name)
}

func (m *BoundMethod) Call(args []foreign.Object, kwargs map[string]foreign.Object) (foreign.Object, error) {
	return m.reg.Binder.Invoke(m.Set, &binder.Call{Target: m.Self, Args: args, Kwargs: kwargs})
}

// goValue returns the Go value behind a projected object.
func goValue(obj foreign.Object) (reflect.Value, bool) {
	switch obj := obj.(type) {
	case *foreign.Native:
		if obj.Value == nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(obj.Value), true
	case *enum.Value:
		return obj.Native(), true
	}
	return reflect.Value{}, false
}

func typeOf(obj foreign.Object) *foreign.Type {
	if obj == nil {
		return foreign.NoneType
	}
	return obj.Type()
}

func (r *Registry) classOf(obj foreign.Object) (*Class, reflect.Value, error) {
	v, ok := goValue(obj)
	if !ok {
		return nil, reflect.Value{}, ErrNotProjected
	}
	c, err := r.Class(v.Type())
	if err != nil {
		return nil, reflect.Value{}, err
	}
	return c, v, nil
}

// GetAttr returns the named attribute of obj: a field or property value,
// a bound method, or for enum values their name and value.
func (r *Registry) GetAttr(obj foreign.Object, name string) (foreign.Object, error) {
	c, v, err := r.classOf(obj)
	if err != nil {
		return nil, err
	}
	if m, ok := c.Member(name); ok {
		res, err := m.Get(v)
		if err != nil {
			return nil, err
		}
		return r.Binder.Conv.ToForeign(res, m.Type)
	}
	if s, ok := c.Method(name); ok {
		return &BoundMethod{Set: s, Self: obj, reg: r}, nil
	}
	if e, ok := obj.(*enum.Value); ok {
		switch name {
		case "name":
			return foreign.Str(e.Name()), nil
		case "value":
			return e.Int(), nil
		}
	}
	return nil, &AttributeError{Type: obj.Type(), Name: name}
}

// SetAttr sets a field or property of obj, which must hold a pointer.
func (r *Registry) SetAttr(obj foreign.Object, name string, value foreign.Object) error {
	c, v, err := r.classOf(obj)
	if err != nil {
		return err
	}
	m, ok := c.Member(name)
	if !ok {
		return &AttributeError{Type: obj.Type(), Name: name}
	}
	x, err := r.Binder.Conv.ToNative(value, m.Type)
	if err != nil {
		return fmt.Errorf("set %v: %w", name, err)
	}
	return m.Set(v, x)
}

// ClassAttr returns an attribute of the class itself. Only enum constants
// are class attributes.
func (r *Registry) ClassAttr(c *Class, name string) (foreign.Object, error) {
	if c.Enum != nil {
		if v, ok := c.Constant(name); ok {
			return v, nil
		}
	}
	return nil, &AttributeError{Type: foreign.NativeType(c.Type), Name: name}
}

// Call calls the named method of obj.
func (r *Registry) Call(obj foreign.Object, name string, args []foreign.Object, kwargs map[string]foreign.Object) (foreign.Object, error) {
	attr, err := r.GetAttr(obj, name)
	if err != nil {
		return nil, err
	}
	m, ok := attr.(*BoundMethod)
	if !ok {
		return nil, fmt.Errorf("'%v' object is not callable", attr.Type().Name)
	}
	return m.Call(args, kwargs)
}

// tryOp binds the named operator method of target against args. ok is
// false if target has no such method or no overload matches.
func (r *Registry) tryOp(name string, target foreign.Object, args ...foreign.Object) (res foreign.Object, ok bool, err error) {
	c, _, err := r.classOf(target)
	if err != nil {
		if errors.Is(err, ErrNotProjected) {
			return nil, false, nil
		}
		return nil, false, err
	}
	s, found := c.Method(name)
	if !found {
		return nil, false, nil
	}
	binding, err := r.Binder.Bind(s, &binder.Call{Target: target, Args: args})
	if err != nil || binding == nil {
		return nil, false, err
	}
	res, err = r.Binder.Call(binding)
	return res, true, err
}

// BinaryOp evaluates left op right. The left operand's operator method is
// tried first, then the right operand's reflected one.
func (r *Registry) BinaryOp(op foreign.Op, left, right foreign.Object) (foreign.Object, error) {
	if op.IsComparison() {
		res, err := r.Compare(op, left, right)
		return foreign.Bool(res), err
	}
	res, ok, err := r.tryOp(op.Name(), left, right)
	if ok || err != nil {
		return res, err
	}
	if rname := op.ReflectedName(); rname != "" {
		res, ok, err = r.tryOp(rname, right, left)
		if ok || err != nil {
			return res, err
		}
	}
	return nil, &OperatorError{Op: op, Left: typeOf(left), Right: typeOf(right)}
}

// UnaryOp evaluates a unary operator.
func (r *Registry) UnaryOp(op foreign.Op, operand foreign.Object) (foreign.Object, error) {
	res, ok, err := r.tryOp(op.Name(), operand)
	if ok || err != nil {
		return res, err
	}
	return nil, &OperatorError{Op: op, Left: typeOf(operand)}
}

// mirror returns the comparison equivalent to op with swapped operands.
func mirror(op foreign.Op) foreign.Op {
	switch op {
	case foreign.OpLt:
		return foreign.OpGt
	case foreign.OpLe:
		return foreign.OpGe
	case foreign.OpGt:
		return foreign.OpLt
	case foreign.OpGe:
		return foreign.OpLe
	default:
		return op
	}
}

// Compare evaluates a comparison. Enum values compare numerically. Other
// values use a comparison method of their class if defined, then a Go
// Compare(T) int method, then Go equality for == and !=.
func (r *Registry) Compare(op foreign.Op, left, right foreign.Object) (bool, error) {
	if !op.IsComparison() {
		return false, fmt.Errorf("compare: %v is not a comparison", op.Name())
	}
	if e, ok := left.(*enum.Value); ok {
		return enum.RichCompare(op, e, right)
	}
	if e, ok := right.(*enum.Value); ok {
		return enum.RichCompare(mirror(op), e, left)
	}

	res, ok, err := r.tryOp(op.Name(), left, right)
	if err != nil {
		return false, err
	}
	if ok {
		b, isBool := res.(foreign.Bool)
		if !isBool {
			return false, fmt.Errorf("%v returned %v, expected bool", op.Name(), res.Type().Name)
		}
		return bool(b), nil
	}

	lv, lok := goValue(left)
	rv, rok := goValue(right)
	if lok && rok {
		if ord, ok := goCompare(lv, rv); ok {
			return op.Eval(ord), nil
		}
		if op == foreign.OpEq || op == foreign.OpNe {
			eq := lv.Type() == rv.Type() && lv.Comparable() && lv.Equal(rv)
			return eq == (op == foreign.OpEq), nil
		}
	}
	switch op {
	case foreign.OpEq:
		return identical(left, right), nil
	case foreign.OpNe:
		return !identical(left, right), nil
	}
	return false, &OperatorError{Op: op, Left: typeOf(left), Right: typeOf(right)}
}

func identical(a, b foreign.Object) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) || !t.Comparable() {
		return false
	}
	return a == b
}

// goCompare orders a and b with a's Compare method, if it has one of the
// form Compare(T) int and b is a T.
func goCompare(a, b reflect.Value) (int, bool) {
	m := a.MethodByName("Compare")
	if !m.IsValid() {
		return 0, false
	}
	mt := m.Type()
	if mt.NumIn() != 1 || mt.NumOut() != 1 || mt.Out(0).Kind() != reflect.Int {
		return 0, false
	}
	if !b.Type().AssignableTo(mt.In(0)) {
		return 0, false
	}
	return int(m.Call([]reflect.Value{b})[0].Int()), true
}
