// Package overload describes callable overloads: their parameters, their
// precedence and the sets they are grouped in.
package overload

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/refaktor/hostbridge/foreign"
	"github.com/refaktor/hostbridge/paramspec"
	"github.com/shopspring/decimal"
)

// MissingValue is the type of [Missing].
type MissingValue struct{}

var missingType = &foreign.Type{Name: "Missing", Go: reflect.TypeFor[MissingValue]()}

func (MissingValue) Type() *foreign.Type { return missingType }
func (MissingValue) String() string      { return "Missing" }

// Missing is passed for omitted optional parameters of type any or
// [foreign.Object] that have no default.
var Missing = MissingValue{}

type Param struct {
	Name string
	// Nil for an unresolved type parameter of a generic definition.
	Type reflect.Type
	// May be omitted by the caller.
	Optional bool
	// Value used when the parameter is omitted. Valid if HasDefault.
	Default    reflect.Value
	HasDefault bool
	// Trailing variadic parameter. Type is the slice type.
	Variadic bool
	// Pointer parameter the callee writes a result to.
	Out bool
	// Index of the type parameter Type is (or, for a variadic parameter,
	// whose slice Type is), or -1.
	TypeParam int
}

// ElemType returns the type of a single argument for p: the element type if
// p is variadic, otherwise p.Type.
func (p *Param) ElemType() reflect.Type {
	if p.Variadic && p.Type != nil {
		return p.Type.Elem()
	}
	return p.Type
}

type Operator struct {
	Kind foreign.Op
	// The bound operand is the right hand side.
	Reverse bool
}

// Instantiator returns the instantiation of a generic function for the
// given type arguments.
type Instantiator func(typeArgs []reflect.Type) (any, error)

// GenericDef is the open definition of a generic function.
type GenericDef struct {
	TypeParams  []string
	Instantiate Instantiator
	spec        string
}

// Candidate is a single overload. It is not modified after construction.
type Candidate struct {
	Name string
	// Function to call. For methods, the receiver is the first argument.
	Fn     reflect.Value
	Params []Param
	// Called without a receiver.
	Static bool
	// Instantiated from a generic definition.
	Generic bool
	// Non-nil for open generic definitions, which are never called directly.
	Def *GenericDef
	// First result, nil if there is none.
	Return reflect.Type
	// All results except a trailing error.
	Results []reflect.Type
	// The last result of Fn is an error.
	HasErr bool
	// Type the method is declared on, and type it was looked up on. They
	// differ for methods promoted from embedded fields.
	DeclaringType reflect.Type
	ReflectedType reflect.Type
	Op            *Operator
}

// IsOpen reports whether c is an uninstantiated generic definition.
func (c *Candidate) IsOpen() bool {
	return c.Def != nil
}

// NumOut returns the number of out parameters.
func (c *Candidate) NumOut() int {
	n := 0
	for _, p := range c.Params {
		if p.Out {
			n++
		}
	}
	return n
}

// Signature renders c, e.g. "f(a int, b ...string) (int, error)".
func (c *Candidate) Signature() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('(')
	for i, p := range c.Params {
		if i != 0 {
			b.WriteString(", ")
		}
		if p.Out {
			b.WriteString("out ")
		}
		b.WriteString(p.Name)
		b.WriteByte(' ')
		switch {
		case p.Type == nil && c.Def != nil && p.TypeParam >= 0:
			if p.Variadic {
				b.WriteString("...")
			}
			b.WriteString(c.Def.TypeParams[p.TypeParam])
		case p.Variadic:
			b.WriteString("..." + p.Type.Elem().String())
		default:
			b.WriteString(p.Type.String())
		}
		if p.Optional {
			b.WriteByte('?')
		}
	}
	b.WriteByte(')')
	res := make([]string, 0, len(c.Results)+1)
	for _, r := range c.Results {
		res = append(res, r.String())
	}
	if c.HasErr {
		res = append(res, "error")
	}
	switch len(res) {
	case 0:
	case 1:
		b.WriteString(" " + res[0])
	default:
		b.WriteString(" (" + strings.Join(res, ", ") + ")")
	}
	return b.String()
}

// NewFunc builds a static candidate from the Go function fn. spec declares
// the parameters in [paramspec] syntax. An empty spec names the parameters
// arg0, arg1 and so on.
func NewFunc(name string, fn any, spec string) (*Candidate, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%v: expected func, got %T", name, fn)
	}
	c := &Candidate{
		Name:   name,
		Fn:     v,
		Static: true,
	}
	if err := c.setSignature(v.Type(), 0, spec); err != nil {
		return nil, err
	}
	return c, nil
}

// NewMethod builds a candidate from the method name of recv.
func NewMethod(recv reflect.Type, name, spec string) (*Candidate, error) {
	if recv.Kind() == reflect.Interface {
		return nil, fmt.Errorf("%v.%v: methods of interface types cannot be bound", recv, name)
	}
	m, ok := recv.MethodByName(name)
	if !ok {
		return nil, fmt.Errorf("%v has no method %v", recv, name)
	}
	c := &Candidate{
		Name:          name,
		Fn:            m.Func,
		DeclaringType: declaringType(recv, name),
		ReflectedType: recv,
	}
	if err := c.setSignature(m.Type, 1, spec); err != nil {
		return nil, err
	}
	return c, nil
}

// NewOperator builds a candidate implementing op for values of type typ.
// fn takes the operands in order, so if its first parameter is not of type
// typ, it implements the reflected operator.
func NewOperator(op foreign.Op, typ reflect.Type, fn any) (*Candidate, error) {
	c, err := NewFunc(op.Name(), fn, "")
	if err != nil {
		return nil, err
	}
	want := 2
	if op.IsUnary() {
		want = 1
	}
	if len(c.Params) != want {
		return nil, fmt.Errorf("operator %v: expected %v operands, got %v", op, want, len(c.Params))
	}
	c.DeclaringType = typ
	c.ReflectedType = typ
	c.Op = &Operator{Kind: op, Reverse: c.Params[0].Type != typ}
	if c.Op.Reverse {
		if c.Params[1].Type != typ {
			return nil, fmt.Errorf("operator %v: no operand of type %v", op, typ)
		}
		c.Name = op.ReflectedName()
	}
	return c, nil
}

// ParamType is the type of a generic definition's parameter: either a
// concrete type or a type parameter.
type ParamType struct {
	Type      reflect.Type
	TypeParam int
}

// Concrete returns the ParamType for the concrete type t.
func Concrete(t reflect.Type) ParamType {
	return ParamType{Type: t, TypeParam: -1}
}

// TypeParam returns the ParamType for the i-th type parameter.
func TypeParam(i int) ParamType {
	return ParamType{TypeParam: i}
}

// NewGeneric builds the open definition of a generic function. params
// gives the type of each parameter declared by spec, inst returns the
// instantiation for concrete type arguments. The last parameter is variadic
// if spec declares it so; its ParamType is then the element type.
func NewGeneric(name string, typeParams []string, spec string, params []ParamType, inst Instantiator) (*Candidate, error) {
	if inst == nil {
		return nil, fmt.Errorf("%v: missing instantiator", name)
	}
	ps, err := parseSpec(name, spec)
	if err != nil {
		return nil, err
	}
	if len(ps.Params) != len(params) {
		return nil, fmt.Errorf("%v: spec declares %v parameters, got %v types", name, len(ps.Params), len(params))
	}
	c := &Candidate{
		Name:    name,
		Static:  true,
		Generic: true,
		Def: &GenericDef{
			TypeParams:  typeParams,
			Instantiate: inst,
			spec:        spec,
		},
	}
	for i, sp := range ps.Params {
		pt := params[i]
		if pt.Type == nil && (pt.TypeParam < 0 || pt.TypeParam >= len(typeParams)) {
			return nil, fmt.Errorf("%v: parameter %v: invalid type parameter index %v", name, sp.Name, pt.TypeParam)
		}
		p := Param{
			Name:      sp.Name,
			Type:      pt.Type,
			Optional:  sp.Optional,
			Variadic:  sp.Variadic,
			Out:       sp.Out,
			TypeParam: pt.TypeParam,
		}
		if pt.Type != nil {
			p.TypeParam = -1
			if sp.Variadic {
				p.Type = reflect.SliceOf(pt.Type)
			}
		}
		c.Params = append(c.Params, p)
	}
	return c, nil
}

// Close instantiates the generic definition c with typeArgs.
func (c *Candidate) Close(typeArgs []reflect.Type) (*Candidate, error) {
	if c.Def == nil {
		return nil, fmt.Errorf("%v: not a generic definition", c.Name)
	}
	if len(typeArgs) != len(c.Def.TypeParams) {
		return nil, fmt.Errorf("%v: expected %v type arguments, got %v", c.Name, len(c.Def.TypeParams), len(typeArgs))
	}
	fn, err := c.Def.Instantiate(typeArgs)
	if err != nil {
		return nil, fmt.Errorf("instantiate %v%v: %w", c.Name, typeArgList(typeArgs), err)
	}
	res, err := NewFunc(c.Name, fn, c.Def.spec)
	if err != nil {
		return nil, err
	}
	res.Generic = true
	if len(res.Params) != len(c.Params) {
		return nil, fmt.Errorf("instantiate %v%v: expected %v parameters, got %v", c.Name, typeArgList(typeArgs), len(c.Params), len(res.Params))
	}
	for i, p := range c.Params {
		if p.TypeParam < 0 {
			continue
		}
		if got := res.Params[i].ElemType(); got != typeArgs[p.TypeParam] {
			return nil, fmt.Errorf("instantiate %v%v: parameter %v: expected %v, got %v", c.Name, typeArgList(typeArgs), p.Name, typeArgs[p.TypeParam], got)
		}
	}
	return res, nil
}

func typeArgList(ts []reflect.Type) string {
	s := make([]string, len(ts))
	for i, t := range ts {
		s[i] = t.String()
	}
	return "[" + strings.Join(s, ", ") + "]"
}

func parseSpec(name, spec string) (*paramspec.Spec, error) {
	return paramspec.Parse(name, []byte(spec))
}

// setSignature fills in the parameters and results of c from the function
// type ft, skipping the first skip parameters (the receiver).
func (c *Candidate) setSignature(ft reflect.Type, skip int, spec string) error {
	n := ft.NumIn() - skip
	var specParams []*paramspec.Param
	if strings.TrimSpace(spec) != "" {
		ps, err := parseSpec(c.Name, spec)
		if err != nil {
			return err
		}
		if len(ps.Params) != n {
			return fmt.Errorf("%v: spec declares %v parameters, function has %v", c.Name, len(ps.Params), n)
		}
		specParams = ps.Params
	}

	c.Params = make([]Param, n)
	for i := range n {
		p := Param{
			Name:      "arg" + strconv.Itoa(i),
			Type:      ft.In(i + skip),
			Variadic:  ft.IsVariadic() && i == n-1,
			TypeParam: -1,
		}
		if specParams != nil {
			sp := specParams[i]
			p.Name = sp.Name
			p.Optional = sp.Optional
			p.Out = sp.Out
			if sp.Variadic && !p.Variadic {
				return fmt.Errorf("%v: parameter %v: function is not variadic", c.Name, sp.Name)
			}
			if p.Out && p.Type.Kind() != reflect.Pointer {
				return fmt.Errorf("%v: out parameter %v: expected pointer, got %v", c.Name, sp.Name, p.Type)
			}
			if sp.Default != nil {
				def, err := literalValue(sp.Default, p.Type)
				if err != nil {
					return fmt.Errorf("%v: parameter %v: %w", c.Name, sp.Name, err)
				}
				p.Default = def
				p.HasDefault = true
			}
		}
		if p.Optional && !p.HasDefault {
			p.Default = zeroDefault(p.Type)
			p.HasDefault = true
		}
		c.Params[i] = p
	}

	nOut := ft.NumOut()
	if nOut > 0 && ft.Out(nOut-1) == errorType {
		c.HasErr = true
		nOut--
	}
	c.Results = make([]reflect.Type, nOut)
	for i := range nOut {
		c.Results[i] = ft.Out(i)
	}
	if nOut > 0 {
		c.Return = c.Results[0]
	}
	return nil
}

func zeroDefault(t reflect.Type) reflect.Value {
	if t == anyType || t == objectType {
		res := reflect.New(t).Elem()
		res.Set(reflect.ValueOf(Missing))
		return res
	}
	return reflect.Zero(t)
}

var errLiteral = errors.New("invalid default")

// literalValue returns lit as a value of type t.
func literalValue(lit *paramspec.Literal, t reflect.Type) (reflect.Value, error) {
	fail := func(err error) (reflect.Value, error) {
		if err == nil {
			return reflect.Value{}, fmt.Errorf("%w: %v literal %q for %v", errLiteral, lit.Kind, lit.Text, t)
		}
		return reflect.Value{}, fmt.Errorf("%w: %v literal %q for %v: %w", errLiteral, lit.Kind, lit.Text, t, err)
	}
	res := reflect.New(t).Elem()
	if lit.Kind == paramspec.LitNone {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return res, nil
		}
		return fail(nil)
	}
	if t.Kind() == reflect.Pointer {
		elem, err := literalValue(lit, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		res.Set(reflect.New(t.Elem()))
		res.Elem().Set(elem)
		return res, nil
	}
	if t == decimalType {
		if lit.Kind != paramspec.LitInt && lit.Kind != paramspec.LitFloat {
			return fail(nil)
		}
		d, err := decimal.NewFromString(lit.Text)
		if err != nil {
			return fail(err)
		}
		return reflect.ValueOf(d), nil
	}
	if t.Kind() == reflect.Interface {
		var v any
		switch lit.Kind {
		case paramspec.LitBool:
			v = lit.Text == "true"
		case paramspec.LitInt:
			x, err := strconv.ParseInt(lit.Text, 0, 0)
			if err != nil {
				return fail(err)
			}
			v = int(x)
		case paramspec.LitFloat:
			x, err := strconv.ParseFloat(lit.Text, 64)
			if err != nil {
				return fail(err)
			}
			v = x
		case paramspec.LitString:
			v = lit.Text
		}
		rv := reflect.ValueOf(v)
		if !rv.Type().AssignableTo(t) {
			return fail(nil)
		}
		res.Set(rv)
		return res, nil
	}

	switch lit.Kind {
	case paramspec.LitBool:
		if t.Kind() != reflect.Bool {
			return fail(nil)
		}
		res.SetBool(lit.Text == "true")
	case paramspec.LitString:
		if t.Kind() != reflect.String {
			return fail(nil)
		}
		res.SetString(lit.Text)
	case paramspec.LitInt:
		switch t.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			x, err := strconv.ParseInt(lit.Text, 0, 64)
			if err != nil || res.OverflowInt(x) {
				return fail(err)
			}
			res.SetInt(x)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			x, err := strconv.ParseUint(lit.Text, 0, 64)
			if err != nil || res.OverflowUint(x) {
				return fail(err)
			}
			res.SetUint(x)
		case reflect.Float32, reflect.Float64:
			x, err := strconv.ParseFloat(lit.Text, 64)
			if err != nil || res.OverflowFloat(x) {
				return fail(err)
			}
			res.SetFloat(x)
		default:
			return fail(nil)
		}
	case paramspec.LitFloat:
		if t.Kind() != reflect.Float32 && t.Kind() != reflect.Float64 {
			return fail(nil)
		}
		x, err := strconv.ParseFloat(lit.Text, 64)
		if err != nil || res.OverflowFloat(x) {
			return fail(err)
		}
		res.SetFloat(x)
	}
	return res, nil
}

// declaringType returns the type that declares the method name found on t:
// t itself, or the embedded type the method is promoted from.
func declaringType(t reflect.Type, name string) reflect.Type {
	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() != reflect.Struct {
		return t
	}
	// Promoted methods are compiler generated wrappers; a method declared
	// on the struct itself is not.
	for _, rt := range []reflect.Type{base, reflect.PointerTo(base)} {
		if m, ok := rt.MethodByName(name); ok && !isWrapper(m.Func) {
			return t
		}
	}
	for i := range base.NumField() {
		f := base.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if _, ok := ft.MethodByName(name); ok {
			return declaringType(ft, name)
		}
		if ft.Kind() != reflect.Pointer {
			if _, ok := reflect.PointerTo(ft).MethodByName(name); ok {
				return declaringType(reflect.PointerTo(ft), name)
			}
		}
	}
	return t
}

func isWrapper(fn reflect.Value) bool {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return false
	}
	file, _ := f.FileLine(f.Entry())
	return file == "<autogenerated>"
}
