// Package accessor resolves the readable and writable members of Go types.
//
// A member is either an exported struct field, including fields promoted
// from embedded structs, or a property: a pair of methods Name() and
// SetName(v). Members are resolved once per type and cached by a [Manager].
package accessor

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
)

var (
	ErrNilReceiver = errors.New("nil receiver")
	ErrReadOnly    = errors.New("member is read-only")
	// ErrNotAddressable is returned when setting a member of a value that
	// was passed by value.
	ErrNotAddressable = errors.New("cannot set member of unaddressable value")
)

var errorType = reflect.TypeFor[error]()

type Kind int

const (
	KindField Kind = iota
	KindProperty
)

func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindProperty:
		return "property"
	default:
		panic("invalid member kind")
	}
}

// Member is a field or property of a type.
type Member struct {
	Name string
	// Type of the value Get returns and Set accepts. Struct typed fields
	// are returned as pointers, so Type is the pointer type for those.
	Type reflect.Type
	Kind Kind

	// Field index (KindField)
	index []int
	// Method indices in the pointer method set (KindProperty). set is -1
	// if there is no setter.
	get, set  int
	getHasErr bool
	setHasErr bool
	addrOf    bool
}

func (m *Member) CanSet() bool {
	return m.Kind == KindField || m.set >= 0
}

func (m *Member) String() string {
	rw := "rw"
	if !m.CanSet() {
		rw = "r"
	}
	return fmt.Sprintf("%v %v %v (%v)", m.Kind, m.Name, m.Type, rw)
}

// Get reads the member from v, which is a value of the table's type or a
// pointer to it.
func (m *Member) Get(v reflect.Value) (res reflect.Value, err error) {
	v, err = deref(v)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("get %v: %w", m.Name, err)
	}
	switch m.Kind {
	case KindField:
		f, err := v.FieldByIndexErr(m.index)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("get %v: %w", m.Name, ErrNilReceiver)
		}
		if m.addrOf {
			if !f.CanAddr() {
				cp := reflect.New(f.Type())
				cp.Elem().Set(f)
				return cp, nil
			}
			return f.Addr(), nil
		}
		return f, nil
	default:
		out, err := callMethod(addressed(v), m.get, nil)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("get %v: %w", m.Name, err)
		}
		if m.getHasErr {
			if errv := out[1]; !errv.IsNil() {
				return reflect.Value{}, errv.Interface().(error)
			}
		}
		return out[0], nil
	}
}

// Set writes x to the member of v. v must be a pointer, or addressable.
// x must be assignable to the member's type; for struct typed fields
// either the struct or a pointer to it is accepted.
func (m *Member) Set(v, x reflect.Value) error {
	if !m.CanSet() {
		return fmt.Errorf("set %v: %w", m.Name, ErrReadOnly)
	}
	v, err := deref(v)
	if err != nil {
		return fmt.Errorf("set %v: %w", m.Name, err)
	}
	if !v.CanAddr() {
		return fmt.Errorf("set %v: %w", m.Name, ErrNotAddressable)
	}
	switch m.Kind {
	case KindField:
		f, err := v.FieldByIndexErr(m.index)
		if err != nil {
			return fmt.Errorf("set %v: %w", m.Name, ErrNilReceiver)
		}
		if !f.CanSet() {
			// Promoted through an unexported embedded pointer
			return fmt.Errorf("set %v: %w", m.Name, ErrReadOnly)
		}
		if m.addrOf && x.Type() == m.Type {
			if x.IsNil() {
				return fmt.Errorf("set %v: %w", m.Name, ErrNilReceiver)
			}
			x = x.Elem()
		}
		if !x.Type().AssignableTo(f.Type()) {
			return fmt.Errorf("set %v: cannot assign %v to %v", m.Name, x.Type(), f.Type())
		}
		f.Set(x)
		return nil
	default:
		out, err := callMethod(v.Addr(), m.set, []reflect.Value{x})
		if err != nil {
			return fmt.Errorf("set %v: %w", m.Name, err)
		}
		if m.setHasErr {
			if errv := out[0]; !errv.IsNil() {
				return errv.Interface().(error)
			}
		}
		return nil
	}
}

// deref dereferences pointers down to the underlying value.
func deref(v reflect.Value) (reflect.Value, error) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, ErrNilReceiver
		}
		v = v.Elem()
	}
	return v, nil
}

// addressed returns a pointer to v, copying v if it is not addressable.
func addressed(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v.Addr()
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p
}

func callMethod(recv reflect.Value, idx int, in []reflect.Value) (out []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
	}()
	m := recv.Method(idx)
	if len(in) == 1 && !in[0].Type().AssignableTo(m.Type().In(0)) {
		return nil, fmt.Errorf("cannot assign %v to %v", in[0].Type(), m.Type().In(0))
	}
	return m.Call(in), nil
}

// Table holds the members of a type.
type Table struct {
	Type    reflect.Type
	members map[string]*Member
	order   []*Member
}

func (t *Table) Lookup(name string) (*Member, bool) {
	m, ok := t.members[name]
	return m, ok
}

// Members returns the members in declaration order, fields first.
func (t *Table) Members() []*Member {
	return slices.Clone(t.order)
}

// IsAccessor reports whether the method name is the getter or setter of
// a property, so it should not be exposed as a plain method.
func (t *Table) IsAccessor(method string) bool {
	if m, ok := t.members[method]; ok && m.Kind == KindProperty {
		return true
	}
	if name, ok := strings.CutPrefix(method, "Set"); ok {
		m, ok := t.members[name]
		return ok && m.Kind == KindProperty && m.set >= 0
	}
	return false
}

func (t *Table) add(m *Member) {
	t.members[m.Name] = m
	t.order = append(t.order, m)
}

// Manager caches member tables by type.
type Manager struct {
	mu     sync.RWMutex
	tables map[reflect.Type]*Table
}

func NewManager() *Manager {
	return &Manager{tables: map[reflect.Type]*Table{}}
}

// For returns the member table of t. Pointer types share the table of
// their element type.
func (m *Manager) For(t reflect.Type) *Table {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	m.mu.RLock()
	tab, ok := m.tables[t]
	m.mu.RUnlock()
	if ok {
		return tab
	}

	tab = build(t)
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.tables[t]; ok {
		return existing
	}
	m.tables[t] = tab
	return tab
}

func build(t reflect.Type) *Table {
	tab := &Table{Type: t, members: map[string]*Member{}}
	if t.Kind() == reflect.Struct {
		for _, f := range reflect.VisibleFields(t) {
			if !f.IsExported() {
				continue
			}
			mem := &Member{Name: f.Name, Type: f.Type, Kind: KindField, index: f.Index, set: -1}
			if f.Type.Kind() == reflect.Struct {
				// Returned as a pointer so nested structs can be modified.
				mem.Type = reflect.PointerTo(f.Type)
				mem.addrOf = true
			}
			tab.add(mem)
		}
	}

	pt := reflect.PointerTo(t)
	for i := range pt.NumMethod() {
		getter := pt.Method(i)
		if _, ok := tab.members[getter.Name]; ok {
			continue
		}
		ft := getter.Type
		// Receiver counts as an input.
		if ft.NumIn() != 1 || ft.NumOut() == 0 || ft.NumOut() > 2 {
			continue
		}
		if ft.Out(0) == errorType {
			continue
		}
		getHasErr := ft.NumOut() == 2
		if getHasErr && ft.Out(1) != errorType {
			continue
		}
		setter, ok := pt.MethodByName("Set" + getter.Name)
		if !ok {
			continue
		}
		st := setter.Type
		if st.NumIn() != 2 || st.In(1) != ft.Out(0) || st.NumOut() > 1 {
			continue
		}
		if st.NumOut() == 1 && st.Out(0) != errorType {
			continue
		}
		tab.add(&Member{
			Name:      getter.Name,
			Type:      ft.Out(0),
			Kind:      KindProperty,
			get:       getter.Index,
			set:       setter.Index,
			getHasErr: getHasErr,
			setHasErr: st.NumOut() == 1,
		})
	}
	return tab
}
