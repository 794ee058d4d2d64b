// Package enum projects named Go integer types as foreign enum types.
//
// Every constant is projected as a single *[Value] per process for as long as
// any reference to it is alive, so identity comparison of two projections of
// the same constant always holds.
package enum

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"weak"

	"github.com/refaktor/hostbridge/foreign"
)

var (
	ErrNotInteger   = errors.New("enum type must have an integer underlying type")
	ErrDuplicate    = errors.New("enum type already registered")
	ErrNotFlags     = errors.New("bitwise operation on non-flags enum")
	ErrZeroDivision = errors.New("division by zero")
)

// Integer is the constraint of Go types that can be registered as enums.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Constant is a named enum member. Bits holds the value as two's complement
// (signed types) or as is (unsigned types).
type Constant struct {
	Name string
	Bits uint64
}

// Const creates a Constant from a typed Go constant.
func Const[T Integer](name string, v T) Constant {
	return Constant{Name: name, Bits: bitsOf(reflect.ValueOf(v))}
}

type Type struct {
	Name  string
	Go    reflect.Type
	Flags bool

	signed     bool
	unsigned64 bool
	constants  []Constant
	byName     map[string]int
	byBits     map[uint64]int
	reg        *Registry
}

// Signed reports whether the underlying type is a signed integer.
func (t *Type) Signed() bool { return t.signed }

// Unsigned64 reports whether the underlying type is a 64-bit unsigned
// integer, which needs unsigned comparison against other integers.
func (t *Type) Unsigned64() bool { return t.unsigned64 }

func (t *Type) Constants() []Constant { return slices.Clone(t.constants) }

// Constant returns the projection of the named constant.
func (t *Type) Constant(name string) (*Value, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return t.reg.Project(t, t.constants[i].Bits), true
}

// IsDefined reports whether bits is the value of a declared constant, or, for
// flags enums, a combination of declared constants.
func (t *Type) IsDefined(bits uint64) bool {
	if _, ok := t.byBits[bits]; ok {
		return true
	}
	if !t.Flags {
		return false
	}
	var all uint64
	for _, c := range t.constants {
		all |= c.Bits
	}
	return bits&^all == 0
}

// normalize truncates bits to the width of the Go type and sign extends
// signed values.
func (t *Type) normalize(bits uint64) uint64 {
	rv := reflect.New(t.Go).Elem()
	if t.signed {
		rv.SetInt(int64(bits))
	} else {
		rv.SetUint(bits)
	}
	return bitsOf(rv)
}

func (t *Type) render(bits uint64) string {
	if i, ok := t.byBits[bits]; ok {
		return t.constants[i].Name
	}
	if t.Flags && bits != 0 && t.IsDefined(bits) {
		var names []string
		rest := bits
		for _, c := range t.constants {
			if c.Bits != 0 && c.Bits&rest == c.Bits {
				names = append(names, c.Name)
				rest &^= c.Bits
			}
		}
		if rest == 0 {
			return strings.Join(names, ", ")
		}
	}
	if t.signed {
		return strconv.FormatInt(int64(bits), 10)
	}
	return strconv.FormatUint(bits, 10)
}

// Value is a projected enum value.
type Value struct {
	typ  *Type
	bits uint64
}

func (v *Value) Type() *foreign.Type { return foreign.NativeType(v.typ.Go) }

func (v *Value) EnumType() *Type { return v.typ }

func (v *Value) Bits() uint64 { return v.bits }

// Name renders the value the way its type would print it: the constant
// name, a comma separated list of flags, or the number itself.
func (v *Value) Name() string { return v.typ.render(v.bits) }

func (v *Value) String() string { return v.typ.Name + "." + v.Name() }

// Int returns the underlying value as a foreign integer.
func (v *Value) Int() *foreign.Int {
	if v.typ.signed {
		return foreign.NewInt(int64(v.bits))
	}
	return foreign.NewUint(v.bits)
}

func (v *Value) Float64() float64 {
	if v.typ.signed {
		return float64(int64(v.bits))
	}
	return float64(v.bits)
}

// Native returns the value as its Go type.
func (v *Value) Native() reflect.Value {
	rv := reflect.New(v.typ.Go).Elem()
	if v.typ.signed {
		rv.SetInt(int64(v.bits))
	} else {
		rv.SetUint(v.bits)
	}
	return rv
}

type cacheKey struct {
	typ  *Type
	bits uint64
}

// Registry holds registered enum types and interns their projections.
type Registry struct {
	mu    sync.Mutex
	types map[reflect.Type]*Type
	cache map[cacheKey]weak.Pointer[Value]
}

func NewRegistry() *Registry {
	return &Registry{
		types: map[reflect.Type]*Type{},
		cache: map[cacheKey]weak.Pointer[Value]{},
	}
}

// Register registers goType as an enum type named name.
func (r *Registry) Register(name string, goType reflect.Type, flags bool, constants ...Constant) (*Type, error) {
	t := &Type{
		Name:   name,
		Go:     goType,
		Flags:  flags,
		byName: make(map[string]int, len(constants)),
		byBits: make(map[uint64]int, len(constants)),
		reg:    r,
	}
	switch goType.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		t.signed = true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		t.unsigned64 = goType.Size() == 8
	default:
		return nil, fmt.Errorf("register %v: %w", name, ErrNotInteger)
	}
	for _, c := range constants {
		c.Bits = t.normalize(c.Bits)
		if _, ok := t.byName[c.Name]; ok {
			return nil, fmt.Errorf("register %v: duplicate constant %v", name, strconv.Quote(c.Name))
		}
		t.byName[c.Name] = len(t.constants)
		if _, ok := t.byBits[c.Bits]; !ok {
			// Aliases render as the first declared name.
			t.byBits[c.Bits] = len(t.constants)
		}
		t.constants = append(t.constants, c)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[goType]; ok {
		return nil, fmt.Errorf("register %v: %w: %v", name, ErrDuplicate, goType)
	}
	r.types[goType] = t
	return t, nil
}

// Register is a typed shorthand for [Registry.Register].
func Register[T Integer](r *Registry, name string, flags bool, constants ...Constant) (*Type, error) {
	return r.Register(name, reflect.TypeFor[T](), flags, constants...)
}

func (r *Registry) Lookup(goType reflect.Type) (*Type, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.types[goType]
	return t, ok
}

// Project returns the interned projection of bits in t.
func (r *Registry) Project(t *Type, bits uint64) *Value {
	key := cacheKey{typ: t, bits: t.normalize(bits)}

	r.mu.Lock()
	defer r.mu.Unlock()
	if wp, ok := r.cache[key]; ok {
		if v := wp.Value(); v != nil {
			return v
		}
	}
	v := &Value{typ: t, bits: key.bits}
	wp := weak.Make(v)
	r.cache[key] = wp
	runtime.AddCleanup(v, func(key cacheKey) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.cache[key] == wp {
			delete(r.cache, key)
		}
	}, key)
	return v
}

// ProjectValue projects a Go value of a registered enum type.
func (r *Registry) ProjectValue(rv reflect.Value) (*Value, bool) {
	t, ok := r.Lookup(rv.Type())
	if !ok {
		return nil, false
	}
	return r.Project(t, bitsOf(rv)), true
}

func bitsOf(rv reflect.Value) uint64 {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(rv.Int())
	default:
		return rv.Uint()
	}
}
