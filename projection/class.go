// Package projection exposes Go types to the foreign side as classes.
//
// A class groups the exported methods of a type into overload sets keyed
// by their foreign name, exposes fields and getter/setter pairs as
// attributes, and, for registered enum types, the enum constants and
// arithmetic and bitwise operators. Foreign names are derived from Go
// names by the [[rule]] sections of the configuration.
package projection

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/refaktor/hostbridge/accessor"
	"github.com/refaktor/hostbridge/binder"
	"github.com/refaktor/hostbridge/config"
	"github.com/refaktor/hostbridge/config/rules"
	"github.com/refaktor/hostbridge/enum"
	"github.com/refaktor/hostbridge/logger"
	"github.com/refaktor/hostbridge/overload"
)

// Registry builds and caches classes.
type Registry struct {
	Binder    *binder.Binder
	Accessors *accessor.Manager
	Rules     []config.Rule
	Log       *logger.Logger

	mu      sync.Mutex
	classes map[reflect.Type]*Class
}

func New(b *binder.Binder, rs []config.Rule) *Registry {
	return &Registry{
		Binder:    b,
		Accessors: accessor.NewManager(),
		Rules:     rs,
		Log:       b.Log,
		classes:   map[reflect.Type]*Class{},
	}
}

// Class is a projected Go type.
type Class struct {
	// Go type, never a pointer
	Type reflect.Type
	Name string
	// Non-nil if Type is a registered enum type.
	Enum *enum.Type

	mu        sync.RWMutex
	methods   map[string]*overload.Set
	members   map[string]*accessor.Member
	constants map[string]string // foreign name to Go constant name
}

// Method returns the overload set of the named method.
func (c *Class) Method(name string) (*overload.Set, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.methods[name]
	return s, ok
}

// Member returns the named field or property.
func (c *Class) Member(name string) (*accessor.Member, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.members[name]
	return m, ok
}

// Constant returns the named enum constant.
func (c *Class) Constant(name string) (*enum.Value, bool) {
	c.mu.RLock()
	goName, ok := c.constants[name]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return c.Enum.Constant(goName)
}

// Define adds candidates to the named method, creating it if needed.
func (c *Class) Define(name string, cands ...*overload.Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.define(name, cands...)
}

func (c *Class) define(name string, cands ...*overload.Candidate) {
	s, ok := c.methods[name]
	if !ok {
		s = overload.NewSet(name)
		c.methods[name] = s
	}
	for _, cand := range cands {
		s.Add(cand)
	}
}

// Dir returns the sorted foreign names of all attributes of the class.
func (c *Class) Dir() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var names []string
	for name := range c.methods {
		names = append(names, name)
	}
	for name := range c.members {
		names = append(names, name)
	}
	for name := range c.constants {
		names = append(names, name)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func (c *Class) String() string {
	return fmt.Sprintf("<class '%v'>", c.Name)
}

// Class returns the class of t. Pointer types share the class of their
// element type.
func (r *Registry) Class(t reflect.Type) (*Class, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.classes[t]; ok {
		return c, nil
	}
	c, err := r.build(t)
	if err != nil {
		return nil, fmt.Errorf("project %v: %w", t, err)
	}
	r.classes[t] = c
	r.Log.Debugf("project %v: %v methods, %v members, %v constants",
		t, len(c.methods), len(c.members), len(c.constants))
	return c, nil
}

func (r *Registry) build(t reflect.Type) (*Class, error) {
	c := &Class{
		Type:      t,
		Name:      t.Name(),
		methods:   map[string]*overload.Set{},
		members:   map[string]*accessor.Member{},
		constants: map[string]string{},
	}
	if c.Name == "" {
		c.Name = t.String()
	}
	recv := t.Name()
	table := r.Accessors.For(t)

	var syms []rules.SymbolSpec
	for _, m := range table.Members() {
		typ := rules.SymbolField
		if m.Kind == accessor.KindProperty {
			typ = rules.SymbolProperty
		}
		syms = append(syms, rules.SymbolSpec{Name: m.Name, Recv: recv, Type: typ})
	}
	var methods []string
	if t.Kind() != reflect.Interface {
		pt := reflect.PointerTo(t)
		for i := range pt.NumMethod() {
			name := pt.Method(i).Name
			if table.IsAccessor(name) {
				continue
			}
			methods = append(methods, name)
			syms = append(syms, rules.SymbolSpec{Name: name, Recv: recv, Type: rules.SymbolMethod})
		}
	}
	if r.Binder.Conv.Enums != nil {
		if et, ok := r.Binder.Conv.Enums.Lookup(t); ok {
			c.Enum = et
			c.Name = et.Name
			for _, k := range et.Constants() {
				syms = append(syms, rules.SymbolSpec{Name: k.Name, Recv: recv, Type: rules.SymbolConstant})
			}
		}
	}

	res, err := rules.Execute(r.Rules, []rules.PackageSpec{{PkgPath: t.PkgPath(), Symbols: syms}})
	if err != nil {
		return nil, err
	}
	names := res[t.PkgPath()]

	var errs error
	for _, m := range table.Members() {
		if name, ok := names.Name(rules.Symbol{Name: m.Name, Recv: recv}); ok {
			c.members[name] = m
		}
	}
	for _, goName := range methods {
		name, ok := names.Name(rules.Symbol{Name: goName, Recv: recv})
		if !ok {
			continue
		}
		cand, err := overload.NewMethod(reflect.PointerTo(t), goName, "")
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		cand.Name = name
		c.define(name, cand)
	}
	if c.Enum != nil {
		for _, k := range c.Enum.Constants() {
			if name, ok := names.Name(rules.Symbol{Name: k.Name, Recv: recv}); ok {
				c.constants[name] = k.Name
			}
		}
		ops, err := enumOperators(c.Enum, r.Binder.Conv.Enums)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		for _, op := range ops {
			c.define(op.Name, op)
		}
	}

	for _, s := range c.methods {
		if err := s.Validate(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if errs != nil {
		return nil, errs
	}
	return c, nil
}
