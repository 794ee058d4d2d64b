package hostbridge

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/refaktor/hostbridge/binder"
	"github.com/refaktor/hostbridge/config"
	"github.com/refaktor/hostbridge/converter"
	"github.com/refaktor/hostbridge/enum"
	"github.com/refaktor/hostbridge/foreign"
	"github.com/refaktor/hostbridge/logger"
	"github.com/refaktor/hostbridge/overload"
	"github.com/refaktor/hostbridge/projection"
)

var ErrUndefined = errors.New("undefined function")

// Bridge is the entry point of an embedding: it owns the registries and
// the binder, and the functions callable by name.
type Bridge struct {
	Enums   *enum.Registry
	Conv    *converter.Converter
	Binder  *binder.Binder
	Classes *projection.Registry
	Log     *logger.Logger

	mu    sync.RWMutex
	funcs map[string]*overload.Set
}

// New creates a bridge configured by cfg. A nil cfg means
// [config.Default].
func New(cfg *config.Config) (*Bridge, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	casing, err := binder.ParseCasing(cfg.Binder.KeywordCasing)
	if err != nil {
		return nil, fmt.Errorf("new bridge: %w", err)
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("new bridge: %w", err)
	}
	log := logger.New(os.Stderr, cfg.Log.Prefix, level)

	enums := enum.NewRegistry()
	conv := converter.New(enums)
	b := binder.New(conv)
	b.Casing = casing
	b.AllowThreads = cfg.Binder.AllowThreads
	b.Trace = cfg.Binder.Trace
	b.Log = log

	return &Bridge{
		Enums:   enums,
		Conv:    conv,
		Binder:  b,
		Classes: projection.New(b, cfg.Rules),
		Log:     log,
		funcs:   map[string]*overload.Set{},
	}, nil
}

// SetLock sets the interpreter lock, which is released around native
// calls if the bridge allows threads.
func (b *Bridge) SetLock(l sync.Locker) {
	b.Binder.Lock = l
}

func (b *Bridge) add(c *overload.Candidate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.funcs[c.Name]
	if !ok {
		s = overload.NewSet(c.Name)
		b.funcs[c.Name] = s
	}
	s.Add(c)
}

// Func registers fn under name. Registering several functions under the
// same name makes them overloads. spec declares the parameters, see
// package paramspec.
func (b *Bridge) Func(name string, fn any, spec string) error {
	c, err := overload.NewFunc(name, fn, spec)
	if err != nil {
		return fmt.Errorf("register func: %w", err)
	}
	b.add(c)
	b.Log.Debugf("registered %v", c.Signature())
	return nil
}

// Generic registers an open generic definition built with
// [overload.NewGeneric].
func (b *Bridge) Generic(c *overload.Candidate) error {
	if !c.IsOpen() {
		return fmt.Errorf("register generic %v: not an open definition", c.Name)
	}
	b.add(c)
	return nil
}

// Implicit registers an implicit conversion operator, see
// [converter.Implicits.Register].
func (b *Bridge) Implicit(fn any) error {
	return b.Conv.Implicits.Register(fn)
}

// Lookup returns the overload set registered under name.
func (b *Bridge) Lookup(name string) (*overload.Set, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.funcs[name]
	return s, ok
}

// Names returns the names of all registered functions, sorted.
func (b *Bridge) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.funcs))
	for name := range b.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Call calls the function registered under name.
func (b *Bridge) Call(name string, args []foreign.Object, kwargs map[string]foreign.Object) (foreign.Object, error) {
	s, ok := b.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUndefined, name)
	}
	return b.Binder.Invoke(s, &binder.Call{Args: args, Kwargs: kwargs})
}

// Validate checks all registered overload sets.
func (b *Bridge) Validate() error {
	var errs error
	for _, name := range b.Names() {
		s, _ := b.Lookup(name)
		if err := s.Validate(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

// Wrap converts a Go value to a foreign value.
func (b *Bridge) Wrap(v any) (foreign.Object, error) {
	return b.Conv.ToForeign(reflect.ValueOf(v), nil)
}

// Unwrap converts a foreign value to a Go value of type T.
func Unwrap[T any](b *Bridge, obj foreign.Object) (T, error) {
	var res T
	v, err := b.Conv.ToNative(obj, reflect.TypeFor[T]())
	if err != nil {
		return res, err
	}
	if v.IsValid() {
		res, _ = v.Interface().(T)
	}
	return res, nil
}

// RegisterEnum registers T as an enum type.
func RegisterEnum[T enum.Integer](b *Bridge, name string, flags bool, constants ...enum.Constant) (*enum.Type, error) {
	t, err := enum.Register[T](b.Enums, name, flags, constants...)
	if err != nil {
		return nil, err
	}
	b.Log.Debugf("registered enum %v (%v constants)", name, len(constants))
	return t, nil
}

// Class returns the class projecting the type of v. v may also be a
// [reflect.Type].
func (b *Bridge) Class(v any) (*projection.Class, error) {
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	if t == nil {
		return nil, errors.New("class of nil")
	}
	return b.Classes.Class(t)
}
