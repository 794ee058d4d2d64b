package overload

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Set holds the overloads of one callable member.
//
// Candidates are tried in precedence order. The order is computed lazily
// and cached until the next Add. Registration should complete before the
// set is used for dispatch from multiple goroutines.
type Set struct {
	name string

	mu         sync.Mutex
	candidates []*Candidate
	// Sorted snapshot of candidates. Nil if stale.
	sorted []*Candidate
}

func NewSet(name string, candidates ...*Candidate) *Set {
	s := &Set{name: name}
	for _, c := range candidates {
		s.Add(c)
	}
	return s
}

func (s *Set) Name() string {
	return s.name
}

// Add appends c to the set.
func (s *Set) Add(c *Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = append(s.candidates, c)
	s.sorted = nil
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.candidates)
}

// Candidates returns the candidates in precedence order. Candidates of
// equal precedence keep their registration order. The returned slice must
// not be modified.
func (s *Set) Candidates() []*Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sorted == nil {
		sorted := slices.Clone(s.candidates)
		slices.SortStableFunc(sorted, func(a, b *Candidate) int {
			return a.Precedence() - b.Precedence()
		})
		s.sorted = sorted
	}
	return s.sorted
}

// HasGeneric reports whether the set contains an open generic definition.
func (s *Set) HasGeneric() bool {
	for _, c := range s.Candidates() {
		if c.IsOpen() {
			return true
		}
	}
	return false
}

// Validate checks all candidates for inconsistencies, reporting all found.
func (s *Set) Validate() error {
	var errs error
	seen := map[string]*Candidate{}
	for _, c := range s.Candidates() {
		if err := c.validate(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%v: %w", s.name, err))
			continue
		}
		if c.IsOpen() {
			continue
		}
		key := signatureKey(c)
		if other, ok := seen[key]; ok {
			errs = multierror.Append(errs, fmt.Errorf("%v: %v: same parameters as %v", s.name, c.Signature(), other.Signature()))
			continue
		}
		seen[key] = c
	}
	return errs
}

func (c *Candidate) validate() error {
	var errs error
	if c.Def == nil && !c.Fn.IsValid() {
		errs = multierror.Append(errs, fmt.Errorf("%v: no function", c.Name))
	}
	names := map[string]bool{}
	for i, p := range c.Params {
		if names[p.Name] {
			errs = multierror.Append(errs, fmt.Errorf("%v: duplicate parameter %v", c.Name, p.Name))
		}
		names[p.Name] = true
		if p.Variadic && i != len(c.Params)-1 {
			errs = multierror.Append(errs, fmt.Errorf("%v: variadic parameter %v is not last", c.Name, p.Name))
		}
		if p.Type == nil && (c.Def == nil || p.TypeParam < 0) {
			errs = multierror.Append(errs, fmt.Errorf("%v: parameter %v has no type", c.Name, p.Name))
		}
	}
	if c.Op != nil && c.Static && c.ReflectedType == nil {
		errs = multierror.Append(errs, fmt.Errorf("%v: operator without operand type", c.Name))
	}
	return errs
}

func signatureKey(c *Candidate) string {
	key := fmt.Sprint(c.Static, c.Op != nil)
	for _, p := range c.Params {
		key += "," + typeKey(p.Type)
	}
	return key
}

func typeKey(t reflect.Type) string {
	if t == nil {
		return "?"
	}
	return t.PkgPath() + "." + t.String()
}
