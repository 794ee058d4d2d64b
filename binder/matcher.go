package binder

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/refaktor/hostbridge/foreign"
	"github.com/refaktor/hostbridge/overload"
)

// Casing is how Go parameter names are spelled as keyword names.
type Casing int

const (
	CasingNone Casing = iota
	CasingSnake
	CasingCamel
	CasingKebab
)

func ParseCasing(s string) (Casing, error) {
	switch s {
	case "", "none":
		return CasingNone, nil
	case "snake":
		return CasingSnake, nil
	case "camel":
		return CasingCamel, nil
	case "kebab":
		return CasingKebab, nil
	}
	return 0, fmt.Errorf("invalid keyword casing %q", s)
}

func (c Casing) String() string {
	switch c {
	case CasingNone:
		return "none"
	case CasingSnake:
		return "snake"
	case CasingCamel:
		return "camel"
	case CasingKebab:
		return "kebab"
	default:
		panic("invalid casing")
	}
}

// Normalize returns the keyword name of the parameter name.
func (c Casing) Normalize(name string) string {
	switch c {
	case CasingSnake:
		return strcase.ToSnake(name)
	case CasingCamel:
		return strcase.ToLowerCamel(name)
	case CasingKebab:
		return strcase.ToKebab(name)
	default:
		return name
	}
}

// Source is where the value of a parameter comes from.
type Source int

const (
	FromPositional Source = iota
	FromKeyword
	FromDefault
	// All positionals at or after the parameter's index, folded into one
	// variadic argument.
	FromVariadic
)

func (s Source) String() string {
	switch s {
	case FromPositional:
		return "positional"
	case FromKeyword:
		return "keyword"
	case FromDefault:
		return "default"
	case FromVariadic:
		return "variadic"
	default:
		panic("invalid source")
	}
}

// Plan is the structural match of a call against a parameter list. It is
// only valid for the bind attempt it was made for.
type Plan struct {
	// Per parameter.
	Sources []Source
	// Keyword names, per parameter. Empty unless the source is FromKeyword.
	Keywords []string
	// The trailing parameter is variadic.
	Variadic bool
	// Number of parameters filled with defaults.
	Defaults int
}

// MismatchError describes why a call does not structurally match a
// parameter list.
type MismatchError struct {
	Reason string
}

func (e *MismatchError) Error() string {
	return e.Reason
}

func mismatch(format string, args ...any) (Plan, error) {
	return Plan{}, &MismatchError{Reason: fmt.Sprintf(format, args...)}
}

// Match decides whether a call with the given number of positional
// arguments and the given keyword arguments can be bound to params. No
// argument types are consulted. Parameter names are compared to keyword
// names after normalizing them with casing.
//
// On mismatch, the returned error is a [*MismatchError].
func Match(params []overload.Param, positional int, keywords map[string]foreign.Object, casing Casing) (Plan, error) {
	n := len(params)
	variadic := n > 0 && params[n-1].Variadic
	plan := Plan{
		Sources:  make([]Source, n),
		Keywords: make([]string, n),
		Variadic: variadic,
	}

	if len(keywords) > 0 {
		names := make(map[string]int, n)
		for i, p := range params {
			names[casing.Normalize(p.Name)] = i
		}
		for kw := range keywords {
			i, ok := names[kw]
			if !ok {
				return mismatch("unexpected keyword argument %q", kw)
			}
			if i < positional {
				return mismatch("keyword argument %q names a positional argument", kw)
			}
			plan.Sources[i] = FromKeyword
			plan.Keywords[i] = kw
		}
	}

	switch {
	case positional == n && len(keywords) == 0:
	case positional < n:
		for i := positional; i < n; i++ {
			p := &params[i]
			switch {
			case plan.Keywords[i] != "":
			case p.Variadic:
				plan.Sources[i] = FromVariadic
			case p.Optional || p.HasDefault || p.Out:
				plan.Sources[i] = FromDefault
				plan.Defaults++
			default:
				return mismatch("missing argument %q", p.Name)
			}
		}
	case positional > n && variadic:
	default:
		if positional == n {
			return mismatch("keyword arguments with all %v parameters given positionally", n)
		}
		return mismatch("expected %v arguments, got %v", n, positional)
	}

	if variadic && positional >= n-1 && plan.Keywords[n-1] == "" {
		plan.Sources[n-1] = FromVariadic
	}
	return plan, nil
}

// String renders the plan, e.g. "positional, keyword(b), default".
func (p Plan) String() string {
	s := make([]string, len(p.Sources))
	for i, src := range p.Sources {
		if src == FromKeyword {
			s[i] = "keyword(" + p.Keywords[i] + ")"
		} else {
			s[i] = src.String()
		}
	}
	return strings.Join(s, ", ")
}
