// Package introspect extracts what the bridge needs to know about a Go
// package from its type information: exported functions with their
// parameter names, and enum-like integer types with their constants.
package introspect

import (
	"cmp"
	"go/constant"
	"go/token"
	"go/types"
	"math/bits"
	"slices"
	"strings"
)

type Param struct {
	Name     string
	Type     string
	Variadic bool
}

type Func struct {
	Name    string
	Params  []Param
	Results []string
}

// Spec returns the parameter declaration of the function, e.g.
// "a, b, ...rest". It is empty if a parameter is unnamed.
func (f *Func) Spec() string {
	var names []string
	for _, p := range f.Params {
		if p.Name == "" || p.Name == "_" {
			return ""
		}
		if p.Variadic {
			names = append(names, "..."+p.Name)
		} else {
			names = append(names, p.Name)
		}
	}
	return strings.Join(names, ", ")
}

// Signature returns the Go signature of the function, e.g.
// "func(w float64, h float64) float64".
func (f *Func) Signature() string {
	var b strings.Builder
	b.WriteString("func(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.Name != "" {
			b.WriteString(p.Name + " ")
		}
		b.WriteString(p.Type)
	}
	b.WriteString(")")
	switch len(f.Results) {
	case 0:
	case 1:
		b.WriteString(" " + f.Results[0])
	default:
		b.WriteString(" (" + strings.Join(f.Results, ", ") + ")")
	}
	return b.String()
}

type Constant struct {
	Name string
	// Exact value as written by go/constant
	Value string
}

// Enum is a named integer type with typed constants declared in the same
// package.
type Enum struct {
	Name       string
	Underlying string
	// All non-zero constants are distinct bits.
	Flags     bool
	Constants []Constant
}

type Package struct {
	Path  string
	Name  string
	Funcs []Func
	Enums []Enum
	// Exported functions that cannot be bound, with the reason.
	Skipped map[string]string
}

// Inspect collects the exported functions and enums of pkg, sorted by
// name. Enum constants are kept in declaration order.
func Inspect(pkg *types.Package) *Package {
	res := &Package{
		Path:    pkg.Path(),
		Name:    pkg.Name(),
		Skipped: map[string]string{},
	}
	enums := map[*types.TypeName]*Enum{}
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		obj := scope.Lookup(name)
		if !obj.Exported() {
			continue
		}
		switch obj := obj.(type) {
		case *types.Func:
			sig := obj.Type().(*types.Signature)
			if sig.TypeParams().Len() > 0 {
				res.Skipped[name] = "generic"
				continue
			}
			res.Funcs = append(res.Funcs, inspectFunc(pkg, name, sig))
		case *types.TypeName:
			if obj.IsAlias() {
				continue
			}
			named, ok := obj.Type().(*types.Named)
			if !ok || named.TypeParams().Len() > 0 {
				continue
			}
			if basic, ok := named.Underlying().(*types.Basic); ok && basic.Info()&types.IsInteger != 0 {
				enums[obj] = &Enum{Name: name, Underlying: basic.Name()}
			}
		}
	}

	var consts []*types.Const
	for _, name := range scope.Names() {
		if c, ok := scope.Lookup(name).(*types.Const); ok && c.Exported() {
			consts = append(consts, c)
		}
	}
	// Declaration order, so that aliases come after the name they alias.
	slices.SortStableFunc(consts, func(a, b *types.Const) int { return cmp.Compare(a.Pos(), b.Pos()) })
	for _, c := range consts {
		named, ok := c.Type().(*types.Named)
		if !ok {
			continue
		}
		if e, ok := enums[named.Obj()]; ok {
			e.Constants = append(e.Constants, Constant{Name: c.Name(), Value: c.Val().ExactString()})
		}
	}
	for _, e := range enums {
		if len(e.Constants) == 0 {
			continue
		}
		e.Flags = isFlags(e.Constants)
		res.Enums = append(res.Enums, *e)
	}
	slices.SortFunc(res.Enums, func(a, b Enum) int { return strings.Compare(a.Name, b.Name) })
	return res
}

func inspectFunc(pkg *types.Package, name string, sig *types.Signature) Func {
	qual := types.RelativeTo(pkg)
	f := Func{Name: name}
	for i := range sig.Params().Len() {
		p := sig.Params().At(i)
		param := Param{Name: p.Name(), Type: types.TypeString(p.Type(), qual)}
		if sig.Variadic() && i == sig.Params().Len()-1 {
			param.Variadic = true
			param.Type = "..." + types.TypeString(p.Type().(*types.Slice).Elem(), qual)
		}
		f.Params = append(f.Params, param)
	}
	for i := range sig.Results().Len() {
		f.Results = append(f.Results, types.TypeString(sig.Results().At(i).Type(), qual))
	}
	return f
}

// isFlags reports whether every non-zero constant is a single bit and
// some constant is above 2, so that 0, 1, 2 sequences are not mistaken
// for flags.
func isFlags(consts []Constant) bool {
	var maxBit uint64
	for _, c := range consts {
		v, ok := constant.Uint64Val(constant.MakeFromLiteral(c.Value, token.INT, 0))
		if !ok {
			return false
		}
		if v == 0 {
			continue
		}
		if bits.OnesCount64(v) != 1 {
			return false
		}
		maxBit = max(maxBit, v)
	}
	return maxBit > 2
}
