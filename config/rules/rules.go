// Package rules applies the [[rule]] sections of a config to the names
// of projected symbols.
package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/refaktor/hostbridge/config"
)

type SymbolType int

const (
	// Package level function
	SymbolFunc SymbolType = iota
	// Method of a projected type
	SymbolMethod
	// Struct field
	SymbolField
	// Getter/setter method pair
	SymbolProperty
	// Enum constant
	SymbolConstant
)

var symbolTypeNames = [...]string{
	SymbolFunc:     "Func",
	SymbolMethod:   "Method",
	SymbolField:    "Field",
	SymbolProperty: "Property",
	SymbolConstant: "Constant",
}

func (sym SymbolType) String() string {
	if sym < 0 || int(sym) >= len(symbolTypeNames) {
		panic("invalid symbol")
	}
	return symbolTypeNames[sym]
}

// callable reports whether symbols of this type may share a name, which
// makes them overloads of each other.
func (sym SymbolType) callable() bool {
	return sym == SymbolFunc || sym == SymbolMethod
}

type usage struct {
	callable bool
	n        int
}

func SymbolTypeFromString(s string) (SymbolType, bool) {
	for i, name := range symbolTypeNames {
		if strings.EqualFold(s, name) {
			return SymbolType(i), true
		}
	}
	return -1, false
}

type SymbolSpec struct {
	// Go name
	Name string
	// Receiver type name, empty for package level symbols
	Recv string
	Type SymbolType
}

func (s SymbolSpec) Symbol() Symbol {
	return Symbol{Name: s.Name, Recv: s.Recv}
}

type Symbol struct {
	Name string
	Recv string
}

type PackageSpec struct {
	PkgPath string
	Symbols []SymbolSpec
}

// Result holds the outcome of applying rules to one package.
type Result struct {
	// Foreign name by symbol
	Names map[Symbol]string
	// Whether the symbol is projected at all
	Included map[Symbol]bool
}

// Name returns the foreign name of sym and whether it is included.
func (r Result) Name(sym Symbol) (string, bool) {
	return r.Names[sym], r.Included[sym]
}

// Execute applies rules in order to the symbols of each package. Rules
// see the name produced by earlier rules. Functions and methods renamed
// to the same name become overloads; any other collision of names within
// one receiver is an error.
func Execute(rs []config.Rule, spec []PackageSpec) (_ map[string]Result, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("execute rules: %w", err)
		}
	}()

	for i, rule := range rs {
		if rule.Select.Type == "" {
			continue
		}
		if _, ok := SymbolTypeFromString(rule.Select.Type); !ok {
			return nil, fmt.Errorf("rule %v: select: unknown symbol type: %v", i+1, rule.Select.Type)
		}
	}

	res := map[string]Result{}
	for _, pkg := range spec {
		if _, ok := res[pkg.PkgPath]; ok {
			return nil, fmt.Errorf("duplicate package: %v", pkg.PkgPath)
		}
		r, err := executePackage(rs, pkg)
		if err != nil {
			return nil, err
		}
		res[pkg.PkgPath] = r
	}
	return res, nil
}

func executePackage(rs []config.Rule, pkg PackageSpec) (Result, error) {
	r := Result{
		Names:    map[Symbol]string{},
		Included: map[Symbol]bool{},
	}
	taken := map[Symbol]*usage{} // current names, to detect collisions
	for _, sym := range pkg.Symbols {
		if _, ok := r.Names[sym.Symbol()]; ok {
			return Result{}, fmt.Errorf("duplicate %v symbol: %v.%v", sym.Type, pkg.PkgPath, sym.Name)
		}
		r.Names[sym.Symbol()] = sym.Name
		r.Included[sym.Symbol()] = true
		taken[sym.Symbol()] = &usage{callable: sym.Type.callable(), n: 1}
	}

	// Backrefs are the '\1', '\2' etc. created by capture groups in the
	// package, recv and name selectors, in that order.
	var backrefs [][]byte
	for _, rule := range rs {
		backrefs = backrefs[:0]
		if !fullMatch(rule.Select.Package, pkg.PkgPath, &backrefs) {
			continue
		}
		numPkgBackrefs := len(backrefs)

		for _, sym := range pkg.Symbols {
			backrefs = backrefs[:numPkgBackrefs]
			if rule.Select.Type != "" && !strings.EqualFold(rule.Select.Type, sym.Type.String()) {
				continue
			}
			if !fullMatch(rule.Select.Recv, sym.Recv, &backrefs) {
				continue
			}
			key := sym.Symbol()
			if !fullMatch(rule.Select.Name, r.Names[key], &backrefs) {
				continue
			}

			renameTo := func(newName string) error {
				oldName := r.Names[key]
				if oldName == newName {
					return nil
				}
				newSym := Symbol{Name: newName, Recv: sym.Recv}
				u := taken[newSym]
				if u != nil && !(u.callable && sym.Type.callable()) {
					return fmt.Errorf("renaming %v to %v would cause a conflict",
						strconv.Quote(oldName), strconv.Quote(newName))
				}
				oldSym := Symbol{Name: oldName, Recv: sym.Recv}
				if taken[oldSym].n--; taken[oldSym].n == 0 {
					delete(taken, oldSym)
				}
				if u == nil {
					u = &usage{callable: sym.Type.callable()}
					taken[newSym] = u
				}
				u.n++
				r.Names[key] = newName
				return nil
			}

			if rule.Actions.Rename != "" {
				if err := renameTo(expand(rule.Actions.Rename, backrefs)); err != nil {
					return Result{}, err
				}
			}
			if rule.Actions.Include != nil {
				r.Included[key] = *rule.Actions.Include
			}
			if rule.Actions.ToCasing != "" {
				newName, err := ToCasing(r.Names[key], rule.Actions.ToCasing)
				if err != nil {
					return Result{}, fmt.Errorf("action: %w", err)
				}
				if err := renameTo(newName); err != nil {
					return Result{}, err
				}
			}
		}
	}
	return r, nil
}

// fullMatch reports whether re matches all of s, appending its capture
// groups to backrefs. A nil re matches anything.
func fullMatch(re *regexp.Regexp, s string, backrefs *[][]byte) bool {
	if re == nil {
		return true
	}
	m := re.FindSubmatch([]byte(s))
	if len(m) == 0 || len(m[0]) != len(s) {
		return false
	}
	*backrefs = append(*backrefs, m[1:]...)
	return true
}

// expand replaces \1 to \9 in tmpl with backrefs.
func expand(tmpl string, backrefs [][]byte) string {
	var oldnew []string
	for i := range 9 {
		var repl string
		if i < len(backrefs) {
			repl = string(backrefs[i])
		}
		oldnew = append(oldnew, `\`+strconv.Itoa(i+1), repl)
	}
	return strings.NewReplacer(oldnew...).Replace(tmpl)
}

// ToCasing converts name to kebab, camel or snake case.
func ToCasing(name, casing string) (string, error) {
	switch casing {
	case "kebab":
		return strcase.ToKebab(name), nil
	case "camel":
		return strcase.ToLowerCamel(name), nil
	case "snake":
		return strcase.ToSnake(name), nil
	default:
		return "", fmt.Errorf("unknown casing: %v", casing)
	}
}
