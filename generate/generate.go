// Package generate emits Go source code that registers the exported
// functions and enums of Go packages into a [hostbridge.Bridge].
//
// Foreign names are derived from Go names by the [[rule]] sections of the
// configuration, so one config drives both generated and runtime
// projection.
package generate

import (
	"errors"
	"fmt"
	"go/token"
	"maps"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/mod/module"

	"github.com/refaktor/hostbridge/config"
	"github.com/refaktor/hostbridge/config/rules"
	"github.com/refaktor/hostbridge/introspect"
	"github.com/refaktor/hostbridge/logger"
)

const (
	bridgePath = "github.com/refaktor/hostbridge"
	enumPath   = bridgePath + "/enum"
)

type Options struct {
	// Name of the generated package
	PackageName string
	Rules       []config.Rule
	// Optional; disabled functions are skipped, renames override the rules.
	List *config.BindingList
	Log  *logger.Logger
}

// ListKey returns the key of function name of pkg in a binding list.
func ListKey(pkg *introspect.Package, name string) string {
	return pkg.Path + "." + name
}

// ListDocs returns the doc strings of all functions of pkgs for
// [config.BindingList.SaveToFile], keyed by [ListKey].
func ListDocs(pkgs []*introspect.Package) map[string]string {
	res := map[string]string{}
	for _, pkg := range pkgs {
		for _, f := range pkg.Funcs {
			res[ListKey(pkg, f.Name)] = f.Signature()
		}
	}
	return res
}

// isStdPath reports whether path is a standard library package path, i.e.
// its first element contains no dot. It does not check whether the
// package exists.
func isStdPath(path string) bool {
	firstElem, _, _ := strings.Cut(path, "/")
	return path != "" && !strings.Contains(firstElem, ".")
}

// importNames assigns each package a unique name to import it as, which
// is its package name unless that is taken.
func importNames(pkgs []*introspect.Package, reserved ...string) map[string]string {
	taken := map[string]bool{}
	for _, name := range reserved {
		taken[name] = true
	}
	res := make(map[string]string, len(pkgs))
	for _, pkg := range pkgs {
		name := pkg.Name
		for i := 2; taken[name]; i++ {
			name = pkg.Name + strconv.Itoa(i)
		}
		taken[name] = true
		res[pkg.Path] = name
	}
	return res
}

func ruleSpecs(pkgs []*introspect.Package) []rules.PackageSpec {
	var res []rules.PackageSpec
	for _, pkg := range pkgs {
		spec := rules.PackageSpec{PkgPath: pkg.Path}
		for _, f := range pkg.Funcs {
			spec.Symbols = append(spec.Symbols, rules.SymbolSpec{Name: f.Name, Type: rules.SymbolFunc})
		}
		for _, e := range pkg.Enums {
			for _, c := range e.Constants {
				spec.Symbols = append(spec.Symbols, rules.SymbolSpec{Name: c.Name, Recv: e.Name, Type: rules.SymbolConstant})
			}
		}
		res = append(res, spec)
	}
	return res
}

// Generate writes a file declaring
//
//	func Register(b *hostbridge.Bridge) error
//
// which registers the functions and enums of pkgs.
func Generate(pkgs []*introspect.Package, opts Options) (*CodeBuilder, error) {
	if !token.IsIdentifier(opts.PackageName) {
		return nil, fmt.Errorf("generate: invalid package name %q", opts.PackageName)
	}
	if len(pkgs) == 0 {
		return nil, errors.New("generate: no packages")
	}
	pkgs = slices.Clone(pkgs)
	slices.SortFunc(pkgs, func(a, b *introspect.Package) int {
		return strings.Compare(a.Path, b.Path)
	})
	for _, pkg := range pkgs {
		if err := module.CheckImportPath(pkg.Path); err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		if pkg.Name == "main" {
			return nil, fmt.Errorf("generate: %v: cannot import a main package", pkg.Path)
		}
	}

	names, err := rules.Execute(opts.Rules, ruleSpecs(pkgs))
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	imports := importNames(pkgs, "hostbridge", "enum", "b", "err", "funcs", "f", opts.PackageName)

	hasEnums := slices.ContainsFunc(pkgs, func(pkg *introspect.Package) bool { return len(pkg.Enums) > 0 })
	hasFuncs := slices.ContainsFunc(pkgs, func(pkg *introspect.Package) bool { return len(pkg.Funcs) > 0 })

	var cb CodeBuilder
	cb.Linef(`// Code generated by bridgegen. DO NOT EDIT.`)
	cb.Linef(``)
	cb.Linef(`package %v`, opts.PackageName)
	cb.Linef(``)
	importPkg := func(pkg *introspect.Package) {
		if imports[pkg.Path] == pkg.Name {
			cb.Linef(`%q`, pkg.Path)
		} else {
			cb.Linef(`%v %q`, imports[pkg.Path], pkg.Path)
		}
	}
	end := cb.Block(`import (`)
	// Standard library first, then the bridge, then everything else.
	var hasStd bool
	for _, pkg := range pkgs {
		if isStdPath(pkg.Path) {
			importPkg(pkg)
			hasStd = true
		}
	}
	if hasStd {
		cb.Linef(``)
	}
	cb.Linef(`%q`, bridgePath)
	if hasEnums {
		cb.Linef(`%q`, enumPath)
	}
	if slices.ContainsFunc(pkgs, func(pkg *introspect.Package) bool { return !isStdPath(pkg.Path) }) {
		cb.Linef(``)
		for _, pkg := range pkgs {
			if !isStdPath(pkg.Path) {
				importPkg(pkg)
			}
		}
	}
	end(`)`)
	cb.Linef(``)

	paths := make([]string, len(pkgs))
	for i, pkg := range pkgs {
		paths[i] = pkg.Path
	}
	cb.Linef(`// Register registers the exported functions and enums of %v.`, strings.Join(paths, ", "))
	end = cb.Block(`func Register(b *hostbridge.Bridge) error {`)
	if hasFuncs {
		cb.Linef(`funcs := []struct {`)
		cb.Indent++
		cb.Linef(`name string`)
		cb.Linef(`fn any`)
		cb.Linef(`spec string`)
		cb.Indent--
		cb.Linef(`}{`)
		cb.Indent++
		for _, pkg := range pkgs {
			res := names[pkg.Path]
			for _, f := range pkg.Funcs {
				name, ok := res.Name(rules.Symbol{Name: f.Name})
				key := ListKey(pkg, f.Name)
				if opts.List != nil {
					ok = ok && opts.List.IsEnabled(key)
					if rename, renamed := opts.List.Renames[key]; renamed {
						name = rename
					}
				}
				if !ok {
					opts.Log.Debugf("%v: excluded", key)
					continue
				}
				cb.Linef(`{%q, %v.%v, %q},`, name, imports[pkg.Path], f.Name, f.Spec())
			}
			for _, name := range slices.Sorted(maps.Keys(pkg.Skipped)) {
				opts.Log.Warnf("%v.%v: skipped: %v", pkg.Path, name, pkg.Skipped[name])
			}
		}
		cb.Indent--
		cb.Linef(`}`)
		endLoop := cb.Block(`for _, f := range funcs {`)
		endIf := cb.Block(`if err := b.Func(f.name, f.fn, f.spec); err != nil {`)
		cb.Linef(`return err`)
		endIf(`}`)
		endLoop(`}`)
	}
	for _, pkg := range pkgs {
		res := names[pkg.Path]
		for _, e := range pkg.Enums {
			endEnum := cb.Block(`if _, err := hostbridge.RegisterEnum[%v.%v](b, %q, %v,`, imports[pkg.Path], e.Name, e.Name, e.Flags)
			for _, c := range e.Constants {
				name, ok := res.Name(rules.Symbol{Name: c.Name, Recv: e.Name})
				if !ok {
					continue
				}
				cb.Linef(`enum.Const(%q, %v.%v),`, name, imports[pkg.Path], c.Name)
			}
			endEnum(`); err != nil {`)
			cb.Indent++
			cb.Linef(`return err`)
			cb.Indent--
			cb.Linef(`}`)
		}
	}
	cb.Linef(`return nil`)
	end(`}`)
	return &cb, nil
}
