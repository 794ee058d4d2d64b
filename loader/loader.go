// Package loader loads the Go packages bridgegen generates bindings for.
package loader

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/tools/go/packages"
)

type Config struct {
	// Package patterns, as accepted by "go list".
	Patterns []string
	// Directory to resolve relative patterns in. Empty means the current one.
	Dir string
	// Build tags
	Tags []string
	// Appended to the environment, e.g. "GOOS=windows".
	Env []string
}

const mode = packages.NeedName | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedSyntax

// Load loads and type-checks the packages matching c.Patterns, sorted by
// path. Dependencies are loaded from export data.
//
// Unused imports and variables do not affect the exported API and are
// ignored. All other errors of all packages are returned together.
func Load(c *Config) ([]*packages.Package, error) {
	if len(c.Patterns) == 0 {
		return nil, fmt.Errorf("load: no package patterns")
	}
	pc := &packages.Config{
		Mode: mode,
		Dir:  c.Dir,
		Env:  append(os.Environ(), c.Env...),
	}
	if len(c.Tags) > 0 {
		pc.BuildFlags = []string{"-tags=" + strings.Join(c.Tags, ",")}
	}
	pkgs, err := packages.Load(pc, c.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	var errs error
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			if isSoft(e) {
				continue
			}
			errs = multierror.Append(errs, fmt.Errorf("%v: %v", pkg.PkgPath, e))
		}
	}
	if errs != nil {
		return nil, errs
	}
	slices.SortFunc(pkgs, func(a, b *packages.Package) int {
		return strings.Compare(a.PkgPath, b.PkgPath)
	})
	return pkgs, nil
}

func isSoft(err packages.Error) bool {
	return err.Kind == packages.TypeError &&
		(strings.HasSuffix(err.Msg, " imported and not used") ||
			strings.HasPrefix(err.Msg, "declared and not used"))
}
