package introspect_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"path/filepath"
	"testing"

	"github.com/refaktor/hostbridge/introspect"
	"github.com/stretchr/testify/require"
)

func checkFile(t *testing.T, path, pkgPath string) *types.Package {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
	require.NoError(t, err)
	conf := types.Config{}
	pkg, err := conf.Check(pkgPath, fset, []*ast.File{f}, nil)
	require.NoError(t, err)
	return pkg
}

func TestInspectFuncs(t *testing.T) {
	require := require.New(t)
	pkg := introspect.Inspect(checkFile(t, filepath.Join("testdata", "geom.in.go"), "example.com/geom"))

	require.Equal("example.com/geom", pkg.Path)
	require.Equal("geom", pkg.Name)
	require.Equal(map[string]string{"Identity": "generic"}, pkg.Skipped)

	var names []string
	for _, f := range pkg.Funcs {
		names = append(names, f.Name)
	}
	require.Equal([]string{"Area", "Origin", "Pair", "Sum"}, names)

	tests := []struct {
		name    string
		spec    string
		sig     string
		params  []introspect.Param
		results []string
	}{
		{"Area", "w, h", "func(w float64, h float64) float64", []introspect.Param{{Name: "w", Type: "float64"}, {Name: "h", Type: "float64"}}, []string{"float64"}},
		{"Origin", "", "func() (Point, error)", nil, []string{"Point", "error"}},
		{"Pair", "", "func(int, string)", []introspect.Param{{Type: "int"}, {Type: "string"}}, nil},
		{"Sum", "...xs", "func(xs ...int) int", []introspect.Param{{Name: "xs", Type: "...int", Variadic: true}}, []string{"int"}},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := pkg.Funcs[i]
			require.Equal(tt.name, f.Name)
			require.Equal(tt.spec, f.Spec())
			require.Equal(tt.sig, f.Signature())
			require.Equal(tt.params, f.Params)
			require.Equal(tt.results, f.Results)
		})
	}
}

func TestInspectEnums(t *testing.T) {
	require := require.New(t)
	pkg := introspect.Inspect(checkFile(t, filepath.Join("testdata", "geom.in.go"), "example.com/geom"))

	require.Equal([]introspect.Enum{
		{
			Name:       "Color",
			Underlying: "int",
			Constants: []introspect.Constant{
				{Name: "Red", Value: "0"},
				{Name: "Green", Value: "1"},
				{Name: "Blue", Value: "2"},
				{Name: "Crimson", Value: "0"},
			},
		},
		{
			Name:       "Perm",
			Underlying: "uint8",
			Flags:      true,
			Constants: []introspect.Constant{
				{Name: "Read", Value: "1"},
				{Name: "Write", Value: "2"},
				{Name: "Exec", Value: "4"},
			},
		},
		{
			Name:       "Sign",
			Underlying: "int",
			Constants: []introspect.Constant{
				{Name: "Negative", Value: "-1"},
				{Name: "Positive", Value: "1"},
			},
		},
	}, pkg.Enums)
}
