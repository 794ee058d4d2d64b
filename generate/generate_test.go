package generate_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/refaktor/hostbridge/config"
	"github.com/refaktor/hostbridge/generate"
	"github.com/refaktor/hostbridge/introspect"
	"github.com/refaktor/hostbridge/logger"
	"github.com/stretchr/testify/require"
)

const testRules = `
[[rule]]
select.package = 'example\.com/other/geom'
select.name = "Area"
action.rename = "OtherArea"

[[rule]]
select.name = "Exec"
action.include = false
`

func testPackages() []*introspect.Package {
	area := introspect.Func{
		Name:    "Area",
		Params:  []introspect.Param{{Name: "w", Type: "float64"}, {Name: "h", Type: "float64"}},
		Results: []string{"float64"},
	}
	return []*introspect.Package{
		{
			Path:  "example.com/other/geom",
			Name:  "geom",
			Funcs: []introspect.Func{area},
		},
		{
			Path: "example.com/geom",
			Name: "geom",
			Funcs: []introspect.Func{
				area,
				{
					Name:    "Sum",
					Params:  []introspect.Param{{Name: "xs", Type: "...int", Variadic: true}},
					Results: []string{"int"},
				},
			},
			Enums: []introspect.Enum{{
				Name:       "Perm",
				Underlying: "uint8",
				Flags:      true,
				Constants: []introspect.Constant{
					{Name: "Read", Value: "1"},
					{Name: "Write", Value: "2"},
					{Name: "Exec", Value: "4"},
				},
			}},
			Skipped: map[string]string{"Identity": "generic"},
		},
	}
}

func TestGenerate(t *testing.T) {
	require := require.New(t)

	cfg, err := config.Parse([]byte(testRules), ".toml")
	require.NoError(err)
	var logs bytes.Buffer
	cb, err := generate.Generate(testPackages(), generate.Options{
		PackageName: "bindings",
		Rules:       cfg.Rules,
		Log:         logger.New(&logs, "", logger.INFO),
	})
	require.NoError(err)
	code, err := cb.FmtString()
	require.NoError(err)

	want, err := os.ReadFile(filepath.Join("testdata", "register.golden"))
	require.NoError(err)
	require.Equal(string(want), code)
	require.Contains(logs.String(), "example.com/geom.Identity: skipped: generic")
}

func TestGenerateNoFuncs(t *testing.T) {
	require := require.New(t)

	pkgs := []*introspect.Package{{
		Path: "example.com/colors",
		Name: "colors",
		Enums: []introspect.Enum{{
			Name:       "Color",
			Underlying: "int",
			Constants:  []introspect.Constant{{Name: "Red", Value: "0"}},
		}},
	}}
	cb, err := generate.Generate(pkgs, generate.Options{PackageName: "colors"})
	require.NoError(err)
	code, err := cb.FmtString()
	require.NoError(err)
	require.NotContains(code, "funcs")
	// The generated package has the same name as the bound one.
	require.Contains(code, `colors2 "example.com/colors"`)
	require.Contains(code, `hostbridge.RegisterEnum[colors2.Color](b, "Color", false,`)
}

func TestGenerateErrors(t *testing.T) {
	conflict, err := config.Parse([]byte(`
[[rule]]
select.name = "Read"
action.rename = "Write"
`), ".toml")
	require.NoError(t, err)

	tests := []struct {
		name    string
		pkgs    []*introspect.Package
		opts    generate.Options
		wantErr string
	}{
		{
			name:    "package name",
			pkgs:    testPackages(),
			opts:    generate.Options{PackageName: "my-bindings"},
			wantErr: `generate: invalid package name "my-bindings"`,
		},
		{
			name:    "no packages",
			opts:    generate.Options{PackageName: "bindings"},
			wantErr: "generate: no packages",
		},
		{
			name:    "import path",
			pkgs:    []*introspect.Package{{Path: "example.com/bad path", Name: "bad"}},
			opts:    generate.Options{PackageName: "bindings"},
			wantErr: `generate: malformed import path "example.com/bad path"`,
		},
		{
			name:    "main package",
			pkgs:    []*introspect.Package{{Path: "example.com/cmd/tool", Name: "main"}},
			opts:    generate.Options{PackageName: "bindings"},
			wantErr: "generate: example.com/cmd/tool: cannot import a main package",
		},
		{
			name:    "rules",
			pkgs:    testPackages(),
			opts:    generate.Options{PackageName: "bindings", Rules: conflict.Rules},
			wantErr: `generate: execute rules: renaming "Read" to "Write" would cause a conflict`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := generate.Generate(tt.pkgs, tt.opts)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestGenerateBindingList(t *testing.T) {
	require := require.New(t)

	pkgs := testPackages()
	require.Equal(map[string]string{
		"example.com/geom.Area":       "func(w float64, h float64) float64",
		"example.com/geom.Sum":        "func(xs ...int) int",
		"example.com/other/geom.Area": "func(w float64, h float64) float64",
	}, generate.ListDocs(pkgs))

	list := config.NewBindingList()
	list.Enabled["example.com/geom.Sum"] = false
	list.Renames["example.com/geom.Area"] = "area"
	cb, err := generate.Generate(pkgs, generate.Options{PackageName: "bindings", List: list})
	require.NoError(err)
	code, err := cb.FmtString()
	require.NoError(err)
	require.Contains(code, `{"area", geom.Area, "w, h"},`)
	require.Contains(code, `{"Area", geom2.Area, "w, h"},`)
	require.NotContains(code, "geom.Sum")
}

func TestGenerateStdImports(t *testing.T) {
	require := require.New(t)

	pkgs := []*introspect.Package{
		{
			Path:  "strings",
			Name:  "strings",
			Funcs: []introspect.Func{{Name: "ToUpper", Params: []introspect.Param{{Name: "s", Type: "string"}}, Results: []string{"string"}}},
		},
		{
			Path:  "net/url",
			Name:  "url",
			Funcs: []introspect.Func{{Name: "PathEscape", Params: []introspect.Param{{Name: "s", Type: "string"}}, Results: []string{"string"}}},
		},
	}
	cb, err := generate.Generate(pkgs, generate.Options{PackageName: "bindings"})
	require.NoError(err)
	code, err := cb.FmtString()
	require.NoError(err)
	require.Contains(code, "import (\n\t\"net/url\"\n\t\"strings\"\n\n\t\"github.com/refaktor/hostbridge\"\n)\n")
	require.Contains(code, `{"PathEscape", url.PathEscape, "s"},`)
	require.Contains(code, `{"ToUpper", strings.ToUpper, "s"},`)
}

func TestSaveToFile(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	var cb generate.CodeBuilder
	cb.Linef(`package p`)
	cb.Block(`func f() {`)
	cb.Linef(`return`)
	fmtErr, err := cb.SaveToFile(filepath.Join(dir, "bad.go"))
	require.NoError(err)
	require.Error(fmtErr)
	data, err := os.ReadFile(filepath.Join(dir, "bad.go"))
	require.NoError(err)
	require.Equal(cb.String(), string(data))

	cb = generate.CodeBuilder{}
	cb.Linef(`package p`)
	cb.Linef(`var   x = 1`)
	fmtErr, err = cb.SaveToFile(filepath.Join(dir, "good.go"))
	require.NoError(err)
	require.NoError(fmtErr)
	data, err = os.ReadFile(filepath.Join(dir, "good.go"))
	require.NoError(err)
	require.Equal("package p\n\nvar x = 1\n", string(data))
}
