package rules_test

import (
	"testing"

	"github.com/refaktor/hostbridge/config"
	"github.com/refaktor/hostbridge/config/rules"
	"github.com/stretchr/testify/require"
)

func parseRules(t *testing.T, src string) []config.Rule {
	t.Helper()
	c, err := config.Parse([]byte(src), ".toml")
	require.NoError(t, err)
	return c.Rules
}

func geoSpec() []rules.PackageSpec {
	return []rules.PackageSpec{{
		PkgPath: "example.com/geo",
		Symbols: []rules.SymbolSpec{
			{Name: "GetArea", Recv: "Shape", Type: rules.SymbolMethod},
			{Name: "Scale", Recv: "Shape", Type: rules.SymbolMethod},
			{Name: "OriginX", Recv: "Shape", Type: rules.SymbolField},
			{Name: "NewShape", Type: rules.SymbolFunc},
			{Name: "Red", Recv: "Color", Type: rules.SymbolConstant},
		},
	}}
}

func TestExecute(t *testing.T) {
	require := require.New(t)

	rs := parseRules(t, `
[[rule]]
select.type = "method"
select.name = "Get(.*)"
action.rename = "\\1"

[[rule]]
select.recv = "Shape"
action.to-casing = "snake"

[[rule]]
select.package = "example\\.com/(geo)"
select.name = "New(.*)"
action.rename = "\\1_new_\\2"

[[rule]]
select.type = "constant"
action.include = false
`)
	res, err := rules.Execute(rs, geoSpec())
	require.NoError(err)
	geo := res["example.com/geo"]

	name, ok := geo.Name(rules.Symbol{Name: "GetArea", Recv: "Shape"})
	require.True(ok)
	require.Equal("area", name)
	name, _ = geo.Name(rules.Symbol{Name: "Scale", Recv: "Shape"})
	require.Equal("scale", name)
	name, _ = geo.Name(rules.Symbol{Name: "OriginX", Recv: "Shape"})
	require.Equal("origin_x", name)
	name, _ = geo.Name(rules.Symbol{Name: "NewShape"})
	require.Equal("geo_new_Shape", name)
	_, ok = geo.Name(rules.Symbol{Name: "Red", Recv: "Color"})
	require.False(ok)
}

func TestExecuteOverloads(t *testing.T) {
	require := require.New(t)

	rs := parseRules(t, `
[[rule]]
select.recv = "Shape"
select.name = "(GetArea|Scale)"
action.rename = "Measure"

[[rule]]
select.name = "Measure"
action.rename = "measure"
`)
	res, err := rules.Execute(rs, geoSpec())
	require.NoError(err)
	geo := res["example.com/geo"]
	name, _ := geo.Name(rules.Symbol{Name: "GetArea", Recv: "Shape"})
	require.Equal("measure", name)
	name, _ = geo.Name(rules.Symbol{Name: "Scale", Recv: "Shape"})
	require.Equal("measure", name)
}

func TestExecuteErrors(t *testing.T) {
	tests := []struct {
		name  string
		rules string
		err   string
	}{
		{
			name: "conflict",
			rules: `
[[rule]]
select.name = "GetArea"
action.rename = "OriginX"
`,
			err: `execute rules: renaming "GetArea" to "OriginX" would cause a conflict`,
		},
		{
			name: "unknown type",
			rules: `
[[rule]]
select.type = "getter"
action.include = false
`,
			err: "execute rules: rule 1: select: unknown symbol type: getter",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rules.Execute(parseRules(t, tt.rules), geoSpec())
			require.EqualError(t, err, tt.err)
		})
	}

	dup := append(geoSpec(), geoSpec()...)
	_, err := rules.Execute(nil, dup)
	require.EqualError(t, err, "execute rules: duplicate package: example.com/geo")
}

func TestSymbolType(t *testing.T) {
	require := require.New(t)

	for _, st := range []rules.SymbolType{rules.SymbolFunc, rules.SymbolMethod, rules.SymbolField, rules.SymbolProperty, rules.SymbolConstant} {
		got, ok := rules.SymbolTypeFromString(st.String())
		require.True(ok)
		require.Equal(st, got)
	}
	got, ok := rules.SymbolTypeFromString("PROPERTY")
	require.True(ok)
	require.Equal(rules.SymbolProperty, got)

	s, err := rules.ToCasing("OriginX", "kebab")
	require.NoError(err)
	require.Equal("origin-x", s)
	_, err = rules.ToCasing("x", "upper")
	require.EqualError(err, "unknown casing: upper")
}
