package config_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/refaktor/hostbridge/config"
	"github.com/stretchr/testify/require"
)

const testList = `# comment
[enabled]
example.com/geom.Area => area "func(w float64, h float64) float64"
example.com/geom.Sum          "func(xs ...int) int"

[disabled]
example.com/geom.Pair "func(int, string)"
`

func TestBindingList(t *testing.T) {
	require := require.New(t)

	bl, err := config.ParseBindingList(strings.NewReader(testList), "bindings.txt")
	require.NoError(err)
	require.Equal(map[string]bool{
		"example.com/geom.Area": true,
		"example.com/geom.Sum":  true,
		"example.com/geom.Pair": false,
	}, bl.Enabled)
	require.Equal(map[string]string{"example.com/geom.Area": "area"}, bl.Renames)
	require.True(bl.IsEnabled("example.com/geom.New"))
	require.False(bl.IsEnabled("example.com/geom.Pair"))

	var b bytes.Buffer
	require.NoError(bl.Format(&b, map[string]string{
		"example.com/geom.Area":   "func(w float64, h float64) float64",
		"example.com/geom.Pair":   "func(int, string)",
		"example.com/geom.Origin": "func() (Point, error)",
	}))
	require.Equal(`# This file contains a list of bindings, which can be enabled/disabled by placing them under the according section.
# Re-run bridgegen to update and sort the list.
# Renaming a binding: e.g. `+"`example.com/geom.Area => area`"+`

[enabled]
example.com/geom.Area => area "func(w float64, h float64) float64"
example.com/geom.Origin       "func() (Point, error)"

[disabled]
example.com/geom.Pair "func(int, string)"
`, b.String())

	again, err := config.ParseBindingList(&b, "bindings.txt")
	require.NoError(err)
	require.Equal(bl.Renames, again.Renames)
}

func TestBindingListErrors(t *testing.T) {
	tests := []struct {
		name    string
		list    string
		wantErr string
	}{
		{"section", "[exported]\n", "bindings.txt: line 1: invalid section name [exported]"},
		{"no section", "example.com/geom.Area\n", `bindings.txt: line 1: expected binding name "example.com/geom.Area" to be under a section ([enabled] or [disabled])`},
		{"rename", "[enabled]\nexample.com/geom.Area =>\n", `bindings.txt: line 2: expected new name after "=>" (rename)`},
		{"both", "[enabled]\nx.F\n[disabled]\nx.F\n", `bindings.txt: line 4: cannot have binding "x.F" in both [enabled] and [disabled] sections`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.ParseBindingList(strings.NewReader(tt.list), "bindings.txt")
			require.EqualError(t, err, tt.wantErr)
		})
	}
}
