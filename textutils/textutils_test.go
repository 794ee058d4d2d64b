package textutils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndentString(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want string
	}{
		{"no trailing newline", "Hello\nWorld", "  Hello\n  World"},
		{"trailing newline", "Hello\nWorld\n", "  Hello\n  World\n"},
		{"trailing space", "Hello\nWorld\n  ", "  Hello\n  World\n"},
		{"blank line", "Hello\n  \nWorld\n", "  Hello\n\n  World\n"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IndentString(tt.s, "  ", 1))
		})
	}
	require.Equal(t, "\t\tx\n", IndentString("x\n", "\t", 2))
}

func TestAlignColumns(t *testing.T) {
	require := require.New(t)

	require.Equal([]string{
		"a      1   x",
		"bbbbbb 2",
		"cc     333 y",
	}, AlignColumns([][]string{
		{"a", "1", "x"},
		{"bbbbbb", "2"},
		{"cc", "333", "y"},
	}, " "))
	require.Empty(AlignColumns(nil, " "))
}
