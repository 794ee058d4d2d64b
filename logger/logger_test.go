package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	require := require.New(t)

	var b strings.Builder
	l := New(&b, "bridge", INFO)
	require.False(l.Color)

	l.Debugf("hidden %v", 1)
	l.Infof("bound %v", "f")
	l.Warnf("two\nlines")
	require.Equal("bridge INFO: bound f\nbridge WARNING:\n  two\n  lines\n", b.String())
}

func TestLevels(t *testing.T) {
	require := require.New(t)

	for _, tt := range []struct {
		in   string
		want Level
	}{
		{"debug", DEBUG},
		{"", INFO},
		{"Warning", WARN},
		{"error", ERROR},
	} {
		l, err := ParseLevel(tt.in)
		require.NoError(err)
		require.Equal(tt.want, l)
	}
	_, err := ParseLevel("loud")
	require.EqualError(err, `invalid log level "loud"`)

	var nilLogger *Logger
	require.False(nilLogger.Enabled(FATAL))
	nilLogger.Errorf("no panic")

	var b strings.Builder
	l := &Logger{Writer: &b, MinLevel: DEBUG, Color: true}
	l.Debugf("x")
	require.Equal("\x1b[90mDEBUG\x1b[0m: x\n", b.String())
}
