package generate

import (
	"fmt"
	"go/format"
	"os"
	"strings"
)

// CodeBuilder accumulates Go source line by line, tracking indentation.
//
// The zero value is ready to use.
type CodeBuilder struct {
	// Indentation level in tabs
	Indent int

	b strings.Builder
}

// Linef writes a single line at the current indentation. An empty format
// writes an empty line.
func (w *CodeBuilder) Linef(format string, args ...any) {
	if format != "" {
		w.b.WriteString(strings.Repeat("\t", w.Indent))
		fmt.Fprintf(&w.b, format, args...)
	}
	w.b.WriteByte('\n')
}

// Block writes the opening line of a block, which should end in "{" or
// "(", and indents until the returned function is called with the
// closing line.
func (w *CodeBuilder) Block(format string, args ...any) (end func(closing string)) {
	w.Linef(format, args...)
	w.Indent++
	return func(closing string) {
		w.Indent--
		w.Linef("%v", closing)
	}
}

// String returns the code as written, unformatted.
func (w *CodeBuilder) String() string {
	return w.b.String()
}

// FmtString returns the code formatted by gofmt.
func (w *CodeBuilder) FmtString() (string, error) {
	code, err := format.Source([]byte(w.b.String()))
	if err != nil {
		return "", err
	}
	return string(code), nil
}

// SaveToFile writes the formatted code to outFile. If the code cannot be
// formatted, it is written as is and the formatting error is returned in
// fmtErr. err is an IO error.
func (w *CodeBuilder) SaveToFile(outFile string) (fmtErr error, err error) {
	code, fmtErr := w.FmtString()
	if fmtErr != nil {
		code = w.String()
	}
	if err := os.WriteFile(outFile, []byte(code), 0666); err != nil {
		return nil, err
	}
	return fmtErr, nil
}
