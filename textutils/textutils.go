package textutils

import (
	"strings"
)

// IndentString prepends indent nIndent times to each line of s. Lines
// containing only whitespace become empty.
func IndentString(s string, indent string, nIndent int) string {
	prefix := strings.Repeat(indent, nIndent)

	var res strings.Builder
	res.Grow(len(s) + (strings.Count(s, "\n")+1)*len(prefix))
	for line := range strings.SplitAfterSeq(s, "\n") {
		if strings.TrimSpace(line) == "" {
			if strings.HasSuffix(line, "\n") {
				res.WriteByte('\n')
			}
			continue
		}
		res.WriteString(prefix)
		res.WriteString(line)
	}
	return res.String()
}

// AlignColumns joins the cells of each row with sep, padding every cell
// but the last of a row to the widest cell of its column.
func AlignColumns(rows [][]string, sep string) []string {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i == len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], len(cell))
		}
	}
	res := make([]string, len(rows))
	for i, row := range rows {
		var b strings.Builder
		for j, cell := range row {
			if j > 0 {
				b.WriteString(sep)
			}
			b.WriteString(cell)
			if j < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[j]-len(cell)))
			}
		}
		res[i] = b.String()
	}
	return res
}
