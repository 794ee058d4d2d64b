package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/refaktor/hostbridge/textutils"
)

// BindingList is a user editable list of the functions bridgegen
// generates bindings for. Each is either enabled or disabled, and can be
// renamed after the rules are applied.
//
// Entries are keyed by package path and function name, e.g.
// "example.com/geom.Area".
type BindingList struct {
	Enabled map[string]bool
	Renames map[string]string
}

func NewBindingList() *BindingList {
	return &BindingList{
		Enabled: make(map[string]bool),
		Renames: make(map[string]string),
	}
}

// IsEnabled reports whether key is enabled. Keys not on the list are.
func (bl *BindingList) IsEnabled(key string) bool {
	enabled, ok := bl.Enabled[key]
	return !ok || enabled
}

func LoadBindingListFromFile(filename string) (*BindingList, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseBindingList(f, filename)
}

// ParseBindingList reads a binding list. filename is only used in error
// messages.
func ParseBindingList(r io.Reader, filename string) (*BindingList, error) {
	res := NewBindingList()

	type section int
	const (
		sectionNone section = iota
		sectionEnabled
		sectionDisabled
	)

	currSection := sectionNone
	sc := bufio.NewScanner(r)
	for lineNum := 1; sc.Scan(); lineNum++ {
		makeErr := func(format string, a ...any) error {
			return fmt.Errorf("%v: line %v: %v", filename, lineNum, fmt.Errorf(format, a...))
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			switch line {
			case "[enabled]":
				currSection = sectionEnabled
			case "[disabled]":
				currSection = sectionDisabled
			default:
				return nil, makeErr("invalid section name %v", line)
			}
			continue
		}
		fields := strings.Fields(line)
		name := fields[0]
		if currSection == sectionNone {
			return nil, makeErr("expected binding name \"%v\" to be under a section ([enabled] or [disabled])", name)
		}
		if len(fields) >= 2 && fields[1] == "=>" {
			if len(fields) < 3 || strings.HasPrefix(fields[2], `"`) {
				return nil, makeErr("expected new name after \"=>\" (rename)")
			}
			res.Renames[name] = fields[2]
		}
		enabled := currSection == sectionEnabled
		if v, ok := res.Enabled[name]; ok && v != enabled {
			return nil, makeErr("cannot have binding \"%v\" in both [enabled] and [disabled] sections", name)
		}
		res.Enabled[name] = enabled
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%v: %w", filename, err)
	}
	return res, nil
}

// Format writes the list, including the bindings of docs that are not on
// it yet, as enabled. Each binding is followed by its doc string. Entries
// not in docs are dropped.
func (bl *BindingList) Format(w io.Writer, docs map[string]string) error {
	var enabledBindings []string
	var disabledBindings []string
	for _, name := range slices.Sorted(maps.Keys(docs)) {
		if bl.IsEnabled(name) {
			enabledBindings = append(enabledBindings, name)
		} else {
			disabledBindings = append(disabledBindings, name)
		}
	}

	var res bytes.Buffer
	fmt.Fprintln(&res, "# This file contains a list of bindings, which can be enabled/disabled by placing them under the according section.")
	fmt.Fprintln(&res, "# Re-run bridgegen to update and sort the list.")
	fmt.Fprintln(&res, "# Renaming a binding: e.g. `example.com/geom.Area => area`")

	writeBindings := func(bs []string) {
		rows := make([][]string, len(bs))
		for i, name := range bs {
			col0 := name
			if s, ok := bl.Renames[name]; ok {
				col0 += " => " + s
			}
			rows[i] = []string{col0, strconv.Quote(docs[name])}
		}
		for _, line := range textutils.AlignColumns(rows, " ") {
			fmt.Fprintln(&res, line)
		}
	}
	fmt.Fprintln(&res)
	fmt.Fprintln(&res, "[enabled]")
	writeBindings(enabledBindings)
	fmt.Fprintln(&res)
	fmt.Fprintln(&res, "[disabled]")
	writeBindings(disabledBindings)

	_, err := w.Write(res.Bytes())
	return err
}

func (bl *BindingList) SaveToFile(filename string, docs map[string]string) error {
	var b bytes.Buffer
	if err := bl.Format(&b, docs); err != nil {
		return err
	}
	return os.WriteFile(filename, b.Bytes(), 0666)
}
