package sloppy

import "strings"

func Answer() int {
	unused := 1
	return 42
}
