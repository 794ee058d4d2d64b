package colors

import "strings"

type Color uint8

const (
	Red Color = iota + 1
	Green
	Blue
)

func Parse(name string) Color {
	switch strings.ToLower(name) {
	case "red":
		return Red
	case "green":
		return Green
	case "blue":
		return Blue
	}
	return 0
}
