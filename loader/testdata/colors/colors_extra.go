//go:build extra

package colors

func Names() []string {
	return []string{"red", "green", "blue"}
}
