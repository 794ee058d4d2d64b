package geom

type Color int

const (
	Red Color = iota
	Green
	Blue
	Crimson = Red
)

type Perm uint8

const (
	Read Perm = 1 << iota
	Write
	Exec
)

type Sign int

const (
	Negative Sign = -1
	Positive Sign = 1
)

// No constants, not an enum.
type Count int

const Pi = 3.14

type Point struct{ X, Y float64 }

func Area(w, h float64) float64 { return w * h }

func Sum(xs ...int) int {
	n := 0
	for _, x := range xs {
		n += x
	}
	return n
}

func Pair(int, string) {}

func Origin() (Point, error) { return Point{}, nil }

func Identity[T any](x T) T { return x }

func hidden() {}
