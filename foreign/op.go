package foreign

// Op is an operator of the foreign operator protocol.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpTrueDiv
	OpAnd
	OpOr
	OpXor
	OpInvert
	OpLt
	OpLe
	OpEq
	OpNe
	OpGt
	OpGe
)

var opInfo = [...]struct {
	symbol    string
	name      string
	reflected string
}{
	OpAdd:     {"+", "__add__", "__radd__"},
	OpSub:     {"-", "__sub__", "__rsub__"},
	OpMul:     {"*", "__mul__", "__rmul__"},
	OpTrueDiv: {"/", "__truediv__", "__rtruediv__"},
	OpAnd:     {"&", "__and__", "__rand__"},
	OpOr:      {"|", "__or__", "__ror__"},
	OpXor:     {"^", "__xor__", "__rxor__"},
	OpInvert:  {"~", "__invert__", ""},
	OpLt:      {"<", "__lt__", ""},
	OpLe:      {"<=", "__le__", ""},
	OpEq:      {"==", "__eq__", ""},
	OpNe:      {"!=", "__ne__", ""},
	OpGt:      {">", "__gt__", ""},
	OpGe:      {">=", "__ge__", ""},
}

func (o Op) String() string { return opInfo[o].symbol }

// Name returns the protocol method name, e.g. "__add__".
func (o Op) Name() string { return opInfo[o].name }

// ReflectedName returns the reflected protocol method name, e.g. "__radd__",
// or "" if the operator has no reflected form.
func (o Op) ReflectedName() string { return opInfo[o].reflected }

func (o Op) IsComparison() bool { return o >= OpLt && o <= OpGe }

func (o Op) IsUnary() bool { return o == OpInvert }

// Eval applies a comparison operator to the result of a three-way compare.
func (o Op) Eval(ord int) bool {
	switch o {
	case OpLt:
		return ord < 0
	case OpLe:
		return ord <= 0
	case OpEq:
		return ord == 0
	case OpNe:
		return ord != 0
	case OpGt:
		return ord > 0
	case OpGe:
		return ord >= 0
	default:
		panic("Eval called on non-comparison operator " + o.Name())
	}
}

// OpByName looks up an operator by its protocol method name. reflected is
// true if name is the reflected form.
func OpByName(name string) (op Op, reflected bool, ok bool) {
	for i, info := range opInfo {
		switch name {
		case info.name:
			return Op(i), false, true
		case info.reflected:
			if info.reflected != "" {
				return Op(i), true, true
			}
		}
	}
	return 0, false, false
}
