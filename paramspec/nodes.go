package paramspec

type LiteralKind int

const (
	LitNone LiteralKind = iota
	LitBool
	LitInt
	LitFloat
	LitString
)

func (k LiteralKind) String() string {
	switch k {
	case LitNone:
		return "none"
	case LitBool:
		return "bool"
	case LitInt:
		return "int"
	case LitFloat:
		return "float"
	case LitString:
		return "string"
	default:
		panic("invalid literal kind")
	}
}

// Literal is a default value as written in a parameter declaration.
type Literal struct {
	Kind LiteralKind
	// Text is the literal's text. Strings are unquoted.
	Text string
}

type Param struct {
	LineNo int
	Name   string
	// Receives a result (pointer parameter the callee writes to).
	Out bool
	// Trailing variadic parameter (written as "...name").
	Variadic bool
	// May be omitted by the caller. Implied by a default value.
	Optional bool
	// Nil if there is no explicit default.
	Default *Literal
}

type Spec struct {
	Filename string
	Params   []*Param
}

// Lookup returns the parameter named name.
func (s *Spec) Lookup(name string) (*Param, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}
