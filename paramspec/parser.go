// Package paramspec parses parameter declarations attached to bound
// functions, e.g.
//
//	data, scale=1.2, count=123, out result, ...rest
//
// Each declaration names a parameter and optionally marks it as an out
// parameter ("out name"), as optional ("name?"), as variadic ("...name"),
// or gives it a default value ("name=literal"). Literals are None, true,
// false, integers, floats and double quoted strings. A "#" starts a comment
// running to the end of the line.
package paramspec

import (
	"fmt"
	"go/token"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type word struct {
	word string
	line int
	// Quoted string literal; word holds the unquoted value.
	quoted bool
}

func tokenize(src []byte) ([]word, error) {
	var words []word
	s := strings.ReplaceAll(string(src), "\r\n", "\n")
	line := 1
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		switch {
		case r == '\n':
			line++
			s = s[size:]
		case unicode.IsSpace(r):
			s = s[size:]
		case r == '#':
			end := strings.IndexByte(s, '\n')
			if end == -1 {
				end = len(s)
			}
			s = s[end:]
		case r == '"':
			lit, err := strconv.QuotedPrefix(s)
			if err != nil {
				return nil, fmt.Errorf("%v: unterminated string literal", line)
			}
			unq, err := strconv.Unquote(lit)
			if err != nil {
				return nil, fmt.Errorf("%v: %w", line, err)
			}
			words = append(words, word{word: unq, line: line, quoted: true})
			s = s[len(lit):]
		case r == ',' || r == '=' || r == '?':
			words = append(words, word{word: string(r), line: line})
			s = s[size:]
		default:
			end := strings.IndexFunc(s, func(r rune) bool {
				return unicode.IsSpace(r) || r == ',' || r == '=' || r == '?' || r == '#' || r == '"'
			})
			if end == -1 {
				end = len(s)
			}
			words = append(words, word{word: s[:end], line: line})
			s = s[end:]
		}
	}
	return words, nil
}

// Parse a param spec from source.
// filename is for errors.
func Parse(filename string, src []byte) (*Spec, error) {
	words, err := tokenize(src)
	if err != nil {
		return nil, fmt.Errorf("%v:%w", filename, err)
	}

	i := 0 // current word index
	errorHere := func(numWords int, format string, args ...any) error {
		var line int
		var contextStr string
		if i < len(words) {
			line = words[i].line
			for j := 0; ; j++ {
				if j >= numWords {
					contextStr = "at " + strconv.Quote(contextStr)
					break
				}
				if i+j >= len(words) {
					contextStr = "after " + strconv.Quote(contextStr)
					break
				}
				if j != 0 {
					contextStr += " "
				}
				contextStr += words[i+j].word
			}
		} else if len(words) > 0 {
			line = words[len(words)-1].line
			contextStr = "at end of spec"
		}
		return fmt.Errorf("%v:%v: %v: %w", filename, line, contextStr, fmt.Errorf(format, args...))
	}

	var params []*Param
	seen := map[string]bool{}
	sawOptional := false
	for i < len(words) {
		if len(params) > 0 {
			if words[i].word != "," || words[i].quoted {
				return nil, errorHere(1, "expected \",\" between parameters")
			}
			i++
			if i >= len(words) {
				return nil, errorHere(1, "expected parameter after \",\"")
			}
		}
		p := &Param{LineNo: words[i].line}
		if words[i].word == "out" && !words[i].quoted && i+1 < len(words) && isName(words[i+1]) {
			p.Out = true
			i++
		}
		if i >= len(words) || words[i].quoted {
			return nil, errorHere(1, "expected parameter name")
		}
		nameIdx := i
		name := words[i].word
		if after, ok := strings.CutPrefix(name, "..."); ok {
			p.Variadic = true
			name = after
		}
		if !token.IsIdentifier(name) {
			return nil, errorHere(1, "invalid parameter name")
		}
		if seen[name] {
			return nil, errorHere(1, "duplicate parameter %v", strconv.Quote(name))
		}
		if p.Variadic && p.Out {
			return nil, errorHere(1, "out parameter cannot be variadic")
		}
		seen[name] = true
		p.Name = name
		i++

		if i < len(words) && !words[i].quoted && words[i].word == "?" {
			p.Optional = true
			i++
		}
		if i < len(words) && !words[i].quoted && words[i].word == "=" {
			if i+1 >= len(words) {
				return nil, errorHere(1, "expected default value")
			}
			i++
			lit, err := parseLiteral(words[i])
			if err != nil {
				return nil, errorHere(1, "%w", err)
			}
			p.Default = lit
			p.Optional = true
			i++
		}
		if p.Optional && (p.Variadic || p.Out) {
			i = nameIdx
			return nil, errorHere(1, "variadic and out parameters cannot be optional")
		}
		if p.Variadic && i < len(words) {
			return nil, errorHere(1, "variadic parameter %v must be last", strconv.Quote(p.Name))
		}
		if !p.Out {
			if p.Optional {
				sawOptional = true
			} else if sawOptional && !p.Variadic {
				i = nameIdx
				return nil, errorHere(1, "required parameter after optional parameter")
			}
		}
		params = append(params, p)
	}
	return &Spec{
		Filename: filename,
		Params:   params,
	}, nil
}

func isName(w word) bool {
	return !w.quoted && w.word != "," && w.word != "=" && w.word != "?"
}

func parseLiteral(w word) (*Literal, error) {
	if w.quoted {
		return &Literal{Kind: LitString, Text: w.word}, nil
	}
	switch w.word {
	case "None", "nil":
		return &Literal{Kind: LitNone, Text: w.word}, nil
	case "true", "True":
		return &Literal{Kind: LitBool, Text: "true"}, nil
	case "false", "False":
		return &Literal{Kind: LitBool, Text: "false"}, nil
	}
	if _, ok := new(big.Int).SetString(w.word, 0); ok {
		return &Literal{Kind: LitInt, Text: w.word}, nil
	}
	if _, err := strconv.ParseFloat(w.word, 64); err == nil {
		return &Literal{Kind: LitFloat, Text: w.word}, nil
	}
	return nil, fmt.Errorf("invalid default value %v", strconv.Quote(w.word))
}
