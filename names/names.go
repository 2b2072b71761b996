// Package names turns qualified paths and signatures into linker-safe
// symbols and back.
package names

import (
	"fmt"
	"strconv"
	"strings"
)

// escapes maps every unsafe byte with a dedicated code to the character
// following the '_' in its escape. The codes 'a', 'r' and 'x' are reserved
// for argument, return and hex escapes.
var escapes = map[byte]byte{
	'.':  'D',
	'(':  'L',
	')':  'R',
	',':  'C',
	'_':  '_',
	'[':  'o',
	']':  'c',
	'&':  'A',
	'*':  'P',
	'~':  'T',
	' ':  'S',
	'"':  'Q',
	'!':  'e',
	'#':  'h',
	'$':  'd',
	'%':  'p',
	'\'': 'q',
	'+':  't',
	'-':  'm',
	'/':  's',
	':':  '0',
	';':  '1',
	'<':  '2',
	'=':  'E',
	'>':  'g',
	'\\': 'b',
	'^':  '3',
	'`':  '4',
	'{':  '5',
	'|':  '6',
	'}':  '7',
	'?':  '8',
	'@':  '9',
}

var unescapes = func() map[byte]byte {
	ret := make(map[byte]byte, len(escapes))
	for from, to := range escapes {
		if _, ok := ret[to]; ok {
			panic(fmt.Sprintf("escape code %c assigned twice", to))
		}
		ret[to] = from
	}
	return ret
}()

const (
	argumentMarker = 'a'
	returnMarker   = 'r'
	hexMarker      = 'x'
)

func isSafe(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func encode(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isSafe(c):
			b.WriteByte(c)
		case escapes[c] != 0:
			b.WriteByte('_')
			b.WriteByte(escapes[c])
		default:
			fmt.Fprintf(b, "_%c%02x", hexMarker, c)
		}
	}
}

// Mangle encodes a function path and its signature. Extern symbols keep their
// name untouched.
func Mangle(path string, args []string, ret string, extern bool) string {
	if extern {
		return path
	}

	var b strings.Builder
	encode(&b, path)
	for _, arg := range args {
		b.WriteByte('_')
		b.WriteByte(argumentMarker)
		encode(&b, arg)
	}
	b.WriteByte('_')
	b.WriteByte(returnMarker)
	encode(&b, ret)
	return b.String()
}

// MangleVariable encodes a variable or type path.
func MangleVariable(path string) string {
	var b strings.Builder
	encode(&b, path)
	return b.String()
}

// CombineNames joins a parent path and a member name.
func CombineNames(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

func decode(s string, onArgument func(b *strings.Builder, first bool), onReturn func(b *strings.Builder)) string {
	var b strings.Builder
	first := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '_' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}

		i++
		code := s[i]
		switch {
		case code == argumentMarker && onArgument != nil:
			onArgument(&b, first)
			first = false
		case code == returnMarker && onReturn != nil:
			onReturn(&b)
		case code == hexMarker && i+2 < len(s):
			if v, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
			} else {
				b.WriteByte('_')
				b.WriteByte(code)
			}
		case unescapes[code] != 0:
			b.WriteByte(unescapes[code])
		default:
			b.WriteByte('_')
			b.WriteByte(code)
		}
	}
	return b.String()
}

// UnmangleFunction renders a mangled function symbol readably:
// "path arg1, arg2 => ret".
func UnmangleFunction(s string) string {
	return decode(s,
		func(b *strings.Builder, first bool) {
			if first {
				b.WriteByte(' ')
			} else {
				b.WriteString(", ")
			}
		},
		func(b *strings.Builder) {
			b.WriteString(" => ")
		},
	)
}

func UnmangleVariable(s string) string {
	return decode(s, nil, nil)
}
