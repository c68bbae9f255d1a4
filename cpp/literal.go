package cpp

import (
	"bytes"
	"math"
	"math/bits"
	"strconv"
)

type diagFunc func(sev Severity, format string, args ...interface{})

// isRealNumber decides whether a pp-number spells a floating constant.
func isRealNumber(s []byte) bool {
	hex := len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
	for _, c := range s {
		switch c {
		case '.':
			return true
		case 'e', 'E':
			if !hex {
				return true
			}
		case 'p', 'P':
			if hex {
				return true
			}
		}
	}
	return false
}

func parseIntSuffix(s []byte) (unsigned bool, longs int, ok bool) {
	for len(s) > 0 {
		switch {
		case (s[0] == 'u' || s[0] == 'U') && !unsigned:
			unsigned = true
			s = s[1:]
		case longs == 0 && len(s) >= 2 && (string(s[:2]) == "ll" || string(s[:2]) == "LL"):
			longs = 2
			s = s[2:]
		case longs == 0 && (s[0] == 'l' || s[0] == 'L'):
			longs = 1
			s = s[1:]
		default:
			return false, 0, false
		}
	}
	return unsigned, longs, true
}

func digitVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return 99
}

// ParseInteger evaluates an integer pp-number. The type is the first of
// the candidate types for its suffix and radix that can hold the value.
func (ts *Types) ParseInteger(s []byte, diag diagFunc) *IntC {
	end := len(s)
	for end > 0 && bytes.IndexByte([]byte("uUlL"), s[end-1]) >= 0 {
		end--
	}
	unsigned, longs, ok := parseIntSuffix(s[end:])
	if !ok {
		diag(SevError, "Invalid integer constant suffix '%s'", s[end:])
	}

	digits := s[:end]
	radix := 10
	switch {
	case len(digits) >= 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X'):
		radix = 16
		digits = digits[2:]
		if len(digits) == 0 {
			diag(SevError, "Invalid integer constant '%s'", s)
		}
	case len(digits) > 1 && digits[0] == '0':
		radix = 8
		digits = digits[1:]
	}

	var value uint64
	tooLarge := false
	for _, c := range digits {
		d := digitVal(c)
		if d >= radix {
			diag(SevError, "Invalid integer constant '%s'", s)
			value = 0
			tooLarge = false
			break
		}
		hi, lo := bits.Mul64(value, uint64(radix))
		sum, carry := bits.Add64(lo, uint64(d), 0)
		if hi != 0 || carry != 0 {
			tooLarge = true
		}
		value = sum
	}
	if tooLarge {
		diag(SevWarning, "Constant is too large")
		return NewIntC(ts.Spec(ULLong)).SetUint64(value)
	}

	step := TypeKind(1)
	kind := SInt + TypeKind(2*longs)
	if unsigned {
		kind++
		step = 2
	} else if radix == 10 {
		step = 2
	}
	for ; kind <= ULLong; kind += step {
		if value <= ts.Spec(kind).MaxValue {
			return NewIntC(ts.Spec(kind)).SetUint64(value)
		}
	}
	diag(SevWarning, "Constant is too large for its type")
	return NewIntC(ts.Spec(ULLong)).SetUint64(value)
}

// ParseReal evaluates a floating pp-number, including hexadecimal floats.
func (ts *Types) ParseReal(s []byte, diag diagFunc) *RealC {
	spec := ts.Spec(Double)
	body := s
	if n := len(s); n > 0 {
		switch s[n-1] {
		case 'f', 'F':
			spec = ts.Spec(Float)
			body = s[:n-1]
		case 'l', 'L':
			spec = ts.Spec(LDouble)
			body = s[:n-1]
		}
	}
	c := NewRealC(spec)
	v, err := strconv.ParseFloat(string(body), 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); !ok || ne.Err != strconv.ErrRange {
			diag(SevError, "Invalid floating point constant '%s'", s)
			return c
		}
	}
	if math.Abs(v) > spec.MaxReal {
		diag(SevError, "Constant is outside of '%s' range", spec)
	}
	return c.SetFloat64(v)
}

func isOctal(c byte) bool { return c >= '0' && c <= '7' }

// decodeEscapes decodes the body of a character or string constant. Each
// decoded character must fit in charMax.
func decodeEscapes(s []byte, charMax uint64, diag diagFunc) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		c := s[i]
		i++
		if c != '\\' {
			out = append(out, c)
			continue
		}
		if i == len(s) {
			diag(SevError, "Invalid escape sequence")
			break
		}
		c = s[i]
		i++
		switch c {
		case '\'', '"', '?', '\\':
			out = append(out, c)
		case 'a':
			out = append(out, 7)
		case 'b':
			out = append(out, 8)
		case 'f':
			out = append(out, 12)
		case 'n':
			out = append(out, 10)
		case 'r':
			out = append(out, 13)
		case 't':
			out = append(out, 9)
		case 'v':
			out = append(out, 11)
		case 'x':
			var v uint64
			start := i
			overflow := false
			for i < len(s) && digitVal(s[i]) < 16 {
				if v > math.MaxUint64>>4 {
					overflow = true
				}
				v = v<<4 | uint64(digitVal(s[i]))
				i++
			}
			switch {
			case i == start:
				diag(SevError, "Invalid hex escape sequence")
			case overflow:
				diag(SevError, "Integer overflow in hex escape sequence")
			case v > charMax:
				diag(SevError, "Character overflow in hex escape sequence")
			}
			out = append(out, byte(v))
		default:
			if isOctal(c) {
				v := uint64(c - '0')
				for n := 1; n < 3 && i < len(s) && isOctal(s[i]); n++ {
					v = v<<3 | uint64(s[i]-'0')
					i++
				}
				if v > charMax {
					diag(SevError, "Character overflow in octal escape sequence")
				}
				out = append(out, byte(v))
				break
			}
			diag(SevWarning, "Invalid escape sequence '\\%c'", c)
			out = append(out, c)
		}
	}
	return out
}

// CharConstant computes the int value of a character constant from its
// decoded bytes. Multi-character constants shift each character in.
func (ts *Types) CharConstant(decoded []byte, diag diagFunc) *IntC {
	c := NewIntC(ts.Spec(SInt))
	switch len(decoded) {
	case 0:
		diag(SevError, "Empty character constant")
		return c
	case 1:
		return c.CastFrom(NewIntC(ts.Char).SetUint64(uint64(decoded[0])))
	}
	diag(SevWarning, "Multi-character character constant")
	charBits := ts.Spec(UChar).Width
	if uint(len(decoded))*charBits > c.spec.Width {
		diag(SevWarning, "Character constant is too long for its type")
	}
	var v uint64
	for _, b := range decoded {
		v = v<<charBits | uint64(b)
	}
	return c.SetUint64(v)
}

// quoteString returns s as the spelling of a C string literal.
func quoteString(s []byte) []byte {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for _, c := range s {
		switch {
		case c == '"' || c == '\\':
			out = append(out, '\\', c)
		case c < 0x20 || c == 0x7f:
			out = append(out, '\\', '0'+(c>>6), '0'+(c>>3)&7, '0'+c&7)
		default:
			out = append(out, c)
		}
	}
	return append(out, '"')
}
