package cpp

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// joins lists, for the last character of a token, the first characters of
// a following token that would merge with it if written without a space.
var joins = map[TokenKind]string{
	ADD:    "+=",
	SUB:    "-=>",
	MUL:    "=/",
	QUO:    "=/*",
	REM:    "=:>",
	XOR:    "=",
	NOT:    "=",
	ASSIGN: "=",
	AND:    "&=",
	OR:     "|=",
	GTR:    ">=",
	LSS:    "<=:%",
	SHL:    "=",
	SHR:    "=",
	HASH:   "#%",
	COLON:  ">",
	PERIOD: "0123456789.",
}

func needWS(prev TokenKind, next *Token) bool {
	v := next.Val()
	if v == "" {
		return false
	}
	c := v[0]
	switch prev {
	case IDENT, INT_CONSTANT, FLOAT_CONSTANT:
		return isIdentChar(c) || (prev != IDENT && c == '.')
	case NEWLINE:
		return c == '#' || strings.HasPrefix(v, "%:")
	}
	return strings.IndexByte(joins[prev], c) >= 0
}

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (cw *countingWriter) Write(b []byte) (int, error) {
	n, err := cw.w.Write(b)
	cw.n += int64(n)
	return n, err
}

// WriteTo writes the preprocessed text of the whole input to w. Tokens are
// placed on their original lines where possible, and "# N "file"" markers
// are written when the file changes or many lines are skipped.
func (pp *Preprocessor) WriteTo(w io.Writer) (int64, error) {
	out := &countingWriter{w: bufio.NewWriter(w)}
	lastFile := ""
	lastLine := -1
	lastKind := TokenKind(NEWLINE)
	nl := true
	marker := func(t *Token) {
		if !nl {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "# %d %s\n", t.Range.Begin.Line, quoteString([]byte(t.Range.Begin.File)))
		nl = true
		lastKind = NEWLINE
	}
	for {
		t, err := pp.Next()
		if err != nil {
			out.w.Flush()
			return out.n, err
		}
		pos := t.Range.Begin
		switch {
		case pos.File != lastFile:
			marker(t)
			lastLine = pos.Line
		case pos.Line != lastLine:
			if pos.Line-lastLine <= 10 {
				for {
					fmt.Fprintln(out)
					lastLine++
					if lastLine >= pos.Line {
						break
					}
				}
				nl = true
				lastKind = NEWLINE
			} else {
				marker(t)
			}
			lastLine = pos.Line
		}
		lastFile = pos.File

		if t.Kind == EOF {
			break
		}
		if t.Kind != NEWLINE {
			if nl {
				for i := 1; i < pos.Col; i++ {
					out.w.WriteByte(' ')
					out.n++
					lastKind = WHITESPACE
				}
			}
			if needWS(lastKind, t) {
				out.w.WriteByte(' ')
				out.n++
			}
			lastKind = t.Kind
			io.WriteString(out, t.Val())
			nl = false
		}
	}
	if !nl {
		fmt.Fprintln(out)
	}
	return out.n, out.w.Flush()
}

// FormatToken renders t as kind:val:line:col, one token per line in dumps
// and test expectations.
func FormatToken(t *Token) string {
	return fmt.Sprintf("%s:%s:%d:%d", t.Kind, t.Val(), t.Range.Begin.Line, t.Range.Begin.Col)
}
