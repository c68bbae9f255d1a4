package cpp

import (
	"io"
)

// Env holds what all lexers of one translation unit share.
type Env struct {
	Syms     *SymbolTable
	Types    *Types
	Reporter Reporter
}

func NewEnv(t Target, rep Reporter) *Env {
	return &Env{
		Syms:     NewSymbolTable(),
		Types:    NewTypes(t),
		Reporter: rep,
	}
}

const lineBufSize = 4096

// Lexer splits one source file into preprocessing tokens. It does no
// preprocessing, comments are turned into whitespace and directives are
// returned token by token.
type Lexer struct {
	env *Env
	rep Reporter

	// fileName is what positions report and may be changed by #line.
	fileName   string
	actualFile string

	reader *LineReader
	buf    []byte
	cur    int
	end    int
	first  bool

	// Look ahead ring buffer. Its size is always a power of two.
	fifo  []*Token
	head  int
	count int

	// Recognize <header> names, set while reading an #include operand.
	parseInclude bool
	reportErrors bool
	errCount     int
}

// breakout is raised on errors that cannot be recovered from, such as a
// failing reader. It is turned back into an error by the exported entry
// points.
type breakout struct {
	err error
}

// Lex returns a lexer for the contents of the reader.
// fname is used for error messages when showing the source location.
// No preprocessing is done, this is just pure reading of the unprocessed
// source file.
func Lex(fname string, r io.Reader, env *Env) *Lexer {
	return &Lexer{
		env:          env,
		rep:          env.Reporter,
		fileName:     fname,
		actualFile:   fname,
		reader:       NewLineReader(r, lineBufSize),
		first:        true,
		fifo:         make([]*Token, 8),
		reportErrors: true,
	}
}

func recoverBreakout(err *error) {
	if e := recover(); e != nil {
		b, ok := e.(*breakout)
		if !ok {
			panic(e)
		}
		*err = b.err
	}
}

// Next returns the next token. After the end of input it keeps returning
// EOF tokens.
func (lx *Lexer) Next() (t *Token, err error) {
	defer recoverBreakout(&err)
	return lx.next(), nil
}

// LookAhead returns the token distance places after the one Next would
// return, without consuming anything.
func (lx *Lexer) LookAhead(distance int) (t *Token, err error) {
	defer recoverBreakout(&err)
	return lx.lookAhead(distance), nil
}

// SetReportErrors controls whether lexical errors are reported as errors or
// only as warnings, as inside skipped conditional blocks.
func (lx *Lexer) SetReportErrors(on bool) {
	lx.reportErrors = on
}

func (lx *Lexer) FileName() string {
	return lx.fileName
}

func (lx *Lexer) SetFileName(fname string) {
	lx.fileName = fname
}

func (lx *Lexer) ActualFileName() string {
	return lx.actualFile
}

func (lx *Lexer) diag(sev Severity, rng SourceRange, format string, args ...interface{}) {
	if sev == SevError {
		lx.errCount++
		if lx.reportErrors {
			lx.rep.Error(rng, format, args...)
			return
		}
	}
	lx.rep.Warning(rng, format, args...)
}

func (lx *Lexer) next() *Token {
	if lx.count > 0 {
		t := lx.fifo[lx.head]
		lx.fifo[lx.head] = nil
		lx.head = (lx.head + 1) & (len(lx.fifo) - 1)
		lx.count--
		return t
	}
	return lx.scan()
}

func (lx *Lexer) lookAhead(distance int) *Token {
	for lx.count <= distance {
		lx.push(lx.scan())
	}
	return lx.fifo[(lx.head+distance)&(len(lx.fifo)-1)]
}

func (lx *Lexer) push(t *Token) {
	if lx.count == len(lx.fifo) {
		nfifo := make([]*Token, len(lx.fifo)*2)
		for i := 0; i < lx.count; i++ {
			nfifo[i] = lx.fifo[(lx.head+i)&(len(lx.fifo)-1)]
		}
		lx.fifo = nfifo
		lx.head = 0
	}
	lx.fifo[(lx.head+lx.count)&(len(lx.fifo)-1)] = t
	lx.count++
}

// discardLine drops the rest of the current logical line. The newline that
// ends it is kept. A block comment opening on the line is left for scan,
// since it may continue past the end of the line.
func (lx *Lexer) discardLine() {
	for lx.count > 0 {
		t := lx.fifo[lx.head]
		if t.Kind == NEWLINE || t.Kind == EOF {
			return
		}
		lx.next()
	}
	cur := lx.cur
	for cur < lx.end {
		c := lx.buf[cur]
		switch {
		case c == '\'' || c == '"':
			cur++
			for cur < lx.end && lx.buf[cur] != c {
				if lx.buf[cur] == '\\' && cur+1 < lx.end {
					cur++
				}
				cur++
			}
			cur++
		case c == '<' && lx.parseInclude && lx.headerEnd(cur) > 0:
			cur = lx.headerEnd(cur)
		case c == '/' && lx.at(cur+1) == '/':
			cur = lx.end
		case c == '/' && lx.at(cur+1) == '*':
			lx.cur = cur
			return
		default:
			cur++
		}
	}
	lx.cur = lx.end
}

func (lx *Lexer) at(i int) byte {
	if i < lx.end {
		return lx.buf[i]
	}
	return 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\v' || c == '\f' || c == '\r'
}

func isAnySpace(c byte) bool {
	return isSpace(c) || c == '\n'
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

// nextLine makes the next logical line current, joining physical lines
// that end in a backslash.
func (lx *Lexer) nextLine() bool {
	ok, err := lx.reader.ReadNextLine()
	if err != nil {
		panic(&breakout{ErrWithLoc(err, FilePos{lx.actualFile, lx.reader.CurLineNumber(), 1})})
	}
	if !ok {
		return false
	}
	r := lx.reader
	for {
		buf := r.LineBuf()
		start, end := r.LineStart(), r.LineEnd()
		e := end
		for e > start && isAnySpace(buf[e-1]) {
			e--
		}
		if e == start || buf[e-1] != '\\' {
			lx.end = e
			break
		}
		lx.buf = buf
		lx.end = end
		bs := r.CalcRange(lx.fileName, e-1, e)
		for _, c := range buf[e:end] {
			if c == ' ' || c == '\t' {
				lx.diag(SevWarning, bs, "backslash and newline separated by space")
				break
			}
		}
		more, err := r.AppendNextLine(e - 1)
		if err != nil {
			panic(&breakout{ErrWithLoc(err, bs.Begin)})
		}
		if !more {
			lx.diag(SevWarning, bs, "backslash-newline at end of file")
			lx.end = e - 1
			break
		}
	}
	lx.buf = r.LineBuf()
	lx.cur = r.LineStart()
	return true
}

func (lx *Lexer) pos(i int) FilePos {
	line, col := lx.reader.CalcPos(i)
	return FilePos{lx.fileName, line, col}
}

// endPos is the exclusive end position of a token ending before i.
func (lx *Lexer) endPos(i int) FilePos {
	if i > lx.reader.LineStart() {
		p := lx.pos(i - 1)
		p.Col++
		return p
	}
	return lx.pos(i)
}

func (lx *Lexer) eofToken() *Token {
	pos := FilePos{lx.fileName, lx.reader.CurLineNumber(), 1}
	return &Token{Kind: EOF, Range: SourceRange{pos, pos}}
}

func (lx *Lexer) scan() *Token {
	if lx.first {
		lx.first = false
		if !lx.nextLine() {
			return lx.eofToken()
		}
	}

	cur := lx.cur
	begin := lx.pos(cur)
	// Bit 0: crossed a line end, bit 1: saw other whitespace.
	ws := 0
skip:
	for {
		if cur == lx.end {
			if !lx.nextLine() {
				return lx.eofToken()
			}
			ws |= 1
			cur = lx.cur
			continue
		}
		c := lx.buf[cur]
		switch {
		case isSpace(c):
			cur++
			ws |= 2
		case c == '/' && lx.at(cur+1) == '*':
			start := lx.pos(cur)
			cur += 2
			for {
				if cur == lx.end {
					if !lx.nextLine() {
						lx.diag(SevError, SourceRange{start, start}, "Unterminated block comment")
						return lx.eofToken()
					}
					cur = lx.cur
					continue
				}
				if lx.buf[cur] == '*' && lx.at(cur+1) == '/' {
					cur += 2
					break
				}
				cur++
			}
			ws |= 2
		case c == '/' && lx.at(cur+1) == '/':
			cur = lx.end
			ws |= 2
		default:
			break skip
		}
	}

	tok := &Token{}
	if ws != 0 {
		tok.Kind = WHITESPACE
		if ws&1 != 0 {
			tok.Kind = NEWLINE
		}
		tok.Range = SourceRange{begin, lx.endPos(cur)}
		lx.cur = cur
		return tok
	}

	start := cur
	begin = lx.pos(cur)
	c := lx.buf[cur]
	switch {
	case (c == 'L' || c == 'u' || c == 'U') && (lx.at(cur+1) == '\'' || lx.at(cur+1) == '"'):
		cur = lx.scanConstant(tok, start, cur+1, begin)
		lx.diag(SevError, SourceRange{begin, lx.endPos(cur)}, "prefixed character and string constants are not supported")
	case isIdentStart(c):
		for cur < lx.end && isIdentChar(lx.buf[cur]) {
			cur++
		}
		tok.Kind = IDENT
		tok.Sym = lx.env.Syms.Symbol(lx.buf[start:cur])
	case isDigit(c) || (c == '.' && isDigit(lx.at(cur+1))):
		cur = lx.scanNumber(tok, cur, begin)
	case c == '\'' || c == '"':
		cur = lx.scanConstant(tok, start, cur, begin)
	case c == '<' && lx.parseInclude && lx.headerEnd(cur) > 0:
		cur = lx.headerEnd(cur)
		tok.Kind = HEADER
		tok.Text = append([]byte(nil), lx.buf[start:cur]...)
		tok.Str = tok.Text[1 : len(tok.Text)-1]
	default:
		kind, n := lx.punctuator(cur)
		if n == 0 {
			tok.Kind = OTHER
			tok.Text = []byte{c}
			n = 1
		} else {
			tok.Kind = kind
			if spelled := lx.buf[cur : cur+n]; string(spelled) != kind.spelling() {
				tok.Text = append([]byte(nil), spelled...)
			}
		}
		cur += n
	}
	tok.Range = SourceRange{begin, lx.endPos(cur)}
	lx.cur = cur
	return tok
}

// headerEnd returns the position after the '>' closing a header name
// starting at i, or 0.
func (lx *Lexer) headerEnd(i int) int {
	for j := i + 1; j < lx.end; j++ {
		if lx.buf[j] == '>' {
			return j + 1
		}
	}
	return 0
}

func (lx *Lexer) scanNumber(tok *Token, cur int, begin FilePos) int {
	start := cur
	for cur < lx.end {
		c := lx.buf[cur]
		if (c == 'e' || c == 'E' || c == 'p' || c == 'P') && (lx.at(cur+1) == '+' || lx.at(cur+1) == '-') {
			cur += 2
			continue
		}
		if !isIdentChar(c) && c != '.' {
			break
		}
		cur++
	}
	tok.Text = append([]byte(nil), lx.buf[start:cur]...)
	rng := SourceRange{begin, lx.endPos(cur)}
	diag := func(sev Severity, format string, args ...interface{}) {
		lx.diag(sev, rng, format, args...)
	}
	if isRealNumber(tok.Text) {
		tok.Kind = FLOAT_CONSTANT
		tok.Value = lx.env.Types.ParseReal(tok.Text, diag)
	} else {
		tok.Kind = INT_CONSTANT
		tok.Value = lx.env.Types.ParseInteger(tok.Text, diag)
	}
	return cur
}

// scanConstant reads a character or string constant whose opening quote is
// at cur. Prefixed constants start one byte earlier, at start.
func (lx *Lexer) scanConstant(tok *Token, start, cur int, begin FilePos) int {
	quote := lx.buf[cur]
	cur++
	bodyStart := cur
	for cur < lx.end && lx.buf[cur] != quote {
		if lx.buf[cur] == '\\' && cur+1 < lx.end {
			cur++
		}
		cur++
	}
	bodyEnd := cur
	terminated := cur < lx.end
	if terminated {
		cur++
	}
	rng := SourceRange{begin, lx.endPos(cur)}
	diag := func(sev Severity, format string, args ...interface{}) {
		lx.diag(sev, rng, format, args...)
	}
	tok.Text = append([]byte(nil), lx.buf[start:cur]...)
	what := "string constant"
	if quote == '\'' {
		what = "character constant"
	}
	if !terminated {
		diag(SevError, "Unterminated %s", what)
	}
	decoded := decodeEscapes(lx.buf[bodyStart:bodyEnd], lx.env.Types.Spec(UChar).MaxValue, diag)
	if quote == '\'' {
		tok.Kind = CHAR_CONSTANT
		tok.Value = lx.env.Types.CharConstant(decoded, diag)
	} else {
		tok.Kind = STRING
		tok.Str = decoded
	}
	return cur
}

func (lx *Lexer) punctuator(i int) (TokenKind, int) {
	c1, c2, c3 := lx.at(i+1), lx.at(i+2), lx.at(i+3)
	switch lx.buf[i] {
	case '[', ']', '(', ')', '{', '}', '?', ';', ',', '~':
		return TokenKind(lx.buf[i]), 1
	case '.':
		if c1 == '.' && c2 == '.' {
			return ELLIPSIS, 3
		}
		return PERIOD, 1
	case '-':
		switch c1 {
		case '>':
			return ARROW, 2
		case '-':
			return DEC, 2
		case '=':
			return SUB_ASSIGN, 2
		}
		return SUB, 1
	case '+':
		switch c1 {
		case '+':
			return INC, 2
		case '=':
			return ADD_ASSIGN, 2
		}
		return ADD, 1
	case '&':
		switch c1 {
		case '&':
			return LAND, 2
		case '=':
			return AND_ASSIGN, 2
		}
		return AND, 1
	case '|':
		switch c1 {
		case '|':
			return LOR, 2
		case '=':
			return OR_ASSIGN, 2
		}
		return OR, 1
	case '*':
		if c1 == '=' {
			return MUL_ASSIGN, 2
		}
		return MUL, 1
	case '/':
		if c1 == '=' {
			return QUO_ASSIGN, 2
		}
		return QUO, 1
	case '^':
		if c1 == '=' {
			return XOR_ASSIGN, 2
		}
		return XOR, 1
	case '!':
		if c1 == '=' {
			return NEQ, 2
		}
		return NOT, 1
	case '=':
		if c1 == '=' {
			return EQL, 2
		}
		return ASSIGN, 1
	case '%':
		switch c1 {
		case '=':
			return REM_ASSIGN, 2
		case '>':
			return RBRACE, 2
		case ':':
			if c2 == '%' && c3 == ':' {
				return HASHHASH, 4
			}
			return HASH, 2
		}
		return REM, 1
	case '<':
		switch c1 {
		case '<':
			if c2 == '=' {
				return SHL_ASSIGN, 3
			}
			return SHL, 2
		case '=':
			return LEQ, 2
		case ':':
			return LBRACK, 2
		case '%':
			return LBRACE, 2
		}
		return LSS, 1
	case '>':
		switch c1 {
		case '>':
			if c2 == '=' {
				return SHR_ASSIGN, 3
			}
			return SHR, 2
		case '=':
			return GEQ, 2
		}
		return GTR, 1
	case ':':
		if c1 == '>' {
			return RBRACK, 2
		}
		return COLON, 1
	case '#':
		if c1 == '#' {
			return HASHHASH, 2
		}
		return HASH, 1
	}
	return 0, 0
}
