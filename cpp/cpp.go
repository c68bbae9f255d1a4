package cpp

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Options controls the behaviour of a Preprocessor.
type Options struct {
	// Accept GCC line markers, named variadic parameters and ", ##
	// __VA_ARGS__".
	GCCExtensions bool
	// Warn when #undef names something that is not a macro.
	WarnUndef       bool
	MaxIncludeDepth int
	// Date used for __DATE__ and __TIME__. The zero value means now.
	Date time.Time
}

func DefaultOptions() Options {
	return Options{
		GCCExtensions:   true,
		MaxIncludeDepth: 200,
	}
}

type blockType int

const (
	blockNone blockType = iota
	blockIf
	blockElse
)

// condContext is one level of #if nesting.
type condContext struct {
	block      blockType
	parentExec bool
	// Some branch at this level has already been taken.
	hasSucceeded bool
	rng          SourceRange
	name         string
}

type includedFile struct {
	lx         *Lexer
	closer     io.Closer
	lineAdjust int
	condDepth  int
}

type Preprocessor struct {
	env  *Env
	rep  Reporter
	opts Options
	is   IncludeSearcher

	lx         *Lexer
	closer     io.Closer
	lineAdjust int
	includes   []includedFile

	// Expansion contexts, innermost last.
	contexts []*context
	ctx      *context
	// Tokens read ahead from contexts while looking for a '('.
	laQueue []*Token

	tok       *Token
	skippedWs *Token
	lineBeg   bool

	conditionalStack []condContext
	cond             condContext
	exec             bool

	exprErrorReported bool
	exprSkip          int

	date, time string
}

// New returns a preprocessor reading from l. Lexers for included files
// share l's environment.
func New(l *Lexer, is IncludeSearcher, opts Options) *Preprocessor {
	pp := &Preprocessor{
		env:     l.env,
		rep:     l.env.Reporter,
		opts:    opts,
		is:      is,
		lx:      l,
		lineBeg: true,
		exec:    true,
	}
	if pp.opts.MaxIncludeDepth <= 0 {
		pp.opts.MaxIncludeDepth = DefaultOptions().MaxIncludeDepth
	}
	now := opts.Date
	if now.IsZero() {
		now = time.Now()
	}
	pp.date = now.Format("Jan _2 2006")
	pp.time = now.Format("15:04:05")

	pp.defineBuiltin("__LINE__", builtinLine)
	pp.defineBuiltin("__FILE__", builtinFile)
	pp.defineBuiltin("__DATE__", builtinDate)
	pp.defineBuiltin("__TIME__", builtinTime)
	pp.Define("__STDC__", "1")
	pp.Define("__STDC_VERSION__", "199901L")
	pp.Define("__STDC_HOSTED__", "1")
	return pp
}

func (pp *Preprocessor) Env() *Env {
	return pp.env
}

func (pp *Preprocessor) defineBuiltin(name string, kind builtinKind) {
	sym := pp.env.Syms.SymbolString(name)
	m := newMacro(sym, SourceRange{})
	m.builtin = kind
	sym.decl = m
}

// Define defines name as if by "#define name value".
func (pp *Preprocessor) Define(name, value string) {
	pp.withLexer(name+" "+value, pp.parseDefine)
}

// Undef removes the definition of name as if by "#undef name".
func (pp *Preprocessor) Undef(name string) {
	pp.withLexer(name, pp.parseUndef)
}

func (pp *Preprocessor) withLexer(src string, parse func()) {
	saveLx, saveTok := pp.lx, pp.tok
	pp.lx = Lex("<command line>", strings.NewReader(src), pp.env)
	parse()
	pp.lx, pp.tok = saveLx, saveTok
}

// Macro returns the macro currently defined for name.
func (pp *Preprocessor) Macro(name string) (*Macro, bool) {
	sym, ok := pp.env.Syms.Lookup(name)
	if !ok || sym.Macro() == nil {
		return nil, false
	}
	return sym.Macro(), true
}

// Next returns the next fully preprocessed token. Whitespace and newline
// tokens are kept. At the end of the input EOF is returned. The error is
// only set when reading the input failed.
func (pp *Preprocessor) Next() (t *Token, err error) {
	defer recoverBreakout(&err)
	return pp.next(), nil
}

// Close closes the readers of any files still being included.
func (pp *Preprocessor) Close() error {
	var err error
	for pp.closer != nil || len(pp.includes) > 0 {
		if pp.closer != nil {
			if cerr := pp.closer.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		if !pp.popInclude() {
			break
		}
	}
	return err
}

func (pp *Preprocessor) next() *Token {
	for {
		if pp.lineBeg {
			pp.lineBeg = false
			switch {
			case pp.nextNoBlanks().Kind == HASH:
				pp.parseDirective()
			case pp.exec:
				pp.curExpandWithBlanks()
			default:
				pp.skipUntilEOL()
			}
		} else {
			pp.nextExpandWithBlanks()
		}

		switch pp.tok.Kind {
		case NEWLINE:
			pp.lineBeg = true
		case EOF:
			pp.lineBeg = true
			pp.checkUnterminated()
			if pp.closer != nil {
				pp.closer.Close()
				pp.closer = nil
			}
			if pp.popInclude() {
				continue
			}
			return pp.tok
		}
		if pp.exec {
			return pp.tok
		}
	}
}

func (pp *Preprocessor) popInclude() bool {
	n := len(pp.includes)
	if n == 0 {
		return false
	}
	inc := pp.includes[n-1]
	pp.includes = pp.includes[:n-1]
	pp.lx = inc.lx
	pp.closer = inc.closer
	pp.lineAdjust = inc.lineAdjust
	return true
}

// checkUnterminated reports #if blocks left open at the end of the current
// file and closes them.
func (pp *Preprocessor) checkUnterminated() {
	depth := 0
	if n := len(pp.includes); n > 0 {
		depth = pp.includes[n-1].condDepth
	}
	for len(pp.conditionalStack) > depth {
		pp.rep.Error(pp.cond.rng, "Unterminated #%s", pp.cond.name)
		pp.popCondContext()
	}
}

func (pp *Preprocessor) adjust(t *Token) {
	if pp.lineAdjust != 0 {
		t.Range.Begin.Line += pp.lineAdjust
		t.Range.End.Line += pp.lineAdjust
	}
}

// advance makes the next unexpanded token current.
func (pp *Preprocessor) advance() *Token {
	if len(pp.laQueue) > 0 {
		pp.tok = pp.laQueue[0]
		pp.laQueue[0] = nil
		pp.laQueue = pp.laQueue[1:]
		return pp.tok
	}
	for pp.ctx != nil {
		if t := pp.ctx.nextToken(); t != nil {
			pp.tok = t
			return t
		}
	}
	pp.tok = pp.lx.next()
	pp.adjust(pp.tok)
	return pp.tok
}

func (pp *Preprocessor) nextNoBlanks() *Token {
	pp.skippedWs = nil
	for pp.advance().Kind == WHITESPACE {
		pp.skippedWs = pp.tok
	}
	return pp.tok
}

func (pp *Preprocessor) nextNoNewLineOrBlanks() *Token {
	pp.skippedWs = nil
	for isBlank(pp.advance()) {
		pp.skippedWs = pp.tok
	}
	return pp.tok
}

func (pp *Preprocessor) nextExpandWithBlanks() *Token {
	for pp.advance().Kind == IDENT && pp.possiblyExpandMacro(pp.tok) {
	}
	return pp.tok
}

func (pp *Preprocessor) curExpandWithBlanks() *Token {
	for pp.tok.Kind == IDENT && pp.possiblyExpandMacro(pp.tok) {
		pp.advance()
	}
	return pp.tok
}

func (pp *Preprocessor) nextExpandNoBlanks() *Token {
	for pp.nextExpandWithBlanks().Kind == WHITESPACE {
	}
	return pp.tok
}

func (pp *Preprocessor) skipUntilEOL() {
	for !isEOL(pp.tok) {
		if pp.ctx == nil && len(pp.laQueue) == 0 {
			pp.lx.discardLine()
		}
		pp.advance()
	}
}

func isEOL(t *Token) bool {
	return t.Kind == NEWLINE || t.Kind == EOF
}

// checkEOL warns if the current token does not end the directive line.
func (pp *Preprocessor) checkEOL(name string) {
	if !isEOL(pp.tok) {
		pp.rep.Warning(pp.tok.Range, "Extra tokens after end of #%s", name)
		pp.skipUntilEOL()
	}
}

func (pp *Preprocessor) setExec(exec bool) {
	pp.exec = exec
	pp.lx.SetReportErrors(exec)
}

func (pp *Preprocessor) pushCondContext(rng SourceRange, name string) {
	pp.conditionalStack = append(pp.conditionalStack, pp.cond)
	pp.cond = condContext{
		block:      blockIf,
		parentExec: pp.exec,
		rng:        rng,
		name:       name,
	}
}

func (pp *Preprocessor) popCondContext() {
	n := len(pp.conditionalStack)
	if n == 0 {
		panic("internal bug")
	}
	pp.setExec(pp.cond.parentExec)
	pp.cond = pp.conditionalStack[n-1]
	pp.conditionalStack = pp.conditionalStack[:n-1]
}

func (pp *Preprocessor) condDepth() int {
	return len(pp.conditionalStack)
}

// parseDirective handles the line after a '#' at the start of a line.
// It leaves the newline ending the directive as the current token.
func (pp *Preprocessor) parseDirective() {
	hashRange := pp.tok.Range
	pp.nextNoBlanks()
	switch pp.tok.Kind {
	case NEWLINE, EOF:
		return
	case INT_CONSTANT:
		if pp.exec && pp.opts.GCCExtensions {
			pp.parseLine(true)
			return
		}
	case IDENT:
		if pp.parseKnownDirective(hashRange) {
			return
		}
	}
	if pp.exec {
		pp.rep.Error(pp.tok.Range, "Invalid preprocessor directive #%s", pp.tok.Val())
	}
	pp.skipUntilEOL()
}

func (pp *Preprocessor) parseKnownDirective(hashRange SourceRange) bool {
	rng := hashRange
	rng.Extend(pp.tok.Range)
	switch pp.tok.Sym.Code {
	case PPIf:
		pp.parseIf(rng)
		return true
	case PPIfdef, PPIfndef:
		pp.parseIfdef(rng, pp.tok.Sym.Code == PPIfdef)
		return true
	case PPElif:
		pp.parseElif(rng)
		return true
	case PPElse:
		pp.parseElse(rng)
		return true
	case PPEndif:
		pp.parseEndif(rng)
		return true
	}
	if !pp.exec {
		pp.skipUntilEOL()
		return true
	}
	switch pp.tok.Sym.Code {
	case PPDefine:
		pp.parseDefine()
	case PPUndef:
		pp.parseUndef()
	case PPInclude:
		pp.parseInclude(rng)
	case PPLine:
		pp.parseLine(false)
	case PPError:
		pp.rep.Error(rng, "#error %s", pp.restOfLine())
	case PPWarning:
		pp.rep.Warning(rng, "#warning %s", pp.restOfLine())
	case PPPragma:
		pp.rep.Warning(rng, "Ignoring unsupported #pragma")
		pp.skipUntilEOL()
	default:
		return false
	}
	return true
}

// restOfLine returns the unexpanded text up to the end of the line.
func (pp *Preprocessor) restOfLine() string {
	var buf bytes.Buffer
	for !isEOL(pp.nextNoBlanks()) {
		if pp.skippedWs != nil && buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		pp.tok.writeVal(&buf)
	}
	return buf.String()
}

func (pp *Preprocessor) parseIf(rng SourceRange) {
	pp.pushCondContext(rng, "if")
	if !pp.exec {
		pp.skipUntilEOL()
		return
	}
	v := pp.parseExpression()
	pp.cond.hasSucceeded = v
	pp.setExec(v)
}

func (pp *Preprocessor) parseIfdef(rng SourceRange, ifdef bool) {
	name := "ifndef"
	if ifdef {
		name = "ifdef"
	}
	pp.pushCondContext(rng, name)
	if !pp.exec {
		pp.skipUntilEOL()
		return
	}
	if pp.nextNoBlanks().Kind != IDENT {
		pp.rep.Error(pp.tok.Range, "Macro name expected after #%s", name)
		pp.skipUntilEOL()
		pp.setExec(false)
		return
	}
	v := (pp.tok.Sym.Macro() != nil) == ifdef
	pp.nextNoBlanks()
	pp.checkEOL(name)
	pp.cond.hasSucceeded = v
	pp.setExec(v)
}

func (pp *Preprocessor) parseElif(rng SourceRange) {
	switch pp.condBlock() {
	case blockNone:
		pp.rep.Error(rng, "#elif without #if")
		pp.skipUntilEOL()
		return
	case blockElse:
		pp.rep.Error(rng, "#elif after #else")
		pp.skipUntilEOL()
		return
	}
	if pp.cond.hasSucceeded || !pp.cond.parentExec {
		pp.setExec(false)
		pp.skipUntilEOL()
		return
	}
	pp.setExec(true)
	v := pp.parseExpression()
	pp.cond.hasSucceeded = v
	pp.setExec(v)
}

func (pp *Preprocessor) parseElse(rng SourceRange) {
	switch pp.condBlock() {
	case blockNone:
		pp.rep.Error(rng, "#else without #if")
		pp.skipUntilEOL()
		return
	case blockElse:
		pp.rep.Error(rng, "#else after #else")
		pp.skipUntilEOL()
		return
	}
	pp.cond.block = blockElse
	pp.setExec(pp.cond.parentExec && !pp.cond.hasSucceeded)
	pp.cond.hasSucceeded = true
	if pp.cond.parentExec {
		pp.nextNoBlanks()
		pp.checkEOL("else")
	} else {
		pp.skipUntilEOL()
	}
}

func (pp *Preprocessor) parseEndif(rng SourceRange) {
	if pp.condBlock() == blockNone {
		pp.rep.Error(rng, "#endif without #if")
		pp.skipUntilEOL()
		return
	}
	parentExec := pp.cond.parentExec
	pp.popCondContext()
	if parentExec {
		pp.nextNoBlanks()
		pp.checkEOL("endif")
	} else {
		pp.skipUntilEOL()
	}
}

// condBlock is the kind of the innermost #if block opened in the current
// file.
func (pp *Preprocessor) condBlock() blockType {
	if pp.condDepth() <= pp.fileCondBase() {
		return blockNone
	}
	return pp.cond.block
}

// fileCondBase is the nesting depth at which the current file started.
func (pp *Preprocessor) fileCondBase() int {
	if n := len(pp.includes); n > 0 {
		return pp.includes[n-1].condDepth
	}
	return 0
}

// parseDefine reads a macro definition. The current token is "define" or,
// for Define, nothing yet.
func (pp *Preprocessor) parseDefine() {
	if pp.nextNoBlanks().Kind != IDENT {
		pp.rep.Error(pp.tok.Range, "An identifier macro name expected after #define")
		pp.skipUntilEOL()
		return
	}
	sym := pp.tok.Sym
	if sym.Code == PPDefined {
		pp.rep.Error(pp.tok.Range, "'defined' cannot be used as a macro name")
		pp.skipUntilEOL()
		return
	}
	m := newMacro(sym, pp.tok.Range)
	if !pp.parseMacroDef(m) {
		pp.skipUntilEOL()
		return
	}

	if prev := sym.Macro(); prev != nil {
		switch {
		case prev.builtin != notBuiltin:
			pp.rep.Warning(m.NameRange, "redefinition of builtin macro '%s'", sym)
		case !prev.same(m):
			pp.rep.Warning(m.NameRange, "redefinition of macro '%s' differs from previous definition at %s", sym, prev.NameRange.Begin)
		}
	}
	sym.decl = m
}

// parseMacroDef parses the parameters and the replacement list of m. The
// parameters are bound to their symbols only while the body is parsed.
func (pp *Preprocessor) parseMacroDef(m *Macro) bool {
	var scope paramScope
	defer scope.release()

	if pp.advance().Kind == LPAREN {
		m.FuncLike = true
		if !pp.parseMacroParams(m, &scope) {
			return false
		}
		pp.nextNoBlanks()
	} else if pp.tok.Kind == WHITESPACE {
		pp.nextNoBlanks()
	}
	return pp.parseMacroReplacementList(m)
}

func (pp *Preprocessor) parseMacroParams(m *Macro, scope *paramScope) bool {
	vaArgs := pp.env.Syms.SymbolString("__VA_ARGS__")
	if pp.nextNoBlanks().Kind == RPAREN {
		return true
	}
	for {
		switch pp.tok.Kind {
		case ELLIPSIS:
			m.Variadic = true
			p := &ParamDecl{Sym: vaArgs, Index: len(m.Params), Variadic: true}
			m.Params = append(m.Params, p)
			scope.bind(p)
			if pp.nextNoBlanks().Kind != RPAREN {
				pp.rep.Error(pp.tok.Range, "Expected ')' after '...' in macro parameter list")
				return false
			}
			return true
		case IDENT:
			sym := pp.tok.Sym
			if sym.param() != nil {
				pp.rep.Error(pp.tok.Range, "Duplicated macro parameter '%s'", sym)
				return false
			}
			if sym == vaArgs {
				pp.rep.Error(pp.tok.Range, "'__VA_ARGS__' must only appear in a variadic macro")
				return false
			}
			p := &ParamDecl{Sym: sym, Index: len(m.Params)}
			m.Params = append(m.Params, p)
			scope.bind(p)
			if pp.nextNoBlanks().Kind == ELLIPSIS && pp.opts.GCCExtensions {
				m.Variadic = true
				p.Variadic = true
				if pp.nextNoBlanks().Kind != RPAREN {
					pp.rep.Error(pp.tok.Range, "Expected ')' after '...' in macro parameter list")
					return false
				}
				return true
			}
		default:
			pp.rep.Error(pp.tok.Range, "Macro parameter name expected")
			return false
		}
		switch pp.tok.Kind {
		case RPAREN:
			return true
		case COMMA:
			pp.nextNoBlanks()
		default:
			pp.rep.Error(pp.tok.Range, "Missing closing ')' in macro parameter list")
			return false
		}
	}
}

// parseMacroReplacementList reads the body of m starting at the current
// token. Parameters become MACRO_PARAM tokens, '#' is folded into the
// parameter it applies to and runs of '##' into a single CONCAT token.
func (pp *Preprocessor) parseMacroReplacementList(m *Macro) bool {
	body := m.body
	m.BodyRange = pp.tok.Range
	vaArgs := pp.env.Syms.SymbolString("__VA_ARGS__")
	// Index of the CONCAT token the next operand belongs to.
	pendingConcat := noToken

	for ; !isEOL(pp.tok); pp.nextNoBlanks() {
		m.BodyRange.Extend(pp.tok.Range)
		wsBefore := pp.skippedWs != nil
		tok := *pp.tok
		switch {
		case tok.Kind == IDENT && tok.Sym.param() != nil:
			tok.Kind = MACRO_PARAM
			tok.Param = tok.Sym.param()
		case tok.Kind == IDENT && tok.Sym == vaArgs:
			pp.rep.Error(tok.Range, "'__VA_ARGS__' must only appear in a variadic macro")
			return false
		case tok.Kind == HASH && m.FuncLike:
			if pp.nextNoBlanks().Kind != IDENT || pp.tok.Sym.param() == nil {
				pp.rep.Error(tok.Range, "'#' must be followed by a macro parameter")
				return false
			}
			m.BodyRange.Extend(pp.tok.Range)
			tok = *pp.tok
			tok.Kind = MACRO_PARAM
			tok.Param = tok.Sym.param()
			tok.Stringify = true
		case tok.Kind == HASHHASH:
			last := body.last()
			if last == noToken {
				pp.rep.Error(tok.Range, "'##' can only occur between two tokens")
				return false
			}
			if pendingConcat != noToken {
				// a ## ## b, the second operand is still missing.
				pp.rep.Error(tok.Range, "'##' can only occur between two tokens")
				return false
			}
			if body.at(last).Kind != CONCAT {
				lhs := body.removeLast()
				last = body.append(Token{Kind: CONCAT, Range: lhs.Range, Concat: []Token{lhs}})
			}
			pendingConcat = last
			continue
		}

		if pendingConcat != noToken {
			c := body.at(pendingConcat)
			c.Concat = append(c.Concat, tok)
			c.Range.Extend(tok.Range)
			pendingConcat = noToken
			continue
		}
		if wsBefore && !body.isEmpty() {
			body.append(Token{Kind: WHITESPACE, Range: tok.Range})
		}
		body.append(tok)
	}
	if pendingConcat != noToken {
		pp.rep.Error(body.at(pendingConcat).Range, "'##' can only occur between two tokens")
		return false
	}
	return true
}

func (pp *Preprocessor) parseUndef() {
	if pp.nextNoBlanks().Kind != IDENT {
		pp.rep.Error(pp.tok.Range, "Macro name expected after #undef")
		pp.skipUntilEOL()
		return
	}
	sym := pp.tok.Sym
	switch m := sym.Macro(); {
	case m == nil:
		if pp.opts.WarnUndef {
			pp.rep.Warning(pp.tok.Range, "'%s' is not defined", sym)
		}
	case m.builtin != notBuiltin:
		pp.rep.Warning(pp.tok.Range, "undefining builtin macro '%s'", sym)
		sym.decl = nil
	default:
		sym.decl = nil
	}
	pp.nextNoBlanks()
	pp.checkEOL("undef")
}

// parseLine handles "#line N "file"" and, when marker is set, GCC's
// "# N "file" flags". The current token is the directive name or the line
// number.
func (pp *Preprocessor) parseLine(marker bool) {
	name := "line"
	if !marker {
		pp.nextExpandNoBlanks()
	}
	if pp.tok.Kind != INT_CONSTANT || !isDigits(pp.tok.Text) {
		pp.rep.Error(pp.tok.Range, "#%s requires a positive integer argument", name)
		pp.skipUntilEOL()
		return
	}
	n, err := strconv.ParseUint(string(pp.tok.Text), 10, 31)
	if err != nil || n == 0 {
		pp.rep.Error(pp.tok.Range, "line number out of range in #%s", name)
		pp.skipUntilEOL()
		return
	}
	fname := ""
	if pp.nextExpandNoBlanks().Kind == STRING {
		fname = string(pp.tok.Str)
		pp.nextExpandNoBlanks()
	}
	if marker {
		for pp.tok.Kind == INT_CONSTANT {
			pp.nextNoBlanks()
		}
	}
	pp.checkEOL(name)

	// The line after the directive gets number n.
	physical := pp.tok.Range.Begin.Line - pp.lineAdjust
	pp.lineAdjust = int(n) - (physical + 1)
	if fname != "" {
		pp.lx.SetFileName(fname)
	}
}

func isDigits(b []byte) bool {
	for _, c := range b {
		if !isDigit(c) {
			return false
		}
	}
	return len(b) > 0
}

func (pp *Preprocessor) parseInclude(rng SourceRange) {
	pp.lx.parseInclude = pp.ctx == nil && len(pp.laQueue) == 0
	pp.nextNoBlanks()
	pp.lx.parseInclude = false

	var name string
	angled := false
	switch pp.tok.Kind {
	case STRING:
		name = string(pp.tok.Str)
		pp.nextNoBlanks()
	case HEADER:
		name = string(pp.tok.Str)
		angled = true
		pp.nextNoBlanks()
	default:
		// #include MACRO
		pp.curExpandWithBlanks()
		for pp.tok.Kind == WHITESPACE {
			pp.nextExpandWithBlanks()
		}
		switch pp.tok.Kind {
		case STRING:
			name = string(pp.tok.Str)
			pp.nextExpandNoBlanks()
		case LSS:
			var buf bytes.Buffer
			for pp.nextExpandWithBlanks().Kind != GTR {
				if isEOL(pp.tok) {
					pp.rep.Error(rng, "Missing '>' in #include")
					return
				}
				pp.tok.writeVal(&buf)
			}
			name = buf.String()
			angled = true
			pp.nextExpandNoBlanks()
		default:
			pp.rep.Error(pp.tok.Range, "#include expects \"FILENAME\" or <FILENAME>")
			pp.skipUntilEOL()
			return
		}
	}
	pp.checkEOL("include")
	rng.Extend(pp.tok.Range)
	if pp.tok.Kind == EOF {
		// The included file must be read before the includer ends.
		nl := *pp.tok
		nl.Kind = NEWLINE
		pp.tok = &nl
	}

	if name == "" {
		pp.rep.Error(rng, "Empty filename in #include")
		return
	}
	if len(pp.includes) >= pp.opts.MaxIncludeDepth {
		pp.rep.Error(rng, "#include nested too deeply")
		return
	}
	var res IncludeResult
	var found bool
	if angled {
		res, found = pp.is.SearchAngled(name)
	} else {
		res, found = pp.is.SearchQuoted(pp.lx.ActualFileName(), name)
	}
	if !found {
		pp.rep.Error(rng, "Can't find include file '%s'", name)
		return
	}
	rc, err := pp.is.Open(res.Path)
	if err != nil {
		panic(&breakout{ErrWithLoc(errors.Wrapf(err, "opening include file '%s'", name), rng.Begin)})
	}
	pp.pushInclude(Lex(res.Path, rc, pp.env), rc)
}

func (pp *Preprocessor) pushInclude(lx *Lexer, closer io.Closer) {
	pp.includes = append(pp.includes, includedFile{
		lx:         pp.lx,
		closer:     pp.closer,
		lineAdjust: pp.lineAdjust,
		condDepth:  pp.condDepth(),
	})
	pp.lx = lx
	pp.closer = closer
	pp.lineAdjust = 0
}

// IncludeDepth is the number of files currently being included.
func (pp *Preprocessor) IncludeDepth() int {
	return len(pp.includes)
}
