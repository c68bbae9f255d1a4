package cpp

import (
	"bytes"
)

type ctxState int

const (
	// Walking the macro body.
	stateMacro ctxState = iota
	// Returning the tokens of a token list, usually an expanded argument.
	stateList
	// Returning the already computed result of a ## sequence.
	stateQueue
)

// context is one source of tokens on the expansion stack: the replacement
// list of a macro being rescanned together with the arguments it was
// invoked with, or a plain list of tokens.
type context struct {
	pp     *Preprocessor
	pos    SourceRange
	hasPos bool
	macro  *Macro
	args   []*macroArg

	state    ctxState
	body     *tokenList
	next     int
	list     *tokenList
	listNext int
	queue    []*Token
}

func newMacroContext(pp *Preprocessor, pos SourceRange, m *Macro, args []*macroArg) *context {
	return &context{
		pp:       pp,
		pos:      pos,
		hasPos:   true,
		macro:    m,
		args:     args,
		state:    stateMacro,
		body:     m.body,
		next:     m.body.first(),
		listNext: noToken,
	}
}

func newListContext(pp *Preprocessor, l *tokenList) *context {
	return &context{
		pp:       pp,
		state:    stateList,
		next:     noToken,
		list:     l,
		listNext: l.first(),
	}
}

func (c *context) arg(p *ParamDecl) *macroArg {
	if p.Index < len(c.args) {
		return c.args[p.Index]
	}
	return nil
}

// nextToken returns a fresh token, or nil once the context is exhausted, at
// which point it has removed itself from the stack.
func (c *context) nextToken() *Token {
	t := c.step()
	if t == nil {
		return nil
	}
	if c.hasPos {
		t.Range = c.pos
	}
	if t.Kind == IDENT && !t.NoExpand {
		if m := t.Sym.Macro(); m != nil && m.expanding {
			t.NoExpand = true
		}
	}
	return t
}

func (c *context) step() *Token {
	for {
		switch c.state {
		case stateQueue:
			if len(c.queue) > 0 {
				t := c.queue[0]
				c.queue = c.queue[1:]
				return t
			}
			c.state = stateMacro
		case stateList:
			if c.listNext != noToken {
				t := c.list.at(c.listNext).copy()
				c.listNext = c.list.next(c.listNext)
				return t
			}
			c.state = stateMacro
		case stateMacro:
			if c.next == noToken {
				c.pp.popContext(c)
				return nil
			}
			tok := c.body.at(c.next)
			c.next = c.body.next(c.next)
			switch tok.Kind {
			case MACRO_PARAM:
				arg := c.arg(tok.Param)
				if tok.Stringify {
					return c.pp.stringify(arg)
				}
				if arg != nil {
					c.list = arg.expanded
					c.listNext = arg.expanded.first()
					c.state = stateList
				}
			case CONCAT:
				c.queue = c.pp.evalConcat(c, tok.Concat)
				c.state = stateQueue
			default:
				return tok.copy()
			}
		}
	}
}

func (pp *Preprocessor) pushContext(c *context) {
	if c.macro != nil {
		c.macro.expanding = true
	}
	pp.contexts = append(pp.contexts, c)
	pp.ctx = c
}

func (pp *Preprocessor) popContext(c *context) {
	if pp.ctx != c {
		panic("internal error: context stack out of order")
	}
	if c.macro != nil {
		c.macro.expanding = false
	}
	pp.contexts[len(pp.contexts)-1] = nil
	pp.contexts = pp.contexts[:len(pp.contexts)-1]
	pp.ctx = nil
	if n := len(pp.contexts); n > 0 {
		pp.ctx = pp.contexts[n-1]
	}
}

// possiblyExpandMacro starts the expansion of tok if it names a macro that
// may be expanded here. On success the replacement is on the context stack
// and the caller should fetch the next token.
func (pp *Preprocessor) possiblyExpandMacro(tok *Token) bool {
	if tok.NoExpand {
		return false
	}
	m := tok.Sym.Macro()
	if m == nil {
		return false
	}
	if m.expanding {
		tok.NoExpand = true
		return false
	}
	if m.builtin != notBuiltin {
		pp.expandBuiltin(tok, m)
		return true
	}
	if m.FuncLike {
		if pp.lookAheadForLParen().Kind != LPAREN {
			return false
		}
		return pp.expandFuncMacro(tok, m)
	}
	pp.pushContext(newMacroContext(pp, tok.Range, m, nil))
	return true
}

func isBlank(t *Token) bool {
	return t.Kind == WHITESPACE || t.Kind == NEWLINE
}

// lookAheadForLParen returns the next token that is not whitespace or a
// newline without consuming anything. Exhausted contexts are popped on the
// way. A directive on a following line stops the search.
func (pp *Preprocessor) lookAheadForLParen() *Token {
	for _, t := range pp.laQueue {
		if !isBlank(t) {
			return t
		}
	}
	for pp.ctx != nil {
		t := pp.ctx.nextToken()
		if t == nil {
			continue
		}
		pp.laQueue = append(pp.laQueue, t)
		if !isBlank(t) {
			return t
		}
	}
	for d := 0; ; d++ {
		if t := pp.lx.lookAhead(d); !isBlank(t) {
			return t
		}
	}
}

// expandFuncMacro collects the arguments of an invocation of m named by tok.
// When the argument count is wrong the invocation is replaced by the macro
// name alone.
func (pp *Preprocessor) expandFuncMacro(tok *Token, m *Macro) bool {
	pos := tok.Range
	pp.nextNoNewLineOrBlanks() // the '('
	pp.nextNoNewLineOrBlanks()
	leadingWs := pp.skippedWs != nil

	var args []*macroArg
	if pp.tok.Kind != RPAREN || len(m.Params) > 0 {
		for {
			arg := &macroArg{original: pp.parseMacroArg(), leadingWs: leadingWs}
			arg.expanded = pp.expandTokens(arg.original)
			args = append(args, arg)
			if pp.tok.Kind == RPAREN {
				break
			}
			if pp.tok.Kind == EOF {
				pp.rep.Error(pos, "Unterminated argument list for macro '%s'", m.Sym)
				return false
			}
			pp.nextNoNewLineOrBlanks()
			leadingWs = pp.skippedWs != nil
		}
	}
	pos.Extend(pp.tok.Range)
	if !pp.expand(pos, m, args) {
		name := tok.copy()
		name.NoExpand = true
		pp.tok = name
		return false
	}
	return true
}

// parseMacroArg collects the tokens of one argument, starting at the
// current token and stopping at the ',' or ')' that ends it. Whitespace
// runs inside the argument become a single space.
func (pp *Preprocessor) parseMacroArg() *tokenList {
	l := newTokenList()
	depth := 0
	pp.skippedWs = nil
	for ; ; pp.nextNoNewLineOrBlanks() {
		switch pp.tok.Kind {
		case EOF:
			return l
		case COMMA:
			if depth == 0 {
				return l
			}
		case LPAREN:
			depth++
		case RPAREN:
			if depth == 0 {
				return l
			}
			depth--
		}
		if pp.skippedWs != nil && !l.isEmpty() {
			ws := *pp.skippedWs
			ws.Kind = WHITESPACE
			l.append(ws)
		}
		l.append(*pp.tok)
	}
}

// expandTokens fully macro expands a list of tokens on its own, without
// reading anything past its end.
func (pp *Preprocessor) expandTokens(l *tokenList) *tokenList {
	saveTok := pp.tok
	saveWs := pp.skippedWs
	ret := newTokenList()

	eof := Token{Kind: EOF}
	l.append(eof)
	pp.pushContext(newListContext(pp, l))
	for pp.nextExpandWithBlanks().Kind != EOF {
		ret.append(*pp.tok)
	}
	l.removeLast()

	pp.tok = saveTok
	pp.skippedWs = saveWs
	return ret
}

// expand checks the argument count and pushes the replacement of m.
func (pp *Preprocessor) expand(pos SourceRange, m *Macro, args []*macroArg) bool {
	expected := len(m.Params)
	if m.Variadic {
		expected--
	}
	if len(args) < expected || (len(args) > expected && !m.Variadic) {
		pp.rep.Error(pos, "macro '%s' requires %d arguments but %d supplied", m.Sym, expected, len(args))
		return false
	}
	if m.Variadic && len(args) > len(m.Params) {
		va := args[len(m.Params)-1]
		for _, extra := range args[len(m.Params):] {
			comma := Token{Kind: COMMA, Range: pos}
			va.original.append(comma)
			va.expanded.append(comma)
			if extra.leadingWs {
				ws := Token{Kind: WHITESPACE, Range: pos}
				va.original.append(ws)
				va.expanded.append(ws)
			}
			va.original.appendList(extra.original)
			va.expanded.appendList(extra.expanded)
		}
		args = args[:len(m.Params)]
	}
	pp.pushContext(newMacroContext(pp, pos, m, args))
	return true
}

func (pp *Preprocessor) expandBuiltin(tok *Token, m *Macro) {
	t := Token{Range: tok.Range}
	switch m.builtin {
	case builtinLine:
		line := NewIntC(pp.env.Types.Spec(SInt)).SetInt64(int64(tok.Range.Begin.Line))
		t.Kind = INT_CONSTANT
		t.Value = line
		t.Text = []byte(line.String())
	case builtinFile:
		t.Kind = STRING
		t.Str = []byte(tok.Range.Begin.File)
		t.Text = quoteString(t.Str)
	case builtinDate:
		t.Kind = STRING
		t.Str = []byte(pp.date)
		t.Text = quoteString(t.Str)
	case builtinTime:
		t.Kind = STRING
		t.Str = []byte(pp.time)
		t.Text = quoteString(t.Str)
	}
	l := newTokenList()
	l.append(t)
	pp.pushContext(newListContext(pp, l))
}

// stringify implements the # operator on the argument as written.
func (pp *Preprocessor) stringify(arg *macroArg) *Token {
	var raw, text bytes.Buffer
	text.WriteByte('"')
	if arg != nil {
		for i := arg.original.first(); i != noToken; i = arg.original.next(i) {
			t := arg.original.at(i)
			v := t.Val()
			raw.WriteString(v)
			if t.Kind != STRING && t.Kind != CHAR_CONSTANT {
				text.WriteString(v)
				continue
			}
			for j := 0; j < len(v); j++ {
				if v[j] == '"' || v[j] == '\\' {
					text.WriteByte('\\')
				}
				text.WriteByte(v[j])
			}
		}
	}
	text.WriteByte('"')
	return &Token{Kind: STRING, Text: text.Bytes(), Str: raw.Bytes()}
}

// evalConcat computes the result of a ## sequence. Parameters contribute
// their arguments as written. The last token of each operand is pasted
// with the first token of the next one, empty operands disappear.
func (pp *Preprocessor) evalConcat(c *context, children []Token) []*Token {
	var out []*Token
	var lhs *Token
	for i := 0; i < len(children); i++ {
		child := &children[i]
		var operands []*Token
		switch {
		case pp.opts.GCCExtensions && child.Kind == COMMA && i+1 < len(children) && isVaParam(&children[i+1]):
			// GCC: "fmt, ## __VA_ARGS__" drops the comma when no variable
			// arguments are given.
			i++
			arg := c.arg(children[i].Param)
			if arg == nil {
				continue
			}
			operands = append(operands, child.copy())
			for j := arg.expanded.first(); j != noToken; j = arg.expanded.next(j) {
				operands = append(operands, arg.expanded.at(j).copy())
			}
		case child.Kind == MACRO_PARAM && child.Stringify:
			operands = append(operands, pp.stringify(c.arg(child.Param)))
		case child.Kind == MACRO_PARAM:
			if arg := c.arg(child.Param); arg != nil {
				for j := arg.original.first(); j != noToken; j = arg.original.next(j) {
					operands = append(operands, arg.original.at(j).copy())
				}
			}
		default:
			operands = append(operands, child.copy())
		}
		if len(operands) == 0 {
			continue
		}
		if lhs != nil {
			if pasted := pp.pasteTokens(c.pos, lhs, operands[0]); pasted != nil {
				operands[0] = pasted
			} else {
				out = append(out, lhs)
			}
		}
		out = append(out, operands[:len(operands)-1]...)
		lhs = operands[len(operands)-1]
	}
	if lhs != nil {
		out = append(out, lhs)
	}
	return out
}

func isVaParam(t *Token) bool {
	return t.Kind == MACRO_PARAM && t.Param.Variadic && !t.Stringify
}

// pasteTokens joins the spellings of a and b and lexes the result, which
// must be exactly one token.
func (pp *Preprocessor) pasteTokens(rng SourceRange, a, b *Token) *Token {
	av, bv := a.Val(), b.Val()
	lx := Lex(rng.Begin.File, bytes.NewReader([]byte(av+bv)), pp.env)
	lx.rep = nopReporter{}
	t := lx.next()
	if lx.errCount > 0 || t.Kind == EOF || isBlank(t) || lx.lookAhead(0).Kind != EOF {
		pp.rep.Error(rng, "Combining \"%s\" and \"%s\" does not produce a valid token", av, bv)
		return nil
	}
	t.Range = rng
	return t
}
