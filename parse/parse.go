package parse

import (
	"github.com/andrewchambers/c99pp/cpp"
	"github.com/pkg/errors"
)

// TokenStream turns preprocessing tokens into the tokens a C grammar
// consumes. Blanks are dropped, keywords and typedef names are classified,
// character constants become int constants and adjacent string literals
// are joined into one.
type TokenStream struct {
	pp  *cpp.Preprocessor
	rep cpp.Reporter

	types *scope
	// Read ahead while joining string literals.
	nextt *cpp.Token
}

type parseErrorBreakOut struct {
	err error
}

func NewTokenStream(pp *cpp.Preprocessor) *TokenStream {
	env := pp.Env()
	for name, kind := range cpp.Keywords {
		env.Syms.SymbolString(name).Keyword = kind
	}
	return &TokenStream{
		pp:    pp,
		rep:   env.Reporter,
		types: newScope(nil),
	}
}

// Next returns the next token for the parser. The error is only set when
// reading the input failed.
func (ts *TokenStream) Next() (t *cpp.Token, errRet error) {
	defer func() {
		if e := recover(); e != nil {
			peb := e.(parseErrorBreakOut) // Will re-panic if not a breakout.
			errRet = peb.err
		}
	}()
	for {
		t = ts.read()
		switch t.Kind {
		case cpp.IDENT:
			return ts.classify(t), nil
		case cpp.CHAR_CONSTANT:
			t.Kind = cpp.INT_CONSTANT
			return t, nil
		case cpp.STRING:
			return ts.joinStrings(t), nil
		case cpp.HASH, cpp.HASHHASH, cpp.OTHER:
			ts.rep.Error(t.Range, "Unrecognized symbol '%s'", t.Val())
			continue
		}
		return t, nil
	}
}

func (ts *TokenStream) error(err error) {
	panic(parseErrorBreakOut{errors.Wrap(err, "preprocessing failed")})
}

// read returns the next non blank token, either the one held back or a
// fresh one from the preprocessor.
func (ts *TokenStream) read() *cpp.Token {
	if t := ts.nextt; t != nil {
		ts.nextt = nil
		return t
	}
	for {
		t, err := ts.pp.Next()
		if err != nil {
			ts.error(err)
		}
		if t.Kind != cpp.WHITESPACE && t.Kind != cpp.NEWLINE {
			return t
		}
	}
}

func (ts *TokenStream) peek() *cpp.Token {
	if ts.nextt == nil {
		ts.nextt = ts.read()
	}
	return ts.nextt
}

func (ts *TokenStream) classify(t *cpp.Token) *cpp.Token {
	if kw := t.Sym.Keyword; kw != 0 {
		t.Kind = kw
	} else if ts.types.isType(t.Sym) {
		t.Kind = cpp.TYPENAME
	}
	return t
}

func (ts *TokenStream) joinStrings(t *cpp.Token) *cpp.Token {
	if ts.peek().Kind != cpp.STRING {
		return t
	}
	ret := *t
	ret.Str = append([]byte(nil), t.Str...)
	ret.Text = append([]byte(nil), t.Text...)
	for ts.peek().Kind == cpp.STRING {
		s := ts.read()
		ret.Str = append(ret.Str, s.Str...)
		ret.Text = append(append(ret.Text, ' '), s.Text...)
		ret.Range.Union(s.Range)
	}
	return &ret
}

// PushScope opens a block scope for typedef names.
func (ts *TokenStream) PushScope() {
	ts.types = newScope(ts.types)
}

func (ts *TokenStream) PopScope() {
	if ts.types.parent == nil {
		panic("internal error: popping the file scope")
	}
	ts.types = ts.types.parent
}

// DeclareTypedef makes the identifier t a type name in the current scope,
// so later uses come out as TYPENAME.
func (ts *TokenStream) DeclareTypedef(t *cpp.Token) {
	ts.declare(t, true)
}

// DeclareIdent declares t as an ordinary identifier in the current scope,
// hiding any typedef of the same name from outer scopes.
func (ts *TokenStream) DeclareIdent(t *cpp.Token) {
	ts.declare(t, false)
}

func (ts *TokenStream) declare(t *cpp.Token, isType bool) {
	if err := ts.types.define(t.Sym, isType); err != nil {
		ts.rep.Error(t.Range, "%s", err)
	}
}
