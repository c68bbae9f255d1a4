package cpp

// Data structures representing macros inside the cpreprocessor.

type builtinKind int

const (
	notBuiltin builtinKind = iota
	builtinLine
	builtinFile
	builtinDate
	builtinTime
)

type Macro struct {
	Sym       *Symbol
	NameRange SourceRange
	BodyRange SourceRange
	FuncLike  bool
	Variadic  bool
	Params    []*ParamDecl

	body    *tokenList
	builtin builtinKind
	// Set while the macro's replacement is being rescanned.
	expanding bool
}

func newMacro(sym *Symbol, nameRange SourceRange) *Macro {
	return &Macro{
		Sym:       sym,
		NameRange: nameRange,
		body:      newTokenList(),
	}
}

// Body returns a copy of the replacement list.
func (m *Macro) Body() []Token {
	return m.body.tokens()
}

func (m *Macro) Builtin() bool {
	return m.builtin != notBuiltin
}

// same reports whether two definitions of a macro are identical.
func (m *Macro) same(o *Macro) bool {
	if m.FuncLike != o.FuncLike || m.Variadic != o.Variadic || m.builtin != o.builtin {
		return false
	}
	if len(m.Params) != len(o.Params) || m.body.len() != o.body.len() {
		return false
	}
	for i := range m.Params {
		if m.Params[i].Sym != o.Params[i].Sym {
			return false
		}
	}
	for i, j := m.body.first(), o.body.first(); i != noToken; i, j = m.body.next(i), o.body.next(j) {
		if !m.body.at(i).same(o.body.at(j)) {
			return false
		}
	}
	return true
}

// ParamDecl is a parameter of a function-like macro. While the macro's
// definition is parsed the parameter is bound to its symbol.
type ParamDecl struct {
	Sym      *Symbol
	Index    int
	Variadic bool

	saved interface{}
}

// paramScope binds parameters to their symbols for the duration of a
// #define. release restores whatever the symbols meant before.
type paramScope struct {
	params []*ParamDecl
}

func (ps *paramScope) bind(p *ParamDecl) {
	p.saved = p.Sym.decl
	p.Sym.decl = p
	ps.params = append(ps.params, p)
}

func (ps *paramScope) release() {
	for i := len(ps.params) - 1; i >= 0; i-- {
		p := ps.params[i]
		p.Sym.decl = p.saved
		p.saved = nil
	}
	ps.params = nil
}

// macroArg is one argument of a macro invocation, as written and after
// full macro expansion.
type macroArg struct {
	original *tokenList
	expanded *tokenList
	// Whitespace preceded the argument in the invocation.
	leadingWs bool
}
