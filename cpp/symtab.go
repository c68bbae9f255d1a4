package cpp

import "hash/fnv"

// PPSymCode marks identifiers that have a meaning to the preprocessor
// itself, mostly directive names.
type PPSymCode int

const (
	PPNone PPSymCode = iota
	PPDefine
	PPInclude
	PPLine
	PPIf
	PPIfdef
	PPIfndef
	PPElse
	PPElif
	PPEndif
	PPDefined
	PPUndef
	PPError
	PPWarning
	PPPragma
	PPVaArgs
)

var ppSymCodes = [...]struct {
	name string
	code PPSymCode
}{
	{"define", PPDefine},
	{"include", PPInclude},
	{"line", PPLine},
	{"if", PPIf},
	{"ifdef", PPIfdef},
	{"ifndef", PPIfndef},
	{"else", PPElse},
	{"elif", PPElif},
	{"endif", PPEndif},
	{"defined", PPDefined},
	{"undef", PPUndef},
	{"error", PPError},
	{"warning", PPWarning},
	{"pragma", PPPragma},
	{"__VA_ARGS__", PPVaArgs},
}

// Symbol is the single interned instance of an identifier spelling.
// Symbols are compared by pointer.
type Symbol struct {
	Name []byte
	// FNV-1a hash of Name.
	Hash uint32
	Code PPSymCode
	// Keyword is the C keyword this spelling denotes, if any. The
	// preprocessor never looks at it.
	Keyword TokenKind

	// decl is nil, a *Macro or a *ParamDecl.
	decl interface{}
}

func (s *Symbol) String() string {
	return string(s.Name)
}

// Macro returns the macro currently bound to the symbol.
func (s *Symbol) Macro() *Macro {
	m, _ := s.decl.(*Macro)
	return m
}

func (s *Symbol) param() *ParamDecl {
	p, _ := s.decl.(*ParamDecl)
	return p
}

type SymbolTable struct {
	syms map[string]*Symbol
}

func NewSymbolTable() *SymbolTable {
	st := &SymbolTable{syms: make(map[string]*Symbol)}
	for _, c := range ppSymCodes {
		st.SymbolString(c.name).Code = c.code
	}
	return st
}

// Symbol interns name. The bytes are copied, so callers may reuse them.
func (st *SymbolTable) Symbol(name []byte) *Symbol {
	if sym, ok := st.syms[string(name)]; ok {
		return sym
	}
	h := fnv.New32a()
	h.Write(name)
	sym := &Symbol{Name: append([]byte(nil), name...), Hash: h.Sum32()}
	st.syms[string(sym.Name)] = sym
	return sym
}

func (st *SymbolTable) SymbolString(name string) *Symbol {
	return st.Symbol([]byte(name))
}

// Lookup returns the symbol for name without interning it.
func (st *SymbolTable) Lookup(name string) (*Symbol, bool) {
	sym, ok := st.syms[name]
	return sym, ok
}

func (st *SymbolTable) Len() int {
	return len(st.syms)
}
