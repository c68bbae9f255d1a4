package cpp

import (
	"bytes"
	"fmt"
)

// The list of tokens.
const (

	// Single char tokens are themselves.
	ADD       = '+'
	SUB       = '-'
	MUL       = '*'
	QUO       = '/'
	REM       = '%'
	AND       = '&'
	OR        = '|'
	XOR       = '^'
	QUESTION  = '?'
	HASH      = '#'
	LSS       = '<'
	GTR       = '>'
	ASSIGN    = '='
	NOT       = '!'
	BNOT      = '~'
	LPAREN    = '('
	LBRACK    = '['
	LBRACE    = '{'
	COMMA     = ','
	PERIOD    = '.'
	RPAREN    = ')'
	RBRACK    = ']'
	RBRACE    = '}'
	SEMICOLON = ';'
	COLON     = ':'

	EOF = 10000 + iota
	WHITESPACE
	NEWLINE
	// Anything that is not a valid pp token, one byte at a time.
	OTHER
	HEADER // <stdio.h> after #include

	// Identifiers and basic type literals
	// (these tokens stand for classes of literals)
	IDENT          // main
	INT_CONSTANT   // 12345
	FLOAT_CONSTANT // 123.45
	CHAR_CONSTANT  // 'a'
	STRING         // "abc"

	SHL        // <<
	SHR        // >>
	ADD_ASSIGN // +=
	SUB_ASSIGN // -=
	MUL_ASSIGN // *=
	QUO_ASSIGN // /=
	REM_ASSIGN // %=
	AND_ASSIGN // &=
	OR_ASSIGN  // |=
	XOR_ASSIGN // ^=
	SHL_ASSIGN // <<=
	SHR_ASSIGN // >>=
	LAND       // &&
	LOR        // ||
	ARROW      // ->
	INC        // ++
	DEC        // --
	EQL        // ==
	NEQ        // !=
	LEQ        // <=
	GEQ        // >=
	ELLIPSIS   // ...
	HASHHASH   // ##

	// Only found in macro bodies.
	MACRO_PARAM
	CONCAT

	// Keywords
	AUTO
	REGISTER
	EXTERN
	STATIC
	INLINE
	SHORT
	BREAK
	CASE
	DO
	CONST
	RESTRICT
	CONTINUE
	DEFAULT
	ELSE
	ENUM
	FOR
	WHILE
	GOTO
	IF
	RETURN
	STRUCT
	UNION
	VOLATILE
	SWITCH
	TYPEDEF
	SIZEOF
	VOID
	CHAR
	INT
	FLOAT
	DOUBLE
	SIGNED
	UNSIGNED
	LONG
	BOOL
	COMPLEX
	IMAGINARY

	// An identifier declared by typedef. Only produced by the parser's
	// token stream.
	TYPENAME
)

var tokenKindToStr = [...]string{
	HASH:           "'#'",
	HASHHASH:       "'##'",
	EOF:            "EOF",
	WHITESPACE:     "whitespace",
	NEWLINE:        "newline",
	OTHER:          "other",
	HEADER:         "header",
	CHAR_CONSTANT:  "charconst",
	INT_CONSTANT:   "intconst",
	FLOAT_CONSTANT: "floatconst",
	IDENT:          "ident",
	STRING:         "string",
	MACRO_PARAM:    "param",
	CONCAT:         "concat",
	ADD:            "'+'",
	SUB:            "'-'",
	MUL:            "'*'",
	QUO:            "'/'",
	REM:            "'%'",
	AND:            "'&'",
	OR:             "'|'",
	XOR:            "'^'",
	SHL:            "'<<'",
	SHR:            "'>>'",
	ADD_ASSIGN:     "'+='",
	SUB_ASSIGN:     "'-='",
	MUL_ASSIGN:     "'*='",
	QUO_ASSIGN:     "'/='",
	REM_ASSIGN:     "'%='",
	AND_ASSIGN:     "'&='",
	OR_ASSIGN:      "'|='",
	XOR_ASSIGN:     "'^='",
	SHL_ASSIGN:     "'<<='",
	SHR_ASSIGN:     "'>>='",
	LAND:           "'&&'",
	LOR:            "'||'",
	ARROW:          "'->'",
	INC:            "'++'",
	DEC:            "'--'",
	EQL:            "'=='",
	LSS:            "'<'",
	GTR:            "'>'",
	ASSIGN:         "'='",
	NOT:            "'!'",
	BNOT:           "'~'",
	NEQ:            "'!='",
	LEQ:            "'<='",
	GEQ:            "'>='",
	ELLIPSIS:       "'...'",
	LPAREN:         "'('",
	LBRACK:         "'['",
	LBRACE:         "'{'",
	COMMA:          "','",
	PERIOD:         "'.'",
	RPAREN:         "')'",
	RBRACK:         "']'",
	RBRACE:         "'}'",
	SEMICOLON:      "';'",
	COLON:          "':'",
	QUESTION:       "'?'",
	AUTO:           "auto",
	REGISTER:       "register",
	EXTERN:         "extern",
	STATIC:         "static",
	INLINE:         "inline",
	SHORT:          "short",
	BREAK:          "break",
	CASE:           "case",
	DO:             "do",
	CONST:          "const",
	RESTRICT:       "restrict",
	CONTINUE:       "continue",
	DEFAULT:        "default",
	ELSE:           "else",
	ENUM:           "enum",
	FOR:            "for",
	WHILE:          "while",
	GOTO:           "goto",
	IF:             "if",
	RETURN:         "return",
	STRUCT:         "struct",
	UNION:          "union",
	VOLATILE:       "volatile",
	SWITCH:         "switch",
	TYPEDEF:        "typedef",
	SIZEOF:         "sizeof",
	VOID:           "void",
	CHAR:           "char",
	INT:            "int",
	FLOAT:          "float",
	DOUBLE:         "double",
	SIGNED:         "signed",
	UNSIGNED:       "unsigned",
	LONG:           "long",
	BOOL:           "_Bool",
	COMPLEX:        "_Complex",
	IMAGINARY:      "_Imaginary",
	TYPENAME:       "typename",
}

// Keywords maps every C99 keyword spelling to its token kind.
var Keywords = map[string]TokenKind{
	"auto":       AUTO,
	"break":      BREAK,
	"case":       CASE,
	"char":       CHAR,
	"const":      CONST,
	"continue":   CONTINUE,
	"default":    DEFAULT,
	"do":         DO,
	"double":     DOUBLE,
	"else":       ELSE,
	"enum":       ENUM,
	"extern":     EXTERN,
	"float":      FLOAT,
	"for":        FOR,
	"goto":       GOTO,
	"if":         IF,
	"inline":     INLINE,
	"int":        INT,
	"long":       LONG,
	"register":   REGISTER,
	"restrict":   RESTRICT,
	"return":     RETURN,
	"short":      SHORT,
	"signed":     SIGNED,
	"sizeof":     SIZEOF,
	"static":     STATIC,
	"struct":     STRUCT,
	"switch":     SWITCH,
	"typedef":    TYPEDEF,
	"union":      UNION,
	"unsigned":   UNSIGNED,
	"void":       VOID,
	"volatile":   VOLATILE,
	"while":      WHILE,
	"_Bool":      BOOL,
	"_Complex":   COMPLEX,
	"_Imaginary": IMAGINARY,
}

type TokenKind uint32

func (tk TokenKind) String() string {
	if uint32(tk) >= uint32(len(tokenKindToStr)) {
		return "Unknown"
	}
	ret := tokenKindToStr[tk]
	if ret == "" {
		return "Unknown"
	}
	return ret
}

// IsPunctuator reports whether tk is spelled the same way every time.
func (tk TokenKind) IsPunctuator() bool {
	if tk < EOF {
		return true
	}
	return tk >= SHL && tk <= HASHHASH
}

// spelling returns the primary text of a punctuator.
func (tk TokenKind) spelling() string {
	s := tk.String()
	if len(s) >= 2 && s[0] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}

// Token represents a grouping of characters
// that provide semantic meaning in a C program.
type Token struct {
	Kind  TokenKind
	Range SourceRange
	// Identifier spelling. Only for IDENT and MACRO_PARAM.
	Sym *Symbol
	// Source spelling of numbers, character and string constants, headers
	// and OTHER. Punctuators have it only when written as a digraph.
	Text []byte
	// Decoded contents of STRING and HEADER tokens.
	Str []byte
	// Value of INT_CONSTANT, FLOAT_CONSTANT and CHAR_CONSTANT.
	Value Constant

	Param     *ParamDecl
	Stringify bool
	Concat    []Token

	// NoExpand marks an identifier that named a macro while that macro was
	// being expanded. It is never expanded again.
	NoExpand bool
}

func (t *Token) Pos() FilePos {
	return t.Range.Begin
}

func (t *Token) copy() *Token {
	ret := *t
	return &ret
}

// Val returns the token's spelling as it would be written back out.
func (t *Token) Val() string {
	var buf bytes.Buffer
	t.writeVal(&buf)
	return buf.String()
}

func (t *Token) writeVal(buf *bytes.Buffer) {
	switch t.Kind {
	case EOF, NEWLINE:
	case WHITESPACE:
		buf.WriteByte(' ')
	case IDENT, TYPENAME:
		buf.Write(t.Sym.Name)
	case MACRO_PARAM:
		if t.Stringify {
			buf.WriteByte('#')
		}
		buf.Write(t.Param.Sym.Name)
	case CONCAT:
		for i := range t.Concat {
			if i > 0 {
				buf.WriteString(" ## ")
			}
			t.Concat[i].writeVal(buf)
		}
	case INT_CONSTANT, FLOAT_CONSTANT, CHAR_CONSTANT, STRING, HEADER, OTHER:
		buf.Write(t.Text)
	default:
		if t.Text != nil {
			buf.Write(t.Text)
			return
		}
		buf.WriteString(t.Kind.spelling())
	}
}

// same reports whether two tokens are identical for the purpose of
// comparing macro definitions.
func (t *Token) same(o *Token) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case IDENT:
		return t.Sym == o.Sym
	case MACRO_PARAM:
		return t.Param.Index == o.Param.Index && t.Stringify == o.Stringify
	case CONCAT:
		if len(t.Concat) != len(o.Concat) {
			return false
		}
		for i := range t.Concat {
			if !t.Concat[i].same(&o.Concat[i]) {
				return false
			}
		}
		return true
	case INT_CONSTANT, FLOAT_CONSTANT, CHAR_CONSTANT, STRING, HEADER, OTHER:
		return bytes.Equal(t.Text, o.Text)
	}
	if t.Kind.IsPunctuator() {
		return bytes.Equal(t.Text, o.Text)
	}
	return true
}

func (t *Token) String() string {
	return fmt.Sprintf("%s at %s", t.Val(), t.Pos())
}
