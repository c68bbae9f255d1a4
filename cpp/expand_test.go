package cpp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPreprocessor(src string) (*Preprocessor, *ListReporter) {
	rep := &ListReporter{}
	lx := Lex("test.c", strings.NewReader(src), NewEnv(DefaultTarget(), rep))
	return New(lx, NewSearchPath(), DefaultOptions()), rep
}

func collect(t *testing.T, pp *Preprocessor) []*Token {
	var toks []*Token
	for {
		tok, err := pp.Next()
		require.NoError(t, err)
		if tok.Kind == EOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

// preprocess returns the spelling of every token of src that is not
// whitespace.
func preprocess(t *testing.T, src string) ([]string, *ListReporter) {
	pp, rep := newTestPreprocessor(src)
	var vals []string
	for _, tok := range collect(t, pp) {
		if !isBlank(tok) {
			vals = append(vals, tok.Val())
		}
	}
	return vals, rep
}

// preprocessText returns the output of src with whitespace as single
// spaces and one line per newline token.
func preprocessText(t *testing.T, src string) string {
	pp, _ := newTestPreprocessor(src)
	var sb strings.Builder
	for _, tok := range collect(t, pp) {
		if tok.Kind == NEWLINE {
			sb.WriteByte('\n')
			continue
		}
		sb.WriteString(tok.Val())
	}
	return sb.String()
}

func messages(rep *ListReporter, sev Severity) []string {
	var msgs []string
	for _, d := range rep.Diags {
		if d.Sev == sev {
			msgs = append(msgs, d.Msg)
		}
	}
	return msgs
}

func TestObjectLikeMacro(t *testing.T) {
	pp, rep := newTestPreprocessor("#define A 1\nA\n")
	toks := collect(t, pp)
	require.Len(t, toks, 2)
	assert.Equal(t, TokenKind(NEWLINE), toks[0].Kind)
	assert.Equal(t, TokenKind(INT_CONSTANT), toks[1].Kind)
	assert.Equal(t, "1", toks[1].Val())
	assert.Equal(t, FilePos{"test.c", 2, 1}, toks[1].Pos())
	assert.Empty(t, rep.Diags)
}

func TestRedefinition(t *testing.T) {
	_, rep := preprocess(t, "#define A 1\n#define A 1\n#define A  1 \n")
	assert.Empty(t, rep.Diags)

	_, rep = preprocess(t, "#define A 1\n#define A 2\n")
	require.Len(t, rep.Diags, 1)
	d := rep.Diags[0]
	assert.Equal(t, SevWarning, d.Sev)
	assert.Equal(t, "redefinition of macro 'A' differs from previous definition at test.c:1:9", d.Msg)
	assert.Equal(t, 2, d.Range.Begin.Line)

	toks, rep := preprocess(t, "#define F(a, b) a+b\n#define F(x, y) x+y\n#define F(a, b) a+b\nF(1, 2)\n")
	assert.Equal(t, []string{"1", "+", "2"}, toks)
	assert.Len(t, messages(rep, SevWarning), 2)

	_, rep = preprocess(t, "#define D [\n#define D <:\n")
	assert.Len(t, messages(rep, SevWarning), 1)

	_, rep = preprocess(t, "#define __LINE__ 3\n")
	assert.Equal(t, []string{"redefinition of builtin macro '__LINE__'"}, messages(rep, SevWarning))
}

func TestFunctionLikeNotInvoked(t *testing.T) {
	toks, rep := preprocess(t, "#define F(x) x+1\nF\n")
	assert.Equal(t, []string{"F"}, toks)
	assert.Empty(t, rep.Diags)

	assert.Equal(t, "\nF ;", preprocessText(t, "#define F(x) x+1\nF  ;"))
	assert.Equal(t, "\n1+1", preprocessText(t, "#define F(x) x+1\nF\n(1)"))

	toks, _ = preprocess(t, "#define F(x) x+1\nF\n#define Q\n(2)\n")
	assert.Equal(t, []string{"F", "(", "2", ")"}, toks)

	// The name stays unexpanded even when it ends another expansion.
	toks, _ = preprocess(t, "#define F(x) x+1\n#define G F\nG;\n")
	assert.Equal(t, []string{"F", ";"}, toks)
}

func TestArgumentCollection(t *testing.T) {
	toks, rep := preprocess(t, "#define F(a, b) [a|b]\nF((1, 2), f(3,\n4))\n")
	assert.Equal(t, []string{"[", "(", "1", ",", "2", ")", "|", "f", "(", "3", ",", "4", ")", "]"}, toks)
	assert.Empty(t, rep.Diags)

	toks, _ = preprocess(t, "#define F() x\n#define G(a) [a]\nF() G()\n")
	assert.Equal(t, []string{"x", "[", "]"}, toks)
}

func TestArgumentCountErrors(t *testing.T) {
	toks, rep := preprocess(t, "#define F(a, b) a b\nF(1)\n")
	assert.Equal(t, []string{"macro 'F' requires 2 arguments but 1 supplied"}, messages(rep, SevError))
	assert.Equal(t, []string{"F"}, toks)

	toks, rep = preprocess(t, "#define F(a) a\nx F(1, 2) y\n")
	assert.Equal(t, []string{"macro 'F' requires 1 arguments but 2 supplied"}, messages(rep, SevError))
	assert.Equal(t, []string{"x", "F", "y"}, toks)

	// The name is not expanded again when it is rescanned.
	toks, rep = preprocess(t, "#define F(a) a\n#define G(x) x\nG(F(1, 2))\n")
	assert.Len(t, messages(rep, SevError), 1)
	assert.Equal(t, []string{"F"}, toks)

	toks, rep = preprocess(t, "#define F(a) a\nF(1,\n")
	assert.Equal(t, []string{"Unterminated argument list for macro 'F'"}, messages(rep, SevError))
	assert.Empty(t, toks)
}

func TestStringify(t *testing.T) {
	src := `#define S(x) #x
S(a + b)
S(a+b)
S(  a   +
  b  )
S("q\n" 'c')
S()
`
	toks, rep := preprocess(t, src)
	assert.Equal(t, []string{`"a + b"`, `"a+b"`, `"a + b"`, `"\"q\\n\" 'c'"`, `""`}, toks)
	assert.Empty(t, rep.Diags)

	toks, rep = preprocess(t, "#define S(x) #x\nS(<: a :> %:)\n")
	assert.Equal(t, []string{`"<: a :> %:"`}, toks)
	assert.Empty(t, rep.Diags)

	pp, _ := newTestPreprocessor("#define S(x) #x\nS(\"q\\n\")\n")
	for _, tok := range collect(t, pp) {
		if tok.Kind == STRING {
			assert.Equal(t, `"q\n"`, string(tok.Str))
		}
	}
}

func TestPaste(t *testing.T) {
	pp, rep := newTestPreprocessor("#define P(a,b) a##b\nP(x,y) P(1,2) P(+,=) P(x,) P(,) P(,y)\n")
	var toks []*Token
	for _, tok := range collect(t, pp) {
		if !isBlank(tok) {
			toks = append(toks, tok)
		}
	}
	require.Len(t, toks, 5)
	assert.Equal(t, TokenKind(IDENT), toks[0].Kind)
	assert.Equal(t, "xy", toks[0].Val())
	assert.Equal(t, TokenKind(INT_CONSTANT), toks[1].Kind)
	assert.Equal(t, "12", toks[1].Val())
	assert.Equal(t, TokenKind(ADD_ASSIGN), toks[2].Kind)
	assert.Equal(t, "x", toks[3].Val())
	assert.Equal(t, "y", toks[4].Val())
	assert.Empty(t, rep.Diags)

	vals, rep := preprocess(t, "#define P(a,b) a##b\nP(+,-)\n")
	assert.Equal(t, []string{"+", "-"}, vals)
	assert.Equal(t, []string{`Combining "+" and "-" does not produce a valid token`}, messages(rep, SevError))

	// Only the touching tokens of multi-token operands are pasted.
	vals, _ = preprocess(t, "#define P(a,b) a##b\nP(1 2, 3 4)\n")
	assert.Equal(t, []string{"1", "23", "4"}, vals)

	vals, _ = preprocess(t, "#define P3(a,b,c) a##b##c\nP3(x,,z) P3(,,)\n")
	assert.Equal(t, []string{"xz"}, vals)

	// Arguments of ## are not expanded first.
	vals, _ = preprocess(t, "#define A one\n#define P(a,b) a##b\n#define Q(a,b) P(a,b)\nP(A,B) Q(A,B)\n")
	assert.Equal(t, []string{"AB", "oneB"}, vals)
}

func TestRecursionGuard(t *testing.T) {
	pp, rep := newTestPreprocessor("#define X X\nX\n")
	toks := collect(t, pp)
	require.Len(t, toks, 2)
	x := toks[1]
	assert.Equal(t, "X", x.Val())
	assert.True(t, x.NoExpand)
	assert.Empty(t, rep.Diags)

	vals, _ := preprocess(t, "#define foo a foo b\n#define a foo\nfoo\n")
	assert.Equal(t, []string{"foo", "foo", "b"}, vals)

	// A painted name is never expanded again, even as an argument.
	vals, _ = preprocess(t, "#define f(x) x\n#define g f(g)\ng\n")
	assert.Equal(t, []string{"g"}, vals)

	// A name made by pasting inside its own expansion is painted too.
	pp, _ = newTestPreprocessor("#define CAT(a,b) a##b\n#define AB CAT(A,B)\nAB\n")
	toks = collect(t, pp)
	last := toks[len(toks)-1]
	assert.Equal(t, "AB", last.Val())
	assert.True(t, last.NoExpand)
}

func TestVariadic(t *testing.T) {
	vals, rep := preprocess(t, "#define E(args...) f(args)\nE(1, 2)\n")
	assert.Equal(t, []string{"f", "(", "1", ",", "2", ")"}, vals)
	assert.Empty(t, rep.Diags)

	assert.Equal(t, "\n\nf(1, 2)", preprocessText(t, "#define V(...) __VA_ARGS__\n#define F(...) f(V(__VA_ARGS__))\nF(1, 2)"))
	assert.Equal(t, "\n\"1, 2,3\"", preprocessText(t, "#define S(...) #__VA_ARGS__\nS(1, 2,3)"))

	vals, rep = preprocess(t, "#define F(a, ...) a __VA_ARGS__\nF(1)\n")
	assert.Equal(t, []string{"1"}, vals)
	assert.Empty(t, rep.Diags)
}

func TestCommaElision(t *testing.T) {
	src := "#define P(fmt, ...) f(fmt, ## __VA_ARGS__)\nP(a) P(a, b)\n"
	vals, rep := preprocess(t, src)
	assert.Equal(t, []string{"f", "(", "a", ")", "f", "(", "a", ",", "b", ")"}, vals)
	assert.Empty(t, rep.Diags)

	pp, _ := newTestPreprocessor(src)
	pp.opts.GCCExtensions = false
	var got []string
	for _, tok := range collect(t, pp) {
		if !isBlank(tok) {
			got = append(got, tok.Val())
		}
	}
	assert.Equal(t, []string{"f", "(", "a", ",", ")", "f", "(", "a", ",", "b", ")"}, got)
}

func TestParamScope(t *testing.T) {
	vals, rep := preprocess(t, "#define x 5\n#define F(x) x\nx F(2) x\n")
	assert.Equal(t, []string{"5", "2", "5"}, vals)
	assert.Empty(t, rep.Diags)

	pp, rep := newTestPreprocessor("#define x 5\n#define G(x, x) x\nx\n")
	vals = nil
	for _, tok := range collect(t, pp) {
		if !isBlank(tok) {
			vals = append(vals, tok.Val())
		}
	}
	assert.Equal(t, []string{"5"}, vals)
	assert.Equal(t, []string{"Duplicated macro parameter 'x'"}, messages(rep, SevError))
	_, ok := pp.Macro("G")
	assert.False(t, ok)
	sym, _ := pp.Env().Syms.Lookup("x")
	assert.Nil(t, sym.param())
}

func TestDefineErrors(t *testing.T) {
	tests := []struct {
		src string
		msg string
	}{
		{"#define F(a) # b\n", "'#' must be followed by a macro parameter"},
		{"#define H ## a\n", "'##' can only occur between two tokens"},
		{"#define H a ##\n", "'##' can only occur between two tokens"},
		{"#define H a ## ## b\n", "'##' can only occur between two tokens"},
		{"#define V __VA_ARGS__\n", "'__VA_ARGS__' must only appear in a variadic macro"},
		{"#define F(__VA_ARGS__) 1\n", "'__VA_ARGS__' must only appear in a variadic macro"},
		{"#define defined 1\n", "'defined' cannot be used as a macro name"},
		{"#define 3 1\n", "An identifier macro name expected after #define"},
		{"#define F(a b) 1\n", "Missing closing ')' in macro parameter list"},
		{"#define F(1) 1\n", "Macro parameter name expected"},
		{"#define F(..., a) 1\n", "Expected ')' after '...' in macro parameter list"},
	}
	for _, tc := range tests {
		vals, rep := preprocess(t, tc.src+"next\n")
		assert.Equal(t, []string{tc.msg}, messages(rep, SevError), tc.src)
		assert.Equal(t, []string{"next"}, vals, tc.src)
	}

	// Object-like macros may use # freely.
	vals, rep := preprocess(t, "#define H # x\nH\n")
	assert.Equal(t, []string{"#", "x"}, vals)
	assert.Empty(t, rep.Diags)
}

func TestDefineAndUndef(t *testing.T) {
	pp, rep := newTestPreprocessor("N M\n#undef N\nN\n#undef NOPE\n")
	pp.opts.WarnUndef = true
	pp.Define("N", "42")
	pp.Define("M", "")
	pp.Define("SQ(x)", "((x)*(x))")
	m, ok := pp.Macro("SQ")
	require.True(t, ok)
	assert.True(t, m.FuncLike)
	assert.Len(t, m.Params, 1)
	assert.Len(t, m.Body(), 9)

	var vals []string
	for _, tok := range collect(t, pp) {
		if !isBlank(tok) {
			vals = append(vals, tok.Val())
		}
	}
	assert.Equal(t, []string{"42", "N"}, vals)
	assert.Equal(t, []string{"'NOPE' is not defined"}, messages(rep, SevWarning))

	pp.Undef("M")
	_, ok = pp.Macro("M")
	assert.False(t, ok)
}

func TestBuiltinMacros(t *testing.T) {
	vals, _ := preprocess(t, "__FILE__\n\n__LINE__\n#define L __LINE__\nL\n")
	assert.Equal(t, []string{`"test.c"`, "3", "5"}, vals)

	pp, _ := newTestPreprocessor("__STDC__ __STDC_VERSION__ __STDC_HOSTED__\n")
	for _, name := range []string{"__LINE__", "__FILE__", "__DATE__", "__TIME__"} {
		m, ok := pp.Macro(name)
		require.True(t, ok, name)
		assert.True(t, m.Builtin(), name)
	}
	var got []string
	for _, tok := range collect(t, pp) {
		if !isBlank(tok) {
			got = append(got, tok.Val())
		}
	}
	assert.Equal(t, []string{"1", "199901L", "1"}, got)
}

func TestMiscDirectives(t *testing.T) {
	vals, rep := preprocess(t, "#error stop  here \"now\"\n#warning careful\n#pragma once\n#\n#bogus\n# 7 \"x.c\" 1 3\n__LINE__ __FILE__\n")
	assert.Equal(t, []string{"7", `"x.c"`}, vals)
	assert.Equal(t, []string{`#error stop here "now"`, "Invalid preprocessor directive #bogus"}, messages(rep, SevError))
	assert.Equal(t, []string{"#warning careful", "Ignoring unsupported #pragma"}, messages(rep, SevWarning))

	_, rep = preprocess(t, "#line 0\n#line x\n#undef\n#define A 1\n#undef A B\n")
	assert.Equal(t, []string{
		"line number out of range in #line",
		"#line requires a positive integer argument",
		"Macro name expected after #undef",
	}, messages(rep, SevError))
	assert.Equal(t, []string{"Extra tokens after end of #undef"}, messages(rep, SevWarning))

	// A comment opened on the directive line continues it.
	vals, rep = preprocess(t, "#pragma foo /* a\nb */ c\nd\n")
	assert.Equal(t, []string{"d"}, vals)
	assert.Equal(t, []string{"Ignoring unsupported #pragma"}, messages(rep, SevWarning))
	assert.Empty(t, messages(rep, SevError))
}

func TestSkippedBlocks(t *testing.T) {
	src := "#if 0\n#define A 1\n#include \"missing.h\"\n#error no\n\"unterminated\n#endif\nA\n"
	vals, rep := preprocess(t, src)
	assert.Equal(t, []string{"A"}, vals)
	assert.Empty(t, messages(rep, SevError))
}

func TestCommentsInSkippedLines(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"#if 0\nfoo /* start\n#endif\n*/\n#endif\nA\n", []string{"A"}},
		{"#if 0\n#define X /* start\n#endif\n*/\n#endif\nA\n", []string{"A"}},
		{"#if 0\n'/*' \"/*\" // /*\n#endif\nA\n", []string{"A"}},
		{"#if 1\nx\n#elif /* c\n#endif */ 1\ny\n#endif\nz\n", []string{"x", "z"}},
		{"#if 0\n#else /* c\n#endif */\nx\n#endif\nz\n", []string{"x", "z"}},
		{"#ifdef A extra /* c\n#endif */\n#endif\nz\n", []string{"z"}},
		{"#define F(a b) /* x\n y */ z\nq\n", []string{"q"}},
		{"#if 0\nfoo /* a */ bar /* b\nc */ #endif\n#endif\nA\n", []string{"A"}},
	}
	for _, tc := range tests {
		vals, rep := preprocess(t, tc.src)
		assert.Equal(t, tc.want, vals, tc.src)
		for _, d := range rep.Diags {
			if d.Sev == SevError {
				assert.NotContains(t, d.Msg, "#endif", tc.src)
				assert.NotContains(t, d.Msg, "Unterminated", tc.src)
			}
		}
	}
}
