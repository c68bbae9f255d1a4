package cpp

import (
	"fmt"
)

/*
   Implements the expression parsing and evaluation for #if statements

   #if expression
       controlled text
   #endif

   expression may be:

   Integer constants.

   Character constants, which are interpreted as they would be in normal code.

   Arithmetic operators for most of C

   "defined name" and "defined(name)", evaluating to 1 when name is a macro.

   Identifiers that are not macros, which are all considered to be the number zero.

   All values are computed in intmax_t or uintmax_t, following the usual
   arithmetic conversions. Tokens are read from the preprocessor with macro
   expansion enabled, except for the operand of defined.
*/

type exprError struct {
	rng SourceRange
	msg string
}

func (e *exprError) Error() string {
	return e.msg
}

func exprErrorf(rng SourceRange, format string, args ...interface{}) error {
	return &exprError{rng, fmt.Sprintf(format, args...)}
}

// parseExpression evaluates the rest of an #if or #elif line. Errors are
// reported and make the condition false.
func (pp *Preprocessor) parseExpression() bool {
	start := pp.tok.Range
	pp.exprSkip = 0
	pp.nextExpandNoBlanks()
	v, err := pp.parseCPPExpr()
	if err == nil && !isEOL(pp.tok) {
		err = exprErrorf(pp.tok.Range, "stray token %s in preprocessor expression", pp.tok.Val())
	}
	if err != nil {
		rng := start
		if ee, ok := err.(*exprError); ok && !ee.rng.IsZero() {
			rng = ee.rng
		}
		pp.rep.Error(rng, "%s", err)
		pp.skipUntilEOL()
		return false
	}
	return !v.IsZero()
}

func (pp *Preprocessor) intMax(v int64) *IntC {
	return NewIntC(pp.env.Types.Spec(SLLong)).SetInt64(v)
}

func (pp *Preprocessor) boolValue(b bool) *IntC {
	if b {
		return pp.intMax(1)
	}
	return pp.intMax(0)
}

// toMax widens an integer to intmax_t, or to uintmax_t if it is unsigned.
func (pp *Preprocessor) toMax(c Constant) *IntC {
	spec := pp.env.Types.Spec(SLLong)
	if !c.Spec().Signed {
		spec = pp.env.Types.Spec(ULLong)
	}
	return NewIntC(spec).CastFrom(c)
}

func (pp *Preprocessor) parseCPPExprAtom() (*IntC, error) {
	t := pp.tok
	switch t.Kind {
	case NOT:
		pp.nextExpandNoBlanks()
		v, err := pp.parseCPPExprAtom()
		if err != nil {
			return nil, err
		}
		return pp.boolValue(v.IsZero()), nil
	case BNOT:
		pp.nextExpandNoBlanks()
		v, err := pp.parseCPPExprAtom()
		if err != nil {
			return nil, err
		}
		return NewIntC(v.Spec()).Not(v), nil
	case SUB:
		pp.nextExpandNoBlanks()
		v, err := pp.parseCPPExprAtom()
		if err != nil {
			return nil, err
		}
		return NewIntC(v.Spec()).Neg(v), nil
	case ADD:
		pp.nextExpandNoBlanks()
		return pp.parseCPPExprAtom()
	case LPAREN:
		pp.nextExpandNoBlanks()
		v, err := pp.parseCPPExpr()
		if err != nil {
			return nil, err
		}
		if pp.tok.Kind != RPAREN {
			return nil, exprErrorf(pp.tok.Range, "unclosed parenthesis")
		}
		pp.nextExpandNoBlanks()
		return v, nil
	case INT_CONSTANT, CHAR_CONSTANT:
		pp.nextExpandNoBlanks()
		return pp.toMax(t.Value), nil
	case FLOAT_CONSTANT:
		return nil, exprErrorf(t.Range, "floating constant in preprocessor expression")
	case IDENT:
		if t.Sym.Code == PPDefined {
			return pp.parseDefined()
		}
		pp.nextExpandNoBlanks()
		return pp.intMax(0), nil
	case NEWLINE, EOF:
		return nil, exprErrorf(t.Range, "expected integer, char, or defined but got nothing")
	}
	return nil, exprErrorf(t.Range, "expected integer, char, or defined but got %s", t.Val())
}

// parseDefined handles "defined X" and "defined ( X )". The operand is
// not macro expanded.
func (pp *Preprocessor) parseDefined() (*IntC, error) {
	paren := false
	if pp.nextNoBlanks().Kind == LPAREN {
		paren = true
		pp.nextNoBlanks()
	}
	if pp.tok.Kind != IDENT {
		return nil, exprErrorf(pp.tok.Range, "malformed defined statement, expected an identifier")
	}
	v := pp.boolValue(pp.tok.Sym.Macro() != nil)
	if paren && pp.nextNoBlanks().Kind != RPAREN {
		return nil, exprErrorf(pp.tok.Range, "malformed defined check, missing )")
	}
	pp.nextExpandNoBlanks()
	return v, nil
}

func (pp *Preprocessor) evalCPPBinop(k TokenKind, rng SourceRange, l, r *IntC) (*IntC, error) {
	ts := pp.env.Types
	switch k {
	case LOR:
		return pp.boolValue(!l.IsZero() || !r.IsZero()), nil
	case LAND:
		return pp.boolValue(!l.IsZero() && !r.IsZero()), nil
	case SHL, SHR:
		res := NewIntC(l.Spec())
		if k == SHL {
			return res.Shl(l, r), nil
		}
		return res.Shr(l, r), nil
	case COMMA:
		return r, nil
	}

	spec := ts.UsualArithmeticConversions(l.Spec(), r.Spec())
	l = NewIntC(spec).CastFrom(l)
	r = NewIntC(spec).CastFrom(r)
	res := NewIntC(spec)
	switch k {
	case OR:
		return res.Or(l, r), nil
	case XOR:
		return res.Xor(l, r), nil
	case AND:
		return res.And(l, r), nil
	case ADD:
		return res.Add(l, r), nil
	case SUB:
		return res.Sub(l, r), nil
	case MUL:
		return res.Mul(l, r), nil
	case QUO, REM:
		if r.IsZero() && pp.exprSkip == 0 {
			return nil, exprErrorf(rng, "divide by zero in expression")
		}
		if k == QUO {
			return res.Div(l, r), nil
		}
		return res.Rem(l, r), nil
	case EQL:
		return pp.boolValue(l.Eq(r)), nil
	case NEQ:
		return pp.boolValue(l.Ne(r)), nil
	case LSS:
		return pp.boolValue(l.Lt(r)), nil
	case GTR:
		return pp.boolValue(l.Gt(r)), nil
	case LEQ:
		return pp.boolValue(l.Le(r)), nil
	case GEQ:
		return pp.boolValue(l.Ge(r)), nil
	}
	return nil, fmt.Errorf("internal error %s", k)
}

func (pp *Preprocessor) parseCPPTernary() (*IntC, error) {
	cond, err := pp.parseCPPBinop()
	if err != nil {
		return nil, err
	}
	if pp.tok.Kind != QUESTION {
		return cond, nil
	}
	pp.nextExpandNoBlanks()
	taken := !cond.IsZero()

	if !taken {
		pp.exprSkip++
	}
	a, err := pp.parseCPPExpr()
	if !taken {
		pp.exprSkip--
	}
	if err != nil {
		return nil, err
	}
	if pp.tok.Kind != COLON {
		return nil, exprErrorf(pp.tok.Range, "ternary without :")
	}
	pp.nextExpandNoBlanks()

	if taken {
		pp.exprSkip++
	}
	b, err := pp.parseCPPTernary()
	if taken {
		pp.exprSkip--
	}
	if err != nil {
		return nil, err
	}

	spec := pp.env.Types.UsualArithmeticConversions(a.Spec(), b.Spec())
	if taken {
		return NewIntC(spec).CastFrom(a), nil
	}
	return NewIntC(spec).CastFrom(b), nil
}

func (pp *Preprocessor) parseCPPComma() (*IntC, error) {
	v, err := pp.parseCPPTernary()
	if err != nil {
		return nil, err
	}
	for pp.tok.Kind == COMMA {
		pp.nextExpandNoBlanks()
		v, err = pp.parseCPPTernary()
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func getPrec(k TokenKind) int {
	switch k {
	case MUL, REM, QUO:
		return 10
	case ADD, SUB:
		return 9
	case SHR, SHL:
		return 8
	case LSS, GTR, GEQ, LEQ:
		return 7
	case EQL, NEQ:
		return 6
	case AND:
		return 5
	case XOR:
		return 4
	case OR:
		return 3
	case LAND:
		return 2
	case LOR:
		return 1
	}
	return -1
}

// This is the precedence climbing algorithm, simplified because
// all the operators are left associative. The CPP doesn't
// deal with assignment operators.
func (pp *Preprocessor) parseCPPBinop_1(prec int) (*IntC, error) {
	l, err := pp.parseCPPExprAtom()
	if err != nil {
		return nil, err
	}
	for {
		k := pp.tok.Kind
		p := getPrec(k)
		if p == -1 || p < prec {
			break
		}
		rng := pp.tok.Range
		pp.nextExpandNoBlanks()
		// The right operand of a decided && or || is not evaluated.
		skip := (k == LAND && l.IsZero()) || (k == LOR && !l.IsZero())
		if skip {
			pp.exprSkip++
		}
		r, err := pp.parseCPPBinop_1(p + 1)
		if skip {
			pp.exprSkip--
		}
		if err != nil {
			return nil, err
		}
		l, err = pp.evalCPPBinop(k, rng, l, r)
		if err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (pp *Preprocessor) parseCPPBinop() (*IntC, error) {
	return pp.parseCPPBinop_1(0)
}

func (pp *Preprocessor) parseCPPExpr() (*IntC, error) {
	return pp.parseCPPComma()
}
