package cpp

import (
	"math"
	"strconv"
)

type TypeKind int

const (
	Bool TypeKind = iota
	SChar
	UChar
	SShort
	UShort
	SInt
	UInt
	SLong
	ULong
	SLLong
	ULLong
	Float
	Double
	LDouble
	numTypeKinds
)

var typeKindNames = [numTypeKinds]string{
	Bool:    "_Bool",
	SChar:   "signed char",
	UChar:   "unsigned char",
	SShort:  "short",
	UShort:  "unsigned short",
	SInt:    "int",
	UInt:    "unsigned int",
	SLong:   "long",
	ULong:   "unsigned long",
	SLLong:  "long long",
	ULLong:  "unsigned long long",
	Float:   "float",
	Double:  "double",
	LDouble: "long double",
}

// Target describes the integer widths of the machine being compiled for.
type Target struct {
	CharBits     uint
	ShortBits    uint
	IntBits      uint
	LongBits     uint
	LongLongBits uint
	// Whether plain char is signed.
	SignedChar bool
}

// DefaultTarget is a typical LP64 machine.
func DefaultTarget() Target {
	return Target{
		CharBits:     8,
		ShortBits:    16,
		IntBits:      32,
		LongBits:     64,
		LongLongBits: 64,
		SignedChar:   true,
	}
}

type TypeSpec struct {
	Kind     TypeKind
	Width    uint
	Signed   bool
	Floating bool

	mask     uint64
	MinValue int64
	MaxValue uint64
	MaxReal  float64
}

func (s *TypeSpec) String() string {
	return typeKindNames[s.Kind]
}

// rank orders the integer types for the usual arithmetic conversions.
func (s *TypeSpec) rank() int {
	return (int(s.Kind) + 1) / 2
}

// Types is the table of arithmetic types for one target.
type Types struct {
	specs [numTypeKinds]TypeSpec
	// Char is the type of a plain char.
	Char *TypeSpec
}

func NewTypes(t Target) *Types {
	ts := &Types{}
	widths := [...]uint{
		Bool:   1,
		SChar:  t.CharBits,
		UChar:  t.CharBits,
		SShort: t.ShortBits,
		UShort: t.ShortBits,
		SInt:   t.IntBits,
		UInt:   t.IntBits,
		SLong:  t.LongBits,
		ULong:  t.LongBits,
		SLLong: t.LongLongBits,
		ULLong: t.LongLongBits,
	}
	for k := Bool; k <= ULLong; k++ {
		s := &ts.specs[k]
		s.Kind = k
		s.Width = widths[k]
		s.Signed = k != Bool && k%2 == 1
		if s.Width >= 64 {
			s.Width = 64
			s.mask = math.MaxUint64
		} else {
			s.mask = 1<<s.Width - 1
		}
		if s.Signed {
			s.MaxValue = s.mask >> 1
			s.MinValue = -int64(s.MaxValue) - 1
		} else {
			s.MaxValue = s.mask
		}
	}
	ts.specs[Float] = TypeSpec{Kind: Float, Width: 32, Signed: true, Floating: true, MaxReal: math.MaxFloat32}
	ts.specs[Double] = TypeSpec{Kind: Double, Width: 64, Signed: true, Floating: true, MaxReal: math.MaxFloat64}
	ts.specs[LDouble] = TypeSpec{Kind: LDouble, Width: 64, Signed: true, Floating: true, MaxReal: math.MaxFloat64}
	if t.SignedChar {
		ts.Char = &ts.specs[SChar]
	} else {
		ts.Char = &ts.specs[UChar]
	}
	return ts
}

func (ts *Types) Spec(k TypeKind) *TypeSpec {
	return &ts.specs[k]
}

// IntegerPromotion converts types of lower rank than int to int, or to
// unsigned int when int cannot hold all their values.
func (ts *Types) IntegerPromotion(s *TypeSpec) *TypeSpec {
	if s.Floating || s.Kind >= SInt {
		return s
	}
	sint := ts.Spec(SInt)
	if s.Width < sint.Width || (s.Signed && s.Width == sint.Width) {
		return sint
	}
	return ts.Spec(UInt)
}

// UsualArithmeticConversions returns the common type of a binary operation
// on operands of types a and b.
func (ts *Types) UsualArithmeticConversions(a, b *TypeSpec) *TypeSpec {
	if a.Floating || b.Floating {
		switch {
		case !b.Floating:
			return a
		case !a.Floating:
			return b
		case a.Kind > b.Kind:
			return a
		}
		return b
	}
	a = ts.IntegerPromotion(a)
	b = ts.IntegerPromotion(b)
	if a == b {
		return a
	}
	if a.Signed == b.Signed {
		if a.rank() > b.rank() {
			return a
		}
		return b
	}
	u, s := a, b
	if a.Signed {
		u, s = b, a
	}
	if u.rank() >= s.rank() {
		return u
	}
	if s.Width > u.Width {
		return s
	}
	return ts.Spec(s.Kind + 1)
}

// Convert returns c converted to type spec.
func (ts *Types) Convert(c Constant, spec *TypeSpec) Constant {
	if c.Spec() == spec {
		return c
	}
	if spec.Floating {
		return NewRealC(spec).CastFrom(c)
	}
	return NewIntC(spec).CastFrom(c)
}

// Constant is the value of an arithmetic constant.
type Constant interface {
	Spec() *TypeSpec
	IsZero() bool
	String() string
}

// IntC is an integer constant. The cell always holds the value truncated to
// the width of its type and, for signed types, sign extended to 64 bits.
type IntC struct {
	spec *TypeSpec
	v    uint64
}

func NewIntC(spec *TypeSpec) *IntC {
	return &IntC{spec: spec}
}

func (c *IntC) Spec() *TypeSpec { return c.spec }

func (c *IntC) set(v uint64) *IntC {
	w := c.spec.Width
	if w < 64 {
		if c.spec.Signed {
			sh := 64 - w
			v = uint64(int64(v<<sh) >> sh)
		} else {
			v &= c.spec.mask
		}
	}
	c.v = v
	return c
}

func (c *IntC) SetInt64(v int64) *IntC   { return c.set(uint64(v)) }
func (c *IntC) SetUint64(v uint64) *IntC { return c.set(v) }

func (c *IntC) Int64() int64   { return int64(c.v) }
func (c *IntC) Uint64() uint64 { return c.v }

func (c *IntC) IsZero() bool { return c.v == 0 }

func (c *IntC) String() string {
	if c.spec.Signed {
		return strconv.FormatInt(int64(c.v), 10)
	}
	return strconv.FormatUint(c.v, 10)
}

func (c *IntC) Assign(o *IntC) *IntC {
	return c.set(o.v)
}

// CastFrom converts o to the type of c.
func (c *IntC) CastFrom(o Constant) *IntC {
	switch o := o.(type) {
	case *IntC:
		return c.set(o.v)
	case *RealC:
		if c.spec.Kind == Bool {
			if o.v != 0 {
				return c.set(1)
			}
			return c.set(0)
		}
		if !c.spec.Signed && o.v >= math.MaxInt64 {
			return c.set(uint64(o.v))
		}
		return c.set(uint64(int64(o.v)))
	}
	panic("unknown constant type")
}

func (c *IntC) setMax() *IntC {
	return c.set(c.spec.MaxValue)
}

func (c *IntC) Add(a, b *IntC) *IntC { return c.set(a.v + b.v) }
func (c *IntC) Sub(a, b *IntC) *IntC { return c.set(a.v - b.v) }
func (c *IntC) Mul(a, b *IntC) *IntC { return c.set(a.v * b.v) }
func (c *IntC) And(a, b *IntC) *IntC { return c.set(a.v & b.v) }
func (c *IntC) Or(a, b *IntC) *IntC  { return c.set(a.v | b.v) }
func (c *IntC) Xor(a, b *IntC) *IntC { return c.set(a.v ^ b.v) }
func (c *IntC) Neg(a *IntC) *IntC    { return c.set(-a.v) }
func (c *IntC) Not(a *IntC) *IntC    { return c.set(^a.v) }

func (c *IntC) Shl(a, b *IntC) *IntC {
	return c.set(a.v << (b.v & 63))
}

func (c *IntC) Shr(a, b *IntC) *IntC {
	if c.spec.Signed {
		return c.set(uint64(int64(a.v) >> (b.v & 63)))
	}
	return c.set(a.v >> (b.v & 63))
}

// Div divides a by b. Division by zero yields the maximum value of the type.
func (c *IntC) Div(a, b *IntC) *IntC {
	if b.v == 0 {
		return c.setMax()
	}
	if c.spec.Signed {
		return c.set(uint64(int64(a.v) / int64(b.v)))
	}
	if c.spec.Width < 64 {
		return c.set(a.v / b.v)
	}
	q, _ := udiv64(int64(a.v), int64(b.v))
	return c.set(uint64(q))
}

// Rem computes the remainder of a divided by b. The remainder of a division
// by zero is zero.
func (c *IntC) Rem(a, b *IntC) *IntC {
	if b.v == 0 {
		return c.set(0)
	}
	if c.spec.Signed {
		return c.set(uint64(int64(a.v) % int64(b.v)))
	}
	if c.spec.Width < 64 {
		return c.set(a.v % b.v)
	}
	_, r := udiv64(int64(a.v), int64(b.v))
	return c.set(uint64(r))
}

func ult64(a, b int64) bool {
	return a+math.MinInt64 < b+math.MinInt64
}

// udiv64 divides two 64-bit cells as unsigned quantities using signed
// arithmetic only. The dividend is halved so the signed quotient cannot
// overflow, then the doubled quotient is corrected by at most one.
func udiv64(n, d int64) (q, r int64) {
	if d < 0 {
		if ult64(n, d) {
			return 0, n
		}
		return 1, n - d
	}
	if n >= 0 {
		return n / d, n % d
	}
	q = (int64(uint64(n)>>1) / d) << 1
	r = n - q*d
	if !ult64(r, d) {
		q++
		r -= d
	}
	return q, r
}

func (c *IntC) Cmp(b *IntC) int {
	switch {
	case c.v == b.v:
		return 0
	case c.spec.Signed && int64(c.v) < int64(b.v):
		return -1
	case !c.spec.Signed && c.v < b.v:
		return -1
	}
	return 1
}

func (c *IntC) Eq(b *IntC) bool { return c.v == b.v }
func (c *IntC) Ne(b *IntC) bool { return c.v != b.v }
func (c *IntC) Lt(b *IntC) bool { return c.Cmp(b) < 0 }
func (c *IntC) Le(b *IntC) bool { return c.Cmp(b) <= 0 }
func (c *IntC) Gt(b *IntC) bool { return c.Cmp(b) > 0 }
func (c *IntC) Ge(b *IntC) bool { return c.Cmp(b) >= 0 }

// RealC is a floating constant. Values of type float are kept rounded to
// single precision.
type RealC struct {
	spec *TypeSpec
	v    float64
}

func NewRealC(spec *TypeSpec) *RealC {
	return &RealC{spec: spec}
}

func (c *RealC) Spec() *TypeSpec { return c.spec }

func (c *RealC) SetFloat64(v float64) *RealC {
	if c.spec.Kind == Float {
		v = float64(float32(v))
	}
	c.v = v
	return c
}

func (c *RealC) Float64() float64 { return c.v }

func (c *RealC) IsZero() bool { return c.v == 0 }

func (c *RealC) String() string {
	if c.spec.Kind == Float {
		return strconv.FormatFloat(c.v, 'g', -1, 32)
	}
	return strconv.FormatFloat(c.v, 'g', -1, 64)
}

func (c *RealC) CastFrom(o Constant) *RealC {
	switch o := o.(type) {
	case *RealC:
		return c.SetFloat64(o.v)
	case *IntC:
		if o.spec.Signed {
			return c.SetFloat64(float64(int64(o.v)))
		}
		return c.SetFloat64(float64(o.v))
	}
	panic("unknown constant type")
}

func (c *RealC) Add(a, b *RealC) *RealC { return c.SetFloat64(a.v + b.v) }
func (c *RealC) Sub(a, b *RealC) *RealC { return c.SetFloat64(a.v - b.v) }
func (c *RealC) Mul(a, b *RealC) *RealC { return c.SetFloat64(a.v * b.v) }
func (c *RealC) Div(a, b *RealC) *RealC { return c.SetFloat64(a.v / b.v) }
func (c *RealC) Neg(a *RealC) *RealC    { return c.SetFloat64(-a.v) }

func (c *RealC) Eq(b *RealC) bool { return c.v == b.v }
func (c *RealC) Lt(b *RealC) bool { return c.v < b.v }
func (c *RealC) Le(b *RealC) bool { return c.v <= b.v }
