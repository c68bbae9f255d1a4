package cpp

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnsignedDivision(t *testing.T) {
	ts := NewTypes(DefaultTarget())
	u64 := ts.Spec(ULLong)
	rnd := rand.New(rand.NewSource(1))
	edge := []uint64{0, 1, 2, 3, math.MaxInt64, math.MaxInt64 + 1, math.MaxUint64 - 1, math.MaxUint64}
	for i := 0; i < 2000; i++ {
		var a, b uint64
		if i < len(edge)*len(edge) {
			a, b = edge[i/len(edge)], edge[i%len(edge)]
		} else {
			a, b = rnd.Uint64(), rnd.Uint64()>>uint(rnd.Intn(64))
		}
		if b == 0 {
			continue
		}
		ac := NewIntC(u64).SetUint64(a)
		bc := NewIntC(u64).SetUint64(b)
		q := NewIntC(u64).Div(ac, bc)
		r := NewIntC(u64).Rem(ac, bc)
		require.Equal(t, a/b, q.Uint64(), "%d / %d", a, b)
		require.Equal(t, a%b, r.Uint64(), "%d %% %d", a, b)
		back := NewIntC(u64).Add(NewIntC(u64).Mul(q, bc), r)
		require.Equal(t, a, back.Uint64())
	}
}

func TestDivisionByZero(t *testing.T) {
	ts := NewTypes(DefaultTarget())
	zero := NewIntC(ts.Spec(SInt))
	for _, k := range []TypeKind{UChar, SShort, SInt, UInt, SLong, ULLong} {
		spec := ts.Spec(k)
		a := NewIntC(spec).SetInt64(7)
		z := NewIntC(spec).Assign(zero)
		assert.Equal(t, spec.MaxValue, NewIntC(spec).Div(a, z).Uint64()&spec.mask, "%s", spec)
		assert.True(t, NewIntC(spec).Rem(a, z).IsZero(), "%s", spec)
	}
	assert.Equal(t, int64(math.MaxInt32), NewIntC(ts.Spec(SInt)).Div(NewIntC(ts.Spec(SInt)).SetInt64(-5), zero).Int64())
}

func TestWidthMasking(t *testing.T) {
	ts := NewTypes(DefaultTarget())
	rnd := rand.New(rand.NewSource(2))
	for _, k := range []TypeKind{UChar, UShort, UInt, ULong} {
		spec := ts.Spec(k)
		for i := 0; i < 200; i++ {
			v := NewIntC(spec).SetInt64(rnd.Int63() - rnd.Int63())
			require.LessOrEqual(t, v.Uint64(), spec.MaxValue)
		}
	}
	for _, k := range []TypeKind{SChar, SShort, SInt} {
		spec := ts.Spec(k)
		for i := 0; i < 200; i++ {
			v := NewIntC(spec).SetUint64(rnd.Uint64())
			require.GreaterOrEqual(t, v.Int64(), spec.MinValue)
			require.LessOrEqual(t, v.Int64(), int64(spec.MaxValue))
		}
	}

	uc := ts.Spec(UChar)
	assert.Equal(t, uint64(255), NewIntC(uc).SetInt64(-1).Uint64())
	assert.Equal(t, uint64(44), NewIntC(uc).SetUint64(300).Uint64())
	assert.Equal(t, int64(-56), NewIntC(ts.Spec(SChar)).SetInt64(200).Int64())
	assert.Equal(t, uint64(0), NewIntC(uc).Add(NewIntC(uc).SetInt64(255), NewIntC(uc).SetInt64(1)).Uint64())
	assert.Equal(t, int64(math.MinInt32), NewIntC(ts.Spec(SInt)).Add(
		NewIntC(ts.Spec(SInt)).SetInt64(math.MaxInt32), NewIntC(ts.Spec(SInt)).SetInt64(1)).Int64())
}

func TestIntOps(t *testing.T) {
	ts := NewTypes(DefaultTarget())
	si := ts.Spec(SInt)
	ui := ts.Spec(UInt)
	n := func(v int64) *IntC { return NewIntC(si).SetInt64(v) }
	u := func(v int64) *IntC { return NewIntC(ui).SetInt64(v) }

	assert.Equal(t, int64(-4), NewIntC(si).Shr(n(-8), n(1)).Int64())
	assert.Equal(t, uint64(0x7ffffffc), NewIntC(ui).Shr(u(-8), u(1)).Uint64())
	assert.Equal(t, int64(-7), NewIntC(si).Not(n(6)).Int64())
	assert.Equal(t, int64(-3), NewIntC(si).Div(n(-7), n(2)).Int64())
	assert.Equal(t, int64(-1), NewIntC(si).Rem(n(-7), n(2)).Int64())
	assert.True(t, n(-1).Lt(n(0)))
	assert.True(t, u(-1).Gt(u(0)))
	assert.Equal(t, "-1", n(-1).String())
	assert.Equal(t, "4294967295", u(-1).String())

	conv := ts.Convert(n(-1), ts.Spec(ULLong)).(*IntC)
	assert.Equal(t, uint64(math.MaxUint64), conv.Uint64())
	rc := ts.Convert(n(3), ts.Spec(Double)).(*RealC)
	assert.Equal(t, 3.0, rc.Float64())
	assert.Equal(t, int64(2), NewIntC(si).CastFrom(NewRealC(ts.Spec(Double)).SetFloat64(2.9)).Int64())
	assert.Equal(t, int64(1), NewIntC(ts.Spec(Bool)).CastFrom(NewRealC(ts.Spec(Double)).SetFloat64(0.1)).Int64())
}

func TestArithmeticConversions(t *testing.T) {
	ts := NewTypes(DefaultTarget())
	tests := []struct {
		a, b, want TypeKind
	}{
		{SChar, UChar, SInt},
		{SInt, UInt, UInt},
		{SLong, UInt, SLong},
		{SLong, ULong, ULong},
		{SLLong, ULong, ULLong},
		{SInt, Double, Double},
		{Float, Double, Double},
		{UShort, Bool, SInt},
	}
	for _, tc := range tests {
		got := ts.UsualArithmeticConversions(ts.Spec(tc.a), ts.Spec(tc.b))
		assert.Equal(t, tc.want, got.Kind, "%v %v", tc.a, tc.b)
	}

	ilp32 := NewTypes(Target{CharBits: 8, ShortBits: 16, IntBits: 32, LongBits: 32, LongLongBits: 64})
	assert.Equal(t, SLLong, ilp32.UsualArithmeticConversions(ilp32.Spec(SLLong), ilp32.Spec(ULong)).Kind)
	assert.Equal(t, UChar, ilp32.Char.Kind)
}

func TestRealConstants(t *testing.T) {
	ts := NewTypes(DefaultTarget())
	f := NewRealC(ts.Spec(Float)).SetFloat64(0.1)
	assert.Equal(t, float64(float32(0.1)), f.Float64())
	d := NewRealC(ts.Spec(Double)).SetFloat64(0.1)
	assert.NotEqual(t, f.Float64(), d.Float64())
	sum := NewRealC(ts.Spec(Float)).Add(f, f)
	assert.Equal(t, float64(float32(0.2)), sum.Float64())

	nan := NewRealC(ts.Spec(Double)).SetFloat64(math.NaN())
	assert.False(t, nan.Eq(nan))
	assert.True(t, d.Lt(NewRealC(ts.Spec(Double)).SetFloat64(1)))
}

type diagRecord struct {
	Sev Severity
	Msg string
}

func recordDiags(out *[]diagRecord) diagFunc {
	return func(sev Severity, format string, args ...interface{}) {
		*out = append(*out, diagRecord{sev, fmt.Sprintf(format, args...)})
	}
}

func TestParseInteger(t *testing.T) {
	ts := NewTypes(DefaultTarget())
	tests := []struct {
		lit   string
		kind  TypeKind
		value uint64
		diags []diagRecord
	}{
		{"0", SInt, 0, nil},
		{"2147483647", SInt, 2147483647, nil},
		{"2147483648", SLong, 2147483648, nil},
		{"0x80000000", UInt, 0x80000000, nil},
		{"0x8000000000000000", ULong, 0x8000000000000000, nil},
		{"0777", SInt, 0777, nil},
		{"1u", UInt, 1, nil},
		{"1U", UInt, 1, nil},
		{"4294967296u", ULong, 4294967296, nil},
		{"1l", SLong, 1, nil},
		{"1ll", SLLong, 1, nil},
		{"1LLU", ULLong, 1, nil},
		{"1uLL", ULLong, 1, nil},
		{"9223372036854775808", ULLong, 9223372036854775808, []diagRecord{{SevWarning, "Constant is too large for its type"}}},
		{"18446744073709551616", ULLong, 0, []diagRecord{{SevWarning, "Constant is too large"}}},
		{"08", SInt, 0, []diagRecord{{SevError, "Invalid integer constant '08'"}}},
		{"0x", SInt, 0, []diagRecord{{SevError, "Invalid integer constant '0x'"}}},
		{"1lul", SInt, 1, []diagRecord{{SevError, "Invalid integer constant suffix 'lul'"}}},
	}
	for _, tc := range tests {
		var diags []diagRecord
		c := ts.ParseInteger([]byte(tc.lit), recordDiags(&diags))
		assert.Equal(t, tc.kind, c.Spec().Kind, tc.lit)
		assert.Equal(t, tc.value, c.Uint64(), tc.lit)
		if diff := cmp.Diff(tc.diags, diags); diff != "" {
			t.Errorf("%s: diagnostics mismatch (-want +got):\n%s", tc.lit, diff)
		}
	}
}

func TestParseReal(t *testing.T) {
	ts := NewTypes(DefaultTarget())
	var diags []diagRecord
	c := ts.ParseReal([]byte("1e400"), recordDiags(&diags))
	assert.True(t, math.IsInf(c.Float64(), 1))
	assert.Equal(t, []diagRecord{{SevError, "Constant is outside of 'double' range"}}, diags)

	diags = nil
	ts.ParseReal([]byte("1e40f"), recordDiags(&diags))
	assert.Equal(t, []diagRecord{{SevError, "Constant is outside of 'float' range"}}, diags)

	diags = nil
	ts.ParseReal([]byte("1.2.3"), recordDiags(&diags))
	assert.Equal(t, []diagRecord{{SevError, "Invalid floating point constant '1.2.3'"}}, diags)

	diags = nil
	c = ts.ParseReal([]byte("2.5L"), recordDiags(&diags))
	assert.Empty(t, diags)
	assert.Equal(t, LDouble, c.Spec().Kind)
	assert.Equal(t, 2.5, c.Float64())
}

func TestIsRealNumber(t *testing.T) {
	for s, want := range map[string]bool{
		"1":      false,
		"1.":     true,
		".5":     true,
		"1e10":   true,
		"0x1e":   false,
		"0x1p3":  true,
		"0x1.8":  true,
		"123ull": false,
	} {
		assert.Equal(t, want, isRealNumber([]byte(s)), s)
	}
}

func TestEscapes(t *testing.T) {
	var diags []diagRecord
	got := decodeEscapes([]byte(`a\tb\x41\101\0\'\"\?\\`), 255, recordDiags(&diags))
	assert.Equal(t, "a\tbAA\x00'\"?\\", string(got))
	assert.Empty(t, diags)

	tests := []struct {
		in   string
		diag diagRecord
	}{
		{`\x`, diagRecord{SevError, "Invalid hex escape sequence"}},
		{`\x100`, diagRecord{SevError, "Character overflow in hex escape sequence"}},
		{`\x11112222333344445`, diagRecord{SevError, "Integer overflow in hex escape sequence"}},
		{`\777`, diagRecord{SevError, "Character overflow in octal escape sequence"}},
		{`\q`, diagRecord{SevWarning, "Invalid escape sequence '\\q'"}},
	}
	for _, tc := range tests {
		diags = nil
		decodeEscapes([]byte(tc.in), 255, recordDiags(&diags))
		assert.Equal(t, []diagRecord{tc.diag}, diags, tc.in)
	}
}

func TestCharConstant(t *testing.T) {
	ts := NewTypes(DefaultTarget())
	var diags []diagRecord
	assert.Equal(t, int64(-1), ts.CharConstant([]byte{0xff}, recordDiags(&diags)).Int64())
	assert.Equal(t, int64('a'<<8|'b'), ts.CharConstant([]byte("ab"), recordDiags(&diags)).Int64())
	assert.Equal(t, []diagRecord{{SevWarning, "Multi-character character constant"}}, diags)

	diags = nil
	ts.CharConstant([]byte("abcde"), recordDiags(&diags))
	assert.Len(t, diags, 2)
	assert.Equal(t, "Character constant is too long for its type", diags[1].Msg)

	unsignedChar := DefaultTarget()
	unsignedChar.SignedChar = false
	uts := NewTypes(unsignedChar)
	assert.Equal(t, int64(255), uts.CharConstant([]byte{0xff}, recordDiags(&diags)).Int64())
}

func TestQuoteString(t *testing.T) {
	assert.Equal(t, `"a\"b\\c\012"`, string(quoteString([]byte("a\"b\\c\n"))))
}
