package exchange

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestQuoteExactInput(t *testing.T) {
	tests := []struct {
		name          string
		in, rIn, rOut uint64
		fee           Fee
		want          uint64
	}{
		// 1000·9903·10000 / (10000·10000 + 1000·9903) = 901.07
		{"default fee", 1000, 10000, 10000, DefaultFee, 901},
		{"zero fee", 1000, 10000, 10000, Fee{0, 1}, 909},
		{"zero input", 0, 10000, 10000, DefaultFee, 0},
		{"skewed reserves", 500, 1000, 1_000_000, Fee{3, 1000}, 332_665},
		{"huge reserves", math.MaxUint64, math.MaxUint64, math.MaxUint64, Fee{0, 1}, math.MaxUint64 / 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := QuoteExactInput(tt.in, tt.rIn, tt.rOut, tt.fee)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuoteExactOutput(t *testing.T) {
	// 10000·901·10000 / ((10000−901)·9903) = 999.92, rounded up
	got, err := QuoteExactOutput(901, 10000, 10000, DefaultFee)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), got)

	got, err = QuoteExactOutput(0, 10000, 10000, DefaultFee)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), got)

	_, err = QuoteExactOutput(10000, 10000, 10000, DefaultFee)
	assert.ErrorIs(t, err, ErrInsufficientReserve)

	_, err = QuoteExactOutput(20000, 10000, 10000, DefaultFee)
	assert.ErrorIs(t, err, ErrInsufficientReserve)

	_, err = QuoteExactOutput(math.MaxUint64-1, math.MaxUint64, math.MaxUint64, Fee{0, 1})
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestQuote_EmptyReserve(t *testing.T) {
	for _, r := range [][2]uint64{{0, 10}, {10, 0}, {0, 0}} {
		_, err := QuoteExactInput(1, r[0], r[1], DefaultFee)
		assert.ErrorIs(t, err, ErrEmptyReserve)

		_, err = QuoteExactOutput(1, r[0], r[1], DefaultFee)
		assert.ErrorIs(t, err, ErrEmptyReserve)
	}
}

func TestQuote_InvalidFee(t *testing.T) {
	_, err := QuoteExactInput(1, 10, 10, Fee{1, 0})
	assert.ErrorIs(t, err, ErrInvalidFee)

	_, err = QuoteExactOutput(1, 10, 10, Fee{5, 5})
	assert.ErrorIs(t, err, ErrInvalidFee)
}

func TestParseFee(t *testing.T) {
	ok := map[string]Fee{
		"0.0097":    {97, 10000},
		".0097":     {97, 10000},
		"0.003":     {3, 1000},
		"0.0":       {0, 10},
		"97/10000":  {97, 10000},
		" 3 / 1000": {3, 1000},
	}
	for in, want := range ok {
		got, err := ParseFee(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "1", "0", "1.5", "-0.1", "abc", "0.x", "1/0", "5/5", "0.0000000000000000001"} {
		_, err := ParseFee(in)
		assert.ErrorIs(t, err, ErrInvalidFee, in)
	}
}

func TestFee_Bps(t *testing.T) {
	assert.Equal(t, uint64(97), DefaultFee.Bps())
	assert.Equal(t, uint64(30), Fee{3, 1000}.Bps())
	assert.Equal(t, uint64(0), Fee{}.Bps())
	assert.Equal(t, "97/10000", DefaultFee.String())
}

func TestPriceImpactBps(t *testing.T) {
	assert.Equal(t, uint64(990), PriceImpactBps(1000, 901, 10000, 10000))
	assert.Equal(t, uint64(0), PriceImpactBps(0, 0, 10000, 10000))
	assert.Equal(t, uint64(0), PriceImpactBps(10, 10, 100, 100))
}

func TestApplySlippage(t *testing.T) {
	assert.Equal(t, uint64(995), ApplySlippage(1000, 50))
	assert.Equal(t, uint64(1000), ApplySlippage(1000, 0))
	assert.Equal(t, uint64(0), ApplySlippage(1000, 10000))
}

func TestApplySlippageUp(t *testing.T) {
	assert.Equal(t, uint64(1005), ApplySlippageUp(1000, 50))
	assert.Equal(t, uint64(1000), ApplySlippageUp(1000, 0))
	assert.Equal(t, uint64(2), ApplySlippageUp(1, 1))
	assert.Equal(t, uint64(math.MaxUint64), ApplySlippageUp(math.MaxUint64, 100))
}

func TestMulDiv(t *testing.T) {
	v, err := mulDiv(7, 3, 2, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), v)

	v, err = mulDiv(7, 3, 2, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), v)

	_, err = mulDiv(math.MaxUint64, 2, 1, false)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)

	_, err = mulDiv(1, 1, 0, false)
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestQuoteExactInput_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rIn := rapid.Uint64Range(1, 1<<40).Draw(t, "reserveIn")
		rOut := rapid.Uint64Range(1, 1<<40).Draw(t, "reserveOut")
		a := rapid.Uint64Range(0, 1<<40).Draw(t, "a")
		b := rapid.Uint64Range(a, 1<<41).Draw(t, "b")
		n := rapid.Uint64Range(0, 999).Draw(t, "feeNumerator")
		fee := Fee{Numerator: n, Denominator: 1000}

		outA, err := QuoteExactInput(a, rIn, rOut, fee)
		if err != nil {
			t.Fatalf("quote a: %v", err)
		}
		outB, err := QuoteExactInput(b, rIn, rOut, fee)
		if err != nil {
			t.Fatalf("quote b: %v", err)
		}
		if outA > outB {
			t.Fatalf("not monotonic: in %d -> %d, in %d -> %d", a, outA, b, outB)
		}
		if outB >= rOut {
			t.Fatalf("output %d drains reserve %d", outB, rOut)
		}
	})
}

func TestQuoteExactOutput_CoversTarget(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rIn := rapid.Uint64Range(1, 1<<40).Draw(t, "reserveIn")
		rOut := rapid.Uint64Range(2, 1<<40).Draw(t, "reserveOut")
		out := rapid.Uint64Range(1, rOut-1).Draw(t, "out")
		fee := Fee{Numerator: rapid.Uint64Range(0, 500).Draw(t, "feeNumerator"), Denominator: 10000}

		in, err := QuoteExactOutput(out, rIn, rOut, fee)
		if err != nil {
			t.Fatalf("exact output: %v", err)
		}
		got, err := QuoteExactInput(in, rIn, rOut, fee)
		if err != nil {
			t.Fatalf("exact input: %v", err)
		}
		if got < out {
			t.Fatalf("paying %d yields %d, wanted %d", in, got, out)
		}
	})
}
