package exchange

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

const bpsDenominator = 10000

// Fee is the share of every input the pool keeps, as the rational
// Numerator/Denominator.
type Fee struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

// DefaultFee is 0.97%.
var DefaultFee = Fee{Numerator: 97, Denominator: 10000}

func (f Fee) IsZero() bool {
	return f.Numerator == 0 && f.Denominator == 0
}

func (f Fee) Validate() error {
	if f.Denominator == 0 {
		return fmt.Errorf("%w: denominator cannot be 0", ErrInvalidFee)
	}
	if f.Numerator >= f.Denominator {
		return fmt.Errorf("%w: %d/%d takes the whole input", ErrInvalidFee, f.Numerator, f.Denominator)
	}
	return nil
}

// Bps converts the fee to basis points, rounding down.
func (f Fee) Bps() uint64 {
	if f.Denominator == 0 {
		return 0
	}
	v, err := mulDiv(f.Numerator, bpsDenominator, f.Denominator, false)
	if err != nil {
		return 0
	}
	return v
}

func (f Fee) String() string {
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

// ParseFee reads a fee written either as a decimal fraction ("0.0097") or a
// ratio ("97/10000"). Decimals map to an exact power-of-ten denominator.
func ParseFee(s string) (Fee, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Fee{}, fmt.Errorf("%w: empty", ErrInvalidFee)
	}

	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(num), 10, 64)
		if err != nil {
			return Fee{}, fmt.Errorf("%w: numerator %q", ErrInvalidFee, num)
		}
		d, err := strconv.ParseUint(strings.TrimSpace(den), 10, 64)
		if err != nil {
			return Fee{}, fmt.Errorf("%w: denominator %q", ErrInvalidFee, den)
		}
		f := Fee{Numerator: n, Denominator: d}
		return f, f.Validate()
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if whole != "0" {
		return Fee{}, fmt.Errorf("%w: %q must be below 1", ErrInvalidFee, s)
	}
	if len(frac) == 0 || len(frac) > 18 {
		return Fee{}, fmt.Errorf("%w: %q needs 1 to 18 decimal places", ErrInvalidFee, s)
	}
	n, err := strconv.ParseUint(frac, 10, 64)
	if err != nil {
		return Fee{}, fmt.Errorf("%w: %q", ErrInvalidFee, s)
	}
	d := uint64(1)
	for range frac {
		d *= 10
	}
	f := Fee{Numerator: n, Denominator: d}
	return f, f.Validate()
}

// QuoteExactInput returns how much of the output asset a trader receives for
// inputAmount, after the fee is taken from the input:
//
//	out = floor(in·(d−n)·Rout / (Rin·d + in·(d−n)))
func QuoteExactInput(inputAmount, inputReserve, outputReserve uint64, fee Fee) (uint64, error) {
	if inputReserve == 0 || outputReserve == 0 {
		return 0, ErrEmptyReserve
	}
	if err := fee.Validate(); err != nil {
		return 0, err
	}

	inWithFee := new(big.Int).Mul(u(inputAmount), u(fee.Denominator-fee.Numerator))

	numerator := new(big.Int).Mul(inWithFee, u(outputReserve))
	denominator := new(big.Int).Mul(u(inputReserve), u(fee.Denominator))
	denominator.Add(denominator, inWithFee)

	out := numerator.Quo(numerator, denominator)
	if !out.IsUint64() {
		return 0, fmt.Errorf("%w: output amount", ErrArithmeticOverflow)
	}
	return out.Uint64(), nil
}

// QuoteExactOutput returns how much of the input asset a trader must pay to
// receive outputAmount:
//
//	in = ceil(Rin·out·d / ((Rout−out)·(d−n)))
func QuoteExactOutput(outputAmount, inputReserve, outputReserve uint64, fee Fee) (uint64, error) {
	if inputReserve == 0 || outputReserve == 0 {
		return 0, ErrEmptyReserve
	}
	if err := fee.Validate(); err != nil {
		return 0, err
	}
	if outputAmount >= outputReserve {
		return 0, fmt.Errorf("%w: want %d of %d", ErrInsufficientReserve, outputAmount, outputReserve)
	}

	numerator := new(big.Int).Mul(u(inputReserve), u(outputAmount))
	numerator.Mul(numerator, u(fee.Denominator))

	denominator := new(big.Int).Mul(u(outputReserve-outputAmount), u(fee.Denominator-fee.Numerator))

	in := ceilQuo(numerator, denominator)
	if !in.IsUint64() {
		return 0, fmt.Errorf("%w: input amount", ErrArithmeticOverflow)
	}
	return in.Uint64(), nil
}

// PriceImpactBps is how far the executed rate falls short of the spot rate
// Rout/Rin, in basis points, rounded down.
func PriceImpactBps(amountIn, amountOut, reserveIn, reserveOut uint64) uint64 {
	if amountIn == 0 || reserveIn == 0 || reserveOut == 0 {
		return 0
	}
	// ideal = in·Rout/Rin; impact = (ideal − out)/ideal
	// compared cross-multiplied to stay exact: (in·Rout − out·Rin)·10000 / (in·Rout)
	ideal := new(big.Int).Mul(u(amountIn), u(reserveOut))
	actual := new(big.Int).Mul(u(amountOut), u(reserveIn))
	if actual.Cmp(ideal) >= 0 {
		return 0
	}
	diff := new(big.Int).Sub(ideal, actual)
	diff.Mul(diff, u(bpsDenominator))
	return diff.Quo(diff, ideal).Uint64()
}

// ApplySlippage calculates minimum output with slippage tolerance.
// slippageBps: basis points (e.g., 100 = 1%, 50 = 0.5%)
func ApplySlippage(amountOut uint64, slippageBps uint16) uint64 {
	if slippageBps >= bpsDenominator {
		return 0
	}
	v, _ := mulDiv(amountOut, bpsDenominator-uint64(slippageBps), bpsDenominator, false)
	return v
}

// ApplySlippageUp returns the most a trader should pay for an exact-output
// quote of amountIn, rounded up and capped at MaxUint64.
func ApplySlippageUp(amountIn uint64, slippageBps uint16) uint64 {
	v, err := mulDiv(amountIn, bpsDenominator+uint64(slippageBps), bpsDenominator, true)
	if err != nil {
		return math.MaxUint64
	}
	return v
}

// mulDiv returns a·b/c rounded down, or up when roundUp is set.
func mulDiv(a, b, c uint64, roundUp bool) (uint64, error) {
	if c == 0 {
		return 0, fmt.Errorf("%w: division by zero", ErrArithmeticOverflow)
	}
	n := new(big.Int).Mul(u(a), u(b))
	var q *big.Int
	if roundUp {
		q = ceilQuo(n, u(c))
	} else {
		q = n.Quo(n, u(c))
	}
	if !q.IsUint64() {
		return 0, fmt.Errorf("%w: %d*%d/%d", ErrArithmeticOverflow, a, b, c)
	}
	return q.Uint64(), nil
}

// ceilQuo is ceil(n/d) for non-negative n and positive d.
func ceilQuo(n, d *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(n, d, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func u(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}
