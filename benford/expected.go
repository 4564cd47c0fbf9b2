package benford

import (
	"fmt"
	"math"
	"sync"

	"github.com/shopspring/decimal"
)

// DefaultBase is the numeral base used unless configured otherwise.
const DefaultBase = 10

const expectedDecimalPlaces int32 = 1

var expectedCache sync.Map // base -> []decimal.Decimal

// Probability returns log_base(1 + 1/digit), the chance of digit leading a number.
func Probability(digit, base int) (float64, error) {
	if base < 2 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidBase, base)
	}
	if digit < 1 || digit >= base {
		return 0, fmt.Errorf("%w: digit %d for base %d", ErrDigitOutOfRange, digit, base)
	}
	return math.Log(1+1/float64(digit)) / math.Log(float64(base)), nil
}

// ExpectedPercentage is the Benford percentage of digit in base, rounded to one place.
func ExpectedPercentage(digit, base int) (decimal.Decimal, error) {
	dist, err := ExpectedDistribution(base)
	if err != nil {
		return decimal.Zero, err
	}
	if digit < 1 || digit >= base {
		return decimal.Zero, fmt.Errorf("%w: digit %d for base %d", ErrDigitOutOfRange, digit, base)
	}
	return dist[digit-1], nil
}

// ExpectedDistribution returns expected percentages of digits 1..base-1.
// The returned slice is a copy and may be modified by the caller.
func ExpectedDistribution(base int) ([]decimal.Decimal, error) {
	if base < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBase, base)
	}
	if cached, ok := expectedCache.Load(base); ok {
		return append([]decimal.Decimal(nil), cached.([]decimal.Decimal)...), nil
	}

	dist := make([]decimal.Decimal, base-1)
	for d := 1; d < base; d++ {
		p, err := Probability(d, base)
		if err != nil {
			return nil, err
		}
		dist[d-1] = RoundDecimal(decimal.NewFromFloat(p*100), expectedDecimalPlaces)
	}
	expectedCache.Store(base, dist)
	return append([]decimal.Decimal(nil), dist...), nil
}

// ExpectedDistributionFlat is ExpectedDistribution as float64 values, for the chi-square test.
func ExpectedDistributionFlat(base int) ([]float64, error) {
	dist, err := ExpectedDistribution(base)
	if err != nil {
		return nil, err
	}
	return decimalsToFloats(dist), nil
}

// DegreesOfFreedom of a chi-square test over the digits of base.
func DegreesOfFreedom(base int) int {
	return base - 1
}

func decimalsToFloats(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.InexactFloat64()
	}
	return out
}
