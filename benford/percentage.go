package benford

import "github.com/shopspring/decimal"

// DefaultDecimalPlaces is the precision of observed percentages.
const DefaultDecimalPlaces int32 = 1

// divisionPrecision matches the 28 significant digits of a default decimal context.
const divisionPrecision int32 = 28

var hundred = decimal.NewFromInt(100)

// RoundDecimal rounds half up (away from zero) to the given places.
func RoundDecimal(value decimal.Decimal, places int32) decimal.Decimal {
	return value.Round(places)
}

// CalcPercentage returns value/total*100 rounded half up to places.
// total must not be zero.
func CalcPercentage(value, total int, places int32) decimal.Decimal {
	share := decimal.NewFromInt(int64(value)).Mul(hundred).
		DivRound(decimal.NewFromInt(int64(total)), divisionPrecision)
	return RoundDecimal(share, places)
}

// AllocatePercentages turns counts into percentages that add up to exactly
// 100. Buckets are visited in first-occurrence order; each one is clamped to
// what is left of 100 and the last visited bucket takes the final residual.
func AllocatePercentages(occ *Occurrences, places int32) *Percentages {
	result := newPercentages()
	total := occ.Total()
	if total == 0 {
		return result
	}
	if places < 0 {
		places = 0
	}

	remaining := hundred
	last := 0
	for _, digit := range occ.Digits() {
		percent := CalcPercentage(occ.Count(digit), total, places)
		if percent.GreaterThan(remaining) {
			percent = remaining
		}
		result.set(digit, percent)
		remaining = remaining.Sub(percent)
		last = digit
	}

	if !remaining.IsZero() {
		result.set(last, result.Of(last).Add(remaining))
	}
	return result
}
