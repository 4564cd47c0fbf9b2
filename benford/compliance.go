package benford

import (
	"fmt"
	"math"
)

// DefaultComplianceThreshold is the chi-square critical value used to call a
// distribution Benford-compliant. It is taken from a decimal (nine digit) table
// and is applied as-is for every base.
const DefaultComplianceThreshold = 14.68

// TestResult is the outcome of a chi-square goodness-of-fit test.
type TestResult struct {
	Statistic float64
	// DegreesOfFreedom left after the ddof adjustment: len(observed) - 1 - ddof.
	DegreesOfFreedom int
	// PValue is NaN when no degrees of freedom are left.
	PValue float64
}

// ChiSquareStatistic computes Pearson's sum((O-E)^2/E) over matching buckets.
func ChiSquareStatistic(observed, expected []float64) (float64, error) {
	if len(observed) != len(expected) {
		return 0, fmt.Errorf("%w: %d observed, %d expected", ErrShapeMismatch, len(observed), len(expected))
	}
	stat := 0.0
	for i := range observed {
		diff := observed[i] - expected[i]
		stat += diff * diff / expected[i]
	}
	return stat, nil
}

// ChiSquareTest runs the test with a ddof adjustment of the degrees of freedom.
func ChiSquareTest(observed, expected []float64, ddof int) (TestResult, error) {
	stat, err := ChiSquareStatistic(observed, expected)
	if err != nil {
		return TestResult{}, err
	}
	df := len(observed) - 1 - ddof
	return TestResult{
		Statistic:        stat,
		DegreesOfFreedom: df,
		PValue:           chiSquareSurvival(stat, df),
	}, nil
}

// IsCompliant reports whether stat does not exceed threshold.
func IsCompliant(stat, threshold float64) bool {
	return stat <= threshold
}

// chiSquareSurvival is P(X >= stat) for X ~ chi2(df).
func chiSquareSurvival(stat float64, df int) float64 {
	if df <= 0 || math.IsNaN(stat) {
		return math.NaN()
	}
	if stat <= 0 {
		return 1
	}
	return regularizedGammaQ(float64(df)/2, stat/2)
}

const (
	gammaMaxIterations = 500
	gammaEpsilon       = 1e-15
	gammaTiny          = 1e-300
)

// regularizedGammaQ is the upper regularized incomplete gamma function Q(a, x).
func regularizedGammaQ(a, x float64) float64 {
	if x < a+1 {
		return 1 - gammaSeries(a, x)
	}
	return gammaContinuedFraction(a, x)
}

// gammaSeries evaluates P(a, x) by its series expansion.
func gammaSeries(a, x float64) float64 {
	lg, _ := math.Lgamma(a)
	ap := a
	sum := 1 / a
	del := sum
	for n := 0; n < gammaMaxIterations; n++ {
		ap++
		del *= x / ap
		sum += del
		if math.Abs(del) < math.Abs(sum)*gammaEpsilon {
			break
		}
	}
	return sum * math.Exp(-x+a*math.Log(x)-lg)
}

// gammaContinuedFraction evaluates Q(a, x) with the modified Lentz method.
func gammaContinuedFraction(a, x float64) float64 {
	lg, _ := math.Lgamma(a)
	b := x + 1 - a
	c := 1 / gammaTiny
	d := 1 / b
	h := d
	for i := 1; i <= gammaMaxIterations; i++ {
		an := -float64(i) * (float64(i) - a)
		b += 2
		d = an*d + b
		if math.Abs(d) < gammaTiny {
			d = gammaTiny
		}
		c = b + an/c
		if math.Abs(c) < gammaTiny {
			c = gammaTiny
		}
		d = 1 / d
		del := d * c
		h *= del
		if math.Abs(del-1) < gammaEpsilon {
			break
		}
	}
	return math.Exp(-x+a*math.Log(x)-lg) * h
}
