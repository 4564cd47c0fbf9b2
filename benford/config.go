package benford

import "fmt"

// DefaultDelimiters are the field separators tried, in priority order, when
// the delimiter of an input is detected automatically.
var DefaultDelimiters = []rune{'\t', ';', ','}

// Config holds the tunables of an analysis.
type Config struct {
	// Base of the numeral system, digits span 1..Base-1.
	Base int
	// Threshold is the largest chi-square statistic still considered compliant.
	Threshold float64
	// DecimalPlaces of observed percentages.
	DecimalPlaces int32
	// Delimiters allowed for tabular input, in detection priority order.
	Delimiters []rune
}

func DefaultConfig() Config {
	return Config{
		Base:          DefaultBase,
		Threshold:     DefaultComplianceThreshold,
		DecimalPlaces: DefaultDecimalPlaces,
		Delimiters:    append([]rune(nil), DefaultDelimiters...),
	}
}

func (c Config) Validate() error {
	if c.Base < 2 {
		return fmt.Errorf("%w: got %d", ErrInvalidBase, c.Base)
	}
	if c.DecimalPlaces < 0 {
		return fmt.Errorf("decimal places must not be negative: got %d", c.DecimalPlaces)
	}
	return nil
}

// AllowedDelimiters returns the configured delimiters or the defaults.
func (c Config) AllowedDelimiters() []rune {
	if len(c.Delimiters) == 0 {
		return DefaultDelimiters
	}
	return c.Delimiters
}
