package benford

import (
	"fmt"
	"strconv"
)

// FirstSignificantDigit returns the first character of value's text form
// that falls in 1-9. Signs, separators, letters and leading zeros are skipped.
func FirstSignificantDigit(value any) (int, error) {
	text := valueText(value)
	for _, r := range text {
		if r >= '1' && r <= '9' {
			return int(r - '0'), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrNoSignificantDigit, text)
}

// MapSignificantDigits extracts the digit of every sample, stopping at the first failure.
func MapSignificantDigits[T any](samples []T) ([]int, error) {
	digits := make([]int, 0, len(samples))
	for _, s := range samples {
		d, err := FirstSignificantDigit(s)
		if err != nil {
			return nil, err
		}
		digits = append(digits, d)
	}
	return digits, nil
}

func valueText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
