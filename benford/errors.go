package benford

import "errors"

var (
	// ErrNoSignificantDigit is returned when a value contains no digit in [1-9].
	ErrNoSignificantDigit = errors.New("no significant digit found")
	// ErrMissingColumn is returned when a row is shorter than the relevant column.
	ErrMissingColumn = errors.New("row has no relevant column")
	// ErrDigitOutOfBase is returned when the extracted digit does not exist in the configured base.
	ErrDigitOutOfBase = errors.New("digit is not valid for base")

	ErrInvalidBase     = errors.New("base must be greater or equal 2")
	ErrDigitOutOfRange = errors.New("digit out of range")
	ErrShapeMismatch   = errors.New("observed and expected distributions differ in length")
)
