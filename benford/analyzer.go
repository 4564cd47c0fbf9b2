// Package benford computes leading digit distributions and compares them with
// the distribution predicted by Benford's law.
package benford

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/shopspring/decimal"
)

// RowReader yields rows of fields until io.EOF. *csv.Reader satisfies it.
type RowReader interface {
	Read() ([]string, error)
}

// SummaryRow describes one digit of an analysis.
type SummaryRow struct {
	Digit              int
	Occurrences        int
	Percentage         decimal.Decimal
	ExpectedPercentage decimal.Decimal
}

// DigitCount is the persisted form of one digit bucket.
type DigitCount struct {
	Digit       int
	Occurrences int
}

// Analyzer holds the result of analysing one dataset. It is not safe for
// concurrent mutation; build one per dataset.
type Analyzer struct {
	cfg         Config
	title       string
	occurrences *Occurrences
	percentages *Percentages
	errorRows   map[int]struct{}
	rowCount    int
}

func newAnalyzer(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{
		cfg:         cfg,
		occurrences: NewOccurrences(),
		percentages: newPercentages(),
		errorRows:   map[int]struct{}{},
	}, nil
}

// FromOccurrences builds an analysis from counts loaded from storage.
func FromOccurrences(occ *Occurrences, cfg Config) (*Analyzer, error) {
	a, err := newAnalyzer(cfg)
	if err != nil {
		return nil, err
	}
	if err := a.SetOccurrences(occ); err != nil {
		return nil, err
	}
	return a, nil
}

// FromRows reads every row of src and counts the leading digit found in
// column. Rows where no digit can be taken are remembered as error rows; the
// index of a row counts from 0 and excludes the header.
func FromRows(src RowReader, column int, hasHeader bool, cfg Config) (*Analyzer, error) {
	a, err := newAnalyzer(cfg)
	if err != nil {
		return nil, err
	}

	if hasHeader {
		if _, err := src.Read(); err != nil && !errors.Is(err, io.EOF) && !IsRowError(err) {
			return nil, fmt.Errorf("read header: %w", err)
		}
	}

	for i := 0; ; i++ {
		row, err := src.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if !IsRowError(err) {
				return nil, fmt.Errorf("read row %d: %w", i, err)
			}
			a.errorRows[i] = struct{}{}
			a.rowCount++
			continue
		}
		a.rowCount++
		if err := a.addValue(row, column); err != nil {
			a.errorRows[i] = struct{}{}
		}
	}

	a.calculatePercentages()
	return a, nil
}

// IsRowError reports whether err only spoils the current row (a CSV parse
// error) rather than the whole input.
func IsRowError(err error) bool {
	var parseErr *csv.ParseError
	return errors.As(err, &parseErr)
}

func (a *Analyzer) addValue(row []string, column int) error {
	if column < 0 || column >= len(row) {
		return ErrMissingColumn
	}
	digit, err := FirstSignificantDigit(row[column])
	if err != nil {
		return err
	}
	if digit >= a.cfg.Base {
		return fmt.Errorf("%w: %d in base %d", ErrDigitOutOfBase, digit, a.cfg.Base)
	}
	a.occurrences.Add(digit)
	return nil
}

// SetOccurrences replaces the counts and recomputes percentages.
func (a *Analyzer) SetOccurrences(occ *Occurrences) error {
	for _, d := range occ.Digits() {
		if d < 1 || d >= a.cfg.Base {
			return fmt.Errorf("%w: digit %d for base %d", ErrDigitOutOfRange, d, a.cfg.Base)
		}
	}
	a.occurrences = occ.Clone()
	a.calculatePercentages()
	return nil
}

func (a *Analyzer) calculatePercentages() {
	a.percentages = AllocatePercentages(a.occurrences, a.cfg.DecimalPlaces)
}

func (a *Analyzer) Config() Config { return a.cfg }
func (a *Analyzer) Base() int      { return a.cfg.Base }
func (a *Analyzer) Title() string  { return a.title }

func (a *Analyzer) SetTitle(title string) { a.title = title }

// Occurrences returns a copy of the digit counts.
func (a *Analyzer) Occurrences() *Occurrences { return a.occurrences.Clone() }

func (a *Analyzer) Percentages() *Percentages { return a.percentages }

func (a *Analyzer) OccurrencesFor(digit int) int { return a.occurrences.Count(digit) }

func (a *Analyzer) PercentageFor(digit int) decimal.Decimal { return a.percentages.Of(digit) }

func (a *Analyzer) TotalOccurrences() int { return a.occurrences.Total() }

// RowCount is the number of rows read, header excluded.
func (a *Analyzer) RowCount() int { return a.rowCount }

func (a *Analyzer) HasErrors() bool { return len(a.errorRows) > 0 }

func (a *Analyzer) ErrorCount() int { return len(a.errorRows) }

func (a *Analyzer) IsErrorRow(i int) bool {
	_, ok := a.errorRows[i]
	return ok
}

// ErrorRows returns the indexes of rows without a usable digit, ascending.
func (a *Analyzer) ErrorRows() []int {
	rows := make([]int, 0, len(a.errorRows))
	for i := range a.errorRows {
		rows = append(rows, i)
	}
	sort.Ints(rows)
	return rows
}

// Digits lists the digit universe 1..base-1.
func (a *Analyzer) Digits() []int {
	digits := make([]int, 0, a.cfg.Base-1)
	for d := 1; d < a.cfg.Base; d++ {
		digits = append(digits, d)
	}
	return digits
}

func (a *Analyzer) ExpectedPercentage(digit int) decimal.Decimal {
	v, err := ExpectedPercentage(digit, a.cfg.Base)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// Summary has one row per digit of the base, including digits never seen.
func (a *Analyzer) Summary() []SummaryRow {
	expected, _ := ExpectedDistribution(a.cfg.Base) // base is validated in newAnalyzer
	rows := make([]SummaryRow, 0, len(expected))
	for _, d := range a.Digits() {
		rows = append(rows, SummaryRow{
			Digit:              d,
			Occurrences:        a.occurrences.Count(d),
			Percentage:         a.percentages.Of(d),
			ExpectedPercentage: expected[d-1],
		})
	}
	return rows
}

// ObservedFlat returns observed percentages of digits 1..base-1.
func (a *Analyzer) ObservedFlat() []float64 {
	flat := make([]float64, a.cfg.Base-1)
	for _, d := range a.percentages.Digits() {
		flat[d-1] = a.percentages.Of(d).InexactFloat64()
	}
	return flat
}

func (a *Analyzer) ExpectedFlat() []float64 {
	flat, _ := ExpectedDistributionFlat(a.cfg.Base)
	return flat
}

// Test runs the chi-square test of observed against expected percentages.
func (a *Analyzer) Test() TestResult {
	res, _ := ChiSquareTest(a.ObservedFlat(), a.ExpectedFlat(), DegreesOfFreedom(a.cfg.Base))
	return res
}

func (a *Analyzer) ChiSquare() float64 { return a.Test().Statistic }

func (a *Analyzer) IsCompliant() bool {
	return IsCompliant(a.ChiSquare(), a.cfg.Threshold)
}

// Export returns digit counts in first-occurrence order for persistence.
func (a *Analyzer) Export() []DigitCount {
	out := make([]DigitCount, 0, a.occurrences.Len())
	for _, d := range a.occurrences.Digits() {
		out = append(out, DigitCount{Digit: d, Occurrences: a.occurrences.Count(d)})
	}
	return out
}

// OccurrencesFromCounts rebuilds Occurrences from persisted records, keeping their order.
func OccurrencesFromCounts(counts []DigitCount) *Occurrences {
	occ := NewOccurrences()
	for _, c := range counts {
		occ.Set(c.Digit, c.Occurrences)
	}
	return occ
}

type sliceReader struct {
	rows [][]string
	pos  int
}

// NewSliceReader serves already materialized rows.
func NewSliceReader(rows [][]string) RowReader {
	return &sliceReader{rows: rows}
}

func (r *sliceReader) Read() ([]string, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}
