// Package ingest turns uploaded payloads into rows for the analyzer. It
// unpacks archives, reads spreadsheets and guesses the delimiter, the
// relevant column and whether the first line is a header.
package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/pivolan/benford_analyzer/benford"
)

type HeaderMode int

const (
	HeaderAuto HeaderMode = iota
	HeaderPresent
	HeaderAbsent
)

func (m HeaderMode) String() string {
	switch m {
	case HeaderPresent:
		return "yes"
	case HeaderAbsent:
		return "no"
	}
	return "auto"
}

// ParseHeaderMode accepts auto/yes/no and the usual boolean spellings,
// including the "on" sent by an HTML checkbox.
func ParseHeaderMode(s string) (HeaderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return HeaderAuto, nil
	case "yes", "true", "on", "1":
		return HeaderPresent, nil
	case "no", "false", "off", "0":
		return HeaderAbsent, nil
	}
	return HeaderAuto, fmt.Errorf("unknown header mode %q", s)
}

type Options struct {
	Delimiter       rune // 0 detects from the first line
	Column          int  // AutoColumn detects the first numeric column
	Header          HeaderMode
	Allowed         []rune
	NormalizeDigits bool
	MaxBytes        int64
}

func DefaultOptions() Options {
	return Options{
		Column:  AutoColumn,
		Header:  HeaderAuto,
		Allowed: benford.DefaultDelimiters,
	}
}

// Source is a payload ready for benford.FromRows.
type Source struct {
	Name      string
	Rows      benford.RowReader
	Delimiter rune // zero for spreadsheets
	Column    int
	HasHeader bool
	Columns   []string
}

// Prepare unpacks payload if needed and settles the delimiter, column and
// header of the data according to opts.
func Prepare(name string, payload []byte, opts Options) (*Source, error) {
	data, inner, err := Unpack(name, payload, opts.MaxBytes)
	if err != nil {
		return nil, err
	}

	var src *Source
	if strings.EqualFold(path.Ext(inner), ".xlsx") {
		src, err = prepareWorkbook(data, opts)
	} else {
		src, err = prepareText(data, opts)
	}
	if err != nil {
		return nil, err
	}
	src.Name = inner
	if opts.NormalizeDigits {
		src.Rows = NormalizingReader(src.Rows)
	}
	return src, nil
}

// PrepareText is Prepare for data typed or pasted rather than uploaded.
func PrepareText(text string, opts Options) (*Source, error) {
	return Prepare("", []byte(text), opts)
}

func prepareText(data []byte, opts Options) (*Source, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	first, second := leadingLines(data)

	delimiter := opts.Delimiter
	if delimiter == 0 {
		delimiter = DetectDelimiter(first, opts.Allowed)
	}
	if err := ValidateDelimiter(delimiter, opts.Allowed); err != nil {
		return nil, err
	}

	var firstRow, secondRow []string
	if first != "" {
		firstRow, _ = splitLine(first, delimiter)
	}
	if second != "" {
		secondRow, _ = splitLine(second, delimiter)
	}

	src := settle(firstRow, secondRow, opts)
	src.Delimiter = delimiter
	src.Rows = NewLineReader(bytes.NewReader(data), delimiter)
	return src, nil
}

func prepareWorkbook(data []byte, opts Options) (*Source, error) {
	rows, err := RowsFromXLSX(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var firstRow, secondRow []string
	if len(rows) > 0 {
		firstRow = rows[0]
	}
	if len(rows) > 1 {
		secondRow = rows[1]
	}
	src := settle(firstRow, secondRow, opts)
	src.Rows = benford.NewSliceReader(rows)
	return src, nil
}

// settle decides column and header from the first two records. A first row
// is only taken as a header when no field of it is a number.
func settle(firstRow, secondRow []string, opts Options) *Source {
	analysis := AnalyzeHeaders(firstRow)
	_, firstHasNumber := NumericColumn(firstRow)

	src := &Source{Column: opts.Column}
	switch opts.Header {
	case HeaderPresent:
		src.HasHeader = true
	case HeaderAuto:
		src.HasHeader = analysis != nil && !analysis.FirstRowIsData && !firstHasNumber
	}

	if src.Column == AutoColumn {
		src.Column = FindRelevantColumn(firstRow, secondRow)
	}

	switch {
	case src.HasHeader && analysis != nil && !analysis.FirstRowIsData:
		src.Columns = analysis.Headers
	case src.HasHeader:
		src.Columns = ValidateHeaders(cleanAll(firstRow))
	default:
		src.Columns = GenerateHeaders(len(firstRow))
	}
	return src
}

func cleanAll(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = cleanHeaderName(v, i)
	}
	return out
}

func leadingLines(data []byte) (string, string) {
	lr := NewLineReader(bytes.NewReader(data), DefaultDelimiter)
	var lines [2]string
	for i := range lines {
		raw, err := lr.readLine()
		if errors.Is(err, bufio.ErrTooLong) {
			continue
		}
		if err != nil {
			break
		}
		lines[i] = strings.TrimSuffix(string(raw), "\r")
	}
	return lines[0], lines[1]
}
