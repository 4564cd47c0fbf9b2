package ingest

import (
	"encoding/csv"
	"strconv"
	"strings"
)

// DefaultRelevantColumn is used when no column holds a number.
const DefaultRelevantColumn = 0

// AutoColumn asks Prepare to find the relevant column itself.
const AutoColumn = -1

// FindRelevantColumn returns the first column of firstRow holding a number.
// When firstRow has none (it is probably a header) secondRow is tried.
func FindRelevantColumn(firstRow, secondRow []string) int {
	if col, ok := NumericColumn(firstRow); ok {
		return col
	}
	if col, ok := NumericColumn(secondRow); ok {
		return col
	}
	return DefaultRelevantColumn
}

// NumericColumn returns the index of the first field that parses as a float.
func NumericColumn(row []string) (int, bool) {
	for i, v := range row {
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func splitLine(line string, delimiter rune) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	return r.Read()
}
