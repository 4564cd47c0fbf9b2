package ingest

import (
	"regexp"
	"strings"
)

var numberPattern = regexp.MustCompile(`-?\d*\.?\d+`)

// SplitNumbers pulls the numbers out of free text (separated by spaces,
// commas or newlines) and returns them as single-field rows.
func SplitNumbers(text string) [][]string {
	text = strings.NewReplacer(",", " ", "\n", " ").Replace(text)
	matches := numberPattern.FindAllString(text, -1)
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{m})
	}
	return rows
}
