package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pivolan/go_utils"

	"github.com/pivolan/benford_analyzer/benford"
)

// DefaultDelimiter is used when no allowed delimiter occurs in the sampled line.
const DefaultDelimiter = '\t'

var ErrUnsupportedDelimiter = errors.New("unsupported delimiter")

// DetectDelimiter returns the first allowed delimiter present in line.
func DetectDelimiter(line string, allowed []rune) rune {
	if len(allowed) == 0 {
		allowed = benford.DefaultDelimiters
	}
	for _, d := range allowed {
		if strings.ContainsRune(line, d) {
			return d
		}
	}
	return DefaultDelimiter
}

// ValidateDelimiter checks that d is one of the allowed delimiters.
func ValidateDelimiter(d rune, allowed []rune) error {
	if len(allowed) == 0 {
		allowed = benford.DefaultDelimiters
	}
	names := make([]string, 0, len(allowed))
	for _, a := range allowed {
		names = append(names, string(a))
	}
	if !go_utils.InArray(string(d), names) {
		return fmt.Errorf("%w: %s, allowed %s", ErrUnsupportedDelimiter, strconv.QuoteRune(d), quoteRunes(allowed))
	}
	return nil
}

// ParseDelimiter accepts a literal delimiter or one of the names "tab",
// "semicolon" and "comma". Empty input means detection.
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	case "semicolon":
		return ';', nil
	case "comma":
		return ',', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDelimiter, s)
	}
	return r[0], nil
}

func quoteRunes(rs []rune) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = strconv.QuoteRune(r)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
