package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mozillazg/go-unidecode"

	"github.com/pivolan/benford_analyzer/benford"
)

// NormalizeDigits replaces non-ASCII decimal digits (Arabic-Indic,
// full-width, Devanagari...) with their ASCII form. Other runes are kept.
func NormalizeDigits(value string) string {
	if isASCII(value) {
		return value
	}
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= utf8.RuneSelf && unicode.IsDigit(r) {
			b.WriteString(unidecode.Unidecode(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

type normalizingReader struct {
	src benford.RowReader
}

// NormalizingReader applies NormalizeDigits to every field read from src.
func NormalizingReader(src benford.RowReader) benford.RowReader {
	return &normalizingReader{src: src}
}

func (n *normalizingReader) Read() ([]string, error) {
	row, err := n.src.Read()
	if err != nil {
		return row, err
	}
	for i, v := range row {
		row[i] = NormalizeDigits(v)
	}
	return row, nil
}
