package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
)

type HeaderAnalysis struct {
	Headers        []string // cleaned or generated column names
	FirstRowIsData bool
	FirstDataRow   []string
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`),
	regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`),
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\s\d{2}:\d{2}:\d{2}$`),
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\s\d{2}:\d{2}:\d{2}\.\d+$`),
}

var (
	nonAlphanumeric = regexp.MustCompile("[^a-zA-Z0-9]+")
)

// AnalyzeHeaders decides whether firstRow is a header: at least half of its
// fields must look like names. Returns nil for an empty row.
func AnalyzeHeaders(firstRow []string) *HeaderAnalysis {
	if len(firstRow) == 0 {
		return nil
	}

	result := &HeaderAnalysis{
		Headers:      make([]string, len(firstRow)),
		FirstDataRow: firstRow,
	}

	headerLike := 0
	for _, field := range firstRow {
		if isLikelyHeader(field) {
			headerLike++
		}
	}

	if float64(headerLike)/float64(len(firstRow)) >= 0.5 {
		for i, header := range firstRow {
			result.Headers[i] = cleanHeaderName(header, i)
		}
	} else {
		result.FirstRowIsData = true
		for i := range firstRow {
			result.Headers[i] = generateColumnName(i)
		}
	}

	result.Headers = ValidateHeaders(result.Headers)
	return result
}

// GenerateHeaders names n columns column_1..column_n.
func GenerateHeaders(n int) []string {
	headers := make([]string, n)
	for i := range headers {
		headers[i] = generateColumnName(i)
	}
	return headers
}

func isLikelyHeader(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return false
	}
	for _, p := range datePatterns {
		if p.MatchString(text) {
			return false
		}
	}

	var letters, digits, specials int
	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		case unicode.IsSpace(r):
		default:
			specials++
		}
	}

	total := letters + digits + specials
	if total == 0 {
		return false
	}
	return letters > 0 && float64(letters)/float64(total) >= 0.3
}

func generateColumnName(index int) string {
	return fmt.Sprintf("column_%d", index+1)
}

// ValidateHeaders suffixes duplicated names with _1, _2, ...
func ValidateHeaders(headers []string) []string {
	seen := make(map[string]bool, len(headers))
	result := make([]string, len(headers))

	for i, header := range headers {
		name := header
		for counter := 1; seen[name]; counter++ {
			name = fmt.Sprintf("%s_%d", header, counter)
		}
		seen[name] = true
		result[i] = name
	}
	return result
}

func cleanHeaderName(header string, index int) string {
	header = strings.TrimSpace(header)
	if header == "" || !isLikelyHeader(header) {
		return generateColumnName(index)
	}
	cleaned := replaceSpecialSymbols(unidecode.Unidecode(header))
	if cleaned == "" {
		return generateColumnName(index)
	}
	return strings.ToLower(cleaned)
}

func replaceSpecialSymbols(input string) string {
	processed := nonAlphanumeric.ReplaceAllString(input, "_")
	return strings.Trim(processed, "_")
}
